package websocket

import (
	"time"

	"github.com/cloakd/cloakd/internal/engine"
)

// EventType represents the type of WebSocket event.
type EventType string

const (
	// EventTypeDetection is broadcast after each anonymization call that
	// produced at least one match.
	EventTypeDetection EventType = "detection"
	// EventTypeRequestLog is broadcast for every API request.
	EventTypeRequestLog EventType = "request_log"
	// EventTypeSystem carries service status updates.
	EventTypeSystem EventType = "system"
)

// Event is the envelope sent to dashboard clients.
type Event struct {
	Type      EventType   `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data"`
	RequestID string      `json:"request_id,omitempty"`
}

// DetectionEvent summarizes one anonymization call. It carries counts per
// entity type, never the matched values.
type DetectionEvent struct {
	RequestID    string                    `json:"request_id"`
	ClientIP     string                    `json:"client_ip"`
	TotalMatches int                       `json:"total_matches"`
	Summary      map[engine.EntityType]int `json:"summary"`
	ProcessingMS float64                   `json:"processing_ms"`
}

// RequestLogEvent records an API request.
type RequestLogEvent struct {
	RequestID  string        `json:"request_id"`
	Method     string        `json:"method"`
	Path       string        `json:"path"`
	StatusCode int           `json:"status_code"`
	ClientIP   string        `json:"client_ip"`
	Duration   time.Duration `json:"duration"`
}

// SystemEvent carries service-level status.
type SystemEvent struct {
	Status           string `json:"status"`
	ActiveDetectors  int    `json:"active_detectors"`
	ConnectedClients int    `json:"connected_clients"`
}
