package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/cloakd/cloakd/internal/engine"
	"github.com/cloakd/cloakd/internal/websocket"
)

// AnonymizeRequest is the boundary shape consumed from callers. Config is
// optional; when present it is a raw object that goes through the
// engine's repair validation before use. Dictionary paths are a local
// filesystem concern and are stripped from remote configs.
type AnonymizeRequest struct {
	Text   string                 `json:"text"`
	Config map[string]interface{} `json:"config,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// maxRequestBody bounds request bodies at 1 MiB of JSON.
const maxRequestBody = 1 << 20

// handleAnonymize is the main API entry point: it resolves an engine for
// the request, consults the result cache, runs the anonymization, and
// fans the outcome out to the audit trail and dashboard.
func (s *Server) handleAnonymize(w http.ResponseWriter, r *http.Request) {
	requestID := getRequestID(r.Context())
	log := s.logger.WithRequestID(requestID)

	var req AnonymizeRequest
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody))
	if err := decoder.Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	eng := s.engine.Load()
	if req.Config != nil {
		stripDictionaryPaths(req.Config)
		var err error
		eng, err = engine.New(engine.ParseConfig(req.Config), log.Logger)
		if err != nil {
			var cfgErr *engine.ConfigError
			if errors.As(err, &cfgErr) {
				writeJSON(w, http.StatusBadRequest, errorResponse{Error: cfgErr.Error()})
				return
			}
			log.Error("failed to build engine", zap.Error(err))
			writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
			return
		}
	}

	var cacheKey string
	if s.cache != nil {
		cacheKey = s.cache.Key(req.Text, eng.Config().Fingerprint())
		if cached := s.cache.Get(r.Context(), cacheKey); cached != nil {
			writeJSON(w, http.StatusOK, cached)
			return
		}
	}

	start := time.Now()
	result := eng.Anonymize(req.Text)
	elapsed := time.Since(start)

	if s.cache != nil {
		s.cache.Put(r.Context(), cacheKey, result)
	}

	if s.auditor != nil {
		if err := s.auditor.Log(r.Context(), requestID, req.Text, result); err != nil {
			log.Error("audit write failed", zap.Error(err))
		}
	}

	if len(result.Matches) > 0 {
		summary := make(map[string]int, len(result.Summary))
		for et, n := range result.Summary {
			summary[string(et)] = n
		}
		log.LogDetection(requestID, len(req.Text), len(result.Matches), summary)

		s.wsHub.BroadcastEvent(websocket.Event{
			Type:      websocket.EventTypeDetection,
			Timestamp: time.Now(),
			RequestID: requestID,
			Data: websocket.DetectionEvent{
				RequestID:    requestID,
				ClientIP:     getClientIP(r),
				TotalMatches: len(result.Matches),
				Summary:      result.Summary,
				ProcessingMS: float64(elapsed.Nanoseconds()) / 1e6,
			},
		})
	}

	writeJSON(w, http.StatusOK, result)
}

// stripDictionaryPaths removes dictionary path keys from a request-scoped
// raw config. Supplementary dictionaries name server-local files; letting
// remote callers choose them would turn the API into a file-existence
// oracle.
func stripDictionaryPaths(raw map[string]interface{}) {
	for key := range raw {
		if strings.EqualFold(key, "dictionaryPaths") || strings.EqualFold(key, "dictionary_paths") {
			delete(raw, key)
		}
	}
}

// handleAuditRecent returns the newest audit trail rows. Only available
// when the audit store is configured.
func (s *Server) handleAuditRecent(w http.ResponseWriter, r *http.Request) {
	if s.auditor == nil {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "audit trail not enabled"})
		return
	}

	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			limit = n
		}
	}

	records, err := s.auditor.Recent(r.Context(), limit)
	if err != nil {
		s.logger.Error("audit query failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"records": records})
}

// handleCacheStats reports result cache counters.
func (s *Server) handleCacheStats(w http.ResponseWriter, r *http.Request) {
	if s.cache == nil {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "result cache not enabled"})
		return
	}

	stats, err := s.cache.GetStats(r.Context())
	if err != nil {
		s.logger.Error("cache stats failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// handleCacheClear drops all cached results, e.g. after a dictionary
// update on disk.
func (s *Server) handleCacheClear(w http.ResponseWriter, r *http.Request) {
	if s.cache == nil {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "result cache not enabled"})
		return
	}

	if err := s.cache.Clear(r.Context()); err != nil {
		s.logger.Error("cache clear failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
}

// entityInfo describes one supported entity type and its default rule.
type entityInfo struct {
	Type       engine.EntityType   `json:"type"`
	Enabled    bool                `json:"enabled"`
	Strategy   engine.StrategyKind `json:"strategy"`
	Confidence float64             `json:"confidence"`
}

// handleEntities lists the supported entity types with their defaults.
func (s *Server) handleEntities(w http.ResponseWriter, r *http.Request) {
	defaults := engine.DefaultConfig()
	entities := make([]entityInfo, 0, len(engine.AllEntityTypes))
	for _, et := range engine.AllEntityTypes {
		rule := defaults.Entities[et]
		entities = append(entities, entityInfo{
			Type:       et,
			Enabled:    rule.Enabled,
			Strategy:   rule.Strategy,
			Confidence: rule.Confidence,
		})
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"entities": entities})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
