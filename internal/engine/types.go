package engine

import "fmt"

// EntityType identifies a category of sensitive information. The set is
// closed: adding a type means adding a detector and a default rule.
type EntityType string

const (
	EntityPerson     EntityType = "PERSON"
	EntitySingleName EntityType = "SINGLE_NAME"
	EntityOrg        EntityType = "ORG"
	EntityEmail      EntityType = "EMAIL"
	EntityPhone      EntityType = "PHONE"
	EntityCard       EntityType = "CARD"
	EntityNI         EntityType = "NI"
	EntityNHS        EntityType = "NHS"
	EntityPostcode   EntityType = "POSTCODE"
	EntityDOB        EntityType = "DOB"
	EntityAddress    EntityType = "ADDRESS"
	EntityURL        EntityType = "URL"
	EntityIP         EntityType = "IP"
	EntityPassport   EntityType = "PASSPORT"
	EntityIBAN       EntityType = "IBAN"
	EntitySortCode   EntityType = "SORT_CODE_UK"
)

// AllEntityTypes lists every known entity type in detector registration
// order. Resolver tie-breaking depends on this order being stable.
var AllEntityTypes = []EntityType{
	EntityPerson,
	EntitySingleName,
	EntityOrg,
	EntityEmail,
	EntityPhone,
	EntityCard,
	EntityNI,
	EntityNHS,
	EntityPostcode,
	EntityDOB,
	EntityAddress,
	EntityURL,
	EntityIP,
	EntityPassport,
	EntityIBAN,
	EntitySortCode,
}

// StrategyKind selects how a matched value is rewritten.
type StrategyKind string

const (
	StrategyRedact    StrategyKind = "REDACT"
	StrategyMask      StrategyKind = "MASK"
	StrategyHash      StrategyKind = "HASH"
	StrategyPseudonym StrategyKind = "PSEUDONYM"
)

// Match is a located occurrence of sensitive data. Offsets index into the
// original input text with End exclusive, so text[Start:End] == Value.
type Match struct {
	Type       EntityType `json:"type"`
	Value      string     `json:"value"`
	Start      int        `json:"start"`
	End        int        `json:"end"`
	Confidence float64    `json:"confidence"`
	Detector   string     `json:"detector"`
}

// Result is the complete output of one Anonymize call. Matches report
// original offsets and raw values for audit purposes; callers must treat
// Match.Value as sensitive.
type Result struct {
	AnonymizedText string             `json:"anonymizedText"`
	Matches        []Match            `json:"matches"`
	Summary        map[EntityType]int `json:"summary"`
}

// ConfigError is the single fatal error class the engine surfaces: an
// unreadable or unparsable config file, an unsupported extension, or a
// detector resource that was configured but cannot be loaded. Everything
// else is repaired silently.
type ConfigError struct {
	Op   string
	Path string
	Err  error
}

func (e *ConfigError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("config: %s %s: %v", e.Op, e.Path, e.Err)
	}
	return fmt.Sprintf("config: %s: %v", e.Op, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }
