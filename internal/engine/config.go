package engine

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cast"
	"github.com/spf13/viper"
)

// DefaultLocale selects the region-specific detector set (NI, NHS,
// SORT_CODE_UK are only meaningful for UK text).
const DefaultLocale = "UK"

// EntityRule is the per-type configuration: whether the detector runs and
// how accepted matches are rewritten. Confidence is the nominal confidence
// reported on matches of this type; it is informational, not a filter.
type EntityRule struct {
	Enabled    bool         `json:"enabled"`
	Strategy   StrategyKind `json:"strategy"`
	Confidence float64      `json:"confidence"`
}

// Config is a fully-defaulted engine configuration. Every instance handed
// to New has been through ParseConfig or DefaultConfig, so all entity types
// are present and well-typed; the engine never re-validates.
type Config struct {
	Locale          string                    `json:"locale"`
	Entities        map[EntityType]EntityRule `json:"entities"`
	DictionaryPaths []string                  `json:"dictionaryPaths"`
}

var defaultStrategies = map[EntityType]StrategyKind{
	EntityPerson:     StrategyPseudonym,
	EntitySingleName: StrategyPseudonym,
	EntityOrg:        StrategyPseudonym,
	EntityEmail:      StrategyMask,
	EntityPhone:      StrategyMask,
	EntityCard:       StrategyRedact,
	EntityNI:         StrategyRedact,
	EntityNHS:        StrategyRedact,
	EntityPostcode:   StrategyHash,
	EntityDOB:        StrategyRedact,
	EntityAddress:    StrategyRedact,
	EntityURL:        StrategyMask,
	EntityIP:         StrategyHash,
	EntityPassport:   StrategyRedact,
	EntityIBAN:       StrategyRedact,
	EntitySortCode:   StrategyRedact,
}

var defaultConfidences = map[EntityType]float64{
	EntityPerson:     0.70,
	EntitySingleName: 0.50,
	EntityOrg:        0.65,
	EntityEmail:      0.95,
	EntityPhone:      0.85,
	EntityCard:       0.95,
	EntityNI:         0.90,
	EntityNHS:        0.90,
	EntityPostcode:   0.85,
	EntityDOB:        0.80,
	EntityAddress:    0.60,
	EntityURL:        0.90,
	EntityIP:         0.90,
	EntityPassport:   0.75,
	EntityIBAN:       0.95,
	EntitySortCode:   0.85,
}

// DefaultConfig returns the baseline configuration: every entity type
// enabled except ADDRESS, with the default strategy and confidence per type.
func DefaultConfig() *Config {
	entities := make(map[EntityType]EntityRule, len(AllEntityTypes))
	for _, et := range AllEntityTypes {
		entities[et] = EntityRule{
			Enabled:    et != EntityAddress,
			Strategy:   defaultStrategies[et],
			Confidence: defaultConfidences[et],
		}
	}
	return &Config{
		Locale:          DefaultLocale,
		Entities:        entities,
		DictionaryPaths: []string{},
	}
}

// ParseEntityType resolves a case-insensitive name to a known entity type.
func ParseEntityType(name string) (EntityType, bool) {
	et := EntityType(strings.ToUpper(strings.TrimSpace(name)))
	for _, known := range AllEntityTypes {
		if et == known {
			return known, true
		}
	}
	return "", false
}

// ParseStrategy resolves a case-insensitive name to a strategy kind,
// falling back to REDACT for anything unrecognized.
func ParseStrategy(name string) StrategyKind {
	switch StrategyKind(strings.ToUpper(strings.TrimSpace(name))) {
	case StrategyRedact:
		return StrategyRedact
	case StrategyMask:
		return StrategyMask
	case StrategyHash:
		return StrategyHash
	case StrategyPseudonym:
		return StrategyPseudonym
	default:
		return StrategyRedact
	}
}

// ParseConfig deep-validates and normalizes a raw object into a usable
// Config. The policy is repair, not reject: malformed fields are coerced
// toward the defaults and the caller always gets a complete config back.
func ParseConfig(raw map[string]interface{}) *Config {
	cfg := DefaultConfig()
	if raw == nil {
		return cfg
	}

	if v, ok := lookup(raw, "locale"); ok {
		if locale := strings.TrimSpace(cast.ToString(v)); locale != "" {
			cfg.Locale = locale
		}
	}

	if v, ok := lookup(raw, "dictionaryPaths", "dictionary_paths"); ok {
		cfg.DictionaryPaths = toStringSlice(v)
	}

	if v, ok := lookup(raw, "entities"); ok {
		entities := cast.ToStringMap(v)
		for name, rawRule := range entities {
			et, known := ParseEntityType(name)
			if !known {
				continue
			}
			cfg.Entities[et] = parseRule(et, rawRule)
		}
	}

	return cfg
}

// parseRule normalizes a single entity rule, coercing each field and
// substituting defaults for anything absent or malformed.
func parseRule(et EntityType, raw interface{}) EntityRule {
	rule := EntityRule{
		Enabled:    true,
		Strategy:   defaultStrategies[et],
		Confidence: defaultConfidences[et],
	}

	fields := cast.ToStringMap(raw)
	if fields == nil {
		return rule
	}

	if v, ok := lookup(fields, "enabled"); ok {
		enabled, err := cast.ToBoolE(v)
		if err != nil {
			enabled = true
		}
		rule.Enabled = enabled
	}

	if v, ok := lookup(fields, "strategy"); ok {
		rule.Strategy = ParseStrategy(cast.ToString(v))
	}

	if v, ok := lookup(fields, "confidence"); ok {
		conf, err := cast.ToFloat64E(v)
		if err != nil || conf < 0 || conf > 1 {
			conf = 0.5
		}
		rule.Confidence = conf
	}

	return rule
}

// toStringSlice coerces a raw value to a string slice. Only actual
// sequences qualify; scalars repair to empty rather than being
// stringified into a one-element slice.
func toStringSlice(v interface{}) []string {
	switch v.(type) {
	case []interface{}, []string:
	default:
		return []string{}
	}
	paths, err := cast.ToStringSliceE(v)
	if err != nil || paths == nil {
		return []string{}
	}
	return paths
}

// lookup finds a key in a raw map ignoring case, so both hand-written JSON
// and viper's lowercased settings resolve the same way.
func lookup(m map[string]interface{}, keys ...string) (interface{}, bool) {
	for _, key := range keys {
		if v, ok := m[key]; ok {
			return v, true
		}
		for k, v := range m {
			if strings.EqualFold(k, key) {
				return v, true
			}
		}
	}
	return nil, false
}

// LoadConfigFile reads an engine configuration from disk, dispatching on
// the file extension. JSON and YAML are both supported; anything else is a
// ConfigError. Content errors are fatal, field-level problems are repaired.
func LoadConfigFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &ConfigError{Op: "read", Path: path, Err: err}
	}

	var configType string
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		configType = "json"
	case ".yaml", ".yml":
		configType = "yaml"
	default:
		return nil, &ConfigError{
			Op:   "load",
			Path: path,
			Err:  fmt.Errorf("unsupported config extension %q", filepath.Ext(path)),
		}
	}

	v := viper.New()
	v.SetConfigType(configType)
	if err := v.ReadConfig(bytes.NewReader(data)); err != nil {
		return nil, &ConfigError{Op: "parse", Path: path, Err: err}
	}

	return ParseConfig(v.AllSettings()), nil
}

// Fingerprint returns a stable digest of the configuration, used as part
// of cache keys. Entity rules are folded in registration order so two
// equivalent configs always produce the same digest.
func (c *Config) Fingerprint() string {
	h := sha256.New()
	fmt.Fprintf(h, "locale=%s;", c.Locale)
	for _, et := range AllEntityTypes {
		rule := c.Entities[et]
		fmt.Fprintf(h, "%s=%t,%s,%.4f;", et, rule.Enabled, rule.Strategy, rule.Confidence)
	}
	for _, p := range c.DictionaryPaths {
		fmt.Fprintf(h, "dict=%s;", p)
	}
	return hex.EncodeToString(h.Sum(nil))
}
