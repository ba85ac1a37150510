package engine

import (
	"strings"

	"go.uber.org/zap"

	"github.com/cloakd/cloakd/internal/dictionary"
)

// Engine is the anonymization orchestrator: it owns an immutable validated
// configuration and the detector set built from it. An Engine is safe for
// concurrent use; Anonymize retains no state between calls.
type Engine struct {
	cfg       *Config
	detectors []Detector
	logger    *zap.Logger
}

// New builds an engine from a validated configuration. Dictionaries named
// in the configuration are loaded exactly once, here; a configured path
// that cannot be read is fatal and reported as a ConfigError.
func New(cfg *Config, logger *zap.Logger) (*Engine, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	dict, err := dictionary.Load(cfg.DictionaryPaths)
	if err != nil {
		return nil, &ConfigError{Op: "load dictionary", Err: err}
	}

	detectors := buildDetectors(cfg, dict)

	logger.Info("anonymization engine initialized",
		zap.String("locale", cfg.Locale),
		zap.Int("detectors", len(detectors)),
		zap.Int("dictionary_entries", dict.Len()),
	)

	return &Engine{cfg: cfg, detectors: detectors, logger: logger}, nil
}

// Config returns the engine's configuration. It must be treated as
// read-only; reconfiguring means building a new engine.
func (e *Engine) Config() *Config { return e.cfg }

// Detectors returns the names of the active detectors in registration order.
func (e *Engine) Detectors() []string {
	names := make([]string, len(e.detectors))
	for i, d := range e.detectors {
		names[i] = d.Name()
	}
	return names
}

// Anonymize finds sensitive spans in text, resolves overlaps and rewrites
// each accepted span with its strategy token. The returned matches carry
// original offsets and raw values for audit purposes; the anonymized text
// never contains an untransformed sensitive substring.
func (e *Engine) Anonymize(text string) *Result {
	result := &Result{
		AnonymizedText: text,
		Matches:        []Match{},
		Summary:        map[EntityType]int{},
	}
	if text == "" {
		result.AnonymizedText = ""
		return result
	}

	var candidates []Match
	for _, d := range e.detectors {
		candidates = append(candidates, d.Detect(text)...)
	}

	applied := resolve(candidates)
	if len(applied) == 0 {
		return result
	}

	var b strings.Builder
	b.Grow(len(text))
	cursor := 0
	for _, m := range applied {
		b.WriteString(text[cursor:m.Start])
		rule := e.cfg.Entities[m.Type]
		b.WriteString(Tokenize(rule.Strategy, m.Type, m.Value))
		cursor = m.End
		result.Summary[m.Type]++
	}
	b.WriteString(text[cursor:])

	result.AnonymizedText = b.String()
	result.Matches = applied

	e.logger.Debug("text anonymized",
		zap.Int("input_bytes", len(text)),
		zap.Int("matches", len(applied)),
	)

	return result
}

// Anonymize is the package-level convenience entry point: it validates a
// raw configuration object, builds a throwaway engine and processes text
// in one shot.
func Anonymize(text string, raw map[string]interface{}, logger *zap.Logger) (*Result, error) {
	eng, err := New(ParseConfig(raw), logger)
	if err != nil {
		return nil, err
	}
	return eng.Anonymize(text), nil
}
