package engine

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// Detector locates raw occurrences of a single entity type in text. A
// detector never fails on malformed input; unparseable sections simply
// produce no matches.
type Detector interface {
	Type() EntityType
	Name() string
	Detect(text string) []Match
}

// contextWindow is how far (in bytes) around a match context words are
// searched when boosting or gating confidence.
const contextWindow = 100

// contextBoost is added to a match's confidence when a context word is
// found near it, capped at 1.0.
const contextBoost = 0.35

// isWordChar reports whether r belongs to a token for boundary snapping.
// The accented range U+00C0-U+017F keeps names like "Müller" intact.
func isWordChar(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		return true
	case r >= '0' && r <= '9', r == '_':
		return true
	case r >= 0x00C0 && r <= 0x017F:
		return true
	}
	return false
}

// snapWordBounds widens [start,end) outward over adjacent word characters
// so a hit inside a longer token is corrected to the whole token. It never
// narrows a span.
func snapWordBounds(text string, start, end int) (int, int) {
	for start > 0 {
		r, size := utf8.DecodeLastRuneInString(text[:start])
		if !isWordChar(r) {
			break
		}
		start -= size
	}
	for end < len(text) {
		r, size := utf8.DecodeRuneInString(text[end:])
		if !isWordChar(r) {
			break
		}
		end += size
	}
	return start, end
}

// normalized pairs NFC-normalized text with a mapping from normalized byte
// offsets back to offsets in the original string. Detectors match against
// Text and translate spans through Span before reporting them.
type normalized struct {
	Text     string
	identity bool
	segs     []normSegment
}

type normSegment struct {
	origStart, origEnd int
	normStart, normEnd int
}

// normalize applies Unicode canonical composition so visually identical
// but differently encoded characters match consistently. When the input is
// already normalized the mapping is the identity and costs nothing.
func normalize(text string) *normalized {
	if norm.NFC.IsNormalString(text) {
		return &normalized{Text: text, identity: true}
	}

	var it norm.Iter
	it.InitString(norm.NFC, text)

	var b strings.Builder
	b.Grow(len(text))
	var segs []normSegment
	origStart := 0
	for !it.Done() {
		out := it.Next()
		origEnd := it.Pos()
		normStart := b.Len()
		b.Write(out)
		segs = append(segs, normSegment{
			origStart: origStart,
			origEnd:   origEnd,
			normStart: normStart,
			normEnd:   b.Len(),
		})
		origStart = origEnd
	}

	return &normalized{Text: b.String(), segs: segs}
}

// Span translates a span in the normalized text to a span in the original
// text. Spans that begin or end inside a segment whose length changed are
// widened to the segment edge, never narrowed past original content.
func (n *normalized) Span(start, end int) (int, int) {
	if n.identity {
		return start, end
	}
	origStart := n.mapOffset(start, false)
	origEnd := n.mapOffset(end, true)
	if origEnd < origStart {
		origEnd = origStart
	}
	return origStart, origEnd
}

func (n *normalized) mapOffset(off int, isEnd bool) int {
	pos := off
	if isEnd && pos > 0 {
		pos--
	}
	for _, s := range n.segs {
		if pos < s.normStart || pos >= s.normEnd {
			continue
		}
		if s.normEnd-s.normStart == s.origEnd-s.origStart {
			return s.origStart + (off - s.normStart)
		}
		if isEnd {
			return s.origEnd
		}
		return s.origStart
	}
	if len(n.segs) > 0 && off >= n.segs[len(n.segs)-1].normEnd {
		return n.segs[len(n.segs)-1].origEnd
	}
	return 0
}

// hasContext reports whether any of the given words occurs within the
// context window around position in text. Comparison is case-insensitive.
func hasContext(text string, position int, words []string) bool {
	if len(words) == 0 {
		return false
	}
	start := position - contextWindow
	if start < 0 {
		start = 0
	}
	end := position + contextWindow
	if end > len(text) {
		end = len(text)
	}
	window := strings.ToLower(text[start:end])
	for _, w := range words {
		if strings.Contains(window, strings.ToLower(w)) {
			return true
		}
	}
	return false
}

// patternDetector is the shared implementation behind every structured
// identifier detector: a compiled pattern, an optional checksum gate, and
// optional context words that either boost confidence or gate the match.
type patternDetector struct {
	entity     EntityType
	name       string
	re         *regexp.Regexp
	confidence float64

	// validate, when set, must accept the snapped value or the hit is
	// dropped. Used for Luhn, IBAN mod-97, NHS mod-11 and NI prefixes.
	validate func(value string) bool

	// contextWords boost confidence when found near a hit. When
	// requireContext is set they gate the match instead: no nearby
	// context word, no match.
	contextWords   []string
	requireContext bool
}

func (d *patternDetector) Type() EntityType { return d.entity }
func (d *patternDetector) Name() string     { return d.name }

func (d *patternDetector) Detect(text string) []Match {
	n := normalize(text)

	var matches []Match
	for _, loc := range d.re.FindAllStringIndex(n.Text, -1) {
		start, end := n.Span(loc[0], loc[1])
		start, end = snapWordBounds(text, start, end)
		if start >= end || end > len(text) {
			continue
		}
		value := text[start:end]

		if d.validate != nil && !d.validate(value) {
			continue
		}
		if d.requireContext && !hasContext(text, start, d.contextWords) {
			continue
		}

		confidence := d.confidence
		if !d.requireContext && len(d.contextWords) > 0 && hasContext(text, start, d.contextWords) {
			confidence += contextBoost
			if confidence > 1 {
				confidence = 1
			}
		}

		matches = append(matches, Match{
			Type:       d.entity,
			Value:      value,
			Start:      start,
			End:        end,
			Confidence: confidence,
			Detector:   d.name,
		})
	}
	return matches
}
