package engine

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/cloakd/cloakd/internal/dictionary"
)

// Name detection is dictionary-backed: capitalization alone is far too
// noisy, so a candidate has to line up with a known first name, surname or
// organization before it becomes a match. Confidence is accordingly lower
// than for the structured identifier detectors.

var (
	reCapPair   = regexp.MustCompile(`\b[A-ZÀ-ÖØ-Þ][a-zà-öø-ÿ']+(?:\s+[A-ZÀ-ÖØ-Þ][a-zà-öø-ÿ']+){1,2}\b`)
	reCapSingle = regexp.MustCompile(`\b[A-ZÀ-ÖØ-Þ][a-zà-öø-ÿ']+\b`)
	reOrgSuffix = regexp.MustCompile(`\b[A-Z][A-Za-z&'-]+(?:\s+[A-Z][A-Za-z&'-]+){0,3}\s+(?:Ltd|Limited|PLC|LLP|Inc|Corp|Corporation|Group|Holdings|Partners|Associates)\b`)
)

// personDetector finds multi-word capitalized runs where the first token
// is a known first name or the last token a known surname.
type personDetector struct {
	dict       *dictionary.Dictionary
	confidence float64
}

func (d *personDetector) Type() EntityType { return EntityPerson }
func (d *personDetector) Name() string     { return "person_dictionary" }

func (d *personDetector) Detect(text string) []Match {
	n := normalize(text)

	var matches []Match
	for _, loc := range reCapPair.FindAllStringIndex(n.Text, -1) {
		candidate := n.Text[loc[0]:loc[1]]
		words := fieldSpans(candidate)
		if len(words) < 2 {
			continue
		}
		// Sentence-leading words get swept into the capitalized run
		// ("Contact Jane Doe"); shed them while they are not known
		// given names and at least two words remain.
		for len(words) > 2 && !d.dict.IsFirstName(candidate[words[0][0]:words[0][1]]) {
			words = words[1:]
		}
		first := candidate[words[0][0]:words[0][1]]
		last := candidate[words[len(words)-1][0]:words[len(words)-1][1]]
		if !d.dict.IsFirstName(first) && !d.dict.IsSurname(last) {
			continue
		}

		start, end := n.Span(loc[0]+words[0][0], loc[0]+words[len(words)-1][1])
		start, end = snapWordBounds(text, start, end)
		if start >= end || end > len(text) {
			continue
		}
		matches = append(matches, Match{
			Type:       EntityPerson,
			Value:      text[start:end],
			Start:      start,
			End:        end,
			Confidence: d.confidence,
			Detector:   d.Name(),
		})
	}
	return matches
}

// singleNameDetector finds lone capitalized tokens that are known first
// names. It overlaps with personDetector by construction; the resolver
// keeps the longer, higher-confidence person match.
type singleNameDetector struct {
	dict       *dictionary.Dictionary
	confidence float64
}

func (d *singleNameDetector) Type() EntityType { return EntitySingleName }
func (d *singleNameDetector) Name() string     { return "single_name_dictionary" }

func (d *singleNameDetector) Detect(text string) []Match {
	n := normalize(text)

	var matches []Match
	for _, loc := range reCapSingle.FindAllStringIndex(n.Text, -1) {
		if !d.dict.IsFirstName(n.Text[loc[0]:loc[1]]) {
			continue
		}
		start, end := n.Span(loc[0], loc[1])
		start, end = snapWordBounds(text, start, end)
		if start >= end || end > len(text) {
			continue
		}
		matches = append(matches, Match{
			Type:       EntitySingleName,
			Value:      text[start:end],
			Start:      start,
			End:        end,
			Confidence: d.confidence,
			Detector:   d.Name(),
		})
	}
	return matches
}

// orgDetector combines a legal-suffix heuristic (Acme Widgets Ltd) with
// exact dictionary lookups for organizations that carry no suffix.
type orgDetector struct {
	dict       *dictionary.Dictionary
	confidence float64
}

func (d *orgDetector) Type() EntityType { return EntityOrg }
func (d *orgDetector) Name() string     { return "org_dictionary" }

func (d *orgDetector) Detect(text string) []Match {
	n := normalize(text)

	var matches []Match
	emit := func(normStart, normEnd int) {
		start, end := n.Span(normStart, normEnd)
		start, end = snapWordBounds(text, start, end)
		if start >= end || end > len(text) {
			return
		}
		matches = append(matches, Match{
			Type:       EntityOrg,
			Value:      text[start:end],
			Start:      start,
			End:        end,
			Confidence: d.confidence,
			Detector:   d.Name(),
		})
	}

	for _, loc := range reOrgSuffix.FindAllStringIndex(n.Text, -1) {
		emit(loc[0], loc[1])
	}

	for _, org := range d.dict.Organizations() {
		for from := 0; ; {
			idx := strings.Index(n.Text[from:], org)
			if idx < 0 {
				break
			}
			start := from + idx
			end := start + len(org)
			if wholeToken(n.Text, start, end) {
				emit(start, end)
			}
			from = end
		}
	}

	return matches
}

// fieldSpans returns the [start,end) byte spans of whitespace-separated
// fields in s, in order.
func fieldSpans(s string) [][2]int {
	var spans [][2]int
	start := -1
	for i, r := range s {
		if r == ' ' || r == '\t' || r == '\n' || r == '\r' {
			if start >= 0 {
				spans = append(spans, [2]int{start, i})
				start = -1
			}
			continue
		}
		if start < 0 {
			start = i
		}
	}
	if start >= 0 {
		spans = append(spans, [2]int{start, len(s)})
	}
	return spans
}

// wholeToken reports whether [start,end) is not embedded in a longer word.
func wholeToken(text string, start, end int) bool {
	if start > 0 {
		if r, _ := utf8.DecodeLastRuneInString(text[:start]); isWordChar(r) {
			return false
		}
	}
	if end < len(text) {
		if r, _ := utf8.DecodeRuneInString(text[end:]); isWordChar(r) {
			return false
		}
	}
	return true
}
