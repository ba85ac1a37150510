package engine

import "sort"

// resolve reduces the union of all detectors' candidates to a final,
// strictly ordered, non-overlapping match list ready for a single
// left-to-right rewrite.
//
// Candidates are sorted by start ascending; for equal starts the higher
// confidence wins, then the longer span, then the earlier detector in
// registration order (candidates arrive in registration order, and the
// sort is stable, so no extra key is needed). The sorted sequence is then
// walked, rejecting any candidate whose span overlaps an accepted match.
func resolve(candidates []Match) []Match {
	if len(candidates) == 0 {
		return nil
	}

	sorted := make([]Match, len(candidates))
	copy(sorted, candidates)

	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if a.Start != b.Start {
			return a.Start < b.Start
		}
		if a.Confidence != b.Confidence {
			return a.Confidence > b.Confidence
		}
		return a.End-a.Start > b.End-b.Start
	})

	accepted := sorted[:0:0]
	lastEnd := -1
	for _, m := range sorted {
		if m.Start < lastEnd {
			continue
		}
		accepted = append(accepted, m)
		lastEnd = m.End
	}
	return accepted
}
