package engine

import (
	"testing"
)

func TestSnapWordBounds(t *testing.T) {
	t.Run("WidensToTokenEdges", func(t *testing.T) {
		text := "abc12345def end"
		// A hit in the middle of the first token must widen to the whole token.
		start, end := snapWordBounds(text, 3, 8)
		if start != 0 || end != 11 {
			t.Errorf("snapWordBounds = [%d,%d), want [0,11)", start, end)
		}
	})

	t.Run("NeverNarrows", func(t *testing.T) {
		text := "one two three"
		start, end := snapWordBounds(text, 4, 7)
		if start != 4 || end != 7 {
			t.Errorf("snapWordBounds moved an already-aligned span to [%d,%d)", start, end)
		}
	})

	t.Run("MultibyteNeighbors", func(t *testing.T) {
		text := "Müller spoke"
		// Span starting after the two-byte ü must widen back over it.
		start, end := snapWordBounds(text, 3, 7)
		if start != 0 || end != 7 {
			t.Errorf("snapWordBounds = [%d,%d), want [0,7)", start, end)
		}
		if text[start:end] != "Müller" {
			t.Errorf("snapped value = %q", text[start:end])
		}
	})

	t.Run("TextEdges", func(t *testing.T) {
		text := "abc"
		start, end := snapWordBounds(text, 1, 2)
		if start != 0 || end != 3 {
			t.Errorf("snapWordBounds = [%d,%d), want [0,3)", start, end)
		}
	})
}

func TestNormalize(t *testing.T) {
	t.Run("IdentityForNormalInput", func(t *testing.T) {
		n := normalize("plain ascii text")
		if !n.identity {
			t.Error("already-normalized input should take the identity path")
		}
		start, end := n.Span(6, 11)
		if start != 6 || end != 11 {
			t.Errorf("identity Span = [%d,%d), want [6,11)", start, end)
		}
	})

	t.Run("ComposesDecomposedInput", func(t *testing.T) {
		// "Émile" with E + combining acute (U+0301) instead of É.
		decomposed := "Émile wrote"
		n := normalize(decomposed)
		if n.identity {
			t.Fatal("decomposed input should not take the identity path")
		}
		if n.Text != "Émile wrote" {
			t.Errorf("normalized text = %q", n.Text)
		}
	})

	t.Run("SpansMapBackToOriginal", func(t *testing.T) {
		decomposed := "Émile wrote"
		n := normalize(decomposed)

		// "Émile" is bytes [0,6) in normalized form (É is two bytes) and
		// [0,7) in the original (E + two-byte combining mark + mile).
		start, end := n.Span(0, 6)
		if start != 0 || end != 7 {
			t.Errorf("Span(0,6) = [%d,%d), want [0,7)", start, end)
		}
		if decomposed[start:end] != "Émile" {
			t.Errorf("mapped value = %q", decomposed[start:end])
		}

		// The unchanged tail maps one-to-one.
		start, end = n.Span(7, 12)
		if start != 8 || end != 13 {
			t.Errorf("Span(7,12) = [%d,%d), want [8,13)", start, end)
		}
		if decomposed[start:end] != "wrote" {
			t.Errorf("mapped tail = %q", decomposed[start:end])
		}
	})
}

func TestHasContext(t *testing.T) {
	text := "Her passport number is 123456789 according to the record."
	pos := 23

	if !hasContext(text, pos, []string{"passport"}) {
		t.Error("context word inside the window not found")
	}
	if hasContext(text, pos, []string{"driving licence"}) {
		t.Error("absent context word reported as found")
	}
	if hasContext(text, pos, nil) {
		t.Error("empty word list should never match")
	}

	// Case-insensitive.
	if !hasContext("PASSPORT: 123456789", 10, []string{"passport"}) {
		t.Error("context matching should ignore case")
	}
}

func TestPatternDetectorContextGate(t *testing.T) {
	cfg := DefaultConfig()
	eng := mustEngine(t, cfg)

	t.Run("MatchWithContext", func(t *testing.T) {
		result := eng.Anonymize("Her passport 123456789 was renewed.")
		if got := result.Summary[EntityPassport]; got != 1 {
			t.Fatalf("PASSPORT summary = %d, want 1", got)
		}
	})

	t.Run("NoMatchWithoutContext", func(t *testing.T) {
		result := eng.Anonymize("Reference 123456789 was filed.")
		if got := result.Summary[EntityPassport]; got != 0 {
			t.Fatalf("PASSPORT summary = %d, want 0 without a context word", got)
		}
	})
}

func TestPatternDetectorContextBoost(t *testing.T) {
	cfg := DefaultConfig()
	eng := mustEngine(t, cfg)

	t.Run("BoostApplied", func(t *testing.T) {
		result := eng.Anonymize("The sort code 12-34-56 is on the statement.")
		if len(result.Matches) != 1 {
			t.Fatalf("matches = %d, want 1", len(result.Matches))
		}
		m := result.Matches[0]
		if m.Type != EntitySortCode {
			t.Fatalf("match type = %s", m.Type)
		}
		// 0.85 base plus 0.35 boost, capped at 1.0.
		if m.Confidence != 1.0 {
			t.Errorf("confidence = %v, want 1.0 after capped boost", m.Confidence)
		}
	})

	t.Run("BaseConfidenceWithoutContext", func(t *testing.T) {
		result := eng.Anonymize("Use 12-34-56 for the transfer.")
		if len(result.Matches) != 1 {
			t.Fatalf("matches = %d, want 1", len(result.Matches))
		}
		if got := result.Matches[0].Confidence; got != 0.85 {
			t.Errorf("confidence = %v, want base 0.85", got)
		}
	})
}
