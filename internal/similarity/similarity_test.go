package similarity

import "testing"

func TestTokenOverlap_Identical(t *testing.T) {
	if got := TokenOverlap("read → edit → bash", "read → edit → bash"); got != 1 {
		t.Errorf("identical text should score 1, got %f", got)
	}
}

func TestTokenOverlap_IdenticalModuloWhitespace(t *testing.T) {
	if got := TokenOverlap("  read edit bash ", "read edit bash"); got != 1 {
		t.Errorf("trimmed-identical text should score 1, got %f", got)
	}
}

func TestTokenOverlap_Disjoint(t *testing.T) {
	if got := TokenOverlap("read edit bash", "grep test commit"); got != 0 {
		t.Errorf("disjoint text should score 0, got %f", got)
	}
}

func TestTokenOverlap_Partial(t *testing.T) {
	got := TokenOverlap("read edit bash", "read edit grep")
	if got <= 0 || got >= 1 {
		t.Fatalf("partial overlap should score between 0 and 1, got %f", got)
	}
	// 2 shared of 4 distinct tokens.
	if got != 0.5 {
		t.Errorf("expected 0.5, got %f", got)
	}
}

func TestTokenOverlap_CaseInsensitive(t *testing.T) {
	if got := TokenOverlap("Read Edit Bash", "read edit bash"); got != 1 {
		t.Errorf("case difference should not matter, got %f", got)
	}
}

func TestTokenOverlap_Empty(t *testing.T) {
	if got := TokenOverlap("", "read"); got != 0 {
		t.Errorf("empty text should score 0 against non-empty, got %f", got)
	}
	if got := TokenOverlap("", ""); got != 1 {
		t.Errorf("two empty strings are identical, got %f", got)
	}
}
