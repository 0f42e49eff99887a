package textmatch

import "testing"

func TestNormalize(t *testing.T) {
	tests := map[string]string{
		"  Grilled   Chicken-Breast ": "grilled chicken breast",
		"Mac & Cheese!":               "mac cheese",
		"":                            "",
	}
	for in, want := range tests {
		if got := Normalize(in); got != want {
			t.Errorf("Normalize(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestTokenEqual(t *testing.T) {
	tests := []struct {
		a, b string
		want bool
	}{
		{"apple", "apple", true},
		{"apples", "apple", true},
		{"banana", "bananas", true},
		{"egg", "eggs", false},
		{"rice", "mice", false},
		{"chicken", "kitchen", false},
	}
	for _, tt := range tests {
		if got := TokenEqual(tt.a, tt.b); got != tt.want {
			t.Errorf("TokenEqual(%q, %q) = %v, want %v", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestMatch(t *testing.T) {
	tests := []struct {
		query, candidate string
		want             MatchKind
	}{
		{"Chicken Breast", "chicken breast", ExactPhrase},
		{"grilled chicken breast", "chicken breast", Substring},
		{"rice", "fried rice", Substring},
		{"bananas sliced", "banana", TokenOverlap},
		{"pizza", "salad", NoMatch},
		{"", "salad", NoMatch},
	}
	for _, tt := range tests {
		if got := Match(tt.query, tt.candidate); got != tt.want {
			t.Errorf("Match(%q, %q) = %v, want %v", tt.query, tt.candidate, got, tt.want)
		}
	}
}

func TestContainsPhraseRespectsWordBoundaries(t *testing.T) {
	if ContainsPhrase("pineapple juice", "apple") {
		t.Error("apple should not match inside pineapple")
	}
	if !ContainsPhrase("green apple slices", "apple") {
		t.Error("apple should match as a whole word")
	}
}

func TestSharedTokens(t *testing.T) {
	got := SharedTokens(Tokens("brown rice bowl"), Tokens("rice, brown, long-grain"))
	if got != 2 {
		t.Errorf("SharedTokens = %d, want 2", got)
	}
}

func TestBest(t *testing.T) {
	names := []string{"green salad", "green beans", "chicken", "chicken breast", "rice"}
	tests := []struct {
		query string
		want  int
	}{
		{"Chicken", 2},
		{"grilled chicken breast", 3},
		{"fried rice", 4},
		{"beans green", 1},
		{"green stuff", 0},
		{"cake", -1},
		{"", -1},
	}
	for _, tt := range tests {
		if got := Best(tt.query, names); got != tt.want {
			t.Errorf("Best(%q) = %d, want %d", tt.query, got, tt.want)
		}
	}
}
