package grader

import (
	"math"
	"strings"
	"testing"
)

func TestSimilarityRatio(t *testing.T) {
	t.Parallel()

	cases := []struct {
		a, b string
		want float64
	}{
		{"", "", 1},
		{"abc", "", 0},
		{"abcd", "abcd", 1},
		{"abcd", "bcde", 0.75},
		{"tide", "diet", 0.25},
		{"photosynthesis", "photosynthesys", 2 * 13.0 / 28.0},
	}
	for _, tc := range cases {
		got := similarityRatio(tc.a, tc.b)
		if math.Abs(got-tc.want) > 1e-9 {
			t.Fatalf("similarityRatio(%q, %q) = %v, want %v", tc.a, tc.b, got, tc.want)
		}
	}
}

func TestSimilarityRatio_PopularRunes(t *testing.T) {
	t.Parallel()

	// x fills more than 1% of a 200 rune b, so only the y can seed a match
	a := "y" + strings.Repeat("x", 5)
	b := strings.Repeat("x", 199) + "y"
	if got, want := similarityRatio(a, b), 2.0/206.0; math.Abs(got-want) > 1e-9 {
		t.Fatalf("similarityRatio with popular runes = %v, want %v", got, want)
	}

	// one rune shorter and x is an ordinary rune again
	b = strings.Repeat("x", 198) + "y"
	if got, want := similarityRatio(a, b), 10.0/205.0; math.Abs(got-want) > 1e-9 {
		t.Fatalf("similarityRatio below the threshold = %v, want %v", got, want)
	}

	// popular runes still extend a match seeded elsewhere
	long := strings.Repeat("x", 150) + "abc" + strings.Repeat("x", 150)
	if got := similarityRatio(long, long); got != 1 {
		t.Fatalf("identical long strings = %v, want 1", got)
	}
}

func TestCredit(t *testing.T) {
	t.Parallel()

	cases := []struct {
		matched, total int
		want           float64
	}{
		{3, 4, 0.75},
		{0, 4, 0},
		{4, 4, 1},
		{5, 4, 1},
		{1, 0, 0},
	}
	for _, tc := range cases {
		if got := credit(tc.matched, tc.total); got != tc.want {
			t.Fatalf("credit(%d, %d) = %v, want %v", tc.matched, tc.total, got, tc.want)
		}
	}
}
