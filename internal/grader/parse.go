package grader

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/andrewy1n/platypus-academy/internal/model"
)

var (
	trueWords  = map[string]bool{"true": true, "t": true, "yes": true, "y": true, "1": true, "correct": true}
	falseWords = map[string]bool{"false": true, "f": true, "no": true, "n": true, "0": true, "incorrect": true}

	pairPattern = regexp.MustCompile(`\(([^)]+)\)`)
)

func parseBool(answer string) (bool, error) {
	s := strings.ToLower(strings.TrimSpace(answer))
	switch {
	case trueWords[s]:
		return true, nil
	case falseWords[s]:
		return false, nil
	}
	return false, fmt.Errorf("cannot parse boolean from %q", answer)
}

func parseNumber(answer string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(answer), 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%q is not a finite number", answer)
	}
	return v, nil
}

// parsePairs reads "(a,b),(c,d)" into ordered pairs.
func parsePairs(answer string) ([]model.Pair, error) {
	groups := pairPattern.FindAllStringSubmatch(answer, -1)
	if len(groups) == 0 {
		return nil, fmt.Errorf("no pairs found")
	}
	pairs := make([]model.Pair, 0, len(groups))
	for _, g := range groups {
		items := strings.Split(g[1], ",")
		if len(items) != 2 {
			return nil, fmt.Errorf("invalid pair format: %s", g[1])
		}
		pairs = append(pairs, model.Pair{
			Left:  strings.TrimSpace(items[0]),
			Right: strings.TrimSpace(items[1]),
		})
	}
	return pairs, nil
}

// parseSequence reads "a,b,c" into ordered tokens.
func parseSequence(answer string) ([]string, error) {
	parts := strings.Split(answer, ",")
	items := make([]string, 0, len(parts))
	for i, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			return nil, fmt.Errorf("empty item at position %d", i+1)
		}
		items = append(items, p)
	}
	return items, nil
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func formatPairs(pairs []model.Pair) string {
	parts := make([]string, len(pairs))
	for i, p := range pairs {
		parts[i] = "(" + p.Left + "," + p.Right + ")"
	}
	return strings.Join(parts, ",")
}

func formatSequence(items []string) string {
	return strings.Join(items, ",")
}
