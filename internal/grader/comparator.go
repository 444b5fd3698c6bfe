package grader

import (
	"fmt"
	"math"
	"strings"

	"github.com/andrewy1n/platypus-academy/internal/model"
)

const maxPoints = 1.0

func scored(correct bool, explanation, correctAnswer string) model.GradeResult {
	earned := 0.0
	if correct {
		earned = maxPoints
	}
	return model.GradeResult{
		IsCorrect:     correct,
		PointsEarned:  earned,
		MaxPoints:     maxPoints,
		Explanation:   explanation,
		CorrectAnswer: correctAnswer,
	}
}

func malformed(explanation, correctAnswer string) model.GradeResult {
	return scored(false, explanation, correctAnswer)
}

func explain(correctAnswer, given string, correct bool) string {
	out := "Correct answer: " + correctAnswer
	if !correct {
		out += "\nYour answer: " + given
	}
	return out
}

func sameText(a, b string) bool {
	return strings.ToLower(strings.TrimSpace(a)) == strings.ToLower(strings.TrimSpace(b))
}

func compareMultipleChoice(key model.MultipleChoice, answer string) model.GradeResult {
	ok := sameText(key.Answer, answer)
	return scored(ok, explain(key.Answer, answer, ok), key.Answer)
}

func compareTrueFalse(key model.TrueFalse, answer string) model.GradeResult {
	want := fmt.Sprint(key.Answer)
	got, err := parseBool(answer)
	if err != nil {
		return malformed(fmt.Sprintf("Invalid true/false answer: %s. Correct answer: %s", strings.TrimSpace(answer), want), want)
	}
	ok := got == key.Answer
	return scored(ok, explain(want, answer, ok), want)
}

func compareNumeric(key model.Numeric, answer string, relTolerance float64) model.GradeResult {
	want := formatNumber(key.Answer)
	got, err := parseNumber(answer)
	if err != nil {
		return malformed("Invalid numeric format. Correct answer: "+want, want)
	}

	tolerance := math.Abs(key.Answer) * relTolerance
	ok := math.Abs(got-key.Answer) <= tolerance
	out := "Correct answer: " + want
	if !ok {
		out += "\nYour answer: " + formatNumber(got)
		out += fmt.Sprintf("\nTolerance: ±%.4f", tolerance)
	}
	return scored(ok, out, want)
}

func compareFillBlank(key model.FillBlank, answer string) model.GradeResult {
	ok := sameText(key.Answer, answer)
	return scored(ok, explain(key.Answer, answer, ok), key.Answer)
}

func compareShortAnswer(key model.ShortAnswer, answer string, threshold float64) model.GradeResult {
	ratio := similarityRatio(
		strings.ToLower(strings.TrimSpace(key.Answer)),
		strings.ToLower(strings.TrimSpace(answer)),
	)
	ok := ratio >= threshold
	out := explain(key.Answer, answer, ok)
	if !ok {
		out += fmt.Sprintf("\nSimilarity: %.2f%%", ratio*100)
	}
	return scored(ok, out, key.Answer)
}

func compareMatching(key model.Matching, answer string) model.GradeResult {
	want := formatPairs(key.Answer)
	got, err := parsePairs(answer)
	if err != nil {
		return malformed(fmt.Sprintf("Invalid format: %v. Expected format: (item1,item2),(item3,item4)", err), want)
	}
	if len(got) != len(key.Answer) {
		return malformed(fmt.Sprintf("Number of pairs doesn't match. Expected %d, got %d", len(key.Answer), len(got)), want)
	}

	matched := 0
	for i := range got {
		if got[i] == key.Answer[i] {
			matched++
		}
	}
	result := scored(matched == len(key.Answer), "", want)
	result.PointsEarned = credit(matched, len(key.Answer)) * maxPoints

	out := fmt.Sprintf("Correct pairs: %d/%d\nCorrect answer: %s", matched, len(key.Answer), want)
	if !result.IsCorrect {
		out += "\nYour answer: " + formatPairs(got)
	}
	result.Explanation = out
	return result
}

func compareOrdering(key model.Ordering, answer string) model.GradeResult {
	want := formatSequence(key.Answer)
	got, err := parseSequence(answer)
	if err != nil {
		return malformed(fmt.Sprintf("Invalid format: %v. Expected format: item1,item2,item3", err), want)
	}
	if len(got) != len(key.Answer) {
		return malformed(fmt.Sprintf("Number of items doesn't match. Expected %d, got %d", len(key.Answer), len(got)), want)
	}

	ok := true
	for i := range got {
		if got[i] != key.Answer[i] {
			ok = false
			break
		}
	}
	out := "Correct order: " + want
	if !ok {
		out += "\nYour order: " + formatSequence(got)
	}
	return scored(ok, out, want)
}
