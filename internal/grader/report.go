package grader

import (
	"fmt"
	"math"

	"github.com/andrewy1n/platypus-academy/internal/model"
)

// ReportItem is one graded question fed to BuildReport
type ReportItem struct {
	QuestionID string
	Type       model.QuestionType
	Points     int
	Result     model.GradeResult
}

// EarnedPoints converts a result into whole points on a question worth points.
func EarnedPoints(r model.GradeResult, points int) int {
	return int(math.Floor(r.Fraction() * float64(points)))
}

// BuildReport aggregates graded questions. Types whose accuracy falls under
// weakThreshold percent are flagged.
func BuildReport(items []ReportItem, weakThreshold float64) model.SessionReport {
	report := model.SessionReport{
		Improvements: []string{},
		TypeAccuracy: map[model.QuestionType]model.TypeAccuracy{},
		Questions:    make([]model.GradedQuestion, 0, len(items)),
	}

	var typeOrder []model.QuestionType
	correct := 0
	for _, it := range items {
		earned := EarnedPoints(it.Result, it.Points)
		report.TotalPoints += it.Points
		report.PointsEarned += earned
		if it.Result.IsCorrect {
			correct++
		}

		acc, seen := report.TypeAccuracy[it.Type]
		if !seen {
			typeOrder = append(typeOrder, it.Type)
		}
		acc.Total++
		if it.Result.IsCorrect {
			acc.Correct++
		}
		report.TypeAccuracy[it.Type] = acc

		report.Questions = append(report.Questions, model.GradedQuestion{
			QuestionID:   it.QuestionID,
			Type:         it.Type,
			Points:       it.Points,
			PointsEarned: earned,
			IsCorrect:    it.Result.IsCorrect,
			Explanation:  it.Result.Explanation,
		})
	}

	if report.TotalPoints > 0 {
		report.Percentage = float64(report.PointsEarned) / float64(report.TotalPoints) * 100
	}
	report.Summary = fmt.Sprintf("Completed %d questions with %d correct answers. Scored %d/%d points (%.1f%%).",
		len(items), correct, report.PointsEarned, report.TotalPoints, report.Percentage)

	if report.Percentage < 70 {
		report.Improvements = append(report.Improvements, "Review fundamental concepts and practice more problems")
	}
	if report.Percentage < 50 {
		report.Improvements = append(report.Improvements, "Consider seeking additional help or tutoring")
	}

	for _, t := range typeOrder {
		acc := report.TypeAccuracy[t]
		acc.Percentage = float64(acc.Correct) / float64(acc.Total) * 100
		report.TypeAccuracy[t] = acc
		if acc.Percentage < weakThreshold {
			report.WeakTypes = append(report.WeakTypes, t)
			report.Improvements = append(report.Improvements,
				fmt.Sprintf("Focus on improving %s questions (scored %.1f%%)", t, acc.Percentage))
		}
	}
	return report
}
