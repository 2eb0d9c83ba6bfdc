package service

import (
	"fmt"
	"math"
	"regexp"
	"strings"

	"github.com/kartikasari/ujianku/internal/model"
)

// GradeResult is the outcome of grading one answer against its question.
type GradeResult struct {
	Points               float64
	IsCorrect            bool
	Method               string
	RequiresManualReview bool
	Detail               map[string]interface{}
}

// matchingPairRe accepts "A1-B2" style pairs: one uppercase letter plus
// digits on each side of the hyphen.
var matchingPairRe = regexp.MustCompile(`^([A-Z][0-9]+)-([A-Z][0-9]+)$`)

// GradeAnswer dispatches to the type-specific grading rule. An unknown
// question type yields a zero-point result with an error marker instead of
// aborting the surrounding grading pass.
func GradeAnswer(question model.Question, value string) GradeResult {
	switch question.Type {
	case model.QuestionSingleChoice:
		return gradeSingleChoice(question, value)
	case model.QuestionTrueFalse:
		return gradeTrueFalse(question, value)
	case model.QuestionFillBlank:
		return gradeFillBlank(question, value)
	case model.QuestionFreeText:
		return gradeFreeText(question, value)
	case model.QuestionMatching:
		return gradeMatching(question, value)
	default:
		return GradeResult{
			Method: "unsupported_type",
			Detail: map[string]interface{}{
				"error": fmt.Sprintf("no grading rule for question type %q", question.Type),
			},
		}
	}
}

func gradeSingleChoice(q model.Question, value string) GradeResult {
	submitted := strings.TrimSpace(value)
	correct := strings.TrimSpace(q.CorrectAnswer)
	isCorrect := correct != "" && strings.EqualFold(submitted, correct)

	res := GradeResult{
		IsCorrect: isCorrect,
		Method:    "single_choice_exact",
		Detail: map[string]interface{}{
			"submitted_key": submitted,
			"correct_key":   correct,
		},
	}
	if isCorrect {
		res.Points = q.Points
	}
	return res
}

func gradeTrueFalse(q model.Question, value string) GradeResult {
	submitted := parseLenientBool(value)
	correct := parseLenientBool(q.CorrectAnswer)
	isCorrect := submitted != nil && correct != nil && *submitted == *correct

	res := GradeResult{
		IsCorrect: isCorrect,
		Method:    "true_false_boolean",
		Detail: map[string]interface{}{
			"submitted_value": boolDetail(submitted),
			"correct_value":   boolDetail(correct),
		},
	}
	if isCorrect {
		res.Points = q.Points
	}
	return res
}

func gradeFillBlank(q model.Question, value string) GradeResult {
	submitted := normalizeText(value)
	correct := normalizeText(q.CorrectAnswer)
	isCorrect := correct != "" && submitted == correct

	res := GradeResult{
		IsCorrect: isCorrect,
		Method:    "fill_blank_normalized",
		Detail: map[string]interface{}{
			"normalized_submitted": submitted,
			"normalized_correct":   correct,
		},
	}
	if isCorrect {
		res.Points = q.Points
	}
	return res
}

// gradeFreeText never auto-scores. It records zero points with a manual
// review flag and word/character counts for grader context.
func gradeFreeText(_ model.Question, value string) GradeResult {
	trimmed := strings.TrimSpace(value)
	words := 0
	if trimmed != "" {
		words = len(strings.Fields(trimmed))
	}
	return GradeResult{
		Method:               "manual_review_required",
		RequiresManualReview: true,
		Detail: map[string]interface{}{
			"word_count":      words,
			"character_count": len(trimmed),
		},
	}
}

func gradeMatching(q model.Question, value string) GradeResult {
	correctPairs := parseMatchingPairs(q.CorrectAnswer)
	submittedPairs := parseMatchingPairs(value)

	correctSet := make(map[string]bool, len(correctPairs))
	for _, p := range correctPairs {
		correctSet[p] = true
	}

	correctMatches := 0
	seen := make(map[string]bool, len(submittedPairs))
	for _, p := range submittedPairs {
		if seen[p] {
			continue
		}
		seen[p] = true
		if correctSet[p] {
			correctMatches++
		}
	}

	res := GradeResult{
		Method: "matching_pairwise",
		Detail: map[string]interface{}{
			"submitted_pairs":     submittedPairs,
			"correct_pairs":       correctPairs,
			"correct_matches":     correctMatches,
			"total_correct_pairs": len(correctPairs),
		},
	}
	if len(correctPairs) == 0 {
		res.Detail["error"] = "question has no parseable correct pairs"
		return res
	}

	if len(submittedPairs) == len(correctPairs) && correctMatches == len(correctPairs) {
		res.IsCorrect = true
		res.Points = q.Points
		return res
	}

	// Partial credit, rounded to the nearest whole point.
	res.Points = math.Round(float64(correctMatches) / float64(len(correctPairs)) * q.Points)
	res.Detail["partial_credit"] = res.Points
	return res
}

// parseMatchingPairs parses a comma-separated "A1-B2" list, dropping
// anything that does not match the pair shape.
func parseMatchingPairs(raw string) []string {
	parts := strings.Split(raw, ",")
	pairs := make([]string, 0, len(parts))
	for _, part := range parts {
		p := strings.ToUpper(strings.TrimSpace(part))
		if matchingPairRe.MatchString(p) {
			pairs = append(pairs, p)
		}
	}
	return pairs
}

// parseLenientBool accepts common true/false spellings, including the
// Indonesian benar/salah used in source material. Unparsable input is nil.
func parseLenientBool(raw string) *bool {
	v := strings.ToLower(strings.TrimSpace(raw))
	t, f := true, false
	switch v {
	case "true", "t", "1", "yes", "y", "benar":
		return &t
	case "false", "f", "0", "no", "n", "salah":
		return &f
	default:
		return nil
	}
}

// normalizeText lower-cases, trims, and collapses internal whitespace runs
// to a single space.
func normalizeText(raw string) string {
	return strings.Join(strings.Fields(strings.ToLower(raw)), " ")
}

// PercentageScore computes round(total / maxScore * 100, 2); zero when the
// exam max is zero.
func PercentageScore(total, maxScore float64) float64 {
	if maxScore == 0 {
		return 0
	}
	return roundTo(total/maxScore*100, 2)
}

func roundTo(v float64, places int) float64 {
	factor := math.Pow(10, float64(places))
	return math.Round(v*factor) / factor
}

func boolDetail(b *bool) interface{} {
	if b == nil {
		return nil
	}
	return *b
}
