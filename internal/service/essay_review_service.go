package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"github.com/kartikasari/ujianku/config"
	"github.com/kartikasari/ujianku/internal/model"
	"github.com/rs/zerolog/log"
	"google.golang.org/api/option"
)

// EssayReviewService drafts a suggested critique of a free-text answer for
// the human grader. The suggestion is advisory text only: essays are never
// auto-scored, and the service assigns no points.
type EssayReviewService interface {
	SuggestReview(ctx context.Context, question *model.Question, answer string) (string, error)
}

type essayReviewService struct {
	client *genai.GenerativeModel
	cfg    *config.Config
}

func NewEssayReviewService(cfg *config.Config) (EssayReviewService, error) {
	if cfg.GeminiApiKey == "" {
		log.Warn().Msg("GEMINI_API_KEY is not set. EssayReviewService will be non-functional.")
		return &essayReviewService{cfg: cfg, client: nil}, nil
	}
	ctx := context.Background()
	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.GeminiApiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Gemini client: %w", err)
	}
	model := client.GenerativeModel("gemini-1.5-flash")
	return &essayReviewService{client: model, cfg: cfg}, nil
}

func (s *essayReviewService) SuggestReview(ctx context.Context, question *model.Question, answer string) (string, error) {
	if s.client == nil {
		return "", fmt.Errorf("essay review assistant is not configured")
	}
	if question.Type != model.QuestionFreeText {
		return "", fmt.Errorf("question %d is not a free-text question: %w", question.ID, ErrValidation)
	}
	if strings.TrimSpace(answer) == "" {
		return "", fmt.Errorf("answer is empty: %w", ErrValidation)
	}

	prompt := fmt.Sprintf(
		`You are assisting a teacher who is grading a student's essay answer.
Write a short review (3-5 sentences) of the answer below: note its strengths,
weaknesses, and factual problems. Do NOT assign a score or a grade of any
kind; the teacher decides the points.

Question:
%s

Student answer:
%s`, question.Text, answer)

	resp, err := s.client.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		log.Error().Err(err).Uint("questionID", question.ID).Msg("SuggestReview: Gemini request failed")
		return "", fmt.Errorf("generate review suggestion: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", fmt.Errorf("empty response from review model")
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			sb.WriteString(string(text))
		}
	}
	return strings.TrimSpace(sb.String()), nil
}
