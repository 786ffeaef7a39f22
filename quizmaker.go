package quizcoach

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"strings"
	"time"
)

// QuizMaker turns a financial concept into a validated quiz: one generation
// call (retried when the response looks truncated), fence stripping, tiered
// JSON recovery, schema validation, and final assembly.
type QuizMaker struct {
	gen    TextGenerator
	logger *LLMLogger
}

// NewQuizMaker creates a quiz maker on top of a text-generation capability.
func NewQuizMaker(gen TextGenerator) *QuizMaker {
	return &QuizMaker{gen: gen}
}

// SetLogger attaches a per-request LLM logger.
func (qm *QuizMaker) SetLogger(logger *LLMLogger) {
	qm.logger = logger
}

// GenerateQuiz generates and validates a quiz for one concept. The
// alreadyUsed question texts are folded into the prompt as advisory context
// to reduce repetition; the authoritative defense is the fingerprint dedup
// run across the whole batch afterwards.
func (qm *QuizMaker) GenerateQuiz(ctx context.Context, concept string, user UserContext, alreadyUsed []string) (*Quiz, error) {
	log.Printf("Generating quiz for concept: %s", concept)

	prompt := qm.buildPrompt(concept, user, alreadyUsed)
	if qm.logger != nil {
		qm.logger.LogLLMRequest("QuizMaker", prompt)
	}

	raw, err := generateWithRetry(ctx, qm.gen, prompt, GenerateOptions{
		Temperature: 0.7,
		MaxTokens:   2048,
	})
	if err != nil {
		return nil, fmt.Errorf("quiz generation for %q: %w", concept, err)
	}
	if qm.logger != nil {
		qm.logger.LogLLMResponse("QuizMaker", raw)
	}

	env, tier, err := recoverEnvelope(stripFences(raw))
	if err != nil {
		return nil, fmt.Errorf("quiz generation for %q: %w", concept, err)
	}
	if qm.logger != nil {
		qm.logger.LogRecovery(concept, tier, len(env.Questions))
	}
	if tier != TierDirect {
		VerboseLog("Recovered response for %q via %s tier", concept, tier)
	}

	questions, err := validateQuestions(env, concept)
	if err != nil {
		return nil, fmt.Errorf("quiz generation for %q: %w", concept, err)
	}

	return assembleQuiz(concept, env, questions), nil
}

// assembleQuiz builds the final entity. Title and description fall back to
// strings derived from the concept when the envelope didn't supply them;
// the question total always comes from the final collection.
func assembleQuiz(concept string, env *quizEnvelope, questions []Question) *Quiz {
	title := strings.TrimSpace(env.Title)
	if title == "" {
		title = fmt.Sprintf("%s Quiz", concept)
	}
	description := strings.TrimSpace(env.Description)
	if description == "" {
		description = fmt.Sprintf("Test your knowledge of %s.", concept)
	}
	return &Quiz{
		ID:             generateQuizID(),
		Concept:        concept,
		Title:          title,
		Description:    description,
		Questions:      questions,
		TotalQuestions: len(questions),
		CreatedAt:      time.Now(),
	}
}

func (qm *QuizMaker) buildPrompt(concept string, user UserContext, alreadyUsed []string) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("Generate %d multiple choice questions about the personal-finance concept: %s\n\n", TargetQuizQuestions, concept))

	if user.DisplayName != "" {
		sb.WriteString(fmt.Sprintf("Personalize the questions for %s.\n", user.DisplayName))
	}
	if user.SpendingSummary != "" {
		sb.WriteString("Recent spending summary:\n")
		sb.WriteString(user.SpendingSummary)
		sb.WriteString("\n")
	}
	if len(user.FinancialGoals) > 0 {
		sb.WriteString("Financial goals:\n")
		for _, goal := range user.FinancialGoals {
			sb.WriteString(fmt.Sprintf("- %s\n", goal))
		}
	}
	sb.WriteString("\n")

	if len(alreadyUsed) > 0 {
		sb.WriteString("Do NOT repeat any of these previously asked questions:\n")
		for _, q := range alreadyUsed {
			sb.WriteString(fmt.Sprintf("- %s\n", q))
		}
		sb.WriteString("\n")
	}

	sb.WriteString("Requirements:\n")
	sb.WriteString("- Each question must have exactly 4 multiple choice options\n")
	sb.WriteString("- correctAnswer is the 0-based index of the right option\n")
	sb.WriteString("- Provide a brief explanation for why the correct answer is right\n")
	sb.WriteString("- Questions should test understanding, not just memorization\n\n")

	sb.WriteString("Respond with ONLY a JSON object in this exact shape, no markdown, no surrounding text:\n")
	sb.WriteString(`{"title":"...","description":"...","questions":[{"question":"...","options":["...","...","...","..."],"correctAnswer":0,"explanation":"..."}]}`)
	sb.WriteString("\n")

	return sb.String()
}

func generateQuizID() string {
	const charset = "abcdefghijklmnopqrstuvwxyz0123456789"
	b := make([]byte, 12)
	for i := range b {
		b[i] = charset[rand.Intn(len(charset))]
	}
	return string(b)
}
