package quizcoach

import (
	"context"
	"fmt"
	"log"
)

const quizSystemPrompt = "You are an expert personal-finance coach. Generate high-quality multiple choice quiz questions with exactly 4 options each, personalized to the user's finances."

const judgeSystemPrompt = "You are an expert reviewer of personal-finance quiz questions. Score questions strictly and respond with valid JSON only."

// Coach orchestrates quiz generation and evaluation for one user-facing
// request: one quiz per identified financial concept, deduplicated across
// the batch.
type Coach struct {
	maker  *QuizMaker
	judge  *QuizJudge
	logger *LLMLogger
}

// NewCoach creates a coach backed by OpenAI for both generation and judging.
func NewCoach(apiKey string) *Coach {
	return &Coach{
		maker: NewQuizMaker(NewOpenAIGenerator(apiKey, quizSystemPrompt)),
		judge: NewQuizJudge(NewOpenAIGenerator(apiKey, judgeSystemPrompt)),
	}
}

// NewCoachWithGenerators wires in custom capabilities, for tests and for
// alternative providers.
func NewCoachWithGenerators(quizGen, judgeGen TextGenerator) *Coach {
	return &Coach{
		maker: NewQuizMaker(quizGen),
		judge: NewQuizJudge(judgeGen),
	}
}

// SetLogger attaches a per-request LLM logger to all components.
func (c *Coach) SetLogger(logger *LLMLogger) {
	c.logger = logger
	c.maker.SetLogger(logger)
	c.judge.SetLogger(logger)
}

// GenerateCoachingQuizzes generates one quiz per concept in order, feeding
// question texts of earlier quizzes into later prompts as advisory context,
// then runs the fingerprint dedup pass across the whole batch. Earlier
// quizzes win duplicate resolution. Any generation failure fails the whole
// request.
func (c *Coach) GenerateCoachingQuizzes(ctx context.Context, concepts []string, user UserContext) ([]*Quiz, error) {
	quizzes := make([]*Quiz, 0, len(concepts))
	var used []string

	for _, concept := range concepts {
		quiz, err := c.maker.GenerateQuiz(ctx, concept, user, used)
		if err != nil {
			return nil, err
		}
		for _, q := range quiz.Questions {
			used = append(used, q.Text)
		}
		quizzes = append(quizzes, quiz)
	}

	deduped := DedupQuizzes(quizzes, user.DisplayName)
	if c.logger != nil {
		for i, quiz := range deduped {
			c.logger.LogDedup(quiz.ID, len(quizzes[i].Questions), len(quiz.Questions))
		}
	}

	log.Printf("Generated %d quizzes for user %q", len(deduped), user.DisplayName)
	return deduped, nil
}

// EvaluateQuizzes scores each quiz with the judge. Evaluation is optional
// functionality: it never fails, and a broken judge degrades to neutral
// scores.
func (c *Coach) EvaluateQuizzes(ctx context.Context, quizzes []*Quiz, user UserContext) []*QuizEvaluation {
	evaluations := make([]*QuizEvaluation, len(quizzes))
	for i, quiz := range quizzes {
		evaluations[i] = c.judge.EvaluateQuiz(ctx, quiz, quiz.Concept, user)
		VerboseLog("Quiz %s evaluated: overall=%.2f", quiz.ID, evaluations[i].OverallScore)
	}
	return evaluations
}

// GenerateValidatedQuiz is the single-concept entry point.
func (c *Coach) GenerateValidatedQuiz(ctx context.Context, concept string, user UserContext, alreadyUsed []string) (*Quiz, error) {
	quiz, err := c.maker.GenerateQuiz(ctx, concept, user, alreadyUsed)
	if err != nil {
		return nil, fmt.Errorf("coaching quiz: %w", err)
	}
	return quiz, nil
}
