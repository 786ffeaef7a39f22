package quizcoach

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
)

// neutralScore is substituted whenever a judge call fails or its output
// can't be decoded. Evaluation is advisory; it must never sink the quiz.
const neutralScore = 0.5

// QuizJudge scores validated quizzes with a second model call per question.
type QuizJudge struct {
	gen    TextGenerator
	logger *LLMLogger
}

// NewQuizJudge creates a judge on top of a text-generation capability.
func NewQuizJudge(gen TextGenerator) *QuizJudge {
	return &QuizJudge{gen: gen}
}

// SetLogger attaches a per-request LLM logger.
func (qj *QuizJudge) SetLogger(logger *LLMLogger) {
	qj.logger = logger
}

// EvaluateQuiz scores every question of the quiz concurrently and never
// fails: each evaluation is wrapped independently, so one bad judge call
// degrades that single question to neutral scores instead of aborting the
// batch.
func (qj *QuizJudge) EvaluateQuiz(ctx context.Context, quiz *Quiz, concept string, user UserContext) *QuizEvaluation {
	scores := make([]QuestionScore, len(quiz.Questions))

	var wg sync.WaitGroup
	for i, q := range quiz.Questions {
		wg.Add(1)
		go func(i int, q Question) {
			defer wg.Done()
			scores[i] = qj.evaluateQuestion(ctx, q, concept, user)
		}(i, q)
	}
	wg.Wait()

	return summarizeScores(scores)
}

func (qj *QuizJudge) evaluateQuestion(ctx context.Context, q Question, concept string, user UserContext) QuestionScore {
	prompt := buildJudgePrompt(q, concept, user)
	if qj.logger != nil {
		qj.logger.LogLLMRequest("QuizJudge", prompt)
	}

	raw, err := qj.gen.Generate(ctx, prompt, GenerateOptions{
		Temperature: 0.2,
		MaxTokens:   512,
	})
	if err != nil {
		VerboseLog("Judge call failed, using neutral scores: %v", err)
		return neutralQuestionScore()
	}
	if qj.logger != nil {
		qj.logger.LogLLMResponse("QuizJudge", raw)
	}

	return parseJudgeScore(raw)
}

// parseJudgeScore decodes a judge response. Missing, non-numeric or
// out-of-range fields degrade to the neutral score rather than rejecting
// the record.
func parseJudgeScore(raw string) QuestionScore {
	stripped := stripFences(raw)

	var candidate map[string]any
	if err := json.Unmarshal([]byte(stripped), &candidate); err != nil {
		repaired := repairTruncatedJSON(stripped, err)
		if json.Unmarshal([]byte(repaired), &candidate) != nil {
			VerboseLog("Judge response unparsable, using neutral scores")
			return neutralQuestionScore()
		}
	}

	reasoning, _ := candidate["reasoning"].(string)
	return QuestionScore{
		Score:           scoreField(candidate, "score"),
		Relevance:       scoreField(candidate, "relevance"),
		Clarity:         scoreField(candidate, "clarity"),
		Correctness:     scoreField(candidate, "correctness"),
		Personalization: scoreField(candidate, "personalization"),
		Reasoning:       reasoning,
	}
}

func scoreField(m map[string]any, key string) float64 {
	v, ok := m[key].(float64)
	if !ok || v < 0 || v > 1 {
		return neutralScore
	}
	return v
}

func neutralQuestionScore() QuestionScore {
	return QuestionScore{
		Score:           neutralScore,
		Relevance:       neutralScore,
		Clarity:         neutralScore,
		Correctness:     neutralScore,
		Personalization: neutralScore,
	}
}

// summarizeScores averages per-question results into the quiz-level view.
func summarizeScores(scores []QuestionScore) *QuizEvaluation {
	if len(scores) == 0 {
		return &QuizEvaluation{
			OverallScore: neutralScore,
			PerQuestion:  []QuestionScore{},
			Evaluation: EvaluationBreakdown{
				Relevance:       neutralScore,
				Clarity:         neutralScore,
				Correctness:     neutralScore,
				Personalization: neutralScore,
			},
		}
	}

	var eval QuizEvaluation
	eval.PerQuestion = scores
	for _, s := range scores {
		eval.OverallScore += s.Score
		eval.Evaluation.Relevance += s.Relevance
		eval.Evaluation.Clarity += s.Clarity
		eval.Evaluation.Correctness += s.Correctness
		eval.Evaluation.Personalization += s.Personalization
	}
	n := float64(len(scores))
	eval.OverallScore /= n
	eval.Evaluation.Relevance /= n
	eval.Evaluation.Clarity /= n
	eval.Evaluation.Correctness /= n
	eval.Evaluation.Personalization /= n
	return &eval
}

func buildJudgePrompt(q Question, concept string, user UserContext) string {
	var sb strings.Builder

	sb.WriteString("Evaluate this personal-finance quiz question.\n\n")
	sb.WriteString(fmt.Sprintf("Concept: %s\n", concept))
	if user.DisplayName != "" {
		sb.WriteString(fmt.Sprintf("Intended for user: %s\n", user.DisplayName))
	}
	sb.WriteString(fmt.Sprintf("\nQuestion: %s\n", q.Text))
	sb.WriteString("Options:\n")
	for i, option := range q.Options {
		marker := " "
		if i == q.CorrectAnswer {
			marker = "*"
		}
		sb.WriteString(fmt.Sprintf("%s%d. %s\n", marker, i+1, option))
	}
	sb.WriteString(fmt.Sprintf("Explanation: %s\n\n", q.Explanation))

	sb.WriteString("Score each dimension from 0 to 1.\n")
	sb.WriteString("Respond with ONLY a JSON object, no markdown, no surrounding text:\n")
	sb.WriteString(`{"score":0.0,"relevance":0.0,"clarity":0.0,"correctness":0.0,"personalization":0.0,"reasoning":"..."}`)
	sb.WriteString("\n")

	return sb.String()
}
