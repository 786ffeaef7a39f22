package quizcoach

import "time"

// MinQuizQuestions is the minimum number of validated questions required to
// construct a usable quiz. TargetQuizQuestions is the count we ask the model
// for. The two are independently meaningful: a generation that yields fewer
// than the target but at least the minimum is degraded, not failed.
const (
	MinQuizQuestions    = 3
	TargetQuizQuestions = 5
)

// Question is a single validated multiple choice question. Immutable once
// produced by the validator.
type Question struct {
	Text          string   `json:"text"`
	Options       []string `json:"options"`        // exactly 4
	CorrectAnswer int      `json:"correct_answer"` // 0-based index
	Explanation   string   `json:"explanation"`
	Concept       string   `json:"concept,omitempty"`
}

// Quiz is a complete coaching quiz on one financial concept.
// TotalQuestions is always derived from len(Questions) at construction time.
type Quiz struct {
	ID             string     `json:"id"`
	Concept        string     `json:"concept"`
	Title          string     `json:"title"`
	Description    string     `json:"description"`
	Questions      []Question `json:"questions"`
	TotalQuestions int        `json:"total_questions"`
	CreatedAt      time.Time  `json:"created_at"`
}

// UserContext carries the personalization inputs for prompt building and for
// redacting the user's name during fingerprinting.
type UserContext struct {
	DisplayName     string   `json:"display_name"`
	FinancialGoals  []string `json:"financial_goals,omitempty"`
	SpendingSummary string   `json:"spending_summary,omitempty"`
}

// QuestionScore is the judge's verdict on one question.
type QuestionScore struct {
	Score           float64 `json:"score"`
	Relevance       float64 `json:"relevance"`
	Clarity         float64 `json:"clarity"`
	Correctness     float64 `json:"correctness"`
	Personalization float64 `json:"personalization"`
	Reasoning       string  `json:"reasoning"`
}

// QuizEvaluation aggregates per-question judge scores for one quiz. All
// scores are in [0,1].
type QuizEvaluation struct {
	OverallScore float64             `json:"overall_score"`
	PerQuestion  []QuestionScore     `json:"per_question"`
	Evaluation   EvaluationBreakdown `json:"evaluation"`
}

// EvaluationBreakdown is the averaged sub-metric view of an evaluation.
type EvaluationBreakdown struct {
	Relevance       float64 `json:"relevance"`
	Clarity         float64 `json:"clarity"`
	Correctness     float64 `json:"correctness"`
	Personalization float64 `json:"personalization"`
}
