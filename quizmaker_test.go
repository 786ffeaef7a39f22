package quizcoach

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestGenerateQuizEndToEnd(t *testing.T) {
	gen := &fakeGenerator{responses: []fakeResponse{
		{text: "```json\n" + envelopeJSON(5) + "\n```"},
	}}
	qm := NewQuizMaker(gen)

	quiz, err := qm.GenerateQuiz(context.Background(), "Budgeting", UserContext{DisplayName: "Alice"}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if quiz.TotalQuestions != 5 || len(quiz.Questions) != 5 {
		t.Fatalf("expected 5 questions, got %d/%d", quiz.TotalQuestions, len(quiz.Questions))
	}
	if quiz.Questions[0].Text != "Q1" {
		t.Fatalf("unexpected first question: %q", quiz.Questions[0].Text)
	}
	if quiz.Title != "Budgeting" {
		t.Fatalf("title should come from the envelope, got %q", quiz.Title)
	}
	if quiz.Concept != "Budgeting" {
		t.Fatalf("unexpected concept: %q", quiz.Concept)
	}
	if gen.callCount() != 1 {
		t.Fatalf("a clean response must not be retried, got %d calls", gen.callCount())
	}
}

func TestGenerateQuizTitleFallback(t *testing.T) {
	payload := `{"questions":[` + questionJSON(1) + "," + questionJSON(2) + "," + questionJSON(3) + `]}`
	gen := &fakeGenerator{responses: []fakeResponse{{text: payload}}}
	qm := NewQuizMaker(gen)

	quiz, err := qm.GenerateQuiz(context.Background(), "Emergency Funds", UserContext{}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if quiz.Title != "Emergency Funds Quiz" {
		t.Fatalf("expected synthesized title, got %q", quiz.Title)
	}
	if quiz.Description == "" {
		t.Fatalf("expected synthesized description")
	}
}

func TestGenerateQuizRetriesTruncatedResponse(t *testing.T) {
	gen := &fakeGenerator{responses: []fakeResponse{
		{text: `{"title":"Budgeting","questions":[{"question":"Q1","opt`},
		{text: envelopeJSON(5)},
	}}
	qm := NewQuizMaker(gen)

	quiz, err := qm.GenerateQuiz(context.Background(), "Budgeting", UserContext{}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gen.callCount() != 2 {
		t.Fatalf("expected a single retry, got %d calls", gen.callCount())
	}
	if len(quiz.Questions) != 5 {
		t.Fatalf("expected the retried response to be used, got %d questions", len(quiz.Questions))
	}
}

func TestGenerateQuizPartialExtraction(t *testing.T) {
	raw := `{"title":"t","description":"d","questions":[` +
		questionJSON(1) + "," + questionJSON(2) + "," + questionJSON(3) +
		`,{"question":"Q4","options":["a","b","c","d"],"correctAnswer"`
	// Same truncated text twice: the retry fires (no trailing brace) and the
	// recovery pipeline still has to make do with what came back.
	gen := &fakeGenerator{responses: []fakeResponse{{text: raw}, {text: raw}}}
	qm := NewQuizMaker(gen)

	quiz, err := qm.GenerateQuiz(context.Background(), "Budgeting", UserContext{}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(quiz.Questions) != 3 {
		t.Fatalf("expected 3 extracted questions, got %d", len(quiz.Questions))
	}
	if quiz.TotalQuestions != 3 {
		t.Fatalf("total must match the surviving questions, got %d", quiz.TotalQuestions)
	}
}

func TestGenerateQuizUnparsableResponse(t *testing.T) {
	gen := &fakeGenerator{responses: []fakeResponse{
		{text: "I'm sorry, I can't produce JSON right now."},
		{text: "I'm sorry, I can't produce JSON right now."},
	}}
	qm := NewQuizMaker(gen)

	_, err := qm.GenerateQuiz(context.Background(), "Budgeting", UserContext{}, nil)
	if !errors.Is(err, ErrUnparsableResponse) {
		t.Fatalf("expected ErrUnparsableResponse, got %v", err)
	}
}

func TestGenerateQuizInsufficientQuestions(t *testing.T) {
	payload := `{"title":"t","description":"d","questions":[` + questionJSON(1) + "," + questionJSON(2) + `]}`
	gen := &fakeGenerator{responses: []fakeResponse{{text: payload}}}
	qm := NewQuizMaker(gen)

	_, err := qm.GenerateQuiz(context.Background(), "Budgeting", UserContext{}, nil)
	if !errors.Is(err, ErrInsufficientQuestions) {
		t.Fatalf("expected ErrInsufficientQuestions, got %v", err)
	}
}

func TestBuildPromptIncludesContext(t *testing.T) {
	qm := NewQuizMaker(&fakeGenerator{})
	user := UserContext{
		DisplayName:     "Alice",
		FinancialGoals:  []string{"pay off credit card"},
		SpendingSummary: "mostly dining out",
	}
	prompt := qm.buildPrompt("Budgeting", user, []string{"What is a budget?"})

	for _, want := range []string{
		"Budgeting",
		"Alice",
		"pay off credit card",
		"mostly dining out",
		"What is a budget?",
		"correctAnswer",
	} {
		if !strings.Contains(prompt, want) {
			t.Fatalf("prompt missing %q:\n%s", want, prompt)
		}
	}
}
