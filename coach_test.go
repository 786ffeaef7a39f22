package quizcoach

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
)

func marshalEnvelope(t *testing.T, title string, texts ...string) string {
	t.Helper()
	questions := make([]map[string]any, len(texts))
	for i, text := range texts {
		questions[i] = map[string]any{
			"question":      text,
			"options":       []string{"a", "b", "c", "d"},
			"correctAnswer": 0,
			"explanation":   "e",
		}
	}
	payload, err := json.Marshal(map[string]any{
		"title":       title,
		"description": "d",
		"questions":   questions,
	})
	if err != nil {
		t.Fatalf("failed to build test envelope: %v", err)
	}
	return string(payload)
}

func TestGenerateCoachingQuizzesDedupsAcrossConcepts(t *testing.T) {
	var (
		mu      sync.Mutex
		prompts []string
	)
	first := true
	gen := &fakeGenerator{}
	gen.respond = func(prompt string) (string, error) {
		mu.Lock()
		defer mu.Unlock()
		prompts = append(prompts, prompt)
		if first {
			first = false
			return marshalEnvelope(t, "Dining",
				"You spent $120 on dining",
				"What is a budget?",
				"How do credit scores work?",
			), nil
		}
		return marshalEnvelope(t, "Investing",
			"You spent $85 on dining", // cosmetic variant of the first quiz's question
			"What is an index fund?",
			"What is diversification?",
			"Why hold an emergency fund?",
		), nil
	}

	coach := NewCoachWithGenerators(gen, &fakeGenerator{})
	user := UserContext{DisplayName: "Alice"}

	quizzes, err := coach.GenerateCoachingQuizzes(context.Background(), []string{"dining", "investing"}, user)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(quizzes) != 2 {
		t.Fatalf("expected 2 quizzes, got %d", len(quizzes))
	}
	if len(quizzes[0].Questions) != 3 {
		t.Fatalf("first quiz should be untouched, got %d questions", len(quizzes[0].Questions))
	}
	if len(quizzes[1].Questions) != 3 {
		t.Fatalf("second quiz should lose the duplicate, got %d questions", len(quizzes[1].Questions))
	}
	for _, q := range quizzes[1].Questions {
		if strings.Contains(q.Text, "dining") {
			t.Fatalf("duplicate question survived: %q", q.Text)
		}
	}

	// Earlier questions are folded into the later prompt as advisory context.
	if len(prompts) != 2 {
		t.Fatalf("expected 2 generation prompts, got %d", len(prompts))
	}
	if !strings.Contains(prompts[1], "What is a budget?") {
		t.Fatalf("second prompt should list already-used questions:\n%s", prompts[1])
	}
}

func TestGenerateCoachingQuizzesPropagatesGenerationFailure(t *testing.T) {
	gen := &fakeGenerator{respond: func(string) (string, error) {
		return "", errors.New("provider down")
	}}
	coach := NewCoachWithGenerators(gen, &fakeGenerator{})

	_, err := coach.GenerateCoachingQuizzes(context.Background(), []string{"budgeting"}, UserContext{})
	if err == nil {
		t.Fatalf("expected generation failure to propagate")
	}
}

func TestEvaluateQuizzesNeverFails(t *testing.T) {
	judgeGen := &fakeGenerator{respond: func(string) (string, error) {
		return "", errors.New("judge offline")
	}}
	coach := NewCoachWithGenerators(&fakeGenerator{}, judgeGen)

	evals := coach.EvaluateQuizzes(context.Background(), []*Quiz{judgedQuiz(3)}, UserContext{})
	if len(evals) != 1 {
		t.Fatalf("expected 1 evaluation, got %d", len(evals))
	}
	if !almostEqual(evals[0].OverallScore, neutralScore) {
		t.Fatalf("offline judge should yield neutral scores, got %v", evals[0].OverallScore)
	}
}
