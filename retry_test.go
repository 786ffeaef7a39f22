package quizcoach

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
)

type fakeResponse struct {
	text string
	err  error
}

// fakeGenerator scripts TextGenerator responses call by call, or answers
// every call through respond when set. Safe for concurrent use.
type fakeGenerator struct {
	mu        sync.Mutex
	responses []fakeResponse
	respond   func(prompt string) (string, error)
	calls     int
}

func (f *fakeGenerator) Generate(_ context.Context, prompt string, _ GenerateOptions) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.respond != nil {
		return f.respond(prompt)
	}
	if f.calls > len(f.responses) {
		return "", errors.New("fake generator: no scripted response")
	}
	r := f.responses[f.calls-1]
	return r.text, r.err
}

func (f *fakeGenerator) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func TestLooksTruncated(t *testing.T) {
	cases := []struct {
		text string
		want bool
	}{
		{`{"title":"t"}`, false},
		{`[1,2,3]`, false},
		{"```json\n{}\n```", true}, // heuristic, the stripper handles fences later
		{`{"title":"t"} ` + "\n", false},
		{`{"title":"t","questions":[{"question":"Q`, true},
		{"", true},
	}
	for _, c := range cases {
		if got := looksTruncated(c.text); got != c.want {
			t.Fatalf("looksTruncated(%q) = %v, want %v", c.text, got, c.want)
		}
	}
}

func TestGenerateWithRetryAcceptsCleanFirstAttempt(t *testing.T) {
	gen := &fakeGenerator{responses: []fakeResponse{{text: `{"ok":true}`}}}
	text, err := generateWithRetry(context.Background(), gen, "p", GenerateOptions{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if text != `{"ok":true}` || gen.callCount() != 1 {
		t.Fatalf("unexpected result: text=%q calls=%d", text, gen.callCount())
	}
}

func TestGenerateWithRetryRetriesTruncatedOnce(t *testing.T) {
	gen := &fakeGenerator{responses: []fakeResponse{
		{text: `{"title":"cut off mid`},
		{text: `{"title":"complete"}`},
	}}
	text, err := generateWithRetry(context.Background(), gen, "p", GenerateOptions{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if text != `{"title":"complete"}` {
		t.Fatalf("expected second response, got %q", text)
	}
	if gen.callCount() != 2 {
		t.Fatalf("expected exactly 2 calls, got %d", gen.callCount())
	}
}

func TestGenerateWithRetryAcceptsTruncatedFinalAttempt(t *testing.T) {
	gen := &fakeGenerator{responses: []fakeResponse{
		{text: `{"title":"cut off`},
		{text: `{"title":"still cut off`},
	}}
	text, err := generateWithRetry(context.Background(), gen, "p", GenerateOptions{})
	if err != nil {
		t.Fatalf("truncated-looking text must still be accepted: %v", err)
	}
	if text != `{"title":"still cut off` {
		t.Fatalf("expected last text, got %q", text)
	}
	if gen.callCount() != maxGenerationAttempts {
		t.Fatalf("expected %d calls, got %d", maxGenerationAttempts, gen.callCount())
	}
}

func TestGenerateWithRetryRecoversFromError(t *testing.T) {
	gen := &fakeGenerator{responses: []fakeResponse{
		{err: errors.New("rate limited")},
		{text: `{"title":"complete"}`},
	}}
	text, err := generateWithRetry(context.Background(), gen, "p", GenerateOptions{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if text != `{"title":"complete"}` {
		t.Fatalf("expected second response, got %q", text)
	}
}

func TestGenerateWithRetryPropagatesFinalError(t *testing.T) {
	boom := errors.New("provider down")
	gen := &fakeGenerator{responses: []fakeResponse{
		{err: errors.New("timeout")},
		{err: boom},
	}}
	_, err := generateWithRetry(context.Background(), gen, "p", GenerateOptions{})
	if !errors.Is(err, boom) {
		t.Fatalf("expected final error to propagate, got %v", err)
	}
	if !strings.Contains(err.Error(), "after 2 attempts") {
		t.Fatalf("error should mention the attempt bound: %v", err)
	}
}

func TestGenerateWithRetryKeepsBestTextWhenRetryErrors(t *testing.T) {
	gen := &fakeGenerator{responses: []fakeResponse{
		{text: `{"title":"cut off`},
		{err: errors.New("timeout")},
	}}
	text, err := generateWithRetry(context.Background(), gen, "p", GenerateOptions{})
	if err != nil {
		t.Fatalf("best-available text should be returned: %v", err)
	}
	if text != `{"title":"cut off` {
		t.Fatalf("expected first attempt's text, got %q", text)
	}
}
