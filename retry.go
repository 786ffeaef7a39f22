package quizcoach

import (
	"context"
	"fmt"
	"strings"
)

// maxGenerationAttempts bounds the total number of capability calls for one
// logical generation, including the first.
const maxGenerationAttempts = 2

// looksTruncated reports whether a response was likely cut off mid-stream.
// It only gates retries: a truncated-looking final attempt is still handed
// to the recovery pipeline rather than discarded.
func looksTruncated(text string) bool {
	t := strings.TrimSpace(text)
	return !strings.HasSuffix(t, "}") && !strings.HasSuffix(t, "]")
}

// generateWithRetry calls gen up to maxGenerationAttempts times, retrying on
// capability errors and on truncated-looking output. It returns the last
// text any attempt produced; an error only when no attempt produced text.
func generateWithRetry(ctx context.Context, gen TextGenerator, prompt string, opts GenerateOptions) (string, error) {
	var (
		best    string
		gotText bool
		lastErr error
	)
	for attempt := 1; attempt <= maxGenerationAttempts; attempt++ {
		text, err := gen.Generate(ctx, prompt, opts)
		if err != nil {
			lastErr = err
			VerboseLog("Generation attempt %d/%d failed: %v", attempt, maxGenerationAttempts, err)
			continue
		}
		best = text
		gotText = true
		if !looksTruncated(text) {
			return text, nil
		}
		VerboseLog("Generation attempt %d/%d looks truncated, retrying", attempt, maxGenerationAttempts)
	}
	if gotText {
		return best, nil
	}
	return "", fmt.Errorf("generation failed after %d attempts: %w", maxGenerationAttempts, lastErr)
}
