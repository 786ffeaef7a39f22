package quizcoach

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// LLMLogger records every model interaction and pipeline decision for one
// logical request to a dedicated file, so a bad generation can be diagnosed
// after the fact without re-running it.
type LLMLogger struct {
	file      *os.File
	mu        sync.Mutex
	requestID string
}

// NewLLMLogger creates a per-request log file under dir.
func NewLLMLogger(dir, requestID string, user UserContext) (*LLMLogger, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	file, err := os.Create(filepath.Join(dir, fmt.Sprintf("%s.log", requestID)))
	if err != nil {
		return nil, fmt.Errorf("failed to create log file: %w", err)
	}

	logger := &LLMLogger{
		file:      file,
		requestID: requestID,
	}

	logger.Logf("=== Coaching Quiz Request ===\n")
	logger.Logf("Request ID: %s\n", requestID)
	logger.Logf("User: %s\n", user.DisplayName)
	if len(user.FinancialGoals) > 0 {
		logger.Logf("Goals: %d\n", len(user.FinancialGoals))
	}
	logger.Logf("Started: %s\n", time.Now().Format(time.RFC3339))
	logger.Logf("=============================\n\n")

	return logger, nil
}

// Logf writes a formatted entry with a timestamp.
func (ll *LLMLogger) Logf(format string, args ...interface{}) {
	ll.mu.Lock()
	defer ll.mu.Unlock()

	timestamp := time.Now().Format("15:04:05.000")
	fmt.Fprintf(ll.file, "[%s] %s", timestamp, fmt.Sprintf(format, args...))
	ll.file.Sync()
}

// LogLLMRequest logs an outgoing prompt.
func (ll *LLMLogger) LogLLMRequest(component, prompt string) {
	ll.Logf("=== LLM REQUEST (%s) ===\n", component)
	ll.Logf("Prompt:\n%s\n", prompt)
	ll.Logf("========================\n\n")
}

// LogLLMResponse logs a raw model response.
func (ll *LLMLogger) LogLLMResponse(component, response string) {
	ll.Logf("=== LLM RESPONSE (%s) ===\n", component)
	ll.Logf("Response:\n%s\n", response)
	ll.Logf("=========================\n\n")
}

// LogRecovery records which recovery tier decoded a response.
func (ll *LLMLogger) LogRecovery(concept string, tier RecoveryTier, candidates int) {
	ll.Logf("Recovery for %q: tier=%s candidates=%d\n", concept, tier, candidates)
}

// LogDedup records the outcome of the cross-quiz fingerprint pass.
func (ll *LLMLogger) LogDedup(quizID string, before, after int) {
	if before == after {
		ll.Logf("Quiz %s: no duplicate questions\n", quizID)
	} else {
		ll.Logf("Quiz %s: %d duplicate questions removed (%d -> %d)\n",
			quizID, before-after, before, after)
	}
}

// Close finalizes and closes the log file.
func (ll *LLMLogger) Close() error {
	ll.mu.Lock()
	defer ll.mu.Unlock()

	if ll.file != nil {
		fmt.Fprintf(ll.file, "[%s] === Request Complete: %s ===\n",
			time.Now().Format("15:04:05.000"), time.Now().Format(time.RFC3339))
		return ll.file.Close()
	}
	return nil
}
