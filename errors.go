package quizcoach

import "errors"

// Terminal generation failures. Both propagate to the caller; they are kept
// distinct so callers and logs can tell a hopeless payload apart from one
// that parsed but didn't contain enough usable questions.
var (
	// ErrUnparsableResponse means all recovery tiers failed to decode the
	// model's output into a question envelope.
	ErrUnparsableResponse = errors.New("could not parse generated content")

	// ErrInsufficientQuestions means the payload decoded but fewer than
	// MinQuizQuestions candidates survived validation.
	ErrInsufficientQuestions = errors.New("insufficient valid questions")
)
