package quizcoach

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
)

const (
	optionsPerQuestion = 4
	defaultExplanation = "No explanation provided."
)

// validateQuestions schema-checks each candidate in envelope order and drops
// the invalid ones without rejecting their siblings. Duplicate questions
// within the same response are suppressed, first occurrence wins. Fails only
// when fewer than MinQuizQuestions survive.
func validateQuestions(env *quizEnvelope, concept string) ([]Question, error) {
	seen := make(map[string]struct{})
	questions := make([]Question, 0, len(env.Questions))

	for i, raw := range env.Questions {
		q, ok := validateCandidate(raw, concept)
		if !ok {
			VerboseLog("Dropping candidate %d: failed schema check", i)
			continue
		}
		norm := normalizeQuestionText(q.Text)
		if _, dup := seen[norm]; dup {
			VerboseLog("Dropping candidate %d: duplicate of earlier question in response", i)
			continue
		}
		seen[norm] = struct{}{}
		questions = append(questions, q)
	}

	if len(questions) < MinQuizQuestions {
		return nil, fmt.Errorf("%w: %d valid, need at least %d",
			ErrInsufficientQuestions, len(questions), MinQuizQuestions)
	}
	if len(questions) < TargetQuizQuestions {
		VerboseLog("Accepting degraded quiz: %d valid questions, target is %d",
			len(questions), TargetQuizQuestions)
	}
	return questions, nil
}

// validateCandidate applies the per-record schema rules: a non-empty string
// question, exactly 4 string options (no padding, no truncation), a numeric
// correct-answer index in [0,3]. A missing or non-string explanation is
// defaulted instead of rejected.
func validateCandidate(raw json.RawMessage, concept string) (Question, bool) {
	var candidate map[string]any
	if err := json.Unmarshal(raw, &candidate); err != nil {
		return Question{}, false
	}

	text, ok := candidate["question"].(string)
	if !ok || strings.TrimSpace(text) == "" {
		return Question{}, false
	}

	rawOptions, ok := candidate["options"].([]any)
	if !ok || len(rawOptions) != optionsPerQuestion {
		return Question{}, false
	}
	options := make([]string, 0, optionsPerQuestion)
	for _, o := range rawOptions {
		s, ok := o.(string)
		if !ok {
			return Question{}, false
		}
		options = append(options, s)
	}

	answer, ok := candidate["correctAnswer"].(float64)
	if !ok || answer != math.Trunc(answer) || answer < 0 || answer > float64(optionsPerQuestion-1) {
		return Question{}, false
	}

	explanation, ok := candidate["explanation"].(string)
	if !ok {
		explanation = defaultExplanation
	}

	return Question{
		Text:          text,
		Options:       options,
		CorrectAnswer: int(answer),
		Explanation:   explanation,
		Concept:       concept,
	}, true
}

// normalizeQuestionText is the within-response duplicate key: lowercased,
// whitespace collapsed.
func normalizeQuestionText(s string) string {
	return whitespaceRe.ReplaceAllString(strings.ToLower(strings.TrimSpace(s)), " ")
}
