package quizcoach

import (
	"regexp"
	"strings"
)

var (
	whitespaceRe = regexp.MustCompile(`\s+`)
	numberRe     = regexp.MustCompile(`[0-9]+(?:\.[0-9]+)?`)
	dollarRunRe  = regexp.MustCompile(`\$#+`)
)

// namePlaceholder stands in for the user's display name in fingerprints.
const namePlaceholder = "<user>"

// QuestionFingerprint normalizes question text into a duplicate-detection
// key: lowercase, collapsed whitespace, the user's name redacted, and every
// numeric literal (with or without a leading dollar sign) reduced to a
// single '#'. Questions differing only by amounts, dates, or the user's
// name collapse to the same fingerprint on purpose.
func QuestionFingerprint(text, displayName string) string {
	fp := whitespaceRe.ReplaceAllString(strings.ToLower(strings.TrimSpace(text)), " ")
	if displayName != "" {
		fp = strings.ReplaceAll(fp, strings.ToLower(displayName), namePlaceholder)
	}
	fp = numberRe.ReplaceAllString(fp, "#")
	fp = dollarRunRe.ReplaceAllString(fp, "#")
	return fp
}

// DedupQuizzes suppresses questions whose fingerprint already appeared in an
// earlier quiz of the same request, processing quizzes in generation order
// so earlier quizzes win duplicate resolution. Expressed as a fold so the
// seen-set's scope is explicit: one pass, one request, never persisted.
func DedupQuizzes(quizzes []*Quiz, displayName string) []*Quiz {
	seen := make(map[string]struct{})
	out := make([]*Quiz, 0, len(quizzes))
	for _, quiz := range quizzes {
		var filtered *Quiz
		seen, filtered = dedupQuizStep(seen, quiz, displayName)
		out = append(out, filtered)
	}
	return out
}

// dedupQuizStep is one fold step: filter a quiz against the seen-set and
// return the updated set plus the filtered quiz. If filtering would leave
// fewer than MinQuizQuestions, the quiz keeps all of its original questions
// rather than dropping below the floor; their fingerprints still enter the
// seen-set.
func dedupQuizStep(seen map[string]struct{}, quiz *Quiz, displayName string) (map[string]struct{}, *Quiz) {
	kept := make([]Question, 0, len(quiz.Questions))
	var newPrints []string
	for _, q := range quiz.Questions {
		fp := QuestionFingerprint(q.Text, displayName)
		if _, dup := seen[fp]; dup {
			continue
		}
		// Also dedup within the quiz itself.
		duplicate := false
		for _, p := range newPrints {
			if p == fp {
				duplicate = true
				break
			}
		}
		if duplicate {
			continue
		}
		kept = append(kept, q)
		newPrints = append(newPrints, fp)
	}

	if len(kept) < MinQuizQuestions {
		VerboseLog("Quiz %s: dedup would leave %d questions, keeping original %d",
			quiz.ID, len(kept), len(quiz.Questions))
		for _, q := range quiz.Questions {
			seen[QuestionFingerprint(q.Text, displayName)] = struct{}{}
		}
		return seen, quiz
	}

	for _, fp := range newPrints {
		seen[fp] = struct{}{}
	}
	deduped := *quiz
	deduped.Questions = kept
	deduped.TotalQuestions = len(kept)
	return seen, &deduped
}
