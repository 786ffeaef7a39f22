package quizcoach

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// quizEnvelope is the top-level object the model is asked to return. The
// questions are kept raw so one malformed candidate can't sink its siblings.
type quizEnvelope struct {
	Title       string            `json:"title"`
	Description string            `json:"description"`
	Questions   []json.RawMessage `json:"questions"`
}

// RecoveryTier identifies which strategy of the recovery cascade produced a
// decoded envelope.
type RecoveryTier int

const (
	TierDirect RecoveryTier = iota + 1
	TierRepair
	TierExtract
)

func (t RecoveryTier) String() string {
	switch t {
	case TierDirect:
		return "direct"
	case TierRepair:
		return "repair"
	case TierExtract:
		return "extract"
	default:
		return "none"
	}
}

// recoverEnvelope decodes stripped model output into an envelope, trying a
// direct parse first, then structural repair of a truncated payload, then
// regex extraction of whole question objects. The returned tier reports
// which strategy succeeded.
func recoverEnvelope(stripped string) (*quizEnvelope, RecoveryTier, error) {
	var env quizEnvelope
	directErr := json.Unmarshal([]byte(stripped), &env)
	if directErr == nil {
		return &env, TierDirect, nil
	}

	repaired := repairTruncatedJSON(stripped, directErr)
	if repaired != stripped {
		var env quizEnvelope
		// A repair that parses but carries no candidates is no recovery;
		// let extraction have a shot at the original text.
		if err := json.Unmarshal([]byte(repaired), &env); err == nil && len(env.Questions) > 0 {
			return &env, TierRepair, nil
		}
	}

	if env := extractPartialEnvelope(stripped); len(env.Questions) >= MinQuizQuestions {
		return env, TierExtract, nil
	}

	return nil, 0, fmt.Errorf("%w: %v", ErrUnparsableResponse, directErr)
}

// repairTruncatedJSON rebuilds a payload whose tail was cut off mid-stream:
// truncate at the parser-reported offset when there is one, close an
// unterminated string, drop a dangling separator, then append the missing
// closers in correct nesting order.
func repairTruncatedJSON(s string, parseErr error) string {
	var syn *json.SyntaxError
	if errors.As(parseErr, &syn) && syn.Offset > 0 && int(syn.Offset) < len(s) {
		s = s[:syn.Offset]
	}

	var stack []byte
	inString := false
	escaped := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if escaped {
			escaped = false
			continue
		}
		switch {
		case c == '\\':
			escaped = inString
		case c == '"':
			inString = !inString
		case inString:
		case c == '{' || c == '[':
			stack = append(stack, c)
		case c == '}':
			if len(stack) > 0 && stack[len(stack)-1] == '{' {
				stack = stack[:len(stack)-1]
			}
		case c == ']':
			if len(stack) > 0 && stack[len(stack)-1] == '[' {
				stack = stack[:len(stack)-1]
			}
		}
	}

	if inString {
		// A trailing backslash would escape the quote we are about to add.
		if escaped {
			s = s[:len(s)-1]
		}
		s += `"`
	}

	s = strings.TrimRight(s, " \t\r\n")
	switch {
	case strings.HasSuffix(s, ","):
		s = s[:len(s)-1]
	case strings.HasSuffix(s, ":"):
		s += " null"
	}

	for i := len(stack) - 1; i >= 0; i-- {
		if stack[i] == '{' {
			s += "}"
		} else {
			s += "]"
		}
	}
	return s
}

// questionObjectRe matches one complete question object in the shape the
// prompt requests. Best-effort safety net: the exact pattern is a heuristic,
// the contract is "collect records that are unambiguously whole".
var questionObjectRe = regexp.MustCompile(
	`(?s)"question"\s*:\s*"((?:[^"\\]|\\.)*)"\s*,\s*` +
		`"options"\s*:\s*\[([^\]]*)\]\s*,\s*` +
		`"correctAnswer"\s*:\s*([0-9]+)\s*,\s*` +
		`"explanation"\s*:\s*"((?:[^"\\]|\\.)*)"`)

// extractPartialEnvelope scans the original stripped text for complete
// question objects and wraps whatever it finds in a synthetic envelope.
// Collection stops at the target question count.
func extractPartialEnvelope(stripped string) *quizEnvelope {
	env := &quizEnvelope{}
	for _, m := range questionObjectRe.FindAllStringSubmatch(stripped, TargetQuizQuestions) {
		options := splitOptionList(m[2])
		answer, err := strconv.Atoi(m[3])
		if err != nil {
			continue
		}
		candidate := map[string]any{
			"question":      unescapeJSONString(m[1]),
			"options":       options,
			"correctAnswer": answer,
			"explanation":   unescapeJSONString(m[4]),
		}
		raw, err := json.Marshal(candidate)
		if err != nil {
			continue
		}
		env.Questions = append(env.Questions, raw)
	}
	return env
}

// splitOptionList splits the inside of a bracketed option list on commas and
// strips outer quotes. Options that clean down to nothing are dropped
// without discarding the record they came from.
func splitOptionList(list string) []string {
	var options []string
	for _, part := range strings.Split(list, ",") {
		part = strings.TrimSpace(part)
		if decoded := unescapeJSONString(strings.Trim(part, `"`)); decoded != "" {
			options = append(options, decoded)
		}
	}
	return options
}

// unescapeJSONString decodes the contents of a JSON string literal, falling
// back to the raw text when it isn't decodable.
func unescapeJSONString(s string) string {
	var out string
	if err := json.Unmarshal([]byte(`"`+s+`"`), &out); err != nil {
		return s
	}
	return out
}
