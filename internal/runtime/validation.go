package runtime

import (
	"fmt"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/parleyflow/parley/pkg/domain"
)

var (
	emailRe        = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)
	phoneRe        = regexp.MustCompile(`^\+?[0-9][0-9 ().-]{5,18}[0-9]$`)
	alphanumericRe = regexp.MustCompile(`^[A-Za-z0-9]+$`)
)

// checkInput runs the node's validation rules in order and returns the
// first failure as a *domain.ValidationError. nil means the input passed.
func checkInput(rules []domain.ValidationRule, input string) error {
	for _, rule := range rules {
		if err := checkRule(rule, input); err != nil {
			return err
		}
	}
	return nil
}

func checkRule(rule domain.ValidationRule, input string) error {
	fail := func(defaultMsg string) error {
		msg := rule.ErrorMessage
		if msg == "" {
			msg = defaultMsg
		}
		return &domain.ValidationError{Rule: rule.Type, Message: msg}
	}

	switch rule.Type {
	case domain.ValidationRequired:
		if strings.TrimSpace(input) == "" {
			return fail("This field is required.")
		}

	case domain.ValidationLength:
		n := utf8.RuneCountInString(input)
		if lo, ok := numberParam(rule.Params, "min"); ok && n < int(lo) {
			return fail(fmt.Sprintf("Please enter at least %d characters.", int(lo)))
		}
		if hi, ok := numberParam(rule.Params, "max"); ok && n > int(hi) {
			return fail(fmt.Sprintf("Please enter at most %d characters.", int(hi)))
		}

	case domain.ValidationMinLength:
		n, _ := numberParam(rule.Params, "value")
		if utf8.RuneCountInString(input) < int(n) {
			return fail(fmt.Sprintf("Please enter at least %d characters.", int(n)))
		}

	case domain.ValidationMaxLength:
		n, _ := numberParam(rule.Params, "value")
		if utf8.RuneCountInString(input) > int(n) {
			return fail(fmt.Sprintf("Please enter at most %d characters.", int(n)))
		}

	case domain.ValidationRegex:
		pattern, _ := rule.Params["pattern"].(string)
		re, err := regexp.Compile(pattern)
		if err != nil {
			// The loader rejects bad patterns; treat a stray one as a failed
			// check rather than letting bad config crash the turn.
			return fail("Invalid format.")
		}
		if !re.MatchString(input) {
			return fail("Invalid format.")
		}

	case domain.ValidationEmail:
		if !emailRe.MatchString(strings.TrimSpace(input)) {
			return fail("Please enter a valid email address.")
		}

	case domain.ValidationPhone:
		if !phoneRe.MatchString(strings.TrimSpace(input)) {
			return fail("Please enter a valid phone number.")
		}

	case domain.ValidationNumber:
		if _, err := strconv.ParseFloat(strings.TrimSpace(input), 64); err != nil {
			return fail("Please enter a number.")
		}

	case domain.ValidationInteger:
		if _, err := strconv.ParseInt(strings.TrimSpace(input), 10, 64); err != nil {
			return fail("Please enter a whole number.")
		}

	case domain.ValidationRange:
		v, err := strconv.ParseFloat(strings.TrimSpace(input), 64)
		if err != nil {
			return fail("Please enter a number.")
		}
		if lo, ok := numberParam(rule.Params, "min"); ok && v < lo {
			return fail(fmt.Sprintf("Please enter a value of at least %g.", lo))
		}
		if hi, ok := numberParam(rule.Params, "max"); ok && v > hi {
			return fail(fmt.Sprintf("Please enter a value of at most %g.", hi))
		}

	case domain.ValidationInList:
		if !slices.Contains(listParam(rule.Params, "values"), input) {
			return fail("Please choose one of the allowed values.")
		}

	case domain.ValidationAlphanumeric:
		if !alphanumericRe.MatchString(input) {
			return fail("Only letters and digits are allowed.")
		}
	}
	return nil
}

// numberParam reads a numeric rule parameter across the types document
// decoding can produce.
func numberParam(params map[string]any, key string) (float64, bool) {
	switch v := params[key].(type) {
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case float64:
		return v, true
	default:
		return 0, false
	}
}

func listParam(params map[string]any, key string) []string {
	switch raw := params[key].(type) {
	case []string:
		return raw
	case []any:
		out := make([]string, 0, len(raw))
		for _, v := range raw {
			if s, ok := v.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}
