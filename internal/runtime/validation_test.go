package runtime

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/parleyflow/parley/pkg/domain"
)

func rule(t domain.ValidationType, params map[string]any) domain.ValidationRule {
	return domain.ValidationRule{Type: t, Params: params}
}

func TestCheckRule(t *testing.T) {
	cases := map[string]struct {
		rule domain.ValidationRule
		pass []string
		fail []string
	}{
		"required": {
			rule: rule(domain.ValidationRequired, nil),
			pass: []string{"x", " x "},
			fail: []string{"", "   "},
		},
		"length": {
			rule: rule(domain.ValidationLength, map[string]any{"min": 4, "max": 10}),
			pass: []string{"1234", "1234567890"},
			fail: []string{"", "12", "12345678901"},
		},
		"min_length": {
			rule: rule(domain.ValidationMinLength, map[string]any{"value": 3}),
			pass: []string{"abc", "abcd", "äöü"},
			fail: []string{"ab", ""},
		},
		"max_length": {
			rule: rule(domain.ValidationMaxLength, map[string]any{"value": 3}),
			pass: []string{"", "abc"},
			fail: []string{"abcd"},
		},
		"regex": {
			rule: rule(domain.ValidationRegex, map[string]any{"pattern": "^[A-Z]{2}[0-9]{4}$"}),
			pass: []string{"AB1234"},
			fail: []string{"ab1234", "AB123", "AB12345"},
		},
		"email": {
			rule: rule(domain.ValidationEmail, nil),
			pass: []string{"ada@example.com", " ada@example.com "},
			fail: []string{"ada@", "@example.com", "ada example.com"},
		},
		"phone": {
			rule: rule(domain.ValidationPhone, nil),
			pass: []string{"+351 912 345 678", "0044 20 7946 0958", "9123456"},
			fail: []string{"abc", "12", "+"},
		},
		"number": {
			rule: rule(domain.ValidationNumber, nil),
			pass: []string{"42", "-3.14", " 7 "},
			fail: []string{"seven", "4a"},
		},
		"integer": {
			rule: rule(domain.ValidationInteger, nil),
			pass: []string{"42", "-7"},
			fail: []string{"3.14", "four"},
		},
		"range": {
			rule: rule(domain.ValidationRange, map[string]any{"min": 18, "max": 99}),
			pass: []string{"18", "99", "42.5"},
			fail: []string{"17", "100", "old"},
		},
		"in_list": {
			rule: rule(domain.ValidationInList, map[string]any{"values": []any{"red", "green"}}),
			pass: []string{"red", "green"},
			fail: []string{"blue", "Red"},
		},
		"alphanumeric": {
			rule: rule(domain.ValidationAlphanumeric, nil),
			pass: []string{"abc123", "XYZ"},
			fail: []string{"a b", "a-b", ""},
		},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			for _, in := range tc.pass {
				assert.NoError(t, checkRule(tc.rule, in), "input %q should pass", in)
			}
			for _, in := range tc.fail {
				assert.Error(t, checkRule(tc.rule, in), "input %q should fail", in)
			}
		})
	}
}

func TestCheckInputFirstFailureWins(t *testing.T) {
	rules := []domain.ValidationRule{
		{Type: domain.ValidationRequired, ErrorMessage: "Give me something."},
		{Type: domain.ValidationInteger, ErrorMessage: "Digits only."},
	}

	err := checkInput(rules, "")
	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, domain.ValidationRequired, verr.Rule)
	assert.Equal(t, "Give me something.", verr.Message)

	err = checkInput(rules, "abc")
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, domain.ValidationInteger, verr.Rule)

	assert.NoError(t, checkInput(rules, "42"))
}

func TestCheckRuleDefaultMessages(t *testing.T) {
	err := checkRule(rule(domain.ValidationEmail, nil), "nope")
	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "Please enter a valid email address.", verr.Message)
}
