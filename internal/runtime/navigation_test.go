package runtime

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/parleyflow/parley/pkg/domain"
)

func TestEvalCondition(t *testing.T) {
	ctx := map[string]any{
		"plan":    "gold",
		"account": map[string]any{"country": "PT"},
	}

	cases := map[string]struct {
		cond  domain.Condition
		input string
		want  bool
	}{
		"equals input": {
			cond:  domain.Condition{Type: domain.ConditionEquals, Field: domain.InputField, Value: "yes"},
			input: "yes",
			want:  true,
		},
		"equals is exact": {
			cond:  domain.Condition{Type: domain.ConditionEquals, Field: domain.InputField, Value: "yes"},
			input: "YES",
			want:  false,
		},
		"equals context": {
			cond: domain.Condition{Type: domain.ConditionEquals, Field: "plan", Value: "gold"},
			want: true,
		},
		"equals dotted field": {
			cond: domain.Condition{Type: domain.ConditionEquals, Field: "account.country", Value: "PT"},
			want: true,
		},
		"missing field is false": {
			cond: domain.Condition{Type: domain.ConditionEquals, Field: "tier", Value: "gold"},
			want: false,
		},
		"contains": {
			cond:  domain.Condition{Type: domain.ConditionContains, Field: domain.InputField, Value: "help"},
			input: "I need help now",
			want:  true,
		},
		"regex": {
			cond:  domain.Condition{Type: domain.ConditionRegex, Field: domain.InputField, Value: `^\d+$`},
			input: "12345",
			want:  true,
		},
		"in_list": {
			cond: domain.Condition{Type: domain.ConditionInList, Field: "plan", Values: []string{"gold", "silver"}},
			want: true,
		},
		"always": {
			cond: domain.Condition{Type: domain.ConditionAlways},
			want: true,
		},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			got, err := evalCondition(tc.cond, ctx, tc.input)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestEvalConditionBadRegex(t *testing.T) {
	_, err := evalCondition(domain.Condition{
		Type:  domain.ConditionRegex,
		Field: domain.InputField,
		Value: "(",
	}, nil, "anything")

	var cerr *domain.ConditionError
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, domain.ConditionRegex, cerr.Type)
}

// An unevaluable condition must count as false, letting later transitions
// and the default still fire.
func TestResolveTransitionTreatsErrorAsFalse(t *testing.T) {
	e, _ := newTestEngine(t, onboardingFlow(), nil)
	node := domain.Node{
		ID: "n",
		Transitions: []domain.Transition{
			{Target: "broken", Conditions: []domain.Condition{
				{Type: domain.ConditionRegex, Field: domain.InputField, Value: "("},
			}},
			{Target: "fallback", Conditions: []domain.Condition{
				{Type: domain.ConditionAlways},
			}},
		},
	}

	sess := domain.NewSession("s", "onboarding", e.clock())
	target, err := e.resolveTransition(node, sess, "hi")
	require.NoError(t, err)
	assert.Equal(t, "fallback", target)
}

func TestResolveTransitionFirstMatchWins(t *testing.T) {
	e, _ := newTestEngine(t, onboardingFlow(), nil)
	node := domain.Node{
		ID: "n",
		Transitions: []domain.Transition{
			{Target: "first", Conditions: []domain.Condition{
				{Type: domain.ConditionEquals, Field: domain.InputField, Value: "go"},
			}},
			{Target: "second", Conditions: []domain.Condition{
				{Type: domain.ConditionEquals, Field: domain.InputField, Value: "go"},
			}},
		},
		DefaultTransition: "default",
	}

	sess := domain.NewSession("s", "onboarding", e.clock())

	target, err := e.resolveTransition(node, sess, "go")
	require.NoError(t, err)
	assert.Equal(t, "first", target)

	target, err = e.resolveTransition(node, sess, "stop")
	require.NoError(t, err)
	assert.Equal(t, "default", target)
}
