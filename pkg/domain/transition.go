package domain

// ConditionType discriminates how a transition condition compares the
// session state against its expected value.
type ConditionType string

const (
	ConditionEquals   ConditionType = "equals"
	ConditionContains ConditionType = "contains"
	ConditionRegex    ConditionType = "regex"
	ConditionInList   ConditionType = "in_list"
	ConditionAlways   ConditionType = "always"
)

// KnownConditionTypes lists the condition types the evaluator implements.
var KnownConditionTypes = []ConditionType{
	ConditionEquals,
	ConditionContains,
	ConditionRegex,
	ConditionInList,
	ConditionAlways,
}

// InputField is the reserved condition field that refers to the raw input
// of the current turn rather than a stored context variable.
const InputField = "input"

// Transition routes a session to Target when all of its Conditions hold.
// Transitions on a node are evaluated in order; the first match wins.
type Transition struct {
	Target     string      `json:"target" yaml:"target"`
	Conditions []Condition `json:"conditions,omitempty" yaml:"conditions,omitempty"`
}

// Condition is a single predicate over the session context or the current
// input. Values lists the accepted set for in_list conditions; every other
// type uses Value.
type Condition struct {
	Type   ConditionType `json:"type" yaml:"type"`
	Field  string        `json:"field,omitempty" yaml:"field,omitempty"`
	Value  string        `json:"value,omitempty" yaml:"value,omitempty"`
	Values []string      `json:"values,omitempty" yaml:"values,omitempty"`
}
