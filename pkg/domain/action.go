package domain

// Action is a declarative side effect attached to a node, executed in order
// after the node's input has been validated and stored. The engine never
// speaks HTTP itself; it hands a resolved CallRequest to the configured
// caller port.
type Action struct {
	Name   string `json:"name,omitempty" yaml:"name,omitempty"`
	URL    string `json:"url" yaml:"url"`
	Method string `json:"method,omitempty" yaml:"method,omitempty"`

	Headers map[string]string `json:"headers,omitempty" yaml:"headers,omitempty"`

	// Input maps request payload keys to session context variable names.
	// Every referenced variable must exist when the action runs.
	Input map[string]string `json:"input,omitempty" yaml:"input,omitempty"`

	// Output maps session context variable names to response field names.
	// A declared field absent from the response fails the action.
	Output map[string]string `json:"output,omitempty" yaml:"output,omitempty"`

	// OnSuccess, when set, jumps to that node after this action succeeds,
	// skipping any remaining actions on the node.
	OnSuccess string `json:"on_success,omitempty" yaml:"on_success,omitempty"`

	// OnFailure, when set, routes the session there instead of surfacing an
	// ActionError to the caller.
	OnFailure string `json:"on_failure,omitempty" yaml:"on_failure,omitempty"`

	TimeoutSeconds int `json:"timeout_seconds,omitempty" yaml:"timeout_seconds,omitempty"`
}
