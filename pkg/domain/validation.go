package domain

// ValidationType names a built-in input check.
type ValidationType string

const (
	ValidationRequired     ValidationType = "required"
	ValidationLength       ValidationType = "length"
	ValidationMinLength    ValidationType = "min_length"
	ValidationMaxLength    ValidationType = "max_length"
	ValidationRegex        ValidationType = "regex"
	ValidationEmail        ValidationType = "email"
	ValidationPhone        ValidationType = "phone"
	ValidationNumber       ValidationType = "number"
	ValidationInteger      ValidationType = "integer"
	ValidationRange        ValidationType = "range"
	ValidationInList       ValidationType = "in_list"
	ValidationAlphanumeric ValidationType = "alphanumeric"
)

// KnownValidationTypes lists the checks the validation subsystem implements.
var KnownValidationTypes = []ValidationType{
	ValidationRequired,
	ValidationLength,
	ValidationMinLength,
	ValidationMaxLength,
	ValidationRegex,
	ValidationEmail,
	ValidationPhone,
	ValidationNumber,
	ValidationInteger,
	ValidationRange,
	ValidationInList,
	ValidationAlphanumeric,
}

// ValidationRule is one check applied to collected input. Rules on a node
// run in order; the first failure stops the chain and re-prompts the user
// with ErrorMessage (or a built-in default).
type ValidationRule struct {
	Type         ValidationType `json:"type" yaml:"type"`
	Params       map[string]any `json:"params,omitempty" yaml:"params,omitempty"`
	ErrorMessage string         `json:"error_message,omitempty" yaml:"error_message,omitempty"`
}
