/*
Package dsl provides a fluent builder for constructing flow definitions in
Go instead of YAML or JSON. This is useful for dynamic flow generation,
unit tests, and leveraging IDE autocompletion and type checking.

Example usage:

	b := dsl.New("signup")

	b.Add("welcome").
		Message("Welcome!").
		Go("ask_email")

	b.Add("ask_email").
		CollectInput("What is your email?").
		SaveTo("email").
		Validate(domain.ValidationRule{Type: domain.ValidationEmail}).
		Go("done")

	b.Add("done").
		Message("Thanks, {{email}}!")

	def, err := b.Build()
	// def is a validated *domain.FlowDefinition, ready for parley.New.
*/
package dsl
