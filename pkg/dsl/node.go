package dsl

import "github.com/parleyflow/parley/pkg/domain"

// NodeBuilder provides a fluent API for configuring a node.
type NodeBuilder struct {
	node domain.Node
}

// Message marks the node as a message node with the given text.
func (n *NodeBuilder) Message(prompt string) *NodeBuilder {
	n.node.Type = domain.NodeMessage
	n.node.Prompt = prompt
	return n
}

// CollectInput marks the node as an input collection node with the given
// prompt. Pair it with SaveTo and, optionally, Validate.
func (n *NodeBuilder) CollectInput(prompt string) *NodeBuilder {
	n.node.Type = domain.NodeCollectInput
	n.node.Prompt = prompt
	return n
}

// Menu marks the node as a menu with the given prompt. Add choices with
// Option.
func (n *NodeBuilder) Menu(prompt string) *NodeBuilder {
	n.node.Type = domain.NodeMenu
	n.node.Prompt = prompt
	return n
}

// AIChat marks the node as an AI chat segment driven by the given config.
func (n *NodeBuilder) AIChat(cfg domain.AIConfig) *NodeBuilder {
	n.node.Type = domain.NodeAIChat
	n.node.AIConfig = &cfg
	return n
}

// ProcessMedia marks the node as a media upload step.
func (n *NodeBuilder) ProcessMedia(cfg domain.ProcessMediaConfig) *NodeBuilder {
	n.node.Type = domain.NodeProcessMedia
	n.node.MediaConfig = &cfg
	return n
}

// Prompt sets or overrides the node's prompt text.
func (n *NodeBuilder) Prompt(prompt string) *NodeBuilder {
	n.node.Prompt = prompt
	return n
}

// SaveTo specifies the context variable the node's input is stored in.
func (n *NodeBuilder) SaveTo(variable string) *NodeBuilder {
	n.node.OutputVariable = variable
	return n
}

// Option adds a menu choice. An empty target routes through the node's
// transitions instead.
func (n *NodeBuilder) Option(value, label, target string) *NodeBuilder {
	n.node.Options = append(n.node.Options, domain.MenuOption{
		Value:  value,
		Label:  label,
		Target: target,
	})
	return n
}

// Validate appends validation rules, applied in order to collected input.
func (n *NodeBuilder) Validate(rules ...domain.ValidationRule) *NodeBuilder {
	n.node.Validations = append(n.node.Validations, rules...)
	return n
}

// Action appends a side effect executed after the node's input passes
// validation.
func (n *NodeBuilder) Action(action domain.Action) *NodeBuilder {
	n.node.Actions = append(n.node.Actions, action)
	return n
}

// Go sets the unconditional default transition to the target node.
func (n *NodeBuilder) Go(target string) *NodeBuilder {
	n.node.DefaultTransition = target
	return n
}

// Branch adds a conditional transition to the target node. Conditions in
// one call are ANDed; separate calls try in order.
func (n *NodeBuilder) Branch(target string, conditions ...domain.Condition) *NodeBuilder {
	n.node.Transitions = append(n.node.Transitions, domain.Transition{
		Target:     target,
		Conditions: conditions,
	})
	return n
}

// Terminal clears all transitions, marking the node as an end of the flow.
func (n *NodeBuilder) Terminal() *NodeBuilder {
	n.node.Transitions = nil
	n.node.DefaultTransition = ""
	return n
}

// Build returns the underlying domain.Node. This is primarily used by the
// Builder, but exposed for advanced usage.
func (n *NodeBuilder) Build() domain.Node {
	return n.node
}
