package runtime

import (
	"context"
	"fmt"
	"regexp"
	"slices"
	"strings"

	"github.com/parleyflow/parley/pkg/domain"
)

// maxChain caps how many nodes a single turn may traverse. It stops a
// cycle of message nodes from spinning forever.
const maxChain = 50

// enterNode advances the session into nodeID and keeps walking through
// message nodes until it reaches a node that waits for input or a terminal
// node. Emitted texts accumulate on the collector in order.
func (e *Engine) enterNode(ctx context.Context, sess *domain.Session, nodeID string, col *collector) error {
	for range maxChain {
		node, ok := e.def.Node(nodeID)
		if !ok {
			return fmt.Errorf("flow %q references unknown node %q", e.def.ID, nodeID)
		}
		sess.CurrentNodeID = node.ID

		text := renderTemplate(node.Prompt, sess.Context)

		switch node.Type {
		case domain.NodeMessage:
			col.add(text)
			sess.RecordMessage(domain.RoleAssistant, text, node.ID, e.clock())

			jump, err := e.runActions(ctx, sess, node, col)
			if err != nil {
				return err
			}
			if jump != "" {
				nodeID = jump
				continue
			}

			if node.Terminal() {
				e.complete(sess)
				return nil
			}
			next, err := e.resolveTransition(node, sess, "")
			if err != nil {
				return err
			}
			nodeID = next
			continue

		case domain.NodeMenu:
			menu := renderMenu(node, sess.Context)
			col.add(menu)
			sess.RecordMessage(domain.RoleAssistant, menu, node.ID, e.clock())
			sess.Status = domain.StatusAwaitingInput
			return nil

		case domain.NodeAIChat:
			greeting := aiChatGreeting(node, text)
			col.add(greeting)
			if greeting != "" {
				sess.RecordMessage(domain.RoleAssistant, greeting, node.ID, e.clock())
			}
			sess.Status = domain.StatusAwaitingInput
			return nil

		case domain.NodeCollectInput, domain.NodeProcessMedia:
			col.add(text)
			if text != "" {
				sess.RecordMessage(domain.RoleAssistant, text, node.ID, e.clock())
			}
			sess.Status = domain.StatusAwaitingInput
			return nil

		default:
			return fmt.Errorf("node %q has unexecutable type %q", node.ID, node.Type)
		}
	}
	return fmt.Errorf("flow %q: node chain exceeded %d hops entering %q", e.def.ID, maxChain, nodeID)
}

// advance runs the node's transition table for the given input and enters
// the winner. A waiting node with no transitions at all is terminal once
// its input is accepted.
func (e *Engine) advance(ctx context.Context, sess *domain.Session, node domain.Node, input string, col *collector) error {
	if node.Terminal() {
		e.complete(sess)
		return nil
	}
	next, err := e.resolveTransition(node, sess, input)
	if err != nil {
		return err
	}
	return e.enterNode(ctx, sess, next, col)
}

func (e *Engine) complete(sess *domain.Session) {
	sess.Status = domain.StatusCompleted
}

// resolveTransition evaluates the node's transitions in order and returns
// the first target whose conditions all hold, falling back to the default
// transition.
func (e *Engine) resolveTransition(node domain.Node, sess *domain.Session, input string) (string, error) {
	for _, tr := range node.Transitions {
		matched := true
		for _, cond := range tr.Conditions {
			ok, err := evalCondition(cond, sess.Context, input)
			if err != nil {
				// An unevaluable condition is false, not fatal.
				e.logger.Warn("condition evaluation failed",
					"flow", e.def.ID,
					"node", node.ID,
					"err", err,
				)
				ok = false
			}
			if !ok {
				matched = false
				break
			}
		}
		if matched {
			return tr.Target, nil
		}
	}

	if node.DefaultTransition != "" {
		return node.DefaultTransition, nil
	}
	return "", &domain.UnresolvedTransitionError{NodeID: node.ID}
}

// evalCondition checks one condition against the session context, with the
// reserved "input" field referring to the current turn's input.
func evalCondition(cond domain.Condition, ctx map[string]any, input string) (bool, error) {
	if cond.Type == domain.ConditionAlways {
		return true, nil
	}

	var value string
	if cond.Field == domain.InputField {
		value = input
	} else {
		v, ok := lookupPath(ctx, cond.Field)
		if !ok {
			return false, nil
		}
		value = fmt.Sprintf("%v", v)
	}

	switch cond.Type {
	case domain.ConditionEquals:
		return value == cond.Value, nil
	case domain.ConditionContains:
		return strings.Contains(value, cond.Value), nil
	case domain.ConditionRegex:
		re, err := regexp.Compile(cond.Value)
		if err != nil {
			return false, &domain.ConditionError{Field: cond.Field, Type: cond.Type, Err: err}
		}
		return re.MatchString(value), nil
	case domain.ConditionInList:
		return slices.Contains(cond.Values, value), nil
	default:
		return false, &domain.ConditionError{
			Field: cond.Field,
			Type:  cond.Type,
			Err:   fmt.Errorf("unknown condition type"),
		}
	}
}

// renderMenu builds the menu text: the rendered prompt followed by the
// numbered option labels.
func renderMenu(node domain.Node, ctx map[string]any) string {
	var b strings.Builder
	b.WriteString(renderTemplate(node.Prompt, ctx))
	for i, opt := range node.Options {
		b.WriteString(fmt.Sprintf("\n%d. %s", i+1, opt.Label))
	}
	return b.String()
}

// aiChatGreeting combines the node prompt with the exit hint.
func aiChatGreeting(node domain.Node, rendered string) string {
	cfg := node.AIConfig
	if cfg == nil || len(cfg.ExitKeywords) == 0 {
		return rendered
	}
	hint := fmt.Sprintf("(Type '%s' to exit)", cfg.ExitKeywords[0])
	if rendered == "" {
		return hint
	}
	return rendered + "\n" + hint
}
