package flow

import (
	"errors"
	"regexp"
	"slices"

	"github.com/go-playground/validator/v10"

	"github.com/parleyflow/parley/pkg/domain"
)

var structValidator = validator.New()

// Validate checks a flow definition for structural integrity: required
// fields, known node, validation and condition types, and node references
// that resolve. All violations are collected before failing.
func Validate(def *domain.FlowDefinition) error {
	ie := &domain.IntegrityError{FlowID: def.ID}

	if err := structValidator.Struct(def); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			for _, fe := range verrs {
				ie.Add("field %s violates %q constraint", fe.Namespace(), fe.Tag())
			}
		} else {
			ie.Add("struct validation: %v", err)
		}
		// Reference checks below assume the basic shape holds.
		return ie
	}

	if _, ok := def.Nodes[def.StartNodeID]; !ok {
		ie.Add("start_node_id %q does not exist", def.StartNodeID)
	}

	for id, node := range def.Nodes {
		if node.ID != id {
			ie.Add("node %q: id field %q does not match its key", id, node.ID)
		}
		validateNode(ie, def, node)
	}

	return ie.OrNil()
}

func validateNode(ie *domain.IntegrityError, def *domain.FlowDefinition, node domain.Node) {
	if !slices.Contains(domain.KnownNodeTypes, node.Type) {
		ie.Add("node %q: unknown type %q", node.ID, node.Type)
		return
	}

	switch node.Type {
	case domain.NodeCollectInput:
		if node.Prompt == "" {
			ie.Add("node %q: collect_input requires a prompt", node.ID)
		}
		if node.OutputVariable == "" {
			ie.Add("node %q: collect_input requires an output_variable", node.ID)
		}
	case domain.NodeMenu:
		if node.Prompt == "" {
			ie.Add("node %q: menu requires a prompt", node.ID)
		}
		if len(node.Options) == 0 {
			ie.Add("node %q: menu requires at least one option", node.ID)
		}
		for i, opt := range node.Options {
			if opt.Value == "" {
				ie.Add("node %q: option %d has no value", node.ID, i+1)
			}
			if opt.Label == "" {
				ie.Add("node %q: option %d has no label", node.ID, i+1)
			}
			checkRef(ie, def, node.ID, "option target", opt.Target)
		}
	case domain.NodeMessage:
		if node.Prompt == "" {
			ie.Add("node %q: message requires a prompt", node.ID)
		}
	case domain.NodeAIChat:
		if node.AIConfig == nil {
			ie.Add("node %q: ai_chat requires ai_config", node.ID)
		} else {
			if node.AIConfig.SystemPrompt == "" {
				ie.Add("node %q: ai_config requires a system_prompt", node.ID)
			}
			if node.AIConfig.MaxHistoryMessages < 0 {
				ie.Add("node %q: ai_config.max_history_messages must not be negative", node.ID)
			}
			checkRef(ie, def, node.ID, "ai_config.exit_node_id", node.AIConfig.ExitNodeID)
		}
	case domain.NodeProcessMedia:
		if node.OutputVariable == "" {
			ie.Add("node %q: process_media requires an output_variable", node.ID)
		}
	}

	checkRef(ie, def, node.ID, "default_transition", node.DefaultTransition)

	for i, tr := range node.Transitions {
		if tr.Target == "" {
			ie.Add("node %q: transition %d has no target", node.ID, i+1)
		} else {
			checkRef(ie, def, node.ID, "transition target", tr.Target)
		}
		for _, cond := range tr.Conditions {
			validateCondition(ie, node.ID, cond)
		}
	}

	for i, act := range node.Actions {
		if act.URL == "" {
			ie.Add("node %q: action %d has no url", node.ID, i+1)
		}
		checkRef(ie, def, node.ID, "action on_success", act.OnSuccess)
		checkRef(ie, def, node.ID, "action on_failure", act.OnFailure)
	}

	for _, rule := range node.Validations {
		validateRule(ie, node.ID, rule)
	}
}

func checkRef(ie *domain.IntegrityError, def *domain.FlowDefinition, nodeID, what, target string) {
	if target == "" {
		return
	}
	if _, ok := def.Nodes[target]; !ok {
		ie.Add("node %q: %s references unknown node %q", nodeID, what, target)
	}
}

func validateCondition(ie *domain.IntegrityError, nodeID string, cond domain.Condition) {
	if !slices.Contains(domain.KnownConditionTypes, cond.Type) {
		ie.Add("node %q: unknown condition type %q", nodeID, cond.Type)
		return
	}
	if cond.Type != domain.ConditionAlways && cond.Field == "" {
		ie.Add("node %q: condition %s requires a field", nodeID, cond.Type)
	}
	switch cond.Type {
	case domain.ConditionRegex:
		if _, err := regexp.Compile(cond.Value); err != nil {
			ie.Add("node %q: condition regex %q does not compile: %v", nodeID, cond.Value, err)
		}
	case domain.ConditionInList:
		if len(cond.Values) == 0 {
			ie.Add("node %q: condition in_list requires values", nodeID)
		}
	}
}

func validateRule(ie *domain.IntegrityError, nodeID string, rule domain.ValidationRule) {
	if !slices.Contains(domain.KnownValidationTypes, rule.Type) {
		ie.Add("node %q: unknown validation type %q", nodeID, rule.Type)
		return
	}
	switch rule.Type {
	case domain.ValidationLength:
		_, hasMin := numberParam(rule.Params, "min")
		_, hasMax := numberParam(rule.Params, "max")
		if !hasMin && !hasMax {
			ie.Add("node %q: validation length requires a %q or %q param", nodeID, "min", "max")
		}
	case domain.ValidationMinLength, domain.ValidationMaxLength:
		if _, ok := numberParam(rule.Params, "value"); !ok {
			ie.Add("node %q: validation %s requires a numeric %q param", nodeID, rule.Type, "value")
		}
	case domain.ValidationRegex:
		pattern, ok := rule.Params["pattern"].(string)
		if !ok {
			ie.Add("node %q: validation regex requires a %q param", nodeID, "pattern")
		} else if _, err := regexp.Compile(pattern); err != nil {
			ie.Add("node %q: validation regex %q does not compile: %v", nodeID, pattern, err)
		}
	case domain.ValidationRange:
		_, hasMin := numberParam(rule.Params, "min")
		_, hasMax := numberParam(rule.Params, "max")
		if !hasMin && !hasMax {
			ie.Add("node %q: validation range requires a %q or %q param", nodeID, "min", "max")
		}
	case domain.ValidationInList:
		if len(listParam(rule.Params, "values")) == 0 {
			ie.Add("node %q: validation in_list requires a %q param", nodeID, "values")
		}
	}
}

// numberParam reads a numeric rule parameter. Decoded documents may carry
// numbers as int or float64 depending on the source format.
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
	raw, ok := params[key].([]any)
	if !ok {
		if typed, ok := params[key].([]string); ok {
			return typed
		}
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
