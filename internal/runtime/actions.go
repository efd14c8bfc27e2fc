package runtime

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/parleyflow/parley/pkg/domain"
	"github.com/parleyflow/parley/pkg/ports"
)

// runActions executes the node's actions in order. It returns the node to
// jump to when an on_success or on_failure override fires, empty to follow
// the normal transition table. An error means the turn must fail with the
// session unchanged.
func (e *Engine) runActions(ctx context.Context, sess *domain.Session, node domain.Node, col *collector) (string, error) {
	for i, act := range node.Actions {
		name := act.Name
		if name == "" {
			name = fmt.Sprintf("%s#%d", node.ID, i+1)
		}

		err := e.runAction(ctx, sess, act, name)
		if err != nil {
			e.recordActionFailure(err)
			e.logger.Warn("action failed",
				"flow", e.def.ID,
				"node", node.ID,
				"action", name,
				"err", err,
			)
			if act.OnFailure != "" {
				return act.OnFailure, nil
			}
			return "", err
		}

		e.logger.Debug("action succeeded", "flow", e.def.ID, "node", node.ID, "action", name)

		// An on_success override short-circuits the remaining actions.
		if act.OnSuccess != "" {
			return act.OnSuccess, nil
		}
	}
	return "", nil
}

func (e *Engine) runAction(ctx context.Context, sess *domain.Session, act domain.Action, name string) error {
	body := make(map[string]any, len(act.Input))
	for key, varName := range act.Input {
		v, ok := lookupPath(sess.Context, varName)
		if !ok {
			return &domain.ActionError{
				Action: name,
				Kind:   domain.ActionErrBinding,
				Err:    fmt.Errorf("input variable %q is not set", varName),
			}
		}
		body[key] = v
	}

	if e.caller == nil {
		return &domain.ActionError{
			Action: name,
			Kind:   domain.ActionErrBinding,
			Err:    errors.New("no action caller configured"),
		}
	}

	headers := make(map[string]string, len(act.Headers))
	for k, v := range act.Headers {
		headers[k] = renderTemplate(v, sess.Context)
	}

	timeout := e.actionTimeout
	if act.TimeoutSeconds > 0 {
		timeout = time.Duration(act.TimeoutSeconds) * time.Second
	}

	out, err := e.caller.Invoke(ctx, ports.CallRequest{
		Name:    name,
		URL:     renderTemplate(act.URL, sess.Context),
		Method:  act.Method,
		Headers: headers,
		Body:    body,
		Timeout: timeout,
	})
	if err != nil {
		return err
	}

	// Bind outputs by name. A declared field missing from the response is
	// a failed action, so on_failure routing applies; nothing is bound in
	// that case.
	bound := make(map[string]any, len(act.Output))
	for varName, fieldName := range act.Output {
		v, ok := findField(out, fieldName)
		if !ok {
			return &domain.ActionError{
				Action: name,
				Kind:   domain.ActionErrBinding,
				Err:    fmt.Errorf("response is missing output field %q", fieldName),
			}
		}
		bound[varName] = v
	}
	for varName, v := range bound {
		sess.Context[varName] = v
	}
	return nil
}

func (e *Engine) recordActionFailure(err error) {
	if e.metrics == nil {
		return
	}
	kind := "unknown"
	var aerr *domain.ActionError
	if errors.As(err, &aerr) {
		kind = string(aerr.Kind)
	}
	e.metrics.ActionFailures.WithLabelValues(e.def.ID, kind).Inc()
}

// findField searches the response payload for a field by name, descending
// into nested objects and arrays. The first match wins.
func findField(payload any, field string) (any, bool) {
	switch v := payload.(type) {
	case map[string]any:
		if val, ok := v[field]; ok {
			return val, true
		}
		for _, nested := range v {
			if val, ok := findField(nested, field); ok {
				return val, true
			}
		}
	case []any:
		for _, item := range v {
			if val, ok := findField(item, field); ok {
				return val, true
			}
		}
	}
	return nil, false
}
