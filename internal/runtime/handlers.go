package runtime

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/parleyflow/parley/pkg/domain"
)

// handleCollectInput validates the turn input, stores it under the node's
// output variable and advances. A failed validation keeps the session on
// the node and re-prompts with the rule's message.
func (e *Engine) handleCollectInput(ctx context.Context, sess *domain.Session, node domain.Node, input string, col *collector) error {
	if err := checkInput(node.Validations, input); err != nil {
		var verr *domain.ValidationError
		if !errors.As(err, &verr) {
			return err
		}
		e.rejectInput(sess, node, verr.Message, col)
		return nil
	}

	delete(sess.Attempts, node.ID)
	sess.Context[node.OutputVariable] = input

	jump, err := e.runActions(ctx, sess, node, col)
	if err != nil {
		return err
	}
	if jump != "" {
		return e.enterNode(ctx, sess, jump, col)
	}
	return e.advance(ctx, sess, node, input, col)
}

// handleMenu resolves the user's choice by 1-based position, label or
// value, stores the option value and routes to the option target when one
// is set, the transition table otherwise. An unrecognized choice follows
// the default transition; re-prompting is the fallback when the flow does
// not configure one.
func (e *Engine) handleMenu(ctx context.Context, sess *domain.Session, node domain.Node, input string, col *collector) error {
	opt, ok := resolveOption(node.Options, input)
	if !ok {
		if node.DefaultTransition != "" {
			delete(sess.Attempts, node.ID)
			return e.enterNode(ctx, sess, node.DefaultTransition, col)
		}
		e.rejectInput(sess, node, "Please choose one of the listed options.", col)
		col.add(renderMenu(node, sess.Context))
		return nil
	}

	delete(sess.Attempts, node.ID)
	if node.OutputVariable != "" {
		sess.Context[node.OutputVariable] = opt.Value
	}

	jump, err := e.runActions(ctx, sess, node, col)
	if err != nil {
		return err
	}
	switch {
	case jump != "":
		return e.enterNode(ctx, sess, jump, col)
	case opt.Target != "":
		return e.enterNode(ctx, sess, opt.Target, col)
	default:
		return e.advance(ctx, sess, node, opt.Value, col)
	}
}

// handleProcessMedia accepts a media reference, checks it against the
// node's allowed types and stores it.
func (e *Engine) handleProcessMedia(ctx context.Context, sess *domain.Session, node domain.Node, input string, col *collector) error {
	reference := strings.TrimSpace(input)
	if reference == "" {
		e.rejectInput(sess, node, "Please send a file.", col)
		return nil
	}
	if cfg := node.MediaConfig; cfg != nil && len(cfg.AllowedTypes) > 0 {
		if !mediaTypeAllowed(reference, cfg.AllowedTypes) {
			msg := fmt.Sprintf("Unsupported file type. Allowed: %s.", strings.Join(cfg.AllowedTypes, ", "))
			e.rejectInput(sess, node, msg, col)
			return nil
		}
	}

	delete(sess.Attempts, node.ID)
	sess.Context[node.OutputVariable] = reference
	if cfg := node.MediaConfig; cfg != nil && cfg.StorageKey != "" {
		// Stable key downstream actions read the reference from, so flows
		// can rename output_variable without breaking their actions.
		sess.Context[cfg.StorageKey] = reference
	}

	jump, err := e.runActions(ctx, sess, node, col)
	if err != nil {
		return err
	}
	if jump != "" {
		return e.enterNode(ctx, sess, jump, col)
	}
	return e.advance(ctx, sess, node, reference, col)
}

// rejectInput records a failed attempt and emits the rejection message.
func (e *Engine) rejectInput(sess *domain.Session, node domain.Node, msg string, col *collector) {
	sess.Attempts[node.ID]++
	col.add(msg)
	if e.metrics != nil {
		e.metrics.ValidationFailures.WithLabelValues(e.def.ID, node.ID).Inc()
	}
	e.logger.Debug("input rejected",
		"flow", e.def.ID,
		"node", node.ID,
		"attempt", sess.Attempts[node.ID],
	)
}

// resolveOption matches the reply against the menu: a number selects by
// 1-based position, otherwise the label and then the value are compared
// case-insensitively.
func resolveOption(options []domain.MenuOption, input string) (domain.MenuOption, bool) {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return domain.MenuOption{}, false
	}

	if idx, err := strconv.Atoi(trimmed); err == nil {
		if idx >= 1 && idx <= len(options) {
			return options[idx-1], true
		}
		return domain.MenuOption{}, false
	}

	for _, opt := range options {
		if strings.EqualFold(opt.Label, trimmed) {
			return opt, true
		}
	}
	for _, opt := range options {
		if strings.EqualFold(opt.Value, trimmed) {
			return opt, true
		}
	}
	return domain.MenuOption{}, false
}

// mediaTypeAllowed matches the reference's extension (or the whole value,
// for bare type names) against the configured list.
func mediaTypeAllowed(reference string, allowed []string) bool {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(reference)), ".")
	lower := strings.ToLower(reference)
	for _, t := range allowed {
		t = strings.ToLower(strings.TrimPrefix(t, "."))
		if ext == t || lower == t {
			return true
		}
	}
	return false
}
