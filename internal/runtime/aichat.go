package runtime

import (
	"context"
	"fmt"
	"strings"

	"github.com/parleyflow/parley/pkg/domain"
	"github.com/parleyflow/parley/pkg/ports"
)

// defaultHistoryWindow bounds the history sent to the model when the node
// enables include_chat_history without setting max_history_messages.
const defaultHistoryWindow = 10

// handleAIChat runs one model turn. Exit keywords are matched
// case-insensitively against the trimmed input and leave the chat via the
// configured exit node, the default transition, or by completing the
// session.
func (e *Engine) handleAIChat(ctx context.Context, sess *domain.Session, node domain.Node, input string, col *collector) error {
	cfg := node.AIConfig
	if cfg == nil {
		return fmt.Errorf("node %q: ai_chat without ai_config", node.ID)
	}

	if isExitKeyword(input, cfg.ExitKeywords) {
		target := cfg.ExitNodeID
		if target == "" {
			target = node.DefaultTransition
		}
		if target == "" {
			e.complete(sess)
			return nil
		}
		return e.enterNode(ctx, sess, target, col)
	}

	completer, err := e.completerFor(cfg.Provider)
	if err != nil {
		return fmt.Errorf("node %q: %w", node.ID, err)
	}

	req := ports.CompletionRequest{
		SystemPrompt: e.buildSystemPrompt(cfg, sess),
		Model:        cfg.Model,
		Messages:     chatWindow(sess, node, cfg, input),
	}

	started := e.clock()
	reply, err := completer.Complete(ctx, req)
	if err != nil {
		return fmt.Errorf("node %q: completion failed: %w", node.ID, err)
	}
	if e.metrics != nil {
		provider := cfg.Provider
		if provider == "" {
			provider = e.provider
		}
		e.metrics.CompletionDuration.WithLabelValues(e.def.ID, provider).
			Observe(e.clock().Sub(started).Seconds())
	}

	col.add(reply)
	sess.RecordMessage(domain.RoleAssistant, reply, node.ID, e.clock())
	sess.Status = domain.StatusAwaitingInput
	return nil
}

func (e *Engine) completerFor(provider string) (ports.Completer, error) {
	if provider == "" {
		provider = e.provider
	}
	c, ok := e.completers[provider]
	if !ok || c == nil {
		return nil, fmt.Errorf("no completer configured for provider %q", provider)
	}
	return c, nil
}

// buildSystemPrompt renders the configured prompt and appends the selected
// context variables so the model sees the facts collected so far.
func (e *Engine) buildSystemPrompt(cfg *domain.AIConfig, sess *domain.Session) string {
	prompt := renderTemplate(cfg.SystemPrompt, sess.Context)
	if len(cfg.ContextVariables) == 0 {
		return prompt
	}

	var lines []string
	for _, name := range cfg.ContextVariables {
		if v, ok := lookupPath(sess.Context, name); ok {
			lines = append(lines, fmt.Sprintf("%s: %v", name, v))
		}
	}
	if len(lines) == 0 {
		return prompt
	}
	return prompt + "\n\nContext:\n" + strings.Join(lines, "\n")
}

// chatWindow assembles the message list: a trailing slice of the recorded
// history when enabled, always ending with the current user input. The
// history slice includes only this node's exchanges so earlier flow
// prompts do not leak into the chat.
func chatWindow(sess *domain.Session, node domain.Node, cfg *domain.AIConfig, input string) []domain.ChatMessage {
	var msgs []domain.ChatMessage
	if cfg.IncludeChatHistory {
		limit := cfg.MaxHistoryMessages
		if limit <= 0 {
			limit = defaultHistoryWindow
		}
		for _, m := range sess.History {
			if m.NodeID == node.ID {
				msgs = append(msgs, m)
			}
		}
		if len(msgs) > limit {
			msgs = msgs[len(msgs)-limit:]
		}
	}

	// The current turn's input was already recorded in the history, so it
	// is the final user message when history is enabled; otherwise add it.
	if n := len(msgs); n == 0 || msgs[n-1].Role != domain.RoleUser || msgs[n-1].Content != input {
		msgs = append(msgs, domain.ChatMessage{Role: domain.RoleUser, Content: input})
	}
	return msgs
}

func isExitKeyword(input string, keywords []string) bool {
	cleaned := strings.ToLower(strings.TrimSpace(input))
	for _, kw := range keywords {
		if cleaned == strings.ToLower(strings.TrimSpace(kw)) {
			return true
		}
	}
	return false
}
