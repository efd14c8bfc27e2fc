package ports

import (
	"context"

	"github.com/parleyflow/parley/pkg/domain"
)

// CompletionRequest carries everything a model provider needs for one
// ai_chat turn. Messages is ordered oldest first and already trimmed to the
// node's history window.
type CompletionRequest struct {
	SystemPrompt string
	Model        string
	Messages     []domain.ChatMessage
	MaxTokens    int
	Temperature  float64
}

// Completer produces a model completion for an ai_chat node. Implementations
// wrap a concrete provider SDK; the engine selects one by the node's
// configured provider name.
type Completer interface {
	Complete(ctx context.Context, req CompletionRequest) (string, error)
}

// CompleterFunc adapts a function to the Completer interface.
type CompleterFunc func(ctx context.Context, req CompletionRequest) (string, error)

// Complete implements Completer.
func (f CompleterFunc) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	return f(ctx, req)
}
