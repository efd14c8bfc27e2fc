package ports

import "context"

// ChannelAdapter delivers engine output to whatever surface hosts the
// conversation (web chat, messaging platform, terminal). The engine itself
// never knows the channel; hosts wire one in when they want push delivery
// instead of request/response.
type ChannelAdapter interface {
	// Deliver sends the messages of one turn to the given session's user,
	// in order.
	Deliver(ctx context.Context, sessionID string, messages []string) error
}
