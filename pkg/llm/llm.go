package llm

import "context"

// Companion is the conversational assistant elderly users can chat with.
// The completion backend stays behind this interface.
type Companion interface {
	// Reply returns the assistant's answer to one user message,
	// keeping a short per-user conversation history.
	Reply(ctx context.Context, userID, text string) (string, error)

	// Reset clears the conversation history for a user
	Reset(userID string)
}
