// ABOUTME: ConversationStore is the ordered, append-only dialogue history
// ABOUTME: The whole history is replayed to the completion service on every request
package core

import (
	"fmt"

	"github.com/harper/converse-standalone/internal/models"
	"github.com/harper/converse-standalone/internal/util"
)

// ConversationStore holds turns in insertion order. It never shrinks.
// It is driven by a single control loop and is not safe for concurrent use.
type ConversationStore struct {
	turns []models.Turn
}

// NewConversationStore creates a store seeded with systemMessage at index 0.
// An empty systemMessage yields an empty store.
func NewConversationStore(systemMessage string) *ConversationStore {
	s := &ConversationStore{}
	if systemMessage != "" {
		s.Append(models.SystemTurn(systemMessage))
	}
	return s
}

// Append adds turn to the end of the history
func (s *ConversationStore) Append(turn models.Turn) {
	s.turns = append(s.turns, turn)
}

// Snapshot returns the full history in order.
// The returned slice is a copy; changing it does not affect the store.
func (s *ConversationStore) Snapshot() []models.Turn {
	out := make([]models.Turn, len(s.turns))
	copy(out, s.turns)
	return out
}

// Len returns the number of stored turns
func (s *ConversationStore) Len() int {
	return len(s.turns)
}

// RenderForDisplay formats a turn as "role: content" for history listings.
// Content longer than width runes is truncated in the output only.
func RenderForDisplay(turn models.Turn, width int) string {
	return fmt.Sprintf("%s: %s", turn.Role, util.Truncate(turn.Content, width))
}
