// ABOUTME: Session drives one conversation: seed, greet, ask, and usage totals
// ABOUTME: Assistant turns and usage are only recorded for successful completions
package core

import (
	"context"
	"io"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/harper/converse-standalone/internal/llm"
	"github.com/harper/converse-standalone/internal/models"
)

// Completer turns a history into a completion. *llm.Gateway satisfies it.
type Completer interface {
	Complete(ctx context.Context, history []models.Turn, maxTokens int, temperature float64) (llm.Completion, error)
}

// Options parameterize a session
type Options struct {
	MaxTokens     int
	Temperature   float64
	SystemMessage string
}

// Session owns the conversation store and the accumulated usage
type Session struct {
	id        string
	store     *ConversationStore
	completer Completer
	opts      Options
	usage     models.Usage
	logger    *log.Logger
}

// NewSession creates a session whose history is seeded with opts.SystemMessage
func NewSession(completer Completer, opts Options, logger *log.Logger) *Session {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	id := uuid.New().String()

	return &Session{
		id:        id,
		store:     NewConversationStore(opts.SystemMessage),
		completer: completer,
		opts:      opts,
		logger:    logger.With("session", id[:8]),
	}
}

// ID returns the session identifier used in log records
func (s *Session) ID() string {
	return s.id
}

// Greet asks the service to open the conversation using only the seeded history
func (s *Session) Greet(ctx context.Context) (llm.Completion, error) {
	return s.complete(ctx)
}

// Ask appends a user turn and requests a reply.
// On failure the user turn stays in the history; no assistant turn is added
// and usage is unchanged.
func (s *Session) Ask(ctx context.Context, text string) (llm.Completion, error) {
	s.store.Append(models.UserTurn(text))
	return s.complete(ctx)
}

func (s *Session) complete(ctx context.Context) (llm.Completion, error) {
	history := s.store.Snapshot()
	s.logger.Debug("requesting completion", "turns", len(history))

	completion, err := s.completer.Complete(ctx, history, s.opts.MaxTokens, s.opts.Temperature)
	if err != nil {
		s.logger.Debug("completion failed", "error", err)
		return llm.Completion{}, err
	}

	s.store.Append(models.AssistantTurn(completion.Text))
	s.usage = s.usage.Add(completion.Usage)
	s.logger.Debug("turn recorded",
		"turns", s.store.Len(),
		"prompt_total", s.usage.PromptTokens,
		"completion_total", s.usage.CompletionTokens,
		"total", s.usage.Total())

	return completion, nil
}

// History returns the conversation so far in order
func (s *Session) History() []models.Turn {
	return s.store.Snapshot()
}

// Usage returns token counters summed over successful completions
func (s *Session) Usage() models.Usage {
	return s.usage
}

