// ABOUTME: Wire payloads for the chat-completion endpoint
// ABOUTME: Maps conversation history to a request and a reply back to a Completion
package llm

import (
	"encoding/json"
	"fmt"

	"github.com/harper/converse-standalone/internal/models"
	openai "github.com/sashabaranov/go-openai"
)

// RequestMessage is one entry of the request's messages array
type RequestMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// RequestPayload is the JSON body posted to the completion endpoint.
// Every field is always sent, including a zero temperature.
type RequestPayload struct {
	Messages    []RequestMessage `json:"messages"`
	MaxTokens   int              `json:"max_tokens"`
	Temperature float64          `json:"temperature"`
}

// NewRequestPayload builds a payload from history verbatim, without reordering or filtering
func NewRequestPayload(history []models.Turn, maxTokens int, temperature float64) RequestPayload {
	messages := make([]RequestMessage, 0, len(history))
	for _, turn := range history {
		messages = append(messages, RequestMessage{
			Role:    string(turn.Role),
			Content: turn.Content,
		})
	}
	return RequestPayload{
		Messages:    messages,
		MaxTokens:   maxTokens,
		Temperature: temperature,
	}
}

// Turns converts the payload messages back into conversation turns
func (p RequestPayload) Turns() []models.Turn {
	turns := make([]models.Turn, 0, len(p.Messages))
	for _, m := range p.Messages {
		turns = append(turns, models.NewTurn(models.Role(m.Role), m.Content))
	}
	return turns
}

// Completion is the part of a service reply the conversation cares about
type Completion struct {
	Text        string
	Usage       models.Usage
	TotalTokens int
}

// parseCompletion decodes a 2xx response body.
// The full reply shape (id, model, created, finish reason) is decoded so that
// a body of the wrong shape is rejected, then only text and usage are kept.
func parseCompletion(body []byte) (Completion, error) {
	var resp openai.ChatCompletionResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return Completion{}, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	if len(resp.Choices) == 0 {
		return Completion{}, fmt.Errorf("%w: no completion choices returned", ErrMalformedResponse)
	}

	return Completion{
		Text: resp.Choices[0].Message.Content,
		Usage: models.Usage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
		},
		TotalTokens: resp.Usage.TotalTokens,
	}, nil
}
