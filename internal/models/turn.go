// ABOUTME: Turn represents a single message exchanged in a conversation
// ABOUTME: A turn pairs the authoring role with its text and is never mutated
package models

import (
	openai "github.com/sashabaranov/go-openai"
)

// Role identifies who authored a turn
type Role string

const (
	// RoleSystem carries instructions for the assistant
	RoleSystem Role = openai.ChatMessageRoleSystem
	// RoleUser is a message typed by the human
	RoleUser Role = openai.ChatMessageRoleUser
	// RoleAssistant is a reply produced by the model
	RoleAssistant Role = openai.ChatMessageRoleAssistant
)

// Turn is one immutable (role, content) pair.
// It is passed by value so holders cannot change another holder's copy.
type Turn struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// NewTurn creates a turn. Any role/content pair is accepted.
func NewTurn(role Role, content string) Turn {
	return Turn{Role: role, Content: content}
}

// SystemTurn creates a system instruction turn
func SystemTurn(content string) Turn { return NewTurn(RoleSystem, content) }

// UserTurn creates a user turn
func UserTurn(content string) Turn { return NewTurn(RoleUser, content) }

// AssistantTurn creates an assistant reply turn
func AssistantTurn(content string) Turn { return NewTurn(RoleAssistant, content) }
