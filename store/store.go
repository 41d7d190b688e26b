// Package store provides conversation stores keyed by the chat ID of the context.
package store

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/xlog"
	"github.com/suckgeun/mcp-sample/chatmodel"
	"github.com/suckgeun/mcp-sample/pkg/llms"
)

var logger = xlog.NewPackageLogger("github.com/suckgeun/mcp-sample", "store")

// ErrChatNotFound is returned by GetChatInfo for an unknown chat ID.
var ErrChatNotFound = errors.New("chat not found")

// MessageStore keeps the conversation history of chats.
// The chat is identified by chatmodel.ChatContext of the context.
type MessageStore interface {
	// Messages returns the conversation in the order it was added.
	Messages(ctx context.Context) ([]llms.Message, error)
	// Add appends the messages to the conversation.
	Add(ctx context.Context, msgs ...llms.Message) error
	// Reset deletes the conversation.
	Reset(ctx context.Context) error
	// UpdateChat creates or updates the chat info with the title and metadata.
	UpdateChat(ctx context.Context, title string, metadata map[string]any) error
	// ListChats returns the IDs of the stored chats.
	ListChats(ctx context.Context) ([]string, error)
	// GetChatInfo returns the chat info with the messages,
	// if id is empty, the chat ID of the context is used.
	GetChatInfo(ctx context.Context, id string) (*ChatInfo, error)
}

// ChatInfo describes a stored chat
type ChatInfo struct {
	ChatID    string         `json:"chat_id" yaml:"chat_id"`
	Title     string         `json:"title" yaml:"title"`
	CreatedAt time.Time      `json:"created_at" yaml:"created_at"`
	UpdatedAt time.Time      `json:"updated_at" yaml:"updated_at"`
	Metadata  map[string]any `json:"metadata,omitempty" yaml:"metadata,omitempty"`

	Messages []llms.Message `json:"messages,omitempty" yaml:"-"`
}

func chatID(ctx context.Context) (string, error) {
	id := chatmodel.GetChatID(ctx)
	if id == "" {
		return "", chatmodel.ErrInvalidChatContext
	}
	return id, nil
}

func newChatInfo(id string) *ChatInfo {
	now := time.Now()
	return &ChatInfo{
		ChatID:    id,
		Title:     "New Chat",
		CreatedAt: now,
		UpdatedAt: now,
		Metadata:  make(map[string]any),
	}
}

func (c *ChatInfo) update(title string, metadata map[string]any) {
	if title != "" {
		c.Title = title
	}
	if metadata != nil {
		if c.Metadata == nil {
			c.Metadata = make(map[string]any)
		}
		for k, v := range metadata {
			c.Metadata[k] = v
		}
	}
	c.UpdatedAt = time.Now()
}
