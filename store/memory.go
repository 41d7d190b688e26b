package store

import (
	"context"
	"slices"
	"sort"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/suckgeun/mcp-sample/pkg/llms"
)

type inMemory struct {
	mu       sync.RWMutex
	messages map[string][]llms.Message
	chats    map[string]*ChatInfo
}

// NewMemoryStore returns a store that keeps the conversations until the process exits.
func NewMemoryStore() MessageStore {
	return &inMemory{
		messages: make(map[string][]llms.Message),
		chats:    make(map[string]*ChatInfo),
	}
}

func (m *inMemory) Messages(ctx context.Context) ([]llms.Message, error) {
	id, err := chatID(ctx)
	if err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Clone(m.messages[id]), nil
}

func (m *inMemory) Add(ctx context.Context, msgs ...llms.Message) error {
	id, err := chatID(ctx)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages[id] = append(m.messages[id], msgs...)
	m.chat(id).update("", nil)
	return nil
}

func (m *inMemory) Reset(ctx context.Context) error {
	id, err := chatID(ctx)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.messages, id)
	delete(m.chats, id)
	return nil
}

func (m *inMemory) UpdateChat(ctx context.Context, title string, metadata map[string]any) error {
	id, err := chatID(ctx)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.chat(id).update(title, metadata)
	return nil
}

func (m *inMemory) ListChats(ctx context.Context) ([]string, error) {
	if _, err := chatID(ctx); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	list := make([]string, 0, len(m.chats))
	for id := range m.chats {
		list = append(list, id)
	}
	sort.Strings(list)
	return list, nil
}

func (m *inMemory) GetChatInfo(ctx context.Context, id string) (*ChatInfo, error) {
	ctxID, err := chatID(ctx)
	if err != nil {
		return nil, err
	}
	if id == "" {
		id = ctxID
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	info, ok := m.chats[id]
	if !ok {
		return nil, errors.Mark(errors.Newf("chat not found: %s", id), ErrChatNotFound)
	}
	res := *info
	res.Metadata = make(map[string]any, len(info.Metadata))
	for k, v := range info.Metadata {
		res.Metadata[k] = v
	}
	res.Messages = slices.Clone(m.messages[id])
	return &res, nil
}

// chat returns the chat info, creating it on first use.
// Must be called with the lock held.
func (m *inMemory) chat(id string) *ChatInfo {
	info, ok := m.chats[id]
	if !ok {
		info = newChatInfo(id)
		m.chats[id] = info
	}
	return info
}
