package store

import (
	"context"
	"encoding/json"
	"path"
	"sort"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/xlog"
	"github.com/redis/go-redis/v9"
	"github.com/suckgeun/mcp-sample/pkg/llms"
)

// The redis store keeps the conversations between runs,
// so a chat can be resumed by its ID.
// The keys namespace is organized as follows:
// - `<prefix>/chatstore/messages/<chatID>` list of JSON messages
// - `<prefix>/chatstore/info/<chatID>` JSON of ChatInfo
// - `<prefix>/chatstore/chats` set of chat IDs

type redisStore struct {
	client redis.UniversalClient
	prefix string
}

// NewRedisStore returns the store over the Redis client.
func NewRedisStore(client redis.UniversalClient, prefix string) MessageStore {
	return &redisStore{
		client: client,
		prefix: prefix,
	}
}

// OpenRedisStore connects to the Redis server by URL,
// for example redis://localhost:6379/0
func OpenRedisStore(ctx context.Context, url, prefix string) (MessageStore, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, errors.Wrap(err, "invalid redis url")
	}
	client := redis.NewClient(opts)
	if err = client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, errors.Wrap(err, "failed to connect to Redis")
	}
	return NewRedisStore(client, prefix), nil
}

func (m *redisStore) messagesKey(chatID string) string {
	return path.Join(m.prefix, "chatstore", "messages", chatID)
}

func (m *redisStore) infoKey(chatID string) string {
	return path.Join(m.prefix, "chatstore", "info", chatID)
}

func (m *redisStore) listKey() string {
	return path.Join(m.prefix, "chatstore", "chats")
}

func (m *redisStore) Messages(ctx context.Context) ([]llms.Message, error) {
	id, err := chatID(ctx)
	if err != nil {
		return nil, err
	}
	list, err := m.messages(ctx, id)
	if err != nil {
		logger.ContextKV(ctx, xlog.ERROR, "reason", "messages", "chat_id", id, "err", err.Error())
		return nil, err
	}
	return list, nil
}

func (m *redisStore) messages(ctx context.Context, id string) ([]llms.Message, error) {
	data, err := m.client.LRange(ctx, m.messagesKey(id), 0, -1).Result()
	if err != nil {
		return nil, errors.Wrap(err, "failed to get messages from Redis")
	}

	messages := make([]llms.Message, 0, len(data))
	for _, item := range data {
		var msg llms.Message
		if err := json.Unmarshal([]byte(item), &msg); err != nil {
			return nil, errors.Wrap(err, "failed to unmarshal message")
		}
		messages = append(messages, msg)
	}
	return messages, nil
}

func (m *redisStore) Add(ctx context.Context, msgs ...llms.Message) error {
	id, err := chatID(ctx)
	if err != nil {
		return err
	}
	if len(msgs) == 0 {
		return nil
	}

	values := make([]any, 0, len(msgs))
	for _, msg := range msgs {
		data, err := json.Marshal(msg)
		if err != nil {
			return errors.Wrap(err, "failed to marshal message")
		}
		values = append(values, data)
	}

	if err = m.client.RPush(ctx, m.messagesKey(id), values...).Err(); err != nil {
		return errors.Wrap(err, "failed to store message in Redis")
	}

	return m.UpdateChat(ctx, "", nil)
}

func (m *redisStore) Reset(ctx context.Context) error {
	id, err := chatID(ctx)
	if err != nil {
		return err
	}

	pipe := m.client.Pipeline()
	pipe.Del(ctx, m.messagesKey(id))
	pipe.Del(ctx, m.infoKey(id))
	pipe.SRem(ctx, m.listKey(), id)
	if _, err = pipe.Exec(ctx); err != nil {
		return errors.Wrap(err, "failed to reset chat in Redis")
	}
	return nil
}

func (m *redisStore) UpdateChat(ctx context.Context, title string, metadata map[string]any) error {
	id, err := chatID(ctx)
	if err != nil {
		return err
	}

	chat, err := m.getChatInfo(ctx, id)
	if err != nil {
		return err
	}
	isNew := chat == nil
	if isNew {
		chat = newChatInfo(id)
	}
	chat.update(title, metadata)

	data, err := json.Marshal(chat)
	if err != nil {
		return errors.Wrap(err, "failed to marshal chat info")
	}

	pipe := m.client.Pipeline()
	pipe.Set(ctx, m.infoKey(id), data, 0)
	if isNew {
		pipe.SAdd(ctx, m.listKey(), id)
	}
	if _, err = pipe.Exec(ctx); err != nil {
		return errors.Wrap(err, "failed to store chat info in Redis")
	}
	return nil
}

func (m *redisStore) ListChats(ctx context.Context) ([]string, error) {
	if _, err := chatID(ctx); err != nil {
		return nil, err
	}

	list, err := m.client.SMembers(ctx, m.listKey()).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "failed to list chats from Redis")
	}
	sort.Strings(list)
	return list, nil
}

func (m *redisStore) GetChatInfo(ctx context.Context, id string) (*ChatInfo, error) {
	ctxID, err := chatID(ctx)
	if err != nil {
		return nil, err
	}
	if id == "" {
		id = ctxID
	}

	info, err := m.getChatInfo(ctx, id)
	if err != nil {
		return nil, err
	}
	if info == nil {
		return nil, errors.Mark(errors.Newf("chat not found: %s", id), ErrChatNotFound)
	}
	if info.Messages, err = m.messages(ctx, id); err != nil {
		return nil, err
	}
	return info, nil
}

// getChatInfo returns nil if the chat does not exist.
func (m *redisStore) getChatInfo(ctx context.Context, id string) (*ChatInfo, error) {
	data, err := m.client.Get(ctx, m.infoKey(id)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "failed to get chat info from Redis")
	}

	chat := new(ChatInfo)
	if err = json.Unmarshal([]byte(data), chat); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal chat info")
	}
	return chat, nil
}
