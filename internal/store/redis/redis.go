package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/vovakirdan/studychat-server/internal/store"
)

// record is the JSON document kept in the Redis list.
type record struct {
	ID        string      `json:"id"`
	User      string      `json:"user"`
	Text      *string     `json:"text"`
	File      *fileRecord `json:"file"`
	CreatedAt time.Time   `json:"createdAt"`
}

type fileRecord struct {
	Name string `json:"name"`
	Path string `json:"path"`
}

// Store keeps the chat history as a Redis list, one JSON document per message.
// RPUSH preserves append order, so LRANGE returns messages oldest first.
type Store struct {
	client *goredis.Client
	key    string
}

// Options configures the Redis connection.
type Options struct {
	Addr     string
	Password string
	DB       int
	Key      string
}

// New connects to Redis and verifies the connection.
func New(ctx context.Context, opts Options) (*Store, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return NewWithClient(client, opts.Key), nil
}

// NewWithClient wraps an existing client.
func NewWithClient(client *goredis.Client, key string) *Store {
	if key == "" {
		key = "studychat:messages"
	}
	return &Store{client: client, key: key}
}

// Append pushes a message onto the history list.
func (s *Store) Append(ctx context.Context, msg store.Message) (store.Message, error) {
	rec := record{
		ID:        msg.ID,
		User:      msg.User,
		Text:      msg.Text,
		CreatedAt: msg.CreatedAt.UTC(),
	}
	if msg.File != nil {
		rec.File = &fileRecord{Name: msg.File.Name, Path: msg.File.Path}
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return store.Message{}, store.Wrap("append", fmt.Errorf("encode message: %w", err))
	}
	if err := s.client.RPush(ctx, s.key, data).Err(); err != nil {
		return store.Message{}, store.Wrap("append", fmt.Errorf("rpush: %w", err))
	}
	return msg, nil
}

// ListAll reads the full history list.
func (s *Store) ListAll(ctx context.Context) ([]store.Message, error) {
	items, err := s.client.LRange(ctx, s.key, 0, -1).Result()
	if err != nil {
		return nil, store.Wrap("list", fmt.Errorf("lrange: %w", err))
	}

	messages := make([]store.Message, 0, len(items))
	for _, item := range items {
		var rec record
		if err := json.Unmarshal([]byte(item), &rec); err != nil {
			return nil, store.Wrap("list", fmt.Errorf("decode message: %w", err))
		}
		msg := store.Message{
			ID:        rec.ID,
			User:      rec.User,
			Text:      rec.Text,
			CreatedAt: rec.CreatedAt,
		}
		if rec.File != nil {
			msg.File = &store.Attachment{Name: rec.File.Name, Path: rec.File.Path}
		}
		messages = append(messages, msg)
	}
	return messages, nil
}

// Close closes the Redis client.
func (s *Store) Close() error {
	return s.client.Close()
}
