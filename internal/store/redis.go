package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/bifrotek/voicebridge/internal/model/session"
)

const (
	sessionPrefix = "session:"
	queuePrefix   = "session_messages:"

	// Sessions and queues share a one hour TTL so abandoned browser
	// tabs age out of Redis on their own.
	entryTTL = time.Hour
)

// Redis is the cross-worker Store. Redis's per-key atomic operations
// are the only consistency guarantee between worker processes.
type Redis struct {
	rdb *redis.Client
}

// NewRedis wraps an established Redis client.
func NewRedis(rdb *redis.Client) *Redis {
	return &Redis{rdb: rdb}
}

// DialRedis parses a redis:// URL, connects and verifies the
// connection with a PING.
func DialRedis(ctx context.Context, url string) (*Redis, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return &Redis{rdb: rdb}, nil
}

func (r *Redis) SaveSession(ctx context.Context, s session.Session) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	if err := r.rdb.Set(ctx, sessionPrefix+s.ID, data, entryTTL).Err(); err != nil {
		return fmt.Errorf("save session %s: %w", s.ID, err)
	}
	return nil
}

func (r *Redis) GetSession(ctx context.Context, sessionID string) (session.Session, bool, error) {
	data, err := r.rdb.Get(ctx, sessionPrefix+sessionID).Bytes()
	if err == redis.Nil {
		return session.Session{}, false, nil
	}
	if err != nil {
		return session.Session{}, false, fmt.Errorf("get session %s: %w", sessionID, err)
	}

	var s session.Session
	if err := json.Unmarshal(data, &s); err != nil {
		return session.Session{}, false, fmt.Errorf("unmarshal session %s: %w", sessionID, err)
	}
	return s, true, nil
}

func (r *Redis) DeleteSession(ctx context.Context, sessionID string) error {
	if err := r.rdb.Del(ctx, sessionPrefix+sessionID, queuePrefix+sessionID).Err(); err != nil {
		return fmt.Errorf("delete session %s: %w", sessionID, err)
	}
	return nil
}

func (r *Redis) ListSessionIDs(ctx context.Context) ([]string, error) {
	var ids []string
	iter := r.rdb.Scan(ctx, 0, sessionPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		ids = append(ids, strings.TrimPrefix(iter.Val(), sessionPrefix))
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("scan sessions: %w", err)
	}
	return ids, nil
}

func (r *Redis) AppendMessage(ctx context.Context, sessionID string, msg session.Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	key := queuePrefix + sessionID
	pipe := r.rdb.TxPipeline()
	pipe.RPush(ctx, key, data)
	pipe.Expire(ctx, key, entryTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("enqueue message for %s: %w", sessionID, err)
	}
	return nil
}

// DrainMessages reads then deletes the queue in one transaction, so a
// concurrent enqueue either lands before the read or survives for the
// next drain, never both.
func (r *Redis) DrainMessages(ctx context.Context, sessionID string) ([]session.Message, error) {
	key := queuePrefix + sessionID

	pipe := r.rdb.TxPipeline()
	rangeCmd := pipe.LRange(ctx, key, 0, -1)
	pipe.Del(ctx, key)
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("drain messages for %s: %w", sessionID, err)
	}

	raw := rangeCmd.Val()
	if len(raw) == 0 {
		return nil, nil
	}

	messages := make([]session.Message, 0, len(raw))
	for _, item := range raw {
		var msg session.Message
		if err := json.Unmarshal([]byte(item), &msg); err != nil {
			return nil, fmt.Errorf("unmarshal queued message for %s: %w", sessionID, err)
		}
		messages = append(messages, msg)
	}
	return messages, nil
}

func (r *Redis) Ping(ctx context.Context) error {
	return r.rdb.Ping(ctx).Err()
}
