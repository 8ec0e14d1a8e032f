package replay

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const opTimeout = 5 * time.Second

// RedisStore keeps the replay index and records in Redis, for deployments
// where several tools (stats jobs, a web viewer) read replays while the
// server runs. Selected by REDIS_URL; the file store remains the default.
//
// Keys: gm:replay:last (counter), gm:replay:index (list of index lines),
// gm:replay:record:<n> (newline-joined steps).
type RedisStore struct {
	rdb *redis.Client
}

// OpenRedisStore connects and pings before returning.
func OpenRedisStore(redisURL string) (*RedisStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	rdb := redis.NewClient(opts)
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &RedisStore{rdb: rdb}, nil
}

func keyLast() string        { return "gm:replay:last" }
func keyIndex() string       { return "gm:replay:index" }
func keyRecord(n int) string { return fmt.Sprintf("gm:replay:record:%d", n) }

func (s *RedisStore) Save(ctx context.Context, steps []string, player1, player2 string) (int, error) {
	n, err := s.rdb.Incr(ctx, keyLast()).Result()
	if err != nil {
		return 0, fmt.Errorf("advance replay counter: %w", err)
	}
	index := int(n)
	entry := IndexEntry{Index: index, Player1: player1, Player2: player2}

	pipe := s.rdb.TxPipeline()
	pipe.Set(ctx, keyRecord(index), strings.Join(steps, "\n"), 0)
	pipe.RPush(ctx, keyIndex(), entry.line())
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("persist replay %d: %w", index, err)
	}
	return index, nil
}

func (s *RedisStore) ListIndicesForPlayer(ctx context.Context, name string) ([]int, error) {
	lines, err := s.rdb.LRange(ctx, keyIndex(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("read replay index: %w", err)
	}
	var out []int
	for _, line := range lines {
		e, ok := parseEntry(line)
		if !ok {
			continue
		}
		if e.Player1 == name || e.Player2 == name {
			out = append(out, e.Index)
		}
	}
	return out, nil
}

func (s *RedisStore) LoadSteps(ctx context.Context, index int) ([]string, error) {
	raw, err := s.rdb.Get(ctx, keyRecord(index)).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read replay record: %w", err)
	}
	if raw == "" {
		return nil, nil
	}
	return strings.Split(raw, "\n"), nil
}

func (s *RedisStore) Entries(ctx context.Context) ([]IndexEntry, error) {
	lines, err := s.rdb.LRange(ctx, keyIndex(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("read replay index: %w", err)
	}
	var out []IndexEntry
	for _, line := range lines {
		if e, ok := parseEntry(line); ok {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *RedisStore) Close() error {
	if s == nil || s.rdb == nil {
		return nil
	}
	return s.rdb.Close()
}
