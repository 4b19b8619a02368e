package audit

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// streamMaxLen caps the stream; trimming is approximate.
const streamMaxLen = 100_000

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Stream   string
}

// RedisSink appends records to a Redis stream with XADD.
type RedisSink struct {
	rdb    *redis.Client
	stream string
}

func NewRedisSink(cfg RedisConfig) *RedisSink {
	rdb := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
	})

	return &RedisSink{rdb: rdb, stream: cfg.Stream}
}

func (s *RedisSink) Ping(ctx context.Context) error {
	return s.rdb.Ping(ctx).Err()
}

func (s *RedisSink) Write(ctx context.Context, rec Record) error {
	return s.rdb.XAdd(ctx, &redis.XAddArgs{
		Stream: s.stream,
		MaxLen: streamMaxLen,
		Approx: true,
		Values: streamValues(rec),
	}).Err()
}

func (s *RedisSink) Close() error {
	return s.rdb.Close()
}

func streamValues(rec Record) map[string]any {
	return map[string]any{
		"request_id": rec.RequestID,
		"method":     rec.Method,
		"path":       rec.Path,
		"client":     rec.Client,
		"status":     strconv.Itoa(rec.Status),
		"elapsed_ms": strconv.FormatInt(rec.ElapsedMS, 10),
		"at":         rec.At.UTC().Format(time.RFC3339Nano),
	}
}
