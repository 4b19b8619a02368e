// Package audit records one entry per handled request. Entries go to a log
// file or a Redis stream depending on configuration.
package audit

import (
	"context"
	"fmt"
	"time"

	"github.com/raizurai/userhub/internal/config"
)

type Record struct {
	RequestID string    `json:"request_id"`
	Method    string    `json:"method"`
	Path      string    `json:"path"`
	Client    string    `json:"client"`
	Status    int       `json:"status"`
	ElapsedMS int64     `json:"elapsed_ms"`
	At        time.Time `json:"at"`
}

type Sink interface {
	Write(ctx context.Context, rec Record) error
	Close() error
}

type NopSink struct{}

func (NopSink) Write(context.Context, Record) error { return nil }
func (NopSink) Close() error                        { return nil }

// NewSink builds the sink selected by cfg.Sink. rot applies to the file sink.
func NewSink(ctx context.Context, cfg config.AuditConfig, rot config.RotationConfig) (Sink, error) {
	switch cfg.Sink {
	case "", "none":
		return NopSink{}, nil
	case "file":
		s, err := NewFileSink(cfg.File, rot)
		if err != nil {
			return nil, err
		}

		return s, nil
	case "redis":
		s := NewRedisSink(RedisConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			Stream:   cfg.RedisStream,
		})

		if err := s.Ping(ctx); err != nil {
			_ = s.Close()
			return nil, fmt.Errorf("audit redis ping: %w", err)
		}

		return s, nil
	default:
		return nil, fmt.Errorf("unsupported audit sink %q", cfg.Sink)
	}
}
