package attemptlog

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/yourorg/gateway-notify/internal/payment"
	"github.com/yourorg/gateway-notify/internal/store"
)

// Sink is a destination for attempt records.
type Sink interface {
	Name() string
	Write(ctx context.Context, attempt payment.Attempt) error
}

// StoreSink writes attempts to the attempt log store.
type StoreSink struct {
	store store.AttemptLogStore
}

// NewStoreSink wraps an AttemptLogStore.
func NewStoreSink(s store.AttemptLogStore) *StoreSink {
	if s == nil {
		panic("AttemptLogStore cannot be nil")
	}
	return &StoreSink{store: s}
}

func (s *StoreSink) Name() string { return "store" }

func (s *StoreSink) Write(ctx context.Context, attempt payment.Attempt) error {
	return s.store.AppendAttempt(ctx, attempt)
}

// record is the JSON shape written by the Redis and slog sinks.
type record struct {
	ID        string    `json:"id"`
	OrderID   *string   `json:"order_id"`
	Gateway   string    `json:"gateway"`
	Kind      string    `json:"kind,omitempty"`
	Message   string    `json:"message"`
	Success   int       `json:"success"`
	Request   string    `json:"request"`
	Response  string    `json:"response"`
	TraceID   string    `json:"trace_id,omitempty"`
	SpanID    string    `json:"span_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

func toRecord(a payment.Attempt) record {
	return record{
		ID: a.ID, OrderID: a.OrderID, Gateway: a.Gateway, Kind: a.Kind,
		Message: a.Message, Success: a.SuccessFlag(), Request: a.Request,
		Response: a.Response, TraceID: a.TraceID, SpanID: a.SpanID, CreatedAt: a.CreatedAt,
	}
}

// ListPusher is the subset of the go-redis client the Redis sink uses.
type ListPusher interface {
	RPush(ctx context.Context, key string, values ...interface{}) *redis.IntCmd
	LTrim(ctx context.Context, key string, start, stop int64) *redis.StatusCmd
}

// RedisSink appends attempts as JSON to a capped Redis list.
type RedisSink struct {
	client ListPusher
	key    string
	maxLen int64
}

// NewRedisSink creates a RedisSink. maxLen <= 0 leaves the list uncapped.
func NewRedisSink(client ListPusher, key string, maxLen int64) *RedisSink {
	if client == nil {
		panic("redis client cannot be nil")
	}
	if key == "" {
		key = "notify:attempts"
	}
	return &RedisSink{client: client, key: key, maxLen: maxLen}
}

func (s *RedisSink) Name() string { return "redis" }

func (s *RedisSink) Write(ctx context.Context, attempt payment.Attempt) error {
	b, err := json.Marshal(toRecord(attempt))
	if err != nil {
		return fmt.Errorf("attemptlog: encode attempt %s: %w", attempt.ID, err)
	}
	if err := s.client.RPush(ctx, s.key, b).Err(); err != nil {
		return fmt.Errorf("attemptlog: rpush %s: %w", s.key, err)
	}
	if s.maxLen > 0 {
		if err := s.client.LTrim(ctx, s.key, -s.maxLen, -1).Err(); err != nil {
			return fmt.Errorf("attemptlog: ltrim %s: %w", s.key, err)
		}
	}
	return nil
}

// SlogSink writes attempts to a structured logger. It is the last resort
// when no other sink is available.
type SlogSink struct {
	logger *slog.Logger
}

// NewSlogSink creates a SlogSink; a nil logger means slog.Default().
func NewSlogSink(logger *slog.Logger) *SlogSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &SlogSink{logger: logger}
}

func (s *SlogSink) Name() string { return "slog" }

func (s *SlogSink) Write(ctx context.Context, attempt payment.Attempt) error {
	r := toRecord(attempt)
	s.logger.LogAttrs(ctx, slog.LevelWarn, "AttemptLog: attempt written to fallback log",
		slog.String("attempt_id", r.ID),
		slog.String("order_id", attempt.OrderRef()),
		slog.String("gateway", r.Gateway),
		slog.String("kind", r.Kind),
		slog.String("message", r.Message),
		slog.Int("success", r.Success),
		slog.String("request", r.Request),
		slog.String("response", r.Response),
	)
	return nil
}
