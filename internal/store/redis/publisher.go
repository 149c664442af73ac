// Package redis pushes newly detected signals to the stream layer: an XADD
// onto a capped stream for replay plus a PUBLISH for live subscribers.
package redis

import (
	"context"
	"fmt"
	"log"
	"time"

	"stockbotv1/internal/model"

	goredis "github.com/go-redis/redis/v8"
)

const (
	// SignalStream is the capped Redis stream holding recent signal rows.
	SignalStream = "signals"

	// SignalChannel is the PubSub channel live subscribers listen on.
	SignalChannel = "pub:signals"

	// streamMaxLen bounds the replay stream; old entries are trimmed.
	streamMaxLen = 10000
)

// Config configures the Redis connection.
type Config struct {
	Addr     string // e.g. "localhost:6379"
	Password string
	DB       int
}

// Publisher writes signals to Redis. It implements model.SignalPublisher.
type Publisher struct {
	client *goredis.Client
}

// Client returns the underlying Redis client for health checks.
func (p *Publisher) Client() *goredis.Client { return p.client }

// NewPublisher creates a Publisher and pings the server.
func NewPublisher(cfg Config) (*Publisher, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	log.Printf("[redis] connected to %s", cfg.Addr)
	return &Publisher{client: client}, nil
}

// PublishSignal appends the signal to the capped stream and publishes it on
// the live channel in a single pipeline roundtrip.
func (p *Publisher) PublishSignal(ctx context.Context, sig model.Signal) error {
	data := string(sig.JSON())

	pipe := p.client.Pipeline()
	pipe.XAdd(ctx, &goredis.XAddArgs{
		Stream: SignalStream,
		MaxLen: streamMaxLen,
		Approx: true,
		Values: map[string]interface{}{"signal": data},
	})
	pipe.Publish(ctx, SignalChannel, data)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis publish signal: %w", err)
	}
	return nil
}

// Close closes the Redis connection.
func (p *Publisher) Close() error {
	return p.client.Close()
}
