package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"stockbotv1/internal/model"

	goredis "github.com/go-redis/redis/v8"
)

// Subscriber consumes live signal messages for fan-out to WebSocket clients.
type Subscriber struct {
	client *goredis.Client
}

// NewSubscriber creates a Subscriber and pings the server.
func NewSubscriber(cfg Config) (*Subscriber, error) {
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

	return &Subscriber{client: client}, nil
}

// Run subscribes to the live signal channel and forwards decoded signals to
// out, ascending in publish order. Blocks until ctx is cancelled.
func (s *Subscriber) Run(ctx context.Context, out chan<- model.Signal) {
	pubsub := s.client.Subscribe(ctx, SignalChannel)
	defer pubsub.Close()

	ch := pubsub.Channel()
	log.Printf("[redis] subscribed to %s", SignalChannel)

	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var sig model.Signal
			if err := json.Unmarshal([]byte(msg.Payload), &sig); err != nil {
				log.Printf("[redis] dropping undecodable signal message: %v", err)
				continue
			}
			select {
			case out <- sig:
			case <-ctx.Done():
				return
			}
		}
	}
}

// Close closes the Redis connection.
func (s *Subscriber) Close() error {
	return s.client.Close()
}
