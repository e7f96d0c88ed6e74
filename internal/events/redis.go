package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
)

// RedisPublisher appends match updates to a Redis stream.
// Calls go through a circuit breaker so a Redis outage costs one fast failure per update
// instead of a dial timeout on every score write.
type RedisPublisher struct {
	client  *redis.Client
	stream  string
	maxLen  int64
	breaker *gobreaker.CircuitBreaker
}

// RedisConfig tunes the publisher. Zero values pick the defaults.
type RedisConfig struct {
	Stream          string
	MaxLen          int64         // Approximate cap on stream length (default 10000)
	FailureLimit    uint32        // Consecutive failures before the breaker opens (default 3)
	BreakerCooldown time.Duration // How long the breaker stays open (default 30s)
}

func NewRedisPublisher(client *redis.Client, cfg RedisConfig, log *logrus.Logger) *RedisPublisher {
	if cfg.Stream == "" {
		cfg.Stream = "matchplay:match-updates"
	}
	if cfg.MaxLen == 0 {
		cfg.MaxLen = 10000
	}
	if cfg.FailureLimit == 0 {
		cfg.FailureLimit = 3
	}
	if cfg.BreakerCooldown == 0 {
		cfg.BreakerCooldown = 30 * time.Second
	}

	limit := cfg.FailureLimit
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "match-update-publisher",
		Timeout: cfg.BreakerCooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= limit
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.WithFields(logrus.Fields{
				"breaker":    name,
				"from_state": from.String(),
				"to_state":   to.String(),
			}).Warn("Match update publisher circuit breaker state changed")
		},
	})

	return &RedisPublisher{
		client:  client,
		stream:  cfg.Stream,
		maxLen:  cfg.MaxLen,
		breaker: cb,
	}
}

func (p *RedisPublisher) Publish(ctx context.Context, u MatchUpdate) error {
	payload, err := json.Marshal(u)
	if err != nil {
		return fmt.Errorf("failed to encode match update: %w", err)
	}

	_, err = p.breaker.Execute(func() (interface{}, error) {
		return p.client.XAdd(ctx, &redis.XAddArgs{
			Stream: p.stream,
			MaxLen: p.maxLen,
			Approx: true,
			Values: map[string]interface{}{
				"match_id": u.MatchID.String(),
				"status":   string(u.Status),
				"payload":  payload,
			},
		}).Result()
	})
	if err != nil {
		return fmt.Errorf("failed to publish match update to %s: %w", p.stream, err)
	}
	return nil
}

// State exposes the breaker state for health reporting.
func (p *RedisPublisher) State() gobreaker.State {
	return p.breaker.State()
}
