package server

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/Mamadi-exe/Snoofit/internal/engine"
)

const relayChannelPrefix = "fitquest:events:"

// RelayChannel is the redis channel carrying a player's engine events.
func RelayChannel(playerID string) string {
	return relayChannelPrefix + playerID
}

type relayMessage struct {
	PlayerID string       `json:"playerId"`
	Event    engine.Event `json:"event"`
}

// RedisRelay republishes engine events on redis so other processes can
// follow a player's progress. Enqueue never blocks; events are dropped when
// the buffer is full.
type RedisRelay struct {
	client *redis.Client
	queue  chan relayMessage
	logger *slog.Logger
}

func NewRedisRelay(client *redis.Client, logger *slog.Logger) *RedisRelay {
	return &RedisRelay{
		client: client,
		queue:  make(chan relayMessage, 256),
		logger: logger,
	}
}

func (r *RedisRelay) Enqueue(playerID string, ev engine.Event) {
	select {
	case r.queue <- relayMessage{PlayerID: playerID, Event: ev}:
	default:
		r.logger.Warn("relay queue full, dropping event", "player_id", playerID, "type", ev.Type)
	}
}

// Run publishes queued events until ctx is cancelled.
func (r *RedisRelay) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg := <-r.queue:
			data, err := json.Marshal(msg)
			if err != nil {
				r.logger.Error("encoding relay event", "error", err)
				continue
			}
			if err := r.client.Publish(ctx, RelayChannel(msg.PlayerID), data).Err(); err != nil {
				r.logger.Warn("publishing relay event", "player_id", msg.PlayerID, "error", err)
			}
		}
	}
}

// Check pings redis. It satisfies health.Checker.
func (r *RedisRelay) Check(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}
