package realtime

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// envelope is the pub/sub message carrying one broadcast between instances.
type envelope struct {
	Channel string          `json:"channel"`
	Data    json.RawMessage `json:"data"`
}

// RedisRelay publishes broadcasts on a Redis channel so that every instance
// delivers them to its own websocket clients.
type RedisRelay struct {
	client *redis.Client
	local  *Hub
	topic  string
	logger *zap.SugaredLogger
}

func NewRedisRelay(client *redis.Client, local *Hub, logger *zap.Logger) *RedisRelay {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisRelay{client: client, local: local, topic: "courtvision:realtime", logger: logger.Sugar()}
}

// Broadcast publishes to all instances. When Redis is unreachable the frame
// is still delivered locally.
func (r *RedisRelay) Broadcast(ctx context.Context, channel string, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		r.logger.Errorw("Failed to encode broadcast", "channel", channel, "error", err)
		return
	}
	msg, _ := json.Marshal(envelope{Channel: channel, Data: data})
	if err := r.client.Publish(ctx, r.topic, msg).Err(); err != nil {
		r.logger.Warnw("Redis publish failed, delivering locally", "channel", channel, "error", err)
		r.local.Broadcast(ctx, channel, json.RawMessage(data))
	}
}

// Run delivers published broadcasts to the local hub until ctx is cancelled.
func (r *RedisRelay) Run(ctx context.Context) {
	sub := r.client.Subscribe(ctx, r.topic)
	defer sub.Close()

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var env envelope
			if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
				r.logger.Warnw("Dropping malformed relay message", "error", err)
				continue
			}
			r.local.Broadcast(ctx, env.Channel, env.Data)
		}
	}
}
