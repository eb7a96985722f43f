package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	channelPrefix = "class:"
	eventTTL      = 5 * time.Second
)

// redisPayload is the message published to Redis for cross-instance broadcast.
// Origin identifies the publishing instance so it can skip its own echo:
// the hub already delivered the event locally before publishing.
type redisPayload struct {
	Event  string          `json:"event"`
	Data   json.RawMessage `json:"data"`
	Origin string          `json:"origin"`
	At     int64           `json:"at"`
}

// RedisPubSub implements RedisPublisher and RedisSubscriber using Redis pub/sub.
type RedisPubSub struct {
	client     *redis.Client
	instanceID string
	logger     *zap.Logger
}

// NewRedisPubSub creates a Redis pub/sub bridge for class events.
func NewRedisPubSub(client *redis.Client, logger *zap.Logger) *RedisPubSub {
	return &RedisPubSub{client: client, instanceID: uuid.NewString(), logger: logger}
}

// PublishClassEvent publishes an event to the class's Redis channel.
func (r *RedisPubSub) PublishClassEvent(classID uuid.UUID, event string, payload []byte) error {
	channel := channelPrefix + classID.String()
	body, err := json.Marshal(redisPayload{Event: event, Data: payload, Origin: r.instanceID, At: time.Now().Unix()})
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), eventTTL)
	defer cancel()
	return r.client.Publish(ctx, channel, body).Err()
}

// SubscribeClass subscribes to a class's Redis channel and calls handler for each message.
// Returns a cancel function to stop the subscription.
func (r *RedisPubSub) SubscribeClass(classID uuid.UUID, handler func(event string, payload []byte)) (cancel func(), err error) {
	channel := channelPrefix + classID.String()
	ctx, cancelCtx := context.WithCancel(context.Background())
	pubsub := r.client.Subscribe(ctx, channel)
	_, err = pubsub.Receive(ctx)
	if err != nil {
		cancelCtx()
		return nil, fmt.Errorf("subscribe: %w", err)
	}
	ch := pubsub.Channel()
	go func() {
		defer pubsub.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				r.dispatch([]byte(msg.Payload), handler)
			}
		}
	}()
	cancel = func() { cancelCtx() }
	return cancel, nil
}

// dispatch decodes a raw pub/sub message and forwards it to handler,
// dropping events this instance published itself.
func (r *RedisPubSub) dispatch(raw []byte, handler func(event string, payload []byte)) {
	var p redisPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return
	}
	if p.Origin == r.instanceID {
		return
	}
	handler(p.Event, p.Data)
}
