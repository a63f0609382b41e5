package broker

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
)

const eventsChannel = "roomcast:events"

// RedisRoomBroker implements RoomBroker on redis pub/sub so every node
// sees appends and purges performed by any other node.
type RedisRoomBroker struct {
	client *redis.Client
	pubsub *redis.PubSub
	ctx    context.Context
}

func NewRedisRoomBroker(redisURL string) (*RedisRoomBroker, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}

	client := redis.NewClient(opt)

	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	return &RedisRoomBroker{
		client: client,
		ctx:    ctx,
	}, nil
}

// Client exposes the underlying redis client so other redis consumers
// (the rate limiter) can share the connection.
func (r *RedisRoomBroker) Client() *redis.Client {
	return r.client
}

func (r *RedisRoomBroker) Publish(event Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}

	return r.client.Publish(r.ctx, eventsChannel, data).Err()
}

func (r *RedisRoomBroker) Subscribe() (<-chan Event, error) {
	r.pubsub = r.client.Subscribe(r.ctx, eventsChannel)

	eventChan := make(chan Event, 100)

	go func() {
		defer close(eventChan)

		for redisMsg := range r.pubsub.Channel() {
			var event Event

			if err := json.Unmarshal([]byte(redisMsg.Payload), &event); err != nil {
				continue
			}

			eventChan <- event
		}
	}()

	return eventChan, nil
}

func (r *RedisRoomBroker) Close() error {
	if r.pubsub != nil {
		r.pubsub.Close()
	}
	return r.client.Close()
}
