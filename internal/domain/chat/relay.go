package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"tourbooking/internal/logger"
)

// RelayChannel is the Redis pub/sub channel shared by all API instances.
const RelayChannel = "chat:events"

type relayEnvelope struct {
	Origin  string          `json:"origin"`
	Rooms   []Room          `json:"rooms"`
	Payload json.RawMessage `json:"payload"`
}

// Relay mirrors hub broadcasts through Redis so that clients connected to
// another instance receive them too.
type Relay struct {
	client     *redis.Client
	hub        *Hub
	instanceID string
	channel    string
}

// NewRedisClient parses url, connects and pings.
func NewRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	opts.ReadTimeout = 2 * time.Second
	opts.WriteTimeout = 2 * time.Second
	opts.DialTimeout = 5 * time.Second

	rdb := redis.NewClient(opts)
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return rdb, nil
}

// NewRelay creates a relay and attaches it to hub as its publisher.
func NewRelay(client *redis.Client, hub *Hub) *Relay {
	r := &Relay{
		client:     client,
		hub:        hub,
		instanceID: uuid.NewString(),
		channel:    RelayChannel,
	}
	hub.SetPublisher(r)
	return r
}

func (r *Relay) Publish(ctx context.Context, rooms []Room, payload []byte) error {
	data, err := json.Marshal(relayEnvelope{Origin: r.instanceID, Rooms: rooms, Payload: payload})
	if err != nil {
		return err
	}
	return r.client.Publish(ctx, r.channel, data).Err()
}

// Run subscribes to the relay channel and delivers foreign events to local
// clients until ctx is cancelled.
func (r *Relay) Run(ctx context.Context) error {
	sub := r.client.Subscribe(ctx, r.channel)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe %s: %w", r.channel, err)
	}
	log := logger.WithFields("channel", r.channel, "instance", r.instanceID)
	log.Info("chat_relay_subscribed")
	defer log.Info("chat_relay_stopped")

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			r.handle([]byte(msg.Payload))
		}
	}
}

// handle delivers one relayed envelope and reports whether it was applied.
// Envelopes published by this instance were already delivered locally.
func (r *Relay) handle(data []byte) bool {
	var env relayEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		logger.Get().Warn("chat_relay_bad_envelope", "error", err)
		return false
	}
	if env.Origin == r.instanceID || len(env.Rooms) == 0 {
		return false
	}
	r.hub.deliverLocal(env.Rooms, env.Payload)
	return true
}
