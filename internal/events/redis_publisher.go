package events

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
)

// Pub/sub channels consumed by the SSE layer and any other in-process reader.
const (
	ChannelTripStatus     = "trip:status:updates"
	ChannelOfferUpdates   = "offer:updates"
	ChannelDriverLocation = "driver:location:updates"
	ChannelTripCandidates = "trip:candidates"
)

// RedisPublisher pushes events onto Redis pub/sub channels. This is the
// low-latency path that feeds connected clients.
type RedisPublisher struct {
	client *redis.Client
}

func NewRedisPublisher(client *redis.Client) *RedisPublisher {
	return &RedisPublisher{client: client}
}

func (p *RedisPublisher) publish(ctx context.Context, channel, eventType string, ev interface{}) {
	data, err := json.Marshal(ev)
	if err != nil {
		logPublishError("redis", eventType, err)
		return
	}
	logPublishError("redis", eventType, p.client.Publish(ctx, channel, data).Err())
}

func (p *RedisPublisher) PublishTrip(ctx context.Context, ev TripEvent) {
	ev.Type = TypeTripStatusChanged
	p.publish(ctx, ChannelTripStatus, ev.Type, ev)
}

func (p *RedisPublisher) PublishOffer(ctx context.Context, ev OfferEvent) {
	ev.Type = TypeOfferStatusChanged
	p.publish(ctx, ChannelOfferUpdates, ev.Type, ev)
}

func (p *RedisPublisher) PublishLocation(ctx context.Context, ev LocationEvent) {
	ev.Type = TypeDriverLocation
	p.publish(ctx, ChannelDriverLocation, ev.Type, ev)
}

func (p *RedisPublisher) PublishCandidate(ctx context.Context, ev CandidateEvent) {
	ev.Type = TypeTripCandidate
	p.publish(ctx, ChannelTripCandidates, ev.Type, ev)
}

func (p *RedisPublisher) Close() error {
	// The redis client is shared; its lifecycle belongs to the caller.
	return nil
}
