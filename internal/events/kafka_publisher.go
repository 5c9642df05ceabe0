package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"
)

// KafkaPublisher streams committed transitions to a Kafka topic for
// downstream consumers (notification fan-out, analytics). Keyed by trip or
// driver id so per-entity ordering is preserved within a partition.
type KafkaPublisher struct {
	writer *kafka.Writer
}

func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	w := kafka.NewWriter(kafka.WriterConfig{
		Brokers:  brokers,
		Topic:    topic,
		Balancer: &kafka.Hash{},
	})
	return &KafkaPublisher{writer: w}
}

func (p *KafkaPublisher) publish(key string, eventType string, ev interface{}) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	data, err := json.Marshal(ev)
	if err != nil {
		logPublishError("kafka", eventType, err)
		return
	}
	logPublishError("kafka", eventType, p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(key),
		Value: data,
	}))
}

func (p *KafkaPublisher) PublishTrip(ctx context.Context, ev TripEvent) {
	ev.Type = TypeTripStatusChanged
	p.publish(ev.TripID, ev.Type, ev)
}

func (p *KafkaPublisher) PublishOffer(ctx context.Context, ev OfferEvent) {
	ev.Type = TypeOfferStatusChanged
	p.publish(ev.TripID, ev.Type, ev)
}

func (p *KafkaPublisher) PublishLocation(ctx context.Context, ev LocationEvent) {
	ev.Type = TypeDriverLocation
	p.publish(ev.DriverID, ev.Type, ev)
}

func (p *KafkaPublisher) PublishCandidate(ctx context.Context, ev CandidateEvent) {
	ev.Type = TypeTripCandidate
	p.publish(ev.DriverID, ev.Type, ev)
}

func (p *KafkaPublisher) Close() error {
	if p.writer == nil {
		return nil
	}
	return p.writer.Close()
}
