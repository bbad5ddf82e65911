package producer

import (
	"context"
	"encoding/json"
	"time"

	"pickup-service/internal/service"

	"github.com/segmentio/kafka-go"
)

// ReservationProducer публикует события жизненного цикла резерва в один топик;
// тип события лежит в envelope, ключ — reservation_id (порядок в пределах партиции)
type ReservationProducer struct {
	writer *kafka.Writer
}

func NewReservationProducer(brokers []string, topic string) *ReservationProducer {
	return &ReservationProducer{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.LeastBytes{},
			RequiredAcks: kafka.RequireAll,
		},
	}
}

type eventEnvelope struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

func (p *ReservationProducer) publish(ctx context.Context, eventType, key string, payload any) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	value, err := json.Marshal(eventEnvelope{Type: eventType, Payload: payload})
	if err != nil {
		return err
	}
	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(key),
		Value: value,
	})
}

func (p *ReservationProducer) PublishReservationCreated(ctx context.Context, e service.ReservationCreatedEvent) error {
	return p.publish(ctx, "reservation.created", e.ReservationID.String(), e)
}

func (p *ReservationProducer) PublishReservationScheduled(ctx context.Context, e service.ReservationScheduledEvent) error {
	return p.publish(ctx, "reservation.scheduled", e.ReservationID.String(), e)
}

func (p *ReservationProducer) PublishReservationExtended(ctx context.Context, e service.ReservationExtendedEvent) error {
	return p.publish(ctx, "reservation.extended", e.ReservationID.String(), e)
}

func (p *ReservationProducer) PublishReservationPickedUp(ctx context.Context, e service.ReservationPickedUpEvent) error {
	return p.publish(ctx, "reservation.picked_up", e.ReservationID.String(), e)
}

func (p *ReservationProducer) PublishReservationConfirmed(ctx context.Context, e service.ReservationConfirmedEvent) error {
	return p.publish(ctx, "reservation.confirmed", e.ReservationID.String(), e)
}

func (p *ReservationProducer) PublishReservationCancelled(ctx context.Context, e service.ReservationCancelledEvent) error {
	return p.publish(ctx, "reservation.cancelled", e.ReservationID.String(), e)
}

func (p *ReservationProducer) PublishReservationExpired(ctx context.Context, e service.ReservationExpiredEvent) error {
	return p.publish(ctx, "reservation.expired", e.ReservationID.String(), e)
}

func (p *ReservationProducer) Close() error {
	return p.writer.Close()
}
