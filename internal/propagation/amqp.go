package propagation

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/radiograb/internal/models"
	"github.com/radiograb/pkg/logger"
)

// Channel is the part of *amqp.Channel the publisher uses
type Channel interface {
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// DialFunc opens a channel to the broker. The returned func releases the
// connection behind it.
type DialFunc func(url string) (Channel, func() error, error)

// DialAMQP dials a real broker
func DialAMQP(url string) (Channel, func() error, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, nil, fmt.Errorf("dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, nil, fmt.Errorf("channel open: %w", err)
	}
	return ch, conn.Close, nil
}

// Publisher sends persistent JSON events to durable queues. Each publish
// opens and closes its own connection; show edits are rare.
type Publisher struct {
	url  string
	dial DialFunc
	now  func() time.Time
	log  *logger.Logger
}

// NewPublisher creates a publisher. A nil dial uses DialAMQP.
func NewPublisher(url string, dial DialFunc, log *logger.Logger) *Publisher {
	if dial == nil {
		dial = DialAMQP
	}
	return &Publisher{url: url, dial: dial, now: time.Now, log: log.WithComponent("amqp")}
}

// Publish declares queue and publishes event to it through the default exchange
func (p *Publisher) Publish(ctx context.Context, queue string, event any) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	ch, release, err := p.dial(p.url)
	if err != nil {
		return fmt.Errorf("rabbitmq: %w", err)
	}
	defer func() {
		_ = ch.Close()
		_ = release()
	}()

	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("rabbitmq: queue declare %s: %w", queue, err)
	}

	msg := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    p.now().UTC(),
		Body:         body,
	}
	if err := ch.PublishWithContext(ctx, "", queue, false, false, msg); err != nil {
		return fmt.Errorf("rabbitmq: publish %s: %w", queue, err)
	}

	p.log.Debug().Str("queue", queue).RawJSON("event", body).Msg("Event published")
	return nil
}

// AMQPTTL announces retention changes on a queue the TTL manager consumes
type AMQPTTL struct {
	publisher *Publisher
	queue     string
}

// NewAMQPTTL creates an event-backed TTL manager
func NewAMQPTTL(publisher *Publisher, queue string) *AMQPTTL {
	return &AMQPTTL{publisher: publisher, queue: queue}
}

// UpdateShowTTL publishes a ShowTTLUpdated event
func (a *AMQPTTL) UpdateShowTTL(ctx context.Context, showID uint, retentionDays int, ttlType models.TTLType) error {
	return a.publisher.Publish(ctx, a.queue, ShowTTLUpdated{
		ShowID:        showID,
		RetentionDays: retentionDays,
		TTLType:       ttlType,
		OccurredAt:    a.publisher.now().UTC(),
	})
}

// AMQPScheduler announces schedule changes on a queue the recorder consumes
type AMQPScheduler struct {
	publisher *Publisher
	queue     string
}

// NewAMQPScheduler creates an event-backed scheduler
func NewAMQPScheduler(publisher *Publisher, queue string) *AMQPScheduler {
	return &AMQPScheduler{publisher: publisher, queue: queue}
}

// RescheduleShow publishes a ShowScheduleUpdated event
func (a *AMQPScheduler) RescheduleShow(ctx context.Context, showID uint) error {
	return a.publisher.Publish(ctx, a.queue, ShowScheduleUpdated{
		ShowID:     showID,
		OccurredAt: a.publisher.now().UTC(),
	})
}
