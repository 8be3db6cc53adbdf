package propagation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/radiograb/pkg/logger"
)

// RescheduleFunc reloads one show's recording job
type RescheduleFunc func(ctx context.Context, showID uint) error

// ScheduleConsumer feeds ShowScheduleUpdated events from RabbitMQ into a
// RescheduleFunc. It is the receiving end of AMQPScheduler.
type ScheduleConsumer struct {
	url        string
	queue      string
	reschedule RescheduleFunc
	log        *logger.Logger
}

// NewScheduleConsumer creates a consumer for queue
func NewScheduleConsumer(url, queue string, reschedule RescheduleFunc, log *logger.Logger) *ScheduleConsumer {
	return &ScheduleConsumer{
		url:        url,
		queue:      queue,
		reschedule: reschedule,
		log:        log.WithComponent("schedule-consumer"),
	}
}

// Run consumes until ctx is cancelled, reconnecting with backoff when the
// broker goes away.
func (c *ScheduleConsumer) Run(ctx context.Context) error {
	backoff := time.Second
	for {
		conn, err := amqp.Dial(c.url)
		if err != nil {
			c.log.Warn().Err(err).Dur("retry_in", backoff).Msg("Failed to dial broker")
			if !sleep(ctx, backoff) {
				return ctx.Err()
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		err = c.consume(ctx, conn)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.log.Warn().Err(err).Msg("Consume loop ended; reconnecting")
		if !sleep(ctx, 2*time.Second) {
			return ctx.Err()
		}
	}
}

func (c *ScheduleConsumer) consume(ctx context.Context, conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(10, 0, false); err != nil {
		c.log.Warn().Err(err).Msg("Set QoS failed")
	}
	if _, err := ch.QueueDeclare(c.queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}
	msgs, err := ch.Consume(c.queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	c.log.Info().Str("queue", c.queue).Msg("Consuming schedule updates")
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-msgs:
			if !ok {
				return errors.New("deliveries channel closed")
			}
			if err := c.Handle(ctx, d.Body); err != nil {
				c.log.Warn().Err(err).Msg("Schedule update rejected")
				_ = d.Nack(false, false)
				continue
			}
			_ = d.Ack(false)
		}
	}
}

// Handle decodes one event body and applies it
func (c *ScheduleConsumer) Handle(ctx context.Context, body []byte) error {
	var ev ShowScheduleUpdated
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	if ev.ShowID == 0 {
		return errors.New("event has no show_id")
	}
	return c.reschedule(ctx, ev.ShowID)
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
