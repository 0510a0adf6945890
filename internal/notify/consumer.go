package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Handler processes one SeatsReleased event.  Returning an error causes
// the delivery to be rejected without requeue, so a poisonous payload
// cannot wedge the queue.
type Handler func(ctx context.Context, ev SeatsReleased) error

// StartSeatsReleasedConsumer connects to RabbitMQ, declares the durable
// seats-released queue and feeds each event to the handler.  It runs a
// reconnect loop with exponential backoff and returns only when ctx is
// cancelled.
func StartSeatsReleasedConsumer(ctx context.Context, url string, handle Handler) error {
	backoff := time.Second
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		conn, err := amqp.Dial(url)
		if err != nil {
			log.Printf("seats-consumer: failed to dial broker: %v; retrying in %s", err, backoff)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second // reset after successful connect

		if err := consumeLoop(ctx, conn, handle); err != nil {
			log.Printf("seats-consumer: consume loop ended: %v; reconnecting", err)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(2 * time.Second):
			}
		}
	}
}

func consumeLoop(ctx context.Context, conn *amqp.Connection, handle Handler) error {
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		log.Printf("seats-consumer: set QoS failed: %v", err)
	}

	if _, err := ch.QueueDeclare(seatsReleasedQueue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}

	msgs, err := ch.Consume(seatsReleasedQueue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-msgs:
			if !ok {
				return errors.New("deliveries channel closed")
			}
			var ev SeatsReleased
			if err := json.Unmarshal(d.Body, &ev); err != nil {
				log.Printf("seats-consumer: unmarshal failed: %v", err)
				_ = d.Nack(false, false) // reject, do not requeue to avoid tight loops
				continue
			}
			if err := handle(ctx, ev); err != nil {
				log.Printf("seats-consumer: handle event failed: %v", err)
				_ = d.Nack(false, false)
				continue
			}
			_ = d.Ack(false)
		}
	}
}
