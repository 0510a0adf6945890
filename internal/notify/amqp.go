package notify

import (
	"context"
	"encoding/json"
	"log"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// seatsReleasedQueue is the durable queue carrying SeatsReleased events.
const seatsReleasedQueue = "booking.seats-released"

// AMQPNotifier publishes SeatsReleased events to RabbitMQ.  A fresh
// connection per publish keeps the implementation robust against broker
// restarts at the cost of throughput, which is acceptable because
// release events are rare compared to reservations.
type AMQPNotifier struct {
	url string
}

// NewAMQPNotifier builds a notifier for the given broker URL.
func NewAMQPNotifier(url string) *AMQPNotifier {
	return &AMQPNotifier{url: url}
}

// SeatsReleased publishes the event to the booking.seats-released
// queue.  Errors are logged and returned so callers can choose to
// ignore them without interrupting the main flow.
func (n *AMQPNotifier) SeatsReleased(ctx context.Context, ev SeatsReleased) error {
	conn, err := amqp.Dial(n.url)
	if err != nil {
		log.Printf("rabbitmq: dial failed: %v", err)
		return err
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		log.Printf("rabbitmq: channel open failed: %v", err)
		return err
	}
	defer func() { _ = ch.Close() }()

	// Idempotent declare; durable so events survive broker restarts.
	if _, err := ch.QueueDeclare(seatsReleasedQueue, true, false, false, false, nil); err != nil {
		log.Printf("rabbitmq: queue declare failed: %v", err)
		return err
	}

	body, err := json.Marshal(ev)
	if err != nil {
		log.Printf("rabbitmq: marshal event failed: %v", err)
		return err
	}

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}
	if err := ch.PublishWithContext(ctx, "", seatsReleasedQueue, false, false, pub); err != nil {
		log.Printf("rabbitmq: publish failed: %v", err)
		return err
	}
	return nil
}

var _ Notifier = (*AMQPNotifier)(nil)
