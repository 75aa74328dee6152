package helpers

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// RabbitPublisher wraps an AMQP channel and the durable queues it publishes to.
type RabbitPublisher struct {
	conn   *amqp.Connection
	ch     *amqp.Channel
	queues map[string]struct{}
}

// NewRabbitPublisher dials url and declares every queue up front.
func NewRabbitPublisher(url string, queues ...string) (*RabbitPublisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	p := &RabbitPublisher{conn: conn, ch: ch, queues: make(map[string]struct{}, len(queues))}
	for _, q := range queues {
		if err := DeclareQueue(ch, q); err != nil {
			p.Close()
			return nil, err
		}
		p.queues[q] = struct{}{}
	}
	return p, nil
}

// DeclareQueue declares a durable, non-exclusive queue.
func DeclareQueue(ch *amqp.Channel, queue string) error {
	_, err := ch.QueueDeclare(
		queue,
		true,  // durable
		false, // autoDelete
		false, // exclusive
		false, // noWait
		nil,
	)
	return err
}

func (p *RabbitPublisher) Close() {
	if p == nil {
		return
	}
	if p.ch != nil {
		_ = p.ch.Close()
	}
	if p.conn != nil {
		_ = p.conn.Close()
	}
}

// PublishJSON publishes a JSON-encoded persistent message to queue via the default exchange.
func (p *RabbitPublisher) PublishJSON(ctx context.Context, queue string, body any) error {
	if _, ok := p.queues[queue]; !ok {
		return fmt.Errorf("rabbitmq: queue %q not declared", queue)
	}
	b, err := json.Marshal(body)
	if err != nil {
		return err
	}
	return p.ch.PublishWithContext(ctx,
		"",    // default exchange
		queue, // routing key = queue
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now().UTC(),
			Body:         b,
		},
	)
}
