package event

import (
	"encoding/json"
	"time"

	"github.com/streadway/amqp"
)

// Routing keys for quiz lifecycle events.
const (
	SessionCreated   = "quiz.session.created"
	QuestionServed   = "quiz.question.served"
	AnswerSubmitted  = "quiz.answer.submitted"
	SessionCompleted = "quiz.session.completed"
)

// Publisher emits quiz lifecycle events on a topic exchange. It is
// optional: when RabbitMQ is not configured the service runs without one
// and handlers skip publishing.
type Publisher struct {
	conn     *amqp.Connection
	channel  *amqp.Channel
	exchange string
}

func NewPublisher(amqpURL, exchange string) (*Publisher, error) {
	conn, err := amqp.Dial(amqpURL)
	if err != nil {
		return nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, err
	}
	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return nil, err
	}
	return &Publisher{conn: conn, channel: ch, exchange: exchange}, nil
}

// Publish sends one event with the routing key as its type. Publish
// failures are the caller's to log; they must never fail a request.
func (p *Publisher) Publish(routingKey string, payload any) error {
	body, err := json.Marshal(map[string]any{
		"type":      routingKey,
		"payload":   payload,
		"timestamp": time.Now().UTC(),
	})
	if err != nil {
		return err
	}
	return p.channel.Publish(p.exchange, routingKey, false, false, amqp.Publishing{
		ContentType: "application/json",
		Body:        body,
	})
}

func (p *Publisher) Close() {
	if p.channel != nil {
		_ = p.channel.Close()
	}
	if p.conn != nil {
		_ = p.conn.Close()
	}
}
