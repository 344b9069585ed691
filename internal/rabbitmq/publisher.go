package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/streadway/amqp"

	"github.com/magabrotheeeer/sublist/internal/models"
)

// Channel часть *amqp.Channel, нужная для публикации.
type Channel interface {
	Publish(exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// PublishMessage публикует сообщение в RabbitMQ.
func PublishMessage(ch Channel, exchange string, routingkey string, message any) error {
	const op = "rabbitmq.PublishMessage"
	body, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	err = ch.Publish(
		exchange,
		routingkey,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp.Persistent,
		},
	)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// Publisher публикует уведомления для владельцев в exchange уведомлений.
type Publisher struct {
	ch   Channel
	topo Topology
}

// NewPublisher создает новый экземпляр Publisher.
func NewPublisher(ch Channel, topo Topology) *Publisher {
	return &Publisher{ch: ch, topo: topo}
}

// Publish отправляет сообщение с ключом маршрутизации очереди push.
func (p *Publisher) Publish(ctx context.Context, msg models.PushMessage) error {
	const op = "rabbitmq.Publisher.Publish"

	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	return PublishMessage(p.ch, p.topo.Exchange, p.topo.RoutingKey, msg)
}
