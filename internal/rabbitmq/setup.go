package rabbitmq

import (
	"fmt"

	"github.com/streadway/amqp"

	"github.com/magabrotheeeer/sublist/internal/config"
)

// Topology exchange и очередь уведомлений.
type Topology struct {
	Exchange   string
	Queue      string
	RoutingKey string
}

// TopologyFromConfig берёт имена из конфига.
func TopologyFromConfig(cfg config.RabbitMQ) Topology {
	return Topology{
		Exchange:   cfg.RabbitMQExchange,
		Queue:      cfg.RabbitMQQueue,
		RoutingKey: cfg.RabbitMQRoutingKey,
	}
}

// SetupChannel открывает канал и объявляет direct exchange с привязанной
// к нему устойчивой очередью.
func SetupChannel(conn *amqp.Connection, topo Topology) (*amqp.Channel, error) {
	const op = "rabbitmq.SetupChannel"

	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := ch.Qos(10, 0, false); err != nil {
		return nil, fmt.Errorf("%s: failed to set QoS: %w", op, err)
	}

	err = ch.ExchangeDeclare(
		topo.Exchange,
		"direct",
		true,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	_, err = ch.QueueDeclare(
		topo.Queue,
		true,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to declare queue %s: %w", op, topo.Queue, err)
	}

	err = ch.QueueBind(
		topo.Queue,
		topo.RoutingKey,
		topo.Exchange,
		false,
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to bind queue %s with routing key %s: %w", op, topo.Queue, topo.RoutingKey, err)
	}

	return ch, nil
}
