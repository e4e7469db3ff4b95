package broker

import (
	"context"
	"fmt"

	"github.com/zllovesuki/launchpad/boot"

	extErrors "github.com/pkg/errors"
	"github.com/streadway/amqp"
	"go.uber.org/zap"
)

var _ boot.Notifier = &AMQPBroker{}

const (
	// BootExchange receives every boot transition, routed by instance id
	BootExchange string = "launchpad_boot"
)

// AMQPChannel is the subset of *amqp.Channel used by AMQPBroker
type AMQPChannel interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	Publish(exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// AMQPBroker publishes boot transitions via RabbitMQ
type AMQPBroker struct {
	connection *amqp.Connection
	channel    AMQPChannel
	logger     *zap.Logger
}

// NewAMQPBroker connects to amqpURI and declares the boot exchange
func NewAMQPBroker(logger *zap.Logger, amqpURI string) (*AMQPBroker, error) {
	amqpConn, err := amqp.Dial(amqpURI)
	if err != nil {
		return nil, extErrors.Wrap(err, "Cannot connect to Message Broker")
	}
	amqpChan, err := amqpConn.Channel()
	if err != nil {
		amqpConn.Close()
		return nil, extErrors.Wrap(err, "Cannot create broker channel")
	}
	broker, err := newAMQPBroker(logger, amqpChan)
	if err != nil {
		amqpConn.Close()
		return nil, err
	}
	broker.connection = amqpConn
	return broker, nil
}

func newAMQPBroker(logger *zap.Logger, channel AMQPChannel) (*AMQPBroker, error) {
	if logger == nil {
		return nil, fmt.Errorf("nil Logger is invalid")
	}
	broker := &AMQPBroker{
		channel: channel,
		logger:  logger,
	}
	if err := broker.setupBootExchange(); err != nil {
		return nil, extErrors.Wrap(err, "Cannot declare exchange for boot transitions")
	}
	return broker, nil
}

func (a *AMQPBroker) setupBootExchange() error {
	return a.channel.ExchangeDeclare(
		BootExchange, // name
		"direct",     // type
		true,         // durable
		false,        // auto-deleted
		false,        // internal
		false,        // no-wait
		nil,          // arguments
	)
}

// Close will close the channel and connection to release resources
func (a *AMQPBroker) Close() {
	a.channel.Close()
	if a.connection != nil {
		a.connection.Close()
	}
}

func (a *AMQPBroker) publishViaRoutingKey(exchange, routingKey string, body []byte) error {
	return a.channel.Publish(
		exchange,
		routingKey,
		false,
		false,
		amqp.Publishing{
			ContentType: "application/x-protobuf",
			Body:        body,
		},
	)
}

// Notify publishes the transition to the boot exchange
func (a *AMQPBroker) Notify(ctx context.Context, t boot.Transition) error {
	protoBytes, err := NewEvent(t).Proto()
	if err != nil {
		return extErrors.Wrap(err, "Cannot encode message into bytes")
	}
	if err := a.publishViaRoutingKey(BootExchange, t.InstanceID, protoBytes); err != nil {
		return extErrors.Wrap(err, "Cannot publish boot transition")
	}
	return nil
}
