package rabbitmq

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/labstack/gommon/log"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/ziflex/lecho/v3"
)

// bufPool reuses the buffers events are encoded into.
var bufPool = sync.Pool{
	New: func() interface{} { return new(bytes.Buffer) },
}

const (
	contentTypeJSON = "application/json"

	DefaultEventsExchange = "gestiohub_events"
)

//go:generate mockgen -destination=./mock_rabbitmq/rabbitmq.go github.com/gestiopro/gestiohub.go/rabbitmq Client,AMQPClient

type Client interface {
	PublishEvent(ctx context.Context, routingKey string, payload interface{}) error
	// Close will close all connections to rabbitmq
	Close() error
}

type DefaultClient struct {
	amqpClient AMQPClient

	logger *lecho.Logger

	eventsExchange string

	declareMu sync.Mutex
	declared  bool
}

type ClientOption = func(client *DefaultClient)

func WithEventsExchange(exchange string) ClientOption {
	return func(client *DefaultClient) {
		if exchange != "" {
			client.eventsExchange = exchange
		}
	}
}

func WithLogger(logger *lecho.Logger) ClientOption {
	return func(client *DefaultClient) {
		client.logger = logger
	}
}

// Dial connects to rabbitmq and returns a client publishing domain events.
func Dial(uri string, options ...ClientOption) (Client, error) {
	client := NewClient(nil, options...)
	amqpClient, err := DialAMQP(uri, client.logger)
	if err != nil {
		return nil, err
	}
	client.amqpClient = amqpClient
	return client, nil
}

func NewClient(amqpClient AMQPClient, options ...ClientOption) *DefaultClient {
	client := &DefaultClient{
		amqpClient: amqpClient,
		logger: lecho.New(
			os.Stdout,
			lecho.WithLevel(log.DEBUG),
			lecho.WithTimestamp(),
		),
		eventsExchange: DefaultEventsExchange,
	}
	for _, opt := range options {
		opt(client)
	}
	return client
}

func (client *DefaultClient) Close() error { return client.amqpClient.Close() }

// declareExchange declares the events exchange until it succeeds once. A failed publish
// resets it so the exchange is declared again on the next event, after a reconnect.
func (client *DefaultClient) declareExchange() error {
	client.declareMu.Lock()
	defer client.declareMu.Unlock()
	if client.declared {
		return nil
	}
	err := client.amqpClient.ExchangeDeclare(
		client.eventsExchange,
		// topic exchanges let consumers bind on e.g. "bank_transaction.#"
		"topic",
		// durable, not auto-deleted
		true,
		false,
		// not internal, we publish to it directly
		false,
		// wait for the server to confirm the declaration
		false,
		nil,
	)
	if err != nil {
		return err
	}
	client.declared = true
	return nil
}

func (client *DefaultClient) forgetExchange() {
	client.declareMu.Lock()
	client.declared = false
	client.declareMu.Unlock()
}

// PublishEvent encodes payload as JSON and publishes it on the events exchange with routingKey.
func (client *DefaultClient) PublishEvent(ctx context.Context, routingKey string, payload interface{}) error {
	if err := client.declareExchange(); err != nil {
		return fmt.Errorf("declare exchange %s: %w", client.eventsExchange, err)
	}

	buf := bufPool.Get().(*bytes.Buffer)
	defer bufPool.Put(buf)
	buf.Reset()

	if err := json.NewEncoder(buf).Encode(payload); err != nil {
		return err
	}

	err := client.amqpClient.PublishWithContext(ctx,
		client.eventsExchange,
		routingKey,
		false,
		false,
		amqp.Publishing{
			ContentType:  contentTypeJSON,
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now(),
			Body:         buf.Bytes(),
		},
	)
	if err != nil {
		client.forgetExchange()
		return err
	}
	client.logger.Debugf("Successfully published %s event", routingKey)
	return nil
}
