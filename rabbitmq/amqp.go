package rabbitmq

import (
	"context"
	"errors"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/labstack/gommon/log"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/ziflex/lecho/v3"
)

const (
	defaultHeartbeat = 10 * time.Second
	defaultLocale    = "en_US"
)

var errReconnecting = errors.New("amqp: trying to publish during reconnect")

type AMQPClient interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	Close() error
}

type defaultAMQPClient struct {
	uri string

	mu             sync.RWMutex
	conn           *amqp.Connection
	publishChannel *amqp.Channel

	notifyCloseChan chan *amqp.Error
	reconnecting    atomic.Bool

	logger *lecho.Logger
}

// DialAMQP connects and keeps the connection alive in the background.
func DialAMQP(uri string, logger *lecho.Logger) (AMQPClient, error) {
	if logger == nil {
		logger = lecho.New(os.Stdout, lecho.WithLevel(log.DEBUG), lecho.WithTimestamp())
	}
	client := &defaultAMQPClient{uri: uri, logger: logger}
	if err := client.connect(); err != nil {
		return nil, err
	}
	go client.reconnectionLoop()
	return client, nil
}

func (c *defaultAMQPClient) connect() error {
	conn, err := amqp.DialConfig(c.uri, amqp.Config{
		Heartbeat: defaultHeartbeat,
		Locale:    defaultLocale,
		Dial:      amqp.DefaultDial(3 * time.Second),
	})
	if err != nil {
		return err
	}
	publishChannel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return err
	}
	notifyCloseChan := make(chan *amqp.Error, 1)
	conn.NotifyClose(notifyCloseChan)

	c.mu.Lock()
	c.conn = conn
	c.publishChannel = publishChannel
	c.notifyCloseChan = notifyCloseChan
	c.mu.Unlock()
	return nil
}

func (c *defaultAMQPClient) reconnectionLoop() {
	for {
		c.mu.RLock()
		notify := c.notifyCloseChan
		c.mu.RUnlock()

		amqpError, ok := <-notify
		if !ok || amqpError == nil {
			// closed on purpose
			return
		}
		c.logger.Error(amqpError)

		retry := backoff.NewExponentialBackOff()
		retry.MaxInterval = 10 * time.Second
		retry.MaxElapsedTime = time.Minute

		c.reconnecting.Store(true)
		c.logger.Info("amqp: trying to reconnect...")
		if err := backoff.Retry(c.connect, retry); err != nil {
			c.logger.Errorf("amqp: giving up reconnecting: %v", err)
			return
		}
		c.reconnecting.Store(false)
		c.logger.Info("amqp: successfully reconnected")
	}
}

func (c *defaultAMQPClient) Close() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.conn.Close()
}

func (c *defaultAMQPClient) ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error {
	c.mu.RLock()
	conn := c.conn
	c.mu.RUnlock()

	// short lived channel, declarations are rare
	ch, err := conn.Channel()
	if err != nil {
		return err
	}
	defer ch.Close()
	return ch.ExchangeDeclare(name, kind, durable, autoDelete, internal, noWait, args)
}

func (c *defaultAMQPClient) PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error {
	if c.reconnecting.Load() {
		wait := backoff.NewExponentialBackOff()
		wait.MaxInterval = time.Second
		wait.MaxElapsedTime = 10 * time.Second
		err := backoff.Retry(func() error {
			if c.reconnecting.Load() {
				return errReconnecting
			}
			return nil
		}, backoff.WithContext(wait, ctx))
		if err != nil {
			return err
		}
	}

	c.mu.RLock()
	ch := c.publishChannel
	c.mu.RUnlock()
	return ch.PublishWithContext(ctx, exchange, key, mandatory, immediate, msg)
}
