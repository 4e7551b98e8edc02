package rabbitmq

import (
	"errors"
	"fmt"
	"net/url"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"

	"dizzycode.xyz/trading-engine/pkg/logger"
)

// Connection manages RabbitMQ connection and channel
type Connection struct {
	url     string
	logger  logger.Logger
	conn    *amqp.Connection
	channel *amqp.Channel
	mu      sync.RWMutex
	closed  bool
}

// NewConnection creates a new RabbitMQ connection instance
func NewConnection(rawURL string, log logger.Logger) *Connection {
	return &Connection{
		url:    rawURL,
		logger: log,
	}
}

// Connect establishes connection to RabbitMQ and creates a channel
func (c *Connection) Connect() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn != nil && c.channel != nil {
		return nil
	}

	c.logger.Info("Connecting to RabbitMQ", map[string]any{
		"url": MaskURL(c.url),
	})

	conn, err := amqp.Dial(c.url)
	if err != nil {
		return fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return fmt.Errorf("failed to create channel: %w", err)
	}

	c.conn = conn
	c.channel = channel
	c.closed = false

	c.watch(conn, channel)

	c.logger.Info("RabbitMQ connected successfully", nil)
	return nil
}

// watch 連線或 channel 關閉時記錄並清空，下次發布時重新連線
func (c *Connection) watch(conn *amqp.Connection, channel *amqp.Channel) {
	connClosed := conn.NotifyClose(make(chan *amqp.Error, 1))
	chanClosed := channel.NotifyClose(make(chan *amqp.Error, 1))

	go func() {
		var closeErr *amqp.Error
		select {
		case closeErr = <-connClosed:
		case closeErr = <-chanClosed:
		}

		c.mu.Lock()
		if c.channel == channel {
			c.conn = nil
			c.channel = nil
		}
		c.mu.Unlock()

		if closeErr != nil {
			c.logger.Error("RabbitMQ connection error", map[string]any{
				"error": closeErr.Error(),
			})
		}
	}()
}

// Channel returns the active channel, reconnecting when it was dropped
func (c *Connection) Channel() (*amqp.Channel, error) {
	c.mu.RLock()
	channel, closed := c.channel, c.closed
	c.mu.RUnlock()

	if closed {
		return nil, errors.New("connection closed")
	}
	if channel != nil {
		return channel, nil
	}
	if err := c.Connect(); err != nil {
		return nil, err
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.channel, nil
}

// Close closes the channel and connection
func (c *Connection) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}

	var errs []error
	if c.channel != nil {
		if err := c.channel.Close(); err != nil {
			errs = append(errs, err)
		}
		c.channel = nil
	}
	if c.conn != nil {
		if err := c.conn.Close(); err != nil {
			errs = append(errs, err)
		}
		c.conn = nil
	}
	c.closed = true

	c.logger.Info("RabbitMQ connection closed", nil)
	return errors.Join(errs...)
}

// MaskURL masks the password in the URL for logging
func MaskURL(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "invalid-url"
	}

	if parsed.User != nil {
		if _, hasPassword := parsed.User.Password(); hasPassword {
			parsed.User = url.UserPassword(parsed.User.Username(), "***")
		}
	}

	return parsed.String()
}
