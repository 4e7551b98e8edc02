package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"

	vo "dizzycode.xyz/trading-engine/internal/domain/value_objects"
	"dizzycode.xyz/trading-engine/pkg/logger"
)

// OrderPublisher implements the OrderPublisher port from application layer
// 每筆成交以持久化訊息寫入 durable queue
type OrderPublisher struct {
	conn   *Connection
	queue  string
	logger logger.Logger

	mu       sync.Mutex
	declared queueDeclarer // 已成功宣告 queue 的 channel，重連後為新 channel
}

// queueDeclarer *amqp.Channel 的 QueueDeclare
type queueDeclarer interface {
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
}

// NewOrderPublisher creates a new OrderPublisher
func NewOrderPublisher(conn *Connection, queue string, log logger.Logger) *OrderPublisher {
	return &OrderPublisher{
		conn:   conn,
		queue:  queue,
		logger: log,
	}
}

// PublishOrder publishes the trade to the queue
func (p *OrderPublisher) PublishOrder(ctx context.Context, trade vo.TradeRecord) error {
	channel, err := p.conn.Channel()
	if err != nil {
		return err
	}

	if err := p.ensureQueue(channel); err != nil {
		return err
	}

	body, err := EncodeTrade(trade)
	if err != nil {
		return err
	}

	err = channel.PublishWithContext(ctx,
		"",      // exchange
		p.queue, // routing key
		false,   // mandatory
		false,   // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			MessageId:    trade.ID,
			Type:         string(trade.Side),
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("failed to publish message to queue %s: %w", p.queue, err)
	}

	p.logger.Debug("Trade published to queue", map[string]any{
		"queue":       p.queue,
		"symbol":      trade.Symbol,
		"payloadSize": len(body),
	})
	return nil
}

// ensureQueue 每個 channel 成功宣告一次；失敗不快取，下次發佈重試
func (p *OrderPublisher) ensureQueue(channel queueDeclarer) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.declared == channel {
		return nil
	}
	if _, err := channel.QueueDeclare(p.queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("failed to declare queue %s: %w", p.queue, err)
	}
	p.declared = channel
	return nil
}

// EncodeTrade 成交記錄轉為訊息內容
func EncodeTrade(trade vo.TradeRecord) ([]byte, error) {
	body, err := json.Marshal(trade)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal trade: %w", err)
	}
	return body, nil
}
