package messaging

import (
	"context"
	"encoding/json"
	"fmt"

	vo "dizzycode.xyz/trading-engine/internal/domain/value_objects"
	"dizzycode.xyz/trading-engine/pkg/logger"
)

// RedisOrderPublisher implements the OrderPublisher port from application layer
type RedisOrderPublisher struct {
	client *RedisClient
	logger logger.Logger
}

// NewRedisOrderPublisher creates a new RedisOrderPublisher
func NewRedisOrderPublisher(client *RedisClient, log logger.Logger) *RedisOrderPublisher {
	return &RedisOrderPublisher{
		client: client,
		logger: log,
	}
}

// PublishOrder publishes the fill to Redis Pub/Sub channel: engine.orders.{instId}
func (p *RedisOrderPublisher) PublishOrder(ctx context.Context, trade vo.TradeRecord) error {
	channel := fmt.Sprintf(ChannelPatternOrders, trade.Symbol)

	data, err := json.Marshal(trade)
	if err != nil {
		return fmt.Errorf("failed to marshal trade: %w", err)
	}

	if err := p.client.Client().Publish(ctx, channel, data).Err(); err != nil {
		return fmt.Errorf("failed to publish trade to channel %s: %w", channel, err)
	}

	p.logger.Debug("Trade published", map[string]any{
		"channel":  channel,
		"side":     trade.Side,
		"amount":   trade.Amount,
		"price":    trade.Price,
		"order_id": trade.OrderID,
	})
	return nil
}
