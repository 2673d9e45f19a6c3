// Package marketdata publishes top-of-book and depth updates over Redis after
// every matching pass that mutated a book.
package marketdata

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/kavex/exchange/internal/usecase/orderbook"
	"github.com/kavex/exchange/pkg/config"
	"github.com/kavex/exchange/pkg/errors"
	"github.com/kavex/exchange/pkg/logger"
	"github.com/kavex/exchange/pkg/redis"
)

// Publisher fans depth updates out on a Redis pub/sub channel and caches the
// latest depth per symbol so late subscribers can prime themselves.
type Publisher struct {
	channel     string
	redisclient redis.Client
	logger      *logger.Logger
}

// NewPublisher creates a market data publisher.
func NewPublisher(cfg config.MarketDataConfig, redisclient redis.Client, log *logger.Logger) *Publisher {
	return &Publisher{
		channel:     cfg.Channel,
		redisclient: redisclient,
		logger:      log,
	}
}

// PublishDepth publishes one symbol's depth to the channel and refreshes the
// symbol's cache key.
func (p *Publisher) PublishDepth(ctx context.Context, depth orderbook.Depth) error {
	buf, err := json.Marshal(depth)
	if err != nil {
		return errors.NewTracer("failed to marshal depth update").Wrap(err)
	}

	if err := p.redisclient.Set(ctx, p.cacheKey(depth.Symbol), buf, 0); err != nil {
		p.logger.ErrorContext(ctx, err,
			logger.Field{Key: "symbol", Value: depth.Symbol},
			logger.Field{Key: "action", Value: "cache depth"},
		)
		return err
	}

	if _, err := p.redisclient.Publish(ctx, p.channel, buf); err != nil {
		p.logger.ErrorContext(ctx, err,
			logger.Field{Key: "symbol", Value: depth.Symbol},
			logger.Field{Key: "channel", Value: p.channel},
		)
		return err
	}

	return nil
}

// Depth returns a symbol's cached depth, or false when none is cached.
func (p *Publisher) Depth(ctx context.Context, symbol string) (orderbook.Depth, bool, error) {
	data, err := p.redisclient.Get(ctx, p.cacheKey(symbol))
	if err != nil {
		return orderbook.Depth{}, false, err
	}
	if data == "" {
		return orderbook.Depth{}, false, nil
	}

	var depth orderbook.Depth
	if err := json.Unmarshal([]byte(data), &depth); err != nil {
		return orderbook.Depth{}, false, errors.NewTracer("failed to unmarshal cached depth").Wrap(err)
	}
	return depth, true, nil
}

func (p *Publisher) cacheKey(symbol string) string {
	return fmt.Sprintf("depth:%s", symbol)
}
