package orderv1

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Helper to create a test order with fixed quantities
func createTestOrder(side Side, orderType OrderType, quantity, price float64) *Order {
	return NewOrder("BTC-USD", side, orderType, decimal.NewFromFloat(quantity), decimal.NewFromFloat(price), TimeInForceGTC)
}

func TestNewOrder(t *testing.T) {
	order := createTestOrder(SideBuy, OrderTypeLimit, 10.0, 50_000.0)

	assert.NotEmpty(t, order.ID)
	assert.Equal(t, "BTC-USD", order.Symbol)
	assert.Equal(t, SideBuy, order.Side)
	assert.Equal(t, OrderTypeLimit, order.Type)
	assert.True(t, order.Quantity.Equal(decimal.NewFromFloat(10.0)))
	assert.True(t, order.Remaining.Equal(order.Quantity))
	assert.Equal(t, OrderStatusNew, order.Status)
	assert.NotZero(t, order.Timestamp)
}

func TestOrder_Sides(t *testing.T) {
	buy := createTestOrder(SideBuy, OrderTypeLimit, 1.0, 100.0)
	sell := createTestOrder(SideSell, OrderTypeLimit, 1.0, 100.0)

	assert.True(t, buy.IsBuy())
	assert.False(t, buy.IsSell())
	assert.True(t, sell.IsSell())
	assert.False(t, sell.IsBuy())
}

func TestOrder_ApplyFill(t *testing.T) {
	t.Run("partial fill", func(t *testing.T) {
		order := createTestOrder(SideBuy, OrderTypeLimit, 10.0, 100.0)
		order.ApplyFill(decimal.NewFromFloat(4.0))

		assert.True(t, order.Remaining.Equal(decimal.NewFromFloat(6.0)))
		assert.True(t, order.FilledQuantity().Equal(decimal.NewFromFloat(4.0)))
		assert.Equal(t, OrderStatusPartiallyFilled, order.Status)
		assert.False(t, order.IsFilled())
	})

	t.Run("full fill", func(t *testing.T) {
		order := createTestOrder(SideBuy, OrderTypeLimit, 10.0, 100.0)
		order.ApplyFill(decimal.NewFromFloat(10.0))

		assert.True(t, order.Remaining.IsZero())
		assert.Equal(t, OrderStatusFilled, order.Status)
		assert.True(t, order.IsFilled())
	})

	t.Run("fill in steps conserves quantity", func(t *testing.T) {
		order := createTestOrder(SideSell, OrderTypeLimit, 10.0, 100.0)
		order.ApplyFill(decimal.NewFromFloat(3.0))
		order.ApplyFill(decimal.NewFromFloat(3.0))
		order.ApplyFill(decimal.NewFromFloat(4.0))

		assert.True(t, order.IsFilled())
		assert.True(t, order.FilledQuantity().Equal(order.Quantity))
	})
}

func TestNewTrade(t *testing.T) {
	t.Run("buy aggressor", func(t *testing.T) {
		resting := createTestOrder(SideSell, OrderTypeLimit, 10.0, 50_000.0)
		aggressor := createTestOrder(SideBuy, OrderTypeLimit, 5.0, 50_100.0)

		trade := NewTrade(aggressor, resting, decimal.NewFromFloat(5.0))

		require.NotNil(t, trade)
		assert.NotEmpty(t, trade.ID)
		assert.Equal(t, aggressor.ID, trade.BuyOrderID)
		assert.Equal(t, resting.ID, trade.SellOrderID)
		// The trade executes at the resting order's price.
		assert.True(t, trade.Price.Equal(resting.Price))
		assert.True(t, trade.Quantity.Equal(decimal.NewFromFloat(5.0)))
	})

	t.Run("sell aggressor", func(t *testing.T) {
		resting := createTestOrder(SideBuy, OrderTypeLimit, 10.0, 50_000.0)
		aggressor := createTestOrder(SideSell, OrderTypeLimit, 5.0, 49_000.0)

		trade := NewTrade(aggressor, resting, decimal.NewFromFloat(5.0))

		assert.Equal(t, resting.ID, trade.BuyOrderID)
		assert.Equal(t, aggressor.ID, trade.SellOrderID)
		assert.True(t, trade.Price.Equal(resting.Price))
	})
}

func TestNewTradeCaptureReport(t *testing.T) {
	resting := createTestOrder(SideSell, OrderTypeLimit, 10.0, 50_000.0)
	aggressor := createTestOrder(SideBuy, OrderTypeLimit, 5.0, 50_000.0)
	trade := NewTrade(aggressor, resting, decimal.NewFromFloat(5.0))

	report := NewTradeCaptureReport(trade)

	assert.Equal(t, trade.ID+"-TCR", report.TradeReportID)
	assert.Equal(t, trade.ID, report.TradeID)
	assert.Equal(t, trade.Symbol, report.Symbol)
	assert.True(t, report.Price.Equal(trade.Price))
	assert.True(t, report.Quantity.Equal(trade.Quantity))
	assert.NotZero(t, report.TransactTime)
}
