package orderbook

import (
	"fmt"
	"testing"

	orderv1 "github.com/kavex/exchange/internal/domain/order/v1"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Helper to create a test order for the book's symbol
func createTestOrder(side orderv1.Side, quantity, price float64) *orderv1.Order {
	return orderv1.NewOrder("BTC-USD", side, orderv1.OrderTypeLimit,
		decimal.NewFromFloat(quantity), decimal.NewFromFloat(price), orderv1.TimeInForceGTC)
}

func TestNewBook(t *testing.T) {
	book := NewBook("BTC-USD")

	assert.Equal(t, "BTC-USD", book.Symbol())
	assert.Equal(t, 0, book.OrderCount())
	assert.Equal(t, 0, book.BidLevelCount())
	assert.Equal(t, 0, book.AskLevelCount())

	_, ok := book.BestBid()
	assert.False(t, ok)
	_, ok = book.BestAsk()
	assert.False(t, ok)
}

func TestBook_AddOrder(t *testing.T) {
	book := NewBook("BTC-USD")

	t.Run("add bid", func(t *testing.T) {
		order := createTestOrder(orderv1.SideBuy, 10.0, 50_000.0)
		require.NoError(t, book.AddOrder(order))

		assert.Equal(t, 1, book.OrderCount())
		assert.Equal(t, 1, book.BidLevelCount())
		assert.Equal(t, int64(1), order.Sequence)

		best, ok := book.BestBid()
		require.True(t, ok)
		assert.True(t, best.Equal(decimal.NewFromInt(50_000)))
	})

	t.Run("add ask", func(t *testing.T) {
		order := createTestOrder(orderv1.SideSell, 5.0, 50_100.0)
		require.NoError(t, book.AddOrder(order))

		best, ok := book.BestAsk()
		require.True(t, ok)
		assert.True(t, best.Equal(decimal.NewFromInt(50_100)))
	})

	t.Run("same price level aggregates", func(t *testing.T) {
		first := createTestOrder(orderv1.SideBuy, 2.0, 49_000.0)
		second := createTestOrder(orderv1.SideBuy, 3.0, 49_000.0)
		require.NoError(t, book.AddOrder(first))
		require.NoError(t, book.AddOrder(second))

		assert.Equal(t, 2, book.BidLevelCount())
		assert.Greater(t, second.Sequence, first.Sequence)
	})

	t.Run("validation failures", func(t *testing.T) {
		assert.Error(t, book.AddOrder(nil))

		wrongSymbol := orderv1.NewOrder("ETH-USD", orderv1.SideBuy, orderv1.OrderTypeLimit,
			decimal.NewFromInt(1), decimal.NewFromInt(100), orderv1.TimeInForceGTC)
		assert.Error(t, book.AddOrder(wrongSymbol))

		noID := createTestOrder(orderv1.SideBuy, 1.0, 100.0)
		noID.ID = ""
		assert.Error(t, book.AddOrder(noID))

		zeroQty := createTestOrder(orderv1.SideBuy, 1.0, 100.0)
		zeroQty.Remaining = decimal.Zero
		assert.Error(t, book.AddOrder(zeroQty))

		zeroPrice := createTestOrder(orderv1.SideBuy, 1.0, 0.0)
		assert.Error(t, book.AddOrder(zeroPrice))
	})

	t.Run("duplicate id", func(t *testing.T) {
		order := createTestOrder(orderv1.SideBuy, 1.0, 48_000.0)
		require.NoError(t, book.AddOrder(order))
		assert.Error(t, book.AddOrder(order))
	})
}

func TestBook_BestPriceOrdering(t *testing.T) {
	book := NewBook("BTC-USD")

	for _, price := range []float64{50_000, 49_500, 50_200} {
		require.NoError(t, book.AddOrder(createTestOrder(orderv1.SideBuy, 1.0, price)))
	}
	for _, price := range []float64{50_500, 51_000, 50_300} {
		require.NoError(t, book.AddOrder(createTestOrder(orderv1.SideSell, 1.0, price)))
	}

	bestBid, _ := book.BestBid()
	bestAsk, _ := book.BestAsk()

	// Best bid is the highest buy price, best ask the lowest sell price.
	assert.True(t, bestBid.Equal(decimal.NewFromInt(50_200)))
	assert.True(t, bestAsk.Equal(decimal.NewFromInt(50_300)))
}

func TestBook_RemoveOrder(t *testing.T) {
	book := NewBook("BTC-USD")

	order := createTestOrder(orderv1.SideBuy, 10.0, 50_000.0)
	require.NoError(t, book.AddOrder(order))

	t.Run("remove prunes empty level", func(t *testing.T) {
		removed, err := book.RemoveOrder(order.ID)
		require.NoError(t, err)
		assert.Equal(t, order.ID, removed.ID)
		assert.Equal(t, 0, book.OrderCount())
		assert.Equal(t, 0, book.BidLevelCount())
	})

	t.Run("remove missing", func(t *testing.T) {
		_, err := book.RemoveOrder("missing")
		assert.Error(t, err)
	})

	t.Run("remove keeps non-empty level", func(t *testing.T) {
		first := createTestOrder(orderv1.SideSell, 1.0, 50_100.0)
		second := createTestOrder(orderv1.SideSell, 2.0, 50_100.0)
		require.NoError(t, book.AddOrder(first))
		require.NoError(t, book.AddOrder(second))

		_, err := book.RemoveOrder(first.ID)
		require.NoError(t, err)
		assert.Equal(t, 1, book.AskLevelCount())
		assert.Equal(t, second.ID, book.BestAskLevel().Front().ID)
	})
}

func TestBook_Depth(t *testing.T) {
	book := NewBook("BTC-USD")

	for _, price := range []float64{50_000, 49_900, 49_800, 49_700} {
		require.NoError(t, book.AddOrder(createTestOrder(orderv1.SideBuy, 1.0, price)))
	}
	for _, price := range []float64{50_100, 50_200, 50_300} {
		require.NoError(t, book.AddOrder(createTestOrder(orderv1.SideSell, 2.0, price)))
	}
	// Second order on the best bid level.
	require.NoError(t, book.AddOrder(createTestOrder(orderv1.SideBuy, 3.0, 50_000.0)))

	t.Run("full depth", func(t *testing.T) {
		depth := book.Depth(0)

		require.Len(t, depth.Bids, 4)
		require.Len(t, depth.Asks, 3)
		assert.True(t, depth.Bids[0].Price.Equal(decimal.NewFromInt(50_000)))
		assert.True(t, depth.Bids[0].Quantity.Equal(decimal.NewFromInt(4)))
		assert.True(t, depth.Asks[0].Price.Equal(decimal.NewFromInt(50_100)))
	})

	t.Run("limited depth", func(t *testing.T) {
		depth := book.Depth(2)
		assert.Len(t, depth.Bids, 2)
		assert.Len(t, depth.Asks, 2)
		assert.True(t, depth.Bids[1].Price.Equal(decimal.NewFromInt(49_900)))
	})
}

func TestBook_SnapshotRestore(t *testing.T) {
	book := NewBook("BTC-USD")

	var ids []string
	for i := 0; i < 3; i++ {
		order := createTestOrder(orderv1.SideBuy, 1.0, 50_000.0)
		require.NoError(t, book.AddOrder(order))
		ids = append(ids, order.ID)
	}
	require.NoError(t, book.AddOrder(createTestOrder(orderv1.SideSell, 2.0, 50_100.0)))

	snapshot := book.Snapshot()
	assert.Equal(t, "BTC-USD", snapshot.Symbol)
	assert.Len(t, snapshot.Orders, 4)

	restored := NewBook("BTC-USD")
	require.NoError(t, restored.Restore(snapshot))

	assert.Equal(t, 4, restored.OrderCount())
	assert.Equal(t, 1, restored.BidLevelCount())
	assert.Equal(t, 1, restored.AskLevelCount())

	// FIFO order within the level survives the round trip.
	level := restored.BestBidLevel()
	require.NotNil(t, level)
	orders := level.Orders()
	require.Len(t, orders, 3)
	for i, id := range ids {
		assert.Equal(t, id, orders[i].ID)
	}

	// New orders continue the sequence instead of reusing it.
	next := createTestOrder(orderv1.SideBuy, 1.0, 49_000.0)
	require.NoError(t, restored.AddOrder(next))
	assert.Greater(t, next.Sequence, orders[2].Sequence)
}

func TestBook_ManyLevels(t *testing.T) {
	book := NewBook("BTC-USD")

	for i := 0; i < 500; i++ {
		price := 40_000.0 + float64(i)
		require.NoError(t, book.AddOrder(createTestOrder(orderv1.SideBuy, 1.0, price)))
	}

	assert.Equal(t, 500, book.BidLevelCount())
	best, _ := book.BestBid()
	assert.True(t, best.Equal(decimal.NewFromFloat(40_499)), fmt.Sprintf("got %s", best))
}
