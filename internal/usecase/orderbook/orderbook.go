// Package orderbook maintains the two price ladders for one instrument and
// exposes top-of-book queries. It performs no locking: the matching engine
// serializes all access to a book (see internal/usecase/matching).
package orderbook

import (
	"fmt"
	"sort"

	orderv1 "github.com/kavex/exchange/internal/domain/order/v1"
	orderbookv1 "github.com/kavex/exchange/internal/domain/orderbook/v1"
	snapshotv1 "github.com/kavex/exchange/internal/domain/snapshot/v1"
	"github.com/shopspring/decimal"
)

// Book is the order book for a single instrument: a bid ladder iterated
// highest price first, an ask ladder iterated lowest price first, and an
// id index for O(1) cancel lookups.
type Book struct {
	symbol   string
	bids     *orderbookv1.Ladder
	asks     *orderbookv1.Ladder
	orders   map[string]*orderv1.Order
	sequence int64
}

// NewBook creates an empty book for the instrument.
func NewBook(symbol string) *Book {
	return &Book{
		symbol: symbol,
		bids:   orderbookv1.NewLadder(),
		asks:   orderbookv1.NewLadder(),
		orders: make(map[string]*orderv1.Order),
	}
}

// Symbol returns the instrument this book belongs to.
func (b *Book) Symbol() string {
	return b.symbol
}

// AddOrder rests the order: it selects the ladder by side, finds or creates
// the level at the order's price, and appends the order behind any already
// resting there. The book assigns the arrival sequence.
func (b *Book) AddOrder(order *orderv1.Order) error {
	if order == nil {
		return fmt.Errorf("order cannot be nil")
	}
	if order.ID == "" {
		return fmt.Errorf("order ID cannot be empty")
	}
	if order.Symbol != b.symbol {
		return fmt.Errorf("order symbol %s does not match book %s", order.Symbol, b.symbol)
	}
	if order.Remaining.Sign() <= 0 {
		return fmt.Errorf("order remaining quantity must be positive")
	}
	if order.Price.Sign() <= 0 {
		return fmt.Errorf("order price must be positive")
	}
	if _, exists := b.orders[order.ID]; exists {
		return fmt.Errorf("order with ID %s already exists", order.ID)
	}

	b.sequence++
	order.Sequence = b.sequence

	return b.insert(order)
}

// insert rests the order without touching its sequence; shared by AddOrder
// and Restore.
func (b *Book) insert(order *orderv1.Order) error {
	ladder := b.ladder(order.Side)

	level := ladder.Get(order.Price)
	if level == nil {
		level = orderbookv1.NewPriceLevel(order.Price, order.Side)
		ladder.Put(order.Price, level)
	}

	if err := level.AddOrder(order); err != nil {
		if level.IsEmpty() {
			ladder.Delete(order.Price)
		}
		return err
	}

	b.orders[order.ID] = order
	return nil
}

// RemoveOrder removes the order by id, pruning the level's price key from the
// ladder when the level empties so ladder walks stay proportional to active
// price levels.
func (b *Book) RemoveOrder(orderID string) (*orderv1.Order, error) {
	order, exists := b.orders[orderID]
	if !exists {
		return nil, fmt.Errorf("order with ID %s does not exist", orderID)
	}

	ladder := b.ladder(order.Side)
	level := ladder.Get(order.Price)
	if level != nil {
		level.RemoveOrder(orderID)
		if level.IsEmpty() {
			ladder.Delete(order.Price)
		}
	}

	delete(b.orders, orderID)
	return order, nil
}

// Order returns a resting order by id.
func (b *Book) Order(orderID string) (*orderv1.Order, bool) {
	order, exists := b.orders[orderID]
	return order, exists
}

// OrderCount returns the number of resting orders across both sides.
func (b *Book) OrderCount() int {
	return len(b.orders)
}

// BestBid returns the highest bid price, or false if the bid side is empty.
func (b *Book) BestBid() (decimal.Decimal, bool) {
	level := b.bids.Max()
	if level == nil {
		return decimal.Zero, false
	}
	return level.Price, true
}

// BestAsk returns the lowest ask price, or false if the ask side is empty.
func (b *Book) BestAsk() (decimal.Decimal, bool) {
	level := b.asks.Min()
	if level == nil {
		return decimal.Zero, false
	}
	return level.Price, true
}

// BestBidLevel returns the level at the highest bid price, or nil.
func (b *Book) BestBidLevel() *orderbookv1.PriceLevel {
	return b.bids.Max()
}

// BestAskLevel returns the level at the lowest ask price, or nil.
func (b *Book) BestAskLevel() *orderbookv1.PriceLevel {
	return b.asks.Min()
}

// BidLevelCount returns the number of active bid price levels.
func (b *Book) BidLevelCount() int {
	return b.bids.Size()
}

// AskLevelCount returns the number of active ask price levels.
func (b *Book) AskLevelCount() int {
	return b.asks.Size()
}

// DepthLevel is one price level's aggregate for market data.
type DepthLevel struct {
	Price    decimal.Decimal `json:"price"`
	Quantity decimal.Decimal `json:"quantity"`
}

// Depth holds the per-level aggregates of both sides, best price first.
type Depth struct {
	Symbol string       `json:"symbol"`
	Bids   []DepthLevel `json:"bids"`
	Asks   []DepthLevel `json:"asks"`
}

// Depth returns up to maxLevels per side, best price first.
func (b *Book) Depth(maxLevels int) Depth {
	depth := Depth{Symbol: b.symbol}

	b.bids.Descend(func(level *orderbookv1.PriceLevel) bool {
		depth.Bids = append(depth.Bids, DepthLevel{Price: level.Price, Quantity: level.TotalQuantity()})
		return maxLevels <= 0 || len(depth.Bids) < maxLevels
	})
	b.asks.Ascend(func(level *orderbookv1.PriceLevel) bool {
		depth.Asks = append(depth.Asks, DepthLevel{Price: level.Price, Quantity: level.TotalQuantity()})
		return maxLevels <= 0 || len(depth.Asks) < maxLevels
	})

	return depth
}

// Snapshot serializes every resting order of this book.
func (b *Book) Snapshot() snapshotv1.BookSnapshot {
	bs := snapshotv1.BookSnapshot{Symbol: b.symbol}

	collect := func(level *orderbookv1.PriceLevel) bool {
		for _, order := range level.Orders() {
			bs.Orders = append(bs.Orders, snapshotv1.FromOrder(order))
		}
		return true
	}
	b.bids.Descend(collect)
	b.asks.Ascend(collect)

	return bs
}

// Restore rebuilds the book from a snapshot. Orders are re-inserted in
// original arrival order (ascending sequence) so time priority within each
// level is preserved.
func (b *Book) Restore(bs snapshotv1.BookSnapshot) error {
	b.bids = orderbookv1.NewLadder()
	b.asks = orderbookv1.NewLadder()
	b.orders = make(map[string]*orderv1.Order)
	b.sequence = 0

	restored := make([]snapshotv1.BookOrder, len(bs.Orders))
	copy(restored, bs.Orders)
	sort.Slice(restored, func(i, j int) bool {
		return restored[i].Sequence < restored[j].Sequence
	})

	for _, bookOrder := range restored {
		order := bookOrder.ToOrder()
		if err := b.insert(order); err != nil {
			return fmt.Errorf("failed to restore order %s: %w", order.ID, err)
		}
		if order.Sequence > b.sequence {
			b.sequence = order.Sequence
		}
	}

	return nil
}

func (b *Book) ladder(side orderv1.Side) *orderbookv1.Ladder {
	if side == orderv1.SideBuy {
		return b.bids
	}
	return b.asks
}
