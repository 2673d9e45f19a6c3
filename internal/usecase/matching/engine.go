// Package matching implements price-time-priority matching over per-instrument
// order books. Matching is synchronous: ProcessOrder runs to completion and
// returns the trades it produced, in match order. The engine does no I/O;
// report and market-data fan-out happen in the calling layer.
package matching

import (
	"context"
	"sync"

	orderv1 "github.com/kavex/exchange/internal/domain/order/v1"
	orderbookv1 "github.com/kavex/exchange/internal/domain/orderbook/v1"
	snapshotv1 "github.com/kavex/exchange/internal/domain/snapshot/v1"
	"github.com/kavex/exchange/internal/usecase/orderbook"
	"github.com/kavex/exchange/pkg/errors"
	"github.com/kavex/exchange/pkg/logger"
	"github.com/shopspring/decimal"
)

// SymbolDirectory answers whether a symbol is known and tradable. The engine
// only consults it when strict symbols are enabled.
type SymbolDirectory interface {
	IsTradable(symbol string) bool
}

// Config holds the engine's policy switches.
type Config struct {
	// StrictSymbols rejects orders for symbols the directory does not know or
	// marks inactive. The default is the permissive behavior: a book is lazily
	// created for any symbol, on the assumption that order entry validated it.
	StrictSymbols bool
}

// bookHandle pairs one instrument's book with the mutex that serializes every
// operation against it. Operations on different instruments proceed in
// parallel; operations on the same instrument never overlap, which is what
// keeps the price-time-priority invariants safe.
type bookHandle struct {
	mu   sync.Mutex
	book *orderbook.Book
}

// Engine routes incoming orders to their instrument's book and runs the
// matching algorithm against the opposing ladder.
type Engine struct {
	mu        sync.RWMutex
	books     map[string]*bookHandle
	directory SymbolDirectory
	config    Config
	logger    *logger.Logger
}

// NewEngine creates an engine. directory may be nil when strict symbols are
// disabled.
func NewEngine(config Config, directory SymbolDirectory, log *logger.Logger) *Engine {
	return &Engine{
		books:     make(map[string]*bookHandle),
		directory: directory,
		config:    config,
		logger:    log,
	}
}

// ProcessOrder validates the order, matches it against the opposing ladder of
// its instrument's book and returns the resulting trades in the exact order
// the matches occurred.
//
// Market orders never rest: whatever cannot be matched is discarded and the
// order expires. Limit orders rest their unmatched remainder at their limit
// price. Rejection happens before any book mutation; a rejected order leaves
// the book untouched and the order status unchanged.
func (e *Engine) ProcessOrder(ctx context.Context, order *orderv1.Order) ([]*orderv1.Trade, error) {
	if err := validateOrder(order); err != nil {
		return nil, err
	}

	if e.config.StrictSymbols {
		if e.directory == nil || !e.directory.IsTradable(order.Symbol) {
			return nil, errors.NewErrorDetailsWithObject(
				"symbol is not known or not tradable",
				string(errors.UnknownInstrument),
				"symbol",
				order,
			)
		}
	}

	handle := e.handle(order.Symbol)
	handle.mu.Lock()
	defer handle.mu.Unlock()

	if _, exists := handle.book.Order(order.ID); exists {
		return nil, errors.NewErrorDetailsWithObject(
			"order id already resting in book",
			string(errors.OrderDuplicate),
			"id",
			order,
		)
	}

	var trades []*orderv1.Trade
	switch order.Type {
	case orderv1.OrderTypeMarket:
		trades = e.matchMarket(handle.book, order)
		if !order.IsFilled() {
			order.Status = orderv1.OrderStatusExpired
		}
	default:
		trades = e.matchLimit(handle.book, order)
		if !order.IsFilled() {
			if err := handle.book.AddOrder(order); err != nil {
				// Unreachable after the duplicate check above; surface it
				// rather than losing the remainder silently.
				return trades, errors.TracerFromError(err)
			}
		}
	}

	e.logger.DebugContext(ctx, "order processed",
		logger.Field{Key: "orderID", Value: order.ID},
		logger.Field{Key: "symbol", Value: order.Symbol},
		logger.Field{Key: "status", Value: order.Status},
		logger.Field{Key: "trades", Value: len(trades)},
	)

	return trades, nil
}

// CancelOrder removes a resting order from its book and marks it cancelled.
// It generates no trades.
func (e *Engine) CancelOrder(ctx context.Context, symbol, orderID string) (*orderv1.Order, error) {
	handle, ok := e.lookup(symbol)
	if !ok {
		return nil, errors.NewErrorDetails(
			"no book for symbol",
			string(errors.OrderNotFound),
			"symbol",
		)
	}

	handle.mu.Lock()
	defer handle.mu.Unlock()

	order, err := handle.book.RemoveOrder(orderID)
	if err != nil {
		return nil, errors.NewErrorDetails(
			"order not resting in book",
			string(errors.OrderNotFound),
			"orderID",
		)
	}
	order.Status = orderv1.OrderStatusCancelled

	e.logger.DebugContext(ctx, "order cancelled",
		logger.Field{Key: "orderID", Value: orderID},
		logger.Field{Key: "symbol", Value: symbol},
	)

	return order, nil
}

// BestBid returns the instrument's highest bid price, or false when the bid
// side (or the whole book) is empty.
func (e *Engine) BestBid(symbol string) (decimal.Decimal, bool) {
	handle, ok := e.lookup(symbol)
	if !ok {
		return decimal.Zero, false
	}
	handle.mu.Lock()
	defer handle.mu.Unlock()
	return handle.book.BestBid()
}

// BestAsk returns the instrument's lowest ask price, or false when the ask
// side (or the whole book) is empty.
func (e *Engine) BestAsk(symbol string) (decimal.Decimal, bool) {
	handle, ok := e.lookup(symbol)
	if !ok {
		return decimal.Zero, false
	}
	handle.mu.Lock()
	defer handle.mu.Unlock()
	return handle.book.BestAsk()
}

// Depth returns up to maxLevels aggregated price levels per side for the
// instrument, best price first.
func (e *Engine) Depth(symbol string, maxLevels int) (orderbook.Depth, bool) {
	handle, ok := e.lookup(symbol)
	if !ok {
		return orderbook.Depth{Symbol: symbol}, false
	}
	handle.mu.Lock()
	defer handle.mu.Unlock()
	return handle.book.Depth(maxLevels), true
}

// Snapshot serializes every resting order across all books.
func (e *Engine) Snapshot() *snapshotv1.Snapshot {
	e.mu.RLock()
	handles := make([]*bookHandle, 0, len(e.books))
	for _, handle := range e.books {
		handles = append(handles, handle)
	}
	e.mu.RUnlock()

	snapshot := &snapshotv1.Snapshot{}
	for _, handle := range handles {
		handle.mu.Lock()
		bs := handle.book.Snapshot()
		handle.mu.Unlock()
		if len(bs.Orders) > 0 {
			snapshot.Books = append(snapshot.Books, bs)
		}
	}
	return snapshot
}

// Restore rebuilds all books from a snapshot, replacing current state.
func (e *Engine) Restore(snapshot *snapshotv1.Snapshot) error {
	if snapshot == nil {
		return errors.NewErrorDetails("snapshot cannot be nil", string(errors.GeneralBadRequestError), "snapshot")
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	books := make(map[string]*bookHandle, len(snapshot.Books))
	for _, bs := range snapshot.Books {
		book := orderbook.NewBook(bs.Symbol)
		if err := book.Restore(bs); err != nil {
			return errors.TracerFromError(err)
		}
		books[bs.Symbol] = &bookHandle{book: book}
	}
	e.books = books

	return nil
}

// matchMarket walks the best opposing level until the order fills or the
// opposing side is exhausted. The remainder is discarded, never rested.
func (e *Engine) matchMarket(book *orderbook.Book, order *orderv1.Order) []*orderv1.Trade {
	var trades []*orderv1.Trade
	for !order.IsFilled() {
		level := bestOpposing(book, order)
		if level == nil {
			break
		}
		trades = append(trades, e.matchAtLevel(book, order, level)...)
	}
	return trades
}

// matchLimit walks the best opposing level while it remains marketable
// against the order's limit price. The caller rests any remainder.
func (e *Engine) matchLimit(book *orderbook.Book, order *orderv1.Order) []*orderv1.Trade {
	var trades []*orderv1.Trade
	for !order.IsFilled() {
		level := bestOpposing(book, order)
		if level == nil {
			break
		}
		if !marketable(order, level.Price) {
			break
		}
		trades = append(trades, e.matchAtLevel(book, order, level)...)
	}
	return trades
}

// matchAtLevel consumes resting orders at one level strictly in arrival
// order. Each resting order touched produces one trade at the resting price.
// Fully consumed resting orders leave the book (pruning the level when it
// empties); partial fills keep their queue position.
func (e *Engine) matchAtLevel(book *orderbook.Book, incoming *orderv1.Order, level *orderbookv1.PriceLevel) []*orderv1.Trade {
	var trades []*orderv1.Trade

	for !incoming.IsFilled() {
		resting := level.Front()
		if resting == nil {
			break
		}

		quantity := decimal.Min(incoming.Remaining, resting.Remaining)
		trade := orderv1.NewTrade(incoming, resting, quantity)

		if quantity.Equal(resting.Remaining) {
			// RemoveOrder subtracts the pre-fill remaining from the level
			// total, so the fill is applied to the order afterwards.
			if _, err := book.RemoveOrder(resting.ID); err != nil {
				e.logger.Error(err,
					logger.Field{Key: "orderID", Value: resting.ID},
					logger.Field{Key: "operation", Value: "RemoveOrder"},
				)
			}
			resting.ApplyFill(quantity)
		} else {
			if err := level.ReduceQuantity(resting.ID, quantity); err != nil {
				e.logger.Error(err,
					logger.Field{Key: "orderID", Value: resting.ID},
					logger.Field{Key: "operation", Value: "ReduceQuantity"},
				)
			}
		}

		incoming.ApplyFill(quantity)
		trades = append(trades, trade)
	}

	return trades
}

// handle returns the instrument's book handle, creating it on first
// reference. Creation is guarded so concurrent first access for distinct
// symbols is safe.
func (e *Engine) handle(symbol string) *bookHandle {
	e.mu.RLock()
	handle, ok := e.books[symbol]
	e.mu.RUnlock()
	if ok {
		return handle
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if handle, ok = e.books[symbol]; ok {
		return handle
	}
	handle = &bookHandle{book: orderbook.NewBook(symbol)}
	e.books[symbol] = handle
	return handle
}

func (e *Engine) lookup(symbol string) (*bookHandle, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	handle, ok := e.books[symbol]
	return handle, ok
}

func bestOpposing(book *orderbook.Book, order *orderv1.Order) *orderbookv1.PriceLevel {
	if order.IsBuy() {
		return book.BestAskLevel()
	}
	return book.BestBidLevel()
}

// marketable reports whether the best opposing price would execute against
// the order's limit price.
func marketable(order *orderv1.Order, opposingPrice decimal.Decimal) bool {
	if order.IsBuy() {
		return opposingPrice.LessThanOrEqual(order.Price)
	}
	return opposingPrice.GreaterThanOrEqual(order.Price)
}

func validateOrder(order *orderv1.Order) error {
	if order == nil {
		return errors.NewErrorDetails("order cannot be nil", string(errors.OrderInvalid), "order")
	}
	if order.Side != orderv1.SideBuy && order.Side != orderv1.SideSell {
		return errors.NewErrorDetailsWithObject("order side is invalid", string(errors.OrderInvalid), "side", order)
	}
	if order.Type != orderv1.OrderTypeMarket && order.Type != orderv1.OrderTypeLimit {
		return errors.NewErrorDetailsWithObject("order type is invalid", string(errors.OrderInvalid), "type", order)
	}
	if order.Quantity.Sign() <= 0 || order.Remaining.Sign() <= 0 {
		return errors.NewErrorDetailsWithObject("order quantity must be positive", string(errors.OrderInvalid), "quantity", order)
	}
	if order.Type == orderv1.OrderTypeLimit && order.Price.Sign() <= 0 {
		return errors.NewErrorDetailsWithObject("limit order price must be positive", string(errors.OrderInvalid), "price", order)
	}
	return nil
}
