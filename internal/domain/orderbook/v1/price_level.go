package orderbookv1

import (
	"container/list"
	"errors"
	"fmt"

	orderv1 "github.com/kavex/exchange/internal/domain/order/v1"
	"github.com/shopspring/decimal"
)

var (
	// ErrNilOrder is returned when a nil order is passed to a level.
	ErrNilOrder = errors.New("order cannot be nil")
	// ErrInvalidQuantity is returned for non-positive quantities.
	ErrInvalidQuantity = errors.New("quantity must be positive")
	// ErrPriceMismatch is returned when an order's price differs from the level's price.
	ErrPriceMismatch = errors.New("order price does not match level price")
	// ErrSideMismatch is returned when an order's side differs from the level's side.
	ErrSideMismatch = errors.New("order side does not match level side")
	// ErrOrderNotFound is returned when an order id is not resting at the level.
	ErrOrderNotFound = errors.New("order not found in level")
)

// PriceLevel holds all resting orders at one exact price on one side of the
// book, in strict arrival order, together with a cached total of their
// remaining quantities.
//
// Arrival order is kept in a linked list; an id index gives O(1) cancel
// without a scan. A partially filled order keeps its list position: time
// priority survives partial consumption.
//
// A level is not safe for concurrent use; the owning book serializes access.
type PriceLevel struct {
	Price decimal.Decimal
	Side  orderv1.Side

	orders *list.List // of *orderv1.Order
	index  map[string]*list.Element
	total  decimal.Decimal
}

// NewPriceLevel creates an empty level for the given price and side.
func NewPriceLevel(price decimal.Decimal, side orderv1.Side) *PriceLevel {
	return &PriceLevel{
		Price:  price,
		Side:   side,
		orders: list.New(),
		index:  make(map[string]*list.Element),
		total:  decimal.Zero,
	}
}

// AddOrder appends the order to the back of the queue (lowest time priority)
// and adds its remaining quantity to the level total.
func (l *PriceLevel) AddOrder(order *orderv1.Order) error {
	if order == nil {
		return ErrNilOrder
	}
	if order.Remaining.Sign() <= 0 {
		return fmt.Errorf("%w: got %s", ErrInvalidQuantity, order.Remaining)
	}
	if !order.Price.Equal(l.Price) {
		return fmt.Errorf("%w: level %s, order %s", ErrPriceMismatch, l.Price, order.Price)
	}
	if order.Side != l.Side {
		return fmt.Errorf("%w: level %s, order %s", ErrSideMismatch, l.Side, order.Side)
	}
	if _, exists := l.index[order.ID]; exists {
		return fmt.Errorf("order %s already resting at level %s", order.ID, l.Price)
	}

	l.index[order.ID] = l.orders.PushBack(order)
	l.total = l.total.Add(order.Remaining)

	return nil
}

// RemoveOrder removes the order by id and subtracts its remaining quantity
// from the level total. Returns the removed order, or false if absent.
func (l *PriceLevel) RemoveOrder(orderID string) (*orderv1.Order, bool) {
	elem, ok := l.index[orderID]
	if !ok {
		return nil, false
	}

	order := l.orders.Remove(elem).(*orderv1.Order)
	delete(l.index, orderID)
	l.total = l.total.Sub(order.Remaining)

	return order, true
}

// ReduceQuantity decrements a resting order's remaining quantity in place,
// preserving its queue position, and keeps the level total consistent.
func (l *PriceLevel) ReduceQuantity(orderID string, filled decimal.Decimal) error {
	elem, ok := l.index[orderID]
	if !ok {
		return ErrOrderNotFound
	}
	if filled.Sign() <= 0 {
		return fmt.Errorf("%w: got %s", ErrInvalidQuantity, filled)
	}

	order := elem.Value.(*orderv1.Order)
	if filled.GreaterThan(order.Remaining) {
		return fmt.Errorf("fill %s exceeds remaining %s for order %s", filled, order.Remaining, orderID)
	}

	order.ApplyFill(filled)
	l.total = l.total.Sub(filled)

	return nil
}

// Front returns the order with the highest time priority (earliest arrival),
// or nil when the level is empty.
func (l *PriceLevel) Front() *orderv1.Order {
	front := l.orders.Front()
	if front == nil {
		return nil
	}
	return front.Value.(*orderv1.Order)
}

// IsEmpty checks if the level has no orders; the owning book prunes empty levels.
func (l *PriceLevel) IsEmpty() bool {
	return l.orders.Len() == 0
}

// OrderCount returns the number of resting orders at this level.
func (l *PriceLevel) OrderCount() int {
	return l.orders.Len()
}

// TotalQuantity returns the cached total remaining quantity at this level.
func (l *PriceLevel) TotalQuantity() decimal.Decimal {
	return l.total
}

// Orders returns the resting orders in arrival order.
func (l *PriceLevel) Orders() []*orderv1.Order {
	orders := make([]*orderv1.Order, 0, l.orders.Len())
	for e := l.orders.Front(); e != nil; e = e.Next() {
		orders = append(orders, e.Value.(*orderv1.Order))
	}
	return orders
}

// Validate performs a consistency check of the level's state: every order
// matches the level's price and side, and the cached total equals the sum of
// remaining quantities.
func (l *PriceLevel) Validate() error {
	sum := decimal.Zero
	for e := l.orders.Front(); e != nil; e = e.Next() {
		order := e.Value.(*orderv1.Order)
		if !order.Price.Equal(l.Price) {
			return fmt.Errorf("%w: order %s", ErrPriceMismatch, order.ID)
		}
		if order.Side != l.Side {
			return fmt.Errorf("%w: order %s", ErrSideMismatch, order.ID)
		}
		sum = sum.Add(order.Remaining)
	}

	if !sum.Equal(l.total) {
		return fmt.Errorf("quantity mismatch: calculated %s, cached %s", sum, l.total)
	}

	return nil
}
