package snapshotv1

import (
	orderv1 "github.com/kavex/exchange/internal/domain/order/v1"
	"github.com/shopspring/decimal"
)

// Snapshot captures every resting order across all books, together with the
// intake offset the books were consistent with when it was taken.
type Snapshot struct {
	OrderOffset int64          `json:"orderOffset"`
	Books       []BookSnapshot `json:"books"`
}

// BookSnapshot captures the resting orders of one instrument's book.
type BookSnapshot struct {
	Symbol string      `json:"symbol"`
	Orders []BookOrder `json:"orders"`
}

// BookOrder is the serialized form of one resting order.
type BookOrder struct {
	OrderID     string              `json:"orderID"`
	Symbol      string              `json:"symbol"`
	Side        orderv1.Side        `json:"side"`
	Type        orderv1.OrderType   `json:"type"`
	Price       decimal.Decimal     `json:"price"`
	Quantity    decimal.Decimal     `json:"quantity"`
	Remaining   decimal.Decimal     `json:"remaining"`
	TimeInForce orderv1.TimeInForce `json:"timeInForce"`
	Timestamp   int64               `json:"timestamp"`
	Sequence    int64               `json:"sequence"`
	Status      orderv1.OrderStatus `json:"status"`
}

// FromOrder serializes a resting order.
func FromOrder(order *orderv1.Order) BookOrder {
	return BookOrder{
		OrderID:     order.ID,
		Symbol:      order.Symbol,
		Side:        order.Side,
		Type:        order.Type,
		Price:       order.Price,
		Quantity:    order.Quantity,
		Remaining:   order.Remaining,
		TimeInForce: order.TimeInForce,
		Timestamp:   order.Timestamp,
		Sequence:    order.Sequence,
		Status:      order.Status,
	}
}

// ToOrder rebuilds the resting order.
func (b BookOrder) ToOrder() *orderv1.Order {
	return &orderv1.Order{
		ID:          b.OrderID,
		Symbol:      b.Symbol,
		Side:        b.Side,
		Type:        b.Type,
		Price:       b.Price,
		Quantity:    b.Quantity,
		Remaining:   b.Remaining,
		TimeInForce: b.TimeInForce,
		Timestamp:   b.Timestamp,
		Sequence:    b.Sequence,
		Status:      b.Status,
	}
}
