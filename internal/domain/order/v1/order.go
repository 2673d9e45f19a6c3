package orderv1

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Side represents which side of the book an order belongs to.
type Side string

const (
	// SideBuy represents a buy (bid) order.
	SideBuy Side = "buy"
	// SideSell represents a sell (ask) order.
	SideSell Side = "sell"
)

// OrderType represents the type of order.
type OrderType string

const (
	// OrderTypeMarket represents a market order.
	OrderTypeMarket OrderType = "market"
	// OrderTypeLimit represents a limit order.
	OrderTypeLimit OrderType = "limit"
)

// OrderStatus represents the lifecycle state of an order.
type OrderStatus string

const (
	// OrderStatusNew is the initial state of an accepted order.
	OrderStatusNew OrderStatus = "new"
	// OrderStatusPartiallyFilled marks an order with some, but not all, quantity matched.
	OrderStatusPartiallyFilled OrderStatus = "partially_filled"
	// OrderStatusFilled marks an order whose remaining quantity reached zero.
	OrderStatusFilled OrderStatus = "filled"
	// OrderStatusCancelled marks an order removed from the book on request.
	OrderStatusCancelled OrderStatus = "cancelled"
	// OrderStatusRejected marks an order refused before any book mutation.
	OrderStatusRejected OrderStatus = "rejected"
	// OrderStatusExpired marks a market order whose unmatched remainder was
	// discarded because the opposing side ran out of liquidity.
	OrderStatusExpired OrderStatus = "expired"
)

// TimeInForce represents how long an order stays eligible for matching.
// Carried for reporting; the matching algorithm itself defines no
// time-in-force semantics.
type TimeInForce string

const (
	// TimeInForceDay is valid for the trading day.
	TimeInForceDay TimeInForce = "day"
	// TimeInForceGTC is good till cancel.
	TimeInForceGTC TimeInForce = "gtc"
	// TimeInForceIOC is immediate or cancel.
	TimeInForceIOC TimeInForce = "ioc"
	// TimeInForceFOK is fill or kill.
	TimeInForceFOK TimeInForce = "fok"
	// TimeInForceGTD is good till date.
	TimeInForceGTD TimeInForce = "gtd"
)

// Order represents a single order in the order book.
//
// Quantity is the original order size and never changes; Remaining is the
// unmatched portion and is the only quantity the matching algorithm mutates.
// Sequence is assigned by the book on insertion and breaks arrival-time ties.
type Order struct {
	ID          string          `json:"id"`
	Symbol      string          `json:"symbol"`
	Side        Side            `json:"side"`
	Type        OrderType       `json:"type"`
	Quantity    decimal.Decimal `json:"quantity"`
	Remaining   decimal.Decimal `json:"remaining"`
	Price       decimal.Decimal `json:"price"`
	TimeInForce TimeInForce     `json:"timeInForce"`
	Timestamp   int64           `json:"timestamp"`
	Sequence    int64           `json:"sequence"`
	Status      OrderStatus     `json:"status"`
}

// NewOrder creates a new order with the given parameters.
func NewOrder(symbol string, side Side, orderType OrderType, quantity, price decimal.Decimal, tif TimeInForce) *Order {
	return &Order{
		ID:          uuid.NewString(),
		Symbol:      symbol,
		Side:        side,
		Type:        orderType,
		Quantity:    quantity,
		Remaining:   quantity,
		Price:       price,
		TimeInForce: tif,
		Timestamp:   time.Now().UnixNano(),
		Status:      OrderStatusNew,
	}
}

// IsBuy checks if the order is a buy (bid) order.
func (o *Order) IsBuy() bool {
	return o.Side == SideBuy
}

// IsSell checks if the order is a sell (ask) order.
func (o *Order) IsSell() bool {
	return o.Side == SideSell
}

// IsFilled checks if the order has no remaining quantity.
func (o *Order) IsFilled() bool {
	return o.Remaining.Sign() <= 0
}

// FilledQuantity returns how much of the order has matched so far.
func (o *Order) FilledQuantity() decimal.Decimal {
	return o.Quantity.Sub(o.Remaining)
}

// ApplyFill reduces the remaining quantity by the matched amount and moves the
// status to partially filled or filled accordingly.
func (o *Order) ApplyFill(quantity decimal.Decimal) {
	o.Remaining = o.Remaining.Sub(quantity)
	if o.Remaining.Sign() <= 0 {
		o.Remaining = decimal.Zero
		o.Status = OrderStatusFilled
		return
	}
	o.Status = OrderStatusPartiallyFilled
}
