package orderreaderv1

import (
	"context"

	orderv1 "github.com/kavex/exchange/internal/domain/order/v1"
	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
)

// RequestType distinguishes order placement from cancellation on the intake topic.
type RequestType string

const (
	// RequestTypeMarket places a market order.
	RequestTypeMarket RequestType = "market"
	// RequestTypeLimit places a limit order.
	RequestTypeLimit RequestType = "limit"
	// RequestTypeCancel cancels a resting order by id.
	RequestTypeCancel RequestType = "cancel"
)

// OrderRequest is the pre-validated intake message the order-entry collaborator
// publishes. The engine performs no entitlement or session validation on it.
type OrderRequest struct {
	OrderID     string              `json:"orderID"`
	Symbol      string              `json:"symbol"`
	Side        orderv1.Side        `json:"side"`
	Type        RequestType         `json:"type"`
	Quantity    decimal.Decimal     `json:"quantity"`
	Price       decimal.Decimal     `json:"price"`
	TimeInForce orderv1.TimeInForce `json:"timeInForce"`
	Offset      int64               `json:"-"` // intake stream offset, set by the reader
}

// ToOrder builds the domain order for a place request. A client-supplied order
// id is kept; otherwise one is generated.
func (r *OrderRequest) ToOrder() *orderv1.Order {
	orderType := orderv1.OrderTypeLimit
	if r.Type == RequestTypeMarket {
		orderType = orderv1.OrderTypeMarket
	}

	order := orderv1.NewOrder(r.Symbol, r.Side, orderType, r.Quantity, r.Price, r.TimeInForce)
	if r.OrderID != "" {
		order.ID = r.OrderID
	}
	return order
}

// OrderReader defines the interface for reading order requests from the intake stream.
type OrderReader interface {
	// ReadMessage reads a message and returns the raw message and parsed request
	ReadMessage(ctx context.Context) (kafka.Message, *OrderRequest, error)
	// SetOffset sets the offset for the reader
	SetOffset(offset int64) error
	// CommitMessages commits the messages after processing
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	// Close closes the reader
	Close() error
}
