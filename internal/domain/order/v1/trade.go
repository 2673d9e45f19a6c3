package orderv1

import (
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/shopspring/decimal"
)

// Trade represents a single execution between a buy and a sell order.
// Trades are immutable facts: the matching algorithm creates them and hands
// them to the caller, the book keeps no reference afterwards.
type Trade struct {
	ID          string          `json:"id"`
	BuyOrderID  string          `json:"buyOrderID"`
	SellOrderID string          `json:"sellOrderID"`
	Symbol      string          `json:"symbol"`
	Price       decimal.Decimal `json:"price"`
	Quantity    decimal.Decimal `json:"quantity"`
	Timestamp   int64           `json:"timestamp"`
}

// NewTrade creates a trade between the incoming (aggressor) order and a
// resting (maker) order. The trade always prints at the resting order's price:
// price improvement benefits the resting side, never the aggressor.
func NewTrade(aggressor, resting *Order, quantity decimal.Decimal) *Trade {
	buyID, sellID := aggressor.ID, resting.ID
	if aggressor.IsSell() {
		buyID, sellID = resting.ID, aggressor.ID
	}

	return &Trade{
		ID:          ulid.Make().String(),
		BuyOrderID:  buyID,
		SellOrderID: sellID,
		Symbol:      aggressor.Symbol,
		Price:       resting.Price,
		Quantity:    quantity,
		Timestamp:   time.Now().UnixNano(),
	}
}
