// Package reporting builds and publishes execution reports and trade capture
// reports after each matching pass.
package reporting

import (
	"time"

	orderv1 "github.com/kavex/exchange/internal/domain/order/v1"
	"github.com/shopspring/decimal"
)

// BuildExecutionReport derives the post-matching execution report for one
// order. trades are the trades this order participated in during the pass;
// the average price is quantity-weighted over them.
func BuildExecutionReport(order *orderv1.Order, trades []*orderv1.Trade, text string) *orderv1.ExecutionReport {
	report := &orderv1.ExecutionReport{
		ExecID:       orderv1.NewExecID(),
		OrderID:      order.ID,
		Symbol:       order.Symbol,
		Side:         order.Side,
		OrderType:    order.Type,
		OrderQty:     order.Quantity,
		CumQty:       order.FilledQuantity(),
		LeavesQty:    leavesQty(order),
		AvgPx:        averagePrice(trades),
		OrderStatus:  order.Status,
		TransactTime: time.Now().UnixNano(),
		Text:         text,
	}
	return report
}

// BuildRejectReport derives the execution report for an order rejected before
// matching. The order never touched the book, so nothing is filled.
func BuildRejectReport(order *orderv1.Order, reason string) *orderv1.ExecutionReport {
	order.Status = orderv1.OrderStatusRejected
	return &orderv1.ExecutionReport{
		ExecID:       orderv1.NewExecID(),
		OrderID:      order.ID,
		Symbol:       order.Symbol,
		Side:         order.Side,
		OrderType:    order.Type,
		OrderQty:     order.Quantity,
		CumQty:       decimal.Zero,
		LeavesQty:    decimal.Zero,
		AvgPx:        decimal.Zero,
		OrderStatus:  orderv1.OrderStatusRejected,
		TransactTime: time.Now().UnixNano(),
		Text:         reason,
	}
}

// leavesQty is the open remainder, zero once the order reached a terminal
// status.
func leavesQty(order *orderv1.Order) decimal.Decimal {
	switch order.Status {
	case orderv1.OrderStatusFilled,
		orderv1.OrderStatusCancelled,
		orderv1.OrderStatusRejected,
		orderv1.OrderStatusExpired:
		return decimal.Zero
	}
	return order.Remaining
}

// averagePrice is the quantity-weighted mean over the pass's trades.
func averagePrice(trades []*orderv1.Trade) decimal.Decimal {
	if len(trades) == 0 {
		return decimal.Zero
	}

	notional := decimal.Zero
	quantity := decimal.Zero
	for _, trade := range trades {
		notional = notional.Add(trade.Price.Mul(trade.Quantity))
		quantity = quantity.Add(trade.Quantity)
	}
	if quantity.IsZero() {
		return decimal.Zero
	}
	return notional.Div(quantity)
}
