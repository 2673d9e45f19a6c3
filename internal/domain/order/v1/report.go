package orderv1

import (
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/shopspring/decimal"
)

// ExecutionReport describes the state of one order after a matching pass, in
// the shape downstream reporting consumers expect: cumulative filled quantity,
// leaves quantity and average price.
type ExecutionReport struct {
	ExecID       string          `json:"execID"`
	OrderID      string          `json:"orderID"`
	Symbol       string          `json:"symbol"`
	Side         Side            `json:"side"`
	OrderType    OrderType       `json:"orderType"`
	OrderQty     decimal.Decimal `json:"orderQty"`
	CumQty       decimal.Decimal `json:"cumQty"`
	LeavesQty    decimal.Decimal `json:"leavesQty"`
	AvgPx        decimal.Decimal `json:"avgPx"`
	OrderStatus  OrderStatus     `json:"orderStatus"`
	TransactTime int64           `json:"transactTime"`
	Text         string          `json:"text"`
}

// TradeCaptureReport describes one trade for persistence and broadcast.
type TradeCaptureReport struct {
	TradeReportID string          `json:"tradeReportID"`
	TradeID       string          `json:"tradeID"`
	Symbol        string          `json:"symbol"`
	BuyOrderID    string          `json:"buyOrderID"`
	SellOrderID   string          `json:"sellOrderID"`
	Price         decimal.Decimal `json:"price"`
	Quantity      decimal.Decimal `json:"quantity"`
	TransactTime  int64           `json:"transactTime"`
}

// NewExecID returns a fresh execution id.
func NewExecID() string {
	return ulid.Make().String()
}

// NewTradeCaptureReport derives a trade capture report from a trade.
func NewTradeCaptureReport(trade *Trade) *TradeCaptureReport {
	return &TradeCaptureReport{
		TradeReportID: trade.ID + "-TCR",
		TradeID:       trade.ID,
		Symbol:        trade.Symbol,
		BuyOrderID:    trade.BuyOrderID,
		SellOrderID:   trade.SellOrderID,
		Price:         trade.Price,
		Quantity:      trade.Quantity,
		TransactTime:  time.Now().UnixNano(),
	}
}
