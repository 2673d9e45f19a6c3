package refdatav1

import "github.com/shopspring/decimal"

// Symbol holds the reference data for one tradable instrument: identity,
// venue information and the tick/lot constraints orders must conform to.
type Symbol struct {
	Symbol      string          `json:"symbol"`
	Description string          `json:"description"`
	Exchange    string          `json:"exchange"`
	Currency    string          `json:"currency"`
	TickSize    decimal.Decimal `json:"tickSize"`
	LotSize     decimal.Decimal `json:"lotSize"`
	MinQty      decimal.Decimal `json:"minQty"`
	MaxQty      decimal.Decimal `json:"maxQty"`
	Active      bool            `json:"active"`
}
