// Package refdata loads the symbol reference data file and validates orders
// against per-symbol trading constraints.
package refdata

import (
	"encoding/json"
	"os"
	"sync"

	orderv1 "github.com/kavex/exchange/internal/domain/order/v1"
	refdatav1 "github.com/kavex/exchange/internal/domain/refdata/v1"
	"github.com/kavex/exchange/pkg/errors"
	"github.com/kavex/exchange/pkg/logger"
)

// Directory holds the known symbols keyed by symbol name. Lookups are
// read-mostly; reloads swap the whole map under the write lock.
type Directory struct {
	mu      sync.RWMutex
	symbols map[string]refdatav1.Symbol
	logger  *logger.Logger
}

// NewDirectory creates an empty directory.
func NewDirectory(log *logger.Logger) *Directory {
	return &Directory{
		symbols: make(map[string]refdatav1.Symbol),
		logger:  log,
	}
}

// LoadFile replaces the directory's contents with the symbols from a JSON
// file. The file holds an array of symbol definitions.
func (d *Directory) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.NewTracer("failed to read symbols file").Wrap(err)
	}

	var entries []refdatav1.Symbol
	if err := json.Unmarshal(data, &entries); err != nil {
		return errors.NewTracer("failed to parse symbols file").Wrap(err)
	}

	symbols := make(map[string]refdatav1.Symbol, len(entries))
	for _, entry := range entries {
		symbols[entry.Symbol] = entry
	}

	d.mu.Lock()
	d.symbols = symbols
	d.mu.Unlock()

	d.logger.Info("symbols loaded",
		logger.Field{Key: "path", Value: path},
		logger.Field{Key: "count", Value: len(symbols)},
	)

	return nil
}

// Add registers or replaces a single symbol definition.
func (d *Directory) Add(symbol refdatav1.Symbol) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.symbols[symbol.Symbol] = symbol
}

// Lookup returns the symbol definition, or false when unknown.
func (d *Directory) Lookup(symbol string) (refdatav1.Symbol, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	entry, ok := d.symbols[symbol]
	return entry, ok
}

// IsTradable reports whether the symbol is known and active.
func (d *Directory) IsTradable(symbol string) bool {
	entry, ok := d.Lookup(symbol)
	return ok && entry.Active
}

// Count returns the number of known symbols.
func (d *Directory) Count() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.symbols)
}

// ValidateOrder checks an order against the symbol's trading constraints:
// price on a tick boundary, quantity on a lot boundary and inside the
// min/max range. Limit prices only; market orders carry no price to check.
func (d *Directory) ValidateOrder(order *orderv1.Order) error {
	entry, ok := d.Lookup(order.Symbol)
	if !ok || !entry.Active {
		return errors.NewErrorDetailsWithObject(
			"symbol is not known or not tradable",
			string(errors.UnknownInstrument),
			"symbol",
			order,
		)
	}

	if order.Type == orderv1.OrderTypeLimit && entry.TickSize.Sign() > 0 {
		if !order.Price.Mod(entry.TickSize).IsZero() {
			return errors.NewErrorDetailsWithObject(
				"price is not a multiple of the tick size",
				string(errors.TickViolation),
				"price",
				order,
			)
		}
	}

	if entry.LotSize.Sign() > 0 && !order.Quantity.Mod(entry.LotSize).IsZero() {
		return errors.NewErrorDetailsWithObject(
			"quantity is not a multiple of the lot size",
			string(errors.LotViolation),
			"quantity",
			order,
		)
	}
	if entry.MinQty.Sign() > 0 && order.Quantity.LessThan(entry.MinQty) {
		return errors.NewErrorDetailsWithObject(
			"quantity is below the symbol minimum",
			string(errors.LotViolation),
			"quantity",
			order,
		)
	}
	if entry.MaxQty.Sign() > 0 && order.Quantity.GreaterThan(entry.MaxQty) {
		return errors.NewErrorDetailsWithObject(
			"quantity is above the symbol maximum",
			string(errors.LotViolation),
			"quantity",
			order,
		)
	}

	return nil
}
