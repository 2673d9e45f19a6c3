// Package engine runs the matching service: it restores state from the last
// snapshot, consumes order requests from the intake stream, matches them, and
// fans out execution reports, trade capture reports and market data.
package engine

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	orderreaderv1 "github.com/kavex/exchange/internal/domain/order-reader/v1"
	orderv1 "github.com/kavex/exchange/internal/domain/order/v1"
	snapshotv1 "github.com/kavex/exchange/internal/domain/snapshot/v1"
	"github.com/kavex/exchange/internal/usecase/matching"
	"github.com/kavex/exchange/internal/usecase/orderbook"
	"github.com/kavex/exchange/internal/usecase/refdata"
	"github.com/kavex/exchange/internal/usecase/reporting"
	"github.com/kavex/exchange/pkg/errors"
	"github.com/kavex/exchange/pkg/logger"
)

// readErrorBackoff is how long the order processor waits after a failed read
// before retrying the intake stream.
const readErrorBackoff = time.Second

// DepthPublisher fans depth updates out after a book changed.
type DepthPublisher interface {
	PublishDepth(ctx context.Context, depth orderbook.Depth) error
}

// Engine wires the matcher to its collaborators and owns the two background
// loops: the order processor and the snapshot manager.
type Engine struct {
	matcher     *matching.Engine
	directory   *refdata.Directory
	orderReader orderreaderv1.OrderReader
	snapshots   snapshotv1.Store
	reports     *reporting.Publisher
	marketData  DepthPublisher
	logger      *logger.Logger
	options     *Options

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	orderOffset        atomic.Int64
	lastSnapshotOffset atomic.Int64
	totalMatches       atomic.Int64
}

// NewEngine creates the service around an already-constructed matcher and its
// collaborators. directory may be nil when symbol validation is disabled.
func NewEngine(
	matcher *matching.Engine,
	directory *refdata.Directory,
	orderReader orderreaderv1.OrderReader,
	snapshots snapshotv1.Store,
	reports *reporting.Publisher,
	marketData DepthPublisher,
	log *logger.Logger,
	options *Options,
) *Engine {
	if options == nil {
		options = DefaultEngineOptions()
	}
	return &Engine{
		matcher:     matcher,
		directory:   directory,
		orderReader: orderReader,
		snapshots:   snapshots,
		reports:     reports,
		marketData:  marketData,
		logger:      log,
		options:     options,
	}
}

// Start restores state from the latest snapshot, positions the intake reader
// just past it, and launches the processing loops. It returns once the loops
// are running.
func (e *Engine) Start(ctx context.Context) error {
	e.ctx, e.cancel = context.WithCancel(ctx)

	if err := e.restoreFromSnapshot(e.ctx); err != nil {
		return err
	}

	e.wg.Add(2)
	go e.runOrderProcessor()
	go e.runSnapshotManager()

	e.logger.Info("engine started",
		logger.Field{Key: "orderOffset", Value: e.GetOrderOffset()},
	)
	return nil
}

// Stop cancels the loops, waits for them to drain, takes a final snapshot and
// closes the intake reader.
func (e *Engine) Stop() {
	if e.cancel != nil {
		e.cancel()
	}
	e.wg.Wait()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	e.createAndStoreSnapshot(shutdownCtx)

	if err := e.orderReader.Close(); err != nil {
		e.logger.Error(err, logger.Field{Key: "operation", Value: "CloseReader"})
	}

	e.logger.Info("engine stopped",
		logger.Field{Key: "orderOffset", Value: e.GetOrderOffset()},
		logger.Field{Key: "totalMatches", Value: e.GetTotalMatches()},
	)
}

// restoreFromSnapshot loads the last snapshot, rebuilds the books and resumes
// the intake stream one message past the snapshot's offset.
func (e *Engine) restoreFromSnapshot(ctx context.Context) error {
	snapshot, err := e.snapshots.Load(ctx)
	if err != nil {
		return err
	}
	if snapshot == nil {
		return nil
	}

	if err := e.matcher.Restore(snapshot); err != nil {
		return err
	}
	e.setOrderOffset(snapshot.OrderOffset)
	e.setLastSnapshotOffset(snapshot.OrderOffset)

	if err := e.orderReader.SetOffset(snapshot.OrderOffset + 1); err != nil {
		return err
	}

	e.logger.InfoContext(ctx, "state restored from snapshot",
		logger.Field{Key: "orderOffset", Value: snapshot.OrderOffset},
		logger.Field{Key: "books", Value: len(snapshot.Books)},
	)
	return nil
}

// runOrderProcessor is the intake loop: read, process, commit.
func (e *Engine) runOrderProcessor() {
	defer e.wg.Done()

	for {
		select {
		case <-e.ctx.Done():
			return
		default:
		}

		msg, request, err := e.orderReader.ReadMessage(e.ctx)
		if err != nil {
			if e.ctx.Err() != nil {
				return
			}
			// Read and decode failures are logged by the reader; back off
			// briefly so a persistent broker error cannot spin the loop hot.
			select {
			case <-e.ctx.Done():
				return
			case <-time.After(readErrorBackoff):
			}
			continue
		}

		e.processRequest(request)
		e.setOrderOffset(request.Offset)

		if err := e.orderReader.CommitMessages(e.ctx, msg); err != nil && e.ctx.Err() == nil {
			e.logger.Error(err, logger.Field{Key: "offset", Value: msg.Offset})
		}
	}
}

// processRequest routes one intake message to matching or cancellation and
// publishes the resulting reports and market data.
func (e *Engine) processRequest(request *orderreaderv1.OrderRequest) {
	if request.Type == orderreaderv1.RequestTypeCancel {
		e.processCancel(request)
		return
	}
	e.processOrder(request)
}

func (e *Engine) processOrder(request *orderreaderv1.OrderRequest) {
	order := request.ToOrder()

	if e.directory != nil {
		if err := e.directory.ValidateOrder(order); err != nil {
			e.publishExecutionReport(reporting.BuildRejectReport(order, err.Error()))
			return
		}
	}

	trades, err := e.matcher.ProcessOrder(e.ctx, order)
	if err != nil {
		e.publishExecutionReport(reporting.BuildRejectReport(order, err.Error()))
		return
	}

	e.totalMatches.Add(int64(len(trades)))

	e.publishExecutionReport(reporting.BuildExecutionReport(order, trades, ""))
	for _, trade := range trades {
		e.publishTradeCaptureReport(orderv1.NewTradeCaptureReport(trade))
	}

	if len(trades) > 0 || !order.IsFilled() {
		e.publishDepth(order.Symbol)
	}
}

func (e *Engine) processCancel(request *orderreaderv1.OrderRequest) {
	order, err := e.matcher.CancelOrder(e.ctx, request.Symbol, request.OrderID)
	if err != nil {
		if !errors.ErrorCodeEquals(err, errors.OrderNotFound) {
			e.logger.ErrorContext(e.ctx, err,
				logger.Field{Key: "orderID", Value: request.OrderID},
				logger.Field{Key: "symbol", Value: request.Symbol},
			)
		}
		return
	}

	e.publishExecutionReport(reporting.BuildExecutionReport(order, nil, "cancelled"))
	e.publishDepth(request.Symbol)
}

func (e *Engine) publishExecutionReport(report *orderv1.ExecutionReport) {
	if e.reports == nil {
		return
	}
	if err := e.reports.PublishExecutionReport(e.ctx, report); err != nil && e.ctx.Err() == nil {
		e.logger.Error(err, logger.Field{Key: "orderID", Value: report.OrderID})
	}
}

func (e *Engine) publishTradeCaptureReport(report *orderv1.TradeCaptureReport) {
	if e.reports == nil {
		return
	}
	if err := e.reports.PublishTradeCaptureReport(e.ctx, report); err != nil && e.ctx.Err() == nil {
		e.logger.Error(err, logger.Field{Key: "tradeID", Value: report.TradeID})
	}
}

func (e *Engine) publishDepth(symbol string) {
	if e.marketData == nil {
		return
	}
	depth, ok := e.matcher.Depth(symbol, e.options.DepthLevels)
	if !ok {
		return
	}
	if err := e.marketData.PublishDepth(e.ctx, depth); err != nil && e.ctx.Err() == nil {
		e.logger.Error(err, logger.Field{Key: "symbol", Value: symbol})
	}
}

// runSnapshotManager periodically snapshots the books once the intake offset
// has advanced far enough past the last snapshot.
func (e *Engine) runSnapshotManager() {
	defer e.wg.Done()

	ticker := time.NewTicker(e.options.SnapshotInterval)
	defer ticker.Stop()

	for {
		select {
		case <-e.ctx.Done():
			return
		case <-ticker.C:
			if e.GetOrderOffset()-e.GetLastSnapshotOffset() >= e.options.SnapshotOffsetDelta {
				e.createAndStoreSnapshot(e.ctx)
			}
		}
	}
}

// createAndStoreSnapshot captures all books at the current intake offset and
// persists them.
func (e *Engine) createAndStoreSnapshot(ctx context.Context) {
	offset := e.GetOrderOffset()
	snapshot := e.matcher.Snapshot()
	snapshot.OrderOffset = offset

	if err := e.snapshots.Store(ctx, snapshot); err != nil {
		e.logger.ErrorContext(ctx, err, logger.Field{Key: "orderOffset", Value: offset})
		return
	}
	e.setLastSnapshotOffset(offset)
}

// GetOrderOffset returns the last processed intake offset.
func (e *Engine) GetOrderOffset() int64 {
	return e.orderOffset.Load()
}

// GetLastSnapshotOffset returns the intake offset of the last stored snapshot.
func (e *Engine) GetLastSnapshotOffset() int64 {
	return e.lastSnapshotOffset.Load()
}

// GetTotalMatches returns the number of trades produced since start.
func (e *Engine) GetTotalMatches() int64 {
	return e.totalMatches.Load()
}

func (e *Engine) setOrderOffset(offset int64) {
	e.orderOffset.Store(offset)
}

func (e *Engine) setLastSnapshotOffset(offset int64) {
	e.lastSnapshotOffset.Store(offset)
}
