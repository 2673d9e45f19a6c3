package engine

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	orderreaderv1 "github.com/kavex/exchange/internal/domain/order-reader/v1"
	orderv1 "github.com/kavex/exchange/internal/domain/order/v1"
	refdatav1 "github.com/kavex/exchange/internal/domain/refdata/v1"
	snapshotv1 "github.com/kavex/exchange/internal/domain/snapshot/v1"
	"github.com/kavex/exchange/internal/usecase/matching"
	"github.com/kavex/exchange/internal/usecase/orderbook"
	"github.com/kavex/exchange/internal/usecase/refdata"
	"github.com/kavex/exchange/pkg/logger"
	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeReader struct {
	offset int64
	closed bool
}

func (r *fakeReader) ReadMessage(ctx context.Context) (kafka.Message, *orderreaderv1.OrderRequest, error) {
	<-ctx.Done()
	return kafka.Message{}, nil, ctx.Err()
}

func (r *fakeReader) SetOffset(offset int64) error {
	r.offset = offset
	return nil
}

func (r *fakeReader) CommitMessages(ctx context.Context, msgs ...kafka.Message) error {
	return nil
}

func (r *fakeReader) Close() error {
	r.closed = true
	return nil
}

// failingReader always errors on read without the context being done,
// counting the attempts.
type failingReader struct {
	fakeReader
	attempts atomic.Int64
}

func (r *failingReader) ReadMessage(ctx context.Context) (kafka.Message, *orderreaderv1.OrderRequest, error) {
	r.attempts.Add(1)
	return kafka.Message{}, nil, errors.New("broker unavailable")
}

type fakeSnapshotStore struct {
	stored   []*snapshotv1.Snapshot
	snapshot *snapshotv1.Snapshot
}

func (s *fakeSnapshotStore) Store(ctx context.Context, snapshot *snapshotv1.Snapshot) error {
	s.stored = append(s.stored, snapshot)
	return nil
}

func (s *fakeSnapshotStore) Load(ctx context.Context) (*snapshotv1.Snapshot, error) {
	return s.snapshot, nil
}

type fakeDepthPublisher struct {
	published []orderbook.Depth
}

func (p *fakeDepthPublisher) PublishDepth(ctx context.Context, depth orderbook.Depth) error {
	p.published = append(p.published, depth)
	return nil
}

func newTestEngine(t *testing.T, reader *fakeReader, store *fakeSnapshotStore, depths *fakeDepthPublisher) *Engine {
	log, err := logger.NewLogger()
	require.NoError(t, err)

	matcher := matching.NewEngine(matching.Config{}, nil, log)
	engine := NewEngine(matcher, nil, reader, store, nil, depths, log, DefaultEngineOptions())
	engine.ctx = context.Background()
	return engine
}

func placeRequest(symbol string, side orderv1.Side, quantity, price float64, offset int64) *orderreaderv1.OrderRequest {
	return &orderreaderv1.OrderRequest{
		Symbol:      symbol,
		Side:        side,
		Type:        orderreaderv1.RequestTypeLimit,
		Quantity:    decimal.NewFromFloat(quantity),
		Price:       decimal.NewFromFloat(price),
		TimeInForce: orderv1.TimeInForceGTC,
		Offset:      offset,
	}
}

func TestEngine_ProcessRequest(t *testing.T) {
	depths := &fakeDepthPublisher{}
	engine := newTestEngine(t, &fakeReader{}, &fakeSnapshotStore{}, depths)

	engine.processRequest(placeRequest("BTC-USD", orderv1.SideSell, 5.0, 50_000.0, 1))
	engine.processRequest(placeRequest("BTC-USD", orderv1.SideBuy, 5.0, 50_000.0, 2))

	assert.Equal(t, int64(1), engine.GetTotalMatches())
	// A depth update went out for each book mutation.
	assert.Len(t, depths.published, 2)

	_, ok := engine.matcher.BestBid("BTC-USD")
	assert.False(t, ok)
}

func TestEngine_ProcessCancelRequest(t *testing.T) {
	depths := &fakeDepthPublisher{}
	engine := newTestEngine(t, &fakeReader{}, &fakeSnapshotStore{}, depths)

	request := placeRequest("BTC-USD", orderv1.SideBuy, 5.0, 50_000.0, 1)
	request.OrderID = "order-1"
	engine.processRequest(request)

	cancel := &orderreaderv1.OrderRequest{
		OrderID: "order-1",
		Symbol:  "BTC-USD",
		Type:    orderreaderv1.RequestTypeCancel,
		Offset:  2,
	}
	engine.processRequest(cancel)

	_, ok := engine.matcher.BestBid("BTC-USD")
	assert.False(t, ok)
}

func TestEngine_RejectedOrderPublishesNoDepth(t *testing.T) {
	depths := &fakeDepthPublisher{}
	engine := newTestEngine(t, &fakeReader{}, &fakeSnapshotStore{}, depths)

	bad := placeRequest("BTC-USD", orderv1.SideBuy, 0.0, 50_000.0, 1)
	engine.processRequest(bad)

	assert.Empty(t, depths.published)
	assert.Equal(t, int64(0), engine.GetTotalMatches())
}

func TestEngine_DirectoryValidationRejects(t *testing.T) {
	log, err := logger.NewLogger()
	require.NoError(t, err)

	directory := refdata.NewDirectory(log)
	directory.Add(refdatav1.Symbol{
		Symbol:   "BTC-USD",
		TickSize: decimal.NewFromFloat(0.01),
		Active:   true,
	})

	matcher := matching.NewEngine(matching.Config{}, nil, log)
	depths := &fakeDepthPublisher{}
	engine := NewEngine(matcher, directory, &fakeReader{}, &fakeSnapshotStore{}, nil, depths, log, DefaultEngineOptions())
	engine.ctx = context.Background()

	offTick := placeRequest("BTC-USD", orderv1.SideBuy, 1.0, 50_000.005, 1)
	engine.processRequest(offTick)

	_, ok := engine.matcher.BestBid("BTC-USD")
	assert.False(t, ok)
	assert.Empty(t, depths.published)
}

func TestEngine_SnapshotLifecycle(t *testing.T) {
	store := &fakeSnapshotStore{}
	engine := newTestEngine(t, &fakeReader{}, store, &fakeDepthPublisher{})

	engine.processRequest(placeRequest("BTC-USD", orderv1.SideBuy, 5.0, 50_000.0, 7))
	engine.setOrderOffset(7)

	engine.createAndStoreSnapshot(context.Background())

	require.Len(t, store.stored, 1)
	assert.Equal(t, int64(7), store.stored[0].OrderOffset)
	require.Len(t, store.stored[0].Books, 1)
	assert.Equal(t, "BTC-USD", store.stored[0].Books[0].Symbol)
	assert.Equal(t, int64(7), engine.GetLastSnapshotOffset())
}

func TestEngine_RestoreFromSnapshot(t *testing.T) {
	reader := &fakeReader{}
	store := &fakeSnapshotStore{
		snapshot: &snapshotv1.Snapshot{
			OrderOffset: 42,
			Books: []snapshotv1.BookSnapshot{
				{
					Symbol: "BTC-USD",
					Orders: []snapshotv1.BookOrder{
						{
							OrderID:   "resting-1",
							Symbol:    "BTC-USD",
							Side:      orderv1.SideBuy,
							Type:      orderv1.OrderTypeLimit,
							Price:     decimal.NewFromInt(50_000),
							Quantity:  decimal.NewFromInt(5),
							Remaining: decimal.NewFromInt(5),
							Sequence:  1,
							Status:    orderv1.OrderStatusNew,
						},
					},
				},
			},
		},
	}
	engine := newTestEngine(t, reader, store, &fakeDepthPublisher{})

	require.NoError(t, engine.restoreFromSnapshot(context.Background()))

	assert.Equal(t, int64(42), engine.GetOrderOffset())
	assert.Equal(t, int64(42), engine.GetLastSnapshotOffset())
	// The intake stream resumes one past the snapshot's offset.
	assert.Equal(t, int64(43), reader.offset)

	best, ok := engine.matcher.BestBid("BTC-USD")
	require.True(t, ok)
	assert.True(t, best.Equal(decimal.NewFromInt(50_000)))
}

func TestEngine_OrderProcessorBacksOffOnReadError(t *testing.T) {
	reader := &failingReader{}
	store := &fakeSnapshotStore{}

	log, err := logger.NewLogger()
	require.NoError(t, err)
	matcher := matching.NewEngine(matching.Config{}, nil, log)
	engine := NewEngine(matcher, nil, reader, store, nil, &fakeDepthPublisher{}, log, DefaultEngineOptions())

	require.NoError(t, engine.Start(context.Background()))
	time.Sleep(50 * time.Millisecond)
	engine.Stop()

	// One read fails immediately, then the loop waits out the backoff; a hot
	// spin would rack up thousands of attempts in the same window.
	attempts := reader.attempts.Load()
	assert.GreaterOrEqual(t, attempts, int64(1))
	assert.Less(t, attempts, int64(10))
}

func TestEngine_StartStop(t *testing.T) {
	reader := &fakeReader{}
	store := &fakeSnapshotStore{}
	engine := newTestEngine(t, reader, store, &fakeDepthPublisher{})

	require.NoError(t, engine.Start(context.Background()))
	engine.Stop()

	assert.True(t, reader.closed)
	// Stop takes a final snapshot.
	assert.NotEmpty(t, store.stored)
}
