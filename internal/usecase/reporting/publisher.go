package reporting

import (
	"context"
	"encoding/json"

	orderv1 "github.com/kavex/exchange/internal/domain/order/v1"
	"github.com/kavex/exchange/pkg/config"
	"github.com/kavex/exchange/pkg/errors"
	"github.com/kavex/exchange/pkg/logger"
	"github.com/segmentio/kafka-go"
)

// Publisher writes execution reports and trade capture reports to their Kafka
// topics.
type Publisher struct {
	executionWriter    *kafka.Writer
	tradeCaptureWriter *kafka.Writer
	logger             *logger.Logger
}

// NewPublisher creates a Kafka publisher for both report topics.
func NewPublisher(cfg config.ReportsConfig, log *logger.Logger) *Publisher {
	executionWriter := kafka.NewWriter(kafka.WriterConfig{
		Brokers: cfg.Brokers,
		Topic:   cfg.ExecutionTopic,
	})
	tradeCaptureWriter := kafka.NewWriter(kafka.WriterConfig{
		Brokers: cfg.Brokers,
		Topic:   cfg.TradeCaptureTopic,
	})

	return &Publisher{
		executionWriter:    executionWriter,
		tradeCaptureWriter: tradeCaptureWriter,
		logger:             log,
	}
}

// PublishExecutionReport publishes one execution report, keyed by order id so
// a consumer sees one order's reports in order.
func (p *Publisher) PublishExecutionReport(ctx context.Context, report *orderv1.ExecutionReport) error {
	value, err := json.Marshal(report)
	if err != nil {
		return errors.NewTracer(string(errors.KafkaWriteError)).Wrap(err)
	}

	msg := kafka.Message{
		Key:   []byte(report.OrderID),
		Value: value,
	}
	if err := p.executionWriter.WriteMessages(ctx, msg); err != nil {
		p.logger.ErrorContext(ctx, err,
			logger.Field{Key: "orderID", Value: report.OrderID},
			logger.Field{Key: "execID", Value: report.ExecID},
		)
		return errors.NewTracer(string(errors.KafkaWriteError)).Wrap(err)
	}
	return nil
}

// PublishTradeCaptureReport publishes one trade capture report, keyed by
// symbol.
func (p *Publisher) PublishTradeCaptureReport(ctx context.Context, report *orderv1.TradeCaptureReport) error {
	value, err := json.Marshal(report)
	if err != nil {
		return errors.NewTracer(string(errors.KafkaWriteError)).Wrap(err)
	}

	msg := kafka.Message{
		Key:   []byte(report.Symbol),
		Value: value,
	}
	if err := p.tradeCaptureWriter.WriteMessages(ctx, msg); err != nil {
		p.logger.ErrorContext(ctx, err,
			logger.Field{Key: "tradeID", Value: report.TradeID},
			logger.Field{Key: "symbol", Value: report.Symbol},
		)
		return errors.NewTracer(string(errors.KafkaWriteError)).Wrap(err)
	}
	return nil
}

// Close closes both writers.
func (p *Publisher) Close() error {
	if err := p.executionWriter.Close(); err != nil {
		return err
	}
	return p.tradeCaptureWriter.Close()
}
