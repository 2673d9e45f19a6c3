package orderreader

import (
	"context"
	"encoding/json"

	orderreaderv1 "github.com/kavex/exchange/internal/domain/order-reader/v1"
	"github.com/kavex/exchange/pkg/config"
	"github.com/kavex/exchange/pkg/errors"
	"github.com/kavex/exchange/pkg/logger"
	"github.com/segmentio/kafka-go"
)

// Reader consumes order requests from the Kafka intake topic.
type Reader struct {
	kafkaReader *kafka.Reader
	logger      *logger.Logger
}

// NewReader creates a Kafka reader for the intake topic. It returns an
// implementation of the OrderReader interface.
func NewReader(cfg config.KafkaConfig, log *logger.Logger) *Reader {
	kafkaReader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     cfg.Brokers,
		Topic:       cfg.Topic,
		GroupID:     cfg.GroupID,
		MinBytes:    1,
		MaxBytes:    10e6,
		StartOffset: kafka.LastOffset,
	})

	return &Reader{
		kafkaReader: kafkaReader,
		logger:      log,
	}
}

func (r *Reader) logError(err error, operation string) {
	r.logger.Error(err,
		logger.Field{Key: "error", Value: err.Error()},
		logger.Field{Key: "operation", Value: operation},
	)
}

// SetOffset positions the reader on the intake stream, used after snapshot
// recovery to resume where the snapshot left off.
func (r *Reader) SetOffset(offset int64) error {
	if err := r.kafkaReader.SetOffset(offset); err != nil {
		r.logError(err, "SetOffset")
		return errors.NewTracer(string(errors.KafkaReadError)).Wrap(err)
	}
	return nil
}

// ReadMessage reads one message from the intake topic and parses it as an
// OrderRequest. The message's stream offset is recorded on the request.
func (r *Reader) ReadMessage(ctx context.Context) (kafka.Message, *orderreaderv1.OrderRequest, error) {
	msg, err := r.kafkaReader.ReadMessage(ctx)
	if err != nil {
		r.logError(err, "ReadMessage")
		return kafka.Message{}, nil, errors.NewTracer(string(errors.KafkaReadError)).Wrap(err)
	}

	var request orderreaderv1.OrderRequest
	if err := json.Unmarshal(msg.Value, &request); err != nil {
		r.logError(err, "UnmarshalOrderRequest")
		return kafka.Message{}, nil, errors.NewTracer(string(errors.KafkaReadError)).Wrap(err)
	}

	r.logger.DebugContext(ctx, "order request received",
		logger.Field{Key: "orderID", Value: request.OrderID},
		logger.Field{Key: "symbol", Value: request.Symbol},
		logger.Field{Key: "side", Value: request.Side},
		logger.Field{Key: "type", Value: request.Type},
		logger.Field{Key: "offset", Value: msg.Offset},
	)

	request.Offset = msg.Offset

	return msg, &request, nil
}

// CommitMessages commits the messages after processing.
func (r *Reader) CommitMessages(ctx context.Context, msgs ...kafka.Message) error {
	if err := r.kafkaReader.CommitMessages(ctx, msgs...); err != nil {
		r.logError(err, "CommitMessages")
		return errors.NewTracer(string(errors.KafkaReadError)).Wrap(err)
	}
	return nil
}

// Close closes the underlying Kafka reader.
func (r *Reader) Close() error {
	if err := r.kafkaReader.Close(); err != nil {
		r.logError(err, "Close")
		return err
	}
	return nil
}
