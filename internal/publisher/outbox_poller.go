package publisher

import (
	"context"
	"encoding/json"
	"time"

	"github.com/fjod/storefront/internal/domain"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

const (
	DefaultTopic = "cart-checked-out"
	EventType    = "cart.checked_out"
)

// ReceiptSource is the cart service's outbox.
type ReceiptSource interface {
	PendingReceipts(ctx context.Context) ([]domain.Receipt, error)
	AckReceipts(ctx context.Context, ids []string) error
}

// MessageWriter is the part of *kafka.Writer the poller uses.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// OutboxPoller publishes receipts committed by checkout and acknowledges
// them once the broker accepted them. A crash between publish and ack
// republishes the receipt, so consumers must dedupe on the message key.
type OutboxPoller struct {
	timeout   time.Duration
	eventTick time.Duration
	source    ReceiptSource
	writer    MessageWriter
	log       *zap.Logger
}

func NewKafkaWriter(topic string, brokers ...string) *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireAll,
		AllowAutoTopicCreation: true,
	}
}

func NewOutboxPoller(source ReceiptSource, writer MessageWriter, log *zap.Logger) *OutboxPoller {
	if log == nil {
		log = zap.NewNop()
	}
	return &OutboxPoller{
		timeout:   5 * time.Second,
		eventTick: time.Second,
		source:    source,
		writer:    writer,
		log:       log.Named("outbox"),
	}
}

// Run polls until ctx is done, then closes the writer.
func (p *OutboxPoller) Run(ctx context.Context) {
	eventTicker := time.NewTicker(p.eventTick)
	defer eventTicker.Stop()
	defer func() {
		if err := p.writer.Close(); err != nil {
			p.log.Warn("failed to close kafka writer", zap.Error(err))
		}
	}()

	for {
		select {
		case <-eventTicker.C:
			p.processPendingReceipts(ctx)
		case <-ctx.Done():
			return
		}
	}
}

// processPendingReceipts publishes every pending receipt and acknowledges
// the ones that were written. It returns how many were acknowledged.
func (p *OutboxPoller) processPendingReceipts(ctx context.Context) int {
	receipts, err := p.source.PendingReceipts(ctx)
	if err != nil {
		p.log.Warn("failed to fetch pending receipts", zap.Error(err))
		return 0
	}

	published := make([]string, 0, len(receipts))
	for i := range receipts {
		if err := p.publish(ctx, &receipts[i]); err != nil {
			p.log.Warn("failed to publish receipt",
				zap.String("receipt_id", receipts[i].ID),
				zap.Error(err))
			continue
		}
		published = append(published, receipts[i].ID)
	}

	if len(published) == 0 {
		return 0
	}

	if err := p.source.AckReceipts(ctx, published); err != nil {
		p.log.Warn("failed to acknowledge receipts",
			zap.Strings("receipt_ids", published),
			zap.Error(err))
		return 0
	}

	p.log.Debug("receipts published", zap.Int("count", len(published)))
	return len(published)
}

func (p *OutboxPoller) publish(ctx context.Context, receipt *domain.Receipt) error {
	payload, err := json.Marshal(receipt)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	msg := kafka.Message{
		Key:   []byte(receipt.ID), // receipt id for dedupe
		Value: payload,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(EventType)},
		},
		Time: receipt.Timestamp,
	}

	return p.writer.WriteMessages(ctx, msg)
}
