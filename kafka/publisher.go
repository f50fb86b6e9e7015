package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/tair/smart-inventory/internal/inventory/domain"
	"github.com/tair/smart-inventory/pkg/logger"
)

// Publisher sends ledger events to Kafka. It implements domain.EventPublisher.
type Publisher struct {
	producer sarama.SyncProducer
	now      func() time.Time
}

// NewPublisher creates a new Kafka publisher
func NewPublisher(brokers []string) (*Publisher, error) {
	config := sarama.NewConfig()
	config.Producer.Return.Successes = true
	config.Producer.Retry.Max = 3
	config.Producer.RequiredAcks = sarama.WaitForAll
	config.Producer.Compression = sarama.CompressionSnappy
	config.Producer.MaxMessageBytes = 1000000

	producer, err := sarama.NewSyncProducer(brokers, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create Kafka producer: %w", err)
	}

	logger.Logger.Info().
		Strs("brokers", brokers).
		Msg("Kafka publisher initialized")

	return NewPublisherWithProducer(producer), nil
}

// NewPublisherWithProducer wraps an existing producer.
func NewPublisherWithProducer(producer sarama.SyncProducer) *Publisher {
	return &Publisher{producer: producer, now: time.Now}
}

// PublishStockMoved sends one message per movement, keyed by branch and product
// so that movements of the same record stay ordered within a partition.
func (p *Publisher) PublishStockMoved(ctx context.Context, movements []domain.StockMovement) error {
	if len(movements) == 0 {
		return nil
	}

	ctx, span := startPublishSpan(ctx, TopicStockMoved, EventTypeStockMoved)
	defer span.End()
	span.SetAttributes(attribute.Int("messaging.batch.message_count", len(movements)))

	msgs := make([]*sarama.ProducerMessage, 0, len(movements))
	for _, m := range movements {
		event := StockMovedEvent{
			EventID:    uuid.NewString(),
			EventType:  EventTypeStockMoved,
			MovementID: m.ID,
			BranchID:   m.BranchID,
			ProductID:  m.ProductID,
			Type:       string(m.Type),
			Quantity:   m.Quantity,
			UserID:     m.UserID,
			Note:       m.Note,
			Timestamp:  p.now(),
		}
		msg, err := newMessage(ctx, TopicStockMoved, recordKey(m.BranchID, m.ProductID), event.EventType, event.EventID, event)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "Failed to marshal event")
			return err
		}
		msgs = append(msgs, msg)
	}

	if err := p.producer.SendMessages(msgs); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to send messages")
		return fmt.Errorf("failed to send stock moved events to Kafka: %w", err)
	}

	span.SetStatus(codes.Ok, "Events published successfully")
	logger.Debug(ctx).
		Str("topic", TopicStockMoved).
		Int("count", len(msgs)).
		Msg("Stock moved events published")
	return nil
}

// PublishOrderCreated publishes an order created event with tracing
func (p *Publisher) PublishOrderCreated(ctx context.Context, order *domain.Order) error {
	ctx, span := startPublishSpan(ctx, TopicOrderCreated, EventTypeOrderCreated)
	defer span.End()

	event := OrderCreatedEvent{
		EventID:   uuid.NewString(),
		EventType: EventTypeOrderCreated,
		OrderID:   order.ID,
		BranchID:  order.BranchID,
		UserID:    order.UserID,
		Subtotal:  order.Subtotal,
		Tax:       order.Tax,
		Total:     order.Total,
		Items:     make([]OrderItemEvent, 0, len(order.Items)),
		Timestamp: p.now(),
	}
	for _, item := range order.Items {
		event.Items = append(event.Items, OrderItemEvent{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			Price:     item.Price,
			Tax:       item.Tax,
		})
	}

	span.SetAttributes(
		attribute.String("event.id", event.EventID),
		attribute.Int64("order.id", int64(order.ID)),
		attribute.Int64("branch.id", int64(order.BranchID)),
	)

	msg, err := newMessage(ctx, TopicOrderCreated, fmt.Sprintf("order_%d", order.ID), event.EventType, event.EventID, event)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to marshal event")
		return err
	}

	partition, offset, err := p.producer.SendMessage(msg)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to send message")
		return fmt.Errorf("failed to send order created event to Kafka: %w", err)
	}

	span.SetAttributes(
		attribute.Int("messaging.kafka.partition", int(partition)),
		attribute.Int64("messaging.kafka.offset", offset),
	)
	span.SetStatus(codes.Ok, "Event published successfully")

	logger.Info(ctx).
		Str("event_id", event.EventID).
		Str("topic", TopicOrderCreated).
		Int32("partition", partition).
		Int64("offset", offset).
		Uint("order_id", order.ID).
		Msg("Order created event published")
	return nil
}

// Close closes the Kafka producer
func (p *Publisher) Close() error {
	if p.producer != nil {
		return p.producer.Close()
	}
	return nil
}

func startPublishSpan(ctx context.Context, topic, eventType string) (context.Context, trace.Span) {
	return otel.Tracer("kafka-publisher").Start(ctx, "kafka.publish."+eventType,
		trace.WithSpanKind(trace.SpanKindProducer),
		trace.WithAttributes(
			attribute.String("messaging.system", "kafka"),
			attribute.String("messaging.destination", topic),
			attribute.String("messaging.destination_kind", "topic"),
			attribute.String("event.type", eventType),
		),
	)
}

// newMessage encodes event and injects the trace context into the headers.
func newMessage(ctx context.Context, topic, key, eventType, eventID string, event interface{}) (*sarama.ProducerMessage, error) {
	payload, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s event: %w", eventType, err)
	}

	carrier := propagation.MapCarrier{}
	otel.GetTextMapPropagator().Inject(ctx, carrier)

	headers := []sarama.RecordHeader{
		{Key: []byte("event_type"), Value: []byte(eventType)},
		{Key: []byte("event_id"), Value: []byte(eventID)},
	}
	for k, v := range carrier {
		headers = append(headers, sarama.RecordHeader{Key: []byte(k), Value: []byte(v)})
	}

	return &sarama.ProducerMessage{
		Topic:   topic,
		Key:     sarama.StringEncoder(key),
		Value:   sarama.ByteEncoder(payload),
		Headers: headers,
	}, nil
}

func recordKey(branchID, productID uint) string {
	return fmt.Sprintf("branch_%d_product_%d", branchID, productID)
}
