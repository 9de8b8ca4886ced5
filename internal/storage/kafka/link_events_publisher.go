package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/IgorGrieder/linkquota/internal/events"
	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

// MessageWriter is the subset of *kafka.Writer the publisher uses.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// LinkEventsPublisher forwards link lifecycle events to a Kafka topic, keyed
// by short code so every event of a link lands on the same partition.
type LinkEventsPublisher struct {
	writer MessageWriter
	topic  string
	tracer trace.Tracer
}

func NewWriter(brokers []string, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		BatchTimeout:           10 * time.Millisecond,
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
	}
}

func NewLinkEventsPublisher(writer MessageWriter, topic string) *LinkEventsPublisher {
	return &LinkEventsPublisher{
		writer: writer,
		topic:  topic,
		tracer: otel.Tracer("github.com/IgorGrieder/linkquota/internal/storage/kafka"),
	}
}

func (p *LinkEventsPublisher) Name() string { return "kafka:" + p.topic }

func (p *LinkEventsPublisher) Handle(ctx context.Context, batch []events.LinkEvent) error {
	if len(batch) == 0 {
		return nil
	}

	ctx, span := p.tracer.Start(ctx, "kafka.publish.link_events",
		trace.WithSpanKind(trace.SpanKindProducer),
		trace.WithAttributes(
			attribute.String("messaging.system", "kafka"),
			attribute.String("messaging.destination.name", p.topic),
			attribute.String("messaging.operation", "publish"),
			attribute.Int("messaging.batch.message_count", len(batch)),
		),
	)
	defer span.End()

	carrier := propagation.MapCarrier{}
	otel.GetTextMapPropagator().Inject(ctx, carrier)
	headers := carrierToKafkaHeaders(carrier)

	msgs, err := buildMessages(batch, headers)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "encode failed")
		return err
	}

	if err := p.writer.WriteMessages(ctx, msgs...); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "kafka publish failed")
		return fmt.Errorf("publish %d link events: %w", len(msgs), err)
	}
	return nil
}

func (p *LinkEventsPublisher) Close() error {
	return p.writer.Close()
}

func buildMessages(batch []events.LinkEvent, headers []kafka.Header) ([]kafka.Message, error) {
	msgs := make([]kafka.Message, 0, len(batch))
	for _, ev := range batch {
		value, err := json.Marshal(ev)
		if err != nil {
			return nil, fmt.Errorf("marshal event %s: %w", ev.EventID, err)
		}
		msgs = append(msgs, kafka.Message{
			Key:   []byte(ev.Code),
			Value: value,
			Time:  ev.OccurredAt,
			Headers: append([]kafka.Header{
				{Key: "event_type", Value: []byte(ev.Type)},
			}, headers...),
		})
	}
	return msgs, nil
}

func carrierToKafkaHeaders(carrier propagation.MapCarrier) []kafka.Header {
	headers := make([]kafka.Header, 0, len(carrier))
	for key, value := range carrier {
		if strings.TrimSpace(value) == "" {
			continue
		}
		headers = append(headers, kafka.Header{
			Key:   key,
			Value: []byte(value),
		})
	}
	return headers
}
