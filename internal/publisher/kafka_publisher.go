package publisher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/fjod/go_cart/internal/domain"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

const (
	EventTypeOrderPlaced = "OrderPlaced"
	DefaultTopic         = "smartcart-orders"
)

var ErrQueueFull = errors.New("event queue is full")

// MessageWriter is satisfied by *kafka.Writer.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type pendingEvent struct {
	key       string
	eventType string
	payload   []byte
	attempts  int
}

// KafkaPublisher queues events in memory and flushes them to Kafka from Run.
// Events that fail to publish are retried on the next tick.
type KafkaPublisher struct {
	writer       MessageWriter
	log          *zap.Logger
	queue        chan *pendingEvent
	flushTick    time.Duration
	writeTimeout time.Duration
	maxAttempts  int

	mu      sync.Mutex
	pending []*pendingEvent
}

func NewKafkaPublisher(brokers []string, topic string, log *zap.Logger) *KafkaPublisher {
	if topic == "" {
		topic = DefaultTopic
	}
	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.LeastBytes{},
		AllowAutoTopicCreation: true,
		BatchTimeout:           50 * time.Millisecond,
	}
	return NewKafkaPublisherWithWriter(w, log)
}

func NewKafkaPublisherWithWriter(w MessageWriter, log *zap.Logger) *KafkaPublisher {
	return &KafkaPublisher{
		writer:       w,
		log:          log,
		queue:        make(chan *pendingEvent, 256),
		flushTick:    time.Second,
		writeTimeout: 5 * time.Second,
		maxAttempts:  10,
	}
}

func (p *KafkaPublisher) PublishOrderPlaced(_ context.Context, event domain.OrderPlacedEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal order placed event: %w", err)
	}

	select {
	case p.queue <- &pendingEvent{key: event.OrderNumber, eventType: EventTypeOrderPlaced, payload: payload}:
		return nil
	default:
		return ErrQueueFull
	}
}

// Run publishes queued events until ctx is done, then makes one last attempt to
// flush whatever is still pending.
func (p *KafkaPublisher) Run(ctx context.Context) {
	ticker := time.NewTicker(p.flushTick)
	defer ticker.Stop()

	for {
		select {
		case ev := <-p.queue:
			p.publish(ctx, ev)
		case <-ticker.C:
			p.retryPending(ctx)
		case <-ctx.Done():
			p.drain()
			return
		}
	}
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

func (p *KafkaPublisher) Pending() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.pending) + len(p.queue)
}

func (p *KafkaPublisher) publish(ctx context.Context, ev *pendingEvent) {
	ev.attempts++
	if err := p.write(ctx, ev); err != nil {
		if ev.attempts >= p.maxAttempts {
			p.log.Error("dropping event after repeated failures",
				zap.String("key", ev.key),
				zap.Int("attempts", ev.attempts),
				zap.Error(err))
			return
		}
		p.log.Warn("failed to publish event", zap.String("key", ev.key), zap.Error(err))
		p.mu.Lock()
		p.pending = append(p.pending, ev)
		p.mu.Unlock()
		return
	}
	p.log.Debug("event published", zap.String("key", ev.key), zap.String("event_type", ev.eventType))
}

func (p *KafkaPublisher) retryPending(ctx context.Context) {
	p.mu.Lock()
	retry := p.pending
	p.pending = nil
	p.mu.Unlock()

	for _, ev := range retry {
		p.publish(ctx, ev)
	}
}

func (p *KafkaPublisher) drain() {
	ctx, cancel := context.WithTimeout(context.Background(), p.writeTimeout)
	defer cancel()

	for {
		select {
		case ev := <-p.queue:
			p.mu.Lock()
			p.pending = append(p.pending, ev)
			p.mu.Unlock()
		default:
			p.retryPending(ctx)
			if n := p.Pending(); n > 0 {
				p.log.Warn("unpublished events left at shutdown", zap.Int("count", n))
			}
			return
		}
	}
}

func (p *KafkaPublisher) write(ctx context.Context, ev *pendingEvent) error {
	ctx, cancel := context.WithTimeout(ctx, p.writeTimeout)
	defer cancel()

	msg := kafka.Message{
		Key:   []byte(ev.key), // order number keeps one order's events on one partition
		Value: ev.payload,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(ev.eventType)},
		},
	}
	return p.writer.WriteMessages(ctx, msg)
}

// NopPublisher discards events when no broker is configured.
type NopPublisher struct{}

func (NopPublisher) PublishOrderPlaced(context.Context, domain.OrderPlacedEvent) error {
	return nil
}
