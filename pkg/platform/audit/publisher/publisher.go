package publisher

import (
	"context"
	"log/slog"
	"sync"
	"time"

	audit "verichain/pkg/platform/audit"
	"verichain/pkg/platform/audit/metrics"
)

// Publisher captures structured audit events. It is append-only and uses the
// storage layer for persistence so tests can swap sinks easily. Secondary
// sinks (Kafka) are best-effort: their failures are logged and counted but
// never returned to the caller.
type Publisher struct {
	store   audit.Store
	sinks   []audit.Sink
	events  chan audit.Event
	wg      sync.WaitGroup
	logger  *slog.Logger
	metrics *metrics.Metrics
	async   bool
}

// PublisherOption configures the Publisher.
type PublisherOption func(*Publisher)

// WithAsyncBuffer enables async processing with the specified buffer size.
// Events are queued and persisted in a background goroutine.
func WithAsyncBuffer(size int) PublisherOption {
	return func(p *Publisher) {
		if size > 0 {
			p.events = make(chan audit.Event, size)
			p.async = true
		}
	}
}

// WithPublisherLogger sets a logger for async error reporting.
func WithPublisherLogger(logger *slog.Logger) PublisherOption {
	return func(p *Publisher) {
		p.logger = logger
	}
}

// WithSink adds a secondary destination for every event.
func WithSink(sink audit.Sink) PublisherOption {
	return func(p *Publisher) {
		if sink != nil {
			p.sinks = append(p.sinks, sink)
		}
	}
}

// WithMetrics sets queue and persistence metrics.
func WithMetrics(m *metrics.Metrics) PublisherOption {
	return func(p *Publisher) {
		p.metrics = m
	}
}

func NewPublisher(store audit.Store, opts ...PublisherOption) *Publisher {
	p := &Publisher{store: store}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = slog.New(slog.DiscardHandler)
	}
	if p.async {
		p.wg.Add(1)
		go p.processEvents()
	}
	return p
}

// processEvents runs in a goroutine and persists events from the channel.
func (p *Publisher) processEvents() {
	defer p.wg.Done()
	for event := range p.events {
		p.metrics.DecQueueDepth()
		if err := p.persist(context.Background(), event); err != nil {
			p.logger.Error("failed to persist audit event",
				"error", err,
				"action", event.Action,
				"actor", event.Actor,
			)
			continue
		}
		p.metrics.IncEventsProcessed()
	}
}

// Close shuts down the async publisher and waits for pending events to drain.
func (p *Publisher) Close() {
	if p.async && p.events != nil {
		close(p.events)
		p.wg.Wait()
	}
}

func (p *Publisher) Emit(ctx context.Context, base audit.Event) error {
	if base.Timestamp.IsZero() {
		base.Timestamp = time.Now()
	}
	if p.async {
		// Non-blocking send; drop event if buffer is full to avoid blocking hot path
		select {
		case p.events <- base:
			p.metrics.IncQueueDepth()
			p.metrics.IncEventsEnqueued()
			return nil
		default:
			p.metrics.IncEventsDropped()
			p.logger.Warn("audit buffer full, event dropped",
				"action", base.Action,
				"actor", base.Actor,
			)
			return nil
		}
	}
	return p.persist(ctx, base)
}

func (p *Publisher) persist(ctx context.Context, event audit.Event) error {
	start := time.Now()
	err := p.store.Append(ctx, event)
	p.metrics.ObservePersistDuration(time.Since(start).Seconds())
	if err != nil {
		p.metrics.IncPersistFailures()
		return err
	}
	for _, sink := range p.sinks {
		if err := sink.Append(ctx, event); err != nil {
			p.metrics.IncSinkFailures()
			p.logger.WarnContext(ctx, "audit sink delivery failed",
				"error", err,
				"action", event.Action,
			)
		}
	}
	return nil
}

// List returns the events identity took part in.
func (p *Publisher) List(ctx context.Context, identity string) ([]audit.Event, error) {
	return p.store.ListByIdentity(ctx, identity)
}
