// Package publisher fans audit events into a Store, synchronously or through
// a bounded async buffer.
package publisher

import (
	"context"
	"log/slog"
	"sync"
	"time"

	id "kycengine/pkg/domain"
	audit "kycengine/pkg/platform/audit"
	txcontext "kycengine/pkg/platform/tx"
)

type Publisher struct {
	store  audit.Store
	logger *slog.Logger

	bufferSize int
	events     chan audit.Event
	wg         sync.WaitGroup
	closeOnce  sync.Once
	mu         sync.RWMutex
	closed     bool
}

type Option func(*Publisher)

// WithAsyncBuffer enables async mode: Emit enqueues and a background
// goroutine persists. Events are dropped when the buffer is full.
func WithAsyncBuffer(size int) Option {
	return func(p *Publisher) {
		p.bufferSize = size
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(p *Publisher) {
		p.logger = logger
	}
}

func NewPublisher(store audit.Store, opts ...Option) *Publisher {
	p := &Publisher{store: store}
	for _, opt := range opts {
		opt(p)
	}
	if p.bufferSize > 0 {
		p.events = make(chan audit.Event, p.bufferSize)
		p.wg.Add(1)
		go p.run()
	}
	return p
}

// Emit records an event. Timestamp and category are filled when unset.
func (p *Publisher) Emit(ctx context.Context, event audit.Event) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	if event.Category == "" {
		event.Category = audit.AuditEvent(event.Action).Category()
	}
	if p.events == nil {
		return p.store.Append(ctx, event)
	}
	// Inside a transaction the event is part of the caller's unit of work.
	if _, inTx := txcontext.From(ctx); inTx {
		return p.store.Append(ctx, event)
	}

	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return p.store.Append(ctx, event)
	}
	select {
	case p.events <- event:
	default:
		if p.logger != nil {
			p.logger.WarnContext(ctx, "audit buffer full, dropping event",
				"action", event.Action,
				"case_id", event.CaseID,
			)
		}
	}
	return nil
}

func (p *Publisher) List(ctx context.Context, caseID id.CaseID) ([]audit.Event, error) {
	return p.store.ListByCase(ctx, caseID)
}

// Close drains buffered events and stops the background goroutine.
func (p *Publisher) Close() {
	p.closeOnce.Do(func() {
		if p.events == nil {
			return
		}
		p.mu.Lock()
		p.closed = true
		close(p.events)
		p.mu.Unlock()
		p.wg.Wait()
	})
}

func (p *Publisher) run() {
	defer p.wg.Done()
	for event := range p.events {
		if err := p.store.Append(context.Background(), event); err != nil && p.logger != nil {
			p.logger.Error("failed to persist audit event",
				"action", event.Action,
				"case_id", event.CaseID,
				"error", err,
			)
		}
	}
}
