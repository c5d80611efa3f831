package agent

import (
	"context"
	"errors"
	"time"

	"github.com/ethereum/go-ethereum/event"
)

// ErrNotDelivered reports a change that no watcher received.
var ErrNotDelivered = errors.New("change reached no watcher")

// DefaultDeliveryTimeout bounds how long Publish waits for watchers to
// apply a change.
const DefaultDeliveryTimeout = 5 * time.Second

// maxWatchers caps the acknowledgements buffered per change.
const maxWatchers = 16

// Change is one notification on a provider feed. Consumers call Ack once
// the change has been fully applied.
type Change[T any] struct {
	Value T
	acks  chan struct{}
}

// AccountsChange carries the agent's newly exposed account list.
type AccountsChange = Change[[]string]

// NetworkChange carries the agent's newly attached network.
type NetworkChange = Change[Network]

// NewChange wraps v for delivery through an event.Feed.
func NewChange[T any](v T) Change[T] {
	return Change[T]{Value: v, acks: make(chan struct{}, maxWatchers)}
}

// Ack marks the change as applied by one consumer. It never blocks.
func (c Change[T]) Ack() {
	if c.acks == nil {
		return
	}
	select {
	case c.acks <- struct{}{}:
	default:
	}
}

// Await blocks until n consumers have acknowledged c or ctx is done.
func (c Change[T]) Await(ctx context.Context, n int) error {
	for range n {
		select {
		case <-c.acks:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// Publish sends v on feed and waits until every receiver has applied it.
// It returns the number of receivers, and ErrNotDelivered when there were
// none. The wait is bounded by ctx and DefaultDeliveryTimeout.
func Publish[T any](ctx context.Context, feed *event.Feed, v T) (int, error) {
	change := NewChange(v)
	n := feed.Send(change)
	if n == 0 {
		return 0, ErrNotDelivered
	}
	ctx, cancel := context.WithTimeout(ctx, DefaultDeliveryTimeout)
	defer cancel()
	if err := change.Await(ctx, n); err != nil {
		return n, err
	}
	return n, nil
}
