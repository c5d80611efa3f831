package audit

import "context"

// Sink receives every published event.
type Sink interface {
	Append(ctx context.Context, event Event) error
}

// Store is a queryable Sink.
type Store interface {
	Sink
	ListByIdentity(ctx context.Context, identity string) ([]Event, error)
}
