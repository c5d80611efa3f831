// Package tracer provides a lightweight tracing abstraction for the credential
// services.
//
// Services depend on the Tracer interface rather than on OpenTelemetry, so
// tests run against NoopTracer and production wires OTelTracer.
package tracer

import (
	"context"
	"strconv"
	"time"
)

// Span represents an active trace span.
type Span interface {
	// End completes the span. A non-nil err marks the span as failed.
	// End must be called exactly once, typically via defer.
	End(err error)

	SetAttributes(attrs ...Attribute)

	AddEvent(name string, attrs ...Attribute)
}

// Tracer creates spans. Implementations must be safe for concurrent use.
type Tracer interface {
	// Start creates a new span with the given name and attributes.
	//
	// Example:
	//   ctx, span := tracer.Start(ctx, tracer.SpanIssue,
	//       tracer.String(tracer.AttrRecipient, recipient.String()),
	//   )
	//   defer span.End(err)
	Start(ctx context.Context, name string, attrs ...Attribute) (context.Context, Span)
}

// Attribute represents a key-value pair attached to spans.
type Attribute struct {
	Key   string
	Value any
}

// String creates a string attribute.
func String(key, value string) Attribute {
	return Attribute{Key: key, Value: value}
}

// Bool creates a boolean attribute.
func Bool(key string, value bool) Attribute {
	return Attribute{Key: key, Value: value}
}

// Int64 creates an int64 attribute.
func Int64(key string, value int64) Attribute {
	return Attribute{Key: key, Value: value}
}

// Uint64 creates an attribute from an unsigned counter. Values above the int64
// range are recorded as their decimal string.
func Uint64(key string, value uint64) Attribute {
	if value > 1<<63-1 {
		return Attribute{Key: key, Value: strconv.FormatUint(value, 10)}
	}
	return Attribute{Key: key, Value: int64(value)}
}

// Duration creates a duration attribute in milliseconds.
func Duration(key string, value time.Duration) Attribute {
	return Attribute{Key: key, Value: value.Milliseconds()}
}

// Span names.
const (
	SpanIssue       = "credential.issue"
	SpanRevoke      = "credential.revoke"
	SpanVerify      = "credential.verify"
	SpanTotalIssued = "registry.total_issued"
	SpanReconcile   = "credential.reconcile"
)

// Attribute keys.
const (
	AttrCredentialID = "credential.id"
	AttrRecipient    = "credential.recipient"
	AttrTypeCode     = "credential.type_code"
	AttrTxRef        = "tx.ref"
	AttrBlockRef     = "tx.block"
	AttrGeneration   = "session.generation"
	AttrValid        = "credential.valid"
	AttrEntries      = "list.entries"
	AttrErrorKind    = "error.kind"
)

// Event names.
const (
	EventSubmitted = "tx.submitted"
	EventConfirmed = "tx.confirmed"
	EventDiscarded = "result.discarded"
)
