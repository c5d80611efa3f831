package audit

import (
	"context"
	"log/slog"

	"verichain/pkg/requestcontext"
)

// Emitter is the interface for audit event emission.
// Satisfied by publisher.Publisher.
type Emitter interface {
	Emit(ctx context.Context, event Event) error
}

// Logger provides structured audit logging with optional event emission.
// Use this in services to standardize audit logging patterns.
type Logger struct {
	textLogger *slog.Logger
	emitter    Emitter
}

// NewLogger creates an audit logger.
// textLogger is used for structured logging; emitter is optional for event persistence.
func NewLogger(textLogger *slog.Logger, emitter Emitter) *Logger {
	return &Logger{
		textLogger: textLogger,
		emitter:    emitter,
	}
}

// Log logs an audit event to text and optionally emits to the audit store.
// Automatically enriches with request_id from context. A nil *Logger is a
// no-op.
//
// Usage:
//
//	logger.Log(ctx, "credential_issued", "actor", issuer, "credential_id", "7", "tx_ref", tx)
func (l *Logger) Log(ctx context.Context, event string, attributes ...any) {
	if l == nil {
		return
	}
	requestID := requestcontext.RequestID(ctx)
	if requestID != "" {
		attributes = append(attributes, "request_id", requestID)
	}

	l.logToText(ctx, event, attributes)
	l.emitToAudit(ctx, event, requestID, attributes)
}

func (l *Logger) logToText(ctx context.Context, event string, attributes []any) {
	if l.textLogger == nil {
		return
	}
	args := append(attributes, "event", event, "log_type", "audit")
	l.textLogger.InfoContext(ctx, event, args...)
}

func (l *Logger) emitToAudit(ctx context.Context, event, requestID string, attributes []any) {
	if l.emitter == nil {
		return
	}

	err := l.emitter.Emit(ctx, Event{
		Action:       event,
		Actor:        extractString(attributes, "actor"),
		Subject:      extractString(attributes, "subject"),
		CredentialID: extractString(attributes, "credential_id"),
		TxRef:        extractString(attributes, "tx_ref"),
		Reason:       extractString(attributes, "reason"),
		Generation:   extractUint64(attributes, "generation"),
		Client:       requestcontext.ClientName(ctx),
		RequestID:    requestID,
	})
	if err != nil && l.textLogger != nil {
		l.textLogger.ErrorContext(ctx, "failed to emit audit event",
			"error", err,
			"event", event,
		)
	}
}

// extractString returns the value following key in a slog-style key/value
// list. Values that are not strings are rendered with their String method
// when they have one.
func extractString(attributes []any, key string) string {
	v, ok := lookup(attributes, key)
	if !ok {
		return ""
	}
	switch t := v.(type) {
	case string:
		return t
	case interface{ String() string }:
		return t.String()
	default:
		return ""
	}
}

func extractUint64(attributes []any, key string) uint64 {
	v, _ := lookup(attributes, key)
	n, _ := v.(uint64)
	return n
}

func lookup(attributes []any, key string) (any, bool) {
	for i := 0; i+1 < len(attributes); i += 2 {
		if k, ok := attributes[i].(string); ok && k == key {
			return attributes[i+1], true
		}
	}
	return nil, false
}
