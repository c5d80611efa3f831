// Package issuance submits credentials and revocations to the bound
// registry and waits for their confirmation.
package issuance

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"verichain/internal/credential/metrics"
	"verichain/internal/credential/store"
	"verichain/internal/fingerprint"
	"verichain/internal/session"
	"verichain/internal/tracer"
	"verichain/pkg/domain"
	"verichain/pkg/platform/audit"
)

// DefaultExternalURI is used when a request names no external document.
const DefaultExternalURI = "ipfs://default"

// SessionView is the read side of the session the service runs under.
type SessionView interface {
	Require(min session.State) (session.Snapshot, error)
	Superseded(gen uint64, txRef string) error
}

// Hasher computes credential fingerprints.
type Hasher interface {
	Hash(f fingerprint.Fields) (fingerprint.Digest, error)
}

// ListRecorder receives confirmed issuances for the advisory list.
type ListRecorder interface {
	Save(ctx context.Context, owner domain.Address, entry store.Entry) error
}

// Service orchestrates issuance and revocation.
type Service struct {
	session    SessionView
	hasher     Hasher
	list       ListRecorder
	auditor    *audit.Logger
	metrics    *metrics.Metrics
	tracer     tracer.Tracer
	logger     *slog.Logger
	now        func() time.Time
	defaultURI string
}

// Option configures the Service.
type Option func(*Service)

// WithLogger sets the logger for the service.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithTracer(t tracer.Tracer) Option {
	return func(s *Service) {
		s.tracer = t
	}
}

// WithAuditLogger records credential_issued and credential_revoked events.
func WithAuditLogger(l *audit.Logger) Option {
	return func(s *Service) {
		s.auditor = l
	}
}

// WithCredentialList records every confirmed issuance in the advisory list
// of both the issuer and the recipient.
func WithCredentialList(list ListRecorder) Option {
	return func(s *Service) {
		s.list = list
	}
}

// WithClock replaces the wall clock used for fingerprint timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// WithDefaultExternalURI overrides DefaultExternalURI.
func WithDefaultExternalURI(uri string) Option {
	return func(s *Service) {
		if strings.TrimSpace(uri) != "" {
			s.defaultURI = uri
		}
	}
}

// New creates an issuance service.
func New(sess SessionView, hasher Hasher, opts ...Option) *Service {
	s := &Service{
		session:    sess,
		hasher:     hasher,
		now:        time.Now,
		defaultURI: DefaultExternalURI,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.New(slog.DiscardHandler)
	}
	if s.tracer == nil {
		s.tracer = tracer.NewNoop()
	}
	return s
}

func (s *Service) observe(op string, start time.Time, err error) {
	s.metrics.Observe(op, metrics.Outcome(err), time.Since(start).Seconds())
}
