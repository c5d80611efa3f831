// Package verification resolves credential identifiers against the bound
// registry and converts raw registry records into the client's read model.
package verification

import (
	"context"
	"errors"
	"log/slog"
	"math/big"
	"time"

	"verichain/internal/credential/metrics"
	"verichain/internal/credential/models"
	"verichain/internal/fingerprint"
	"verichain/internal/ledger"
	"verichain/internal/sentinel"
	"verichain/internal/session"
	"verichain/internal/tracer"
	"verichain/pkg/domain"
	dErrors "verichain/pkg/domain-errors"
	"verichain/pkg/platform/audit"
)

// SessionView is the read side of the session the service runs under.
type SessionView interface {
	Require(min session.State) (session.Snapshot, error)
	Superseded(gen uint64, txRef string) error
}

// Service answers verification and count queries.
type Service struct {
	session SessionView
	auditor *audit.Logger
	metrics *metrics.Metrics
	tracer  tracer.Tracer
	logger  *slog.Logger
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

// WithAuditLogger records a credential_verified event per successful lookup.
func WithAuditLogger(l *audit.Logger) Option {
	return func(s *Service) {
		s.auditor = l
	}
}

func New(sess SessionView, opts ...Option) *Service {
	s := &Service{session: sess}
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

// Verify looks up credential id. The issued count is always read first:
// registries answer out-of-range lookups with zeroed records, so an id at
// or above the count is NotFound without fetching details.
func (s *Service) Verify(ctx context.Context, id string) (result models.VerificationResult, err error) {
	start := time.Now()
	defer func() {
		s.metrics.Observe(metrics.OpVerify, metrics.Outcome(err), time.Since(start).Seconds())
	}()

	snap, err := s.session.Require(session.Bound)
	if err != nil {
		return models.VerificationResult{}, err
	}
	cid, err := domain.ParseCredentialID(id)
	if err != nil {
		return models.VerificationResult{}, err
	}

	ctx, span := s.tracer.Start(ctx, tracer.SpanVerify,
		tracer.Uint64(tracer.AttrCredentialID, uint64(cid)),
		tracer.Uint64(tracer.AttrGeneration, snap.Generation),
	)
	defer func() { span.End(err) }()

	registry := snap.Handle.Registry()
	total, err := registry.TotalIssued(ctx)
	if err != nil {
		return models.VerificationResult{}, translateReadError(err, "failed to read issued count")
	}
	if cid.Big().Cmp(total) >= 0 {
		return models.VerificationResult{}, dErrors.New(dErrors.CodeNotFound,
			"credential #"+cid.String()+" does not exist (issued: "+total.String()+")")
	}

	valid, err := registry.FetchValidity(ctx, cid.Big())
	if err != nil {
		return models.VerificationResult{}, translateReadError(err, "failed to read validity of credential #"+cid.String())
	}
	raw, err := registry.FetchRecord(ctx, cid.Big())
	if err != nil {
		return models.VerificationResult{}, translateReadError(err, "failed to read credential #"+cid.String())
	}
	record, err := ToRecord(raw)
	if err != nil {
		return models.VerificationResult{}, err
	}

	if err := s.session.Superseded(snap.Generation, ""); err != nil {
		s.metrics.IncrementSuperseded(metrics.OpVerify)
		return models.VerificationResult{}, err
	}

	result = models.NewVerificationResult(cid, valid, record)
	span.SetAttributes(tracer.Bool(tracer.AttrValid, result.EffectivelyValid))
	s.auditor.Log(ctx, "credential_verified",
		"actor", snap.Handle.Signer().String(),
		"subject", record.Recipient.String(),
		"credential_id", cid.String(),
		"generation", snap.Generation,
	)
	return result, nil
}

// TotalIssued reports the registry's issued count.
func (s *Service) TotalIssued(ctx context.Context) (total uint64, err error) {
	snap, err := s.session.Require(session.Bound)
	if err != nil {
		return 0, err
	}
	ctx, span := s.tracer.Start(ctx, tracer.SpanTotalIssued, tracer.Uint64(tracer.AttrGeneration, snap.Generation))
	defer func() { span.End(err) }()

	n, err := snap.Handle.Registry().TotalIssued(ctx)
	if err != nil {
		return 0, translateReadError(err, "failed to read issued count")
	}
	if !n.IsUint64() {
		return 0, dErrors.New(dErrors.CodeAgentError, "registry reported an issued count outside the uint64 range: "+n.String())
	}
	if err := s.session.Superseded(snap.Generation, ""); err != nil {
		return 0, err
	}
	return n.Uint64(), nil
}

// ToRecord converts a raw registry record. Zero dates become nil; an
// unknown type code is an error, never a default.
func ToRecord(raw ledger.RawRecord) (models.CredentialRecord, error) {
	ctype, err := models.TypeFromCode(raw.TypeCode)
	if err != nil {
		return models.CredentialRecord{}, err
	}
	return models.CredentialRecord{
		Issuer:      domain.AddressFromCommon(raw.Issuer),
		Recipient:   domain.AddressFromCommon(raw.Recipient),
		Type:        ctype,
		TypeName:    ctype.DisplayName(),
		Title:       raw.Title,
		Institution: raw.Institution,
		IssueDate:   optionalTime(raw.IssueDate),
		ExpiryDate:  optionalTime(raw.ExpiryDate),
		Fingerprint: fingerprint.Digest(raw.Fingerprint),
		Revoked:     raw.Revoked,
		ExternalURI: raw.URI,
	}, nil
}

// optionalTime maps epoch seconds to a UTC time. Zero and values past the
// int64 range are absent.
func optionalTime(sec *big.Int) *time.Time {
	if sec == nil || sec.Sign() <= 0 || !sec.IsInt64() {
		return nil
	}
	t := time.Unix(sec.Int64(), 0).UTC()
	return &t
}

func translateReadError(err error, msg string) error {
	if errors.Is(err, sentinel.ErrPermission) {
		return dErrors.Wrap(err, dErrors.CodePermissionDenied, msg+": "+err.Error())
	}
	return dErrors.Wrap(err, dErrors.CodeAgentError, msg+": "+err.Error())
}
