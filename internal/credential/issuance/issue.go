package issuance

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"verichain/internal/credential/metrics"
	"verichain/internal/credential/models"
	"verichain/internal/credential/store"
	"verichain/internal/fingerprint"
	"verichain/internal/ledger"
	"verichain/internal/session"
	"verichain/internal/tracer"
	"verichain/pkg/domain"
	dErrors "verichain/pkg/domain-errors"
)

// Issue fingerprints req, submits it through the bound registry and waits
// for confirmation. The assigned identifier is taken from the
// CredentialIssued event of the confirmation.
//
// Issue never retries: a submission is not idempotent, and every call
// fingerprints with the current time, so repeating a request creates a
// second credential.
func (s *Service) Issue(ctx context.Context, req models.CredentialRequest) (receipt models.IssuanceReceipt, err error) {
	start := time.Now()
	defer func() { s.observe(metrics.OpIssue, start, err) }()

	snap, err := s.session.Require(session.Bound)
	if err != nil {
		return models.IssuanceReceipt{}, err
	}
	call, recipient, err := s.prepare(req)
	if err != nil {
		return models.IssuanceReceipt{}, err
	}

	ctx, span := s.tracer.Start(ctx, tracer.SpanIssue,
		tracer.String(tracer.AttrRecipient, recipient.String()),
		tracer.Int64(tracer.AttrTypeCode, int64(call.TypeCode)),
		tracer.Uint64(tracer.AttrGeneration, snap.Generation),
	)
	defer func() { span.End(err) }()

	registry := snap.Handle.Registry()
	sub, err := registry.SubmitIssuance(ctx, call)
	if err != nil {
		return models.IssuanceReceipt{}, translateSubmitError(err, "issuance submission failed")
	}
	txRef := sub.TxHash.Hex()
	span.AddEvent(tracer.EventSubmitted, tracer.String(tracer.AttrTxRef, txRef))
	s.logger.InfoContext(ctx, "issuance submitted",
		"tx_ref", txRef,
		"recipient", recipient.String(),
		"generation", snap.Generation,
	)

	conf, err := registry.WaitConfirmed(ctx, sub)
	if err != nil {
		return models.IssuanceReceipt{}, translateSubmitError(err, "issuance "+txRef+" was not confirmed")
	}
	span.AddEvent(tracer.EventConfirmed, tracer.Uint64(tracer.AttrBlockRef, conf.BlockNumber))

	if err := s.session.Superseded(snap.Generation, txRef); err != nil {
		s.metrics.IncrementSuperseded(metrics.OpIssue)
		s.logger.WarnContext(ctx, "discarding issuance result from superseded session",
			"tx_ref", txRef,
			"generation", snap.Generation,
		)
		return models.IssuanceReceipt{}, err
	}

	ev, ok := conf.FindEvent(ledger.EventCredentialIssued)
	if !ok || ev.TokenID == nil || !ev.TokenID.IsUint64() {
		return models.IssuanceReceipt{}, dErrors.New(dErrors.CodeEventNotFound,
			"transaction "+txRef+" confirmed without a CredentialIssued event; the registry interface may not match")
	}

	receipt = models.IssuanceReceipt{
		AssignedID:     domain.CredentialID(ev.TokenID.Uint64()),
		TransactionRef: txRef,
		BlockRef:       conf.BlockNumber,
		Fingerprint:    fingerprint.Digest(call.Fingerprint),
	}
	span.SetAttributes(tracer.Uint64(tracer.AttrCredentialID, uint64(receipt.AssignedID)))

	s.record(ctx, snap, recipient, req, receipt)
	s.auditor.Log(ctx, "credential_issued",
		"actor", snap.Handle.Signer().String(),
		"subject", recipient.String(),
		"credential_id", receipt.AssignedID.String(),
		"tx_ref", txRef,
		"generation", snap.Generation,
	)
	return receipt, nil
}

// prepare validates req and builds the registry call.
func (s *Service) prepare(req models.CredentialRequest) (ledger.IssuanceCall, domain.Address, error) {
	recipient, err := domain.ParseAddress(req.Recipient)
	if err != nil {
		return ledger.IssuanceCall{}, domain.Address{}, dErrors.Wrap(err, dErrors.CodeInvalidAddress, "invalid recipient: "+err.Error())
	}
	title := strings.TrimSpace(req.Title)
	institution := strings.TrimSpace(req.Institution)
	if !utf8.ValidString(title) || !utf8.ValidString(institution) {
		return ledger.IssuanceCall{}, domain.Address{}, dErrors.New(dErrors.CodeInvalidInput, "title and institution must be valid UTF-8")
	}
	if title == "" {
		return ledger.IssuanceCall{}, domain.Address{}, dErrors.New(dErrors.CodeInvalidInput, "title is required")
	}
	if institution == "" {
		return ledger.IssuanceCall{}, domain.Address{}, dErrors.New(dErrors.CodeInvalidInput, "institution is required")
	}
	if !req.Type.Valid() {
		return ledger.IssuanceCall{}, domain.Address{}, dErrors.New(dErrors.CodeInvalidInput, "unknown credential type")
	}
	expiry, err := normalizeExpiry(req.ExpiryDate)
	if err != nil {
		return ledger.IssuanceCall{}, domain.Address{}, err
	}

	digest, err := s.hasher.Hash(fingerprint.Fields{
		Title:       title,
		Institution: institution,
		Recipient:   recipient.String(),
		Timestamp:   s.now(),
	})
	if err != nil {
		return ledger.IssuanceCall{}, domain.Address{}, err
	}

	uri := strings.TrimSpace(req.ExternalURI)
	if uri == "" {
		uri = s.defaultURI
	}
	return ledger.IssuanceCall{
		Recipient:   recipient.Common(),
		TypeCode:    req.Type.Code(),
		Title:       title,
		Institution: institution,
		Expiry:      expiry,
		Fingerprint: digest,
		URI:         uri,
	}, recipient, nil
}

// normalizeExpiry converts an optional expiry to epoch seconds, 0 meaning
// never.
func normalizeExpiry(t *time.Time) (uint64, error) {
	if t == nil || t.IsZero() {
		return 0, nil
	}
	sec := t.Unix()
	if sec <= 0 {
		return 0, dErrors.New(dErrors.CodeInvalidInput, "expiry date must be after 1970-01-01T00:00:00Z")
	}
	return uint64(sec), nil
}

// record adds the receipt to the advisory lists. Failures are logged only;
// the registry already holds the credential.
func (s *Service) record(ctx context.Context, snap session.Snapshot, recipient domain.Address, req models.CredentialRequest, receipt models.IssuanceReceipt) {
	if s.list == nil {
		return
	}
	issuer := snap.Handle.Signer()
	entry := store.Entry{
		ID:             receipt.AssignedID,
		Registry:       snap.Handle.RegistryAddress(),
		ChainID:        snap.ChainID(),
		Type:           req.Type,
		Title:          strings.TrimSpace(req.Title),
		TransactionRef: receipt.TransactionRef,
		RecordedAt:     s.now(),
	}
	owners := []struct {
		addr domain.Address
		role string
	}{
		{issuer, store.RoleIssuer},
		{recipient, store.RoleRecipient},
	}
	for _, o := range owners {
		e := entry
		e.Role = o.role
		if err := s.list.Save(ctx, o.addr, e); err != nil {
			s.logger.WarnContext(ctx, "failed to record credential in list",
				"owner", o.addr.String(),
				"credential_id", receipt.AssignedID.String(),
				"error", err,
			)
		}
	}
}
