package issuance

import (
	"context"
	"strings"
	"time"

	"verichain/internal/credential/metrics"
	"verichain/internal/credential/models"
	"verichain/internal/session"
	"verichain/internal/tracer"
	"verichain/pkg/domain"
	dErrors "verichain/pkg/domain-errors"
)

// Revoke marks credential id revoked in the registry and waits for
// confirmation. id must exist: it is checked against the issued count
// before anything is signed.
func (s *Service) Revoke(ctx context.Context, id, reason string) (receipt models.RevocationReceipt, err error) {
	start := time.Now()
	defer func() { s.observe(metrics.OpRevoke, start, err) }()

	snap, err := s.session.Require(session.Bound)
	if err != nil {
		return models.RevocationReceipt{}, err
	}
	cid, err := domain.ParseCredentialID(id)
	if err != nil {
		return models.RevocationReceipt{}, err
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return models.RevocationReceipt{}, dErrors.New(dErrors.CodeInvalidInput, "revocation reason is required")
	}

	ctx, span := s.tracer.Start(ctx, tracer.SpanRevoke,
		tracer.Uint64(tracer.AttrCredentialID, uint64(cid)),
		tracer.Uint64(tracer.AttrGeneration, snap.Generation),
	)
	defer func() { span.End(err) }()

	registry := snap.Handle.Registry()
	total, err := registry.TotalIssued(ctx)
	if err != nil {
		return models.RevocationReceipt{}, translateReadError(err, "failed to read issued count")
	}
	if cid.Big().Cmp(total) >= 0 {
		return models.RevocationReceipt{}, dErrors.New(dErrors.CodeNotFound, "credential #"+cid.String()+" does not exist")
	}

	sub, err := registry.SubmitRevocation(ctx, cid.Big(), reason)
	if err != nil {
		return models.RevocationReceipt{}, translateSubmitError(err, "revocation submission failed")
	}
	txRef := sub.TxHash.Hex()
	span.AddEvent(tracer.EventSubmitted, tracer.String(tracer.AttrTxRef, txRef))

	conf, err := registry.WaitConfirmed(ctx, sub)
	if err != nil {
		return models.RevocationReceipt{}, translateSubmitError(err, "revocation "+txRef+" was not confirmed")
	}
	span.AddEvent(tracer.EventConfirmed, tracer.Uint64(tracer.AttrBlockRef, conf.BlockNumber))

	if err := s.session.Superseded(snap.Generation, txRef); err != nil {
		s.metrics.IncrementSuperseded(metrics.OpRevoke)
		return models.RevocationReceipt{}, err
	}

	s.logger.InfoContext(ctx, "credential revoked",
		"credential_id", cid.String(),
		"tx_ref", txRef,
		"block_ref", conf.BlockNumber,
	)
	s.auditor.Log(ctx, "credential_revoked",
		"actor", snap.Handle.Signer().String(),
		"credential_id", cid.String(),
		"tx_ref", txRef,
		"reason", reason,
		"generation", snap.Generation,
	)
	return models.RevocationReceipt{
		CredentialID:   cid,
		TransactionRef: txRef,
		BlockRef:       conf.BlockNumber,
	}, nil
}
