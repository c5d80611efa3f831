package store

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"verichain/internal/credential/metrics"
	"verichain/internal/credential/models"
	"verichain/internal/session"
	"verichain/internal/tracer"
	"verichain/pkg/domain"
	dErrors "verichain/pkg/domain-errors"
	"verichain/pkg/platform/sync"
)

// Verifier performs the live lookup for one credential.
type Verifier interface {
	Verify(ctx context.Context, id string) (models.VerificationResult, error)
}

// SessionView exposes the registry the session is bound to.
type SessionView interface {
	Require(min session.State) (session.Snapshot, error)
}

// ReconciledEntry pairs a list entry with its live lookup outcome. Exactly
// one of Result and Failure is set.
type ReconciledEntry struct {
	Entry   Entry                      `json:"entry"`
	Result  *models.VerificationResult `json:"result,omitempty"`
	Failure *models.Failure            `json:"failure,omitempty"`
	Dropped bool                       `json:"dropped,omitempty"`
}

// Reconciler re-verifies advisory entries.
type Reconciler struct {
	store    Store
	verifier Verifier
	session  SessionView
	metrics  *metrics.Metrics
	tracer   tracer.Tracer
	logger   *slog.Logger
	owners   *sync.ShardedMutex
}

// ReconcilerOption configures a Reconciler.
type ReconcilerOption func(*Reconciler)

func WithMetrics(m *metrics.Metrics) ReconcilerOption {
	return func(r *Reconciler) { r.metrics = m }
}

func WithTracer(t tracer.Tracer) ReconcilerOption {
	return func(r *Reconciler) { r.tracer = t }
}

func WithLogger(logger *slog.Logger) ReconcilerOption {
	return func(r *Reconciler) { r.logger = logger }
}

func NewReconciler(store Store, verifier Verifier, sess SessionView, opts ...ReconcilerOption) *Reconciler {
	r := &Reconciler{store: store, verifier: verifier, session: sess, owners: sync.NewShardedMutex()}
	for _, opt := range opts {
		opt(r)
	}
	if r.tracer == nil {
		r.tracer = tracer.NewNoop()
	}
	if r.logger == nil {
		r.logger = slog.New(slog.DiscardHandler)
	}
	return r
}

// Reconcile verifies every entry listed for owner, in ID order. Only entries
// recorded against the bound registry and chain are looked up; the rest are
// flagged record_mismatch and kept. A live record whose issuer or recipient
// is not owner in the entry's role is flagged the same way. Entries whose
// lookup reports not_found are removed from the store. Session-level
// failures (not bound, superseded) abort the whole pass since no entry can
// be checked. Passes for the same owner run one at a time.
func (r *Reconciler) Reconcile(ctx context.Context, owner domain.Address) (out []ReconciledEntry, err error) {
	start := time.Now()
	ctx, span := r.tracer.Start(ctx, tracer.SpanReconcile)
	defer func() {
		span.End(err)
		r.metrics.Observe(metrics.OpReconcile, metrics.Outcome(err), time.Since(start).Seconds())
	}()

	snap, err := r.session.Require(session.Bound)
	if err != nil {
		return nil, err
	}
	registry, chainID := snap.Handle.RegistryAddress(), snap.ChainID()

	key := owner.String()
	r.owners.Lock(key)
	defer r.owners.Unlock(key)

	entries, err := r.store.List(ctx, owner)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load credential list")
	}
	span.SetAttributes(tracer.Int64(tracer.AttrEntries, int64(len(entries))))

	out = make([]ReconciledEntry, 0, len(entries))
	dropped := 0
	for _, entry := range entries {
		if entry.Registry != registry || entry.ChainID != chainID {
			failure := mismatch("entry #%s was recorded on registry %s (chain %d), not the bound %s (chain %d)",
				entry.ID, entry.Registry, entry.ChainID, registry, chainID)
			out = append(out, ReconciledEntry{Entry: entry, Failure: &failure})
			continue
		}

		result, verr := r.verifier.Verify(ctx, entry.ID.String())
		if verr == nil {
			if failure, ok := ownerMismatch(owner, entry, result.Record); ok {
				r.logger.WarnContext(ctx, "credential list entry does not match its record",
					"owner", owner.String(),
					"credential_id", entry.ID.String(),
					"role", entry.Role,
				)
				out = append(out, ReconciledEntry{Entry: entry, Failure: &failure})
				continue
			}
			out = append(out, ReconciledEntry{Entry: entry, Result: &result})
			continue
		}
		if sessionLevel(verr) {
			return nil, verr
		}
		failure := models.FailureFrom(verr)
		rec := ReconciledEntry{Entry: entry, Failure: &failure}
		if failure.Kind == dErrors.CodeNotFound {
			if err := r.store.Remove(ctx, owner, entry.ID); err != nil {
				r.logger.WarnContext(ctx, "failed to drop stale credential list entry",
					"owner", owner.String(),
					"credential_id", entry.ID.String(),
					"error", err,
				)
			} else {
				rec.Dropped = true
				dropped++
			}
		}
		out = append(out, rec)
	}
	r.metrics.AddDroppedEntries(dropped)
	if dropped > 0 {
		r.logger.InfoContext(ctx, "credential list reconciled",
			"owner", owner.String(),
			"entries", len(entries),
			"dropped", dropped,
		)
	}
	return out, nil
}

func ownerMismatch(owner domain.Address, entry Entry, record models.CredentialRecord) (models.Failure, bool) {
	switch entry.Role {
	case RoleIssuer:
		if record.Issuer != owner {
			return mismatch("credential #%s was issued by %s, not %s", entry.ID, record.Issuer, owner), true
		}
	case RoleRecipient:
		if record.Recipient != owner {
			return mismatch("credential #%s was issued to %s, not %s", entry.ID, record.Recipient, owner), true
		}
	default:
		return mismatch("entry #%s has unknown role %q", entry.ID, entry.Role), true
	}
	return models.Failure{}, false
}

func mismatch(format string, args ...any) models.Failure {
	return models.Failure{Kind: dErrors.CodeRecordMismatch, Message: fmt.Sprintf(format, args...)}
}

func sessionLevel(err error) bool {
	switch dErrors.KindOf(err) {
	case dErrors.CodeNotBound, dErrors.CodeNotConnected, dErrors.CodeSuperseded:
		return true
	default:
		return false
	}
}
