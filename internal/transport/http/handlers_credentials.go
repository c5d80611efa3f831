package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"verichain/internal/credential/models"
	"verichain/internal/credential/store"
	"verichain/internal/session"
	"verichain/pkg/domain"
	dErrors "verichain/pkg/domain-errors"
	"verichain/pkg/platform/httputil"
	"verichain/pkg/requestcontext"
)

// IssuanceService submits issuance and revocation transactions.
type IssuanceService interface {
	Issue(ctx context.Context, req models.CredentialRequest) (models.IssuanceReceipt, error)
	Revoke(ctx context.Context, id, reason string) (models.RevocationReceipt, error)
}

// VerificationService performs registry lookups.
type VerificationService interface {
	Verify(ctx context.Context, id string) (models.VerificationResult, error)
	TotalIssued(ctx context.Context) (uint64, error)
}

// CredentialList reads the advisory list.
type CredentialList interface {
	List(ctx context.Context, owner domain.Address) ([]store.Entry, error)
}

// Reconciler re-verifies advisory entries against the registry.
type Reconciler interface {
	Reconcile(ctx context.Context, owner domain.Address) ([]store.ReconciledEntry, error)
}

// CredentialHandler serves issuance, revocation, lookup and listing.
type CredentialHandler struct {
	issuance     IssuanceService
	verification VerificationService
	list         CredentialList
	reconciler   Reconciler
	session      SessionService
	logger       *slog.Logger
}

func NewCredentialHandler(
	issuance IssuanceService,
	verification VerificationService,
	list CredentialList,
	reconciler Reconciler,
	sess SessionService,
	logger *slog.Logger,
) *CredentialHandler {
	return &CredentialHandler{
		issuance:     issuance,
		verification: verification,
		list:         list,
		reconciler:   reconciler,
		session:      sess,
		logger:       logger,
	}
}

// Register mounts read-only routes.
func (h *CredentialHandler) Register(r chi.Router) {
	r.Get("/credentials/{id}", h.HandleVerify)
	r.Get("/credentials", h.HandleList)
	r.Get("/registry/total", h.HandleTotalIssued)
}

// RegisterMutating mounts routes that submit transactions.
func (h *CredentialHandler) RegisterMutating(r chi.Router) {
	r.Post("/credentials", h.HandleIssue)
	r.Post("/credentials/{id}/revoke", h.HandleRevoke)
}

// HandleIssue issues a credential and waits for confirmation.
func (h *CredentialHandler) HandleIssue(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[IssueRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	cmd, err := req.Command()
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	receipt, err := h.issuance.Issue(ctx, cmd)
	if err != nil {
		h.logger.ErrorContext(ctx, "issue credential failed", "error", err, "request_id", requestID)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, receipt)
}

// HandleRevoke revokes a credential.
func (h *CredentialHandler) HandleRevoke(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	id := chi.URLParam(r, "id")

	req, ok := httputil.DecodeAndPrepare[RevokeRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	receipt, err := h.issuance.Revoke(ctx, id, req.Reason)
	if err != nil {
		h.logger.ErrorContext(ctx, "revoke credential failed", "error", err, "request_id", requestID, "credential_id", id)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, receipt)
}

// HandleVerify looks a credential up by its registry identifier.
func (h *CredentialHandler) HandleVerify(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")

	result, err := h.verification.Verify(ctx, id)
	if err != nil {
		h.logger.InfoContext(ctx, "verify credential failed",
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
			"credential_id", id,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, result)
}

func (h *CredentialHandler) HandleTotalIssued(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	total, err := h.verification.TotalIssued(ctx)
	if err != nil {
		h.logger.WarnContext(ctx, "total issued failed", "error", err, "request_id", requestcontext.RequestID(ctx))
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, &TotalIssuedResponse{Total: total})
}

// HandleList returns the advisory list for ?owner=, defaulting to the
// connected identity. With ?reconcile=true each entry is re-verified and
// entries the registry does not know are dropped.
func (h *CredentialHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	owner, err := h.resolveOwner(r.URL.Query().Get("owner"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	reconcile, err := parseBoolParam(r.URL.Query().Get("reconcile"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	if reconcile {
		reconciled, err := h.reconciler.Reconcile(ctx, owner)
		if err != nil {
			h.logger.WarnContext(ctx, "reconcile failed", "error", err, "request_id", requestID)
			httputil.WriteError(w, err)
			return
		}
		httputil.WriteJSON(w, http.StatusOK, toReconciledListResponse(owner, reconciled))
		return
	}

	entries, err := h.list.List(ctx, owner)
	if err != nil {
		h.logger.ErrorContext(ctx, "list credentials failed", "error", err, "request_id", requestID)
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "credential list unavailable"))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, &CredentialListResponse{Owner: owner, Advisory: true, Entries: entries})
}

func (h *CredentialHandler) resolveOwner(raw string) (domain.Address, error) {
	if raw != "" {
		return domain.ParseAddress(raw)
	}
	snap := h.session.Snapshot()
	if snap.State < session.Connected || snap.Connection == nil {
		return domain.Address{}, dErrors.New(dErrors.CodeNotConnected, "owner is required when no identity is connected")
	}
	return snap.Connection.Address, nil
}

func parseBoolParam(raw string) (bool, error) {
	if raw == "" {
		return false, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, dErrors.New(dErrors.CodeInvalidInput, "reconcile must be a boolean: "+raw)
	}
	return v, nil
}
