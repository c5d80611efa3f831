package httptransport

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-chi/chi/v5"

	"verichain/internal/agent"
	"verichain/internal/sentinel"
	"verichain/internal/session"
	dErrors "verichain/pkg/domain-errors"
	"verichain/pkg/platform/httputil"
	"verichain/pkg/requestcontext"
)

// SessionService is the connection state machine as seen by the transport.
type SessionService interface {
	Connect(ctx context.Context) (session.Snapshot, error)
	Bind(ctx context.Context, registryAddress string) (session.Snapshot, error)
	Authorize(ctx context.Context) (session.Snapshot, error)
	Snapshot() session.Snapshot
}

// AccountSelector is implemented by agents that can switch the active
// identity on request. SelectAccount returns once every watcher, the
// session included, has applied the switch.
type AccountSelector interface {
	SelectAccount(ctx context.Context, addr common.Address) error
}

// SessionHandler serves the session lifecycle routes.
type SessionHandler struct {
	session  SessionService
	selector AccountSelector
	logger   *slog.Logger
}

// NewSessionHandler creates a SessionHandler. selector may be nil, in which
// case the account switch route is not mounted.
func NewSessionHandler(sess SessionService, selector AccountSelector, logger *slog.Logger) *SessionHandler {
	return &SessionHandler{session: sess, selector: selector, logger: logger}
}

// Register mounts read-only routes.
func (h *SessionHandler) Register(r chi.Router) {
	r.Get("/session", h.HandleGetSession)
}

// RegisterMutating mounts routes that change state.
func (h *SessionHandler) RegisterMutating(r chi.Router) {
	r.Post("/session/connect", h.HandleConnect)
	r.Post("/session/bind", h.HandleBind)
	r.Post("/session/authorize", h.HandleAuthorize)
	if h.selector != nil {
		r.Post("/agent/accounts/active", h.HandleSelectAccount)
	}
}

func (h *SessionHandler) HandleGetSession(w http.ResponseWriter, _ *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, toSessionResponse(h.session.Snapshot()))
}

func (h *SessionHandler) HandleConnect(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	snap, err := h.session.Connect(ctx)
	if err != nil {
		h.logger.WarnContext(ctx, "connect failed", "error", err, "request_id", requestcontext.RequestID(ctx))
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toSessionResponse(snap))
}

func (h *SessionHandler) HandleBind(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[BindRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	snap, err := h.session.Bind(ctx, req.RegistryAddress)
	if err != nil {
		h.logger.WarnContext(ctx, "bind failed", "error", err, "request_id", requestID)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toSessionResponse(snap))
}

func (h *SessionHandler) HandleAuthorize(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	snap, err := h.session.Authorize(ctx)
	if err != nil {
		h.logger.WarnContext(ctx, "authorize failed", "error", err, "request_id", requestcontext.RequestID(ctx))
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toSessionResponse(snap))
}

// HandleSelectAccount switches the agent's active identity and responds
// with the session as it stands after the switch.
func (h *SessionHandler) HandleSelectAccount(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[SelectAccountRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	if err := h.selector.SelectAccount(ctx, common.HexToAddress(req.Address)); err != nil {
		h.logger.WarnContext(ctx, "select account failed", "error", err, "request_id", requestID)
		httputil.WriteError(w, h.selectAccountError(err, req.Address))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toSessionResponse(h.session.Snapshot()))
}

func (h *SessionHandler) selectAccountError(err error, addr string) error {
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.Wrap(err, dErrors.CodeInvalidInput, "agent holds no key for "+addr)
	case errors.Is(err, agent.ErrNotDelivered) && h.session.Snapshot().State == session.Disconnected:
		return dErrors.Wrap(err, dErrors.CodeNotConnected, "connect a signing agent before switching identity")
	default:
		return dErrors.Wrap(err, dErrors.CodeAgentError, "switching identity failed")
	}
}
