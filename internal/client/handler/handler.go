package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"pawnshop/internal/access"
	"pawnshop/internal/client/models"
	"pawnshop/internal/query"
	id "pawnshop/pkg/domain"
	dErrors "pawnshop/pkg/domain-errors"
	"pawnshop/pkg/platform/httputil"
	"pawnshop/pkg/requestcontext"
)

// Service defines the client registry operations the handler needs.
type Service interface {
	Create(ctx context.Context, identity models.Identity) (*models.Client, error)
	Get(ctx context.Context, clientID id.ClientID) (*models.Client, error)
	List(ctx context.Context, p query.Params) (query.Page[*models.Client], error)
	Update(ctx context.Context, clientID id.ClientID, identity models.Identity) (*models.Client, error)
	Delete(ctx context.Context, clientID id.ClientID) error
}

// Authorizer supplies per-route role checks.
type Authorizer interface {
	Allow(res access.Resource, act access.Action) func(http.Handler) http.Handler
}

// Handler wires client endpoints to the client registry.
type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts client endpoints on r. r must already require authentication.
func (h *Handler) Register(r chi.Router, authz Authorizer) {
	allow := func(act access.Action) func(http.Handler) http.Handler {
		return authz.Allow(access.ResourceClient, act)
	}
	r.With(allow(access.ActionRead)).Get("/clients", h.HandleList)
	r.With(allow(access.ActionCreate)).Post("/clients", h.HandleCreate)
	r.With(allow(access.ActionRead)).Get("/clients/{id}", h.HandleGet)
	r.With(allow(access.ActionUpdate)).Put("/clients/{id}", h.HandleUpdate)
	r.With(allow(access.ActionDelete)).Delete("/clients/{id}", h.HandleDelete)
}

func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	params, err := query.Parse(r.URL.Query(), models.ListSpec)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	page, err := h.service.List(ctx, params)
	if err != nil {
		h.fail(ctx, w, "list clients failed", err)
		return
	}
	out := query.Map(page, FromClient)
	httputil.WritePage(w, out.Items, out.Pagination)
}

func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndPrepare[ClientRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	c, err := h.service.Create(ctx, req.Identity())
	if err != nil {
		h.fail(ctx, w, "create client failed", err)
		return
	}
	httputil.WriteData(w, http.StatusCreated, FromClient(c))
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	clientID, err := pathID(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	c, err := h.service.Get(ctx, clientID)
	if err != nil {
		h.fail(ctx, w, "get client failed", err)
		return
	}
	httputil.WriteData(w, http.StatusOK, FromClient(c))
}

func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	clientID, err := pathID(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[ClientRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	c, err := h.service.Update(ctx, clientID, req.Identity())
	if err != nil {
		h.fail(ctx, w, "update client failed", err)
		return
	}
	httputil.WriteData(w, http.StatusOK, FromClient(c))
}

func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	clientID, err := pathID(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if err := h.service.Delete(ctx, clientID); err != nil {
		h.fail(ctx, w, "delete client failed", err)
		return
	}
	httputil.WriteMessage(w, http.StatusOK, "Client deleted successfully")
}

// pathID parses {id}. A malformed id cannot name a stored client, so it is
// reported as not found.
func pathID(r *http.Request) (id.ClientID, error) {
	clientID, err := id.ParseClientID(chi.URLParam(r, "id"))
	if err != nil {
		return id.ClientID{}, dErrors.New(dErrors.CodeNotFound, "Client not found")
	}
	return clientID, nil
}

func (h *Handler) fail(ctx context.Context, w http.ResponseWriter, msg string, err error) {
	httputil.WriteServiceError(ctx, w, h.logger, msg, err)
}
