package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"pawnshop/internal/access"
	"pawnshop/internal/pawn/models"
	"pawnshop/internal/query"
	id "pawnshop/pkg/domain"
	dErrors "pawnshop/pkg/domain-errors"
	"pawnshop/pkg/platform/httputil"
	"pawnshop/pkg/requestcontext"
)

// Service defines the ledger operations the handler needs.
type Service interface {
	Create(ctx context.Context, terms models.Terms) (*models.View, error)
	Get(ctx context.Context, txID id.TransactionID) (*models.View, error)
	List(ctx context.Context, p query.Params) (query.Page[*models.View], error)
	Update(ctx context.Context, txID id.TransactionID, patch models.Patch) (*models.View, error)
	AppendPrice(ctx context.Context, txID id.TransactionID, price decimal.Decimal) (*models.View, error)
	ReplaceHistory(ctx context.Context, txID id.TransactionID, entries []models.PriceEntry) (*models.View, error)
	Delete(ctx context.Context, txID id.TransactionID) error
}

type Authorizer interface {
	Allow(res access.Resource, act access.Action) func(http.Handler) http.Handler
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts pawn transaction endpoints on r. r must already require
// authentication. Both price operations share the update permission.
func (h *Handler) Register(r chi.Router, authz Authorizer) {
	allow := func(act access.Action) func(http.Handler) http.Handler {
		return authz.Allow(access.ResourcePawnTransaction, act)
	}
	r.With(allow(access.ActionRead)).Get("/pawnTransactions", h.HandleList)
	r.With(allow(access.ActionCreate)).Post("/pawnTransactions", h.HandleCreate)
	r.With(allow(access.ActionRead)).Get("/pawnTransactions/{id}", h.HandleGet)
	r.With(allow(access.ActionUpdate)).Put("/pawnTransactions/{id}", h.HandleUpdate)
	r.With(allow(access.ActionUpdate)).Post("/pawnTransactions/{id}/prices", h.HandleAppendPrice)
	r.With(allow(access.ActionUpdate)).Put("/pawnTransactions/{id}/priceHistory", h.HandleReplaceHistory)
	r.With(allow(access.ActionDelete)).Delete("/pawnTransactions/{id}", h.HandleDelete)
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
		h.fail(ctx, w, "list pawn transactions failed", err)
		return
	}
	out := query.Map(page, FromView)
	httputil.WritePage(w, out.Items, out.Pagination)
}

func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndPrepare[CreateTransactionRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	v, err := h.service.Create(ctx, req.Terms())
	if err != nil {
		h.fail(ctx, w, "create pawn transaction failed", err)
		return
	}
	httputil.WriteData(w, http.StatusCreated, FromView(v))
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	txID, err := pathID(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	v, err := h.service.Get(ctx, txID)
	if err != nil {
		h.fail(ctx, w, "get pawn transaction failed", err)
		return
	}
	httputil.WriteData(w, http.StatusOK, FromView(v))
}

func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	txID, err := pathID(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[UpdateTransactionRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	v, err := h.service.Update(ctx, txID, req.Patch())
	if err != nil {
		h.fail(ctx, w, "update pawn transaction failed", err)
		return
	}
	httputil.WriteData(w, http.StatusOK, FromView(v))
}

func (h *Handler) HandleAppendPrice(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	txID, err := pathID(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[AppendPriceRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	v, err := h.service.AppendPrice(ctx, txID, *req.Price)
	if err != nil {
		h.fail(ctx, w, "append price failed", err)
		return
	}
	httputil.WriteData(w, http.StatusOK, FromView(v))
}

func (h *Handler) HandleReplaceHistory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	txID, err := pathID(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[ReplaceHistoryRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	v, err := h.service.ReplaceHistory(ctx, txID, req.Entries())
	if err != nil {
		h.fail(ctx, w, "replace price history failed", err)
		return
	}
	httputil.WriteData(w, http.StatusOK, FromView(v))
}

func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	txID, err := pathID(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if err := h.service.Delete(ctx, txID); err != nil {
		h.fail(ctx, w, "delete pawn transaction failed", err)
		return
	}
	httputil.WriteMessage(w, http.StatusOK, "Pawn transaction deleted successfully")
}

func pathID(r *http.Request) (id.TransactionID, error) {
	txID, err := id.ParseTransactionID(chi.URLParam(r, "id"))
	if err != nil {
		return id.TransactionID{}, dErrors.New(dErrors.CodeNotFound, "Pawn transaction not found")
	}
	return txID, nil
}

func (h *Handler) fail(ctx context.Context, w http.ResponseWriter, msg string, err error) {
	httputil.WriteServiceError(ctx, w, h.logger, msg, err)
}
