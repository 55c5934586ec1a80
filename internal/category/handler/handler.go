package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"pawnshop/internal/access"
	"pawnshop/internal/category/models"
	"pawnshop/internal/query"
	id "pawnshop/pkg/domain"
	dErrors "pawnshop/pkg/domain-errors"
	"pawnshop/pkg/platform/httputil"
	"pawnshop/pkg/requestcontext"
)

// Service defines the item category operations the handler needs.
type Service interface {
	Create(ctx context.Context, name, notes string) (*models.Category, error)
	Get(ctx context.Context, categoryID id.CategoryID) (*models.Category, error)
	List(ctx context.Context, p query.Params) (query.Page[*models.Category], error)
	Update(ctx context.Context, categoryID id.CategoryID, patch models.Patch) (*models.Category, error)
	Delete(ctx context.Context, categoryID id.CategoryID) error
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

// Register mounts item category endpoints on r. r must already require authentication.
func (h *Handler) Register(r chi.Router, authz Authorizer) {
	allow := func(act access.Action) func(http.Handler) http.Handler {
		return authz.Allow(access.ResourceItemCategory, act)
	}
	r.With(allow(access.ActionRead)).Get("/itemCategories", h.HandleList)
	r.With(allow(access.ActionCreate)).Post("/itemCategories", h.HandleCreate)
	r.With(allow(access.ActionRead)).Get("/itemCategories/{id}", h.HandleGet)
	r.With(allow(access.ActionUpdate)).Put("/itemCategories/{id}", h.HandleUpdate)
	r.With(allow(access.ActionDelete)).Delete("/itemCategories/{id}", h.HandleDelete)
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
		h.fail(ctx, w, "list categories failed", err)
		return
	}
	out := query.Map(page, FromCategory)
	httputil.WritePage(w, out.Items, out.Pagination)
}

func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndPrepare[CreateCategoryRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	c, err := h.service.Create(ctx, req.CategoryName, req.Notes)
	if err != nil {
		h.fail(ctx, w, "create category failed", err)
		return
	}
	httputil.WriteData(w, http.StatusCreated, FromCategory(c))
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	categoryID, err := pathID(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	c, err := h.service.Get(ctx, categoryID)
	if err != nil {
		h.fail(ctx, w, "get category failed", err)
		return
	}
	httputil.WriteData(w, http.StatusOK, FromCategory(c))
}

func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	categoryID, err := pathID(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[UpdateCategoryRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	c, err := h.service.Update(ctx, categoryID, req.Patch())
	if err != nil {
		h.fail(ctx, w, "update category failed", err)
		return
	}
	httputil.WriteData(w, http.StatusOK, FromCategory(c))
}

func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	categoryID, err := pathID(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if err := h.service.Delete(ctx, categoryID); err != nil {
		h.fail(ctx, w, "delete category failed", err)
		return
	}
	httputil.WriteMessage(w, http.StatusOK, "Category deleted successfully")
}

func pathID(r *http.Request) (id.CategoryID, error) {
	categoryID, err := id.ParseCategoryID(chi.URLParam(r, "id"))
	if err != nil {
		return id.CategoryID{}, dErrors.New(dErrors.CodeNotFound, "Category not found")
	}
	return categoryID, nil
}

func (h *Handler) fail(ctx context.Context, w http.ResponseWriter, msg string, err error) {
	httputil.WriteServiceError(ctx, w, h.logger, msg, err)
}
