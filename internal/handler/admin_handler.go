package handler

import (
	"context"
	"errors"
	"net/http"

	"storefront/internal/admin"
	"storefront/internal/archive"
	"storefront/internal/model"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// AdminService is the dashboard back-office; *admin.Service implements it.
type AdminService interface {
	Summary(ctx context.Context) (*admin.Summary, error)

	Products(ctx context.Context) ([]model.Product, error)
	CreateProduct(ctx context.Context, p *model.Product) (*model.Product, error)
	UpdateProduct(ctx context.Context, id string, p *model.Product) (*model.Product, error)
	DeleteProduct(ctx context.Context, id string) error

	Users(ctx context.Context) ([]model.User, error)
	CreateUser(ctx context.Context, u *model.User) (*model.User, error)
	UpdateUser(ctx context.Context, id string, u *model.User) (*model.User, error)
	DeleteUser(ctx context.Context, id string) error

	Orders(ctx context.Context) ([]model.Order, error)
	UpdateOrderStatus(ctx context.Context, id, status string) (*model.Order, error)
	DeleteOrder(ctx context.Context, id string) error
}

// OrderArchiver exports and restores the order log; *archive.Archiver implements it.
type OrderArchiver interface {
	Export(ctx context.Context) (*archive.ExportResult, error)
	Restore(ctx context.Context, name string) (*archive.RestoreResult, error)
}

// UpdateStatusRequest is the body of PUT /api/admin/orders/{id}/status.
type UpdateStatusRequest struct {
	Status string `json:"status"`
}

// RestoreRequest is the body of POST /api/admin/orders/restore.
type RestoreRequest struct {
	Name string `json:"name"`
}

// AdminHandler handles the /api/admin routes.
type AdminHandler struct {
	service  AdminService
	archiver OrderArchiver
	logger   zerolog.Logger
}

// NewAdminHandler creates a new admin handler.
func NewAdminHandler(service AdminService, archiver OrderArchiver, logger zerolog.Logger) *AdminHandler {
	return &AdminHandler{
		service:  service,
		archiver: archiver,
		logger:   logger.With().Str("handler", "admin").Logger(),
	}
}

// Summary handles GET /api/admin/summary.
func (h *AdminHandler) Summary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.service.Summary(r.Context())
	h.respond(w, r, http.StatusOK, summary, err)
}

// ListProducts handles GET /api/admin/products.
func (h *AdminHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.service.Products(r.Context())
	h.respond(w, r, http.StatusOK, products, err)
}

// CreateProduct handles POST /api/admin/products.
func (h *AdminHandler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var p model.Product
	if !decodeJSON(w, r, &p, h.logger) {
		return
	}
	created, err := h.service.CreateProduct(r.Context(), &p)
	h.respond(w, r, http.StatusCreated, created, err)
}

// UpdateProduct handles PUT /api/admin/products/{id}.
func (h *AdminHandler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	var p model.Product
	if !decodeJSON(w, r, &p, h.logger) {
		return
	}
	updated, err := h.service.UpdateProduct(r.Context(), chi.URLParam(r, "id"), &p)
	h.respond(w, r, http.StatusOK, updated, err)
}

// DeleteProduct handles DELETE /api/admin/products/{id}.
func (h *AdminHandler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	h.noContent(w, r, h.service.DeleteProduct(r.Context(), chi.URLParam(r, "id")))
}

// ListUsers handles GET /api/admin/users.
func (h *AdminHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.service.Users(r.Context())
	h.respond(w, r, http.StatusOK, users, err)
}

// CreateUser handles POST /api/admin/users.
func (h *AdminHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var u model.User
	if !decodeJSON(w, r, &u, h.logger) {
		return
	}
	created, err := h.service.CreateUser(r.Context(), &u)
	h.respond(w, r, http.StatusCreated, created, err)
}

// UpdateUser handles PUT /api/admin/users/{id}.
func (h *AdminHandler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	var u model.User
	if !decodeJSON(w, r, &u, h.logger) {
		return
	}
	updated, err := h.service.UpdateUser(r.Context(), chi.URLParam(r, "id"), &u)
	h.respond(w, r, http.StatusOK, updated, err)
}

// DeleteUser handles DELETE /api/admin/users/{id}.
func (h *AdminHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	h.noContent(w, r, h.service.DeleteUser(r.Context(), chi.URLParam(r, "id")))
}

// ListOrders handles GET /api/admin/orders.
func (h *AdminHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.service.Orders(r.Context())
	h.respond(w, r, http.StatusOK, orders, err)
}

// UpdateOrderStatus handles PUT /api/admin/orders/{id}/status.
func (h *AdminHandler) UpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	var req UpdateStatusRequest
	if !decodeJSON(w, r, &req, h.logger) {
		return
	}
	order, err := h.service.UpdateOrderStatus(r.Context(), chi.URLParam(r, "id"), req.Status)
	h.respond(w, r, http.StatusOK, order, err)
}

// DeleteOrder handles DELETE /api/admin/orders/{id}.
func (h *AdminHandler) DeleteOrder(w http.ResponseWriter, r *http.Request) {
	h.noContent(w, r, h.service.DeleteOrder(r.Context(), chi.URLParam(r, "id")))
}

// ExportOrders handles POST /api/admin/orders/export.
func (h *AdminHandler) ExportOrders(w http.ResponseWriter, r *http.Request) {
	result, err := h.archiver.Export(r.Context())
	if err != nil {
		h.archiveFailed(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, result)
}

// RestoreOrders handles POST /api/admin/orders/restore.
func (h *AdminHandler) RestoreOrders(w http.ResponseWriter, r *http.Request) {
	var req RestoreRequest
	if !decodeJSON(w, r, &req, h.logger) {
		return
	}

	result, err := h.archiver.Restore(r.Context(), req.Name)
	if err != nil {
		h.archiveFailed(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *AdminHandler) archiveFailed(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, archive.ErrInvalidName) {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeValidation, err.Error(), h.logger)
		return
	}
	h.logger.Error().Err(err).Msg("archive operation failed")
	writeError(w, r, http.StatusServiceUnavailable, model.ErrCodeArchiveUnavailable, "order archive is unavailable", h.logger)
}

func (h *AdminHandler) noContent(w http.ResponseWriter, r *http.Request, err error) {
	if err != nil {
		writeServiceError(w, r, err, h.logger)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *AdminHandler) respond(w http.ResponseWriter, r *http.Request, status int, v any, err error) {
	if err != nil {
		writeServiceError(w, r, err, h.logger)
		return
	}
	writeJSON(w, status, v)
}
