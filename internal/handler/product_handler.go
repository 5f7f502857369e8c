package handler

import (
	"net/http"
	"strconv"

	"storefront/internal/catalog"
	"storefront/internal/model"
	"storefront/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// ProductHandler handles product-related HTTP requests.
type ProductHandler struct {
	service service.ProductService
	logger  zerolog.Logger
}

// NewProductHandler creates a new product handler.
func NewProductHandler(service service.ProductService, logger zerolog.Logger) *ProductHandler {
	return &ProductHandler{
		service: service,
		logger:  logger.With().Str("handler", "product").Logger(),
	}
}

// List handles GET /api/products. Supported query parameters are category,
// search, minPrice, maxPrice, inStock and sort.
func (h *ProductHandler) List(w http.ResponseWriter, r *http.Request) {
	filter, err := parseFilter(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeValidation, err.Error(), h.logger)
		return
	}

	products, err := h.service.List(r.Context(), filter)
	if err != nil {
		writeServiceError(w, r, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, products)
}

// Get handles GET /api/products/{id}.
func (h *ProductHandler) Get(w http.ResponseWriter, r *http.Request) {
	product, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, product)
}

// Categories handles GET /api/categories.
func (h *ProductHandler) Categories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.service.Categories(r.Context())
	if err != nil {
		writeServiceError(w, r, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, categories)
}

func parseFilter(r *http.Request) (catalog.Filter, error) {
	q := r.URL.Query()
	filter := catalog.Filter{
		Category: q.Get("category"),
		Search:   q.Get("search"),
	}

	for _, bound := range []struct {
		param string
		dst   **decimal.Decimal
	}{
		{"minPrice", &filter.MinPrice},
		{"maxPrice", &filter.MaxPrice},
	} {
		raw := q.Get(bound.param)
		if raw == "" {
			continue
		}
		d, err := decimal.NewFromString(raw)
		if err != nil {
			return catalog.Filter{}, &paramError{param: bound.param, value: raw}
		}
		*bound.dst = &d
	}

	if raw := q.Get("inStock"); raw != "" {
		inStock, err := strconv.ParseBool(raw)
		if err != nil {
			return catalog.Filter{}, &paramError{param: "inStock", value: raw}
		}
		filter.InStock = inStock
	}

	sort, err := catalog.ParseSortOrder(q.Get("sort"))
	if err != nil {
		return catalog.Filter{}, &paramError{param: "sort", value: q.Get("sort")}
	}
	filter.Sort = sort

	return filter, nil
}

type paramError struct {
	param string
	value string
}

func (e *paramError) Error() string {
	return "invalid " + e.param + " parameter: " + strconv.Quote(e.value)
}
