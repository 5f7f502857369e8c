// Package remote is a client for the hosted mock REST API that owns products,
// users and the mirrored copy of orders.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"storefront/internal/metrics"
	"storefront/internal/model"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker/v2"
)

var (
	// ErrNotFound is returned when the API answers 404.
	ErrNotFound = errors.New("remote entity not found")

	// ErrInvalidPayload is returned when the API sends an entity that fails validation.
	ErrInvalidPayload = errors.New("remote entity payload invalid")
)

// StatusError carries an unexpected HTTP status from the API.
type StatusError struct {
	Method string
	Path   string
	Code   int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: unexpected status %d: %s", e.Method, e.Path, e.Code, e.Body)
}

// Config holds the settings for the API client.
type Config struct {
	BaseURL string
	// Timeout bounds every individual call.
	Timeout time.Duration
	// BreakerFailures is the number of consecutive failures that opens a resource's breaker.
	BreakerFailures uint32
	// BreakerCooldown is how long an open breaker rejects calls before probing again.
	BreakerCooldown time.Duration
}

// API groups the resources exposed by the mock service.
type API struct {
	Products *Resource[model.Product]
	Orders   *Resource[model.Order]
	Users    *Resource[model.User]
}

// New creates an API client. httpClient may be nil.
func New(cfg Config, httpClient *http.Client, m *metrics.Metrics, logger zerolog.Logger) *API {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	if cfg.BreakerFailures == 0 {
		cfg.BreakerFailures = 5
	}
	if cfg.BreakerCooldown <= 0 {
		cfg.BreakerCooldown = 30 * time.Second
	}

	t := &transport{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		http:    httpClient,
		timeout: cfg.Timeout,
		metrics: m,
		logger:  logger.With().Str("component", "remote-api").Logger(),
	}

	return &API{
		Products: newResource(t, cfg, "products", (*model.Product).Validate),
		Orders:   newResource(t, cfg, "orders", (*model.Order).Validate),
		Users:    newResource(t, cfg, "users", (*model.User).Validate),
	}
}

// transport performs HTTP calls with a bounded timeout per call.
type transport struct {
	baseURL string
	http    *http.Client
	timeout time.Duration
	metrics *metrics.Metrics
	logger  zerolog.Logger
}

func (t *transport) do(ctx context.Context, resource, method, path string, body any) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, t.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := t.http.Do(req)
	if err != nil {
		t.metrics.ObserveRemote(resource, method, "error", time.Since(start))
		t.logger.Debug().Err(err).Str("method", method).Str("path", path).Msg("remote call failed")
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		t.metrics.ObserveRemote(resource, method, "error", time.Since(start))
		return nil, fmt.Errorf("%s %s: failed to read response: %w", method, path, err)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		t.metrics.ObserveRemote(resource, method, "not_found", time.Since(start))
		return nil, ErrNotFound
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		t.metrics.ObserveRemote(resource, method, "error", time.Since(start))
		return nil, &StatusError{
			Method: method,
			Path:   path,
			Code:   resp.StatusCode,
			Body:   truncate(string(data), 200),
		}
	}

	t.metrics.ObserveRemote(resource, method, "ok", time.Since(start))
	return data, nil
}

// Resource is one CRUD collection of the API, e.g. /products.
type Resource[T any] struct {
	name      string
	transport *transport
	breaker   *gobreaker.CircuitBreaker[[]byte]
	validate  func(*T) error
	logger    zerolog.Logger
}

func newResource[T any](t *transport, cfg Config, name string, validate func(*T) error) *Resource[T] {
	breaker := gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Timeout:     cfg.BreakerCooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.BreakerFailures
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrNotFound)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			t.logger.Warn().
				Str("resource", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("remote circuit breaker state changed")
		},
	})

	return &Resource[T]{
		name:      name,
		transport: t,
		breaker:   breaker,
		validate:  validate,
		logger:    t.logger.With().Str("resource", name).Logger(),
	}
}

func (r *Resource[T]) call(ctx context.Context, method, path string, body any) ([]byte, error) {
	data, err := r.breaker.Execute(func() ([]byte, error) {
		return r.transport.do(ctx, r.name, method, path, body)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	return data, err
}

func (r *Resource[T]) collectionPath() string {
	return "/" + r.name
}

func (r *Resource[T]) itemPath(id string) string {
	return "/" + r.name + "/" + url.PathEscape(id)
}

// List fetches the whole collection. Entries that fail validation are skipped.
func (r *Resource[T]) List(ctx context.Context) ([]T, error) {
	data, err := r.call(ctx, http.MethodGet, r.collectionPath(), nil)
	if err != nil {
		return nil, err
	}

	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to decode %s list: %w", r.name, err)
	}

	items := make([]T, 0, len(raw))
	for i, entry := range raw {
		var v T
		if err := json.Unmarshal(entry, &v); err != nil {
			r.logger.Warn().Err(err).Int("index", i).Msg("skipping undecodable entity")
			continue
		}
		if err := r.validate(&v); err != nil {
			r.logger.Warn().Err(err).Int("index", i).Msg("skipping invalid entity")
			continue
		}
		items = append(items, v)
	}
	return items, nil
}

// Get fetches one entity by id.
func (r *Resource[T]) Get(ctx context.Context, id string) (*T, error) {
	data, err := r.call(ctx, http.MethodGet, r.itemPath(id), nil)
	if err != nil {
		return nil, err
	}
	return r.decode(data)
}

// Create posts v to the collection and returns the stored entity.
func (r *Resource[T]) Create(ctx context.Context, v *T) (*T, error) {
	data, err := r.call(ctx, http.MethodPost, r.collectionPath(), v)
	if err != nil {
		return nil, err
	}
	return r.decodeOr(data, v)
}

// Replace overwrites the entity with the given id.
func (r *Resource[T]) Replace(ctx context.Context, id string, v *T) (*T, error) {
	data, err := r.call(ctx, http.MethodPut, r.itemPath(id), v)
	if err != nil {
		return nil, err
	}
	return r.decodeOr(data, v)
}

// Upsert replaces the entity, creating it if the API does not know the id.
func (r *Resource[T]) Upsert(ctx context.Context, id string, v *T) (*T, error) {
	stored, err := r.Replace(ctx, id, v)
	if errors.Is(err, ErrNotFound) {
		return r.Create(ctx, v)
	}
	return stored, err
}

// Delete removes the entity with the given id.
func (r *Resource[T]) Delete(ctx context.Context, id string) error {
	_, err := r.call(ctx, http.MethodDelete, r.itemPath(id), nil)
	return err
}

func (r *Resource[T]) decode(data []byte) (*T, error) {
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", r.name, err)
	}
	if err := r.validate(&v); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidPayload, r.name, err)
	}
	return &v, nil
}

// decodeOr decodes a write response, falling back to the sent entity when the
// API answers with an empty body.
func (r *Resource[T]) decodeOr(data []byte, sent *T) (*T, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return sent, nil
	}
	return r.decode(data)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
