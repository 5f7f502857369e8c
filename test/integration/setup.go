package integration

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"storefront/internal/database"
	"storefront/internal/model"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// TestDB represents a test database instance.
type TestDB struct {
	Container *postgres.PostgresContainer
	Pool      *pgxpool.Pool
	ConnStr   string
}

// SetupTestDB creates a PostgreSQL test container with the order log schema applied.
func SetupTestDB(t *testing.T) *TestDB {
	t.Helper()

	ctx := context.Background()

	// Create PostgreSQL container
	postgresContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second)),
	)
	if err != nil {
		t.Fatalf("failed to start postgres container: %v", err)
	}

	// Get connection string
	connStr, err := postgresContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("failed to get connection string: %v", err)
	}

	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		t.Fatalf("failed to create connection pool: %v", err)
	}

	// Verify connection
	if err := pool.Ping(ctx); err != nil {
		t.Fatalf("failed to ping database: %v", err)
	}

	if err := database.Migrate(ctx, pool, zerolog.Nop()); err != nil {
		t.Fatalf("failed to migrate schema: %v", err)
	}

	t.Cleanup(func() {
		pool.Close()
		if err := postgresContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	return &TestDB{
		Container: postgresContainer,
		Pool:      pool,
		ConnStr:   connStr,
	}
}

// CleanupDB removes every order from the log.
func CleanupDB(t *testing.T, pool *pgxpool.Pool) {
	t.Helper()

	if _, err := pool.Exec(context.Background(), "TRUNCATE orders"); err != nil {
		t.Fatalf("failed to clean orders table: %v", err)
	}
}

// MockAPI is an in-memory stand-in for the hosted mock REST API. Each
// resource is a collection of JSON documents keyed by their "id" field.
type MockAPI struct {
	Server *httptest.Server

	mu       sync.Mutex
	docs     map[string]map[string]json.RawMessage
	order    map[string][]string
	failures map[string]int
	nextID   int
}

// NewMockAPI starts a mock API server that is closed when the test ends.
func NewMockAPI(t *testing.T) *MockAPI {
	t.Helper()

	api := &MockAPI{
		docs:     map[string]map[string]json.RawMessage{},
		order:    map[string][]string{},
		failures: map[string]int{},
	}

	r := chi.NewRouter()
	r.Get("/{resource}", api.list)
	r.Post("/{resource}", api.create)
	r.Get("/{resource}/{id}", api.get)
	r.Put("/{resource}/{id}", api.replace)
	r.Delete("/{resource}/{id}", api.delete)

	api.Server = httptest.NewServer(r)
	t.Cleanup(api.Server.Close)
	return api
}

// URL is the base URL to configure the remote client with.
func (a *MockAPI) URL() string {
	return a.Server.URL + "/"
}

// FailNext makes the next n calls of method on resource answer 500.
func (a *MockAPI) FailNext(method, resource string, n int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.failures[method+" "+resource] = n
}

// Put stores v under resource, replacing any document with the same id.
func (a *MockAPI) Put(t *testing.T, resource, id string, v any) {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("failed to encode %s/%s: %v", resource, id, err)
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.store(resource, id, data)
}

// Product returns the stored product with id, or nil.
func (a *MockAPI) Product(t *testing.T, id string) *model.Product {
	t.Helper()
	a.mu.Lock()
	data, ok := a.docs["products"][id]
	a.mu.Unlock()
	if !ok {
		return nil
	}
	var p model.Product
	if err := json.Unmarshal(data, &p); err != nil {
		t.Fatalf("failed to decode product %s: %v", id, err)
	}
	return &p
}

// Count returns the number of documents in resource.
func (a *MockAPI) Count(resource string) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.docs[resource])
}

// SeedCatalogue stores a small product catalogue and one customer.
func (a *MockAPI) SeedCatalogue(t *testing.T) {
	t.Helper()

	products := []map[string]any{
		{"id": "P001", "name": "Walnut Desk", "price": 100, "stock": 10, "category": "furniture", "description": "Solid walnut"},
		{"id": "P002", "name": "Desk Lamp", "price": 24.5, "stock": 3, "category": "lighting", "colors": []string{"black", "white"}},
		{"id": "P003", "name": "Linen Shirt", "price": 39.99, "stock": 0, "category": "apparel", "sizes": []string{"S", "M", "L"}},
		{"id": "P004", "name": "Oak Chair", "price": 80, "stock": 6, "category": "furniture"},
	}
	for _, p := range products {
		a.Put(t, "products", p["id"].(string), p)
	}
	a.Put(t, "users", "U001", map[string]any{"id": "U001", "name": "Ada", "email": "ada@example.com", "role": "customer"})
}

func (a *MockAPI) store(resource, id string, data json.RawMessage) {
	if a.docs[resource] == nil {
		a.docs[resource] = map[string]json.RawMessage{}
	}
	if _, exists := a.docs[resource][id]; !exists {
		a.order[resource] = append(a.order[resource], id)
	}
	a.docs[resource][id] = data
}

// injectFailure reports whether the call should fail, consuming one failure.
func (a *MockAPI) injectFailure(w http.ResponseWriter, r *http.Request) bool {
	key := r.Method + " " + chi.URLParam(r, "resource")
	if a.failures[key] <= 0 {
		return false
	}
	a.failures[key]--
	http.Error(w, "injected failure", http.StatusInternalServerError)
	return true
}

func (a *MockAPI) list(w http.ResponseWriter, r *http.Request) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.injectFailure(w, r) {
		return
	}

	resource := chi.URLParam(r, "resource")
	out := make([]json.RawMessage, 0, len(a.order[resource]))
	for _, id := range a.order[resource] {
		if doc, ok := a.docs[resource][id]; ok {
			out = append(out, doc)
		}
	}
	writeMockJSON(w, http.StatusOK, out)
}

func (a *MockAPI) get(w http.ResponseWriter, r *http.Request) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.injectFailure(w, r) {
		return
	}

	doc, ok := a.docs[chi.URLParam(r, "resource")][chi.URLParam(r, "id")]
	if !ok {
		http.NotFound(w, r)
		return
	}
	writeMockJSON(w, http.StatusOK, doc)
}

func (a *MockAPI) create(w http.ResponseWriter, r *http.Request) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.injectFailure(w, r) {
		return
	}

	body, fields, ok := readDocument(w, r)
	if !ok {
		return
	}
	id, _ := fields["id"].(string)
	if id == "" {
		a.nextID++
		id = fmt.Sprintf("gen-%d", a.nextID)
		fields["id"] = id
		body, _ = json.Marshal(fields)
	}

	a.store(chi.URLParam(r, "resource"), id, body)
	writeMockJSON(w, http.StatusCreated, json.RawMessage(body))
}

func (a *MockAPI) replace(w http.ResponseWriter, r *http.Request) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.injectFailure(w, r) {
		return
	}

	resource, id := chi.URLParam(r, "resource"), chi.URLParam(r, "id")
	if _, ok := a.docs[resource][id]; !ok {
		http.NotFound(w, r)
		return
	}
	body, _, ok := readDocument(w, r)
	if !ok {
		return
	}

	a.store(resource, id, body)
	writeMockJSON(w, http.StatusOK, json.RawMessage(body))
}

func (a *MockAPI) delete(w http.ResponseWriter, r *http.Request) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.injectFailure(w, r) {
		return
	}

	resource, id := chi.URLParam(r, "resource"), chi.URLParam(r, "id")
	if _, ok := a.docs[resource][id]; !ok {
		http.NotFound(w, r)
		return
	}
	delete(a.docs[resource], id)
	w.WriteHeader(http.StatusOK)
}

func readDocument(w http.ResponseWriter, r *http.Request) ([]byte, map[string]any, bool) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return nil, nil, false
	}
	var fields map[string]any
	if err := json.Unmarshal(body, &fields); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return nil, nil, false
	}
	return body, fields, true
}

func writeMockJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
