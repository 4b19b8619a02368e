package integration_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"

	"github.com/raizurai/userhub/internal/config"
	apphttp "github.com/raizurai/userhub/internal/http"
	"github.com/raizurai/userhub/internal/observability"
	"github.com/raizurai/userhub/internal/repo"
	"github.com/raizurai/userhub/internal/repo/sqlite"
	"github.com/raizurai/userhub/internal/security"
	"github.com/raizurai/userhub/internal/service"
)

type apiErrorResponse struct {
	Error struct {
		Code      string          `json:"code"`
		Message   string          `json:"message"`
		RequestID string          `json:"requestId"`
		Details   json.RawMessage `json:"details"`
	} `json:"error"`
}

type userBody struct {
	ID        int64   `json:"id"`
	Username  string  `json:"username"`
	Email     string  `json:"email"`
	FullName  *string `json:"full_name"`
	IsActive  bool    `json:"is_active"`
	CreatedAt string  `json:"created_at"`
	UpdatedAt string  `json:"updated_at"`
}

func testConfig() config.Config {
	var cfg config.Config
	cfg.App.Name = "UserHub API"
	cfg.App.Version = "1.0.0"
	cfg.App.Env = "test"
	cfg.App.APIPrefix = "/api/v1"
	cfg.CORS.Origins = []string{"*"}

	return cfg
}

func setupTestRouter(t *testing.T) (http.Handler, *sqlite.Store) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store, err := sqlite.Open(":memory:", nil)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(store.Close)

	if err := store.Migrate(context.Background()); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	// Basic logger that discards outputs during tests
	logger := slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelDebug}))

	svc := service.NewUserService(store, security.NewBcryptHasher(bcrypt.MinCost), logger)

	router := apphttp.NewRouter(apphttp.Deps{
		Config: testConfig(),
		Log:    logger,
		Store:  store,
		Users:  svc,
		Prom:   observability.NewProm(),
	})

	return router, store
}

func send(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()

	var rdr io.Reader
	if body != "" {
		rdr = bytes.NewBufferString(body)
	}

	req := httptest.NewRequest(method, path, rdr)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}

	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()

	var v T
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode body: %v body=%s", err, w.Body.String())
	}

	return v
}

func createUser(t *testing.T, h http.Handler, name string) userBody {
	t.Helper()

	body := fmt.Sprintf(`{"username":%q,"email":"%s@example.com","password":"password123"}`, name, name)

	w := send(t, h, http.MethodPost, "/api/v1/users/", body)
	if w.Code != http.StatusCreated {
		t.Fatalf("create %s: got %d body=%s", name, w.Code, w.Body.String())
	}

	return decode[userBody](t, w)
}

func TestUsersIntegration_Lifecycle(t *testing.T) {
	router, _ := setupTestRouter(t)

	created := createUser(t, router, "alice")
	if created.ID == 0 || !created.IsActive || created.FullName != nil {
		t.Fatalf("unexpected created user: %+v", created)
	}

	w := send(t, router, http.MethodGet, fmt.Sprintf("/api/v1/users/%d", created.ID), "")
	if w.Code != http.StatusOK {
		t.Fatalf("get: got %d", w.Code)
	}
	if w.Header().Get("X-Request-Id") == "" {
		t.Fatalf("response is missing X-Request-Id")
	}
	if strings.Contains(w.Body.String(), "password") {
		t.Fatalf("response leaks password: %s", w.Body.String())
	}

	w = send(t, router, http.MethodPut, fmt.Sprintf("/api/v1/users/%d", created.ID), `{"full_name":"Alice Liddell"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("update: got %d body=%s", w.Code, w.Body.String())
	}
	updated := decode[userBody](t, w)
	if updated.FullName == nil || *updated.FullName != "Alice Liddell" || updated.Email != created.Email {
		t.Fatalf("unexpected update result: %+v", updated)
	}

	w = send(t, router, http.MethodDelete, fmt.Sprintf("/api/v1/users/%d", created.ID), "")
	if w.Code != http.StatusOK {
		t.Fatalf("delete: got %d", w.Code)
	}

	w = send(t, router, http.MethodGet, fmt.Sprintf("/api/v1/users/%d", created.ID), "")
	if w.Code != http.StatusNotFound {
		t.Fatalf("get after delete: got %d", w.Code)
	}
	if e := decode[apiErrorResponse](t, w); e.Error.Code != "not_found" || e.Error.RequestID == "" {
		t.Fatalf("unexpected error body: %+v", e)
	}

	w = send(t, router, http.MethodDelete, fmt.Sprintf("/api/v1/users/%d", created.ID), "")
	if w.Code != http.StatusNotFound {
		t.Fatalf("second delete: got %d", w.Code)
	}
}

func TestUsersIntegration_Conflicts(t *testing.T) {
	router, _ := setupTestRouter(t)
	createUser(t, router, "alice")

	w := send(t, router, http.MethodPost, "/api/v1/users/",
		`{"username":"alice","email":"other@example.com","password":"password123"}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("duplicate username: got %d", w.Code)
	}
	if e := decode[apiErrorResponse](t, w); e.Error.Code != "username_taken" {
		t.Fatalf("code: got %q", e.Error.Code)
	}

	w = send(t, router, http.MethodPost, "/api/v1/users/",
		`{"username":"alicia","email":"alice@example.com","password":"password123"}`)
	if e := decode[apiErrorResponse](t, w); w.Code != http.StatusBadRequest || e.Error.Code != "email_taken" {
		t.Fatalf("duplicate email: got %d %q", w.Code, e.Error.Code)
	}
}

func TestUsersIntegration_Pagination(t *testing.T) {
	router, _ := setupTestRouter(t)

	for i := 1; i <= 15; i++ {
		createUser(t, router, fmt.Sprintf("user%02d", i))
	}

	w := send(t, router, http.MethodGet, "/api/v1/users/?page=2&page_size=10", "")
	if w.Code != http.StatusOK {
		t.Fatalf("list: got %d", w.Code)
	}

	page := decode[struct {
		Users    []userBody `json:"users"`
		Total    int        `json:"total"`
		Page     int        `json:"page"`
		PageSize int        `json:"page_size"`
	}](t, w)

	if len(page.Users) != 5 || page.Total != 15 || page.Page != 2 || page.PageSize != 10 {
		t.Fatalf("unexpected page: %d users, total=%d page=%d size=%d", len(page.Users), page.Total, page.Page, page.PageSize)
	}
}

func TestUsersIntegration_RootHealthDocsMetrics(t *testing.T) {
	router, _ := setupTestRouter(t)

	w := send(t, router, http.MethodGet, "/", "")
	root := decode[map[string]any](t, w)
	if root["message"] != "Welcome to UserHub API" || root["database"] != "sqlite" || root["api_prefix"] != "/api/v1" {
		t.Fatalf("unexpected root payload: %v", root)
	}

	for _, path := range []string{"/healthz", "/readyz", "/docs", "/docs/openapi.yaml"} {
		if w := send(t, router, http.MethodGet, path, ""); w.Code != http.StatusOK {
			t.Fatalf("%s: got %d", path, w.Code)
		}
	}

	// one request through the users API so the counter has a sample
	send(t, router, http.MethodGet, "/api/v1/users/", "")

	w = send(t, router, http.MethodGet, "/metrics", "")
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "userhub_http_requests_total") {
		t.Fatalf("metrics: got %d body=%s", w.Code, w.Body.String())
	}
}

type downStore struct {
	*sqlite.Store
}

func (downStore) Ping(context.Context) error { return errors.New("connection refused") }

func (downStore) WithinTx(context.Context, func(context.Context, repo.Users) error) error {
	return errors.New("connection refused")
}

func TestUsersIntegration_DatabaseDown(t *testing.T) {
	gin.SetMode(gin.TestMode)

	_, store := setupTestRouter(t)
	down := downStore{Store: store}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	router := apphttp.NewRouter(apphttp.Deps{
		Config: testConfig(),
		Log:    logger,
		Store:  down,
		Users:  service.NewUserService(down, security.NewBcryptHasher(bcrypt.MinCost), logger),
	})

	if w := send(t, router, http.MethodGet, "/readyz", ""); w.Code != http.StatusServiceUnavailable {
		t.Fatalf("readyz: got %d, want 503", w.Code)
	}

	w := send(t, router, http.MethodGet, "/api/v1/users/1", "")
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("get: got %d, want 500", w.Code)
	}
	if e := decode[apiErrorResponse](t, w); e.Error.Code != "internal_error" {
		t.Fatalf("code: got %q", e.Error.Code)
	}
}

func TestUsersIntegration_InputEdges(t *testing.T) {
	router, _ := setupTestRouter(t)

	body := fmt.Sprintf(`{"username":"bob","email":"bob@example.com","password":%q}`, strings.Repeat("é", 40))
	w := send(t, router, http.MethodPost, "/api/v1/users/", body)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("80-byte password: got %d body=%s", w.Code, w.Body.String())
	}
	if e := decode[apiErrorResponse](t, w); e.Error.Code != "invalid_request" {
		t.Fatalf("code: got %q", e.Error.Code)
	}

	createUser(t, router, "carol")

	w = send(t, router, http.MethodGet, "/api/v1/users/?page=4611686018427387905&page_size=4", "")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("overflowing page: got %d body=%s", w.Code, w.Body.String())
	}
}

func TestUsersIntegration_NullClearsFullName(t *testing.T) {
	router, _ := setupTestRouter(t)

	w := send(t, router, http.MethodPost, "/api/v1/users/",
		`{"username":"dora","email":"dora@example.com","password":"password123","full_name":"Has Name"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("create: got %d body=%s", w.Code, w.Body.String())
	}
	created := decode[userBody](t, w)

	w = send(t, router, http.MethodPut, fmt.Sprintf("/api/v1/users/%d", created.ID), `{"full_name":null}`)
	if w.Code != http.StatusOK {
		t.Fatalf("update: got %d body=%s", w.Code, w.Body.String())
	}
	if updated := decode[userBody](t, w); updated.FullName != nil {
		t.Fatalf("full_name should be null, got %q", *updated.FullName)
	}

	w = send(t, router, http.MethodGet, fmt.Sprintf("/api/v1/users/%d", created.ID), "")
	if got := decode[userBody](t, w); got.FullName != nil {
		t.Fatalf("cleared full_name not persisted: %q", *got.FullName)
	}
}
