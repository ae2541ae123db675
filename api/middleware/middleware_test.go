package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/angelmondragon/homestock-backend/pkg/auth"
	pkgerrors "github.com/angelmondragon/homestock-backend/pkg/errors"
	"github.com/angelmondragon/homestock-backend/pkg/ids"
	"github.com/angelmondragon/homestock-backend/pkg/logger"
	"github.com/angelmondragon/homestock-backend/pkg/metrics"
	"github.com/angelmondragon/homestock-backend/pkg/types"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
)

type stubGate struct {
	identity auth.Identity
	err      error
	seen     string
}

func (g *stubGate) Authenticate(_ context.Context, authorization string) (auth.Identity, error) {
	g.seen = authorization
	return g.identity, g.err
}

func okHandler(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func TestAuthRejectsWhenGateFails(t *testing.T) {
	g := &stubGate{err: pkgerrors.New(pkgerrors.CodeTokenExpired, "token expired")}
	called := false
	handler := Auth(g, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/all", nil)
	req.Header.Set("Authorization", "Bearer stale")
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if called {
		t.Fatal("handler must not run for rejected requests")
	}
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
	var env types.ErrorEnvelope
	if err := json.Unmarshal(resp.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if env.Error.Code != string(pkgerrors.CodeTokenExpired) {
		t.Fatalf("expected TOKEN_EXPIRED got %s", env.Error.Code)
	}
	if g.seen != "Bearer stale" {
		t.Fatalf("gate received %q", g.seen)
	}
}

func TestAuthSeedsIdentity(t *testing.T) {
	owner := ids.New()
	g := &stubGate{identity: auth.Identity{UserID: owner, Email: "ann@example.com"}}

	var got ids.ID
	var email string
	handler := Auth(g, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = UserIDFromContext(r.Context())
		if identity, ok := IdentityFromContext(r.Context()); ok {
			email = identity.Email
		}
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer good")
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if got != owner || email != "ann@example.com" {
		t.Fatalf("unexpected identity %q %q", got, email)
	}
}

func TestUserIDFromContextWithoutAuth(t *testing.T) {
	if id := UserIDFromContext(context.Background()); !id.IsZero() {
		t.Fatalf("expected zero id, got %q", id)
	}
}

func TestRequestIDGeneratesAndEchoes(t *testing.T) {
	handler := RequestID(nil)(http.HandlerFunc(okHandler))

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/", nil))
	if resp.Header().Get(requestIDHeader) == "" {
		t.Fatal("expected generated request id")
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(requestIDHeader, "abc-123")
	resp = httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if got := resp.Header().Get(requestIDHeader); got != "abc-123" {
		t.Fatalf("expected echoed request id, got %q", got)
	}
}

func TestRecovererReturnsInternalError(t *testing.T) {
	var buf bytes.Buffer
	logg := logger.New(logger.Options{ServiceName: "test", Level: zerolog.DebugLevel, Output: &buf, Format: "json"})
	handler := Recoverer(logg)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("kaboom")
	}))

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/", nil))

	if resp.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 got %d", resp.Code)
	}
	if strings.Contains(resp.Body.String(), "kaboom") {
		t.Fatalf("panic value leaked to client: %s", resp.Body.String())
	}
	if !strings.Contains(buf.String(), "panic.recovered") {
		t.Fatalf("expected panic to be logged, got %s", buf.String())
	}
}

func TestLoggingRecordsStatus(t *testing.T) {
	var buf bytes.Buffer
	logg := logger.New(logger.Options{ServiceName: "test", Level: zerolog.InfoLevel, Output: &buf, Format: "json"})
	handler := Logging(logg)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/api/auth/login", nil))

	line := buf.String()
	if !strings.Contains(line, "request.complete") || !strings.Contains(line, `"status":418`) {
		t.Fatalf("unexpected log output %s", line)
	}
}

func TestMetricsUsesRoutePattern(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := chi.NewRouter()
	r.Use(Metrics(metrics.NewHTTPMetrics(reg)))
	r.Get("/api/rooms/{room}", okHandler)

	for _, path := range []string{"/api/rooms/kitchen", "/api/rooms/garage"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	var total float64
	for _, mf := range mfs {
		if mf.GetName() != "http_requests_total" {
			continue
		}
		for _, m := range mf.GetMetric() {
			for _, label := range m.GetLabel() {
				if label.GetName() == "route" && label.GetValue() != "/api/rooms/{room}" {
					t.Fatalf("unexpected route label %q", label.GetValue())
				}
			}
			total += m.GetCounter().GetValue()
		}
	}
	if total != 2 {
		t.Fatalf("expected 2 requests recorded, got %f", total)
	}
}

func TestCORSAllowsConfiguredOrigin(t *testing.T) {
	handler := CORS([]string{"http://localhost:3000"})(http.HandlerFunc(okHandler))

	req := httptest.NewRequest(http.MethodOptions, "/api/all", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if got := resp.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:3000" {
		t.Fatalf("expected origin to be allowed, got %q", got)
	}

	req = httptest.NewRequest(http.MethodOptions, "/api/all", nil)
	req.Header.Set("Origin", "https://evil.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	resp = httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if got := resp.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Fatalf("expected foreign origin to be refused, got %q", got)
	}
}
