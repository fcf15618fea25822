package health

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
)

type stubMongoChecker struct {
	err error
}

func (s stubMongoChecker) Ping(context.Context) error {
	return s.err
}

func TestHealthHandlerOK(t *testing.T) {
	logger, _ := logtest.NewNullLogger()
	server := NewServer(0, stubMongoChecker{err: nil}, logrus.NewEntry(logger))

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rr := httptest.NewRecorder()

	server.server.Handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected HTTP 200, got %d", rr.Code)
	}

	body := strings.TrimSpace(rr.Body.String())
	if body != `{"status":"ok"}` {
		t.Fatalf("unexpected body: %s", body)
	}

	if ct := rr.Header().Get("Content-Type"); ct != "application/json" {
		t.Fatalf("expected content-type application/json, got %s", ct)
	}
}

func TestHealthHandlerMongoError(t *testing.T) {
	logger, _ := logtest.NewNullLogger()
	server := NewServer(0, stubMongoChecker{err: errors.New("mongo down")}, logrus.NewEntry(logger))

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rr := httptest.NewRecorder()

	server.server.Handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected HTTP 200, got %d", rr.Code)
	}

	body := strings.TrimSpace(rr.Body.String())
	if body != `{"status":"degraded","mongo":"error"}` {
		t.Fatalf("unexpected body: %s", body)
	}
}

func TestHealthHandlerMissingMongoChecker(t *testing.T) {
	logger, _ := logtest.NewNullLogger()
	server := NewServer(0, nil, logrus.NewEntry(logger))

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rr := httptest.NewRecorder()

	server.server.Handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected HTTP 200, got %d", rr.Code)
	}

	body := strings.TrimSpace(rr.Body.String())
	if body != `{"status":"degraded","mongo":"error"}` {
		t.Fatalf("unexpected body: %s", body)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	logger, _ := logtest.NewNullLogger()
	server := NewServer(0, stubMongoChecker{}, logrus.NewEntry(logger))

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rr := httptest.NewRecorder()

	server.server.Handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected HTTP 200, got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "go_goroutines") {
		t.Fatalf("expected prometheus exposition, got %s", rr.Body.String())
	}
}

func TestWithHandlerMountsWebhook(t *testing.T) {
	logger, _ := logtest.NewNullLogger()
	var called bool
	webhook := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		called = true
		w.WriteHeader(http.StatusOK)
	})
	server := NewServer(0, stubMongoChecker{}, logrus.NewEntry(logger), WithHandler(WebhookPath, webhook))

	req := httptest.NewRequest(http.MethodPost, WebhookPath, strings.NewReader("{}"))
	rr := httptest.NewRecorder()

	server.server.Handler.ServeHTTP(rr, req)

	if !called || rr.Code != http.StatusOK {
		t.Fatalf("expected webhook handler to be called, got code %d", rr.Code)
	}

	empty := NewServer(0, stubMongoChecker{}, logrus.NewEntry(logger), WithHandler(WebhookPath, nil))
	rr = httptest.NewRecorder()
	empty.server.Handler.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, WebhookPath, nil))
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected nil handler to be skipped, got %d", rr.Code)
	}
}

func TestWithHandlerMountsSubtree(t *testing.T) {
	logger, _ := logtest.NewNullLogger()
	var paths []string
	api := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		w.WriteHeader(http.StatusOK)
	})
	server := NewServer(0, stubMongoChecker{}, logrus.NewEntry(logger), WithHandler("/api/", api))

	for _, target := range []string{"/api/locations", "/api/times/7"} {
		rr := httptest.NewRecorder()
		server.server.Handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, target, nil))
		if rr.Code != http.StatusOK {
			t.Fatalf("%s: expected 200, got %d", target, rr.Code)
		}
	}
	if strings.Join(paths, ",") != "/api/locations,/api/times/7" {
		t.Fatalf("expected full paths to reach the mounted handler, got %v", paths)
	}

	rr := httptest.NewRecorder()
	server.server.Handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rr.Code != http.StatusOK || len(paths) != 2 {
		t.Fatalf("expected /healthz to stay on the health handler")
	}
}

func TestShutdownNilServer(t *testing.T) {
	var server *Server
	if err := server.Shutdown(context.Background()); err != nil {
		t.Fatalf("expected nil server shutdown to be a no-op, got %v", err)
	}
}
