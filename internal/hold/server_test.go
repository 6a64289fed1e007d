package hold

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestServer_MetricsHandlerMounted(t *testing.T) {
	metrics := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("jobplane_hold_test 1\n"))
	})

	s, err := NewServer(NewMap(), 0, WithMetricsHandler(metrics))
	if err != nil {
		t.Fatalf("NewServer failed: %v", err)
	}
	defer s.listener.Close()

	rr := httptest.NewRecorder()
	s.httpServer.Handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if rr.Body.String() != "jobplane_hold_test 1\n" {
		t.Errorf("unexpected body: %q", rr.Body.String())
	}
}

func TestServer_NoMetricsHandlerMeans404(t *testing.T) {
	s, err := NewServer(NewMap(), 0)
	if err != nil {
		t.Fatalf("NewServer failed: %v", err)
	}
	defer s.listener.Close()

	rr := httptest.NewRecorder()
	s.httpServer.Handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rr.Code != http.StatusNotFound {
		t.Errorf("expected 404 when no metrics handler is configured, got %d", rr.Code)
	}
}
