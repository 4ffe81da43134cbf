package observability

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
)

func scrape(t *testing.T, metrics *Metrics) string {
	t.Helper()
	rr := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d", rr.Code)
	}
	return rr.Body.String()
}

func TestMetricsHandlerExposesSessionClients(t *testing.T) {
	metrics := NewMetrics(func() int { return 3 })

	body := scrape(t, metrics)
	if !strings.Contains(body, "slooze_session_clients 3") {
		t.Fatalf("expected client gauge, got: %s", body)
	}
}

func TestMetricsMiddlewareRecordsRequest(t *testing.T) {
	metrics := NewMetrics(nil)

	handler := metrics.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	routeCtx := chi.NewRouteContext()
	routeCtx.RoutePatterns = append(routeCtx.RoutePatterns, "/test")

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	ctx := context.WithValue(req.Context(), chi.RouteCtxKey, routeCtx)
	req = req.WithContext(ctx)

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusTeapot {
		t.Fatalf("expected status %d, got %d", http.StatusTeapot, rr.Code)
	}

	metricsBody := scrape(t, metrics)
	if !strings.Contains(metricsBody, "slooze_http_requests_total{code=\"418\",route=\"/test\"} 1") {
		t.Fatalf("expected metrics to record request, got: %s", metricsBody)
	}
	if !strings.Contains(metricsBody, "slooze_http_request_duration_seconds_bucket{route=\"/test\"") {
		t.Fatalf("expected duration histogram to be present, got: %s", metricsBody)
	}
}

func TestObserveAPICall(t *testing.T) {
	metrics := NewMetrics(nil)

	metrics.ObserveAPICall("/orders/{id}/checkout", http.StatusOK, 20*time.Millisecond)
	metrics.ObserveAPICall("/orders/{id}/checkout", http.StatusOK, 30*time.Millisecond)
	metrics.ObserveAPICall("/me", 0, time.Millisecond)

	body := scrape(t, metrics)
	if !strings.Contains(body, "slooze_api_calls_total{code=\"200\",endpoint=\"/orders/{id}/checkout\"} 2") {
		t.Fatalf("expected checkout calls, got: %s", body)
	}
	if !strings.Contains(body, "slooze_api_calls_total{code=\"error\",endpoint=\"/me\"} 1") {
		t.Fatalf("expected transport failure, got: %s", body)
	}
}

func TestNilMetricsIsSafe(t *testing.T) {
	var metrics *Metrics
	metrics.ObserveAPICall("/me", http.StatusOK, time.Millisecond)

	rr := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rr.Code)
	}
}
