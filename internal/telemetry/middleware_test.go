package telemetry

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
)

func scrape(t *testing.T) string {
	t.Helper()
	rr := httptest.NewRecorder()
	Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("unexpected metrics status %d", rr.Code)
	}
	return rr.Body.String()
}

func TestMetricsMiddlewareLabelsByRoutePattern(t *testing.T) {
	r := chi.NewRouter()
	r.Use(MetricsMiddleware)
	r.Get("/api/v1/settings/{key}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/settings/zoom_level", nil)
	r.ServeHTTP(httptest.NewRecorder(), req)

	want := `classboard_api_requests_total{method="GET",route="/api/v1/settings/{key}",status="418"} 1`
	if !strings.Contains(scrape(t), want) {
		t.Fatalf("expected %s in exposition", want)
	}
}

func TestMetricsMiddlewareDefaultsStatusToOK(t *testing.T) {
	h := MetricsMiddleware(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodDelete, "/nowhere", nil))

	want := `classboard_api_requests_total{method="DELETE",route="unmatched",status="200"} 1`
	if !strings.Contains(scrape(t), want) {
		t.Fatalf("expected %s in exposition", want)
	}
}

func TestStatusRecorderHijackUnsupported(t *testing.T) {
	rec := &statusRecorder{ResponseWriter: httptest.NewRecorder()}
	if _, _, err := rec.Hijack(); err == nil {
		t.Fatal("expected hijack error for recorder without hijacker support")
	}
}

func TestHandlerServesExposition(t *testing.T) {
	LessonProgress.Set(0.5)

	if !strings.Contains(scrape(t), "classboard_lesson_progress_ratio 0.5") {
		t.Fatal("expected lesson progress gauge in exposition")
	}
}
