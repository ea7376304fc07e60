package httpapi

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"mediagen/internal/adapter/repo"
	"mediagen/internal/http/handlers"
	"mediagen/internal/infra"
)

func TestRouterMountsRoutes(t *testing.T) {
	cfg := &infra.Config{RateLimitPerMin: 1, CORSAllowedOrigins: []string{"*"}}
	logger := infra.NewNopLogger()
	app := handlers.NewApp(cfg, logger, repo.NewMemoryJobRepository(), nil, nil)
	h := NewRouter(app, cfg, logger)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/healthz", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("healthz status = %d", rec.Code)
	}

	body := []byte(`{"userId":"u","modelId":"kling-v2.0","width":1,"height":1,"duration":5,"imageUrl":"https://x/y.png"}`)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/generate-video", bytes.NewReader(body)))
	if rec.Code != http.StatusOK {
		t.Fatalf("generate-video status = %d body=%s", rec.Code, rec.Body.String())
	}
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/generate-video", bytes.NewReader(body)))
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("second generate-video status = %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/artifacts/video-results/x.mp4", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("artifacts without filesystem store status = %d", rec.Code)
	}
}
