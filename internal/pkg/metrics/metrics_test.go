package metrics

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scrape(t *testing.T, p *Provider) string {
	t.Helper()

	rec := httptest.NewRecorder()
	p.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	return string(body)
}

func TestBusinessMetrics_Exported(t *testing.T) {
	p, err := NewProvider()
	require.NoError(t, err)
	t.Cleanup(func() { _ = p.Shutdown(context.Background()) })

	bm, err := NewBusinessMetrics(p.MeterProvider(), "roomtoken")
	require.NoError(t, err)

	ctx := context.Background()
	bm.RecordOperation(ctx, "issue", "success")
	bm.RecordOperation(ctx, "validate", "expired")
	bm.RecordDuration(ctx, "issue", 3*time.Millisecond, "success")

	out := scrape(t, p)
	assert.Contains(t, out, "roomtoken_token_operations")
	assert.Contains(t, out, `outcome="expired"`)
	assert.Contains(t, out, "roomtoken_token_operation_duration_seconds")
}

func TestHTTPMiddleware_UsesRoutePattern(t *testing.T) {
	p, err := NewProvider()
	require.NoError(t, err)
	t.Cleanup(func() { _ = p.Shutdown(context.Background()) })

	r := chi.NewRouter()
	r.Use(HTTPMiddleware(p.MeterProvider(), "roomtoken"))
	r.Post("/token", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	})

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/token", nil))

	out := scrape(t, p)
	assert.Contains(t, out, "roomtoken_http_requests")
	assert.Contains(t, out, `path="/token"`)
	assert.Contains(t, out, `status_code="400"`)
}

func TestNoopBusinessMetrics(t *testing.T) {
	bm := NewNoopBusinessMetrics()
	require.NotNil(t, bm)

	assert.NotPanics(t, func() {
		bm.RecordOperation(context.Background(), "issue", "success")
		bm.RecordDuration(context.Background(), "issue", time.Second, "success")
	})
}
