package trialbalance

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ledgerloom/ledgerloom/internal/observability"
)

func newTestRouter(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Route("/works", h.MountRoutes)
	return r
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func postUpload(t *testing.T, router http.Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/works/100/units/1/trial-balance", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func TestHandleUploadRecordsMetricOutcomes(t *testing.T) {
	repo := newFakeRepo()
	repo.units[1] = 100
	metrics := observability.NewMetrics()
	h := NewHandler(testLogger(), newTestService(repo), metrics, 0)
	router := newTestRouter(h)

	rr := postUpload(t, router, `{"rows":[{"account_name":"Cash","debit":500}]}`)
	require.Equal(t, http.StatusCreated, rr.Code)

	// Unknown unit rejects the upload and must land in the error series.
	rr = postUpload(t, router, `{"rows":[{"account_name":"Cash","debit":500}]}`)
	require.Equal(t, http.StatusCreated, rr.Code)
	req := httptest.NewRequest(http.MethodPost, "/works/100/units/9/trial-balance", strings.NewReader(`{"rows":[{"account_name":"Cash","debit":1}]}`))
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	require.Equal(t, http.StatusNotFound, rr.Code)

	metricsRR := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(metricsRR, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := metricsRR.Body.String()
	assert.Contains(t, body, `ledgerloom_trial_balance_uploads_total{outcome="success"} 2`)
	assert.Contains(t, body, `ledgerloom_trial_balance_uploads_total{outcome="error"} 1`)
}

func TestHandleUploadRateLimitFromConfig(t *testing.T) {
	repo := newFakeRepo()
	repo.units[1] = 100
	h := NewHandler(testLogger(), newTestService(repo), nil, 1)
	router := newTestRouter(h)

	rr := postUpload(t, router, `{"rows":[{"account_name":"Cash","debit":500}]}`)
	require.Equal(t, http.StatusCreated, rr.Code)

	rr = postUpload(t, router, `{"rows":[{"account_name":"Cash","debit":500}]}`)
	assert.Equal(t, http.StatusTooManyRequests, rr.Code)
}

func TestHandleUploadNilMetricsSafe(t *testing.T) {
	repo := newFakeRepo()
	repo.units[1] = 100
	h := NewHandler(testLogger(), newTestService(repo), nil, 0)
	router := newTestRouter(h)

	rr := postUpload(t, router, `{"rows":[{"account_name":"Cash","debit":500}]}`)
	assert.Equal(t, http.StatusCreated, rr.Code)
}
