package routes

import (
	"bufio"
	"bytes"
	"compress/gzip"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/address-resolver/app/controllers"
	"github.com/address-resolver/app/models"
	"github.com/address-resolver/app/responses"
	"github.com/address-resolver/app/services"
	"github.com/address-resolver/internal/metrics"
	"github.com/address-resolver/internal/normalizer"
	"github.com/address-resolver/internal/parser"
	"github.com/address-resolver/internal/review"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

const fullAddress = "Số 34 ấp Bình Long, xã Thanh Bình, huyện Chợ Gạo, tỉnh Tiền Giang"

var seedBody = `{
	"version": "2024-01",
	"records": [
		{"code": "82", "name": "Tỉnh Tiền Giang", "districts": [
			{"code": "823", "name": "Huyện Chợ Gạo", "wards": [{"code": "28582", "name": "Xã Thanh Bình"}]}
		]},
		{"code": "01", "name": "Thành phố Hà Nội", "districts": [
			{"code": "001", "name": "Quận Ba Đình", "wards": [
				{"code": "00001", "name": "Phường Phúc Xá"},
				{"code": "00004", "name": "Phường Trúc Bạch"}
			]}
		]}
	]
}`

type testServer struct {
	router  *gin.Engine
	reviews *services.MemoryReviewQueue
}

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestServer(t *testing.T, opts Options) *testServer {
	t.Helper()
	logger := zaptest.NewLogger(t)
	norm := normalizer.New()

	p, err := parser.NewAddressParser(norm, parser.DefaultScoring(), nil, logger)
	require.NoError(t, err)
	m := parser.NewAddressMatcher(parser.DefaultScoring(), logger)
	cache, err := services.NewCacheService(100, time.Hour)
	require.NoError(t, err)

	reg := prometheus.NewRegistry()
	mtr := metrics.New(reg)
	store := services.NewCatalogStore()
	reviews := services.NewMemoryReviewQueue()

	addressService := services.NewAddressService(services.AddressServiceConfig{
		Parser:       p,
		Matcher:      m,
		Catalogs:     store,
		Cache:        cache,
		Reviews:      reviews,
		Suggester:    review.NewSuggester(0.7, 0.3, 3),
		Metrics:      mtr,
		MaxAddresses: 5,
	}, logger)
	adminService := services.NewAdminService(store, nil, nil, cache, norm, mtr, logger)

	opts.Logger = logger
	opts.Metrics = mtr
	router := NewRouter(
		controllers.NewAddressController(addressService, "test", logger),
		controllers.NewAdminController(adminService, reviews, nil, logger),
		opts,
	)
	return &testServer{router: router, reviews: reviews}
}

func (ts *testServer) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)
	return w
}

func (ts *testServer) seed(t *testing.T) {
	t.Helper()
	w := ts.do(t, http.MethodPost, "/v1/admin/seed", seedBody)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func TestHealthAndReadiness(t *testing.T) {
	ts := newTestServer(t, Options{})

	assert.Equal(t, http.StatusOK, ts.do(t, http.MethodGet, "/health", "").Code)
	assert.Equal(t, http.StatusOK, ts.do(t, http.MethodGet, "/live", "").Code)

	w := ts.do(t, http.MethodGet, "/ready", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "not_ready", decode[responses.HealthCheckResponse](t, w).Status)

	ts.seed(t)
	w = ts.do(t, http.MethodGet, "/ready", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, decode[responses.HealthCheckResponse](t, w).CatalogVersion)
}

func TestParseAddress(t *testing.T) {
	ts := newTestServer(t, Options{})

	w := ts.do(t, http.MethodPost, "/v1/addresses/parse", `{"address": "`+fullAddress+`"}`)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, responses.CodeCatalogNotReady, decode[responses.ErrorResponse](t, w).Error)

	ts.seed(t)

	w = ts.do(t, http.MethodPost, "/v1/addresses/parse", `{"address": "`+fullAddress+`"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	resp := decode[responses.ParseAddressResponse](t, w)
	assert.False(t, resp.CacheHit)
	require.NotNil(t, resp.Result.Ward)
	assert.Equal(t, "28582", resp.Result.Ward.Code)
	assert.Equal(t, models.StatusSuccess, resp.Result.Status)
	assert.Empty(t, resp.Result.Candidates)
	assert.Equal(t, resp.GazetteerVersion, resp.Result.GazetteerVersion)

	w = ts.do(t, http.MethodPost, "/v1/addresses/parse",
		`{"address": "`+fullAddress+`", "options": {"return_candidates": true}}`)
	resp = decode[responses.ParseAddressResponse](t, w)
	assert.True(t, resp.CacheHit)
	assert.NotEmpty(t, resp.Result.Candidates)
}

func TestParseAddress_InvalidRequest(t *testing.T) {
	ts := newTestServer(t, Options{})

	req := httptest.NewRequest(http.MethodPost, "/v1/addresses/parse", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-ID", "req-123")
	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "req-123", w.Header().Get("X-Request-ID"))
	errResp := decode[responses.ErrorResponse](t, w)
	assert.Equal(t, responses.CodeInvalidRequest, errResp.Error)
	assert.Equal(t, "req-123", errResp.RequestID)
	assert.NotEmpty(t, errResp.Timestamp)
}

func TestBatchJobEndpoints(t *testing.T) {
	ts := newTestServer(t, Options{})
	ts.seed(t)

	w := ts.do(t, http.MethodPost, "/v1/addresses/jobs",
		`{"addresses": ["`+fullAddress+`", "Hà Nội", "qwerty asdf"]}`)
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())
	created := decode[responses.BatchParseResponse](t, w)
	require.NotEmpty(t, created.JobID)
	assert.Equal(t, 3, created.TotalAddresses)

	base := "/v1/addresses/jobs/" + created.JobID
	require.Eventually(t, func() bool {
		w := ts.do(t, http.MethodGet, base+"/status", "")
		var status services.JobStatus
		if w.Code != http.StatusOK || json.Unmarshal(w.Body.Bytes(), &status) != nil {
			return false
		}
		return status.Status == services.JobDone
	}, 5*time.Second, 10*time.Millisecond)

	w = ts.do(t, http.MethodGet, base+"/results", "")
	require.Equal(t, http.StatusOK, w.Code)
	results := decode[responses.JobResultsResponse](t, w)
	require.Len(t, results.Results, 3)
	assert.Equal(t, 1, results.Summary.Success)
	assert.Equal(t, "Xã Thanh Bình", results.Results[0].WardName)

	w = ts.do(t, http.MethodGet, base+"/results?format=ndjson&gzip=1", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "gzip", w.Header().Get("Content-Encoding"))
	gz, err := gzip.NewReader(bytes.NewReader(w.Body.Bytes()))
	require.NoError(t, err)
	scanner := bufio.NewScanner(gz)
	var lines []models.AddressResult
	for scanner.Scan() {
		var r models.AddressResult
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &r))
		lines = append(lines, r)
	}
	require.Len(t, lines, 3)
	assert.Equal(t, "Hà Nội", lines[1].Raw)

	w = ts.do(t, http.MethodGet, base+"/export?format=csv", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Disposition"), "attachment")
	assert.True(t, strings.HasPrefix(w.Body.String(), "\uFEFF"))

	w = ts.do(t, http.MethodGet, base+"/export?format=pdf", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = ts.do(t, http.MethodDelete, base, "")
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, responses.CodeJobFinished, decode[responses.ErrorResponse](t, w).Error)
}

func TestBatchJob_Errors(t *testing.T) {
	ts := newTestServer(t, Options{})
	ts.seed(t)

	w := ts.do(t, http.MethodGet, "/v1/addresses/jobs/unknown/status", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, responses.CodeJobNotFound, decode[responses.ErrorResponse](t, w).Error)

	w = ts.do(t, http.MethodPost, "/v1/addresses/jobs", `{"addresses": ["a","b","c","d","e","f"]}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, responses.CodeTooManyAddresses, decode[responses.ErrorResponse](t, w).Error)

	w = ts.do(t, http.MethodPost, "/v1/addresses/jobs", `{"addresses": []}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAdminEndpoints(t *testing.T) {
	ts := newTestServer(t, Options{})

	w := ts.do(t, http.MethodPost, "/v1/admin/seed?dry_run=true", seedBody)
	require.Equal(t, http.StatusOK, w.Code)
	dry := decode[responses.SeedCatalogResponse](t, w)
	assert.True(t, dry.DryRun)
	assert.True(t, dry.ValidationPassed)
	assert.Equal(t, 2, dry.Counts["province"])
	assert.Equal(t, http.StatusServiceUnavailable, ts.do(t, http.MethodGet, "/ready", "").Code)

	w = ts.do(t, http.MethodPost, "/v1/admin/seed", `{"records": []}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, responses.CodeSeedError, decode[responses.ErrorResponse](t, w).Error)

	ts.seed(t)

	w = ts.do(t, http.MethodPost, "/v1/admin/cache/invalidate", "")
	assert.Equal(t, http.StatusOK, w.Code)

	w = ts.do(t, http.MethodGet, "/v1/admin/stats", "")
	require.Equal(t, http.StatusOK, w.Code)
	stats := decode[services.SystemStats](t, w)
	assert.Equal(t, 3, stats.CatalogCounts["ward"])

	w = ts.do(t, http.MethodPost, "/v1/admin/indexes/build", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, responses.CodeSearchDisabled, decode[responses.ErrorResponse](t, w).Error)

	w = ts.do(t, http.MethodGet, "/v1/admin-units/search?q=phuc+xa", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	w = ts.do(t, http.MethodPost, "/v1/admin/catalog/reload", "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestReviewEndpoints(t *testing.T) {
	ts := newTestServer(t, Options{})
	ts.seed(t)

	w := ts.do(t, http.MethodPost, "/v1/addresses/parse", `{"address": "xã Phúc Xáa, Hà Nội"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.StatusWarning, decode[responses.ParseAddressResponse](t, w).Result.Status)

	w = ts.do(t, http.MethodGet, "/v1/admin/reviews?status=pending", "")
	require.Equal(t, http.StatusOK, w.Code)
	list := decode[responses.ReviewListResponse](t, w)
	require.Equal(t, int64(1), list.Total)
	id := list.Reviews[0].ID.Hex()
	assert.NotEmpty(t, list.Reviews[0].Suggestions)

	w = ts.do(t, http.MethodPost, "/v1/admin/reviews/"+id+"/approve", `{"selected_code": "00001"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = ts.do(t, http.MethodPost, "/v1/admin/reviews/"+id+"/approve", `{"reviewer_id": "u1", "selected_code": "00001"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	action := decode[responses.ReviewActionResponse](t, w)
	assert.Equal(t, models.ReviewStatusApproved, action.Review.Status)
	assert.Equal(t, "00001", action.Review.SelectedCode)

	w = ts.do(t, http.MethodPost, "/v1/admin/reviews/"+id+"/reject", `{"reviewer_id": "u2"}`)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = ts.do(t, http.MethodPost, "/v1/admin/reviews/missing/reject", `{"reviewer_id": "u2"}`)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, responses.CodeReviewNotFound, decode[responses.ErrorResponse](t, w).Error)
}

func TestRateLimit(t *testing.T) {
	ts := newTestServer(t, Options{RateLimitEnabled: true, RateLimitRPS: 0.001, RateLimitBurst: 1})

	assert.Equal(t, http.StatusNotFound, ts.do(t, http.MethodGet, "/v1/addresses/jobs/x/status", "").Code)

	w := ts.do(t, http.MethodGet, "/v1/addresses/jobs/x/status", "")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, responses.CodeRateLimited, decode[responses.ErrorResponse](t, w).Error)

	assert.Equal(t, http.StatusOK, ts.do(t, http.MethodGet, "/health", "").Code, "health is not rate limited")
}

func TestMetricsAndWebRoutes(t *testing.T) {
	ts := newTestServer(t, Options{Version: "1.2.3"})

	w := ts.do(t, http.MethodGet, "/", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "1.2.3")
	assert.Equal(t, http.StatusOK, ts.do(t, http.MethodGet, "/docs", "").Code)

	w = ts.do(t, http.MethodGet, "/nope", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, responses.CodeNotFound, decode[responses.ErrorResponse](t, w).Error)

	w = ts.do(t, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "address_http_requests_total")
	assert.Contains(t, w.Body.String(), `route="unmatched"`)
}
