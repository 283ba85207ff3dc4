package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/address-resolver/app/responses"
	"github.com/address-resolver/app/services"
	"github.com/address-resolver/internal/catalog"
	"github.com/address-resolver/internal/search"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSearcher struct {
	query    string
	level    catalog.Level
	parentID string
	limit    int
	hits     []search.Hit
	err      error
}

func (f *fakeSearcher) Search(_ context.Context, query string, level catalog.Level, parentID string, limit int) ([]search.Hit, error) {
	f.query, f.level, f.parentID, f.limit = query, level, parentID, limit
	return f.hits, f.err
}

func searchRouter(s UnitSearcher) *gin.Engine {
	gin.SetMode(gin.TestMode)
	ac := NewAdminController(services.NewAdminService(services.NewCatalogStore(), nil, nil, nil, nil, nil, nil), nil, s, nil)
	r := gin.New()
	r.GET("/search", ac.SearchUnits)
	return r
}

func get(r *gin.Engine, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

func TestSearchUnits(t *testing.T) {
	fs := &fakeSearcher{hits: []search.Hit{{
		AdminID:  "26740",
		Name:     "Phường Bến Thành",
		Level:    catalog.LevelWard,
		ParentID: "79",
		Path:     []string{"Thành phố Hồ Chí Minh", "Phường Bến Thành"},
		Score:    0.97,
	}}}
	w := get(searchRouter(fs), "/search?q=ben+thanh&level=ward&parent_id=79&limit=5")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	assert.Equal(t, "ben thanh", fs.query)
	assert.Equal(t, catalog.LevelWard, fs.level)
	assert.Equal(t, "79", fs.parentID)
	assert.Equal(t, 5, fs.limit)

	var resp responses.SearchResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Equal(t, 1, resp.Total)
	assert.Equal(t, "26740", resp.Hits[0].Code)
	assert.Equal(t, "ward", resp.Hits[0].Level)
}

func TestSearchUnits_Errors(t *testing.T) {
	tests := []struct {
		name     string
		searcher UnitSearcher
		path     string
		status   int
		code     string
	}{
		{"disabled", nil, "/search?q=x", http.StatusServiceUnavailable, responses.CodeSearchDisabled},
		{"bad level", &fakeSearcher{}, "/search?q=x&level=country", http.StatusBadRequest, responses.CodeInvalidRequest},
		{"empty query", &fakeSearcher{err: search.ErrEmptyQuery}, "/search", http.StatusBadRequest, responses.CodeInvalidRequest},
		{"backend", &fakeSearcher{err: errors.New("meili down")}, "/search?q=x", http.StatusBadGateway, responses.CodeSearchError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := get(searchRouter(tt.searcher), tt.path)
			assert.Equal(t, tt.status, w.Code)

			var resp responses.ErrorResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, tt.code, resp.Error)
		})
	}
}

func TestErrorStatus(t *testing.T) {
	status, code := errorStatus(services.ErrCatalogNotReady)
	assert.Equal(t, http.StatusServiceUnavailable, status)
	assert.Equal(t, responses.CodeCatalogNotReady, code)

	status, code = errorStatus(errors.New("boom"))
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, responses.CodeInternalError, code)
}
