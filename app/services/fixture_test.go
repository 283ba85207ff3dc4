package services

import (
	"context"
	"sync"
	"testing"

	"github.com/address-resolver/app/models"
	"github.com/address-resolver/internal/catalog"
	"github.com/address-resolver/internal/parser"
	"github.com/address-resolver/internal/resolver"
	"github.com/address-resolver/internal/review"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func testRecords() []catalog.Record {
	return []catalog.Record{
		{
			Code: "82", Name: "Tỉnh Tiền Giang",
			Districts: []catalog.Record{
				{Code: "823", Name: "Huyện Chợ Gạo", Wards: []catalog.Record{
					{Code: "28582", Name: "Xã Thanh Bình"},
					{Code: "28585", Name: "Thị trấn Chợ Gạo"},
				}},
			},
		},
		{
			Code: "01", Name: "Thành phố Hà Nội",
			Districts: []catalog.Record{
				{Code: "001", Name: "Quận Ba Đình", Wards: []catalog.Record{
					{Code: "00001", Name: "Phường Phúc Xá"},
					{Code: "00004", Name: "Phường Trúc Bạch"},
				}},
			},
		},
		{
			Code: "79", Name: "Thành phố Hồ Chí Minh",
			Wards: []catalog.Record{{Code: "26740", Name: "Phường Bến Thành"}},
		},
	}
}

func testCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	c, diags := catalog.Build(testRecords())
	require.Empty(t, diags)
	return c
}

type testEnv struct {
	store   *CatalogStore
	cache   *CacheService
	reviews *MemoryReviewQueue
	service *AddressService
}

func newTestEnv(t *testing.T, loaded bool) *testEnv {
	t.Helper()
	logger := zaptest.NewLogger(t)

	p, err := parser.NewAddressParser(nil, parser.DefaultScoring(), nil, logger)
	require.NoError(t, err)
	m := parser.NewAddressMatcher(parser.DefaultScoring(), logger)

	cache, err := NewCacheService(100, 0)
	require.NoError(t, err)

	env := &testEnv{
		store:   NewCatalogStore(),
		cache:   cache,
		reviews: NewMemoryReviewQueue(),
	}
	if loaded {
		env.store.Store(testCatalog(t))
	}
	env.service = NewAddressService(AddressServiceConfig{
		Parser:       p,
		Matcher:      m,
		Batch:        resolver.NewBatchResolver(p, m, 4, logger),
		Catalogs:     env.store,
		Cache:        cache,
		Reviews:      env.reviews,
		Suggester:    review.NewSuggester(0.7, 0.3, 3),
		MaxAddresses: 10,
	}, logger)
	return env
}

// fakeUnitStore giữ admin_units trong bộ nhớ
type fakeUnitStore struct {
	mu    sync.Mutex
	units []models.AdminUnit
	err   error
}

func (f *fakeUnitStore) Replace(_ context.Context, units []models.AdminUnit) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.units = append([]models.AdminUnit(nil), units...)
	return nil
}

func (f *fakeUnitStore) LoadAll(context.Context) ([]models.AdminUnit, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.AdminUnit(nil), f.units...), f.err
}

func (f *fakeUnitStore) CollectionCounts(context.Context) (map[string]int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return map[string]int64{"admin_units": int64(len(f.units))}, nil
}

type fakeIndexer struct {
	aliases map[string]string
	indexed int
}

func (f *fakeIndexer) BuildIndexes(aliases map[string]string) error {
	f.aliases = aliases
	return nil
}

func (f *fakeIndexer) IndexCatalog(cat *catalog.Catalog) (int, error) {
	f.indexed = cat.Len()
	return f.indexed, nil
}
