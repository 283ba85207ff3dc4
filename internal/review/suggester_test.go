package review

import (
	"testing"

	"github.com/address-resolver/internal/catalog"
	"github.com/address-resolver/internal/parser"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixture(t *testing.T) (*catalog.Catalog, *parser.AddressParser, *parser.AddressMatcher) {
	t.Helper()
	c, diags := catalog.Build([]catalog.Record{
		{
			Code: "82", Name: "Tỉnh Tiền Giang",
			Districts: []catalog.Record{
				{Code: "823", Name: "Huyện Chợ Gạo", Wards: []catalog.Record{{Code: "28582", Name: "Xã Thanh Bình"}}},
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
	})
	require.Empty(t, diags)

	p, err := parser.NewAddressParser(nil, parser.DefaultScoring(), nil, nil)
	require.NoError(t, err)
	return c, p, parser.NewAddressMatcher(parser.DefaultScoring(), nil)
}

func TestSimilarity(t *testing.T) {
	s := NewSuggester(0.7, 0.3, 3)

	assert.Equal(t, 1.0, s.Similarity("phuc xa", "phuc xa"))
	assert.Zero(t, s.Similarity("", "phuc xa"))
	assert.Greater(t, s.Similarity("phuc xaa", "phuc xa"), s.Similarity("phuc xaa", "truc bach"))

	sim := s.Similarity("tien giag", "tien giang")
	assert.Greater(t, sim, 0.8)
	assert.LessOrEqual(t, sim, 1.0)
}

func TestNewSuggester_Defaults(t *testing.T) {
	s := NewSuggester(-1, 0, 0)
	assert.Equal(t, 0.7, s.jwWeight)
	assert.Equal(t, 0.3, s.levWeight)
	assert.Equal(t, 5, s.max)
}

func TestSuggest_ProvinceOnError(t *testing.T) {
	c, p, m := fixture(t)
	parsed := p.Parse("tỉnh Tien Giag")
	res, err := m.Resolve(parsed, c)
	require.NoError(t, err)
	require.Equal(t, parser.StatusError, res.Status)

	got := NewSuggester(0.7, 0.3, 1).Suggest(parsed, res, c)
	require.Len(t, got, 1)
	assert.Equal(t, "82", got[0].Code)
	assert.Equal(t, "province", got[0].Level)
	assert.Equal(t, "Tỉnh Tiền Giang", got[0].Path)
}

func TestSuggest_WardOnWarning(t *testing.T) {
	c, p, m := fixture(t)
	parsed := p.Parse("xã Phúc Xáa, Hà Nội")
	res, err := m.Resolve(parsed, c)
	require.NoError(t, err)
	require.Equal(t, parser.StatusWarning, res.Status)
	require.Equal(t, "01", res.ProvinceCode)

	got := NewSuggester(0.7, 0.3, 5).Suggest(parsed, res, c)
	require.Len(t, got, 2)
	assert.Equal(t, "00001", got[0].Code)
	assert.Equal(t, "Thành phố Hà Nội > Quận Ba Đình > Phường Phúc Xá", got[0].Path)
	assert.GreaterOrEqual(t, got[0].Score, got[1].Score)

	for _, cand := range got {
		assert.Equal(t, "ward", cand.Level)
	}
}

func TestSuggest_NothingOnSuccess(t *testing.T) {
	c, p, m := fixture(t)
	parsed := p.Parse("xã Thanh Bình, huyện Chợ Gạo, tỉnh Tiền Giang")
	res, err := m.Resolve(parsed, c)
	require.NoError(t, err)
	require.Equal(t, parser.StatusSuccess, res.Status)

	assert.Empty(t, NewSuggester(0.7, 0.3, 5).Suggest(parsed, res, c))
	assert.Empty(t, NewSuggester(0.7, 0.3, 5).Suggest(nil, res, c))
}
