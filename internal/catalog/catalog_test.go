package catalog

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func threeLevelRecords() []Record {
	return []Record{
		{
			Code: "82", Name: "Tỉnh Tiền Giang",
			Districts: []Record{
				{
					Code: "823", Name: "Huyện Chợ Gạo",
					Wards: []Record{
						{Code: "28582", Name: "Xã Thanh Bình"},
						{Code: "28585", Name: "Thị trấn Chợ Gạo"},
					},
				},
				{
					Code: "816", Name: "Thị xã Gò Công",
					Wards: []Record{{Code: "28249", Name: "Phường 2"}},
				},
			},
		},
		{Code: "01", Name: "Thành phố Hà Nội"},
	}
}

func TestBuild_NestedThreeLevel(t *testing.T) {
	c, diags := Build(threeLevelRecords())
	require.Empty(t, diags)
	require.True(t, c.Ready())

	assert.Equal(t, 7, c.Len())
	assert.Equal(t, map[Level]int{LevelProvince: 2, LevelDistrict: 2, LevelWard: 3}, c.Counts())

	ward, ok := c.Get("28582")
	require.True(t, ok)
	assert.Equal(t, LevelWard, ward.Level)
	assert.Equal(t, "823", ward.ParentCode)
	assert.Equal(t, "xa thanh binh", ward.NameNormalized)
	assert.Equal(t, "thanh binh", ward.CoreName)

	province := c.ProvinceOf(ward)
	require.NotNil(t, province)
	assert.Equal(t, "82", province.Code)
	assert.Equal(t, "tien giang", province.CoreName)

	district := c.DistrictOf(ward)
	require.NotNil(t, district)
	assert.Equal(t, "823", district.Code)
	assert.Equal(t, "cho gao", district.CoreName)

	assert.Len(t, c.WardsOf("82"), 3)
	assert.Len(t, c.Children("82", LevelDistrict), 2)
	assert.Len(t, c.Children("823", LevelWard), 2)
	assert.Empty(t, c.Children("82", LevelWard))

	path := c.Path(ward)
	require.Len(t, path, 3)
	assert.Equal(t, []string{"82", "823", "28582"}, []string{path[0].Code, path[1].Code, path[2].Code})

	hn, _ := c.Get("01")
	assert.Equal(t, "thanh pho ha noi", hn.NameNormalized)
	assert.Equal(t, "ha noi", hn.CoreName)
}

func TestBuild_TwoLevelNested(t *testing.T) {
	records := []Record{
		{
			Code: "79", Name: "Thành phố Hồ Chí Minh",
			Wards: []Record{
				{Code: "26734", Name: "Phường Sài Gòn"},
				{Code: "26737", Name: "Phường Bến Thành"},
			},
		},
	}
	c, diags := Build(records)
	require.Empty(t, diags)

	ward, ok := c.Get("26737")
	require.True(t, ok)
	assert.Equal(t, "79", ward.ParentCode)
	assert.Nil(t, c.DistrictOf(ward))
	assert.Equal(t, "79", c.ProvinceOf(ward).Code)
	assert.Len(t, c.WardsOf("79"), 2)
	// alias của normalizer áp dụng cả cho tên đơn vị
	sg, _ := c.Get("26734")
	assert.Equal(t, "phuong ho chi minh", sg.NameNormalized)
}

func TestBuild_FlatRecordsInferLevels(t *testing.T) {
	raw := `[
		{"code": 1, "name": "Thành phố Hà Nội"},
		{"code": "001", "name": "Quận Ba Đình", "parent_code": 1},
		{"code": "00001", "name": "Phường Phúc Xá", "parent_code": "001"},
		{"code": "00004", "name": "Phường Trúc Bạch", "parent_code": "001"},
		{"code": 2, "name": "Tỉnh Hà Giang"},
		{"code": "00688", "name": "Xã Lũng Cú", "parent_code": 2}
	]`
	var records []Record
	require.NoError(t, json.Unmarshal([]byte(raw), &records))

	c, diags := Build(records)
	require.Empty(t, diags)

	district, ok := c.Get("001")
	require.True(t, ok)
	assert.Equal(t, LevelDistrict, district.Level)
	assert.Equal(t, "1", district.ParentCode)

	ward, _ := c.Get("00688")
	assert.Equal(t, LevelWard, ward.Level)
	assert.Nil(t, c.DistrictOf(ward))
	assert.Equal(t, "2", c.ProvinceOf(ward).Code)
}

func TestBuild_SkipsBadRecords(t *testing.T) {
	records := []Record{
		{Code: "82", Name: "Tỉnh Tiền Giang"},
		{Code: "", Name: "Không mã"},
		{Code: "99", Name: "   "},
		{Code: "98", Name: "!!!"},
		{Code: "82", Name: "Tỉnh Trùng Mã"},
		{Code: "700", Name: "Huyện Mồ Côi", ParentCode: "404", Level: LevelDistrict},
		{Code: "701", Name: "Xã Mồ Côi", ParentCode: "700", Level: LevelWard},
		{Code: "28582", Name: "Xã Thanh Bình", ParentCode: "82", Level: LevelWard},
	}

	c, diags := Build(records)
	require.Len(t, diags, 6)

	reasons := map[DiagnosticReason]int{}
	for _, d := range diags {
		reasons[d.Reason]++
	}
	assert.Equal(t, 3, reasons[MalformedRecord])
	assert.Equal(t, 1, reasons[DuplicateCode])
	assert.Equal(t, 2, reasons[OrphanRecord])

	assert.Equal(t, 2, c.Len())
	p, _ := c.Get("82")
	assert.Equal(t, "Tỉnh Tiền Giang", p.Name)
	assert.Len(t, c.WardsOf("82"), 1)
}

func TestBuild_EmptyIsNotReady(t *testing.T) {
	c, diags := Build(nil)
	assert.Empty(t, diags)
	assert.False(t, c.Ready())

	var nilCatalog *Catalog
	assert.False(t, nilCatalog.Ready())
	assert.Nil(t, nilCatalog.Provinces())
	assert.Equal(t, 0, nilCatalog.Len())
	_, ok := nilCatalog.Get("1")
	assert.False(t, ok)
}

func TestBuild_VersionTracksContent(t *testing.T) {
	a, _ := Build(threeLevelRecords())
	b, _ := Build(threeLevelRecords())
	assert.Equal(t, a.Version(), b.Version())
	assert.Len(t, a.Version(), 16)

	changed := threeLevelRecords()
	changed[1].Name = "Hà Nội"
	c, _ := Build(changed)
	assert.NotEqual(t, a.Version(), c.Version())
}

func TestBuild_ProvincesKeepInputOrder(t *testing.T) {
	c, _ := Build(threeLevelRecords())
	provinces := c.Provinces()
	require.Len(t, provinces, 2)
	assert.Equal(t, "82", provinces[0].Code)
	assert.Equal(t, "01", provinces[1].Code)
}

func TestDecodeRecords(t *testing.T) {
	t.Run("tables", func(t *testing.T) {
		raw := "\xef\xbb\xbf" + `{
			"provinces": [{"code": "82", "name": "Tỉnh Tiền Giang"}],
			"districts": [{"code": "823", "name": "Huyện Chợ Gạo", "parent_code": "82"}],
			"wards": [{"code": 28582, "name": "Xã Thanh Bình", "parent_code": 823}]
		}`
		records, err := DecodeRecords(strings.NewReader(raw))
		require.NoError(t, err)
		require.Len(t, records, 3)
		assert.Equal(t, LevelWard, records[2].Level)
		assert.Equal(t, Code("28582"), records[2].Code)

		c, diags := Build(records)
		require.Empty(t, diags)
		assert.Len(t, c.WardsOf("82"), 1)
	})

	t.Run("array", func(t *testing.T) {
		records, err := DecodeRecords(strings.NewReader(`[{"code":"01","name":"Hà Nội","level":"province"}]`))
		require.NoError(t, err)
		require.Len(t, records, 1)
		assert.Equal(t, LevelProvince, records[0].Level)
	})

	t.Run("empty", func(t *testing.T) {
		_, err := DecodeRecords(strings.NewReader("  "))
		assert.Error(t, err)
	})

	t.Run("bad level", func(t *testing.T) {
		_, err := DecodeRecords(strings.NewReader(`[{"code":"01","name":"x","level":"country"}]`))
		assert.Error(t, err)
	})
}

func TestLevelJSON(t *testing.T) {
	var l Level
	require.NoError(t, json.Unmarshal([]byte(`2`), &l))
	assert.Equal(t, LevelDistrict, l)
	require.NoError(t, json.Unmarshal([]byte(`"ward"`), &l))
	assert.Equal(t, LevelWard, l)

	b, err := json.Marshal(LevelProvince)
	require.NoError(t, err)
	assert.Equal(t, `"province"`, string(b))
}
