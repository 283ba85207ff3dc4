package parser

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestParser(t *testing.T) *AddressParser {
	t.Helper()
	p, err := NewAddressParser(nil, DefaultScoring(), nil, nil)
	require.NoError(t, err)
	return p
}

func TestParse_EmptyInput(t *testing.T) {
	p := newTestParser(t)
	for _, raw := range []string{"", "   ", "!!! ,,, ???"} {
		got := p.Parse(raw)
		assert.Equal(t, raw, got.Original)
		assert.Empty(t, got.Normalized)
		assert.Empty(t, got.Province)
		assert.Empty(t, got.District)
		assert.Empty(t, got.Ward)
		assert.Empty(t, got.Hamlet)
		assert.Empty(t, got.Street)
		assert.Zero(t, got.Confidence)
	}
}

func TestParse_KeywordFragments(t *testing.T) {
	p := newTestParser(t)
	got := p.Parse("Số 34 ấp Bình Long, xã Thanh Bình, huyện Chợ Gạo, tỉnh Tiền Giang")

	assert.Equal(t, "so 34 ap binh long xa thanh binh huyen cho gao tinh tien giang", got.Normalized)
	assert.Equal(t, "tien giang", got.Province)
	assert.Equal(t, "cho gao", got.District)
	assert.Equal(t, "thanh binh", got.Ward)
	assert.Equal(t, "binh long", got.Hamlet)
	assert.Equal(t, "so 34", got.Street)
	assert.Empty(t, got.Pattern)
	assert.InDelta(t, 0.9, got.Confidence, 1e-9)
}

func TestParse_AbbreviatedCityAddress(t *testing.T) {
	p := newTestParser(t)
	got := p.Parse("123 Lê Lợi, P. Bến Thành, Q.1, TP.HCM")

	assert.Equal(t, "ho chi minh", got.Province)
	assert.Equal(t, "1", got.District)
	assert.Equal(t, "ben thanh", got.Ward)
	assert.Equal(t, "123 le loi", got.Street)
	assert.InDelta(t, 0.8, got.Confidence, 1e-9)
}

func TestParse_PositionalFragments(t *testing.T) {
	p := newTestParser(t)

	got := p.Parse("12 Nguyễn Trãi, Bến Thành, Quận 1, Hồ Chí Minh")
	assert.Equal(t, "ho chi minh", got.Province)
	assert.Equal(t, "1", got.District)
	assert.Equal(t, "ben thanh", got.Ward)
	assert.Equal(t, "12 nguyen trai", got.Street)
	assert.InDelta(t, 0.7, got.Confidence, 1e-9)

	got = p.Parse("Phường 2, Thị xã Gò Công, Tiền Giang")
	assert.Equal(t, "tien giang", got.Province)
	assert.Equal(t, "go cong", got.District)
	assert.Equal(t, "2", got.Ward)
	assert.InDelta(t, 0.75, got.Confidence, 1e-9)
}

func TestParse_PositionalNeedsThreeFragments(t *testing.T) {
	p := newTestParser(t)
	got := p.Parse("Bến Thành, Hồ Chí Minh")

	assert.Empty(t, got.Province)
	assert.Empty(t, got.Ward)
	assert.Equal(t, "ben thanh ho chi minh", got.Hamlet)
	assert.InDelta(t, 0.5, got.Confidence, 1e-9)
}

func TestParse_SingleFragmentIsStreet(t *testing.T) {
	p := newTestParser(t)
	got := p.Parse("Hà Nội")

	assert.Equal(t, "ha noi", got.Normalized)
	assert.Equal(t, "ha noi", got.Street)
	assert.Empty(t, got.Province)
	assert.Empty(t, got.District)
	assert.Empty(t, got.Ward)
	assert.Empty(t, got.Pattern)
	assert.InDelta(t, 0.5, got.Confidence, 1e-9)
}

func TestParse_PatternFallback(t *testing.T) {
	p := newTestParser(t)

	t.Run("full word order without commas", func(t *testing.T) {
		got := p.Parse("ấp Bình Long xã Thanh Bình huyện Chợ Gạo tỉnh Tiền Giang")
		assert.Equal(t, "hamlet_ward_district_province", got.Pattern)
		assert.Equal(t, "tien giang", got.Province)
		assert.Equal(t, "cho gao", got.District)
		assert.Equal(t, "thanh binh", got.Ward)
		assert.Equal(t, "binh long", got.Hamlet)
		assert.InDelta(t, 0.8, got.Confidence, 1e-9)
	})

	t.Run("lead becomes street", func(t *testing.T) {
		got := p.Parse("số 5 ấp Bình Long xã Thanh Bình huyện Chợ Gạo tỉnh Tiền Giang")
		assert.Equal(t, "hamlet_ward_district_province", got.Pattern)
		assert.Equal(t, "so 5", got.Street)
	})

	t.Run("truncated order", func(t *testing.T) {
		got := p.Parse("xã Thanh Bình huyện Chợ Gạo tỉnh Tiền Giang")
		assert.Equal(t, "ward_district_province", got.Pattern)
		assert.Equal(t, "thanh binh", got.Ward)
		assert.Equal(t, "cho gao", got.District)
	})

	t.Run("unmarked tail is province", func(t *testing.T) {
		got := p.Parse("phường 5 quận 3, Hồ Chí Minh")
		assert.Equal(t, "ward_district_tail", got.Pattern)
		assert.Equal(t, "5", got.Ward)
		assert.Equal(t, "3", got.District)
		assert.Equal(t, "ho chi minh", got.Province)
	})

	t.Run("no pattern when every level is filled", func(t *testing.T) {
		got := p.Parse("xã Thanh Bình, huyện Chợ Gạo, tỉnh Tiền Giang")
		assert.Empty(t, got.Pattern)
	})
}

func TestParse_ConfidenceStaysInRange(t *testing.T) {
	p := newTestParser(t)
	inputs := []string{
		"ấp 1, ấp 2, ấp 3, xã A, xã B, huyện C, huyện D, tỉnh E, tỉnh F, thành phố G",
		"qwerty asdf",
		"P.2, Q.10, TP.HCM",
		strings.Repeat("phường 1, ", 30),
	}
	for _, raw := range inputs {
		got := p.Parse(raw)
		assert.GreaterOrEqual(t, got.Confidence, 0.0, raw)
		assert.LessOrEqual(t, got.Confidence, 1.0, raw)
	}
}

func TestParse_LastAdminFragmentWins(t *testing.T) {
	p := newTestParser(t)
	got := p.Parse("tỉnh Long An, tỉnh Tiền Giang")
	assert.Equal(t, "tien giang", got.Province)
}

func TestNewAddressParser_CustomPatterns(t *testing.T) {
	custom := []PatternDescriptor{{
		Name: "hamlet_ward_tail",
		Slots: []SlotDescriptor{
			{Level: "hamlet", Markers: []string{"thon"}},
			{Level: "ward", Markers: []string{"xa"}},
		},
		Tail: "province",
	}}
	p, err := NewAddressParser(nil, DefaultScoring(), custom, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"hamlet_ward_tail"}, p.PatternNames())

	got := p.Parse("thôn Đông, xã Tây Yên Bái")
	assert.Equal(t, "hamlet_ward_tail", got.Pattern)
	assert.Equal(t, "dong", got.Hamlet)
	assert.Equal(t, "tay yen bai", got.Ward)
	assert.Equal(t, "yen bai", got.Province)
	assert.InDelta(t, 0.8, got.Confidence, 1e-9)

	_, err = NewAddressParser(nil, DefaultScoring(), []PatternDescriptor{{Name: "empty"}}, nil)
	assert.Error(t, err)
}

func TestFindMarker(t *testing.T) {
	tests := []struct {
		name     string
		words    string
		markers  [][]string
		wantPos  int
		wantSize int
	}{
		{"leftmost wins", "to 5 khu pho 3", splitMarkers("khu pho", "to"), 0, 1},
		{"longer wins on tie", "thanh pho hue", splitMarkers("thanh", "thanh pho"), 0, 2},
		{"whole words only", "tinhte giang", splitMarkers("tinh"), -1, 0},
		{"later position", "so 34 ap binh long", splitMarkers("ap", "thon"), 2, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pos, size := findMarker(strings.Fields(tt.words), tt.markers)
			assert.Equal(t, tt.wantPos, pos)
			assert.Equal(t, tt.wantSize, size)
		})
	}
}

func TestStripMarkers(t *testing.T) {
	assert.Equal(t, "thanh binh", stripMarkers("xa thanh binh"))
	assert.Equal(t, "tien giang", stripMarkers("tien giang tinh"))
	assert.Equal(t, "ho chi minh", stripMarkers("thanh pho ho chi minh"))
	assert.Equal(t, "cho gao", stripMarkers("huyen thi tran cho gao"))
	assert.Equal(t, "ben xa lo", stripMarkers("ben xa lo"))
	assert.Empty(t, stripMarkers("quan"))
}

func TestLoadPatterns(t *testing.T) {
	defaults := DefaultPatterns()
	names := make([]string, len(defaults))
	for i, d := range defaults {
		names[i] = d.Name
	}
	assert.Equal(t, []string{
		"hamlet_ward_district_province",
		"ward_district_province",
		"district_province",
		"ward_district_tail",
	}, names)

	_, err := LoadPatterns(strings.NewReader("patterns:\n  - name: x\n    unknown: 1\n"))
	assert.Error(t, err)

	none, err := LoadPatterns(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestCompilePattern_Errors(t *testing.T) {
	tests := []PatternDescriptor{
		{Slots: []SlotDescriptor{{Level: "ward", Markers: []string{"xa"}}}},
		{Name: "no slots"},
		{Name: "bad level", Slots: []SlotDescriptor{{Level: "country", Markers: []string{"x"}}}},
		{Name: "street slot", Slots: []SlotDescriptor{{Level: "street", Markers: []string{"duong"}}}},
		{Name: "no markers", Slots: []SlotDescriptor{{Level: "ward"}}},
		{Name: "bad tail", Slots: []SlotDescriptor{{Level: "ward", Markers: []string{"xa"}}}, Tail: "planet"},
	}
	for _, d := range tests {
		_, err := compilePattern(d)
		assert.Error(t, err, d.Name)
	}
}

func TestScoringValidate(t *testing.T) {
	assert.NoError(t, DefaultScoring().Validate())

	s := DefaultScoring()
	s.ParseBase = 1.5
	assert.Error(t, s.Validate())

	s = DefaultScoring()
	s.DistrictBonus = -0.1
	assert.Error(t, s.Validate())
}
