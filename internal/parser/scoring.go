package parser

import (
	"fmt"
	"unicode"

	"github.com/address-resolver/internal/catalog"
	"github.com/address-resolver/internal/normalizer"
)

// Scoring các hằng số heuristic của parser và matcher, chỉnh được qua cấu hình.
type Scoring struct {
	ParseBase       float64 `mapstructure:"parse_base" yaml:"parse_base" json:"parse_base"`
	KeywordHit      float64 `mapstructure:"keyword_hit" yaml:"keyword_hit" json:"keyword_hit"`
	PositionalGuess float64 `mapstructure:"positional_guess" yaml:"positional_guess" json:"positional_guess"`
	PatternFill     float64 `mapstructure:"pattern_fill" yaml:"pattern_fill" json:"pattern_fill"`

	ProvinceExact     float64 `mapstructure:"province_exact" yaml:"province_exact" json:"province_exact"`
	ProvinceContains  float64 `mapstructure:"province_contains" yaml:"province_contains" json:"province_contains"`
	ProvinceInAddress float64 `mapstructure:"province_in_address" yaml:"province_in_address" json:"province_in_address"`

	WardExact     float64 `mapstructure:"ward_exact" yaml:"ward_exact" json:"ward_exact"`
	WardContains  float64 `mapstructure:"ward_contains" yaml:"ward_contains" json:"ward_contains"`
	WardInAddress float64 `mapstructure:"ward_in_address" yaml:"ward_in_address" json:"ward_in_address"`
	DistrictBonus float64 `mapstructure:"district_bonus" yaml:"district_bonus" json:"district_bonus"`

	ProvinceWeight float64 `mapstructure:"province_weight" yaml:"province_weight" json:"province_weight"`
	WardWeight     float64 `mapstructure:"ward_weight" yaml:"ward_weight" json:"ward_weight"`
	SuccessFloor   float64 `mapstructure:"success_floor" yaml:"success_floor" json:"success_floor"`
	WarningFactor  float64 `mapstructure:"warning_factor" yaml:"warning_factor" json:"warning_factor"`
}

// DefaultScoring bộ hằng số mặc định.
func DefaultScoring() Scoring {
	return Scoring{
		ParseBase:       0.5,
		KeywordHit:      0.1,
		PositionalGuess: 0.05,
		PatternFill:     0.1,

		ProvinceExact:     1.0,
		ProvinceContains:  0.8,
		ProvinceInAddress: 0.6,

		WardExact:     1.0,
		WardContains:  0.8,
		WardInAddress: 0.7,
		DistrictBonus: 0.2,

		ProvinceWeight: 0.4,
		WardWeight:     0.6,
		SuccessFloor:   0.8,
		WarningFactor:  0.7,
	}
}

// Validate mọi hằng số phải nằm trong [0,1].
func (s Scoring) Validate() error {
	fields := map[string]float64{
		"parse_base": s.ParseBase, "keyword_hit": s.KeywordHit,
		"positional_guess": s.PositionalGuess, "pattern_fill": s.PatternFill,
		"province_exact": s.ProvinceExact, "province_contains": s.ProvinceContains,
		"province_in_address": s.ProvinceInAddress, "ward_exact": s.WardExact,
		"ward_contains": s.WardContains, "ward_in_address": s.WardInAddress,
		"district_bonus": s.DistrictBonus, "province_weight": s.ProvinceWeight,
		"ward_weight": s.WardWeight, "success_floor": s.SuccessFloor,
		"warning_factor": s.WarningFactor,
	}
	for name, v := range fields {
		if v < 0 || v > 1 {
			return fmt.Errorf("scoring.%s phải nằm trong [0,1], nhận %v", name, v)
		}
	}
	return nil
}

// matchTier mức khớp giữa văn bản đã parse và một đơn vị.
type matchTier int

const (
	tierNone matchTier = iota
	tierInAddress
	tierContains
	tierExact
)

// tierOf xếp mức khớp: trùng khớp, chứa nhau theo ranh giới từ, hay xuất hiện trong cả địa chỉ.
// CoreName chỉ được dùng cho so khớp chứa khi có chữ cái ("1" quá dễ trùng).
func tierOf(fragment, address string, u *catalog.Unit) matchTier {
	lettered := hasLetter(u.CoreName)
	if fragment != "" {
		if fragment == u.NameNormalized || fragment == u.CoreName {
			return tierExact
		}
		if normalizer.ContainsPhrase(u.NameNormalized, fragment) || normalizer.ContainsPhrase(fragment, u.NameNormalized) {
			return tierContains
		}
		if lettered && (normalizer.ContainsPhrase(u.CoreName, fragment) || normalizer.ContainsPhrase(fragment, u.CoreName)) {
			return tierContains
		}
	}
	if normalizer.ContainsPhrase(address, u.NameNormalized) || (lettered && normalizer.ContainsPhrase(address, u.CoreName)) {
		return tierInAddress
	}
	return tierNone
}

// ScoreProvince điểm của một tỉnh đối với địa chỉ đã parse.
func (s Scoring) ScoreProvince(p *catalog.Unit, parsed *ParsedAddress) float64 {
	switch tierOf(parsed.Province, parsed.Normalized, p) {
	case tierExact:
		return s.ProvinceExact
	case tierContains:
		return s.ProvinceContains
	case tierInAddress:
		return s.ProvinceInAddress
	}
	return 0
}

// ScoreWard điểm của một xã; district là huyện sở hữu xã (nil với catalog hai cấp).
// Điểm thưởng huyện chỉ cộng khi xã đã có điểm và không bị chặn trên 1.
func (s Scoring) ScoreWard(w, district *catalog.Unit, parsed *ParsedAddress) float64 {
	var score float64
	switch tierOf(parsed.Ward, parsed.Normalized, w) {
	case tierExact:
		score = s.WardExact
	case tierContains:
		score = s.WardContains
	case tierInAddress:
		score = s.WardInAddress
	default:
		return 0
	}
	if district != nil && parsed.District != "" && tierOf(parsed.District, "", district) >= tierContains {
		score += s.DistrictBonus
	}
	return score
}

// scoreAll áp một luật chấm điểm lên từng ứng viên.
func scoreAll(units []*catalog.Unit, score func(*catalog.Unit) float64) []float64 {
	out := make([]float64, len(units))
	for i, u := range units {
		out[i] = score(u)
	}
	return out
}

// argmax chỉ số điểm cao nhất; hòa điểm giữ ứng viên gặp trước. Trả về -1 nếu mọi điểm <= 0.
func argmax(scores []float64) (int, float64) {
	best, bestScore := -1, 0.0
	for i, sc := range scores {
		if sc > bestScore {
			best, bestScore = i, sc
		}
	}
	return best, bestScore
}

// selectBest chọn ứng viên điểm cao nhất, nil nếu không ứng viên nào có điểm.
func selectBest(units []*catalog.Unit, score func(*catalog.Unit) float64) (*catalog.Unit, float64) {
	i, sc := argmax(scoreAll(units, score))
	if i < 0 {
		return nil, 0
	}
	return units[i], sc
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}

func hasLetter(s string) bool {
	for _, r := range s {
		if unicode.IsLetter(r) {
			return true
		}
	}
	return false
}
