// Package review gợi ý đơn vị hành chính cho các địa chỉ chưa xác định được đầy đủ.
package review

import (
	"sort"
	"strings"

	"github.com/address-resolver/app/models"
	"github.com/address-resolver/internal/catalog"
	"github.com/address-resolver/internal/parser"
	"github.com/agnivade/levenshtein"
	"github.com/xrash/smetrics"
)

// Suggester xếp hạng đơn vị trong catalog theo độ giống với thành phần đã tách.
// Gợi ý chỉ để người review tham khảo, không thay đổi kết quả resolve.
type Suggester struct {
	jwWeight  float64
	levWeight float64
	max       int
}

// NewSuggester tạo mới Suggester. Trọng số âm coi như 0; cả hai bằng 0 thì dùng 0.7/0.3.
func NewSuggester(jwWeight, levWeight float64, maxCandidates int) *Suggester {
	if jwWeight < 0 {
		jwWeight = 0
	}
	if levWeight < 0 {
		levWeight = 0
	}
	if jwWeight+levWeight == 0 {
		jwWeight, levWeight = 0.7, 0.3
	}
	if maxCandidates <= 0 {
		maxCandidates = 5
	}
	return &Suggester{jwWeight: jwWeight, levWeight: levWeight, max: maxCandidates}
}

// Similarity jw_weight*JaroWinkler + lev_weight*(1 - levenshtein/maxLen), chuẩn hóa về [0,1].
func (s *Suggester) Similarity(a, b string) float64 {
	if a == "" || b == "" {
		return 0
	}
	if a == b {
		return 1
	}

	jw := smetrics.JaroWinkler(a, b, 0.7, 4)

	maxLen := len(a)
	if len(b) > maxLen {
		maxLen = len(b)
	}
	lev := 1 - float64(levenshtein.ComputeDistance(a, b))/float64(maxLen)
	if lev < 0 {
		lev = 0
	}

	return (s.jwWeight*jw + s.levWeight*lev) / (s.jwWeight + s.levWeight)
}

// Suggest trả về tối đa N ứng viên cho cấp bị thiếu:
// tỉnh khi status là error, xã trong tỉnh đã khớp khi status là warning.
func (s *Suggester) Suggest(parsed *parser.ParsedAddress, res parser.ResolutionResult, cat *catalog.Catalog) []models.Candidate {
	if parsed == nil || !cat.Ready() {
		return nil
	}

	var (
		pool  []*catalog.Unit
		query string
	)
	switch res.Status {
	case parser.StatusError:
		pool = cat.Provinces()
		query = firstNonEmpty(parsed.Province, lastWords(parsed.Normalized, 3))
	case parser.StatusWarning:
		pool = cat.WardsOf(res.ProvinceCode)
		query = firstNonEmpty(parsed.Ward, parsed.Hamlet)
	default:
		return nil
	}
	if query == "" || len(pool) == 0 {
		return nil
	}

	type scored struct {
		unit  *catalog.Unit
		score float64
	}
	ranked := make([]scored, 0, len(pool))
	for _, u := range pool {
		score := s.Similarity(query, u.CoreName)
		if full := s.Similarity(query, u.NameNormalized); full > score {
			score = full
		}
		if score > 0 {
			ranked = append(ranked, scored{unit: u, score: score})
		}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].score > ranked[j].score
	})
	if len(ranked) > s.max {
		ranked = ranked[:s.max]
	}

	out := make([]models.Candidate, 0, len(ranked))
	for _, r := range ranked {
		out = append(out, models.Candidate{
			Code:  r.unit.Code,
			Name:  r.unit.Name,
			Level: r.unit.Level.String(),
			Score: r.score,
			Path:  pathString(cat, r.unit),
		})
	}
	return out
}

func pathString(cat *catalog.Catalog, u *catalog.Unit) string {
	path := cat.Path(u)
	names := make([]string, len(path))
	for i, p := range path {
		names[i] = p.Name
	}
	return strings.Join(names, " > ")
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// lastWords n từ cuối, nơi tên tỉnh thường nằm.
func lastWords(s string, n int) string {
	words := strings.Fields(s)
	if len(words) > n {
		words = words[len(words)-n:]
	}
	return strings.Join(words, " ")
}
