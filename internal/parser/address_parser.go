package parser

import (
	"fmt"
	"sort"
	"strings"

	"github.com/address-resolver/internal/normalizer"
	"go.uber.org/zap"
)

// component loại thành phần địa chỉ.
type component int

const (
	componentStreet component = iota
	componentHamlet
	componentWard
	componentDistrict
	componentProvince
)

func (c component) String() string {
	switch c {
	case componentHamlet:
		return "hamlet"
	case componentWard:
		return "ward"
	case componentDistrict:
		return "district"
	case componentProvince:
		return "province"
	default:
		return "street"
	}
}

func parseComponent(s string) (component, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "street":
		return componentStreet, true
	case "hamlet":
		return componentHamlet, true
	case "ward":
		return componentWard, true
	case "district":
		return componentDistrict, true
	case "province":
		return componentProvince, true
	}
	return 0, false
}

type keywordSet struct {
	comp    component
	markers [][]string
}

// keywordTable thứ tự duyệt cố định: tỉnh, huyện, xã, thôn.
var keywordTable = []keywordSet{
	{componentProvince, splitMarkers("tinh", "thanh pho")},
	{componentDistrict, splitMarkers("huyen", "quan", "thi xa")},
	{componentWard, splitMarkers("xa", "phuong", "thi tran")},
	{componentHamlet, splitMarkers("ap", "thon", "ban", "lang", "to", "khom", "khu pho")},
}

var cleanupMarkers = splitMarkers("thanh pho", "thi xa", "thi tran", "tinh", "huyen", "quan", "xa", "phuong", "ap", "thon")

func splitMarkers(markers ...string) [][]string {
	out := make([][]string, 0, len(markers))
	for _, m := range markers {
		out = append(out, strings.Fields(m))
	}
	sort.SliceStable(out, func(i, j int) bool { return len(out[i]) > len(out[j]) })
	return out
}

// ParsedAddress kết quả parse một dòng địa chỉ.
type ParsedAddress struct {
	Original   string  `json:"original"`
	Normalized string  `json:"normalized"`
	Province   string  `json:"province,omitempty"`
	District   string  `json:"district,omitempty"`
	Ward       string  `json:"ward,omitempty"`
	Hamlet     string  `json:"hamlet,omitempty"`
	Street     string  `json:"street,omitempty"`
	Confidence float64 `json:"confidence"`
	// Pattern tên mẫu fallback đã khớp, rỗng nếu không dùng
	Pattern string `json:"pattern,omitempty"`
}

// AddressParser tách địa chỉ thành các thành phần hành chính.
// An toàn khi dùng đồng thời: mọi trạng thái đều chỉ đọc sau khi khởi tạo.
type AddressParser struct {
	normalizer *normalizer.Normalizer
	patterns   []*compiledPattern
	scoring    Scoring
	logger     *zap.Logger
}

// NewAddressParser tạo mới AddressParser. patterns rỗng thì dùng mẫu nhúng sẵn.
func NewAddressParser(norm *normalizer.Normalizer, scoring Scoring, patterns []PatternDescriptor, logger *zap.Logger) (*AddressParser, error) {
	if norm == nil {
		norm = normalizer.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if len(patterns) == 0 {
		patterns = DefaultPatterns()
	}

	compiled := make([]*compiledPattern, 0, len(patterns))
	for _, d := range patterns {
		cp, err := compilePattern(d)
		if err != nil {
			return nil, fmt.Errorf("biên dịch mẫu địa chỉ: %w", err)
		}
		compiled = append(compiled, cp)
	}

	return &AddressParser{
		normalizer: norm,
		patterns:   compiled,
		scoring:    scoring,
		logger:     logger,
	}, nil
}

// PatternNames tên các mẫu fallback theo thứ tự thử.
func (ap *AddressParser) PatternNames() []string {
	names := make([]string, len(ap.patterns))
	for i, cp := range ap.patterns {
		names[i] = cp.name
	}
	return names
}

// Normalize chuẩn hóa văn bản bằng normalizer của parser.
func (ap *AddressParser) Normalize(text string) string {
	return ap.normalizer.Normalize(text)
}

type piece struct {
	index int
	text  string
}

// parseState gom giá trị trong lúc parse.
type parseState struct {
	admin   map[component]string
	streets []piece
	hamlets []piece
}

func (st *parseState) addStreet(index int, text string) {
	if text != "" {
		st.streets = append(st.streets, piece{index, text})
	}
}

func (st *parseState) addHamlet(index int, text string) {
	if text != "" {
		st.hamlets = append(st.hamlets, piece{index, text})
	}
}

func joinPieces(pieces []piece) string {
	sort.SliceStable(pieces, func(i, j int) bool { return pieces[i].index < pieces[j].index })
	parts := make([]string, 0, len(pieces))
	for _, p := range pieces {
		if v := stripMarkers(p.text); v != "" {
			parts = append(parts, v)
		}
	}
	return strings.Join(parts, " ")
}

// Parse tách raw thành các thành phần; không bao giờ lỗi.
func (ap *AddressParser) Parse(raw string) *ParsedAddress {
	p := &ParsedAddress{Original: raw, Normalized: ap.normalizer.Normalize(raw)}
	if p.Normalized == "" {
		return p
	}

	s := ap.scoring
	confidence := s.ParseBase
	st := &parseState{admin: make(map[component]string, 3)}

	fragments := ap.fragments(raw)
	var unclassified []int
	for i, f := range fragments {
		if !ap.classify(f, i, st) {
			unclassified = append(unclassified, i)
			continue
		}
		confidence += s.KeywordHit
	}

	n := len(fragments)
	for _, i := range unclassified {
		f := fragments[i]
		if n >= 3 {
			if c, ok := positionalSlot(n - 1 - i); ok && st.admin[c] == "" {
				st.admin[c] = f
				confidence += s.PositionalGuess
				continue
			}
		}
		if n == 1 || startsWithDigit(f) {
			st.addStreet(i, f)
		} else {
			st.addHamlet(i, f)
		}
	}

	if st.admin[componentProvince] == "" || st.admin[componentDistrict] == "" || st.admin[componentWard] == "" {
		confidence += ap.applyPatterns(p, st)
	}

	p.Province = stripMarkers(st.admin[componentProvince])
	p.District = stripMarkers(st.admin[componentDistrict])
	p.Ward = stripMarkers(st.admin[componentWard])
	p.Street = joinPieces(st.streets)
	p.Hamlet = joinPieces(st.hamlets)
	p.Confidence = clamp01(confidence)

	ap.logger.Debug("Đã parse địa chỉ",
		zap.String("normalized", p.Normalized),
		zap.String("province", p.Province),
		zap.String("district", p.District),
		zap.String("ward", p.Ward),
		zap.String("pattern", p.Pattern),
		zap.Float64("confidence", p.Confidence))

	return p
}

// fragments tách theo dấu phẩy trên chuỗi gốc rồi mới chuẩn hóa từng đoạn.
func (ap *AddressParser) fragments(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if f := ap.normalizer.Normalize(part); f != "" {
			out = append(out, f)
		}
	}
	return out
}

// classify gán đoạn cho cấp đầu tiên có từ khóa; trả về false nếu không có từ khóa nào.
func (ap *AddressParser) classify(fragment string, index int, st *parseState) bool {
	words := strings.Fields(fragment)
	for _, ks := range keywordTable {
		pos, size := findMarker(words, ks.markers)
		if pos < 0 {
			continue
		}
		before := strings.Join(words[:pos], " ")
		after := strings.Join(words[pos+size:], " ")

		value := after
		if value == "" {
			value = before
		} else if before != "" && (ks.comp == componentWard || ks.comp == componentHamlet) && len(st.streets) == 0 {
			st.addStreet(index, before)
		}
		if ks.comp == componentHamlet {
			st.addHamlet(index, value)
		} else {
			st.admin[ks.comp] = value
		}
		return true
	}
	return false
}

// findMarker vị trí marker trái nhất; hòa vị trí thì marker dài hơn thắng.
func findMarker(words []string, markers [][]string) (int, int) {
	bestPos, bestSize := -1, 0
	for _, m := range markers {
		for i := 0; i+len(m) <= len(words); i++ {
			if bestPos >= 0 && i > bestPos {
				break
			}
			if !hasWordsAt(words, i, m) {
				continue
			}
			if bestPos < 0 || i < bestPos || len(m) > bestSize {
				bestPos, bestSize = i, len(m)
			}
			break
		}
	}
	return bestPos, bestSize
}

func hasWordsAt(words []string, i int, m []string) bool {
	for j, w := range m {
		if words[i+j] != w {
			return false
		}
	}
	return true
}

// applyPatterns thử các mẫu theo thứ tự, dùng mẫu khớp đầu tiên; trả về phần confidence cộng thêm.
func (ap *AddressParser) applyPatterns(p *ParsedAddress, st *parseState) float64 {
	for _, cp := range ap.patterns {
		values := cp.match(p.Normalized)
		if values == nil {
			continue
		}
		p.Pattern = cp.name

		var gained float64
		for _, c := range []component{componentProvince, componentDistrict, componentWard} {
			if v, ok := values[c]; ok && st.admin[c] == "" {
				st.admin[c] = v
				gained += ap.scoring.PatternFill
			}
		}
		if v, ok := values[componentHamlet]; ok && len(st.hamlets) == 0 {
			st.addHamlet(0, v)
		}
		if v, ok := values[componentStreet]; ok && len(st.streets) == 0 {
			st.addStreet(0, v)
		}
		return gained
	}
	return 0
}

func positionalSlot(fromEnd int) (component, bool) {
	switch fromEnd {
	case 0:
		return componentProvince, true
	case 1:
		return componentDistrict, true
	case 2:
		return componentWard, true
	}
	return 0, false
}

func startsWithDigit(s string) bool {
	return s != "" && s[0] >= '0' && s[0] <= '9'
}

// stripMarkers bỏ từ chỉ cấp còn sót ở đầu và cuối giá trị.
func stripMarkers(value string) string {
	words := strings.Fields(value)
	for changed := true; changed && len(words) > 0; {
		changed = false
		for _, m := range cleanupMarkers {
			if len(m) <= len(words) && hasWordsAt(words, 0, m) {
				words = words[len(m):]
				changed = true
				break
			}
			if len(m) <= len(words) && hasWordsAt(words, len(words)-len(m), m) {
				words = words[:len(words)-len(m)]
				changed = true
				break
			}
		}
	}
	return strings.Join(words, " ")
}
