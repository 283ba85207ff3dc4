// Package normalizer đưa địa chỉ tiếng Việt về dạng chuẩn để so khớp:
// chữ thường, không dấu, đã mở rộng viết tắt, chỉ còn [a-z0-9] và một dấu cách giữa các từ.
//
// Normalize là hàm thuần và idempotent: Normalize(Normalize(s)) == Normalize(s).
package normalizer

import (
	"sort"
	"strings"
)

// Tables bảng quy tắc của Normalizer. Khóa và giá trị viết thường, không dấu.
type Tables struct {
	// Abbreviations viết tắt đứng thành từ riêng: tp -> thanh pho
	Abbreviations map[string]string
	// Dotted viết tắt có dấu chấm ngay sau: p. -> phuong (khóa không gồm dấu chấm)
	Dotted map[string]string
	// Numbered tiền tố dính liền số: q1 -> quan 1
	Numbered map[string]string
	// Aliases biến thể tên thành phố, khớp theo cụm từ nguyên vẹn
	Aliases map[string]string
}

// DefaultTables trả về bộ quy tắc mặc định.
func DefaultTables() Tables {
	return Tables{
		Abbreviations: map[string]string{
			"tp":    "thanh pho",
			"tphcm": "thanh pho ho chi minh",
			"hcm":   "ho chi minh",
			"hcmc":  "ho chi minh",
			"hn":    "ha noi",
			"dn":    "da nang",
		},
		Dotted: map[string]string{
			"p":  "phuong",
			"q":  "quan",
			"tx": "thi xa",
			"tt": "thi tran",
			"t":  "tinh",
			"tp": "thanh pho",
		},
		Numbered: map[string]string{
			"q": "quan",
			"p": "phuong",
		},
		Aliases: map[string]string{
			"hanoi":     "ha noi",
			"hochiminh": "ho chi minh",
			"saigon":    "ho chi minh",
			"sai gon":   "ho chi minh",
			"danang":    "da nang",
			"cantho":    "can tho",
			"haiphong":  "hai phong",
		},
	}
}

// Normalizer chuẩn hóa văn bản theo một bộ Tables cố định. An toàn khi dùng đồng thời.
type Normalizer struct {
	abbreviations map[string]string
	dotted        map[string]string
	numbered      map[string]string
	aliases       phraseTable
}

// New tạo Normalizer với bảng mặc định.
func New() *Normalizer {
	return NewWithTables(DefaultTables())
}

// NewWithTables tạo Normalizer với bảng tùy chỉnh.
func NewWithTables(t Tables) *Normalizer {
	return &Normalizer{
		abbreviations: copyMap(t.Abbreviations),
		dotted:        copyMap(t.Dotted),
		numbered:      copyMap(t.Numbered),
		aliases:       newPhraseTable(t.Aliases),
	}
}

var defaultNormalizer = New()

// Normalize chuẩn hóa bằng bảng mặc định.
func Normalize(text string) string {
	return defaultNormalizer.Normalize(text)
}

// Normalize chạy lần lượt: lowercase, mở rộng viết tắt, bỏ dấu, gộp ký tự lạ thành
// khoảng trắng, quy tắc từ sau khi bỏ dấu, alias thành phố.
func (n *Normalizer) Normalize(text string) string {
	if strings.TrimSpace(text) == "" {
		return ""
	}

	s := strings.ToLower(text)
	s = n.expandAbbreviations(s)
	s = FoldToASCII(s)

	words := splitASCIIWords(s)
	words = n.applyWordRules(words)
	words = n.aliases.replace(words)

	return strings.Join(words, " ")
}

// Aliases trả về bảng alias (bản sao), dùng làm synonyms cho chỉ mục tìm kiếm.
func (n *Normalizer) Aliases() map[string]string {
	out := make(map[string]string, len(n.aliases.index))
	for _, phrases := range n.aliases.index {
		for _, p := range phrases {
			out[strings.Join(p.from, " ")] = strings.Join(p.to, " ")
		}
	}
	return out
}

// expandAbbreviations thay viết tắt theo ranh giới từ Unicode, trước khi bỏ dấu.
func (n *Normalizer) expandAbbreviations(s string) string {
	rs := []rune(s)
	var b strings.Builder
	b.Grow(len(s) + 16)

	for i := 0; i < len(rs); {
		if !isWordRune(rs[i]) {
			b.WriteRune(rs[i])
			i++
			continue
		}

		j := i
		for j < len(rs) && isWordRune(rs[j]) {
			j++
		}
		word := string(rs[i:j])

		if j < len(rs) && rs[j] == '.' {
			if rep, ok := n.dotted[word]; ok {
				b.WriteString(rep)
				b.WriteByte(' ')
				i = j + 1
				continue
			}
		}
		if rep, ok := n.abbreviations[word]; ok {
			b.WriteString(rep)
		} else {
			b.WriteString(word)
		}
		i = j
	}
	return b.String()
}

// applyWordRules áp dụng viết tắt chỉ lộ ra sau khi bỏ dấu (ĐN -> dn) và dạng q1/p12.
func (n *Normalizer) applyWordRules(words []string) []string {
	out := make([]string, 0, len(words)+4)
	for _, w := range words {
		if rep, ok := n.abbreviations[w]; ok {
			out = append(out, strings.Fields(rep)...)
			continue
		}
		if prefix, digits, ok := splitNumbered(w); ok {
			if rep, ok := n.numbered[prefix]; ok {
				out = append(out, strings.Fields(rep)...)
				out = append(out, digits)
				continue
			}
		}
		out = append(out, w)
	}
	return out
}

// splitNumbered tách "q10" thành ("q", "10").
func splitNumbered(w string) (string, string, bool) {
	i := 0
	for i < len(w) && w[i] >= 'a' && w[i] <= 'z' {
		i++
	}
	if i == 0 || i == len(w) {
		return "", "", false
	}
	for k := i; k < len(w); k++ {
		if w[k] < '0' || w[k] > '9' {
			return "", "", false
		}
	}
	return w[:i], w[i:], true
}

// splitASCIIWords thay mọi ký tự ngoài [a-z0-9] bằng khoảng trắng rồi tách từ.
func splitASCIIWords(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9')
	})
}

// ContainsPhrase kiểm tra phrase xuất hiện trong text theo ranh giới từ.
// Cả hai tham số phải đã được chuẩn hóa; phrase rỗng luôn trả về false.
func ContainsPhrase(text, phrase string) bool {
	if phrase == "" || text == "" {
		return false
	}
	return strings.Contains(" "+text+" ", " "+phrase+" ")
}

type phrase struct {
	from []string
	to   []string
}

// phraseTable tra cụm từ theo từ đầu tiên; cụm dài hơn được thử trước.
type phraseTable struct {
	index map[string][]phrase
}

func newPhraseTable(m map[string]string) phraseTable {
	t := phraseTable{index: make(map[string][]phrase, len(m))}
	for k, v := range m {
		from := strings.Fields(k)
		if len(from) == 0 {
			continue
		}
		t.index[from[0]] = append(t.index[from[0]], phrase{from: from, to: strings.Fields(v)})
	}
	for _, list := range t.index {
		sort.Slice(list, func(i, j int) bool {
			if len(list[i].from) != len(list[j].from) {
				return len(list[i].from) > len(list[j].from)
			}
			return strings.Join(list[i].from, " ") < strings.Join(list[j].from, " ")
		})
	}
	return t
}

func (t phraseTable) replace(words []string) []string {
	if len(t.index) == 0 {
		return words
	}
	out := make([]string, 0, len(words))
	for i := 0; i < len(words); {
		matched := false
		for _, p := range t.index[words[i]] {
			if hasPrefix(words[i:], p.from) {
				out = append(out, p.to...)
				i += len(p.from)
				matched = true
				break
			}
		}
		if !matched {
			out = append(out, words[i])
			i++
		}
	}
	return out
}

func hasPrefix(words, prefix []string) bool {
	if len(prefix) > len(words) {
		return false
	}
	for i := range prefix {
		if words[i] != prefix[i] {
			return false
		}
	}
	return true
}

func copyMap(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
