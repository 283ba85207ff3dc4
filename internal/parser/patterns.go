package parser

import (
	"bytes"
	_ "embed"
	"fmt"
	"io"
	"regexp"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed patterns.yaml
var defaultPatternsYAML []byte

// SlotDescriptor một thành phần có từ khóa trong mẫu.
type SlotDescriptor struct {
	Level   string   `yaml:"level" json:"level"`
	Markers []string `yaml:"markers" json:"markers"`
}

// PatternDescriptor mô tả một thứ tự thành phần dùng khi parse theo từ khóa chưa đủ.
type PatternDescriptor struct {
	Name  string           `yaml:"name" json:"name"`
	Lead  string           `yaml:"lead,omitempty" json:"lead,omitempty"`
	Slots []SlotDescriptor `yaml:"slots" json:"slots"`
	Tail  string           `yaml:"tail,omitempty" json:"tail,omitempty"`
}

type patternFile struct {
	Patterns []PatternDescriptor `yaml:"patterns"`
}

// LoadPatterns đọc danh sách mẫu từ YAML.
func LoadPatterns(r io.Reader) ([]PatternDescriptor, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var f patternFile
	if err := dec.Decode(&f); err != nil {
		if err == io.EOF {
			return nil, nil
		}
		return nil, fmt.Errorf("đọc mẫu địa chỉ: %w", err)
	}
	return f.Patterns, nil
}

// DefaultPatterns các mẫu nhúng sẵn.
func DefaultPatterns() []PatternDescriptor {
	patterns, err := LoadPatterns(bytes.NewReader(defaultPatternsYAML))
	if err != nil {
		panic(fmt.Sprintf("patterns.yaml nhúng sẵn không hợp lệ: %v", err))
	}
	return patterns
}

type compiledPattern struct {
	name    string
	re      *regexp.Regexp
	targets []component // thứ tự khớp với các nhóm bắt của re
}

// compilePattern dựng regex neo hai đầu: [lead] marker giá trị (marker giá trị)* [tail].
func compilePattern(d PatternDescriptor) (*compiledPattern, error) {
	if d.Name == "" {
		return nil, fmt.Errorf("mẫu thiếu name")
	}
	if len(d.Slots) == 0 {
		return nil, fmt.Errorf("mẫu %q không có slot", d.Name)
	}

	cp := &compiledPattern{name: d.Name}
	var b strings.Builder
	b.WriteString(`^`)
	if d.Lead != "" {
		lead, ok := parseComponent(d.Lead)
		if !ok {
			return nil, fmt.Errorf("mẫu %q: lead không hợp lệ %q", d.Name, d.Lead)
		}
		b.WriteString(`(?:(.*?)\s)?`)
		cp.targets = append(cp.targets, lead)
	} else {
		b.WriteString(`(?:.*?\s)?`)
	}

	for i, s := range d.Slots {
		c, ok := parseComponent(s.Level)
		if !ok || c == componentStreet {
			return nil, fmt.Errorf("mẫu %q: level không hợp lệ %q", d.Name, s.Level)
		}
		if len(s.Markers) == 0 {
			return nil, fmt.Errorf("mẫu %q: slot %s thiếu markers", d.Name, s.Level)
		}
		if i > 0 {
			b.WriteString(`\s`)
		}
		b.WriteString(`(?:` + markerAlternation(s.Markers) + `)\s`)
		if i == len(d.Slots)-1 && d.Tail == "" {
			b.WriteString(`(.+)$`)
		} else {
			b.WriteString(`(.+?)`)
		}
		cp.targets = append(cp.targets, c)
	}

	if d.Tail != "" {
		tail, ok := parseComponent(d.Tail)
		if !ok {
			return nil, fmt.Errorf("mẫu %q: tail không hợp lệ %q", d.Name, d.Tail)
		}
		b.WriteString(`\s(.+)$`)
		cp.targets = append(cp.targets, tail)
	}

	re, err := regexp.Compile(b.String())
	if err != nil {
		return nil, fmt.Errorf("mẫu %q: %w", d.Name, err)
	}
	cp.re = re
	return cp, nil
}

func markerAlternation(markers []string) string {
	sorted := append([]string(nil), markers...)
	sort.SliceStable(sorted, func(i, j int) bool { return len(sorted[i]) > len(sorted[j]) })
	parts := make([]string, 0, len(sorted))
	for _, m := range sorted {
		words := strings.Fields(strings.ToLower(m))
		for i, w := range words {
			words[i] = regexp.QuoteMeta(w)
		}
		if len(words) > 0 {
			parts = append(parts, strings.Join(words, `\s`))
		}
	}
	return strings.Join(parts, "|")
}

// match trả về giá trị theo từng thành phần, bỏ qua nhóm rỗng.
func (cp *compiledPattern) match(text string) map[component]string {
	m := cp.re.FindStringSubmatch(text)
	if m == nil {
		return nil
	}
	out := make(map[component]string, len(cp.targets))
	for i, c := range cp.targets {
		if v := strings.TrimSpace(m[i+1]); v != "" {
			out[c] = v
		}
	}
	return out
}
