// Package catalog giữ danh mục đơn vị hành chính (tỉnh, huyện, xã) trong bộ nhớ.
//
// Catalog được dựng một lần bằng Build và không thay đổi sau đó; mọi phương thức đọc
// an toàn khi gọi đồng thời. Nạp lại dữ liệu nghĩa là dựng Catalog mới.
package catalog

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/address-resolver/internal/normalizer"
)

// Unit một đơn vị hành chính đã chuẩn hóa.
type Unit struct {
	Code           string `json:"code"`
	Name           string `json:"name"`
	NameNormalized string `json:"name_normalized"`
	// CoreName là NameNormalized bỏ từ chỉ cấp ở đầu ("tinh tien giang" -> "tien giang")
	CoreName   string `json:"core_name"`
	ParentCode string `json:"parent_code,omitempty"`
	Level      Level  `json:"level"`
}

// DiagnosticReason lý do một bản ghi bị bỏ qua khi dựng catalog.
type DiagnosticReason string

const (
	MalformedRecord DiagnosticReason = "MalformedRecord"
	DuplicateCode   DiagnosticReason = "DuplicateCode"
	OrphanRecord    DiagnosticReason = "OrphanRecord"
)

// Diagnostic ghi nhận một bản ghi bị bỏ qua.
type Diagnostic struct {
	Reason DiagnosticReason `json:"reason"`
	Code   string           `json:"code,omitempty"`
	Name   string           `json:"name,omitempty"`
	Detail string           `json:"detail"`
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("%s code=%q name=%q: %s", d.Reason, d.Code, d.Name, d.Detail)
}

// Catalog danh mục bất biến, đánh chỉ mục theo mã và theo mã cha.
type Catalog struct {
	units           []*Unit
	byCode          map[string]*Unit
	children        map[string][]*Unit
	provinces       []*Unit
	wardsByProvince map[string][]*Unit
	counts          map[Level]int
	version         string
}

type buildOptions struct {
	normalize func(string) string
}

// Option tùy chọn cho Build.
type Option func(*buildOptions)

// WithNormalizer thay hàm chuẩn hóa tên (mặc định normalizer.Normalize).
func WithNormalizer(fn func(string) string) Option {
	return func(o *buildOptions) {
		if fn != nil {
			o.normalize = fn
		}
	}
}

// levelMarkers từ chỉ cấp có thể đứng đầu tên chính thức, dài trước ngắn sau.
var levelMarkers = map[Level][]string{
	LevelProvince: {"thanh pho", "tinh"},
	LevelDistrict: {"thanh pho", "thi xa", "quan", "huyen"},
	LevelWard:     {"thi tran", "phuong", "xa"},
}

type pending struct {
	rec    Record
	code   string
	parent string
	level  Level
}

// Build dựng Catalog từ bản ghi lồng nhau hoặc phẳng, hai hoặc ba cấp.
// Bản ghi lỗi bị bỏ qua và trả về trong danh sách Diagnostic; Build không bao giờ thất bại toàn bộ.
func Build(records []Record, opts ...Option) (*Catalog, []Diagnostic) {
	o := buildOptions{normalize: normalizer.Normalize}
	for _, opt := range opts {
		opt(&o)
	}

	var diags []Diagnostic

	// Pass 1: làm phẳng, loại bản ghi thiếu trường và mã trùng
	flat := make([]pending, 0, len(records))
	flatten(records, "", LevelUnknown, &flat)

	referenced := make(map[string]bool, len(flat))
	for _, p := range flat {
		if p.parent != "" {
			referenced[p.parent] = true
		}
	}

	accepted := make([]pending, 0, len(flat))
	seen := make(map[string]bool, len(flat))
	for _, p := range flat {
		name := strings.TrimSpace(p.rec.Name)
		switch {
		case p.code == "" || name == "":
			diags = append(diags, Diagnostic{Reason: MalformedRecord, Code: p.code, Name: name, Detail: "thiếu code hoặc name"})
			continue
		case o.normalize(name) == "":
			diags = append(diags, Diagnostic{Reason: MalformedRecord, Code: p.code, Name: name, Detail: "name rỗng sau chuẩn hóa"})
			continue
		case seen[p.code]:
			diags = append(diags, Diagnostic{Reason: DuplicateCode, Code: p.code, Name: name, Detail: "mã đã xuất hiện trước đó"})
			continue
		}
		seen[p.code] = true

		if p.level == LevelUnknown {
			switch {
			case p.parent == "":
				p.level = LevelProvince
			case referenced[p.code]:
				p.level = LevelDistrict
			default:
				p.level = LevelWard
			}
		}
		accepted = append(accepted, p)
	}

	// Pass 2: kiểm tra liên kết cha theo thứ tự cấp, giữ thứ tự đầu vào
	levelOf := make(map[string]Level, len(accepted))
	ok := make([]bool, len(accepted))
	for _, lv := range []Level{LevelProvince, LevelDistrict, LevelWard} {
		for i, p := range accepted {
			if p.level != lv {
				continue
			}
			if reason := checkParent(p, levelOf); reason != "" {
				diags = append(diags, Diagnostic{Reason: OrphanRecord, Code: p.code, Name: strings.TrimSpace(p.rec.Name), Detail: reason})
				continue
			}
			levelOf[p.code] = lv
			ok[i] = true
		}
	}

	c := &Catalog{
		byCode:          make(map[string]*Unit, len(accepted)),
		children:        make(map[string][]*Unit),
		wardsByProvince: make(map[string][]*Unit),
		counts:          make(map[Level]int, 3),
	}
	for i, p := range accepted {
		if !ok[i] {
			continue
		}
		name := strings.TrimSpace(p.rec.Name)
		normalized := o.normalize(name)
		u := &Unit{
			Code:           p.code,
			Name:           name,
			NameNormalized: normalized,
			CoreName:       coreName(normalized, p.level),
			Level:          p.level,
		}
		if p.level != LevelProvince {
			u.ParentCode = p.parent
		}
		c.units = append(c.units, u)
		c.byCode[u.Code] = u
		c.counts[u.Level]++
	}

	for _, u := range c.units {
		switch u.Level {
		case LevelProvince:
			c.provinces = append(c.provinces, u)
		default:
			c.children[u.ParentCode] = append(c.children[u.ParentCode], u)
		}
		if u.Level == LevelWard {
			if p := c.ProvinceOf(u); p != nil {
				c.wardsByProvince[p.Code] = append(c.wardsByProvince[p.Code], u)
			}
		}
	}

	c.version = computeVersion(c.units)
	return c, diags
}

func flatten(records []Record, enclosing string, implied Level, out *[]pending) {
	for _, r := range records {
		p := pending{
			rec:    r,
			code:   strings.TrimSpace(string(r.Code)),
			parent: strings.TrimSpace(string(r.ParentCode)),
			level:  r.Level,
		}
		if p.parent == "" {
			p.parent = enclosing
		}
		if p.level == LevelUnknown {
			p.level = implied
		}
		*out = append(*out, p)

		if len(r.Districts) > 0 {
			flatten(r.Districts, p.code, LevelDistrict, out)
		}
		if len(r.Wards) > 0 {
			flatten(r.Wards, p.code, LevelWard, out)
		}
	}
}

func checkParent(p pending, levelOf map[string]Level) string {
	switch p.level {
	case LevelProvince:
		return ""
	case LevelDistrict:
		if levelOf[p.parent] != LevelProvince {
			return fmt.Sprintf("huyện có parent_code %q không phải tỉnh", p.parent)
		}
	case LevelWard:
		if lv := levelOf[p.parent]; lv != LevelProvince && lv != LevelDistrict {
			return fmt.Sprintf("xã có parent_code %q không phải huyện hoặc tỉnh", p.parent)
		}
	default:
		return "không xác định được cấp"
	}
	return ""
}

func coreName(normalized string, level Level) string {
	for _, m := range levelMarkers[level] {
		if rest, found := strings.CutPrefix(normalized, m+" "); found && rest != "" {
			return rest
		}
	}
	return normalized
}

func computeVersion(units []*Unit) string {
	h := sha256.New()
	for _, u := range units {
		fmt.Fprintf(h, "%d|%s|%s|%s\n", u.Level, u.Code, u.ParentCode, u.Name)
	}
	return hex.EncodeToString(h.Sum(nil))[:16]
}

// Get tìm đơn vị theo mã.
func (c *Catalog) Get(code string) (*Unit, bool) {
	if c == nil {
		return nil, false
	}
	u, ok := c.byCode[code]
	return u, ok
}

// Children trả về các đơn vị con trực tiếp của code; level = LevelUnknown lấy mọi cấp.
// Slice trả về dùng chung với catalog, không được sửa.
func (c *Catalog) Children(code string, level Level) []*Unit {
	if c == nil {
		return nil
	}
	all := c.children[code]
	if level == LevelUnknown {
		return all
	}
	var out []*Unit
	for _, u := range all {
		if u.Level == level {
			out = append(out, u)
		}
	}
	return out
}

// Provinces danh sách tỉnh theo thứ tự đầu vào.
func (c *Catalog) Provinces() []*Unit {
	if c == nil {
		return nil
	}
	return c.provinces
}

// WardsOf mọi xã thuộc tỉnh, dù treo trực tiếp dưới tỉnh hay qua huyện.
func (c *Catalog) WardsOf(provinceCode string) []*Unit {
	if c == nil {
		return nil
	}
	return c.wardsByProvince[provinceCode]
}

// ProvinceOf đi ngược lên tới tỉnh chứa u (chính u nếu u là tỉnh).
func (c *Catalog) ProvinceOf(u *Unit) *Unit {
	if c == nil {
		return nil
	}
	for depth := 0; u != nil && depth < 3; depth++ {
		if u.Level == LevelProvince {
			return u
		}
		u = c.byCode[u.ParentCode]
	}
	return nil
}

// DistrictOf huyện sở hữu xã; nil với catalog hai cấp.
func (c *Catalog) DistrictOf(ward *Unit) *Unit {
	if c == nil || ward == nil {
		return nil
	}
	if p, ok := c.byCode[ward.ParentCode]; ok && p.Level == LevelDistrict {
		return p
	}
	return nil
}

// Path chuỗi tổ tiên từ tỉnh tới u (gồm u).
func (c *Catalog) Path(u *Unit) []*Unit {
	if c == nil {
		return nil
	}
	var path []*Unit
	for depth := 0; u != nil && depth < 3; depth++ {
		path = append([]*Unit{u}, path...)
		if u.Level == LevelProvince {
			break
		}
		u = c.byCode[u.ParentCode]
	}
	return path
}

// Units mọi đơn vị theo thứ tự đầu vào.
func (c *Catalog) Units() []*Unit {
	if c == nil {
		return nil
	}
	return c.units
}

// Len tổng số đơn vị.
func (c *Catalog) Len() int {
	if c == nil {
		return 0
	}
	return len(c.units)
}

// Counts số đơn vị theo cấp.
func (c *Catalog) Counts() map[Level]int {
	out := make(map[Level]int, 3)
	if c == nil {
		return out
	}
	for k, v := range c.counts {
		out[k] = v
	}
	return out
}

// Version mã băm nội dung, đổi khi dữ liệu đổi.
func (c *Catalog) Version() string {
	if c == nil {
		return ""
	}
	return c.version
}

// Ready catalog đã có ít nhất một tỉnh.
func (c *Catalog) Ready() bool {
	return c != nil && len(c.provinces) > 0
}
