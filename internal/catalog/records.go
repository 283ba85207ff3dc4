package catalog

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Level cấp hành chính của một đơn vị.
type Level int

const (
	LevelUnknown  Level = 0
	LevelProvince Level = 1
	LevelDistrict Level = 2
	LevelWard     Level = 3
)

// String trả về tên cấp dùng trong JSON và log.
func (l Level) String() string {
	switch l {
	case LevelProvince:
		return "province"
	case LevelDistrict:
		return "district"
	case LevelWard:
		return "ward"
	default:
		return "unknown"
	}
}

// ParseLevel đọc cấp từ tên ("province", "tinh", ...) hoặc số (1..3).
func ParseLevel(s string) (Level, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "province", "tinh", "1":
		return LevelProvince, true
	case "district", "huyen", "2":
		return LevelDistrict, true
	case "ward", "xa", "3":
		return LevelWard, true
	case "":
		return LevelUnknown, true
	}
	return LevelUnknown, false
}

// MarshalJSON ghi Level dưới dạng tên.
func (l Level) MarshalJSON() ([]byte, error) {
	if l == LevelUnknown {
		return []byte(`""`), nil
	}
	return json.Marshal(l.String())
}

// UnmarshalJSON chấp nhận cả chuỗi lẫn số.
func (l *Level) UnmarshalJSON(b []byte) error {
	raw, err := scalarString(b)
	if err != nil {
		return fmt.Errorf("level: %w", err)
	}
	lv, ok := ParseLevel(raw)
	if !ok {
		return fmt.Errorf("level: giá trị không hợp lệ %q", raw)
	}
	*l = lv
	return nil
}

// Code mã đơn vị hành chính. Dữ liệu nguồn có khi là số, có khi là chuỗi.
type Code string

// UnmarshalJSON chấp nhận "01", 1 hoặc null.
func (c *Code) UnmarshalJSON(b []byte) error {
	raw, err := scalarString(b)
	if err != nil {
		return fmt.Errorf("code: %w", err)
	}
	*c = Code(strings.TrimSpace(raw))
	return nil
}

func scalarString(b []byte) (string, error) {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		return "", nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return "", err
		}
		return s, nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return "", err
	}
	if i, err := n.Int64(); err == nil {
		return strconv.FormatInt(i, 10), nil
	}
	return n.String(), nil
}

// Record bản ghi đầu vào của Build, dạng lồng nhau hoặc phẳng.
type Record struct {
	Code       Code     `json:"code"`
	Name       string   `json:"name"`
	ParentCode Code     `json:"parent_code,omitempty"`
	Level      Level    `json:"level,omitempty"`
	Districts  []Record `json:"districts,omitempty"`
	Wards      []Record `json:"wards,omitempty"`
}

// FromTables ghép ba bảng tỉnh/huyện/xã (bố cục dữ liệu gốc) thành bản ghi phẳng.
func FromTables(provinces, districts, wards []Record) []Record {
	out := make([]Record, 0, len(provinces)+len(districts)+len(wards))
	for _, r := range provinces {
		r.Level = LevelProvince
		out = append(out, r)
	}
	for _, r := range districts {
		r.Level = LevelDistrict
		out = append(out, r)
	}
	for _, r := range wards {
		r.Level = LevelWard
		out = append(out, r)
	}
	return out
}

// Dataset bố cục file gồm ba bảng riêng.
type Dataset struct {
	Provinces []Record `json:"provinces"`
	Districts []Record `json:"districts"`
	Wards     []Record `json:"wards"`
}

// DecodeRecords đọc dữ liệu JSON: một mảng bản ghi (lồng hoặc phẳng) hoặc một object Dataset.
func DecodeRecords(r io.Reader) ([]Record, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("đọc dữ liệu catalog: %w", err)
	}
	data = bytes.TrimSpace(bytes.TrimPrefix(data, []byte("\xef\xbb\xbf")))
	if len(data) == 0 {
		return nil, fmt.Errorf("dữ liệu catalog rỗng")
	}

	if data[0] == '[' {
		var records []Record
		if err := json.Unmarshal(data, &records); err != nil {
			return nil, fmt.Errorf("parse mảng catalog: %w", err)
		}
		return records, nil
	}

	var ds Dataset
	if err := json.Unmarshal(data, &ds); err != nil {
		return nil, fmt.Errorf("parse dataset catalog: %w", err)
	}
	return FromTables(ds.Provinces, ds.Districts, ds.Wards), nil
}
