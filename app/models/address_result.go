package models

import (
	"github.com/address-resolver/internal/parser"
)

// AddressResult kết quả xử lý một địa chỉ, dùng cho API và cache
type AddressResult struct {
	Raw              string             `bson:"raw" json:"raw"`                               // Địa chỉ gốc
	Normalized       string             `bson:"normalized" json:"normalized"`                 // Văn bản chuẩn không dấu
	Components       AddressComponents  `bson:"components" json:"components"`                 // Thành phần đã tách
	Province         *UnitRef           `bson:"province,omitempty" json:"province,omitempty"` // Tỉnh/thành đã khớp
	District         *UnitRef           `bson:"district,omitempty" json:"district,omitempty"` // Quận/huyện đã khớp
	Ward             *UnitRef           `bson:"ward,omitempty" json:"ward,omitempty"`         // Phường/xã đã khớp
	Status           string             `bson:"status" json:"status"`                         // success | warning | error
	Reason           string             `bson:"reason" json:"reason"`                         // Mã lý do
	Message          string             `bson:"message" json:"message"`                       // Thông điệp tiếng Việt
	Confidence       float64            `bson:"confidence" json:"confidence"`                 // Độ tin cậy
	ParseConfidence  float64            `bson:"parse_confidence" json:"parse_confidence"`
	Pattern          string             `bson:"pattern,omitempty" json:"pattern,omitempty"` // Mẫu regex đã dùng
	Candidates       []Candidate        `bson:"candidates,omitempty" json:"candidates,omitempty"`
	Suggestions      []Candidate        `bson:"suggestions,omitempty" json:"suggestions,omitempty"`
	RawFingerprint   string             `bson:"raw_fingerprint" json:"raw_fingerprint"`
	GazetteerVersion string             `bson:"gazetteer_version" json:"gazetteer_version"`
	Scores           map[string]float64 `bson:"scores,omitempty" json:"scores,omitempty"`
}

// AddressComponents các thành phần thô của địa chỉ
type AddressComponents struct {
	Street   string `bson:"street,omitempty" json:"street,omitempty"`
	Hamlet   string `bson:"hamlet,omitempty" json:"hamlet,omitempty"`
	Ward     string `bson:"ward,omitempty" json:"ward,omitempty"`
	District string `bson:"district,omitempty" json:"district,omitempty"`
	Province string `bson:"province,omitempty" json:"province,omitempty"`
}

// UnitRef tham chiếu tới một đơn vị trong catalog
type UnitRef struct {
	Code string `bson:"code" json:"code"`
	Name string `bson:"name" json:"name"`
}

// Candidate ứng viên matching
type Candidate struct {
	Code  string  `bson:"code" json:"code"`
	Name  string  `bson:"name" json:"name"`
	Level string  `bson:"level,omitempty" json:"level,omitempty"`
	Score float64 `bson:"score" json:"score"`
	Path  string  `bson:"path,omitempty" json:"path,omitempty"` // "Tỉnh > Huyện > Xã"
}

// Status constants
const (
	StatusSuccess = string(parser.StatusSuccess)
	StatusWarning = string(parser.StatusWarning)
	StatusError   = string(parser.StatusError)
)

// NewAddressResult gom kết quả parse và match thành AddressResult.
// names tra tên theo mã; rỗng nếu không có.
func NewAddressResult(raw string, parsed *parser.ParsedAddress, res parser.ResolutionResult, names func(code string) string) *AddressResult {
	ar := &AddressResult{
		Raw:        raw,
		Status:     string(res.Status),
		Reason:     string(res.Reason),
		Message:    res.Reason.Message(),
		Confidence: res.Confidence,
		Scores: map[string]float64{
			"province": res.ProvinceScore,
			"ward":     res.WardScore,
		},
	}
	if parsed != nil {
		ar.Normalized = parsed.Normalized
		ar.ParseConfidence = parsed.Confidence
		ar.Pattern = parsed.Pattern
		ar.Components = AddressComponents{
			Street:   parsed.Street,
			Hamlet:   parsed.Hamlet,
			Ward:     parsed.Ward,
			District: parsed.District,
			Province: parsed.Province,
		}
	}

	ref := func(code string) *UnitRef {
		if code == "" {
			return nil
		}
		return &UnitRef{Code: code, Name: names(code)}
	}
	ar.Province = ref(res.ProvinceCode)
	ar.District = ref(res.DistrictCode)
	ar.Ward = ref(res.WardCode)

	for _, c := range res.Candidates {
		ar.Candidates = append(ar.Candidates, Candidate{
			Code:  c.Code,
			Name:  c.Name,
			Level: "ward",
			Score: c.Score,
		})
	}
	return ar
}

// IsValidStatus kiểm tra status có hợp lệ không
func (ar *AddressResult) IsValidStatus() bool {
	switch ar.Status {
	case StatusSuccess, StatusWarning, StatusError:
		return true
	}
	return false
}

// NeedsReview kết quả chưa xác định được tới cấp xã
func (ar *AddressResult) NeedsReview() bool {
	return ar.Status == StatusWarning || ar.Status == StatusError
}
