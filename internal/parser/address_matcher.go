package parser

import (
	"errors"
	"sort"
	"time"

	"github.com/address-resolver/internal/catalog"
	"go.uber.org/zap"
)

// Status trạng thái cuối của một lần resolve.
type Status string

const (
	StatusSuccess Status = "success"
	StatusWarning Status = "warning"
	StatusError   Status = "error"
)

// Reason mã lý do cố định đi kèm Status.
type Reason string

const (
	ReasonResolved         Reason = "Resolved"
	ReasonNoWardMatch      Reason = "NoWardMatch"
	ReasonNoProvinceMatch  Reason = "NoProvinceMatch"
	ReasonCatalogNotReady  Reason = "CatalogNotReady"
	ReasonProcessingFailed Reason = "ProcessingFailed"
)

// Message mô tả tiếng Việt hiển thị cho người dùng.
func (r Reason) Message() string {
	switch r {
	case ReasonResolved:
		return "Chuyển đổi thành công"
	case ReasonNoWardMatch:
		return "Tìm thấy tỉnh nhưng không xác định được xã"
	case ReasonNoProvinceMatch:
		return "Không tìm thấy tỉnh/thành phố"
	case ReasonCatalogNotReady:
		return "Dữ liệu chưa sẵn sàng"
	case ReasonProcessingFailed:
		return "Lỗi xử lý"
	}
	return string(r)
}

// ErrCatalogNotReady catalog nil hoặc chưa có tỉnh nào.
var ErrCatalogNotReady = errors.New("catalog chưa sẵn sàng")

// Candidate một xã ứng viên kèm điểm, dùng cho hàng đợi review.
type Candidate struct {
	Code  string  `json:"code"`
	Name  string  `json:"name"`
	Score float64 `json:"score"`
}

// ResolutionResult kết quả resolve một địa chỉ.
type ResolutionResult struct {
	Status        Status      `json:"status"`
	Reason        Reason      `json:"reason"`
	Confidence    float64     `json:"confidence"`
	ProvinceCode  string      `json:"province_code,omitempty"`
	DistrictCode  string      `json:"district_code,omitempty"`
	WardCode      string      `json:"ward_code,omitempty"`
	ProvinceScore float64     `json:"province_score"`
	WardScore     float64     `json:"ward_score"`
	Candidates    []Candidate `json:"candidates,omitempty"`
}

// Failed kết quả lỗi cho một dòng không xử lý được.
func Failed(reason Reason) ResolutionResult {
	return ResolutionResult{Status: StatusError, Reason: reason}
}

const maxCandidates = 3

// AddressMatcher đối chiếu ParsedAddress với catalog theo thứ tự tỉnh rồi xã.
type AddressMatcher struct {
	scoring Scoring
	logger  *zap.Logger
}

// NewAddressMatcher tạo mới AddressMatcher
func NewAddressMatcher(scoring Scoring, logger *zap.Logger) *AddressMatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AddressMatcher{scoring: scoring, logger: logger}
}

// Resolve chọn tỉnh tốt nhất, rồi xã tốt nhất trong tỉnh đó. Huyện suy ra từ cha của xã.
// Lỗi duy nhất có thể trả về là ErrCatalogNotReady.
func (am *AddressMatcher) Resolve(parsed *ParsedAddress, cat *catalog.Catalog) (ResolutionResult, error) {
	if !cat.Ready() {
		return Failed(ReasonCatalogNotReady), ErrCatalogNotReady
	}
	if parsed == nil {
		parsed = &ParsedAddress{}
	}
	start := time.Now()
	s := am.scoring

	province, pScore := selectBest(cat.Provinces(), func(u *catalog.Unit) float64 {
		return s.ScoreProvince(u, parsed)
	})
	if province == nil {
		am.logger.Debug("Không tìm thấy tỉnh", zap.String("normalized", parsed.Normalized))
		return ResolutionResult{Status: StatusError, Reason: ReasonNoProvinceMatch}, nil
	}

	wards := cat.WardsOf(province.Code)
	scores := scoreAll(wards, func(w *catalog.Unit) float64 {
		return s.ScoreWard(w, cat.DistrictOf(w), parsed)
	})
	var ward *catalog.Unit
	i, wScore := argmax(scores)
	if i >= 0 {
		ward = wards[i]
	}

	result := ResolutionResult{
		ProvinceCode:  province.Code,
		ProvinceScore: pScore,
		WardScore:     wScore,
		Candidates:    topCandidates(wards, scores),
	}

	if ward == nil {
		result.Status = StatusWarning
		result.Reason = ReasonNoWardMatch
		result.Confidence = clamp01(s.WarningFactor * pScore)
	} else {
		result.Status = StatusSuccess
		result.Reason = ReasonResolved
		result.WardCode = ward.Code
		if d := cat.DistrictOf(ward); d != nil {
			result.DistrictCode = d.Code
		}
		result.Confidence = clamp01(max(s.ProvinceWeight*pScore+s.WardWeight*wScore, s.SuccessFloor))
	}

	am.logger.Debug("Đã resolve địa chỉ",
		zap.String("status", string(result.Status)),
		zap.String("province_code", result.ProvinceCode),
		zap.String("ward_code", result.WardCode),
		zap.Float64("confidence", result.Confidence),
		zap.Duration("duration", time.Since(start)))

	return result, nil
}

// topCandidates các xã điểm cao nhất (>0), giữ thứ tự catalog khi hòa điểm.
func topCandidates(wards []*catalog.Unit, scores []float64) []Candidate {
	var out []Candidate
	for i, w := range wards {
		if scores[i] > 0 {
			out = append(out, Candidate{Code: w.Code, Name: w.Name, Score: scores[i]})
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	if len(out) > maxCandidates {
		out = out[:maxCandidates]
	}
	return out
}
