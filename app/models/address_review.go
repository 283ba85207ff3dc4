package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// AddressReview địa chỉ cần review
type AddressReview struct {
	ID               primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	RawAddress       string             `bson:"raw_address" json:"raw_address"`                         // Địa chỉ gốc
	Normalized       string             `bson:"normalized" json:"normalized"`                           // Văn bản đã chuẩn hóa
	AutoResult       AddressResult      `bson:"auto_result" json:"auto_result"`                         // Kết quả tự động
	Confidence       float64            `bson:"confidence" json:"confidence"`                           // Độ tin cậy
	Suggestions      []Candidate        `bson:"suggestions" json:"suggestions"`                         // Gợi ý
	Status           string             `bson:"status" json:"status"`                                   // Trạng thái review
	SelectedCode     string             `bson:"selected_code,omitempty" json:"selected_code,omitempty"` // Mã được chọn khi duyệt
	ReviewerID       string             `bson:"reviewer_id,omitempty" json:"reviewer_id,omitempty"`     // ID người review
	Note             string             `bson:"note,omitempty" json:"note,omitempty"`
	GazetteerVersion string             `bson:"gazetteer_version" json:"gazetteer_version"`
	ReviewedAt       *time.Time         `bson:"reviewed_at,omitempty" json:"reviewed_at,omitempty"`
	CreatedAt        time.Time          `bson:"created_at" json:"created_at"`
}

// Status constants
const (
	ReviewStatusPending  = "pending"
	ReviewStatusApproved = "approved"
	ReviewStatusRejected = "rejected"
)

// NewAddressReview tạo mới một AddressReview ở trạng thái pending
func NewAddressReview(result AddressResult, suggestions []Candidate) *AddressReview {
	return &AddressReview{
		RawAddress:       result.Raw,
		Normalized:       result.Normalized,
		AutoResult:       result,
		Confidence:       result.Confidence,
		Suggestions:      suggestions,
		Status:           ReviewStatusPending,
		GazetteerVersion: result.GazetteerVersion,
		CreatedAt:        time.Now(),
	}
}

// IsValidStatus kiểm tra status có hợp lệ không
func (ar *AddressReview) IsValidStatus() bool {
	switch ar.Status {
	case ReviewStatusPending, ReviewStatusApproved, ReviewStatusRejected:
		return true
	}
	return false
}

// Approve phê duyệt, kèm mã đơn vị được chọn (có thể rỗng)
func (ar *AddressReview) Approve(reviewerID, selectedCode, note string) {
	ar.complete(ReviewStatusApproved, reviewerID, note)
	ar.SelectedCode = selectedCode
}

// Reject từ chối kết quả tự động
func (ar *AddressReview) Reject(reviewerID, note string) {
	ar.complete(ReviewStatusRejected, reviewerID, note)
}

func (ar *AddressReview) complete(status, reviewerID, note string) {
	ar.Status = status
	ar.ReviewerID = reviewerID
	ar.Note = note
	now := time.Now()
	ar.ReviewedAt = &now
}

// IsPending kiểm tra có đang chờ review không
func (ar *AddressReview) IsPending() bool {
	return ar.Status == ReviewStatusPending
}
