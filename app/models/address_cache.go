package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// AddressCache cache kết quả xử lý địa chỉ trong MongoDB
type AddressCache struct {
	ID               primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	RawFingerprint   string             `bson:"raw_fingerprint" json:"raw_fingerprint"`     // SHA-256 của khóa cache
	CacheKey         string             `bson:"cache_key" json:"cache_key"`                 // version|địa chỉ chuẩn hóa
	RawAddress       string             `bson:"raw_address" json:"raw_address"`             // Địa chỉ gốc
	Normalized       string             `bson:"normalized" json:"normalized"`               // Văn bản đã chuẩn hóa
	ParsedResult     AddressResult      `bson:"parsed_result" json:"parsed_result"`         // Kết quả
	Confidence       float64            `bson:"confidence" json:"confidence"`               // Độ tin cậy
	GazetteerVersion string             `bson:"gazetteer_version" json:"gazetteer_version"` // Phiên bản catalog
	CreatedAt        time.Time          `bson:"created_at" json:"created_at"`
	ExpiresAt        time.Time          `bson:"expires_at" json:"expires_at"`
	LastAccessed     time.Time          `bson:"last_accessed" json:"last_accessed"`
	AccessCount      int                `bson:"access_count" json:"access_count"`
}

// NewAddressCache tạo mới một AddressCache
func NewAddressCache(key, fingerprint string, result AddressResult, ttl time.Duration) *AddressCache {
	now := time.Now()
	return &AddressCache{
		RawFingerprint:   fingerprint,
		CacheKey:         key,
		RawAddress:       result.Raw,
		Normalized:       result.Normalized,
		ParsedResult:     result,
		Confidence:       result.Confidence,
		GazetteerVersion: result.GazetteerVersion,
		CreatedAt:        now,
		ExpiresAt:        now.Add(ttl),
		LastAccessed:     now,
		AccessCount:      1,
	}
}

// UpdateAccess cập nhật thông tin truy cập
func (ac *AddressCache) UpdateAccess() {
	ac.LastAccessed = time.Now()
	ac.AccessCount++
}

// IsExpired kiểm tra cache đã hết hạn chưa
func (ac *AddressCache) IsExpired(now time.Time) bool {
	return !ac.ExpiresAt.IsZero() && now.After(ac.ExpiresAt)
}

// IsValidGazetteerVersion kiểm tra phiên bản gazetteer có khớp không
func (ac *AddressCache) IsValidGazetteerVersion(currentVersion string) bool {
	return ac.GazetteerVersion == currentVersion
}
