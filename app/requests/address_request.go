package requests

import "github.com/address-resolver/internal/catalog"

// ParseAddressRequest request parse địa chỉ đơn lẻ
type ParseAddressRequest struct {
	Address string       `json:"address" binding:"required"` // Địa chỉ cần parse
	Options ParseOptions `json:"options,omitempty"`          // Tùy chọn parse
}

// ParseOptions tùy chọn parse
type ParseOptions struct {
	UseCache         *bool `json:"use_cache,omitempty"`         // Mặc định dùng cache
	ReturnCandidates bool  `json:"return_candidates,omitempty"` // Có trả về candidates không
}

// CacheEnabled cache được bật trừ khi client tắt rõ ràng
func (o ParseOptions) CacheEnabled() bool {
	return o.UseCache == nil || *o.UseCache
}

// BatchParseRequest request parse hàng loạt địa chỉ
type BatchParseRequest struct {
	Addresses []string `json:"addresses" binding:"required,min=1"` // Danh sách địa chỉ
}

// SeedCatalogRequest request seed catalog. Records có thể lồng nhau hoặc phẳng;
// Provinces/Districts/Wards là bố cục ba bảng.
type SeedCatalogRequest struct {
	Version        string           `json:"version"`
	Records        []catalog.Record `json:"records,omitempty"`
	Provinces      []catalog.Record `json:"provinces,omitempty"`
	Districts      []catalog.Record `json:"districts,omitempty"`
	Wards          []catalog.Record `json:"wards,omitempty"`
	RebuildIndexes bool             `json:"rebuild_indexes,omitempty"` // Có rebuild Meilisearch không
}

// AllRecords gộp hai bố cục dữ liệu
func (r *SeedCatalogRequest) AllRecords() []catalog.Record {
	if len(r.Provinces)+len(r.Districts)+len(r.Wards) == 0 {
		return r.Records
	}
	return append(append([]catalog.Record{}, r.Records...), catalog.FromTables(r.Provinces, r.Districts, r.Wards)...)
}

// ReviewActionRequest request duyệt hoặc từ chối review
type ReviewActionRequest struct {
	ReviewerID   string `json:"reviewer_id" binding:"required"` // ID người review
	SelectedCode string `json:"selected_code,omitempty"`        // Mã đơn vị được chọn
	Note         string `json:"note,omitempty"`
}
