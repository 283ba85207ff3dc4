package services

import (
	"sync/atomic"
	"time"

	"github.com/address-resolver/internal/catalog"
)

// CatalogStore giữ catalog đang phục vụ. Catalog là bất biến nên chỉ cần thay con trỏ.
type CatalogStore struct {
	current  atomic.Pointer[catalog.Catalog]
	loadedAt atomic.Int64
}

// NewCatalogStore tạo store rỗng; Load trả về nil cho tới lần Store đầu tiên
func NewCatalogStore() *CatalogStore {
	return &CatalogStore{}
}

// Load catalog hiện tại, nil nếu chưa nạp
func (cs *CatalogStore) Load() *catalog.Catalog {
	return cs.current.Load()
}

// Store thay catalog và trả về catalog cũ
func (cs *CatalogStore) Store(cat *catalog.Catalog) *catalog.Catalog {
	cs.loadedAt.Store(time.Now().UnixNano())
	return cs.current.Swap(cat)
}

// Ready catalog đã nạp và có ít nhất một tỉnh
func (cs *CatalogStore) Ready() bool {
	return cs.Load().Ready()
}

// Version phiên bản catalog hiện tại, rỗng nếu chưa nạp
func (cs *CatalogStore) Version() string {
	if cat := cs.Load(); cat != nil {
		return cat.Version()
	}
	return ""
}

// LoadedAt thời điểm Store gần nhất
func (cs *CatalogStore) LoadedAt() time.Time {
	if ns := cs.loadedAt.Load(); ns > 0 {
		return time.Unix(0, ns)
	}
	return time.Time{}
}
