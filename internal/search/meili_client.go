// Package search đưa catalog đơn vị hành chính lên Meilisearch và tra cứu trên đó.
package search

import (
	"fmt"

	"github.com/address-resolver/internal/catalog"
)

// FilterLevelParent tạo filter theo cấp và mã cha; parentID rỗng thì chỉ lọc theo cấp.
func FilterLevelParent(level catalog.Level, parentID string) string {
	switch {
	case level == catalog.LevelUnknown && parentID == "":
		return ""
	case level == catalog.LevelUnknown:
		return fmt.Sprintf("parent_id = %q", parentID)
	case parentID == "":
		return FilterLevel(level)
	}
	return fmt.Sprintf("level = %d AND parent_id = %q", int(level), parentID)
}

// FilterLevel filter đơn giản theo cấp
func FilterLevel(level catalog.Level) string {
	return fmt.Sprintf("level = %d", int(level))
}

// FilterProvince lọc mọi đơn vị thuộc một tỉnh.
func FilterProvince(provinceID string) string {
	return fmt.Sprintf("province_id = %q", provinceID)
}
