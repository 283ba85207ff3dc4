package models

import (
	"time"

	"github.com/address-resolver/internal/catalog"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// AdminUnit đơn vị hành chính lưu trong collection admin_units
type AdminUnit struct {
	ID               primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	AdminID          string             `bson:"admin_id" json:"admin_id"`                       // Mã đơn vị
	ParentID         string             `bson:"parent_id,omitempty" json:"parent_id,omitempty"` // Mã đơn vị cha
	ProvinceID       string             `bson:"province_id" json:"province_id"`                 // Mã tỉnh chứa đơn vị
	Level            int                `bson:"level" json:"level"`                             // 1=tỉnh, 2=huyện, 3=xã
	LevelName        string             `bson:"level_name" json:"level_name"`
	Name             string             `bson:"name" json:"name"`                       // Tên chính thức
	NormalizedName   string             `bson:"normalized_name" json:"normalized_name"` // Tên đã chuẩn hóa
	CoreName         string             `bson:"core_name" json:"core_name"`             // Tên bỏ từ chỉ cấp
	Path             []string           `bson:"path" json:"path"`                       // Mã từ tỉnh tới đơn vị
	Seq              int                `bson:"seq" json:"seq"`                         // Thứ tự trong catalog
	GazetteerVersion string             `bson:"gazetteer_version" json:"gazetteer_version"`
	CreatedAt        time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt        time.Time          `bson:"updated_at" json:"updated_at"`
}

// AdminUnitsFromCatalog chuyển catalog thành documents cho admin_units
func AdminUnitsFromCatalog(cat *catalog.Catalog, version string, now time.Time) []AdminUnit {
	units := cat.Units()
	out := make([]AdminUnit, 0, len(units))
	for i, u := range units {
		path := cat.Path(u)
		codes := make([]string, len(path))
		for i, p := range path {
			codes[i] = p.Code
		}
		provinceID := ""
		if p := cat.ProvinceOf(u); p != nil {
			provinceID = p.Code
		}
		out = append(out, AdminUnit{
			AdminID:          u.Code,
			ParentID:         u.ParentCode,
			ProvinceID:       provinceID,
			Level:            int(u.Level),
			LevelName:        u.Level.String(),
			Name:             u.Name,
			NormalizedName:   u.NameNormalized,
			CoreName:         u.CoreName,
			Path:             codes,
			Seq:              i,
			GazetteerVersion: version,
			CreatedAt:        now,
			UpdatedAt:        now,
		})
	}
	return out
}

// Record chuyển ngược về bản ghi phẳng để dựng lại catalog
func (au *AdminUnit) Record() catalog.Record {
	return catalog.Record{
		Code:       catalog.Code(au.AdminID),
		Name:       au.Name,
		ParentCode: catalog.Code(au.ParentID),
		Level:      catalog.Level(au.Level),
	}
}

// IsValidLevel kiểm tra level có hợp lệ không
func (au *AdminUnit) IsValidLevel() bool {
	return au.Level >= int(catalog.LevelProvince) && au.Level <= int(catalog.LevelWard)
}
