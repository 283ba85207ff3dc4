// Package export ghi kết quả batch ra CSV và XLSX theo bố cục báo cáo tiếng Việt.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"strconv"

	"github.com/address-resolver/internal/parser"
	"github.com/address-resolver/internal/resolver"
)

const bom = "\uFEFF"

// Headers tiêu đề cột dùng chung cho CSV và XLSX.
var Headers = []string{"STT", "Địa chỉ gốc", "Tỉnh/Thành", "Quận/Huyện", "Xã/Phường", "Trạng thái", "Độ tin cậy", "Ghi chú"}

// StatusLabel nhãn tiếng Việt của trạng thái.
func StatusLabel(s parser.Status) string {
	switch s {
	case parser.StatusSuccess:
		return "Thành công"
	case parser.StatusWarning:
		return "Cảnh báo"
	default:
		return "Lỗi"
	}
}

// Percent làm tròn confidence về phần trăm nguyên, ví dụ 0.424 -> "42%".
func Percent(v float64) string {
	return fmt.Sprintf("%d%%", int(math.Round(v*100)))
}

func record(r resolver.Row) []string {
	return []string{
		strconv.Itoa(r.Index),
		r.Original,
		r.ProvinceName,
		r.DistrictName,
		r.WardName,
		StatusLabel(r.Result.Status),
		Percent(r.Result.Confidence),
		r.Result.Reason.Message(),
	}
}

// WriteCSV ghi BOM UTF-8 rồi bảng kết quả, để Excel mở đúng tiếng Việt.
func WriteCSV(w io.Writer, rows []resolver.Row) error {
	if _, err := io.WriteString(w, bom); err != nil {
		return fmt.Errorf("ghi BOM: %w", err)
	}

	writer := csv.NewWriter(w)
	if err := writer.Write(Headers); err != nil {
		return fmt.Errorf("ghi tiêu đề: %w", err)
	}
	for _, r := range rows {
		if err := writer.Write(record(r)); err != nil {
			return fmt.Errorf("ghi dòng %d: %w", r.Index, err)
		}
	}
	writer.Flush()
	return writer.Error()
}
