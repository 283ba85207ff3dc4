package export

import (
	"fmt"
	"io"
	"time"

	"github.com/address-resolver/internal/resolver"
	"github.com/xuri/excelize/v2"
)

// SheetName tên sheet kết quả
const SheetName = "Kết quả"

// headerRow dòng tiêu đề bảng, sau 4 dòng tóm tắt và 1 dòng trống
const headerRow = 6

var columnWidths = []float64{5, 40, 20, 20, 20, 12, 12, 30}

// WriteXLSX ghi workbook một sheet: tiêu đề, tóm tắt, rồi bảng kết quả.
func WriteXLSX(w io.Writer, rows []resolver.Row, generatedAt time.Time) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return fmt.Errorf("đổi tên sheet: %w", err)
	}

	titleStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 14},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return fmt.Errorf("tạo style tiêu đề: %w", err)
	}
	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11, Color: "#FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return fmt.Errorf("tạo style header: %w", err)
	}

	summary := resolver.Summarize(rows)
	lastCol, _ := excelize.ColumnNumberToName(len(Headers))

	// Tóm tắt
	f.SetCellValue(SheetName, "A1", "KẾT QUẢ CHUYỂN ĐỔI ĐỊA CHỈ")
	if err := f.MergeCell(SheetName, "A1", lastCol+"1"); err != nil {
		return fmt.Errorf("merge tiêu đề: %w", err)
	}
	f.SetCellStyle(SheetName, "A1", lastCol+"1", titleStyle)

	f.SetCellValue(SheetName, "A2", "Thời gian:")
	f.SetCellValue(SheetName, "B2", generatedAt.Format("15:04:05 02/01/2006"))
	f.SetCellValue(SheetName, "A3", "Tổng số:")
	f.SetCellValue(SheetName, "B3", summary.Total)
	f.SetCellValue(SheetName, "C3", "địa chỉ")
	f.SetCellValue(SheetName, "A4", "Tỷ lệ thành công:")
	f.SetCellValue(SheetName, "B4", Percent(summary.SuccessRate))

	// Bảng kết quả
	for i, header := range Headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, headerRow)
		f.SetCellValue(SheetName, cell, header)
		f.SetCellStyle(SheetName, cell, cell, headerStyle)
	}

	for rowIdx, r := range rows {
		row := headerRow + 1 + rowIdx
		f.SetCellValue(SheetName, fmt.Sprintf("A%d", row), r.Index)
		for col, value := range record(r)[1:] {
			cell, _ := excelize.CoordinatesToCellName(col+2, row)
			f.SetCellValue(SheetName, cell, value)
		}
	}

	for i, width := range columnWidths {
		col, _ := excelize.ColumnNumberToName(i + 1)
		f.SetColWidth(SheetName, col, col, width)
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("ghi file Excel: %w", err)
	}
	return nil
}
