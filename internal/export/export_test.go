package export

import (
	"bytes"
	"encoding/csv"
	"strings"
	"testing"
	"time"

	"github.com/address-resolver/internal/parser"
	"github.com/address-resolver/internal/resolver"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func sampleRows() []resolver.Row {
	return []resolver.Row{
		{
			Index:        1,
			Original:     "xã Thanh Bình, huyện Chợ Gạo, tỉnh Tiền Giang",
			ProvinceName: "Tỉnh Tiền Giang",
			DistrictName: "Huyện Chợ Gạo",
			WardName:     "Xã Thanh Bình",
			Result: parser.ResolutionResult{
				Status:     parser.StatusSuccess,
				Reason:     parser.ReasonResolved,
				Confidence: 1,
			},
		},
		{
			Index:        2,
			Original:     "Hà Nội",
			ProvinceName: "Thành phố Hà Nội",
			Result: parser.ResolutionResult{
				Status:     parser.StatusWarning,
				Reason:     parser.ReasonNoWardMatch,
				Confidence: 0.424,
			},
		},
		{
			Index:    3,
			Original: "qwerty, \"asdf\"",
			Result:   parser.Failed(parser.ReasonNoProvinceMatch),
		},
	}
}

func TestStatusLabel(t *testing.T) {
	assert.Equal(t, "Thành công", StatusLabel(parser.StatusSuccess))
	assert.Equal(t, "Cảnh báo", StatusLabel(parser.StatusWarning))
	assert.Equal(t, "Lỗi", StatusLabel(parser.StatusError))
}

func TestPercent(t *testing.T) {
	assert.Equal(t, "100%", Percent(1))
	assert.Equal(t, "42%", Percent(0.424))
	assert.Equal(t, "43%", Percent(0.426))
	assert.Equal(t, "0%", Percent(0))
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, sampleRows()))

	out := buf.String()
	require.True(t, strings.HasPrefix(out, bom))

	records, err := csv.NewReader(strings.NewReader(strings.TrimPrefix(out, bom))).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 4)

	assert.Equal(t, Headers, records[0])
	assert.Equal(t, []string{"1", "xã Thanh Bình, huyện Chợ Gạo, tỉnh Tiền Giang", "Tỉnh Tiền Giang", "Huyện Chợ Gạo", "Xã Thanh Bình", "Thành công", "100%", "Chuyển đổi thành công"}, records[1])
	assert.Equal(t, "42%", records[2][6])
	assert.Equal(t, "Tìm thấy tỉnh nhưng không xác định được xã", records[2][7])
	assert.Equal(t, "qwerty, \"asdf\"", records[3][1])
	assert.Equal(t, "Lỗi", records[3][5])
}

func TestWriteCSV_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, nil))

	records, err := csv.NewReader(strings.NewReader(strings.TrimPrefix(buf.String(), bom))).ReadAll()
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestWriteXLSX(t *testing.T) {
	var buf bytes.Buffer
	at := time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC)
	require.NoError(t, WriteXLSX(&buf, sampleRows(), at))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{SheetName}, f.GetSheetList())

	cell := func(axis string) string {
		v, err := f.GetCellValue(SheetName, axis)
		require.NoError(t, err)
		return v
	}

	assert.Equal(t, "KẾT QUẢ CHUYỂN ĐỔI ĐỊA CHỈ", cell("A1"))
	assert.Equal(t, "09:30:00 01/05/2024", cell("B2"))
	assert.Equal(t, "3", cell("B3"))
	assert.Equal(t, "33%", cell("B4"))

	assert.Equal(t, "STT", cell("A6"))
	assert.Equal(t, "Ghi chú", cell("H6"))
	assert.Equal(t, "1", cell("A7"))
	assert.Equal(t, "Xã Thanh Bình", cell("E7"))
	assert.Equal(t, "Cảnh báo", cell("F8"))
	assert.Equal(t, "Không tìm thấy tỉnh/thành phố", cell("H9"))

	merged, err := f.GetMergeCells(SheetName)
	require.NoError(t, err)
	require.Len(t, merged, 1)
	assert.Equal(t, "A1", merged[0].GetStartAxis())
	assert.Equal(t, "H1", merged[0].GetEndAxis())

	width, err := f.GetColWidth(SheetName, "B")
	require.NoError(t, err)
	assert.InDelta(t, 40, width, 0.01)
}
