package main

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestReadLines(t *testing.T) {
	in := "\uFEFFxã Thanh Bình, Chợ Gạo\n\n   \n  phường Bến Thành, HCM  \r\n"

	lines, err := readLines(strings.NewReader(in))
	require.NoError(t, err)
	assert.Equal(t, []string{"xã Thanh Bình, Chợ Gạo", "phường Bến Thành, HCM"}, lines)
}

func TestReadXLSX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "in.xlsx")

	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	require.NoError(t, f.SetCellValue(sheet, "A1", "xã Thanh Bình, Tiền Giang"))
	require.NoError(t, f.SetCellValue(sheet, "A3", "  Hà Nội "))
	require.NoError(t, f.SetCellValue(sheet, "B3", "bỏ qua"))
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())

	lines, err := readAddresses(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"xã Thanh Bình, Tiền Giang", "Hà Nội"}, lines)
}

func TestProgressLogger_EveryFivePercent(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	progress := progressLogger(zap.New(core))

	for i := 1; i <= 100; i++ {
		progress(i, 100)
	}

	// 1%, rồi 5%, 10%, ..., 100%
	assert.Equal(t, 21, logs.Len())
	last := logs.All()[logs.Len()-1].ContextMap()
	assert.EqualValues(t, 100, last["percent"])
}

func TestWriteResults_RejectsUnknownExtension(t *testing.T) {
	err := writeResults(filepath.Join(t.TempDir(), "out.json"), nil)
	assert.Error(t, err)
}
