package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/address-resolver/app/config"
	"github.com/address-resolver/internal/catalog"
	"github.com/address-resolver/internal/export"
	"github.com/address-resolver/internal/normalizer"
	"github.com/address-resolver/internal/parser"
	"github.com/address-resolver/internal/resolver"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

func main() {
	var (
		configPath  = flag.String("config", "", "đường dẫn file cấu hình YAML")
		catalogPath = flag.String("catalog", "", "file catalog JSON (mặc định catalog.path trong cấu hình)")
		inPath      = flag.String("in", "", "file địa chỉ đầu vào: .txt mỗi dòng một địa chỉ, hoặc .xlsx cột A")
		outPath     = flag.String("out", "result.xlsx", "file kết quả .xlsx hoặc .csv")
		workers     = flag.Int("workers", 0, "số worker (mặc định batch.workers)")
		printConfig = flag.Bool("print-config", false, "in cấu hình đã hợp nhất rồi thoát")
	)
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if *printConfig {
		if err := config.Dump(os.Stdout, cfg); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		return
	}

	logger, err := zap.NewDevelopment()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	if *inPath == "" {
		logger.Fatal("Thiếu -in")
	}
	if *catalogPath == "" {
		*catalogPath = cfg.Catalog.Path
	}
	if *workers <= 0 {
		*workers = cfg.Batch.Workers
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, *catalogPath, *inPath, *outPath, *workers, logger); err != nil {
		logger.Fatal("Batch thất bại", zap.Error(err))
	}
}

func run(ctx context.Context, cfg *config.Config, catalogPath, inPath, outPath string, workers int, logger *zap.Logger) error {
	norm := normalizer.New()

	cat, err := loadCatalog(catalogPath, norm, logger)
	if err != nil {
		return err
	}

	lines, err := readAddresses(inPath)
	if err != nil {
		return err
	}
	logger.Info("Đã đọc địa chỉ", zap.String("path", inPath), zap.Int("lines", len(lines)))

	p, err := parser.NewAddressParser(norm, cfg.Scoring, nil, logger)
	if err != nil {
		return err
	}
	br := resolver.NewBatchResolver(p, parser.NewAddressMatcher(cfg.Scoring, logger), workers, logger)

	start := time.Now()
	rows, err := br.ResolveBatch(ctx, cat, lines, progressLogger(logger))
	if err != nil {
		return fmt.Errorf("xử lý dừng sau %d/%d dòng: %w", len(rows), len(lines), err)
	}

	if err := writeResults(outPath, rows); err != nil {
		return err
	}

	s := resolver.Summarize(rows)
	logger.Info("Hoàn thành",
		zap.String("out", outPath),
		zap.Duration("elapsed", time.Since(start)))
	fmt.Printf("Tổng: %d | Thành công: %d | Cảnh báo: %d | Lỗi: %d | Tỷ lệ thành công: %s\n",
		s.Total, s.Success, s.Warning, s.Error, export.Percent(s.SuccessRate))
	return nil
}

func loadCatalog(path string, norm *normalizer.Normalizer, logger *zap.Logger) (*catalog.Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("không thể mở file catalog: %w", err)
	}
	defer f.Close()

	records, err := catalog.DecodeRecords(f)
	if err != nil {
		return nil, err
	}
	cat, diags := catalog.Build(records, catalog.WithNormalizer(norm.Normalize))
	for _, d := range diags {
		logger.Warn("Catalog", zap.String("diagnostic", d.String()))
	}
	if !cat.Ready() {
		return nil, parser.ErrCatalogNotReady
	}
	logger.Info("Đã nạp catalog",
		zap.String("catalog_version", cat.Version()),
		zap.Int("units", cat.Len()))
	return cat, nil
}

// progressLogger ghi log mỗi khi tiến độ vượt thêm 5%
func progressLogger(logger *zap.Logger) resolver.ProgressFunc {
	next := 0
	return func(completed, total int) {
		pct := completed * 100 / total
		if pct < next && completed != total {
			return
		}
		logger.Info("Tiến độ", zap.Int("completed", completed), zap.Int("total", total), zap.Int("percent", pct))
		next = pct - pct%5 + 5
	}
}

func readAddresses(path string) ([]string, error) {
	if strings.EqualFold(filepath.Ext(path), ".xlsx") {
		return readXLSX(path)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return readLines(f)
}

// readLines đọc mỗi dòng một địa chỉ, bỏ dòng trống
func readLines(r io.Reader) ([]string, error) {
	var lines []string
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	for sc.Scan() {
		if line := strings.TrimSpace(strings.TrimPrefix(sc.Text(), "\uFEFF")); line != "" {
			lines = append(lines, line)
		}
	}
	return lines, sc.Err()
}

// readXLSX lấy cột A của sheet đầu tiên
func readXLSX(path string) ([]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("file %s không có sheet", path)
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, err
	}

	var lines []string
	for _, row := range rows {
		if len(row) == 0 {
			continue
		}
		if v := strings.TrimSpace(row[0]); v != "" {
			lines = append(lines, v)
		}
	}
	return lines, nil
}

func writeResults(path string, rows []resolver.Row) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()

	w := bufio.NewWriter(f)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		err = export.WriteCSV(w, rows)
	case ".xlsx":
		err = export.WriteXLSX(w, rows, time.Now())
	default:
		return fmt.Errorf("định dạng kết quả không hỗ trợ: %s", path)
	}
	if err != nil {
		return err
	}
	return w.Flush()
}
