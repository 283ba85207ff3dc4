// Package resolver chạy parser và matcher trên danh sách địa chỉ, giữ nguyên thứ tự đầu vào.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/address-resolver/internal/catalog"
	"github.com/address-resolver/internal/parser"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Parser tách một dòng địa chỉ.
type Parser interface {
	Parse(raw string) *parser.ParsedAddress
}

// Matcher đối chiếu địa chỉ đã tách với catalog.
type Matcher interface {
	Resolve(parsed *parser.ParsedAddress, cat *catalog.Catalog) (parser.ResolutionResult, error)
}

// Row kết quả của một dòng đầu vào.
type Row struct {
	Index        int                     `json:"index"`
	Original     string                  `json:"original"`
	Parsed       *parser.ParsedAddress   `json:"parsed,omitempty"`
	Result       parser.ResolutionResult `json:"result"`
	ProvinceName string                  `json:"province_name,omitempty"`
	DistrictName string                  `json:"district_name,omitempty"`
	WardName     string                  `json:"ward_name,omitempty"`
}

// ProgressFunc nhận tiến độ sau mỗi dòng; các lần gọi được tuần tự hóa.
type ProgressFunc func(completed, total int)

// BatchResolver xử lý song song nhiều dòng bằng một worker pool giới hạn.
type BatchResolver struct {
	parser  Parser
	matcher Matcher
	workers int
	logger  *zap.Logger
}

// NewBatchResolver tạo mới BatchResolver. workers <= 0 thì lấy theo số CPU.
func NewBatchResolver(p Parser, m Matcher, workers int, logger *zap.Logger) *BatchResolver {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BatchResolver{parser: p, matcher: m, workers: workers, logger: logger}
}

// Workers số worker tối đa.
func (br *BatchResolver) Workers() int {
	return br.workers
}

// ResolveOne xử lý một dòng; panic hoặc lỗi đều thành dòng lỗi ProcessingFailed.
func (br *BatchResolver) ResolveOne(index int, line string, cat *catalog.Catalog) (row Row) {
	row = Row{Index: index, Original: line}
	defer func() {
		if r := recover(); r != nil {
			br.logger.Error("Panic khi xử lý địa chỉ",
				zap.Int("index", index),
				zap.String("address", line),
				zap.Any("panic", r))
			row.Result = parser.Failed(parser.ReasonProcessingFailed)
		}
	}()

	row.Parsed = br.parser.Parse(line)
	res, err := br.matcher.Resolve(row.Parsed, cat)
	if err != nil {
		br.logger.Warn("Lỗi resolve địa chỉ",
			zap.Int("index", index),
			zap.String("address", line),
			zap.Error(err))
		if errors.Is(err, parser.ErrCatalogNotReady) {
			row.Result = parser.Failed(parser.ReasonCatalogNotReady)
		} else {
			row.Result = parser.Failed(parser.ReasonProcessingFailed)
		}
		return row
	}

	row.Result = res
	row.ProvinceName = unitName(cat, res.ProvinceCode)
	row.DistrictName = unitName(cat, res.DistrictCode)
	row.WardName = unitName(cat, res.WardCode)
	return row
}

func unitName(cat *catalog.Catalog, code string) string {
	if code == "" {
		return ""
	}
	if u, ok := cat.Get(code); ok {
		return u.Name
	}
	return ""
}

// ResolveBatch trả về đúng một Row cho mỗi dòng, cùng thứ tự với lines.
// Khi ctx bị hủy, trả về ctx.Err() cùng tiền tố dài nhất các dòng đã xử lý xong.
func (br *BatchResolver) ResolveBatch(ctx context.Context, cat *catalog.Catalog, lines []string, progress ProgressFunc) ([]Row, error) {
	if !cat.Ready() {
		return nil, parser.ErrCatalogNotReady
	}

	start := time.Now()
	total := len(lines)
	rows := make([]Row, total)
	done := make([]bool, total)

	var (
		mu        sync.Mutex
		completed int
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(br.workers)

	for i, line := range lines {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			row := br.ResolveOne(i+1, line, cat)

			mu.Lock()
			defer mu.Unlock()
			rows[i] = row
			done[i] = true
			completed++
			if progress != nil {
				progress(completed, total)
			}
			return nil
		})
	}
	_ = g.Wait()

	processed := 0
	for processed < total && done[processed] {
		processed++
	}

	if processed < total {
		err := ctx.Err()
		if err == nil {
			err = fmt.Errorf("batch dừng sau %d/%d dòng", processed, total)
		}
		br.logger.Warn("Batch bị hủy",
			zap.Int("processed", processed),
			zap.Int("total", total),
			zap.Error(err))
		return rows[:processed], err
	}

	br.logger.Info("Hoàn thành batch",
		zap.Int("total", total),
		zap.Int("workers", br.workers),
		zap.Duration("duration", time.Since(start)))
	return rows, nil
}

// Summary thống kê một batch.
type Summary struct {
	Total       int     `json:"total"`
	Success     int     `json:"success"`
	Warning     int     `json:"warning"`
	Error       int     `json:"error"`
	SuccessRate float64 `json:"success_rate"`
}

// Summarize đếm số dòng theo trạng thái; SuccessRate nằm trong [0,1].
func Summarize(rows []Row) Summary {
	s := Summary{Total: len(rows)}
	for _, r := range rows {
		switch r.Result.Status {
		case parser.StatusSuccess:
			s.Success++
		case parser.StatusWarning:
			s.Warning++
		default:
			s.Error++
		}
	}
	if s.Total > 0 {
		s.SuccessRate = float64(s.Success) / float64(s.Total)
	}
	return s
}
