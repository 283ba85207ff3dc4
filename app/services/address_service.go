package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"sync"
	"time"

	"github.com/address-resolver/app/models"
	"github.com/address-resolver/helpers/utils"
	"github.com/address-resolver/internal/catalog"
	"github.com/address-resolver/internal/export"
	"github.com/address-resolver/internal/metrics"
	"github.com/address-resolver/internal/parser"
	"github.com/address-resolver/internal/resolver"
	"github.com/address-resolver/internal/review"
	"go.uber.org/zap"
)

var (
	// ErrCatalogNotReady catalog chưa được nạp
	ErrCatalogNotReady = parser.ErrCatalogNotReady
	// ErrJobNotFound không có job với ID này
	ErrJobNotFound = errors.New("không tìm thấy job")
	// ErrJobNotFinished job chưa chạy xong
	ErrJobNotFinished = errors.New("job chưa hoàn thành")
	// ErrJobFinished job đã kết thúc, không thể hủy
	ErrJobFinished = errors.New("job đã kết thúc")
	// ErrTooManyAddresses batch vượt giới hạn
	ErrTooManyAddresses = errors.New("số lượng địa chỉ vượt quá giới hạn")
	// ErrNoAddresses batch rỗng
	ErrNoAddresses = errors.New("danh sách địa chỉ rỗng")
	// ErrUnsupportedFormat định dạng export không hỗ trợ
	ErrUnsupportedFormat = errors.New("định dạng export không hỗ trợ")
)

// Job status constants
const (
	JobPending   = "pending"
	JobRunning   = "running"
	JobDone      = "done"
	JobFailed    = "failed"
	JobCancelled = "cancelled"
)

// AddressService service xử lý địa chỉ: resolve đơn lẻ và batch job
type AddressService struct {
	parser    *parser.AddressParser
	matcher   *parser.AddressMatcher
	batch     *resolver.BatchResolver
	catalogs  *CatalogStore
	cache     ICacheService
	reviews   ReviewQueue
	suggester *review.Suggester
	metrics   *metrics.Metrics
	logger    *zap.Logger

	maxAddresses int
	jobTTL       time.Duration
	startTime    time.Time

	mu   sync.RWMutex
	jobs map[string]*batchJob
}

// AddressServiceConfig phụ thuộc của AddressService. Cache, Reviews, Suggester và Metrics có thể nil.
type AddressServiceConfig struct {
	Parser       *parser.AddressParser
	Matcher      *parser.AddressMatcher
	Batch        *resolver.BatchResolver
	Catalogs     *CatalogStore
	Cache        ICacheService
	Reviews      ReviewQueue
	Suggester    *review.Suggester
	Metrics      *metrics.Metrics
	MaxAddresses int
	JobTTL       time.Duration
}

// JobStatus trạng thái batch job
type JobStatus struct {
	JobID              string           `json:"job_id"`
	Status             string           `json:"status"` // pending | running | done | failed | cancelled
	Progress           float64          `json:"progress"`
	Processed          int              `json:"processed"`
	Total              int              `json:"total"`
	EstimatedRemaining int              `json:"estimated_remaining_seconds"`
	Summary            resolver.Summary `json:"summary"`
	Message            string           `json:"message"`
	CreatedAt          time.Time        `json:"created_at"`
	UpdatedAt          time.Time        `json:"updated_at"`
	FinishedAt         *time.Time       `json:"finished_at,omitempty"`
}

// Finished job đã kết thúc (thành công, lỗi hoặc bị hủy)
func (js JobStatus) Finished() bool {
	switch js.Status {
	case JobDone, JobFailed, JobCancelled:
		return true
	}
	return false
}

type batchJob struct {
	status    JobStatus
	addresses []string
	rows      []resolver.Row
	cancel    context.CancelFunc
	done      chan struct{}
	startedAt time.Time
}

// NewAddressService tạo mới AddressService
func NewAddressService(cfg AddressServiceConfig, logger *zap.Logger) *AddressService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MaxAddresses <= 0 {
		cfg.MaxAddresses = 20000
	}
	if cfg.JobTTL <= 0 {
		cfg.JobTTL = time.Hour
	}
	if cfg.Batch == nil {
		cfg.Batch = resolver.NewBatchResolver(cfg.Parser, cfg.Matcher, 0, logger)
	}
	return &AddressService{
		parser:       cfg.Parser,
		matcher:      cfg.Matcher,
		batch:        cfg.Batch,
		catalogs:     cfg.Catalogs,
		cache:        cfg.Cache,
		reviews:      cfg.Reviews,
		suggester:    cfg.Suggester,
		metrics:      cfg.Metrics,
		logger:       logger,
		maxAddresses: cfg.MaxAddresses,
		jobTTL:       cfg.JobTTL,
		startTime:    time.Now(),
		jobs:         make(map[string]*batchJob),
	}
}

func catalogNames(cat *catalog.Catalog) func(string) string {
	return func(code string) string {
		if u, ok := cat.Get(code); ok {
			return u.Name
		}
		return ""
	}
}

// Resolve xử lý một địa chỉ. Trả về cờ cache hit.
func (as *AddressService) Resolve(ctx context.Context, raw string, useCache bool) (*models.AddressResult, bool, error) {
	cat := as.catalogs.Load()
	if !cat.Ready() {
		return nil, false, ErrCatalogNotReady
	}

	normalized := as.parser.Normalize(raw)
	key := CacheKey(cat.Version(), normalized)
	useCache = useCache && as.cache != nil && normalized != ""

	if useCache {
		cached, found, err := as.cache.Get(ctx, key)
		switch {
		case err != nil:
			as.metrics.RecordCacheLookup("error")
			as.logger.Warn("Lỗi đọc cache", zap.Error(err))
		case found:
			as.metrics.RecordCacheLookup("hit")
			hit := *cached
			hit.Raw = raw
			return &hit, true, nil
		default:
			as.metrics.RecordCacheLookup("miss")
		}
	}

	start := time.Now()
	parsed := as.parser.Parse(raw)
	res, err := as.matcher.Resolve(parsed, cat)
	if err != nil {
		return nil, false, err
	}

	result := models.NewAddressResult(raw, parsed, res, catalogNames(cat))
	result.GazetteerVersion = cat.Version()
	result.RawFingerprint = fingerprint(key)
	as.metrics.RecordResolution(result.Status, time.Since(start))

	if result.NeedsReview() && as.suggester != nil {
		result.Suggestions = as.suggester.Suggest(parsed, res, cat)
	}
	if result.NeedsReview() && as.reviews != nil {
		if err := as.reviews.Enqueue(ctx, models.NewAddressReview(*result, result.Suggestions)); err != nil {
			as.logger.Warn("Không thể đưa địa chỉ vào review queue", zap.Error(err))
		}
	}

	if useCache {
		if err := as.cache.Set(ctx, key, result); err != nil {
			as.logger.Warn("Lỗi ghi cache", zap.Error(err))
		}
	}
	return result, false, nil
}

// EstimateBatchProcessingTime ước tính thời gian xử lý (giây)
func (as *AddressService) EstimateBatchProcessingTime(addressCount int) int {
	// Khoảng 2000 địa chỉ/giây mỗi worker
	seconds := int(math.Ceil(float64(addressCount) / float64(2000*as.batch.Workers())))
	if seconds < 1 {
		seconds = 1
	}
	return seconds
}

// SubmitBatch tạo job và chạy ProcessBatchJob trong background
func (as *AddressService) SubmitBatch(addresses []string) (string, error) {
	if len(addresses) == 0 {
		return "", ErrNoAddresses
	}
	if len(addresses) > as.maxAddresses {
		return "", fmt.Errorf("%w (%d)", ErrTooManyAddresses, as.maxAddresses)
	}
	if !as.catalogs.Ready() {
		return "", ErrCatalogNotReady
	}

	jobID := utils.GenerateUUID()
	ctx, cancel := context.WithCancel(context.Background())
	now := time.Now()

	as.mu.Lock()
	as.jobs[jobID] = &batchJob{
		status: JobStatus{
			JobID:     jobID,
			Status:    JobPending,
			Total:     len(addresses),
			Message:   "Đang chờ xử lý",
			CreatedAt: now,
			UpdatedAt: now,
		},
		addresses: addresses,
		cancel:    cancel,
		done:      make(chan struct{}),
	}
	as.mu.Unlock()

	go as.ProcessBatchJob(ctx, jobID)

	as.logger.Info("Đã tạo batch job",
		zap.String("job_id", jobID),
		zap.Int("total_addresses", len(addresses)))
	return jobID, nil
}

// ProcessBatchJob chạy job đã đăng ký, cập nhật tiến độ theo callback của resolver
func (as *AddressService) ProcessBatchJob(ctx context.Context, jobID string) {
	as.mu.Lock()
	job, exists := as.jobs[jobID]
	if !exists {
		as.mu.Unlock()
		return
	}
	defer close(job.done)
	defer job.cancel()

	job.startedAt = time.Now()
	job.status.Status = JobRunning
	job.status.Message = "Đang xử lý..."
	job.status.UpdatedAt = job.startedAt
	addresses := job.addresses
	as.mu.Unlock()

	progress := func(completed, total int) {
		as.mu.Lock()
		defer as.mu.Unlock()

		now := time.Now()
		job.status.Processed = completed
		job.status.Progress = float64(completed) / float64(total)
		job.status.UpdatedAt = now
		if completed > 0 {
			perLine := now.Sub(job.startedAt) / time.Duration(completed)
			job.status.EstimatedRemaining = int(math.Ceil((perLine * time.Duration(total-completed)).Seconds()))
		}
	}

	rows, err := as.batch.ResolveBatch(ctx, as.catalogs.Load(), addresses, progress)

	as.mu.Lock()
	now := time.Now()
	job.rows = rows
	job.addresses = nil
	job.status.Processed = len(rows)
	job.status.Summary = resolver.Summarize(rows)
	job.status.EstimatedRemaining = 0
	job.status.UpdatedAt = now
	job.status.FinishedAt = &now
	switch {
	case err == nil:
		job.status.Status = JobDone
		job.status.Progress = 1
		job.status.Message = "Hoàn thành xử lý"
	case errors.Is(err, context.Canceled):
		job.status.Status = JobCancelled
		job.status.Message = fmt.Sprintf("Đã hủy sau %d/%d địa chỉ", len(rows), job.status.Total)
	default:
		job.status.Status = JobFailed
		job.status.Message = err.Error()
	}
	status := job.status
	as.mu.Unlock()

	as.metrics.RecordBatchJob(status.Status)
	as.metrics.AddBatchLines(len(rows))

	as.logger.Info("Batch job kết thúc",
		zap.String("job_id", jobID),
		zap.String("status", status.Status),
		zap.Int("processed", status.Processed),
		zap.Int("total", status.Total),
		zap.Float64("success_rate", status.Summary.SuccessRate))
}

func (as *AddressService) job(jobID string) (*batchJob, error) {
	as.mu.RLock()
	defer as.mu.RUnlock()

	job, exists := as.jobs[jobID]
	if !exists {
		return nil, ErrJobNotFound
	}
	return job, nil
}

// GetJobStatus lấy trạng thái job
func (as *AddressService) GetJobStatus(jobID string) (*JobStatus, error) {
	as.mu.RLock()
	defer as.mu.RUnlock()

	job, exists := as.jobs[jobID]
	if !exists {
		return nil, ErrJobNotFound
	}
	status := job.status
	return &status, nil
}

// GetJobResults lấy kết quả job đã kết thúc. Job bị hủy trả về phần đã xử lý.
func (as *AddressService) GetJobResults(jobID string) ([]resolver.Row, error) {
	as.mu.RLock()
	defer as.mu.RUnlock()

	job, exists := as.jobs[jobID]
	if !exists {
		return nil, ErrJobNotFound
	}
	if !job.status.Finished() {
		return nil, ErrJobNotFinished
	}
	return job.rows, nil
}

// RowResult chuyển một dòng batch thành AddressResult
func RowResult(row resolver.Row) *models.AddressResult {
	names := map[string]string{
		row.Result.ProvinceCode: row.ProvinceName,
		row.Result.DistrictCode: row.DistrictName,
		row.Result.WardCode:     row.WardName,
	}
	return models.NewAddressResult(row.Original, row.Parsed, row.Result, func(code string) string {
		return names[code]
	})
}

// GetJobResultsStream trả kết quả qua channel; channel đóng khi hết dữ liệu hoặc ctx bị hủy
func (as *AddressService) GetJobResultsStream(ctx context.Context, jobID string) (<-chan *models.AddressResult, error) {
	rows, err := as.GetJobResults(jobID)
	if err != nil {
		return nil, err
	}

	out := make(chan *models.AddressResult, 100)
	go func() {
		defer close(out)
		for _, row := range rows {
			select {
			case out <- RowResult(row):
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

// CancelJob hủy job đang chạy
func (as *AddressService) CancelJob(jobID string) error {
	job, err := as.job(jobID)
	if err != nil {
		return err
	}

	as.mu.RLock()
	finished := job.status.Finished()
	as.mu.RUnlock()
	if finished {
		return ErrJobFinished
	}

	job.cancel()
	as.logger.Info("Đã yêu cầu hủy batch job", zap.String("job_id", jobID))
	return nil
}

// WaitJob chờ job kết thúc hoặc ctx bị hủy
func (as *AddressService) WaitJob(ctx context.Context, jobID string) (*JobStatus, error) {
	job, err := as.job(jobID)
	if err != nil {
		return nil, err
	}
	select {
	case <-job.done:
		return as.GetJobStatus(jobID)
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// ExportJob ghi kết quả job ra CSV hoặc XLSX
func (as *AddressService) ExportJob(jobID, format string, w io.Writer) error {
	rows, err := as.GetJobResults(jobID)
	if err != nil {
		return err
	}
	switch format {
	case "csv":
		return export.WriteCSV(w, rows)
	case "xlsx":
		return export.WriteXLSX(w, rows, time.Now())
	}
	return fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
}

// PruneJobs xóa các job đã kết thúc lâu hơn job TTL
func (as *AddressService) PruneJobs(now time.Time) int {
	as.mu.Lock()
	defer as.mu.Unlock()

	pruned := 0
	for id, job := range as.jobs {
		if f := job.status.FinishedAt; f != nil && now.Sub(*f) > as.jobTTL {
			delete(as.jobs, id)
			pruned++
		}
	}
	return pruned
}

// StartJobJanitor chạy PruneJobs định kỳ cho tới khi ctx bị hủy
func (as *AddressService) StartJobJanitor(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				if n := as.PruneJobs(now); n > 0 {
					as.logger.Info("Đã xóa batch job hết hạn", zap.Int("count", n))
				}
			}
		}
	}()
}

// CatalogReady catalog đã sẵn sàng phục vụ
func (as *AddressService) CatalogReady() bool {
	return as.catalogs.Ready()
}

// GetStartTime lấy thời gian khởi động service
func (as *AddressService) GetStartTime() time.Time {
	return as.startTime
}

// GetStats lấy thống kê service
func (as *AddressService) GetStats() map[string]interface{} {
	as.mu.RLock()
	defer as.mu.RUnlock()

	byStatus := make(map[string]int)
	for _, job := range as.jobs {
		byStatus[job.status.Status]++
	}
	return map[string]interface{}{
		"uptime":          time.Since(as.startTime).Round(time.Second).String(),
		"catalog_version": as.catalogs.Version(),
		"jobs":            len(as.jobs),
		"jobs_by_status":  byStatus,
		"workers":         as.batch.Workers(),
	}
}
