package routes

import (
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/address-resolver/app/controllers"
	"github.com/address-resolver/app/responses"
	"github.com/address-resolver/helpers/utils"
	"github.com/address-resolver/internal/metrics"
	"github.com/gin-gonic/gin"
	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const requestIDHeader = "X-Request-ID"

// RequestID gắn request ID (lấy từ header hoặc sinh mới) vào context và response
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		reqID := c.GetHeader(requestIDHeader)
		if reqID == "" {
			reqID = utils.GenerateUUID()
		}
		c.Set(controllers.RequestIDKey, reqID)
		c.Header(requestIDHeader, reqID)
		c.Next()
	}
}

// Logger ghi log mỗi request bằng zap
func Logger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		c.Next()

		fields := []zap.Field{
			zap.Int("status", c.Writer.Status()),
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.String("client_ip", c.ClientIP()),
			zap.Duration("latency", time.Since(start)),
			zap.String("request_id", c.GetString(controllers.RequestIDKey)),
		}
		switch status := c.Writer.Status(); {
		case status >= http.StatusInternalServerError:
			logger.Error("HTTP request", fields...)
		case status >= http.StatusBadRequest:
			logger.Warn("HTTP request", fields...)
		default:
			logger.Info("HTTP request", fields...)
		}
	}
}

// Recovery bắt panic, ghi log và trả 500
func Recovery(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				logger.Error("Panic khi xử lý request",
					zap.Any("panic", r),
					zap.String("path", c.Request.URL.Path),
					zap.String("request_id", c.GetString(controllers.RequestIDKey)))
				c.AbortWithStatusJSON(http.StatusInternalServerError, responses.ErrorResponse{
					Error:     responses.CodeInternalError,
					Message:   fmt.Sprint("Lỗi nội bộ: ", r),
					Timestamp: time.Now().Format(time.RFC3339),
					RequestID: c.GetString(controllers.RequestIDKey),
				})
			}
		}()
		c.Next()
	}
}

// Metrics ghi số request và độ trễ theo route
func Metrics(m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.RecordHTTPRequest(c.Request.Method, route, strconv.Itoa(c.Writer.Status()), time.Since(start))
	}
}

// ipLimiter token bucket riêng cho từng IP, giữ tối đa size IP gần nhất
type ipLimiter struct {
	mu       sync.Mutex
	limiters *lru.Cache[string, *rate.Limiter]
	rps      rate.Limit
	burst    int
}

func newIPLimiter(rps float64, burst, size int) (*ipLimiter, error) {
	cache, err := lru.New[string, *rate.Limiter](size)
	if err != nil {
		return nil, err
	}
	return &ipLimiter{limiters: cache, rps: rate.Limit(rps), burst: burst}, nil
}

func (l *ipLimiter) get(ip string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	if lim, ok := l.limiters.Get(ip); ok {
		return lim
	}
	lim := rate.NewLimiter(l.rps, l.burst)
	l.limiters.Add(ip, lim)
	return lim
}

// RateLimit giới hạn request theo IP, trả 429 RATE_LIMITED khi vượt
func RateLimit(rps float64, burst int) gin.HandlerFunc {
	limiter, err := newIPLimiter(rps, burst, 10000)
	if err != nil {
		panic(fmt.Sprintf("không thể tạo rate limiter: %v", err))
	}
	return func(c *gin.Context) {
		if !limiter.get(c.ClientIP()).Allow() {
			c.Header("Retry-After", "1")
			c.AbortWithStatusJSON(http.StatusTooManyRequests, responses.ErrorResponse{
				Error:     responses.CodeRateLimited,
				Message:   "Quá nhiều request, vui lòng thử lại sau",
				Timestamp: time.Now().Format(time.RFC3339),
				RequestID: c.GetString(controllers.RequestIDKey),
			})
			return
		}
		c.Next()
	}
}
