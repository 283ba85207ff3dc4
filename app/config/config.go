package config

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/address-resolver/internal/parser"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Cache backends
const (
	CacheMemory = "memory"
	CacheMongo  = "mongo"
	CacheRedis  = "redis"
	CacheHybrid = "hybrid"
)

// Catalog sources
const (
	CatalogFromMongo = "mongo"
	CatalogFromFile  = "file"
)

type AppConfig struct {
	Port    string `mapstructure:"port" yaml:"port"`
	Env     string `mapstructure:"env" yaml:"env"`
	Version string `mapstructure:"version" yaml:"version"`
}

type MongoConfig struct {
	URL      string `mapstructure:"url" yaml:"url"`
	Database string `mapstructure:"database" yaml:"database"`
}

type RedisConfig struct {
	URL    string        `mapstructure:"url" yaml:"url"`
	TTL    time.Duration `mapstructure:"ttl" yaml:"ttl"`
	Prefix string        `mapstructure:"prefix" yaml:"prefix"`
}

type CacheConfig struct {
	Backend string        `mapstructure:"backend" yaml:"backend"`
	L1Size  int           `mapstructure:"l1_size" yaml:"l1_size"`
	TTL     time.Duration `mapstructure:"ttl" yaml:"ttl"`
}

type MeiliConfig struct {
	URL       string        `mapstructure:"url" yaml:"url"`
	MasterKey string        `mapstructure:"master_key" yaml:"master_key"`
	Index     string        `mapstructure:"index" yaml:"index"`
	Enabled   bool          `mapstructure:"enabled" yaml:"enabled"`
	Timeout   time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

type BatchConfig struct {
	Workers      int           `mapstructure:"workers" yaml:"workers"`
	MaxAddresses int           `mapstructure:"max_addresses" yaml:"max_addresses"`
	JobTTL       time.Duration `mapstructure:"job_ttl" yaml:"job_ttl"`
}

type RateLimitConfig struct {
	Enabled bool    `mapstructure:"enabled" yaml:"enabled"`
	RPS     float64 `mapstructure:"rps" yaml:"rps"`
	Burst   int     `mapstructure:"burst" yaml:"burst"`
}

type ReviewConfig struct {
	Enabled       bool    `mapstructure:"enabled" yaml:"enabled"`
	MaxCandidates int     `mapstructure:"max_candidates" yaml:"max_candidates"`
	JWWeight      float64 `mapstructure:"jw_weight" yaml:"jw_weight"`
	LevWeight     float64 `mapstructure:"lev_weight" yaml:"lev_weight"`
}

type CatalogConfig struct {
	Source string `mapstructure:"source" yaml:"source"`
	Path   string `mapstructure:"path" yaml:"path"`
}

// Config cấu hình toàn bộ service
type Config struct {
	App         AppConfig       `mapstructure:"app" yaml:"app"`
	Mongo       MongoConfig     `mapstructure:"mongo" yaml:"mongo"`
	Redis       RedisConfig     `mapstructure:"redis" yaml:"redis"`
	Cache       CacheConfig     `mapstructure:"cache" yaml:"cache"`
	Meilisearch MeiliConfig     `mapstructure:"meilisearch" yaml:"meilisearch"`
	Batch       BatchConfig     `mapstructure:"batch" yaml:"batch"`
	RateLimit   RateLimitConfig `mapstructure:"rate_limit" yaml:"rate_limit"`
	Review      ReviewConfig    `mapstructure:"review" yaml:"review"`
	Catalog     CatalogConfig   `mapstructure:"catalog" yaml:"catalog"`
	Scoring     parser.Scoring  `mapstructure:"scoring" yaml:"scoring"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.port", "8080")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.version", "1.0.0")

	v.SetDefault("mongo.url", "mongodb://localhost:27017/address_resolver")
	v.SetDefault("mongo.database", "address_resolver")

	v.SetDefault("redis.url", "redis://localhost:6379")
	v.SetDefault("redis.ttl", 24*time.Hour)
	v.SetDefault("redis.prefix", "addr:")

	v.SetDefault("cache.backend", CacheMemory)
	v.SetDefault("cache.l1_size", 10000)
	v.SetDefault("cache.ttl", time.Hour)

	v.SetDefault("meilisearch.url", "http://localhost:7700")
	v.SetDefault("meilisearch.master_key", "")
	v.SetDefault("meilisearch.index", "admin_units")
	v.SetDefault("meilisearch.enabled", false)
	v.SetDefault("meilisearch.timeout", 30*time.Second)

	v.SetDefault("batch.workers", 4)
	v.SetDefault("batch.max_addresses", 10000)
	v.SetDefault("batch.job_ttl", 24*time.Hour)

	v.SetDefault("rate_limit.enabled", true)
	v.SetDefault("rate_limit.rps", 50.0)
	v.SetDefault("rate_limit.burst", 100)

	v.SetDefault("review.enabled", false)
	v.SetDefault("review.max_candidates", 5)
	v.SetDefault("review.jw_weight", 0.6)
	v.SetDefault("review.lev_weight", 0.4)

	v.SetDefault("catalog.source", CatalogFromMongo)
	v.SetDefault("catalog.path", "data/catalog.json")

	s := parser.DefaultScoring()
	v.SetDefault("scoring.parse_base", s.ParseBase)
	v.SetDefault("scoring.keyword_hit", s.KeywordHit)
	v.SetDefault("scoring.positional_guess", s.PositionalGuess)
	v.SetDefault("scoring.pattern_fill", s.PatternFill)
	v.SetDefault("scoring.province_exact", s.ProvinceExact)
	v.SetDefault("scoring.province_contains", s.ProvinceContains)
	v.SetDefault("scoring.province_in_address", s.ProvinceInAddress)
	v.SetDefault("scoring.ward_exact", s.WardExact)
	v.SetDefault("scoring.ward_contains", s.WardContains)
	v.SetDefault("scoring.ward_in_address", s.WardInAddress)
	v.SetDefault("scoring.district_bonus", s.DistrictBonus)
	v.SetDefault("scoring.province_weight", s.ProvinceWeight)
	v.SetDefault("scoring.ward_weight", s.WardWeight)
	v.SetDefault("scoring.success_floor", s.SuccessFloor)
	v.SetDefault("scoring.warning_factor", s.WarningFactor)
}

// Load đọc cấu hình từ path; path rỗng thì tìm config/app.yaml hoặc ./app.yaml.
// Thiếu file khi không chỉ định path thì dùng mặc định và biến môi trường.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("app")
		v.SetConfigType("yaml")
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("đọc file cấu hình: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("giải mã cấu hình: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate kiểm tra các giá trị không hợp lệ
func (c *Config) Validate() error {
	if c.Batch.Workers <= 0 {
		return fmt.Errorf("batch.workers phải > 0, nhận %d", c.Batch.Workers)
	}
	if c.Batch.MaxAddresses <= 0 {
		return fmt.Errorf("batch.max_addresses phải > 0, nhận %d", c.Batch.MaxAddresses)
	}
	switch c.Cache.Backend {
	case CacheMemory, CacheMongo, CacheRedis, CacheHybrid:
	default:
		return fmt.Errorf("cache.backend không hợp lệ: %q", c.Cache.Backend)
	}
	switch c.Catalog.Source {
	case CatalogFromMongo, CatalogFromFile:
	default:
		return fmt.Errorf("catalog.source không hợp lệ: %q", c.Catalog.Source)
	}
	if c.Review.JWWeight < 0 || c.Review.JWWeight > 1 || c.Review.LevWeight < 0 || c.Review.LevWeight > 1 {
		return fmt.Errorf("review.jw_weight và review.lev_weight phải nằm trong [0,1]")
	}
	if c.RateLimit.Enabled && (c.RateLimit.RPS <= 0 || c.RateLimit.Burst <= 0) {
		return fmt.Errorf("rate_limit.rps và rate_limit.burst phải > 0 khi bật rate limit")
	}
	return c.Scoring.Validate()
}

// IsProduction môi trường production
func (c *Config) IsProduction() bool {
	return c.App.Env == "production"
}

// Dump ghi cấu hình đã hợp nhất dưới dạng YAML
func Dump(w io.Writer, c *Config) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(c); err != nil {
		return err
	}
	return enc.Close()
}
