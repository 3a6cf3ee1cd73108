package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"sentiment_dashboard/internal/analysis"
)

// Config holds service configuration derived from environment variables, an
// optional config file and defaults, in that order of precedence.
type Config struct {
	HTTPPort      string
	Environment   string
	DBPath        string
	ReportsDir    string
	EnableWatcher bool

	WorkerCount   int
	JobQueueSize  int
	JobTimeoutSec int

	MaxUploadBytes   int64
	SessionTTL       time.Duration
	SweepInterval    time.Duration
	HistoryRetention time.Duration

	Analysis     AnalysisConfig
	ConfigPath   string
	StrictConfig bool
}

// AnalysisConfig tunes the aggregates computed for each view.
type AnalysisConfig struct {
	StopWords       []string `json:"stop_words" yaml:"stop_words"`
	TopWords        int      `json:"top_words" yaml:"top_words"`
	SamplesPerLabel int      `json:"samples_per_label" yaml:"samples_per_label"`
}

type fileConfig struct {
	HTTPPort       string         `json:"http_port" yaml:"http_port"`
	DBPath         string         `json:"db_path" yaml:"db_path"`
	ReportsDir     string         `json:"reports_dir" yaml:"reports_dir"`
	MaxUploadBytes int64          `json:"max_upload_bytes" yaml:"max_upload_bytes"`
	SessionTTL     string         `json:"session_ttl" yaml:"session_ttl"`
	Analysis       AnalysisConfig `json:"analysis" yaml:"analysis"`
}

const (
	defaultPort             = ":8000"
	defaultEnvironment      = "local"
	defaultReportsDir       = "runtime/reports"
	defaultDBPath           = "runtime/dashboard.db"
	minQueueSize            = 1
	defaultQueueSize        = 64
	maxQueueSize            = 1024
	defaultWorkerCount      = 2
	maxWorkerCount          = 64
	defaultJobTimeoutSec    = 30
	minUploadBytes          = 1 << 10
	defaultMaxUploadBytes   = 50 << 20
	maxUploadBytes          = 1 << 30
	defaultSessionTTL       = 2 * time.Hour
	defaultSweepInterval    = time.Minute
	defaultHistoryRetention = 30 * 24 * time.Hour
)

// DefaultAnalysisConfig returns the stock word-frequency and sampling settings.
func DefaultAnalysisConfig() AnalysisConfig {
	opts := analysis.DefaultOptions()
	return AnalysisConfig{
		StopWords:       opts.StopWords,
		TopWords:        opts.TopWords,
		SamplesPerLabel: opts.SamplesPerLabel,
	}
}

// Options converts the settings for the aggregation layer.
func (a AnalysisConfig) Options() analysis.Options {
	return analysis.Options{
		TopWords:        a.TopWords,
		SamplesPerLabel: a.SamplesPerLabel,
		StopWords:       a.StopWords,
	}
}

// Load reads configuration. A .env file in the working directory is applied
// first without overriding variables already set. Soft failures are logged and
// defaulted unless STRICT_CONFIG is on.
func Load(logger *zap.Logger) (Config, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	_ = godotenv.Load()

	cfg := Config{
		Environment:   getEnv("ENVIRONMENT", defaultEnvironment),
		EnableWatcher: parseBoolEnv("ENABLE_WATCHER"),
		WorkerCount:   defaultWorkerCount,
		JobQueueSize:  defaultQueueSize,
		JobTimeoutSec: defaultJobTimeoutSec,
		SweepInterval: defaultSweepInterval,
		StrictConfig:  parseBoolEnv("STRICT_CONFIG"),
	}
	cfg.ConfigPath = getEnv("CONFIG_PATH", filepath.Join("config", "config.yaml"))

	fileCfg, fileErr := loadFileConfig(cfg.ConfigPath)
	if fileErr != nil {
		switch {
		case errors.Is(fileErr, os.ErrNotExist) && os.Getenv("CONFIG_PATH") == "":
			// No config file at the default location is normal.
		case cfg.StrictConfig:
			return cfg, fmt.Errorf("config load failed (%s): %w", cfg.ConfigPath, fileErr)
		default:
			logger.Warn("config load failed, using defaults", zap.String("path", cfg.ConfigPath), zap.Error(fileErr))
		}
	}

	cfg.HTTPPort = firstNonEmpty(os.Getenv("HTTP_PORT"), os.Getenv("PORT"), fileCfg.HTTPPort, defaultPort)
	if !strings.HasPrefix(cfg.HTTPPort, ":") {
		cfg.HTTPPort = ":" + cfg.HTTPPort
	}
	cfg.DBPath = firstNonEmpty(os.Getenv("DB_PATH"), fileCfg.DBPath, defaultDBPath)
	cfg.ReportsDir = firstNonEmpty(os.Getenv("REPORTS_DIR"), fileCfg.ReportsDir, defaultReportsDir)

	soft := func(key string, err error) error {
		if cfg.StrictConfig {
			return fmt.Errorf("invalid %s: %w", key, err)
		}
		logger.Warn("invalid setting, using default", zap.String("key", key), zap.Error(err))
		return nil
	}

	if v, ok, err := parseIntEnv("WORKER_COUNT"); err != nil {
		if err := soft("WORKER_COUNT", err); err != nil {
			return cfg, err
		}
	} else if ok {
		cfg.WorkerCount = clampInt(logger, "WORKER_COUNT", v, 1, maxWorkerCount)
	}

	if v, ok, err := parseIntEnv("JOB_QUEUE_SIZE"); err != nil {
		if err := soft("JOB_QUEUE_SIZE", err); err != nil {
			return cfg, err
		}
	} else if ok {
		cfg.JobQueueSize = clampInt(logger, "JOB_QUEUE_SIZE", v, minQueueSize, maxQueueSize)
	}
	if cfg.JobQueueSize < cfg.WorkerCount {
		logger.Warn("JOB_QUEUE_SIZE must be >= WORKER_COUNT, raising", zap.Int("job_queue_size", cfg.JobQueueSize), zap.Int("worker_count", cfg.WorkerCount))
		cfg.JobQueueSize = cfg.WorkerCount
	}

	if v, ok, err := parseIntEnv("JOB_TIMEOUT_SEC"); err != nil {
		return cfg, fmt.Errorf("invalid JOB_TIMEOUT_SEC: %w", err)
	} else if ok {
		if v <= 0 {
			return cfg, errors.New("JOB_TIMEOUT_SEC must be positive")
		}
		cfg.JobTimeoutSec = v
	}

	cfg.MaxUploadBytes = defaultMaxUploadBytes
	if fileCfg.MaxUploadBytes > 0 {
		cfg.MaxUploadBytes = fileCfg.MaxUploadBytes
	}
	if v, ok, err := parseInt64Env("MAX_UPLOAD_BYTES"); err != nil {
		if err := soft("MAX_UPLOAD_BYTES", err); err != nil {
			return cfg, err
		}
	} else if ok {
		cfg.MaxUploadBytes = v
	}
	cfg.MaxUploadBytes = int64(clampInt(logger, "MAX_UPLOAD_BYTES", int(cfg.MaxUploadBytes), minUploadBytes, maxUploadBytes))

	cfg.SessionTTL = defaultSessionTTL
	if raw := firstNonEmpty(os.Getenv("SESSION_TTL"), fileCfg.SessionTTL); raw != "" {
		d, err := time.ParseDuration(raw)
		if err == nil && d < 0 {
			err = errors.New("must not be negative")
		}
		if err != nil {
			if err := soft("SESSION_TTL", err); err != nil {
				return cfg, err
			}
		} else {
			cfg.SessionTTL = d
		}
	}

	cfg.HistoryRetention = defaultHistoryRetention
	if v, ok, err := parseIntEnv("UPLOAD_HISTORY_DAYS"); err != nil {
		if err := soft("UPLOAD_HISTORY_DAYS", err); err != nil {
			return cfg, err
		}
	} else if ok {
		if v < 0 {
			v = 0
		}
		cfg.HistoryRetention = time.Duration(v) * 24 * time.Hour
	}

	cfg.Analysis = applyAnalysisOverrides(DefaultAnalysisConfig(), fileCfg.Analysis)
	if raw := strings.TrimSpace(os.Getenv("STOP_WORDS")); raw != "" {
		cfg.Analysis.StopWords = splitList(raw)
	}

	if err := validateConfig(cfg); err != nil {
		if cfg.StrictConfig {
			return cfg, err
		}
		logger.Warn("config validation failed, continuing", zap.Error(err))
	}
	return cfg, nil
}

func loadFileConfig(path string) (fileConfig, error) {
	var cfg fileConfig
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if len(data) == 0 {
		return cfg, errors.New("empty config file")
	}
	if strings.ToLower(filepath.Ext(path)) == ".json" {
		err = json.Unmarshal(data, &cfg)
	} else {
		err = yaml.Unmarshal(data, &cfg)
	}
	return cfg, err
}

func applyAnalysisOverrides(base, override AnalysisConfig) AnalysisConfig {
	if override.StopWords != nil {
		base.StopWords = override.StopWords
	}
	if override.TopWords > 0 {
		base.TopWords = override.TopWords
	}
	if override.SamplesPerLabel > 0 {
		base.SamplesPerLabel = override.SamplesPerLabel
	}
	return base
}

func validateConfig(cfg Config) error {
	if strings.TrimSpace(cfg.DBPath) == "" {
		return errors.New("DB_PATH is required")
	}
	if cfg.EnableWatcher && strings.TrimSpace(cfg.ReportsDir) == "" {
		return errors.New("REPORTS_DIR is required when the watcher is enabled")
	}
	return nil
}

// IsLocal reports whether the service runs in a developer environment.
func (c Config) IsLocal() bool {
	return strings.EqualFold(c.Environment, defaultEnvironment)
}

// JobTimeout returns the per-job timeout as a duration.
func (c Config) JobTimeout() time.Duration {
	return time.Duration(c.JobTimeoutSec) * time.Second
}

func firstNonEmpty(values ...string) string {
	for _, val := range values {
		if strings.TrimSpace(val) != "" {
			return strings.TrimSpace(val)
		}
	}
	return ""
}

func getEnv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func parseBoolEnv(key string) bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	return v == "1" || v == "true" || v == "yes" || v == "on"
}

func parseIntEnv(key string) (int, bool, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return 0, false, nil
	}
	val, err := strconv.Atoi(raw)
	return val, true, err
}

func parseInt64Env(key string) (int64, bool, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return 0, false, nil
	}
	val, err := strconv.ParseInt(raw, 10, 64)
	return val, true, err
}

func clampInt(logger *zap.Logger, key string, v, lo, hi int) int {
	switch {
	case v < lo:
		logger.Warn("setting raised to minimum", zap.String("key", key), zap.Int("was", v), zap.Int("min", lo))
		return lo
	case v > hi:
		logger.Warn("setting capped at maximum", zap.String("key", key), zap.Int("was", v), zap.Int("max", hi))
		return hi
	}
	return v
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
