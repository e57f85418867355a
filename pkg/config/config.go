package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
// ⭐ SSOT: 모든 환경변수는 여기서만 읽음
type Config struct {
	// Server
	Port string
	Env  string // development, staging, production

	// Database
	Database DatabaseConfig

	// Redis
	Redis RedisConfig

	// Forecast pipeline
	Forecast    ForecastConfig
	Backtest    BacktestConfig
	Ensemble    EnsembleConfig
	SpikeUplift SpikeUpliftConfig
	Growth      GrowthConfig
	DeepModel   DeepModelConfig

	// Outputs
	OutputsDir    string
	OverridesPath string

	// Logging
	LogLevel  string
	LogFormat string
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	URL string

	// Connection Pool
	MaxConns        int
	MinConns        int
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
	Enabled  bool
}

// ForecastConfig holds the forecast window
// 연도 리터럴 금지: 모든 컴포넌트는 이 윈도우에서 연도를 파생
type ForecastConfig struct {
	Start string // YYYY-MM-DD
	End   string // YYYY-MM-DD
}

// BacktestConfig holds rolling-origin backtest parameters
type BacktestConfig struct {
	MinTrainDays int // 첫 컷오프까지 필요한 학습 일수
	StepDays     int // 컷오프 간격
	MaxHorizon   int // 최대 예측 수평선 (일)
	BufferDays   int // 히스토리 끝에서 제외할 일수
}

// EnsembleConfig holds ensemble weight fitting parameters
type EnsembleConfig struct {
	MinRows int // 버킷별 가중치 적합에 필요한 최소 행 수
}

// SpikeUpliftConfig holds spike-day uplift overlay parameters
type SpikeUpliftConfig struct {
	Enabled         bool
	MinObservations int
	ShrinkageFactor float64
	MinMultiplier   float64
	MaxMultiplier   float64
}

// GrowthConfig holds growth calibration parameters
type GrowthConfig struct {
	Enabled       bool
	TargetYoYRate float64
	Mode          string // annual, monthly
	MinScale      float64
	MaxScale      float64
}

// DeepModelConfig holds the external univariate forecaster configuration
// 모델 서버가 없어도 파이프라인은 경고 후 계속 진행한다
type DeepModelConfig struct {
	Enabled          bool
	BaseURL          string
	Timeout          time.Duration
	PredictionLength int
	RequestsPerSec   float64
}

// Load reads configuration from environment variables
// ⭐ SSOT: 이 함수만 os.Getenv()를 호출함
func Load() (*Config, error) {
	loadEnvFile()

	cfg := &Config{
		Port: getEnv("PORT", "8097"),
		Env:  getEnv("ENV", "development"),

		Database: DatabaseConfig{
			URL:             getEnv("DATABASE_URL", ""),
			MaxConns:        getEnvAsInt("DB_MAX_CONNS", 10),
			MinConns:        getEnvAsInt("DB_MIN_CONNS", 2),
			MaxConnLifetime: getEnvAsDuration("DB_MAX_CONN_LIFETIME", "1h"),
			MaxConnIdleTime: getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", "30m"),
		},

		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
			Enabled:  getEnvAsBool("REDIS_ENABLED", false),
		},

		Forecast: ForecastConfig{
			Start: getEnv("FORECAST_START", ""),
			End:   getEnv("FORECAST_END", ""),
		},

		Backtest: BacktestConfig{
			MinTrainDays: getEnvAsInt("BACKTEST_MIN_TRAIN_DAYS", 120),
			StepDays:     getEnvAsInt("BACKTEST_STEP_DAYS", 14),
			MaxHorizon:   getEnvAsInt("BACKTEST_MAX_HORIZON", 380),
			BufferDays:   getEnvAsInt("BACKTEST_BUFFER_DAYS", 14),
		},

		Ensemble: EnsembleConfig{
			MinRows: getEnvAsInt("ENSEMBLE_MIN_ROWS", 50),
		},

		SpikeUplift: SpikeUpliftConfig{
			Enabled:         getEnvAsBool("SPIKE_UPLIFT_ENABLED", true),
			MinObservations: getEnvAsInt("SPIKE_MIN_OBSERVATIONS", 1),
			ShrinkageFactor: getEnvAsFloat("SPIKE_SHRINKAGE_FACTOR", 0.5),
			MinMultiplier:   getEnvAsFloat("SPIKE_MIN_MULTIPLIER", 0.7),
			MaxMultiplier:   getEnvAsFloat("SPIKE_MAX_MULTIPLIER", 1.6),
		},

		Growth: GrowthConfig{
			Enabled:       getEnvAsBool("GROWTH_CALIBRATION_ENABLED", true),
			TargetYoYRate: getEnvAsFloat("GROWTH_TARGET_YOY_RATE", 0.10),
			Mode:          getEnv("GROWTH_CALIBRATION_MODE", "monthly"),
			MinScale:      getEnvAsFloat("GROWTH_MIN_SCALE", 0.70),
			MaxScale:      getEnvAsFloat("GROWTH_MAX_SCALE", 1.30),
		},

		DeepModel: DeepModelConfig{
			Enabled:          getEnvAsBool("DEEP_MODEL_ENABLED", false),
			BaseURL:          getEnv("DEEP_MODEL_BASE_URL", "http://localhost:8501"),
			Timeout:          getEnvAsDuration("DEEP_MODEL_TIMEOUT", "60s"),
			PredictionLength: getEnvAsInt("DEEP_MODEL_PREDICTION_LENGTH", 90),
			RequestsPerSec:   getEnvAsFloat("DEEP_MODEL_REQUESTS_PER_SEC", 2),
		},

		OutputsDir:    getEnv("OUTPUTS_DIR", "outputs"),
		OverridesPath: getEnv("OVERRIDES_PATH", "data/overrides/demand_overrides.csv"),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// validate checks if required configuration values are set
func (c *Config) validate() error {
	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	if c.Env != "development" && c.Env != "staging" && c.Env != "production" {
		return fmt.Errorf("ENV must be one of: development, staging, production")
	}

	if c.Forecast.Start == "" || c.Forecast.End == "" {
		return fmt.Errorf("FORECAST_START and FORECAST_END are required")
	}
	start, err := time.Parse("2006-01-02", c.Forecast.Start)
	if err != nil {
		return fmt.Errorf("FORECAST_START must be YYYY-MM-DD: %w", err)
	}
	end, err := time.Parse("2006-01-02", c.Forecast.End)
	if err != nil {
		return fmt.Errorf("FORECAST_END must be YYYY-MM-DD: %w", err)
	}
	if end.Before(start) {
		return fmt.Errorf("FORECAST_END (%s) must be >= FORECAST_START (%s)", c.Forecast.End, c.Forecast.Start)
	}

	if c.Growth.Mode != "annual" && c.Growth.Mode != "monthly" {
		return fmt.Errorf("GROWTH_CALIBRATION_MODE must be one of: annual, monthly")
	}
	if c.Growth.MinScale > c.Growth.MaxScale {
		return fmt.Errorf("GROWTH_MIN_SCALE must be <= GROWTH_MAX_SCALE")
	}

	if c.SpikeUplift.MinMultiplier > c.SpikeUplift.MaxMultiplier {
		return fmt.Errorf("SPIKE_MIN_MULTIPLIER must be <= SPIKE_MAX_MULTIPLIER")
	}

	if c.Backtest.MinTrainDays <= 0 || c.Backtest.StepDays <= 0 || c.Backtest.MaxHorizon <= 0 {
		return fmt.Errorf("backtest parameters must be positive")
	}

	return nil
}

// Helper functions (private, only used within this file)

// loadEnvFile tries to load .env from multiple locations
func loadEnvFile() {
	paths := []string{
		".env",
	}

	// Also try relative to executable
	if exe, err := os.Executable(); err == nil {
		exeDir := filepath.Dir(exe)
		paths = append(paths,
			filepath.Join(exeDir, ".env"),
			filepath.Join(exeDir, "..", ".env"),
		)
	}

	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			_ = godotenv.Load(path)
			return
		}
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		valueStr = defaultValue
	}

	duration, err := time.ParseDuration(valueStr)
	if err != nil {
		duration, _ = time.ParseDuration(defaultValue)
	}

	return duration
}
