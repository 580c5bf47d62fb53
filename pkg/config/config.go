package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
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

	// Market data providers
	Yahoo        YahooConfig
	AlphaVantage AlphaVantageConfig

	// Ranking runs
	Ranking RankingConfig

	// Scheduler
	Scheduler SchedulerConfig

	// Logging
	LogLevel  string
	LogFormat string
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
	Enabled  bool
	Prefix   string
	CacheTTL time.Duration
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

// Enabled reports whether a database URL is configured.
// DB가 없으면 랭킹 결과는 메모리/Redis에만 남는다.
func (d DatabaseConfig) Enabled() bool {
	return d.URL != ""
}

// YahooConfig holds the Yahoo Finance chart API configuration
type YahooConfig struct {
	BaseURL        string
	RequestsPerSec float64
	Timeout        time.Duration
}

// AlphaVantageConfig holds the Alpha Vantage fundamentals API configuration
type AlphaVantageConfig struct {
	APIKey     string
	BaseURL    string
	DailyLimit int
	PerMinute  int
	Timeout    time.Duration

	// BalanceSheet spends a second call per ticker on BALANCE_SHEET
	BalanceSheet bool
}

// Enabled reports whether fundamentals can be fetched at all.
func (a AlphaVantageConfig) Enabled() bool {
	return a.APIKey != ""
}

// RankingConfig holds ranking run parameters
type RankingConfig struct {
	Workers      int
	Period       string
	RunTimeout   time.Duration
	UniverseDir  string
	StrategyFile string
	TopN         int
}

// SchedulerConfig holds the refresh schedule
type SchedulerConfig struct {
	Cron      string
	Universes []string
}

// Load reads configuration from environment variables
// ⭐ SSOT: 이 함수만 os.Getenv()를 호출함
func Load() (*Config, error) {
	return LoadFrom("")
}

// LoadFrom is Load with an explicit .env file. Variables already set in the
// environment win over the file.
func LoadFrom(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			return nil, fmt.Errorf("load env file %s: %w", envFile, err)
		}
	} else {
		loadEnvFile()
	}

	cfg := &Config{
		// Server
		Port: getEnv("PORT", "8080"),
		Env:  getEnv("ENV", "development"),

		// Database
		Database: DatabaseConfig{
			URL:             getEnv("DATABASE_URL", ""),
			MaxConns:        getEnvAsInt("DB_MAX_CONNS", 25),
			MinConns:        getEnvAsInt("DB_MIN_CONNS", 2),
			MaxConnLifetime: getEnvAsDuration("DB_MAX_CONN_LIFETIME", "1h"),
			MaxConnIdleTime: getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", "30m"),
		},

		// Redis
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
			Enabled:  getEnvAsBool("REDIS_ENABLED", false),
			Prefix:   getEnv("REDIS_PREFIX", "quantsnap"),
			CacheTTL: getEnvAsDuration("REDIS_CACHE_TTL", "6h"),
		},

		Yahoo: YahooConfig{
			BaseURL:        getEnv("YAHOO_BASE_URL", "https://query1.finance.yahoo.com"),
			RequestsPerSec: getEnvAsFloat("YAHOO_REQUESTS_PER_SEC", 2),
			Timeout:        getEnvAsDuration("YAHOO_TIMEOUT", "15s"),
		},

		AlphaVantage: AlphaVantageConfig{
			APIKey:     getEnv("ALPHA_VANTAGE_API_KEY", ""),
			BaseURL:    getEnv("ALPHA_VANTAGE_BASE_URL", "https://www.alphavantage.co"),
			DailyLimit: getEnvAsInt("ALPHA_VANTAGE_DAILY_LIMIT", 25),
			PerMinute:  getEnvAsInt("ALPHA_VANTAGE_PER_MINUTE", 5),
			Timeout:    getEnvAsDuration("ALPHA_VANTAGE_TIMEOUT", "20s"),

			BalanceSheet: getEnvAsBool("ALPHA_VANTAGE_BALANCE_SHEET", false),
		},

		Ranking: RankingConfig{
			Workers:      getEnvAsInt("RANKING_WORKERS", 8),
			Period:       getEnv("RANKING_PERIOD", "1y"),
			RunTimeout:   getEnvAsDuration("RUN_TIMEOUT", "10m"),
			UniverseDir:  getEnv("UNIVERSE_DIR", "data/universes"),
			StrategyFile: getEnv("STRATEGY_FILE", ""),
			TopN:         getEnvAsInt("RANKING_TOP_N", 0),
		},

		Scheduler: SchedulerConfig{
			Cron:      getEnv("SCHEDULER_CRON", "0 30 21 * * 1-5"),
			Universes: getEnvAsList("SCHEDULER_UNIVERSES", []string{"popular_stocks", "sp500"}),
		},

		// Logging
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// validate checks if configuration values are usable
func (c *Config) validate() error {
	if c.Env != "development" && c.Env != "staging" && c.Env != "production" {
		return fmt.Errorf("ENV must be one of: development, staging, production")
	}

	if c.Ranking.Workers < 1 {
		return fmt.Errorf("RANKING_WORKERS must be at least 1, got %d", c.Ranking.Workers)
	}

	if c.AlphaVantage.DailyLimit < 0 {
		return fmt.Errorf("ALPHA_VANTAGE_DAILY_LIMIT must not be negative")
	}

	// 운영 환경에서는 결과 저장소가 반드시 있어야 함
	if c.Env == "production" && !c.Database.Enabled() {
		return fmt.Errorf("DATABASE_URL is required in production")
	}

	return nil
}

// loadEnvFile tries to load .env from multiple locations
func loadEnvFile() {
	paths := []string{".env"}

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

func getEnvAsList(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	var out []string
	for _, part := range strings.Split(valueStr, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
