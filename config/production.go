// Package config provides configuration management and environment variable handling for the application
package config

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// ProductionConfig holds all configuration for production environment
type ProductionConfig struct {
	Database  DatabaseConfig  `json:"database"`
	Server    ServerConfig    `json:"server"`
	Security  SecurityConfig  `json:"security"`
	JWT       JWTConfig       `json:"jwt"`
	Provider  ProviderConfig  `json:"provider"`
	Scheduler SchedulerConfig `json:"scheduler"`
	Dispatch  DispatchConfig  `json:"dispatch"`
	Billing   BillingConfig   `json:"billing"`
	Logging   LoggingConfig   `json:"logging"`
	Metrics   MetricsConfig   `json:"metrics"`
	Cache     CacheConfig     `json:"cache"`
	Admin     AdminConfig     `json:"admin"`
}

type DatabaseConfig struct {
	Host            string        `json:"host"`
	Port            int           `json:"port"`
	Name            string        `json:"name"`
	User            string        `json:"user"`
	Password        string        `json:"password"`
	SSLMode         string        `json:"ssl_mode"`
	MaxOpenConns    int           `json:"max_open_conns"`
	MaxIdleConns    int           `json:"max_idle_conns"`
	ConnMaxLifetime time.Duration `json:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `json:"conn_max_idle_time"`
	SlowQueryLog    bool          `json:"slow_query_log"`
	SlowQueryTime   time.Duration `json:"slow_query_time"`
}

type ServerConfig struct {
	Host            string        `json:"host"`
	Port            int           `json:"port"`
	ReadTimeout     time.Duration `json:"read_timeout"`
	WriteTimeout    time.Duration `json:"write_timeout"`
	IdleTimeout     time.Duration `json:"idle_timeout"`
	ShutdownTimeout time.Duration `json:"shutdown_timeout"`
	BodyLimit       int           `json:"body_limit"`
	EnableMetrics   bool          `json:"enable_metrics"`
	TrustedProxies  []string      `json:"trusted_proxies"`
	ProxyHeader     string        `json:"proxy_header"`
}

type SecurityConfig struct {
	// CORS
	AllowedOrigins   []string `json:"allowed_origins"`
	AllowedMethods   []string `json:"allowed_methods"`
	AllowedHeaders   []string `json:"allowed_headers"`
	AllowCredentials bool     `json:"allow_credentials"`

	// Rate Limiting
	WebhookRateLimit int           `json:"webhook_rate_limit"` // requests per minute
	GlobalRateLimit  int           `json:"global_rate_limit"`  // requests per minute
	RateLimitWindow  time.Duration `json:"rate_limit_window"`
}

type JWTConfig struct {
	SecretKey      string        `json:"secret_key"`
	AccessTokenTTL time.Duration `json:"access_token_ttl"`
	Issuer         string        `json:"issuer"`
	Audience       string        `json:"audience"`
}

// ProviderConfig configures the outbound telephony provider API.
type ProviderConfig struct {
	Domain           string        `json:"domain"` // "mock" selects the in-process fake
	APIKey           string        `json:"api_key"`
	WebhookSecret    string        `json:"webhook_secret"`
	Timeout          time.Duration `json:"timeout"`
	MaxRetries       int           `json:"max_retries"`
	RetryBaseDelay   time.Duration `json:"retry_base_delay"`
	RetryMaxDelay    time.Duration `json:"retry_max_delay"`
	CostPerCallCents int64         `json:"cost_per_call_cents"`
}

type SchedulerConfig struct {
	Enabled            bool          `json:"enabled"`
	MaxWakeInterval    time.Duration `json:"max_wake_interval"`
	ReconcileInterval  time.Duration `json:"reconcile_interval"`
	StuckCallAge       time.Duration `json:"stuck_call_age"`
	StuckEntryAge      time.Duration `json:"stuck_entry_age"`
	ActivationBatch    int           `json:"activation_batch"`
	CompletionGraceTTL time.Duration `json:"completion_grace_ttl"`
}

type DispatchConfig struct {
	Enabled             bool          `json:"enabled"`
	PassInterval        time.Duration `json:"pass_interval"`
	GlobalMaxConcurrent int           `json:"global_max_concurrent"`
	PerCustomerDefault  int           `json:"per_customer_default"`
	MaxDispatchAttempts int           `json:"max_dispatch_attempts"`
	ClaimBatch          int           `json:"claim_batch"`
}

type BillingConfig struct {
	Enabled           bool  `json:"enabled"`
	PerMinuteCents    int64 `json:"per_minute_cents"`
	MinimumCallCents  int64 `json:"minimum_call_cents"`
	AllowNegativeBal  bool  `json:"allow_negative_balance"`
	InsightExtraction bool  `json:"insight_extraction"`
}

type LoggingConfig struct {
	Level      string `json:"level"`  // debug, info, warn, error
	Output     string `json:"output"` // stdout, file, both
	FilePath   string `json:"file_path"`
	MaxSize    int    `json:"max_size"` // MB
	MaxBackups int    `json:"max_backups"`
	MaxAge     int    `json:"max_age"` // days
	Compress   bool   `json:"compress"`
}

type MetricsConfig struct {
	Enabled          bool   `json:"enabled"`
	Path             string `json:"path"`
	EnablePrometheus bool   `json:"enable_prometheus"`
	CollectDBMetrics bool   `json:"collect_db_metrics"`
}

type CacheConfig struct {
	Enabled     bool          `json:"enabled"`
	RedisURL    string        `json:"redis_url"`
	RedisDB     int           `json:"redis_db"`
	RedisPrefix string        `json:"redis_prefix"`
	DefaultTTL  time.Duration `json:"default_ttl"`
}

type AdminConfig struct {
	AlertMobile string `json:"alert_mobile"`
	AlertEmail  string `json:"alert_email"`
}

// LoadProductionConfig loads and validates configuration from environment variables
func LoadProductionConfig() (*ProductionConfig, error) {
	// Load environment variables from .env file
	if err := loadEnvFile(); err != nil {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	cfg := &ProductionConfig{
		Database: DatabaseConfig{
			Host:            getEnvString("DB_HOST", "localhost"),
			Port:            getEnvInt("DB_PORT", 5432),
			Name:            getEnvString("DB_NAME", "postgres"),
			User:            getEnvString("DB_USER", "postgres"),
			Password:        getEnvString("DB_PASSWORD", ""),
			SSLMode:         getEnvString("DB_SSL_MODE", "require"),
			MaxOpenConns:    getEnvInt("DB_MAX_OPEN_CONNS", 100),
			MaxIdleConns:    getEnvInt("DB_MAX_IDLE_CONNS", 10),
			ConnMaxLifetime: getEnvDuration("DB_CONN_MAX_LIFETIME", 30*time.Minute),
			ConnMaxIdleTime: getEnvDuration("DB_CONN_MAX_IDLE_TIME", 15*time.Minute),
			SlowQueryLog:    getEnvBool("DB_SLOW_QUERY_LOG", true),
			SlowQueryTime:   getEnvDuration("DB_SLOW_QUERY_TIME", 1*time.Second),
		},
		Server: ServerConfig{
			Host:            getEnvString("SERVER_HOST", "0.0.0.0"),
			Port:            getEnvInt("SERVER_PORT", 8080),
			ReadTimeout:     getEnvDuration("SERVER_READ_TIMEOUT", 30*time.Second),
			WriteTimeout:    getEnvDuration("SERVER_WRITE_TIMEOUT", 30*time.Second),
			IdleTimeout:     getEnvDuration("SERVER_IDLE_TIMEOUT", 120*time.Second),
			ShutdownTimeout: getEnvDuration("SERVER_SHUTDOWN_TIMEOUT", 30*time.Second),
			BodyLimit:       getEnvInt("SERVER_BODY_LIMIT", 4*1024*1024), // 4MB
			EnableMetrics:   getEnvBool("SERVER_ENABLE_METRICS", true),
			TrustedProxies:  getEnvStringSlice("SERVER_TRUSTED_PROXIES", []string{"127.0.0.1"}),
			ProxyHeader:     getEnvString("SERVER_PROXY_HEADER", "X-Real-IP"),
		},
		Security: SecurityConfig{
			AllowedOrigins:   getEnvStringSlice("CORS_ALLOWED_ORIGINS", []string{"https://callpilot.io", "https://api.callpilot.io"}),
			AllowedMethods:   getEnvStringSlice("CORS_ALLOWED_METHODS", []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}),
			AllowedHeaders:   getEnvStringSlice("CORS_ALLOWED_HEADERS", []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Requested-With"}),
			AllowCredentials: getEnvBool("CORS_ALLOW_CREDENTIALS", true),
			WebhookRateLimit: getEnvInt("WEBHOOK_RATE_LIMIT", 600),
			GlobalRateLimit:  getEnvInt("GLOBAL_RATE_LIMIT", 2000),
			RateLimitWindow:  getEnvDuration("RATE_LIMIT_WINDOW", 1*time.Minute),
		},
		JWT: JWTConfig{
			SecretKey:      getEnvString("JWT_SECRET_KEY", ""),
			AccessTokenTTL: getEnvDuration("JWT_ACCESS_TOKEN_TTL", 24*time.Hour),
			Issuer:         getEnvString("JWT_ISSUER", "callpilot"),
			Audience:       getEnvString("JWT_AUDIENCE", "callpilot-api"),
		},
		Provider: ProviderConfig{
			Domain:           getEnvString("PROVIDER_DOMAIN", "mock"),
			APIKey:           getEnvString("PROVIDER_API_KEY", ""),
			WebhookSecret:    getEnvString("PROVIDER_WEBHOOK_SECRET", ""),
			Timeout:          getEnvDuration("PROVIDER_TIMEOUT", 10*time.Second),
			MaxRetries:       getEnvInt("PROVIDER_MAX_RETRIES", 3),
			RetryBaseDelay:   getEnvDuration("PROVIDER_RETRY_BASE_DELAY", 500*time.Millisecond),
			RetryMaxDelay:    getEnvDuration("PROVIDER_RETRY_MAX_DELAY", 10*time.Second),
			CostPerCallCents: getEnvInt64("PROVIDER_COST_PER_CALL_CENTS", 0),
		},
		Scheduler: SchedulerConfig{
			Enabled:            getEnvBool("SCHEDULER_ENABLED", true),
			MaxWakeInterval:    getEnvDuration("SCHEDULER_MAX_WAKE_INTERVAL", 1*time.Minute),
			ReconcileInterval:  getEnvDuration("SCHEDULER_RECONCILE_INTERVAL", 1*time.Minute),
			StuckCallAge:       getEnvDuration("SCHEDULER_STUCK_CALL_AGE", 30*time.Minute),
			StuckEntryAge:      getEnvDuration("SCHEDULER_STUCK_ENTRY_AGE", 15*time.Minute),
			ActivationBatch:    getEnvInt("SCHEDULER_ACTIVATION_BATCH", 100),
			CompletionGraceTTL: getEnvDuration("SCHEDULER_COMPLETION_GRACE_TTL", 5*time.Minute),
		},
		Dispatch: DispatchConfig{
			Enabled:             getEnvBool("DISPATCH_ENABLED", true),
			PassInterval:        getEnvDuration("DISPATCH_PASS_INTERVAL", 5*time.Second),
			GlobalMaxConcurrent: getEnvInt("DISPATCH_GLOBAL_MAX_CONCURRENT", 50),
			PerCustomerDefault:  getEnvInt("DISPATCH_PER_CUSTOMER_DEFAULT", 5),
			MaxDispatchAttempts: getEnvInt("DISPATCH_MAX_ATTEMPTS", 3),
			ClaimBatch:          getEnvInt("DISPATCH_CLAIM_BATCH", 20),
		},
		Billing: BillingConfig{
			Enabled:           getEnvBool("BILLING_ENABLED", true),
			PerMinuteCents:    getEnvInt64("BILLING_PER_MINUTE_CENTS", 50),
			MinimumCallCents:  getEnvInt64("BILLING_MINIMUM_CALL_CENTS", 10),
			AllowNegativeBal:  getEnvBool("BILLING_ALLOW_NEGATIVE_BALANCE", true),
			InsightExtraction: getEnvBool("BILLING_INSIGHT_EXTRACTION", true),
		},
		Logging: LoggingConfig{
			Level:      getEnvString("LOG_LEVEL", "info"),
			Output:     getEnvString("LOG_OUTPUT", "both"),
			FilePath:   getEnvString("LOG_FILE_PATH", "/var/log/callpilot/app.log"),
			MaxSize:    getEnvInt("LOG_MAX_SIZE", 100),
			MaxBackups: getEnvInt("LOG_MAX_BACKUPS", 10),
			MaxAge:     getEnvInt("LOG_MAX_AGE", 30),
			Compress:   getEnvBool("LOG_COMPRESS", true),
		},
		Metrics: MetricsConfig{
			Enabled:          getEnvBool("METRICS_ENABLED", true),
			Path:             getEnvString("METRICS_PATH", "/metrics"),
			EnablePrometheus: getEnvBool("METRICS_ENABLE_PROMETHEUS", true),
			CollectDBMetrics: getEnvBool("METRICS_COLLECT_DB", true),
		},
		Cache: CacheConfig{
			Enabled:     getEnvBool("CACHE_ENABLED", true),
			RedisURL:    getEnvString("CACHE_REDIS_URL", "redis://localhost:6379"),
			RedisDB:     getEnvInt("CACHE_REDIS_DB", 0),
			RedisPrefix: getEnvString("CACHE_REDIS_PREFIX", "callpilot:"),
			DefaultTTL:  getEnvDuration("CACHE_DEFAULT_TTL", 1*time.Hour),
		},
		Admin: AdminConfig{
			AlertMobile: getEnvString("ADMIN_ALERT_MOBILE", ""),
			AlertEmail:  getEnvString("ADMIN_ALERT_EMAIL", ""),
		},
	}

	// Validate the loaded configuration
	if err := ValidateProductionConfig(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// loadEnvFile loads environment variables from .env file if it exists
func loadEnvFile() error {
	envFile := ".env"

	// Check if .env file exists
	if _, err := os.Stat(envFile); os.IsNotExist(err) {
		// .env file doesn't exist, continue with environment variables
		return nil
	}

	// Open .env file
	file, err := os.Open(envFile)
	if err != nil {
		return fmt.Errorf("failed to open .env file: %w", err)
	}
	defer file.Close()

	// Read file line by line
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		// Parse key=value pairs
		if strings.Contains(line, "=") {
			parts := strings.SplitN(line, "=", 2)
			if len(parts) == 2 {
				key := strings.TrimSpace(parts[0])
				value := strings.TrimSpace(parts[1])

				// Remove quotes if present
				if (strings.HasPrefix(value, `"`) && strings.HasSuffix(value, `"`)) ||
					(strings.HasPrefix(value, `'`) && strings.HasSuffix(value, `'`)) {
					value = value[1 : len(value)-1]
				}

				// Set environment variable if not already set
				if os.Getenv(key) == "" {
					os.Setenv(key, value)
				}
			}
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("error reading .env file: %w", err)
	}

	return nil
}

// Helper functions for environment variable parsing
func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseInt(value, 10, 64); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvStringSlice(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		var result []string
		for _, item := range strings.Split(value, ",") {
			if trimmed := strings.TrimSpace(item); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		if len(result) > 0 {
			return result
		}
	}
	return defaultValue
}

// ValidateProductionConfig validates the production configuration
func ValidateProductionConfig(cfg *ProductionConfig) error {
	var errors []string

	// Validate database configuration
	if cfg.Database.Host == "" {
		errors = append(errors, "DB_HOST is required")
	}
	if cfg.Database.Port <= 0 || cfg.Database.Port > 65535 {
		errors = append(errors, "DB_PORT must be between 1 and 65535")
	}
	if cfg.Database.Name == "" {
		errors = append(errors, "DB_NAME is required")
	}
	if cfg.Database.User == "" {
		errors = append(errors, "DB_USER is required")
	}
	if cfg.Database.Password == "" {
		errors = append(errors, "DB_PASSWORD is required")
	}

	// Validate JWT configuration
	if cfg.JWT.SecretKey == "" {
		errors = append(errors, "JWT_SECRET_KEY is required")
	}
	if len(cfg.JWT.SecretKey) < 32 {
		errors = append(errors, "JWT_SECRET_KEY must be at least 32 characters long")
	}
	if cfg.JWT.AccessTokenTTL <= 0 {
		errors = append(errors, "JWT_ACCESS_TOKEN_TTL must be positive")
	}
	if cfg.JWT.Issuer == "" {
		errors = append(errors, "JWT_ISSUER is required")
	}
	if cfg.JWT.Audience == "" {
		errors = append(errors, "JWT_AUDIENCE is required")
	}

	// Validate server configuration
	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		errors = append(errors, "SERVER_PORT must be between 1 and 65535")
	}
	if cfg.Server.ReadTimeout <= 0 {
		errors = append(errors, "SERVER_READ_TIMEOUT must be positive")
	}
	if cfg.Server.WriteTimeout <= 0 {
		errors = append(errors, "SERVER_WRITE_TIMEOUT must be positive")
	}
	if cfg.Server.IdleTimeout <= 0 {
		errors = append(errors, "SERVER_IDLE_TIMEOUT must be positive")
	}

	// Validate provider configuration if enabled
	if cfg.Provider.Domain != "mock" {
		if cfg.Provider.APIKey == "" {
			errors = append(errors, "PROVIDER_API_KEY is required for telephony provider")
		}
	}
	if cfg.Provider.Timeout <= 0 {
		errors = append(errors, "PROVIDER_TIMEOUT must be positive")
	}
	if cfg.Provider.MaxRetries < 0 {
		errors = append(errors, "PROVIDER_MAX_RETRIES must not be negative")
	}

	// Validate scheduler configuration
	if cfg.Scheduler.MaxWakeInterval <= 0 {
		errors = append(errors, "SCHEDULER_MAX_WAKE_INTERVAL must be positive")
	}
	if cfg.Scheduler.ReconcileInterval <= 0 {
		errors = append(errors, "SCHEDULER_RECONCILE_INTERVAL must be positive")
	}
	if cfg.Scheduler.StuckCallAge <= 0 {
		errors = append(errors, "SCHEDULER_STUCK_CALL_AGE must be positive")
	}

	// Validate dispatch configuration
	if cfg.Dispatch.GlobalMaxConcurrent <= 0 {
		errors = append(errors, "DISPATCH_GLOBAL_MAX_CONCURRENT must be positive")
	}
	if cfg.Dispatch.PerCustomerDefault <= 0 {
		errors = append(errors, "DISPATCH_PER_CUSTOMER_DEFAULT must be positive")
	}
	if cfg.Dispatch.MaxDispatchAttempts <= 0 {
		errors = append(errors, "DISPATCH_MAX_ATTEMPTS must be positive")
	}
	if cfg.Dispatch.ClaimBatch <= 0 {
		errors = append(errors, "DISPATCH_CLAIM_BATCH must be positive")
	}

	// Validate logging configuration
	if cfg.Logging.Level != "" {
		validLevels := []string{"debug", "info", "warn", "error"}
		valid := false
		for _, level := range validLevels {
			if cfg.Logging.Level == level {
				valid = true
				break
			}
		}
		if !valid {
			errors = append(errors, fmt.Sprintf("LOG_LEVEL must be one of: %v", validLevels))
		}
	}

	// Validate cache configuration if enabled
	if cfg.Cache.Enabled {
		if cfg.Cache.RedisURL == "" {
			errors = append(errors, "CACHE_REDIS_URL is required when cache is enabled")
		}
	}

	// Return validation errors if any
	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed: %s", strings.Join(errors, "; "))
	}

	return nil
}
