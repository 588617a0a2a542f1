package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Service identifies which binary is loading configuration. It selects the
// default listen port and which upstream settings are validated.
type Service string

const (
	ServiceTransform Service = "transform"
	ServiceInference Service = "inference"
	ServiceWeb       Service = "web"
)

var defaultPorts = map[Service]int{
	ServiceInference: 8000,
	ServiceTransform: 8001,
	ServiceWeb:       8501,
}

type Config struct {
	Service   Service
	Server    ServerConfig
	Logger    LoggerConfig
	Security  SecurityConfig
	Transform TransformConfig
	Inference InferenceConfig
	Web       WebConfig
}

type ServerConfig struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

type LoggerConfig struct {
	Level  string
	Format string
}

type SecurityConfig struct {
	EnableRateLimit bool
	RateLimitRPS    int
	RateLimitBurst  int
	AllowedOrigins  []string
	TrustedProxies  []string
}

type TransformConfig struct {
	InferenceURL       string
	InferenceTimeout   time.Duration
	MaxFileSizeMB      int
	MaxBatchRows       int
	AutoNormalizeSugar bool
}

type InferenceConfig struct {
	ModelPath string
	// WatchModel reloads the model whenever its file changes.
	WatchModel bool
}

type WebConfig struct {
	TransformURL          string
	APITimeout            time.Duration
	EnableBatchPrediction bool
	MaxFileSizeMB         int
	MaxBatchRows          int
	RecordsPerPage        int
}

// Load reads configuration for service from the environment. A .env file
// in the working directory is applied first when present; variables already
// set in the environment take precedence over it.
func Load(service Service) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	port, ok := defaultPorts[service]
	if !ok {
		return nil, fmt.Errorf("unknown service %q", service)
	}

	cfg := &Config{
		Service: service,
		Server: ServerConfig{
			Host:            getEnvString("SERVER_HOST", "0.0.0.0"),
			Port:            getEnvInt("SERVER_PORT", port),
			ReadTimeout:     getEnvDuration("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:    getEnvDuration("SERVER_WRITE_TIMEOUT", 90*time.Second),
			IdleTimeout:     getEnvDuration("SERVER_IDLE_TIMEOUT", 60*time.Second),
			ShutdownTimeout: getEnvDuration("SERVER_SHUTDOWN_TIMEOUT", 30*time.Second),
		},
		Logger: LoggerConfig{
			Level:  strings.ToLower(getEnvString("LOG_LEVEL", "info")),
			Format: strings.ToLower(getEnvString("LOG_FORMAT", "json")),
		},
		Security: SecurityConfig{
			EnableRateLimit: getEnvBool("SECURITY_RATE_LIMIT_ENABLED", true),
			RateLimitRPS:    getEnvInt("SECURITY_RATE_LIMIT_RPS", 50),
			RateLimitBurst:  getEnvInt("SECURITY_RATE_LIMIT_BURST", 20),
			AllowedOrigins:  getEnvStringSlice("CORS_ORIGINS", []string{"*"}),
			TrustedProxies:  getEnvStringSlice("SECURITY_TRUSTED_PROXIES", []string{"127.0.0.1"}),
		},
		Transform: TransformConfig{
			InferenceURL:       firstEnv([]string{"BACKEND_API_URL", "INFERENCE_API_URL"}, "http://backend-inference-api:8000"),
			InferenceTimeout:   getEnvSeconds("INFERENCE_API_TIMEOUT", 60*time.Second),
			MaxFileSizeMB:      getEnvInt("MAX_FILE_SIZE_MB", 50),
			MaxBatchRows:       getEnvInt("MAX_BATCH_ROWS", 1000),
			AutoNormalizeSugar: getEnvBool("AUTO_NORMALIZE_SUGAR_CONTENT", true),
		},
		Inference: InferenceConfig{
			ModelPath:  getEnvString("MODEL_PATH", "/app/models/superkart_model.yaml"),
			WatchModel: getEnvBool("MODEL_WATCH", false),
		},
		Web: WebConfig{
			TransformURL:          firstEnv([]string{"TRANSFORM_API_URL", "TRANSFORM_SERVICE_URL"}, "http://input-transform-service:8001"),
			APITimeout:            getEnvSeconds("API_TIMEOUT", 120*time.Second),
			EnableBatchPrediction: getEnvBool("ENABLE_BATCH_PREDICTION", true),
			MaxFileSizeMB:         getEnvInt("MAX_FILE_SIZE_MB", 50),
			MaxBatchRows:          getEnvInt("MAX_BATCH_ROWS", 10000),
			RecordsPerPage:        getEnvInt("RECORDS_PER_PAGE", 100),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server port must be between 1 and 65535, got %d", c.Server.Port)
	}

	if c.Server.ReadTimeout <= 0 {
		return fmt.Errorf("server read timeout must be positive")
	}

	if c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("server write timeout must be positive")
	}

	validLogLevels := []string{"debug", "info", "warn", "error"}
	if !contains(validLogLevels, c.Logger.Level) {
		return fmt.Errorf("invalid log level %q, must be one of: %s", c.Logger.Level, strings.Join(validLogLevels, ", "))
	}

	validLogFormats := []string{"json", "text"}
	if !contains(validLogFormats, c.Logger.Format) {
		return fmt.Errorf("invalid log format %q, must be one of: %s", c.Logger.Format, strings.Join(validLogFormats, ", "))
	}

	if c.Security.RateLimitRPS <= 0 {
		return fmt.Errorf("rate limit RPS must be positive")
	}

	if c.Security.RateLimitBurst <= 0 {
		return fmt.Errorf("rate limit burst must be positive")
	}

	switch c.Service {
	case ServiceTransform:
		if c.Transform.InferenceURL == "" {
			return fmt.Errorf("INFERENCE_API_URL must be set")
		}
		if c.Transform.InferenceTimeout <= 0 {
			return fmt.Errorf("INFERENCE_API_TIMEOUT must be positive")
		}
		if c.Transform.MaxFileSizeMB <= 0 {
			return fmt.Errorf("MAX_FILE_SIZE_MB must be positive")
		}
		if c.Transform.MaxBatchRows <= 0 {
			return fmt.Errorf("MAX_BATCH_ROWS must be positive")
		}
	case ServiceInference:
		if c.Inference.ModelPath == "" {
			return fmt.Errorf("MODEL_PATH must be set")
		}
	case ServiceWeb:
		if c.Web.TransformURL == "" {
			return fmt.Errorf("TRANSFORM_SERVICE_URL must be set")
		}
		if c.Web.APITimeout <= 0 {
			return fmt.Errorf("API_TIMEOUT must be positive")
		}
		if c.Web.MaxFileSizeMB <= 0 || c.Web.MaxBatchRows <= 0 || c.Web.RecordsPerPage <= 0 {
			return fmt.Errorf("upload limits and RECORDS_PER_PAGE must be positive")
		}
	}

	return nil
}

func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// firstEnv returns the first non-empty variable among keys.
func firstEnv(keys []string, defaultValue string) string {
	for _, key := range keys {
		if value := os.Getenv(key); value != "" {
			return value
		}
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// getEnvSeconds accepts either a Go duration ("45s") or a bare number of
// seconds ("45").
func getEnvSeconds(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if secs, err := strconv.Atoi(value); err == nil {
		return time.Duration(secs) * time.Second
	}
	return getEnvDuration(key, defaultValue)
}

func getEnvStringSlice(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := strings.Split(value, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		return parts
	}
	return defaultValue
}

func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}

func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}
