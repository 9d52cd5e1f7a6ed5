package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

// EnvPrefix namespaces every environment variable read by Load.
const EnvPrefix = "MERCADO"

// Config is everything the server, the CLI and the watcher read at start-up
type Config struct {
	Server    ServerConfig    `yaml:"server" envconfig:"SERVER"`
	Security  SecurityConfig  `yaml:"security" envconfig:"SECURITY"`
	Logging   LoggingConfig   `yaml:"logging" envconfig:"LOGGING"`
	Data      DataConfig      `yaml:"data" envconfig:"DATA"`
	WebSocket WebSocketConfig `yaml:"websocket" envconfig:"WEBSOCKET"`
	Telemetry TelemetryConfig `yaml:"telemetry" envconfig:"TELEMETRY"`
}

// ServerConfig sets the listener and its timeouts
type ServerConfig struct {
	Port            int           `yaml:"port" envconfig:"PORT"`
	ReadTimeout     time.Duration `yaml:"read_timeout" envconfig:"READ_TIMEOUT" default:"15s"`
	WriteTimeout    time.Duration `yaml:"write_timeout" envconfig:"WRITE_TIMEOUT" default:"30s"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" envconfig:"IDLE_TIMEOUT" default:"60s"`
	MaxHeaderBytes  int           `yaml:"max_header_bytes" envconfig:"MAX_HEADER_BYTES" default:"1048576"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" envconfig:"SHUTDOWN_TIMEOUT" default:"30s"`
	RequestTimeout  time.Duration `yaml:"request_timeout" envconfig:"REQUEST_TIMEOUT" default:"60s"`
}

// SecurityConfig covers CORS, the reload token and rate limiting
type SecurityConfig struct {
	AllowedOrigins []string        `yaml:"allowed_origins" envconfig:"ALLOWED_ORIGINS" default:"http://localhost:10000"`
	EnableCORS     bool            `yaml:"enable_cors" envconfig:"ENABLE_CORS" default:"true"`
	RateLimit      RateLimitConfig `yaml:"rate_limit" envconfig:"RATE_LIMIT"`
	// ReloadToken guards POST /api/dataset/reload. Empty leaves it open.
	ReloadToken string `yaml:"reload_token" envconfig:"RELOAD_TOKEN"`
}

// RateLimitConfig is a token bucket shared by all clients
type RateLimitConfig struct {
	Enabled bool    `yaml:"enabled" envconfig:"ENABLED" default:"true"`
	RPS     float64 `yaml:"rps" envconfig:"RPS" default:"100"`
	Burst   int     `yaml:"burst" envconfig:"BURST" default:"50"`
}

// LoggingConfig selects level, format and destination of the slog output
type LoggingConfig struct {
	Level       string `yaml:"level" envconfig:"LEVEL" default:"info"`
	Format      string `yaml:"format" envconfig:"FORMAT" default:"json"`
	Output      string `yaml:"output" envconfig:"OUTPUT" default:"console"`
	FilePath    string `yaml:"file_path" envconfig:"FILE_PATH" default:"logs/app.log"`
	Development bool   `yaml:"development" envconfig:"DEVELOPMENT" default:"false"`
}

// DataConfig locates the workbook and the files derived from it
type DataConfig struct {
	WorkbookPath   string        `yaml:"workbook_path" envconfig:"WORKBOOK_PATH" default:"Data/Base - Indicadores.xlsx"`
	CategoriesFile string        `yaml:"categories_file" envconfig:"CATEGORIES_FILE"`
	ReportsDir     string        `yaml:"reports_dir" envconfig:"REPORTS_DIR" default:"reports"`
	ReloadInterval time.Duration `yaml:"reload_interval" envconfig:"RELOAD_INTERVAL" default:"1m"`
	LoadTimeout    time.Duration `yaml:"load_timeout" envconfig:"LOAD_TIMEOUT" default:"2m"`
}

// WebSocketConfig tunes the /ws hub
type WebSocketConfig struct {
	Enabled         bool          `yaml:"enabled" envconfig:"ENABLED" default:"true"`
	ReadBufferSize  int           `yaml:"read_buffer_size" envconfig:"READ_BUFFER_SIZE" default:"1024"`
	WriteBufferSize int           `yaml:"write_buffer_size" envconfig:"WRITE_BUFFER_SIZE" default:"1024"`
	PingPeriod      time.Duration `yaml:"ping_period" envconfig:"PING_PERIOD" default:"30s"`
	PongWait        time.Duration `yaml:"pong_wait" envconfig:"PONG_WAIT" default:"60s"`
}

// TelemetryConfig selects the OpenTelemetry exporters. "none" disables a signal.
type TelemetryConfig struct {
	Environment    string  `yaml:"environment" envconfig:"ENVIRONMENT" default:"development"`
	TraceExporter  string  `yaml:"trace_exporter" envconfig:"TRACE_EXPORTER" default:"none"`
	MetricExporter string  `yaml:"metric_exporter" envconfig:"METRIC_EXPORTER" default:"prometheus"`
	SampleRatio    float64 `yaml:"sample_ratio" envconfig:"SAMPLE_RATIO" default:"1"`
}

// Load reads .env (when present), the environment and an optional YAML file.
// Environment values take precedence over the file.
func Load() (*Config, error) {
	return LoadFile(getConfigFilePath())
}

// LoadFile is Load with an explicit YAML file. An empty path skips the file.
func LoadFile(configFile string) (*Config, error) {
	loadDotEnv()

	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}
	applyPortFallback(&cfg)

	if configFile != "" {
		fileConfig, err := loadFromFile(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
		cfg = mergeConfigs(*fileConfig, cfg, explicitEnv())
	}

	if cfg.Server.Port == 0 {
		cfg.Server.Port = DefaultPort
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// loadDotEnv loads .env from the working directory. Variables already set in
// the environment are not overridden.
func loadDotEnv() {
	if _, err := os.Stat(".env"); err == nil {
		_ = godotenv.Load(".env")
	}
}

// applyPortFallback honours the bare PORT variable set by hosting platforms
func applyPortFallback(cfg *Config) {
	if cfg.Server.Port != 0 {
		return
	}
	if p, err := strconv.Atoi(strings.TrimSpace(os.Getenv("PORT"))); err == nil && p > 0 {
		cfg.Server.Port = p
	}
}

// loadFromFile decodes a YAML config file
func loadFromFile(filePath string) (*Config, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// explicitEnv lists the MERCADO_* variables actually present in the environment
func explicitEnv() map[string]bool {
	set := make(map[string]bool)
	for _, kv := range os.Environ() {
		key, _, _ := strings.Cut(kv, "=")
		if strings.HasPrefix(key, EnvPrefix+"_") {
			set[strings.TrimPrefix(key, EnvPrefix+"_")] = true
		}
	}
	return set
}

// mergeConfigs lets file values replace env defaults. A variable that was set
// explicitly always wins.
func mergeConfigs(fileConfig, envConfig Config, explicit map[string]bool) Config {
	if !explicit["SERVER_PORT"] && fileConfig.Server.Port != 0 {
		envConfig.Server.Port = fileConfig.Server.Port
	}
	if !explicit["SERVER_READ_TIMEOUT"] && fileConfig.Server.ReadTimeout != 0 {
		envConfig.Server.ReadTimeout = fileConfig.Server.ReadTimeout
	}
	if !explicit["SERVER_WRITE_TIMEOUT"] && fileConfig.Server.WriteTimeout != 0 {
		envConfig.Server.WriteTimeout = fileConfig.Server.WriteTimeout
	}
	if !explicit["SERVER_REQUEST_TIMEOUT"] && fileConfig.Server.RequestTimeout != 0 {
		envConfig.Server.RequestTimeout = fileConfig.Server.RequestTimeout
	}

	if !explicit["SECURITY_ALLOWED_ORIGINS"] && len(fileConfig.Security.AllowedOrigins) > 0 {
		envConfig.Security.AllowedOrigins = fileConfig.Security.AllowedOrigins
	}
	if !explicit["SECURITY_RELOAD_TOKEN"] && fileConfig.Security.ReloadToken != "" {
		envConfig.Security.ReloadToken = fileConfig.Security.ReloadToken
	}
	if !explicit["SECURITY_RATE_LIMIT_RPS"] && fileConfig.Security.RateLimit.RPS != 0 {
		envConfig.Security.RateLimit.RPS = fileConfig.Security.RateLimit.RPS
	}
	if !explicit["SECURITY_RATE_LIMIT_BURST"] && fileConfig.Security.RateLimit.Burst != 0 {
		envConfig.Security.RateLimit.Burst = fileConfig.Security.RateLimit.Burst
	}

	if !explicit["LOGGING_LEVEL"] && fileConfig.Logging.Level != "" {
		envConfig.Logging.Level = fileConfig.Logging.Level
	}
	if !explicit["LOGGING_OUTPUT"] && fileConfig.Logging.Output != "" {
		envConfig.Logging.Output = fileConfig.Logging.Output
	}
	if !explicit["LOGGING_FILE_PATH"] && fileConfig.Logging.FilePath != "" {
		envConfig.Logging.FilePath = fileConfig.Logging.FilePath
	}

	if !explicit["DATA_WORKBOOK_PATH"] && fileConfig.Data.WorkbookPath != "" {
		envConfig.Data.WorkbookPath = fileConfig.Data.WorkbookPath
	}
	if !explicit["DATA_CATEGORIES_FILE"] && fileConfig.Data.CategoriesFile != "" {
		envConfig.Data.CategoriesFile = fileConfig.Data.CategoriesFile
	}
	if !explicit["DATA_REPORTS_DIR"] && fileConfig.Data.ReportsDir != "" {
		envConfig.Data.ReportsDir = fileConfig.Data.ReportsDir
	}
	if !explicit["DATA_RELOAD_INTERVAL"] && fileConfig.Data.ReloadInterval != 0 {
		envConfig.Data.ReloadInterval = fileConfig.Data.ReloadInterval
	}

	if !explicit["TELEMETRY_ENVIRONMENT"] && fileConfig.Telemetry.Environment != "" {
		envConfig.Telemetry.Environment = fileConfig.Telemetry.Environment
	}
	if !explicit["TELEMETRY_TRACE_EXPORTER"] && fileConfig.Telemetry.TraceExporter != "" {
		envConfig.Telemetry.TraceExporter = fileConfig.Telemetry.TraceExporter
	}
	if !explicit["TELEMETRY_METRIC_EXPORTER"] && fileConfig.Telemetry.MetricExporter != "" {
		envConfig.Telemetry.MetricExporter = fileConfig.Telemetry.MetricExporter
	}
	if !explicit["TELEMETRY_SAMPLE_RATIO"] && fileConfig.Telemetry.SampleRatio != 0 {
		envConfig.Telemetry.SampleRatio = fileConfig.Telemetry.SampleRatio
	}

	return envConfig
}

// validate rejects settings the server cannot run with
func (c *Config) validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if c.Server.ReadTimeout <= 0 {
		return fmt.Errorf("server read timeout must be positive")
	}

	if c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("server write timeout must be positive")
	}

	if c.Security.EnableCORS && len(c.Security.AllowedOrigins) == 0 {
		return fmt.Errorf("at least one allowed origin must be specified")
	}

	if c.Security.RateLimit.Enabled && c.Security.RateLimit.RPS <= 0 {
		return fmt.Errorf("rate limit rps must be positive")
	}

	if strings.TrimSpace(c.Data.WorkbookPath) == "" {
		return fmt.Errorf("data workbook path is required")
	}

	if c.Data.ReloadInterval < 0 {
		return fmt.Errorf("data reload interval cannot be negative")
	}

	switch c.Telemetry.TraceExporter {
	case "none", "stdout":
	default:
		return fmt.Errorf("unsupported trace exporter: %q", c.Telemetry.TraceExporter)
	}
	switch c.Telemetry.MetricExporter {
	case "none", "prometheus":
	default:
		return fmt.Errorf("unsupported metric exporter: %q", c.Telemetry.MetricExporter)
	}
	if c.Telemetry.SampleRatio < 0 || c.Telemetry.SampleRatio > 1 {
		return fmt.Errorf("telemetry sample ratio must be within [0, 1]")
	}

	switch strings.ToLower(c.Logging.Output) {
	case "console", "file", "both":
	default:
		c.Logging.Output = "console"
	}

	if c.Logging.FilePath == "" {
		c.Logging.FilePath = "logs/app.log"
	}

	return nil
}

// Address returns the listen address of the HTTP server
func (c *Config) Address() string {
	return fmt.Sprintf(":%d", c.Server.Port)
}

// getConfigFilePath returns MERCADO_CONFIG_FILE or the first config file found
func getConfigFilePath() string {
	if path := os.Getenv(EnvPrefix + "_CONFIG_FILE"); path != "" {
		return path
	}

	locations := []string{
		"config.yaml",
		"configs/config.yaml",
	}

	for _, location := range locations {
		if _, err := os.Stat(location); err == nil {
			return location
		}
	}

	return "" // No config file found, use env vars only
}

// Default returns default configuration
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            DefaultPort,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    30 * time.Second,
			IdleTimeout:     60 * time.Second,
			MaxHeaderBytes:  1 << 20, // 1MB
			ShutdownTimeout: 30 * time.Second,
			RequestTimeout:  60 * time.Second,
		},
		Security: SecurityConfig{
			AllowedOrigins: []string{"http://localhost:10000"},
			EnableCORS:     true,
			RateLimit: RateLimitConfig{
				Enabled: true,
				RPS:     DefaultRateLimit,
				Burst:   DefaultBurstSize,
			},
		},
		Logging: LoggingConfig{
			Level:    DefaultLogLevel,
			Format:   DefaultLogFormat,
			Output:   "console",
			FilePath: "logs/app.log",
		},
		Data: DataConfig{
			WorkbookPath:   DefaultWorkbookPath,
			ReportsDir:     DefaultReportsDir,
			ReloadInterval: DefaultReloadInterval,
			LoadTimeout:    2 * time.Minute,
		},
		WebSocket: WebSocketConfig{
			Enabled:         true,
			ReadBufferSize:  WebSocketReadBufferSize,
			WriteBufferSize: WebSocketWriteBufferSize,
			PingPeriod:      WebSocketPingPeriod,
			PongWait:        WebSocketPongWait,
		},
		Telemetry: TelemetryConfig{
			Environment:    "development",
			TraceExporter:  "none",
			MetricExporter: "prometheus",
			SampleRatio:    1,
		},
	}
}
