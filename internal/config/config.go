package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

// EnvPrefix is the namespace of all environment variables, e.g. OEWS_SERVER_PORT
const EnvPrefix = "OEWS"

// Config represents the complete application configuration
type Config struct {
	Server   ServerConfig   `yaml:"server" envconfig:"SERVER"`
	Security SecurityConfig `yaml:"security" envconfig:"SECURITY"`
	Logging  LoggingConfig  `yaml:"logging" envconfig:"LOGGING"`
	Remote   RemoteConfig   `yaml:"remote" envconfig:"REMOTE"`
	Site     SiteConfig     `yaml:"site" envconfig:"SITE"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Port            int           `yaml:"port" envconfig:"PORT" validate:"min=1,max=65535"`
	ReadTimeout     time.Duration `yaml:"read_timeout" envconfig:"READ_TIMEOUT" validate:"gt=0"`
	WriteTimeout    time.Duration `yaml:"write_timeout" envconfig:"WRITE_TIMEOUT" validate:"gt=0"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" envconfig:"IDLE_TIMEOUT"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" envconfig:"SHUTDOWN_TIMEOUT"`
	// RequestTimeout bounds a whole API request, which may include one remote call
	RequestTimeout time.Duration `yaml:"request_timeout" envconfig:"REQUEST_TIMEOUT" validate:"gt=0"`
}

// SecurityConfig contains security-related configuration
type SecurityConfig struct {
	AllowedOrigins []string        `yaml:"allowed_origins" envconfig:"ALLOWED_ORIGINS" validate:"min=1"`
	EnableCORS     bool            `yaml:"enable_cors" envconfig:"ENABLE_CORS"`
	RateLimit      RateLimitConfig `yaml:"rate_limit" envconfig:"RATE_LIMIT"`
}

// RateLimitConfig contains inbound rate limiting configuration
type RateLimitConfig struct {
	Enabled bool    `yaml:"enabled" envconfig:"ENABLED"`
	RPS     float64 `yaml:"rps" envconfig:"RPS" validate:"gte=0"`
	Burst   int     `yaml:"burst" envconfig:"BURST" validate:"gte=0"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level    string `yaml:"level" envconfig:"LEVEL" validate:"omitempty,oneof=debug info warn warning error"`
	Format   string `yaml:"format" envconfig:"FORMAT"`
	Output   string `yaml:"output" envconfig:"OUTPUT" validate:"omitempty,oneof=console stdout file both"`
	FilePath string `yaml:"file_path" envconfig:"FILE_PATH"`
}

// RemoteConfig describes the source-control host that carries the OEWS spreadsheets
type RemoteConfig struct {
	APIHost  string `yaml:"api_host" envconfig:"API_HOST" validate:"required,url"`
	RawHost  string `yaml:"raw_host" envconfig:"RAW_HOST" validate:"required,url"`
	Owner    string `yaml:"owner" envconfig:"OWNER" validate:"required"`
	Repo     string `yaml:"repo" envconfig:"REPO" validate:"required"`
	Branch   string `yaml:"branch" envconfig:"BRANCH" validate:"required"`
	BasePath string `yaml:"base_path" envconfig:"BASE_PATH"`
	// Token is optional; unauthenticated API access is rate limited by the host
	Token     string        `yaml:"token" envconfig:"TOKEN"`
	UserAgent string        `yaml:"user_agent" envconfig:"USER_AGENT"`
	Timeout   time.Duration `yaml:"timeout" envconfig:"TIMEOUT" validate:"gt=0"`
	// RequestsPerSecond of zero disables the outbound limiter
	RequestsPerSecond float64 `yaml:"requests_per_second" envconfig:"REQUESTS_PER_SECOND" validate:"gte=0"`
	Burst             int     `yaml:"burst" envconfig:"BURST" validate:"gte=0"`
}

// SiteConfig contains settings of the narrative pages
type SiteConfig struct {
	PlaceholderImage string        `yaml:"placeholder_image" envconfig:"PLACEHOLDER_IMAGE" validate:"required,url"`
	CheckTimeout     time.Duration `yaml:"check_timeout" envconfig:"CHECK_TIMEOUT" validate:"gt=0"`
}

// Load loads configuration from defaults, an optional config file and environment
// variables, in increasing order of precedence.
func Load() (*Config, error) {
	return LoadFile(getConfigFilePath())
}

// LoadFile is Load with an explicit config file path. An empty path skips the file.
func LoadFile(configFile string) (*Config, error) {
	cfg := Default()

	if configFile != "" {
		if err := loadFromFile(configFile, cfg); err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
	}

	// Fields without a matching environment variable keep their current value
	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// loadFromFile overlays the YAML file onto cfg
func loadFromFile(filePath string, cfg *Config) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

// validate validates the configuration
func (c *Config) validate() error {
	if err := validator.New().Struct(c); err != nil {
		return err
	}

	c.Remote.APIHost = strings.TrimRight(c.Remote.APIHost, "/")
	c.Remote.RawHost = strings.TrimRight(c.Remote.RawHost, "/")
	c.Remote.BasePath = strings.Trim(c.Remote.BasePath, "/")

	// Always JSON
	if c.Logging.Format != "json" {
		c.Logging.Format = "json"
	}
	if c.Logging.Output == "" {
		c.Logging.Output = "console"
	}
	if (c.Logging.Output == "file" || c.Logging.Output == "both") && c.Logging.FilePath == "" {
		c.Logging.FilePath = "logs/app.log"
	}

	if c.Security.RateLimit.Enabled && c.Security.RateLimit.RPS <= 0 {
		return fmt.Errorf("rate limit enabled but rps is %v", c.Security.RateLimit.RPS)
	}

	return nil
}

// getConfigFilePath returns the path to the config file
func getConfigFilePath() string {
	if explicit := os.Getenv(EnvPrefix + "_CONFIG_FILE"); explicit != "" {
		return explicit
	}

	locations := []string{
		"config.yaml",
		"configs/config.yaml",
		"../configs/config.yaml",
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
			Port:            8080,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    60 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 30 * time.Second,
			RequestTimeout:  45 * time.Second,
		},
		Security: SecurityConfig{
			AllowedOrigins: []string{"http://localhost:8080"},
			EnableCORS:     true,
			RateLimit: RateLimitConfig{
				Enabled: true,
				RPS:     50,
				Burst:   25,
			},
		},
		Logging: LoggingConfig{
			Level:    "info",
			Format:   "json",
			Output:   "console",
			FilePath: "logs/app.log",
		},
		Remote: RemoteConfig{
			APIHost:           "https://api.github.com",
			RawHost:           "https://raw.githubusercontent.com",
			Owner:             "Soorej30",
			Repo:              "wage_analysis",
			Branch:            "main",
			BasePath:          "",
			UserAgent:         "wagebrowser",
			Timeout:           20 * time.Second,
			RequestsPerSecond: 5,
			Burst:             5,
		},
		Site: SiteConfig{
			PlaceholderImage: "https://via.placeholder.com/150",
			CheckTimeout:     5 * time.Second,
		},
	}
}
