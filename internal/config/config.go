package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Storage backends
const (
	BackendFile = "file"
	BackendS3   = "s3"
)

// Config represents the application configuration
type Config struct {
	Server  ServerConfig  `toml:"server"`
	Storage StorageConfig `toml:"storage"`
	Media   MediaConfig   `toml:"media"`
	AI      AIConfig      `toml:"ai"`
	Logging LoggingConfig `toml:"logging"`
	Ngrok   NgrokConfig   `toml:"ngrok"`
}

// ServerConfig contains server-related configuration
type ServerConfig struct {
	Port           string `toml:"port"`
	Host           string `toml:"host"`
	StaticDir      string `toml:"static_dir"`
	EnableCORS     bool   `toml:"enable_cors"`
	ReadTimeout    int    `toml:"read_timeout_seconds"`
	WriteTimeout   int    `toml:"write_timeout_seconds"`
	RequestLogging bool   `toml:"request_logging"`
}

// StorageConfig selects where songs and registrations are kept
type StorageConfig struct {
	Backend          string   `toml:"backend"`
	SongsDir         string   `toml:"songs_dir"`
	RegistrationsDir string   `toml:"registrations_dir"`
	S3               S3Config `toml:"s3"`
}

// S3Config configures the S3-compatible backend. Songs and registrations are
// kept under separate prefixes in the same bucket.
type S3Config struct {
	Bucket    string `toml:"bucket"`
	Region    string `toml:"region"`
	Endpoint  string `toml:"endpoint"`
	AccessKey string `toml:"access_key"`
	SecretKey string `toml:"secret_key"`
	Prefix    string `toml:"prefix"`
}

// MediaConfig contains media catalog configuration
type MediaConfig struct {
	MediaDir        string `toml:"media_dir"`
	AudioDir        string `toml:"audio_dir"`
	WatchForChanges bool   `toml:"watch_for_changes"`
	AudioWorkers    int    `toml:"audio_workers"`
}

// AIConfig configures the text generation service
type AIConfig struct {
	APIKey                string `toml:"api_key"`
	BaseURL               string `toml:"base_url"`
	Model                 string `toml:"model"`
	TimeoutSeconds        int    `toml:"timeout_seconds"`
	ConnectTimeoutSeconds int    `toml:"connect_timeout_seconds"`
	AnalysisCacheMinutes  int    `toml:"analysis_cache_minutes"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
	File   string `toml:"file"`
}

// NgrokConfig contains ngrok tunnel configuration
type NgrokConfig struct {
	Enabled   bool   `toml:"enabled"`
	AuthToken string `toml:"auth_token"`
	Domain    string `toml:"domain"`
}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:           "8080",
			Host:           "0.0.0.0",
			StaticDir:      "./public",
			EnableCORS:     true,
			ReadTimeout:    30,
			WriteTimeout:   90,
			RequestLogging: true,
		},
		Storage: StorageConfig{
			Backend:          BackendFile,
			SongsDir:         "./data/songs",
			RegistrationsDir: "./data/registrations",
			S3: S3Config{
				Region: "us-east-1",
				Prefix: "songforge/",
			},
		},
		Media: MediaConfig{
			MediaDir:        "./media",
			AudioDir:        "./mp3",
			WatchForChanges: true,
			AudioWorkers:    4,
		},
		AI: AIConfig{
			BaseURL:               "https://api.openai.com/v1",
			Model:                 "gpt-4",
			TimeoutSeconds:        30,
			ConnectTimeoutSeconds: 10,
			AnalysisCacheMinutes:  60,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// LoadConfig loads configuration from a TOML file, creating it with defaults
// when missing, then applies .env and environment overrides.
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		if err := cfg.SaveToFile(configPath); err != nil {
			return nil, fmt.Errorf("failed to create default config file: %w", err)
		}
		fmt.Printf("Created default configuration file at: %s\n", configPath)
	} else if _, err := toml.DecodeFile(configPath, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := loadDotEnv(".env"); err != nil {
		return nil, err
	}
	cfg.ApplyEnv(os.LookupEnv)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// loadDotEnv loads path into the environment if it exists. Variables already
// set take precedence.
func loadDotEnv(path string) error {
	if _, err := os.Stat(path); err != nil {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

// ApplyEnv overrides secrets and deployment settings from the environment.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) {
	overrides := map[string]*string{
		"OPENAI_API_KEY":  &c.AI.APIKey,
		"OPENAI_BASE_URL": &c.AI.BaseURL,
		"SONGFORGE_PORT":  &c.Server.Port,
		"NGROK_AUTHTOKEN": &c.Ngrok.AuthToken,
		"S3_ACCESS_KEY":   &c.Storage.S3.AccessKey,
		"S3_SECRET_KEY":   &c.Storage.S3.SecretKey,
	}
	for name, field := range overrides {
		if value, ok := lookup(name); ok && value != "" {
			*field = value
		}
	}
}

// SaveToFile saves the configuration to a TOML file
func (c *Config) SaveToFile(configPath string) error {
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	file, err := os.Create(configPath)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer file.Close()

	header := `# Songforge Configuration
# Secrets such as the OpenAI key are best supplied through the environment
# or a .env file (OPENAI_API_KEY, NGROK_AUTHTOKEN, S3_ACCESS_KEY, S3_SECRET_KEY).

`
	if _, err := file.WriteString(header); err != nil {
		return fmt.Errorf("failed to write config header: %w", err)
	}

	encoder := toml.NewEncoder(file)
	if err := encoder.Encode(c); err != nil {
		return fmt.Errorf("failed to encode config to TOML: %w", err)
	}

	return nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server port cannot be empty")
	}
	if c.Server.Host == "" {
		return fmt.Errorf("server host cannot be empty")
	}
	if c.Server.ReadTimeout < 0 || c.Server.WriteTimeout < 0 {
		return fmt.Errorf("server timeouts must not be negative")
	}

	switch c.Storage.Backend {
	case BackendFile:
		if c.Storage.SongsDir == "" || c.Storage.RegistrationsDir == "" {
			return fmt.Errorf("storage directories cannot be empty")
		}
		if filepath.Clean(c.Storage.SongsDir) == filepath.Clean(c.Storage.RegistrationsDir) {
			return fmt.Errorf("songs and registrations must use different directories")
		}
	case BackendS3:
		if c.Storage.S3.Bucket == "" {
			return fmt.Errorf("s3 bucket cannot be empty")
		}
	default:
		return fmt.Errorf("invalid storage backend: %s (must be file or s3)", c.Storage.Backend)
	}

	if c.Media.MediaDir == "" {
		return fmt.Errorf("media directory cannot be empty")
	}
	if c.Media.AudioWorkers < 1 {
		return fmt.Errorf("media audio workers must be at least 1")
	}

	if c.AI.TimeoutSeconds < 1 || c.AI.ConnectTimeoutSeconds < 1 {
		return fmt.Errorf("ai timeouts must be at least one second")
	}
	if c.AI.AnalysisCacheMinutes < 0 {
		return fmt.Errorf("ai analysis cache minutes must not be negative")
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[c.Logging.Level] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Logging.Level)
	}

	validLogFormats := map[string]bool{
		"text": true, "json": true,
	}
	if !validLogFormats[c.Logging.Format] {
		return fmt.Errorf("invalid log format: %s (must be text or json)", c.Logging.Format)
	}

	return nil
}

// GetAddress returns the full server address
func (c *Config) GetAddress() string {
	return c.Server.Host + ":" + c.Server.Port
}

// AITimeout returns the total request timeout for the text service.
func (c *Config) AITimeout() time.Duration {
	return time.Duration(c.AI.TimeoutSeconds) * time.Second
}

// AIConnectTimeout returns the dial timeout for the text service.
func (c *Config) AIConnectTimeout() time.Duration {
	return time.Duration(c.AI.ConnectTimeoutSeconds) * time.Second
}

// AnalysisCacheTTL returns how long theme analyses are cached.
func (c *Config) AnalysisCacheTTL() time.Duration {
	return time.Duration(c.AI.AnalysisCacheMinutes) * time.Minute
}
