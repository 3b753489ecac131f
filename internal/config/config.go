package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the complete application configuration
type Config struct {
	// Server configuration
	Server ServerConfig `yaml:"server" json:"server"`

	// Database configuration
	Database DatabaseConfig `yaml:"database" json:"database"`

	// Storage (content root) configuration
	Storage StorageConfig `yaml:"storage" json:"storage"`

	// Retention and sweep configuration
	Retention RetentionConfig `yaml:"retention" json:"retention"`

	// Transcoding configuration
	Transcode TranscodeConfig `yaml:"transcode" json:"transcode"`
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Host         string        `yaml:"host" json:"host" env:"SCREENBIN_HOST" default:"0.0.0.0"`
	Port         int           `yaml:"port" json:"port" env:"SCREENBIN_PORT" default:"3000"`
	ReadTimeout  time.Duration `yaml:"read_timeout" json:"read_timeout" env:"SCREENBIN_READ_TIMEOUT" default:"30s"`
	WriteTimeout time.Duration `yaml:"write_timeout" json:"write_timeout" env:"SCREENBIN_WRITE_TIMEOUT" default:"30s"`
	EnableCORS   bool          `yaml:"enable_cors" json:"enable_cors" env:"SCREENBIN_ENABLE_CORS" default:"true"`
	PublicDir    string        `yaml:"public_dir" json:"public_dir" env:"SCREENBIN_PUBLIC_DIR" default:"./public"`
}

// DatabaseConfig holds database connection configuration
type DatabaseConfig struct {
	Type            string        `yaml:"type" json:"type" env:"DATABASE_TYPE" default:"sqlite"`
	Host            string        `yaml:"host" json:"host" env:"POSTGRES_HOST" default:"localhost"`
	Port            int           `yaml:"port" json:"port" env:"POSTGRES_PORT" default:"5432"`
	Username        string        `yaml:"username" json:"username" env:"POSTGRES_USER" default:"screenbin"`
	Password        string        `yaml:"password" json:"-" env:"POSTGRES_PASSWORD"`
	Database        string        `yaml:"database" json:"database" env:"POSTGRES_DB" default:"screenbin"`
	DataDir         string        `yaml:"data_dir" json:"data_dir" env:"SCREENBIN_DATA_DIR" default:"./data"`
	DatabasePath    string        `yaml:"database_path" json:"database_path" env:"SCREENBIN_DATABASE_PATH"`
	MaxOpenConns    int           `yaml:"max_open_conns" json:"max_open_conns" env:"DB_MAX_OPEN_CONNS" default:"25"`
	MaxIdleConns    int           `yaml:"max_idle_conns" json:"max_idle_conns" env:"DB_MAX_IDLE_CONNS" default:"5"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime" json:"conn_max_lifetime" env:"DB_CONN_MAX_LIFETIME" default:"2h"`
	LogQueries      bool          `yaml:"log_queries" json:"log_queries" env:"DB_LOG_QUERIES" default:"false"`
}

// StorageConfig holds content root configuration
type StorageConfig struct {
	UploadsDir    string `yaml:"uploads_dir" json:"uploads_dir" env:"SCREENBIN_UPLOADS_DIR"`
	MaxUploadSize int64  `yaml:"max_upload_size" json:"max_upload_size" env:"SCREENBIN_MAX_UPLOAD_SIZE" default:"52428800"`
}

// RetentionConfig holds expiry and sweep configuration
type RetentionConfig struct {
	// Window is how long an uploaded recording stays available.
	Window time.Duration `yaml:"window" json:"window" env:"SCREENBIN_RETENTION_WINDOW" default:"336h"`
	// SweepHour is the local wall-clock hour for the daily sweep.
	SweepHour int `yaml:"sweep_hour" json:"sweep_hour" env:"SCREENBIN_SWEEP_HOUR" default:"2"`
	// SweepInterval is the spacing between sweeps after the first run.
	SweepInterval time.Duration `yaml:"sweep_interval" json:"sweep_interval" env:"SCREENBIN_SWEEP_INTERVAL" default:"24h"`
	// OrphanGracePeriod is how old an unreferenced blob must be before
	// the reconciliation pass removes it.
	OrphanGracePeriod time.Duration `yaml:"orphan_grace_period" json:"orphan_grace_period" env:"SCREENBIN_ORPHAN_GRACE" default:"24h"`
	EnableReconcile   bool          `yaml:"enable_reconcile" json:"enable_reconcile" env:"SCREENBIN_ENABLE_RECONCILE" default:"true"`
}

// TranscodeConfig holds playback transcoding configuration
type TranscodeConfig struct {
	FFmpegPath     string        `yaml:"ffmpeg_path" json:"ffmpeg_path" env:"SCREENBIN_FFMPEG_PATH" default:"ffmpeg"`
	FFprobePath    string        `yaml:"ffprobe_path" json:"ffprobe_path" env:"SCREENBIN_FFPROBE_PATH" default:"ffprobe"`
	ConvertTimeout time.Duration `yaml:"convert_timeout" json:"convert_timeout" env:"SCREENBIN_CONVERT_TIMEOUT" default:"5m"`
}

// Manager manages application configuration
type Manager struct {
	config     *Config
	configPath string
	mu         sync.RWMutex
}

var (
	globalManager *Manager
	configOnce    sync.Once
)

// GetManager returns the global configuration manager instance
func GetManager() *Manager {
	configOnce.Do(func() {
		globalManager = NewManager()
	})
	return globalManager
}

// NewManager creates a new configuration manager
func NewManager() *Manager {
	return &Manager{
		config: DefaultConfig(),
	}
}

// DefaultConfig returns the default application configuration
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:         "0.0.0.0",
			Port:         3000,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
			EnableCORS:   true,
			PublicDir:    "./public",
		},
		Database: DatabaseConfig{
			Type:            "sqlite",
			DataDir:         "./data",
			MaxOpenConns:    25,
			MaxIdleConns:    5,
			ConnMaxLifetime: 2 * time.Hour,
			LogQueries:      false,
		},
		Storage: StorageConfig{
			MaxUploadSize: 50 * 1024 * 1024, // 50MB
		},
		Retention: RetentionConfig{
			Window:            14 * 24 * time.Hour,
			SweepHour:         2,
			SweepInterval:     24 * time.Hour,
			OrphanGracePeriod: 24 * time.Hour,
			EnableReconcile:   true,
		},
		Transcode: TranscodeConfig{
			FFmpegPath:     "ffmpeg",
			FFprobePath:    "ffprobe",
			ConvertTimeout: 5 * time.Minute,
		},
	}
}

// LoadConfig loads configuration from file and environment variables
func (m *Manager) LoadConfig(configPath string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.configPath = configPath

	// Start with default configuration
	newConfig := DefaultConfig()

	// Load from file if it exists
	if configPath != "" && fileExists(configPath) {
		if err := m.loadFromFile(configPath, newConfig); err != nil {
			return fmt.Errorf("failed to load config from file: %w", err)
		}
	}

	// Override with environment variables
	if err := m.loadFromEnv(newConfig); err != nil {
		return fmt.Errorf("failed to load config from environment: %w", err)
	}

	// Validate configuration
	if err := m.validateConfig(newConfig); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}

	// Apply derived configurations
	m.applyDerivedConfig(newConfig)

	m.config = newConfig
	return nil
}

// GetConfig returns the current configuration (thread-safe)
func (m *Manager) GetConfig() *Config {
	m.mu.RLock()
	defer m.mu.RUnlock()

	// Return a copy to prevent external modifications
	configCopy := *m.config
	return &configCopy
}

// SetConfig replaces the current configuration. Intended for tests.
func (m *Manager) SetConfig(cfg *Config) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.config = cfg
}

func (m *Manager) loadFromFile(path string, config *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".yaml", ".yml":
		return yaml.Unmarshal(data, config)
	case ".json":
		return json.Unmarshal(data, config)
	default:
		return fmt.Errorf("unsupported config file format: %s", ext)
	}
}

func (m *Manager) loadFromEnv(config *Config) error {
	return loadStructFromEnv(reflect.ValueOf(config).Elem())
}

func loadStructFromEnv(v reflect.Value) error {
	t := v.Type()

	for i := 0; i < v.NumField(); i++ {
		field := v.Field(i)
		fieldType := t.Field(i)

		if !field.CanSet() {
			continue
		}

		// Handle nested structs recursively
		if field.Kind() == reflect.Struct {
			if err := loadStructFromEnv(field); err != nil {
				return err
			}
			continue
		}

		envTag := fieldType.Tag.Get("env")
		if envTag == "" {
			continue
		}

		envValue := os.Getenv(envTag)
		if envValue == "" {
			continue
		}

		if err := setFieldValue(field, envValue); err != nil {
			return fmt.Errorf("failed to set field %s: %w", fieldType.Name, err)
		}
	}

	return nil
}

func setFieldValue(field reflect.Value, value string) error {
	switch field.Kind() {
	case reflect.String:
		field.SetString(value)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if field.Type() == reflect.TypeOf(time.Duration(0)) {
			duration, err := time.ParseDuration(value)
			if err != nil {
				return err
			}
			field.SetInt(int64(duration))
		} else {
			intVal, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return err
			}
			field.SetInt(intVal)
		}
	case reflect.Bool:
		boolVal, err := strconv.ParseBool(value)
		if err != nil {
			return err
		}
		field.SetBool(boolVal)
	default:
		return fmt.Errorf("unsupported field type: %v", field.Kind())
	}

	return nil
}

func (m *Manager) validateConfig(config *Config) error {
	if config.Server.Port < 1 || config.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", config.Server.Port)
	}

	if config.Database.Type != "sqlite" && config.Database.Type != "postgres" {
		return fmt.Errorf("unsupported database type: %s", config.Database.Type)
	}

	if config.Storage.MaxUploadSize <= 0 {
		return fmt.Errorf("invalid max upload size: %d", config.Storage.MaxUploadSize)
	}

	if config.Retention.Window <= 0 {
		return fmt.Errorf("invalid retention window: %s", config.Retention.Window)
	}

	if config.Retention.SweepHour < 0 || config.Retention.SweepHour > 23 {
		return fmt.Errorf("invalid sweep hour: %d", config.Retention.SweepHour)
	}

	return nil
}

func (m *Manager) applyDerivedConfig(config *Config) {
	// Set derived database path if not explicitly set
	if config.Database.DatabasePath == "" && config.Database.Type == "sqlite" {
		config.Database.DatabasePath = filepath.Join(config.Database.DataDir, "screenbin.db")
	}

	// Set derived uploads dir if not explicitly set
	if config.Storage.UploadsDir == "" {
		config.Storage.UploadsDir = filepath.Join(config.Database.DataDir, "uploads")
	}
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// Global convenience functions

// Get returns the current global configuration
func Get() *Config {
	return GetManager().GetConfig()
}

// Load loads configuration from the specified path
func Load(configPath string) error {
	return GetManager().LoadConfig(configPath)
}

// SetConfig replaces the global configuration. Intended for tests.
func SetConfig(cfg *Config) {
	GetManager().SetConfig(cfg)
}
