package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/harrison/resscan/internal/container"
	"github.com/harrison/resscan/internal/policy"
	"github.com/joho/godotenv"
	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"
)

// PoolConfig sizes the reader pools
type PoolConfig struct {
	// Capacity is the maximum number of readers leased at once per container (0 = unlimited)
	Capacity int `yaml:"capacity"`

	// RegistrySize is the number of container pools cached at once; it must cover every worker
	RegistrySize int `yaml:"registry_size"`
}

// PolicyConfig holds the inclusion rules
type PolicyConfig struct {
	// Accept lists included directory prefixes (empty = everything)
	Accept []string `yaml:"accept"`

	// Reject lists excluded directory prefixes; they win over Accept
	Reject []string `yaml:"reject"`

	// AcceptFiles lists globs for individually included members
	AcceptFiles []string `yaml:"accept_files"`
}

// DirConfig configures directory containers
type DirConfig struct {
	// ExcludeDirs lists directory names never listed
	ExcludeDirs []string `yaml:"exclude_dirs"`
}

// IndexConfig configures the modification index
type IndexConfig struct {
	// Enabled records scanned containers' modification times
	Enabled bool `yaml:"enabled"`

	// DBPath is the sqlite database path
	DBPath string `yaml:"db_path"`
}

// S3Config configures object store containers. Credentials usually come from
// the environment rather than the config file.
type S3Config struct {
	Endpoint  string        `yaml:"endpoint"`
	Region    string        `yaml:"region"`
	AccessKey string        `yaml:"access_key"`
	SecretKey string        `yaml:"secret_key"`
	UseSSL    bool          `yaml:"use_ssl"`
	Timeout   time.Duration `yaml:"timeout"`
}

// Config represents resscan configuration options
type Config struct {
	// LogLevel sets the logging verbosity (trace, debug, info, warn, error)
	LogLevel string `yaml:"log_level"`

	// LogDir is the directory where run logs are written (empty = no file log)
	LogDir string `yaml:"log_dir"`

	// Workers is the number of containers scanned concurrently
	Workers int `yaml:"workers"`

	// ScanFiles collects accepted members
	ScanFiles bool `yaml:"scan_files"`

	// EnableClassInfo also collects classfile members
	EnableClassInfo bool `yaml:"enable_class_info"`

	Pool   PoolConfig   `yaml:"pool"`
	Policy PolicyConfig `yaml:"policy"`
	Dir    DirConfig    `yaml:"dir"`
	Index  IndexConfig  `yaml:"index"`
	S3     S3Config     `yaml:"s3"`
}

// defaultWorkers matches the runner's default when workers is 0
const defaultWorkers = 4

// DefaultConfig returns a Config with sensible default values
func DefaultConfig() *Config {
	return &Config{
		LogLevel:        "info",
		LogDir:          ".resscan/logs",
		Workers:         defaultWorkers,
		ScanFiles:       true,
		EnableClassInfo: true,
		Pool: PoolConfig{
			Capacity:     4,
			RegistrySize: 64,
		},
		Dir: DirConfig{
			ExcludeDirs: []string{".git"},
		},
		Index: IndexConfig{
			Enabled: true,
			DBPath:  ".resscan/index.db",
		},
		S3: S3Config{
			Region:  "us-east-1",
			UseSSL:  true,
			Timeout: 30 * time.Second,
		},
	}
}

// LoadConfig loads configuration from the specified file path
// If the file doesn't exist, returns default configuration without error
// If the file exists but is malformed, returns an error
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Pointer fields tell "unset" apart from an explicit zero value
	type yamlConfig struct {
		LogLevel        string  `yaml:"log_level"`
		LogDir          *string `yaml:"log_dir"`
		Workers         *int    `yaml:"workers"`
		ScanFiles       *bool   `yaml:"scan_files"`
		EnableClassInfo *bool   `yaml:"enable_class_info"`
		Pool            struct {
			Capacity     *int `yaml:"capacity"`
			RegistrySize *int `yaml:"registry_size"`
		} `yaml:"pool"`
		Policy PolicyConfig `yaml:"policy"`
		Dir    struct {
			ExcludeDirs []string `yaml:"exclude_dirs"`
		} `yaml:"dir"`
		Index struct {
			Enabled *bool   `yaml:"enabled"`
			DBPath  *string `yaml:"db_path"`
		} `yaml:"index"`
		S3 struct {
			Endpoint  string `yaml:"endpoint"`
			Region    string `yaml:"region"`
			AccessKey string `yaml:"access_key"`
			SecretKey string `yaml:"secret_key"`
			UseSSL    *bool  `yaml:"use_ssl"`
			Timeout   string `yaml:"timeout"`
		} `yaml:"s3"`
	}

	var yc yamlConfig
	if err := yaml.Unmarshal(data, &yc); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if yc.LogLevel != "" {
		cfg.LogLevel = yc.LogLevel
	}
	if yc.LogDir != nil {
		cfg.LogDir = *yc.LogDir
	}
	if yc.Workers != nil {
		cfg.Workers = *yc.Workers
	}
	if yc.ScanFiles != nil {
		cfg.ScanFiles = *yc.ScanFiles
	}
	if yc.EnableClassInfo != nil {
		cfg.EnableClassInfo = *yc.EnableClassInfo
	}
	if yc.Pool.Capacity != nil {
		cfg.Pool.Capacity = *yc.Pool.Capacity
	}
	if yc.Pool.RegistrySize != nil {
		cfg.Pool.RegistrySize = *yc.Pool.RegistrySize
	}
	cfg.Policy = yc.Policy
	if yc.Dir.ExcludeDirs != nil {
		cfg.Dir.ExcludeDirs = yc.Dir.ExcludeDirs
	}
	if yc.Index.Enabled != nil {
		cfg.Index.Enabled = *yc.Index.Enabled
	}
	if yc.Index.DBPath != nil {
		cfg.Index.DBPath = *yc.Index.DBPath
	}

	if yc.S3.Endpoint != "" {
		cfg.S3.Endpoint = yc.S3.Endpoint
	}
	if yc.S3.Region != "" {
		cfg.S3.Region = yc.S3.Region
	}
	if yc.S3.AccessKey != "" {
		cfg.S3.AccessKey = yc.S3.AccessKey
	}
	if yc.S3.SecretKey != "" {
		cfg.S3.SecretKey = yc.S3.SecretKey
	}
	if yc.S3.UseSSL != nil {
		cfg.S3.UseSSL = *yc.S3.UseSSL
	}
	if yc.S3.Timeout != "" {
		timeout, err := time.ParseDuration(yc.S3.Timeout)
		if err != nil {
			return nil, fmt.Errorf("invalid s3.timeout format %q: %w", yc.S3.Timeout, err)
		}
		cfg.S3.Timeout = timeout
	}

	return cfg, nil
}

// LoadConfigFromDir loads configuration from .resscan/config.yaml in the specified directory
// If the directory or file doesn't exist, returns default configuration without error
func LoadConfigFromDir(dir string) (*Config, error) {
	return LoadConfig(filepath.Join(dir, ".resscan", "config.yaml"))
}

// Environment variables read by ApplyEnv
const (
	EnvS3Endpoint  = "RESSCAN_S3_ENDPOINT"
	EnvS3AccessKey = "RESSCAN_S3_ACCESS_KEY"
	EnvS3SecretKey = "RESSCAN_S3_SECRET_KEY"
	EnvS3Region    = "RESSCAN_S3_REGION"
	EnvS3UseSSL    = "RESSCAN_S3_USE_SSL"
)

// LoadEnvFiles loads variables from the given .env files (default ".env")
// into the process environment. Missing files are ignored and variables that
// are already set are kept.
func LoadEnvFiles(files ...string) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		_ = godotenv.Load(f)
	}
}

// ApplyEnv overrides S3 settings from the environment.
func (c *Config) ApplyEnv() error {
	if v := strings.TrimSpace(os.Getenv(EnvS3Endpoint)); v != "" {
		c.S3.Endpoint = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvS3AccessKey)); v != "" {
		c.S3.AccessKey = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvS3SecretKey)); v != "" {
		c.S3.SecretKey = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvS3Region)); v != "" {
		c.S3.Region = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvS3UseSSL)); v != "" {
		useSSL, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", EnvS3UseSSL, v, err)
		}
		c.S3.UseSSL = useSSL
	}
	return nil
}

// FlagOverrides carries command line values. Nil fields were not set.
type FlagOverrides struct {
	LogLevel        *string
	LogDir          *string
	Workers         *int
	PoolCapacity    *int
	EnableClassInfo *bool
	IndexEnabled    *bool
	Accept          []string
	Reject          []string
	AcceptFiles     []string
}

// MergeWithFlags merges CLI flags into the configuration
// Non-nil flag values override configuration values; policy flags are
// appended to the configured rules
func (c *Config) MergeWithFlags(f FlagOverrides) {
	if f.LogLevel != nil {
		c.LogLevel = *f.LogLevel
	}
	if f.LogDir != nil {
		c.LogDir = *f.LogDir
	}
	if f.Workers != nil {
		c.Workers = *f.Workers
	}
	if f.PoolCapacity != nil {
		c.Pool.Capacity = *f.PoolCapacity
	}
	if f.EnableClassInfo != nil {
		c.EnableClassInfo = *f.EnableClassInfo
	}
	if f.IndexEnabled != nil {
		c.Index.Enabled = *f.IndexEnabled
	}
	c.Policy.Accept = append(c.Policy.Accept, f.Accept...)
	c.Policy.Reject = append(c.Policy.Reject, f.Reject...)
	c.Policy.AcceptFiles = append(c.Policy.AcceptFiles, f.AcceptFiles...)
}

// Validate validates the configuration values
// Returns an error if any values are invalid
func (c *Config) Validate() error {
	validLevels := map[string]bool{
		"trace": true,
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLevels[c.LogLevel] {
		return fmt.Errorf("invalid log_level %q, must be one of: trace, debug, info, warn, error", c.LogLevel)
	}

	if c.Workers < 0 {
		return fmt.Errorf("workers must be >= 0, got %d", c.Workers)
	}
	if c.Pool.Capacity < 0 {
		return fmt.Errorf("pool.capacity must be >= 0, got %d", c.Pool.Capacity)
	}
	if c.Pool.RegistrySize <= 0 {
		return fmt.Errorf("pool.registry_size must be > 0, got %d", c.Pool.RegistrySize)
	}
	workers := c.Workers
	if workers == 0 {
		workers = defaultWorkers
	}
	if c.Pool.RegistrySize < workers {
		return fmt.Errorf("pool.registry_size (%d) must be >= workers (%d)", c.Pool.RegistrySize, workers)
	}
	if c.Index.Enabled && c.Index.DBPath == "" {
		return fmt.Errorf("index.db_path cannot be empty when the index is enabled")
	}
	if c.S3.Timeout < 0 {
		return fmt.Errorf("s3.timeout must be >= 0, got %v", c.S3.Timeout)
	}
	if _, err := c.Evaluator(); err != nil {
		return fmt.Errorf("policy: %w", err)
	}
	return nil
}

// Evaluator builds the inclusion policy
func (c *Config) Evaluator() (*policy.PrefixPolicy, error) {
	return policy.NewPrefixPolicy(c.Policy.Accept, c.Policy.Reject, c.Policy.AcceptFiles)
}

// ContainerOptions returns reader options for containers on fsys
func (c *Config) ContainerOptions(fsys afero.Fs) container.Options {
	return container.Options{
		Fs:          fsys,
		ExcludeDirs: c.Dir.ExcludeDirs,
		S3: container.S3Config{
			Endpoint:  c.S3.Endpoint,
			Region:    c.S3.Region,
			AccessKey: c.S3.AccessKey,
			SecretKey: c.S3.SecretKey,
			UseSSL:    c.S3.UseSSL,
			Timeout:   c.S3.Timeout,
		},
	}
}
