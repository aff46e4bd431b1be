package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/dustin/go-humanize"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"imgfit/internal/fit"
	"imgfit/internal/storage"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "IMGFIT_"

// Config holds the settings of a conversion run.
type Config struct {
	Limits     LimitsConfig     `toml:"limits" yaml:"limits"`
	Processing ProcessingConfig `toml:"processing" yaml:"processing"`
	Logging    LoggingConfig    `toml:"logging" yaml:"logging"`
	S3         S3Config         `toml:"s3" yaml:"s3"`

	MaxFileSizeBytes int64         `toml:"-" yaml:"-"` // parsed from Limits.MaxFileSize
	RetryBaseDelay   time.Duration `toml:"-" yaml:"-"` // parsed from S3.RetryBaseDelay
}

// LimitsConfig bounds every output image.
type LimitsConfig struct {
	MaxFileSize    string  `toml:"max_file_size" yaml:"max_file_size" validate:"required"` // e.g. "500KiB", "512000"
	MaxLongestSide int     `toml:"max_longest_side" yaml:"max_longest_side" validate:"gt=0"`
	InitialQuality int     `toml:"initial_quality" yaml:"initial_quality" validate:"min=1,max=100"`
	MinQuality     int     `toml:"min_quality" yaml:"min_quality" validate:"min=1,max=100,ltefield=InitialQuality"`
	MaxAttempts    int     `toml:"max_attempts" yaml:"max_attempts" validate:"min=1,max=100"`
	QualityDecay   float64 `toml:"quality_decay" yaml:"quality_decay" validate:"gt=0,lt=1"`
}

// ProcessingConfig controls the batch driver.
type ProcessingConfig struct {
	Workers           int  `toml:"workers" yaml:"workers" validate:"gte=0"` // 0 means one per CPU
	IgnoreOrientation bool `toml:"ignore_orientation" yaml:"ignore_orientation"`
	SkipExisting      bool `toml:"skip_existing" yaml:"skip_existing"`
}

type LoggingConfig struct {
	Level  string `toml:"level" yaml:"level" validate:"omitempty,oneof=trace debug info warn error"`
	Format string `toml:"format" yaml:"format" validate:"omitempty,oneof=text json"`
}

// S3Config is used when the destination is an s3:// URL.
type S3Config struct {
	Region          string `toml:"region" yaml:"region"`
	Endpoint        string `toml:"endpoint" yaml:"endpoint" validate:"omitempty,url"`
	AccessKeyID     string `toml:"access_key_id" yaml:"access_key_id"`
	SecretAccessKey string `toml:"secret_access_key" yaml:"secret_access_key" validate:"required_with=AccessKeyID"`
	PathStyle       bool   `toml:"path_style" yaml:"path_style"`
	MaxRetries      int    `toml:"max_retries" yaml:"max_retries" validate:"gte=0,lte=10"`
	RetryBaseDelay  string `toml:"retry_base_delay" yaml:"retry_base_delay"`
}

// Default returns a config carrying the stock limits.
func Default() *Config {
	return &Config{
		Limits: LimitsConfig{
			MaxFileSize:    strconv.Itoa(fit.DefaultMaxBytes),
			MaxLongestSide: fit.DefaultMaxLongestSide,
			InitialQuality: fit.DefaultInitialQuality,
			MinQuality:     fit.DefaultMinQuality,
			MaxAttempts:    fit.DefaultMaxAttempts,
			QualityDecay:   fit.DefaultDecay,
		},
		Logging: LoggingConfig{Level: "info", Format: "text"},
		S3: S3Config{
			Region:         "us-east-1",
			MaxRetries:     3,
			RetryBaseDelay: "300ms",
		},
	}
}

// Load reads a TOML or YAML file (chosen by extension) over the defaults.
// The returned error wraps os.ErrNotExist when the file is missing.
func Load(path string) (*Config, error) {
	cfg := Default()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	default:
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			if os.IsNotExist(err) {
				return nil, err
			}
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	}
	return cfg, nil
}

// ApplyEnv overrides fields from IMGFIT_* variables looked up with getenv.
func (c *Config) ApplyEnv(getenv func(string) string) error {
	get := func(name string) string { return strings.TrimSpace(getenv(EnvPrefix + name)) }

	setInt := func(name string, dst *int) error {
		if v := get(name); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("%s%s: %w", EnvPrefix, name, err)
			}
			*dst = n
		}
		return nil
	}
	setBool := func(name string, dst *bool) error {
		if v := get(name); v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return fmt.Errorf("%s%s: %w", EnvPrefix, name, err)
			}
			*dst = b
		}
		return nil
	}
	setString := func(name string, dst *string) {
		if v := get(name); v != "" {
			*dst = v
		}
	}

	setString("MAX_FILE_SIZE", &c.Limits.MaxFileSize)
	if v := get("QUALITY_DECAY"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("%sQUALITY_DECAY: %w", EnvPrefix, err)
		}
		c.Limits.QualityDecay = f
	}
	for name, dst := range map[string]*int{
		"MAX_LONGEST_SIDE": &c.Limits.MaxLongestSide,
		"INITIAL_QUALITY":  &c.Limits.InitialQuality,
		"MIN_QUALITY":      &c.Limits.MinQuality,
		"MAX_ATTEMPTS":     &c.Limits.MaxAttempts,
		"WORKERS":          &c.Processing.Workers,
		"S3_MAX_RETRIES":   &c.S3.MaxRetries,
	} {
		if err := setInt(name, dst); err != nil {
			return err
		}
	}
	for name, dst := range map[string]*bool{
		"IGNORE_ORIENTATION": &c.Processing.IgnoreOrientation,
		"SKIP_EXISTING":      &c.Processing.SkipExisting,
		"S3_PATH_STYLE":      &c.S3.PathStyle,
	} {
		if err := setBool(name, dst); err != nil {
			return err
		}
	}

	setString("LOG_LEVEL", &c.Logging.Level)
	setString("LOG_FORMAT", &c.Logging.Format)
	setString("S3_REGION", &c.S3.Region)
	setString("S3_ENDPOINT", &c.S3.Endpoint)
	setString("S3_ACCESS_KEY_ID", &c.S3.AccessKeyID)
	setString("S3_SECRET_ACCESS_KEY", &c.S3.SecretAccessKey)
	setString("S3_RETRY_BASE_DELAY", &c.S3.RetryBaseDelay)
	return nil
}

var validate = validator.New()

// ParseAndValidate turns human readable fields into runtime values and
// checks every constraint.
func (c *Config) ParseAndValidate() error {
	size, err := humanize.ParseBytes(c.Limits.MaxFileSize)
	if err != nil {
		return fmt.Errorf("invalid max_file_size %q: %w", c.Limits.MaxFileSize, err)
	}
	if size == 0 {
		return fmt.Errorf("invalid max_file_size %q: must be positive", c.Limits.MaxFileSize)
	}
	c.MaxFileSizeBytes = int64(size)

	if c.S3.RetryBaseDelay != "" {
		d, err := time.ParseDuration(c.S3.RetryBaseDelay)
		if err != nil {
			return fmt.Errorf("invalid retry_base_delay %q: %w", c.S3.RetryBaseDelay, err)
		}
		c.RetryBaseDelay = d
	}

	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// FitLimits returns the encoder limits. ParseAndValidate must have run.
func (c *Config) FitLimits() fit.Limits {
	return fit.Limits{
		MaxBytes:       c.MaxFileSizeBytes,
		MaxLongestSide: c.Limits.MaxLongestSide,
		InitialQuality: c.Limits.InitialQuality,
		MinQuality:     c.Limits.MinQuality,
		MaxAttempts:    c.Limits.MaxAttempts,
		Decay:          c.Limits.QualityDecay,
	}
}

// WorkerCount resolves Processing.Workers, defaulting to the CPU count.
func (c *Config) WorkerCount() int {
	if c.Processing.Workers > 0 {
		return c.Processing.Workers
	}
	return runtime.NumCPU()
}

// StorageS3 returns the S3 backend settings without bucket and prefix,
// which come from the destination URL.
func (c *Config) StorageS3() storage.S3Config {
	return storage.S3Config{
		Region:          c.S3.Region,
		Endpoint:        c.S3.Endpoint,
		AccessKeyID:     c.S3.AccessKeyID,
		SecretAccessKey: c.S3.SecretAccessKey,
		PathStyle:       c.S3.PathStyle,
		MaxRetries:      c.S3.MaxRetries,
		RetryBaseDelay:  c.RetryBaseDelay,
	}
}
