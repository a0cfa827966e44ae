// Package config provides the configuration system for featline.
// A single Config structure drives the parser context, the ingestion
// pipeline and the observability stack.
//
// The configuration is organized into logical sections:
//   - Hashing: hash function, seed and index mask
//   - Features: affix, spelling, redefine and dictionary settings
//   - Parsing: strictness, audit capture and label type
//   - Performance: batch sizes and worker counts
//   - Sources: object store access for s3:// and gs:// inputs
//   - Observability: logging, metrics and tracing
//
// Example usage:
//
//	cfg := config.NewConfig("train")
//	cfg.Hashing.Bits = 18
//	cfg.Parsing.Strict = true
//
//	if err := cfg.Validate(); err != nil {
//	    log.Fatal(err)
//	}
package config

import (
	"runtime"

	"github.com/ajitpratap0/featline/pkg/errors"
)

const (
	// MaxHashBits is the widest index mask the hashing section accepts.
	MaxHashBits = 64
	// DefaultMaxLineBytes bounds a single input line.
	DefaultMaxLineBytes = 16 * 1024 * 1024
)

// Config is the top-level featline configuration.
type Config struct {
	// Name identifies the run in logs and traces
	Name string `yaml:"name" json:"name" mapstructure:"name"`
	// Version indicates the configuration version
	Version string `yaml:"version" json:"version" mapstructure:"version"`

	Hashing       HashingConfig       `yaml:"hashing" json:"hashing" mapstructure:"hashing"`
	Features      FeaturesConfig      `yaml:"features" json:"features" mapstructure:"features"`
	Parsing       ParsingConfig       `yaml:"parsing" json:"parsing" mapstructure:"parsing"`
	Performance   PerformanceConfig   `yaml:"performance" json:"performance" mapstructure:"performance"`
	Sources       SourcesConfig       `yaml:"sources" json:"sources" mapstructure:"sources"`
	Observability ObservabilityConfig `yaml:"observability" json:"observability" mapstructure:"observability"`
}

// HashingConfig selects how feature names become indices.
type HashingConfig struct {
	// Function is one of "strings", "all" or "xxhash"
	Function string `yaml:"function" json:"function" mapstructure:"function"`
	// Seed is mixed into every namespace hash
	Seed uint32 `yaml:"seed" json:"seed" mapstructure:"seed"`
	// Bits sizes the index mask as 2^bits-1; 0 disables masking
	Bits int `yaml:"bits" json:"bits" mapstructure:"bits"`
}

// FeaturesConfig controls derived features and namespace rewriting.
type FeaturesConfig struct {
	// Affix is a comma separated list such as "+2a,-3b"
	Affix string `yaml:"affix" json:"affix" mapstructure:"affix"`
	// Spelling lists namespaces that get spelling features; "_" is the default namespace
	Spelling []string `yaml:"spelling" json:"spelling" mapstructure:"spelling"`
	// Redefine holds rules of the form "N:=abc"
	Redefine []string `yaml:"redefine" json:"redefine" mapstructure:"redefine"`
	// Dictionaries attach feature dictionaries to namespaces
	Dictionaries []DictionaryConfig `yaml:"dictionaries" json:"dictionaries" mapstructure:"dictionaries"`
}

// DictionaryConfig attaches one dictionary file to a set of namespaces.
type DictionaryConfig struct {
	// Namespaces is the list of namespace characters; empty means the default namespace
	Namespaces string `yaml:"namespaces" json:"namespaces" mapstructure:"namespaces"`
	// Path is a local path or object URL, optionally compressed
	Path string `yaml:"path" json:"path" mapstructure:"path"`
}

// ParsingConfig contains line parsing behaviour.
type ParsingConfig struct {
	// Strict turns every malformed-input diagnostic into a line failure
	Strict bool `yaml:"strict" json:"strict" mapstructure:"strict"`
	// Audit records namespace and feature names next to each feature
	Audit bool `yaml:"audit" json:"audit" mapstructure:"audit"`
	// Label selects the label parser: "simple" or "none"
	Label string `yaml:"label" json:"label" mapstructure:"label"`
}

// PerformanceConfig contains throughput settings for the pipeline.
type PerformanceConfig struct {
	// BatchSize controls how many lines are parsed together
	BatchSize int `yaml:"batch_size" json:"batch_size" mapstructure:"batch_size"`
	// Workers defines the number of concurrent parse workers
	Workers int `yaml:"workers" json:"workers" mapstructure:"workers"`
	// MaxLineBytes skips lines longer than this
	MaxLineBytes int `yaml:"max_line_bytes" json:"max_line_bytes" mapstructure:"max_line_bytes"`
	// FailFast stops on the first failed line instead of continuing
	FailFast bool `yaml:"fail_fast" json:"fail_fast" mapstructure:"fail_fast"`
}

// SourcesConfig configures object store clients. Credentials come from the
// usual AWS and Google environment chains.
type SourcesConfig struct {
	// AWSRegion overrides the region from the AWS environment
	AWSRegion string `yaml:"aws_region" json:"aws_region" mapstructure:"aws_region"`
	// S3Endpoint points the S3 client at a compatible service
	S3Endpoint string `yaml:"s3_endpoint" json:"s3_endpoint" mapstructure:"s3_endpoint"`
	// S3UsePathStyle addresses buckets as path segments instead of subdomains
	S3UsePathStyle bool `yaml:"s3_use_path_style" json:"s3_use_path_style" mapstructure:"s3_use_path_style"`
	// GCSCredentialsFile is a service account key file
	GCSCredentialsFile string `yaml:"gcs_credentials_file" json:"gcs_credentials_file" mapstructure:"gcs_credentials_file"`
	// GCSAnonymous reads public buckets without credentials
	GCSAnonymous bool `yaml:"gcs_anonymous" json:"gcs_anonymous" mapstructure:"gcs_anonymous"`
	// ReadBufferBytes sizes the line reader buffer
	ReadBufferBytes int `yaml:"read_buffer_bytes" json:"read_buffer_bytes" mapstructure:"read_buffer_bytes"`
}

// ObservabilityConfig contains monitoring settings.
type ObservabilityConfig struct {
	// LogLevel sets logging verbosity (debug, info, warn, error)
	LogLevel string `yaml:"log_level" json:"log_level" mapstructure:"log_level"`
	// LogEncoding is "json" or "console"
	LogEncoding string `yaml:"log_encoding" json:"log_encoding" mapstructure:"log_encoding"`
	// EnableMetrics serves prometheus metrics on MetricsAddr
	EnableMetrics bool `yaml:"enable_metrics" json:"enable_metrics" mapstructure:"enable_metrics"`
	// MetricsAddr is the listen address for the metrics endpoint
	MetricsAddr string `yaml:"metrics_addr" json:"metrics_addr" mapstructure:"metrics_addr"`
	// EnableTracing activates batch tracing
	EnableTracing bool `yaml:"enable_tracing" json:"enable_tracing" mapstructure:"enable_tracing"`
	// TracingSampleRate controls trace sampling (0.0-1.0)
	TracingSampleRate float64 `yaml:"tracing_sample_rate" json:"tracing_sample_rate" mapstructure:"tracing_sample_rate"`
}

// NewConfig creates a Config with sensible defaults.
func NewConfig(name string) *Config {
	return &Config{
		Name:    name,
		Version: "1.0.0",
		Hashing: HashingConfig{
			Function: "strings",
			Seed:     0,
			Bits:     18,
		},
		Parsing: ParsingConfig{
			Strict: false,
			Audit:  false,
			Label:  "simple",
		},
		Performance: PerformanceConfig{
			BatchSize:    256,
			Workers:      runtime.NumCPU(),
			MaxLineBytes: DefaultMaxLineBytes,
			FailFast:     false,
		},
		Sources: SourcesConfig{
			ReadBufferBytes: 64 * 1024,
		},
		Observability: ObservabilityConfig{
			LogLevel:          "info",
			LogEncoding:       "console",
			EnableMetrics:     false,
			MetricsAddr:       ":9090",
			EnableTracing:     false,
			TracingSampleRate: 0.1,
		},
	}
}

// Validate checks ranges and enumerations. It does not parse the feature
// option strings; the parser context reports those.
func (c *Config) Validate() error {
	switch c.Hashing.Function {
	case "", "strings", "all", "xxhash":
	default:
		return errors.New(errors.ErrorTypeConfig, "unknown hash function").
			WithDetail("function", c.Hashing.Function)
	}
	if c.Hashing.Bits < 0 || c.Hashing.Bits > MaxHashBits {
		return errors.New(errors.ErrorTypeConfig, "hashing.bits must be between 0 and 64").
			WithDetail("bits", c.Hashing.Bits)
	}
	switch c.Parsing.Label {
	case "", "simple", "none":
	default:
		return errors.New(errors.ErrorTypeConfig, "unknown label type").
			WithDetail("label", c.Parsing.Label)
	}
	if c.Performance.BatchSize <= 0 {
		return errors.New(errors.ErrorTypeConfig, "batch_size must be positive")
	}
	if c.Performance.Workers < 0 {
		return errors.New(errors.ErrorTypeConfig, "workers cannot be negative")
	}
	if c.Performance.MaxLineBytes < 0 {
		return errors.New(errors.ErrorTypeConfig, "max_line_bytes cannot be negative")
	}
	for i, d := range c.Features.Dictionaries {
		if d.Path == "" {
			return errors.New(errors.ErrorTypeConfig, "dictionary path is required").
				WithDetail("index", i)
		}
	}
	if c.Sources.GCSAnonymous && c.Sources.GCSCredentialsFile != "" {
		return errors.New(errors.ErrorTypeConfig, "gcs_anonymous and gcs_credentials_file are mutually exclusive")
	}
	if r := c.Observability.TracingSampleRate; r < 0 || r > 1 {
		return errors.New(errors.ErrorTypeConfig, "tracing_sample_rate must be within [0, 1]")
	}
	return nil
}

// Mask returns the index mask implied by Bits.
func (h *HashingConfig) Mask() uint64 {
	if h.Bits <= 0 || h.Bits >= MaxHashBits {
		return ^uint64(0)
	}
	return (uint64(1) << uint(h.Bits)) - 1
}

// GetWorkers returns the number of workers, ensuring it's at least 1
func (p *PerformanceConfig) GetWorkers() int {
	if p.Workers <= 0 {
		return runtime.NumCPU()
	}
	return p.Workers
}

// GetMaxLineBytes returns the line limit, falling back to the default.
func (p *PerformanceConfig) GetMaxLineBytes() int {
	if p.MaxLineBytes <= 0 {
		return DefaultMaxLineBytes
	}
	return p.MaxLineBytes
}
