// Package config loads the service configuration from an optional .env
// file, an optional YAML file and environment overrides, in that order.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Log struct {
	Level  string `yaml:"level" validate:"omitempty,oneof=debug info warn warning error"`
	Format string `yaml:"format" validate:"omitempty,oneof=text json"`
}

type Inference struct {
	Provider    string        `yaml:"provider" validate:"required,oneof=openai gemini anthropic"`
	APIKey      string        `yaml:"api_key"`
	BaseURL     string        `yaml:"base_url" validate:"omitempty,url"`
	Model       string        `yaml:"model" validate:"required"`
	Temperature float32       `yaml:"temperature" validate:"gte=0,lte=2"`
	MaxTokens   int           `yaml:"max_tokens" validate:"gte=0"`
	Timeout     time.Duration `yaml:"timeout" validate:"gte=0"`
}

type Search struct {
	BaseURL    string        `yaml:"base_url" validate:"required,url"`
	Language   string        `yaml:"language"`
	Engines    string        `yaml:"engines"`
	MaxResults int           `yaml:"max_results" validate:"gte=0"`
	Timeout    time.Duration `yaml:"timeout" validate:"gte=0"`
	// Scrape enriches the top result of every lookup with the page content
	Scrape        bool          `yaml:"scrape"`
	ScrapeTimeout time.Duration `yaml:"scrape_timeout" validate:"gte=0"`
	MaxSnippets   int           `yaml:"max_snippets" validate:"gte=0"`
	SnippetTokens int           `yaml:"snippet_tokens" validate:"gte=0"`
	// Encoding tiktoken encoding, empty counts words
	Encoding string `yaml:"encoding"`
}

type Server struct {
	Addr           string        `yaml:"addr" validate:"required"`
	AllowedOrigins []string      `yaml:"allowed_origins"`
	MaxUploadBytes int64         `yaml:"max_upload_bytes" validate:"gt=0"`
	ReadTimeout    time.Duration `yaml:"read_timeout" validate:"gte=0"`
	WriteTimeout   time.Duration `yaml:"write_timeout" validate:"gte=0"`
}

type Store struct {
	// Driver sqlite or pgx, empty disables history
	Driver string `yaml:"driver" validate:"omitempty,oneof=sqlite pgx"`
	DSN    string `yaml:"dsn" validate:"required_with=Driver"`
}

type Archive struct {
	Enabled      bool   `yaml:"enabled"`
	Bucket       string `yaml:"bucket"`
	Region       string `yaml:"region"`
	Endpoint     string `yaml:"endpoint" validate:"omitempty,url"`
	AccessKey    string `yaml:"access_key"`
	SecretKey    string `yaml:"secret_key"`
	UsePathStyle bool   `yaml:"use_path_style"`
	Prefix       string `yaml:"prefix"`
}

// Hosting identifiers of the environment the service runs in. Plain strings
// handed to the components that need them.
type Hosting struct {
	Project string `yaml:"project"`
	Region  string `yaml:"region"`
	Bucket  string `yaml:"bucket"`
}

type Config struct {
	Log       Log       `yaml:"log"`
	Inference Inference `yaml:"inference"`
	Search    Search    `yaml:"search"`
	Server    Server    `yaml:"server"`
	Store     Store     `yaml:"store"`
	Archive   Archive   `yaml:"archive"`
	Hosting   Hosting   `yaml:"hosting"`
}

// Default returns the configuration used when nothing overrides it
func Default() *Config {
	return &Config{
		Log: Log{Level: "info", Format: "text"},
		Inference: Inference{
			Provider:    "gemini",
			Model:       "gemini-2.5-flash",
			Temperature: 0.2,
			MaxTokens:   2048,
			Timeout:     90 * time.Second,
		},
		Search: Search{
			BaseURL:       "http://localhost:8080",
			MaxResults:    5,
			Timeout:       20 * time.Second,
			ScrapeTimeout: 15 * time.Second,
			MaxSnippets:   5,
			SnippetTokens: 1200,
		},
		Server: Server{
			Addr:           ":8080",
			AllowedOrigins: []string{"*"},
			MaxUploadBytes: 10 << 20,
			ReadTimeout:    30 * time.Second,
			WriteTimeout:   3 * time.Minute,
		},
		Hosting: Hosting{Region: "us-central1"},
	}
}

// Load reads the configuration. envFiles default to an optional .env in the
// working directory; a YAML path may be empty.
func Load(path string, envFiles ...string) (*Config, error) {
	if err := loadEnvFiles(envFiles...); err != nil {
		return nil, err
	}
	cfg := Default()
	if path != "" {
		bs, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(bs, cfg); err != nil {
			return nil, fmt.Errorf("parse config yaml: %w", err)
		}
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadEnvFiles(files ...string) error {
	if len(files) == 0 {
		if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load .env: %w", err)
		}
		return nil
	}
	if err := godotenv.Load(files...); err != nil {
		return fmt.Errorf("load env files: %w", err)
	}
	return nil
}

// LookupEnv is os.LookupEnv compatible
type LookupEnv func(key string) (string, bool)

// ApplyEnv overrides fields from environment variables
func (c *Config) ApplyEnv(lookup LookupEnv) error {
	str := func(dst *string, keys ...string) {
		for _, key := range keys {
			if v, ok := lookup(key); ok && v != "" {
				*dst = v
				return
			}
		}
	}
	var errs []error
	num := func(dst *int, key string) {
		if v, ok := lookup(key); ok && v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = n
		}
	}
	flag := func(dst *bool, key string) {
		if v, ok := lookup(key); ok && v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = b
		}
	}

	str(&c.Log.Level, "MEAL_LOG_LEVEL")
	str(&c.Log.Format, "MEAL_LOG_FORMAT")

	str(&c.Inference.Provider, "MEAL_PROVIDER")
	str(&c.Inference.Model, "MEAL_MODEL")
	str(&c.Inference.BaseURL, "MEAL_API_BASE_URL")
	switch c.Inference.Provider {
	case "openai":
		str(&c.Inference.APIKey, "MEAL_API_KEY", "OPENAI_API_KEY")
	case "anthropic":
		str(&c.Inference.APIKey, "MEAL_API_KEY", "ANTHROPIC_API_KEY")
	default:
		str(&c.Inference.APIKey, "MEAL_API_KEY", "GEMINI_API_KEY", "GOOGLE_API_KEY")
	}
	if v, ok := lookup("MEAL_TEMPERATURE"); ok && v != "" {
		f, err := strconv.ParseFloat(v, 32)
		if err != nil {
			errs = append(errs, fmt.Errorf("MEAL_TEMPERATURE: %w", err))
		} else {
			c.Inference.Temperature = float32(f)
		}
	}
	num(&c.Inference.MaxTokens, "MEAL_MAX_TOKENS")

	str(&c.Search.BaseURL, "MEAL_SEARCH_URL", "SEARXNG_URL")
	flag(&c.Search.Scrape, "MEAL_SEARCH_SCRAPE")
	str(&c.Search.Encoding, "MEAL_TOKEN_ENCODING")

	if v, ok := lookup("PORT"); ok && v != "" {
		c.Server.Addr = ":" + strings.TrimPrefix(v, ":")
	}
	str(&c.Server.Addr, "MEAL_ADDR")

	str(&c.Store.Driver, "MEAL_STORE_DRIVER")
	str(&c.Store.DSN, "MEAL_STORE_DSN", "DATABASE_URL")

	flag(&c.Archive.Enabled, "MEAL_ARCHIVE")
	str(&c.Archive.Bucket, "MEAL_ARCHIVE_BUCKET")
	str(&c.Archive.Region, "MEAL_ARCHIVE_REGION", "AWS_REGION")
	str(&c.Archive.Endpoint, "MEAL_ARCHIVE_ENDPOINT")
	str(&c.Archive.AccessKey, "AWS_ACCESS_KEY_ID")
	str(&c.Archive.SecretKey, "AWS_SECRET_ACCESS_KEY")

	str(&c.Hosting.Project, "GOOGLE_CLOUD_PROJECT")
	str(&c.Hosting.Region, "GOOGLE_CLOUD_LOCATION")
	str(&c.Hosting.Bucket, "STAGING_BUCKET")
	return errors.Join(errs...)
}

// Validate checks field constraints
func (c *Config) Validate() error {
	if err := validator.New(validator.WithRequiredStructEnabled()).Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if c.Archive.Enabled && c.ArchiveBucket() == "" {
		return errors.New("invalid config: archive enabled without a bucket")
	}
	return nil
}

// ArchiveBucket returns the archive bucket, falling back to the hosting one
func (c *Config) ArchiveBucket() string {
	if c.Archive.Bucket != "" {
		return c.Archive.Bucket
	}
	return c.Hosting.Bucket
}
