// Package config loads runtime settings from flags, environment, an optional
// YAML file and a local .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	BackendMemory    = "memory"
	BackendFirestore = "firestore"
)

// Config is the full server configuration.
type Config struct {
	Port    int           `mapstructure:"port"`
	Gemini  GeminiConfig  `mapstructure:"gemini"`
	Store   StoreConfig   `mapstructure:"store"`
	Images  ImagesConfig  `mapstructure:"images"`
	Algolia AlgoliaConfig `mapstructure:"algolia"`
	Server  ServerConfig  `mapstructure:"server"`
}

type GeminiConfig struct {
	APIKey  string `mapstructure:"api_key"`
	Model   string `mapstructure:"model"`
	BaseURL string `mapstructure:"base_url"`
}

type StoreConfig struct {
	Backend         string `mapstructure:"backend"`
	ProjectID       string `mapstructure:"project_id"`
	CredentialsFile string `mapstructure:"credentials_file"`
}

// ImagesConfig enables uploading scan photos to GCS when Bucket is set.
type ImagesConfig struct {
	Bucket string `mapstructure:"bucket"`
	Prefix string `mapstructure:"prefix"`
}

// AlgoliaConfig enables Algolia history search when AppID and APIKey are set.
type AlgoliaConfig struct {
	AppID  string `mapstructure:"app_id"`
	APIKey string `mapstructure:"api_key"`
	Index  string `mapstructure:"index"`
}

type ServerConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	MaxUploadBytes int64    `mapstructure:"max_upload_bytes"`
	RecentLimit    int      `mapstructure:"recent_limit"`
}

// Default returns the configuration used when nothing overrides it.
func Default() Config {
	return Config{
		Port: 8111,
		Gemini: GeminiConfig{
			Model: "gemini-1.5-flash",
		},
		Store: StoreConfig{
			Backend: BackendMemory,
		},
		Images: ImagesConfig{
			Prefix: "scans",
		},
		Algolia: AlgoliaConfig{
			Index: "pocketai",
		},
		Server: ServerConfig{
			AllowedOrigins: []string{"http://localhost:5173", "http://127.0.0.1:5173", "http://localhost:8111"},
			MaxUploadBytes: 10 << 20,
			RecentLimit:    10,
		},
	}
}

// GeminiConfigured reports whether a Gemini API key is available.
func (c *Config) GeminiConfigured() bool {
	return c.Gemini.APIKey != ""
}

// AlgoliaConfigured reports whether Algolia search should be used.
func (c *Config) AlgoliaConfigured() bool {
	return c.Algolia.AppID != "" && c.Algolia.APIKey != ""
}

// Validate checks settings that would otherwise fail late at startup.
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("port %d out of range", c.Port)
	}
	switch c.Store.Backend {
	case BackendMemory:
	case BackendFirestore:
		if c.Store.ProjectID == "" {
			return errors.New("store.project_id is required for the firestore backend")
		}
	default:
		return fmt.Errorf("unknown store backend %q", c.Store.Backend)
	}
	if c.Server.MaxUploadBytes <= 0 {
		return errors.New("server.max_upload_bytes must be positive")
	}
	if c.Server.RecentLimit <= 0 {
		return errors.New("server.recent_limit must be positive")
	}
	return nil
}

// LoadOptions control where configuration is read from.
type LoadOptions struct {
	// ConfigFile overrides the ./config.yaml lookup.
	ConfigFile string
	// DotenvFiles are loaded before reading the environment. Defaults to .env.
	DotenvFiles []string
	SkipDotenv  bool
}

// Load resolves configuration with precedence env > config file > defaults.
func Load(opts LoadOptions) (*Config, error) {
	if !opts.SkipDotenv && os.Getenv("NO_DOTENV") != "1" {
		if err := loadDotenv(opts.DotenvFiles); err != nil {
			return nil, err
		}
	}

	v := viper.New()
	setDefaults(v, Default())

	v.SetEnvPrefix("POCKETAI")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// unprefixed names used by hosting platforms and the Gemini SDK docs
	bindings := map[string][]string{
		"port":             {"POCKETAI_PORT", "PORT"},
		"gemini.api_key":   {"POCKETAI_GEMINI_API_KEY", "GEMINI_API_KEY", "GOOGLE_API_KEY"},
		"store.project_id": {"POCKETAI_STORE_PROJECT_ID", "GOOGLE_CLOUD_PROJECT"},
	}
	for key, envs := range bindings {
		if err := v.BindEnv(append([]string{key}, envs...)...); err != nil {
			return nil, fmt.Errorf("bind %s: %w", key, err)
		}
	}

	if opts.ConfigFile != "" {
		v.SetConfigFile(opts.ConfigFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if opts.ConfigFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper, d Config) {
	v.SetDefault("port", d.Port)
	v.SetDefault("gemini.api_key", d.Gemini.APIKey)
	v.SetDefault("gemini.model", d.Gemini.Model)
	v.SetDefault("gemini.base_url", d.Gemini.BaseURL)
	v.SetDefault("store.backend", d.Store.Backend)
	v.SetDefault("store.project_id", d.Store.ProjectID)
	v.SetDefault("store.credentials_file", d.Store.CredentialsFile)
	v.SetDefault("images.bucket", d.Images.Bucket)
	v.SetDefault("images.prefix", d.Images.Prefix)
	v.SetDefault("algolia.app_id", d.Algolia.AppID)
	v.SetDefault("algolia.api_key", d.Algolia.APIKey)
	v.SetDefault("algolia.index", d.Algolia.Index)
	v.SetDefault("server.allowed_origins", d.Server.AllowedOrigins)
	v.SetDefault("server.max_upload_bytes", d.Server.MaxUploadBytes)
	v.SetDefault("server.recent_limit", d.Server.RecentLimit)
}

// loadDotenv loads the given files without overriding variables already set.
// Missing files are ignored.
func loadDotenv(paths []string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("load %s: %w", p, err)
		}
	}
	return nil
}
