package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearEnv blanks every variable Load reads so the host environment cannot leak in.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"PORT", "GEMINI_API_KEY", "GOOGLE_API_KEY", "GOOGLE_CLOUD_PROJECT", "NO_DOTENV",
		"POCKETAI_PORT", "POCKETAI_GEMINI_API_KEY", "POCKETAI_GEMINI_MODEL",
		"POCKETAI_STORE_BACKEND", "POCKETAI_STORE_PROJECT_ID", "POCKETAI_IMAGES_BUCKET",
		"POCKETAI_ALGOLIA_APP_ID", "POCKETAI_ALGOLIA_API_KEY", "POCKETAI_SERVER_ALLOWED_ORIGINS",
	} {
		t.Setenv(k, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load(LoadOptions{SkipDotenv: true})
	require.NoError(t, err)

	want := Default()
	assert.Equal(t, want, *cfg)
	assert.False(t, cfg.GeminiConfigured())
	assert.False(t, cfg.AlgoliaConfigured())
}

func TestLoad_Environment(t *testing.T) {
	tests := []struct {
		name  string
		env   map[string]string
		check func(t *testing.T, cfg *Config)
	}{
		{
			name: "bare PORT",
			env:  map[string]string{"PORT": "9090"},
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 9090, cfg.Port)
			},
		},
		{
			name: "prefixed port wins over bare",
			env:  map[string]string{"PORT": "9090", "POCKETAI_PORT": "7070"},
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 7070, cfg.Port)
			},
		},
		{
			name: "GOOGLE_API_KEY fallback",
			env:  map[string]string{"GOOGLE_API_KEY": "g-key"},
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "g-key", cfg.Gemini.APIKey)
				assert.True(t, cfg.GeminiConfigured())
			},
		},
		{
			name: "GEMINI_API_KEY preferred",
			env:  map[string]string{"GOOGLE_API_KEY": "g-key", "GEMINI_API_KEY": "gem-key"},
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "gem-key", cfg.Gemini.APIKey)
			},
		},
		{
			name: "firestore backend with project",
			env: map[string]string{
				"POCKETAI_STORE_BACKEND": "firestore",
				"GOOGLE_CLOUD_PROJECT":   "demo-project",
			},
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, BackendFirestore, cfg.Store.Backend)
				assert.Equal(t, "demo-project", cfg.Store.ProjectID)
			},
		},
		{
			name: "nested keys and origin list",
			env: map[string]string{
				"POCKETAI_GEMINI_MODEL":           "gemini-2.0-flash",
				"POCKETAI_IMAGES_BUCKET":          "scan-photos",
				"POCKETAI_ALGOLIA_APP_ID":         "APP",
				"POCKETAI_ALGOLIA_API_KEY":        "KEY",
				"POCKETAI_SERVER_ALLOWED_ORIGINS": "https://a.example,https://b.example",
			},
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "gemini-2.0-flash", cfg.Gemini.Model)
				assert.Equal(t, "scan-photos", cfg.Images.Bucket)
				assert.True(t, cfg.AlgoliaConfigured())
				assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Server.AllowedOrigins)
			},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tc.env {
				t.Setenv(k, v)
			}
			cfg, err := Load(LoadOptions{SkipDotenv: true})
			require.NoError(t, err)
			tc.check(t, cfg)
		})
	}
}

func TestLoad_ConfigFile(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "pocketai.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
port: 8222
gemini:
  model: gemini-1.5-pro
server:
  recent_limit: 25
`), 0o644))

	cfg, err := Load(LoadOptions{ConfigFile: path, SkipDotenv: true})
	require.NoError(t, err)
	assert.Equal(t, 8222, cfg.Port)
	assert.Equal(t, "gemini-1.5-pro", cfg.Gemini.Model)
	assert.Equal(t, 25, cfg.Server.RecentLimit)
	assert.Equal(t, int64(10<<20), cfg.Server.MaxUploadBytes)

	t.Setenv("POCKETAI_PORT", "8333")
	cfg, err = Load(LoadOptions{ConfigFile: path, SkipDotenv: true})
	require.NoError(t, err)
	assert.Equal(t, 8333, cfg.Port)
}

func TestLoad_MissingExplicitConfigFile(t *testing.T) {
	clearEnv(t)
	_, err := Load(LoadOptions{ConfigFile: filepath.Join(t.TempDir(), "nope.yaml"), SkipDotenv: true})
	assert.Error(t, err)
}

func TestLoad_Dotenv(t *testing.T) {
	clearEnv(t)
	// godotenv never overrides a variable that is already set, even to ""
	os.Unsetenv("GEMINI_API_KEY")
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("GEMINI_API_KEY=from-dotenv\n"), 0o600))

	cfg, err := Load(LoadOptions{DotenvFiles: []string{path, filepath.Join(t.TempDir(), "missing.env")}})
	require.NoError(t, err)
	assert.Equal(t, "from-dotenv", cfg.Gemini.APIKey)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
		ok     bool
	}{
		{"defaults", func(c *Config) {}, true},
		{"zero port", func(c *Config) { c.Port = 0 }, false},
		{"huge port", func(c *Config) { c.Port = 70000 }, false},
		{"unknown backend", func(c *Config) { c.Store.Backend = "postgres" }, false},
		{"firestore without project", func(c *Config) { c.Store.Backend = BackendFirestore }, false},
		{"firestore with project", func(c *Config) {
			c.Store.Backend = BackendFirestore
			c.Store.ProjectID = "p"
		}, true},
		{"no upload budget", func(c *Config) { c.Server.MaxUploadBytes = 0 }, false},
		{"no recent limit", func(c *Config) { c.Server.RecentLimit = -1 }, false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if tc.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}
