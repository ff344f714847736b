package config_test

import (
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"receiptai/internal/config"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("RECEIPTAI_SERVER_ENVIRONMENT", config.EnvDevelopment)
	t.Setenv("RECEIPTAI_STORE_BACKEND", config.StoreMemory)

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, config.StoreMemory, cfg.Store.Backend)
	assert.Equal(t, "jpn+eng", cfg.OCR.Language)
	assert.Equal(t, 200_000, cfg.Model.ChunkSize)
	assert.Equal(t, time.Minute, cfg.Model.CacheTTL)
	assert.Equal(t, 100, cfg.Train.PageSize)
	assert.Equal(t, 10*time.Minute, cfg.Security.IdempotencyTTL)
}

func TestLoad_LegacyVariableNames(t *testing.T) {
	t.Setenv("RECEIPTAI_SERVER_ENVIRONMENT", config.EnvProduction)
	t.Setenv("RECEIPTAI_STORE_BACKEND", config.StoreBubble)
	t.Setenv("BUBBLE_API_BASE", "https://app.bubbleapps.io/version-test/api/1.1/obj/")
	t.Setenv("BUBBLE_API_KEY", "key")
	t.Setenv("OCR_ENGINE", "local")
	t.Setenv("ADMIN_TOKEN", "admin-secret")
	t.Setenv("BUBBLE_SIGNATURE_SECRET", "sig")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, "https://app.bubbleapps.io/version-test/api/1.1", cfg.Bubble.APIBase)
	assert.Equal(t, "key", cfg.Bubble.APIKey)
	assert.Equal(t, []string{"tesseract"}, cfg.OCR.Engines)
	assert.Equal(t, "admin-secret", cfg.Auth.AdminToken)
	assert.Equal(t, "sig", cfg.Security.SignatureSecret)
}

func TestLoad_PrefixedNameWins(t *testing.T) {
	t.Setenv("RECEIPTAI_STORE_BACKEND", config.StoreMemory)
	t.Setenv("RECEIPTAI_SERVER_ENVIRONMENT", config.EnvDevelopment)
	t.Setenv("RECEIPTAI_OCR_LANGUAGE", "eng")
	t.Setenv("OCR_LANGUAGE", "jpn")

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, "eng", cfg.OCR.Language)
}

func TestValidate(t *testing.T) {
	valid := func() *config.Config {
		return &config.Config{
			Server: config.ServerConfig{Environment: config.EnvProduction},
			Store:  config.StoreConfig{Backend: config.StoreMemory, MaxFieldLength: 1000},
			OCR:    config.OCRConfig{Engines: []string{"text"}, Language: "jpn"},
			Model:  config.ModelConfig{ChunkSize: 100},
			Auth:   config.AuthConfig{AdminToken: "secret"},
		}
	}

	t.Run("valid", func(t *testing.T) {
		assert.NoError(t, valid().Validate())
	})

	t.Run("admin_token_required_in_production", func(t *testing.T) {
		cfg := valid()
		cfg.Auth.AdminToken = ""
		assert.Error(t, cfg.Validate())

		cfg.Auth.AdminTokenHash = "$2a$10$hash"
		assert.NoError(t, cfg.Validate())
	})

	t.Run("admin_token_optional_in_development", func(t *testing.T) {
		cfg := valid()
		cfg.Auth.AdminToken = ""
		cfg.Server.Environment = config.EnvDevelopment
		assert.NoError(t, cfg.Validate())
	})

	t.Run("bubble_requires_https_and_key", func(t *testing.T) {
		cfg := valid()
		cfg.Store.Backend = config.StoreBubble
		cfg.Bubble.APIBase = "http://insecure.example"
		assert.Error(t, cfg.Validate())
	})

	t.Run("unknown_backend", func(t *testing.T) {
		cfg := valid()
		cfg.Store.Backend = "redis"
		assert.Error(t, cfg.Validate())
	})

	t.Run("sql_driver", func(t *testing.T) {
		cfg := valid()
		cfg.Store.Backend = config.StoreSQL
		cfg.DB.Driver = "mysql"
		assert.Error(t, cfg.Validate())
		cfg.DB.Driver = "sqlite"
		assert.NoError(t, cfg.Validate())
	})

	t.Run("chunk_size", func(t *testing.T) {
		cfg := valid()
		cfg.Model.ChunkSize = 0
		assert.Error(t, cfg.Validate())

		cfg.Model.ChunkSize = 5000
		assert.Error(t, cfg.Validate())
	})

	t.Run("negative_cache_ttl", func(t *testing.T) {
		cfg := valid()
		cfg.Model.CacheTTL = -time.Second
		assert.Error(t, cfg.Validate())
	})

	t.Run("local_engine_alias", func(t *testing.T) {
		cfg := valid()
		cfg.OCR.Engines = []string{"local", "text"}
		require.NoError(t, cfg.Validate())
		assert.Equal(t, []string{"tesseract", "text"}, cfg.OCR.Engines)
	})
}

func TestNormalizeBubbleBase(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    string
		wantErr bool
	}{
		{"api_root", "https://x.bubbleapps.io/api/1.1", "https://x.bubbleapps.io/api/1.1", false},
		{"obj_suffix", "https://x.bubbleapps.io/api/1.1/obj", "https://x.bubbleapps.io/api/1.1", false},
		{"obj_suffix_slash", " https://x.bubbleapps.io/api/1.1/obj/ ", "https://x.bubbleapps.io/api/1.1", false},
		{"http_rejected", "http://x.bubbleapps.io/api/1.1", "", true},
		{"empty", "", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := config.NormalizeBubbleBase(tt.raw)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestServerConfig_Location(t *testing.T) {
	s := config.ServerConfig{}
	assert.Equal(t, time.UTC, s.Location())

	s.Timezone = "Asia/Tokyo"
	assert.Equal(t, "Asia/Tokyo", s.Location().String())

	s.Timezone = "Not/AZone"
	assert.Equal(t, time.UTC, s.Location())
}
