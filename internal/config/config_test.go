package config

import (
	"flag"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// resetFlagSet gives every NewConfig call a fresh FlagSet so flags are not redefined between tests.
func resetFlagSet(t *testing.T) {
	t.Helper()
	flag.CommandLine = flag.NewFlagSet(os.Args[0], flag.ContinueOnError)
	flag.CommandLine.SetOutput(os.Stderr)
}

func validProject() Project {
	return Project{
		APIKey:            "sr_0123456789abcdefghijklmnopqrstuvwxyz",
		AuthDomain:        "auth.supplyrun.test:8443",
		ProjectID:         "supplyrun-dev",
		StorageBucket:     "supplyrun-dev.appspot.test",
		MessagingSenderID: "123456789012",
		AppID:             "1:123456789012:cli:abc123",
	}
}

func TestNewConfig_DefaultsWhenEnvEmpty(t *testing.T) {
	t.Setenv("DATABASE_URI", "")
	t.Setenv("AUTH_SECRET", "")
	t.Setenv("AUTH_TOKEN_TTL", "")
	t.Setenv("BASE_URL", "")
	t.Setenv("ENABLE_HTTPS", "")
	t.Setenv("CLIENT_DB_PATH", "")
	t.Setenv("SUPPLYRUN_AUTH_DOMAIN", "")

	resetFlagSet(t)
	cfg := NewConfig()

	assert.Equal(t, "dev-secret-key", cfg.AuthSecret)
	assert.Equal(t, 24*time.Hour, cfg.AuthTokenTTL)
	assert.Equal(t, 500, cfg.MaxDocuments)
	assert.Equal(t, 5*time.Second, cfg.ReconnectTimeout)
	assert.Equal(t, "localhost:8081", cfg.BaseURL)
	assert.Equal(t, "http://localhost:8081", cfg.ServerURL)
	assert.Equal(t, cfg.ServerURL, cfg.AuthURL, "auth endpoints default to the backend address")
	assert.NotEmpty(t, cfg.ClientDBPath)
}

func TestNewConfig_BaseURLAndHTTPS(t *testing.T) {
	t.Setenv("BASE_URL", "example.com:443")
	t.Setenv("ENABLE_HTTPS", "true")
	t.Setenv("AUTH_SECRET", "top")
	t.Setenv("SUPPLYRUN_AUTH_DOMAIN", "  auth.example.com:443 ")

	resetFlagSet(t)
	cfg := NewConfig()

	assert.Equal(t, "example.com:443", cfg.BaseURL)
	assert.Equal(t, "https://example.com:443", cfg.ServerURL)
	assert.Equal(t, "https://auth.example.com:443", cfg.AuthURL)
	assert.Equal(t, "top", cfg.AuthSecret)
}

func TestNewConfig_InvalidBaseURLFallback(t *testing.T) {
	t.Setenv("BASE_URL", "http://bad:8080")
	t.Setenv("ENABLE_HTTPS", "false")

	resetFlagSet(t)
	cfg := NewConfig()

	assert.Equal(t, "localhost:8081", cfg.BaseURL)
	assert.True(t, strings.HasPrefix(cfg.ServerURL, "http://localhost:8081"))
}

func TestNewConfig_ProjectFromEnvIsTrimmed(t *testing.T) {
	p := validProject()
	t.Setenv("SUPPLYRUN_API_KEY", " "+p.APIKey+"\n")
	t.Setenv("SUPPLYRUN_PROJECT_ID", "\t"+p.ProjectID)

	resetFlagSet(t)
	cfg := NewConfig()

	assert.Equal(t, p.APIKey, cfg.Project.APIKey)
	assert.Equal(t, p.ProjectID, cfg.Project.ProjectID)
}

func TestProject_Validate(t *testing.T) {
	t.Run("ok", func(t *testing.T) {
		assert.NoError(t, validProject().Validate())
	})

	t.Run("surrounding whitespace is ignored", func(t *testing.T) {
		p := validProject()
		p.AppID = "  " + p.AppID + "  "
		assert.NoError(t, p.Validate())
	})

	t.Run("missing values are all reported", func(t *testing.T) {
		p := validProject()
		p.StorageBucket = ""
		p.AppID = "   "
		err := p.Validate()
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrInvalidProject)
		assert.Contains(t, err.Error(), "SUPPLYRUN_STORAGE_BUCKET")
		assert.Contains(t, err.Error(), "SUPPLYRUN_APP_ID")
	})

	placeholders := map[string]string{
		"ellipsis":        "supplyrun...",
		"your- lowercase": "your-project-id",
		"your- mixed":     "Your-Project",
		"YOUR_":           "YOUR_PROJECT_ID",
	}
	for name, v := range placeholders {
		t.Run("placeholder "+name, func(t *testing.T) {
			p := validProject()
			p.ProjectID = v
			err := p.Validate()
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidProject)
			assert.Contains(t, err.Error(), "SUPPLYRUN_PROJECT_ID")
		})
	}

	t.Run("malformed api key", func(t *testing.T) {
		p := validProject()
		p.APIKey = "short key"
		err := p.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unexpected format")
	})

	t.Run("placeholder api key reported once", func(t *testing.T) {
		p := validProject()
		p.APIKey = "YOUR_API_KEY"
		err := p.Validate()
		require.Error(t, err)
		assert.NotContains(t, err.Error(), "unexpected format")
	})
}
