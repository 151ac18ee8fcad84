package config

import (
	"flag"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
)

type Config struct {
	// Server-side settings
	DatabaseDSN         string        `env:"DATABASE_URI"`
	AuthSecret          string        `env:"AUTH_SECRET"`
	AuthTokenTTL        time.Duration `env:"AUTH_TOKEN_TTL"`
	HideUnknownAccounts bool          `env:"AUTH_HIDE_UNKNOWN_ACCOUNTS"`
	ExternalTokenSecret string        `env:"EXTERNAL_TOKEN_SECRET"`
	ExternalIssuer      string        `env:"EXTERNAL_TOKEN_ISSUER"`
	ExternalAudience    string        `env:"EXTERNAL_TOKEN_AUDIENCE"`
	MaxDocuments        int           `env:"MAX_DOCUMENTS_PER_COLLECTION"`
	ListenPingInterval  time.Duration `env:"LISTEN_PING_INTERVAL"`

	// Shared settings
	BaseURL     string `env:"BASE_URL"`
	EnableHTTPS bool   `env:"ENABLE_HTTPS"`
	Project     Project

	// Client-side settings
	ServerURL        string        `env:"-"`
	AuthURL          string        `env:"-"`
	ClientDBPath     string        `env:"CLIENT_DB_PATH"`
	ReconnectTimeout time.Duration `env:"RECONNECT_TIMEOUT"`
	Verbose          bool          `env:"-"` // client debug logging to stderr (flag only)
	Version          bool          `env:"-"` // show client version and exit (flag only)
}

func NewConfig() *Config {
	_ = godotenv.Load()

	cfg := &Config{}
	_ = env.Parse(cfg)

	// flags override whatever came from the environment
	// Server flags
	flag.StringVar(&cfg.DatabaseDSN, "d", cfg.DatabaseDSN, "database DSN (postgres://... or a sqlite file path)")
	flag.StringVar(&cfg.AuthSecret, "auth-secret", cfg.AuthSecret, "secret used to sign access tokens")
	flag.DurationVar(&cfg.AuthTokenTTL, "token-ttl", cfg.AuthTokenTTL, "access token lifetime")
	flag.IntVar(&cfg.MaxDocuments, "max-docs", cfg.MaxDocuments, "max documents per collection")
	// Shared/client flags
	flag.StringVar(&cfg.BaseURL, "base-url", cfg.BaseURL, "address of the SupplyRun backend (host:port)")
	flag.BoolVar(&cfg.EnableHTTPS, "https", cfg.EnableHTTPS, "use https/wss schemes when talking to the backend")
	// Client flags
	flag.StringVar(&cfg.ClientDBPath, "client-db", cfg.ClientDBPath, "directory for the client snapshot cache")
	flag.DurationVar(&cfg.ReconnectTimeout, "reconnect", cfg.ReconnectTimeout, "delay between live feed reconnect attempts")
	flag.BoolVar(&cfg.Verbose, "v", cfg.Verbose, "verbose client logging")
	flag.BoolVar(&cfg.Version, "version", cfg.Version, "Show client version and exit")

	flag.Parse()

	cfg.applyDefaults()
	return cfg
}

func (cfg *Config) applyDefaults() {
	if cfg.AuthSecret == "" {
		cfg.AuthSecret = "dev-secret-key"
	}
	if cfg.AuthTokenTTL <= 0 {
		cfg.AuthTokenTTL = 24 * time.Hour
	}
	if cfg.ExternalIssuer == "" {
		cfg.ExternalIssuer = "supplyrun-external"
	}
	if cfg.ExternalAudience == "" {
		cfg.ExternalAudience = "supplyrun"
	}
	if cfg.MaxDocuments <= 0 {
		cfg.MaxDocuments = 500
	}
	if cfg.ListenPingInterval <= 0 {
		cfg.ListenPingInterval = 15 * time.Second
	}
	if cfg.ReconnectTimeout <= 0 {
		cfg.ReconnectTimeout = 5 * time.Second
	}

	// validate BaseURL: must be in "address:port" (no scheme, no path). Otherwise use default.
	hostPortRe := regexp.MustCompile(`^[A-Za-z0-9\.\-]+:\d{1,5}$`)
	if !hostPortRe.MatchString(cfg.BaseURL) {
		cfg.BaseURL = "localhost:8081"
	}

	scheme := "http://"
	if cfg.EnableHTTPS {
		scheme = "https://"
	}
	cfg.ServerURL = scheme + cfg.BaseURL

	cfg.Project.normalize()
	if cfg.Project.AuthDomain != "" {
		cfg.AuthURL = scheme + cfg.Project.AuthDomain
	} else {
		cfg.AuthURL = cfg.ServerURL
	}

	if cfg.ClientDBPath == "" {
		if dir, err := os.UserConfigDir(); err == nil {
			cfg.ClientDBPath = filepath.Join(dir, "SupplyRun", "users")
		}
	}
}
