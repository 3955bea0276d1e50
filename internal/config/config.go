// Package config loads console configuration from the environment and the
// optional navigation file.
package config

import (
	"fmt"

	"github.com/joeshaw/envdecode"
	"github.com/joho/godotenv"
)

// Config is the environment-driven console configuration. The API origin
// is supplied at deploy time; everything else has a workable default.
type Config struct {
	APIBaseURL string `env:"CHMS_API_URL,default=https://api.parishdesk.example/v1"`
	AuthPath   string `env:"CHMS_AUTH_PATH,default=/auth/login"`
	ListenAddr string `env:"CONSOLE_ADDR,default=:8080"`
	TokenDir   string `env:"CONSOLE_TOKEN_DIR,default="`
	LogLevel   string `env:"LOG_LEVEL,default=info"`
	LogFormat  string `env:"LOG_FORMAT,default=text"`
	NavFile    string `env:"CONSOLE_NAV_FILE,default=config/navigation.yaml"`

	// LoginRatePerSecond and LoginBurst bound login attempts per client.
	LoginRatePerSecond float64 `env:"LOGIN_RATE_PER_SECOND,default=1"`
	LoginBurst         int     `env:"LOGIN_BURST,default=5"`

	// ExpirySweepSpec is the cron spec for the token expiry sweeper.
	ExpirySweepSpec string `env:"SESSION_SWEEP_SPEC,default=@every 1m"`
}

// Load reads .env when present, then decodes the environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envdecode.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode environment: %w", err)
	}
	if cfg.APIBaseURL == "" {
		return nil, fmt.Errorf("CHMS_API_URL is required")
	}
	return &cfg, nil
}

// AuthURL returns the absolute URL of the authentication endpoint.
func (c *Config) AuthURL() string {
	return c.APIBaseURL + c.AuthPath
}
