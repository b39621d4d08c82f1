package authgate

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

type envConfig struct {
	Secret        string        `env:"AUTHGATE_JWT_SECRET"`
	AccessTTL     time.Duration `env:"AUTHGATE_ACCESS_TTL" envDefault:"2h"`
	Issuer        string        `env:"AUTHGATE_JWT_ISSUER" envDefault:"authgate"`
	Leeway        time.Duration `env:"AUTHGATE_JWT_LEEWAY" envDefault:"30s"`
	BcryptCost    int           `env:"AUTHGATE_BCRYPT_COST" envDefault:"0"`
	RefreshTTL    time.Duration `env:"AUTHGATE_REFRESH_TTL" envDefault:"168h"`
	SweepInterval time.Duration `env:"AUTHGATE_SWEEP_INTERVAL" envDefault:"24h"`
	LoginDisabled bool          `env:"AUTHGATE_LOGIN_LIMIT_DISABLED" envDefault:"false"`
	LoginMax      int           `env:"AUTHGATE_LOGIN_MAX_ATTEMPTS" envDefault:"5"`
	LoginWindow   time.Duration `env:"AUTHGATE_LOGIN_WINDOW" envDefault:"1m"`
	AuditEnabled  bool          `env:"AUTHGATE_AUDIT_ENABLED" envDefault:"false"`
	AuditBuffer   int           `env:"AUTHGATE_AUDIT_BUFFER" envDefault:"1024"`
	MetricsOn     bool          `env:"AUTHGATE_METRICS_ENABLED" envDefault:"false"`
}

// FromEnv builds a Config from AUTHGATE_* environment variables and
// validates it. AUTHGATE_JWT_SECRET is mandatory; a missing or short
// secret is an error so that misconfigured processes fail at startup
// rather than issue forgeable tokens.
func FromEnv() (Config, error) {
	var e envConfig
	if err := env.Parse(&e); err != nil {
		return Config{}, fmt.Errorf("authgate: parse environment: %w", err)
	}

	cfg := defaultConfig()
	cfg.JWT.Secret = []byte(e.Secret)
	cfg.JWT.AccessTTL = e.AccessTTL
	cfg.JWT.Issuer = e.Issuer
	cfg.JWT.Leeway = e.Leeway
	cfg.Password.BcryptCost = e.BcryptCost
	cfg.Refresh.TTL = e.RefreshTTL
	cfg.Refresh.SweepInterval = e.SweepInterval
	cfg.Login.Disabled = e.LoginDisabled
	cfg.Login.MaxAttempts = e.LoginMax
	cfg.Login.Window = e.LoginWindow
	cfg.Audit.Enabled = e.AuditEnabled
	cfg.Audit.BufferSize = e.AuditBuffer
	cfg.Metrics.Enabled = e.MetricsOn

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
