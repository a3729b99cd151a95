package config

import (
	"errors"
	"fmt"
	"net"
	"net/netip"
	"net/url"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/time/rate"
)

// Config is the process configuration read from the environment.
type Config struct {
	AppName  string `env:"APP_NAME" envDefault:"graintrade-auth"`
	DevMode  bool   `env:"DEV_MODE"`
	HTTPAddr string `env:"HTTP_ADDR" envDefault:":8080"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	PGUser      string `env:"PGUSER" envDefault:"postgres"`
	PGPassword  string `env:"PGPASSWORD"`
	PGDatabase  string `env:"PGDATABASE" envDefault:"graintrade"`
	PGHost      string `env:"PGHOST"`
	PGPort      string `env:"PGPORT" envDefault:"5432"`
	DatabaseURL string `env:"DATABASE_URL"`

	MigrateOnStart bool `env:"MIGRATE_ON_START" envDefault:"true"`

	JWTSecret    string `env:"JWT_SECRET"`
	JWTAlgorithm string `env:"JWT_ALGORITHM" envDefault:"HS256"`
	// JWTExpiresIn is the access token lifetime in minutes.
	JWTExpiresIn int `env:"JWT_EXPIRES_IN" envDefault:"1440"`
	BcryptCost   int `env:"BCRYPT_COST" envDefault:"12"`

	RedisURL     string `env:"REDIS_URL"`
	NotifyStream string `env:"NOTIFY_STREAM" envDefault:"new-user"`

	LoginRateBurst       int     `env:"LOGIN_RATE_BURST" envDefault:"10"`
	LoginRatePerSecond   float64 `env:"LOGIN_RATE_PER_SECOND" envDefault:"1"`
	ShutdownGraceSeconds int     `env:"SHUTDOWN_GRACE_SECONDS" envDefault:"10"`

	// TrustedProxies lists the addresses or CIDRs allowed to set X-Forwarded-For.
	TrustedProxies []string `env:"TRUSTED_PROXIES" envSeparator:","`
}

// Load parses the environment, fills derived values and validates the result.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if cfg.DatabaseURL == "" && cfg.PGHost != "" {
		cfg.DatabaseURL = cfg.composeDatabaseURL()
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) composeDatabaseURL() string {
	u := url.URL{
		Scheme: "postgres",
		Host:   net.JoinHostPort(c.PGHost, c.PGPort),
		Path:   "/" + c.PGDatabase,
	}
	if c.PGPassword != "" {
		u.User = url.UserPassword(c.PGUser, c.PGPassword)
	} else {
		u.User = url.User(c.PGUser)
	}
	q := url.Values{}
	q.Set("sslmode", "disable")
	u.RawQuery = q.Encode()
	return u.String()
}

// Validate reports every problem at once.
func (c Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.JWTSecret) == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	}
	switch strings.ToUpper(c.JWTAlgorithm) {
	case "HS256", "HS384", "HS512":
	default:
		errs = append(errs, fmt.Errorf("JWT_ALGORITHM %q is not supported", c.JWTAlgorithm))
	}
	if c.JWTExpiresIn <= 0 {
		errs = append(errs, errors.New("JWT_EXPIRES_IN must be a positive number of minutes"))
	}
	if c.BcryptCost < bcrypt.MinCost || c.BcryptCost > bcrypt.MaxCost {
		errs = append(errs, fmt.Errorf("BCRYPT_COST must be between %d and %d", bcrypt.MinCost, bcrypt.MaxCost))
	}
	if c.DatabaseURL == "" && !c.DevMode {
		errs = append(errs, errors.New("DATABASE_URL or PGHOST is required outside dev mode"))
	}
	if c.LoginRateBurst <= 0 || c.LoginRatePerSecond <= 0 {
		errs = append(errs, errors.New("login rate limit must be positive"))
	}
	if _, err := c.TrustedProxyPrefixes(); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: %w", errors.Join(errs...))
	}
	return nil
}

// TokenTTL is JWT_EXPIRES_IN as a duration.
func (c Config) TokenTTL() time.Duration {
	return time.Duration(c.JWTExpiresIn) * time.Minute
}

// LoginRate is the sustained per-client login rate.
func (c Config) LoginRate() rate.Limit {
	return rate.Limit(c.LoginRatePerSecond)
}

func (c Config) ShutdownGrace() time.Duration {
	return time.Duration(c.ShutdownGraceSeconds) * time.Second
}

// TrustedProxyPrefixes parses TRUSTED_PROXIES. A bare address becomes a single-host prefix.
func (c Config) TrustedProxyPrefixes() ([]netip.Prefix, error) {
	var out []netip.Prefix
	for _, raw := range c.TrustedProxies {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		if strings.Contains(raw, "/") {
			p, err := netip.ParsePrefix(raw)
			if err != nil {
				return nil, fmt.Errorf("TRUSTED_PROXIES: %w", err)
			}
			out = append(out, p.Masked())
			continue
		}
		addr, err := netip.ParseAddr(raw)
		if err != nil {
			return nil, fmt.Errorf("TRUSTED_PROXIES: %w", err)
		}
		addr = addr.Unmap()
		out = append(out, netip.PrefixFrom(addr, addr.BitLen()))
	}
	return out, nil
}
