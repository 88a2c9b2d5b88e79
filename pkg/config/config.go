package config

import (
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/sosodev/duration"
)

// ClientConfig configures the form client and the catalog client.
type ClientConfig struct {
	// BaseURL is prefixed to relative endpoints; empty keeps them as given.
	BaseURL        string `yaml:"base_url" env:"IDMFORMS_BASE_URL" env-default:"http://localhost:4000" env-description:"Auth API base URL"`
	LoginEndpoint  string `yaml:"login_endpoint" env:"IDMFORMS_LOGIN_ENDPOINT" env-default:"/api/auth/login" env-description:"Login endpoint"`
	SignupEndpoint string `yaml:"signup_endpoint" env:"IDMFORMS_SIGNUP_ENDPOINT" env-default:"/api/signup" env-description:"Signup endpoint"`
	CatalogURL     string `yaml:"catalog_url" env:"IDMFORMS_CATALOG_URL" env-default:"http://localhost:3000" env-description:"Laptop listing base URL"`
	// RequestTimeout accepts ISO 8601 ("PT30S") or Go ("30s") syntax. Zero means no client timeout.
	RequestTimeout string `yaml:"request_timeout" env:"IDMFORMS_REQUEST_TIMEOUT" env-default:"PT0S" env-description:"HTTP client timeout"`
}

// Timeout parses RequestTimeout.
func (c ClientConfig) Timeout() (time.Duration, error) {
	return ParseDuration(c.RequestTimeout)
}

// Validate checks the client configuration.
func (c ClientConfig) Validate() error {
	return Validate(func() ValidationErrors {
		return CollectErrors(
			WhenSet(c.BaseURL, func() *ValidationError {
				return RequireValidURL("base_url", c.BaseURL)
			}),
			RequireNonEmpty("login_endpoint", c.LoginEndpoint),
			RequireNonEmpty("signup_endpoint", c.SignupEndpoint),
			RequireValidURL("catalog_url", c.CatalogURL),
			RequireDuration("request_timeout", c.RequestTimeout, 0),
		)
	})
}

// ServerConfig configures the development API server.
type ServerConfig struct {
	JwtSecret   string `yaml:"jwt_secret" env:"DEVAPI_JWT_SECRET" env-default:"very-secure-jwt-secret"`
	JwtIssuer   string `yaml:"jwt_issuer" env:"DEVAPI_JWT_ISSUER" env-default:"idm-forms-devapi"`
	TokenExpiry string `yaml:"token_expiry" env:"DEVAPI_TOKEN_EXPIRY" env-default:"PT1H"`
	// RememberExpiry is used instead of TokenExpiry when the login asks to be remembered.
	RememberExpiry string `yaml:"remember_expiry" env:"DEVAPI_REMEMBER_EXPIRY" env-default:"P30D"`

	LoginRateLimit LoginRateLimitConfig `yaml:"login_rate_limit"`

	SeedCatalog bool `yaml:"seed_catalog" env:"DEVAPI_SEED_CATALOG" env-default:"true"`
}

// LoginRateLimitConfig bounds login attempts per email address.
type LoginRateLimitConfig struct {
	Enabled         bool    `yaml:"enabled" env:"DEVAPI_LOGIN_RATE_LIMIT" env-default:"true"`
	Capacity        int     `yaml:"capacity" env:"DEVAPI_LOGIN_BURST" env-default:"10"`
	RefillPerMinute float64 `yaml:"refill_per_minute" env:"DEVAPI_LOGIN_REFILL_PER_MINUTE" env-default:"10"`
	BucketTTL       string  `yaml:"bucket_ttl" env:"DEVAPI_LOGIN_BUCKET_TTL" env-default:"PT1H"`
}

// TokenTTL parses TokenExpiry.
func (c ServerConfig) TokenTTL() (time.Duration, error) {
	return ParseDuration(c.TokenExpiry)
}

// RememberTTL parses RememberExpiry.
func (c ServerConfig) RememberTTL() (time.Duration, error) {
	return ParseDuration(c.RememberExpiry)
}

// RefillEvery is the interval at which one login attempt is restored.
func (c LoginRateLimitConfig) RefillEvery() time.Duration {
	if c.RefillPerMinute <= 0 {
		return time.Minute
	}
	return time.Duration(float64(time.Minute) / c.RefillPerMinute)
}

// TTL parses BucketTTL.
func (c LoginRateLimitConfig) TTL() (time.Duration, error) {
	return ParseDuration(c.BucketTTL)
}

// Validate checks the server configuration.
func (c ServerConfig) Validate() error {
	return Validate(
		func() ValidationErrors {
			return CollectErrors(
				RequireNonEmpty("jwt_secret", c.JwtSecret),
				RequireDuration("token_expiry", c.TokenExpiry, time.Second),
				RequireDuration("remember_expiry", c.RememberExpiry, time.Second),
			)
		},
		func() ValidationErrors {
			if !c.LoginRateLimit.Enabled {
				return nil
			}
			return CollectErrors(
				RequirePositive("login_rate_limit.capacity", c.LoginRateLimit.Capacity),
				RequirePositiveFloat("login_rate_limit.refill_per_minute", c.LoginRateLimit.RefillPerMinute),
				RequireDuration("login_rate_limit.bucket_ttl", c.LoginRateLimit.BucketTTL, time.Second),
			)
		},
	)
}

// LoadClient reads ClientConfig from path (YAML) when given, then from the environment.
func LoadClient(path string) (ClientConfig, error) {
	var cfg ClientConfig
	if err := load(path, &cfg); err != nil {
		return ClientConfig{}, err
	}
	if err := cfg.Validate(); err != nil {
		return ClientConfig{}, err
	}
	return cfg, nil
}

// LoadServer reads ServerConfig from path (YAML) when given, then from the environment.
func LoadServer(path string) (ServerConfig, error) {
	var cfg ServerConfig
	if err := load(path, &cfg); err != nil {
		return ServerConfig{}, err
	}
	if err := cfg.Validate(); err != nil {
		return ServerConfig{}, err
	}
	return cfg, nil
}

func load(path string, cfg any) error {
	if path != "" {
		return cleanenv.ReadConfig(path, cfg)
	}
	return cleanenv.ReadEnv(cfg)
}

// ParseDuration accepts ISO 8601 ("PT15M") first and falls back to Go syntax ("15m").
func ParseDuration(s string) (time.Duration, error) {
	isoDuration, err := duration.Parse(s)
	if err == nil {
		return isoDuration.ToTimeDuration(), nil
	}
	return time.ParseDuration(s)
}
