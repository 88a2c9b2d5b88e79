package devapi

import (
	"time"

	"github.com/jinzhu/copier"

	"github.com/tendant/idm-forms/pkg/config"
	"github.com/tendant/idm-forms/pkg/errors"
	"github.com/tendant/idm-forms/pkg/ratelimit"
)

// LoginLimit bounds login attempts per email address.
type LoginLimit struct {
	Enabled     bool
	Capacity    int
	RefillEvery time.Duration
	IdleTTL     time.Duration
}

// LoginLimitFromConfig converts the loaded config section.
func LoginLimitFromConfig(cfg config.LoginRateLimitConfig) (LoginLimit, error) {
	var limit LoginLimit
	if err := copier.Copy(&limit, &cfg); err != nil {
		return LoginLimit{}, errors.InternalWrap(err, "failed to copy login rate limit config")
	}
	ttl, err := cfg.TTL()
	if err != nil {
		return LoginLimit{}, errors.Wrap(err, errors.ErrCodeInvalidFormat, "invalid login rate limit bucket ttl")
	}
	limit.IdleTTL = ttl
	return limit, nil
}

// NewLoginLimiter returns nil when the limit is disabled.
func NewLoginLimiter(limit LoginLimit) *ratelimit.Limiter {
	if !limit.Enabled || limit.Capacity <= 0 {
		return nil
	}
	return ratelimit.New(limit.Capacity, limit.RefillEvery, ratelimit.WithTTL(limit.IdleTTL))
}
