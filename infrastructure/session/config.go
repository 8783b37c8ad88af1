package session

import (
	"fmt"
	"net/http"
	"time"
)

// Config controls the retry and throttling behaviour of a RobustSession.
type Config struct {
	StatusCodesToRetry  []int         `yaml:"status_codes_to_retry"`
	MaxRetries          int           `yaml:"max_retries"`           // retries after the first attempt
	BaseRetryTimer      time.Duration `yaml:"base_retry_timer"`      // linear backoff unit
	DefaultRetryAfter   time.Duration `yaml:"default_retry_after"`   // used for malformed Retry-After
	MaxRetryAfter       time.Duration `yaml:"max_retry_after"`       // longer Retry-After values are clamped
	ResetOnForbidden    bool          `yaml:"reset_on_forbidden"`    // one full reset on 403
	ForbiddenResetDelay time.Duration `yaml:"forbidden_reset_delay"` // pause between close and reconnect
	RequestsPerSecond   float64       `yaml:"requests_per_second"`   // 0 disables the limiter
	Burst               int           `yaml:"burst"`
}

// DefaultConfig returns the retry policy used against SharePoint Online.
func DefaultConfig() Config {
	return Config{
		StatusCodesToRetry:  []int{http.StatusTooManyRequests, http.StatusServiceUnavailable},
		MaxRetries:          5,
		BaseRetryTimer:      2 * time.Second,
		DefaultRetryAfter:   60 * time.Second,
		MaxRetryAfter:       10 * time.Minute,
		ResetOnForbidden:    true,
		ForbiddenResetDelay: 30 * time.Second,
	}
}

// Constraints bounds the values a Config may take.
type Constraints struct {
	MaxRetries     int
	MaxRetryTimer  time.Duration
	MaxRetryAfter  time.Duration
	MaxRequestRate float64
}

// DefaultConstraints returns sane upper limits for session settings.
func DefaultConstraints() Constraints {
	return Constraints{
		MaxRetries:     20,
		MaxRetryTimer:  5 * time.Minute,
		MaxRetryAfter:  10 * time.Minute,
		MaxRequestRate: 1000,
	}
}

// Validate checks the configuration against the given constraints.
func (c *Config) Validate(constraints Constraints) error {
	if c.MaxRetries < 0 {
		return fmt.Errorf("max_retries cannot be negative, got: %d", c.MaxRetries)
	}
	if c.MaxRetries > constraints.MaxRetries {
		return fmt.Errorf("max_retries cannot exceed %d, got: %d", constraints.MaxRetries, c.MaxRetries)
	}
	if c.BaseRetryTimer < 0 || c.BaseRetryTimer > constraints.MaxRetryTimer {
		return fmt.Errorf("base_retry_timer must be between 0 and %s, got: %s", constraints.MaxRetryTimer, c.BaseRetryTimer)
	}
	if c.DefaultRetryAfter < 0 || c.DefaultRetryAfter > constraints.MaxRetryAfter {
		return fmt.Errorf("default_retry_after must be between 0 and %s, got: %s", constraints.MaxRetryAfter, c.DefaultRetryAfter)
	}
	if c.MaxRetryAfter < 0 || c.MaxRetryAfter > constraints.MaxRetryAfter {
		return fmt.Errorf("max_retry_after must be between 0 and %s, got: %s", constraints.MaxRetryAfter, c.MaxRetryAfter)
	}
	if c.ForbiddenResetDelay < 0 {
		return fmt.Errorf("forbidden_reset_delay cannot be negative, got: %s", c.ForbiddenResetDelay)
	}
	if c.RequestsPerSecond < 0 || c.RequestsPerSecond > constraints.MaxRequestRate {
		return fmt.Errorf("requests_per_second must be between 0 and %.0f, got: %.2f", constraints.MaxRequestRate, c.RequestsPerSecond)
	}
	for _, code := range c.StatusCodesToRetry {
		if code < 400 || code > 599 {
			return fmt.Errorf("status code to retry must be an HTTP error status, got: %d", code)
		}
	}
	return nil
}

// ValidateAndSetDefaults fills zero values from DefaultConfig, then validates.
func (c *Config) ValidateAndSetDefaults(constraints Constraints) error {
	def := DefaultConfig()
	if len(c.StatusCodesToRetry) == 0 {
		c.StatusCodesToRetry = def.StatusCodesToRetry
	}
	if c.BaseRetryTimer == 0 {
		c.BaseRetryTimer = def.BaseRetryTimer
	}
	if c.DefaultRetryAfter == 0 {
		c.DefaultRetryAfter = def.DefaultRetryAfter
	}
	if c.MaxRetryAfter == 0 {
		c.MaxRetryAfter = def.MaxRetryAfter
	}
	if c.ForbiddenResetDelay == 0 {
		c.ForbiddenResetDelay = def.ForbiddenResetDelay
	}
	if c.RequestsPerSecond > 0 && c.Burst <= 0 {
		c.Burst = 1
	}
	return c.Validate(constraints)
}

func (c *Config) shouldRetryStatus(status int) bool {
	for _, code := range c.StatusCodesToRetry {
		if code == status {
			return true
		}
	}
	return false
}
