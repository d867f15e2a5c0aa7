package config

import "time"

type SecurityConfig interface {
	GetRefreshOnExpiry() bool
	GetTokenExpiryLeeway() time.Duration
	GetLoginRatePerMinute() int
}

type Security struct{}

var _ SecurityConfig = Security{}

func (Security) GetRefreshOnExpiry() bool {
	return GetBoolEnv("REFRESH_ON_EXPIRY", true)
}

func (Security) GetTokenExpiryLeeway() time.Duration {
	return GetDurationEnv("TOKEN_EXPIRY_LEEWAY", 30*time.Second)
}

// GetLoginRatePerMinute caps console login attempts, 0 disables the limiter
func (Security) GetLoginRatePerMinute() int {
	return GetIntEnv("LOGIN_RATE_PER_MINUTE", 10)
}
