package config

import "time"

type PollingConfig interface {
	GetPollInterval() time.Duration
	GetAPITimeout() time.Duration
}

type Polling struct{}

var _ PollingConfig = Polling{}

// GetPollInterval is the unread alert refresh cadence
func (Polling) GetPollInterval() time.Duration {
	return GetDurationEnv("POLL_INTERVAL", 15*time.Second)
}

func (Polling) GetAPITimeout() time.Duration {
	return GetDurationEnv("API_TIMEOUT", 10*time.Second)
}
