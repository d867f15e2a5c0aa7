package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	portEnvVar       = "PORT"
	appNameVar       = "APP_NAME"
	apiBaseURLVar    = "API_BASE_URL"
	tokenStoreVar    = "TOKEN_STORE"
	tokenStorePath   = "TOKEN_STORE_PATH"
	logLevelEnvVar   = "LOG_LEVEL"
	logFileEnvVar    = "LOG_FILE"
	tokenStoreKeyVar = "TOKEN_STORE_KEY"
	defaultStorePath = "./data/tokens.json"
)

// Token store kinds accepted by TOKEN_STORE.
const (
	TokenStoreFile   = "file"
	TokenStoreSQLite = "sqlite"
	TokenStoreMemory = "memory"
)

type EnvVars struct{}

var _ EnvConfig = EnvVars{}

func (EnvVars) GetPort() string {
	port := GetEnv(portEnvVar, "8090")
	if !strings.HasPrefix(port, ":") {
		port = ":" + port
	}
	return port
}

func (EnvVars) GetAppName() string {
	return GetEnv(appNameVar, "FerretControl")
}

func (EnvVars) GetEnv() string {
	env := os.Getenv("ENV")
	if env == "" {
		return "DEV"
	}
	return env
}

// GetAPIBaseURL returns the FerretControl backend base URL without a trailing slash
func (EnvVars) GetAPIBaseURL() string {
	return strings.TrimRight(GetEnv(apiBaseURLVar, "http://localhost:8000"), "/")
}

func (EnvVars) GetTokenStoreKind() string {
	return strings.ToLower(GetEnv(tokenStoreVar, TokenStoreFile))
}

func (EnvVars) GetTokenStorePath() string {
	return GetEnv(tokenStorePath, defaultStorePath)
}

func (EnvVars) GetLogLevel() string {
	return GetEnv(logLevelEnvVar, "info")
}

// GetLogFile returns the rotated log file path, empty when file logging is off
func (EnvVars) GetLogFile() string {
	return GetEnv(logFileEnvVar, "")
}

// GetTokenStoreKey is the secret that encrypts persisted tokens, empty stores them in plaintext
func (EnvVars) GetTokenStoreKey() string {
	return os.Getenv(tokenStoreKeyVar)
}

func GetEnv(envVar, defaultValue string) string {
	value := os.Getenv(envVar)
	if value == "" {
		return defaultValue
	}
	return value
}

// GetDurationEnv parses a Go duration, falling back to defaultValue when unset or malformed
func GetDurationEnv(envVar string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(envVar)
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil || d <= 0 {
		return defaultValue
	}
	return d
}

func GetBoolEnv(envVar string, defaultValue bool) bool {
	value := os.Getenv(envVar)
	if value == "" {
		return defaultValue
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}
	return b
}

func GetIntEnv(envVar string, defaultValue int) int {
	value := os.Getenv(envVar)
	if value == "" {
		return defaultValue
	}
	i, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return i
}
