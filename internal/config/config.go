package config

type Config interface {
	EnvConfig
	CorsConfig
	PollingConfig
	SecurityConfig
}

type EnvConfig interface {
	GetPort() string
	GetAppName() string
	GetEnv() string
	GetAPIBaseURL() string
	GetTokenStoreKind() string
	GetTokenStorePath() string
	GetLogLevel() string
	GetLogFile() string
	GetTokenStoreKey() string
}

type CorsConfig interface {
	GetAllowedOrigins() AllowedOrigins
	GetAllowedMethods() string
	GetAllowedHeaders() string
}

type mainConfig struct {
	EnvVars
	Cors
	Polling
	Security
}

func New() Config {
	return mainConfig{}
}
