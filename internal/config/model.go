package config

import (
	"time"
)

// Config represents the application configuration structure
type Config struct {
	// Base URL of the service, e.g. https://app.propel.valory.xyz
	URL string `mapstructure:"url"`

	Auth     AuthConfig     `mapstructure:"auth"`
	HTTP     HTTPConfig     `mapstructure:"http"`
	Sessions SessionsConfig `mapstructure:"sessions"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Wait     WaitConfig     `mapstructure:"wait"`
}

type AuthConfig struct {
	Scheme string `mapstructure:"scheme"` // Authorization header scheme
}

type HTTPConfig struct {
	Timeout  time.Duration `mapstructure:"timeout"`
	Insecure bool          `mapstructure:"insecure"` // skip TLS verification
}

type SessionsConfig struct {
	Path string `mapstructure:"path"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type WaitConfig struct {
	Period               time.Duration `mapstructure:"period"`
	Timeout              time.Duration `mapstructure:"timeout"`
	MaxTransientFailures int           `mapstructure:"max_transient_failures"`
	Backoff              BackoffConfig `mapstructure:"backoff"`

	// Target state to the states that end a wait for it. The "*" entry
	// applies to targets without their own entry.
	TerminalStates map[string][]string `mapstructure:"terminal_states"`
}

type BackoffConfig struct {
	Initial    time.Duration `mapstructure:"initial"`
	Max        time.Duration `mapstructure:"max"`
	Multiplier float64       `mapstructure:"multiplier"`
}
