package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/subosito/gotenv"

	"github.com/valory-xyz/propel-client-go/internal/client"
	"github.com/valory-xyz/propel-client-go/internal/common"
	"github.com/valory-xyz/propel-client-go/internal/models"
	"github.com/valory-xyz/propel-client-go/internal/sessions"
	"github.com/valory-xyz/propel-client-go/internal/waiter"
)

const EnvPrefix = "PROPEL"

// FlagBindings maps persistent CLI flags onto config keys. A flag only
// overrides the config when it was set explicitly.
var FlagBindings = map[string]string{
	"url":          "url",
	"http-timeout": "http.timeout",
	"insecure":     "http.insecure",
}

// Load loads the configuration from the config file, the environment and
// any explicitly set flags, in increasing order of precedence.
func Load(configFile string, flags *pflag.FlagSet) (*Config, error) {
	if err := loadEnvFile(); err != nil {
		return nil, err
	}

	v := viper.New()

	if err := setupViperConfig(v, configFile); err != nil {
		return nil, err
	}

	bindEnvironmentVariables(v)

	if err := bindFlags(v, flags); err != nil {
		return nil, err
	}

	config, err := readAndUnmarshalConfig(v)
	if err != nil {
		return nil, err
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	if err := setupLogging(config, v); err != nil {
		return nil, err
	}

	return config, nil
}

// loadEnvFile loads the .env file if it exists
func loadEnvFile() error {
	if err := gotenv.Load(); err != nil {
		// .env file not found, that's okay - continue with other sources
		if !os.IsNotExist(err) {
			logrus.WithError(err).Warnln("Error loading .env file")
		}
	}
	return nil
}

// setupViperConfig configures viper with file paths and defaults
func setupViperConfig(v *viper.Viper, configFile string) error {
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("/etc/propel")

	if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(filepath.Join(home, ".config", "propel"))
	}

	if len(configFile) > 0 {
		v.SetConfigFile(configFile)
	}

	// Set default values
	setDefaults(v)

	// Set environment variable settings
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return nil
}

// bindEnvironmentVariables binds the variables that do not follow the
// PROPEL_<KEY> convention
func bindEnvironmentVariables(v *viper.Viper) {
	v.BindEnv("url", "PROPEL_URL", "PROPEL_BASE_URL")

	v.BindEnv("http.timeout", "PROPEL_HTTP_TIMEOUT")
	v.BindEnv("http.insecure", "PROPEL_HTTP_INSECURE")

	v.BindEnv("logging.level", "PROPEL_LOGGING_LEVEL", "PROPEL_LOG_LEVEL")
	v.BindEnv("logging.format", "PROPEL_LOGGING_FORMAT")

	v.BindEnv("sessions.path", "PROPEL_SESSIONS_PATH")
}

func bindFlags(v *viper.Viper, flags *pflag.FlagSet) error {
	if flags == nil {
		return nil
	}

	for flagName, key := range FlagBindings {
		flag := flags.Lookup(flagName)
		if flag == nil || !flag.Changed {
			continue
		}
		if err := v.BindPFlag(key, flag); err != nil {
			return fmt.Errorf("failed to bind flag %s: %w", flagName, err)
		}
	}

	return nil
}

func setDefaults(v *viper.Viper) {

	v.SetDefault("url", client.DefaultServiceURL)

	v.SetDefault("auth.scheme", client.DefaultAuthScheme)

	v.SetDefault("http.timeout", client.DefaultTimeout)
	v.SetDefault("http.insecure", false)

	v.SetDefault("sessions.path", sessions.SESSION_MANAGER_PATH)

	// Only warnings and errors by default so output stays scriptable
	v.SetDefault("logging.level", "warn")
	v.SetDefault("logging.format", "text")

	v.SetDefault("wait.period", waiter.DefaultPeriod)
	v.SetDefault("wait.timeout", waiter.DefaultTimeout)
	v.SetDefault("wait.max_transient_failures", waiter.DefaultMaxTransientFailures)
	v.SetDefault("wait.backoff.initial", waiter.DefaultBackoffInitial)
	v.SetDefault("wait.backoff.max", waiter.DefaultBackoffMax)
	v.SetDefault("wait.backoff.multiplier", waiter.DefaultBackoffMultiplier)
}

// readAndUnmarshalConfig reads the configuration file and unmarshals it
func readAndUnmarshalConfig(v *viper.Viper) (*Config, error) {
	// Read configuration file
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found; proceed with defaults and environment variables
	} else {
		logrus.WithField("file", v.ConfigFileUsed()).Debugln("Loaded config file")
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	return &config, nil
}

func (c *Config) Validate() error {
	baseURL, err := common.ValidateBaseURL(c.URL)
	if err != nil {
		return err
	}
	c.URL = baseURL

	if c.HTTP.Timeout <= 0 {
		return fmt.Errorf("http.timeout must be positive, got %s", c.HTTP.Timeout)
	}

	if c.Wait.Timeout <= 0 {
		return fmt.Errorf("wait.timeout must be positive, got %s", c.Wait.Timeout)
	}

	for target, states := range c.Wait.TerminalStates {
		if target != string(waiter.AnyTarget) && !models.ParseAgentState(target).IsKnown() {
			return fmt.Errorf("wait.terminal_states: unknown target state %q", target)
		}
		for _, state := range states {
			if !models.ParseAgentState(state).IsKnown() {
				return fmt.Errorf("wait.terminal_states: unknown state %q for target %q", state, target)
			}
		}
	}

	return nil
}

func (c *Config) GetHostname() string {
	return common.GetHostname(c.URL)
}

func (c *Config) ClientOptions() client.Options {
	return client.Options{
		BaseURL:    c.URL,
		AuthScheme: c.Auth.Scheme,
		Timeout:    c.HTTP.Timeout,
		Insecure:   c.HTTP.Insecure,
	}
}

// SessionManager returns the store for sessions issued by the configured
// service.
func (c *Config) SessionManager() *sessions.SessionManager {
	return sessions.NewSessionManager(c.Sessions.Path, c.URL)
}

// WaiterOptions converts the wait section. Viper lower-cases map keys, so
// state names are normalised here.
func (c *Config) WaiterOptions() waiter.Options {
	opts := waiter.Options{
		Period:               c.Wait.Period,
		MaxTransientFailures: c.Wait.MaxTransientFailures,
		Backoff: waiter.BackoffOptions{
			Initial:    c.Wait.Backoff.Initial,
			Max:        c.Wait.Backoff.Max,
			Multiplier: c.Wait.Backoff.Multiplier,
		},
	}

	if len(c.Wait.TerminalStates) > 0 {
		opts.TerminalStates = make(map[models.AgentState][]models.AgentState, len(c.Wait.TerminalStates))
		for target, states := range c.Wait.TerminalStates {
			key := waiter.AnyTarget
			if target != string(waiter.AnyTarget) {
				key = models.ParseAgentState(target)
			}
			parsed := make([]models.AgentState, 0, len(states))
			for _, state := range states {
				parsed = append(parsed, models.ParseAgentState(state))
			}
			opts.TerminalStates[key] = parsed
		}
	}

	return opts
}
