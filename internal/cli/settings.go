package cli

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/vvka-141/dlsync/internal/params"
	"github.com/vvka-141/dlsync/pkg/dlsync"
)

const (
	settingsFileName = "dlsync.yaml"
	envPrefix        = "DLSYNC"
	defaultTimeout   = 10 * time.Minute
)

// Settings are the runtime settings shared by every command.
type Settings struct {
	ScriptRoot    string        `mapstructure:"script_root"`
	Profile       string        `mapstructure:"profile"`
	Connection    string        `mapstructure:"connection"`
	Host          string        `mapstructure:"host"`
	Port          int           `mapstructure:"port"`
	Database      string        `mapstructure:"database"`
	User          string        `mapstructure:"user"`
	Password      string        `mapstructure:"password"`
	SSLMode       string        `mapstructure:"sslmode"`
	History       string        `mapstructure:"history"`
	HistorySchema string        `mapstructure:"history_schema"`
	Params        []string      `mapstructure:"param"`
	Timeout       time.Duration `mapstructure:"timeout"`
	Parallelism   int           `mapstructure:"parallelism"`
	Verbose       bool          `mapstructure:"verbose"`
}

// flagKeys maps settings keys to the persistent flags that set them.
var flagKeys = map[string]string{
	"script_root":    "script-root",
	"profile":        "profile",
	"connection":     "connection",
	"host":           "host",
	"port":           "port",
	"database":       "database",
	"user":           "user",
	"sslmode":        "sslmode",
	"history":        "history",
	"history_schema": "history-schema",
	"param":          "param",
	"timeout":        "timeout",
	"parallelism":    "parallelism",
	"verbose":        "verbose",
}

// LoadSettings resolves settings with precedence flags > DLSYNC_* env >
// settings file > defaults. configPath names the settings file; when empty
// ./dlsync.yaml is used if it exists.
func LoadSettings(flags *pflag.FlagSet, configPath string) (*Settings, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	if flags != nil {
		for key, name := range flagKeys {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("failed to bind flag --%s: %w", name, err)
				}
			}
		}
	}

	path, err := findSettingsFile(configPath)
	if err != nil {
		return nil, err
	}
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("%w: reading %s: %v", dlsync.ErrInvalidConfig, path, err)
		}
	}

	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return nil, fmt.Errorf("%w: %v", dlsync.ErrInvalidConfig, err)
	}
	if s.Profile == "" {
		s.Profile = os.Getenv("profile")
	}
	if s.Profile == "" {
		s.Profile = dlsync.DefaultProfile
	}
	return &s, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("script_root", ".")
	v.SetDefault("profile", "")
	v.SetDefault("connection", "")
	v.SetDefault("host", "")
	v.SetDefault("port", 0)
	v.SetDefault("database", "")
	v.SetDefault("user", "")
	v.SetDefault("password", "")
	v.SetDefault("sslmode", "")
	v.SetDefault("history", dlsync.HistoryPostgres)
	v.SetDefault("history_schema", dlsync.DefaultHistorySchema)
	v.SetDefault("param", []string{})
	v.SetDefault("timeout", defaultTimeout)
	v.SetDefault("parallelism", 0)
	v.SetDefault("verbose", false)
}

func findSettingsFile(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("%w: settings file not found: %s", dlsync.ErrInvalidConfig, explicit)
		}
		return explicit, nil
	}
	if _, err := os.Stat(settingsFileName); err == nil {
		return settingsFileName, nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return "", fmt.Errorf("failed to check %s: %w", settingsFileName, err)
	}
	return "", nil
}

// RunConfig resolves the connection and parameter overrides into a validated
// dlsync.RunConfig.
func (s *Settings) RunConfig(getenv func(string) string) (*dlsync.RunConfig, error) {
	connStr, err := resolveConnectionString(s, getenv)
	if err != nil {
		return nil, err
	}

	overrides, err := params.ParseKeyValuePairs(s.Params)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid --param: %v", dlsync.ErrInvalidConfig, err)
	}

	cfg := &dlsync.RunConfig{
		ScriptRoot:       s.ScriptRoot,
		ConnectionString: connStr,
		Profile:          s.Profile,
		History:          s.History,
		HistorySchema:    s.HistorySchema,
		Parameters:       overrides,
		Timeout:          s.Timeout,
		Parallelism:      s.Parallelism,
		Verbose:          s.Verbose,
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
