package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/subosito/gotenv"

	"github.com/yurifrl/ynab-reconciler/pkg/matcher"
)

const EnvPrefix = "YNAB_RECONCILER"

type YNAB struct {
	Token           string        `mapstructure:"token"`
	BudgetID        string        `mapstructure:"budget_id"`
	RequestsPerHour int           `mapstructure:"requests_per_hour"`
	CacheTTL        time.Duration `mapstructure:"cache_ttl"`
}

type Server struct {
	Addr string `mapstructure:"addr"`
	// StatementsDir is the only directory tool calls may read statement
	// files from. Empty disables csv_file_path.
	StatementsDir string `mapstructure:"statements_dir"`
}

type Config struct {
	LogLevel string         `mapstructure:"log_level"`
	YNAB     YNAB           `mapstructure:"ynab"`
	Matching matcher.Config `mapstructure:"matching"`
	Server   Server         `mapstructure:"server"`
}

func setDefaults(v *viper.Viper) {
	m := matcher.DefaultConfig()
	v.SetDefault("log_level", "info")
	v.SetDefault("ynab.token", "")
	v.SetDefault("ynab.budget_id", "")
	v.SetDefault("ynab.requests_per_hour", 200)
	v.SetDefault("ynab.cache_ttl", 5*time.Minute)
	v.SetDefault("matching.auto_match_threshold", m.AutoMatchThreshold)
	v.SetDefault("matching.suggestion_threshold", m.SuggestionThreshold)
	v.SetDefault("matching.amount_tolerance_cents", m.AmountToleranceCents)
	v.SetDefault("matching.date_tolerance_days", m.DateToleranceDays)
	v.SetDefault("matching.near_match_band", m.NearMatchBand)
	v.SetDefault("matching.tie_band", m.TieBand)
	v.SetDefault("server.addr", "127.0.0.1:3000")
	v.SetDefault("server.statements_dir", "")
}

// Build loads configuration with increasing precedence from defaults, the
// optional YAML file, YNAB_RECONCILER_* environment variables (a .env file in
// the working directory is loaded first) and the flags listed in flagKeys.
func Build(cfgFile string, flags *pflag.FlagSet) (*Config, error) {
	if err := gotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	if flags != nil {
		for key, name := range flagKeys {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("failed to bind flag %s: %w", name, err)
				}
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

var flagKeys = map[string]string{
	"log_level":                     "log-level",
	"ynab.token":                    "token",
	"ynab.budget_id":                "budget-id",
	"ynab.requests_per_hour":        "requests-per-hour",
	"server.addr":                   "addr",
	"server.statements_dir":         "statements-dir",
	"matching.auto_match_threshold": "auto-match-threshold",
	"matching.suggestion_threshold": "suggestion-threshold",
	"matching.date_tolerance_days":  "date-tolerance-days",
}

func (c *Config) Validate() error {
	m := c.Matching
	if m.SuggestionThreshold > m.AutoMatchThreshold {
		return fmt.Errorf("matching.suggestion_threshold (%d) is above matching.auto_match_threshold (%d)", m.SuggestionThreshold, m.AutoMatchThreshold)
	}
	if m.AmountToleranceCents < 0 || m.DateToleranceDays < 0 {
		return fmt.Errorf("matching tolerances must not be negative")
	}
	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("invalid log_level %q: %w", c.LogLevel, err)
	}
	return nil
}

// Level returns the configured log level, defaulting to info.
func (c *Config) Level() log.Level {
	lvl, err := log.ParseLevel(c.LogLevel)
	if err != nil {
		return log.InfoLevel
	}
	return lvl
}
