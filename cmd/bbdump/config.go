package main

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/blackbox-log/blackbox-log-go/domain/entities"
)

// Config is the bbdump configuration, read from defaults, an optional YAML
// file, BBDUMP_* environment variables and flags, in increasing priority.
type Config struct {
	// Guest is the path of a compiled guest module. Empty runs the boundary
	// in-process.
	Guest       string `mapstructure:"guest"`
	Format      string `mapstructure:"format" validate:"oneof=json yaml"`
	LogLevel    string `mapstructure:"log_level" validate:"oneof=debug info warn error"`
	MemoryPages uint32 `mapstructure:"memory_pages"`
	AllocLimit  int    `mapstructure:"alloc_limit" validate:"gte=0"`
	// Log selects one log of a multi-log file; -1 selects all.
	Log    int          `mapstructure:"log" validate:"gte=-1"`
	Limit  int          `mapstructure:"limit" validate:"gte=0"`
	Fields FieldsConfig `mapstructure:"fields"`
}

// FieldsConfig lists the fields to decode per frame kind. An empty list
// decodes every field.
type FieldsConfig struct {
	Main []string `mapstructure:"main"`
	Slow []string `mapstructure:"slow"`
	Gps  []string `mapstructure:"gps"`
}

// FilterSet converts the lists, or returns nil when nothing is filtered.
func (f FieldsConfig) FilterSet() *entities.FilterSet {
	if len(f.Main) == 0 && len(f.Slow) == 0 && len(f.Gps) == 0 {
		return nil
	}
	only := func(names []string) *entities.FieldFilter {
		if len(names) == 0 {
			return nil
		}
		return entities.OnlyFields(names...)
	}
	return &entities.FilterSet{Main: only(f.Main), Slow: only(f.Slow), Gps: only(f.Gps)}
}

// Level returns the configured slog level.
func (c *Config) Level() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return level
}

var validate = validator.New()

// newFlagSet declares every flag bbdump accepts.
func newFlagSet() *pflag.FlagSet {
	flags := pflag.NewFlagSet("bbdump", pflag.ContinueOnError)
	flags.StringP("config", "c", "", "path to a YAML configuration file")
	flags.String("guest", "", "path to a compiled guest module (default: in-process)")
	flags.StringP("format", "f", "json", "output format: json or yaml")
	flags.String("log-level", "warn", "log level: debug, info, warn or error")
	flags.Uint32("memory-pages", 0, "guest memory limit in 64 KiB pages (0: engine default)")
	flags.Int("alloc-limit", 0, "cap on bytes pinned by the boundary (0: default)")
	flags.Int("log", -1, "index of the log to dump (-1: all)")
	flags.IntP("limit", "n", 0, "maximum number of events per log (0: unlimited)")
	flags.StringSlice("main", nil, "main frame fields to decode")
	flags.StringSlice("slow", nil, "slow frame fields to decode")
	flags.StringSlice("gps", nil, "GPS frame fields to decode")
	return flags
}

// flagKeys maps flag names to configuration keys.
var flagKeys = map[string]string{
	"guest":        "guest",
	"format":       "format",
	"log-level":    "log_level",
	"memory-pages": "memory_pages",
	"alloc-limit":  "alloc_limit",
	"log":          "log",
	"limit":        "limit",
	"main":         "fields.main",
	"slow":         "fields.slow",
	"gps":          "fields.gps",
}

// LoadConfig resolves the configuration for parsed flags.
func LoadConfig(flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()

	v.SetDefault("guest", "")
	v.SetDefault("format", "json")
	v.SetDefault("log_level", "warn")
	v.SetDefault("memory_pages", 0)
	v.SetDefault("alloc_limit", 0)
	v.SetDefault("log", -1)
	v.SetDefault("limit", 0)

	v.SetEnvPrefix("bbdump")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for name, key := range flagKeys {
		if err := v.BindPFlag(key, flags.Lookup(name)); err != nil {
			return nil, fmt.Errorf("bind flag %s: %w", name, err)
		}
	}

	if path, _ := flags.GetString("config"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := validate.Struct(&cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}
