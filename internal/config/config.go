// Package config loads hush settings from defaults, an optional .hush.yaml,
// HUSH_* environment variables and command-line flags, in increasing order
// of precedence.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// FileName is the config file looked up at the repository root.
const FileName = ".hush.yaml"

// EnvPrefix prefixes every environment override, e.g. HUSH_DB.
const EnvPrefix = "HUSH"

type Config struct {
	DB        string   `mapstructure:"db"`
	Format    string   `mapstructure:"format"`
	Languages []string `mapstructure:"languages"`
	Parallel  bool     `mapstructure:"parallel"`
	Workers   int      `mapstructure:"workers"`
	Addr      string   `mapstructure:"addr"`
	Verbose   bool     `mapstructure:"verbose"`
}

// Default returns the settings used when nothing overrides them.
func Default() Config {
	return Config{
		Format:   "json",
		Parallel: true,
		Addr:     ":8080",
	}
}

// Load resolves the configuration. cfgFile, when set, must exist; otherwise
// FileName is read from dir if present. Flags in flags whose names match a
// config key take precedence when they were set on the command line.
func Load(cfgFile, dir string, flags *pflag.FlagSet) (Config, error) {
	v := viper.New()

	def := Default()
	v.SetDefault("db", def.DB)
	v.SetDefault("format", def.Format)
	v.SetDefault("languages", def.Languages)
	v.SetDefault("parallel", def.Parallel)
	v.SetDefault("workers", def.Workers)
	v.SetDefault("addr", def.Addr)
	v.SetDefault("verbose", def.Verbose)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.AddConfigPath(dir)
		v.SetConfigName(strings.TrimSuffix(FileName, ".yaml"))
	}
	v.SetConfigType("yaml")

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if flags != nil {
		for _, key := range []string{"db", "format", "languages", "parallel", "workers", "addr", "verbose"} {
			if f := flags.Lookup(key); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return Config{}, fmt.Errorf("config: bind flag %s: %w", key, err)
				}
			}
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("config: read %s: %w", v.ConfigFileUsed(), err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: decode: %w", err)
	}
	for i := range cfg.Languages {
		cfg.Languages[i] = strings.TrimSpace(cfg.Languages[i])
	}
	return cfg, nil
}
