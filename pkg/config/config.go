package config

// Package config provides a reusable loader for offs-core configuration
// files and environment variables. It is versioned so that applications can
// depend on a stable API contract.
//
// Version: v0.1.0

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"offs-core/pkg/utils"
)

// Version is the semantic version of this configuration package.
const Version = "v0.1.0"

// Config is the unified configuration for an offs-core engine instance. It
// mirrors the structure of the YAML files Load reads from cmd/config or
// config.
type Config struct {
	Store struct {
		RootPath        string `mapstructure:"root_path" json:"root_path"`
		PrimePool       string `mapstructure:"prime_pool" json:"prime_pool"`
		WhitenerPool    string `mapstructure:"whitener_pool" json:"whitener_pool"`
	} `mapstructure:"store" json:"store"`

	Offs struct {
		TupleSize      int     `mapstructure:"tuple_size" json:"tuple_size"`
		CacheFraction  float64 `mapstructure:"cache_fraction" json:"cache_fraction"`
		ChunkSize      int     `mapstructure:"chunk_size" json:"chunk_size"`
	} `mapstructure:"offs" json:"offs"`

	Metrics struct {
		Enabled bool   `mapstructure:"enabled" json:"enabled"`
		Addr    string `mapstructure:"addr" json:"addr"`
	} `mapstructure:"metrics" json:"metrics"`

	Logging struct {
		Level string `mapstructure:"level" json:"level"`
		File  string `mapstructure:"file" json:"file"`
	} `mapstructure:"logging" json:"logging"`
}

// AppConfig holds the configuration loaded via Load or LoadFromEnv.
var AppConfig Config

// setDefaults seeds viper with the engine's defaults before any config file
// or environment override is applied.
func setDefaults() {
	viper.SetDefault("store.root_path", "./data/blocks")
	viper.SetDefault("store.prime_pool", "default")
	viper.SetDefault("store.whitener_pool", "soup")
	viper.SetDefault("offs.tuple_size", 3)
	viper.SetDefault("offs.cache_fraction", 0.5)
	viper.SetDefault("offs.chunk_size", 8)
	viper.SetDefault("metrics.enabled", false)
	viper.SetDefault("metrics.addr", ":9090")
	viper.SetDefault("logging.level", "info")
}

// Load reads configuration files and merges any environment specific
// overrides. The resulting configuration is stored in AppConfig and
// returned.
//
// The function uses the provided environment name to merge additional
// config files. If env is empty, only the default configuration is loaded.
// A missing .env file is not an error; an unparseable one is.
func Load(env string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !isNotExist(err) {
		return nil, utils.Wrap(err, "load .env")
	}

	setDefaults()
	viper.SetConfigName("default")
	viper.AddConfigPath("cmd/config")
	viper.AddConfigPath("config")
	viper.SetConfigType("yaml")
	if err := viper.ReadInConfig(); err != nil {
		if !isNotFound(err) {
			return nil, utils.Wrap(err, "load config")
		}
	}

	if env != "" {
		viper.SetConfigName(env)
		if err := viper.MergeInConfig(); err != nil && !isNotFound(err) {
			return nil, utils.Wrap(err, fmt.Sprintf("merge %s config", env))
		}
	}

	viper.SetEnvPrefix("OFFS")
	viper.AutomaticEnv()

	if err := viper.Unmarshal(&AppConfig); err != nil {
		return nil, utils.Wrap(err, "unmarshal config")
	}
	return &AppConfig, nil
}

// LoadFromEnv loads configuration using the OFFS_ENV environment variable.
func LoadFromEnv() (*Config, error) {
	return Load(utils.EnvOrDefault("OFFS_ENV", ""))
}

func isNotFound(err error) bool {
	_, ok := err.(viper.ConfigFileNotFoundError)
	return ok
}

func isNotExist(err error) bool {
	return os.IsNotExist(err)
}
