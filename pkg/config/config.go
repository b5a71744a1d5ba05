package config

// Package config provides a reusable loader for grugd configuration files
// and environment variables. It is versioned so that applications can depend
// on a stable API contract.
//
// Version: v0.2.0

import (
	"fmt"

	"github.com/spf13/viper"

	"grug/pkg/utils"
)

// Version is the semantic version of this configuration package.
const Version = "v0.2.0"

// Config represents the unified configuration for a grugd node. It mirrors
// the structure of the YAML files under cmd/config.
type Config struct {
	Network struct {
		ChainID     string `mapstructure:"chain_id" json:"chain_id"`
		GenesisFile string `mapstructure:"genesis_file" json:"genesis_file"`
		ListenAddr  string `mapstructure:"listen_addr" json:"listen_addr"`
	} `mapstructure:"network" json:"network"`

	Consensus struct {
		GenesisTimeUnixNano int64 `mapstructure:"genesis_time_unix_nano" json:"genesis_time_unix_nano"`
	} `mapstructure:"consensus" json:"consensus"`

	VM struct {
		MemoryPageLimit  uint32 `mapstructure:"memory_page_limit" json:"memory_page_limit"`
		MaxQueryDepth    uint32 `mapstructure:"max_query_depth" json:"max_query_depth"`
		InstanceCacheCap int    `mapstructure:"instance_cache_cap" json:"instance_cache_cap"`
	} `mapstructure:"vm" json:"vm"`

	Storage struct {
		DataDir string `mapstructure:"data_dir" json:"data_dir"`
		Prune   bool   `mapstructure:"prune" json:"prune"`
	} `mapstructure:"storage" json:"storage"`

	Gas struct {
		SchedulePath string `mapstructure:"schedule_path" json:"schedule_path"`
	} `mapstructure:"gas" json:"gas"`

	Logging struct {
		Level string `mapstructure:"level" json:"level"`
		File  string `mapstructure:"file" json:"file"`
	} `mapstructure:"logging" json:"logging"`
}

// AppConfig holds the configuration loaded via Load or LoadFromEnv.
var AppConfig Config

// Load reads configuration files and merges any environment specific
// overrides. The resulting configuration is stored in AppConfig and returned.
//
// The function uses the provided environment name to merge additional config
// files. If env is empty, only the default configuration is loaded.
func Load(env string) (*Config, error) {
	viper.SetConfigName("default")
	viper.AddConfigPath("cmd/config")
	viper.AddConfigPath("config")
	viper.SetConfigType("yaml")
	if err := viper.ReadInConfig(); err != nil {
		return nil, utils.Wrap(err, "load config")
	}

	if env != "" {
		viper.SetConfigName(env)
		if err := viper.MergeInConfig(); err != nil {
			return nil, utils.Wrap(err, fmt.Sprintf("merge %s config", env))
		}
	}

	viper.AutomaticEnv() // picks up matching process environment variables

	if err := viper.Unmarshal(&AppConfig); err != nil {
		return nil, utils.Wrap(err, "unmarshal config")
	}
	return &AppConfig, nil
}

// LoadFromEnv loads configuration using the GRUG_ENV environment variable.
func LoadFromEnv() (*Config, error) {
	return Load(utils.EnvOrDefault("GRUG_ENV", ""))
}
