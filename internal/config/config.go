// Package config loads the daemon's JSON configuration file (spec §6) plus
// the ambient settings the rest of the stack needs (logging, metrics,
// telemetry), the same viper/mapstructure/validator pipeline the teacher
// uses in pkg/config.
package config

import (
	"fmt"
	"os"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	mapstructure "github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"github.com/elrafoon/ptnet-mgr/internal/logger"
	"github.com/elrafoon/ptnet-mgr/internal/telemetry"
)

// Config is the daemon's full configuration (spec §6's three keys, plus the
// ambient logging/metrics/telemetry sections every component needs).
type Config struct {
	ServerAddress   string           `mapstructure:"server_address" json:"server_address" validate:"required,hostname_port"`
	TReconnect      int              `mapstructure:"t_reconnect" json:"t_reconnect" validate:"min=1"`
	NodeModelSource NodeModelSource  `mapstructure:"node_model_source" json:"node_model_source"`
	Logging         logger.Config    `mapstructure:"logging" json:"logging"`
	Metrics         MetricsConfig    `mapstructure:"metrics" json:"metrics"`
	Telemetry       telemetry.Config `mapstructure:"telemetry" json:"telemetry"`
	StorePath       string           `mapstructure:"store_path" json:"store_path" validate:"required"`
}

// MetricsConfig configures the admin server's Prometheus scrape endpoint.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled" json:"enabled"`
	Address string `mapstructure:"address" json:"address"`
}

// NodeModelSourceKind discriminates the spec's tagged union (spec §6:
// `"None" | { "SOL": "<dir>" }`).
type NodeModelSourceKind int

const (
	NodeModelSourceNone NodeModelSourceKind = iota
	NodeModelSourceSOL
)

// NodeModelSource is either "no external model" or "SOL model rooted at Dir".
type NodeModelSource struct {
	Kind NodeModelSourceKind
	Dir  string
}

// decodeNodeModelSource accepts either the bare string "None" or a
// single-key map {"SOL": "<dir>"}, mirroring how the teacher's
// byteSizeDecodeHook/durationDecodeHook target one destination type each.
func decodeNodeModelSource(from reflect.Type, to reflect.Type, data any) (any, error) {
	if to != reflect.TypeOf(NodeModelSource{}) {
		return data, nil
	}

	switch v := data.(type) {
	case string:
		if v != "None" {
			return nil, fmt.Errorf("config: node_model_source: unknown string variant %q", v)
		}
		return NodeModelSource{Kind: NodeModelSourceNone}, nil
	case map[string]any:
		// Viper lowercases keys read from the file, so match "SOL" case-insensitively.
		var dir any
		ok := false
		for k, val := range v {
			if strings.EqualFold(k, "SOL") {
				dir, ok = val, true
			}
		}
		if !ok || len(v) != 1 {
			return nil, fmt.Errorf("config: node_model_source: expected a single \"SOL\" key, got %v", v)
		}
		dirStr, ok := dir.(string)
		if !ok {
			return nil, fmt.Errorf("config: node_model_source: SOL value must be a string")
		}
		return NodeModelSource{Kind: NodeModelSourceSOL, Dir: dirStr}, nil
	default:
		return data, nil
	}
}

func durationDecodeHook() mapstructure.DecodeHookFunc {
	return func(from reflect.Type, to reflect.Type, data any) (any, error) {
		if to != reflect.TypeOf(time.Duration(0)) {
			return data, nil
		}
		switch v := data.(type) {
		case string:
			return time.ParseDuration(v)
		case int:
			return time.Duration(v), nil
		case int64:
			return time.Duration(v), nil
		case float64:
			return time.Duration(v), nil
		default:
			return data, nil
		}
	}
}

func configDecodeHooks() mapstructure.DecodeHookFunc {
	return mapstructure.ComposeDecodeHookFunc(
		decodeNodeModelSource,
		durationDecodeHook(),
	)
}

// DefaultConfig returns the defaults named throughout the spec: 10s
// reconnect back-off (§5), info/text/stderr logging, metrics/telemetry off.
func DefaultConfig() *Config {
	return &Config{
		TReconnect:      10,
		NodeModelSource: NodeModelSource{Kind: NodeModelSourceNone},
		Logging:         logger.Config{Level: "info", Format: "text", Output: "stderr"},
		Metrics:         MetricsConfig{Enabled: false, Address: "127.0.0.1:9090"},
		Telemetry:       telemetry.DefaultConfig(),
		StorePath:       "ptnet-mgr.redb",
	}
}

// Load reads configPath (a JSON file per spec §6) layered over
// DefaultConfig, with PTNET_MGR_-prefixed environment overrides, and
// validates the result.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setupViper(v, configPath)

	cfg := DefaultConfig()

	found, err := readConfigFile(v)
	if err != nil {
		return nil, err
	}
	if found {
		if err := v.Unmarshal(cfg, viper.DecodeHook(configDecodeHooks())); err != nil {
			return nil, fmt.Errorf("config: unmarshal: %w", err)
		}
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("config: validate: %w", err)
	}
	return cfg, nil
}

func setupViper(v *viper.Viper, configPath string) {
	v.SetEnvPrefix("PTNET_MGR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetConfigFile(configPath)
	v.SetConfigType("json")
}

func readConfigFile(v *viper.Viper) (bool, error) {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return false, nil
		}
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("config: read %s: %w", v.ConfigFileUsed(), err)
	}
	return true, nil
}

// Validate runs struct-tag validation over cfg (spec §6's contract plus the
// ambient sections).
func Validate(cfg *Config) error {
	return validator.New(validator.WithRequiredStructEnabled()).Struct(cfg)
}
