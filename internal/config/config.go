// README: Config loader; defaults, optional YAML/JSON file, RIDEMATCH_ env overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const envPrefix = "RIDEMATCH_"

type MatchingConfig struct {
	// ResponseTimeout is how long a driver has to answer an offer.
	ResponseTimeout time.Duration `json:"response_timeout"`
	// DriverShare is the fraction of the customer price offered to the driver.
	DriverShare float64 `json:"driver_share"`
}

type AdviceConfig struct {
	ModelFile   string  `json:"model_file"`
	DensityFile string  `json:"density_file"`
	Threshold   float64 `json:"threshold"`
}

type Config struct {
	App struct {
		Env string `json:"env"`
	} `json:"app"`
	Log struct {
		Level string `json:"level"`
	} `json:"log"`
	HTTP struct {
		Addr string `json:"addr"`
	} `json:"http"`
	Storage struct {
		Dir         string `json:"dir"`
		PostgresDSN string `json:"postgres_dsn"`
	} `json:"storage"`
	Redis struct {
		Addr string `json:"addr"`
	} `json:"redis"`
	Maps struct {
		APIKey string `json:"api_key"`
		// FallbackSpeedKmh drives the straight-line duration estimate used
		// without an API key. Zero disables estimation.
		FallbackSpeedKmh float64 `json:"fallback_speed_kmh"`
	} `json:"maps"`
	Metrics struct {
		Enabled bool `json:"enabled"`
	} `json:"metrics"`
	Matching MatchingConfig `json:"matching"`
	Advice   AdviceConfig   `json:"advice"`
}

// Default returns the configuration used when nothing overrides it.
func Default() Config {
	var cfg Config
	cfg.App.Env = "prod"
	cfg.Log.Level = "info"
	cfg.HTTP.Addr = ":3000"
	cfg.Storage.Dir = "storage"
	cfg.Maps.FallbackSpeedKmh = 25
	cfg.Metrics.Enabled = true
	cfg.Matching.ResponseTimeout = 25 * time.Second
	cfg.Matching.DriverShare = 0.8
	cfg.Advice.ModelFile = "model/model.json"
	cfg.Advice.DensityFile = "storage/density_data.json"
	cfg.Advice.Threshold = 10
	return cfg
}

// Load builds the configuration from defaults, the optional file at path and
// RIDEMATCH_ environment variables, in that order. Nested keys use a double
// underscore: RIDEMATCH_MATCHING__RESPONSE_TIMEOUT=10s.
func Load(path string) (Config, error) {
	k := koanf.New(".")
	if path != "" {
		parser, err := parserFor(path)
		if err != nil {
			return Config{}, err
		}
		if _, err := os.Stat(path); err == nil {
			if err := k.Load(file.Provider(path), parser); err != nil {
				return Config{}, fmt.Errorf("load config file %s: %w", path, err)
			}
		} else if !os.IsNotExist(err) {
			return Config{}, fmt.Errorf("stat config file %s: %w", path, err)
		}
	}
	if err := k.Load(env.Provider(envPrefix, ".", envKey), nil); err != nil {
		return Config{}, fmt.Errorf("load env: %w", err)
	}

	cfg := Default()
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects settings the dispatcher cannot run with.
func (c Config) Validate() error {
	if c.Matching.ResponseTimeout <= 0 {
		return fmt.Errorf("matching.response_timeout must be positive, got %s", c.Matching.ResponseTimeout)
	}
	if c.Matching.DriverShare <= 0 || c.Matching.DriverShare > 1 {
		return fmt.Errorf("matching.driver_share must be in (0,1], got %v", c.Matching.DriverShare)
	}
	if c.Advice.ModelFile == "" || c.Advice.DensityFile == "" {
		return fmt.Errorf("advice.model_file and advice.density_file are required")
	}
	if c.Maps.FallbackSpeedKmh < 0 {
		return fmt.Errorf("maps.fallback_speed_kmh must not be negative, got %v", c.Maps.FallbackSpeedKmh)
	}
	if c.HTTP.Addr == "" {
		return fmt.Errorf("http.addr is required")
	}
	return nil
}

func parserFor(path string) (koanf.Parser, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return yaml.Parser(), nil
	case ".json":
		return json.Parser(), nil
	default:
		return nil, fmt.Errorf("unsupported config format: %s", filepath.Ext(path))
	}
}

func envKey(s string) string {
	s = strings.TrimPrefix(s, envPrefix)
	return strings.ReplaceAll(strings.ToLower(s), "__", ".")
}
