package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// ClientConfig configures the hcoctl admin console.
type ClientConfig struct {
	Environment   string
	APIBaseURL    string
	SessionFile   string
	Timeout       time.Duration
	CheckInterval time.Duration
	WarnThreshold time.Duration
}

func LoadClient() (*ClientConfig, error) {
	v := newViper("hcoctl")
	setClientDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("load client config file: %w", err)
		}
	}

	var cfg ClientConfig
	if err := v.Unmarshal(&cfg, decoderOptions); err != nil {
		return nil, fmt.Errorf("unmarshal client config: %w", err)
	}
	cfg.APIBaseURL = strings.TrimRight(cfg.APIBaseURL, "/")

	return &cfg, nil
}

func setClientDefaults(v *viper.Viper) {
	v.SetDefault("environment", "development")
	v.SetDefault("apibaseurl", "http://localhost:8000/api/v1")
	v.SetDefault("sessionfile", defaultSessionFile())
	v.SetDefault("timeout", "30s")
	v.SetDefault("checkinterval", "1m")
	v.SetDefault("warnthreshold", "5m")
}

func defaultSessionFile() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = "."
	}
	return filepath.Join(dir, "hco", "userData.json")
}
