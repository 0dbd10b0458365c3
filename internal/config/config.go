package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

const envPrefix = "MEDAPP"

type Config interface {
	EnvConfig
	ClientConfig
	PortalConfig
}

type EnvConfig interface {
	GetAppName() string
	GetEnv() string
	GetLogLevel() string
	IsDev() bool
}

type ClientConfig interface {
	GetAPIURL() string
	GetUploadURL() string
	GetTokenDir() string
	GetStoreSecret() string
	GetHTTPTimeout() time.Duration
}

type PortalConfig interface {
	GetPort() string
	GetAllowedOrigins() AllowedOrigins
	GetAllowedMethods() string
	GetAllowedHeaders() string
}

type mainConfig struct {
	EnvVars
	Client
	Portal
}

var _ Config = mainConfig{}

// New loads configuration from MEDAPP_* environment variables and, when it
// exists, a config file. An empty configFile falls back to
// <user config dir>/medapp/config.yaml; a missing default file is not an error.
func New(configFile string) (Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	explicit := configFile != ""
	if !explicit {
		configFile = filepath.Join(defaultConfigDir(), "config.yaml")
	}
	if _, err := os.Stat(configFile); explicit || err == nil {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrapf(err, "[config.New] reading %s", configFile)
		}
	}

	c := mainConfig{
		EnvVars: EnvVars{v: v},
		Client:  Client{v: v},
		Portal:  Portal{v: v},
	}
	if err := c.validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app_name", "MedApp")
	v.SetDefault("env", "DEV")
	v.SetDefault("log_level", "info")
	v.SetDefault("api_url", "http://localhost:8080/api")
	v.SetDefault("upload_url", "http://localhost:8080")
	v.SetDefault("token_dir", defaultConfigDir())
	v.SetDefault("store_secret", "")
	v.SetDefault("http_timeout", 15*time.Second)
	v.SetDefault("portal_port", "3000")
	v.SetDefault("allowed_origins", "http://localhost:5173")
}

func (c mainConfig) validate() error {
	if strings.TrimSpace(c.GetAPIURL()) == "" {
		return errors.New("[config] api_url is required")
	}
	if c.GetHTTPTimeout() <= 0 {
		return errors.New("[config] http_timeout must be positive")
	}
	return nil
}

func defaultConfigDir() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return filepath.Join(".", ".medapp")
	}
	return filepath.Join(dir, "medapp")
}
