package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type EnvVars struct {
	v *viper.Viper
}

var _ EnvConfig = EnvVars{}

func (e EnvVars) GetAppName() string {
	return e.v.GetString("app_name")
}

func (e EnvVars) GetEnv() string {
	return strings.ToUpper(e.v.GetString("env"))
}

func (e EnvVars) GetLogLevel() string {
	return e.v.GetString("log_level")
}

func (e EnvVars) IsDev() bool {
	return e.GetEnv() == "DEV"
}

// Client holds the settings shared by every MedApp client binary.
type Client struct {
	v *viper.Viper
}

var _ ClientConfig = Client{}

// GetAPIURL returns the backend REST base URL, e.g. "http://localhost:8080/api"
func (c Client) GetAPIURL() string {
	return strings.TrimRight(c.v.GetString("api_url"), "/")
}

// GetUploadURL returns the base URL relative asset paths are resolved against
func (c Client) GetUploadURL() string {
	return strings.TrimRight(c.v.GetString("upload_url"), "/")
}

func (c Client) GetTokenDir() string {
	return c.v.GetString("token_dir")
}

// GetStoreSecret returns the secret used to seal the persisted token.
// Empty means the token is stored in a plain file.
func (c Client) GetStoreSecret() string {
	return c.v.GetString("store_secret")
}

func (c Client) GetHTTPTimeout() time.Duration {
	return c.v.GetDuration("http_timeout")
}

type Portal struct {
	v *viper.Viper
}

var _ PortalConfig = Portal{}

func (p Portal) GetPort() string {
	port := p.v.GetString("portal_port")
	if port != "" && port[0] != ':' {
		port = fmt.Sprintf(":%s", port)
	}
	return port
}

func (p Portal) GetAllowedOrigins() AllowedOrigins {
	origins := AllowedOrigins{}
	for _, o := range p.v.GetStringSlice("allowed_origins") {
		for _, part := range strings.Split(o, ",") {
			if part = strings.TrimSpace(part); part != "" {
				origins[part] = nullValue{}
			}
		}
	}
	return origins
}

func (Portal) GetAllowedMethods() string {
	return "GET, POST, PUT, OPTIONS"
}

func (Portal) GetAllowedHeaders() string {
	return "Content-Type, Authorization"
}

type AllowedOrigins map[string]struct{}
type nullValue = struct{}

func (a AllowedOrigins) IsAllowedOrigin(origin string) bool {
	_, ok := a[origin]
	return ok
}

func (a AllowedOrigins) String() string {
	var origins []string
	for k := range a {
		origins = append(origins, k)
	}
	return strings.Join(origins, ", ")
}
