package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/kjstillabower/pws-history-proxy/internal/client"
)

// Config holds service configuration loaded from .env, YAML and env.
type Config struct {
	EnvName string

	ServerPort string
	StaticDir  string
	CSPEnabled bool

	WUAPIKey        string
	WUAPIURL        string
	UpstreamTimeout time.Duration // 0: no client-side timeout

	MetricsPath     string
	ShutdownTimeout time.Duration
}

type fileConfig struct {
	Server struct {
		Port       string `yaml:"port"`
		StaticDir  string `yaml:"static_dir"`
		CSPEnabled *bool  `yaml:"csp_enabled"`
	} `yaml:"server"`

	Upstream struct {
		URL     string `yaml:"url"`
		Timeout string `yaml:"timeout"`
	} `yaml:"upstream"`

	Metrics struct {
		Path string `yaml:"path"`
	} `yaml:"metrics"`

	Shutdown struct {
		Timeout string `yaml:"timeout"`
	} `yaml:"shutdown"`
}

type secretsFile struct {
	WUAPIKey string `yaml:"wu_api_key"`
}

// Load builds the configuration. Sources, lowest precedence first: defaults,
// config/{ENV_NAME}.yaml (default dev, optional), environment (after .env is loaded).
// The API key comes from WU_API_KEY or config/secrets.yaml wu_api_key; a missing key
// is not an error. Call from project root.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	env := os.Getenv("ENV_NAME")
	if env == "" {
		env = "dev"
	}

	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("config: get working directory: %w", err)
	}

	var fc fileConfig
	configPath := filepath.Join(cwd, "config", env+".yaml")
	if err := readYAML(configPath, &fc); err != nil {
		return nil, fmt.Errorf("config file %s: %w", configPath, err)
	}

	cfg := &Config{EnvName: env}

	cfg.ServerPort = firstNonEmpty(os.Getenv("PORT"), fc.Server.Port, "3000")
	cfg.StaticDir = firstNonEmpty(os.Getenv("STATIC_DIR"), fc.Server.StaticDir, "public")

	cfg.CSPEnabled = true
	if fc.Server.CSPEnabled != nil {
		cfg.CSPEnabled = *fc.Server.CSPEnabled
	}
	if v := strings.TrimSpace(os.Getenv("CSP_ENABLED")); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("CSP_ENABLED must be a boolean, got %q", v)
		}
		cfg.CSPEnabled = b
	}

	cfg.WUAPIKey = strings.TrimSpace(os.Getenv("WU_API_KEY"))
	if cfg.WUAPIKey == "" {
		var sec secretsFile
		secretsPath := filepath.Join(cwd, "config", "secrets.yaml")
		if err := readYAML(secretsPath, &sec); err != nil {
			return nil, fmt.Errorf("secrets file: %w", err)
		}
		cfg.WUAPIKey = strings.TrimSpace(sec.WUAPIKey)
	}

	cfg.WUAPIURL = firstNonEmpty(os.Getenv("WU_API_URL"), fc.Upstream.URL, client.DefaultAPIURL)
	cfg.UpstreamTimeout = parseDurationOrZero(fc.Upstream.Timeout, 0)

	cfg.MetricsPath = firstNonEmpty(fc.Metrics.Path, "/metrics")
	cfg.ShutdownTimeout = parseDuration(fc.Shutdown.Timeout, 30*time.Second)

	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// readYAML unmarshals path into v. A missing file leaves v untouched.
func readYAML(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read: %w", err)
	}
	if err := yaml.Unmarshal(data, v); err != nil {
		return fmt.Errorf("parse: %w", err)
	}
	return nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

// parseDuration parses a duration string and returns defaultVal if parsing fails or result is <= 0.
func parseDuration(s string, defaultVal time.Duration) time.Duration {
	d := parseDurationOrZero(s, defaultVal)
	if d <= 0 {
		return defaultVal
	}
	return d
}

// parseDurationOrZero parses a duration string, returning defaultVal on empty string or parse error.
func parseDurationOrZero(s string, defaultVal time.Duration) time.Duration {
	s = strings.TrimSpace(s)
	if s == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return defaultVal
	}
	return d
}

// validate checks the listen port and the upstream URL.
func validate(cfg *Config) error {
	port, err := strconv.Atoi(cfg.ServerPort)
	if err != nil || port < 1 || port > 65535 {
		return fmt.Errorf("PORT must be a number between 1 and 65535, got %q", cfg.ServerPort)
	}
	u, err := url.Parse(cfg.WUAPIURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("WU_API_URL must be an absolute http(s) URL, got %q", cfg.WUAPIURL)
	}
	if cfg.UpstreamTimeout < 0 {
		return fmt.Errorf("upstream.timeout must not be negative")
	}
	return nil
}
