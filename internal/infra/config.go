package infra

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/rb-om1999/ensofinal/internal/domain"
)

// ChartProvider describes a chart host accepted in link mode.
type ChartProvider struct {
	Name  string   `yaml:"name"`
	Hosts []string `yaml:"hosts"`
}

// Config represents application configuration loaded from environment variables,
// optionally layered on top of a YAML file named by CONFIG_PATH.
type Config struct {
	AppEnv           string
	Port             string
	BackendURL       string
	SessionSecret    string
	SessionStoreURL  string
	SessionIdleTTL   time.Duration
	SessionSweepCron string
	AdminEmails      []string
	ChartProviders   []ChartProvider
	GeoIPDBPath      string
	APITimeout       time.Duration
	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration
	HTTPIdleTimeout  time.Duration
	RateLimitPerMin  int
	PaymentDelay     time.Duration
	ExportDir        string
}

// fileConfig is the optional YAML overlay. Environment variables win over it.
type fileConfig struct {
	BackendURL     string          `yaml:"backend_url"`
	AdminEmails    []string        `yaml:"admin_emails"`
	ChartProviders []ChartProvider `yaml:"chart_providers"`
	ExportDir      string          `yaml:"export_dir"`
}

// DefaultChartProviders lists the chart hosts accepted when no overlay is given.
func DefaultChartProviders() []ChartProvider {
	return []ChartProvider{
		{Name: "TradingView", Hosts: []string{"tradingview.com"}},
		{Name: "Binance", Hosts: []string{"binance.com"}},
	}
}

// Providers converts the configured chart hosts for link-mode validation.
func (c *Config) Providers() []domain.ChartProvider {
	out := make([]domain.ChartProvider, 0, len(c.ChartProviders))
	for _, p := range c.ChartProviders {
		out = append(out, domain.ChartProvider{Name: p.Name, Hosts: append([]string(nil), p.Hosts...)})
	}
	return out
}

// LoadConfig loads configuration from environment variables and applies defaults where needed.
func LoadConfig() (*Config, error) {
	file, err := loadFileConfig(os.Getenv("CONFIG_PATH"))
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		AppEnv:           getEnv("APP_ENV", "development"),
		Port:             getEnv("PORT", "8080"),
		BackendURL:       getEnv("BACKEND_URL", file.BackendURL),
		SessionSecret:    os.Getenv("SESSION_SECRET"),
		SessionStoreURL:  os.Getenv("SESSION_STORE_URL"),
		SessionIdleTTL:   time.Hour * time.Duration(getEnvInt("SESSION_IDLE_TTL_HOURS", 30*24)),
		SessionSweepCron: getEnv("SESSION_SWEEP_CRON", "@every 10m"),
		AdminEmails:      file.AdminEmails,
		ChartProviders:   file.ChartProviders,
		GeoIPDBPath:      os.Getenv("GEOIP_DB_PATH"),
		APITimeout:       time.Second * time.Duration(getEnvInt("API_TIMEOUT_SECONDS", 90)),
		HTTPReadTimeout:  time.Second * time.Duration(getEnvInt("HTTP_READ_TIMEOUT_SECONDS", 15)),
		HTTPWriteTimeout: time.Second * time.Duration(getEnvInt("HTTP_WRITE_TIMEOUT_SECONDS", 120)),
		HTTPIdleTimeout:  time.Second * time.Duration(getEnvInt("HTTP_IDLE_TIMEOUT_SECONDS", 60)),
		RateLimitPerMin:  getEnvInt("RATE_LIMIT_PER_MINUTE", 30),
		PaymentDelay:     time.Second * time.Duration(getEnvInt("PAYMENT_SIMULATION_DELAY_SECONDS", 3)),
		ExportDir:        getEnv("EXPORT_DIR", file.ExportDir),
	}

	if v := os.Getenv("ADMIN_EMAILS"); v != "" {
		cfg.AdminEmails = splitList(v)
	}
	if len(cfg.ChartProviders) == 0 {
		cfg.ChartProviders = DefaultChartProviders()
	}
	if cfg.ExportDir == "" {
		cfg.ExportDir = "./exports"
	}

	cfg.BackendURL = strings.TrimRight(strings.TrimSpace(cfg.BackendURL), "/")
	if cfg.BackendURL == "" {
		return nil, fmt.Errorf("BACKEND_URL is required")
	}
	if u, err := url.Parse(cfg.BackendURL); err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("BACKEND_URL must be an absolute url, got %q", cfg.BackendURL)
	}

	return cfg, nil
}

// RequireSessionSecret reports an error when the cookie signing secret is missing.
// Only the web front signs cookies, so the CLI skips this check.
func (c *Config) RequireSessionSecret() error {
	if strings.TrimSpace(c.SessionSecret) == "" {
		return fmt.Errorf("SESSION_SECRET is required")
	}
	return nil
}

func loadFileConfig(path string) (fileConfig, error) {
	var fc fileConfig
	path = strings.TrimSpace(path)
	if path == "" {
		return fc, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fc, nil
		}
		return fc, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fc, fmt.Errorf("parse config: %w", err)
	}
	return fc, nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
