package infra

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"equidify/internal/domain"
)

const (
	// DefaultUserAgent is sent on REST and asset requests
	DefaultUserAgent = "equidify/1.0 (+https://github.com/equidify)"

	// PlaceholderAPIKey is the key shipped in the sample config
	PlaceholderAPIKey = "your_finnhub_api_key_here"
)

// Config는 애플리케이션의 모든 설정을 담습니다.
// LoadConfig로 로드된 후에 환경 변수를 통해 민감 내용을 덮어씁니다.
type Config struct {
	App struct {
		Name    string `yaml:"name"`
		Version string `yaml:"version"`
	} `yaml:"app"`

	API struct {
		Finnhub struct {
			APIKey  string `yaml:"api_key"`
			RestURL string `yaml:"rest_url"`
			WSURL   string `yaml:"ws_url"`
			// TimeoutSec bounds a single REST request
			TimeoutSec int `yaml:"timeout_sec"`
		} `yaml:"finnhub"`
	} `yaml:"api"`

	Cache struct {
		QuoteTTLMS           int `yaml:"quote_ttl_ms"`
		ProfileTTLMultiplier int `yaml:"profile_ttl_multiplier"`
	} `yaml:"cache"`

	Stream struct {
		ReconnectDelayMS int `yaml:"reconnect_delay_ms"`
	} `yaml:"stream"`

	Polling struct {
		UpdateIntervalSec int      `yaml:"update_interval_sec"`
		StatusIntervalSec int      `yaml:"status_interval_sec"`
		Indices           []string `yaml:"indices"`
	} `yaml:"polling"`

	Storage struct {
		Path    string `yaml:"path"`
		LogoDir string `yaml:"logo_dir"`
	} `yaml:"storage"`

	Logging struct {
		Level string `yaml:"level"`
		Dir   string `yaml:"dir"`
	} `yaml:"logging"`
}

// DefaultConfig returns the settings the dashboard ships with.
func DefaultConfig() *Config {
	var cfg Config
	cfg.App.Name = "Equidify"
	cfg.App.Version = "1.0.0"
	cfg.API.Finnhub.APIKey = PlaceholderAPIKey
	cfg.API.Finnhub.RestURL = "https://finnhub.io/api/v1"
	cfg.API.Finnhub.WSURL = "wss://ws.finnhub.io"
	cfg.API.Finnhub.TimeoutSec = 10
	cfg.Cache.QuoteTTLMS = 60000
	cfg.Cache.ProfileTTLMultiplier = 10
	cfg.Stream.ReconnectDelayMS = 5000
	cfg.Polling.UpdateIntervalSec = 30
	cfg.Polling.StatusIntervalSec = 60
	cfg.Polling.Indices = []string{"SPY", "DIA", "QQQ"}
	cfg.Logging.Level = "info"
	cfg.Logging.Dir = "logs"
	return &cfg
}

// LoadConfig는 설정 파일을 읽고 파싱합니다.
// 파일이 없으면 기본값과 환경 변수만 사용합니다.
func LoadConfig(path string) (*Config, error) {
	// .env is optional; real environment variables win over it
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("Failed to load .env file", slog.Any("error", err))
	}

	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, &domain.ConfigError{Field: path, Err: err}
		}
	case errors.Is(err, os.ErrNotExist):
		slog.Info("Config file not found, using defaults", slog.String("path", path))
	default:
		return nil, err
	}

	// 4원칙: 보안 우선 - 환경 변수 오버라이드 지원
	overrideWithEnv(cfg)

	// 5원칙: 설정 유효성 검사
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks configuration validity
func (c *Config) Validate() error {
	f := c.API.Finnhub
	if !strings.HasPrefix(f.RestURL, "http://") && !strings.HasPrefix(f.RestURL, "https://") {
		return &domain.ConfigError{Field: "api.finnhub.rest_url", Err: fmt.Errorf("invalid URL: %q", f.RestURL)}
	}
	if !strings.HasPrefix(f.WSURL, "ws://") && !strings.HasPrefix(f.WSURL, "wss://") {
		return &domain.ConfigError{Field: "api.finnhub.ws_url", Err: fmt.Errorf("invalid URL: %q", f.WSURL)}
	}
	if f.TimeoutSec <= 0 {
		return &domain.ConfigError{Field: "api.finnhub.timeout_sec", Err: errors.New("must be positive")}
	}
	if c.Cache.QuoteTTLMS <= 0 {
		return &domain.ConfigError{Field: "cache.quote_ttl_ms", Err: errors.New("must be positive")}
	}
	if c.Cache.ProfileTTLMultiplier <= 0 {
		return &domain.ConfigError{Field: "cache.profile_ttl_multiplier", Err: errors.New("must be positive")}
	}
	if c.Stream.ReconnectDelayMS <= 0 {
		return &domain.ConfigError{Field: "stream.reconnect_delay_ms", Err: errors.New("must be positive")}
	}
	if c.Polling.UpdateIntervalSec <= 0 || c.Polling.StatusIntervalSec <= 0 {
		return &domain.ConfigError{Field: "polling", Err: errors.New("intervals must be positive")}
	}
	return nil
}

// HasAPIKey reports whether a real API key is configured.
func (c *Config) HasAPIKey() bool {
	key := c.API.Finnhub.APIKey
	return key != "" && key != PlaceholderAPIKey
}

// QuoteTTL returns the quote cache lifetime.
func (c *Config) QuoteTTL() time.Duration {
	return time.Duration(c.Cache.QuoteTTLMS) * time.Millisecond
}

// ProfileTTL returns the profile cache lifetime.
func (c *Config) ProfileTTL() time.Duration {
	return c.QuoteTTL() * time.Duration(c.Cache.ProfileTTLMultiplier)
}

// RequestTimeout bounds a single REST request.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.API.Finnhub.TimeoutSec) * time.Second
}

// UpdateInterval is the quote polling period.
func (c *Config) UpdateInterval() time.Duration {
	return time.Duration(c.Polling.UpdateIntervalSec) * time.Second
}

// StatusInterval is the market status refresh period.
func (c *Config) StatusInterval() time.Duration {
	return time.Duration(c.Polling.StatusIntervalSec) * time.Second
}

// ReconnectDelay returns the fixed stream reconnect delay.
func (c *Config) ReconnectDelay() time.Duration {
	return time.Duration(c.Stream.ReconnectDelayMS) * time.Millisecond
}

// overrideWithEnv는 환경 변수가 존재할 경우 설정 값을 덮어씁니다.
func overrideWithEnv(cfg *Config) {
	if key := os.Getenv("FINNHUB_API_KEY"); key != "" {
		cfg.API.Finnhub.APIKey = key
	}
	if path := os.Getenv("EQUIDIFY_DB_PATH"); path != "" {
		cfg.Storage.Path = path
	}
	if level := os.Getenv("EQUIDIFY_LOG_LEVEL"); level != "" {
		cfg.Logging.Level = level
	}
}
