package connector

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	integration "github.com/CuracelDev/curacel-peoplev2-sub001/internal/integration/models"
	"github.com/CuracelDev/curacel-peoplev2-sub001/pkg/platform/circuit"
)

// DefaultTimeout bounds a single provider call.
const DefaultTimeout = 30 * time.Second

// TokenCache stores short-lived provider access tokens.
type TokenCache interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
}

// Config carries the dependencies shared by every variant.
type Config struct {
	HTTPClient *http.Client
	Logger     *slog.Logger
	Timeout    time.Duration
	// BaseURL overrides the provider's API root.
	BaseURL    string
	Breaker    *circuit.Breaker
	TokenCache TokenCache
	// CacheKey namespaces cached tokens, normally the integration id.
	CacheKey string
}

type Option func(*Config)

func WithHTTPClient(c *http.Client) Option {
	return func(cfg *Config) {
		if c != nil {
			cfg.HTTPClient = c
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(cfg *Config) {
		if logger != nil {
			cfg.Logger = logger
		}
	}
}

func WithTimeout(d time.Duration) Option {
	return func(cfg *Config) {
		if d > 0 {
			cfg.Timeout = d
		}
	}
}

func WithBaseURL(u string) Option {
	return func(cfg *Config) {
		cfg.BaseURL = u
	}
}

func WithBreaker(b *circuit.Breaker) Option {
	return func(cfg *Config) {
		cfg.Breaker = b
	}
}

func WithTokenCache(cache TokenCache, key string) Option {
	return func(cfg *Config) {
		cfg.TokenCache = cache
		cfg.CacheKey = key
	}
}

// NewConfig applies opts over the defaults.
func NewConfig(opts ...Option) Config {
	cfg := Config{
		HTTPClient: &http.Client{},
		Logger:     slog.Default(),
		Timeout:    DefaultTimeout,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// Client builds an HTTPClient rooted at BaseURL when set, else at defaultBase.
func (c Config) Client(provider integration.Provider, defaultBase string, opts ...ClientOption) *HTTPClient {
	base := defaultBase
	if c.BaseURL != "" {
		base = c.BaseURL
	}
	return newHTTPClient(provider, base, c, opts...)
}
