// Package resolver turns an integration and its active connection into a
// ready connector.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/CuracelDev/curacel-peoplev2-sub001/internal/connector"
	"github.com/CuracelDev/curacel-peoplev2-sub001/internal/connector/chat"
	"github.com/CuracelDev/curacel-peoplev2-sub001/internal/connector/cms"
	"github.com/CuracelDev/curacel-peoplev2-sub001/internal/connector/crm"
	"github.com/CuracelDev/curacel-peoplev2-sub001/internal/connector/directory"
	"github.com/CuracelDev/curacel-peoplev2-sub001/internal/connector/issuetracker"
	"github.com/CuracelDev/curacel-peoplev2-sub001/internal/connector/noop"
	"github.com/CuracelDev/curacel-peoplev2-sub001/internal/connector/passwordmanager"
	"github.com/CuracelDev/curacel-peoplev2-sub001/internal/connector/sourcecontrol"
	"github.com/CuracelDev/curacel-peoplev2-sub001/internal/connector/standup"
	"github.com/CuracelDev/curacel-peoplev2-sub001/internal/connector/transcript"
	"github.com/CuracelDev/curacel-peoplev2-sub001/internal/connector/webhook"
	integration "github.com/CuracelDev/curacel-peoplev2-sub001/internal/integration/models"
	id "github.com/CuracelDev/curacel-peoplev2-sub001/pkg/domain"
	"github.com/CuracelDev/curacel-peoplev2-sub001/pkg/platform/circuit"
	"github.com/CuracelDev/curacel-peoplev2-sub001/pkg/platform/sentinel"
)

// ConnectionStore returns sentinel.ErrNotFound when no connection is active.
type ConnectionStore interface {
	FindActive(ctx context.Context, integrationID id.IntegrationID) (*integration.Connection, error)
}

// Opener decodes a stored connection config.
type Opener interface {
	Open(blob []byte) (map[string]any, bool)
}

type Resolver struct {
	connections ConnectionStore
	opener      Opener
	logger      *slog.Logger
	timeout     time.Duration
	breakers    *circuit.Registry
	tokenCache  connector.TokenCache
	runner      passwordmanager.Runner
	httpClient  *http.Client
}

type Option func(*Resolver)

func WithLogger(logger *slog.Logger) Option {
	return func(r *Resolver) {
		if logger != nil {
			r.logger = logger
		}
	}
}

func WithTimeout(d time.Duration) Option {
	return func(r *Resolver) { r.timeout = d }
}

func WithBreakers(reg *circuit.Registry) Option {
	return func(r *Resolver) { r.breakers = reg }
}

func WithTokenCache(cache connector.TokenCache) Option {
	return func(r *Resolver) { r.tokenCache = cache }
}

// WithRunner replaces the op CLI runner used by the password manager.
func WithRunner(runner passwordmanager.Runner) Option {
	return func(r *Resolver) { r.runner = runner }
}

func WithHTTPClient(c *http.Client) Option {
	return func(r *Resolver) { r.httpClient = c }
}

func New(connections ConnectionStore, opener Opener, opts ...Option) *Resolver {
	r := &Resolver{
		connections: connections,
		opener:      opener,
		logger:      slog.Default(),
		timeout:     connector.DefaultTimeout,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve returns nil, nil when the integration has no usable configuration.
// Only storage failures are returned as errors.
func (r *Resolver) Resolve(ctx context.Context, in *integration.Integration) (connector.Connector, error) {
	if in == nil || in.Archived {
		return nil, nil
	}
	logger := r.logger.With("integration_id", in.ID.String(), "provider", string(in.Provider))

	raw := map[string]any{}
	conn, err := r.connections.FindActive(ctx, in.ID)
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		conn = nil
	case err != nil:
		return nil, fmt.Errorf("load connection for integration %s: %w", in.ID, err)
	}
	if conn != nil {
		var legacy bool
		raw, legacy = r.opener.Open(conn.EncryptedConfig)
		if legacy {
			logger.DebugContext(ctx, "connection config stored as plaintext")
		}
	}

	opts := r.options(in)

	if in.Provider != integration.ProviderOnePassword {
		var hook webhook.Settings
		if err := connector.DecodeSettings(raw, &hook); err == nil && hook.Configured() {
			return connector.Instrument(webhook.New(in.Provider, hook, opts...), in, r.logger), nil
		}
	}

	settings, err := settingsFor(in.Provider)
	if err != nil {
		logger.WarnContext(ctx, "connector not configured", "error", err)
		return nil, nil
	}
	if settings != nil {
		if err := connector.DecodeSettings(raw, settings); err != nil {
			logger.WarnContext(ctx, "connector not configured", "error", err)
			return nil, nil
		}
		if err := settings.Validate(); err != nil {
			logger.InfoContext(ctx, "connector not configured", "error", err)
			return nil, nil
		}
	}

	c := r.instantiate(in, settings, opts)
	if c == nil {
		return nil, nil
	}
	return connector.Instrument(c, in, r.logger), nil
}

func (r *Resolver) options(in *integration.Integration) []connector.Option {
	opts := []connector.Option{
		connector.WithLogger(r.logger),
		connector.WithTimeout(r.timeout),
	}
	if r.httpClient != nil {
		opts = append(opts, connector.WithHTTPClient(r.httpClient))
	}
	if r.breakers != nil {
		opts = append(opts, connector.WithBreaker(r.breakers.Get(in.ID.String())))
	}
	if r.tokenCache != nil {
		opts = append(opts, connector.WithTokenCache(r.tokenCache, in.ID.String()))
	}
	return opts
}

// settingsFor returns a pointer to the provider's typed settings, or nil for
// providers that need none.
func settingsFor(p integration.Provider) (connector.Settings, error) {
	switch p {
	case integration.ProviderGoogleWorkspace:
		return &directory.Settings{}, nil
	case integration.ProviderSlack:
		return &chat.Settings{}, nil
	case integration.ProviderBitbucket:
		return &sourcecontrol.Settings{}, nil
	case integration.ProviderJira:
		return &issuetracker.Settings{}, nil
	case integration.ProviderHubSpot:
		return &crm.Settings{}, nil
	case integration.ProviderOnePassword:
		return &passwordmanager.Settings{}, nil
	case integration.ProviderFireflies:
		return &transcript.Settings{}, nil
	case integration.ProviderWebflow:
		return &cms.Settings{}, nil
	case integration.ProviderStandup:
		return &standup.Settings{}, nil
	case integration.ProviderWebhook:
		return &webhook.Settings{}, nil
	case integration.ProviderCustom:
		return nil, nil
	}
	return nil, fmt.Errorf("unknown provider %q", p)
}

func (r *Resolver) instantiate(in *integration.Integration, settings connector.Settings, opts []connector.Option) connector.Connector {
	switch s := settings.(type) {
	case *directory.Settings:
		return directory.New(*s, opts...)
	case *chat.Settings:
		return chat.New(*s, opts...)
	case *sourcecontrol.Settings:
		return sourcecontrol.New(*s, opts...)
	case *issuetracker.Settings:
		return issuetracker.New(*s, opts...)
	case *crm.Settings:
		return crm.New(*s, opts...)
	case *passwordmanager.Settings:
		return passwordmanager.New(*s, r.runner, opts...)
	case *transcript.Settings:
		return transcript.New(*s, opts...)
	case *cms.Settings:
		return cms.New(*s, opts...)
	case *standup.Settings:
		return standup.New(*s, opts...)
	case *webhook.Settings:
		return webhook.New(in.Provider, *s, opts...)
	case nil:
		return noop.New(in.Provider)
	}
	return nil
}
