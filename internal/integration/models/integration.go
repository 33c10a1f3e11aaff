package models

import (
	"strings"
	"time"

	id "github.com/CuracelDev/curacel-peoplev2-sub001/pkg/domain"
	dErrors "github.com/CuracelDev/curacel-peoplev2-sub001/pkg/domain-errors"
)

// Provider identifies the third-party system behind an integration.
type Provider string

const (
	ProviderGoogleWorkspace Provider = "GOOGLE_WORKSPACE"
	ProviderSlack           Provider = "SLACK"
	ProviderBitbucket       Provider = "BITBUCKET"
	ProviderJira            Provider = "JIRA"
	ProviderHubSpot         Provider = "HUBSPOT"
	ProviderOnePassword     Provider = "ONEPASSWORD"
	ProviderFireflies       Provider = "FIREFLIES"
	ProviderWebflow         Provider = "WEBFLOW"
	ProviderStandup         Provider = "STANDUP"
	ProviderWebhook         Provider = "WEBHOOK"
	ProviderCustom          Provider = "CUSTOM"
)

// Kind is the connector family a provider belongs to.
type Kind string

const (
	KindDirectory       Kind = "directory"
	KindChat            Kind = "chat"
	KindSourceControl   Kind = "source_control"
	KindIssueTracker    Kind = "issue_tracker"
	KindCRM             Kind = "crm"
	KindPasswordManager Kind = "password_manager"
	KindTranscript      Kind = "meeting_transcript"
	KindCMS             Kind = "cms"
	KindStandup         Kind = "standup"
	KindWebhook         Kind = "webhook"
	KindNone            Kind = "none"
)

var providerKinds = map[Provider]Kind{
	ProviderGoogleWorkspace: KindDirectory,
	ProviderSlack:           KindChat,
	ProviderBitbucket:       KindSourceControl,
	ProviderJira:            KindIssueTracker,
	ProviderHubSpot:         KindCRM,
	ProviderOnePassword:     KindPasswordManager,
	ProviderFireflies:       KindTranscript,
	ProviderWebflow:         KindCMS,
	ProviderStandup:         KindStandup,
	ProviderWebhook:         KindWebhook,
	ProviderCustom:          KindNone,
}

// Kind returns the connector family, KindNone for unknown providers.
func (p Provider) Kind() Kind {
	if k, ok := providerKinds[p]; ok {
		return k
	}
	return KindNone
}

func (p Provider) IsValid() bool {
	_, ok := providerKinds[p]
	return ok
}

// ParseProvider accepts any casing.
func ParseProvider(s string) (Provider, error) {
	p := Provider(strings.ToUpper(strings.TrimSpace(s)))
	if !p.IsValid() {
		return "", dErrors.Newf(dErrors.CodeInvalidInput, "unknown provider %q", s)
	}
	return p, nil
}

// Integration is an installed third-party application.
type Integration struct {
	ID       id.IntegrationID `json:"id"`
	Provider Provider         `json:"provider"`
	Name     string           `json:"name"`
	Enabled  bool             `json:"enabled"`
	Archived bool             `json:"archived"`
}

func NewIntegration(integrationID id.IntegrationID, provider Provider, name string) (*Integration, error) {
	if !provider.IsValid() {
		return nil, dErrors.Newf(dErrors.CodeInvariantViolation, "unknown provider %q", provider)
	}
	name = strings.TrimSpace(name)
	if name == "" {
		name = string(provider)
	}
	return &Integration{ID: integrationID, Provider: provider, Name: name, Enabled: true}, nil
}

// IsUsable reports whether the integration may be provisioned against.
func (i *Integration) IsUsable() bool {
	return i.Enabled && !i.Archived
}

// Connection holds an integration's encrypted provider configuration.
// Only one connection per integration is active at a time.
type Connection struct {
	ID              id.ConnectionID  `json:"id"`
	IntegrationID   id.IntegrationID `json:"integrationId"`
	Active          bool             `json:"active"`
	EncryptedConfig []byte           `json:"-"`
	CreatedAt       time.Time        `json:"createdAt"`
}
