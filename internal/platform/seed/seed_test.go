package seed

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"filippo.io/age"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	employeestore "github.com/CuracelDev/curacel-peoplev2-sub001/internal/employee/store"
	integration "github.com/CuracelDev/curacel-peoplev2-sub001/internal/integration/models"
	integrationstore "github.com/CuracelDev/curacel-peoplev2-sub001/internal/integration/store"
	offboarding "github.com/CuracelDev/curacel-peoplev2-sub001/internal/offboarding/models"
	offboardingstore "github.com/CuracelDev/curacel-peoplev2-sub001/internal/offboarding/store"
	provisioningstore "github.com/CuracelDev/curacel-peoplev2-sub001/internal/provisioning/store"
	"github.com/CuracelDev/curacel-peoplev2-sub001/internal/platform/sealed"
	id "github.com/CuracelDev/curacel-peoplev2-sub001/pkg/domain"
)

const sampleSeed = `
integrations:
  - key: slack
    id: 7b0c8f5e-1d7e-4c55-9a53-3f1f0f6f2a11
    provider: slack
    config:
      botToken: xoxb-test
      defaultChannels: [general]
    rules:
      - name: engineering channels
        condition: {department: Engineering}
        data: {channels: [eng, deploys]}
        priority: 10
  - key: standup
    provider: standup
    disabled: true
templates:
  - name: Revoke Slack
    type: automated
    kind: deprovision-integration
    integration: slack
    sort_order: 2
  - name: Remove from standup
    type: automated
    kind: remove_from_standup
    provider: standup
    sort_order: 3
  - name: Collect laptop
    type: manual
    sort_order: 1
employees:
  - id: 0f8e1b4a-6b2d-4c1e-9d8e-6a7b5c4d3e21
    full_name: Ada Lovelace
    work_email: ada@acme.test
    personal_email: ada@home.test
    department: Engineering
    metadata: {team: platform}
`

type stores struct {
	integrations *integrationstore.InMemory
	rules        *provisioningstore.InMemory
	templates    *offboardingstore.InMemoryTemplates
	employees    *employeestore.InMemory
}

func newStores() stores {
	return stores{
		integrations: integrationstore.NewInMemory(),
		rules:        provisioningstore.NewInMemory(),
		templates:    offboardingstore.NewInMemoryTemplates(),
		employees:    employeestore.NewInMemory(),
	}
}

func (s stores) targets() Targets {
	return Targets{Integrations: s.integrations, Rules: s.rules, Templates: s.templates, Employees: s.employees}
}

func TestApply(t *testing.T) {
	ctx := context.Background()
	identity, err := age.GenerateX25519Identity()
	require.NoError(t, err)
	opener, err := sealed.NewOpener(identity.String())
	require.NoError(t, err)

	f, err := Parse([]byte(sampleSeed))
	require.NoError(t, err)

	st := newStores()
	sum, err := Apply(ctx, f, st.targets(), opener, time.Now())
	require.NoError(t, err)
	assert.Equal(t, Summary{Integrations: 2, Rules: 1, Templates: 3, Employees: 1}, sum)

	slackID, err := id.ParseIntegrationID("7b0c8f5e-1d7e-4c55-9a53-3f1f0f6f2a11")
	require.NoError(t, err)

	t.Run("integration and sealed connection", func(t *testing.T) {
		in, err := st.integrations.FindByID(ctx, slackID)
		require.NoError(t, err)
		assert.Equal(t, integration.ProviderSlack, in.Provider)
		assert.True(t, in.Enabled)

		conn, err := st.integrations.FindActive(ctx, slackID)
		require.NoError(t, err)
		assert.NotContains(t, string(conn.EncryptedConfig), "xoxb-test")

		cfg, legacy := opener.Open(conn.EncryptedConfig)
		assert.False(t, legacy)
		assert.Equal(t, "xoxb-test", cfg["botToken"])
	})

	t.Run("disabled integration is not usable", func(t *testing.T) {
		usable, err := st.integrations.ListUsable(ctx)
		require.NoError(t, err)
		require.Len(t, usable, 1)
		assert.Equal(t, slackID, usable[0].ID)
	})

	t.Run("rules", func(t *testing.T) {
		rules, err := st.rules.ListActive(ctx, slackID)
		require.NoError(t, err)
		require.Len(t, rules, 1)
		assert.Equal(t, "Engineering", rules[0].Condition["department"])
		assert.JSONEq(t, `{"channels":["eng","deploys"]}`, string(rules[0].Data))
		assert.Equal(t, 10, rules[0].Priority)
	})

	t.Run("templates in sort order", func(t *testing.T) {
		templates, err := st.templates.ListActive(ctx)
		require.NoError(t, err)
		require.Len(t, templates, 3)
		assert.Equal(t, offboarding.TaskManual, templates[0].Type)
		assert.Equal(t, offboarding.KindDeprovisionIntegration, templates[1].AutomationKind)
		require.NotNil(t, templates[1].IntegrationID)
		assert.Equal(t, slackID, *templates[1].IntegrationID)
		assert.Equal(t, offboarding.KindRemoveFromStandup, templates[2].AutomationKind)
		assert.Equal(t, string(integration.ProviderStandup), templates[2].Provider)
	})

	t.Run("employee", func(t *testing.T) {
		empID, err := id.ParseEmployeeID("0f8e1b4a-6b2d-4c1e-9d8e-6a7b5c4d3e21")
		require.NoError(t, err)
		emp, err := st.employees.FindByID(ctx, empID)
		require.NoError(t, err)
		assert.Equal(t, "Ada Lovelace", emp.FullName)
		assert.Equal(t, "ada@home.test", emp.PersonalEmail)
		assert.Equal(t, "platform", emp.Metadata["team"])
	})
}

func TestApply_PlaintextWithoutIdentity(t *testing.T) {
	ctx := context.Background()
	opener, err := sealed.NewOpener("")
	require.NoError(t, err)

	f, err := Parse([]byte(sampleSeed))
	require.NoError(t, err)
	st := newStores()
	_, err = Apply(ctx, f, st.targets(), opener, time.Now())
	require.NoError(t, err)

	slackID, err := id.ParseIntegrationID("7b0c8f5e-1d7e-4c55-9a53-3f1f0f6f2a11")
	require.NoError(t, err)
	conn, err := st.integrations.FindActive(ctx, slackID)
	require.NoError(t, err)

	cfg, legacy := opener.Open(conn.EncryptedConfig)
	assert.True(t, legacy)
	assert.Equal(t, "xoxb-test", cfg["botToken"])
}

func TestApply_Errors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{name: "unknown provider", doc: "integrations:\n  - key: x\n    provider: fax\n"},
		{name: "unknown template integration", doc: "templates:\n  - name: Revoke\n    type: automated\n    integration: nope\n"},
		{name: "duplicate key", doc: "integrations:\n  - key: a\n    provider: slack\n  - key: a\n    provider: slack\n"},
		{name: "bad task type", doc: "templates:\n  - name: Revoke\n    type: sometimes\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := Parse([]byte(tt.doc))
			require.NoError(t, err)
			_, err = Apply(context.Background(), f, newStores().targets(), nil, time.Now())
			assert.Error(t, err)
		})
	}
}

func TestParse_RejectsUnknownFields(t *testing.T) {
	_, err := Parse([]byte("integrations:\n  - key: a\n    provider: slack\n    colour: red\n"))
	assert.Error(t, err)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seed.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleSeed), 0o600))

	st := newStores()
	sum, err := LoadFile(context.Background(), path, st.targets(), nil, discardLogger())
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Employees)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
