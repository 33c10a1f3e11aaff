package passwordmanager

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os/exec"
	"strings"
	"testing"

	"github.com/stretchr/testify/suite"

	account "github.com/CuracelDev/curacel-peoplev2-sub001/internal/account/models"
	"github.com/CuracelDev/curacel-peoplev2-sub001/internal/connector"
	"github.com/CuracelDev/curacel-peoplev2-sub001/internal/connector/webhook"
	employee "github.com/CuracelDev/curacel-peoplev2-sub001/internal/employee/models"
	provisioning "github.com/CuracelDev/curacel-peoplev2-sub001/internal/provisioning/models"
)

type fakeRunner struct {
	calls   []string
	env     []string
	replies map[string]string
	fails   map[string]error
}

func (f *fakeRunner) Run(_ context.Context, env []string, args ...string) ([]byte, error) {
	f.env = env
	key := strings.Join(args, " ")
	f.calls = append(f.calls, key)
	for prefix, err := range f.fails {
		if strings.HasPrefix(key, prefix) {
			return nil, err
		}
	}
	for prefix, reply := range f.replies {
		if strings.HasPrefix(key, prefix) {
			return []byte(reply), nil
		}
	}
	return nil, nil
}

func notFound(args ...string) error {
	return &CommandError{Args: args, Stderr: `[ERROR] "ada@example.com" isn't a user in this account`, Err: errors.New("exit status 1")}
}

type PasswordManagerSuite struct {
	suite.Suite
	runner *fakeRunner
}

func TestPasswordManagerSuite(t *testing.T) {
	suite.Run(t, new(PasswordManagerSuite))
}

func (s *PasswordManagerSuite) SetupTest() {
	s.runner = &fakeRunner{replies: map[string]string{}, fails: map[string]error{}}
}

func (s *PasswordManagerSuite) direct(settings Settings) *Direct {
	if settings.ServiceAccountToken == "" {
		settings.ServiceAccountToken = "ops_token"
	}
	return NewDirect(settings, s.runner)
}

func ada() *employee.Employee {
	return &employee.Employee{FullName: "Ada Lovelace", WorkEmail: "Ada@Example.com", Department: "Engineering"}
}

// =============================================================================
// Provision
// =============================================================================

func (s *PasswordManagerSuite) TestProvision() {
	s.Run("provisions a missing user then grants groups and vaults", func() {
		s.runner.fails["user get"] = notFound("user", "get")
		s.runner.replies["user provision"] = `{"id":"OP1","email":"ada@example.com","state":"TRANSFER_PENDING"}`
		rule := &provisioning.Rule{Active: true, Priority: 1, Data: []byte(`{"groups":["Engineering"]}`)}

		res := s.direct(Settings{Groups: []string{"Staff"}, Vaults: []string{"Shared"}}).Provision(context.Background(), connector.ProvisionRequest{
			Employee: ada(),
			Rules:    []*provisioning.Rule{rule},
		})
		s.Require().Nil(res.Err)
		s.True(res.Success)
		s.True(res.Pending)
		s.Equal("OP1", res.ExternalUserID)
		s.Require().NotNil(res.Notice)
		s.Equal(connector.NoticeInvitation, res.Notice.Kind)
		s.Equal([]string{"group:Staff", "group:Engineering", "vault:Shared"}, res.Resources.Applied)
		s.Equal([]string{"Shared"}, res.Resources.Vaults)
		s.Contains(s.runner.env, "OP_SERVICE_ACCOUNT_TOKEN=ops_token")
		s.Contains(s.runner.calls, "user provision --email ada@example.com --name Ada Lovelace --format json")
	})

	s.Run("vault failure after a group grant is partial", func() {
		s.SetupTest()
		s.runner.replies["user get"] = `{"id":"OP1","state":"ACTIVE"}`
		s.runner.fails["vault"] = &CommandError{Args: []string{"vault"}, Stderr: "connection reset", Err: errors.New("exit status 1")}

		res := s.direct(Settings{Groups: []string{"Staff"}, Vaults: []string{"Shared"}}).Provision(context.Background(), connector.ProvisionRequest{Employee: ada()})
		s.Require().NotNil(res.Err)
		s.Equal(connector.CategoryPartial, res.Err.Category)
		s.True(res.Resources.Partial)
		s.Equal([]string{"Staff"}, res.Resources.Groups)
		s.False(res.Pending)
	})

	s.Run("api mode is unsupported", func() {
		res := s.direct(Settings{Mode: ModeAPI}).Provision(context.Background(), connector.ProvisionRequest{Employee: ada()})
		s.Equal(connector.CategoryUnsupported, res.Err.Category)
	})

	s.Run("missing binary is unsupported", func() {
		s.SetupTest()
		s.runner.fails["user get"] = &CommandError{Args: []string{"user", "get"}, Err: exec.ErrNotFound}
		res := s.direct(Settings{}).Provision(context.Background(), connector.ProvisionRequest{Employee: ada()})
		s.Equal(connector.CategoryUnsupported, res.Err.Category)
	})
}

// =============================================================================
// Deprovision
// =============================================================================

func (s *PasswordManagerSuite) TestDeprovision() {
	s.Run("deletes by default", func() {
		res := s.direct(Settings{}).Deprovision(context.Background(), connector.DeprovisionRequest{
			Account: &account.AppAccount{ExternalUserID: "OP1"},
		})
		s.True(res.Success)
		s.Equal("user delete OP1 --format json", s.runner.calls[len(s.runner.calls)-1])
	})

	s.Run("suspends when asked", func() {
		res := s.direct(Settings{}).Deprovision(context.Background(), connector.DeprovisionRequest{
			Employee: ada(),
			Options:  account.DeprovisionOptions{SuspendInsteadOfDelete: true},
		})
		s.True(res.Success)
		s.Equal("user suspend ada@example.com --format json", s.runner.calls[len(s.runner.calls)-1])
	})

	s.Run("unknown user counts as removed", func() {
		s.runner.fails["user delete"] = notFound("user", "delete")
		res := s.direct(Settings{}).Deprovision(context.Background(), connector.DeprovisionRequest{Employee: ada()})
		s.True(res.Success)
		s.Contains(res.Note, "already removed")
	})

	s.Run("rejected token", func() {
		s.runner.fails["user delete"] = &CommandError{Stderr: "[ERROR] invalid token", Err: errors.New("exit status 1")}
		res := s.direct(Settings{}).Deprovision(context.Background(), connector.DeprovisionRequest{Employee: ada()})
		s.Equal(connector.CategoryAuthentication, res.Err.Category)
	})
}

// =============================================================================
// Webhook fallback
// =============================================================================

func (s *PasswordManagerSuite) TestFallsBackToWebhook() {
	var hits int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		_, _ = w.Write([]byte(`{"externalUserId":"hook-1"}`))
	}))
	defer srv.Close()

	c := New(Settings{Mode: ModeAPI, Webhook: webhook.Settings{ProvisionURL: srv.URL}}, s.runner)
	res := c.Provision(context.Background(), connector.ProvisionRequest{Employee: ada()})
	s.Require().Nil(res.Err)
	s.Equal("hook-1", res.ExternalUserID)
	s.Equal(1, hits)
	s.Empty(s.runner.calls)
}

func (s *PasswordManagerSuite) TestValidate() {
	s.Error(Settings{}.Validate())
	s.Error(Settings{Mode: "ldap", ServiceAccountToken: "x"}.Validate())
	s.NoError(Settings{ServiceAccountToken: "x"}.Validate())
	s.NoError(Settings{Mode: ModeAPI, Webhook: webhook.Settings{DeprovisionURL: "https://hooks.example.com"}}.Validate())
}

func (s *PasswordManagerSuite) TestWhoami() {
	s.runner.replies["whoami"] = `{"url":"acme.1password.com","user_type":"SERVICE_ACCOUNT"}`
	res := s.direct(Settings{}).TestConnection(context.Background())
	s.True(res.Success)
	s.Contains(res.Message, "acme.1password.com")
}
