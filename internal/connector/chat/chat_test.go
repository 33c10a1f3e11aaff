package chat

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	account "github.com/CuracelDev/curacel-peoplev2-sub001/internal/account/models"
	"github.com/CuracelDev/curacel-peoplev2-sub001/internal/connector"
	employee "github.com/CuracelDev/curacel-peoplev2-sub001/internal/employee/models"
	provisioning "github.com/CuracelDev/curacel-peoplev2-sub001/internal/provisioning/models"
)

// fakeSlack answers the Web API methods the connector uses.
type fakeSlack struct {
	mu         sync.Mutex
	users      map[string]string // email -> id
	groups     map[string][]string
	calls      []string
	forms      map[string][]map[string]string
	failMethod string
}

func newFakeSlack() *fakeSlack {
	return &fakeSlack{
		users:  map[string]string{"ada@example.com": "U1"},
		groups: map[string][]string{"S1": {"U9"}},
		forms:  map[string][]map[string]string{},
	}
}

func (f *fakeSlack) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_ = r.ParseForm()
	method := strings.TrimPrefix(r.URL.Path, "/")
	f.calls = append(f.calls, method)
	form := map[string]string{"auth": r.Header.Get("Authorization")}
	for k := range r.PostForm {
		form[k] = r.PostForm.Get(k)
	}
	f.forms[method] = append(f.forms[method], form)

	reply := func(v map[string]any) { _ = json.NewEncoder(w).Encode(v) }
	if method == f.failMethod {
		reply(map[string]any{"ok": false, "error": "ratelimited"})
		return
	}
	switch method {
	case "users.lookupByEmail":
		id, ok := f.users[r.PostForm.Get("email")]
		if !ok {
			reply(map[string]any{"ok": false, "error": "users_not_found"})
			return
		}
		reply(map[string]any{"ok": true, "user": map[string]any{"id": id, "name": "ada", "profile": map[string]any{"email": r.PostForm.Get("email")}}})
	case "conversations.invite":
		if r.PostForm.Get("channel") == "CJOINED" {
			reply(map[string]any{"ok": false, "error": "already_in_channel"})
			return
		}
		reply(map[string]any{"ok": true})
	case "usergroups.users.list":
		reply(map[string]any{"ok": true, "users": f.groups[r.PostForm.Get("usergroup")]})
	case "usergroups.users.update":
		f.groups[r.PostForm.Get("usergroup")] = strings.Split(r.PostForm.Get("users"), ",")
		reply(map[string]any{"ok": true})
	case "auth.test":
		if r.Header.Get("Authorization") != "Bearer xoxb-bot" {
			reply(map[string]any{"ok": false, "error": "invalid_auth"})
			return
		}
		reply(map[string]any{"ok": true, "team": "Acme", "user": "people-bot"})
	default:
		reply(map[string]any{"ok": true})
	}
}

type ChatSuite struct {
	suite.Suite
	slack *fakeSlack
	srv   *httptest.Server
}

func TestChatSuite(t *testing.T) {
	suite.Run(t, new(ChatSuite))
}

func (s *ChatSuite) SetupTest() {
	s.slack = newFakeSlack()
	s.srv = httptest.NewServer(s.slack)
}

func (s *ChatSuite) TearDownTest() {
	s.srv.Close()
}

func (s *ChatSuite) connector(settings Settings) *Connector {
	if settings.BotToken == "" {
		settings.BotToken = "xoxb-bot"
	}
	return New(settings, connector.WithBaseURL(s.srv.URL))
}

func grantRule(data string) []*provisioning.Rule {
	return []*provisioning.Rule{{Active: true, Data: json.RawMessage(data)}}
}

// =============================================================================
// Provision
// =============================================================================

func (s *ChatSuite) TestProvision() {
	s.Run("joins default then rule channels and adds user groups", func() {
		c := s.connector(Settings{DefaultChannels: []string{"CGEN"}})
		res := c.Provision(context.Background(), connector.ProvisionRequest{
			Employee: &employee.Employee{FullName: "Ada", WorkEmail: "ada@example.com"},
			Rules:    grantRule(`{"channels":["CENG","CGEN","CJOINED"],"userGroups":["S1"]}`),
		})

		s.Require().Nil(res.Err)
		s.True(res.Success)
		s.False(res.Pending)
		s.Equal("U1", res.ExternalUserID)
		s.Equal("ada", res.ExternalUsername)
		s.Equal([]string{"CGEN", "CENG", "CJOINED"}, res.Resources.Channels)
		s.Equal([]string{"S1"}, res.Resources.UserGroups)
		s.Equal([]string{"U9", "U1"}, s.slack.groups["S1"])
		s.Equal([]string{"channel:CGEN", "channel:CENG", "channel:CJOINED", "usergroup:S1"}, res.Resources.Applied)
	})

	s.Run("unknown user without admin token must be invited first", func() {
		c := s.connector(Settings{})
		res := c.Provision(context.Background(), connector.ProvisionRequest{
			Employee: &employee.Employee{FullName: "Grace", WorkEmail: "grace@example.com"},
		})
		s.Require().NotNil(res.Err)
		s.Equal(connector.CategoryNotFound, res.Err.Category)
		s.Contains(res.Err.Message, "invite them there first")
	})

	s.Run("unknown user with admin token is invited and pending", func() {
		c := s.connector(Settings{AdminToken: "xoxp-admin", TeamID: "T1"})
		res := c.Provision(context.Background(), connector.ProvisionRequest{
			Employee: &employee.Employee{FullName: "Grace", WorkEmail: "grace@example.com"},
			Rules:    grantRule(`{"channels":["CENG"]}`),
		})
		s.Require().Nil(res.Err)
		s.True(res.Success)
		s.True(res.Pending)
		s.Empty(res.ExternalUserID)
		s.Require().NotNil(res.Notice)
		s.Equal(connector.NoticeInvitation, res.Notice.Kind)

		invite := s.slack.forms["admin.users.invite"][0]
		s.Equal("Bearer xoxp-admin", invite["auth"])
		s.Equal("CENG", invite["channel_ids"])
		s.Equal("T1", invite["team_id"])
	})

	s.Run("failure after a channel join is partial", func() {
		s.slack.failMethod = "usergroups.users.list"
		defer func() { s.slack.failMethod = "" }()

		c := s.connector(Settings{})
		res := c.Provision(context.Background(), connector.ProvisionRequest{
			Employee: &employee.Employee{FullName: "Ada", WorkEmail: "ada@example.com"},
			Rules:    grantRule(`{"channels":["CENG"],"userGroups":["S1"]}`),
		})
		s.Require().NotNil(res.Err)
		s.Equal(connector.CategoryPartial, res.Err.Category)
		s.True(res.Resources.Partial)
		s.Equal([]string{"channel:CENG"}, res.Resources.Applied)
		s.Equal([]string{"CENG"}, res.Resources.Channels)
	})
}

// =============================================================================
// Deprovision
// =============================================================================

func (s *ChatSuite) TestDeprovision() {
	s.Run("admin token deactivates", func() {
		c := s.connector(Settings{AdminToken: "xoxp-admin", TeamID: "T1"})
		res := c.Deprovision(context.Background(), connector.DeprovisionRequest{
			Account: &account.AppAccount{ExternalUserID: "U1"},
		})
		s.Require().Nil(res.Err)
		s.True(res.Success)
		s.Equal("U1", s.slack.forms["admin.users.remove"][0]["user_id"])
	})

	s.Run("bot token only removes from channels with a note", func() {
		c := s.connector(Settings{DefaultChannels: []string{"CGEN"}})
		res := c.Deprovision(context.Background(), connector.DeprovisionRequest{
			Employee: &employee.Employee{WorkEmail: "ada@example.com"},
			Account: &account.AppAccount{
				ProvisionedResources: &account.ProvisionedResources{Channels: []string{"CENG"}},
			},
		})
		s.Require().Nil(res.Err)
		s.True(res.Success)
		s.Contains(res.Note, "remains active")
		s.Len(s.slack.forms["conversations.kick"], 2)
	})

	s.Run("unknown user is already gone", func() {
		c := s.connector(Settings{})
		res := c.Deprovision(context.Background(), connector.DeprovisionRequest{
			Employee: &employee.Employee{WorkEmail: "nobody@example.com"},
		})
		s.Require().Nil(res.Err)
		s.True(res.Success)
	})
}

// =============================================================================
// TestConnection
// =============================================================================

func (s *ChatSuite) TestTestConnection() {
	s.Run("valid bot token", func() {
		res := s.connector(Settings{}).TestConnection(context.Background())
		s.True(res.Success)
		s.Contains(res.Message, "Acme")
	})

	s.Run("invalid bot token is authentication", func() {
		res := s.connector(Settings{BotToken: "xoxb-wrong"}).TestConnection(context.Background())
		s.Require().NotNil(res.Err)
		s.Equal(connector.CategoryAuthentication, res.Err.Category)
	})
}

func TestCategory(t *testing.T) {
	assert.Equal(t, connector.CategoryTransient, category("ratelimited"))
	assert.Equal(t, connector.CategoryNotFound, category("channel_not_found"))
	assert.Equal(t, connector.CategoryConfiguration, category("cant_invite_self"))
	require.True(t, connector.CategoryTransient.Retryable())
}
