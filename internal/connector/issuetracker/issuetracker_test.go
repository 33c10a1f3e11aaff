package issuetracker

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	account "github.com/CuracelDev/curacel-peoplev2-sub001/internal/account/models"
	"github.com/CuracelDev/curacel-peoplev2-sub001/internal/connector"
	employee "github.com/CuracelDev/curacel-peoplev2-sub001/internal/employee/models"
	provisioning "github.com/CuracelDev/curacel-peoplev2-sub001/internal/provisioning/models"
)

type fakeJira struct {
	auth     string
	requests []string
	failRole bool
}

func (f *fakeJira) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Header.Get("Authorization") != f.auth {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	f.requests = append(f.requests, r.Method+" "+r.URL.Path+"?"+r.URL.RawQuery)
	switch {
	case r.URL.Path == "/rest/api/3/user/search":
		if r.URL.Query().Get("query") == "ada@example.com" {
			_, _ = w.Write([]byte(`[{"accountId":"acc-1","emailAddress":"ada@example.com","displayName":"Ada"}]`))
			return
		}
		_, _ = w.Write([]byte(`[]`))
	case r.URL.Path == "/rest/api/3/user" && r.Method == http.MethodPost:
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		_, _ = w.Write([]byte(`{"accountId":"acc-new","displayName":"` + body["displayName"].(string) + `"}`))
	case r.URL.Path == "/rest/api/3/group/user" && r.Method == http.MethodPost:
		if r.URL.Query().Get("groupname") == "jira-users" {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"errorMessages":["User is already a member of 'jira-users'"]}`))
			return
		}
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{}`))
	case r.Method == http.MethodPost && f.failRole:
		w.WriteHeader(http.StatusInternalServerError)
	case r.Method == http.MethodDelete:
		if r.URL.Query().Get("groupname") == "gone" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusOK)
	case r.URL.Path == "/rest/api/3/myself":
		_, _ = w.Write([]byte(`{"accountId":"svc","displayName":"People Bot"}`))
	default:
		_, _ = w.Write([]byte(`{}`))
	}
}

func basicHeader(user, secret string) string {
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(user+":"+secret))
}

func setup(t *testing.T, settings Settings, auth string) (*Connector, *fakeJira) {
	t.Helper()
	fake := &fakeJira{auth: auth}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)
	settings.SiteURL = srv.URL
	return New(settings), fake
}

func rulesWith(data string) []*provisioning.Rule {
	return []*provisioning.Rule{{Active: true, Data: json.RawMessage(data)}}
}

func TestProvision_ExistingUserGetsGroupsAndRoles(t *testing.T) {
	c, fake := setup(t, Settings{Email: "bot@example.com", APIToken: "tok"}, basicHeader("bot@example.com", "tok"))

	res := c.Provision(context.Background(), connector.ProvisionRequest{
		Employee: &employee.Employee{FullName: "Ada", WorkEmail: "ada@example.com"},
		Rules:    rulesWith(`{"groups":["jira-users","eng"],"projectRoles":[{"projectId":"10000","roleId":"10002"}]}`),
	})

	require.Nil(t, res.Err)
	assert.True(t, res.Success)
	assert.Equal(t, "acc-1", res.ExternalUserID)
	assert.Nil(t, res.Notice)
	assert.Equal(t, []string{"jira-users", "eng"}, res.Resources.Groups)
	assert.Equal(t, []provisioning.ProjectRole{{ProjectID: "10000", RoleID: "10002"}}, res.Resources.ProjectRoles)
	assert.Contains(t, fake.requests, "POST /rest/api/3/project/10000/role/10002?")
}

func TestProvision_InvitesMissingUser(t *testing.T) {
	c, _ := setup(t, Settings{Email: "bot@example.com", APIToken: "tok"}, basicHeader("bot@example.com", "tok"))

	res := c.Provision(context.Background(), connector.ProvisionRequest{
		Employee: &employee.Employee{FullName: "Grace Hopper", WorkEmail: "grace@example.com"},
	})
	require.Nil(t, res.Err)
	assert.Equal(t, "acc-new", res.ExternalUserID)
	require.NotNil(t, res.Notice)
	assert.Equal(t, connector.NoticeInvitation, res.Notice.Kind)
}

func TestProvision_BearerFallsBackToBasic(t *testing.T) {
	c, _ := setup(t, Settings{Email: "bot@example.com", APIToken: "tok", BearerToken: "stale"}, basicHeader("bot@example.com", "tok"))

	res := c.Provision(context.Background(), connector.ProvisionRequest{
		Employee: &employee.Employee{FullName: "Ada", WorkEmail: "ada@example.com"},
	})
	require.Nil(t, res.Err)
	assert.True(t, res.Success)
}

func TestProvision_PartialWhenRoleFails(t *testing.T) {
	c, fake := setup(t, Settings{BearerToken: "b"}, "Bearer b")
	fake.failRole = true

	res := c.Provision(context.Background(), connector.ProvisionRequest{
		Employee: &employee.Employee{FullName: "Ada", WorkEmail: "ada@example.com"},
		Rules:    rulesWith(`{"groups":["eng"],"projectRoles":[{"projectId":"1","roleId":"2"}]}`),
	})
	require.NotNil(t, res.Err)
	assert.Equal(t, connector.CategoryPartial, res.Err.Category)
	assert.Equal(t, []string{"group:eng"}, res.Resources.Applied)
	assert.True(t, res.Resources.Partial)
	assert.Equal(t, "acc-1", res.ExternalUserID)
}

func TestDeprovision_RemovesRecordedGroups(t *testing.T) {
	c, fake := setup(t, Settings{BearerToken: "b"}, "Bearer b")

	res := c.Deprovision(context.Background(), connector.DeprovisionRequest{
		Account: &account.AppAccount{
			ExternalUserID:       "acc-1",
			ProvisionedResources: &account.ProvisionedResources{Groups: []string{"eng", "gone"}},
		},
	})
	require.Nil(t, res.Err)
	assert.True(t, res.Success)
	assert.Contains(t, fake.requests, "DELETE /rest/api/3/group/user?accountId=acc-1&groupname=eng")
}

func TestTestConnection(t *testing.T) {
	c, _ := setup(t, Settings{BearerToken: "b"}, "Bearer b")
	res := c.TestConnection(context.Background())
	assert.True(t, res.Success)
	assert.Contains(t, res.Message, "People Bot")

	bad, _ := setup(t, Settings{Email: "x@example.com", APIToken: "nope"}, "Bearer b")
	res = bad.TestConnection(context.Background())
	require.NotNil(t, res.Err)
	assert.Equal(t, connector.CategoryAuthentication, res.Err.Category)
}

func TestSettingsValidate(t *testing.T) {
	assert.NoError(t, Settings{SiteURL: "https://acme.atlassian.net", BearerToken: "b"}.Validate())
	err := Settings{SiteURL: "https://acme.atlassian.net", Email: "bot@example.com"}.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "apiToken")
}
