package crm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	account "github.com/CuracelDev/curacel-peoplev2-sub001/internal/account/models"
	"github.com/CuracelDev/curacel-peoplev2-sub001/internal/connector"
	employee "github.com/CuracelDev/curacel-peoplev2-sub001/internal/employee/models"
)

type fakeHubSpot struct {
	created []map[string]any
	deleted []string
	pages   int
}

func (f *fakeHubSpot) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Header.Get("Authorization") != "Bearer pat" {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	switch {
	case r.Method == http.MethodGet && r.URL.Path == usersPath:
		f.pages++
		if r.URL.Query().Get("after") == "" {
			_, _ = w.Write([]byte(`{"results":[{"id":"1","email":"other@example.com"}],"paging":{"next":{"after":"p2"}}}`))
			return
		}
		_, _ = w.Write([]byte(`{"results":[{"id":"2","email":"Ada@Example.com"}]}`))
	case r.Method == http.MethodPost && r.URL.Path == usersPath:
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		f.created = append(f.created, body)
		_, _ = w.Write([]byte(`{"id":"99","email":"` + body["email"].(string) + `"}`))
	case r.Method == http.MethodDelete:
		id := strings.TrimPrefix(r.URL.Path, usersPath+"/")
		if id == "404" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		f.deleted = append(f.deleted, id)
		w.WriteHeader(http.StatusNoContent)
	default:
		w.WriteHeader(http.StatusBadRequest)
	}
}

func newConnector(t *testing.T, settings Settings) (*Connector, *fakeHubSpot) {
	t.Helper()
	fake := &fakeHubSpot{}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)
	if settings.AccessToken == "" {
		settings.AccessToken = "pat"
	}
	return New(settings, connector.WithBaseURL(srv.URL)), fake
}

func TestProvision_FindsExistingAcrossPages(t *testing.T) {
	c, fake := newConnector(t, Settings{})
	res := c.Provision(context.Background(), connector.ProvisionRequest{
		Employee: &employee.Employee{WorkEmail: "ada@example.com"},
	})
	require.Nil(t, res.Err)
	assert.True(t, res.Success)
	assert.Equal(t, "2", res.ExternalUserID)
	assert.Equal(t, 2, fake.pages)
	assert.Empty(t, fake.created)
}

func TestProvision_CreatesWithDefaultRole(t *testing.T) {
	c, fake := newConnector(t, Settings{DefaultRoleID: "role-7"})
	res := c.Provision(context.Background(), connector.ProvisionRequest{
		Employee: &employee.Employee{WorkEmail: "grace@example.com"},
	})
	require.Nil(t, res.Err)
	assert.Equal(t, "99", res.ExternalUserID)
	require.Len(t, fake.created, 1)
	assert.Equal(t, "role-7", fake.created[0]["roleId"])
}

func TestDeprovision(t *testing.T) {
	c, fake := newConnector(t, Settings{})

	res := c.Deprovision(context.Background(), connector.DeprovisionRequest{Account: &account.AppAccount{ExternalUserID: "2"}})
	require.Nil(t, res.Err)
	assert.Equal(t, []string{"2"}, fake.deleted)

	res = c.Deprovision(context.Background(), connector.DeprovisionRequest{Account: &account.AppAccount{ExternalUserID: "404"}})
	require.Nil(t, res.Err)
	assert.True(t, res.Success, "404 counts as removed")

	res = c.Deprovision(context.Background(), connector.DeprovisionRequest{Employee: &employee.Employee{WorkEmail: "nobody@example.com"}})
	require.Nil(t, res.Err)
	assert.True(t, res.Success)
}

func TestTestConnection_RejectedToken(t *testing.T) {
	c, _ := newConnector(t, Settings{AccessToken: "wrong"})
	res := c.TestConnection(context.Background())
	require.NotNil(t, res.Err)
	assert.Equal(t, connector.CategoryAuthentication, res.Err.Category)
	assert.False(t, res.Err.Retryable)
}
