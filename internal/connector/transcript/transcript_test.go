package transcript

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CuracelDev/curacel-peoplev2-sub001/internal/connector"
	employee "github.com/CuracelDev/curacel-peoplev2-sub001/internal/employee/models"
)

func TestProvisionIsDeclaredNoop(t *testing.T) {
	c := New(Settings{APIKey: "k"}, connector.WithBaseURL("http://127.0.0.1:1"))

	res := c.Provision(context.Background(), connector.ProvisionRequest{Employee: &employee.Employee{WorkEmail: "ada@example.com"}})
	assert.True(t, res.Success)
	assert.Nil(t, res.Err)
	assert.Contains(t, res.Note, "unsupported")

	dres := c.Deprovision(context.Background(), connector.DeprovisionRequest{})
	assert.True(t, dres.Success)
	assert.Contains(t, dres.Note, "unsupported")
}

func TestTestConnection(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer good" {
			_, _ = w.Write([]byte(`{"errors":[{"message":"invalid api key"}]}`))
			return
		}
		_, _ = w.Write([]byte(`{"data":{"user":{"email":"bot@example.com"}}}`))
	}))
	defer srv.Close()

	ok := New(Settings{APIKey: "good"}, connector.WithBaseURL(srv.URL)).TestConnection(context.Background())
	assert.True(t, ok.Success)
	assert.Contains(t, ok.Message, "bot@example.com")

	bad := New(Settings{APIKey: "bad"}, connector.WithBaseURL(srv.URL)).TestConnection(context.Background())
	require.NotNil(t, bad.Err)
	assert.Equal(t, connector.CategoryAuthentication, bad.Err.Category)
}
