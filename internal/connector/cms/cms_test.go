package cms

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CuracelDev/curacel-peoplev2-sub001/internal/connector"
)

func TestConnector(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer tok" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		switch r.URL.Path {
		case "/sites/site-1":
			_, _ = w.Write([]byte(`{"id":"site-1","displayName":"Marketing"}`))
		case "/sites":
			_, _ = w.Write([]byte(`{"sites":[]}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	t.Run("provision is a no-op with a note", func(t *testing.T) {
		res := New(Settings{APIToken: "tok"}, connector.WithBaseURL(srv.URL)).Provision(context.Background(), connector.ProvisionRequest{})
		assert.True(t, res.Success)
		assert.Contains(t, res.Note, "unsupported")
	})

	t.Run("test reads the configured site", func(t *testing.T) {
		res := New(Settings{APIToken: "tok", SiteID: "site-1"}, connector.WithBaseURL(srv.URL)).TestConnection(context.Background())
		assert.True(t, res.Success)
		assert.Contains(t, res.Message, "Marketing")
	})

	t.Run("unknown site is not found", func(t *testing.T) {
		res := New(Settings{APIToken: "tok", SiteID: "nope"}, connector.WithBaseURL(srv.URL)).TestConnection(context.Background())
		require.NotNil(t, res.Err)
		assert.Equal(t, connector.CategoryNotFound, res.Err.Category)
	})

	t.Run("rejected token", func(t *testing.T) {
		res := New(Settings{APIToken: "bad"}, connector.WithBaseURL(srv.URL)).TestConnection(context.Background())
		require.NotNil(t, res.Err)
		assert.Equal(t, connector.CategoryAuthentication, res.Err.Category)
	})
}
