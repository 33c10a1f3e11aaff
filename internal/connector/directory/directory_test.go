package directory

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/suite"

	account "github.com/CuracelDev/curacel-peoplev2-sub001/internal/account/models"
	"github.com/CuracelDev/curacel-peoplev2-sub001/internal/connector"
	employee "github.com/CuracelDev/curacel-peoplev2-sub001/internal/employee/models"
	provisioning "github.com/CuracelDev/curacel-peoplev2-sub001/internal/provisioning/models"
)

type memoryCache struct {
	mu     sync.Mutex
	tokens map[string]string
	sets   int
}

func (m *memoryCache) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.tokens[key]
	return v, ok, nil
}

func (m *memoryCache) Set(_ context.Context, key, token string, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tokens[key] = token
	m.sets++
	return nil
}

type fakeWorkspace struct {
	mu        sync.Mutex
	publicKey *rsa.PublicKey
	exchanges int
	users     map[string]map[string]any
	calls     []string
	bodies    map[string]map[string]any
	failGroup string
}

func (f *fakeWorkspace) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if r.URL.Path == "/token" {
		f.exchanges++
		_ = r.ParseForm()
		claims := jwt.MapClaims{}
		_, err := jwt.ParseWithClaims(r.PostForm.Get("assertion"), claims, func(*jwt.Token) (any, error) {
			return f.publicKey, nil
		})
		if err != nil || claims["sub"] != "admin@example.com" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte(`{"access_token":"ya29.test","expires_in":3600}`))
		return
	}
	if r.Header.Get("Authorization") != "Bearer ya29.test" {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}

	call := r.Method + " " + r.URL.Path
	f.calls = append(f.calls, call)
	var body map[string]any
	_ = json.NewDecoder(r.Body).Decode(&body)
	f.bodies[call] = body

	const users = "/admin/directory/v1/users"
	switch {
	case r.Method == http.MethodGet && r.URL.Path == users:
		_, _ = w.Write([]byte(`{"users":[]}`))
	case r.Method == http.MethodGet && strings.HasPrefix(r.URL.Path, users+"/"):
		u, ok := f.users[strings.TrimPrefix(r.URL.Path, users+"/")]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_ = json.NewEncoder(w).Encode(u)
	case r.Method == http.MethodPost && r.URL.Path == users:
		email := body["primaryEmail"].(string)
		f.users[email] = map[string]any{"id": "new-1", "primaryEmail": email, "orgUnitPath": body["orgUnitPath"]}
		_ = json.NewEncoder(w).Encode(f.users[email])
	case strings.HasPrefix(r.URL.Path, "/admin/directory/v1/groups/"):
		if f.failGroup != "" && strings.Contains(r.URL.Path, f.failGroup) {
			w.WriteHeader(http.StatusConflict)
			return
		}
		_, _ = w.Write([]byte(`{}`))
	default:
		_, _ = w.Write([]byte(`{}`))
	}
}

type DirectorySuite struct {
	suite.Suite
	fake  *fakeWorkspace
	srv   *httptest.Server
	key   string
	cache *memoryCache
}

func TestDirectorySuite(t *testing.T) {
	suite.Run(t, new(DirectorySuite))
}

func (s *DirectorySuite) SetupTest() {
	privateKey, err := rsa.GenerateKey(rand.Reader, 2048)
	s.Require().NoError(err)
	s.fake = &fakeWorkspace{
		publicKey: &privateKey.PublicKey,
		users:     map[string]map[string]any{},
		bodies:    map[string]map[string]any{},
	}
	s.srv = httptest.NewServer(s.fake)
	pemKey := pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(privateKey)})
	raw, err := json.Marshal(map[string]string{
		"client_email": "svc@project.iam.example.com",
		"private_key":  string(pemKey),
		"token_uri":    s.srv.URL + "/token",
	})
	s.Require().NoError(err)
	s.key = string(raw)
	s.cache = &memoryCache{tokens: map[string]string{}}
}

func (s *DirectorySuite) TearDownTest() {
	s.srv.Close()
}

func (s *DirectorySuite) connector() *Connector {
	return New(Settings{
		AdminEmail:        "admin@example.com",
		Domain:            "example.com",
		ServiceAccountKey: s.key,
	}, connector.WithBaseURL(s.srv.URL), connector.WithTokenCache(s.cache, "int-1"))
}

func groupRule(data string) *provisioning.Rule {
	return &provisioning.Rule{Active: true, Priority: 1, Data: json.RawMessage(data)}
}

// =============================================================================
// Settings
// =============================================================================

func (s *DirectorySuite) TestValidate() {
	s.Run("missing fields", func() {
		err := Settings{Domain: "example.com"}.Validate()
		s.Require().Error(err)
		s.Contains(err.Error(), "adminEmail")
	})
	s.Run("key must be json", func() {
		err := Settings{AdminEmail: "a@example.com", Domain: "example.com", ServiceAccountKey: "nope"}.Validate()
		s.True(connector.IsCategory(err, connector.CategoryConfiguration))
	})
	s.Run("valid", func() {
		s.NoError(Settings{AdminEmail: "a@example.com", Domain: "example.com", ServiceAccountKey: s.key}.Validate())
	})
}

// =============================================================================
// Provision
// =============================================================================

func (s *DirectorySuite) TestProvision() {
	s.Run("creates user with derived email and initial password", func() {
		res := s.connector().Provision(context.Background(), connector.ProvisionRequest{
			Employee: &employee.Employee{FullName: "Ada King Lovelace"},
			Rules:    []*provisioning.Rule{groupRule(`{"orgUnitPath":"/Eng","groups":["eng@example.com"]}`)},
		})
		s.Require().Nil(res.Err)
		s.True(res.Success)
		s.Equal("ada.lovelace@example.com", res.ExternalEmail)
		s.Equal("new-1", res.ExternalUserID)
		s.Require().NotNil(res.Notice)
		s.Equal(connector.NoticeInitialPassword, res.Notice.Kind)
		s.NotEmpty(res.Notice.Secret)
		s.Equal("/Eng", res.Resources.OrgUnitPath)
		s.Equal([]string{"eng@example.com"}, res.Resources.Groups)

		created := s.fake.bodies["POST /admin/directory/v1/users"]
		s.Equal(true, created["changePasswordAtNextLogin"])
		s.Equal(map[string]any{"givenName": "Ada", "familyName": "Lovelace"}, created["name"])
	})

	s.Run("existing user is moved and already-member group is ok", func() {
		s.fake.users["ada@example.com"] = map[string]any{"id": "u-1", "primaryEmail": "ada@example.com", "orgUnitPath": "/"}
		s.fake.failGroup = "eng@"
		res := s.connector().Provision(context.Background(), connector.ProvisionRequest{
			Employee: &employee.Employee{FullName: "Ada Lovelace", WorkEmail: "Ada@Example.com"},
			Rules:    []*provisioning.Rule{groupRule(`{"orgUnitPath":"/Eng","groups":["eng@example.com"]}`)},
		})
		s.Require().Nil(res.Err)
		s.Nil(res.Notice)
		s.Equal("u-1", res.ExternalUserID)
		s.Equal([]string{"org-unit:/Eng", "group:eng@example.com"}, res.Resources.Applied)
		s.Contains(s.fake.calls, "PUT /admin/directory/v1/users/ada@example.com")
	})

	s.Run("no name and no email is a configuration error", func() {
		res := s.connector().Provision(context.Background(), connector.ProvisionRequest{Employee: &employee.Employee{}})
		s.Require().NotNil(res.Err)
		s.Equal(connector.CategoryConfiguration, res.Err.Category)
	})
}

func (s *DirectorySuite) TestTokenIsCachedAcrossConnectors() {
	s.True(s.connector().TestConnection(context.Background()).Success)
	res := s.connector().TestConnection(context.Background())
	s.True(res.Success, res.Message)
	s.Equal(1, s.fake.exchanges)
	s.Equal(1, s.cache.sets)
}

func (s *DirectorySuite) TestTokenRejected() {
	c := New(Settings{AdminEmail: "intruder@example.com", Domain: "example.com", ServiceAccountKey: s.key},
		connector.WithBaseURL(s.srv.URL))
	res := c.TestConnection(context.Background())
	s.False(res.Success)
	s.Equal(connector.CategoryAuthentication, res.Err.Category)
}

// =============================================================================
// Deprovision
// =============================================================================

func (s *DirectorySuite) TestDeprovision() {
	s.Run("suspend", func() {
		s.fake.users["ada@example.com"] = map[string]any{"id": "u-1", "primaryEmail": "ada@example.com"}
		res := s.connector().Deprovision(context.Background(), connector.DeprovisionRequest{
			Account: &account.AppAccount{ExternalEmail: "ada@example.com"},
			Options: account.DeprovisionOptions{SuspendInsteadOfDelete: true},
		})
		s.True(res.Success)
		s.Equal(map[string]any{"suspended": true}, s.fake.bodies["PUT /admin/directory/v1/users/ada@example.com"])
		s.NotContains(s.fake.calls, "DELETE /admin/directory/v1/users/ada@example.com")
	})

	s.Run("transfer, delete and alias", func() {
		s.fake.users["ada@example.com"] = map[string]any{"id": "u-1", "primaryEmail": "ada@example.com"}
		s.fake.users["boss@example.com"] = map[string]any{"id": "u-2", "primaryEmail": "boss@example.com"}
		res := s.connector().Deprovision(context.Background(), connector.DeprovisionRequest{
			Account: &account.AppAccount{ExternalEmail: "ada@example.com"},
			Options: account.DeprovisionOptions{DataTransferTo: "boss@example.com", TransferDrive: true, AliasToEmail: "boss@example.com"},
		})
		s.Require().Nil(res.Err)
		s.True(res.Success)

		transfer := s.fake.bodies["POST /admin/datatransfer/v1/transfers"]
		s.Equal("u-1", transfer["oldOwnerUserId"])
		s.Equal("u-2", transfer["newOwnerUserId"])
		s.Len(transfer["applicationDataTransfers"], 2)
		s.Contains(s.fake.calls, "DELETE /admin/directory/v1/users/ada@example.com")
		s.Equal(map[string]any{"alias": "ada@example.com"}, s.fake.bodies["POST /admin/directory/v1/users/boss@example.com/aliases"])
	})

	s.Run("missing user is already gone", func() {
		res := s.connector().Deprovision(context.Background(), connector.DeprovisionRequest{
			Account: &account.AppAccount{ExternalEmail: "ghost@example.com"},
		})
		s.True(res.Success)
		s.Contains(res.Note, "already removed")
	})

	s.Run("unknown transfer recipient fails before delete", func() {
		s.fake.users["ada@example.com"] = map[string]any{"id": "u-1", "primaryEmail": "ada@example.com"}
		s.fake.calls = nil
		res := s.connector().Deprovision(context.Background(), connector.DeprovisionRequest{
			Account: &account.AppAccount{ExternalEmail: "ada@example.com"},
			Options: account.DeprovisionOptions{DataTransferTo: "nobody@example.com"},
		})
		s.False(res.Success)
		s.Equal(connector.CategoryConfiguration, res.Err.Category)
		s.NotContains(s.fake.calls, "DELETE /admin/directory/v1/users/ada@example.com")
	})
}
