package directory

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/CuracelDev/curacel-peoplev2-sub001/internal/connector"
)

const (
	defaultTokenURI = "https://oauth2.googleapis.com/token"
	jwtBearerGrant  = "urn:ietf:params:oauth:grant-type:jwt-bearer"
	// tokenMargin is subtracted from the token lifetime before caching.
	tokenMargin = 60 * time.Second
)

var scopes = []string{
	"https://www.googleapis.com/auth/admin.directory.user",
	"https://www.googleapis.com/auth/admin.directory.group.member",
	"https://www.googleapis.com/auth/admin.datatransfer",
}

// serviceAccountKey is the subset of a downloaded key file that is used.
type serviceAccountKey struct {
	ClientEmail string `json:"client_email"`
	PrivateKey  string `json:"private_key"`
	TokenURI    string `json:"token_uri"`
}

func parseKey(raw string) (serviceAccountKey, error) {
	var key serviceAccountKey
	if err := json.Unmarshal([]byte(raw), &key); err != nil {
		return key, fmt.Errorf("service account key is not valid JSON: %w", err)
	}
	if key.ClientEmail == "" || key.PrivateKey == "" {
		return key, fmt.Errorf("service account key needs client_email and private_key")
	}
	if key.TokenURI == "" {
		key.TokenURI = defaultTokenURI
	}
	return key, nil
}

// tokenSource exchanges signed assertions for access tokens while
// impersonating the workspace admin. Tokens are cached in memory and, when
// configured, in the shared cache so that replicas reuse them.
type tokenSource struct {
	key      serviceAccountKey
	subject  string
	client   *connector.HTTPClient
	cache    connector.TokenCache
	cacheKey string
	now      func() time.Time

	mu        sync.Mutex
	token     string
	expiresAt time.Time
}

func (t *tokenSource) Token(ctx context.Context) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.token != "" && t.now().Before(t.expiresAt) {
		return t.token, nil
	}
	if t.cache != nil && t.cacheKey != "" {
		if cached, ok, err := t.cache.Get(ctx, t.cacheKey); err == nil && ok {
			t.token = cached
			t.expiresAt = t.now().Add(tokenMargin)
			return cached, nil
		}
	}

	token, ttl, err := t.exchange(ctx)
	if err != nil {
		return "", err
	}
	t.token = token
	t.expiresAt = t.now().Add(ttl)
	if t.cache != nil && t.cacheKey != "" {
		// A cache write failure only costs a later exchange.
		_ = t.cache.Set(ctx, t.cacheKey, token, ttl)
	}
	return token, nil
}

func (t *tokenSource) assertion() (string, error) {
	privateKey, err := jwt.ParseRSAPrivateKeyFromPEM([]byte(t.key.PrivateKey))
	if err != nil {
		return "", connector.WrapError(provider, connector.CategoryConfiguration, err, "service account private key is invalid")
	}
	now := t.now()
	claims := jwt.MapClaims{
		"iss":   t.key.ClientEmail,
		"sub":   t.subject,
		"scope": strings.Join(scopes, " "),
		"aud":   t.key.TokenURI,
		"iat":   now.Unix(),
		"exp":   now.Add(time.Hour).Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(privateKey)
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
}

func (t *tokenSource) exchange(ctx context.Context) (string, time.Duration, error) {
	signed, err := t.assertion()
	if err != nil {
		return "", 0, err
	}
	resp, err := t.client.Do(ctx, connector.Request{
		Method: http.MethodPost,
		Path:   t.key.TokenURI,
		Form:   url.Values{"grant_type": {jwtBearerGrant}, "assertion": {signed}},
	})
	if connector.HasStatus(err, http.StatusBadRequest, http.StatusUnauthorized, http.StatusForbidden) {
		return "", 0, connector.WrapError(provider, connector.CategoryAuthentication, err, "service account token exchange rejected")
	}
	if err != nil {
		return "", 0, err
	}
	var out tokenResponse
	if err := resp.Decode(&out); err != nil {
		return "", 0, err
	}
	if out.AccessToken == "" {
		return "", 0, connector.NewError(provider, connector.CategoryAuthentication, "token endpoint returned no access token")
	}
	ttl := time.Duration(out.ExpiresIn)*time.Second - tokenMargin
	if ttl <= 0 {
		ttl = time.Minute
	}
	return out.AccessToken, ttl, nil
}
