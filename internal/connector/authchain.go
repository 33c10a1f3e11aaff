package connector

import (
	"encoding/base64"
	"net/http"
	"sync"
)

// Credential is one candidate Authorization header value.
type Credential struct {
	Name   string
	Header string
}

// BasicCredential encodes user:secret as HTTP Basic auth.
func BasicCredential(name, user, secret string) Credential {
	return Credential{Name: name, Header: "Basic " + base64.StdEncoding.EncodeToString([]byte(user+":"+secret))}
}

func BearerCredential(name, token string) Credential {
	return Credential{Name: name, Header: "Bearer " + token}
}

// AuthChain tries credentials in order until one is accepted. The accepted
// credential is tried first on later calls.
type AuthChain struct {
	candidates []Credential

	mu        sync.Mutex
	preferred int
}

// NewAuthChain drops candidates with an empty header.
func NewAuthChain(candidates ...Credential) *AuthChain {
	chain := &AuthChain{preferred: -1}
	for _, c := range candidates {
		if c.Header == "" || c.Header == "Bearer " {
			continue
		}
		chain.candidates = append(chain.candidates, c)
	}
	return chain
}

func (a *AuthChain) Len() int { return len(a.candidates) }

// Preferred returns the name of the remembered credential, if any.
func (a *AuthChain) Preferred() (string, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.preferred < 0 {
		return "", false
	}
	return a.candidates[a.preferred].Name, true
}

func (a *AuthChain) order() []int {
	a.mu.Lock()
	preferred := a.preferred
	a.mu.Unlock()

	order := make([]int, 0, len(a.candidates))
	if preferred >= 0 {
		order = append(order, preferred)
	}
	for i := range a.candidates {
		if i != preferred {
			order = append(order, i)
		}
	}
	return order
}

// Execute runs attempt with each candidate header. A 401 or 403 moves on to
// the next candidate; any other error is returned immediately. When every
// candidate is rejected the result is an authentication error.
func (a *AuthChain) Execute(attempt func(header string) error) error {
	if len(a.candidates) == 0 {
		return &Error{Category: CategoryConfiguration, Message: "no credentials configured"}
	}
	var last error
	for _, i := range a.order() {
		err := attempt(a.candidates[i].Header)
		if err == nil {
			a.mu.Lock()
			a.preferred = i
			a.mu.Unlock()
			return nil
		}
		if !HasStatus(err, http.StatusUnauthorized, http.StatusForbidden) {
			return err
		}
		last = err
	}
	return &Error{
		Category:   CategoryAuthentication,
		Message:    "all credentials were rejected",
		Underlying: last,
	}
}
