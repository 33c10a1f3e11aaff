package chat

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"

	"github.com/CuracelDev/curacel-peoplev2-sub001/internal/connector"
)

// apiError is an {"ok":false} reply. Slack answers 200 for most failures.
type apiError struct {
	Method string
	Code   string
}

func (e *apiError) Error() string {
	return e.Method + ": " + e.Code
}

func isSlackError(err error, codes ...string) bool {
	var ae *apiError
	if !errors.As(err, &ae) {
		return false
	}
	for _, c := range codes {
		if ae.Code == c {
			return true
		}
	}
	return false
}

func category(code string) connector.Category {
	switch code {
	case "invalid_auth", "not_authed", "token_revoked", "token_expired", "account_inactive", "missing_scope", "not_allowed_token_type":
		return connector.CategoryAuthentication
	case "users_not_found", "user_not_found", "channel_not_found", "no_such_subteam":
		return connector.CategoryNotFound
	case "ratelimited", "internal_error", "fatal_error", "service_unavailable", "request_timeout":
		return connector.CategoryTransient
	}
	return connector.CategoryConfiguration
}

// call posts form to a Web API method and decodes the reply into out.
func call(ctx context.Context, client *connector.HTTPClient, method string, form url.Values, out any) error {
	resp, err := client.Do(ctx, connector.Request{Method: http.MethodPost, Path: "/" + method, Form: form})
	if err != nil {
		return err
	}
	var envelope struct {
		OK    bool   `json:"ok"`
		Error string `json:"error"`
	}
	if err := json.Unmarshal(resp.Body, &envelope); err != nil {
		return connector.WrapError(provider, connector.CategoryTransient, err, "unreadable reply from "+method)
	}
	if !envelope.OK {
		cause := &apiError{Method: method, Code: envelope.Error}
		return connector.WrapError(provider, category(envelope.Error), cause, method+" failed: "+envelope.Error)
	}
	return resp.Decode(out)
}
