// Package directory connects Google Workspace-style user directories.
package directory

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	account "github.com/CuracelDev/curacel-peoplev2-sub001/internal/account/models"
	"github.com/CuracelDev/curacel-peoplev2-sub001/internal/connector"
	employee "github.com/CuracelDev/curacel-peoplev2-sub001/internal/employee/models"
	integration "github.com/CuracelDev/curacel-peoplev2-sub001/internal/integration/models"
	"github.com/CuracelDev/curacel-peoplev2-sub001/pkg/email"
)

const (
	defaultBaseURL = "https://admin.googleapis.com"
	provider       = integration.ProviderGoogleWorkspace
	usersPath      = "/admin/directory/v1/users"

	driveApplicationID    = "55656082996"
	calendarApplicationID = "435070579839"
)

type Settings struct {
	AdminEmail        string `json:"adminEmail"`
	Domain            string `json:"domain"`
	ServiceAccountKey string `json:"serviceAccountKey"`
	CustomerID        string `json:"customerId"`
}

func (s Settings) Provider() integration.Provider { return provider }

func (s Settings) Validate() error {
	if err := connector.Require(provider,
		connector.Field{Name: "adminEmail", Value: s.AdminEmail},
		connector.Field{Name: "domain", Value: s.Domain},
		connector.Field{Name: "serviceAccountKey", Value: s.ServiceAccountKey},
	); err != nil {
		return err
	}
	if _, err := parseKey(s.ServiceAccountKey); err != nil {
		return connector.WrapError(provider, connector.CategoryConfiguration, err, "invalid serviceAccountKey")
	}
	return nil
}

type Connector struct {
	settings Settings
	api      *connector.HTTPClient
	tokens   *tokenSource
	logger   *slog.Logger
	keyErr   error
}

func New(settings Settings, opts ...connector.Option) *Connector {
	cfg := connector.NewConfig(opts...)
	key, keyErr := parseKey(settings.ServiceAccountKey)
	cacheKey := ""
	if cfg.CacheKey != "" {
		cacheKey = "directory:" + cfg.CacheKey + ":" + strings.ToLower(settings.AdminEmail)
	}
	return &Connector{
		settings: settings,
		api:      cfg.Client(provider, defaultBaseURL),
		tokens: &tokenSource{
			key:      key,
			subject:  settings.AdminEmail,
			client:   cfg.Client(provider, ""),
			cache:    cfg.TokenCache,
			cacheKey: cacheKey,
			now:      time.Now,
		},
		logger: cfg.Logger,
		keyErr: keyErr,
	}
}

// do sends an authorized directory API call.
func (c *Connector) do(ctx context.Context, req connector.Request, out any) error {
	if c.keyErr != nil {
		return connector.WrapError(provider, connector.CategoryConfiguration, c.keyErr, "invalid serviceAccountKey")
	}
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return err
	}
	if req.Headers == nil {
		req.Headers = map[string]string{}
	}
	req.Headers["Authorization"] = "Bearer " + token
	resp, err := c.api.Do(ctx, req)
	if err != nil {
		return err
	}
	return resp.Decode(out)
}

type directoryUser struct {
	ID           string `json:"id"`
	PrimaryEmail string `json:"primaryEmail"`
	OrgUnitPath  string `json:"orgUnitPath"`
	Suspended    bool   `json:"suspended"`
}

func userPath(key string) string {
	return usersPath + "/" + url.PathEscape(key)
}

func (c *Connector) getUser(ctx context.Context, key string) (directoryUser, bool, error) {
	var u directoryUser
	err := c.do(ctx, connector.Request{Method: http.MethodGet, Path: userPath(key)}, &u)
	if connector.HasStatus(err, http.StatusNotFound) {
		return u, false, nil
	}
	return u, err == nil, err
}

// primaryEmail is the employee's work address, or first.last@domain.
func (c *Connector) primaryEmail(emp *employee.Employee) string {
	if emp.WorkEmail != "" {
		return email.Normalize(emp.WorkEmail)
	}
	return email.DeriveWorkEmail(emp.FullName, c.settings.Domain)
}

func (c *Connector) Provision(ctx context.Context, req connector.ProvisionRequest) connector.ProvisionResult {
	primary := c.primaryEmail(req.Employee)
	if primary == "" {
		return connector.ProvisionFailed(connector.NewError(provider, connector.CategoryConfiguration, "cannot derive a primary email for the employee"), account.ProvisionedResources{})
	}
	data := connector.ResolveGrants(ctx, c.logger, req.Employee, provider, req.Rules)

	u, found, err := c.getUser(ctx, primary)
	if err != nil {
		return connector.ProvisionFailed(connector.AsError(provider, err), account.ProvisionedResources{})
	}

	var notice *connector.Notice
	if !found {
		password, err := randomPassword()
		if err != nil {
			return connector.ProvisionFailed(connector.WrapError(provider, connector.CategoryTransient, err, "generate initial password"), account.ProvisionedResources{})
		}
		given, family := email.SplitFullName(req.Employee.FullName)
		body := map[string]any{
			"primaryEmail":              primary,
			"name":                      map[string]string{"givenName": given, "familyName": family},
			"password":                  password,
			"changePasswordAtNextLogin": true,
		}
		if data.OrgUnitPath != "" {
			body["orgUnitPath"] = data.OrgUnitPath
		}
		if err := c.do(ctx, connector.Request{Method: http.MethodPost, Path: usersPath, Body: body}, &u); err != nil {
			return connector.ProvisionFailed(connector.AsError(provider, err), account.ProvisionedResources{})
		}
		notice = &connector.Notice{
			Kind:   connector.NoticeInitialPassword,
			Email:  primary,
			Secret: password,
			Detail: "Google Workspace account created; the password must be changed at first sign-in",
		}
	}

	res := account.ProvisionedResources{OrgUnitPath: u.OrgUnitPath}
	plan := connector.NewGrantPlan(provider)
	if data.OrgUnitPath != "" && found && !strings.EqualFold(u.OrgUnitPath, data.OrgUnitPath) {
		plan.Add("org-unit:"+data.OrgUnitPath, func(ctx context.Context) error {
			err := c.do(ctx, connector.Request{
				Method: http.MethodPut,
				Path:   userPath(primary),
				Body:   map[string]string{"orgUnitPath": data.OrgUnitPath},
			}, nil)
			if err == nil {
				res.OrgUnitPath = data.OrgUnitPath
			}
			return err
		})
	} else if data.OrgUnitPath != "" {
		res.OrgUnitPath = data.OrgUnitPath
	}
	for _, group := range data.Groups {
		plan.Add("group:"+group, func(ctx context.Context) error {
			err := c.do(ctx, connector.Request{
				Method: http.MethodPost,
				Path:   "/admin/directory/v1/groups/" + url.PathEscape(group) + "/members",
				Body:   map[string]string{"email": primary, "role": "MEMBER"},
			}, nil)
			if err != nil && !connector.HasStatus(err, http.StatusConflict) {
				return err
			}
			res.Groups = append(res.Groups, group)
			return nil
		})
	}

	outcome := plan.Execute(ctx)
	res.Applied = outcome.Applied
	res.Partial = outcome.Partial()
	return connector.ProvisionResult{
		Success:        outcome.Err == nil,
		ExternalUserID: u.ID,
		ExternalEmail:  primary,
		Resources:      res,
		Notice:         notice,
		Err:            outcome.Err,
	}
}

// Deprovision suspends the user, or transfers their data and deletes them.
func (c *Connector) Deprovision(ctx context.Context, req connector.DeprovisionRequest) connector.DeprovisionResult {
	key := ""
	if req.Account != nil {
		key = firstNonEmpty(req.Account.ExternalEmail, req.Account.ExternalUserID)
	}
	if key == "" && req.Employee != nil {
		key = c.primaryEmail(req.Employee)
	}
	if key == "" {
		return connector.DeprovisionResult{Success: true, Note: "no directory user recorded; nothing to remove"}
	}

	u, found, err := c.getUser(ctx, key)
	if err != nil {
		return connector.DeprovisionFailed(connector.AsError(provider, err))
	}
	if !found {
		return connector.DeprovisionResult{Success: true, Note: "user already removed from the directory"}
	}

	opts := req.Options
	if opts.SuspendInsteadOfDelete {
		if err := c.do(ctx, connector.Request{Method: http.MethodPut, Path: userPath(key), Body: map[string]bool{"suspended": true}}, nil); err != nil {
			return connector.DeprovisionFailed(connector.AsError(provider, err))
		}
		return connector.DeprovisionResult{Success: true, Note: "user suspended"}
	}

	var notes []string
	if opts.DataTransferTo != "" {
		if err := c.transferData(ctx, u.ID, opts); err != nil {
			return connector.DeprovisionFailed(connector.AsError(provider, err))
		}
		notes = append(notes, "data transfer to "+opts.DataTransferTo+" started")
	}
	if err := c.do(ctx, connector.Request{Method: http.MethodDelete, Path: userPath(key)}, nil); err != nil && !connector.HasStatus(err, http.StatusNotFound) {
		return connector.DeprovisionFailed(connector.AsError(provider, err))
	}
	notes = append(notes, "user deleted")

	if opts.AliasToEmail != "" {
		err := c.do(ctx, connector.Request{
			Method: http.MethodPost,
			Path:   userPath(opts.AliasToEmail) + "/aliases",
			Body:   map[string]string{"alias": u.PrimaryEmail},
		}, nil)
		if err != nil {
			return connector.DeprovisionFailed(connector.WrapError(provider, connector.CategoryPartial, err,
				"user deleted but alias "+u.PrimaryEmail+" could not be added to "+opts.AliasToEmail))
		}
		notes = append(notes, u.PrimaryEmail+" is now an alias of "+opts.AliasToEmail)
	}
	return connector.DeprovisionResult{Success: true, Note: strings.Join(notes, "; ")}
}

func (c *Connector) transferData(ctx context.Context, oldOwnerID string, opts account.DeprovisionOptions) error {
	target, found, err := c.getUser(ctx, opts.DataTransferTo)
	if err != nil {
		return err
	}
	if !found {
		return connector.Errorf(provider, connector.CategoryConfiguration, "data transfer recipient %s does not exist", opts.DataTransferTo)
	}
	apps := []map[string]any{{"applicationId": calendarApplicationID}}
	if opts.TransferDrive {
		apps = append(apps, map[string]any{
			"applicationId": driveApplicationID,
			"applicationTransferParams": []map[string]any{
				{"key": "PRIVACY_LEVEL", "value": []string{"PRIVATE", "SHARED"}},
			},
		})
	}
	return c.do(ctx, connector.Request{
		Method: http.MethodPost,
		Path:   "/admin/datatransfer/v1/transfers",
		Body: map[string]any{
			"oldOwnerUserId":           oldOwnerID,
			"newOwnerUserId":           target.ID,
			"applicationDataTransfers": apps,
		},
	}, nil)
}

func (c *Connector) TestConnection(ctx context.Context) connector.TestResult {
	q := url.Values{"maxResults": {"1"}}
	if c.settings.CustomerID != "" {
		q.Set("customer", c.settings.CustomerID)
	} else {
		q.Set("domain", c.settings.Domain)
	}
	if err := c.do(ctx, connector.Request{Method: http.MethodGet, Path: usersPath, Query: q}, nil); err != nil {
		return connector.TestFailed(connector.AsError(provider, err))
	}
	return connector.TestOK("directory for " + c.settings.Domain + " reachable")
}

func randomPassword() (string, error) {
	buf := make([]byte, 18)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
