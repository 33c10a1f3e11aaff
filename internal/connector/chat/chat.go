// Package chat connects Slack-style workspaces.
package chat

import (
	"context"
	"log/slog"
	"net/url"
	"slices"
	"strings"

	account "github.com/CuracelDev/curacel-peoplev2-sub001/internal/account/models"
	"github.com/CuracelDev/curacel-peoplev2-sub001/internal/connector"
	integration "github.com/CuracelDev/curacel-peoplev2-sub001/internal/integration/models"
	pstrings "github.com/CuracelDev/curacel-peoplev2-sub001/pkg/platform/strings"
)

const (
	defaultBaseURL = "https://slack.com/api"
	provider       = integration.ProviderSlack
)

type Settings struct {
	BotToken        string   `json:"botToken"`
	AdminToken      string   `json:"adminToken"`
	TeamID          string   `json:"teamId"`
	DefaultChannels []string `json:"defaultChannels"`
}

func (s Settings) Provider() integration.Provider { return provider }

func (s Settings) Validate() error {
	return connector.Require(provider, connector.Field{Name: "botToken", Value: s.BotToken})
}

type Connector struct {
	settings Settings
	bot      *connector.HTTPClient
	admin    *connector.HTTPClient
	logger   *slog.Logger
}

func New(settings Settings, opts ...connector.Option) *Connector {
	cfg := connector.NewConfig(opts...)
	c := &Connector{
		settings: settings,
		bot:      cfg.Client(provider, defaultBaseURL, connector.WithBearer(settings.BotToken)),
		logger:   cfg.Logger,
	}
	if settings.AdminToken != "" {
		c.admin = cfg.Client(provider, defaultBaseURL, connector.WithBearer(settings.AdminToken))
	}
	return c
}

type user struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Deleted bool   `json:"deleted"`
	Profile struct {
		Email string `json:"email"`
	} `json:"profile"`
}

// lookup finds a user by email; ok is false when the workspace has no match.
func (c *Connector) lookup(ctx context.Context, email string) (user, bool, error) {
	var out struct {
		User user `json:"user"`
	}
	err := call(ctx, c.bot, "users.lookupByEmail", url.Values{"email": {email}}, &out)
	if connector.IsCategory(err, connector.CategoryNotFound) {
		return user{}, false, nil
	}
	if err != nil {
		return user{}, false, err
	}
	return out.User, true, nil
}

func (c *Connector) Provision(ctx context.Context, req connector.ProvisionRequest) connector.ProvisionResult {
	email := req.Employee.PreferredEmail()
	if email == "" {
		return connector.ProvisionFailed(connector.NewError(provider, connector.CategoryConfiguration, "employee has no email"), account.ProvisionedResources{})
	}
	data := connector.ResolveGrants(ctx, c.logger, req.Employee, provider, req.Rules)
	channels := pstrings.Union(pstrings.DedupeAndTrim(c.settings.DefaultChannels), data.Channels)

	u, found, err := c.lookup(ctx, email)
	if err != nil {
		return connector.ProvisionFailed(connector.AsError(provider, err), account.ProvisionedResources{})
	}
	if !found {
		return c.invite(ctx, req, email, channels)
	}

	var res account.ProvisionedResources
	plan := connector.NewGrantPlan(provider)
	for _, ch := range channels {
		plan.Add("channel:"+ch, func(ctx context.Context) error {
			err := call(ctx, c.bot, "conversations.invite", url.Values{"channel": {ch}, "users": {u.ID}}, nil)
			if isSlackError(err, "already_in_channel") {
				err = nil
			}
			if err == nil {
				res.Channels = append(res.Channels, ch)
			}
			return err
		})
	}
	for _, group := range data.UserGroups {
		plan.Add("usergroup:"+group, func(ctx context.Context) error {
			if err := c.addToUserGroup(ctx, group, u.ID); err != nil {
				return err
			}
			res.UserGroups = append(res.UserGroups, group)
			return nil
		})
	}
	outcome := plan.Execute(ctx)
	res.Applied = outcome.Applied
	if outcome.Err != nil {
		res.Partial = outcome.Partial()
		return connector.ProvisionFailed(outcome.Err, res)
	}
	return connector.ProvisionResult{
		Success:          true,
		ExternalUserID:   u.ID,
		ExternalEmail:    email,
		ExternalUsername: u.Name,
		Resources:        res,
	}
}

// invite sends a workspace invitation. The account stays pending until the
// employee accepts, so no external id is known yet.
func (c *Connector) invite(ctx context.Context, req connector.ProvisionRequest, email string, channels []string) connector.ProvisionResult {
	if c.admin == nil {
		return connector.ProvisionFailed(connector.NotInvited(provider, email, "the Slack workspace"), account.ProvisionedResources{})
	}
	form := url.Values{
		"email":     {email},
		"team_id":   {c.settings.TeamID},
		"real_name": {req.Employee.FullName},
	}
	if len(channels) > 0 {
		form.Set("channel_ids", strings.Join(channels, ","))
	}
	if err := call(ctx, c.admin, "admin.users.invite", form, nil); err != nil && !isSlackError(err, "already_invited") {
		return connector.ProvisionFailed(connector.AsError(provider, err), account.ProvisionedResources{})
	}
	return connector.ProvisionResult{
		Success:       true,
		Pending:       true,
		ExternalEmail: email,
		Resources:     account.ProvisionedResources{Channels: channels},
		Note:          "invitation sent; access is pending until accepted",
		Notice: &connector.Notice{
			Kind:   connector.NoticeInvitation,
			Email:  email,
			Detail: "Slack workspace invitation",
		},
	}
}

func (c *Connector) addToUserGroup(ctx context.Context, group, userID string) error {
	var current struct {
		Users []string `json:"users"`
	}
	if err := call(ctx, c.bot, "usergroups.users.list", url.Values{"usergroup": {group}}, &current); err != nil {
		return err
	}
	if slices.Contains(current.Users, userID) {
		return nil
	}
	members := pstrings.Union(current.Users, []string{userID})
	return call(ctx, c.bot, "usergroups.users.update", url.Values{
		"usergroup": {group},
		"users":     {strings.Join(members, ",")},
	}, nil)
}

// Deprovision deactivates the user with an admin token. Without one it can
// only remove the user from channels, which is reported as a note.
func (c *Connector) Deprovision(ctx context.Context, req connector.DeprovisionRequest) connector.DeprovisionResult {
	userID, err := c.resolveUserID(ctx, req)
	if err != nil {
		return connector.DeprovisionFailed(connector.AsError(provider, err))
	}
	if userID == "" {
		return connector.DeprovisionResult{Success: true, Note: "user not found in workspace; nothing to remove"}
	}

	if c.admin != nil {
		err := call(ctx, c.admin, "admin.users.remove", url.Values{"team_id": {c.settings.TeamID}, "user_id": {userID}}, nil)
		if err != nil && !isSlackError(err, "user_not_found") {
			return connector.DeprovisionFailed(connector.AsError(provider, err))
		}
		return connector.DeprovisionResult{Success: true, Note: "user deactivated"}
	}

	channels := c.settings.DefaultChannels
	if req.Account != nil && req.Account.ProvisionedResources != nil {
		channels = pstrings.Union(channels, req.Account.ProvisionedResources.Channels)
	}
	for _, ch := range channels {
		err := call(ctx, c.bot, "conversations.kick", url.Values{"channel": {ch}, "user": {userID}}, nil)
		if err != nil && !isSlackError(err, "not_in_channel") {
			return connector.DeprovisionFailed(connector.AsError(provider, err))
		}
	}
	return connector.DeprovisionResult{
		Success: true,
		Note:    "no admin token: removed from channels only, the account remains active",
	}
}

func (c *Connector) resolveUserID(ctx context.Context, req connector.DeprovisionRequest) (string, error) {
	if req.Account != nil && req.Account.ExternalUserID != "" {
		return req.Account.ExternalUserID, nil
	}
	email := ""
	if req.Account != nil {
		email = req.Account.ExternalEmail
	}
	if email == "" && req.Employee != nil {
		email = req.Employee.PreferredEmail()
	}
	if email == "" {
		return "", nil
	}
	u, found, err := c.lookup(ctx, email)
	if err != nil || !found {
		return "", err
	}
	return u.ID, nil
}

func (c *Connector) TestConnection(ctx context.Context) connector.TestResult {
	var out struct {
		Team string `json:"team"`
		User string `json:"user"`
	}
	if err := call(ctx, c.bot, "auth.test", url.Values{}, &out); err != nil {
		return connector.TestFailed(connector.AsError(provider, err))
	}
	return connector.TestOK("connected to " + out.Team + " as " + out.User)
}
