// Package passwordmanager connects 1Password-style vaults through the op CLI,
// with an optional webhook fallback.
package passwordmanager

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"os/exec"
	"strings"

	account "github.com/CuracelDev/curacel-peoplev2-sub001/internal/account/models"
	"github.com/CuracelDev/curacel-peoplev2-sub001/internal/connector"
	"github.com/CuracelDev/curacel-peoplev2-sub001/internal/connector/webhook"
	integration "github.com/CuracelDev/curacel-peoplev2-sub001/internal/integration/models"
	"github.com/CuracelDev/curacel-peoplev2-sub001/pkg/email"
	pstrings "github.com/CuracelDev/curacel-peoplev2-sub001/pkg/platform/strings"
)

const provider = integration.ProviderOnePassword

type Mode string

const (
	ModeCLI Mode = "cli"
	ModeAPI Mode = "api"
)

const vaultPermissions = "allow_viewing,allow_editing"

type Settings struct {
	Mode                Mode             `json:"mode"`
	ServiceAccountToken string           `json:"serviceAccountToken"`
	Address             string           `json:"address"`
	Vaults              []string         `json:"vaults"`
	Groups              []string         `json:"groups"`
	Webhook             webhook.Settings `json:"webhook"`
}

func (s Settings) Provider() integration.Provider { return provider }

func (s Settings) direct() bool {
	return s.mode() == ModeCLI && s.ServiceAccountToken != ""
}

func (s Settings) mode() Mode {
	if s.Mode == "" {
		return ModeCLI
	}
	return s.Mode
}

// Validate passes when either the direct mode or the webhook is usable.
func (s Settings) Validate() error {
	switch s.mode() {
	case ModeCLI, ModeAPI:
	default:
		return connector.Errorf(provider, connector.CategoryConfiguration, "unknown mode %q", s.Mode)
	}
	if s.direct() || s.Webhook.Configured() {
		return nil
	}
	return connector.Require(provider, connector.Field{Name: "serviceAccountToken", Value: s.ServiceAccountToken})
}

// Direct drives the op CLI.
type Direct struct {
	settings Settings
	runner   Runner
	logger   *slog.Logger
}

func NewDirect(settings Settings, runner Runner, opts ...connector.Option) *Direct {
	cfg := connector.NewConfig(opts...)
	if runner == nil {
		runner = CLIRunner{}
	}
	return &Direct{settings: settings, runner: runner, logger: cfg.Logger}
}

// New returns the direct connector, chained to the webhook when one is set.
func New(settings Settings, runner Runner, opts ...connector.Option) connector.Connector {
	direct := NewDirect(settings, runner, opts...)
	if !settings.Webhook.Configured() {
		return direct
	}
	return connector.NewChain(direct, webhook.New(provider, settings.Webhook, opts...))
}

func (d *Direct) ready(op string) *connector.Error {
	if d.settings.mode() == ModeAPI {
		return connector.Unsupported(provider, op+" through the api mode")
	}
	if d.settings.ServiceAccountToken == "" {
		return connector.NewError(provider, connector.CategoryConfiguration, "missing required settings: serviceAccountToken")
	}
	return nil
}

func (d *Direct) op(ctx context.Context, out any, args ...string) error {
	args = append(args, "--format", "json")
	if d.settings.Address != "" {
		args = append(args, "--account", d.settings.Address)
	}
	raw, err := d.runner.Run(ctx, []string{"OP_SERVICE_ACCOUNT_TOKEN=" + d.settings.ServiceAccountToken}, args...)
	if err != nil {
		return classify(err)
	}
	if out == nil || len(strings.TrimSpace(string(raw))) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return connector.WrapError(provider, connector.CategoryTransient, err, "unreadable op output")
	}
	return nil
}

// classify maps CLI failures onto connector categories using stderr.
func classify(err error) *connector.Error {
	if errors.Is(err, exec.ErrNotFound) {
		return connector.WrapError(provider, connector.CategoryUnsupported, err, "op CLI is not installed")
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return connector.WrapError(provider, connector.CategoryTransient, err, "op timed out")
	}
	var cmdErr *CommandError
	if !errors.As(err, &cmdErr) {
		return connector.AsError(provider, err)
	}
	stderr := strings.ToLower(cmdErr.Stderr)
	switch {
	case containsAny(stderr, "isn't a user", "not found", "doesn't exist", "no user"):
		return connector.WrapError(provider, connector.CategoryNotFound, err, "not found")
	case containsAny(stderr, "unauthorized", "authentication", "invalid token", "service account token"):
		return connector.WrapError(provider, connector.CategoryAuthentication, err, "service account rejected")
	case containsAny(stderr, "forbidden", "permission"):
		return connector.WrapError(provider, connector.CategoryConfiguration, err, "service account lacks permission")
	default:
		return connector.WrapError(provider, connector.CategoryTransient, err, "op failed")
	}
}

func containsAny(s string, needles ...string) bool {
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}

type opUser struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
	State string `json:"state"`
}

func (d *Direct) Provision(ctx context.Context, req connector.ProvisionRequest) connector.ProvisionResult {
	if err := d.ready("provision"); err != nil {
		return connector.ProvisionFailed(err, account.ProvisionedResources{})
	}
	address := email.Normalize(req.Employee.WorkEmail)
	if address == "" {
		return connector.ProvisionFailed(connector.NewError(provider, connector.CategoryConfiguration, "employee has no work email"), account.ProvisionedResources{})
	}
	data := connector.ResolveGrants(ctx, d.logger, req.Employee, provider, req.Rules)

	var user opUser
	var notice *connector.Notice
	err := d.op(ctx, &user, "user", "get", address)
	if connector.IsCategory(err, connector.CategoryNotFound) {
		err = d.op(ctx, &user, "user", "provision", "--email", address, "--name", req.Employee.FullName)
		if err == nil {
			notice = &connector.Notice{
				Kind:   connector.NoticeInvitation,
				Email:  address,
				Detail: "1Password invitation sent; accept it to finish setting up the account",
			}
		}
	}
	if err != nil {
		return connector.ProvisionFailed(connector.AsError(provider, err), account.ProvisionedResources{})
	}

	var res account.ProvisionedResources
	plan := connector.NewGrantPlan(provider)
	for _, group := range pstrings.Union(d.settings.Groups, data.Groups) {
		plan.Add("group:"+group, func(ctx context.Context) error {
			if err := d.op(ctx, nil, "group", "user", "grant", "--group", group, "--user", address); err != nil {
				return err
			}
			res.Groups = append(res.Groups, group)
			return nil
		})
	}
	for _, vault := range d.settings.Vaults {
		plan.Add("vault:"+vault, func(ctx context.Context) error {
			if err := d.op(ctx, nil, "vault", "user", "grant", "--vault", vault, "--user", address, "--permissions", vaultPermissions); err != nil {
				return err
			}
			res.Vaults = append(res.Vaults, vault)
			return nil
		})
	}
	outcome := plan.Execute(ctx)
	res.Applied = outcome.Applied
	res.Partial = outcome.Partial()

	return connector.ProvisionResult{
		Success:        outcome.Err == nil,
		Pending:        isInvited(user.State),
		ExternalUserID: user.ID,
		ExternalEmail:  address,
		Resources:      res,
		Notice:         notice,
		Err:            outcome.Err,
	}
}

func isInvited(state string) bool {
	s := strings.ToUpper(state)
	return s == "TRANSFER_PENDING" || s == "INVITED" || s == "PENDING"
}

// Deprovision suspends the user unless deletion was asked for.
func (d *Direct) Deprovision(ctx context.Context, req connector.DeprovisionRequest) connector.DeprovisionResult {
	if err := d.ready("deprovision"); err != nil {
		return connector.DeprovisionFailed(err)
	}
	target := ""
	if req.Account != nil {
		target = firstNonEmpty(req.Account.ExternalUserID, req.Account.ExternalEmail)
	}
	if target == "" && req.Employee != nil {
		target = email.Normalize(req.Employee.WorkEmail)
	}
	if target == "" {
		return connector.DeprovisionResult{Success: true, Note: "no 1Password user recorded; nothing to remove"}
	}

	action, note := "delete", "user deleted"
	if req.Options.SuspendInsteadOfDelete {
		action, note = "suspend", "user suspended"
	}
	err := d.op(ctx, nil, "user", action, target)
	if connector.IsCategory(err, connector.CategoryNotFound) {
		return connector.DeprovisionResult{Success: true, Note: "user already removed from 1Password"}
	}
	if err != nil {
		return connector.DeprovisionFailed(connector.AsError(provider, err))
	}
	return connector.DeprovisionResult{Success: true, Note: note}
}

func (d *Direct) TestConnection(ctx context.Context) connector.TestResult {
	if err := d.ready("test"); err != nil {
		return connector.TestFailed(err)
	}
	var who struct {
		UserType string `json:"user_type"`
		URL      string `json:"url"`
	}
	if err := d.op(ctx, &who, "whoami"); err != nil {
		return connector.TestFailed(connector.AsError(provider, err))
	}
	return connector.TestOK("signed in to " + firstNonEmpty(who.URL, "1Password") + " as a " + strings.ToLower(firstNonEmpty(who.UserType, "service account")))
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
