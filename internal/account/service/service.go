// Package service provisions and revokes employee accounts across
// integrations and keeps the local account records in step.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/CuracelDev/curacel-peoplev2-sub001/internal/account/metrics"
	"github.com/CuracelDev/curacel-peoplev2-sub001/internal/account/models"
	"github.com/CuracelDev/curacel-peoplev2-sub001/internal/connector"
	employee "github.com/CuracelDev/curacel-peoplev2-sub001/internal/employee/models"
	integration "github.com/CuracelDev/curacel-peoplev2-sub001/internal/integration/models"
	"github.com/CuracelDev/curacel-peoplev2-sub001/internal/notify"
	provisioning "github.com/CuracelDev/curacel-peoplev2-sub001/internal/provisioning/models"
	"github.com/CuracelDev/curacel-peoplev2-sub001/internal/provisioning/rules"
	"github.com/CuracelDev/curacel-peoplev2-sub001/pkg/attrs"
	id "github.com/CuracelDev/curacel-peoplev2-sub001/pkg/domain"
	dErrors "github.com/CuracelDev/curacel-peoplev2-sub001/pkg/domain-errors"
	audit "github.com/CuracelDev/curacel-peoplev2-sub001/pkg/platform/audit"
	"github.com/CuracelDev/curacel-peoplev2-sub001/pkg/platform/sentinel"
	"github.com/CuracelDev/curacel-peoplev2-sub001/pkg/platform/tx"
	"github.com/CuracelDev/curacel-peoplev2-sub001/pkg/requestcontext"
)

type EmployeeStore interface {
	FindByID(ctx context.Context, employeeID id.EmployeeID) (*employee.Employee, error)
	Save(ctx context.Context, e *employee.Employee) error
}

type IntegrationStore interface {
	FindByID(ctx context.Context, integrationID id.IntegrationID) (*integration.Integration, error)
	FindUsableByProvider(ctx context.Context, provider integration.Provider) (*integration.Integration, error)
	ListUsable(ctx context.Context) ([]*integration.Integration, error)
}

type RuleStore interface {
	ListActive(ctx context.Context, integrationID id.IntegrationID) ([]*provisioning.Rule, error)
}

type AccountStore interface {
	Find(ctx context.Context, employeeID id.EmployeeID, integrationID id.IntegrationID) (*models.AppAccount, error)
	Upsert(ctx context.Context, a *models.AppAccount) error
	ListByEmployee(ctx context.Context, employeeID id.EmployeeID) ([]*models.AppAccount, error)
}

// ConnectorResolver returns nil, nil when the integration is not configured.
type ConnectorResolver interface {
	Resolve(ctx context.Context, in *integration.Integration) (connector.Connector, error)
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

type Notifier interface {
	Notify(ctx context.Context, msg notify.Message) error
}

// Service is the account lifecycle orchestrator.
type Service struct {
	employees    EmployeeStore
	integrations IntegrationStore
	rules        RuleStore
	accounts     AccountStore
	resolver     ConnectorResolver

	tx             tx.Runner
	logger         *slog.Logger
	auditPublisher AuditPublisher
	notifier       Notifier
	metrics        *metrics.Metrics
	timeout        time.Duration
	now            func() time.Time
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(s *Service) { s.auditPublisher = publisher }
}

func WithNotifier(n Notifier) Option {
	return func(s *Service) { s.notifier = n }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithTxRunner groups the account write and its audit event.
func WithTxRunner(r tx.Runner) Option {
	return func(s *Service) {
		if r != nil {
			s.tx = r
		}
	}
}

// WithTimeout bounds every connector call.
func WithTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.timeout = d
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

func New(employees EmployeeStore, integrations IntegrationStore, ruleStore RuleStore, accounts AccountStore, resolver ConnectorResolver, opts ...Option) (*Service, error) {
	switch {
	case employees == nil:
		return nil, errors.New("employee store is required")
	case integrations == nil:
		return nil, errors.New("integration store is required")
	case ruleStore == nil:
		return nil, errors.New("rule store is required")
	case accounts == nil:
		return nil, errors.New("account store is required")
	case resolver == nil:
		return nil, errors.New("connector resolver is required")
	}
	s := &Service{
		employees:    employees,
		integrations: integrations,
		rules:        ruleStore,
		accounts:     accounts,
		resolver:     resolver,
		tx:           tx.Nop{},
		logger:       slog.Default(),
		timeout:      connector.DefaultTimeout,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// ProvisionResult is the outcome of provisioning one integration.
type ProvisionResult struct {
	IntegrationID id.IntegrationID     `json:"integrationId"`
	Provider      integration.Provider `json:"provider"`
	Success       bool                 `json:"success"`
	Pending       bool                 `json:"pending,omitempty"`
	Message       string               `json:"message,omitempty"`
	Category      connector.Category   `json:"category,omitempty"`
	Retryable     bool                 `json:"retryable,omitempty"`
	Account       *models.AppAccount   `json:"account,omitempty"`
}

// DeprovisionResult is the outcome of revoking one integration.
type DeprovisionResult struct {
	IntegrationID id.IntegrationID     `json:"integrationId"`
	Provider      integration.Provider `json:"provider"`
	Success       bool                 `json:"success"`
	Status        models.Status        `json:"status,omitempty"`
	Message       string               `json:"message,omitempty"`
	Category      connector.Category   `json:"category,omitempty"`
	Retryable     bool                 `json:"retryable,omitempty"`
}

func failedProvision(in *integration.Integration, err *connector.Error) *ProvisionResult {
	return &ProvisionResult{
		IntegrationID: in.ID,
		Provider:      in.Provider,
		Message:       err.Error(),
		Category:      err.Category,
		Retryable:     err.Retryable,
	}
}

// ResolveIntegration accepts an integration id or a provider name.
func (s *Service) ResolveIntegration(ctx context.Context, ref string) (*integration.Integration, error) {
	if integrationID, err := id.ParseIntegrationID(ref); err == nil {
		return s.findIntegration(ctx, integrationID)
	}
	provider, err := integration.ParseProvider(ref)
	if err != nil {
		return nil, dErrors.Newf(dErrors.CodeBadRequest, "%q is neither an integration id nor a provider", ref)
	}
	in, err := s.integrations.FindUsableByProvider(ctx, provider)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.Newf(dErrors.CodeNotFound, "no enabled %s integration", provider)
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load integration")
	}
	return in, nil
}

func (s *Service) findIntegration(ctx context.Context, integrationID id.IntegrationID) (*integration.Integration, error) {
	in, err := s.integrations.FindByID(ctx, integrationID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.New(dErrors.CodeNotFound, "integration not found")
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load integration")
	}
	return in, nil
}

func (s *Service) findEmployee(ctx context.Context, employeeID id.EmployeeID) (*employee.Employee, error) {
	emp, err := s.employees.FindByID(ctx, employeeID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.New(dErrors.CodeNotFound, "employee not found")
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load employee")
	}
	return emp, nil
}

func (s *Service) findAccount(ctx context.Context, employeeID id.EmployeeID, integrationID id.IntegrationID) (*models.AppAccount, error) {
	acct, err := s.accounts.Find(ctx, employeeID, integrationID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load account")
	}
	return acct, nil
}

// Provision creates or refreshes the employee's account in one integration.
// Connector failures come back in the result; only lookups and storage fail
// the call.
func (s *Service) Provision(ctx context.Context, employeeID id.EmployeeID, integrationRef string) (*ProvisionResult, error) {
	emp, err := s.findEmployee(ctx, employeeID)
	if err != nil {
		return nil, err
	}
	in, err := s.ResolveIntegration(ctx, integrationRef)
	if err != nil {
		return nil, err
	}
	return s.provision(ctx, emp, in)
}

func (s *Service) provision(ctx context.Context, emp *employee.Employee, in *integration.Integration) (*ProvisionResult, error) {
	provider := string(in.Provider)
	if !in.IsUsable() {
		s.incProvision(provider, metrics.OutcomeSkipped)
		return failedProvision(in, connector.NewError(in.Provider, connector.CategoryConfiguration, "integration is not enabled")), nil
	}
	conn, err := s.resolver.Resolve(ctx, in)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to resolve connector")
	}
	if conn == nil {
		s.incProvision(provider, metrics.OutcomeSkipped)
		return failedProvision(in, connector.NewError(in.Provider, connector.CategoryConfiguration, "integration is not configured")), nil
	}
	ruleSet, err := s.rules.ListActive(ctx, in.ID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load provisioning rules")
	}

	existing, err := s.findAccount(ctx, emp.ID, in.ID)
	if err != nil {
		return nil, err
	}
	now := s.now()
	acct := existing
	if acct == nil {
		acct = models.NewProvisioningAccount(id.AccountID(uuid.New()), emp.ID, in.ID, now)
	} else {
		acct.Status = models.StatusProvisioning
		acct.UpdatedAt = now
	}
	if err := s.accounts.Upsert(ctx, acct); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to save account")
	}

	res := s.callProvision(ctx, conn, connector.ProvisionRequest{
		Employee:    emp,
		Integration: in,
		Rules:       ruleSet,
		Existing:    existing,
	})

	outcome := res.Outcome()
	if outcome.Success && in.Provider.Kind() == integration.KindChat && outcome.ExternalUserID == "" {
		outcome.Pending = true
	}
	acct.ApplyProvisionOutcome(outcome, s.now())

	event := audit.EventAccountProvisioned
	if !outcome.Success {
		event = audit.EventAccountProvisionFailed
	}
	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.accounts.Upsert(ctx, acct); err != nil {
			return err
		}
		return s.logAudit(ctx, string(event),
			"employee_id", emp.ID.String(),
			"integration_id", in.ID.String(),
			"account_id", acct.ID.String(),
			"provider", provider,
			"status", string(acct.Status),
			"reason", acct.StatusMessage,
		)
	})
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to save account")
	}

	result := &ProvisionResult{
		IntegrationID: in.ID,
		Provider:      in.Provider,
		Success:       outcome.Success,
		Pending:       acct.Status == models.StatusPending,
		Message:       acct.StatusMessage,
		Account:       acct,
	}
	if res.Err != nil {
		result.Category = res.Err.Category
		result.Retryable = res.Err.Retryable
	}
	switch {
	case !outcome.Success:
		s.incProvision(provider, metrics.OutcomeFailure)
	case result.Pending:
		s.incProvision(provider, metrics.OutcomePending)
	default:
		s.incProvision(provider, metrics.OutcomeSuccess)
	}

	if outcome.Success && in.Provider.Kind() == integration.KindDirectory {
		s.backfillWorkEmail(ctx, emp, res.ExternalEmail)
	}
	if res.Notice != nil {
		s.notify(ctx, emp, in, res.Notice)
	}
	return result, nil
}

// callProvision runs the connector under the per-call timeout.
func (s *Service) callProvision(ctx context.Context, conn connector.Connector, req connector.ProvisionRequest) connector.ProvisionResult {
	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	start := time.Now()
	res := conn.Provision(callCtx, req)
	s.observe(string(req.Integration.Provider), "provision", start)
	if !res.Success && errors.Is(callCtx.Err(), context.DeadlineExceeded) {
		res.Err = connector.WrapError(req.Integration.Provider, connector.CategoryTransient, callCtx.Err(),
			fmt.Sprintf("connector did not answer within %s", s.timeout))
	}
	return res
}

func (s *Service) callDeprovision(ctx context.Context, conn connector.Connector, req connector.DeprovisionRequest) connector.DeprovisionResult {
	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	start := time.Now()
	res := conn.Deprovision(callCtx, req)
	s.observe(string(req.Integration.Provider), "deprovision", start)
	if !res.Success && errors.Is(callCtx.Err(), context.DeadlineExceeded) {
		res.Err = connector.WrapError(req.Integration.Provider, connector.CategoryTransient, callCtx.Err(),
			fmt.Sprintf("connector did not answer within %s", s.timeout))
	}
	return res
}

func (s *Service) backfillWorkEmail(ctx context.Context, emp *employee.Employee, address string) {
	if address == "" || emp.WorkEmail == address {
		return
	}
	emp.WorkEmail = address
	emp.UpdatedAt = s.now()
	if err := s.employees.Save(ctx, emp); err != nil {
		s.logger.ErrorContext(ctx, "failed to back-fill work email",
			"employee_id", emp.ID.String(), "error", err)
	}
}

func (s *Service) notify(ctx context.Context, emp *employee.Employee, in *integration.Integration, notice *connector.Notice) {
	if s.notifier == nil {
		return
	}
	kind := notify.KindInvitation
	if notice.Kind == connector.NoticeInitialPassword {
		kind = notify.KindCredentials
	}
	to := emp.PersonalEmail
	if to == "" {
		to = notice.Email
	}
	err := s.notifier.Notify(ctx, notify.Message{
		Kind:        kind,
		To:          to,
		EmployeeID:  emp.ID.String(),
		Integration: in.ID.String(),
		Provider:    string(in.Provider),
		Detail:      notice.Detail,
		Secret:      notice.Secret,
	})
	if err != nil {
		s.logger.WarnContext(ctx, "employee notification failed",
			"employee_id", emp.ID.String(), "integration_id", in.ID.String(), "error", err)
	}
}

// Deprovision revokes the employee's access in one integration. It is
// idempotent: revoked or missing accounts succeed without external calls.
func (s *Service) Deprovision(ctx context.Context, employeeID id.EmployeeID, integrationID id.IntegrationID, opts models.DeprovisionOptions) (*DeprovisionResult, error) {
	emp, err := s.findEmployee(ctx, employeeID)
	if err != nil {
		return nil, err
	}
	in, err := s.findIntegration(ctx, integrationID)
	if err != nil {
		return nil, err
	}
	return s.deprovision(ctx, emp, in, opts)
}

func (s *Service) deprovision(ctx context.Context, emp *employee.Employee, in *integration.Integration, opts models.DeprovisionOptions) (*DeprovisionResult, error) {
	provider := string(in.Provider)
	result := &DeprovisionResult{IntegrationID: in.ID, Provider: in.Provider}

	acct, err := s.findAccount(ctx, emp.ID, in.ID)
	if err != nil {
		return nil, err
	}
	if acct == nil {
		result.Success = true
		result.Message = "no account to deprovision"
		return result, nil
	}
	if acct.Status.IsRevoked() {
		result.Success = true
		result.Status = acct.Status
		result.Message = "account already " + string(acct.Status)
		return result, nil
	}

	conn, err := s.resolver.Resolve(ctx, in)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to resolve connector")
	}

	var (
		event   audit.AuditEvent
		outcome string
	)
	if conn == nil {
		acct.MarkDisabled("no active connection; access disabled locally", s.now())
		event, outcome = audit.EventAccountDisabled, metrics.OutcomeDisabled
		result.Success = true
	} else {
		res := s.callDeprovision(ctx, conn, connector.DeprovisionRequest{
			Employee:    emp,
			Integration: in,
			Account:     acct,
			Options:     opts,
		})
		if res.Success && res.Err == nil {
			acct.MarkDeprovisioned(res.Message(), s.now())
			event, outcome = audit.EventAccountDeprovisioned, metrics.OutcomeSuccess
			result.Success = true
		} else {
			acct.MarkDeprovisionFailed(res.Message(), s.now())
			event, outcome = audit.EventAccountDeprovisionFailed, metrics.OutcomeFailure
			if res.Err != nil {
				result.Category = res.Err.Category
				result.Retryable = res.Err.Retryable
			}
		}
	}
	result.Status = acct.Status
	result.Message = acct.StatusMessage

	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.accounts.Upsert(ctx, acct); err != nil {
			return err
		}
		return s.logAudit(ctx, string(event),
			"employee_id", emp.ID.String(),
			"integration_id", in.ID.String(),
			"account_id", acct.ID.String(),
			"provider", provider,
			"status", string(acct.Status),
			"reason", acct.StatusMessage,
		)
	})
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to save account")
	}
	s.incDeprovision(provider, outcome)
	return result, nil
}

// DeprovisionAll revokes every account that may still hold access, one
// integration at a time. A failure on one integration does not stop the rest.
func (s *Service) DeprovisionAll(ctx context.Context, employeeID id.EmployeeID, opts models.DeprovisionOptions) ([]*DeprovisionResult, error) {
	emp, err := s.findEmployee(ctx, employeeID)
	if err != nil {
		return nil, err
	}
	accounts, err := s.accounts.ListByEmployee(ctx, employeeID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list accounts")
	}
	results := make([]*DeprovisionResult, 0, len(accounts))
	for _, acct := range accounts {
		if !acct.Status.HoldsAccess() {
			continue
		}
		in, err := s.findIntegration(ctx, acct.IntegrationID)
		if err != nil {
			results = append(results, &DeprovisionResult{IntegrationID: acct.IntegrationID, Message: err.Error()})
			continue
		}
		res, err := s.deprovision(ctx, emp, in, opts)
		if err != nil {
			results = append(results, &DeprovisionResult{IntegrationID: in.ID, Provider: in.Provider, Message: err.Error()})
			continue
		}
		results = append(results, res)
	}
	return results, nil
}

// ProvisionAll provisions every enabled integration with at least one active
// rule matching the employee.
func (s *Service) ProvisionAll(ctx context.Context, employeeID id.EmployeeID) ([]*ProvisionResult, error) {
	emp, err := s.findEmployee(ctx, employeeID)
	if err != nil {
		return nil, err
	}
	integrations, err := s.integrations.ListUsable(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list integrations")
	}
	var results []*ProvisionResult
	for _, in := range integrations {
		ruleSet, err := s.rules.ListActive(ctx, in.ID)
		if err != nil {
			return results, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load provisioning rules")
		}
		if !anyMatch(emp, ruleSet) {
			continue
		}
		res, err := s.provision(ctx, emp, in)
		if err != nil {
			results = append(results, &ProvisionResult{IntegrationID: in.ID, Provider: in.Provider, Message: err.Error()})
			continue
		}
		results = append(results, res)
	}
	return results, nil
}

func anyMatch(emp *employee.Employee, ruleSet []*provisioning.Rule) bool {
	for _, r := range ruleSet {
		if r != nil && r.Active && rules.Matches(emp, r.Condition) {
			return true
		}
	}
	return false
}

// TestConnection checks an integration's credentials and records the
// connection health.
func (s *Service) TestConnection(ctx context.Context, integrationID id.IntegrationID) (connector.TestResult, error) {
	in, err := s.findIntegration(ctx, integrationID)
	if err != nil {
		return connector.TestResult{}, err
	}
	conn, err := s.resolver.Resolve(ctx, in)
	if err != nil {
		return connector.TestResult{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to resolve connector")
	}

	var res connector.TestResult
	if conn == nil {
		res = connector.TestFailed(connector.NewError(in.Provider, connector.CategoryConfiguration, "integration is not configured"))
	} else {
		callCtx, cancel := context.WithTimeout(ctx, s.timeout)
		start := time.Now()
		res = conn.TestConnection(callCtx)
		s.observe(string(in.Provider), "test", start)
		cancel()
	}
	if s.metrics != nil {
		s.metrics.SetConnectionHealth(in.ID.String(), res.Success)
	}
	decision := audit.DecisionSuccess
	if !res.Success {
		decision = audit.DecisionFailure
	}
	err = s.logAudit(ctx, string(audit.EventConnectionTested),
		"integration_id", in.ID.String(),
		"provider", string(in.Provider),
		"decision", decision,
		"reason", res.Message,
	)
	if err != nil {
		s.logger.WarnContext(ctx, "failed to record connection test", "integration_id", in.ID.String(), "error", err)
	}
	return res, nil
}

func (s *Service) observe(provider, op string, start time.Time) {
	if s.metrics != nil {
		s.metrics.ObserveConnectorCall(provider, op, start)
	}
}

func (s *Service) incProvision(provider, outcome string) {
	if s.metrics != nil {
		s.metrics.IncProvision(provider, outcome)
	}
}

func (s *Service) incDeprovision(provider, outcome string) {
	if s.metrics != nil {
		s.metrics.IncDeprovision(provider, outcome)
	}
}

// logAudit logs the event and publishes it. Inside a transaction a publish
// error must abort the surrounding write.
func (s *Service) logAudit(ctx context.Context, event string, attributes ...any) error {
	if requestID := requestcontext.RequestID(ctx); requestID != "" {
		attributes = append(attributes, "request_id", requestID)
	}
	args := append(attributes, "event", event, "log_type", "audit")
	if s.logger != nil {
		s.logger.InfoContext(ctx, event, args...)
	}
	if s.auditPublisher == nil {
		return nil
	}
	decision := attrs.ExtractString(attributes, "decision")
	if decision == "" {
		decision = audit.DecisionSuccess
		switch audit.AuditEvent(event) {
		case audit.EventAccountProvisionFailed, audit.EventAccountDeprovisionFailed:
			decision = audit.DecisionFailure
		}
	}
	resourceType, resourceID := audit.ResourceAccount, attrs.ExtractString(attributes, "account_id")
	if resourceID == "" {
		resourceType, resourceID = audit.ResourceIntegration, attrs.ExtractString(attributes, "integration_id")
	}
	err := s.auditPublisher.Emit(ctx, audit.Event{
		Action:       event,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		EmployeeID:   attrs.ExtractString(attributes, "employee_id"),
		Decision:     decision,
		Reason:       attrs.ExtractString(attributes, "reason"),
		Metadata: map[string]string{
			"integration_id": attrs.ExtractString(attributes, "integration_id"),
			"provider":       attrs.ExtractString(attributes, "provider"),
			"status":         attrs.ExtractString(attributes, "status"),
		},
	})
	if err != nil {
		return fmt.Errorf("failed to publish %s: %w", event, err)
	}
	return nil
}
