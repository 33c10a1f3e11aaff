package connector

import (
	"context"
	"log/slog"

	employee "github.com/CuracelDev/curacel-peoplev2-sub001/internal/employee/models"
	integration "github.com/CuracelDev/curacel-peoplev2-sub001/internal/integration/models"
	provisioning "github.com/CuracelDev/curacel-peoplev2-sub001/internal/provisioning/models"
	"github.com/CuracelDev/curacel-peoplev2-sub001/internal/provisioning/rules"
)

// ResolveGrants merges the rules that apply to emp and logs the ones skipped
// for undecodable data.
func ResolveGrants(ctx context.Context, logger *slog.Logger, emp *employee.Employee, provider integration.Provider, ruleSet []*provisioning.Rule) provisioning.ProvisionData {
	if emp == nil {
		return provisioning.ProvisionData{}
	}
	res := rules.Resolve(emp, provider, ruleSet)
	for _, invalid := range res.Invalid {
		logger.WarnContext(ctx, "provisioning rule skipped",
			"provider", provider,
			"rule_id", invalid.RuleID,
			"error", invalid.Err,
		)
	}
	return res.Data
}
