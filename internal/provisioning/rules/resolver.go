package rules

import (
	"bytes"
	"cmp"
	"encoding/json"
	"fmt"
	"slices"

	employee "github.com/CuracelDev/curacel-peoplev2-sub001/internal/employee/models"
	integration "github.com/CuracelDev/curacel-peoplev2-sub001/internal/integration/models"
	"github.com/CuracelDev/curacel-peoplev2-sub001/internal/provisioning/models"
	id "github.com/CuracelDev/curacel-peoplev2-sub001/pkg/domain"
)

// InvalidRule is a matching rule whose payload could not be decoded.
type InvalidRule struct {
	RuleID id.RuleID
	Err    error
}

// Resolution is the merged grant for one employee and provider.
type Resolution struct {
	Data    models.ProvisionData
	Matched []id.RuleID
	Invalid []InvalidRule
}

// Resolve merges the data of every active rule matching emp, highest priority
// first. Ties keep their input order. Rules with undecodable payloads are
// reported in Invalid and otherwise ignored.
func Resolve(emp *employee.Employee, provider integration.Provider, ruleSet []*models.Rule) Resolution {
	ordered := slices.Clone(ruleSet)
	slices.SortStableFunc(ordered, func(a, b *models.Rule) int {
		return cmp.Compare(b.Priority, a.Priority)
	})

	merge := policyFor(provider.Kind())
	var res Resolution
	for _, rule := range ordered {
		if rule == nil || !rule.Active || !Matches(emp, rule.Condition) {
			continue
		}
		data, err := decode(rule.Data)
		if err != nil {
			res.Invalid = append(res.Invalid, InvalidRule{RuleID: rule.ID, Err: err})
			continue
		}
		merge(&res.Data, data)
		res.Matched = append(res.Matched, rule.ID)
	}
	return res
}

func decode(raw json.RawMessage) (models.ProvisionData, error) {
	var data models.ProvisionData
	if len(bytes.TrimSpace(raw)) == 0 || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return data, nil
	}
	if err := json.Unmarshal(raw, &data); err != nil {
		return data, fmt.Errorf("decode provision data: %w", err)
	}
	return data, nil
}
