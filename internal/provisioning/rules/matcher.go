// Package rules decides which provisioning rules apply to an employee and
// merges their grants into one payload per provider.
package rules

import (
	"reflect"

	"golang.org/x/text/cases"

	employee "github.com/CuracelDev/curacel-peoplev2-sub001/internal/employee/models"
	"github.com/CuracelDev/curacel-peoplev2-sub001/internal/provisioning/models"
)

// Matches reports whether every defined key of condition matches emp.
// Strings compare under Unicode case folding; other values compare by
// strict equality after numeric normalisation. Nil values are ignored, so
// an empty condition matches everyone.
func Matches(emp *employee.Employee, condition models.Condition) bool {
	for key, expected := range condition {
		if expected == nil {
			continue
		}
		actual, ok := emp.Attribute(key)
		if !ok || !valuesEqual(actual, expected) {
			return false
		}
	}
	return true
}

func valuesEqual(actual, expected any) bool {
	as, aok := actual.(string)
	es, eok := expected.(string)
	if aok && eok {
		fold := cases.Fold()
		return fold.String(as) == fold.String(es)
	}
	return reflect.DeepEqual(normalize(actual), normalize(expected))
}

// normalize widens numbers to float64 so that values decoded from JSON
// compare equal to integers set in code.
func normalize(v any) any {
	switch n := v.(type) {
	case int:
		return float64(n)
	case int8:
		return float64(n)
	case int16:
		return float64(n)
	case int32:
		return float64(n)
	case int64:
		return float64(n)
	case uint:
		return float64(n)
	case uint8:
		return float64(n)
	case uint16:
		return float64(n)
	case uint32:
		return float64(n)
	case uint64:
		return float64(n)
	case float32:
		return float64(n)
	}
	return v
}
