package rules

import (
	"testing"

	"github.com/stretchr/testify/assert"

	employee "github.com/CuracelDev/curacel-peoplev2-sub001/internal/employee/models"
	"github.com/CuracelDev/curacel-peoplev2-sub001/internal/provisioning/models"
)

func testEmployee() *employee.Employee {
	return &employee.Employee{
		FullName:       "Ada Lovelace",
		WorkEmail:      "ada@example.com",
		Department:     "engineering",
		Location:       "Lagos",
		EmploymentType: "FULL_TIME",
		JobTitle:       "Staff Engineer",
		Metadata: map[string]any{
			"team":      "Platform",
			"remote":    true,
			"level":     float64(5),
			"clearance": nil,
		},
	}
}

func TestMatches(t *testing.T) {
	emp := testEmployee()

	tests := []struct {
		name      string
		condition models.Condition
		expected  bool
	}{
		{"empty condition matches everyone", models.Condition{}, true},
		{"nil condition matches everyone", nil, true},
		{"string comparison is case-insensitive", models.Condition{"department": "Engineering"}, true},
		{"all keys must match", models.Condition{"department": "engineering", "location": "Nairobi"}, false},
		{"multiple matching keys", models.Condition{"department": "ENGINEERING", "location": "lagos"}, true},
		{"falls back to metadata", models.Condition{"team": "platform"}, true},
		{"unknown key never matches", models.Condition{"costCenter": "R&D"}, false},
		{"boolean compares exactly", models.Condition{"remote": true}, true},
		{"boolean mismatch", models.Condition{"remote": false}, false},
		{"string does not equal boolean", models.Condition{"remote": "true"}, false},
		{"integer matches JSON number", models.Condition{"level": 5}, true},
		{"nil expected value is skipped", models.Condition{"department": nil}, true},
		{"metadata nil never equals a value", models.Condition{"clearance": "secret"}, false},
		{"first-class email attribute", models.Condition{"workEmail": "ADA@example.com"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Matches(emp, tt.condition))
		})
	}
}
