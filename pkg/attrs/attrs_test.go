package attrs

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestExtractString(t *testing.T) {
	workflowID := uuid.MustParse("7b0c8f5e-1d7e-4c55-9a53-3f1f0f6f2a11")
	list := []any{"employee_id", "emp-1", "workflow_id", workflowID, "tasks", 3, "dangling"}

	tests := []struct {
		key  string
		want string
	}{
		{"employee_id", "emp-1"},
		{"workflow_id", workflowID.String()},
		{"tasks", ""},
		{"dangling", ""},
		{"missing", ""},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractString(list, tt.key))
		})
	}
}

func TestPick(t *testing.T) {
	list := []any{"workflow_id", "wf-1", "kind", "", "reason", "resigned"}

	assert.Equal(t, map[string]string{"workflow_id": "wf-1", "reason": "resigned"},
		Pick(list, "workflow_id", "kind", "reason"))
	assert.Nil(t, Pick(list, "kind", "missing"))
}
