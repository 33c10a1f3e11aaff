package domain

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "github.com/CuracelDev/curacel-peoplev2-sub001/pkg/domain-errors"
)

func TestParseID_Invariants(t *testing.T) {
	t.Run("rejects empty string", func(t *testing.T) {
		_, err := ParseEmployeeID("")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("rejects invalid format", func(t *testing.T) {
		_, err := ParseWorkflowID("not-a-uuid")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("rejects nil UUID", func(t *testing.T) {
		_, err := ParseTaskID(uuid.Nil.String())
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("accepts valid UUID", func(t *testing.T) {
		u := uuid.New()
		got, err := ParseIntegrationID(u.String())
		require.NoError(t, err)
		assert.Equal(t, IntegrationID(u), got)
	})
}

func TestIDs_JSONRoundTrip(t *testing.T) {
	type payload struct {
		Employee EmployeeID `json:"employee"`
		Account  AccountID  `json:"account"`
		Missing  WorkflowID `json:"missing"`
	}
	in := payload{Employee: EmployeeID(uuid.New()), Account: AccountID(uuid.New())}

	raw, err := json.Marshal(in)
	require.NoError(t, err)

	var out payload
	require.NoError(t, json.Unmarshal(raw, &out))
	assert.Equal(t, in.Employee, out.Employee)
	assert.Equal(t, in.Account, out.Account)
	assert.True(t, out.Missing.IsNil())
}
