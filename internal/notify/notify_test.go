package notify

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogNotifier_NeverLogsSecret(t *testing.T) {
	var buf bytes.Buffer
	n := NewLogNotifier(slog.New(slog.NewJSONHandler(&buf, nil)))

	err := n.Notify(context.Background(), Message{
		Kind:   KindCredentials,
		To:     "ada@example.com",
		Secret: "s3cret-pass",
	})
	require.NoError(t, err)
	assert.NotContains(t, buf.String(), "s3cret-pass")
	assert.Contains(t, buf.String(), `"has_secret":true`)
}
