// Package notify delivers one-off messages to employees, such as an initial
// password or an invitation to accept.
package notify

import (
	"context"
	"log/slog"
)

type Kind string

const (
	KindCredentials Kind = "credentials"
	KindInvitation  Kind = "invitation"
)

// Message is addressed to one employee about one integration. Secret is
// never logged or persisted.
type Message struct {
	Kind        Kind
	To          string
	EmployeeID  string
	Integration string
	Provider    string
	Detail      string
	Secret      string
}

// LogNotifier records messages in the log. The secret is replaced by a
// presence flag.
type LogNotifier struct {
	logger *slog.Logger
}

func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Notify(ctx context.Context, msg Message) error {
	n.logger.InfoContext(ctx, "employee notification",
		"kind", string(msg.Kind),
		"to", msg.To,
		"employee_id", msg.EmployeeID,
		"integration_id", msg.Integration,
		"provider", msg.Provider,
		"detail", msg.Detail,
		"has_secret", msg.Secret != "",
	)
	return nil
}
