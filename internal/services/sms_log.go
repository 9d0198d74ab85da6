package services

import (
	"context"
	"log/slog"
)

// LogProvider writes codes to the log instead of sending them. It is the
// development fallback and always reports success.
type LogProvider struct{}

func NewLogProvider() *LogProvider { return &LogProvider{} }

func (*LogProvider) Name() string { return "log" }

func (*LogProvider) Configured() bool { return true }

func (*LogProvider) Deliver(ctx context.Context, msg SMSMessage) error {
	slog.InfoContext(ctx, "(DEV SMS)", "phone", msg.Phone, "text", msg.Text)
	return nil
}
