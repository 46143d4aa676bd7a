package notifier

import (
	"context"
	"log/slog"
)

// Notifier delivers one rendered lifecycle notice.
type Notifier interface {
	Notify(ctx context.Context, subject, message string) error
}

// ConsoleNotifier writes notices to the structured log.
type ConsoleNotifier struct {
	log *slog.Logger
}

func NewConsole(log *slog.Logger) *ConsoleNotifier {
	return &ConsoleNotifier{log: log}
}

func (c *ConsoleNotifier) Notify(ctx context.Context, subject, message string) error {
	c.log.InfoContext(ctx, message, "subject", subject)
	return nil
}
