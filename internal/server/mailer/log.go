package mailer

import (
	"context"

	"github.com/dmitrijs2005/gophauth/internal/logging"
)

// LogSender writes messages to the log instead of delivering them. It is used
// when no broker is configured.
type LogSender struct {
	logger logging.Logger
}

func NewLogSender(logger logging.Logger) *LogSender {
	return &LogSender{logger: logger.With("module", "mailer")}
}

func (s *LogSender) Send(ctx context.Context, msg Message) error {
	s.logger.Info(ctx, "email not delivered, no broker configured",
		"to", msg.To, "subject", msg.Subject, "body", msg.Body)
	return nil
}
