package ioc

import (
	"log/slog"

	"github.com/KNICEX/stock-alert/internal/service/notification"
	"github.com/KNICEX/stock-alert/internal/service/notification/email"
	"github.com/KNICEX/stock-alert/internal/service/notification/sms"
)

type NotifyConfig struct {
	Email email.Config `mapstructure:"email"`
	SMS   sms.Config   `mapstructure:"sms"`
}

// InitDispatcher wires both transports. Missing credentials are reported
// when a session enabling that channel starts, not here.
func InitDispatcher(cfg NotifyConfig, logger *slog.Logger) *notification.Dispatcher {
	return notification.NewDispatcher(
		notification.WithEmail(email.NewSMTPService(cfg.Email)),
		notification.WithSMS(sms.NewTwilioService(cfg.SMS)),
		notification.WithLogger(logger),
	)
}
