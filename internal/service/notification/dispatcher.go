package notification

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// Dispatcher fans one alert out to the email and SMS channels. Channels are
// attempted independently; one failing never stops the other.
type Dispatcher struct {
	email  EmailService
	sms    SMSService
	logger *slog.Logger
}

type Option func(d *Dispatcher)

func WithEmail(svc EmailService) Option {
	return func(d *Dispatcher) {
		d.email = svc
	}
}

func WithSMS(svc SMSService) Option {
	return func(d *Dispatcher) {
		d.sms = svc
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(d *Dispatcher) {
		d.logger = logger
	}
}

func NewDispatcher(opts ...Option) *Dispatcher {
	d := &Dispatcher{
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Check reports whether ch has a transport with credentials.
func (d *Dispatcher) Check(ch Channel) error {
	switch ch {
	case ChannelEmail:
		if d.email == nil {
			return fmt.Errorf("%w: %s", ErrChannelUnavailable, ch)
		}
		return d.email.Validate()
	case ChannelSMS:
		if d.sms == nil {
			return fmt.Errorf("%w: %s", ErrChannelUnavailable, ch)
		}
		return d.sms.Validate()
	default:
		return fmt.Errorf("unknown channel %q", ch)
	}
}

func (d *Dispatcher) Dispatch(ctx context.Context, msg Message, targets Targets) []Result {
	return []Result{
		d.SendEmail(ctx, targets.Email, msg),
		d.SendSMS(ctx, targets.Phone, msg),
	}
}

func (d *Dispatcher) SendEmail(ctx context.Context, to string, msg Message) Result {
	if to == "" {
		return Result{Channel: ChannelEmail, Status: StatusSkipped}
	}
	if d.email == nil {
		return Result{Channel: ChannelEmail, Status: StatusFatal, Err: ErrChannelUnavailable}
	}
	err := guard(func() error {
		return d.email.SendText(ctx, []string{to}, msg.Subject, msg.Body)
	})
	res := d.result(ChannelEmail, err)
	if err != nil {
		d.logger.Error("failed to send email alert", "to", to, "status", res.Status, "error", err)
	} else {
		d.logger.Info("email alert sent", "to", to, "subject", msg.Subject)
	}
	return res
}

func (d *Dispatcher) SendSMS(ctx context.Context, to string, msg Message) Result {
	if to == "" {
		return Result{Channel: ChannelSMS, Status: StatusSkipped}
	}
	if d.sms == nil {
		return Result{Channel: ChannelSMS, Status: StatusFatal, Err: ErrChannelUnavailable}
	}
	body := msg.ShortBody
	if body == "" {
		body = msg.Body
	}
	err := guard(func() error {
		return d.sms.Send(ctx, to, body)
	})
	res := d.result(ChannelSMS, err)
	if err != nil {
		d.logger.Error("failed to send sms alert", "to", to, "status", res.Status, "error", err)
	} else {
		d.logger.Info("sms alert sent", "to", to)
	}
	return res
}

func (d *Dispatcher) result(ch Channel, err error) Result {
	switch {
	case err == nil:
		return Result{Channel: ch, Status: StatusSuccess}
	case errors.Is(err, ErrMissingCredentials), errors.Is(err, ErrChannelUnavailable):
		return Result{Channel: ch, Status: StatusFatal, Err: err}
	default:
		return Result{Channel: ch, Status: StatusRetryable, Err: err}
	}
}

// guard turns a transport panic into an error so the next channel still runs.
func guard(send func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("transport panic: %v", r)
		}
	}()
	return send()
}
