package email

import (
	"context"
	"fmt"
	"time"

	"github.com/KNICEX/stock-alert/internal/service/notification"
	"github.com/wneessen/go-mail"
)

var _ notification.EmailService = (*SMTPService)(nil)

type Config struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Sender   string `mapstructure:"sender"`
	Password string `mapstructure:"password"`
	// StartTLS 为 false 时使用465端口的隐式TLS
	StartTLS bool          `mapstructure:"starttls"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// SMTPService sends plain-text mail through an authenticated SMTP relay.
type SMTPService struct {
	cfg Config
}

func NewSMTPService(cfg Config) *SMTPService {
	if cfg.Host == "" {
		cfg.Host = "smtp.gmail.com"
	}
	if cfg.Port == 0 {
		cfg.Port = 465
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 15 * time.Second
	}
	return &SMTPService{cfg: cfg}
}

func (s *SMTPService) Validate() error {
	if s.cfg.Sender == "" || s.cfg.Password == "" {
		return fmt.Errorf("%w: sender email or password not set", notification.ErrMissingCredentials)
	}
	return nil
}

func (s *SMTPService) SendText(ctx context.Context, to []string, subject, body string) error {
	if err := s.Validate(); err != nil {
		return err
	}
	msg, err := s.buildMessage(to, subject, body)
	if err != nil {
		return err
	}

	opts := []mail.Option{
		mail.WithPort(s.cfg.Port),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(s.cfg.Sender),
		mail.WithPassword(s.cfg.Password),
		mail.WithTimeout(s.cfg.Timeout),
	}
	if s.cfg.StartTLS {
		opts = append(opts, mail.WithTLSPolicy(mail.TLSMandatory))
	} else {
		opts = append(opts, mail.WithSSL())
	}
	cli, err := mail.NewClient(s.cfg.Host, opts...)
	if err != nil {
		return fmt.Errorf("failed to create smtp client: %w", err)
	}
	if err = cli.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("failed to send email to %v: %w", to, err)
	}
	return nil
}

func (s *SMTPService) buildMessage(to []string, subject, body string) (*mail.Msg, error) {
	if len(to) == 0 {
		return nil, fmt.Errorf("no email recipients")
	}
	msg := mail.NewMsg()
	if err := msg.From(s.cfg.Sender); err != nil {
		return nil, fmt.Errorf("invalid sender address: %w", err)
	}
	if err := msg.To(to...); err != nil {
		return nil, fmt.Errorf("invalid recipient address: %w", err)
	}
	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextPlain, body)
	return msg, nil
}
