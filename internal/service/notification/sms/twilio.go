package sms

import (
	"context"
	"fmt"

	"github.com/KNICEX/stock-alert/internal/service/notification"
	"github.com/twilio/twilio-go"
	openapi "github.com/twilio/twilio-go/rest/api/v2010"
)

var _ notification.SMSService = (*TwilioService)(nil)

type Config struct {
	AccountSid string `mapstructure:"account_sid"`
	AuthToken  string `mapstructure:"auth_token"`
	From       string `mapstructure:"from"`
}

type TwilioService struct {
	cfg Config
	cli *twilio.RestClient
}

func NewTwilioService(cfg Config) *TwilioService {
	return &TwilioService{
		cfg: cfg,
		cli: twilio.NewRestClientWithParams(twilio.ClientParams{
			Username: cfg.AccountSid,
			Password: cfg.AuthToken,
		}),
	}
}

func (s *TwilioService) Validate() error {
	if s.cfg.AccountSid == "" || s.cfg.AuthToken == "" || s.cfg.From == "" {
		return fmt.Errorf("%w: twilio account sid, auth token or sender phone not set", notification.ErrMissingCredentials)
	}
	return nil
}

func (s *TwilioService) Send(ctx context.Context, to, body string) error {
	if err := s.Validate(); err != nil {
		return err
	}
	if !notification.ValidPhone(to) {
		return fmt.Errorf("recipient phone %q is not in E.164 format", to)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	params := &openapi.CreateMessageParams{}
	params.SetTo(to)
	params.SetFrom(s.cfg.From)
	params.SetBody(body)
	if _, err := s.cli.Api.CreateMessage(params); err != nil {
		return fmt.Errorf("failed to send sms to %s: %w", to, err)
	}
	return nil
}
