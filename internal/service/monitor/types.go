package monitor

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/KNICEX/stock-alert/internal/service/notification"
	"github.com/KNICEX/stock-alert/internal/service/quote"
	"github.com/shopspring/decimal"
)

const DefaultInterval = 60 * time.Second

var (
	ErrInvalidConfig   = errors.New("invalid monitor config")
	ErrNoData          = errors.New("no market data for ticker")
	ErrSessionNotFound = errors.New("monitor session not found")
	ErrAlreadyStarted  = errors.New("monitor session already started")
)

// State 会话状态 Idle -> Running -> Stopped
type State int32

const (
	StateIdle State = iota
	StateRunning
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

type Config struct {
	Ticker           string
	ThresholdPercent decimal.Decimal
	EmailEnabled     bool
	SMSEnabled       bool
	RecipientEmail   string
	RecipientPhone   string
	// Interval between ticks, DefaultInterval when zero.
	Interval time.Duration
}

// Normalize trims input, upper-cases the ticker and fills defaults.
func (c Config) Normalize() Config {
	c.Ticker = strings.ToUpper(strings.TrimSpace(c.Ticker))
	c.RecipientEmail = strings.TrimSpace(c.RecipientEmail)
	c.RecipientPhone = strings.TrimSpace(c.RecipientPhone)
	if c.Interval <= 0 {
		c.Interval = DefaultInterval
	}
	return c
}

func (c Config) Validate() error {
	if c.Ticker == "" {
		return fmt.Errorf("%w: ticker is required", ErrInvalidConfig)
	}
	if !c.ThresholdPercent.IsPositive() {
		return fmt.Errorf("%w: threshold must be a positive number, got %s", ErrInvalidConfig, c.ThresholdPercent)
	}
	if c.EmailEnabled {
		if c.RecipientEmail == "" {
			return fmt.Errorf("%w: recipient email is required when email alerts are enabled", ErrInvalidConfig)
		}
		if _, err := mail.ParseAddress(c.RecipientEmail); err != nil {
			return fmt.Errorf("%w: recipient email %q: %v", ErrInvalidConfig, c.RecipientEmail, err)
		}
	}
	if c.SMSEnabled {
		if c.RecipientPhone == "" {
			return fmt.Errorf("%w: recipient phone is required when sms alerts are enabled", ErrInvalidConfig)
		}
		if !notification.ValidPhone(c.RecipientPhone) {
			return fmt.Errorf("%w: recipient phone %q is not in E.164 format", ErrInvalidConfig, c.RecipientPhone)
		}
	}
	return nil
}

// Channels lists the enabled notification channels.
func (c Config) Channels() []notification.Channel {
	var chs []notification.Channel
	if c.EmailEnabled {
		chs = append(chs, notification.ChannelEmail)
	}
	if c.SMSEnabled {
		chs = append(chs, notification.ChannelSMS)
	}
	return chs
}

// Targets applies the same rule to both channels: enabled and recipient present.
func (c Config) Targets() notification.Targets {
	var t notification.Targets
	if c.EmailEnabled && c.RecipientEmail != "" {
		t.Email = c.RecipientEmail
	}
	if c.SMSEnabled && c.RecipientPhone != "" {
		t.Phone = c.RecipientPhone
	}
	return t
}

// AlertEvent lives for one dispatch and is then dropped.
type AlertEvent struct {
	Ticker        string
	ChangePercent decimal.Decimal
	PreviousClose decimal.Decimal
	Sample        quote.PriceSample
}

func (e AlertEvent) Subject() string {
	return fmt.Sprintf("Stock Alert for %s", e.Ticker)
}

func (e AlertEvent) Summary() string {
	return fmt.Sprintf("Price change of %s: %s%%", e.Ticker, e.ChangePercent.StringFixed(4))
}

// Message renders the alert; narrative is appended to the email body when present.
func (e AlertEvent) Message(narrative string) notification.Message {
	var body strings.Builder
	body.WriteString(e.Summary())
	fmt.Fprintf(&body, "\nLatest price: %s (previous %s) at %s",
		e.Sample.Close, e.PreviousClose, e.Sample.Timestamp.UTC().Format(time.RFC3339))
	if narrative != "" {
		body.WriteString("\n\nAnalysis:\n")
		body.WriteString(narrative)
	}
	return notification.Message{
		Subject:   e.Subject(),
		Body:      body.String(),
		ShortBody: e.Summary(),
	}
}

// Dispatcher is the notification side of a session.
type Dispatcher interface {
	Dispatch(ctx context.Context, msg notification.Message, targets notification.Targets) []notification.Result
	Check(ch notification.Channel) error
}

// Snapshot is a read-only view of a session.
type Snapshot struct {
	Ticker        string           `json:"ticker"`
	State         State            `json:"state"`
	PreviousClose *decimal.Decimal `json:"previous_close,omitempty"`
	LastTickAt    time.Time        `json:"last_tick_at,omitempty"`
	Ticks         int              `json:"ticks"`
	Alerts        int              `json:"alerts"`
}
