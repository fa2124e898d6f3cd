package notification

import (
	"context"
	"errors"
	"regexp"
)

var (
	// ErrMissingCredentials 发送方凭证未配置, 重试无意义
	ErrMissingCredentials = errors.New("notification credentials not configured")
	// ErrChannelUnavailable no transport was wired for the channel.
	ErrChannelUnavailable = errors.New("notification channel unavailable")
)

type EmailService interface {
	SendText(ctx context.Context, to []string, subject, body string) error
	Validate() error
}

type SMSService interface {
	// Send delivers body to a phone number in E.164 format.
	Send(ctx context.Context, to, body string) error
	Validate() error
}

type Channel string

const (
	ChannelEmail Channel = "email"
	ChannelSMS   Channel = "sms"
)

type Status int

const (
	StatusSkipped Status = iota
	StatusSuccess
	StatusRetryable
	StatusFatal
)

func (s Status) String() string {
	switch s {
	case StatusSkipped:
		return "skipped"
	case StatusSuccess:
		return "success"
	case StatusRetryable:
		return "retryable"
	case StatusFatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// Result is the outcome of one channel send.
type Result struct {
	Channel Channel
	Status  Status
	Err     error
}

func (r Result) Failed() bool {
	return r.Status == StatusRetryable || r.Status == StatusFatal
}

// Message 告警内容, ShortBody 用于短信
type Message struct {
	Subject   string
	Body      string
	ShortBody string
}

// Targets holds the recipient per channel. An empty recipient disables the channel.
type Targets struct {
	Email string
	Phone string
}

var e164 = regexp.MustCompile(`^\+[1-9]\d{1,14}$`)

// ValidPhone reports whether phone is an E.164 number such as +14155552671.
func ValidPhone(phone string) bool {
	return e164.MatchString(phone)
}
