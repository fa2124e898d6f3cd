package quote

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// ErrTransport marks a network or provider failure. It is always retryable.
var ErrTransport = errors.New("quote transport failure")

// PriceSample 一根分钟K线
type PriceSample struct {
	Timestamp time.Time
	Open      decimal.Decimal
	High      decimal.Decimal
	Low       decimal.Decimal
	Close     decimal.Decimal
	Volume    decimal.Decimal
}

// Source returns the recent intraday series for a ticker, oldest first.
// An empty slice with a nil error means the provider has nothing yet.
type Source interface {
	Fetch(ctx context.Context, ticker string) ([]PriceSample, error)
}

// Latest returns the newest sample of a series.
func Latest(samples []PriceSample) (PriceSample, bool) {
	if len(samples) == 0 {
		return PriceSample{}, false
	}
	return samples[len(samples)-1], true
}

// TransportError wraps err so that errors.Is(err, ErrTransport) holds.
func TransportError(provider string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrTransport, provider, err)
}
