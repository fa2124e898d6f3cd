package binance

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/KNICEX/stock-alert/internal/service/quote"
	"github.com/adshao/go-binance/v2"
	"github.com/adshao/go-binance/v2/common"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

const (
	providerName = "binance"
	// 现货K线接口单次最多返回1000根
	klineLimit = 1000
	window     = 24 * time.Hour

	codeInvalidSymbol = -1121
)

var _ quote.Source = (*Source)(nil)

// Source reads one-minute spot klines, e.g. ticker "BTCUSDT".
type Source struct {
	cli *binance.Client
	now func() time.Time
}

func NewSource(cli *binance.Client) *Source {
	return &Source{cli: cli, now: time.Now}
}

func (s *Source) Fetch(ctx context.Context, ticker string) ([]quote.PriceSample, error) {
	res, err := s.cli.NewKlinesService().
		Symbol(strings.ToUpper(ticker)).
		Interval("1m").
		Limit(klineLimit).
		Do(ctx)
	if err != nil {
		var apiErr *common.APIError
		if errors.As(err, &apiErr) && apiErr.Code == codeInvalidSymbol {
			return []quote.PriceSample{}, nil
		}
		return nil, quote.TransportError(providerName, err)
	}

	samples, err := convertKlines(res)
	if err != nil {
		return nil, quote.TransportError(providerName, err)
	}

	since := s.now().Add(-window)
	return lo.Filter(samples, func(item quote.PriceSample, _ int) bool {
		return !item.Timestamp.Before(since)
	}), nil
}

func convertKlines(klines []*binance.Kline) ([]quote.PriceSample, error) {
	samples := make([]quote.PriceSample, 0, len(klines))
	for _, k := range klines {
		values, err := parseDecimals(k.Open, k.High, k.Low, k.Close, k.Volume)
		if err != nil {
			return nil, fmt.Errorf("kline %d: %w", k.OpenTime, err)
		}
		samples = append(samples, quote.PriceSample{
			Timestamp: time.UnixMilli(k.OpenTime).UTC(),
			Open:      values[0],
			High:      values[1],
			Low:       values[2],
			Close:     values[3],
			Volume:    values[4],
		})
	}
	return samples, nil
}

func parseDecimals(ss ...string) ([]decimal.Decimal, error) {
	ds := make([]decimal.Decimal, len(ss))
	for i, s := range ss {
		d, err := decimal.NewFromString(s)
		if err != nil {
			return nil, err
		}
		ds[i] = d
	}
	return ds, nil
}
