package yahoo

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/KNICEX/stock-alert/internal/service/quote"
	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"
)

const (
	DefaultBaseURL = "https://query1.finance.yahoo.com"
	chartPath      = "/v8/finance/chart/{ticker}"
	providerName   = "yahoo"
)

var _ quote.Source = (*Source)(nil)

// Source reads one day of one-minute candles from the Yahoo Finance chart API.
type Source struct {
	cli *resty.Client
}

type Option func(s *Source)

func WithBaseURL(url string) Option {
	return func(s *Source) {
		s.cli.SetBaseURL(url)
	}
}

func WithTimeout(d time.Duration) Option {
	return func(s *Source) {
		s.cli.SetTimeout(d)
	}
}

func NewSource(opts ...Option) *Source {
	cli := resty.New().
		SetBaseURL(DefaultBaseURL).
		SetTimeout(10*time.Second).
		SetHeader("User-Agent", "Mozilla/5.0 (compatible; stock-alert/1.0)").
		SetHeader("Accept", "application/json")
	s := &Source{cli: cli}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type chartResponse struct {
	Chart struct {
		Result []chartResult `json:"result"`
		Error  *chartError   `json:"error"`
	} `json:"chart"`
}

type chartError struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

type chartResult struct {
	Timestamp  []int64 `json:"timestamp"`
	Indicators struct {
		Quote []struct {
			Open   []*float64 `json:"open"`
			High   []*float64 `json:"high"`
			Low    []*float64 `json:"low"`
			Close  []*float64 `json:"close"`
			Volume []*float64 `json:"volume"`
		} `json:"quote"`
	} `json:"indicators"`
}

func (s *Source) Fetch(ctx context.Context, ticker string) ([]quote.PriceSample, error) {
	var body chartResponse
	resp, err := s.cli.R().
		SetContext(ctx).
		SetPathParam("ticker", strings.ToUpper(ticker)).
		SetQueryParams(map[string]string{
			"range":    "1d",
			"interval": "1m",
		}).
		SetResult(&body).
		Get(chartPath)
	if err != nil {
		return nil, quote.TransportError(providerName, err)
	}
	if resp.StatusCode() == http.StatusNotFound {
		// 未知代码, 按无数据处理
		return []quote.PriceSample{}, nil
	}
	if resp.IsError() {
		return nil, quote.TransportError(providerName, fmt.Errorf("unexpected status %s", resp.Status()))
	}
	if body.Chart.Error != nil {
		return nil, quote.TransportError(providerName, fmt.Errorf("%s: %s", body.Chart.Error.Code, body.Chart.Error.Description))
	}
	if len(body.Chart.Result) == 0 {
		return []quote.PriceSample{}, nil
	}
	return convertChart(body.Chart.Result[0]), nil
}

// convertChart zips the column arrays into samples, dropping minutes without a close.
func convertChart(res chartResult) []quote.PriceSample {
	if len(res.Indicators.Quote) == 0 {
		return []quote.PriceSample{}
	}
	q := res.Indicators.Quote[0]
	samples := make([]quote.PriceSample, 0, len(res.Timestamp))
	for i, ts := range res.Timestamp {
		closePrice := at(q.Close, i)
		if closePrice == nil {
			continue
		}
		samples = append(samples, quote.PriceSample{
			Timestamp: time.Unix(ts, 0).UTC(),
			Open:      orZero(at(q.Open, i)),
			High:      orZero(at(q.High, i)),
			Low:       orZero(at(q.Low, i)),
			Close:     decimal.NewFromFloat(*closePrice),
			Volume:    orZero(at(q.Volume, i)),
		})
	}
	return samples
}

func at(vs []*float64, i int) *float64 {
	if i >= len(vs) {
		return nil
	}
	return vs[i]
}

func orZero(v *float64) decimal.Decimal {
	if v == nil {
		return decimal.Zero
	}
	return decimal.NewFromFloat(*v)
}
