package binance

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/KNICEX/stock-alert/internal/service/quote"
	"github.com/adshao/go-binance/v2"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func klineRow(openTime time.Time, closePrice string) string {
	ms := openTime.UnixMilli()
	return fmt.Sprintf(`[%d,"100.0","102.0","99.0","%s","12.5",%d,"1250.0",42,"6.0","600.0","0"]`,
		ms, closePrice, ms+59999)
}

func newTestSource(t *testing.T, now time.Time, handler http.HandlerFunc) *Source {
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	cli := binance.NewClient("", "")
	cli.BaseURL = srv.URL
	src := NewSource(cli)
	src.now = func() time.Time { return now }
	return src
}

func TestSource_Fetch(t *testing.T) {
	now := time.Date(2024, 5, 2, 12, 0, 0, 0, time.UTC)
	var gotSymbol, gotInterval string
	src := newTestSource(t, now, func(w http.ResponseWriter, r *http.Request) {
		gotSymbol = r.URL.Query().Get("symbol")
		gotInterval = r.URL.Query().Get("interval")
		w.Header().Set("Content-Type", "application/json")
		_, _ = fmt.Fprintf(w, "[%s,%s,%s]",
			klineRow(now.Add(-30*time.Hour), "95.0"), // 超出24小时窗口
			klineRow(now.Add(-2*time.Minute), "100.5"),
			klineRow(now.Add(-time.Minute), "101.5"),
		)
	})

	samples, err := src.Fetch(context.Background(), "btcusdt")
	require.NoError(t, err)
	assert.Equal(t, "BTCUSDT", gotSymbol)
	assert.Equal(t, "1m", gotInterval)
	require.Len(t, samples, 2)
	assert.True(t, decimal.RequireFromString("100.5").Equal(samples[0].Close))
	assert.True(t, decimal.RequireFromString("101.5").Equal(samples[1].Close))
	assert.True(t, decimal.RequireFromString("12.5").Equal(samples[1].Volume))
}

func TestSource_FetchInvalidSymbol(t *testing.T) {
	src := newTestSource(t, time.Now(), func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"code":-1121,"msg":"Invalid symbol."}`))
	})

	samples, err := src.Fetch(context.Background(), "NOPEUSDT")
	require.NoError(t, err)
	assert.Empty(t, samples)
}

func TestSource_FetchTransportError(t *testing.T) {
	src := newTestSource(t, time.Now(), func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"code":-1003,"msg":"Too many requests."}`))
	})

	_, err := src.Fetch(context.Background(), "BTCUSDT")
	require.Error(t, err)
	assert.True(t, errors.Is(err, quote.ErrTransport))
}
