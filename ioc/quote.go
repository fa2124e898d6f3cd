package ioc

import (
	"fmt"
	"time"

	"github.com/KNICEX/stock-alert/internal/service/quote"
	binancequote "github.com/KNICEX/stock-alert/internal/service/quote/binance"
	"github.com/KNICEX/stock-alert/internal/service/quote/yahoo"
	"github.com/adshao/go-binance/v2"
)

type QuoteConfig struct {
	// Provider yahoo | binance
	Provider string        `mapstructure:"provider"`
	BaseURL  string        `mapstructure:"base_url"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

type CexConfig struct {
	Binance struct {
		ApiKey    string `mapstructure:"api_key"`
		ApiSecret string `mapstructure:"api_secret"`
	} `mapstructure:"binance"`
}

func InitBinanceCli(cfg CexConfig) *binance.Client {
	return binance.NewClient(cfg.Binance.ApiKey, cfg.Binance.ApiSecret)
}

func InitQuoteSource(cfg Config) quote.Source {
	switch cfg.Quote.Provider {
	case "", "yahoo":
		opts := []yahoo.Option{}
		if cfg.Quote.BaseURL != "" {
			opts = append(opts, yahoo.WithBaseURL(cfg.Quote.BaseURL))
		}
		if cfg.Quote.Timeout > 0 {
			opts = append(opts, yahoo.WithTimeout(cfg.Quote.Timeout))
		}
		return yahoo.NewSource(opts...)
	case "binance":
		cli := InitBinanceCli(cfg.Cex)
		if cfg.Quote.BaseURL != "" {
			cli.BaseURL = cfg.Quote.BaseURL
		}
		return binancequote.NewSource(cli)
	default:
		panic(fmt.Sprintf("unknown quote provider %q", cfg.Quote.Provider))
	}
}
