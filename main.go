package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/KNICEX/stock-alert/internal/service/monitor"
	"github.com/KNICEX/stock-alert/internal/web"
	"github.com/KNICEX/stock-alert/ioc"
	"github.com/KNICEX/stock-alert/pkg/decimalx"
	"github.com/gin-gonic/gin"
	"github.com/spf13/pflag"
)

type flags struct {
	config    string
	serve     bool
	addr      string
	ticker    string
	threshold string
	email     string
	phone     string
	interval  time.Duration
	provider  string
}

func parseFlags() flags {
	var f flags
	// --config=./config/xxx.yaml
	pflag.StringVar(&f.config, "config", "./config/config.yaml", "specify config file")
	pflag.BoolVar(&f.serve, "serve", false, "run the HTTP control API instead of a single session")
	pflag.StringVar(&f.addr, "addr", "", "HTTP listen address (overrides server.addr)")
	pflag.StringVar(&f.ticker, "ticker", "", "ticker symbol to monitor, e.g. AAPL or BTCUSDT")
	pflag.StringVar(&f.threshold, "threshold", "", "alert threshold in percent, e.g. 1.5")
	pflag.StringVar(&f.email, "email", "", "send email alerts to this address")
	pflag.StringVar(&f.phone, "phone", "", "send sms alerts to this E.164 phone number")
	pflag.DurationVar(&f.interval, "interval", 0, "polling interval (overrides monitor.interval)")
	pflag.StringVar(&f.provider, "provider", "", "quote provider: yahoo | binance")
	pflag.Parse()
	return f
}

func main() {
	f := parseFlags()

	v := ioc.InitViper(f.config)
	if f.provider != "" {
		v.Set("quote.provider", f.provider)
	}
	cfg := ioc.LoadConfig(v)

	logger := ioc.InitLogger(cfg.Log)
	slog.SetDefault(logger)
	ctrl := monitor.NewController(
		ioc.InitQuoteSource(cfg),
		ioc.InitDispatcher(cfg.Notify, logger),
		monitor.WithSessionAnalyzer(ioc.InitNarrativeAnalyzer(cfg)),
		monitor.WithControllerLogger(logger),
		monitor.WithProbeTimeout(cfg.Monitor.ProbeTimeout),
		monitor.WithDefaultInterval(cfg.Monitor.Interval),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var err error
	if f.serve {
		addr := cfg.Server.Addr
		if f.addr != "" {
			addr = f.addr
		}
		err = serve(ctx, addr, ctrl, logger)
	} else {
		err = runSession(ctx, f, ctrl, logger)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if sErr := ctrl.Shutdown(shutdownCtx); sErr != nil {
		logger.Error("monitor sessions did not stop in time", "error", sErr)
	}
	if err != nil {
		logger.Error("exiting", "error", err)
		os.Exit(1)
	}
}

func runSession(ctx context.Context, f flags, ctrl *monitor.Controller, logger *slog.Logger) error {
	threshold, err := decimalx.ParsePercent(f.threshold)
	if err != nil {
		return fmt.Errorf("%w: threshold %q is not a number", monitor.ErrInvalidConfig, f.threshold)
	}
	id, err := ctrl.Start(ctx, monitor.Config{
		Ticker:           f.ticker,
		ThresholdPercent: threshold,
		EmailEnabled:     f.email != "",
		SMSEnabled:       f.phone != "",
		RecipientEmail:   f.email,
		RecipientPhone:   f.phone,
		Interval:         f.interval,
	})
	if err != nil {
		return err
	}
	logger.Info("monitoring until interrupted", "session", id)
	<-ctx.Done()
	return ctrl.Stop(id)
}

func serve(ctx context.Context, addr string, ctrl *monitor.Controller, logger *slog.Logger) error {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())
	web.NewHandler(ctrl, logger).RegisterRoutes(engine)

	srv := &http.Server{Addr: addr, Handler: engine}
	errCh := make(chan error, 1)
	go func() {
		logger.Info("HTTP control API listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
