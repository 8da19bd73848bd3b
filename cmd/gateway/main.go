package main

import (
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/exp/slog"

	"github.com/jaortiz16/terminal-pos/gateway"
)

func main() {
	// a missing .env is fine, the defaults apply
	_ = godotenv.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg := gateway.DefaultConfig()
	if v := os.Getenv("GATEWAY_HTTP_ADDR"); v != "" {
		cfg.HTTPAddr = v
	}
	if v := os.Getenv("GATEWAY_APPROVAL_RATE"); v != "" {
		rate, err := strconv.ParseFloat(v, 64)
		if err != nil || rate < 0 || rate > 1 {
			logger.Error("invalid GATEWAY_APPROVAL_RATE", slog.String("value", v))
			os.Exit(1)
		}
		cfg.ApprovalRate = rate
	}
	if v := os.Getenv("GATEWAY_PROCESSING_DELAY"); v != "" {
		delay, err := time.ParseDuration(v)
		if err != nil {
			logger.Error("invalid GATEWAY_PROCESSING_DELAY", slog.String("value", v))
			os.Exit(1)
		}
		cfg.ProcessingDelay = delay
	}

	app := gateway.NewApp(logger, cfg)
	if err := app.Start(); err != nil {
		logger.Error("starting app", "err", err)
		os.Exit(1)
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig

	app.Shutdown()
}
