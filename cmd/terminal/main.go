// Command terminal is a headless POS terminal: it fills the transaction
// draft from flags, submits it to the gateway once and prints the outcome.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/exp/slog"

	"github.com/jaortiz16/terminal-pos/terminal"
)

func main() {
	_ = godotenv.Load()

	gatewayURL := flag.String("gateway", envOr("TERMINAL_GATEWAY_URL", terminal.DefaultGatewayURL), "base URL of the authorization gateway")
	amount := flag.Float64("amount", 0, "amount to charge")
	currency := flag.String("currency", "USD", "currency (USD, EUR, MXN)")
	number := flag.String("card", "", "card number")
	name := flag.String("name", "", "cardholder name")
	cvv := flag.String("cvv", "", "card CVV")
	expiry := flag.String("expiry", "", "card expiry (MMYY or MM/YY)")
	modality := flag.String("modality", "single", "payment modality: single, deferred or recurring")
	installments := flag.Int("installments", 0, "installment count (deferred only)")
	intervalDays := flag.Int("interval-days", 0, "recurrence interval in days (recurring only)")
	verbose := flag.Bool("v", false, "log the submission flow")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	if !*verbose {
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	}

	store := terminal.NewStore(
		terminal.NewClient(*gatewayURL, nil),
		terminal.WithLogger(logger),
	)

	store.SetAmount(*amount)
	store.SetCurrency(terminal.Currency(*currency))
	store.SetCardNumber(*number)
	store.SetCardholderName(*name)
	store.SetCVV(*cvv)
	store.SetExpiry(*expiry)

	switch terminal.Modality(*modality) {
	case terminal.ModalitySingle:
	case terminal.ModalityDeferred:
		store.SetModality(terminal.ModalityDeferred)
		if *installments > 0 {
			store.SetInstallments(*installments)
		}
	case terminal.ModalityRecurring:
		store.SetModality(terminal.ModalityRecurring)
		if *intervalDays > 0 {
			store.SetRecurrenceDays(*intervalDays)
		}
	default:
		fmt.Fprintf(os.Stderr, "unknown modality %q\n", *modality)
		os.Exit(2)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 45*time.Second)
	defer cancel()

	err := store.Submit(ctx)

	var verrs terminal.ValidationErrors
	if errors.As(err, &verrs) {
		for field, msg := range verrs {
			fmt.Fprintf(os.Stderr, "%s: %s\n", field, msg)
		}
		os.Exit(2)
	}

	status := store.Status()
	switch status.State {
	case terminal.StateSucceeded:
		fmt.Println("APROBADO")
	case terminal.StateFailed:
		fmt.Println(status.Message)
		os.Exit(1)
	default:
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
	}
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
