package cli

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/sagehealth/sage/internal/api"
	"github.com/sagehealth/sage/internal/payment"
	"github.com/spf13/cobra"
)

var payCmd = &cobra.Command{
	Use:   "pay",
	Short: "Pay for your confirmed session",
	Long: `Pay the session fee once a session time is confirmed. The total covers
the session fee plus the platform fee.

Examples:
  sage pay`,
	Args: cobra.NoArgs,
	RunE: runPay,
}

func runPay(cmd *cobra.Command, args []string) error {
	if err := requireAuth(cmd); err != nil {
		return err
	}

	ctx := cmd.Context()
	theme := defaultTheme

	// A future-dated slot in the list is the booked session.
	slots, err := apiClient.Slots(ctx)
	if err != nil {
		return fmt.Errorf("fetch session times: %w", err)
	}
	booked := nextSession(slots, time.Now())

	gate := payment.NewGate(apiClient, func() bool { return booked != nil }, logger)

	created, err := gate.Create(ctx)
	if err != nil {
		if errors.Is(err, payment.ErrNoConfirmedSlot) {
			fmt.Println("No confirmed session time yet. Run 'sage schedule' first.")
			return nil
		}
		return fmt.Errorf("create payment: %w", err)
	}

	fmt.Printf("Session on %s\n\n", formatSlot(booked.SlotAt))
	fmt.Printf("  Session fee:   $%.2f\n", float64(payment.SessionFeeCents)/100)
	fmt.Printf("  Platform fee:  $%.2f\n", float64(payment.PlatformFeeCents)/100)
	fmt.Printf("  Total:         $%.2f %s\n\n", created.Amount, strings.ToUpper(created.Currency))

	ok, err := promptYesNo("Pay now? [y/N]: ")
	if err != nil {
		return err
	}
	if !ok {
		fmt.Println("Payment not completed. Run 'sage pay' again when you are ready.")
		return nil
	}

	if _, err := gate.Confirm(ctx, created.ID); err != nil {
		return fmt.Errorf("confirm payment: %w", err)
	}

	settled, err := gate.Status(ctx, created.ID)
	if err != nil {
		return fmt.Errorf("check payment status: %w", err)
	}

	switch settled.Status {
	case api.PaymentConfirmed:
		fmt.Println(theme.successStyle().Render("Payment confirmed. You're all set!"))
		fmt.Println("Run 'sage status' to see your booked session.")
	case api.PaymentFailed:
		return fmt.Errorf("payment failed; no charge was made")
	default:
		fmt.Printf("Payment is %s. Run 'sage pay' later to check again.\n", settled.Status)
	}
	return nil
}

// promptYesNo reads a yes/no answer from stdin, defaulting to no.
func promptYesNo(prompt string) (bool, error) {
	fmt.Print(prompt)

	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil && line == "" {
		return false, nil
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}
