package cli

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/sagehealth/sage/internal/scheduling"
	"github.com/spf13/cobra"
)

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Pick a session time for your matched group",
	Long: `List the available session times for your matched group and confirm one.
Sessions run 90 minutes. Confirming a new time replaces a previously
confirmed one.

Examples:
  sage schedule`,
	Args: cobra.NoArgs,
	RunE: runSchedule,
}

func runSchedule(cmd *cobra.Command, args []string) error {
	if err := requireAuth(cmd); err != nil {
		return err
	}

	ctx := cmd.Context()
	theme := defaultTheme

	group, err := apiClient.MyGroup(ctx)
	if err != nil {
		return fmt.Errorf("fetch group: %w", err)
	}
	if group == nil {
		fmt.Println("No group match yet. Run 'sage chat' to finish your intake conversation.")
		return nil
	}

	gate := scheduling.NewGate(apiClient, func() bool { return true }, logger)
	slots, err := gate.ListSlots(ctx)
	if err != nil {
		return fmt.Errorf("fetch session times: %w", err)
	}
	if len(slots) == 0 {
		fmt.Printf("No session times are available for %s yet. Check back soon.\n", group.Name)
		return nil
	}

	fmt.Printf("Session times for %s (90 minutes each):\n\n", theme.successStyle().Render(group.Name))
	for i, slot := range slots {
		fmt.Printf("  %d. %s\n", i+1, formatSlot(slot.SlotAt))
	}
	fmt.Println()

	choice, err := promptChoice(len(slots))
	if err != nil {
		return err
	}
	if choice == 0 {
		fmt.Println("No time confirmed.")
		return nil
	}

	picked := slots[choice-1]
	confirmed, err := gate.Confirm(ctx, picked.ID)
	if err != nil {
		if errors.Is(err, scheduling.ErrNoGroup) || errors.Is(err, scheduling.ErrUnknownSlot) {
			return err
		}
		return fmt.Errorf("confirm session time: %w", err)
	}

	fmt.Printf("%s %s\n", theme.successStyle().Render("Confirmed:"), formatSlot(confirmed.SlotAt))
	fmt.Println(theme.hintStyle().Render("Run 'sage pay' to complete your booking."))
	return nil
}

// promptChoice reads a 1-based slot number from stdin. An empty line means
// "none".
func promptChoice(max int) (int, error) {
	fmt.Printf("Pick a time (1-%d, or press Enter to skip): ", max)

	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil && line == "" {
		return 0, nil
	}
	line = strings.TrimSpace(line)
	if line == "" {
		return 0, nil
	}

	n, err := strconv.Atoi(line)
	if err != nil || n < 1 || n > max {
		return 0, fmt.Errorf("invalid choice %q (want 1-%d)", line, max)
	}
	return n, nil
}
