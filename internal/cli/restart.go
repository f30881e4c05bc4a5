package cli

import (
	"fmt"

	"github.com/sagehealth/sage/internal/intake"
	"github.com/sagehealth/sage/internal/journey"
	"github.com/sagehealth/sage/internal/scheduling"
	"github.com/spf13/cobra"
)

var restartForce bool

var restartCmd = &cobra.Command{
	Use:   "restart",
	Short: "Start the intake conversation over",
	Long: `Wipe your intake conversation, extracted profile, and group match, and
start over from the beginning. A confirmed session time is released too.

This cannot be undone.`,
	Args: cobra.NoArgs,
	RunE: runRestart,
}

func init() {
	restartCmd.Flags().BoolVarP(&restartForce, "force", "f", false, "skip the confirmation prompt")
}

func runRestart(cmd *cobra.Command, args []string) error {
	if err := requireAuth(cmd); err != nil {
		return err
	}

	if !restartForce {
		ok, err := promptYesNo("Start over? Your conversation and group match will be erased. [y/N]: ")
		if err != nil {
			return err
		}
		if !ok {
			fmt.Println("Nothing changed.")
			return nil
		}
	}

	reveal := intake.NewRevealTimer(intake.TimerScheduler{}, cfg.RevealDelay, func() {})
	conv := intake.NewController(apiClient, reveal, logger)
	slots := scheduling.NewGate(apiClient, func() bool { return true }, logger)

	ctrl := journey.NewRestartController(apiClient, conv, reveal, slots, logger)
	if err := ctrl.Restart(cmd.Context()); err != nil {
		return fmt.Errorf("restart intake: %w", err)
	}

	fmt.Println("Intake restarted. Run 'sage chat' to begin again.")
	return nil
}
