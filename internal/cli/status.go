package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/sagehealth/sage/internal/api"
	"github.com/sagehealth/sage/internal/dashboard"
	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show where you are in the onboarding journey",
	Long: `Show your journey status: intake progress, the matched group if any,
and your next session once one is scheduled. Pieces that cannot be
fetched right now are simply left out.`,
	Args: cobra.NoArgs,
	RunE: runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	if err := requireAuth(cmd); err != nil {
		return err
	}

	agg := dashboard.NewAggregator(apiClient, logger)
	snap := agg.Load(cmd.Context())
	status := agg.Status(snap)

	theme := defaultTheme
	fmt.Println(theme.accentStyle().Render(status.Label()))
	fmt.Println()

	if snap.Group != nil {
		renderGroup(theme, snap.Group)
	}
	if snap.Intake != nil && snap.Intake.HasContent() {
		renderIntake(theme, snap.Intake)
	}
	if next := nextSession(snap.Slots, time.Now()); next != nil {
		fmt.Printf("Next session: %s\n\n", formatSlot(next.SlotAt))
	}

	switch status {
	case dashboard.StatusNone:
		fmt.Println(theme.hintStyle().Render("Run 'sage chat' to get started."))
	case dashboard.StatusMatching:
		fmt.Println(theme.hintStyle().Render("Run 'sage chat' to continue your intake conversation."))
	case dashboard.StatusGroupReady:
		fmt.Println(theme.hintStyle().Render("Run 'sage schedule' to pick a session time."))
	case dashboard.StatusConfirmed:
		fmt.Println(theme.hintStyle().Render("Run 'sage pay' if you have not completed payment yet."))
	}

	return nil
}

func renderGroup(theme Theme, group *api.Group) {
	fmt.Printf("Group: %s\n", theme.successStyle().Render(group.Name))
	fmt.Printf("Focus: %s\n", group.Focus)
	if group.MatchReason != nil && *group.MatchReason != "" {
		fmt.Printf("Why this group: %s\n", *group.MatchReason)
	}
	fmt.Println()
}

func renderIntake(theme Theme, intake *api.IntakeProfile) {
	if intake.PrimaryConcern != nil && *intake.PrimaryConcern != "" {
		fmt.Printf("Primary concern: %s\n", *intake.PrimaryConcern)
	}
	label, _ := dashboard.IntensityBucket(intake.EmotionalIntensity)
	if label != "—" {
		fmt.Printf("Emotional intensity: %s\n", label)
	}
	if len(intake.LifeImpactAreas) > 0 {
		fmt.Printf("Life areas affected: %s\n", strings.Join(intake.LifeImpactAreas, ", "))
	}
	if goals := dashboard.ParseSupportGoals(intake.SupportGoals); len(goals) > 0 {
		fmt.Println("Support goals:")
		for _, goal := range goals {
			fmt.Printf("  - %s\n", goal)
		}
	}
	fmt.Println()
}

// nextSession returns the earliest future slot, or nil.
func nextSession(slots []api.Slot, now time.Time) *api.Slot {
	var next *api.Slot
	for i := range slots {
		if !slots[i].SlotAt.After(now) {
			continue
		}
		if next == nil || slots[i].SlotAt.Before(next.SlotAt) {
			next = &slots[i]
		}
	}
	return next
}

// formatSlot renders a session time like "Tuesday, Mar 4 at 6:00 PM".
func formatSlot(t time.Time) string {
	return t.Local().Format("Monday, Jan 2 at 3:04 PM")
}
