// Package dashboard re-derives the single "where am I" onboarding status
// from the intake profile, the group match, and the scheduled slots.
package dashboard

import (
	"strings"
	"time"

	"github.com/sagehealth/sage/internal/api"
)

// Status is the derived onboarding progress label. It is recomputed from the
// three underlying resources on every load and never persisted.
type Status string

const (
	StatusNone       Status = "none"
	StatusMatching   Status = "matching-in-progress"
	StatusGroupReady Status = "group-ready"
	StatusConfirmed  Status = "confirmed"
)

// Label returns the user-facing copy for the status. StatusNone has none.
func (s Status) Label() string {
	switch s {
	case StatusMatching:
		return "Matching in progress"
	case StatusGroupReady:
		return "Group almost ready — choose a session time"
	case StatusConfirmed:
		return "Session time confirmed"
	default:
		return ""
	}
}

// Derive computes the dashboard status. It is pure: the same inputs always
// produce the same status, independent of the order the resources arrived
// in. The scheduling service only returns slots for the caller's group once
// one is booked, so a future-dated entry is treated as the confirmed
// session time.
func Derive(intake *api.IntakeProfile, group *api.Group, slots []api.Slot, now time.Time) Status {
	hasIntake := intake.HasContent()
	confirmed := false
	for _, slot := range slots {
		if slot.SlotAt.After(now) {
			confirmed = true
			break
		}
	}

	switch {
	case group != nil && confirmed:
		return StatusConfirmed
	case group != nil:
		return StatusGroupReady
	case hasIntake:
		return StatusMatching
	default:
		return StatusNone
	}
}

// IntensityBucket maps a 0-100 emotional intensity to a display bucket.
// An absent value maps to a dash and zero percent.
func IntensityBucket(value *int) (label string, percent int) {
	if value == nil {
		return "—", 0
	}
	switch {
	case *value <= 33:
		return "Low", 25
	case *value <= 66:
		return "Moderate", 50
	default:
		return "High", 75
	}
}

// ParseSupportGoals splits the free-text support goals field on commas,
// semicolons, and newlines.
func ParseSupportGoals(s *string) []string {
	if s == nil {
		return nil
	}
	var goals []string
	for _, part := range strings.FieldsFunc(*s, func(r rune) bool {
		return r == ',' || r == ';' || r == '\n'
	}) {
		if goal := strings.TrimSpace(part); goal != "" {
			goals = append(goals, goal)
		}
	}
	return goals
}
