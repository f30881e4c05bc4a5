package journey

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sagehealth/sage/internal/api"
	"github.com/sagehealth/sage/internal/intake"
	"github.com/sagehealth/sage/internal/scheduling"
)

type fakeRestarter struct {
	err error
	n   int
}

func (f *fakeRestarter) RestartIntake(ctx context.Context) error {
	f.n++
	return f.err
}

type matchSender struct{}

func (matchSender) SendMessage(ctx context.Context, message string) (*api.SendResponse, error) {
	return &api.SendResponse{
		Reply:          "you are matched",
		TurnID:         "t1",
		IntakeComplete: true,
		GroupID:        "grp_1",
		GroupName:      "Stress & Balance Support Circle",
	}, nil
}

type slotService struct{}

func (slotService) Slots(ctx context.Context) ([]api.Slot, error) {
	return []api.Slot{{ID: "s1", SlotAt: time.Now().Add(time.Hour)}}, nil
}

func (slotService) ConfirmSlot(ctx context.Context, slotID string) (*api.ConfirmSlotResponse, error) {
	return &api.ConfirmSlotResponse{Status: "confirmed", SlotID: slotID}, nil
}

func discard() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// buildJourney assembles a conversation that reached its match and a gate
// with a confirmed slot, the state a restart has to unwind.
func buildJourney(t *testing.T) (*intake.Controller, *intake.RevealTimer, *scheduling.Gate) {
	t.Helper()

	reveal := intake.NewRevealTimer(intake.TimerScheduler{}, time.Hour, nil)
	conv := intake.NewController(matchSender{}, reveal, discard())
	require.NoError(t, conv.Send(context.Background(), "everything"))
	require.Equal(t, intake.StateMatchDetected, conv.State())

	gate := scheduling.NewGate(slotService{}, func() bool { return conv.Match() != nil }, discard())
	_, err := gate.ListSlots(context.Background())
	require.NoError(t, err)
	_, err = gate.Confirm(context.Background(), "s1")
	require.NoError(t, err)

	t.Cleanup(reveal.Cancel)
	return conv, reveal, gate
}

func TestRestartFailureLeavesStateUntouched(t *testing.T) {
	conv, reveal, gate := buildJourney(t)
	svc := &fakeRestarter{err: errors.New("boom")}
	ctrl := NewRestartController(svc, conv, reveal, gate, discard())

	turnsBefore := conv.Turns()
	matchBefore := conv.Match()
	confirmedBefore := gate.Confirmed()

	err := ctrl.Restart(context.Background())
	require.Error(t, err)
	assert.Equal(t, 1, svc.n)

	assert.Equal(t, turnsBefore, conv.Turns(), "turn list unchanged")
	assert.Equal(t, matchBefore, conv.Match(), "match unchanged")
	assert.Equal(t, confirmedBefore, gate.Confirmed(), "confirmed slot unchanged")
	assert.Equal(t, intake.StateMatchDetected, conv.State())
}

func TestRestartResetsEverything(t *testing.T) {
	conv, reveal, gate := buildJourney(t)
	ctrl := NewRestartController(&fakeRestarter{}, conv, reveal, gate, discard())

	require.NoError(t, ctrl.Restart(context.Background()))

	turns := conv.Turns()
	require.Len(t, turns, 1, "exactly one synthetic welcome turn")
	assert.Equal(t, intake.RoleAssistant, turns[0].Role)
	assert.Nil(t, conv.Match())
	assert.Equal(t, intake.StateIdle, conv.State())
	assert.Equal(t, intake.RevealIdle, reveal.Phase())
	assert.Nil(t, gate.Confirmed())
}

func TestRestartAllowsNewMatchDetection(t *testing.T) {
	conv, reveal, gate := buildJourney(t)
	ctrl := NewRestartController(&fakeRestarter{}, conv, reveal, gate, discard())
	require.NoError(t, ctrl.Restart(context.Background()))

	// A fresh conversation can reach a new match after the reset.
	require.NoError(t, conv.Send(context.Background(), "starting over"))
	assert.Equal(t, intake.StateMatchDetected, conv.State())
	assert.Equal(t, intake.RevealWaiting, reveal.Phase())
}
