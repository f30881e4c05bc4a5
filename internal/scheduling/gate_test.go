package scheduling

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sagehealth/sage/internal/api"
)

type fakeService struct {
	slots      []api.Slot
	slotsErr   error
	confirmErr error
	confirmN   int
}

func (f *fakeService) Slots(ctx context.Context) ([]api.Slot, error) {
	return f.slots, f.slotsErr
}

func (f *fakeService) ConfirmSlot(ctx context.Context, slotID string) (*api.ConfirmSlotResponse, error) {
	f.confirmN++
	if f.confirmErr != nil {
		return nil, f.confirmErr
	}
	return &api.ConfirmSlotResponse{Status: "confirmed", SlotID: slotID}, nil
}

func hasGroup(v bool) func() bool {
	return func() bool { return v }
}

func discard() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func testSlots() []api.Slot {
	base := time.Now().Add(7 * 24 * time.Hour)
	return []api.Slot{
		{ID: "s1", SlotAt: base},
		{ID: "s2", SlotAt: base.Add(24 * time.Hour)},
		{ID: "s3", SlotAt: base.Add(48 * time.Hour)},
	}
}

func TestListSlotsEmptyIsNormal(t *testing.T) {
	gate := NewGate(&fakeService{}, hasGroup(false), discard())

	slots, err := gate.ListSlots(context.Background())
	require.NoError(t, err, "no slots is a valid, non-error state")
	assert.Empty(t, slots)
}

func TestConfirmRequiresGroup(t *testing.T) {
	svc := &fakeService{slots: testSlots()}
	gate := NewGate(svc, hasGroup(false), discard())
	_, err := gate.ListSlots(context.Background())
	require.NoError(t, err)

	_, err = gate.Confirm(context.Background(), "s1")
	assert.ErrorIs(t, err, ErrNoGroup)
	assert.Equal(t, 0, svc.confirmN, "invariant violations never reach the service")
}

func TestConfirmUnknownSlot(t *testing.T) {
	svc := &fakeService{slots: testSlots()}
	gate := NewGate(svc, hasGroup(true), discard())
	_, err := gate.ListSlots(context.Background())
	require.NoError(t, err)

	_, err = gate.Confirm(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrUnknownSlot)
	assert.Equal(t, 0, svc.confirmN)
}

func TestConfirmSelectsExactlyOne(t *testing.T) {
	svc := &fakeService{slots: testSlots()}
	gate := NewGate(svc, hasGroup(true), discard())
	_, err := gate.ListSlots(context.Background())
	require.NoError(t, err)

	slot, err := gate.Confirm(context.Background(), "s2")
	require.NoError(t, err)
	assert.Equal(t, "s2", slot.ID)

	confirmed := gate.Confirmed()
	require.NotNil(t, confirmed)
	assert.Equal(t, "s2", confirmed.ID)

	// The other candidates are discarded from consideration.
	_, err = gate.Confirm(context.Background(), "s1")
	assert.ErrorIs(t, err, ErrUnknownSlot)
}

func TestConfirmFailureKeepsState(t *testing.T) {
	svc := &fakeService{slots: testSlots(), confirmErr: errors.New("boom")}
	gate := NewGate(svc, hasGroup(true), discard())
	_, err := gate.ListSlots(context.Background())
	require.NoError(t, err)

	_, err = gate.Confirm(context.Background(), "s1")
	require.Error(t, err)
	assert.Nil(t, gate.Confirmed())
	assert.Equal(t, 1, svc.confirmN, "no automatic retry")

	// Candidates survive a failed confirmation; the user may retry.
	svc.confirmErr = nil
	slot, err := gate.Confirm(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, "s1", slot.ID)
}

func TestReconfirmReplacesAfterRelist(t *testing.T) {
	svc := &fakeService{slots: testSlots()}
	gate := NewGate(svc, hasGroup(true), discard())

	_, err := gate.ListSlots(context.Background())
	require.NoError(t, err)
	_, err = gate.Confirm(context.Background(), "s1")
	require.NoError(t, err)

	_, err = gate.ListSlots(context.Background())
	require.NoError(t, err)
	_, err = gate.Confirm(context.Background(), "s3")
	require.NoError(t, err)

	confirmed := gate.Confirmed()
	require.NotNil(t, confirmed)
	assert.Equal(t, "s3", confirmed.ID, "re-confirming replaces the previous choice")
}

func TestReset(t *testing.T) {
	svc := &fakeService{slots: testSlots()}
	gate := NewGate(svc, hasGroup(true), discard())
	_, err := gate.ListSlots(context.Background())
	require.NoError(t, err)
	_, err = gate.Confirm(context.Background(), "s1")
	require.NoError(t, err)

	gate.Reset()
	assert.Nil(t, gate.Confirmed())
	_, err = gate.Confirm(context.Background(), "s1")
	assert.ErrorIs(t, err, ErrUnknownSlot, "cache is empty after reset")
}
