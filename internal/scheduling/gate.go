// Package scheduling lists session slots for the matched group and confirms
// exactly one of them.
package scheduling

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/sagehealth/sage/internal/api"
)

// Local validation errors, rejected before any network call.
var (
	// ErrNoGroup means no group match exists yet; slots cannot be confirmed.
	ErrNoGroup = errors.New("no group assigned yet")

	// ErrUnknownSlot means the slot id is not among the listed candidates.
	ErrUnknownSlot = errors.New("slot is not among the offered candidates")
)

// Service is the slice of the api client the gate needs.
type Service interface {
	Slots(ctx context.Context) ([]api.Slot, error)
	ConfirmSlot(ctx context.Context, slotID string) (*api.ConfirmSlotResponse, error)
}

// Gate lists candidate slots and confirms one. A confirmation requires an
// existing group match; the check runs locally so invariant violations never
// reach the service.
type Gate struct {
	svc      Service
	hasGroup func() bool
	logger   *slog.Logger

	mu        sync.Mutex
	slots     []api.Slot
	confirmed *api.Slot
}

// NewGate creates a scheduling gate. hasGroup reports whether a group match
// currently exists.
func NewGate(svc Service, hasGroup func() bool, logger *slog.Logger) *Gate {
	if logger == nil {
		logger = slog.Default()
	}
	return &Gate{
		svc:      svc,
		hasGroup: hasGroup,
		logger:   logger,
	}
}

// ListSlots fetches and caches the candidate slots. An empty list is a
// normal state: either no group yet, or no slots offered.
func (g *Gate) ListSlots(ctx context.Context) ([]api.Slot, error) {
	slots, err := g.svc.Slots(ctx)
	if err != nil {
		return nil, err
	}

	g.mu.Lock()
	g.slots = slots
	g.mu.Unlock()

	out := make([]api.Slot, len(slots))
	copy(out, slots)
	return out, nil
}

// Confirm books the given candidate slot. On success it becomes the one
// confirmed slot and the remaining candidates are discarded. Confirming
// while another slot is confirmed replaces it; the service records
// confirmations idempotently, so this is assumed rather than guaranteed.
// A failed confirmation is surfaced, never retried automatically.
func (g *Gate) Confirm(ctx context.Context, slotID string) (*api.Slot, error) {
	if !g.hasGroup() {
		return nil, ErrNoGroup
	}

	g.mu.Lock()
	var chosen *api.Slot
	for i := range g.slots {
		if g.slots[i].ID == slotID {
			chosen = &g.slots[i]
			break
		}
	}
	if chosen == nil {
		g.mu.Unlock()
		return nil, ErrUnknownSlot
	}
	slot := *chosen
	g.mu.Unlock()

	resp, err := g.svc.ConfirmSlot(ctx, slotID)
	if err != nil {
		return nil, err
	}

	g.mu.Lock()
	g.confirmed = &slot
	g.slots = nil
	g.mu.Unlock()

	g.logger.Info("slot confirmed", "slot_id", slotID, "status", resp.Status)
	return &slot, nil
}

// Confirmed returns the confirmed slot, or nil.
func (g *Gate) Confirmed() *api.Slot {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.confirmed == nil {
		return nil
	}
	slot := *g.confirmed
	return &slot
}

// Reset clears the cached candidates and the confirmation. Only the restart
// flow calls this.
func (g *Gate) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.slots = nil
	g.confirmed = nil
}
