package dashboard

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/sagehealth/sage/internal/api"
)

// Fetcher is the slice of the api client the aggregator needs.
type Fetcher interface {
	Intake(ctx context.Context) (*api.IntakeProfile, error)
	MyGroup(ctx context.Context) (*api.Group, error)
	Slots(ctx context.Context) ([]api.Slot, error)
}

// Snapshot holds the three independently loaded dashboard resources. Any of
// them may be absent: a failed fetch degrades to "absent" rather than
// failing the whole load.
type Snapshot struct {
	Intake *api.IntakeProfile
	Group  *api.Group
	Slots  []api.Slot
}

// Aggregator loads the dashboard resources concurrently with per-resource
// failure isolation.
type Aggregator struct {
	svc    Fetcher
	logger *slog.Logger
	clock  func() time.Time
}

// NewAggregator creates an aggregator over the given service.
func NewAggregator(svc Fetcher, logger *slog.Logger) *Aggregator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Aggregator{
		svc:    svc,
		logger: logger,
		clock:  time.Now,
	}
}

// Load fetches intake, group, and slots in parallel. Failures are isolated:
// each one degrades its resource to absent/empty and is logged, never
// propagated — the dashboard always renders.
func (a *Aggregator) Load(ctx context.Context) Snapshot {
	var snap Snapshot

	var g errgroup.Group
	g.Go(func() error {
		intake, err := a.svc.Intake(ctx)
		if err != nil {
			a.logger.Warn("intake fetch failed", "error", err)
			return nil
		}
		snap.Intake = intake
		return nil
	})
	g.Go(func() error {
		group, err := a.svc.MyGroup(ctx)
		if err != nil {
			a.logger.Warn("group fetch failed", "error", err)
			return nil
		}
		snap.Group = group
		return nil
	})
	g.Go(func() error {
		slots, err := a.svc.Slots(ctx)
		if err != nil {
			a.logger.Warn("slots fetch failed", "error", err)
			return nil
		}
		snap.Slots = slots
		return nil
	})
	_ = g.Wait()

	return snap
}

// Status derives the onboarding status for a snapshot.
func (a *Aggregator) Status(snap Snapshot) Status {
	return Derive(snap.Intake, snap.Group, snap.Slots, a.clock())
}
