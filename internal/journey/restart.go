// Package journey coordinates the restart that returns a client to the very
// beginning of intake.
package journey

import (
	"context"
	"log/slog"

	"github.com/sagehealth/sage/internal/intake"
	"github.com/sagehealth/sage/internal/scheduling"
)

// Restarter is the slice of the api client the controller needs.
type Restarter interface {
	RestartIntake(ctx context.Context) error
}

// RestartController fans a successful server-side wipe out to every local
// component that holds onboarding progress.
type RestartController struct {
	svc    Restarter
	conv   *intake.Controller
	reveal *intake.RevealTimer
	slots  *scheduling.Gate
	logger *slog.Logger
}

// NewRestartController wires the controller to the components it resets.
func NewRestartController(
	svc Restarter,
	conv *intake.Controller,
	reveal *intake.RevealTimer,
	slots *scheduling.Gate,
	logger *slog.Logger,
) *RestartController {
	if logger == nil {
		logger = slog.Default()
	}
	return &RestartController{
		svc:    svc,
		conv:   conv,
		reveal: reveal,
		slots:  slots,
		logger: logger,
	}
}

// Restart wipes the intake server-side, then resets the conversation, the
// reveal timer, and the slot cache in one coordinated pass. If the server
// call fails, nothing local changes: a partial reset would leave a match
// without its conversation or a slot without its group.
func (c *RestartController) Restart(ctx context.Context) error {
	if err := c.svc.RestartIntake(ctx); err != nil {
		c.logger.Warn("restart rejected by service, local state untouched", "error", err)
		return err
	}

	c.conv.Reset()
	c.reveal.Reset()
	c.slots.Reset()
	c.logger.Info("intake restarted")
	return nil
}
