// Package payment creates and settles the session payment once a slot is
// confirmed.
package payment

import (
	"context"
	"errors"
	"log/slog"

	"github.com/sagehealth/sage/internal/api"
)

// Fees are fixed for every session; nothing is computed.
const (
	SessionFeeCents  = 4500
	PlatformFeeCents = 500
	TotalFeeCents    = SessionFeeCents + PlatformFeeCents

	Currency = "usd"
)

// ErrNoConfirmedSlot means payment was attempted before a session time was
// confirmed. Rejected locally; the request never reaches the service.
var ErrNoConfirmedSlot = errors.New("no confirmed session slot")

// Service is the slice of the api client the gate needs.
type Service interface {
	CreatePayment(ctx context.Context, amount float64) (*api.Payment, error)
	PaymentStatus(ctx context.Context, paymentID string) (*api.Payment, error)
	ConfirmPayment(ctx context.Context, paymentID string) (*api.Payment, error)
}

// Gate creates payments, enabled only once a slot is confirmed. The check is
// client-enforced; the payment service contract does not re-verify it.
type Gate struct {
	svc           Service
	slotConfirmed func() bool
	logger        *slog.Logger
}

// NewGate creates a payment gate. slotConfirmed reports whether a confirmed
// session slot exists.
func NewGate(svc Service, slotConfirmed func() bool, logger *slog.Logger) *Gate {
	if logger == nil {
		logger = slog.Default()
	}
	return &Gate{
		svc:           svc,
		slotConfirmed: slotConfirmed,
		logger:        logger,
	}
}

// Create opens a pending payment for the fixed session total.
func (g *Gate) Create(ctx context.Context) (*api.Payment, error) {
	if !g.slotConfirmed() {
		return nil, ErrNoConfirmedSlot
	}

	payment, err := g.svc.CreatePayment(ctx, float64(TotalFeeCents)/100)
	if err != nil {
		return nil, err
	}
	g.logger.Info("payment created", "payment_id", payment.ID, "amount", payment.Amount)
	return payment, nil
}

// Confirm settles a pending payment. Confirmed and failed are terminal.
func (g *Gate) Confirm(ctx context.Context, paymentID string) (*api.Payment, error) {
	payment, err := g.svc.ConfirmPayment(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	g.logger.Info("payment confirmed", "payment_id", payment.ID, "status", payment.Status)
	return payment, nil
}

// Status fetches the current state of a payment.
func (g *Gate) Status(ctx context.Context, paymentID string) (*api.Payment, error) {
	return g.svc.PaymentStatus(ctx, paymentID)
}
