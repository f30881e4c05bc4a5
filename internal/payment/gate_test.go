package payment

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sagehealth/sage/internal/api"
)

type fakeService struct {
	createN int
	created *api.Payment
}

func (f *fakeService) CreatePayment(ctx context.Context, amount float64) (*api.Payment, error) {
	f.createN++
	f.created = &api.Payment{ID: "pay_1", Amount: amount, Currency: Currency, Status: api.PaymentPending}
	return f.created, nil
}

func (f *fakeService) PaymentStatus(ctx context.Context, paymentID string) (*api.Payment, error) {
	return f.created, nil
}

func (f *fakeService) ConfirmPayment(ctx context.Context, paymentID string) (*api.Payment, error) {
	f.created.Status = api.PaymentConfirmed
	return f.created, nil
}

func discard() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func TestCreateRequiresConfirmedSlot(t *testing.T) {
	svc := &fakeService{}
	gate := NewGate(svc, func() bool { return false }, discard())

	_, err := gate.Create(context.Background())
	assert.ErrorIs(t, err, ErrNoConfirmedSlot)
	assert.Equal(t, 0, svc.createN, "gated payment never reaches the service")
}

func TestCreateUsesFixedTotal(t *testing.T) {
	svc := &fakeService{}
	gate := NewGate(svc, func() bool { return true }, discard())

	payment, err := gate.Create(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 50.0, payment.Amount, "session fee plus platform fee")
	assert.Equal(t, api.PaymentPending, payment.Status)
}

func TestConfirmSettlesPayment(t *testing.T) {
	svc := &fakeService{}
	gate := NewGate(svc, func() bool { return true }, discard())

	payment, err := gate.Create(context.Background())
	require.NoError(t, err)

	payment, err = gate.Confirm(context.Background(), payment.ID)
	require.NoError(t, err)
	assert.Equal(t, api.PaymentConfirmed, payment.Status)

	status, err := gate.Status(context.Background(), payment.ID)
	require.NoError(t, err)
	assert.Equal(t, api.PaymentConfirmed, status.Status)
}

func TestFeeConstants(t *testing.T) {
	if TotalFeeCents != SessionFeeCents+PlatformFeeCents {
		t.Fatalf("total %d != session %d + platform %d", TotalFeeCents, SessionFeeCents, PlatformFeeCents)
	}
	if TotalFeeCents != 5000 {
		t.Fatalf("total fee = %d cents, want 5000", TotalFeeCents)
	}
}
