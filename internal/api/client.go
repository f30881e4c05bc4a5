package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"sync"
	"time"
)

const loginPath = "/api/auth/login"

// SessionSource exposes the current session token to outgoing requests.
// The api package only ever reads the token; ownership of the value stays
// with the auth store.
type SessionSource interface {
	Token() (string, bool)
}

// Client is a REST client for the Sage onboarding service.
type Client struct {
	baseURL    string
	httpClient *http.Client
	sessions   SessionSource
	logger     *slog.Logger

	expireOnce sync.Once
	onExpired  func()
}

// New creates a client for the service at baseURL.
// If baseURL is empty, uses the SAGE_SERVER_URL env var or defaults to
// localhost:8000.
func New(baseURL string, sessions SessionSource, logger *slog.Logger) *Client {
	if baseURL == "" {
		baseURL = os.Getenv("SAGE_SERVER_URL")
	}
	if baseURL == "" {
		baseURL = "http://localhost:8000"
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{},
		sessions:   sessions,
		logger:     logger,
	}
}

// OnSessionExpired registers fn to run the first time any call returns 401.
// The callback fires exactly once per client, no matter how many in-flight
// requests observe the same expired session.
func (c *Client) OnSessionExpired(fn func()) {
	c.onExpired = fn
}

// do executes one request against the service. A session header is attached
// when a token is present; its absence is tolerated (anonymous identity).
// Non-2xx responses come back as *Error with the kind decided here.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reqBody io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reqBody = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token, ok := c.sessions.Token(); ok {
		req.Header.Set("X-Session-Id", token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode == http.StatusUnauthorized && path != loginPath {
		// Global interrupt: the session is gone, regardless of which call
		// noticed first. The callback still fires only once.
		c.expireOnce.Do(func() {
			c.logger.Warn("session rejected by service", "path", path)
			if c.onExpired != nil {
				c.onExpired()
			}
		})
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &Error{
			Status:  resp.StatusCode,
			Kind:    kindForStatus(resp.StatusCode),
			Message: messageFromBody(respBody, resp.StatusCode),
		}
	}

	if out != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("unmarshal response: %w", err)
		}
	}

	return nil
}

// =============================================================================
// AUTH
// =============================================================================

// User is the authenticated identity.
type User struct {
	ID          string  `json:"id"`
	Email       string  `json:"email"`
	Name        string  `json:"name"`
	Role        string  `json:"role"`
	DateOfBirth *string `json:"date_of_birth,omitempty"`
}

// Roles accepted by the service.
const (
	RoleClient    = "client"
	RoleTherapist = "therapist"
)

// AuthResponse is returned by signup and login.
type AuthResponse struct {
	SessionID string `json:"session_id"`
	User      User   `json:"user"`
}

// SignupRequest creates a new account.
type SignupRequest struct {
	Email       string  `json:"email"`
	Password    string  `json:"password"`
	Name        string  `json:"name"`
	Role        string  `json:"role"`
	DateOfBirth *string `json:"date_of_birth"`
}

// Signup creates an account and starts a session.
func (c *Client) Signup(ctx context.Context, req SignupRequest) (*AuthResponse, error) {
	var result AuthResponse
	if err := c.do(ctx, http.MethodPost, "/api/auth/signup", req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Login starts a session for an existing account.
func (c *Client) Login(ctx context.Context, email, password string) (*AuthResponse, error) {
	body := map[string]string{"email": email, "password": password}

	var result AuthResponse
	if err := c.do(ctx, http.MethodPost, loginPath, body, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Me resolves the current session to its user.
func (c *Client) Me(ctx context.Context) (*User, error) {
	var result User
	if err := c.do(ctx, http.MethodGet, "/api/auth/me", nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Logout invalidates the session server-side.
func (c *Client) Logout(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/api/auth/logout", nil, nil)
}

// =============================================================================
// INTAKE CONVERSATION
// =============================================================================

// SendResponse is the reply to one intake message. IntakeComplete together
// with a non-empty GroupID and GroupName is the explicit match signal; the
// mere presence of a group elsewhere must not be read as completion.
type SendResponse struct {
	Reply          string `json:"reply"`
	TurnID         string `json:"turn_id"`
	IntakeComplete bool   `json:"intake_complete"`
	GroupID        string `json:"group_id"`
	GroupName      string `json:"group_name"`
	GroupFocus     string `json:"group_focus"`
	MatchReason    string `json:"match_reason"`
}

// SendMessage submits one user message to the intake conversation.
func (c *Client) SendMessage(ctx context.Context, message string) (*SendResponse, error) {
	body := map[string]string{"message": message}

	var result SendResponse
	if err := c.do(ctx, http.MethodPost, "/api/chat/send", body, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// TurnRecord is one persisted conversation turn.
type TurnRecord struct {
	ID        string    `json:"id"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// History returns the persisted conversation turns, oldest first.
func (c *Client) History(ctx context.Context) ([]TurnRecord, error) {
	var result struct {
		Turns []TurnRecord `json:"turns"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/chat/history", nil, &result); err != nil {
		return nil, err
	}
	return result.Turns, nil
}

// CompleteIntake asks the service to finalize the intake.
func (c *Client) CompleteIntake(ctx context.Context) (string, error) {
	var result struct {
		Status string `json:"status"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/chat/complete", nil, &result); err != nil {
		return "", err
	}
	return result.Status, nil
}

// RestartIntake wipes the conversation, match, and scheduling progress
// server-side. Local state must only be reset after this succeeds.
func (c *Client) RestartIntake(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/api/chat/restart", nil, nil)
}

// =============================================================================
// INTAKE PROFILE
// =============================================================================

// IntakeProfile is the structured extraction the service accumulates from
// the conversation. Every field is nullable until the conversation has
// covered it.
type IntakeProfile struct {
	PrimaryConcern       *string  `json:"primary_concern"`
	ContextualBackground *string  `json:"contextual_background"`
	EmotionalIntensity   *int     `json:"emotional_intensity"`
	LifeImpactAreas      []string `json:"life_impact_areas"`
	SupportGoals         *string  `json:"support_goals"`
	Availability         *string  `json:"availability"`
}

// HasContent reports whether any part of the profile has been extracted yet.
func (p *IntakeProfile) HasContent() bool {
	if p == nil {
		return false
	}
	if p.PrimaryConcern != nil && *p.PrimaryConcern != "" {
		return true
	}
	if p.ContextualBackground != nil && *p.ContextualBackground != "" {
		return true
	}
	if len(p.LifeImpactAreas) > 0 {
		return true
	}
	if p.SupportGoals != nil && *p.SupportGoals != "" {
		return true
	}
	return false
}

// Intake fetches the caller's intake profile.
func (c *Client) Intake(ctx context.Context) (*IntakeProfile, error) {
	var result IntakeProfile
	if err := c.do(ctx, http.MethodGet, "/api/intake", nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// =============================================================================
// GROUPS
// =============================================================================

// Group is the support group assigned once intake completes.
type Group struct {
	ID              string   `json:"id"`
	Name            string   `json:"name"`
	Focus           string   `json:"focus"`
	MatchReason     *string  `json:"match_reason"`
	PrimaryConcern  *string  `json:"primary_concern"`
	LifeImpactAreas []string `json:"life_impact_areas"`
}

// MyGroup fetches the caller's assigned group. A 404 means "no group yet"
// and is returned as (nil, nil), not as an error.
func (c *Client) MyGroup(ctx context.Context) (*Group, error) {
	var result Group
	if err := c.do(ctx, http.MethodGet, "/api/groups/my", nil, &result); err != nil {
		if IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return &result, nil
}

// Group fetches a group by id.
func (c *Client) Group(ctx context.Context, groupID string) (*Group, error) {
	var result Group
	if err := c.do(ctx, http.MethodGet, "/api/groups/"+groupID, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// =============================================================================
// SCHEDULING
// =============================================================================

// Slot is a candidate or booked session time for the caller's group.
type Slot struct {
	ID     string    `json:"id"`
	SlotAt time.Time `json:"slot_at"`
}

// Slots lists the session times for the caller's matched group. A 404 means
// "no group yet" and degrades to an empty list.
func (c *Client) Slots(ctx context.Context) ([]Slot, error) {
	var result struct {
		Slots []Slot `json:"slots"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/scheduling/slots", nil, &result); err != nil {
		if IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return result.Slots, nil
}

// ConfirmSlotResponse reports the outcome of a slot confirmation. Status is
// "confirmed", or "already_confirmed" when the same slot was booked before.
type ConfirmSlotResponse struct {
	Status string `json:"status"`
	SlotID string `json:"slot_id"`
}

// ConfirmSlot books one session time.
func (c *Client) ConfirmSlot(ctx context.Context, slotID string) (*ConfirmSlotResponse, error) {
	body := map[string]string{"slot_id": slotID}

	var result ConfirmSlotResponse
	if err := c.do(ctx, http.MethodPost, "/api/scheduling/confirm", body, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// =============================================================================
// PAYMENTS
// =============================================================================

// Payment statuses.
const (
	PaymentPending   = "pending"
	PaymentConfirmed = "confirmed"
	PaymentFailed    = "failed"
)

// Payment is a payment attempt and its result.
type Payment struct {
	ID       string  `json:"id"`
	Amount   float64 `json:"amount"`
	Currency string  `json:"currency"`
	Status   string  `json:"status"`
}

// CreatePayment opens a pending payment for the given amount.
func (c *Client) CreatePayment(ctx context.Context, amount float64) (*Payment, error) {
	body := map[string]float64{"amount": amount}

	var result Payment
	if err := c.do(ctx, http.MethodPost, "/api/payments/create", body, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// PaymentStatus fetches the current state of a payment.
func (c *Client) PaymentStatus(ctx context.Context, paymentID string) (*Payment, error) {
	var result Payment
	if err := c.do(ctx, http.MethodGet, "/api/payments/"+paymentID+"/status", nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// ConfirmPayment settles a pending payment.
func (c *Client) ConfirmPayment(ctx context.Context, paymentID string) (*Payment, error) {
	var result Payment
	if err := c.do(ctx, http.MethodPost, "/api/payments/"+paymentID+"/confirm", nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}
