package intake

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sagehealth/sage/internal/api"
)

// Local validation errors. These are rejected before any network call.
var (
	// ErrEmptyMessage means the message was empty after trimming.
	ErrEmptyMessage = errors.New("message is empty")

	// ErrSendInFlight means a send is already awaiting its reply.
	ErrSendInFlight = errors.New("a message is already awaiting a reply")

	// ErrIntakeComplete means the conversation reached its match and takes
	// no further messages until a restart.
	ErrIntakeComplete = errors.New("intake is complete")
)

// ConvState is the conversation state machine.
type ConvState int

const (
	// StateIdle accepts the next message.
	StateIdle ConvState = iota

	// StateAwaitingReply has one send in flight. This state is the
	// concurrency gate: while in it, further sends are rejected.
	StateAwaitingReply

	// StateMatchDetected is terminal until a restart.
	StateMatchDetected
)

// Turn roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// welcomeTurnID marks the synthetic opening turn; it never reaches the
// service and reappears alone after every restart.
const welcomeTurnID = "welcome"

const welcomeText = "Hi, I'm here to help you find the right support group. " +
	"This is a safe space where you can share openly. Everything you tell me " +
	"is confidential and will only be used to match you with others who " +
	"understand what you're going through.\n\n" +
	"To start, could you tell me a bit about what's been on your mind lately?"

// Turn is one message in the intake conversation.
type Turn struct {
	ID      string
	Role    string
	Content string
	At      time.Time
}

// Match is the group assignment revealed when intake completes.
type Match struct {
	GroupID     string
	GroupName   string
	GroupFocus  string
	MatchReason string
}

// Sender is the slice of the api client the controller needs.
type Sender interface {
	SendMessage(ctx context.Context, message string) (*api.SendResponse, error)
}

// Controller drives the turn-by-turn intake conversation.
type Controller struct {
	sender Sender
	reveal *RevealTimer
	logger *slog.Logger
	clock  func() time.Time

	mu    sync.Mutex
	state ConvState
	turns []Turn
	match *Match
}

// NewController creates a conversation controller seeded with the synthetic
// welcome turn.
func NewController(sender Sender, reveal *RevealTimer, logger *slog.Logger) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Controller{
		sender: sender,
		reveal: reveal,
		logger: logger,
		clock:  time.Now,
	}
	c.turns = []Turn{c.welcomeTurn()}
	return c
}

func (c *Controller) welcomeTurn() Turn {
	return Turn{
		ID:      welcomeTurnID,
		Role:    RoleAssistant,
		Content: welcomeText,
		At:      c.clock(),
	}
}

// Send submits one user message. The user turn appears immediately
// (optimistic); the assistant turn follows when the reply lands. A failed
// send keeps the optimistic turn visible, returns the controller to idle,
// and is never retried automatically.
func (c *Controller) Send(ctx context.Context, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return ErrEmptyMessage
	}

	c.mu.Lock()
	switch c.state {
	case StateAwaitingReply:
		c.mu.Unlock()
		return ErrSendInFlight
	case StateMatchDetected:
		c.mu.Unlock()
		return ErrIntakeComplete
	}
	c.turns = append(c.turns, Turn{
		ID:      "user-" + uuid.NewString(),
		Role:    RoleUser,
		Content: text,
		At:      c.clock(),
	})
	c.state = StateAwaitingReply
	c.mu.Unlock()

	resp, err := c.sender.SendMessage(ctx, text)

	c.mu.Lock()
	defer c.mu.Unlock()

	if err != nil {
		// The optimistic user turn stays; the caller decides what to show.
		c.state = StateIdle
		c.logger.Warn("send failed", "error", err)
		return err
	}

	c.turns = append(c.turns, Turn{
		ID:      resp.TurnID,
		Role:    RoleAssistant,
		Content: resp.Reply,
		At:      c.clock(),
	})

	// Completion is trusted only when the service says so explicitly and
	// names the group; a match leaking in through another path does not end
	// the conversation.
	if resp.IntakeComplete && resp.GroupID != "" && resp.GroupName != "" {
		c.state = StateMatchDetected
		c.match = &Match{
			GroupID:     resp.GroupID,
			GroupName:   resp.GroupName,
			GroupFocus:  resp.GroupFocus,
			MatchReason: resp.MatchReason,
		}
		c.logger.Info("match detected", "group_id", resp.GroupID, "group", resp.GroupName)
		if c.reveal != nil {
			c.reveal.Start()
		}
		return nil
	}

	c.state = StateIdle
	return nil
}

// SeedHistory replaces the local turn list with persisted turns from the
// service, keeping the welcome turn in front. It only applies while idle.
func (c *Controller) SeedHistory(records []api.TurnRecord) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateIdle {
		return
	}
	turns := []Turn{c.welcomeTurn()}
	for _, r := range records {
		turns = append(turns, Turn{
			ID:      r.ID,
			Role:    r.Role,
			Content: r.Content,
			At:      r.CreatedAt,
		})
	}
	c.turns = turns
}

// Reset returns the conversation to its initial state: exactly the welcome
// turn, no match, idle. Only the restart flow calls this, after the
// server-side wipe succeeded.
func (c *Controller) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.turns = []Turn{c.welcomeTurn()}
	c.match = nil
	c.state = StateIdle
}

// State returns the current conversation state.
func (c *Controller) State() ConvState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Turns returns a copy of the conversation turns, oldest first.
func (c *Controller) Turns() []Turn {
	c.mu.Lock()
	defer c.mu.Unlock()
	turns := make([]Turn, len(c.turns))
	copy(turns, c.turns)
	return turns
}

// Match returns the detected group assignment, or nil before completion.
func (c *Controller) Match() *Match {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.match == nil {
		return nil
	}
	match := *c.match
	return &match
}
