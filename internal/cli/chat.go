package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"charm.land/bubbles/v2/spinner"
	"charm.land/bubbles/v2/textinput"
	tea "charm.land/bubbletea/v2"
	"github.com/sagehealth/sage/internal/intake"
	"github.com/sagehealth/sage/internal/journey"
	"github.com/sagehealth/sage/internal/scheduling"
	"github.com/spf13/cobra"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start or continue your intake conversation",
	Long: `Open the intake conversation. A short chat helps us understand what you
are going through and match you with a support group.

Press Enter to send, Ctrl+R to start over, Esc to leave. The
conversation is saved; you can come back anytime.`,
	Args: cobra.NoArgs,
	RunE: runChat,
}

func runChat(cmd *cobra.Command, args []string) error {
	if err := requireAuth(cmd); err != nil {
		return err
	}

	ctx := cmd.Context()

	revealCh := make(chan struct{}, 1)
	reveal := intake.NewRevealTimer(intake.TimerScheduler{}, cfg.RevealDelay, func() {
		revealCh <- struct{}{}
	})
	defer reveal.Cancel()

	conv := intake.NewController(apiClient, reveal, logger)

	// Returning users resume where they left off.
	if records, err := apiClient.History(ctx); err != nil {
		logger.Warn("could not load conversation history", "error", err)
	} else {
		conv.SeedHistory(records)
	}

	slots := scheduling.NewGate(apiClient, func() bool { return conv.Match() != nil }, logger)
	restartCtrl := journey.NewRestartController(apiClient, conv, reveal, slots, logger)

	model := newChatModel(ctx, conv, reveal, restartCtrl, revealCh)
	p := tea.NewProgram(model)

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("chat UI error: %w", err)
	}
	return nil
}

// sendDoneMsg reports the outcome of a message send. text is the message
// that was attempted, restored into the input box on failure.
type sendDoneMsg struct {
	text string
	err  error
}

// revealMsg fires when the match reveal pause elapses.
type revealMsg struct{}

// restartDoneMsg reports the outcome of an in-chat restart.
type restartDoneMsg struct {
	err error
}

// chatModel is the bubbletea model for the intake conversation.
type chatModel struct {
	ctx     context.Context
	conv    *intake.Controller
	reveal  *intake.RevealTimer
	restart *journey.RestartController
	consent *intake.ConsentGate

	theme    Theme
	input    textinput.Model
	spin     spinner.Model
	revealCh chan struct{}

	consented  bool
	sending    bool
	restarting bool
	errText    string
	quitting   bool
}

// newChatModel creates a new chat model.
func newChatModel(
	ctx context.Context,
	conv *intake.Controller,
	reveal *intake.RevealTimer,
	restart *journey.RestartController,
	revealCh chan struct{},
) chatModel {
	input := textinput.New()
	input.Placeholder = "Share what's on your mind..."
	input.CharLimit = 2000
	input.Focus()

	spin := spinner.New(spinner.WithSpinner(spinner.Dot))

	return chatModel{
		ctx:      ctx,
		conv:     conv,
		reveal:   reveal,
		restart:  restart,
		consent:  &intake.ConsentGate{},
		theme:    defaultTheme,
		input:    input,
		spin:     spin,
		revealCh: revealCh,
	}
}

// Init returns the initial commands.
func (m chatModel) Init() tea.Cmd {
	return tea.Batch(
		m.spin.Tick,
		waitReveal(m.revealCh),
	)
}

// Update handles messages and returns the updated model.
func (m chatModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyPressMsg:
		if !m.consented {
			return m.updateConsent(msg)
		}
		return m.updateChat(msg)

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd

	case sendDoneMsg:
		m.sending = false
		if msg.err != nil {
			m.errText = sendErrorText(msg.err)
			if !errors.Is(msg.err, intake.ErrIntakeComplete) {
				m.input.SetValue(msg.text)
			}
		} else {
			m.errText = ""
		}
		return m, nil

	case revealMsg:
		// Re-arm for a possible new match after a restart.
		return m, waitReveal(m.revealCh)

	case restartDoneMsg:
		m.restarting = false
		if msg.err != nil {
			m.errText = fmt.Sprintf("Could not start over: %v", msg.err)
		} else {
			m.errText = ""
		}
		return m, nil
	}

	return m, nil
}

func (m chatModel) updateConsent(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "y", "Y":
		m.consent.GrantConsent()
		m.consented = true
		return m, nil
	case "n", "N", "esc", "ctrl+c":
		m.quitting = true
		return m, tea.Quit
	}
	return m, nil
}

func (m chatModel) updateChat(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "esc":
		m.quitting = true
		return m, tea.Quit

	case "ctrl+r":
		if m.restarting {
			return m, nil
		}
		m.restarting = true
		m.errText = ""
		return m, m.restartCmd()

	case "enter":
		if m.sending || m.restarting || m.conv.State() == intake.StateMatchDetected {
			return m, nil
		}
		text := strings.TrimSpace(m.input.Value())
		if text == "" {
			return m, nil
		}
		m.input.SetValue("")
		m.sending = true
		m.errText = ""
		return m, m.sendCmd(text)
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// View renders the conversation.
func (m chatModel) View() tea.View {
	if !m.consented {
		return tea.NewView(m.renderConsent())
	}
	return tea.NewView(m.renderChat())
}

func (m chatModel) renderConsent() string {
	var b strings.Builder
	b.WriteString(m.theme.accentStyle().Render("Before we begin") + "\n\n")
	b.WriteString("This conversation helps us match you with a support group. It is\n")
	b.WriteString("reviewed only by your care team and is not shared with anyone else.\n")
	b.WriteString("You can start over at any time with Ctrl+R.\n\n")
	b.WriteString(m.theme.hintStyle().Render("[y] I understand, let's begin    [n] not now") + "\n")
	return b.String()
}

func (m chatModel) renderChat() string {
	var b strings.Builder

	for _, turn := range m.conv.Turns() {
		switch turn.Role {
		case intake.RoleUser:
			b.WriteString(m.theme.accentStyle().Render("You: "))
			b.WriteString(turn.Content + "\n\n")
		case intake.RoleAssistant:
			b.WriteString(m.theme.assistantStyle().Render("Sage: "))
			b.WriteString(turn.Content + "\n\n")
		}
	}

	if m.conv.State() == intake.StateMatchDetected {
		if m.reveal.Phase() == intake.RevealRevealed {
			b.WriteString(m.renderMatch())
		} else {
			b.WriteString(m.spin.View() + " Finding your group...\n\n")
		}
	}

	if m.sending {
		b.WriteString(m.spin.View() + " Thinking...\n\n")
	}
	if m.restarting {
		b.WriteString(m.spin.View() + " Starting over...\n\n")
	}
	if m.errText != "" {
		b.WriteString(m.theme.errorStyle().Render(m.errText) + "\n\n")
	}

	if m.conv.State() != intake.StateMatchDetected {
		b.WriteString(m.input.View() + "\n")
	}
	b.WriteString(m.theme.hintStyle().Render("Enter to send · Ctrl+R to start over · Esc to leave") + "\n")

	return b.String()
}

func (m chatModel) renderMatch() string {
	match := m.conv.Match()
	if match == nil {
		return ""
	}

	var b strings.Builder
	b.WriteString(m.theme.successStyle().Render("We found your group!") + "\n\n")
	b.WriteString(fmt.Sprintf("  %s\n", m.theme.successStyle().Render(match.GroupName)))
	if match.GroupFocus != "" {
		b.WriteString(fmt.Sprintf("  Focus: %s\n", match.GroupFocus))
	}
	if match.MatchReason != "" {
		b.WriteString(fmt.Sprintf("  Why: %s\n", match.MatchReason))
	}
	b.WriteString("\n" + m.theme.hintStyle().Render("Run 'sage schedule' to pick a session time.") + "\n\n")
	return b.String()
}

// sendCmd sends a message off the UI goroutine.
func (m chatModel) sendCmd(text string) tea.Cmd {
	return func() tea.Msg {
		return sendDoneMsg{text: text, err: m.conv.Send(m.ctx, text)}
	}
}

// restartCmd wipes the conversation off the UI goroutine.
func (m chatModel) restartCmd() tea.Cmd {
	return func() tea.Msg {
		return restartDoneMsg{err: m.restart.Restart(m.ctx)}
	}
}

// waitReveal blocks until the reveal pause elapses.
func waitReveal(ch chan struct{}) tea.Cmd {
	return func() tea.Msg {
		<-ch
		return revealMsg{}
	}
}

func sendErrorText(err error) string {
	switch {
	case errors.Is(err, intake.ErrIntakeComplete):
		return "Your intake is already complete. Run 'sage status' to see your group."
	case errors.Is(err, intake.ErrSendInFlight):
		return "Still waiting for a reply."
	default:
		return fmt.Sprintf("Message not sent: %v. Press Enter to try again.", err)
	}
}
