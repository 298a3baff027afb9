// Package tui is the terminal chat page: conversation view, goal input,
// credential prompt and alerts.
package tui

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/jask/agentdesk/internal/agentapi"
	"github.com/jask/agentdesk/internal/conversation"
	"github.com/jask/agentdesk/internal/session"
	"github.com/jask/agentdesk/internal/submission"
	"github.com/jask/agentdesk/internal/teardown"
)

const (
	alertEmptyCredential = "Please enter a valid API key"
	alertRejected        = "Failed to set API key"
	maxInputLines        = 6
)

// HealthChecker pings the backend. Optional.
type HealthChecker interface {
	Health(ctx context.Context) (agentapi.Health, error)
}

// Deps are the collaborators the page drives.
type Deps struct {
	Gate       *session.Gate
	Log        *conversation.Log
	Controller *submission.Controller
	Notifier   *teardown.Notifier
	Health     HealthChecker
	Examples   []string
	Logger     *slog.Logger
}

type verifyDoneMsg struct {
	page int
	err  error
}

type credentialDoneMsg struct {
	page int
	err  error
}

type taskDoneMsg struct {
	res submission.Resolution
}

type healthMsg struct {
	page   int
	health agentapi.Health
	err    error
}

// Model is one page lifetime; reload starts a new one in place.
type Model struct {
	gate       *session.Gate
	log        *conversation.Log
	controller *submission.Controller
	notifier   *teardown.Notifier
	health     HealthChecker
	examples   []string
	logger     *slog.Logger

	parent context.Context
	ctx    context.Context
	cancel context.CancelFunc
	page   int

	width  int
	height int

	input    textarea.Model
	keyInput textinput.Model
	viewport viewport.Model
	spinner  spinner.Model
	help     help.Model
	keys     keyMap

	verifying     bool
	prompt        bool
	sendingKey    bool
	alert         string
	notice        string
	backendStatus string
	quitting      bool
}

func New(parent context.Context, d Deps) *Model {
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}
	keys := newKeyMap()

	input := textarea.New()
	input.Placeholder = "Describe a task for the agent..."
	input.ShowLineNumbers = false
	input.Prompt = ""
	input.CharLimit = 4000
	input.SetHeight(1)
	input.KeyMap.InsertNewline = keys.Newline
	input.Focus()

	keyInput := textinput.New()
	keyInput.Placeholder = "API key"
	keyInput.EchoMode = textinput.EchoPassword
	keyInput.EchoCharacter = '•'
	keyInput.Width = 40

	spin := spinner.New(spinner.WithSpinner(spinner.Dot))
	spin.Style = lipgloss.NewStyle().Foreground(colorInfo)

	m := &Model{
		gate:       d.Gate,
		log:        d.Log,
		controller: d.Controller,
		notifier:   d.Notifier,
		health:     d.Health,
		examples:   d.Examples,
		logger:     logger,
		parent:     parent,
		width:      80,
		height:     24,
		input:      input,
		keyInput:   keyInput,
		viewport:   viewport.New(78, 10),
		spinner:    spin,
		help:       help.New(),
		keys:       keys,
	}
	m.ctx, m.cancel = context.WithCancel(parent)
	m.startPage()
	return m
}

// startPage is the page-load half of a (re)load: nothing is trusted until
// the cached credential is re-verified.
func (m *Model) startPage() {
	m.gate.Reset()
	m.log.Reset()
	m.input.Reset()
	m.keyInput.Reset()
	m.verifying = true
	m.prompt = false
	m.sendingKey = false
	m.alert = ""
	m.notice = ""
	m.layout()
}

func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, textarea.Blink, m.verifyCmd(), m.healthCmd())
}

func (m *Model) verifyCmd() tea.Cmd {
	ctx, page, gate := m.ctx, m.page, m.gate
	return func() tea.Msg {
		return verifyDoneMsg{page: page, err: gate.Verify(ctx)}
	}
}

func (m *Model) submitKeyCmd(candidate string) tea.Cmd {
	ctx, page, gate := m.ctx, m.page, m.gate
	return func() tea.Msg {
		return credentialDoneMsg{page: page, err: gate.Submit(ctx, candidate)}
	}
}

func (m *Model) runTaskCmd(a submission.Attempt) tea.Cmd {
	ctx, ctrl := m.ctx, m.controller
	return func() tea.Msg {
		return taskDoneMsg{res: ctrl.Run(ctx, a)}
	}
}

func (m *Model) healthCmd() tea.Cmd {
	if m.health == nil {
		return nil
	}
	ctx, page, hc := m.ctx, m.page, m.health
	return func() tea.Msg {
		h, err := hc.Health(ctx)
		return healthMsg{page: page, health: h, err: err}
	}
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.layout()
		return m, nil
	case tea.KeyMsg:
		return m, m.handleKey(msg)
	case tea.MouseMsg:
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		if m.controller.Busy() {
			m.refresh(false)
		}
		return m, cmd
	case verifyDoneMsg:
		if msg.page != m.page {
			return m, nil
		}
		m.verifying = false
		if msg.err != nil {
			m.showPrompt()
		} else {
			m.hidePrompt()
		}
		return m, nil
	case credentialDoneMsg:
		if msg.page != m.page {
			return m, nil
		}
		m.handleCredentialDone(msg.err)
		return m, nil
	case taskDoneMsg:
		m.controller.Resolve(msg.res)
		m.refresh(true)
		return m, nil
	case healthMsg:
		if msg.page != m.page {
			return m, nil
		}
		if msg.err != nil {
			m.backendStatus = "backend unreachable"
			m.logger.Warn("health check failed", "error", msg.err)
		} else {
			m.backendStatus = "backend " + msg.health.Status
		}
		return m, nil
	}
	return m, nil
}

func (m *Model) handleKey(msg tea.KeyMsg) tea.Cmd {
	if key.Matches(msg, m.keys.Quit) {
		return m.quit()
	}
	if m.alert != "" {
		switch msg.String() {
		case "enter", "esc", " ":
			m.alert = ""
		}
		return nil
	}
	if m.prompt {
		return m.handlePromptKey(msg)
	}

	switch {
	case key.Matches(msg, m.keys.Send):
		return m.send()
	case key.Matches(msg, m.keys.NewChat):
		m.newChat()
		return nil
	case key.Matches(msg, m.keys.Reload):
		return m.reload()
	case key.Matches(msg, m.keys.Credential):
		m.showPrompt()
		return nil
	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
		m.layout()
		return nil
	case key.Matches(msg, m.keys.ScrollUp, m.keys.ScrollDown):
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return cmd
	case key.Matches(msg, m.keys.Example):
		if i, ok := exampleIndex(msg); ok {
			return m.useExample(i)
		}
		return nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	m.notice = ""
	m.layout()
	return cmd
}

func (m *Model) handlePromptKey(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "esc":
		m.hidePrompt()
		return nil
	case "enter":
		if m.sendingKey {
			return nil
		}
		candidate := m.keyInput.Value()
		if strings.TrimSpace(candidate) == "" {
			m.alert = alertEmptyCredential
			return nil
		}
		m.sendingKey = true
		return m.submitKeyCmd(candidate)
	}
	var cmd tea.Cmd
	m.keyInput, cmd = m.keyInput.Update(msg)
	return cmd
}

func (m *Model) handleCredentialDone(err error) {
	m.sendingKey = false
	switch {
	case err == nil:
		m.hidePrompt()
		m.keyInput.Reset()
		m.log.Append(conversation.Text(session.WelcomeMessage), conversation.RoleAgent, false)
		m.refresh(true)
	case errors.Is(err, session.ErrCredentialRejected), errors.Is(err, session.ErrEmptyCredential):
		m.alert = alertRejected
	default:
		m.alert = "Error: " + err.Error()
	}
}

// send handles enter in the goal input: slash commands first, then a
// submission.
func (m *Model) send() tea.Cmd {
	value := m.input.Value()
	if name, args, ok := parseSlash(value); ok && isCommand(name) {
		return m.runSlash(name, args)
	}
	return m.submit(unescapeGoal(value))
}

func (m *Model) submit(goal string) tea.Cmd {
	a, err := m.controller.Begin(goal)
	switch {
	case errors.Is(err, submission.ErrCredentialRequired):
		m.showPrompt()
		return nil
	case errors.Is(err, submission.ErrEmptyGoal):
		return nil
	case errors.Is(err, submission.ErrBusy):
		m.notice = "still working on the previous task"
		return nil
	case err != nil:
		m.alert = "Error: " + err.Error()
		return nil
	}
	m.input.Reset()
	m.notice = ""
	m.layout()
	m.refresh(true)
	return m.runTaskCmd(a)
}

func (m *Model) useExample(i int) tea.Cmd {
	if i < 0 || i >= len(m.examples) {
		return nil
	}
	m.input.SetValue(m.examples[i])
	return m.submit(m.examples[i])
}

// newChat clears the conversation. The credential gate is untouched.
func (m *Model) newChat() {
	m.log.Reset()
	m.input.Reset()
	m.notice = ""
	m.layout()
	m.refresh(true)
	m.logger.Debug("new chat")
}

// reload unloads the current page (teardown, cancel in-flight calls) and
// loads a fresh one.
func (m *Model) reload() tea.Cmd {
	m.notifier.Fire()
	m.notifier.Rearm()
	m.cancel()
	m.ctx, m.cancel = context.WithCancel(m.parent)
	m.page++
	m.startPage()
	m.logger.Info("page reloaded", "page", m.page)
	return tea.Batch(m.verifyCmd(), m.healthCmd())
}

func (m *Model) quit() tea.Cmd {
	m.notifier.Fire()
	m.cancel()
	m.quitting = true
	return tea.Quit
}

func (m *Model) showPrompt() {
	m.prompt = true
	m.input.Blur()
	m.keyInput.Focus()
}

func (m *Model) hidePrompt() {
	m.prompt = false
	m.keyInput.Blur()
	m.input.Focus()
}

// layout sizes the input to its content (up to maxInputLines) and gives the
// rest of the screen to the conversation.
func (m *Model) layout() {
	lines := min(max(m.input.LineCount(), 1), maxInputLines)
	m.input.SetHeight(lines)
	m.input.SetWidth(max(m.width-4, 10))
	m.help.Width = m.width

	chrome := 1 + (lines + 2) + 1 + lipgloss.Height(m.help.View(m.keys))
	m.viewport.Width = m.width
	m.viewport.Height = max(m.height-chrome, 1)
	m.refresh(true)
}

// refresh re-renders the conversation; bottom also scrolls to the latest
// entry.
func (m *Model) refresh(bottom bool) {
	m.viewport.SetContent(renderConversation(m.log.Entries(), m.examples, max(m.width-2, 20), m.spinner.View()))
	if bottom {
		m.viewport.GotoBottom()
	}
}

func (m *Model) View() string {
	if m.quitting {
		return ""
	}
	header := titleStyle.Render("agentdesk") + mutedStyle.Render("  browser agent chat")

	box := inputBoxStyle
	if m.controller.Busy() {
		box = inputBoxBusyStyle
	}
	input := box.Width(max(m.width-2, 10)).Render(m.input.View())

	body := lipgloss.JoinVertical(lipgloss.Left,
		header,
		m.viewport.View(),
		input,
		m.statusLine(),
		m.help.View(m.keys),
	)
	if m.prompt {
		body = overlayCenter(body, m.renderPrompt(), m.width, m.height)
	}
	if m.alert != "" {
		body = overlayCenter(body, alertStyle.Render(m.alert+"\n\n"+mutedStyle.Render("enter to dismiss")), m.width, m.height)
	}
	return body
}

func (m *Model) statusLine() string {
	var parts []string
	switch {
	case m.verifying:
		parts = append(parts, "checking API key...")
	case m.gate.Confirmed():
		parts = append(parts, "API key set")
	default:
		parts = append(parts, "no API key")
	}
	if m.controller.Busy() {
		parts = append(parts, m.spinner.View()+" working")
	}
	if m.backendStatus != "" {
		parts = append(parts, m.backendStatus)
	}
	if m.notice != "" {
		parts = append(parts, m.notice)
	}
	line := truncate(strings.Join(parts, " · "), m.width)
	return statusBarStyle.Width(m.width).Render(line)
}

func (m *Model) renderPrompt() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Enter your API key"))
	b.WriteString("\n\n")
	b.WriteString(m.keyInput.View())
	b.WriteString("\n\n")
	if m.sendingKey {
		b.WriteString(mutedStyle.Render("checking..."))
	} else {
		b.WriteString(mutedStyle.Render("enter to save · esc to close"))
	}
	return modalStyle.Render(b.String())
}
