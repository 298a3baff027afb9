package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"github.com/jask/agentdesk/internal/agentapi"
	"github.com/jask/agentdesk/internal/conversation"
)

// stepBlock is one rendered execution step. Class carries the backend status
// verbatim and selects the styling.
type stepBlock struct {
	Number      int
	Class       string
	Description string
	Result      string
	Error       string
}

func (b stepBlock) HasResult() bool { return b.Result != "" }
func (b stepBlock) HasError() bool  { return b.Error != "" }

// stepBlocks builds one block per step, in order. Backend text is stripped of
// terminal escape sequences.
func stepBlocks(steps []agentapi.Step) []stepBlock {
	blocks := make([]stepBlock, 0, len(steps))
	for _, s := range steps {
		b := stepBlock{
			Number:      s.Step,
			Class:       ansi.Strip(s.Status),
			Description: ansi.Strip(s.Description),
		}
		if s.HasResult() {
			b.Result = ansi.Strip(s.Result)
		}
		if s.HasError() {
			b.Error = ansi.Strip(s.Error)
		}
		blocks = append(blocks, b)
	}
	return blocks
}

func renderStepBlock(b stepBlock, width int) string {
	color := statusColor(b.Class)
	inner := max(width-4, 10)

	header := stepTitleStyle.Render(fmt.Sprintf("Step %d", b.Number)) + "  " +
		lipgloss.NewStyle().Bold(true).Foreground(color).Render(b.Class)
	lines := []string{header, textStyle.Width(inner).Render(b.Description)}
	if b.HasResult() {
		lines = append(lines, stepResultStyle.Width(inner).Render(b.Result))
	}
	if b.HasError() {
		lines = append(lines, errorTextStyle.Width(inner).Render(b.Error))
	}
	return stepBoxStyle.BorderForeground(color).Width(width - 2).Render(strings.Join(lines, "\n"))
}

func renderReport(c conversation.Content, width int) string {
	parts := []string{textStyle.Width(width).Render(c.Text)}
	for _, b := range stepBlocks(c.Steps) {
		parts = append(parts, renderStepBlock(b, width))
	}
	return strings.Join(parts, "\n")
}

func renderEntry(e conversation.Entry, width int, spin string) string {
	label := agentLabelStyle.Render("AI")
	if e.Role == conversation.RoleUser {
		label = userLabelStyle.Render("You")
	}
	body := max(width-2, 10)

	var content string
	switch {
	case e.Pending:
		// only the indicator; the placeholder text is never shown
		content = spin
		if content == "" {
			content = mutedStyle.Render("...")
		}
	case e.Content.IsError():
		content = errorTextStyle.Width(body).Render(ansi.Strip(e.Content.Error))
	case e.Content.IsReport():
		content = renderReport(e.Content, body)
	default:
		content = textStyle.Width(body).Render(e.Content.Text)
	}
	return label + "\n" + lipgloss.NewStyle().PaddingLeft(2).Render(content)
}

func renderWelcome(examples []string, width int) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("What can I do for you?"))
	b.WriteString("\n")
	b.WriteString(mutedStyle.Width(width).Render("Describe a task and the agent will plan and run it in a browser."))
	b.WriteString("\n\n")
	for i, ex := range examples {
		if i >= 9 {
			break
		}
		fmt.Fprintf(&b, "%s %s\n", mutedStyle.Render(fmt.Sprintf("alt+%d", i+1)), exampleStyle.Render(ex))
	}
	return b.String()
}

// renderConversation draws the welcome screen for an empty log and the
// entries otherwise.
func renderConversation(entries []conversation.Entry, examples []string, width int, spin string) string {
	if len(entries) == 0 {
		return renderWelcome(examples, width)
	}
	parts := make([]string, 0, len(entries))
	for _, e := range entries {
		parts = append(parts, renderEntry(e, width, spin))
	}
	return strings.Join(parts, "\n\n")
}
