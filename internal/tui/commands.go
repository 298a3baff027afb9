package tui

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/agnivade/levenshtein"
	tea "github.com/charmbracelet/bubbletea"
)

// Slash commands typed into the goal input. A leading "//" escapes the slash
// so a goal can still start with "/".
type slashCommand struct {
	Name  string
	Usage string
	Help  string
	Run   func(m *Model, args []string) tea.Cmd
}

func slashCommands() []slashCommand {
	return []slashCommand{
		{Name: "new", Usage: "/new", Help: "start a new chat", Run: func(m *Model, _ []string) tea.Cmd {
			m.newChat()
			return nil
		}},
		{Name: "reload", Usage: "/reload", Help: "reload the session", Run: func(m *Model, _ []string) tea.Cmd {
			return m.reload()
		}},
		{Name: "key", Usage: "/key", Help: "enter an API key", Run: func(m *Model, _ []string) tea.Cmd {
			m.showPrompt()
			return nil
		}},
		{Name: "example", Usage: "/example N", Help: "run example goal N", Run: func(m *Model, args []string) tea.Cmd {
			if len(args) != 1 {
				m.notice = "usage: /example N"
				return nil
			}
			n, err := strconv.Atoi(args[0])
			if err != nil || n < 1 || n > len(m.examples) {
				m.notice = fmt.Sprintf("no example %q (1-%d)", args[0], len(m.examples))
				return nil
			}
			return m.useExample(n - 1)
		}},
		{Name: "help", Usage: "/help", Help: "toggle key help", Run: func(m *Model, _ []string) tea.Cmd {
			m.help.ShowAll = !m.help.ShowAll
			m.layout()
			return nil
		}},
		{Name: "quit", Usage: "/quit", Help: "quit", Run: func(m *Model, _ []string) tea.Cmd {
			return m.quit()
		}},
	}
}

// parseSlash splits "/name arg..." input. ok is false for ordinary goals,
// including the "//" escape.
func parseSlash(input string) (name string, args []string, ok bool) {
	s := strings.TrimSpace(input)
	if !strings.HasPrefix(s, "/") || strings.HasPrefix(s, "//") {
		return "", nil, false
	}
	fields := strings.Fields(s[1:])
	if len(fields) == 0 {
		return "", nil, true
	}
	return strings.ToLower(fields[0]), fields[1:], true
}

// unescapeGoal turns "//goal" back into "/goal".
func unescapeGoal(input string) string {
	s := strings.TrimSpace(input)
	if strings.HasPrefix(s, "//") {
		return s[1:]
	}
	return input
}

func lookupCommand(name string) (slashCommand, bool) {
	for _, c := range slashCommands() {
		if c.Name == name {
			return c, true
		}
	}
	return slashCommand{}, false
}

// suggestCommand returns the closest known command within two edits.
func suggestCommand(name string) (slashCommand, bool) {
	best, bestDist := slashCommand{}, 3
	for _, c := range slashCommands() {
		if d := levenshtein.ComputeDistance(name, c.Name); d < bestDist {
			best, bestDist = c, d
		}
	}
	return best, bestDist < 3
}

func (m *Model) runSlash(name string, args []string) tea.Cmd {
	m.input.Reset()
	m.layout()
	if name == "" {
		m.notice = commandSummary()
		return nil
	}
	cmd, ok := lookupCommand(name)
	if !ok {
		s, _ := suggestCommand(name)
		m.notice = fmt.Sprintf("unknown command /%s, did you mean %s?", name, s.Usage)
		return nil
	}
	return cmd.Run(m, args)
}

// isCommand reports whether a parsed slash name should be handled as a
// command. Anything that is neither a command nor a near miss of one, such as
// a path, is sent as a goal.
func isCommand(name string) bool {
	if name == "" {
		return true
	}
	if _, ok := lookupCommand(name); ok {
		return true
	}
	if strings.Contains(name, "/") {
		return false
	}
	_, ok := suggestCommand(name)
	return ok
}

func commandSummary() string {
	cmds := slashCommands()
	parts := make([]string, 0, len(cmds))
	for _, c := range cmds {
		parts = append(parts, c.Usage)
	}
	return "commands: " + strings.Join(parts, " ")
}
