package tui

import (
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
)

type keyMap struct {
	Send       key.Binding
	Newline    key.Binding
	NewChat    key.Binding
	Reload     key.Binding
	Credential key.Binding
	Example    key.Binding
	ScrollUp   key.Binding
	ScrollDown key.Binding
	Help       key.Binding
	Quit       key.Binding
}

func newKeyMap() keyMap {
	examples := make([]string, 0, 9)
	for i := 1; i <= 9; i++ {
		examples = append(examples, "alt+"+strconv.Itoa(i))
	}
	return keyMap{
		Send:       key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "send")),
		Newline:    key.NewBinding(key.WithKeys("alt+enter", "ctrl+j"), key.WithHelp("alt+enter", "newline")),
		NewChat:    key.NewBinding(key.WithKeys("ctrl+n"), key.WithHelp("ctrl+n", "new chat")),
		Reload:     key.NewBinding(key.WithKeys("ctrl+r"), key.WithHelp("ctrl+r", "reload")),
		Credential: key.NewBinding(key.WithKeys("ctrl+k"), key.WithHelp("ctrl+k", "api key")),
		Example:    key.NewBinding(key.WithKeys(examples...), key.WithHelp("alt+1-9", "example")),
		ScrollUp:   key.NewBinding(key.WithKeys("pgup"), key.WithHelp("pgup", "scroll up")),
		ScrollDown: key.NewBinding(key.WithKeys("pgdown"), key.WithHelp("pgdn", "scroll down")),
		Help:       key.NewBinding(key.WithKeys("f1"), key.WithHelp("f1", "help")),
		Quit:       key.NewBinding(key.WithKeys("ctrl+c", "ctrl+q"), key.WithHelp("ctrl+q", "quit")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Send, k.NewChat, k.Credential, k.Help, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Send, k.Newline, k.Example},
		{k.NewChat, k.Reload, k.Credential},
		{k.ScrollUp, k.ScrollDown, k.Help, k.Quit},
	}
}

// exampleIndex returns the zero-based example slot for alt+1..alt+9.
func exampleIndex(msg tea.KeyMsg) (int, bool) {
	digit, ok := strings.CutPrefix(msg.String(), "alt+")
	if !ok || len(digit) != 1 {
		return 0, false
	}
	n, err := strconv.Atoi(digit)
	if err != nil || n < 1 {
		return 0, false
	}
	return n - 1, true
}
