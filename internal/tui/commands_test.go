package tui

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/require"
)

func TestParseSlash(t *testing.T) {
	tests := []struct {
		input    string
		wantName string
		wantArgs []string
		wantOK   bool
	}{
		{input: "/new", wantName: "new", wantArgs: []string{}, wantOK: true},
		{input: "  /Example 3 ", wantName: "example", wantArgs: []string{"3"}, wantOK: true},
		{input: "/", wantName: "", wantOK: true},
		{input: "//etc/hosts", wantOK: false},
		{input: "Book a flight", wantOK: false},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			name, args, ok := parseSlash(tt.input)
			require.Equal(t, tt.wantOK, ok)
			require.Equal(t, tt.wantName, name)
			if tt.wantOK && tt.wantName != "" {
				require.Equal(t, tt.wantArgs, args)
			}
		})
	}
}

func TestUnescapeGoal(t *testing.T) {
	require.Equal(t, "/etc/hosts", unescapeGoal("//etc/hosts"))
	require.Equal(t, "plain", unescapeGoal("plain"))
}

func TestSuggestCommand(t *testing.T) {
	c, ok := suggestCommand("relaod")
	require.True(t, ok)
	require.Equal(t, "reload", c.Name)

	c, ok = suggestCommand("qiut")
	require.True(t, ok)
	require.Equal(t, "quit", c.Name)

	_, ok = suggestCommand("deploy-production")
	require.False(t, ok)
}

func TestIsCommand(t *testing.T) {
	require.True(t, isCommand(""))
	require.True(t, isCommand("reload"))
	require.True(t, isCommand("nwe"))
	require.False(t, isCommand("etc/hosts"))
	require.False(t, isCommand("deploy-production"))
}

func TestCommandNamesAreUnique(t *testing.T) {
	seen := map[string]bool{}
	for _, c := range slashCommands() {
		require.False(t, seen[c.Name], c.Name)
		seen[c.Name] = true
		require.NotNil(t, c.Run)
	}
}

func TestExampleIndex(t *testing.T) {
	i, ok := exampleIndex(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'3'}, Alt: true})
	require.True(t, ok)
	require.Equal(t, 2, i)

	_, ok = exampleIndex(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'3'}})
	require.False(t, ok)
	_, ok = exampleIndex(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'x'}, Alt: true})
	require.False(t, ok)
}

func TestOverlayCenterKeepsWidth(t *testing.T) {
	base := "aaaaaaaaaa\nbbbbbbbbbb\ncccccccccc"
	out := overlayCenter(base, "XX", 10, 3)
	lines := splitLines(out)
	require.Len(t, lines, 3)
	require.Equal(t, "bbbbXXbbbb", lines[1])
	require.Equal(t, "aaaaaaaaaa", lines[0])
}
