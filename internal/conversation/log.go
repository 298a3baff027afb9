// Package conversation holds the ordered list of message entries shown in
// the chat. Entries are only ever appended, except that an entry's content
// may be replaced in place (used to resolve a pending placeholder).
package conversation

import (
	"time"

	"github.com/google/uuid"

	"github.com/jask/agentdesk/internal/agentapi"
)

type Role string

const (
	RoleUser  Role = "user"
	RoleAgent Role = "agent"
)

// Content is what an entry renders: plain text, a single error line, or an
// execution report (summary line plus steps).
type Content struct {
	Text  string
	Error string
	Steps []agentapi.Step
}

func Text(s string) Content { return Content{Text: s} }

func Failure(msg string) Content { return Content{Error: msg} }

// Report builds an execution report. Steps is never nil for a report, so an
// empty execution log still renders as a report.
func Report(summary string, steps []agentapi.Step) Content {
	cp := make([]agentapi.Step, len(steps))
	copy(cp, steps)
	return Content{Text: summary, Steps: cp}
}

func (c Content) IsReport() bool { return c.Steps != nil }

func (c Content) IsError() bool { return c.Error != "" }

// Entry is one message in the conversation.
type Entry struct {
	ID        string
	Role      Role
	Content   Content
	Pending   bool
	CreatedAt time.Time
}

// Log is the conversation. Not safe for concurrent use; the UI loop owns it.
type Log struct {
	entries []Entry
	index   map[string]int
	newID   func() string
	now     func() time.Time
}

func NewLog() *Log {
	return &Log{
		index: map[string]int{},
		newID: func() string { return uuid.Must(uuid.NewV7()).String() },
		now:   time.Now,
	}
}

// Append adds an entry at the end and returns its identifier. A pending
// entry keeps content but is rendered as a loading indicator.
func (l *Log) Append(content Content, role Role, pending bool) string {
	id := l.newID()
	l.index[id] = len(l.entries)
	l.entries = append(l.entries, Entry{
		ID:        id,
		Role:      role,
		Content:   content,
		Pending:   pending,
		CreatedAt: l.now(),
	})
	return id
}

// Replace swaps the content of entry id and clears its pending flag. It
// reports false, changing nothing, when id is unknown.
func (l *Log) Replace(id string, content Content) bool {
	i, ok := l.index[id]
	if !ok {
		return false
	}
	l.entries[i].Content = content
	l.entries[i].Pending = false
	return true
}

// Reset clears every entry. Identifiers handed out before stay unknown.
func (l *Log) Reset() {
	l.entries = nil
	l.index = map[string]int{}
}

func (l *Log) Get(id string) (Entry, bool) {
	i, ok := l.index[id]
	if !ok {
		return Entry{}, false
	}
	return l.entries[i], true
}

// Entries returns a copy in display order.
func (l *Log) Entries() []Entry {
	out := make([]Entry, len(l.entries))
	copy(out, l.entries)
	return out
}

func (l *Log) Len() int { return len(l.entries) }

func (l *Log) Empty() bool { return len(l.entries) == 0 }
