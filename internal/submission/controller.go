// Package submission runs one goal submission at a time:
// Idle -> Pending -> (success | error) -> Idle.
//
// Begin and Resolve mutate the conversation and must be called from the UI
// loop. Run is the blocking backend call and touches no shared state, so it
// can run inside a command goroutine.
package submission

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/jask/agentdesk/internal/agentapi"
	"github.com/jask/agentdesk/internal/conversation"
)

const (
	PlaceholderText = "Analyzing your request and planning steps..."
	SuccessSummary  = "I've completed the task! Here's what I did:"
)

var (
	ErrCredentialRequired = errors.New("credential required")
	ErrEmptyGoal          = errors.New("goal is empty")
	ErrBusy               = errors.New("a submission is already pending")
)

type State int

const (
	StateIdle State = iota
	StatePending
)

func (s State) String() string {
	if s == StatePending {
		return "pending"
	}
	return "idle"
}

// Guard reports whether the credential gate is satisfied.
type Guard interface {
	Confirmed() bool
}

// Executor sends a goal to the backend.
type Executor interface {
	ExecuteTask(ctx context.Context, goal string) (agentapi.TaskResponse, error)
}

// Attempt is an accepted submission waiting for Run.
type Attempt struct {
	Goal    string
	EntryID string
}

type Outcome int

const (
	OutcomeSuccess Outcome = iota
	OutcomeError
)

// Resolution is the result of Run, applied with Resolve.
type Resolution struct {
	EntryID string
	Outcome Outcome
	Steps   []agentapi.Step
	Message string
}

// Options tunes a Controller.
type Options struct {
	// Timeout bounds each backend call. Zero waits indefinitely.
	Timeout time.Duration
	Logger  *slog.Logger
}

type Controller struct {
	guard   Guard
	log     *conversation.Log
	exec    Executor
	timeout time.Duration
	logger  *slog.Logger

	state    State
	inflight string
}

func NewController(guard Guard, log *conversation.Log, exec Executor, opts Options) *Controller {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Controller{guard: guard, log: log, exec: exec, timeout: opts.Timeout, logger: logger}
}

func (c *Controller) State() State { return c.state }

// Busy reports whether the submit control is disabled.
func (c *Controller) Busy() bool { return c.state == StatePending }

// Begin checks the gate, then the goal, then single flight. On success it
// appends the user entry and the pending agent placeholder and moves to
// Pending.
func (c *Controller) Begin(goal string) (Attempt, error) {
	if !c.guard.Confirmed() {
		return Attempt{}, ErrCredentialRequired
	}
	goal = strings.TrimSpace(goal)
	if goal == "" {
		return Attempt{}, ErrEmptyGoal
	}
	if c.state == StatePending {
		return Attempt{}, ErrBusy
	}

	c.log.Append(conversation.Text(goal), conversation.RoleUser, false)
	id := c.log.Append(conversation.Text(PlaceholderText), conversation.RoleAgent, true)
	c.state = StatePending
	c.inflight = id
	c.logger.Info("goal submitted", "entry_id", id, "goal_len", len(goal))
	return Attempt{Goal: goal, EntryID: id}, nil
}

// Run performs the backend call for a.
func (c *Controller) Run(ctx context.Context, a Attempt) Resolution {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	resp, err := c.exec.ExecuteTask(ctx, a.Goal)
	return Classify(a.EntryID, resp, err)
}

// Classify maps a backend answer onto a Resolution. Transport failures and
// backend-reported errors look the same to the user.
func Classify(entryID string, resp agentapi.TaskResponse, err error) Resolution {
	var apiErr *agentapi.APIError
	switch {
	case errors.As(err, &apiErr):
		return Resolution{EntryID: entryID, Outcome: OutcomeError, Message: "Error: " + apiErr.Message}
	case err != nil:
		return Resolution{EntryID: entryID, Outcome: OutcomeError, Message: "Error: " + err.Error()}
	case resp.Error != "":
		return Resolution{EntryID: entryID, Outcome: OutcomeError, Message: "Error: " + resp.Error}
	case !resp.Success:
		return Resolution{EntryID: entryID, Outcome: OutcomeError, Message: "Error: task failed"}
	}
	return Resolution{EntryID: entryID, Outcome: OutcomeSuccess, Steps: resp.ExecutionLog}
}

// Resolve replaces the placeholder and returns to Idle. The placeholder may
// already be gone (new chat while pending); the controller still goes Idle.
// It reports whether an entry was replaced.
func (c *Controller) Resolve(r Resolution) bool {
	var content conversation.Content
	if r.Outcome == OutcomeSuccess {
		content = conversation.Report(SuccessSummary, r.Steps)
	} else {
		content = conversation.Failure(r.Message)
	}
	replaced := c.log.Replace(r.EntryID, content)
	if r.EntryID == c.inflight {
		c.state = StateIdle
		c.inflight = ""
	}
	if r.Outcome == OutcomeSuccess {
		c.logger.Info("goal resolved", "entry_id", r.EntryID, "steps", len(r.Steps), "replaced", replaced)
	} else {
		c.logger.Warn("goal failed", "entry_id", r.EntryID, "message", r.Message, "replaced", replaced)
	}
	return replaced
}
