package submission

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jask/agentdesk/internal/agentapi"
	"github.com/jask/agentdesk/internal/conversation"
)

type guard bool

func (g guard) Confirmed() bool { return bool(g) }

type fakeExec struct {
	goals []string
	resp  agentapi.TaskResponse
	err   error
	wait  bool
}

func (f *fakeExec) ExecuteTask(ctx context.Context, goal string) (agentapi.TaskResponse, error) {
	f.goals = append(f.goals, goal)
	if f.wait {
		<-ctx.Done()
		return agentapi.TaskResponse{}, ctx.Err()
	}
	return f.resp, f.err
}

func TestEmptyGoalIsSilentNoop(t *testing.T) {
	for _, goal := range []string{"", " ", "\n\t  "} {
		log := conversation.NewLog()
		exec := &fakeExec{}
		c := NewController(guard(true), log, exec, Options{})

		_, err := c.Begin(goal)
		require.ErrorIs(t, err, ErrEmptyGoal)
		require.True(t, log.Empty())
		require.Empty(t, exec.goals)
		require.False(t, c.Busy())
	}
}

func TestUnsetGateBlocksBeforePending(t *testing.T) {
	log := conversation.NewLog()
	exec := &fakeExec{}
	c := NewController(guard(false), log, exec, Options{})

	_, err := c.Begin("Book a flight")
	require.ErrorIs(t, err, ErrCredentialRequired)
	require.True(t, log.Empty(), "no placeholder without a credential")
	require.Empty(t, exec.goals)
	require.Equal(t, StateIdle, c.State())
}

func TestBookAFlightScenario(t *testing.T) {
	log := conversation.NewLog()
	exec := &fakeExec{resp: agentapi.TaskResponse{
		Success:      true,
		ExecutionLog: []agentapi.Step{{Step: 1, Status: "success", Description: "Searched flights"}},
	}}
	c := NewController(guard(true), log, exec, Options{})

	a, err := c.Begin("  Book a flight ")
	require.NoError(t, err)
	require.Equal(t, "Book a flight", a.Goal)
	require.True(t, c.Busy())

	entries := log.Entries()
	require.Len(t, entries, 2)
	require.Equal(t, conversation.RoleUser, entries[0].Role)
	require.Equal(t, "Book a flight", entries[0].Content.Text)
	require.Equal(t, a.EntryID, entries[1].ID)
	require.True(t, entries[1].Pending)

	res := c.Run(context.Background(), a)
	require.Equal(t, []string{"Book a flight"}, exec.goals)
	require.Equal(t, OutcomeSuccess, res.Outcome)

	require.True(t, c.Resolve(res))
	require.False(t, c.Busy())

	e, ok := log.Get(a.EntryID)
	require.True(t, ok)
	require.False(t, e.Pending)
	require.Equal(t, SuccessSummary, e.Content.Text)
	require.Len(t, e.Content.Steps, 1)
	require.Equal(t, "success", e.Content.Steps[0].Status)
	require.False(t, e.Content.Steps[0].HasResult())
	require.False(t, e.Content.Steps[0].HasError())
}

func TestSecondSubmissionWhilePendingIsRefused(t *testing.T) {
	log := conversation.NewLog()
	c := NewController(guard(true), log, &fakeExec{}, Options{})

	_, err := c.Begin("one")
	require.NoError(t, err)
	_, err = c.Begin("two")
	require.ErrorIs(t, err, ErrBusy)
	require.Equal(t, 2, log.Len())
}

func TestSubmitReenabledOnEveryPath(t *testing.T) {
	tests := []struct {
		name    string
		exec    *fakeExec
		outcome Outcome
		message string
	}{
		{
			name:    "success",
			exec:    &fakeExec{resp: agentapi.TaskResponse{Success: true, ExecutionLog: []agentapi.Step{}}},
			outcome: OutcomeSuccess,
		},
		{
			name:    "backend error",
			exec:    &fakeExec{err: &agentapi.APIError{StatusCode: http.StatusUnauthorized, Message: "API key not set"}},
			outcome: OutcomeError,
			message: "Error: API key not set",
		},
		{
			name:    "error payload",
			exec:    &fakeExec{resp: agentapi.TaskResponse{Error: "planner exploded"}},
			outcome: OutcomeError,
			message: "Error: planner exploded",
		},
		{
			name:    "transport",
			exec:    &fakeExec{err: errors.New("perform request: connection refused")},
			outcome: OutcomeError,
			message: "Error: perform request: connection refused",
		},
		{
			name:    "neither success nor error",
			exec:    &fakeExec{resp: agentapi.TaskResponse{}},
			outcome: OutcomeError,
			message: "Error: task failed",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			log := conversation.NewLog()
			c := NewController(guard(true), log, tt.exec, Options{})

			a, err := c.Begin("goal")
			require.NoError(t, err)
			require.True(t, c.Busy())

			res := c.Run(context.Background(), a)
			require.True(t, c.Busy(), "still pending until resolved")
			require.Equal(t, tt.outcome, res.Outcome)
			require.Equal(t, tt.message, res.Message)

			c.Resolve(res)
			require.False(t, c.Busy())

			e, _ := log.Get(a.EntryID)
			require.False(t, e.Pending)
			if tt.outcome == OutcomeError {
				require.Equal(t, tt.message, e.Content.Error)
				require.False(t, e.Content.IsReport())
			} else {
				require.True(t, e.Content.IsReport())
			}
		})
	}
}

func TestResolveAfterResetStillGoesIdle(t *testing.T) {
	log := conversation.NewLog()
	c := NewController(guard(true), log, &fakeExec{resp: agentapi.TaskResponse{Success: true}}, Options{})

	a, err := c.Begin("goal")
	require.NoError(t, err)
	log.Reset()

	require.False(t, c.Resolve(c.Run(context.Background(), a)))
	require.False(t, c.Busy())
	require.True(t, log.Empty())
}

func TestTimeoutResolvesAsError(t *testing.T) {
	log := conversation.NewLog()
	c := NewController(guard(true), log, &fakeExec{wait: true}, Options{Timeout: 20 * time.Millisecond})

	a, err := c.Begin("goal")
	require.NoError(t, err)
	res := c.Run(context.Background(), a)
	require.Equal(t, OutcomeError, res.Outcome)
	require.Contains(t, res.Message, context.DeadlineExceeded.Error())
}

func TestStateString(t *testing.T) {
	require.Equal(t, "idle", StateIdle.String())
	require.Equal(t, "pending", StatePending.String())
}
