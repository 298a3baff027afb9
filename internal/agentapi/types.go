package agentapi

import "fmt"

// Step statuses the backend is known to emit. Any other token is passed
// through untouched.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Step is one backend-reported unit of work performed for a goal.
type Step struct {
	Step        int    `json:"step"`
	Status      string `json:"status"`
	Description string `json:"description"`
	Result      string `json:"result,omitempty"`
	Error       string `json:"error,omitempty"`
}

// HasResult reports whether the step carries result text.
func (s Step) HasResult() bool { return s.Result != "" }

// HasError reports whether the step carries error text.
func (s Step) HasError() bool { return s.Error != "" }

// KeyRequest is the body of POST /api/set-api-key.
type KeyRequest struct {
	APIKey string `json:"api_key"`
}

// KeyResponse is the success body of POST /api/set-api-key.
type KeyResponse struct {
	Message   string `json:"message,omitempty"`
	SessionID string `json:"session_id,omitempty"`
	Error     string `json:"error,omitempty"`
}

// TaskRequest is the body of POST /api/execute-task.
type TaskRequest struct {
	Goal string `json:"goal"`
}

// TaskResponse is either a success payload with an execution log or an
// error payload.
type TaskResponse struct {
	Success      bool   `json:"success"`
	ExecutionLog []Step `json:"execution_log,omitempty"`
	Error        string `json:"error,omitempty"`
}

// Health is the body of GET /api/health.
type Health struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// APIError is a failure reported by the backend itself, as opposed to a
// transport failure.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("agent api error (%d): %s", e.StatusCode, e.Message)
}
