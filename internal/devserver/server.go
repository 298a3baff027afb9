// Package devserver is a local stand-in for the agent backend. It speaks the
// same JSON contract as the real service so the TUI can be exercised without
// a browser-automation stack behind it.
package devserver

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"regexp"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/jask/agentdesk/internal/agentapi"
)

// SessionCookie names the cookie that carries the backend session.
const SessionCookie = "agentdesk_session"

// Planner turns a goal into an execution log.
type Planner func(goal string) []agentapi.Step

type sessionState struct {
	apiKey         string
	browserStopped int
}

// Server keeps per-cookie sessions in memory.
type Server struct {
	Planner Planner
	Logger  *slog.Logger

	mu       sync.Mutex
	sessions map[string]*sessionState
	calls    map[string]int
}

// New returns a Server using the canned planner.
func New(logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		Planner:  CannedPlan,
		Logger:   logger,
		sessions: map[string]*sessionState{},
		calls:    map[string]int{},
	}
}

// Handler returns the chi router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.Recoverer)
	r.Route("/api", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Post("/set-api-key", s.handleSetAPIKey)
		r.Post("/execute-task", s.handleExecuteTask)
		r.Post("/stop-browser", s.handleStopBrowser)
	})
	return r
}

// Calls returns how many times endpoint (e.g. "/api/execute-task") was hit.
func (s *Server) Calls(endpoint string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[endpoint]
}

// BrowserStops returns the number of stop-browser requests across sessions.
func (s *Server) BrowserStops() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := 0
	for _, st := range s.sessions {
		total += st.browserStopped
	}
	return total
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.count(r)
	writeJSON(w, http.StatusOK, agentapi.Health{Status: "ok", Message: "agent dev server is running"})
}

func (s *Server) handleSetAPIKey(w http.ResponseWriter, r *http.Request) {
	s.count(r)
	var req agentapi.KeyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, agentapi.KeyResponse{Error: "invalid request body"})
		return
	}
	if strings.TrimSpace(req.APIKey) == "" {
		writeJSON(w, http.StatusBadRequest, agentapi.KeyResponse{Error: "API key is required"})
		return
	}
	id, st := s.session(w, r)
	s.mu.Lock()
	st.apiKey = req.APIKey
	s.mu.Unlock()
	s.Logger.Info("api key set", "session_id", id)
	writeJSON(w, http.StatusOK, agentapi.KeyResponse{Message: "API key set successfully", SessionID: id})
}

func (s *Server) handleExecuteTask(w http.ResponseWriter, r *http.Request) {
	s.count(r)
	var req agentapi.TaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.Goal) == "" {
		writeJSON(w, http.StatusBadRequest, agentapi.TaskResponse{Error: "Goal is required"})
		return
	}
	id, st := s.session(w, r)
	s.mu.Lock()
	key := st.apiKey
	s.mu.Unlock()
	if key == "" {
		writeJSON(w, http.StatusUnauthorized, agentapi.TaskResponse{Error: "API key not set"})
		return
	}
	steps := s.Planner(req.Goal)
	s.Logger.Info("task executed", "session_id", id, "goal", req.Goal, "steps", len(steps))
	writeJSON(w, http.StatusOK, agentapi.TaskResponse{Success: true, ExecutionLog: steps})
}

func (s *Server) handleStopBrowser(w http.ResponseWriter, r *http.Request) {
	s.count(r)
	_, st := s.session(w, r)
	s.mu.Lock()
	st.browserStopped++
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]string{"message": "Browser stopped"})
}

// session returns the caller's session, issuing a cookie on first contact.
func (s *Server) session(w http.ResponseWriter, r *http.Request) (string, *sessionState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, err := r.Cookie(SessionCookie); err == nil {
		if st, ok := s.sessions[c.Value]; ok {
			return c.Value, st
		}
	}
	id := uuid.NewString()
	st := &sessionState{}
	s.sessions[id] = st
	http.SetCookie(w, &http.Cookie{Name: SessionCookie, Value: id, Path: "/", HttpOnly: true})
	return id, st
}

func (s *Server) count(r *http.Request) {
	s.mu.Lock()
	s.calls[r.URL.Path]++
	s.mu.Unlock()
}

var urlPattern = regexp.MustCompile(`https?://\S+`)

// CannedPlan produces a deterministic execution log: a planning step, a
// navigation or search step, and a failing step when the goal asks for one.
func CannedPlan(goal string) []agentapi.Step {
	goal = strings.TrimSpace(goal)
	steps := []agentapi.Step{{
		Step:        1,
		Status:      agentapi.StatusSuccess,
		Description: "Planned steps for: " + goal,
	}}
	if u := urlPattern.FindString(goal); u != "" {
		steps = append(steps, agentapi.Step{
			Step:        2,
			Status:      agentapi.StatusSuccess,
			Description: "Navigate to " + u,
			Result:      "Loaded " + u,
		})
	} else {
		steps = append(steps, agentapi.Step{
			Step:        2,
			Status:      agentapi.StatusSuccess,
			Description: fmt.Sprintf("Search the web for %q", goal),
			Result:      "Found 3 relevant pages",
		})
	}
	if strings.Contains(strings.ToLower(goal), "fail") {
		steps = append(steps, agentapi.Step{
			Step:        3,
			Status:      agentapi.StatusError,
			Description: "Click the requested element",
			Error:       "element not found",
		})
	}
	return steps
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
