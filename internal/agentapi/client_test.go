package agentapi_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jask/agentdesk/internal/agentapi"
	"github.com/jask/agentdesk/internal/devserver"
)

func newDevClient(t *testing.T) (*agentapi.Client, *devserver.Server) {
	t.Helper()
	dev := devserver.New(nil)
	srv := httptest.NewServer(dev.Handler())
	t.Cleanup(srv.Close)
	client, err := agentapi.NewClient(srv.URL, nil)
	require.NoError(t, err)
	return client, dev
}

func TestNewClientRejectsBadScheme(t *testing.T) {
	_, err := agentapi.NewClient("ftp://example.com", nil)
	require.Error(t, err)
}

func TestSessionCookieCarriesCredential(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	client, dev := newDevClient(t)

	_, err := client.ExecuteTask(ctx, "Book a flight")
	var apiErr *agentapi.APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
	require.Equal(t, "API key not set", apiErr.Message)

	resp, err := client.SetAPIKey(ctx, "sk-test-123")
	require.NoError(t, err)
	require.Equal(t, "API key set successfully", resp.Message)
	require.NotEmpty(t, resp.SessionID)

	task, err := client.ExecuteTask(ctx, "open https://example.com")
	require.NoError(t, err)
	require.True(t, task.Success)
	require.Len(t, task.ExecutionLog, 2)
	require.Equal(t, "Loaded https://example.com", task.ExecutionLog[1].Result)

	require.NoError(t, client.StopBrowser(ctx))
	require.Equal(t, 1, dev.BrowserStops())
}

func TestSetAPIKeyEmptyIsRejected(t *testing.T) {
	client, _ := newDevClient(t)
	_, err := client.SetAPIKey(context.Background(), "")
	var apiErr *agentapi.APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	require.Equal(t, "API key is required", apiErr.Message)
}

func TestCheckAPIKeyAcceptsAny2xxBody(t *testing.T) {
	for _, body := range []string{"OK", "", `{"message":"API key set successfully"}`} {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "text/plain")
			_, _ = w.Write([]byte(body))
		}))
		client, err := agentapi.NewClient(srv.URL, srv.Client())
		require.NoError(t, err)
		require.NoError(t, client.CheckAPIKey(context.Background(), "sk-1"), body)
		srv.Close()
	}
}

func TestCheckAPIKeyRejected(t *testing.T) {
	client, _ := newDevClient(t)
	err := client.CheckAPIKey(context.Background(), "")
	var apiErr *agentapi.APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, http.StatusBadRequest, apiErr.StatusCode)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream down", http.StatusBadGateway)
	}))
	defer srv.Close()
	client, err = agentapi.NewClient(srv.URL, srv.Client())
	require.NoError(t, err)
	err = client.CheckAPIKey(context.Background(), "sk-1")
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, http.StatusBadGateway, apiErr.StatusCode)
}

func TestExecuteTaskDecodesErrorPayloadOn200(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "planner exploded"})
	}))
	defer srv.Close()
	client, err := agentapi.NewClient(srv.URL, srv.Client())
	require.NoError(t, err)

	_, err = client.ExecuteTask(context.Background(), "x")
	var apiErr *agentapi.APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, "planner exploded", apiErr.Message)
}

func TestExecuteTaskMalformedBodyIsTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html>not json"))
	}))
	defer srv.Close()
	client, err := agentapi.NewClient(srv.URL, srv.Client())
	require.NoError(t, err)

	_, err = client.ExecuteTask(context.Background(), "x")
	require.Error(t, err)
	var apiErr *agentapi.APIError
	require.False(t, errors.As(err, &apiErr))
	require.Contains(t, err.Error(), "decode response")
}

func TestExecuteTaskHTMLErrorPage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("<html>bad gateway</html>"))
	}))
	defer srv.Close()
	client, err := agentapi.NewClient(srv.URL, srv.Client())
	require.NoError(t, err)

	_, err = client.ExecuteTask(context.Background(), "x")
	var apiErr *agentapi.APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, http.StatusBadGateway, apiErr.StatusCode)
}

func TestStopBrowserIgnoresBody(t *testing.T) {
	hit := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/stop-browser", r.URL.Path)
		require.Equal(t, http.MethodPost, r.Method)
		hit = true
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("garbage"))
	}))
	defer srv.Close()
	client, err := agentapi.NewClient(srv.URL, srv.Client())
	require.NoError(t, err)

	require.NoError(t, client.StopBrowser(context.Background()))
	require.True(t, hit)
}

func TestHealth(t *testing.T) {
	client, _ := newDevClient(t)
	h, err := client.Health(context.Background())
	require.NoError(t, err)
	require.Equal(t, "ok", h.Status)
}

func TestTransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	client, err := agentapi.NewClient(url, nil)
	require.NoError(t, err)
	_, err = client.ExecuteTask(context.Background(), "x")
	require.Error(t, err)
	require.Contains(t, err.Error(), "perform request")
}
