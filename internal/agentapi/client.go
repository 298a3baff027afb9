package agentapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"path"
	"strings"
)

const (
	pathSetAPIKey   = "/api/set-api-key"
	pathExecuteTask = "/api/execute-task"
	pathStopBrowser = "/api/stop-browser"
	pathHealth      = "/api/health"
)

// Client talks to the agent backend. The backend keeps the credential in a
// cookie session, so every call must go through the same cookie jar.
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
}

// NewHTTPClient returns an http.Client with a cookie jar and no overall
// timeout; deadlines come from the caller's context.
func NewHTTPClient() (*http.Client, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("cookie jar: %w", err)
	}
	return &http.Client{Jar: jar}, nil
}

// NewClient builds a client for the backend at rawURL. When httpClient is
// nil a cookie-carrying client from NewHTTPClient is used.
func NewClient(rawURL string, httpClient *http.Client) (*Client, error) {
	parsed, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return nil, fmt.Errorf("invalid base url: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, fmt.Errorf("invalid base url %q: scheme must be http or https", rawURL)
	}
	if httpClient == nil {
		httpClient, err = NewHTTPClient()
		if err != nil {
			return nil, err
		}
	}
	return &Client{baseURL: parsed, httpClient: httpClient}, nil
}

// SetAPIKey submits a credential for the current session. Non-2xx responses
// come back as *APIError.
func (c *Client) SetAPIKey(ctx context.Context, key string) (KeyResponse, error) {
	var out KeyResponse
	status, err := c.post(ctx, pathSetAPIKey, KeyRequest{APIKey: key}, &out)
	if err != nil {
		return KeyResponse{}, err
	}
	if status < 200 || status > 299 {
		msg := out.Error
		if msg == "" {
			msg = http.StatusText(status)
		}
		return KeyResponse{}, &APIError{StatusCode: status, Message: msg}
	}
	return out, nil
}

// CheckAPIKey resends a credential and reports only whether the status was
// 2xx. The body is not required to be JSON.
func (c *Client) CheckAPIKey(ctx context.Context, key string) error {
	var out KeyResponse
	status, err := c.post(ctx, pathSetAPIKey, KeyRequest{APIKey: key}, &out)
	if status >= 200 && status <= 299 {
		return nil
	}
	if err != nil {
		return err
	}
	msg := out.Error
	if msg == "" {
		msg = http.StatusText(status)
	}
	return &APIError{StatusCode: status, Message: msg}
}

// ExecuteTask submits a goal and waits for the execution log. The body is
// decoded whatever the status code; an {error} payload or a non-2xx status
// without a success flag is returned as *APIError.
func (c *Client) ExecuteTask(ctx context.Context, goal string) (TaskResponse, error) {
	var out TaskResponse
	status, err := c.post(ctx, pathExecuteTask, TaskRequest{Goal: goal}, &out)
	if err != nil {
		return TaskResponse{}, err
	}
	if out.Error != "" {
		return out, &APIError{StatusCode: status, Message: out.Error}
	}
	if (status < 200 || status > 299) && !out.Success {
		return out, &APIError{StatusCode: status, Message: http.StatusText(status)}
	}
	return out, nil
}

// StopBrowser asks the backend to release session-held resources. The
// response body is discarded.
func (c *Client) StopBrowser(ctx context.Context) error {
	req, err := c.newRequest(ctx, http.MethodPost, pathStopBrowser, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("perform request: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

// Health pings the backend.
func (c *Client) Health(ctx context.Context) (Health, error) {
	req, err := c.newRequest(ctx, http.MethodGet, pathHealth, nil)
	if err != nil {
		return Health{}, err
	}
	var out Health
	status, err := c.do(req, &out)
	if err != nil {
		return Health{}, err
	}
	if status < 200 || status > 299 {
		return Health{}, &APIError{StatusCode: status, Message: http.StatusText(status)}
	}
	return out, nil
}

func (c *Client) post(ctx context.Context, endpoint string, payload any, out any) (int, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return 0, fmt.Errorf("encode request: %w", err)
	}
	req, err := c.newRequest(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *Client) newRequest(ctx context.Context, method, endpoint string, body io.Reader) (*http.Request, error) {
	rel := &url.URL{Path: path.Join(c.baseURL.Path, endpoint)}
	u := c.baseURL.ResolveReference(rel)
	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	return req, nil
}

// do performs req and decodes a JSON body into out. An empty body is not an
// error; a body that is present but not JSON is.
func (c *Client) do(req *http.Request, out any) (int, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("perform request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, fmt.Errorf("read response: %w", err)
	}
	if len(bytes.TrimSpace(data)) == 0 || out == nil {
		return resp.StatusCode, nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		var syntaxErr *json.SyntaxError
		if errors.As(err, &syntaxErr) && resp.StatusCode >= 400 {
			// non-JSON error page, e.g. a proxy 502
			return resp.StatusCode, &APIError{StatusCode: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
		}
		return resp.StatusCode, fmt.Errorf("decode response: %w", err)
	}
	return resp.StatusCode, nil
}
