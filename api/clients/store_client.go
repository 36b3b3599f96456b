package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"iter"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/ruteri/exampledb/api"
	"github.com/ruteri/exampledb/interfaces"
	"github.com/stretchr/testify/mock"
)

// StoreClient talks to an exampledb server.
type StoreClient struct {
	baseURL    string
	httpClient *http.Client
	log        *slog.Logger
}

// NewStoreClient creates a client for the server at baseURL (e.g. "http://localhost:8080").
//
// Parameters:
//   - baseURL: The base URL of the server
//   - log: Structured logger
//   - timeout: Request timeout duration (optional, default 30 seconds)
func NewStoreClient(baseURL string, log *slog.Logger, timeout ...time.Duration) *StoreClient {
	clientTimeout := 30 * time.Second
	if len(timeout) > 0 {
		clientTimeout = timeout[0]
	}

	return &StoreClient{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: clientTimeout,
		},
		log: log,
	}
}

// Save stores value under key on the server.
func (c *StoreClient) Save(ctx context.Context, key interfaces.Key, value interfaces.Value) error {
	return c.send(ctx, "save", http.MethodPut, api.KeyPath(key), value)
}

// Fetch downloads the key's values when ranging starts. Request failures
// yield nothing.
func (c *StoreClient) Fetch(ctx context.Context, key interfaces.Key) iter.Seq[interfaces.Value] {
	return func(yield func(interfaces.Value) bool) {
		values, err := c.fetch(ctx, key)
		if err != nil {
			c.log.Debug("Failed to fetch from server",
				slog.String("server", c.baseURL),
				slog.String("key", key.String()),
				"err", err)
			return
		}

		for _, v := range values {
			if !yield(v) {
				return
			}
		}
	}
}

func (c *StoreClient) fetch(ctx context.Context, key interfaces.Key) ([][]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+api.KeyPath(key), nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, responseError(resp)
	}

	var result api.FetchResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to parse fetch response: %w", err)
	}
	return result.Values, nil
}

// Delete removes value from key on the server.
func (c *StoreClient) Delete(ctx context.Context, key interfaces.Key, value interfaces.Value) error {
	return c.send(ctx, "delete", http.MethodDelete, api.KeyPath(key), value)
}

// Move asks the server to move value from src to dest.
func (c *StoreClient) Move(ctx context.Context, src, dest interfaces.Key, value interfaces.Value) error {
	return c.send(ctx, "move", http.MethodPost, api.MovePath(src, dest), value)
}

func (c *StoreClient) send(ctx context.Context, op, method, path string, value interfaces.Value) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(value))
	if err != nil {
		return interfaces.NewStoreError(op, path, err)
	}
	req.Header.Set("Content-Type", "application/octet-stream")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return interfaces.NewStoreError(op, path, fmt.Errorf("%s request failed: %w", op, err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent && resp.StatusCode != http.StatusOK {
		return interfaces.NewStoreError(op, path, responseError(resp))
	}
	return nil
}

// Available checks the server's readiness endpoint.
func (c *StoreClient) Available(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/readyz", nil)
	if err != nil {
		return false
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log.Debug("Server unavailable", slog.String("server", c.baseURL), "err", err)
		return false
	}
	defer resp.Body.Close()

	return resp.StatusCode == http.StatusOK
}

// Name returns a unique identifier for this backend.
func (c *StoreClient) Name() string {
	return "remote-" + strings.TrimPrefix(strings.TrimPrefix(c.baseURL, "http://"), "https://")
}

// LocationURI returns the server URL.
func (c *StoreClient) LocationURI() string {
	return c.baseURL
}

func responseError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

	var parsed api.ErrorResponse
	if err := json.Unmarshal(body, &parsed); err == nil && parsed.Error != "" {
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, parsed.Error)
	}
	return fmt.Errorf("server returned %d: %s", resp.StatusCode, string(body))
}

// MockExampleDatabase implements interfaces.ExampleDatabase for testing.
// The behavior is determined by how the mock is configured in tests.
type MockExampleDatabase struct {
	mock.Mock
	BackendName string
}

func (m *MockExampleDatabase) Save(ctx context.Context, key interfaces.Key, value interfaces.Value) error {
	args := m.Called(ctx, key, value)
	return args.Error(0)
}

func (m *MockExampleDatabase) Fetch(ctx context.Context, key interfaces.Key) iter.Seq[interfaces.Value] {
	args := m.Called(ctx, key)
	values, _ := args.Get(0).([]interfaces.Value)
	return func(yield func(interfaces.Value) bool) {
		for _, v := range values {
			if !yield(v) {
				return
			}
		}
	}
}

func (m *MockExampleDatabase) Delete(ctx context.Context, key interfaces.Key, value interfaces.Value) error {
	args := m.Called(ctx, key, value)
	return args.Error(0)
}

func (m *MockExampleDatabase) Move(ctx context.Context, src, dest interfaces.Key, value interfaces.Value) error {
	args := m.Called(ctx, src, dest, value)
	return args.Error(0)
}

func (m *MockExampleDatabase) Available(ctx context.Context) bool {
	args := m.Called(ctx)
	return args.Bool(0)
}

func (m *MockExampleDatabase) Name() string {
	return m.BackendName
}

func (m *MockExampleDatabase) LocationURI() string {
	return "mock:"
}
