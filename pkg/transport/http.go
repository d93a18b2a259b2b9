package transport

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"

	"github.com/qdispatch/qdispatch/pkg/logging"
)

// HTTPClient talks to one worker over plain HTTP. Circuit requests go to
// POST /circuits and parameter updates to POST /parameters; the worker
// holds the request open until the simulation finishes, which realizes the
// blocking Get of the returned handle.
//
// The underlying http.Client carries no timeout: a stuck worker blocks the
// reader indefinitely.
type HTTPClient struct {
	endpoint   string
	httpClient *http.Client
	apiKey     string
	logger     *logging.Logger

	mu        sync.Mutex
	connected bool
}

// NewHTTPClient creates a transport client. The endpoint is supplied later
// through Connect. A nil logger disables logging.
func NewHTTPClient(logger *logging.Logger) *HTTPClient {
	if logger == nil {
		logger = logging.Discard()
	}
	return &HTTPClient{
		httpClient: &http.Client{},
		logger:     logger,
	}
}

// SetAPIKey sets the bearer token attached to every request
func (c *HTTPClient) SetAPIKey(apiKey string) {
	c.apiKey = apiKey
}

// Connect records the worker endpoint and probes it once. Calling Connect
// again on a connected client is a no-op.
func (c *HTTPClient) Connect(endpoint string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.connected {
		return nil
	}
	if endpoint == "" {
		return fmt.Errorf("empty worker endpoint")
	}
	c.endpoint = strings.TrimRight(endpoint, "/")

	req, err := http.NewRequest(http.MethodGet, c.endpoint+"/health", nil)
	if err != nil {
		return fmt.Errorf("failed to create health request: %w", err)
	}
	c.addAuthHeader(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to reach worker at %s: %w", c.endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("worker health check failed with status %d: %s", resp.StatusCode, string(body))
	}

	c.connected = true
	c.logger.Debug("connected to worker", map[string]interface{}{"endpoint": c.endpoint})
	return nil
}

// SendCircuit submits one execution request without waiting for the result
func (c *HTTPClient) SendCircuit(payload []byte) (Request, error) {
	return c.send("/circuits", payload)
}

// SendParameters submits a parameter update without waiting for the result
func (c *HTTPClient) SendParameters(payload []byte) (Request, error) {
	return c.send("/parameters", payload)
}

func (c *HTTPClient) send(path string, payload []byte) (Request, error) {
	c.mu.Lock()
	connected := c.connected
	endpoint := c.endpoint
	c.mu.Unlock()

	if !connected {
		return nil, fmt.Errorf("client not connected")
	}
	if len(payload) == 0 {
		return nil, fmt.Errorf("empty payload")
	}

	req, err := http.NewRequest(http.MethodPost, endpoint+path, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	c.addAuthHeader(req)

	future := &httpRequest{done: make(chan struct{})}
	go func() {
		defer close(future.done)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			future.err = fmt.Errorf("failed to send request to %s%s: %w", endpoint, path, err)
			return
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			future.err = fmt.Errorf("failed to read response from %s%s: %w", endpoint, path, err)
			return
		}
		if resp.StatusCode != http.StatusOK {
			future.err = fmt.Errorf("request to %s%s failed with status %d: %s", endpoint, path, resp.StatusCode, string(body))
			return
		}
		future.body = body
	}()

	return future, nil
}

func (c *HTTPClient) addAuthHeader(req *http.Request) {
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
}

// httpRequest resolves when the in-flight HTTP exchange completes
type httpRequest struct {
	done chan struct{}
	body []byte
	err  error
}

func (r *httpRequest) Valid() bool {
	return r != nil && r.done != nil
}

func (r *httpRequest) Get() ([]byte, error) {
	<-r.done
	return r.body, r.err
}
