package predict

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/chrissnell/tempcast/internal/constants"
)

// maxResponseBytes bounds how much of a response body is read
const maxResponseBytes = 1 << 20

// Service is anything that can turn a request into a raw temperature
type Service interface {
	Predict(ctx context.Context, req Request) (float64, error)
}

// StatusError is returned when the service answers with a non-2xx status
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("prediction service returned status %d: %s", e.StatusCode, e.Body)
}

// HTTPClient calls POST {baseURL}/predict on the prediction service
type HTTPClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewHTTPClient creates a client for the service at baseURL. A zero timeout
// defaults to 10 seconds.
func NewHTTPClient(baseURL string, timeout time.Duration) *HTTPClient {
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Predict sends the request and parses predicted_temperature from the reply
func (c *HTTPClient) Predict(ctx context.Context, req Request) (float64, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return 0, fmt.Errorf("failed to encode request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/predict", bytes.NewReader(payload))
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("User-Agent", constants.UserAgent)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return 0, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return 0, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return 0, &StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	var response struct {
		PredictedTemperature *float64 `json:"predicted_temperature"`
	}
	if err := json.Unmarshal(body, &response); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if response.PredictedTemperature == nil {
		return 0, fmt.Errorf("%w: missing predicted_temperature", ErrMalformedResponse)
	}

	return *response.PredictedTemperature, nil
}
