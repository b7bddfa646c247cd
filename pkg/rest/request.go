package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand/v2"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"
)

// CodeSuccess is the envelope code for a successful response.
const CodeSuccess = "SUCCESS"

// envelope is the common edgeX response wrapper.
type envelope struct {
	Code       string            `json:"code"`
	Data       json.RawMessage   `json:"data"`
	ErrorParam map[string]string `json:"errorParam"`
}

// APIError represents an error response from the edgeX API.
type APIError struct {
	StatusCode int
	Code       string
	ErrorParam map[string]string
	Body       []byte
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("edgex api error %d: code %s", e.StatusCode, e.Code)
	}
	return fmt.Sprintf("edgex api error %d: %s", e.StatusCode, http.StatusText(e.StatusCode))
}

// IsRetryable returns true if the error should trigger a retry.
func (e *APIError) IsRetryable() bool {
	return e.StatusCode >= 500 || e.StatusCode == 429
}

// doRequest performs one signed HTTP attempt.
func (c *Client) doRequest(ctx context.Context, method, path string, query url.Values, reqBody any) ([]byte, error) {
	fullURL := c.baseURL + path
	if len(query) > 0 {
		fullURL += "?" + query.Encode()
	}

	var bodyReader io.Reader
	if reqBody != nil {
		data, err := json.Marshal(reqBody)
		if err != nil {
			return nil, fmt.Errorf("marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, fullURL, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	if reqBody != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return nil, &APIError{
			StatusCode: resp.StatusCode,
			Body:       body,
		}
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("unmarshal envelope: %w", err)
	}
	if env.Code != CodeSuccess {
		return nil, &APIError{
			StatusCode: resp.StatusCode,
			Code:       env.Code,
			ErrorParam: env.ErrorParam,
			Body:       body,
		}
	}

	return env.Data, nil
}

// doWithRetry performs a request with exponential backoff on retryable
// HTTP failures. Each attempt is signed independently with a fresh
// timestamp by the transport.
func (c *Client) doWithRetry(ctx context.Context, method, path string, query url.Values, reqBody any) ([]byte, error) {
	var lastErr error
	backoff := c.retryBackoff

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			// Jitter: backoff * (0.5 to 1.5).
			jitter := backoff/2 + time.Duration(rand.Int64N(int64(backoff)))
			c.logger.Debug("retrying request",
				zap.Int("attempt", attempt),
				zap.Duration("backoff", jitter),
				zap.String("path", path),
			)

			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(jitter):
			}

			backoff *= 2
		}

		data, err := c.doRequest(ctx, method, path, query, reqBody)
		if err == nil {
			return data, nil
		}

		lastErr = err

		apiErr, ok := err.(*APIError)
		if !ok || !apiErr.IsRetryable() {
			return nil, err
		}
	}

	return nil, fmt.Errorf("max retries exceeded: %w", lastErr)
}

// get performs a GET request and unmarshals the envelope data.
func (c *Client) get(ctx context.Context, path string, query url.Values, result any) error {
	data, err := c.doWithRetry(ctx, http.MethodGet, path, query, nil)
	if err != nil {
		return err
	}
	return unmarshalData(data, result)
}

// post performs a POST request with a JSON body and unmarshals the
// envelope data.
func (c *Client) post(ctx context.Context, path string, reqBody, result any) error {
	data, err := c.doWithRetry(ctx, http.MethodPost, path, nil, reqBody)
	if err != nil {
		return err
	}
	return unmarshalData(data, result)
}

func unmarshalData(data json.RawMessage, result any) error {
	if result == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, result); err != nil {
		return fmt.Errorf("unmarshal response data: %w", err)
	}
	return nil
}
