package deepface

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"face-roster-go/config"
)

var (
	// ErrUnavailable is returned when the DeepFace service cannot be
	// reached after all retries.
	ErrUnavailable = errors.New("deepface service unavailable")

	// ErrInvalidResponse is returned when the service answers with a body
	// that cannot be decoded.
	ErrInvalidResponse = errors.New("invalid response from deepface")
)

// Client is the HTTP client for a DeepFace-compatible API server.
type Client struct {
	httpClient *http.Client
	cfg        config.DeepFaceConfig
}

// NewClient creates a new DeepFace client from the configuration.
func NewClient(cfg config.DeepFaceConfig) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		cfg:        cfg,
	}
}

// Represent calls POST /represent to extract face embeddings.
func (c *Client) Represent(ctx context.Context, imageBase64 string) (*RepresentResponse, error) {
	req := RepresentRequest{
		Img:      imageBase64,
		Model:    c.cfg.Model,
		Detector: c.cfg.Detector,
	}

	var resp RepresentResponse
	if err := c.doRequestWithRetry(ctx, http.MethodPost, "/represent", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Verify calls POST /verify to compare the faces in two images.
func (c *Client) Verify(ctx context.Context, img1Base64, img2Base64 string) (*VerifyResponse, error) {
	req := VerifyRequest{
		Img1:           img1Base64,
		Img2:           img2Base64,
		Model:          c.cfg.Model,
		Detector:       c.cfg.Detector,
		DistanceMetric: c.cfg.DistanceMetric,
	}

	var resp VerifyResponse
	if err := c.doRequestWithRetry(ctx, http.MethodPost, "/verify", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Ping checks whether the service answers at all.
func (c *Client) Ping(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.URL+"/", nil)
	if err != nil {
		return false
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false
	}
	defer func() { _ = resp.Body.Close() }()
	return resp.StatusCode < 500
}

const maxBackoff = 30 * time.Second

// calculateBackoff returns the exponential backoff for a retry attempt:
// 1s, 2s, 4s, ... capped at maxBackoff.
func calculateBackoff(attempt int) time.Duration {
	if attempt <= 0 {
		return time.Second
	}
	seconds := 1
	for i := 1; i < attempt && i < 6; i++ {
		seconds *= 2
	}
	backoff := time.Duration(seconds) * time.Second
	if backoff > maxBackoff {
		backoff = maxBackoff
	}
	return backoff
}

func (c *Client) doRequestWithRetry(ctx context.Context, method, path string, body interface{}, result interface{}) error {
	var lastErr error

	for attempt := 0; attempt <= c.cfg.RetryCount; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(calculateBackoff(attempt)):
			}
		}

		lastErr = c.doRequest(ctx, method, path, body, result)
		if lastErr == nil {
			return nil
		}

		if ctx.Err() != nil {
			return ctx.Err()
		}

		// 4xx responses are not transient, do not retry them.
		if isClientError(lastErr) {
			return lastErr
		}
	}

	return fmt.Errorf("%w: %v", ErrUnavailable, lastErr)
}

func isClientError(err error) bool {
	if err == nil {
		return false
	}
	errStr := err.Error()
	for status := 400; status < 500; status++ {
		if strings.Contains(errStr, fmt.Sprintf("status %d", status)) {
			return true
		}
	}
	return false
}

func (c *Client) doRequest(ctx context.Context, method, path string, body interface{}, result interface{}) error {
	var bodyReader io.Reader
	if body != nil {
		bodyBytes, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		bodyReader = bytes.NewReader(bodyBytes)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.cfg.URL+path, bodyReader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return fmt.Errorf("deepface returned status %d: %s", resp.StatusCode, string(respBody))
	}

	if result != nil {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidResponse, err)
		}
	}

	return nil
}
