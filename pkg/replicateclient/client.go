/**
 * @description
 * This package provides a client for the Replicate prediction API, used for
 * the music and video capabilities. A prediction is created, polled until it
 * settles, and its output files are downloaded and drained into contiguous
 * buffers before anything is returned to the caller.
 *
 * @dependencies
 * - bytes, context, encoding/json, fmt, net/http, time: Standard Go libraries.
 */
package replicateclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	riffusionVersion = "riffusion/riffusion:8cf61ea6c56afd61d8f5b9ffd14d7c216c0a93844ce2d82ac1c9ecc9c7f24e05"
	zeroscopeVersion = "anotherjesse/zeroscope-v2-xl:9f747673945c62801b13b84701c783929c0ee784e4748ec062204894dda1a351"

	defaultPollInterval = 1 * time.Second
)

// ErrEmptyStream is returned when a prediction output drains to zero bytes.
// An empty stream is a provider failure, never an empty-but-valid result.
var ErrEmptyStream = errors.New("prediction output stream was empty")

// Client is a client for the Replicate API.
type Client struct {
	BaseURL      string
	APIToken     string
	HTTPClient   *http.Client
	PollInterval time.Duration
}

// NewClient creates a new Replicate API client. The http client carries no
// timeout of its own; every call is bounded by the caller's context so slow
// renders and downloads share one deadline.
func NewClient(baseURL, apiToken string) *Client {
	return &Client{
		BaseURL:      baseURL,
		APIToken:     apiToken,
		HTTPClient:   &http.Client{},
		PollInterval: defaultPollInterval,
	}
}

type predictionRequest struct {
	Version string         `json:"version"`
	Input   map[string]any `json:"input"`
}

type prediction struct {
	ID     string          `json:"id"`
	Status string          `json:"status"`
	Output json.RawMessage `json:"output"`
	Error  string          `json:"error"`
}

// ErrorResponse represents an error from the Replicate API.
type ErrorResponse struct {
	Detail string `json:"detail"`
}

func (e *ErrorResponse) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("replicate api error: %s", e.Detail)
	}
	return "unknown replicate api error"
}

// Compose runs the riffusion model and returns the fully drained audio bytes
// plus the content type the file server declared.
func (c *Client) Compose(ctx context.Context, prompt string) ([]byte, string, error) {
	output, err := c.run(ctx, riffusionVersion, map[string]any{"prompt_a": prompt})
	if err != nil {
		return nil, "", err
	}

	var files struct {
		Audio       string `json:"audio"`
		Spectrogram string `json:"spectrogram"`
	}
	if err := json.Unmarshal(output, &files); err != nil {
		return nil, "", fmt.Errorf("failed to decode riffusion output: %w", err)
	}
	if files.Audio == "" {
		return nil, "", errors.New("riffusion output missing audio file")
	}

	data, contentType, err := c.download(ctx, files.Audio)
	if err != nil {
		return nil, "", err
	}
	if contentType == "" {
		contentType = "audio/wav"
	}
	return data, contentType, nil
}

// Render runs the zeroscope model and returns the fully drained video bytes.
func (c *Client) Render(ctx context.Context, prompt string) ([]byte, error) {
	output, err := c.run(ctx, zeroscopeVersion, map[string]any{"prompt": prompt})
	if err != nil {
		return nil, err
	}

	var files []string
	if err := json.Unmarshal(output, &files); err != nil {
		return nil, fmt.Errorf("failed to decode zeroscope output: %w", err)
	}
	if len(files) == 0 || files[0] == "" {
		return nil, errors.New("zeroscope output missing video file")
	}

	data, _, err := c.download(ctx, files[0])
	if err != nil {
		return nil, err
	}
	return data, nil
}

// run creates a prediction and polls it until it settles.
func (c *Client) run(ctx context.Context, version string, input map[string]any) (json.RawMessage, error) {
	created, err := c.createPrediction(ctx, version, input)
	if err != nil {
		return nil, err
	}

	interval := c.PollInterval
	if interval <= 0 {
		interval = defaultPollInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	current := created
	for {
		switch current.Status {
		case "succeeded":
			if len(current.Output) == 0 {
				return nil, errors.New("prediction succeeded without output")
			}
			return current.Output, nil
		case "failed", "canceled":
			return nil, fmt.Errorf("prediction %s %s: %s", current.ID, current.Status, current.Error)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}

		current, err = c.getPrediction(ctx, created.ID)
		if err != nil {
			return nil, err
		}
	}
}

func (c *Client) createPrediction(ctx context.Context, version string, input map[string]any) (*prediction, error) {
	body, err := json.Marshal(predictionRequest{Version: version, Input: input})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal prediction request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.BaseURL+"/v1/predictions", bytes.NewBuffer(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create prediction request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Token "+c.APIToken)

	return c.doPrediction(req)
}

func (c *Client) getPrediction(ctx context.Context, id string) (*prediction, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", c.BaseURL+"/v1/predictions/"+id, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create poll request: %w", err)
	}

	req.Header.Set("Authorization", "Token "+c.APIToken)

	return c.doPrediction(req)
}

func (c *Client) doPrediction(req *http.Request) (*prediction, error) {
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute prediction request: %w", err)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read prediction response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var errResp ErrorResponse
		if err := json.Unmarshal(bodyBytes, &errResp); err != nil {
			return nil, fmt.Errorf("failed to decode error response (status %d)", resp.StatusCode)
		}
		return nil, &errResp
	}

	var p prediction
	if err := json.Unmarshal(bodyBytes, &p); err != nil {
		return nil, fmt.Errorf("failed to decode prediction: %w", err)
	}
	return &p, nil
}

// download fetches a prediction output file and drains it completely into one
// buffer. Draining zero bytes is reported as ErrEmptyStream.
func (c *Client) download(ctx context.Context, url string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create download request: %w", err)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("failed to download prediction output: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, "", fmt.Errorf("output download returned status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("failed to drain output stream: %w", err)
	}
	if len(data) == 0 {
		return nil, "", ErrEmptyStream
	}

	return data, resp.Header.Get("Content-Type"), nil
}
