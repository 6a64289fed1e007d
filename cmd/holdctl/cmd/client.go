package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// HoldClient talks to a running hold coordinator's HTTP surface.
type HoldClient struct {
	BaseURL    string
	Token      string
	HTTPClient *http.Client
}

// NewHoldClient creates a client against baseURL, optionally
// authenticating with token (the coordinator's shared secret, if one
// is configured).
func NewHoldClient(baseURL, token string) *HoldClient {
	return &HoldClient{
		BaseURL: baseURL,
		Token:   token,
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// APIError represents a non-2xx response from the coordinator.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("holdctl: coordinator returned %d: %s", e.StatusCode, e.Message)
}

func (c *HoldClient) get(path string, out interface{}) error {
	req, err := http.NewRequest(http.MethodGet, fmt.Sprintf("%s%s", c.BaseURL, path), nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if c.Token != "" {
		req.Header.Add("Authorization", fmt.Sprintf("Bearer %s", c.Token))
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return &APIError{StatusCode: resp.StatusCode, Message: string(body)}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}

// List returns the currently held service ids.
func (c *HoldClient) List() ([]string, error) {
	var services []string
	if err := c.get("/list", &services); err != nil {
		return nil, err
	}
	return services, nil
}

// Release releases one held service, returning its id if a hold was
// actually released, or "" if none was found under that id.
func (c *HoldClient) Release(service string) (string, error) {
	var released string
	if err := c.get(fmt.Sprintf("/release/%s", service), &released); err != nil {
		return "", err
	}
	return released, nil
}

// ReleaseAll releases every currently held service and returns their ids.
func (c *HoldClient) ReleaseAll() ([]string, error) {
	var released []string
	if err := c.get("/release-all", &released); err != nil {
		return nil, err
	}
	return released, nil
}
