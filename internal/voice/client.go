// Package voice adapts the hosted voice-assistant provider to the session
// controller's event contract. Calls are created over the provider REST API
// and their server messages arrive on a webhook.
//
// Rules:
// - No provider HTTP calls outside this package.
// - Keep provider payload shapes private; hand session.Event values out.
package voice

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"tutor-platform/internal/config"
	"tutor-platform/internal/session"
)

var (
	ErrNotConfigured = errors.New("voice: client not configured")
	ErrNoControlURL  = errors.New("voice: call has no control url")
)

// APIError is a non-2xx provider response.
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("voice api: status %d: %s", e.Status, e.Body)
}

// WebCall is the provider's answer to a web call request.
type WebCall struct {
	ID         string `json:"id"`
	WebCallURL string `json:"webCallUrl"`
	Monitor    struct {
		ControlURL string `json:"controlUrl"`
		ListenURL  string `json:"listenUrl"`
	} `json:"monitor"`
}

type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	calls   *Directory
	log     *slog.Logger
}

func NewClient(cfg config.VoiceConfig, calls *Directory, log *slog.Logger) *Client {
	if log == nil {
		log = slog.Default()
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		http:    &http.Client{Timeout: cfg.RequestTimeout},
		calls:   calls,
		log:     log.With("component", "voice"),
	}
}

// NewCall returns an unstarted call handle bound to this client.
func (c *Client) NewCall() *Call {
	return newCall(c)
}

// Provider adapts NewCall for the session registry.
func (c *Client) Provider() session.Provider {
	return c.NewCall()
}

type createWebCallRequest struct {
	AssistantID        string            `json:"assistantId"`
	AssistantOverrides session.Overrides `json:"assistantOverrides"`
}

func (c *Client) CreateWebCall(ctx context.Context, assistantID string, overrides session.Overrides) (WebCall, error) {
	if c == nil || c.baseURL == "" || c.apiKey == "" {
		return WebCall{}, ErrNotConfigured
	}
	if assistantID == "" {
		return WebCall{}, errors.New("voice: assistant id required")
	}

	var out WebCall
	err := c.do(ctx, c.baseURL+"/call/web", true, createWebCallRequest{
		AssistantID:        assistantID,
		AssistantOverrides: overrides,
	}, &out)
	if err != nil {
		return WebCall{}, fmt.Errorf("create web call: %w", err)
	}
	if out.ID == "" {
		return WebCall{}, errors.New("create web call: response missing id")
	}
	return out, nil
}

// EndCall asks the provider to hang up through the call's control url.
func (c *Client) EndCall(ctx context.Context, controlURL string) error {
	if controlURL == "" {
		return ErrNoControlURL
	}
	if err := c.do(ctx, controlURL, false, map[string]string{"type": "end-call"}, nil); err != nil {
		return fmt.Errorf("end call: %w", err)
	}
	return nil
}

func (c *Client) do(ctx context.Context, url string, authed bool, body, out any) error {
	raw, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(raw))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if authed {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	c.log.Debug("voice api call", "url", url, "status", resp.StatusCode, "took", time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return &APIError{Status: resp.StatusCode, Body: strings.TrimSpace(string(b))}
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
