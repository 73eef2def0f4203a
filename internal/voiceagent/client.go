// Package voiceagent is the thin client and webhook plumbing for the hosted
// conversational voice-agent provider.
package voiceagent

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"lead-call-platform/internal/config"
	"lead-call-platform/pkg/logger"
)

var (
	ErrNotConfigured   = errors.New("voice agent not configured")
	ErrProviderFailure = errors.New("voice agent provider request failed")
)

const (
	outboundCallTimeout = 15 * time.Second
	signedURLTimeout    = 10 * time.Second
)

// Client talks to the provider's REST API. All calls use bounded timeouts
// and surface failure instead of hanging.
type Client struct {
	cfg  config.AgentConfig
	http *http.Client
}

func NewClient(cfg config.AgentConfig) *Client {
	return &Client{cfg: cfg, http: &http.Client{}}
}

// sanitizeAgentID tolerates operators pasting a full agent URL or a path with
// a trailing segment instead of the bare id.
func sanitizeAgentID(raw string) string {
	id := strings.TrimSpace(raw)
	if id == "" {
		return ""
	}

	if strings.HasPrefix(id, "http") || strings.HasPrefix(id, "wss") {
		parsed, err := url.Parse(id)
		if err != nil {
			return id
		}
		if q := parsed.Query().Get("agent_id"); q != "" {
			id = q
		} else {
			for _, seg := range strings.Split(parsed.Path, "/") {
				if strings.HasPrefix(seg, "agent_") {
					id = seg
					break
				}
			}
		}
	}

	if strings.Contains(id, "/") {
		segs := strings.Split(id, "/")
		id = segs[0]
		for _, seg := range segs {
			if strings.HasPrefix(seg, "agent_") {
				id = seg
				break
			}
		}
	}
	return id
}

// OutboundCall asks the provider to dial toNumber from the agent's own
// telephony number and returns the conversation id.
func (c *Client) OutboundCall(ctx context.Context, toNumber string) (string, error) {
	if c.cfg.TelephonyCallURL == "" || c.cfg.APIKey == "" {
		return "", ErrNotConfigured
	}

	payload := map[string]string{"to_number": toNumber}
	if id := sanitizeAgentID(c.cfg.AgentID); id != "" {
		payload["agent_id"] = id
	}
	if c.cfg.PhoneNumberID != "" {
		payload["agent_phone_number_id"] = c.cfg.PhoneNumberID
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	ctx, cancel := context.WithTimeout(ctx, outboundCallTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.TelephonyCallURL, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("xi-api-key", c.cfg.APIKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		logger.From(ctx).Error("outbound call initiation failed", "status", resp.StatusCode, "body", string(raw))
		return "", fmt.Errorf("%w: status %d", ErrProviderFailure, resp.StatusCode)
	}

	var out struct {
		ConversationID string `json:"conversation_id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", err
	}
	return out.ConversationID, nil
}

// SignedConversationURL fetches a short-lived WebSocket URL for a private
// agent so the telephony bridge never sees the API key. Some deployments
// register the agent id without its prefix, so a 4xx retries once without it.
func (c *Client) SignedConversationURL(ctx context.Context) (string, error) {
	if c.cfg.AgentID == "" || c.cfg.APIKey == "" {
		return "", ErrNotConfigured
	}

	ctx, cancel := context.WithTimeout(ctx, signedURLTimeout)
	defer cancel()

	agentID := sanitizeAgentID(c.cfg.AgentID)
	signed, err := c.fetchSignedURL(ctx, agentID)
	if err == nil {
		return signed, nil
	}
	if strings.HasPrefix(agentID, "agent_") {
		if signed, retryErr := c.fetchSignedURL(ctx, strings.TrimPrefix(agentID, "agent_")); retryErr == nil {
			return signed, nil
		}
	}
	return "", err
}

func (c *Client) fetchSignedURL(ctx context.Context, agentID string) (string, error) {
	u := fmt.Sprintf("%s/v1/convai/conversation/get_signed_url?agent_id=%s", c.cfg.APIBaseURL, url.QueryEscape(agentID))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("xi-api-key", c.cfg.APIKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		logger.From(ctx).Error("signed url fetch failed", "agent_id", agentID, "status", resp.StatusCode, "body", string(raw))
		return "", fmt.Errorf("%w: status %d", ErrProviderFailure, resp.StatusCode)
	}

	var out struct {
		SignedURL string `json:"signed_url"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", err
	}
	if out.SignedURL == "" {
		return "", fmt.Errorf("%w: signed url missing in response", ErrProviderFailure)
	}
	return out.SignedURL, nil
}
