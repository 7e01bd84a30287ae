package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"chatguard/internal/config"

	"github.com/hashicorp/go-retryablehttp"
)

// ErrRoomNotBridged is returned when a room has no external counterpart on
// the federated network.
var ErrRoomNotBridged = errors.New("bridge: room has no external mapping")

// HTTPGateway talks to the federation bridge service. Ban calls are safe to
// repeat; the bridge treats banning an already-banned identity as a no-op.
type HTTPGateway struct {
	baseURL   string
	authToken string
	client    *retryablehttp.Client
}

func NewHTTPGateway(cfg config.BridgeConfig) *HTTPGateway {
	client := retryablehttp.NewClient()
	client.RetryMax = 2
	client.Logger = nil
	client.HTTPClient.Timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	return &HTTPGateway{
		baseURL:   cfg.BaseURL,
		authToken: cfg.AuthToken,
		client:    client,
	}
}

func (g *HTTPGateway) ResolveExternalRoomHandle(ctx context.Context, roomID string) (string, error) {
	endpoint := fmt.Sprintf("%s/v1/rooms/%s/handle", g.baseURL, url.PathEscape(roomID))
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", err
	}
	g.authorize(req)

	resp, err := g.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("bridge handle lookup: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return "", ErrRoomNotBridged
	case resp.StatusCode != http.StatusOK:
		return "", fmt.Errorf("bridge handle lookup: unexpected status %d", resp.StatusCode)
	}

	var body struct {
		Handle string `json:"handle"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("bridge handle lookup: decoding response: %w", err)
	}
	if body.Handle == "" {
		return "", ErrRoomNotBridged
	}
	return body.Handle, nil
}

func (g *HTTPGateway) BanIdentity(ctx context.Context, handle, externalID, reason string) error {
	payload, err := json.Marshal(map[string]string{
		"external_id": externalID,
		"reason":      reason,
	})
	if err != nil {
		return err
	}

	endpoint := fmt.Sprintf("%s/v1/rooms/%s/bans", g.baseURL, url.PathEscape(handle))
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, endpoint, payload)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	g.authorize(req)

	resp, err := g.client.Do(req)
	if err != nil {
		return fmt.Errorf("bridge ban: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("bridge ban: unexpected status %d", resp.StatusCode)
	}
	return nil
}

func (g *HTTPGateway) authorize(req *retryablehttp.Request) {
	if g.authToken != "" {
		req.Header.Set("Authorization", "Bearer "+g.authToken)
	}
}
