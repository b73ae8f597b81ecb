package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	json "github.com/goccy/go-json"
	"github.com/pion/webrtc/v4"
)

// Settings are the call parameters the relay hands out to clients.
type Settings struct {
	CallTimeoutMs int64              `json:"callTimeoutMs"`
	ICEServers    []webrtc.ICEServer `json:"iceServers"`
}

func (s Settings) CallTimeout() time.Duration {
	return time.Duration(s.CallTimeoutMs) * time.Millisecond
}

// SettingsURL maps the relay websocket URL (ws://host/api/ws) to its
// settings endpoint on the same host.
func SettingsURL(wsURL string) (string, error) {
	u, err := url.Parse(wsURL)
	if err != nil {
		return "", fmt.Errorf("parse %s: %w", wsURL, err)
	}
	switch u.Scheme {
	case "ws":
		u.Scheme = "http"
	case "wss":
		u.Scheme = "https"
	case "http", "https":
	default:
		return "", fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	u.Path = "/api/calls/settings"
	u.RawQuery = ""
	return u.String(), nil
}

// FetchSettings asks the relay behind wsURL for its call settings.
func FetchSettings(ctx context.Context, wsURL string) (Settings, error) {
	endpoint, err := SettingsURL(wsURL)
	if err != nil {
		return Settings{}, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return Settings{}, err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return Settings{}, fmt.Errorf("fetch settings: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return Settings{}, fmt.Errorf("fetch settings: %s", resp.Status)
	}
	var s Settings
	if err := json.NewDecoder(resp.Body).Decode(&s); err != nil {
		return Settings{}, fmt.Errorf("decode settings: %w", err)
	}
	return s, nil
}
