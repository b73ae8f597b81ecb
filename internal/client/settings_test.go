package client

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	router "github.com/dkeye/Chatline/internal/adapters/http"
	"github.com/dkeye/Chatline/internal/adapters/storage/memory"
	"github.com/dkeye/Chatline/internal/app"
	"github.com/dkeye/Chatline/internal/app/orch"
	"github.com/dkeye/Chatline/internal/config"
	"github.com/pion/webrtc/v4"
)

func TestSettingsURL(t *testing.T) {
	cases := map[string]string{
		"ws://localhost:8080/api/ws":        "http://localhost:8080/api/calls/settings",
		"wss://chat.example.com/api/ws?x=1": "https://chat.example.com/api/calls/settings",
	}
	for in, want := range cases {
		got, err := SettingsURL(in)
		if err != nil || got != want {
			t.Errorf("SettingsURL(%q)=%q,%v, want %q", in, got, err, want)
		}
	}
	if _, err := SettingsURL("ftp://host/api/ws"); err == nil {
		t.Errorf("ftp scheme accepted")
	}
}

func TestFetchSettings_FromRelay(t *testing.T) {
	cfg := &config.Config{
		Mode:        "test",
		StaticPath:  t.TempDir(),
		Secret:      "test-secret",
		CallTimeout: 12 * time.Second,
		ICEServers:  []webrtc.ICEServer{{URLs: []string{"stun:stun.example.com:3478"}}},
	}
	store := memory.NewStore()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	srv := httptest.NewServer(router.SetupRouter(ctx, cfg, router.Deps{
		Orch: orch.New(app.SimplePolicy{}), Messages: store, Profiles: store,
	}))
	t.Cleanup(srv.Close)

	s, err := FetchSettings(context.Background(), "ws"+strings.TrimPrefix(srv.URL, "http")+"/api/ws")
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if s.CallTimeout() != 12*time.Second {
		t.Fatalf("timeout=%s, want 12s", s.CallTimeout())
	}
	if len(s.ICEServers) != 1 || s.ICEServers[0].URLs[0] != "stun:stun.example.com:3478" {
		t.Fatalf("ice=%+v", s.ICEServers)
	}
}
