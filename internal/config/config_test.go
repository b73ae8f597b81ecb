package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/pflag"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func flagSet(t *testing.T, args ...string) *pflag.FlagSet {
	t.Helper()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	Flags(fs)
	if err := fs.Parse(args); err != nil {
		t.Fatalf("parse flags: %v", err)
	}
	return fs
}

func TestLoad_Precedence(t *testing.T) {
	path := writeConfig(t, `
mode: test
port: 9000
send_buffer: 16
ping_period: 10s
allowed_origins: [chat.example.com]
storage:
  driver: sqlite
  path: /var/lib/chatline/chat.db
ice_servers:
  - urls: ["turn:turn.example.com:3478"]
    username: relay
    credential: secret
`)
	t.Setenv("CHATLINE_SEND_BUFFER", "8")

	cfg, err := Load(flagSet(t, "--config", path, "--port", "9100"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.Port != 9100 {
		t.Errorf("port=%d, flag should win", cfg.Port)
	}
	if cfg.SendBuffer != 8 {
		t.Errorf("send_buffer=%d, env should win over file", cfg.SendBuffer)
	}
	if cfg.Mode != "test" || cfg.PingPeriod != 10*time.Second {
		t.Errorf("file values lost: mode=%q ping=%s", cfg.Mode, cfg.PingPeriod)
	}
	if cfg.CallTimeout != 30*time.Second || cfg.RateLimit.Burst != 40 {
		t.Errorf("defaults lost: call_timeout=%s burst=%d", cfg.CallTimeout, cfg.RateLimit.Burst)
	}
	if cfg.Storage.Driver != "sqlite" || cfg.Storage.Path != "/var/lib/chatline/chat.db" {
		t.Errorf("storage=%+v", cfg.Storage)
	}
	if len(cfg.AllowedOrigins) != 1 || cfg.AllowedOrigins[0] != "chat.example.com" {
		t.Errorf("allowed_origins=%v", cfg.AllowedOrigins)
	}
	if len(cfg.ICEServers) != 1 || cfg.ICEServers[0].URLs[0] != "turn:turn.example.com:3478" || cfg.ICEServers[0].Username != "relay" {
		t.Errorf("ice_servers=%+v", cfg.ICEServers)
	}
	if cfg.PongWait() <= cfg.PingPeriod {
		t.Errorf("pong wait %s must exceed ping period %s", cfg.PongWait(), cfg.PingPeriod)
	}
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(flagSet(t, "--config", filepath.Join(t.TempDir(), "absent.yaml")))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Port != 8080 || cfg.Storage.Driver != "memory" || cfg.Backpressure != "disconnect" {
		t.Fatalf("defaults=%+v", cfg)
	}
	if len(cfg.ICEServers) != 1 || !strings.HasPrefix(cfg.ICEServers[0].URLs[0], "stun:") {
		t.Fatalf("default ice servers=%+v", cfg.ICEServers)
	}
}

func TestLoad_Invalid(t *testing.T) {
	cases := map[string]string{
		"storage driver": "storage:\n  driver: redis\n",
		"send buffer":    "send_buffer: 0\n",
		"ice urls":       "ice_servers:\n  - username: x\n",
		"call timeout":   "call_timeout: 0s\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := Load(flagSet(t, "--config", writeConfig(t, body))); err == nil {
				t.Fatalf("expected error")
			}
		})
	}

	if _, err := Load(flagSet(t, "--config", writeConfig(t, ""), "--port", "0")); err == nil {
		t.Fatalf("port 0 accepted")
	}
}
