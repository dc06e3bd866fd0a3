package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	p := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(p, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return p
}

func TestLoad_Defaults(t *testing.T) {
	// Agent-only file; server section absent.
	p := writeConfig(t, `agent:
  server_url: "http://localhost:8080"
`)
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.GRPCPort != DefaultGRPCPort {
		t.Errorf("grpc_port: got %d, want %d", cfg.Server.GRPCPort, DefaultGRPCPort)
	}
	if cfg.Server.HTTPPort != DefaultHTTPPort {
		t.Errorf("http_port: got %d, want %d", cfg.Server.HTTPPort, DefaultHTTPPort)
	}
	if cfg.Server.Session.TTL != DefaultSessionTTL {
		t.Errorf("session.ttl: got %v, want %v", cfg.Server.Session.TTL, DefaultSessionTTL)
	}
	if cfg.Server.Stream.Interval != DefaultStreamInterval {
		t.Errorf("stream.interval: got %v, want %v", cfg.Server.Stream.Interval, DefaultStreamInterval)
	}
	if cfg.Server.RateLimit.Enabled() {
		t.Error("rate limit should be disabled by default")
	}
}

func TestLoad_FullServer(t *testing.T) {
	p := writeConfig(t, `server:
  grpc_port: 9090
  http_port: 9091
  auth:
    mode: apikey
    key_env: MY_KEY
    header: x-fit-key
  session:
    ttl: 30m
  stream:
    interval: 2s
  rate_limit:
    rps: 5
    burst: 10
  alerts:
    rules:
      - name: high-emw
        condition: "fit_emw > 16"
        severity: critical
    webhooks:
      - type: slack
        url_env: SLACK_URL
`)
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	s := cfg.Server
	if s.GRPCPort != 9090 {
		t.Errorf("grpc_port: got %d, want 9090", s.GRPCPort)
	}
	if s.Auth.Mode != "apikey" {
		t.Errorf("auth.mode: got %q, want apikey", s.Auth.Mode)
	}
	if s.Auth.EffectiveHeader() != "x-fit-key" {
		t.Errorf("header: got %q, want x-fit-key", s.Auth.EffectiveHeader())
	}
	if s.Session.TTL != 30*time.Minute {
		t.Errorf("session.ttl: got %v, want 30m", s.Session.TTL)
	}
	if s.Stream.Interval != 2*time.Second {
		t.Errorf("stream.interval: got %v, want 2s", s.Stream.Interval)
	}
	if !s.RateLimit.Enabled() || s.RateLimit.Burst != 10 {
		t.Errorf("rate_limit: got %+v", s.RateLimit)
	}
	if len(s.Alerts.Rules) != 1 || s.Alerts.Rules[0].Condition != "fit_emw > 16" {
		t.Errorf("alerts.rules: got %+v", s.Alerts.Rules)
	}
}

func TestLoad_DefaultHeader(t *testing.T) {
	p := writeConfig(t, `server:
  auth:
    mode: apikey
    key_env: K
`)
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if h := cfg.Server.Auth.EffectiveHeader(); h != "x-api-key" {
		t.Errorf("EffectiveHeader: got %q, want x-api-key", h)
	}
}

func TestLoad_KeyEnvResolution(t *testing.T) {
	t.Setenv("TEST_SERVER_KEY", "supersecret")
	p := writeConfig(t, `server:
  auth:
    mode: apikey
    key_env: TEST_SERVER_KEY
`)
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if k := cfg.Server.Auth.Key(); k != "supersecret" {
		t.Errorf("Key(): got %q, want supersecret", k)
	}
}

func TestLoad_Invalid(t *testing.T) {
	cases := map[string]string{
		"unknown auth mode": "server:\n  auth:\n    mode: oauth2\n",
		"same ports":        "server:\n  grpc_port: 8080\n  http_port: 8080\n",
		"negative ttl":      "server:\n  session:\n    ttl: -1m\n",
		"rps without burst": "server:\n  rate_limit:\n    rps: 3\n    burst: 0\n",
		"rule without cond": "server:\n  alerts:\n    rules:\n      - name: x\n",
		"bad webhook type":  "server:\n  alerts:\n    webhooks:\n      - type: pagerduty\n",
		"port out of range": "server:\n  http_port: 70000\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := Load(writeConfig(t, body)); err == nil {
				t.Fatal("expected error, got nil")
			}
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("/nonexistent/path/config.yaml")
	if err == nil {
		t.Fatal("expected error for missing file, got nil")
	}
}
