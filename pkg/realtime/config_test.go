package realtime

import (
	"errors"
	"testing"
	"time"
)

func TestConfigDefaults(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.RealtimeURL != DefaultRealtimeURL || cfg.RealtimeWSURL != DefaultRealtimeWSURL {
		t.Errorf("unexpected endpoints %q %q", cfg.RealtimeURL, cfg.RealtimeWSURL)
	}
	if cfg.Transport != TransportWebRTC {
		t.Errorf("default transport = %q", cfg.Transport)
	}
	if cfg.Voice != DefaultVoice || cfg.Model != DefaultModel {
		t.Errorf("unexpected model config %q %q", cfg.Voice, cfg.Model)
	}
}

func TestConfigOptions(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Apply(
		WithAPIKey("sk-test"),
		WithRealtimeURL("http://127.0.0.1:9000/v1/realtime"),
		WithRealtimeWSURL("ws://127.0.0.1:9000/v1/realtime"),
		WithTransport(TransportWebSocket),
		WithVoice("verse"),
		WithConnectTimeout(5*time.Second),
	)

	if cfg.RealtimeURL != "http://127.0.0.1:9000/v1/realtime" {
		t.Errorf("RealtimeURL = %q", cfg.RealtimeURL)
	}
	if cfg.RealtimeWSURL != "ws://127.0.0.1:9000/v1/realtime" {
		t.Errorf("RealtimeWSURL = %q", cfg.RealtimeWSURL)
	}
	if cfg.Transport != TransportWebSocket || cfg.Voice != "verse" {
		t.Errorf("options not applied: %+v", cfg)
	}
	if cfg.ConnectTimeout != 5*time.Second {
		t.Errorf("ConnectTimeout = %v", cfg.ConnectTimeout)
	}
}

func TestConfigValidate(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); !errors.Is(err, ErrMissingAPIKey) {
		t.Errorf("expected ErrMissingAPIKey, got %v", err)
	}

	cfg.Apply(WithTokenURL("http://localhost:8090/api/realtime/token"))
	if err := cfg.Validate(); err != nil {
		t.Errorf("token URL should satisfy validation: %v", err)
	}
}
