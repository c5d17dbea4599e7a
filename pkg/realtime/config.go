package realtime

import (
	"log/slog"
	"time"
)

// Transport selects how the event channel is carried.
type Transport string

const (
	// TransportWebRTC negotiates a peer connection and carries events on a
	// data channel alongside the media streams.
	TransportWebRTC Transport = "webrtc"

	// TransportWebSocket dials the realtime endpoint directly and carries
	// both events and base64 audio over one websocket.
	TransportWebSocket Transport = "websocket"
)

// Default endpoint configuration.
const (
	DefaultRealtimeURL    = "https://api.openai.com/v1/realtime"
	DefaultRealtimeWSURL  = "wss://api.openai.com/v1/realtime"
	DefaultModel          = "gpt-4o-realtime-preview-2024-12-17"
	DefaultVoice          = "alloy"
	DefaultLevelInterval  = 100 * time.Millisecond
	DefaultSampleRate     = 24000
	DefaultConnectTimeout = 30 * time.Second
)

// Config holds configuration for a realtime session.
type Config struct {
	// TokenURL is the trusted-intermediary endpoint that mints short-lived
	// session credentials. Required unless APIKey is set.
	TokenURL string

	// APIKey is a direct credential for server-side use. When set, the
	// session authenticates with it instead of minting an ephemeral token.
	APIKey string

	// RealtimeURL is the HTTP endpoint for SDP exchange.
	RealtimeURL string

	// RealtimeWSURL is the websocket endpoint for TransportWebSocket.
	RealtimeWSURL string

	// Model is the speech-to-speech model to use.
	Model string

	// Voice is the synthetic voice identity.
	Voice string

	// Instructions is the system prompt priming the session.
	Instructions string

	// Transport selects the event-channel carrier.
	Transport Transport

	// Source is the local audio capture device.
	Source Source

	// LevelInterval is the cadence of volume liveness sampling.
	LevelInterval time.Duration

	// SampleRate is the PCM16 sample rate in Hz.
	SampleRate int

	// ConnectTimeout bounds each setup step.
	ConnectTimeout time.Duration

	// Logger is the structured logger to use.
	Logger *slog.Logger
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		RealtimeURL:    DefaultRealtimeURL,
		RealtimeWSURL:  DefaultRealtimeWSURL,
		Model:          DefaultModel,
		Voice:          DefaultVoice,
		Transport:      TransportWebRTC,
		LevelInterval:  DefaultLevelInterval,
		SampleRate:     DefaultSampleRate,
		ConnectTimeout: DefaultConnectTimeout,
		Logger:         slog.Default(),
	}
}

// Apply applies functional options to the config.
func (c *Config) Apply(opts ...Option) {
	for _, opt := range opts {
		opt(c)
	}
}

// Validate checks the configuration for required fields.
func (c *Config) Validate() error {
	if c.APIKey == "" && c.TokenURL == "" {
		return ErrMissingAPIKey
	}
	return nil
}

// Option is a functional option for configuring a session.
type Option func(*Config)

// WithTokenURL sets the credential intermediary endpoint.
func WithTokenURL(url string) Option {
	return func(c *Config) { c.TokenURL = url }
}

// WithAPIKey sets a direct API key for server-side sessions.
func WithAPIKey(key string) Option {
	return func(c *Config) { c.APIKey = key }
}

// WithModel sets the speech model.
func WithModel(model string) Option {
	return func(c *Config) { c.Model = model }
}

// WithVoice sets the synthetic voice identity.
func WithVoice(voice string) Option {
	return func(c *Config) { c.Voice = voice }
}

// WithInstructions sets the session system prompt.
func WithInstructions(instructions string) Option {
	return func(c *Config) { c.Instructions = instructions }
}

// WithTransport selects the event-channel transport.
func WithTransport(t Transport) Option {
	return func(c *Config) { c.Transport = t }
}

// WithRealtimeURL overrides the HTTP endpoint used for SDP exchange.
func WithRealtimeURL(url string) Option {
	return func(c *Config) { c.RealtimeURL = url }
}

// WithRealtimeWSURL overrides the websocket endpoint used by
// TransportWebSocket.
func WithRealtimeWSURL(url string) Option {
	return func(c *Config) { c.RealtimeWSURL = url }
}

// WithSource sets the local audio capture source.
func WithSource(src Source) Option {
	return func(c *Config) { c.Source = src }
}

// WithLevelInterval sets the liveness sampling cadence.
func WithLevelInterval(d time.Duration) Option {
	return func(c *Config) { c.LevelInterval = d }
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Config) { c.Logger = logger }
}

// WithConnectTimeout bounds each setup step.
func WithConnectTimeout(d time.Duration) Option {
	return func(c *Config) { c.ConnectTimeout = d }
}
