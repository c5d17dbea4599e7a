// Package realtime manages one live voice session with a speech-to-speech
// model: the media transport, the ordered event channel, the conversation
// log, and the tool registry the remote model calls into.
package realtime

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hirevox/hirevox/pkg/tools"
	"github.com/hirevox/hirevox/pkg/transcript"
)

// State is the session lifecycle state.
type State int

const (
	// StateIdle means no session resources are held.
	StateIdle State = iota
	// StateRequestingMedia means local capture is being acquired.
	StateRequestingMedia
	// StateNegotiating means credential fetch and connection setup are in
	// progress.
	StateNegotiating
	// StateConnected means the event channel is live.
	StateConnected
	// StateClosing means teardown is in progress.
	StateClosing
)

// String returns a human-readable state.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRequestingMedia:
		return "requesting-media"
	case StateNegotiating:
		return "negotiating"
	case StateConnected:
		return "connected"
	case StateClosing:
		return "closing"
	default:
		return "unknown"
	}
}

// Metrics tracks session counters.
type Metrics struct {
	MessagesSent     int64
	MessagesReceived int64
	ToolCalls        int64
	Errors           int64
}

// Session owns one physical connection to the speech model: the capture
// source, the peer connection or websocket, the conversation log, and the
// tool registry. A Session can be started and stopped repeatedly; each
// start is a fresh connection with a fresh log.
type Session struct {
	cfg    *Config
	logger *slog.Logger

	mu      sync.Mutex
	state   State
	status  string
	channel EventChannel
	prime   string

	log      *transcript.Log
	registry *tools.Registry

	rawMu sync.Mutex
	raw   [][]byte

	localLevel  *LevelMeter
	remoteLevel *LevelMeter
	levelStop   chan struct{}

	cbMu         sync.RWMutex
	onStatus     func(status string)
	onTranscript func(turns []transcript.Turn)
	onLevels     func(local, remote float64)
	onRemotePCM  func(samples []int16)

	messagesSent     atomic.Int64
	messagesReceived atomic.Int64
	toolCalls        atomic.Int64
	errs             atomic.Int64
}

// NewSession creates a session with the given options.
func NewSession(opts ...Option) (*Session, error) {
	cfg := DefaultConfig()
	cfg.Apply(opts...)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	return &Session{
		cfg:         cfg,
		logger:      cfg.Logger.With("component", "realtime.session"),
		state:       StateIdle,
		status:      "idle",
		log:         transcript.New(),
		registry:    tools.NewRegistry(),
		localLevel:  NewLevelMeter(),
		remoteLevel: NewLevelMeter(),
	}, nil
}

// Log returns the conversation log owned by this session.
func (s *Session) Log() *transcript.Log {
	return s.log
}

// Registry returns the tool registry owned by this session.
func (s *Session) Registry() *tools.Registry {
	return s.registry
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Status returns the last published human-readable status string.
func (s *Session) Status() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Levels returns the current local and remote audio levels in [0, 1].
func (s *Session) Levels() (local, remote float64) {
	return s.localLevel.Level(), s.remoteLevel.Level()
}

// Metrics returns a snapshot of the session counters.
func (s *Session) Metrics() Metrics {
	return Metrics{
		MessagesSent:     s.messagesSent.Load(),
		MessagesReceived: s.messagesReceived.Load(),
		ToolCalls:        s.toolCalls.Load(),
		Errors:           s.errs.Load(),
	}
}

// OnStatus sets the status callback.
func (s *Session) OnStatus(fn func(status string)) {
	s.cbMu.Lock()
	defer s.cbMu.Unlock()
	s.onStatus = fn
}

// OnTranscriptChange sets the callback fired with a log snapshot after
// every transcript mutation.
func (s *Session) OnTranscriptChange(fn func(turns []transcript.Turn)) {
	s.cbMu.Lock()
	defer s.cbMu.Unlock()
	s.onTranscript = fn
}

// OnLevels sets the liveness callback sampled at the configured cadence
// while connected.
func (s *Session) OnLevels(fn func(local, remote float64)) {
	s.cbMu.Lock()
	defer s.cbMu.Unlock()
	s.onLevels = fn
}

// OnRemoteAudio sets the playback callback for decoded remote PCM.
func (s *Session) OnRemoteAudio(fn func(samples []int16)) {
	s.cbMu.Lock()
	defer s.cbMu.Unlock()
	s.onRemotePCM = fn
}

// PrimeContext stores text sent as a priming context event when the event
// channel opens. Must be set before Start.
func (s *Session) PrimeContext(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prime = text
}

// RawMessages returns a copy of the inbound audit buffer.
func (s *Session) RawMessages() [][]byte {
	s.rawMu.Lock()
	defer s.rawMu.Unlock()
	out := make([][]byte, len(s.raw))
	copy(out, s.raw)
	return out
}

// Toggle starts the session when idle and stops it when connected. Calls
// during a transition are no-ops.
func (s *Session) Toggle(ctx context.Context) error {
	switch s.State() {
	case StateIdle:
		return s.Start(ctx)
	case StateConnected:
		return s.Stop()
	default:
		return nil
	}
}

// Start acquires media, fetches a session credential, negotiates the
// connection, and opens the event channel. Any step failure unwinds to a
// full Stop so no partial resources are left allocated. There is no
// automatic retry.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.state != StateIdle {
		s.mu.Unlock()
		return ErrAlreadyConnected
	}
	s.state = StateRequestingMedia
	s.mu.Unlock()

	s.publishStatus("requesting microphone")
	if s.cfg.Source != nil {
		if err := s.cfg.Source.Start(ctx); err != nil {
			s.failStart(fmt.Sprintf("microphone unavailable: %v", err))
			return fmt.Errorf("%w: %v", ErrMediaUnavailable, err)
		}
	}

	s.publishStatus("fetching session credential")
	token := s.cfg.APIKey
	if token == "" {
		var err error
		token, err = MintToken(ctx, s.cfg.TokenURL, TokenRequest{
			Voice:        s.cfg.Voice,
			Instructions: s.cfg.Instructions,
		})
		if err != nil {
			s.failStart(fmt.Sprintf("credential fetch failed: %v", err))
			return err
		}
	}

	s.mu.Lock()
	s.state = StateNegotiating
	s.mu.Unlock()
	s.publishStatus("negotiating connection")

	hooks := transportHooks{
		onMessage: s.handleInbound,
		onOpen:    s.handleChannelOpen,
		onClose:   s.handleChannelClosed,
		onRemotePCM: func(samples []int16) {
			s.remoteLevel.Push(samples)
			s.cbMu.RLock()
			fn := s.onRemotePCM
			s.cbMu.RUnlock()
			if fn != nil {
				fn(samples)
			}
		},
	}

	var (
		ch  EventChannel
		err error
	)
	switch s.cfg.Transport {
	case TransportWebSocket:
		ch, err = connectWebSocket(ctx, s.cfg, token, hooks)
	default:
		ch, err = connectWebRTC(ctx, s.cfg, token, hooks)
	}
	if err != nil {
		s.failStart(fmt.Sprintf("connection failed: %v", err))
		return err
	}

	s.mu.Lock()
	s.channel = ch
	s.state = StateConnected
	s.levelStop = make(chan struct{})
	levelStop := s.levelStop
	s.mu.Unlock()

	go s.sampleLevels(levelStop)
	if s.cfg.Source != nil {
		go s.pumpAudio(ch)
	}

	s.publishStatus("connected")
	s.logger.Info("session connected",
		"transport", string(s.cfg.Transport),
		"model", s.cfg.Model,
	)
	return nil
}

// Stop tears the session down: event channel, connection, capture, level
// sampling, audit buffer, and conversation log. Idempotent and safe to call
// at any point; every release is individually guarded.
func (s *Session) Stop() error {
	s.mu.Lock()
	if s.state == StateIdle {
		s.mu.Unlock()
		return nil
	}
	s.state = StateClosing
	ch := s.channel
	s.channel = nil
	levelStop := s.levelStop
	s.levelStop = nil
	s.mu.Unlock()

	if ch != nil {
		if err := ch.Close(); err != nil {
			s.logger.Debug("event channel close", "error", err)
		}
	}
	if s.cfg.Source != nil {
		if err := s.cfg.Source.Stop(); err != nil {
			s.logger.Debug("capture stop", "error", err)
		}
	}
	if levelStop != nil {
		close(levelStop)
	}
	s.localLevel.Reset()
	s.remoteLevel.Reset()

	s.rawMu.Lock()
	s.raw = nil
	s.rawMu.Unlock()
	s.log.Reset()

	s.mu.Lock()
	s.state = StateIdle
	s.mu.Unlock()
	s.publishStatus("disconnected")
	return nil
}

// Interrupt cancels the in-progress model response (user barge-in).
func (s *Session) Interrupt() error {
	return s.send(ResponseCancel())
}

// failStart unwinds a partially started session and publishes the error.
func (s *Session) failStart(status string) {
	s.mu.Lock()
	s.state = StateConnected // let Stop run the full unwind path
	s.mu.Unlock()
	_ = s.Stop()
	s.publishStatus(status)
}

// handleChannelOpen sends the session configuration and, when supplied,
// the priming context. It writes over the channel the transport delivered:
// the websocket carrier fires open before Start has recorded the channel,
// and the data channel may do the same.
func (s *Session) handleChannelOpen(ch EventChannel) {
	if err := s.sendOn(ch, SessionUpdate(s.cfg.Instructions, s.cfg.Voice, s.registry.Specs())); err != nil {
		s.logger.Error("send session config", "error", err)
		return
	}

	s.mu.Lock()
	prime := s.prime
	s.mu.Unlock()
	if prime != "" {
		if err := s.sendOn(ch, ContextPrime(prime)); err != nil {
			s.logger.Error("send context prime", "error", err)
		}
	}
}

// handleChannelClosed runs the stop sequence when the carrier ends on its
// own.
func (s *Session) handleChannelClosed(err error) {
	if s.State() == StateIdle {
		return
	}
	_ = s.Stop()
	if err != nil {
		s.publishStatus(fmt.Sprintf("connection lost: %v", err))
	}
}

// handleInbound processes one event-channel message. Decode failures are
// logged and skipped; the session stays up. Unknown event types are
// ignored for forward compatibility.
func (s *Session) handleInbound(data []byte) {
	s.messagesReceived.Add(1)

	s.rawMu.Lock()
	s.raw = append(s.raw, data)
	s.rawMu.Unlock()

	ev, err := DecodeServerEvent(data)
	if err != nil {
		s.logger.Warn("malformed event", "error", err)
		return
	}

	switch ev.Type {
	case EventSessionCreated:
		s.logger.Info("remote session created")

	case EventSpeechStarted:
		s.log.StartEphemeralUserTurn()
		s.emitTranscript()

	case EventSpeechStopped:
		// Speech stop does not imply finality; the transcript is still
		// pending.

	case EventBufferCommitted:
		s.log.UpdateEphemeralUserTurn(transcript.ProcessingPlaceholder, transcript.StatusProcessing)
		s.emitTranscript()

	case EventUserTranscriptDelta:
		s.log.AppendEphemeralUserDelta(ev.Delta)
		s.emitTranscript()

	case EventUserTranscriptDone:
		s.log.FinalizeEphemeralUserTurn(ev.Transcript)
		s.emitTranscript()

	case EventAssistantDelta:
		s.log.AppendAssistantDelta(ev.Delta)
		s.emitTranscript()

	case EventAssistantDone:
		s.log.FinalizeLastAssistantTurn()
		s.emitTranscript()

	case EventAudioDelta:
		// Only the websocket carrier delivers audio in-band; the WebRTC
		// carrier uses the media track.
		s.handleInbandAudio(ev.Delta)

	case EventAudioDone:
		// Playback drain marker; nothing to do.

	case EventFunctionCallDone:
		s.handleFunctionCall(ev)

	case EventError:
		s.errs.Add(1)
		if ev.Error != nil {
			s.logger.Error("remote error", "code", ev.Error.Code, "message", ev.Error.Message)
		} else {
			s.logger.Error("remote error")
		}

	default:
		// Forward compatibility: the protocol may add event types.
	}
}

// handleFunctionCall invokes the registered tool and feeds the result back,
// then asks the model to continue generating. The result is always
// well-formed, even for unknown tools or failing handlers.
func (s *Session) handleFunctionCall(ev *ServerEvent) {
	s.toolCalls.Add(1)
	s.logger.Info("tool call", "name", ev.Name, "call_id", ev.CallID)

	output := s.registry.Invoke(ev.Name, ev.Arguments, ev.CallID)

	if err := s.send(FunctionOutput(ev.CallID, output)); err != nil {
		// Session stopped while the tool ran; the handler's side effects
		// stand, the result is simply dropped.
		s.logger.Debug("drop tool result", "call_id", ev.CallID, "error", err)
		return
	}
	if err := s.send(ResponseCreate()); err != nil {
		s.logger.Debug("drop response continuation", "call_id", ev.CallID, "error", err)
	}
}

func (s *Session) handleInbandAudio(b64 string) {
	if b64 == "" {
		return
	}
	raw, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return
	}
	samples := make([]int16, len(raw)/2)
	for i := range samples {
		samples[i] = int16(raw[i*2]) | int16(raw[i*2+1])<<8
	}
	s.remoteLevel.Push(samples)

	s.cbMu.RLock()
	fn := s.onRemotePCM
	s.cbMu.RUnlock()
	if fn != nil {
		fn(samples)
	}
}

// pumpAudio forwards captured chunks to the channel and the local level
// meter until the source stream closes.
func (s *Session) pumpAudio(ch EventChannel) {
	for chunk := range s.cfg.Source.Stream() {
		s.localLevel.Push(chunk.Samples)
		if err := ch.SendAudio(chunk); err != nil {
			return
		}
		s.messagesSent.Add(1)
	}
}

// sampleLevels emits liveness readings on a fixed cadence while connected.
func (s *Session) sampleLevels(stop chan struct{}) {
	interval := s.cfg.LevelInterval
	if interval <= 0 {
		interval = DefaultLevelInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			s.cbMu.RLock()
			fn := s.onLevels
			s.cbMu.RUnlock()
			if fn != nil {
				fn(s.localLevel.Level(), s.remoteLevel.Level())
			}
		}
	}
}

func (s *Session) send(v any) error {
	s.mu.Lock()
	ch := s.channel
	s.mu.Unlock()
	if ch == nil {
		return ErrNotConnected
	}
	return s.sendOn(ch, v)
}

func (s *Session) sendOn(ch EventChannel, v any) error {
	if err := ch.Send(v); err != nil {
		return err
	}
	s.messagesSent.Add(1)
	return nil
}

func (s *Session) publishStatus(status string) {
	s.mu.Lock()
	s.status = status
	s.mu.Unlock()

	s.cbMu.RLock()
	fn := s.onStatus
	s.cbMu.RUnlock()
	if fn != nil {
		fn(status)
	}
}

func (s *Session) emitTranscript() {
	s.cbMu.RLock()
	fn := s.onTranscript
	s.cbMu.RUnlock()
	if fn != nil {
		fn(s.log.Turns())
	}
}
