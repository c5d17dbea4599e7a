// Package web provides the interview server's HTTP surface: the trusted
// intermediary that mints short-lived realtime credentials (the long-lived
// API key never leaves this process) and the live dashboard feed.
package web

import (
	"log/slog"
	"sync"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/websocket/v2"

	"github.com/hirevox/hirevox/pkg/hub"
	"github.com/hirevox/hirevox/pkg/transcript"
)

// DefaultSessionsURL is the upstream endpoint for minting ephemeral
// realtime credentials.
const DefaultSessionsURL = "https://api.openai.com/v1/realtime/sessions"

// Config holds the server configuration.
type Config struct {
	// Port to listen on.
	Port string

	// APIKey is the long-lived upstream key used to mint session secrets.
	APIKey string

	// SessionsURL overrides the upstream credential endpoint.
	SessionsURL string

	// Model is the realtime model requested for minted sessions.
	Model string

	// Logger is the structured logger to use.
	Logger *slog.Logger
}

// StatusInfo is the server's view of the active interview session.
type StatusInfo struct {
	Status      string `json:"status"`
	InterviewID string `json:"interview_id,omitempty"`
	Clients     int    `json:"dashboard_clients"`
}

// Server is the interview web server.
type Server struct {
	app    *fiber.App
	cfg    Config
	logger *slog.Logger

	status   StatusInfo
	statusMu sync.RWMutex

	// Hub for websocket broadcast of transcript/status/levels frames
	transcriptHub *hub.Hub
}

// NewServer creates the web server.
func NewServer(cfg Config) *Server {
	if cfg.SessionsURL == "" {
		cfg.SessionsURL = DefaultSessionsURL
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	s := &Server{
		cfg:           cfg,
		logger:        cfg.Logger.With("component", "web"),
		status:        StatusInfo{Status: "idle"},
		transcriptHub: hub.New("transcript", cfg.Logger),
	}

	app := fiber.New(fiber.Config{
		AppName:               "Hirevox Interview Server",
		DisableStartupMessage: true,
	})

	// CORS for local development
	app.Use(cors.New())

	// API routes
	api := app.Group("/api")
	api.Post("/realtime/token", s.handleMintToken)
	api.Get("/status", s.handleStatus)

	// WebSocket upgrade middleware
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})

	app.Get("/ws/transcript", websocket.New(s.handleTranscriptWS))

	s.app = app
	return s
}

// Start starts the web server.
func (s *Server) Start() error {
	s.logger.Info("interview server listening", "port", s.cfg.Port)

	go s.transcriptHub.Run()

	return s.app.Listen(":" + s.cfg.Port)
}

// StartAsync starts the web server in a goroutine.
func (s *Server) StartAsync() {
	go func() {
		if err := s.Start(); err != nil {
			s.logger.Error("web server failed", "error", err)
		}
	}()
}

// SetStatus records a session status transition and broadcasts it to
// dashboard clients.
func (s *Server) SetStatus(status, interviewID string) {
	s.statusMu.Lock()
	s.status.Status = status
	if interviewID != "" {
		s.status.InterviewID = interviewID
	}
	s.statusMu.Unlock()

	s.transcriptHub.BroadcastJSON(hub.NewStatusFrame(status))
}

// PublishTranscript broadcasts the conversation log to dashboard clients.
func (s *Server) PublishTranscript(turns []transcript.Turn) {
	s.transcriptHub.BroadcastJSON(hub.NewTranscriptFrame(turns))
}

// PublishLevels broadcasts mic and speaker levels to dashboard clients.
func (s *Server) PublishLevels(local, remote float64) {
	s.transcriptHub.BroadcastJSON(hub.NewLevelsFrame(local, remote))
}

// Hub returns the broadcast hub for external use.
func (s *Server) Hub() *hub.Hub {
	return s.transcriptHub
}

// App returns the underlying fiber app, used by tests.
func (s *Server) App() *fiber.App {
	return s.app
}

// Shutdown gracefully stops the web server.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}
