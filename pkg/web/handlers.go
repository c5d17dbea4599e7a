package web

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"

	"github.com/hirevox/hirevox/internal/httpc"
	"github.com/hirevox/hirevox/pkg/hub"
	"github.com/hirevox/hirevox/pkg/realtime"
)

// handleMintToken exchanges the server's long-lived key for a short-lived
// session credential scoped to one realtime session. Browser clients call
// this instead of holding the key themselves.
func (s *Server) handleMintToken(c *fiber.Ctx) error {
	if s.cfg.APIKey == "" {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "credential minting not configured",
		})
	}

	var req realtime.TokenRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid request body",
		})
	}
	if req.Voice == "" {
		req.Voice = realtime.DefaultVoice
	}
	model := s.cfg.Model
	if model == "" {
		model = realtime.DefaultModel
	}

	upstream := map[string]any{
		"model": model,
		"voice": req.Voice,
	}
	if req.Instructions != "" {
		upstream["instructions"] = req.Instructions
	}
	body, err := json.Marshal(upstream)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "encode upstream request",
		})
	}

	httpReq, err := http.NewRequestWithContext(c.Context(), http.MethodPost, s.cfg.SessionsURL, bytes.NewReader(body))
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "build upstream request",
		})
	}
	httpReq.Header.Set("Authorization", "Bearer "+s.cfg.APIKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := httpc.Do(httpReq)
	if err != nil {
		s.logger.Error("credential mint failed", "error", err)
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
			"error": "upstream unreachable",
		})
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		s.logger.Warn("credential mint rejected", "status", resp.StatusCode)
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
			"error": "upstream rejected credential request",
		})
	}

	var tok realtime.TokenResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 64*1024)).Decode(&tok); err != nil {
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
			"error": "decode upstream response",
		})
	}
	if tok.ClientSecret.Value == "" {
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
			"error": "upstream returned no secret",
		})
	}

	return c.JSON(tok)
}

// handleStatus returns the current session status.
func (s *Server) handleStatus(c *fiber.Ctx) error {
	s.statusMu.RLock()
	info := s.status
	s.statusMu.RUnlock()
	info.Clients = s.transcriptHub.ClientCount()
	return c.JSON(info)
}

// handleTranscriptWS streams transcript, status, and level frames to a
// dashboard client.
func (s *Server) handleTranscriptWS(c *websocket.Conn) {
	client := hub.NewClient(s.transcriptHub, c)
	client.Run() // Blocks until connection closes
}
