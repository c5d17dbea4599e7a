package realtime

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/hirevox/hirevox/internal/httpc"
)

// TokenRequest asks the trusted intermediary for a short-lived session
// credential. The intermediary holds the long-lived API key; clients only
// ever see the scoped secret.
type TokenRequest struct {
	Voice        string `json:"voice"`
	Instructions string `json:"instructions,omitempty"`
}

// TokenResponse is the intermediary's reply.
type TokenResponse struct {
	ClientSecret ClientSecret `json:"client_secret"`
}

// ClientSecret is a short-lived bearer credential scoped to one session.
type ClientSecret struct {
	Value     string `json:"value"`
	ExpiresAt int64  `json:"expires_at,omitempty"`
}

// MintToken requests an ephemeral credential from the intermediary.
func MintToken(ctx context.Context, tokenURL string, req TokenRequest) (string, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("encode token request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, tokenURL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build token request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := httpc.Do(httpReq)
	if err != nil {
		return "", NewConnectionError("credential fetch failed", err, true)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", NewAPIError(resp.StatusCode, "", "credential endpoint rejected request")
	}

	var tok TokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tok); err != nil {
		return "", fmt.Errorf("decode token response: %w", err)
	}
	if tok.ClientSecret.Value == "" {
		return "", NewAPIError(resp.StatusCode, "empty_secret", "credential endpoint returned no secret")
	}
	return tok.ClientSecret.Value, nil
}
