package signal

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/voice-client/internal/core"
	"github.com/dkeye/voice-client/internal/domain"
)

const maxErrorBody = 4 << 10

// HTTPControl sends session-control requests to the signaling server's REST API.
type HTTPControl struct {
	BaseURL string
	Client  *http.Client
}

func NewHTTPControl(baseURL string) *HTTPControl {
	return &HTTPControl{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Client:  &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *HTTPControl) KickParticipant(ctx context.Context, room domain.RoomID, pid domain.ParticipantID) error {
	path := fmt.Sprintf("/api/room/%s/kick/%s", url.PathEscape(string(room)), url.PathEscape(string(pid)))
	return c.do(ctx, http.MethodPost, path)
}

func (c *HTTPControl) DeleteRoom(ctx context.Context, room domain.RoomID) error {
	return c.do(ctx, http.MethodDelete, "/api/room/"+url.PathEscape(string(room)))
}

func (c *HTTPControl) do(ctx context.Context, method, path string) error {
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, nil)
	if err != nil {
		return err
	}
	client := c.Client
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := client.Do(req)
	if err != nil {
		log.Error().Err(err).Str("module", "signal.control").Str("method", method).Str("path", path).Msg("request failed")
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		_, _ = io.Copy(io.Discard, resp.Body)
		log.Info().Str("module", "signal.control").Str("method", method).Str("path", path).Int("status", resp.StatusCode).Msg("control request ok")
		return nil
	}

	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	text := strings.TrimSpace(string(body))
	if text == "" {
		text = http.StatusText(resp.StatusCode)
	}
	return &core.TransportError{Status: resp.StatusCode, Text: text}
}
