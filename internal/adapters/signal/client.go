// Package signal talks to the signaling server: REST session control and the
// WebSocket negotiation channel.
package signal

import (
	"context"
	"fmt"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/voice-client/internal/app/orch"
	"github.com/dkeye/voice-client/internal/domain"
)

// Client relays negotiation messages between the signaling server and the orchestrator.
type Client struct {
	URL        string
	Room       domain.RoomID
	Self       domain.ParticipantID
	ICEServers []webrtc.ICEServer
	Orch       *orch.Orchestrator
	Dialer     *websocket.Dialer

	mu   sync.RWMutex
	conn *wsConn
}

// Run joins the room and serves the connection until ctx ends or the server hangs up.
func (c *Client) Run(ctx context.Context) error {
	dialer := c.Dialer
	if dialer == nil {
		dialer = websocket.DefaultDialer
	}
	ws, _, err := dialer.DialContext(ctx, c.URL, nil)
	if err != nil {
		return fmt.Errorf("dial signaling: %w", err)
	}
	log.Info().Str("module", "signal").Str("url", c.URL).Str("room", string(c.Room)).Msg("signaling connected")

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	conn := newWSConn(ws)
	c.setConn(conn)
	defer c.setConn(nil)

	go c.writePump(ctx, conn)
	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	c.Orch.SetCurrentRoom(c.Room)
	c.sendJSON(conn, message{Type: msgJoin, Room: c.Room, From: c.Self})

	err = c.readPump(ctx, conn)
	if ctx.Err() != nil {
		return nil
	}
	return err
}

func (c *Client) setConn(conn *wsConn) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.conn = conn
}

func (c *Client) current() *wsConn {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.conn
}

// Send queues v on the live connection.
func (c *Client) Send(v message) error {
	conn := c.current()
	if conn == nil {
		return ErrConnClosed
	}
	return c.sendJSON(conn, v)
}

func (c *Client) OnLocalIce(pid domain.ParticipantID, cand domain.Candidate) {
	raw, err := cand.Marshal()
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("marshal candidate")
		return
	}
	if err := c.Send(message{Type: msgCandidate, From: c.Self, To: pid, Candidate: raw}); err != nil {
		log.Warn().Err(err).Str("module", "signal").Str("to", string(pid)).Msg("candidate not sent")
	}
}

func (c *Client) OnRemoteTrack(pid domain.ParticipantID) {
	log.Debug().Str("module", "signal").Str("from", string(pid)).Msg("remote track rendered")
}

func (c *Client) OnKicked(reason string) {
	if err := c.Send(message{Type: msgLeave, From: c.Self, Room: c.Room, Reason: reason}); err != nil {
		log.Debug().Err(err).Str("module", "signal").Msg("leave not sent")
	}
}
