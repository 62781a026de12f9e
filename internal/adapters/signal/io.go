package signal

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/voice-client/internal/domain"
)

const writeWait = 5 * time.Second

const (
	msgJoin       = "join"
	msgLeave      = "leave"
	msgPeerJoined = "peer-joined"
	msgPeerLeft   = "peer-left"
	msgRoomClosed = "room-closed"
	msgOffer      = "offer"
	msgAnswer     = "answer"
	msgCandidate  = "candidate"
	msgPing       = "ping"
	msgPong       = "pong"
	msgError      = "error"
)

// message is the signaling envelope. Description and Candidate stay raw until
// the handler parses them into domain payloads.
type message struct {
	Type        string               `json:"type"`
	Room        domain.RoomID        `json:"room,omitempty"`
	From        domain.ParticipantID `json:"from,omitempty"`
	To          domain.ParticipantID `json:"to,omitempty"`
	Description json.RawMessage      `json:"description,omitempty"`
	Candidate   json.RawMessage      `json:"candidate,omitempty"`
	Reason      string               `json:"reason,omitempty"`
	Error       string               `json:"error,omitempty"`
}

func (c *Client) writePump(ctx context.Context, conn *wsConn) {
	for {
		select {
		case <-ctx.Done():
			log.Info().Str("module", "signal").Msg("writePump ctx done")
			return
		case data, ok := <-conn.send:
			if !ok {
				log.Debug().Str("module", "signal").Msg("writePump channel closed")
				return
			}
			if err := conn.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				log.Error().Err(err).Str("module", "signal").Msg("writePump set deadline")
				return
			}
			if err := conn.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Error().Err(err).Str("module", "signal").Msg("writePump write error")
				return
			}
		}
	}
}

func (c *Client) readPump(ctx context.Context, conn *wsConn) error {
	defer func() {
		log.Info().Str("module", "signal").Msg("readPump closing")
		conn.Close()
	}()

	for {
		_, data, err := conn.conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil || websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			log.Error().Err(err).Str("module", "signal").Msg("readPump read error")
			return err
		}
		c.handleMessage(ctx, conn, data)
	}
}

func (c *Client) handleMessage(ctx context.Context, conn *wsConn, data []byte) {
	var msg message
	if err := json.Unmarshal(data, &msg); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad json")
		return
	}

	switch msg.Type {
	case msgPeerJoined:
		c.handlePeerJoined(conn, msg)
	case msgOffer:
		c.handleOffer(conn, msg)
	case msgAnswer:
		c.handleAnswer(msg)
	case msgCandidate:
		c.handleCandidate(msg)
	case msgPeerLeft:
		c.Orch.ClosePeer(msg.From)
	case msgRoomClosed:
		c.Orch.HandleRemoteLeave(ctx, roomClosedReason(msg))
	case msgPing:
		c.sendJSON(conn, message{Type: msgPong})
	case msgError:
		log.Warn().Str("module", "signal").Str("error", msg.Error).Msg("server error")
	default:
		log.Warn().Str("module", "signal").Str("type", msg.Type).Msg("unknown signal")
	}
}

func (c *Client) sendJSON(conn *wsConn, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("sendJSON marshal")
		return err
	}
	if err := conn.TrySend(b); err != nil {
		if errors.Is(err, ErrBackpressure) {
			log.Warn().Str("module", "signal").Msg("send queue full")
		}
		return err
	}
	return nil
}
