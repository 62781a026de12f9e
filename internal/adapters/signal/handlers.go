package signal

import (
	"github.com/rs/zerolog/log"

	"github.com/dkeye/voice-client/internal/core"
	"github.com/dkeye/voice-client/internal/domain"
)

func roomClosedReason(msg message) string {
	if msg.Reason != "" {
		return msg.Reason
	}
	return core.ReasonRoomClosed
}

// handlePeerJoined makes this side the offerer towards the newcomer.
func (c *Client) handlePeerJoined(conn *wsConn, msg message) {
	pid := msg.From
	if pid == c.Self {
		return
	}
	c.Orch.ClosePeer(pid)
	if err := c.Orch.CreatePeer(pid, c.ICEServers); err != nil {
		log.Error().Err(err).Str("module", "signal").Str("from", string(pid)).Msg("create peer")
		return
	}
	offer, err := c.Orch.MakeOffer(pid)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Str("from", string(pid)).Msg("make offer")
		return
	}
	c.sendDescription(conn, pid, offer)
}

func (c *Client) handleOffer(conn *wsConn, msg message) {
	pid := msg.From
	d, err := domain.ParseDescription(msg.Description)
	if err != nil || d.Type != domain.DescriptionOffer {
		log.Error().Err(err).Str("module", "signal").Str("from", string(pid)).Msg("bad offer payload")
		c.sendJSON(conn, message{Type: msgError, To: pid, Error: "bad_payload"})
		return
	}

	if _, ok := c.Orch.Registry.Get(pid); !ok {
		if err := c.Orch.CreatePeer(pid, c.ICEServers); err != nil {
			log.Error().Err(err).Str("module", "signal").Str("from", string(pid)).Msg("create peer")
			return
		}
	}
	if err := c.Orch.SetRemoteDescription(pid, d); err != nil {
		return
	}
	answer, err := c.Orch.MakeAnswer(pid)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Str("from", string(pid)).Msg("make answer")
		return
	}
	c.sendDescription(conn, pid, answer)
}

func (c *Client) handleAnswer(msg message) {
	d, err := domain.ParseDescription(msg.Description)
	if err != nil || d.Type != domain.DescriptionAnswer {
		log.Error().Err(err).Str("module", "signal").Str("from", string(msg.From)).Msg("bad answer payload")
		return
	}
	_ = c.Orch.SetRemoteDescription(msg.From, d)
}

func (c *Client) handleCandidate(msg message) {
	cand, err := domain.ParseCandidate(msg.Candidate)
	if err != nil {
		log.Warn().Err(err).Str("module", "signal").Str("from", string(msg.From)).Msg("bad candidate payload")
		return
	}
	if err := c.Orch.AddIceCandidate(msg.From, cand); err != nil {
		log.Debug().Err(err).Str("module", "signal").Str("from", string(msg.From)).Msg("candidate not applied")
	}
}

func (c *Client) sendDescription(conn *wsConn, to domain.ParticipantID, d domain.Description) {
	raw, err := d.Marshal()
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("marshal description")
		return
	}
	c.sendJSON(conn, message{Type: string(d.Type), From: c.Self, To: to, Description: raw})
}
