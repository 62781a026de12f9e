package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/voice-client/internal/config"
	"github.com/dkeye/voice-client/internal/core"
	"github.com/dkeye/voice-client/internal/domain"
)

const maxBody = 64 << 10

type trackRequest struct {
	Kind    string `json:"kind"`
	Enabled bool   `json:"enabled"`
}

type peerRequest struct {
	ICEServers json.RawMessage `json:"ice_servers"`
}

type sessionRequest struct {
	Room        domain.RoomID        `json:"room"`
	Participant domain.ParticipantID `json:"participant"`
	CurrentRoom domain.RoomID        `json:"current_room"`
	Location    string               `json:"location"`
}

// statusFor maps runtime errors onto HTTP statuses.
func statusFor(err error) int {
	var te *core.TransportError
	switch {
	case errors.As(err, &te):
		return http.StatusBadGateway
	case errors.Is(err, domain.ErrBadPayload),
		errors.Is(err, domain.ErrUnknownKind),
		errors.Is(err, core.ErrMissingParams),
		errors.Is(err, core.ErrMissingRoomID):
		return http.StatusBadRequest
	case errors.Is(err, core.ErrNoPeer), errors.Is(err, core.ErrNoSurface):
		return http.StatusNotFound
	case errors.Is(err, core.ErrPermissionDenied):
		return http.StatusForbidden
	case errors.Is(err, core.ErrDeviceBusy),
		errors.Is(err, core.ErrNoRemoteOffer),
		errors.Is(err, core.ErrNoLocalMedia):
		return http.StatusConflict
	case errors.Is(err, core.ErrCandidateRejected):
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

func fail(c *gin.Context, err error) {
	resp := gin.H{"ok": false, "error": err.Error()}
	var te *core.TransportError
	if errors.As(err, &te) {
		resp["status"] = te.Status
		resp["text"] = te.Text
	}
	c.JSON(statusFor(err), resp)
}

func readBody(c *gin.Context) ([]byte, error) {
	return io.ReadAll(io.LimitReader(c.Request.Body, maxBody))
}

func pid(c *gin.Context) domain.ParticipantID {
	return domain.ParticipantID(c.Param("id"))
}

func (b *Bridge) acquireMedia(c *gin.Context) {
	var constraints *core.Constraints
	if c.Request.ContentLength > 0 {
		constraints = &core.Constraints{}
		if err := c.ShouldBindJSON(constraints); err != nil {
			fail(c, domain.ErrBadPayload)
			return
		}
	}
	res, err := b.Orch.AcquireLocalMedia(c.Request.Context(), constraints)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "id": res.StreamID, "degraded": res.Degraded, "warning": res.Warning})
}

func (b *Bridge) setTrackEnabled(c *gin.Context) {
	var req trackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, domain.ErrBadPayload)
		return
	}
	kind, err := domain.ParseMediaKind(req.Kind)
	if err != nil {
		fail(c, err)
		return
	}
	b.Orch.SetTrackEnabled(kind, req.Enabled)
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (b *Bridge) attachLocal(c *gin.Context) {
	if err := b.Orch.AttachLocalDisplay(domain.SurfaceID(c.Param("id"))); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (b *Bridge) createPeer(c *gin.Context) {
	var req peerRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			fail(c, domain.ErrBadPayload)
			return
		}
	}
	servers, err := config.ParseICEServersJSON(string(req.ICEServers))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": err.Error()})
		return
	}
	if err := b.Orch.CreatePeer(pid(c), servers); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (b *Bridge) closePeer(c *gin.Context) {
	b.Orch.ClosePeer(pid(c))
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (b *Bridge) makeOffer(c *gin.Context) {
	d, err := b.Orch.MakeOffer(pid(c))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, d)
}

func (b *Bridge) makeAnswer(c *gin.Context) {
	d, err := b.Orch.MakeAnswer(pid(c))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, d)
}

func (b *Bridge) setRemoteDescription(c *gin.Context) {
	raw, err := readBody(c)
	if err != nil {
		fail(c, domain.ErrBadPayload)
		return
	}
	d, err := domain.ParseDescription(raw)
	if err != nil {
		fail(c, err)
		return
	}
	if err := b.Orch.SetRemoteDescription(pid(c), d); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (b *Bridge) addCandidate(c *gin.Context) {
	raw, err := readBody(c)
	if err != nil {
		fail(c, domain.ErrBadPayload)
		return
	}
	cand, err := domain.ParseCandidate(raw)
	if err != nil {
		fail(c, err)
		return
	}
	if err := b.Orch.AddIceCandidate(pid(c), cand); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (b *Bridge) updateSession(c *gin.Context) {
	var req sessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, domain.ErrBadPayload)
		return
	}
	b.Orch.SetSession(req.Room, req.Participant)
	b.Orch.SetCurrentRoom(req.CurrentRoom)
	b.Orch.SetLocation(req.Location)
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (b *Bridge) selfKick(c *gin.Context) {
	out, err := b.Orch.SelfKick(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "already": out.Already})
}

func (b *Bridge) removeRoom(c *gin.Context) {
	out, err := b.Orch.RemoveRoom(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "already": out.Already})
}

func (b *Bridge) interaction(c *gin.Context) {
	n := 0
	if b.Interactions != nil {
		n = b.Interactions.Fire()
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "resumed": n})
}

func (b *Bridge) rateLimited() gin.HandlerFunc {
	return func(c *gin.Context) {
		if b.Limiter == nil {
			c.Next()
			return
		}
		token := c.GetString("client_token")
		if !b.Limiter.Allow(token) {
			log.Warn().Str("module", "adapters.http").Str("client", token).Str("path", c.FullPath()).Msg("rate limited")
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"ok": false, "error": "rate_limited"})
			return
		}
		c.Next()
	}
}

// events streams UI notifications as server-sent events.
func (b *Bridge) events(c *gin.Context) {
	ch, cancel := b.Events.Subscribe()
	defer cancel()

	c.SSEvent("ready", gin.H{"ok": true})
	c.Writer.Flush()

	c.Stream(func(w io.Writer) bool {
		select {
		case <-c.Request.Context().Done():
			return false
		case ev, ok := <-ch:
			if !ok {
				return false
			}
			c.SSEvent(ev.Name, ev.Data)
			return true
		}
	})
}
