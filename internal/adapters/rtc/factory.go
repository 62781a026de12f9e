package rtc

import (
	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/voice-client/internal/core"
	"github.com/dkeye/voice-client/internal/domain"
)

type Factory struct {
	API *webrtc.API
	// DefaultICE is used when a unit is created without ICE servers.
	DefaultICE []webrtc.ICEServer
}

func (f *Factory) NewUnit(pid domain.ParticipantID, iceServers []webrtc.ICEServer, local core.MediaStream) (core.NegotiationUnit, error) {
	if len(iceServers) == 0 {
		iceServers = f.DefaultICE
	}
	api := f.API
	if api == nil {
		var err error
		if api, err = NewAPI(nil); err != nil {
			return nil, err
		}
	}

	c, err := NewConnection(api, DefaultWebRTCConfig(iceServers), pid)
	if err != nil {
		return nil, err
	}
	if local != nil {
		for _, t := range local.Tracks() {
			lt, ok := t.(core.LocalTrack)
			if !ok {
				continue
			}
			if err := c.AddLocalTrack(lt.TrackLocal()); err != nil {
				_ = c.Close()
				return nil, err
			}
		}
	}
	log.Info().Str("module", "rtc").Str("participant", string(pid)).Int("ice_servers", len(iceServers)).Msg("negotiation unit created")
	return c, nil
}
