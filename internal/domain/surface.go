package domain

import "strings"

// SurfaceID names a UI-owned display surface.
type SurfaceID string

const (
	LocalSurfaceID      SurfaceID = "local"
	RemoteSurfacePrefix           = "remote-"
)

// RemoteSurfaceID is the surface a participant's media is rendered on.
func RemoteSurfaceID(pid ParticipantID) SurfaceID {
	return SurfaceID(RemoteSurfacePrefix + string(pid))
}

func (s SurfaceID) IsRemote() bool {
	return strings.HasPrefix(string(s), RemoteSurfacePrefix)
}
