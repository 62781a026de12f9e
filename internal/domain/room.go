package domain

import (
	"net/url"
	"strings"
)

type RoomID string

// RoomFromLocation extracts the room id from a navigation location shaped
// like /room/<id>/... Full URLs are accepted. Returns "" when absent.
func RoomFromLocation(location string) RoomID {
	location = strings.TrimSpace(location)
	if location == "" {
		return ""
	}
	path := location
	if u, err := url.Parse(location); err == nil {
		path = u.EscapedPath()
	}
	parts := strings.Split(path, "/")
	if len(parts) < 3 {
		return ""
	}
	id, err := url.PathUnescape(parts[2])
	if err != nil {
		return ""
	}
	return RoomID(id)
}
