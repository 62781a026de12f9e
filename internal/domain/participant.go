// Package domain contains identifiers and signaling payloads, no lifecycle logic
package domain

import (
	"errors"
	"strings"
)

const MaxParticipantIDLen = 64

var (
	ErrParticipantEmpty   = errors.New("participant id empty")
	ErrParticipantTooLong = errors.New("participant id too long")
)

// ParticipantID identifies a remote participant, unique within a session.
type ParticipantID string

func (p ParticipantID) Validate() error {
	if len(strings.TrimSpace(string(p))) == 0 {
		return ErrParticipantEmpty
	}
	if len(p) > MaxParticipantIDLen {
		return ErrParticipantTooLong
	}
	return nil
}

type MediaKind string

const (
	KindAudio MediaKind = "audio"
	KindVideo MediaKind = "video"
)

var ErrUnknownKind = errors.New("unknown media kind")

func ParseMediaKind(s string) (MediaKind, error) {
	switch MediaKind(strings.ToLower(strings.TrimSpace(s))) {
	case KindAudio:
		return KindAudio, nil
	case KindVideo:
		return KindVideo, nil
	}
	return "", ErrUnknownKind
}
