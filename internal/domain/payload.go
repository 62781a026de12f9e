package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/pion/ice/v4"
	"github.com/pion/sdp/v3"
)

var ErrBadPayload = errors.New("bad payload")

type DescriptionType string

const (
	DescriptionOffer  DescriptionType = "offer"
	DescriptionAnswer DescriptionType = "answer"
)

// Description is a session description exchanged during negotiation.
type Description struct {
	Type DescriptionType `json:"type"`
	SDP  string          `json:"sdp"`
}

// ParseDescription decodes and validates a serialized description.
func ParseDescription(raw []byte) (Description, error) {
	var d Description
	if len(raw) == 0 {
		return d, fmt.Errorf("%w: empty description", ErrBadPayload)
	}
	if err := json.Unmarshal(raw, &d); err != nil {
		return Description{}, fmt.Errorf("%w: %v", ErrBadPayload, err)
	}
	if err := d.Validate(); err != nil {
		return Description{}, err
	}
	return d, nil
}

func (d Description) Validate() error {
	switch d.Type {
	case DescriptionOffer, DescriptionAnswer:
	default:
		return fmt.Errorf("%w: unsupported description type %q", ErrBadPayload, d.Type)
	}
	if strings.TrimSpace(d.SDP) == "" {
		return fmt.Errorf("%w: empty sdp", ErrBadPayload)
	}
	var parsed sdp.SessionDescription
	if err := parsed.Unmarshal([]byte(d.SDP)); err != nil {
		return fmt.Errorf("%w: sdp: %v", ErrBadPayload, err)
	}
	return nil
}

func (d Description) Marshal() ([]byte, error) {
	return json.Marshal(d)
}

// Candidate is one trickled ICE candidate. An empty Candidate line marks
// end-of-candidates.
type Candidate struct {
	Candidate        string  `json:"candidate"`
	SDPMid           *string `json:"sdpMid,omitempty"`
	SDPMLineIndex    *uint16 `json:"sdpMLineIndex,omitempty"`
	UsernameFragment *string `json:"usernameFragment,omitempty"`
}

// ParseCandidate decodes and validates a serialized candidate.
func ParseCandidate(raw []byte) (Candidate, error) {
	var c Candidate
	if len(raw) == 0 {
		return c, fmt.Errorf("%w: empty candidate", ErrBadPayload)
	}
	if err := json.Unmarshal(raw, &c); err != nil {
		return Candidate{}, fmt.Errorf("%w: %v", ErrBadPayload, err)
	}
	if err := c.Validate(); err != nil {
		return Candidate{}, err
	}
	return c, nil
}

func (c Candidate) Validate() error {
	if c.EndOfCandidates() {
		return nil
	}
	if _, err := ice.UnmarshalCandidate(strings.TrimPrefix(c.Candidate, "candidate:")); err != nil {
		return fmt.Errorf("%w: candidate: %v", ErrBadPayload, err)
	}
	return nil
}

func (c Candidate) EndOfCandidates() bool { return c.Candidate == "" }

func (c Candidate) Marshal() ([]byte, error) {
	return json.Marshal(c)
}
