// Package domain contains entities without logic, just meta-data.
package domain

import (
	"errors"

	"github.com/google/uuid"
)

const MaxDisplayNameLen = 36

var (
	ErrNameEmpty   = errors.New("display name empty")
	ErrNameTooLong = errors.New("display name too long")
	ErrBadRole     = errors.New("unknown role")
)

type (
	RoomID        string
	ParticipantID string
	// PeerID addresses a participant for direct media negotiation.
	// It is session-scoped and distinct from ParticipantID.
	PeerID string
)

type Role string

const (
	RoleTeacher Role = "teacher"
	RoleStudent Role = "student"
)

func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleTeacher, RoleStudent:
		return Role(s), nil
	}
	return "", ErrBadRole
}

// Participant is one remote member of a room as seen in the roster.
// The local user is never stored as a Participant.
type Participant struct {
	ID        ParticipantID `json:"id"`
	Name      string        `json:"name"`
	Role      Role          `json:"role"`
	PeerID    PeerID        `json:"peerId,omitempty"`
	IsMuted   bool          `json:"isMuted"`
	IsVideoOn bool          `json:"isVideoOn"`
}

// NewPeerID mints a fresh session-scoped media identity.
func NewPeerID() PeerID {
	return PeerID(uuid.NewString())
}

// ParticipantPatch is a partial field update for a roster entry.
// Nil fields are left untouched.
type ParticipantPatch struct {
	Name      *string `json:"name,omitempty"`
	IsMuted   *bool   `json:"isMuted,omitempty"`
	IsVideoOn *bool   `json:"isVideoOn,omitempty"`
}

// ApplyTo returns a copy of p with the non-nil patch fields set.
func (pp ParticipantPatch) ApplyTo(p Participant) Participant {
	if pp.Name != nil {
		p.Name = *pp.Name
	}
	if pp.IsMuted != nil {
		p.IsMuted = *pp.IsMuted
	}
	if pp.IsVideoOn != nil {
		p.IsVideoOn = *pp.IsVideoOn
	}
	return p
}
