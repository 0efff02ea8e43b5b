package domain

import "time"

type CallID string

type CallMode string

const (
	CallAudio CallMode = "audio"
	CallVideo CallMode = "video"
)

func (m CallMode) Valid() bool {
	return m == CallAudio || m == CallVideo
}

// CallState is the in-memory state of a signaling session.
type CallState string

const (
	CallRinging  CallState = "ringing"
	CallAnswered CallState = "answered"
	CallRejected CallState = "rejected"
	CallEnded    CallState = "ended"
)

func (s CallState) Terminal() bool {
	return s == CallRejected || s == CallEnded
}

// EndReason tells how an Ended session got there.
type EndReason string

const (
	EndCompleted    EndReason = "completed"
	EndMissed       EndReason = "missed"
	EndCancelled    EndReason = "cancelled"
	EndDisconnected EndReason = "disconnected"
)

// CallSession is created on initiation and only mutated by the call relay.
// Participants are the users currently in the call, caller included.
type CallSession struct {
	ID           CallID     `json:"id"`
	CallerID     UserID     `json:"callerId"`
	Targets      []UserID   `json:"targets"`
	Participants []UserID   `json:"participants"`
	Declined     []UserID   `json:"declined,omitempty"`
	Mode         CallMode   `json:"mode"`
	GroupID      GroupID    `json:"groupId,omitempty"`
	State        CallState  `json:"state"`
	EndReason    EndReason  `json:"endReason,omitempty"`
	StartedAt    time.Time  `json:"startedAt"`
	AnsweredAt   *time.Time `json:"answeredAt,omitempty"`
	EndedAt      *time.Time `json:"endedAt,omitempty"`
}

func (c *CallSession) IsGroup() bool { return c.GroupID != "" }

// IsTarget reports whether user was rung by this call.
func (c *CallSession) IsTarget(user UserID) bool { return ContainsUser(c.Targets, user) }

// IsParty reports whether user is the caller, a target or a joined participant.
func (c *CallSession) IsParty(user UserID) bool {
	return user == c.CallerID || c.IsTarget(user) || ContainsUser(c.Participants, user)
}

// Pending lists targets that neither joined nor declined yet.
func (c *CallSession) Pending() []UserID {
	var out []UserID
	for _, t := range c.Targets {
		if !ContainsUser(c.Declined, t) && !ContainsUser(c.Participants, t) {
			out = append(out, t)
		}
	}
	return out
}

// Parties returns the users a call event goes to: the participants and,
// while ringing, the pending targets.
func (c *CallSession) Parties() []UserID {
	all := append([]UserID(nil), c.Participants...)
	if c.State == CallRinging {
		all = append(all, c.Pending()...)
	}
	return UniqueUsers(all)
}

// Clone returns a deep copy safe to hand out of the relay.
func (c CallSession) Clone() CallSession {
	c.Targets = append([]UserID(nil), c.Targets...)
	c.Participants = append([]UserID(nil), c.Participants...)
	c.Declined = append([]UserID(nil), c.Declined...)
	if c.AnsweredAt != nil {
		t := *c.AnsweredAt
		c.AnsweredAt = &t
	}
	if c.EndedAt != nil {
		t := *c.EndedAt
		c.EndedAt = &t
	}
	return c
}

// CallStatus is the durable status kept by the call record store.
type CallStatus string

const (
	CallStatusRinging  CallStatus = "ringing"
	CallStatusAnswered CallStatus = "answered"
	CallStatusRejected CallStatus = "rejected"
	CallStatusMissed   CallStatus = "missed"
	CallStatusEnded    CallStatus = "ended"
)

type CallRecord struct {
	ID        CallID     `json:"id"`
	CallerID  UserID     `json:"callerId"`
	Receivers []UserID   `json:"receivers"`
	Mode      CallMode   `json:"mode"`
	GroupID   GroupID    `json:"groupId,omitempty"`
	Status    CallStatus `json:"status"`
	StartTime time.Time  `json:"startTime"`
	EndTime   *time.Time `json:"endTime,omitempty"`
	// Duration is whole seconds, set when an answered call ends.
	Duration int64 `json:"duration"`
}
