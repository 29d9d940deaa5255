package domain

import (
	"sort"
	"time"
)

// CallState is the lifecycle state of a one-to-one call.
// Keep values stable because they are exposed on the admin API.
type CallState string

const (
	CallStateRinging   CallState = "ringing"
	CallStateConnected CallState = "connected"
	CallStateEnded     CallState = "ended"
	CallStateRejected  CallState = "rejected"
	CallStateTimedOut  CallState = "timed_out"
)

// Terminal reports whether no further transitions are possible.
func (s CallState) Terminal() bool {
	switch s {
	case CallStateEnded, CallStateRejected, CallStateTimedOut:
		return true
	}
	return false
}

type DirectCall struct {
	ID          CallID
	CallerID    UserID
	CallerName  string
	ReceiverID  UserID
	IsVideo     bool
	State       CallState
	InitiatedAt time.Time
	ConnectedAt time.Time
	EndedAt     time.Time
}

// Involves reports whether both users are parties of this call, in either role.
func (c *DirectCall) Involves(a, b UserID) bool {
	return (c.CallerID == a && c.ReceiverID == b) || (c.CallerID == b && c.ReceiverID == a)
}

// Other returns the opposite party of the call relative to u.
func (c *DirectCall) Other(u UserID) UserID {
	if c.CallerID == u {
		return c.ReceiverID
	}
	return c.CallerID
}

// PairKey builds an order-independent key for a pair of users. At most one
// non-terminal call may exist per pair key.
func PairKey(a, b UserID) string {
	ids := []string{string(a), string(b)}
	sort.Strings(ids)
	return ids[0] + "|" + ids[1]
}
