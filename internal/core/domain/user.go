package domain

import "time"

type UserID string
type CallID string
type GroupID string

// ConnectionHandle is an opaque reference to a live transport session.
// Pushing through a handle must never be done while holding coordinator locks.
type ConnectionHandle interface {
	Send(v interface{}) error
}

// ConnectionEntry maps a user identity to its single active connection.
// A reconnect under the same identity supersedes the previous entry.
type ConnectionEntry struct {
	UserID      UserID
	Handle      ConnectionHandle
	DisplayName string
	ConnectedAt time.Time
}
