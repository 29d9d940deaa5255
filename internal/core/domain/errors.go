package domain

import "errors"

var (
	ErrUserOffline     = errors.New("user is offline")
	ErrUserNotFound    = errors.New("user not found")
	ErrSelfCall        = errors.New("cannot call yourself")
	ErrPairBusy        = errors.New("call already in progress with this user")
	ErrCallNotFound    = errors.New("call not found")
	ErrRoomNotFound    = errors.New("room not found")
	ErrRoomExists      = errors.New("room already active for group")
	ErrLanRecordNotFound = errors.New("lan record not found")
)
