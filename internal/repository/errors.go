package repository

import "errors"

var (
	// ErrRoomExists means the code already denotes a room, active or not.
	// Codes are never reused, so a deleted room's code still conflicts.
	ErrRoomExists = errors.New("repository: room code already exists")

	// ErrRoomNotFound means no room was ever created with that code.
	ErrRoomNotFound = errors.New("repository: room not found")
)
