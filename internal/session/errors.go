package session

import "errors"

var (
	// ErrNoFile is returned for a file index the session does not hold.
	ErrNoFile = errors.New("no such file")
	// ErrNoGroup is returned for a group index outside the selected file.
	ErrNoGroup = errors.New("no such group")
	// ErrNoSelection is returned when an operation needs a selected file.
	ErrNoSelection = errors.New("no file selected")
	// ErrNotFound is returned by the Manager for an unknown session id.
	ErrNotFound = errors.New("session not found")
)
