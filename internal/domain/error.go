package domain

import "errors"

var (
	// Common domain errors
	ErrNotFound        = errors.New("entity not found")
	ErrInvalidArgument = errors.New("invalid argument")
	ErrInvalidRole     = errors.New("invalid message role")

	// Persistence
	ErrCorruptState = errors.New("persisted state is corrupt")

	// Collaborators
	ErrUploadFailed     = errors.New("upload failed")
	ErrResponderTimeout = errors.New("responder timed out")
	ErrResponderBusy    = errors.New("responder queue full")
	ErrReplyCanceled    = errors.New("reply canceled")
)
