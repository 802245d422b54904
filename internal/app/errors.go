package service

import "errors"

// Common service errors.
var (
	// ErrAlreadySeeded is returned when seeding is requested on an
	// installation that already has events.
	ErrAlreadySeeded = errors.New("events already exist; delete them first to reseed")

	// ErrRosterExists is returned when a contestant seed is requested
	// for an event that already has contestants.
	ErrRosterExists = errors.New("contestants already exist for this event")
)
