package service

import "errors"

// Sentinel kinds for engine errors.
var (
	ErrNotLoaded    = errors.New("no performance snapshot loaded")
	ErrNoSource     = errors.New("no record source configured")
	ErrSongNotFound = errors.New("song not found")
)
