package repository

import "errors"

// Sentinel kinds for repository errors.
var (
	ErrOpen   = errors.New("open record store failed")
	ErrLoad   = errors.New("load performance records failed")
	ErrInsert = errors.New("insert performance records failed")
)
