package repository

import "errors"

var (
	// ErrNotFound is returned when a requested entity does not exist.
	ErrNotFound = errors.New("entity not found")

	// ErrTerminalState is returned when a status update targets a
	// transaction already in a terminal state.
	ErrTerminalState = errors.New("transaction is in a terminal state")
)
