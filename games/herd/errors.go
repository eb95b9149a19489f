/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package herd

import "errors"

var (
	// ErrDataSource is returned when the question source cannot be read.
	ErrDataSource = errors.New("question source unavailable")

	// ErrEmptyBank is returned when no questions are available.
	ErrEmptyBank = errors.New("no questions loaded")

	// ErrUnknownPlayer is returned when an answer is submitted for a
	// player who never joined the session.
	ErrUnknownPlayer = errors.New("player is not in the game")

	// ErrInvalidRounds is returned when a game is configured with fewer
	// than one round.
	ErrInvalidRounds = errors.New("a game needs at least one round")
)
