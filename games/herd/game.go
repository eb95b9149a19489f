/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package herd

import (
	"context"
	"fmt"
)

// RoundResult is a snapshot of a scored round.
type RoundResult struct {
	Question   string            `json:"question"`
	MostCommon string            `json:"most_common"`
	Winners    []string          `json:"winners"`
	Answers    map[string]string `json:"answers"`
	Scores     map[string]int    `json:"scores"`
}

// Game runs a Session for a fixed number of rounds.
type Game struct {
	session *Session
	round   int
	rounds  int
	result  *RoundResult
}

// NewGame runs a game of the given number of rounds on session, starting
// from its current question.
func NewGame(session *Session, rounds int) (*Game, error) {
	if rounds < 1 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidRounds, rounds)
	}

	return &Game{
		session: session,
		round:   1,
		rounds:  rounds,
	}, nil
}

func (g *Game) Session() *Session {
	return g.session
}

// Round returns the current round, counting from 1.
func (g *Game) Round() int {
	return g.round
}

func (g *Game) Rounds() int {
	return g.rounds
}

// LastRound reports whether the current round is the final one.
func (g *Game) LastRound() bool {
	return g.round >= g.rounds
}

// Over reports whether every round has been played.
func (g *Game) Over() bool {
	return g.round > g.rounds
}

// Score scores the current question and keeps the result until the
// game advances.
func (g *Game) Score(ctx context.Context) (RoundResult, error) {
	q, err := g.session.CurrentQuestion(ctx)
	if err != nil {
		return RoundResult{}, err
	}

	mostCommon := q.MostCommonAnswer()

	winners, err := g.session.ScoreCurrentQuestion(ctx)
	if err != nil {
		return RoundResult{}, err
	}

	res := RoundResult{
		Question:   q.Text(),
		MostCommon: mostCommon,
		Winners:    winners,
		Answers:    q.Answers(),
		Scores:     g.session.Scores(),
	}
	g.result = &res

	return res, nil
}

// Result returns the last scored round, if the current round has been
// scored.
func (g *Game) Result() (RoundResult, bool) {
	if g.result == nil {
		return RoundResult{}, false
	}
	return *g.result, true
}

// Advance moves on to the next question and round.
func (g *Game) Advance(ctx context.Context) error {
	if err := g.session.NextQuestion(ctx); err != nil {
		return err
	}
	g.round++
	g.result = nil

	return nil
}

func (g *Game) Standings() Standings {
	return g.session.Standings()
}
