/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package herd

import (
	"context"
	"fmt"
	"sort"
)

// Session holds the state of one playthrough: the question bank, the
// roster and its scores, and the position in the bank.
//
// A Session is not safe for concurrent use.
type Session struct {
	bank    *Bank
	players map[string]struct{}
	scores  map[string]int
	index   int
}

func NewSession(source Source) *Session {
	return &Session{
		bank:    NewBank(source),
		players: make(map[string]struct{}),
		scores:  make(map[string]int),
	}
}

// Load reads the question bank up front, surfacing source errors before
// the first round starts.
func (s *Session) Load(ctx context.Context) error {
	return s.bank.Load(ctx)
}

// AddPlayer registers name with a score of zero. Adding a player who is
// already registered leaves their score alone.
func (s *Session) AddPlayer(name string) {
	if _, ok := s.players[name]; ok {
		return
	}
	s.players[name] = struct{}{}
	s.scores[name] = 0
}

func (s *Session) HasPlayer(name string) bool {
	_, ok := s.players[name]
	return ok
}

// Players returns the registered players sorted by name.
func (s *Session) Players() []string {
	players := make([]string, 0, len(s.players))
	for p := range s.players {
		players = append(players, p)
	}
	sort.Strings(players)
	return players
}

func (s *Session) Index() int {
	return s.index
}

func (s *Session) CurrentQuestion(ctx context.Context) (*Question, error) {
	return s.bank.Current(ctx, s.index)
}

// SubmitAnswer records player's answer to the current question.
func (s *Session) SubmitAnswer(ctx context.Context, player, answer string) error {
	if !s.HasPlayer(player) {
		return fmt.Errorf("%w: %q", ErrUnknownPlayer, player)
	}

	q, err := s.CurrentQuestion(ctx)
	if err != nil {
		return err
	}

	q.AddAnswer(player, answer)

	return nil
}

// ScoreCurrentQuestion awards a point to every player who gave the
// most common answer to the current question and returns them.
//
// Each call awards points again; scoring the same question twice
// counts its winners twice.
func (s *Session) ScoreCurrentQuestion(ctx context.Context) ([]string, error) {
	q, err := s.CurrentQuestion(ctx)
	if err != nil {
		return nil, err
	}

	winners := q.PlayersWithMostCommonAnswer()
	for _, p := range winners {
		s.scores[p]++
	}

	return winners, nil
}

// NextQuestion moves to the following question, wrapping around at the
// end of the bank. Answers on the question left behind are kept, and
// show up again if the bank cycles back to it.
func (s *Session) NextQuestion(ctx context.Context) error {
	if !s.bank.Loaded() {
		if err := s.bank.Load(ctx); err != nil {
			return err
		}
	}

	next, err := s.bank.Advance(s.index)
	if err != nil {
		return err
	}
	s.index = next

	return nil
}

// Scores returns a copy of the scoreboard.
func (s *Session) Scores() map[string]int {
	out := make(map[string]int, len(s.scores))
	for p, n := range s.scores {
		out[p] = n
	}
	return out
}

func (s *Session) Standings() Standings {
	return FinalStandings(s.scores)
}

func (s *Session) Ranking() []PlayerScore {
	return Ranking(s.scores)
}
