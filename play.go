/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/Seednode/herd/games/herd"
)

const (
	heavyRule = "=================================================="
	lightRule = "--------------------------------------------------"
	starRule  = "**************************************************"
)

// terminal runs a game with players sharing one keyboard.
type terminal struct {
	in  *bufio.Scanner
	out io.Writer
}

func (t *terminal) printf(format string, args ...any) {
	fmt.Fprintf(t.out, format, args...)
}

// prompt writes text and reads one line of input. It reports false once
// the input is exhausted.
func (t *terminal) prompt(text string) (string, bool) {
	t.printf("%s", text)

	if !t.in.Scan() {
		return "", false
	}
	return t.in.Text(), true
}

// Play runs an interactive game on in and out.
func Play(ctx context.Context, cfg *Config, in io.Reader, out io.Writer) error {
	t := &terminal{
		in:  bufio.NewScanner(in),
		out: out,
	}

	session := herd.NewSession(questionSource(cfg))
	if err := session.Load(ctx); err != nil {
		return err
	}

	t.welcome()
	t.setupPlayers(session)

	if len(session.Players()) == 0 {
		t.printf("No players added. Exiting game.\n")
		return nil
	}

	rounds := cfg.rounds
	if rounds == 0 {
		var err error
		if rounds, err = t.askRounds(); err != nil {
			return err
		}
	}

	game, err := herd.NewGame(session, rounds)
	if err != nil {
		return err
	}

	for !game.Over() {
		if err := ctx.Err(); err != nil {
			return err
		}

		t.printf("\n\nRound %d of %d\n", game.Round(), game.Rounds())

		if err := t.playRound(ctx, game); err != nil {
			return err
		}
	}

	t.finalResults(game.Standings())

	return nil
}

func (t *terminal) welcome() {
	t.printf("\n%s\n", heavyRule)
	t.printf("Welcome to Herd Mentality!\n")
	t.printf("%s\n", heavyRule)
	t.printf("\nIn this game, you'll answer programming-related questions.\n")
	t.printf("Points are awarded to players who give the same answer as the majority.\n")
	t.printf("The goal is to think like the herd!\n\n")
}

func (t *terminal) setupPlayers(s *herd.Session) {
	t.printf("\nLet's set up the players!\n")
	t.printf("Enter player names one by one (press Enter with no name to finish):\n")

	for {
		line, ok := t.prompt("Enter player name: ")
		name := strings.TrimSpace(line)
		if !ok || name == "" {
			break
		}

		s.AddPlayer(name)
		t.printf("Added %s to the game!\n", name)
	}

	players := s.Players()
	t.printf("\nGame set up with %d players: %s\n", len(players), strings.Join(players, ", "))
}

func (t *terminal) askRounds() (int, error) {
	for {
		line, ok := t.prompt("\nHow many rounds would you like to play? ")
		if !ok {
			return 0, fmt.Errorf("reading round count: %w", io.ErrUnexpectedEOF)
		}

		n, err := strconv.Atoi(strings.TrimSpace(line))
		if err == nil && n > 0 {
			return n, nil
		}

		t.printf("Please enter a whole number greater than zero.\n")
	}
}

func (t *terminal) playRound(ctx context.Context, g *herd.Game) error {
	s := g.Session()

	q, err := s.CurrentQuestion(ctx)
	if err != nil {
		return err
	}

	t.printf("\n%s\n", lightRule)
	t.printf("Question: %s\n", q.Text())
	t.printf("%s\n", lightRule)

	t.printf("\nTime to collect answers!\n")
	t.printf("(Other players should look away when it's not their turn)\n")

	for _, player := range s.Players() {
		if _, ok := t.prompt(fmt.Sprintf("\nPress Enter when %s is ready to answer...", player)); !ok {
			return fmt.Errorf("waiting for %s: %w", player, io.ErrUnexpectedEOF)
		}

		answer, ok := t.prompt(fmt.Sprintf("%s, what's your answer? ", player))
		if !ok {
			return fmt.Errorf("reading answer from %s: %w", player, io.ErrUnexpectedEOF)
		}

		if err := s.SubmitAnswer(ctx, player, answer); err != nil {
			return err
		}

		// push the answer off screen before the next player looks
		t.printf("%s", strings.Repeat("\n", 20))
	}

	res, err := g.Score(ctx)
	if err != nil {
		return err
	}
	t.roundResults(res)

	return g.Advance(ctx)
}

func (t *terminal) roundResults(res herd.RoundResult) {
	t.printf("\n%s\n", starRule)
	t.printf("Results:\n")
	t.printf("%s\n", starRule)

	t.printf("\nThe most common answer was: %q\n", res.MostCommon)
	t.printf("Players with this answer: %s\n", strings.Join(res.Winners, ", "))

	t.printf("\nAll answers:\n")
	players := make([]string, 0, len(res.Answers))
	for p := range res.Answers {
		players = append(players, p)
	}
	sort.Strings(players)
	for _, p := range players {
		t.printf("%s: %q\n", p, res.Answers[p])
	}

	t.printf("\nCurrent scores:\n")
	players = players[:0]
	for p := range res.Scores {
		players = append(players, p)
	}
	sort.Strings(players)
	for _, p := range players {
		t.printf("%s: %d points\n", p, res.Scores[p])
	}
}

func (t *terminal) finalResults(st herd.Standings) {
	t.printf("\n%s\n", heavyRule)
	t.printf("Final Results\n")
	t.printf("%s\n", heavyRule)

	t.printf("\nFinal scores:\n")
	for _, ps := range herd.Ranking(st.Scores) {
		t.printf("%s: %d points\n", ps.Player, ps.Score)
	}

	switch {
	case len(st.Winners) == 1:
		t.printf("\nThe winner is %s with %d points!\n", st.Winners[0], st.WinnerScore)
	case st.Tie():
		t.printf("\nIt's a tie! The winners are %s with %d points each!\n", strings.Join(st.Winners, ", "), st.WinnerScore)
	}
}
