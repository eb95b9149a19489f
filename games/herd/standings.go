/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package herd

import "sort"

type PlayerScore struct {
	Player string `json:"player"`
	Score  int    `json:"score"`
}

// Standings is the outcome of a finished game.
type Standings struct {
	Scores      map[string]int `json:"scores"`
	Winners     []string       `json:"winners"`
	WinnerScore int            `json:"winner_score"`
}

// Tie reports whether more than one player shares the top score.
func (s Standings) Tie() bool {
	return len(s.Winners) > 1
}

// FinalStandings reports every player holding the highest score as a
// winner. With no players the winner score is zero and there are no
// winners.
func FinalStandings(scores map[string]int) Standings {
	st := Standings{
		Scores: make(map[string]int, len(scores)),
	}

	first := true
	for p, n := range scores {
		st.Scores[p] = n
		if first || n > st.WinnerScore {
			st.WinnerScore = n
			first = false
		}
	}

	for p, n := range scores {
		if n == st.WinnerScore {
			st.Winners = append(st.Winners, p)
		}
	}
	sort.Strings(st.Winners)

	return st
}

// Ranking orders players by score, highest first, then by name.
func Ranking(scores map[string]int) []PlayerScore {
	out := make([]PlayerScore, 0, len(scores))
	for p, n := range scores {
		out = append(out, PlayerScore{Player: p, Score: n})
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].Player < out[j].Player
	})

	return out
}
