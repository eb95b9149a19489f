/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package herd

// Question is a single prompt and the answers given to it this round.
type Question struct {
	text    string
	answers map[string]string

	// players in the order they first answered; drives tie-breaking
	order []string
}

func NewQuestion(text string) *Question {
	return &Question{
		text:    text,
		answers: make(map[string]string),
	}
}

// Text returns the prompt.
func (q *Question) Text() string {
	return q.text
}

// AddAnswer records answer for player, replacing any earlier answer.
func (q *Question) AddAnswer(player, answer string) {
	if _, ok := q.answers[player]; !ok {
		q.order = append(q.order, player)
	}
	q.answers[player] = answer
}

func (q *Question) Answer(player string) (string, bool) {
	a, ok := q.answers[player]
	return a, ok
}

// Answers returns a copy of the player to answer mapping.
func (q *Question) Answers() map[string]string {
	out := make(map[string]string, len(q.answers))
	for p, a := range q.answers {
		out[p] = a
	}
	return out
}

func (q *Question) Len() int {
	return len(q.answers)
}

// MostCommonAnswer returns the answer given by the most players. When
// several answers share the highest count, the one seen first (walking
// players in the order they first answered) wins. It returns "" when
// nobody has answered.
func (q *Question) MostCommonAnswer() string {
	if len(q.answers) == 0 {
		return ""
	}

	counts := make(map[string]int, len(q.answers))
	best := 0
	for _, p := range q.order {
		a := q.answers[p]
		counts[a]++
		if counts[a] > best {
			best = counts[a]
		}
	}

	for _, p := range q.order {
		if a := q.answers[p]; counts[a] == best {
			return a
		}
	}

	return ""
}

// PlayersWithMostCommonAnswer returns the players who gave the most
// common answer, in the order they first answered.
func (q *Question) PlayersWithMostCommonAnswer() []string {
	if len(q.answers) == 0 {
		return nil
	}

	common := q.MostCommonAnswer()

	var players []string
	for _, p := range q.order {
		if q.answers[p] == common {
			players = append(players, p)
		}
	}
	return players
}
