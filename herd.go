// Herd Mentality, web edition
//
// Players answer open-ended questions and everyone who gives the most
// common answer scores a point. One device hosts the game: the host
// enters the players, then passes it around so each player can type
// their answer into a masked field.
//
// Features:
// - Games keyed by ID: /herd/:gameid, created by visiting /herd
// - Random 8-char game IDs via crypto/rand, with server-side collision check
// - Setup form (players one per line, round count), then play, results
//   and final results pages, following post/redirect/get
// - Blank answers are ignored and answers are trimmed before scoring
// - Reloading or resubmitting a scored round does not score it again
// - Live scoreboard at /herd/:gameid/board, fed over a websocket
// - JSON snapshot at /herd/:gameid/state
// - QR code to share the game, backed by go-qrcode
// - Games auto-reaped after configurable idle timeout

package main

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/julienschmidt/httprouter"
	"github.com/skip2/go-qrcode"

	"github.com/Seednode/herd/games/herd"
)

// herdGame is one game's server-side state. The engine is not safe for
// concurrent use, so every access goes through mu.
type herdGame struct {
	id  string
	hub *hub

	mu         sync.Mutex
	game       *herd.Game // nil until the setup form is submitted
	createdAt  time.Time
	lastActive time.Time
}

// StateMessage is the JSON snapshot served at /state and pushed to
// scoreboards.
type StateMessage struct {
	Type      string             `json:"type"` // "state"
	GameID    string             `json:"game_id"`
	Started   bool               `json:"started"`
	Over      bool               `json:"over"`
	Round     int                `json:"round,omitempty"`
	Rounds    int                `json:"rounds,omitempty"`
	Question  string             `json:"question,omitempty"`
	Players   []string           `json:"players"`
	Ranking   []herd.PlayerScore `json:"ranking"`
	Result    *herd.RoundResult  `json:"result,omitempty"`
	Standings *herd.Standings    `json:"standings,omitempty"`
}

func (g *herdGame) stateLocked(ctx context.Context) StateMessage {
	msg := StateMessage{
		Type:    "state",
		GameID:  g.id,
		Players: []string{},
		Ranking: []herd.PlayerScore{},
	}
	if g.game == nil {
		return msg
	}

	s := g.game.Session()

	msg.Started = true
	msg.Over = g.game.Over()
	msg.Round = g.game.Round()
	msg.Rounds = g.game.Rounds()
	msg.Players = s.Players()
	msg.Ranking = s.Ranking()

	if res, ok := g.game.Result(); ok {
		msg.Result = &res
	}

	if msg.Over {
		st := g.game.Standings()
		msg.Standings = &st
	} else if q, err := s.CurrentQuestion(ctx); err == nil {
		msg.Question = q.Text()
	}

	return msg
}

func (g *herdGame) publishLocked(ctx context.Context) {
	msg, err := json.Marshal(g.stateLocked(ctx))
	if err != nil {
		return
	}
	g.hub.publish(msg)
}

func (g *herdGame) touchLocked() {
	g.lastActive = time.Now()
}

// gameManager holds every game keyed by game ID, so each $path/$gameid
// is its own isolated session.
type gameManager struct {
	mu          sync.Mutex
	games       map[string]*herdGame
	idleTimeout time.Duration
	source      herd.Source
}

func newGameManager(ctx context.Context, idleTimeout time.Duration, source herd.Source) *gameManager {
	gm := &gameManager{
		games:       make(map[string]*herdGame),
		idleTimeout: idleTimeout,
		source:      source,
	}
	if idleTimeout > 0 {
		go gm.reaperLoop(ctx)
	}
	return gm
}

func (gm *gameManager) get(gameID string) *herdGame {
	gm.mu.Lock()
	defer gm.mu.Unlock()

	if g, ok := gm.games[gameID]; ok {
		return g
	}

	now := time.Now()
	g := &herdGame{
		id:         gameID,
		hub:        newHub(),
		createdAt:  now,
		lastActive: now,
	}
	gm.games[gameID] = g
	go g.hub.run()

	return g
}

// newGameID generates a crypto-random game ID and ensures it doesn't
// collide with existing games.
func (gm *gameManager) newGameID() string {
	const letters = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
	for {
		buf := make([]byte, 8)
		if _, err := rand.Read(buf); err != nil {
			panic("crypto/rand failure: " + err.Error())
		}
		out := make([]byte, 8)
		for i := range out {
			out[i] = letters[int(buf[i])%len(letters)]
		}
		id := string(out)

		gm.mu.Lock()
		_, exists := gm.games[id]
		gm.mu.Unlock()

		if !exists {
			return id
		}
	}
}

// reap ends every game idle since before cutoff.
func (gm *gameManager) reap(cutoff time.Time) {
	gm.mu.Lock()
	defer gm.mu.Unlock()

	for id, g := range gm.games {
		g.mu.Lock()
		last := g.lastActive
		g.mu.Unlock()

		if last.Before(cutoff) {
			delete(gm.games, id)
			go g.hub.stop()
		}
	}
}

// reaperLoop periodically removes games that have been idle longer than idleTimeout.
func (gm *gameManager) reaperLoop(ctx context.Context) {
	ticker := time.NewTicker(max(gm.idleTimeout/2, time.Second))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			gm.reap(time.Now().Add(-gm.idleTimeout))
		}
	}
}

type answerRow struct {
	Player string
	Answer string
}

// gamePage is the data behind every per-game page.
type gamePage struct {
	Prefix string
	Base   string
	NewURL string

	Round     int
	Rounds    int
	LastRound bool
	Question  string
	Players   []string
	Result    herd.RoundResult
	Answers   []answerRow
	Ranking   []herd.PlayerScore
	Standings herd.Standings
}

func newGamePage(cfg *Config, path, gameID string) gamePage {
	return gamePage{
		Prefix: cfg.prefix,
		Base:   cfg.prefix + path + "/" + gameID,
		NewURL: cfg.prefix + path,
	}
}

func (p *gamePage) fillLocked(g *herd.Game) {
	p.Round = g.Round()
	p.Rounds = g.Rounds()
	p.LastRound = g.LastRound()
	p.Players = g.Session().Players()
	p.Ranking = g.Session().Ranking()
}

func sortedAnswers(answers map[string]string) []answerRow {
	rows := make([]answerRow, 0, len(answers))
	for p, a := range answers {
		rows = append(rows, answerRow{Player: p, Answer: a})
	}
	sort.Slice(rows, func(i, j int) bool {
		return rows[i].Player < rows[j].Player
	})
	return rows
}

func redirect(w http.ResponseWriter, r *http.Request, url string) {
	http.Redirect(w, r, url, http.StatusSeeOther)
}

// phaseURL is where a game that has been set up currently lives.
func phaseURL(base string, g *herd.Game) string {
	if g.Over() {
		return base + "/over"
	}
	if _, ok := g.Result(); ok {
		return base + "/results"
	}
	return base + "/play"
}

// parseSetup reads the player roster and round count from the setup form.
func parseSetup(cfg *Config, r *http.Request) ([]string, int, error) {
	if err := r.ParseForm(); err != nil {
		return nil, 0, err
	}

	var players []string
	for _, line := range strings.Split(r.PostFormValue("player_names"), "\n") {
		if name := strings.TrimSpace(line); name != "" {
			players = append(players, name)
		}
	}
	if len(players) == 0 {
		return nil, 0, errors.New("add at least one player")
	}

	rounds := cfg.webRounds()
	if v := strings.TrimSpace(r.PostFormValue("num_rounds")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, 0, errors.New("the number of rounds must be a whole number")
		}
		rounds = n
	}

	return players, rounds, nil
}

func serveSetup(cfg *Config, path string, gm *gameManager, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		g := gm.get(ps.ByName("gameid"))
		page := newGamePage(cfg, path, g.id)

		g.mu.Lock()
		g.touchLocked()
		if g.game != nil {
			url := phaseURL(page.Base, g.game)
			g.mu.Unlock()
			redirect(w, r, url)

			return
		}
		g.mu.Unlock()

		page.Rounds = cfg.webRounds()
		render(cfg, w, "setup", page, errs)
	}
}

func startGame(cfg *Config, path string, gm *gameManager) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		g := gm.get(ps.ByName("gameid"))
		page := newGamePage(cfg, path, g.id)

		players, rounds, err := parseSetup(cfg, r)
		if err != nil {
			serveError(cfg, w, http.StatusBadRequest, err.Error())

			return
		}

		session := herd.NewSession(gm.source)
		if err := session.Load(r.Context()); err != nil {
			logf(cfg, "ERROR: Loading questions for %s: %v", g.id, err)
			serveError(cfg, w, statusFor(err), "Unable to load questions.")

			return
		}
		for _, p := range players {
			session.AddPlayer(p)
		}

		game, err := herd.NewGame(session, rounds)
		if err != nil {
			serveError(cfg, w, statusFor(err), err.Error())

			return
		}

		g.mu.Lock()
		g.game = game
		g.touchLocked()
		g.publishLocked(r.Context())
		g.mu.Unlock()

		logf(cfg, "GAMES: Started %s with %d players for %d rounds", g.id, len(players), rounds)

		redirect(w, r, page.Base+"/play")
	}
}

func servePlay(cfg *Config, path string, gm *gameManager, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		g := gm.get(ps.ByName("gameid"))
		page := newGamePage(cfg, path, g.id)

		g.mu.Lock()
		g.touchLocked()
		if g.game == nil {
			g.mu.Unlock()
			redirect(w, r, page.Base)

			return
		}
		if url := phaseURL(page.Base, g.game); url != page.Base+"/play" {
			g.mu.Unlock()
			redirect(w, r, url)

			return
		}

		q, err := g.game.Session().CurrentQuestion(r.Context())
		if err != nil {
			g.mu.Unlock()
			serveError(cfg, w, statusFor(err), "Unable to load questions.")

			return
		}
		page.Question = q.Text()
		page.fillLocked(g.game)
		g.mu.Unlock()

		render(cfg, w, "play", page, errs)
	}
}

func submitAnswers(cfg *Config, path string, gm *gameManager) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		g := gm.get(ps.ByName("gameid"))
		page := newGamePage(cfg, path, g.id)

		if err := r.ParseForm(); err != nil {
			serveError(cfg, w, http.StatusBadRequest, "Unable to read answers.")

			return
		}

		g.mu.Lock()
		defer g.mu.Unlock()

		g.touchLocked()
		if g.game == nil {
			redirect(w, r, page.Base)

			return
		}
		if url := phaseURL(page.Base, g.game); url != page.Base+"/play" {
			redirect(w, r, url)

			return
		}

		s := g.game.Session()
		for _, player := range s.Players() {
			answer := strings.TrimSpace(r.PostFormValue("answer-" + player))
			if answer == "" {
				continue
			}
			if err := s.SubmitAnswer(r.Context(), player, answer); err != nil {
				serveError(cfg, w, statusFor(err), err.Error())

				return
			}
		}

		res, err := g.game.Score(r.Context())
		if err != nil {
			serveError(cfg, w, statusFor(err), "Unable to score this round.")

			return
		}
		g.publishLocked(r.Context())

		logf(cfg, "GAMES: Round %d of %s went to %q (%s)", g.game.Round(), g.id, res.MostCommon, strings.Join(res.Winners, ", "))

		redirect(w, r, page.Base+"/results")
	}
}

func serveResults(cfg *Config, path string, gm *gameManager, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		g := gm.get(ps.ByName("gameid"))
		page := newGamePage(cfg, path, g.id)

		g.mu.Lock()
		g.touchLocked()
		if g.game == nil {
			g.mu.Unlock()
			redirect(w, r, page.Base)

			return
		}
		res, ok := g.game.Result()
		if !ok {
			url := phaseURL(page.Base, g.game)
			g.mu.Unlock()
			redirect(w, r, url)

			return
		}
		page.fillLocked(g.game)
		g.mu.Unlock()

		page.Result = res
		page.Answers = sortedAnswers(res.Answers)

		render(cfg, w, "results", page, errs)
	}
}

func nextRound(cfg *Config, path string, gm *gameManager) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		g := gm.get(ps.ByName("gameid"))
		page := newGamePage(cfg, path, g.id)

		g.mu.Lock()
		defer g.mu.Unlock()

		g.touchLocked()
		if g.game == nil {
			redirect(w, r, page.Base)

			return
		}
		if !g.game.Over() {
			if err := g.game.Advance(r.Context()); err != nil {
				serveError(cfg, w, statusFor(err), "Unable to load the next question.")

				return
			}
			g.publishLocked(r.Context())
		}

		if g.game.Over() {
			logf(cfg, "GAMES: Finished %s", g.id)
		}

		redirect(w, r, phaseURL(page.Base, g.game))
	}
}

func serveGameOver(cfg *Config, path string, gm *gameManager, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		g := gm.get(ps.ByName("gameid"))
		page := newGamePage(cfg, path, g.id)

		g.mu.Lock()
		g.touchLocked()
		if g.game == nil {
			g.mu.Unlock()
			redirect(w, r, page.Base)

			return
		}
		page.fillLocked(g.game)
		page.Standings = g.game.Standings()
		g.mu.Unlock()

		render(cfg, w, "over", page, errs)
	}
}

func serveState(cfg *Config, gm *gameManager, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		g := gm.get(ps.ByName("gameid"))

		g.mu.Lock()
		msg := g.stateLocked(r.Context())
		g.mu.Unlock()

		data, err := json.Marshal(msg)
		if err != nil {
			errs <- err
			serveError(cfg, w, http.StatusInternalServerError, "Unable to encode game state.")

			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Cache-Control", "no-store")
		securityHeaders(cfg, w)

		if _, err := w.Write(data); err != nil {
			errs <- err
		}
	}
}

func serveBoard(cfg *Config, path string, gm *gameManager, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		g := gm.get(ps.ByName("gameid"))

		render(cfg, w, "board", newGamePage(cfg, path, g.id), errs)
	}
}

// serveBoardFeed upgrades to a websocket that receives the game state
// now and after every change.
func serveBoardFeed(cfg *Config, gm *gameManager) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		g := gm.get(ps.ByName("gameid"))

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Println("upgrade error:", err)
			return
		}

		c := &client{
			conn: conn,
			send: make(chan []byte, 8),
		}

		// Hold the game while joining so no update slips in between the
		// first snapshot and registration.
		g.mu.Lock()
		msg, err := json.Marshal(g.stateLocked(r.Context()))
		if err == nil {
			c.send <- msg
		}
		joined := g.hub.join(c)
		g.mu.Unlock()

		if !joined {
			_ = conn.Close()
			return
		}

		logf(cfg, "GAMES: Scoreboard for %s connected from %s", g.id, realIP(r))

		go c.writePump()
		c.readPump(g.hub)
	}
}

// serveQR renders the game's setup URL as a PNG so other players can
// join from their phones.
func serveQR(cfg *Config, path string, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		scheme := cfg.scheme()
		if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
			scheme = proto
		}

		target := scheme + "://" + r.Host + newGamePage(cfg, path, ps.ByName("gameid")).Base

		png, err := qrcode.Encode(target, qrcode.Medium, 320)
		if err != nil {
			errs <- err
			serveError(cfg, w, http.StatusInternalServerError, "Unable to generate QR code.")

			return
		}

		w.Header().Set("Content-Type", "image/png")
		w.Header().Set("Content-Length", strconv.Itoa(len(png)))
		securityHeaders(cfg, w)

		if _, err := w.Write(png); err != nil {
			errs <- err
		}
	}
}

// redirectNewGame creates a game under a fresh ID and sends the host to
// its setup form.
func redirectNewGame(cfg *Config, path string, gm *gameManager) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		gameID := gm.newGameID()
		gm.get(gameID)
		logf(cfg, "GAMES: Created game %s/%s", path, gameID)
		http.Redirect(w, r, cfg.prefix+path+"/"+gameID, http.StatusTemporaryRedirect)
	}
}

// registerHerdGame sets up routes so that:
//   - $path                   → redirects to new random game (8-char ID)
//   - $path/:gameid           → setup form, or the game's current page
//   - $path/:gameid/setup     → POST: start the game
//   - $path/:gameid/play      → question and answer form
//   - $path/:gameid/answers   → POST: submit answers and score the round
//   - $path/:gameid/results   → round results
//   - $path/:gameid/next      → POST: advance to the next round
//   - $path/:gameid/over      → final results
//   - $path/:gameid/state     → JSON game state
//   - $path/:gameid/board     → live scoreboard
//   - $path/:gameid/ws        → WebSocket feeding the scoreboard
//   - $path/:gameid/qr        → PNG QR code for that game URL
func registerHerdGame(ctx context.Context, cfg *Config, path string, mux *httprouter.Router, errs chan<- error) *gameManager {
	gm := newGameManager(ctx, cfg.sessionTimeout, questionSource(cfg))

	mux.GET(cfg.prefix+path, redirectNewGame(cfg, path, gm))

	mux.GET(cfg.prefix+path+"/:gameid", serveSetup(cfg, path, gm, errs))
	mux.POST(cfg.prefix+path+"/:gameid/setup", startGame(cfg, path, gm))
	mux.GET(cfg.prefix+path+"/:gameid/play", servePlay(cfg, path, gm, errs))
	mux.POST(cfg.prefix+path+"/:gameid/answers", submitAnswers(cfg, path, gm))
	mux.GET(cfg.prefix+path+"/:gameid/results", serveResults(cfg, path, gm, errs))
	mux.POST(cfg.prefix+path+"/:gameid/next", nextRound(cfg, path, gm))
	mux.GET(cfg.prefix+path+"/:gameid/over", serveGameOver(cfg, path, gm, errs))

	mux.GET(cfg.prefix+path+"/:gameid/state", serveState(cfg, gm, errs))
	mux.GET(cfg.prefix+path+"/:gameid/board", serveBoard(cfg, path, gm, errs))
	mux.GET(cfg.prefix+path+"/:gameid/ws", serveBoardFeed(cfg, gm))

	mux.GET(cfg.prefix+path+"/:gameid/qr", serveQR(cfg, path, errs))

	return gm
}
