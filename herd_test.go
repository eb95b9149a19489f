package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
)

func newTestRouter(t *testing.T, cfg *Config) (*httprouter.Router, *gameManager) {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	return newRouter(ctx, cfg, make(chan error, 64))
}

func request(t *testing.T, mux http.Handler, method, target string, form url.Values) *httptest.ResponseRecorder {
	t.Helper()

	var req *http.Request
	if form != nil {
		req = httptest.NewRequest(method, target, strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func expectRedirect(t *testing.T, rec *httptest.ResponseRecorder, location string) {
	t.Helper()

	if rec.Code != http.StatusSeeOther {
		t.Fatalf("expected status %d, got %d: %s", http.StatusSeeOther, rec.Code, rec.Body.String())
	}
	if got := rec.Header().Get("Location"); got != location {
		t.Fatalf("expected redirect to %s, got %s", location, got)
	}
}

func expectPage(t *testing.T, rec *httptest.ResponseRecorder, want ...string) {
	t.Helper()

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d: %s", http.StatusOK, rec.Code, rec.Body.String())
	}
	expectContains(t, rec.Body.String(), want...)
}

func gameScores(gm *gameManager, id string) map[string]int {
	g := gm.get(id)
	g.mu.Lock()
	defer g.mu.Unlock()

	return g.game.Session().Scores()
}

func TestHerdFullGame(t *testing.T) {
	mux, gm := newTestRouter(t, &Config{})

	rec := request(t, mux, http.MethodGet, "/herd", nil)
	if rec.Code != http.StatusTemporaryRedirect {
		t.Fatalf("expected new game redirect, got %d", rec.Code)
	}
	base := rec.Header().Get("Location")
	if !strings.HasPrefix(base, "/herd/") || len(base) != len("/herd/")+8 {
		t.Fatalf("unexpected game URL %q", base)
	}
	id := strings.TrimPrefix(base, "/herd/")

	expectPage(t, request(t, mux, http.MethodGet, base, nil), "player_names", `value="3"`)

	rec = request(t, mux, http.MethodPost, base+"/setup", url.Values{
		"player_names": {"Alice\r\nBob\r\n  \r\nCharlie"},
		"num_rounds":   {"1"},
	})
	expectRedirect(t, rec, base+"/play")

	expectRedirect(t, request(t, mux, http.MethodGet, base, nil), base+"/play")
	expectPage(t, request(t, mux, http.MethodGet, base+"/play", nil),
		"Round 1 of 1",
		"favorite programming language",
		`name="answer-Alice"`,
		`name="answer-Charlie"`,
	)

	answers := url.Values{
		"answer-Alice":   {"Python"},
		"answer-Bob":     {"Java"},
		"answer-Charlie": {" Python "},
		"answer-Mallory": {"Python"},
	}
	expectRedirect(t, request(t, mux, http.MethodPost, base+"/answers", answers), base+"/results")

	want := map[string]int{"Alice": 1, "Bob": 0, "Charlie": 1}
	if got := gameScores(gm, id); !reflect.DeepEqual(got, want) {
		t.Fatalf("expected scores %v, got %v", want, got)
	}

	expectPage(t, request(t, mux, http.MethodGet, base+"/results", nil),
		"Python",
		"Players with this answer: Alice, Charlie",
		"See final results",
	)

	// a resubmitted form must not score the round again
	expectRedirect(t, request(t, mux, http.MethodPost, base+"/answers", answers), base+"/results")
	expectRedirect(t, request(t, mux, http.MethodGet, base+"/play", nil), base+"/results")
	if got := gameScores(gm, id); !reflect.DeepEqual(got, want) {
		t.Fatalf("expected scores to stay %v, got %v", want, got)
	}

	expectRedirect(t, request(t, mux, http.MethodPost, base+"/next", nil), base+"/over")
	expectRedirect(t, request(t, mux, http.MethodGet, base+"/play", nil), base+"/over")
	expectPage(t, request(t, mux, http.MethodGet, base+"/over", nil),
		"Final Results",
		"The winners are Alice, Charlie with 1 points each!",
	)

	rec = request(t, mux, http.MethodGet, base+"/state", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected state, got %d", rec.Code)
	}
	var state StateMessage
	if err := json.Unmarshal(rec.Body.Bytes(), &state); err != nil {
		t.Fatalf("decode state: %v", err)
	}
	if !state.Started || !state.Over || state.Standings == nil {
		t.Fatalf("expected finished game, got %+v", state)
	}
	if !reflect.DeepEqual(state.Standings.Winners, []string{"Alice", "Charlie"}) {
		t.Fatalf("expected winners Alice and Charlie, got %v", state.Standings.Winners)
	}
}

func TestHerdPhasesBeforeSetup(t *testing.T) {
	mux, _ := newTestRouter(t, &Config{})

	for _, target := range []string{"/herd/abc/play", "/herd/abc/results", "/herd/abc/over"} {
		expectRedirect(t, request(t, mux, http.MethodGet, target, nil), "/herd/abc")
	}
	expectRedirect(t, request(t, mux, http.MethodPost, "/herd/abc/answers", url.Values{}), "/herd/abc")
	expectRedirect(t, request(t, mux, http.MethodPost, "/herd/abc/next", url.Values{}), "/herd/abc")

	rec := request(t, mux, http.MethodGet, "/herd/abc/state", nil)
	var state StateMessage
	if err := json.Unmarshal(rec.Body.Bytes(), &state); err != nil {
		t.Fatalf("decode state: %v", err)
	}
	if state.Started || state.GameID != "abc" {
		t.Fatalf("expected unstarted game abc, got %+v", state)
	}
}

func TestHerdSetupErrors(t *testing.T) {
	tests := []struct {
		name   string
		cfg    Config
		form   url.Values
		status int
	}{
		{
			name:   "no players",
			form:   url.Values{"player_names": {" \n "}, "num_rounds": {"2"}},
			status: http.StatusBadRequest,
		},
		{
			name:   "rounds not a number",
			form:   url.Values{"player_names": {"Alice"}, "num_rounds": {"two"}},
			status: http.StatusBadRequest,
		},
		{
			name:   "zero rounds",
			form:   url.Values{"player_names": {"Alice"}, "num_rounds": {"0"}},
			status: http.StatusBadRequest,
		},
		{
			name:   "missing questions",
			cfg:    Config{questions: "/nonexistent/questions.txt"},
			form:   url.Values{"player_names": {"Alice"}, "num_rounds": {"1"}},
			status: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := tt.cfg
			mux, gm := newTestRouter(t, &cfg)

			rec := request(t, mux, http.MethodPost, "/herd/abc/setup", tt.form)
			if rec.Code != tt.status {
				t.Fatalf("expected status %d, got %d", tt.status, rec.Code)
			}

			g := gm.get("abc")
			g.mu.Lock()
			defer g.mu.Unlock()
			if g.game != nil {
				t.Fatal("expected game to stay unset")
			}
		})
	}
}

func TestHerdBlankAnswersAreSkipped(t *testing.T) {
	mux, gm := newTestRouter(t, &Config{})

	request(t, mux, http.MethodPost, "/herd/abc/setup", url.Values{
		"player_names": {"Alice\nBob"},
		"num_rounds":   {"2"},
	})
	request(t, mux, http.MethodPost, "/herd/abc/answers", url.Values{
		"answer-Alice": {"Go"},
		"answer-Bob":   {"   "},
	})

	g := gm.get("abc")
	g.mu.Lock()
	res, ok := g.game.Result()
	g.mu.Unlock()

	if !ok {
		t.Fatal("expected a scored round")
	}
	if !reflect.DeepEqual(res.Answers, map[string]string{"Alice": "Go"}) {
		t.Fatalf("expected only Alice's answer, got %v", res.Answers)
	}

	expectRedirect(t, request(t, mux, http.MethodPost, "/herd/abc/next", nil), "/herd/abc/play")
	expectPage(t, request(t, mux, http.MethodGet, "/herd/abc/play", nil), "Round 2 of 2")
}

func TestHerdPrefix(t *testing.T) {
	mux, _ := newTestRouter(t, &Config{prefix: "/party/"})

	rec := request(t, mux, http.MethodGet, "/party/herd", nil)
	if loc := rec.Header().Get("Location"); !strings.HasPrefix(loc, "/party/herd/") {
		t.Fatalf("expected prefixed game URL, got %q", loc)
	}

	rec = request(t, mux, http.MethodPost, "/party/herd/abc/setup", url.Values{
		"player_names": {"Alice"},
	})
	expectRedirect(t, rec, "/party/herd/abc/play")
}

func TestHerdReap(t *testing.T) {
	_, gm := newTestRouter(t, &Config{})

	gm.get("old")
	gm.reap(time.Now().Add(time.Minute))

	gm.mu.Lock()
	defer gm.mu.Unlock()
	if len(gm.games) != 0 {
		t.Fatalf("expected idle games to be reaped, got %d", len(gm.games))
	}
}

func TestHerdQRCode(t *testing.T) {
	mux, _ := newTestRouter(t, &Config{})

	rec := request(t, mux, http.MethodGet, "/herd/abc/qr", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "image/png" {
		t.Fatalf("expected image/png, got %s", ct)
	}
}

func TestHerdBoardFeed(t *testing.T) {
	mux, _ := newTestRouter(t, &Config{})

	srv := httptest.NewServer(mux)
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/herd/abc/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	var state StateMessage
	if err := conn.ReadJSON(&state); err != nil {
		t.Fatalf("read initial state: %v", err)
	}
	if state.Type != "state" || state.Started {
		t.Fatalf("expected unstarted state, got %+v", state)
	}

	resp, err := http.PostForm(srv.URL+"/herd/abc/setup", url.Values{
		"player_names": {"Bob\nAlice"},
		"num_rounds":   {"2"},
	})
	if err != nil {
		t.Fatalf("setup: %v", err)
	}
	resp.Body.Close()

	if err := conn.ReadJSON(&state); err != nil {
		t.Fatalf("read started state: %v", err)
	}
	if !state.Started || state.Round != 1 || state.Rounds != 2 {
		t.Fatalf("expected round 1 of 2, got %+v", state)
	}
	if !reflect.DeepEqual(state.Players, []string{"Alice", "Bob"}) {
		t.Fatalf("expected sorted players, got %v", state.Players)
	}
	if state.Question == "" {
		t.Fatal("expected the current question")
	}
}
