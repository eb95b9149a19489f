/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/Seednode/herd/games/herd"

	_ "modernc.org/sqlite"
)

const sqlitePrefix = "sqlite:"

// questionSource picks where questions come from based on --questions.
func questionSource(cfg *Config) herd.Source {
	q := cfg.questions

	switch {
	case q == "":
		return herd.Default()
	case strings.HasPrefix(q, "http://"), strings.HasPrefix(q, "https://"):
		return &urlSource{
			url:    q,
			client: &http.Client{Timeout: timeout},
		}
	case strings.HasPrefix(q, sqlitePrefix):
		return sqliteSource(strings.TrimPrefix(q, sqlitePrefix))
	default:
		return herd.FileSource(q)
	}
}

// urlSource fetches a plain-text question list over HTTP.
type urlSource struct {
	url    string
	client *http.Client
}

func (u *urlSource) Open(ctx context.Context) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := u.client.Do(req)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		resp.Body.Close()
		return nil, fmt.Errorf("fetching %s: unexpected status %s", u.url, resp.Status)
	}

	return resp.Body, nil
}

// sqliteSource reads the text column of a questions table, in insertion
// order. The database is opened read-only.
type sqliteSource string

func (s sqliteSource) Open(ctx context.Context) (io.ReadCloser, error) {
	db, err := sql.Open("sqlite", "file:"+string(s)+"?mode=ro")
	if err != nil {
		return nil, err
	}
	defer db.Close()

	rows, err := db.QueryContext(ctx, "SELECT text FROM questions ORDER BY rowid")
	if err != nil {
		return nil, fmt.Errorf("reading questions from %s: %w", string(s), err)
	}
	defer rows.Close()

	var b strings.Builder
	for rows.Next() {
		var text string
		if err := rows.Scan(&text); err != nil {
			return nil, err
		}

		// one question per line
		b.WriteString(strings.ReplaceAll(text, "\n", " "))
		b.WriteByte('\n')
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return io.NopCloser(strings.NewReader(b.String())), nil
}
