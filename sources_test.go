package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/Seednode/herd/games/herd"
)

func loadBank(t *testing.T, src herd.Source) (*herd.Bank, error) {
	t.Helper()

	b := herd.NewBank(src)
	return b, b.Load(context.Background())
}

func TestQuestionSourceSelection(t *testing.T) {
	if _, ok := questionSource(&Config{questions: "https://example.com/q.txt"}).(*urlSource); !ok {
		t.Fatal("expected https URL to select the URL source")
	}
	if src, ok := questionSource(&Config{questions: "sqlite:/tmp/q.db"}).(sqliteSource); !ok || string(src) != "/tmp/q.db" {
		t.Fatalf("expected sqlite source for /tmp/q.db, got %#v", src)
	}
	if src, ok := questionSource(&Config{questions: "questions.txt"}).(herd.FileSource); !ok || string(src) != "questions.txt" {
		t.Fatalf("expected file source, got %#v", src)
	}

	b, err := loadBank(t, questionSource(&Config{}))
	if err != nil {
		t.Fatalf("load built-in questions: %v", err)
	}
	if b.Len() == 0 {
		t.Fatal("expected built-in questions")
	}
}

func TestURLSource(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/questions.txt" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte("Tabs or spaces?\n\n  Best editor?  \n"))
	}))
	defer srv.Close()

	b, err := loadBank(t, questionSource(&Config{questions: srv.URL + "/questions.txt"}))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if b.Len() != 2 {
		t.Fatalf("expected 2 questions, got %d", b.Len())
	}

	q, err := b.Current(context.Background(), 1)
	if err != nil {
		t.Fatalf("current: %v", err)
	}
	if q.Text() != "Best editor?" {
		t.Fatalf("expected trimmed question, got %q", q.Text())
	}

	_, err = loadBank(t, questionSource(&Config{questions: srv.URL + "/missing.txt"}))
	if !errors.Is(err, herd.ErrDataSource) {
		t.Fatalf("expected ErrDataSource for a 404, got %v", err)
	}
}

func TestSQLiteSource(t *testing.T) {
	path := filepath.Join(t.TempDir(), "questions.db")

	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if _, err := db.Exec(`CREATE TABLE questions (id INTEGER PRIMARY KEY, text TEXT NOT NULL)`); err != nil {
		t.Fatalf("create table: %v", err)
	}
	for _, text := range []string{"Tabs or spaces?", "   ", "Best\neditor?", "Favorite shell?"} {
		if _, err := db.Exec(`INSERT INTO questions (text) VALUES (?)`, text); err != nil {
			t.Fatalf("insert: %v", err)
		}
	}
	if err := db.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	b, err := loadBank(t, questionSource(&Config{questions: sqlitePrefix + path}))
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	want := []string{"Tabs or spaces?", "Best editor?", "Favorite shell?"}
	if b.Len() != len(want) {
		t.Fatalf("expected %d questions, got %d", len(want), b.Len())
	}
	for i, text := range want {
		q, err := b.Current(context.Background(), i)
		if err != nil {
			t.Fatalf("current %d: %v", i, err)
		}
		if q.Text() != text {
			t.Fatalf("expected question %d to be %q, got %q", i, text, q.Text())
		}
	}
}

func TestSQLiteSourceMissing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.db")

	_, err := loadBank(t, sqliteSource(path))
	if !errors.Is(err, herd.ErrDataSource) {
		t.Fatalf("expected ErrDataSource, got %v", err)
	}
}
