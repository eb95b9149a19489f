/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package herd

import (
	"context"
	_ "embed"
	"io"
	"os"
	"strings"
)

//go:embed questions.txt
var defaultQuestions string

// Source is a line-oriented question resource: one question per
// non-blank line.
type Source interface {
	Open(ctx context.Context) (io.ReadCloser, error)
}

// SourceFunc adapts an ordinary function to a Source.
type SourceFunc func(ctx context.Context) (io.ReadCloser, error)

func (f SourceFunc) Open(ctx context.Context) (io.ReadCloser, error) {
	return f(ctx)
}

// FileSource reads questions from a file on disk.
type FileSource string

func (f FileSource) Open(_ context.Context) (io.ReadCloser, error) {
	return os.Open(string(f))
}

func (f FileSource) String() string {
	return string(f)
}

// Lines returns a Source serving the given questions, one per line.
func Lines(questions ...string) Source {
	text := strings.Join(questions, "\n")

	return SourceFunc(func(context.Context) (io.ReadCloser, error) {
		return io.NopCloser(strings.NewReader(text)), nil
	})
}

// Default returns the built-in question list.
func Default() Source {
	return SourceFunc(func(context.Context) (io.ReadCloser, error) {
		return io.NopCloser(strings.NewReader(defaultQuestions)), nil
	})
}
