/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package herd

import (
	"bufio"
	"context"
	"fmt"
	"strings"
)

// Bank is an ordered, cyclic list of questions read from a Source.
type Bank struct {
	source    Source
	questions []*Question
	loaded    bool
}

func NewBank(source Source) *Bank {
	return &Bank{source: source}
}

// Load reads every non-blank line of the source as a question,
// replacing anything loaded before.
func (b *Bank) Load(ctx context.Context) error {
	if b.source == nil {
		return fmt.Errorf("%w: no source configured", ErrDataSource)
	}

	rc, err := b.source.Open(ctx)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrDataSource, err)
	}
	defer rc.Close()

	var questions []*Question

	scanner := bufio.NewScanner(rc)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		questions = append(questions, NewQuestion(line))
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("%w: %w", ErrDataSource, err)
	}

	if len(questions) == 0 {
		return ErrEmptyBank
	}

	b.questions = questions
	b.loaded = true

	return nil
}

func (b *Bank) Loaded() bool {
	return b.loaded
}

func (b *Bank) Len() int {
	return len(b.questions)
}

// Current returns the question at index, loading the bank on first use.
func (b *Bank) Current(ctx context.Context, index int) (*Question, error) {
	if !b.loaded {
		if err := b.Load(ctx); err != nil {
			return nil, err
		}
	}

	if index < 0 || index >= len(b.questions) {
		return nil, fmt.Errorf("question index %d out of range [0, %d)", index, len(b.questions))
	}

	return b.questions[index], nil
}

// Advance returns the index following index, wrapping to the start.
func (b *Bank) Advance(index int) (int, error) {
	if len(b.questions) == 0 {
		return 0, ErrEmptyBank
	}

	return (index + 1) % len(b.questions), nil
}
