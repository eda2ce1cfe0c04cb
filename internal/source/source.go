// Package source implements the candidate producers the pipeline can run:
// an in-memory list, line iterators over files and stdin, child-process
// stdout, and a parallel directory walk.
package source

import (
	"context"

	"github.com/standardbeagle/flowfilter/internal/item"
)

// EmitFunc delivers one produced item downstream. It returns false when the
// run is being cancelled; the producer must stop promptly.
type EmitFunc func(item.Item) bool

// LineFactory turns one produced text line (1-based line number) into an
// Item. Sources use PlainLine when none is configured.
type LineFactory func(line string, lineno uint64) item.Item

// PlainLine is the default LineFactory.
func PlainLine(line string, _ uint64) item.Item {
	return item.NewPlainItem(line)
}

// GrepLine builds grep items from "path:line:col:content" lines.
func GrepLine(line string, _ uint64) item.Item {
	return item.NewGrepItem(line)
}

// NumberedLine builds buffer-line items carrying a line-number prefix.
func NumberedLine(line string, lineno uint64) item.Item {
	return item.NewBufferLineItem(int(lineno), line)
}

// PathLine builds path items, used when replaying a cached directory walk.
func PathLine(line string, _ uint64) item.Item {
	return item.NewPathItem(line)
}

// Source produces a stream of items. Produce returns when the stream is
// exhausted, emit reports cancellation, or the context is done; a non-nil
// error is terminal for the run.
type Source interface {
	Name() string
	Produce(ctx context.Context, emit EmitFunc) error
}

// List is the in-memory source.
type List struct {
	items []item.Item
}

// NewList wraps pre-built items.
func NewList(items []item.Item) *List {
	return &List{items: items}
}

// NewListLines wraps raw lines as plain items.
func NewListLines(lines []string) *List {
	items := make([]item.Item, len(lines))
	for i, line := range lines {
		items[i] = item.NewPlainItem(line)
	}
	return &List{items: items}
}

func (l *List) Name() string { return "list" }

func (l *List) Produce(ctx context.Context, emit EmitFunc) error {
	for _, it := range l.items {
		select {
		case <-ctx.Done():
			return nil
		default:
		}
		if !emit(it) {
			return nil
		}
	}
	return nil
}
