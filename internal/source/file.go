package source

import (
	"bufio"
	"context"
	"io"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/standardbeagle/flowfilter/internal/errors"
)

// maxLineBytes bounds the scanner's token size so a pathological line
// doesn't abort the whole run.
const maxLineBytes = 1024 * 1024

// File line-iterates a file with a 1-based line counter.
type File struct {
	path    string
	factory LineFactory
}

// NewFile creates a file source. factory may be nil for plain lines;
// NumberedLine yields buffer-line items for the blines provider.
func NewFile(path string, factory LineFactory) *File {
	if factory == nil {
		factory = PlainLine
	}
	return &File{path: path, factory: factory}
}

func (f *File) Name() string { return "file" }

func (f *File) Produce(ctx context.Context, emit EmitFunc) error {
	file, err := os.Open(f.path)
	if err != nil {
		return errors.NewProducerError("file", "open", err)
	}
	defer file.Close()

	if err := produceLines(ctx, file, f.factory, emit); err != nil {
		return errors.NewProducerError("file", "read", err)
	}
	return nil
}

// Stdin line-iterates standard input.
type Stdin struct {
	reader  io.Reader
	factory LineFactory
}

// NewStdin creates a stdin source. reader overrides os.Stdin when non-nil
// (used by tests).
func NewStdin(reader io.Reader, factory LineFactory) *Stdin {
	if reader == nil {
		reader = os.Stdin
	}
	if factory == nil {
		factory = PlainLine
	}
	return &Stdin{reader: reader, factory: factory}
}

func (s *Stdin) Name() string { return "stdin" }

func (s *Stdin) Produce(ctx context.Context, emit EmitFunc) error {
	if err := produceLines(ctx, s.reader, s.factory, emit); err != nil {
		return errors.NewProducerError("stdin", "read", err)
	}
	return nil
}

// produceLines drives a buffered scanner over r, checking for cancellation
// at every loop boundary. Non-UTF-8 bytes are lossily replaced so every
// emitted line is valid UTF-8.
func produceLines(ctx context.Context, r io.Reader, factory LineFactory, emit EmitFunc) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxLineBytes)

	var lineno uint64
	for scanner.Scan() {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		lineno++
		if !emit(factory(lossyDecode(scanner.Text()), lineno)) {
			return nil
		}
	}
	return scanner.Err()
}

func lossyDecode(line string) string {
	if utf8.ValidString(line) {
		return line
	}
	return strings.ToValidUTF8(line, string(utf8.RuneError))
}
