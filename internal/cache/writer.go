package cache

import (
	"bufio"
	"log"
	"os"
	"time"

	"github.com/cespare/xxhash/v2"
)

// Writer accumulates one producer run's output into a temp file. Commit
// either promotes it to a payload (when the run was large enough to be
// worth caching) or discards it.
type Writer struct {
	store   *Store
	command string
	cwd     string

	file  *os.File
	buf   *bufio.Writer
	hash  *xxhash.Digest
	lines uint64
	done  bool
}

// NewWriter starts collecting output for (command, cwd). The caller must
// Commit or Discard the writer.
func (s *Store) NewWriter(command, cwd string) (*Writer, error) {
	file, err := os.CreateTemp(s.cfg.CacheDir, "pending-*")
	if err != nil {
		return nil, err
	}
	return &Writer{
		store:   s,
		command: command,
		cwd:     cwd,
		file:    file,
		buf:     bufio.NewWriter(file),
		hash:    xxhash.New(),
	}, nil
}

// WriteLine appends one produced line (without its newline).
func (w *Writer) WriteLine(line string) error {
	if w.done {
		return nil
	}
	if _, err := w.buf.WriteString(line); err != nil {
		return err
	}
	if err := w.buf.WriteByte('\n'); err != nil {
		return err
	}
	_, _ = w.hash.WriteString(line)
	_, _ = w.hash.Write([]byte{'\n'})
	w.lines++
	return nil
}

// Lines returns how many lines were written so far.
func (w *Writer) Lines() uint64 { return w.lines }

// Commit finalizes the run: when at least threshold lines were produced,
// the payload is renamed into place (payload first, then the index) and
// the digest is recorded; otherwise the temp file is discarded.
func (w *Writer) Commit(threshold uint64) (Digest, bool, error) {
	if w.done {
		return Digest{}, false, nil
	}
	w.done = true

	if err := w.buf.Flush(); err != nil {
		w.cleanup()
		return Digest{}, false, err
	}
	if err := w.file.Close(); err != nil {
		os.Remove(w.file.Name())
		return Digest{}, false, err
	}

	if w.lines < threshold {
		os.Remove(w.file.Name())
		return Digest{}, false, nil
	}

	target := w.store.PayloadPath(w.command, w.cwd)
	if err := os.Rename(w.file.Name(), target); err != nil {
		os.Remove(w.file.Name())
		return Digest{}, false, err
	}

	d := Digest{
		Command:     w.command,
		Cwd:         w.cwd,
		LastRun:     time.Now(),
		TotalLines:  w.lines,
		CacheFile:   target,
		ContentHash: w.hash.Sum64(),
	}
	w.store.addDigest(d)
	return d, true, nil
}

// Discard drops the pending output without recording anything.
func (w *Writer) Discard() {
	if w.done {
		return
	}
	w.done = true
	w.cleanup()
}

func (w *Writer) cleanup() {
	w.file.Close()
	os.Remove(w.file.Name())
}

func logCorrupt(d Digest, err error) {
	log.Printf("cache entry %s corrupt, evicting: %v", d.CacheFile, err)
}
