// Package cache memoizes the full output of expensive producer commands on
// disk, keyed by (command, cwd). Payloads live one file per digest in the
// cache directory; the digest index is a JSON file persisted atomically.
package cache

import (
	"bufio"
	"encoding/hex"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cespare/xxhash/v2"

	"github.com/standardbeagle/flowfilter/internal/errors"
)

// indexFileName is the digest index inside the data directory.
const indexFileName = "cache.json"

// Digest is the persisted metadata for one cached producer run.
type Digest struct {
	Command     string    `json:"command"`
	Cwd         string    `json:"cwd"`
	LastRun     time.Time `json:"last_run"`
	TotalLines  uint64    `json:"total_lines"`
	CacheFile   string    `json:"cache_file"`
	ContentHash uint64    `json:"content_hash"`
}

// StoreConfig configures a Store.
type StoreConfig struct {
	CacheDir string
	DataDir  string
	MaxAge   time.Duration // digests older than this are dropped on load
	// AutoFlush persists index mutations from a background timer instead
	// of synchronously, coalescing bursts of writes.
	AutoFlush     bool
	FlushInterval time.Duration
}

// Store is the on-disk producer-output cache. Safe for concurrent use.
type Store struct {
	cfg StoreConfig

	mu      sync.Mutex
	digests []Digest
	dirty   bool

	hits   int64
	misses int64

	stopFlush chan struct{}
	flushDone chan struct{}
}

// NewStore opens (or creates) the cache directories and loads the index.
// A corrupt index is logged and treated as empty; stale digests and
// digests whose payload file is gone are filtered out.
func NewStore(cfg StoreConfig) (*Store, error) {
	if err := os.MkdirAll(cfg.CacheDir, 0o755); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, err
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = 3 * time.Second
	}

	s := &Store{cfg: cfg}
	s.loadIndex()

	if cfg.AutoFlush {
		s.stopFlush = make(chan struct{})
		s.flushDone = make(chan struct{})
		go s.autoFlush()
	}

	return s, nil
}

// Close stops the background flusher (if any) and persists pending
// mutations.
func (s *Store) Close() error {
	if s.stopFlush != nil {
		close(s.stopFlush)
		<-s.flushDone
	}
	return s.Flush()
}

func (s *Store) autoFlush() {
	defer close(s.flushDone)
	ticker := time.NewTicker(s.cfg.FlushInterval)
	defer ticker.Stop()
	for {
		select {
		case <-s.stopFlush:
			return
		case <-ticker.C:
			_ = s.Flush()
		}
	}
}

// keyHash addresses a (command, cwd) pair.
func keyHash(command, cwd string) uint64 {
	h := xxhash.New()
	_, _ = h.WriteString(command)
	_, _ = h.Write([]byte{0})
	_, _ = h.WriteString(cwd)
	return h.Sum64()
}

// PayloadPath returns the payload file path for a (command, cwd) pair.
func (s *Store) PayloadPath(command, cwd string) string {
	return filepath.Join(s.cfg.CacheDir, hex.EncodeToString(u64Bytes(keyHash(command, cwd))))
}

func u64Bytes(v uint64) []byte {
	b := make([]byte, 8)
	for i := 7; i >= 0; i-- {
		b[i] = byte(v)
		v >>= 8
	}
	return b
}

// FindUsableDigest returns the most recent digest for (command, cwd) whose
// payload file still exists with the recorded line count. A digest that
// fails verification is evicted and the lookup proceeds as a miss.
func (s *Store) FindUsableDigest(command, cwd string) (Digest, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	best := -1
	for i, d := range s.digests {
		if d.Command != command || d.Cwd != cwd {
			continue
		}
		if best < 0 || d.LastRun.After(s.digests[best].LastRun) {
			best = i
		}
	}
	if best < 0 {
		atomic.AddInt64(&s.misses, 1)
		return Digest{}, false
	}

	d := s.digests[best]
	if err := verifyPayload(d); err != nil {
		logCorrupt(d, err)
		s.digests = append(s.digests[:best], s.digests[best+1:]...)
		s.dirty = true
		s.persistIfSync()
		atomic.AddInt64(&s.misses, 1)
		return Digest{}, false
	}

	atomic.AddInt64(&s.hits, 1)
	return d, true
}

// verifyPayload checks the payload file exists and holds exactly the
// recorded number of lines.
func verifyPayload(d Digest) error {
	file, err := os.Open(d.CacheFile)
	if err != nil {
		return err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	var lines uint64
	for scanner.Scan() {
		lines++
	}
	if err := scanner.Err(); err != nil {
		return err
	}
	if lines != d.TotalLines {
		return errors.NewCacheCorruptError(d.CacheFile,
			&countMismatchError{want: d.TotalLines, got: lines})
	}
	return nil
}

type countMismatchError struct {
	want, got uint64
}

func (e *countMismatchError) Error() string {
	return "line count mismatch"
}

// Digests returns a copy of the current index, most recent first.
func (s *Store) Digests() []Digest {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := append([]Digest(nil), s.digests...)
	sort.Slice(out, func(i, j int) bool {
		return out[i].LastRun.After(out[j].LastRun)
	})
	return out
}

// Stats returns cumulative hit/miss counters.
func (s *Store) Stats() (hits, misses int64) {
	return atomic.LoadInt64(&s.hits), atomic.LoadInt64(&s.misses)
}

// Clear removes every digest and payload file.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, d := range s.digests {
		_ = os.Remove(d.CacheFile)
	}
	s.digests = nil
	s.dirty = true
	return s.persistLocked()
}

// ClearStale removes digests older than the configured max age along with
// their payloads, returning how many were removed.
func (s *Store) ClearStale() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := time.Now().Add(-s.cfg.MaxAge)
	kept := s.digests[:0]
	removed := 0
	for _, d := range s.digests {
		if s.cfg.MaxAge > 0 && d.LastRun.Before(cutoff) {
			_ = os.Remove(d.CacheFile)
			removed++
			continue
		}
		kept = append(kept, d)
	}
	s.digests = kept
	if removed > 0 {
		s.dirty = true
		return removed, s.persistLocked()
	}
	return 0, nil
}

// addDigest records a completed run, replacing any older digest for the
// same (command, cwd).
func (s *Store) addDigest(d Digest) {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.digests[:0]
	for _, existing := range s.digests {
		if existing.Command == d.Command && existing.Cwd == d.Cwd {
			continue
		}
		kept = append(kept, existing)
	}
	s.digests = append(kept, d)
	s.dirty = true
	s.persistIfSync()
}

// Flush persists the index if it changed since the last persist.
func (s *Store) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.dirty {
		return nil
	}
	return s.persistLocked()
}

// persistIfSync persists immediately when no background flusher runs.
// Callers hold s.mu.
func (s *Store) persistIfSync() {
	if s.stopFlush == nil {
		_ = s.persistLocked()
	}
}

// persistLocked writes the index to a temp file and renames it into place.
// Callers hold s.mu.
func (s *Store) persistLocked() error {
	data, err := json.MarshalIndent(s.digests, "", "  ")
	if err != nil {
		return err
	}

	target := filepath.Join(s.cfg.DataDir, indexFileName)
	tmp, err := os.CreateTemp(s.cfg.DataDir, indexFileName+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, target); err != nil {
		os.Remove(tmpName)
		return err
	}
	s.dirty = false
	return nil
}

// loadIndex reads the digest index, dropping corrupt/stale/orphaned
// entries.
func (s *Store) loadIndex() {
	path := filepath.Join(s.cfg.DataDir, indexFileName)
	data, err := os.ReadFile(path)
	if err != nil {
		return
	}

	var digests []Digest
	if err := json.Unmarshal(data, &digests); err != nil {
		logCorrupt(Digest{CacheFile: path}, err)
		return
	}

	cutoff := time.Now().Add(-s.cfg.MaxAge)
	for _, d := range digests {
		if s.cfg.MaxAge > 0 && d.LastRun.Before(cutoff) {
			continue
		}
		if _, err := os.Stat(d.CacheFile); err != nil {
			continue
		}
		s.digests = append(s.digests, d)
	}
}
