package progress

import (
	"sync"

	"github.com/standardbeagle/flowfilter/internal/display"
)

// Recording collects frames in memory for tests.
type Recording struct {
	mu      sync.Mutex
	updates []Frame
	finals  []Frame
	errs    []error
}

// NewRecording creates an empty recording progressor.
func NewRecording() *Recording {
	return &Recording{}
}

func (r *Recording) Update(frame display.DisplayFrame, matched, processed uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.updates = append(r.updates, wireFrame(frame, matched, processed, PhaseProgress))
}

func (r *Recording) Finished(frame display.DisplayFrame, matched, processed uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.finals = append(r.finals, wireFrame(frame, matched, processed, PhaseFinal))
}

func (r *Recording) Failed(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errs = append(r.errs, err)
}

// Updates returns a copy of the recorded intermediate frames.
func (r *Recording) Updates() []Frame {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Frame(nil), r.updates...)
}

// Finals returns a copy of the recorded terminal frames.
func (r *Recording) Finals() []Frame {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Frame(nil), r.finals...)
}

// Errors returns a copy of the recorded failures.
func (r *Recording) Errors() []error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]error(nil), r.errs...)
}
