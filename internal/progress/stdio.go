package progress

import (
	"encoding/json"
	"io"
	"log"
	"os"
	"sync"

	"github.com/google/jsonschema-go/jsonschema"

	"github.com/standardbeagle/flowfilter/internal/display"
)

// frameSchema is the fixed wire contract for outgoing frames. Every frame
// is validated against it before it is written, so a malformed frame is
// caught here instead of in the editor.
var frameSchema = &jsonschema.Schema{
	Type:     "object",
	Required: []string{"lines", "indices", "truncated_map", "icon_added", "total_matched", "total_processed", "phase"},
	Properties: map[string]*jsonschema.Schema{
		"lines": {
			Type:  "array",
			Items: &jsonschema.Schema{Type: "string"},
		},
		"indices": {
			Type: "array",
			Items: &jsonschema.Schema{
				Type:  "array",
				Items: &jsonschema.Schema{Type: "integer"},
			},
		},
		"truncated_map": {
			Type: "object",
			AdditionalProperties: &jsonschema.Schema{
				Type: "string",
			},
		},
		"icon_added":      {Type: "boolean"},
		"total_matched":   {Type: "integer"},
		"total_processed": {Type: "integer"},
		"phase":           {Type: "string", Enum: []any{"progress", "final", "error"}},
		"error":           {Type: "string"},
	},
}

// Stdio writes frames as JSON lines. The zero writer defaults to stdout.
type Stdio struct {
	mu       sync.Mutex
	enc      *json.Encoder
	resolved *jsonschema.Resolved
}

// NewStdio creates the production progressor. w may be nil for os.Stdout.
func NewStdio(w io.Writer) *Stdio {
	if w == nil {
		w = os.Stdout
	}
	resolved, err := frameSchema.Resolve(nil)
	if err != nil {
		// The schema is a fixed literal; failing to resolve it is a bug.
		panic(err)
	}
	return &Stdio{enc: json.NewEncoder(w), resolved: resolved}
}

func (s *Stdio) Update(frame display.DisplayFrame, matched, processed uint64) {
	s.write(wireFrame(frame, matched, processed, PhaseProgress))
}

func (s *Stdio) Finished(frame display.DisplayFrame, matched, processed uint64) {
	s.write(wireFrame(frame, matched, processed, PhaseFinal))
}

func (s *Stdio) Failed(err error) {
	f := wireFrame(display.DisplayFrame{}, 0, 0, PhaseError)
	f.Error = err.Error()
	s.write(f)
}

func (s *Stdio) write(f Frame) {
	if err := s.validate(f); err != nil {
		log.Printf("dropping malformed frame: %v", err)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enc.Encode(f); err != nil {
		log.Printf("failed to write frame: %v", err)
	}
}

// validate round-trips the frame through JSON and checks it against the
// wire schema.
func (s *Stdio) validate(f Frame) error {
	raw, err := json.Marshal(f)
	if err != nil {
		return err
	}
	var instance any
	if err := json.Unmarshal(raw, &instance); err != nil {
		return err
	}
	return s.resolved.Validate(instance)
}
