package source

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/standardbeagle/flowfilter/internal/errors"
)

// Exec spawns a child process and streams its stdout lines. A non-zero
// exit with non-empty stderr is a terminal producer error; a non-zero exit
// with empty stderr (e.g. grep finding nothing) is not.
type Exec struct {
	argv    []string
	cwd     string
	factory LineFactory
}

// NewExec creates an exec source for argv run in cwd.
func NewExec(argv []string, cwd string, factory LineFactory) *Exec {
	if factory == nil {
		factory = PlainLine
	}
	return &Exec{argv: argv, cwd: cwd, factory: factory}
}

func (e *Exec) Name() string { return "exec" }

// Command renders the argv as a single shell-style string, used as the
// cache key for this producer.
func (e *Exec) Command() string { return strings.Join(e.argv, " ") }

// Cwd returns the working directory the command runs in.
func (e *Exec) Cwd() string { return e.cwd }

func (e *Exec) Produce(ctx context.Context, emit EmitFunc) error {
	if len(e.argv) == 0 {
		return errors.NewProducerError("exec", "spawn", fmt.Errorf("empty argv"))
	}

	cmd := exec.CommandContext(ctx, e.argv[0], e.argv[1:]...)
	cmd.Dir = e.cwd

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return errors.NewProducerError("exec", "pipe", err)
	}

	if err := cmd.Start(); err != nil {
		return errors.NewProducerError("exec", "spawn", err)
	}

	readErr := produceLines(ctx, stdout, e.factory, emit)

	waitErr := cmd.Wait()
	if readErr != nil {
		return errors.NewProducerError("exec", "read", readErr)
	}
	if waitErr != nil && ctx.Err() == nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return errors.NewProducerError("exec", "wait",
				fmt.Errorf("%s: %s", waitErr, msg))
		}
	}
	return nil
}

// ForerunnerExec serves a previously cached run of the same command when a
// payload file is available, and falls back to spawning the command
// otherwise. The cache lookup itself happens at pipeline-construction time;
// this source only needs the resolved payload path.
type ForerunnerExec struct {
	exec       *Exec
	cachedPath string
}

// NewForerunnerExec wraps an exec source. cachedPath may be empty, in
// which case every Produce spawns the command.
func NewForerunnerExec(exec *Exec, cachedPath string) *ForerunnerExec {
	return &ForerunnerExec{exec: exec, cachedPath: cachedPath}
}

func (f *ForerunnerExec) Name() string {
	if f.cachedPath != "" {
		return "exec-cached"
	}
	return f.exec.Name()
}

func (f *ForerunnerExec) Produce(ctx context.Context, emit EmitFunc) error {
	if f.cachedPath != "" {
		if _, err := os.Stat(f.cachedPath); err == nil {
			file := NewFile(f.cachedPath, f.exec.factory)
			return file.Produce(ctx, emit)
		}
		// Payload vanished since the lookup: run live instead.
	}
	return f.exec.Produce(ctx, emit)
}
