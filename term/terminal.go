// Package term is the real terminal behind the player: output with
// synchronized updates, geometry queries and raw keyboard input.
package term

import (
	"errors"
	"io"
	"os"
)

// ErrNotTerminal is returned when a file descriptor is not attached to a tty
var ErrNotTerminal = errors.New("not a terminal")

const (
	beginSync = "\x1b[?2026h"
	endSync   = "\x1b[?2026l"
)

// Terminal writes frames to an output file. Each Write is one synchronized
// update so the terminal paints a whole frame at once.
type Terminal struct {
	out  io.Writer
	fd   int
	sync bool
	buf  []byte
}

// NewTerminal wraps f, usually os.Stdout
func NewTerminal(f *os.File) *Terminal {
	return &Terminal{out: f, fd: int(f.Fd()), sync: true}
}

// SetSyncOutput toggles the synchronized update wrapping
func (t *Terminal) SetSyncOutput(on bool) {
	t.sync = on
}

// Write sends p in a single write call
func (t *Terminal) Write(p []byte) (int, error) {
	if !t.sync {
		return t.out.Write(p)
	}
	t.buf = append(t.buf[:0], beginSync...)
	t.buf = append(t.buf, p...)
	t.buf = append(t.buf, endSync...)
	if _, err := t.out.Write(t.buf); err != nil {
		return 0, err
	}
	return len(p), nil
}

// Size returns the terminal dimensions in cells
func (t *Terminal) Size() (cols, rows int, err error) {
	return windowSize(t.fd)
}
