//go:build linux || darwin || dragonfly || freebsd || netbsd || openbsd

package term

import (
	"errors"
	"fmt"
	"os"
	"sync"

	"golang.org/x/sys/unix"
	"golang.org/x/term"
)

// Input reads keys from a tty in cbreak mode: no echo, no line buffering,
// signals still generated so Ctrl-C reaches the process as SIGINT.
type Input struct {
	fd    int
	saved *unix.Termios

	pending []byte
	buf     [64]byte

	restoreOnce sync.Once
}

// OpenInput switches f to cbreak mode. Call Restore to put the tty back.
func OpenInput(f *os.File) (*Input, error) {
	fd := int(f.Fd())
	if !term.IsTerminal(fd) {
		return nil, ErrNotTerminal
	}

	saved, err := unix.IoctlGetTermios(fd, ioctlGetTermios)
	if err != nil {
		return nil, fmt.Errorf("failed to read terminal settings: %w", err)
	}

	raw := *saved
	raw.Lflag &^= unix.ECHO | unix.ICANON
	raw.Cc[unix.VMIN] = 0
	raw.Cc[unix.VTIME] = 0
	if err := unix.IoctlSetTermios(fd, ioctlSetTermios, &raw); err != nil {
		return nil, fmt.Errorf("failed to set cbreak mode: %w", err)
	}

	in := newInput(fd)
	in.saved = saved
	return in, nil
}

func newInput(fd int) *Input {
	return &Input{fd: fd}
}

// PollKey returns the next pending byte without blocking
func (in *Input) PollKey() (byte, bool) {
	if len(in.pending) == 0 && !in.fill() {
		return 0, false
	}
	b := in.pending[0]
	in.pending = in.pending[1:]
	return b, true
}

// fill reads whatever is waiting on the descriptor
func (in *Input) fill() bool {
	fds := []unix.PollFd{{Fd: int32(in.fd), Events: unix.POLLIN}}
	for {
		n, err := unix.Poll(fds, 0)
		if errors.Is(err, unix.EINTR) {
			continue
		}
		if err != nil || n == 0 || fds[0].Revents&unix.POLLIN == 0 {
			return false
		}
		break
	}

	n, err := unix.Read(in.fd, in.buf[:])
	if err != nil || n <= 0 {
		return false
	}
	in.pending = in.buf[:n]
	return true
}

// Restore puts the tty back the way OpenInput found it
func (in *Input) Restore() error {
	var err error
	in.restoreOnce.Do(func() {
		if in.saved != nil {
			err = unix.IoctlSetTermios(in.fd, ioctlSetTermios, in.saved)
		}
	})
	return err
}
