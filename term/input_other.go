//go:build !(linux || darwin || dragonfly || freebsd || netbsd || openbsd)

package term

import (
	"errors"
	"os"
)

// Input is unavailable on this platform; playback runs without key controls
type Input struct{}

// OpenInput always fails here
func OpenInput(*os.File) (*Input, error) {
	return nil, errors.New("keyboard input is not supported on this platform")
}

func (*Input) PollKey() (byte, bool) { return 0, false }

func (*Input) Restore() error { return nil }
