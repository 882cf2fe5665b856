package player

import (
	"context"
	"image"
	"io"
	"time"
)

// AudioSink plays the extracted audio track and follows transport commands
type AudioSink interface {
	// Load prepares the audio file at path for playback
	Load(path string) error

	// Play starts (or restarts) playback at offset seconds, fading in over fadeIn
	Play(offset float64, fadeIn time.Duration) error

	// Pause halts playback, keeping the position
	Pause() error

	// Stop halts playback and releases the device
	Stop() error

	// SetVolume sets linear output volume in [0,1]
	SetVolume(v float64) error

	// Fadeout ramps the output to silence over d and then stops producing sound
	Fadeout(d time.Duration) error

	// IsPlaying returns true if audio is actively playing
	IsPlaying() bool

	// Position returns the current playback position in seconds
	Position() float64
}

// InputSource yields raw key bytes without blocking
type InputSource interface {
	// PollKey returns the next pending key byte, or false if none is available
	PollKey() (byte, bool)
}

// Terminal is where frames are written
type Terminal interface {
	io.Writer

	// Size returns terminal dimensions in cells
	Size() (cols, rows int, err error)
}

// ArtRenderer turns a stored frame into colored text art
type ArtRenderer interface {
	// Render returns the text art for h and its width in columns
	Render(h Handle) (string, int, error)
}

// FrameSource decodes video frames in presentation order at the target frame rate
type FrameSource interface {
	// Next returns the next frame, or io.EOF once the stream is exhausted
	Next(ctx context.Context) (image.Image, error)
}

// Handle references one decoded frame in the Frame Store
type Handle struct {
	Index int    // 0-based frame ordinal
	Path  string // location in the Frame Store
}

// Phase is the render loop state
type Phase int

const (
	PhasePrebuffering Phase = iota
	PhasePlaying
	PhasePaused
	PhaseSeeking
	PhaseStopped
)

func (p Phase) String() string {
	switch p {
	case PhasePrebuffering:
		return "prebuffering"
	case PhasePlaying:
		return "playing"
	case PhasePaused:
		return "paused"
	case PhaseSeeking:
		return "seeking"
	case PhaseStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

const (
	// ANSI sequences written by the render loop
	seqHome       = "\x1b[H"
	seqClear      = "\x1b[2J"
	seqHideCursor = "\x1b[?25l"
	seqShowCursor = "\x1b[?25h"
	seqReset      = "\x1b[0m"

	// SeekFade masks the click when audio is repositioned
	SeekFade = 50 * time.Millisecond

	// SeekRetryInterval and SeekRetryBudget bound the wait for a seek target frame
	SeekRetryInterval = 20 * time.Millisecond
	SeekRetryBudget   = 400

	// PausePollInterval is how often a paused render loop checks for resume/seek/stop
	PausePollInterval = 100 * time.Millisecond

	// InputPollInterval is the transport controller polling period
	InputPollInterval = 50 * time.Millisecond

	// VolumeStep is the change applied per volume key press
	VolumeStep = 0.1
)
