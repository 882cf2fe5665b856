// Package media opens a video file with FFmpeg (through go-astiav), samples
// its frames at a target rate and extracts its audio track.
package media

import (
	"errors"
	"math"

	"github.com/asticode/go-astiav"
)

func init() {
	// FFmpeg logs to stderr, which is the render canvas
	astiav.SetLogLevel(astiav.LogLevelQuiet)
}

var (
	ErrNoVideoStream = errors.New("no video stream found")
	ErrNoAudioStream = errors.New("no audio stream found")
)

const (
	// AudioSampleRate is the rate the extracted track is resampled to
	AudioSampleRate = 44100

	// cellAspect compensates for terminal cells being roughly twice as tall as wide
	cellAspect = 0.55

	// avTimeBase is FFmpeg's AV_TIME_BASE, the unit of FormatContext.Duration
	avTimeBase = 1_000_000
)

// Info describes a video as seen at the playback frame rate
type Info struct {
	Duration    float64 // seconds
	FPS         float64 // playback rate frames are sampled at
	TotalFrames int     // frames at FPS over Duration
	SourceFPS   float64
	Width       int // source dimensions
	Height      int
	HasAudio    bool
}

// TotalFrames is the number of frames sampled at fps over duration seconds
func TotalFrames(duration, fps float64) int {
	if duration <= 0 || fps <= 0 {
		return 0
	}
	return int(math.Ceil(duration*fps - 1e-9))
}

// FrameSize returns the stored frame size for a source of srcW x srcH scaled
// to wide columns, keeping the aspect ratio of terminal cells
func FrameSize(srcW, srcH, wide int) (int, int) {
	if srcW <= 0 || srcH <= 0 || wide <= 0 {
		return 0, 0
	}
	ratio := float64(srcH) / float64(srcW)
	tall := int(ratio * float64(wide) * cellAspect)
	return wide, max(1, tall)
}

func rationalFloat(r astiav.Rational) float64 {
	if r.Den() == 0 {
		return 0
	}
	return float64(r.Num()) / float64(r.Den())
}

func ptsSeconds(pts int64, tb astiav.Rational) float64 {
	return float64(pts) * rationalFloat(tb)
}
