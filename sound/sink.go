// Package sound plays an extracted WAV track on the system speaker and follows
// the transport commands of the render loop.
package sound

import (
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/effects"
	"github.com/gopxl/beep/v2/speaker"
	"github.com/gopxl/beep/v2/wav"
)

// speakerBuffer trades latency for underrun safety
const speakerBuffer = 50 * time.Millisecond

var errNotLoaded = errors.New("no audio loaded")

var (
	speakerOnce sync.Once
	speakerRate beep.SampleRate
	speakerErr  error
)

// initSpeaker opens the output device once per process at the first track's rate
func initSpeaker(sr beep.SampleRate) (beep.SampleRate, error) {
	speakerOnce.Do(func() {
		speakerRate = sr
		speakerErr = speaker.Init(sr, sr.N(speakerBuffer))
	})
	return speakerRate, speakerErr
}

// Sink is a beep-backed audio sink. All stream mutation happens under the
// speaker lock because the speaker pulls samples from its own goroutine.
type Sink struct {
	mu sync.Mutex

	streamer beep.StreamSeekCloser
	format   beep.Format
	rate     beep.SampleRate // speaker rate

	fade *fader
	gain *effects.Gain
	ctrl *beep.Ctrl
}

// NewSink creates an empty sink; Load must be called before playback
func NewSink() *Sink {
	return &Sink{}
}

// Load opens the WAV file at path and queues it paused on the speaker
func (s *Sink) Load(path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open audio: %w", err)
	}
	streamer, format, err := wav.Decode(f)
	if err != nil {
		f.Close()
		return fmt.Errorf("failed to decode audio: %w", err)
	}

	rate, err := initSpeaker(format.SampleRate)
	if err != nil {
		streamer.Close()
		return fmt.Errorf("failed to open audio device: %w", err)
	}

	var src beep.Streamer = streamer
	if rate != format.SampleRate {
		src = beep.Resample(4, format.SampleRate, rate, streamer)
	}

	s.streamer = streamer
	s.format = format
	s.rate = rate
	s.fade = &fader{s: src, level: 1, target: 1}
	s.gain = &effects.Gain{Streamer: s.fade}
	s.ctrl = &beep.Ctrl{Streamer: s.gain, Paused: true}

	speaker.Play(s.ctrl)
	return nil
}

// Play seeks to offset seconds and starts playback, fading in over fadeIn
func (s *Sink) Play(offset float64, fadeIn time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ctrl == nil {
		return errNotLoaded
	}

	pos := s.format.SampleRate.N(time.Duration(offset * float64(time.Second)))
	pos = max(0, min(pos, s.streamer.Len()))

	speaker.Lock()
	defer speaker.Unlock()

	if err := s.streamer.Seek(pos); err != nil {
		return fmt.Errorf("failed to seek audio: %w", err)
	}
	if fadeIn > 0 {
		s.fade.ramp(0, 0)
	}
	s.fade.ramp(1, s.rate.N(fadeIn))
	s.ctrl.Paused = false
	return nil
}

// Pause halts playback, keeping the position
func (s *Sink) Pause() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ctrl == nil {
		return errNotLoaded
	}
	speaker.Lock()
	s.ctrl.Paused = true
	speaker.Unlock()
	return nil
}

// Stop halts playback and releases the track
func (s *Sink) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ctrl == nil {
		return nil
	}
	speaker.Clear()
	err := s.streamer.Close()
	s.ctrl, s.gain, s.fade, s.streamer = nil, nil, nil, nil
	return err
}

// SetVolume sets linear output volume in [0,1]
func (s *Sink) SetVolume(v float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.gain == nil {
		return errNotLoaded
	}
	speaker.Lock()
	s.gain.Gain = gainFor(v)
	speaker.Unlock()
	return nil
}

// Fadeout ramps to silence over d and returns once the ramp has played
func (s *Sink) Fadeout(d time.Duration) error {
	s.mu.Lock()
	if s.fade == nil {
		s.mu.Unlock()
		return errNotLoaded
	}
	speaker.Lock()
	s.fade.ramp(0, s.rate.N(d))
	playing := !s.ctrl.Paused
	speaker.Unlock()
	s.mu.Unlock()

	if playing {
		time.Sleep(d)
	}
	return nil
}

// IsPlaying returns true while unpaused and short of the end of the track
func (s *Sink) IsPlaying() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ctrl == nil {
		return false
	}
	speaker.Lock()
	defer speaker.Unlock()
	return !s.ctrl.Paused && s.streamer.Position() < s.streamer.Len()
}

// Position returns the playback position in seconds
func (s *Sink) Position() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.streamer == nil {
		return 0
	}
	speaker.Lock()
	defer speaker.Unlock()
	return s.format.SampleRate.D(s.streamer.Position()).Seconds()
}

// gainFor maps a linear volume to effects.Gain, which scales by 1+Gain
func gainFor(v float64) float64 {
	return max(0, min(1, v)) - 1
}
