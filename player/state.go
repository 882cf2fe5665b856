package player

import (
	"math"
	"sync"
	"sync/atomic"
)

// State is the shared playback record. The transport controller is its only
// writer; the render loop and clock read it every iteration.
type State struct {
	paused  atomic.Bool
	stopped atomic.Bool
	muted   atomic.Bool
	volume  atomic.Uint64 // math.Float64bits

	seekMu sync.Mutex
	seeks  []int
}

// NewState creates a state with the given starting volume
func NewState(volume float64) *State {
	s := &State{}
	s.volume.Store(math.Float64bits(clampVolume(volume)))
	return s
}

// Paused returns current pause state
func (s *State) Paused() bool {
	return s.paused.Load()
}

// TogglePause flips the pause state and returns the new value
func (s *State) TogglePause() bool {
	for {
		current := s.paused.Load()
		if s.paused.CompareAndSwap(current, !current) {
			return !current
		}
	}
}

// SetPaused sets the pause state
func (s *State) SetPaused(p bool) {
	s.paused.Store(p)
}

// Stopped returns true once a stop was requested
func (s *State) Stopped() bool {
	return s.stopped.Load()
}

// Stop requests every task to exit at its next poll
func (s *State) Stop() {
	s.stopped.Store(true)
}

// Muted returns current mute state
func (s *State) Muted() bool {
	return s.muted.Load()
}

// ToggleMute flips the mute state and returns the new value
func (s *State) ToggleMute() bool {
	for {
		current := s.muted.Load()
		if s.muted.CompareAndSwap(current, !current) {
			return !current
		}
	}
}

// Volume returns the stored volume, unaffected by mute
func (s *State) Volume() float64 {
	return math.Float64frombits(s.volume.Load())
}

// EffectiveVolume is what the audio sink should play at: 0 while muted
func (s *State) EffectiveVolume() float64 {
	if s.Muted() {
		return 0
	}
	return s.Volume()
}

// AdjustVolume adds delta, rounds to one decimal and clamps to [0,1].
// Raising the volume also unmutes.
func (s *State) AdjustVolume(delta float64) float64 {
	var next float64
	for {
		bits := s.volume.Load()
		next = clampVolume(math.Round((math.Float64frombits(bits)+delta)*10) / 10)
		if s.volume.CompareAndSwap(bits, math.Float64bits(next)) {
			break
		}
	}
	if delta > 0 {
		s.muted.Store(false)
	}
	return next
}

// PushSeek queues a signed frame-count jump
func (s *State) PushSeek(delta int) {
	if delta == 0 {
		return
	}
	s.seekMu.Lock()
	s.seeks = append(s.seeks, delta)
	s.seekMu.Unlock()
}

// PendingSeeks reports whether any jump is queued
func (s *State) PendingSeeks() bool {
	s.seekMu.Lock()
	defer s.seekMu.Unlock()
	return len(s.seeks) > 0
}

// DrainSeeks removes every queued jump and returns their sum
func (s *State) DrainSeeks() int {
	s.seekMu.Lock()
	defer s.seekMu.Unlock()

	sum := 0
	for _, d := range s.seeks {
		sum += d
	}
	s.seeks = s.seeks[:0]
	return sum
}

func clampVolume(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
