package player

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVolumeClampsUnderRepeatedSteps(t *testing.T) {
	s := NewState(0.5)

	for rangeIter := 0; rangeIter < 20; rangeIter++ {
		s.AdjustVolume(VolumeStep)
	}
	assert.Equal(t, 1.0, s.Volume())

	for rangeIter := 0; rangeIter < 25; rangeIter++ {
		s.AdjustVolume(-VolumeStep)
	}
	assert.Equal(t, 0.0, s.Volume())

	s.AdjustVolume(VolumeStep)
	s.AdjustVolume(VolumeStep)
	s.AdjustVolume(VolumeStep)
	assert.Equal(t, 0.3, s.Volume())
}

func TestNewStateClampsStartVolume(t *testing.T) {
	assert.Equal(t, 1.0, NewState(3).Volume())
	assert.Equal(t, 0.0, NewState(-1).Volume())
}

func TestMuteKeepsStoredVolume(t *testing.T) {
	s := NewState(0.7)

	assert.True(t, s.ToggleMute())
	assert.Equal(t, 0.0, s.EffectiveVolume())
	assert.Equal(t, 0.7, s.Volume())

	assert.False(t, s.ToggleMute())
	assert.Equal(t, 0.7, s.EffectiveVolume())
}

func TestVolumeUpUnmutes(t *testing.T) {
	s := NewState(0.4)
	s.ToggleMute()

	s.AdjustVolume(-VolumeStep)
	assert.True(t, s.Muted(), "lowering volume keeps mute")

	s.AdjustVolume(VolumeStep)
	assert.False(t, s.Muted())
	assert.Equal(t, 0.4, s.EffectiveVolume())
}

func TestSeeksCoalesce(t *testing.T) {
	s := NewState(1)
	assert.False(t, s.PendingSeeks())

	s.PushSeek(120)
	s.PushSeek(-24)
	s.PushSeek(24)
	s.PushSeek(0)
	assert.True(t, s.PendingSeeks())

	assert.Equal(t, 120, s.DrainSeeks())
	assert.False(t, s.PendingSeeks())
	assert.Equal(t, 0, s.DrainSeeks())
}

func TestSeekQueueConcurrentPush(t *testing.T) {
	s := NewState(1)

	var wg sync.WaitGroup
	for rangeIter := 0; rangeIter < 8; rangeIter++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for rangeIter := 0; rangeIter < 100; rangeIter++ {
				s.PushSeek(1)
			}
		}()
	}

	total := 0
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	for {
		total += s.DrainSeeks()
		select {
		case <-done:
			total += s.DrainSeeks()
			assert.Equal(t, 800, total)
			return
		default:
		}
	}
}

func TestPauseAndStopFlags(t *testing.T) {
	s := NewState(1)
	assert.True(t, s.TogglePause())
	assert.True(t, s.Paused())
	assert.False(t, s.TogglePause())

	assert.False(t, s.Stopped())
	s.Stop()
	assert.True(t, s.Stopped())
}
