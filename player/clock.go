package player

import (
	"math"
	"sync"
	"time"
)

// Clock maps wall-clock instants to frame indices.
// It is re-anchored on every pause, resume and seek instead of being advanced
// frame by frame, so jitter in one frame never accumulates.
type Clock struct {
	fps float64
	now func() time.Time

	mu     sync.RWMutex
	origin time.Time
}

// NewClock creates a clock anchored at index 0 now. A nil now uses time.Now.
func NewClock(fps float64, now func() time.Time) *Clock {
	if now == nil {
		now = time.Now
	}
	c := &Clock{fps: fps, now: now}
	c.origin = now()
	return c
}

// Offset returns the media time of frame index in seconds
func (c *Clock) Offset(index int) float64 {
	return float64(index) / c.fps
}

// Anchor sets origin so that index is the current frame: origin = now - index*period
func (c *Clock) Anchor(index int) {
	now := c.now()
	c.mu.Lock()
	c.origin = now.Add(-c.sinceOrigin(index))
	c.mu.Unlock()
}

// Target returns the absolute instant at which index should be displayed
func (c *Clock) Target(index int) time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.origin.Add(c.sinceOrigin(index))
}

// Until returns how long to wait before index is due; negative when late
func (c *Clock) Until(index int) time.Duration {
	return c.Target(index).Sub(c.now())
}

// IndexAt returns floor((t - origin) * fps), never negative
func (c *Clock) IndexAt(t time.Time) int {
	c.mu.RLock()
	elapsed := t.Sub(c.origin)
	c.mu.RUnlock()

	if elapsed <= 0 {
		return 0
	}
	// the epsilon absorbs float error exactly on a frame boundary
	return int(math.Floor(elapsed.Seconds()*c.fps + 1e-9))
}

// Index returns the current frame index
func (c *Clock) Index() int {
	return c.IndexAt(c.now())
}

// sinceOrigin rounds up to the nanosecond so that IndexAt(Target(i)) == i
func (c *Clock) sinceOrigin(index int) time.Duration {
	return time.Duration(math.Ceil(float64(index) * float64(time.Second) / c.fps))
}
