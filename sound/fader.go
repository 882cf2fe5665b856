package sound

import "github.com/gopxl/beep/v2"

// fader scales a streamer by a level that ramps linearly towards a target.
// It never ends: once the wrapped streamer is drained it plays silence, so the
// speaker keeps it mixed and a later seek can bring sound back.
type fader struct {
	s beep.Streamer

	level     float64
	target    float64
	step      float64
	remaining int
}

// ramp moves the level to target over n samples; n <= 0 jumps immediately
func (f *fader) ramp(target float64, n int) {
	if n <= 0 {
		f.level, f.target, f.remaining = target, target, 0
		return
	}
	f.target = target
	f.step = (target - f.level) / float64(n)
	f.remaining = n
}

func (f *fader) Stream(samples [][2]float64) (int, bool) {
	n, _ := f.s.Stream(samples)
	for i := n; i < len(samples); i++ {
		samples[i] = [2]float64{}
	}

	for i := range samples[:n] {
		if f.remaining > 0 {
			f.level += f.step
			f.remaining--
			if f.remaining == 0 {
				f.level = f.target
			}
		}
		samples[i][0] *= f.level
		samples[i][1] *= f.level
	}
	return len(samples), true
}

func (f *fader) Err() error {
	return f.s.Err()
}
