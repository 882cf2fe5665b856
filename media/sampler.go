package media

import (
	"errors"
	"image"
	"io"
)

// timedFrame is a decoded picture with its presentation window
type timedFrame struct {
	img      image.Image
	pts      float64 // seconds
	duration float64 // seconds, 0 if unknown
}

// sampler resamples a decoded frame sequence to a fixed rate. Output frame k
// is the latest decoded frame whose timestamp is at or before k/fps, so slow
// sources repeat frames and fast sources skip them.
type sampler struct {
	fps  float64
	next func() (*timedFrame, error)

	emitted int
	cur     *timedFrame
	ahead   *timedFrame
	eof     bool
	failed  error
}

func newSampler(fps float64, next func() (*timedFrame, error)) *sampler {
	return &sampler{fps: fps, next: next}
}

// Next returns the frame for the next output slot, or io.EOF after the last
// decoded frame's window has been covered. A decode error consumes the slot.
func (s *sampler) Next() (image.Image, error) {
	if err := s.failed; err != nil {
		s.failed = nil
		s.emitted++
		return nil, err
	}

	t := float64(s.emitted) / s.fps
	for {
		if s.ahead == nil && !s.eof {
			f, err := s.next()
			if errors.Is(err, io.EOF) {
				s.eof = true
			} else if err != nil {
				if s.cur == nil {
					s.emitted++
					return nil, err
				}
				// the broken frame takes the next slot
				s.failed = err
				break
			} else {
				s.ahead = f
			}
		}
		if s.ahead == nil || (s.cur != nil && s.ahead.pts > t+1e-9) {
			break
		}
		s.cur, s.ahead = s.ahead, nil
	}

	if s.cur == nil {
		return nil, io.EOF
	}
	if s.eof && s.ahead == nil {
		end := s.cur.pts + s.cur.duration
		if s.cur.duration <= 0 {
			end = s.cur.pts + 1/s.fps
		}
		if t >= end-1e-9 {
			return nil, io.EOF
		}
	}

	s.emitted++
	return s.cur.img, nil
}
