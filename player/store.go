package player

import (
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"sync/atomic"
)

// FrameStore is the on-disk staging area for decoded frames.
// Frame i lives at frame_<i+1>.png so names match the order they were written.
type FrameStore struct {
	dir  string
	last atomic.Int64 // highest index written, -1 if none
}

// NewFrameStore creates dir if needed
func NewFrameStore(dir string) (*FrameStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("could not create frame store: %w", err)
	}
	s := &FrameStore{dir: dir}
	s.last.Store(-1)
	return s, nil
}

// Dir returns the store directory
func (s *FrameStore) Dir() string {
	return s.dir
}

// Path returns the file path for frame index i
func (s *FrameStore) Path(i int) string {
	return filepath.Join(s.dir, fmt.Sprintf("frame_%05d.png", i+1))
}

// Handle returns a handle for frame i without checking it exists
func (s *FrameStore) Handle(i int) Handle {
	return Handle{Index: i, Path: s.Path(i)}
}

// Exists reports whether frame i has been materialized
func (s *FrameStore) Exists(i int) bool {
	if i < 0 {
		return false
	}
	_, err := os.Stat(s.Path(i))
	return err == nil
}

// Write encodes img as frame i. The file is written under a temporary name and
// renamed so readers never observe a partial frame.
func (s *FrameStore) Write(i int, img image.Image) (Handle, error) {
	h := s.Handle(i)
	tmp := h.Path + ".part"

	f, err := os.Create(tmp)
	if err != nil {
		return Handle{}, fmt.Errorf("create frame %d: %w", i, err)
	}
	enc := png.Encoder{CompressionLevel: png.BestSpeed}
	if err := enc.Encode(f, img); err != nil {
		f.Close()
		os.Remove(tmp)
		return Handle{}, fmt.Errorf("encode frame %d: %w", i, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return Handle{}, fmt.Errorf("close frame %d: %w", i, err)
	}
	if err := os.Rename(tmp, h.Path); err != nil {
		os.Remove(tmp)
		return Handle{}, fmt.Errorf("publish frame %d: %w", i, err)
	}
	for {
		last := s.last.Load()
		if int64(i) <= last || s.last.CompareAndSwap(last, int64(i)) {
			break
		}
	}
	return h, nil
}

// Last returns the highest frame index written so far, or -1
func (s *FrameStore) Last() int {
	return int(s.last.Load())
}

// LoadFrame decodes a PNG frame file
func LoadFrame(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open frame: %w", err)
	}
	defer f.Close()

	img, err := png.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode frame: %w", err)
	}
	return img, nil
}

// Remove deletes the store and everything in it
func (s *FrameStore) Remove() error {
	return os.RemoveAll(s.dir)
}
