package player

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

// fakeTime is a manual clock; sleeping advances it
type fakeTime struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeTime() *fakeTime {
	return &fakeTime{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (f *fakeTime) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.t
}

func (f *fakeTime) Advance(d time.Duration) {
	f.mu.Lock()
	f.t = f.t.Add(d)
	f.mu.Unlock()
}

type audioCall struct {
	op     string
	offset float64
	value  float64
}

type fakeAudio struct {
	mu      sync.Mutex
	calls   []audioCall
	loadErr error
}

func (a *fakeAudio) record(c audioCall) error {
	a.mu.Lock()
	a.calls = append(a.calls, c)
	a.mu.Unlock()
	return nil
}

func (a *fakeAudio) Load(string) error {
	a.record(audioCall{op: "load"})
	return a.loadErr
}
func (a *fakeAudio) Play(offset float64, _ time.Duration) error {
	return a.record(audioCall{op: "play", offset: offset})
}
func (a *fakeAudio) Pause() error { return a.record(audioCall{op: "pause"}) }
func (a *fakeAudio) Stop() error { return a.record(audioCall{op: "stop"}) }
func (a *fakeAudio) SetVolume(v float64) error { return a.record(audioCall{op: "volume", value: v}) }
func (a *fakeAudio) Fadeout(time.Duration) error { return a.record(audioCall{op: "fadeout"}) }
func (a *fakeAudio) IsPlaying() bool { return false }
func (a *fakeAudio) Position() float64 { return 0 }

func (a *fakeAudio) ops(op string) []audioCall {
	a.mu.Lock()
	defer a.mu.Unlock()
	var out []audioCall
	for _, c := range a.calls {
		if c.op == op {
			out = append(out, c)
		}
	}
	return out
}

type fakeTerm struct {
	mu   sync.Mutex
	cols int
	rows int
	out  bytes.Buffer
}

func (t *fakeTerm) Write(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.out.Write(p)
}

func (t *fakeTerm) Size() (int, int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.cols, t.rows, nil
}

func (t *fakeTerm) Resize(cols, rows int) {
	t.mu.Lock()
	t.cols, t.rows = cols, rows
	t.mu.Unlock()
}

func (t *fakeTerm) Take() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	s := t.out.String()
	t.out.Reset()
	return s
}

// fakeArt records which frames were rendered. hook, if set, runs after each render.
type fakeArt struct {
	mu       sync.Mutex
	rendered []int
	hook     func(index int)
}

func (a *fakeArt) Render(h Handle) (string, int, error) {
	a.mu.Lock()
	a.rendered = append(a.rendered, h.Index)
	a.mu.Unlock()
	if a.hook != nil {
		a.hook(h.Index)
	}
	return fmt.Sprintf("frame-%d\n", h.Index), 40, nil
}

func (a *fakeArt) Rendered() []int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]int(nil), a.rendered...)
}

// sliceSource yields n blank frames then io.EOF
type sliceSource struct {
	n    int
	next int
	fail map[int]bool
}

func (s *sliceSource) Next(ctx context.Context) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.next >= s.n {
		return nil, io.EOF
	}
	i := s.next
	s.next++
	if s.fail[i] {
		return nil, fmt.Errorf("corrupt frame %d", i)
	}
	return image.NewRGBA(image.Rect(0, 0, 2, 2)), nil
}

type byteInput struct {
	mu   sync.Mutex
	keys []byte
}

func (b *byteInput) PollKey() (byte, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.keys) == 0 {
		return 0, false
	}
	k := b.keys[0]
	b.keys = b.keys[1:]
	return k, true
}

func (b *byteInput) Send(keys ...byte) {
	b.mu.Lock()
	b.keys = append(b.keys, keys...)
	b.mu.Unlock()
}

// fillStore writes frames [from, to) into a fresh store
func fillStore(t *testing.T, store *FrameStore, from, to int) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	for i := from; i < to; i++ {
		_, err := store.Write(i, img)
		require.NoError(t, err)
	}
}

type rig struct {
	store *FrameStore
	queue *FrameQueue
	state *State
	clock *Clock
	time  *fakeTime
	audio *fakeAudio
	term  *fakeTerm
	art   *fakeArt
	r     *Renderer
}

func newRig(t *testing.T, opts Options) *rig {
	t.Helper()
	store, err := NewFrameStore(t.TempDir())
	require.NoError(t, err)

	opts = opts.withDefaults()
	opts.Logger = zerolog.Nop()

	ft := newFakeTime()
	g := &rig{
		store: store,
		queue: NewFrameQueue(opts.BufferSize * 2),
		state: NewState(1),
		clock: NewClock(opts.FPS, ft.Now),
		time:  ft,
		audio: &fakeAudio{},
		term:  &fakeTerm{cols: 120, rows: 40},
		art:   &fakeArt{},
	}
	g.r = NewRenderer(opts, g.store, g.queue, g.state, g.clock, g.audio, g.term, g.art)
	g.r.sleep = func(ctx context.Context, d time.Duration) {
		ft.Advance(d)
	}
	return g
}
