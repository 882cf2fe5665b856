package player

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// publish materializes frames [0, n), announces as many as fit and closes the queue
func (g *rig) publish(t *testing.T, n int) {
	t.Helper()
	fillStore(t, g.store, 0, n)
	for i := 0; i < n; i++ {
		g.queue.Push(g.store.Handle(i))
	}
	g.queue.Close()
}

func seq(from, to int) []int {
	out := make([]int, 0, to-from)
	for i := from; i < to; i++ {
		out = append(out, i)
	}
	return out
}

func playOffsets(a *fakeAudio) []float64 {
	var out []float64
	for _, c := range a.ops("play") {
		out = append(out, c.offset)
	}
	return out
}

func TestPrebufferStopsAtEndOfStream(t *testing.T) {
	g := newRig(t, Options{FPS: 24, BufferSize: 24, TotalFrames: 100})
	g.publish(t, 10)

	g.r.prebuffer(context.Background())

	assert.Len(t, g.r.Buffered(), 10)
	assert.True(t, g.r.eos)
	assert.Equal(t, PhasePrebuffering, g.r.Phase())
	assert.Contains(t, g.term.Take(), "Buffering...")
}

func TestPrebufferFullShowsNoBufferingMessage(t *testing.T) {
	g := newRig(t, Options{FPS: 24, BufferSize: 8, TotalFrames: 100})
	g.publish(t, 20)

	g.r.prebuffer(context.Background())

	assert.Len(t, g.r.Buffered(), 8)
	assert.NotContains(t, g.term.Take(), "Buffering...")
}

func TestRunShortStreamPlaysEveryFrame(t *testing.T) {
	g := newRig(t, Options{FPS: 24, BufferSize: 24, TotalFrames: 100})
	g.publish(t, 10)

	start := g.time.Now()
	require.NoError(t, g.r.Run(context.Background()))

	if diff := cmp.Diff(seq(0, 10), g.art.Rendered()); diff != "" {
		t.Errorf("rendered frames mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, PhaseStopped, g.r.Phase())
	assert.True(t, g.state.Stopped())
	assert.Equal(t, []float64{0}, playOffsets(g.audio))

	// frame 9 is due 9/24s after start
	assert.Equal(t, g.clock.Target(9), g.time.Now())
	assert.Equal(t, time.Duration(375)*time.Millisecond, g.time.Now().Sub(start))
}

func TestRunRefillsFromStoreWhenQueueDropped(t *testing.T) {
	g := newRig(t, Options{FPS: 10, BufferSize: 5, TotalFrames: 60})
	g.publish(t, 60)
	require.Positive(t, g.queue.Dropped())

	require.NoError(t, g.r.Run(context.Background()))

	if diff := cmp.Diff(seq(0, 60), g.art.Rendered()); diff != "" {
		t.Errorf("rendered frames mismatch (-want +got):\n%s", diff)
	}
}

func TestRunSeekForwardFromController(t *testing.T) {
	g := newRig(t, Options{FPS: 10, BufferSize: 10, TotalFrames: 100})
	g.publish(t, 100)

	ctrl := NewController(&byteInput{}, g.state, ControllerConfig{FPS: 10, SeekJumpSeconds: 5, FineSeekSeconds: 1})
	g.art.hook = func(i int) {
		// pressed while frame 19 is on screen, so the next index is 20
		if i == 19 {
			ctrl.Apply(ActionSeekForward)
		}
	}

	require.NoError(t, g.r.Run(context.Background()))

	want := append(seq(0, 20), seq(70, 100)...)
	if diff := cmp.Diff(want, g.art.Rendered()); diff != "" {
		t.Errorf("rendered frames mismatch (-want +got):\n%s", diff)
	}
	assert.Len(t, g.audio.ops("fadeout"), 1)
	assert.Equal(t, []float64{0, 7}, playOffsets(g.audio))
}

func TestSeekRebuildsBufferAtTarget(t *testing.T) {
	g := newRig(t, Options{FPS: 10, BufferSize: 10, TotalFrames: 100})
	g.publish(t, 100)
	g.r.prebuffer(context.Background())
	g.r.index = 20

	g.r.seek(context.Background(), 50, true)

	assert.Equal(t, 70, g.r.Index())
	var got []int
	for _, h := range g.r.Buffered() {
		got = append(got, h.Index)
	}
	assert.Equal(t, seq(70, 80), got)
	assert.Equal(t, 70, g.clock.Index())
	assert.Equal(t, []float64{7}, playOffsets(g.audio))
	assert.Equal(t, PhasePlaying, g.r.Phase())
	assert.Empty(t, g.queue.Len())
}

func TestSeekClampsToStream(t *testing.T) {
	g := newRig(t, Options{FPS: 10, BufferSize: 10, TotalFrames: 100})
	g.publish(t, 100)

	g.r.index = 5
	g.r.seek(context.Background(), -100, true)
	assert.Equal(t, 0, g.r.Index())

	g.r.index = 95
	g.r.seek(context.Background(), 50, true)
	assert.Equal(t, 99, g.r.Index())
	assert.Len(t, g.r.Buffered(), 1)
}

func TestSeekMissWaitsThenContinues(t *testing.T) {
	g := newRig(t, Options{FPS: 10, BufferSize: 10, TotalFrames: 100})
	fillStore(t, g.store, 0, 30)
	g.r.index = 10

	start := g.time.Now()
	g.r.seek(context.Background(), 50, true)

	assert.Equal(t, SeekRetryBudget*SeekRetryInterval, g.time.Now().Sub(start))
	assert.Equal(t, 60, g.r.Index())
	assert.Empty(t, g.r.Buffered())
	assert.Empty(t, g.audio.ops("play"), "audio stays faded until frames exist")

	out := g.term.Take()
	assert.Equal(t, 1, strings.Count(out, "Buffering..."))
	assert.True(t, strings.HasPrefix(out, seqClear+seqHome))

	// decoding catches up; the loop shows the gap, then resumes audio
	fillStore(t, g.store, 60, 66)
	g.r.step(context.Background())
	assert.Contains(t, g.term.Take(), "Buffering...")
	assert.Equal(t, 61, g.r.Index())
	assert.Len(t, g.r.Buffered(), 5)

	g.r.step(context.Background())
	assert.Equal(t, []float64{6.1}, playOffsets(g.audio))
	assert.Equal(t, []int{61}, g.art.Rendered())
}

func TestSeekWhilePausedKeepsAudioPaused(t *testing.T) {
	g := newRig(t, Options{FPS: 10, BufferSize: 10, TotalFrames: 100})
	g.publish(t, 100)
	g.r.index = 40

	g.r.seek(context.Background(), -20, false)

	assert.Equal(t, 20, g.r.Index())
	assert.Empty(t, g.audio.ops("play"))
	assert.True(t, g.r.stale)
}

func TestPauseResumeRealignsAudio(t *testing.T) {
	g := newRig(t, Options{FPS: 10, BufferSize: 10, TotalFrames: 100})
	g.publish(t, 100)

	polls := 0
	g.r.sleep = func(ctx context.Context, d time.Duration) {
		g.time.Advance(d)
		if g.state.Paused() {
			polls++
			if polls == 5 {
				g.state.SetPaused(false)
			}
		}
	}

	resumedAt := -1
	pausedScreen := ""
	g.art.hook = func(i int) {
		if i == 30 {
			g.state.SetPaused(true)
			g.term.Take()
		}
		if i == 31 {
			resumedAt = g.clock.Index()
			pausedScreen = g.term.Take()
		}
	}

	require.NoError(t, g.r.Run(context.Background()))

	assert.Len(t, g.audio.ops("pause"), 1)
	require.Len(t, playOffsets(g.audio), 2)
	assert.InDelta(t, 3.1, playOffsets(g.audio)[1], 1e-9)
	assert.Equal(t, 31, resumedAt, "resume must not skip the frames that would have played while paused")

	if diff := cmp.Diff(seq(0, 100), g.art.Rendered()); diff != "" {
		t.Errorf("every frame must be displayed exactly once (-want +got):\n%s", diff)
	}

	// while paused the frame already on screen is repeated with the paused glyph
	assert.Contains(t, pausedScreen, "frame-30\n▶ ")
	assert.NotContains(t, pausedScreen, "frame-31")
}

func TestStopEndsPlayback(t *testing.T) {
	g := newRig(t, Options{FPS: 10, BufferSize: 10, TotalFrames: 100})
	g.publish(t, 100)
	g.art.hook = func(i int) {
		if i == 5 {
			g.state.Stop()
		}
	}

	require.NoError(t, g.r.Run(context.Background()))

	assert.Equal(t, seq(0, 6), g.art.Rendered())
	assert.Equal(t, PhaseStopped, g.r.Phase())
	assert.True(t, strings.HasSuffix(g.term.Take(), seqReset+seqShowCursor+"\n"))
}

func TestResizeClearsWhenEnabled(t *testing.T) {
	for _, clearOnResize := range []bool{true, false} {
		g := newRig(t, Options{FPS: 10, BufferSize: 4, TotalFrames: 10, ClearOnResize: clearOnResize})
		fillStore(t, g.store, 0, 4)
		g.r.buf = []Handle{g.store.Handle(0)}

		g.r.draw()
		first := g.term.Take()
		assert.True(t, strings.HasPrefix(first, seqHome))
		assert.NotContains(t, first, seqClear)

		g.r.draw()
		assert.NotContains(t, g.term.Take(), seqClear, "same size never clears")

		g.term.Resize(80, 24)
		g.r.draw()
		out := g.term.Take()
		if clearOnResize {
			assert.True(t, strings.HasPrefix(out, seqClear+seqHome))
		} else {
			assert.True(t, strings.HasPrefix(out, seqHome))
			assert.NotContains(t, out, seqClear)
		}
	}
}

func TestDrawIsSingleWriteWithStatusBar(t *testing.T) {
	g := newRig(t, Options{FPS: 10, BufferSize: 4, TotalFrames: 10})
	fillStore(t, g.store, 0, 1)
	g.r.buf = []Handle{g.store.Handle(0)}

	g.r.draw()
	out := g.term.Take()

	assert.Contains(t, out, "frame-0\n")
	assert.Contains(t, out, "00:00:00 / 00:00:01")
	assert.True(t, strings.HasSuffix(out, "\x1b[K\n"))
}

func TestVolumeAppliedOnlyOnChange(t *testing.T) {
	g := newRig(t, Options{FPS: 10, BufferSize: 10, TotalFrames: 30})
	g.publish(t, 30)
	g.art.hook = func(i int) {
		switch i {
		case 10:
			g.state.ToggleMute()
		case 20:
			g.state.ToggleMute()
		}
	}

	require.NoError(t, g.r.Run(context.Background()))

	var vols []float64
	for _, c := range g.audio.ops("volume") {
		vols = append(vols, c.value)
	}
	assert.Equal(t, []float64{1, 0, 1}, vols)
}
