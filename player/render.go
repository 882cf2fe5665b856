package player

import (
	"bytes"
	"context"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/rs/zerolog"
)

// Options are read once at session start
type Options struct {
	FPS             float64
	Wide            int // frame-art width in columns
	BufferSize      int // render buffer capacity; the frame queue holds twice this
	TotalFrames     int
	Duration        float64 // seconds; 0 derives it from TotalFrames/FPS
	SeekJumpSeconds float64
	FineSeekSeconds float64
	ClearOnResize   bool
	BufferingMsg    string
	Logger          zerolog.Logger
}

func (o Options) withDefaults() Options {
	if o.FPS <= 0 {
		o.FPS = 24
	}
	if o.Wide <= 0 {
		o.Wide = 160
	}
	if o.BufferSize <= 0 {
		o.BufferSize = int(o.FPS)
	}
	if o.Duration <= 0 && o.TotalFrames > 0 {
		o.Duration = float64(o.TotalFrames) / o.FPS
	}
	if o.BufferingMsg == "" {
		o.BufferingMsg = "Buffering..."
	}
	return o
}

// Renderer is the render loop: it paces frames against the clock, applies
// transport state and keeps the sliding render buffer filled
type Renderer struct {
	opts  Options
	store *FrameStore
	queue *FrameQueue
	state *State
	clock *Clock
	audio AudioSink
	term  Terminal
	art   ArtRenderer
	log   zerolog.Logger

	// sleep blocks for d or until ctx is done
	sleep func(ctx context.Context, d time.Duration)

	phase   Phase
	buf     []Handle
	index   int
	eos     bool
	stale   bool // audio was not repositioned after a seek miss
	volume  float64
	drawn   bool
	lastCol int
	lastRow int
	artWide int
	shown   string // art of the last displayed frame
}

// NewRenderer wires a render loop over the shared session pieces
func NewRenderer(opts Options, store *FrameStore, queue *FrameQueue, state *State, clock *Clock, audio AudioSink, term Terminal, art ArtRenderer) *Renderer {
	opts = opts.withDefaults()
	return &Renderer{
		opts:    opts,
		store:   store,
		queue:   queue,
		state:   state,
		clock:   clock,
		audio:   audio,
		term:    term,
		art:     art,
		log:     opts.Logger,
		sleep:   sleepCtx,
		phase:   PhasePrebuffering,
		buf:     make([]Handle, 0, opts.BufferSize),
		volume:  -1,
		artWide: opts.Wide,
	}
}

// Phase returns the current loop state
func (r *Renderer) Phase() Phase {
	return r.phase
}

// Index returns the frame index that will be displayed next
func (r *Renderer) Index() int {
	return r.index
}

// Buffered returns the handles currently in the render buffer
func (r *Renderer) Buffered() []Handle {
	return append([]Handle(nil), r.buf...)
}

// Run plays until the last frame, a stop request or ctx cancellation
func (r *Renderer) Run(ctx context.Context) error {
	defer func() {
		r.phase = PhaseStopped
		r.state.Stop()
	}()

	r.write(seqHideCursor + seqClear + seqHome)
	defer r.write(seqReset + seqShowCursor + "\n")

	r.prebuffer(ctx)
	if r.stopping(ctx) {
		return nil
	}

	r.phase = PhasePlaying
	r.applyVolume()
	if err := r.audio.Play(0, 0); err != nil {
		r.log.Warn().Err(err).Msg("audio start failed")
	}
	r.clock.Anchor(0)

	for !r.stopping(ctx) && r.index < r.opts.TotalFrames {
		if len(r.buf) == 0 && r.eos && r.index > r.store.Last() {
			// the producer is done and nothing at or past this index exists
			break
		}
		r.step(ctx)
	}
	return nil
}

// prebuffer fills the render buffer from the queue before the first frame is shown.
// It has no timeout but ends as soon as the producer signals end of stream.
func (r *Renderer) prebuffer(ctx context.Context) {
	r.phase = PhasePrebuffering
	for len(r.buf) < r.opts.BufferSize && !r.state.Stopped() {
		h, ok := r.queue.Pop(ctx)
		if !ok {
			if ctx.Err() == nil {
				r.eos = true
			}
			break
		}

		// frames dropped from the queue are still in the store
		next := r.index + len(r.buf)
		for next < h.Index && len(r.buf) < r.opts.BufferSize && r.store.Exists(next) {
			r.buf = append(r.buf, r.store.Handle(next))
			next++
		}
		if len(r.buf) >= r.opts.BufferSize {
			break
		}
		if h.Index != next {
			// a frame failed to decode; playback shows the gap
			r.log.Debug().Int("missing", next).Msg("gap while prebuffering")
			break
		}
		r.buf = append(r.buf, h)
	}
	if r.eos && len(r.buf) < r.opts.BufferSize {
		r.log.Debug().Int("buffered", len(r.buf)).Msg("stream ended before buffer filled")
		r.drawBuffering()
	}
}

// step runs one PLAYING iteration
func (r *Renderer) step(ctx context.Context) {
	if jump := r.state.DrainSeeks(); jump != 0 {
		r.seek(ctx, jump, true)
	}

	if r.state.Paused() {
		r.pause(ctx)
		if r.stopping(ctx) {
			return
		}
	}

	if wait := r.clock.Until(r.index); wait > 0 {
		r.sleep(ctx, wait)
	}
	if r.stopping(ctx) {
		return
	}

	if r.stale && len(r.buf) > 0 {
		// decoding caught up with an earlier seek
		r.resumeAudio()
	}
	r.applyVolume()
	r.draw()

	r.index++
	if len(r.buf) > 0 {
		r.buf = r.buf[1:]
	}
	r.refill()
}

// pause holds the current index until resume, applying seeks meanwhile
func (r *Renderer) pause(ctx context.Context) {
	r.phase = PhasePaused
	if err := r.audio.Pause(); err != nil {
		r.log.Warn().Err(err).Msg("audio pause failed")
	}
	r.redraw()

	for r.state.Paused() && !r.stopping(ctx) {
		if jump := r.state.DrainSeeks(); jump != 0 {
			r.seek(ctx, jump, false)
			r.phase = PhasePaused
			r.draw()
		}
		r.sleep(ctx, PausePollInterval)
	}
	if r.stopping(ctx) {
		return
	}

	r.phase = PhasePlaying
	r.clock.Anchor(r.index)
	r.resumeAudio()
}

// seek moves to index+jump, rebuilding the buffer at the target.
// If the target frame is not decoded yet it polls a bounded number of times and
// then continues with whatever is available.
func (r *Renderer) seek(ctx context.Context, jump int, resumeAudio bool) {
	r.phase = PhaseSeeking
	target := max(0, min(r.index+jump, r.opts.TotalFrames-1))

	if err := r.audio.Fadeout(SeekFade); err != nil {
		r.log.Warn().Err(err).Msg("audio fadeout failed")
	}

	r.buf = r.buf[:0]
	r.drainQueue(-1)

	retries := 0
	for !r.store.Exists(target) && retries < SeekRetryBudget && !r.stopping(ctx) {
		if retries == 0 {
			r.drawBuffering()
		}
		r.sleep(ctx, SeekRetryInterval)
		retries++
	}
	if retries > 0 {
		r.log.Debug().Int("target", target).Int("retries", retries).Msg("waited for seek target")
	}

	if r.store.Exists(target) {
		r.buf = append(r.buf, r.store.Handle(target))
		end := min(target+1+r.opts.BufferSize, r.opts.TotalFrames)
		for i := target + 1; i < end && len(r.buf) < r.opts.BufferSize; i++ {
			if !r.store.Exists(i) {
				break
			}
			r.buf = append(r.buf, r.store.Handle(i))
		}
	}

	r.log.Debug().Int("from", r.index).Int("to", target).Int("buffered", len(r.buf)).Msg("seek")
	r.index = target
	r.clock.Anchor(r.index)
	r.phase = PhasePlaying

	r.stale = true
	if resumeAudio && len(r.buf) > 0 {
		r.resumeAudio()
	}
}

// resumeAudio restarts the sink at the current index
func (r *Renderer) resumeAudio() {
	r.stale = false
	r.applyVolume()
	if err := r.audio.Play(r.clock.Offset(r.index), SeekFade); err != nil {
		r.log.Warn().Err(err).Msg("audio reposition failed")
	}
}

// refill tops up the buffer tail from the queue, then from the store
func (r *Renderer) refill() {
	for len(r.buf) < r.opts.BufferSize {
		next := r.index + len(r.buf)
		if next >= r.opts.TotalFrames {
			return
		}
		if r.drainQueue(next) {
			r.buf = append(r.buf, r.store.Handle(next))
			continue
		}
		if !r.store.Exists(next) {
			return
		}
		r.buf = append(r.buf, r.store.Handle(next))
	}
}

// drainQueue discards queued handles up to want and reports whether want was seen.
// Handles behind the render position are stale; the store is authoritative.
func (r *Renderer) drainQueue(want int) bool {
	for {
		h, ok, eos := r.queue.TryPop()
		if eos {
			r.eos = true
			return false
		}
		if !ok {
			return false
		}
		if h.Index == want {
			return true
		}
		if want >= 0 && h.Index > want {
			return false
		}
	}
}

// applyVolume re-issues the sink volume only when it changed
func (r *Renderer) applyVolume() {
	v := r.state.EffectiveVolume()
	if v == r.volume {
		return
	}
	if err := r.audio.SetVolume(v); err != nil {
		r.log.Warn().Err(err).Msg("audio volume failed")
		return
	}
	r.volume = v
}

// draw renders the buffer head and status bar as one write
func (r *Renderer) draw() {
	frame := r.bufferingLine()
	if len(r.buf) > 0 {
		art, width, err := r.art.Render(r.buf[0])
		if err != nil {
			r.log.Debug().Err(err).Int("index", r.buf[0].Index).Msg("frame unreadable, showing gap")
		} else {
			r.artWide = width
			frame = art
		}
	}
	r.shown = frame
	r.compose(frame)
}

// redraw repeats the frame already on screen with a fresh status bar
func (r *Renderer) redraw() {
	if r.shown == "" {
		r.shown = r.bufferingLine()
	}
	r.compose(r.shown)
}

func (r *Renderer) compose(frame string) {
	var b bytes.Buffer
	r.writePrefix(&b)
	b.WriteString(frame)

	width := r.artWide
	if r.lastCol > 0 {
		width = min(width, r.lastCol)
	}
	b.WriteString(StatusBar(StatusInfo{
		Width:       width,
		Paused:      r.state.Paused(),
		Index:       r.index,
		TotalFrames: r.opts.TotalFrames,
		FPS:         r.opts.FPS,
		Duration:    r.opts.Duration,
		Volume:      r.state.Volume(),
		Muted:       r.state.Muted(),
	}))
	b.WriteString("\x1b[K\n")

	r.write(b.String())
}

// drawBuffering shows the buffering message on a cleared screen
func (r *Renderer) drawBuffering() {
	r.write(seqClear + seqHome + r.bufferingLine())
}

// writePrefix homes the cursor, clearing first if the terminal was resized
func (r *Renderer) writePrefix(b *bytes.Buffer) {
	cols, rows, err := r.term.Size()
	if err != nil {
		cols, rows = r.lastCol, r.lastRow
	}
	resized := r.drawn && (cols != r.lastCol || rows != r.lastRow)
	r.lastCol, r.lastRow = cols, rows
	r.drawn = true

	if resized && r.opts.ClearOnResize {
		b.WriteString(seqClear)
	}
	b.WriteString(seqHome)
}

func (r *Renderer) bufferingLine() string {
	return lipgloss.PlaceHorizontal(r.artWide, lipgloss.Center, r.opts.BufferingMsg) + "\n"
}

func (r *Renderer) write(s string) {
	if _, err := r.term.Write([]byte(s)); err != nil {
		r.log.Debug().Err(err).Msg("terminal write failed")
	}
}

func (r *Renderer) stopping(ctx context.Context) bool {
	return r.state.Stopped() || ctx.Err() != nil
}

func sleepCtx(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
