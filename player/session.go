package player

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// SessionConfig binds one playback invocation to its collaborators
type SessionConfig struct {
	Options

	Dir         string  // frame store directory, removed when the session ends
	AudioPath   string  // extracted audio track, empty for silent video
	VolumeStart float64 // initial stored volume

	Source   FrameSource
	Audio    AudioSink
	Input    InputSource
	Terminal Terminal
	Art      ArtRenderer
}

// Session runs the producer, transport controller and render loop for one video
type Session struct {
	cfg   SessionConfig
	store *FrameStore
	queue *FrameQueue
	state *State
	clock *Clock

	producer   *Producer
	controller *Controller
	renderer   *Renderer

	cleanupOnce sync.Once
}

// NewSession validates cfg and prepares the shared pipeline pieces
func NewSession(cfg SessionConfig) (*Session, error) {
	cfg.Options = cfg.Options.withDefaults()
	if cfg.TotalFrames < 1 {
		return nil, fmt.Errorf("video has no frames")
	}
	if cfg.Source == nil || cfg.Terminal == nil || cfg.Art == nil {
		return nil, fmt.Errorf("session is missing a frame source, terminal or art renderer")
	}
	if cfg.Audio == nil {
		cfg.Audio = NopSink{}
	}
	if cfg.Input == nil {
		cfg.Input = noInput{}
	}

	store, err := NewFrameStore(cfg.Dir)
	if err != nil {
		return nil, err
	}

	log := cfg.Logger
	queue := NewFrameQueue(cfg.BufferSize * 2)
	state := NewState(cfg.VolumeStart)
	clock := NewClock(cfg.FPS, nil)

	s := &Session{
		cfg:      cfg,
		store:    store,
		queue:    queue,
		state:    state,
		clock:    clock,
		producer: NewProducer(cfg.Source, store, queue, log.With().Str("component", "producer").Logger()),
		controller: NewController(cfg.Input, state, ControllerConfig{
			FPS:             cfg.FPS,
			SeekJumpSeconds: cfg.SeekJumpSeconds,
			FineSeekSeconds: cfg.FineSeekSeconds,
			Logger:          log.With().Str("component", "controller").Logger(),
		}),
	}

	ropts := cfg.Options
	ropts.Logger = log.With().Str("component", "render").Logger()
	s.renderer = NewRenderer(ropts, store, queue, state, clock, cfg.Audio, cfg.Terminal, cfg.Art)

	return s, nil
}

// State exposes the shared playback record
func (s *Session) State() *State {
	return s.state
}

// Stop asks every task to exit at its next poll
func (s *Session) Stop() {
	s.state.Stop()
}

// Run plays the video and blocks until it ends, is stopped or ctx is cancelled.
// The input task is joined before the audio sink is released and the frame
// store is removed, so no task touches a freed resource.
func (s *Session) Run(ctx context.Context) error {
	defer s.cleanup()

	log := s.cfg.Logger
	if s.cfg.AudioPath != "" {
		if err := s.cfg.Audio.Load(s.cfg.AudioPath); err != nil {
			log.Warn().Err(err).Msg("audio unavailable, playing silent")
			s.cfg.Audio = NopSink{}
			s.renderer.audio = s.cfg.Audio
		}
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// a failing producer cancels only its own context; transport keeps
	// running until the render loop has played what was decoded
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return s.producer.Run(gctx)
	})
	g.Go(func() error {
		s.controller.Run(ctx)
		return nil
	})

	start := time.Now()
	renderErr := s.renderer.Run(ctx)

	s.state.Stop()
	cancel()
	taskErr := g.Wait()

	if err := s.cfg.Audio.Stop(); err != nil {
		log.Warn().Err(err).Msg("audio stop failed")
	}

	log.Info().
		Dur("elapsed", time.Since(start)).
		Int("index", s.renderer.Index()).
		Int("produced", s.producer.Produced()).
		Uint64("queue_dropped", s.queue.Dropped()).
		Msg("session finished")

	if renderErr != nil {
		return renderErr
	}
	return taskErr
}

func (s *Session) cleanup() {
	s.cleanupOnce.Do(func() {
		if err := s.store.Remove(); err != nil {
			s.cfg.Logger.Warn().Err(err).Str("dir", s.store.Dir()).Msg("could not remove frame store")
		}
	})
}

// NopSink is the audio sink for videos without an audio track
type NopSink struct{}

func (NopSink) Load(string) error { return nil }
func (NopSink) Play(float64, time.Duration) error { return nil }
func (NopSink) Pause() error { return nil }
func (NopSink) Stop() error { return nil }
func (NopSink) SetVolume(float64) error { return nil }
func (NopSink) Fadeout(time.Duration) error { return nil }
func (NopSink) IsPlaying() bool { return false }
func (NopSink) Position() float64 { return 0 }

type noInput struct{}

func (noInput) PollKey() (byte, bool) { return 0, false }
