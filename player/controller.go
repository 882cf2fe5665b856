package player

import (
	"context"
	"math"
	"time"

	"github.com/rs/zerolog"
)

// Action is a decoded transport command
type Action int

const (
	ActionNone Action = iota
	ActionTogglePause
	ActionStop
	ActionToggleMute
	ActionVolumeDown
	ActionVolumeUp
	ActionSeekBack
	ActionSeekForward
	ActionFineSeekBack
	ActionFineSeekForward
)

// Controller polls the input source and applies key presses to the playback state.
// It never blocks on input, so a key takes up to one interval to apply.
type Controller struct {
	input    InputSource
	state    *State
	interval time.Duration
	log      zerolog.Logger

	seekJump int // frames per a/d press
	fineSeek int // frames per arrow press
}

// ControllerConfig configures a Controller
type ControllerConfig struct {
	FPS             float64
	SeekJumpSeconds float64
	FineSeekSeconds float64
	Interval        time.Duration
	Logger          zerolog.Logger
}

// NewController creates a controller writing to state
func NewController(input InputSource, state *State, cfg ControllerConfig) *Controller {
	if cfg.Interval <= 0 {
		cfg.Interval = InputPollInterval
	}
	return &Controller{
		input:    input,
		state:    state,
		interval: cfg.Interval,
		log:      cfg.Logger,
		seekJump: int(math.Round(cfg.SeekJumpSeconds * cfg.FPS)),
		fineSeek: int(math.Round(cfg.FineSeekSeconds * cfg.FPS)),
	}
}

// Run polls until the state is stopped or ctx is done
func (c *Controller) Run(ctx context.Context) {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for !c.state.Stopped() {
		if a := c.next(); a != ActionNone {
			c.Apply(a)
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// next reads one key, consuming an escape sequence if it starts one
func (c *Controller) next() Action {
	key, ok := c.input.PollKey()
	if !ok {
		return ActionNone
	}

	switch key {
	case 0x1b:
		// ESC [ C / ESC O C style cursor keys
		k1, ok := c.input.PollKey()
		if !ok || (k1 != '[' && k1 != 'O') {
			return ActionNone
		}
		k2, ok := c.input.PollKey()
		if !ok {
			return ActionNone
		}
		switch k2 {
		case 'C':
			return ActionFineSeekForward
		case 'D':
			return ActionFineSeekBack
		}
		return ActionNone
	case 0xe0, 0x00:
		// console scan-code prefix
		k1, ok := c.input.PollKey()
		if !ok {
			return ActionNone
		}
		switch k1 {
		case 'M':
			return ActionFineSeekForward
		case 'K':
			return ActionFineSeekBack
		}
		return ActionNone
	}

	return KeyAction(key)
}

// KeyAction maps a single-byte key to its action
func KeyAction(key byte) Action {
	switch key {
	case ' ':
		return ActionTogglePause
	case 'q', 'Q':
		return ActionStop
	case 'm', 'M':
		return ActionToggleMute
	case '-', '_':
		return ActionVolumeDown
	case '+', '=':
		return ActionVolumeUp
	case 'a', 'A':
		return ActionSeekBack
	case 'd', 'D':
		return ActionSeekForward
	}
	return ActionNone
}

// Apply performs a on the playback state without waiting on anything
func (c *Controller) Apply(a Action) {
	switch a {
	case ActionTogglePause:
		paused := c.state.TogglePause()
		c.log.Debug().Bool("paused", paused).Msg("pause toggled")
	case ActionStop:
		c.state.Stop()
		c.log.Debug().Msg("stop requested")
	case ActionToggleMute:
		muted := c.state.ToggleMute()
		c.log.Debug().Bool("muted", muted).Msg("mute toggled")
	case ActionVolumeDown:
		c.state.AdjustVolume(-VolumeStep)
	case ActionVolumeUp:
		c.state.AdjustVolume(VolumeStep)
	case ActionSeekBack:
		c.state.PushSeek(-c.seekJump)
	case ActionSeekForward:
		c.state.PushSeek(c.seekJump)
	case ActionFineSeekBack:
		c.state.PushSeek(-c.fineSeek)
	case ActionFineSeekForward:
		c.state.PushSeek(c.fineSeek)
	}
}
