// Package app wires the decoder, audio, terminal and art collaborators into a
// player session for one video file.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/njyeung/termvid/art"
	"github.com/njyeung/termvid/config"
	"github.com/njyeung/termvid/logs"
	"github.com/njyeung/termvid/media"
	"github.com/njyeung/termvid/player"
	"github.com/njyeung/termvid/sound"
	"github.com/njyeung/termvid/term"
	"github.com/njyeung/termvid/tui"
)

// SampleVideo ships next to the executable
const SampleVideo = "BadApple.mp4"

// DefaultVideoPath is what an empty prompt answer plays: the configured
// default, else the bundled sample
func DefaultVideoPath(opts config.Options) string {
	if opts.DefaultVideoPath != "" {
		return opts.DefaultVideoPath
	}
	if exe, err := os.Executable(); err == nil {
		p := filepath.Join(filepath.Dir(exe), SampleVideo)
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return SampleVideo
}

// Play extracts the audio of the video at path and plays it in the terminal
// until it ends, the user quits or ctx is cancelled. The temp folder is
// removed before returning. Returns tui.ErrAborted if the user cancelled
// while the audio was being extracted.
func Play(ctx context.Context, opts config.Options, path string, out io.Writer) error {
	log := logs.WithComponent("app")

	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("invalid path %q: %w", path, err)
	}
	if _, err := os.Stat(abs); err != nil {
		return fmt.Errorf("file not found at %q", abs)
	}

	if err := os.MkdirAll(opts.Temp, 0755); err != nil {
		return fmt.Errorf("could not create temp folder: %w", err)
	}
	defer func() {
		if err := os.RemoveAll(opts.Temp); err != nil {
			log.Warn().Err(err).Str("dir", opts.Temp).Msg("could not remove temp folder")
		}
	}()

	audioPath := filepath.Join(opts.Temp, "audio.wav")
	err = tui.RunWithSpinner(ctx, os.Stdin, out, "Extracting audio...", func(ctx context.Context) error {
		return media.ExtractAudio(ctx, abs, audioPath)
	})
	switch {
	case errors.Is(err, media.ErrNoAudioStream):
		log.Info().Str("video", abs).Msg("no audio track, playing silent")
		audioPath = ""
	case ctx.Err() != nil:
		return nil
	case err != nil:
		return err
	}

	src, err := media.OpenSource(abs, float64(opts.FPS), opts.Wide)
	if err != nil {
		return fmt.Errorf("could not open video: %w", err)
	}
	defer src.Close()

	info := src.Info()
	frameW, frameH := src.FrameSize()
	log.Info().
		Str("video", abs).
		Float64("duration", info.Duration).
		Float64("source_fps", info.SourceFPS).
		Int("total_frames", info.TotalFrames).
		Int("frame_width", frameW).
		Int("frame_height", frameH).
		Bool("audio", audioPath != "").
		Msg("opened video")

	screen := term.NewTerminal(os.Stdout)

	var input player.InputSource
	if in, err := term.OpenInput(os.Stdin); err != nil {
		log.Warn().Err(err).Msg("keyboard controls unavailable")
	} else {
		defer in.Restore()
		input = in
	}

	var sink player.AudioSink = player.NopSink{}
	if audioPath != "" {
		sink = sound.NewSink()
	}

	popts := opts.PlayerOptions()
	popts.TotalFrames = info.TotalFrames
	popts.Duration = info.Duration
	popts.Logger = logs.WithComponent("player")

	session, err := player.NewSession(player.SessionConfig{
		Options:     popts,
		Dir:         filepath.Join(opts.Temp, "frames"),
		AudioPath:   audioPath,
		VolumeStart: opts.VolumeStart,
		Source:      src,
		Audio:       sink,
		Input:       input,
		Terminal:    screen,
		Art:         art.NewConverter(opts.ArtOptions(screen.Size)),
	})
	if err != nil {
		return err
	}

	fmt.Fprintln(out, tui.Notice("Streaming video..."))
	return session.Run(ctx)
}
