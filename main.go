package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/njyeung/termvid/app"
	"github.com/njyeung/termvid/config"
	"github.com/njyeung/termvid/logs"
	"github.com/njyeung/termvid/tui"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts, optsErr := config.Load(config.Path())

	logFile, err := logs.OpenFile(opts.LogFile)
	if err == nil {
		defer logFile.Close()
		logs.Configure(logs.Config{Level: opts.LogLevel, Output: logFile})
	}
	log := logs.WithComponent("main")
	if optsErr != nil {
		log.Warn().Err(optsErr).Msg("using default options")
	}

	// a path argument plays once, otherwise prompt until the user quits
	if len(args) > 0 {
		if opts.ShowUIOnStart {
			fmt.Println(tui.Banner())
		}
		fmt.Println(tui.Opening(filepath.Base(args[0])))
		return exitCode(app.Play(ctx, opts, args[0], os.Stdout))
	}

	for ctx.Err() == nil {
		if opts.ShowUIOnStart {
			fmt.Println(tui.Banner())
		}

		path, err := tui.PromptPath(ctx, os.Stdin, os.Stdout, app.DefaultVideoPath(opts))
		if errors.Is(err, tui.ErrAborted) {
			return 0
		}
		if err != nil {
			return exitCode(err)
		}

		if code := exitCode(app.Play(ctx, opts, path, os.Stdout)); code != 0 {
			return code
		}
		if ctx.Err() != nil {
			return 0
		}

		// options may have been edited between videos
		opts, optsErr = config.Load(config.Path())
		if optsErr != nil {
			log.Warn().Err(optsErr).Msg("using default options")
		}
	}
	return 0
}

func exitCode(err error) int {
	if err == nil || errors.Is(err, tui.ErrAborted) {
		return 0
	}
	logs.WithComponent("main").Error().Err(err).Msg("playback failed")
	fmt.Fprintln(os.Stderr, tui.Error(err))
	return 1
}
