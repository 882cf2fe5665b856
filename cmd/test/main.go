// Command test plays the first video found in a directory with debug
// logging written to test.log.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"slices"
	"strings"
	"syscall"

	"github.com/njyeung/termvid/app"
	"github.com/njyeung/termvid/config"
	"github.com/njyeung/termvid/logs"
)

var videoExts = []string{".mp4", ".mkv", ".webm", ".mov", ".avi"}

func main() {
	dir := "."
	if len(os.Args) > 1 {
		dir = os.Args[1]
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading dir: %v\n", err)
		os.Exit(1)
	}

	var videoPath string
	for _, entry := range entries {
		if !entry.IsDir() && slices.Contains(videoExts, strings.ToLower(filepath.Ext(entry.Name()))) {
			videoPath = filepath.Join(dir, entry.Name())
			break
		}
	}

	if videoPath == "" {
		fmt.Fprintf(os.Stderr, "No videos found in %s\n", dir)
		os.Exit(1)
	}

	logFile, err := logs.OpenFile("test.log")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer logFile.Close()
	logs.Configure(logs.Config{Level: "debug", Output: logFile})

	fmt.Printf("Using video: %s\n", videoPath)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts := config.Defaults()
	opts.Temp = filepath.Join(os.TempDir(), "termvid-test")

	if err := app.Play(ctx, opts, videoPath, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
