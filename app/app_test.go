package app

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/njyeung/termvid/config"
)

func TestDefaultVideoPath(t *testing.T) {
	opts := config.Defaults()
	opts.DefaultVideoPath = "/videos/intro.mp4"
	assert.Equal(t, "/videos/intro.mp4", DefaultVideoPath(opts))

	opts.DefaultVideoPath = ""
	assert.Equal(t, SampleVideo, filepath.Base(DefaultVideoPath(opts)))
}

func TestPlayMissingFile(t *testing.T) {
	opts := config.Defaults()
	opts.Temp = filepath.Join(t.TempDir(), "temp")

	err := Play(context.Background(), opts, filepath.Join(t.TempDir(), "nope.mp4"), io.Discard)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "file not found")

	_, err = os.Stat(opts.Temp)
	assert.True(t, os.IsNotExist(err))
}
