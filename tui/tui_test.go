package tui

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func typeKeys(m tea.Model, s string) tea.Model {
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)})
	return m
}

func TestPromptEnterReturnsTypedPath(t *testing.T) {
	var m tea.Model = newPromptModel("BadApple.mp4")
	m = typeKeys(m, "  clip.mp4 ")

	m, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)

	pm := m.(promptModel)
	assert.True(t, pm.done)
	assert.False(t, pm.aborted)
	assert.Equal(t, "clip.mp4", pm.value)
	assert.Empty(t, pm.View())
}

func TestPromptEmptyUsesFallback(t *testing.T) {
	var m tea.Model = newPromptModel("BadApple.mp4")
	assert.Contains(t, m.View(), "BadApple.mp4")

	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	assert.Equal(t, "BadApple.mp4", m.(promptModel).value)
}

func TestPromptEscAborts(t *testing.T) {
	var m tea.Model = newPromptModel("x")
	m = typeKeys(m, "abc")
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	assert.True(t, m.(promptModel).aborted)
}

func TestLoadingModelFinishesWithWorkError(t *testing.T) {
	boom := errors.New("boom")
	var m tea.Model = newLoadingModel("Extracting audio...", func() error { return boom }, nil)
	assert.Contains(t, m.View(), "Extracting audio...")

	m, cmd := m.Update(workDoneMsg{boom})
	require.NotNil(t, cmd)
	lm := m.(loadingModel)
	assert.True(t, lm.done)
	assert.ErrorIs(t, lm.err, boom)
}

func TestLoadingModelCancelOnEsc(t *testing.T) {
	cancelled := false
	var m tea.Model = newLoadingModel("working", func() error { return nil }, func() { cancelled = true })

	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	assert.True(t, cancelled)
	assert.True(t, m.(loadingModel).aborted)
}

func TestRunWithSpinner(t *testing.T) {
	ran := false
	err := RunWithSpinner(context.Background(), nil, io.Discard, "working", func(ctx context.Context) error {
		ran = true
		return nil
	})
	require.NoError(t, err)
	assert.True(t, ran)

	boom := errors.New("boom")
	err = RunWithSpinner(context.Background(), nil, io.Discard, "working", func(ctx context.Context) error {
		return boom
	})
	assert.ErrorIs(t, err, boom)
}

func TestBannerListsKeys(t *testing.T) {
	b := Banner()
	for _, e := range keyHelp {
		assert.Contains(t, b, e[0])
		assert.Contains(t, b, e[1])
	}
	assert.True(t, strings.Contains(Error(errors.New("nope")), "Error: nope"))
}
