package main

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tusharganotra/portfolio/internal/content"
	"github.com/tusharganotra/portfolio/internal/typewriter"
)

func TestTypeCommandPrintsFinalTextWithoutTTY(t *testing.T) {
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"type", "now"})
	require.NoError(t, cmd.Execute())

	want := "status.ts\n" +
		"01  // currently\n" +
		"02  const role = 'Software Engineer @ HCL';\n" +
		"03  const focus = ['AI integration', 'system design'];\n" +
		"04  \n" +
		"05  sideProject.build(() => 'RAG memory layer');\n"
	assert.Equal(t, want, out.String())
}

func TestTypeCommandRejectsUnknownInput(t *testing.T) {
	for _, args := range [][]string{
		{"type", "missing"},
		{"type", "home", "--variant", "sideways"},
	} {
		cmd := newRootCmd()
		cmd.SetOut(&bytes.Buffer{})
		cmd.SetArgs(args)
		assert.Error(t, cmd.Execute(), args)
	}
}

func TestDrawFrameCaret(t *testing.T) {
	f := typewriter.Frame{
		Lines: []typewriter.Line{
			{Number: "01", Text: "ab", Class: typewriter.ClassPlain},
			{Number: "02", Text: "c", Class: typewriter.ClassPlain},
		},
		Caret: true,
	}
	assert.Equal(t, "01  ab\n02  c▋\n", drawFrame(f, false))

	f.Caret = false
	assert.Equal(t, "01  ab\n02  c\n", drawFrame(f, false))

	assert.Equal(t, "▋\n", drawFrame(typewriter.Frame{Caret: true}, false))
}

// failingWriter accepts ok writes and then fails every write.
type failingWriter struct {
	ok int
}

var errClosed = errors.New("output closed")

func (w *failingWriter) Write(p []byte) (int, error) {
	if w.ok <= 0 {
		return 0, errClosed
	}
	w.ok--
	return len(p), nil
}

func TestPlayReturnsWriteErrors(t *testing.T) {
	term := content.Terminal{Title: "t.ts", Lines: []string{"abcdefghijklmnopqrstuvwxyz"}}
	fast := typewriter.Config{MinDelay: time.Millisecond, MaxDelay: time.Millisecond, Loop: true, LoopPause: time.Millisecond}

	for _, ok := range []int{0, 1, 5} {
		done := make(chan error, 1)
		go func() { done <- play(context.Background(), &failingWriter{ok: ok}, term, fast) }()
		select {
		case err := <-done:
			assert.ErrorIs(t, err, errClosed, "after %d good writes", ok)
		case <-time.After(5 * time.Second):
			t.Fatalf("play did not return after %d good writes", ok)
		}
	}
}

func TestPlayDrawsEveryFrame(t *testing.T) {
	var out bytes.Buffer
	term := content.Terminal{Title: "t.ts", Lines: []string{"ab"}}
	cfg := typewriter.Config{MinDelay: time.Millisecond, MaxDelay: time.Millisecond}
	require.NoError(t, play(context.Background(), &out, term, cfg))
	// one clear per frame after the first
	assert.Equal(t, typewriter.Steps(term.Script()), bytes.Count(out.Bytes(), []byte("\x1b[J")))
}
