//go:build unix

package source

import (
	"bytes"
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/cbegin/sawsynth-go/internal/midi"
)

func pipeKeyboard(t *testing.T) (*Keyboard, *os.File, *os.File) {
	t.Helper()
	pr, pw, err := os.Pipe()
	if err != nil {
		t.Fatalf("pipe: %v", err)
	}
	t.Cleanup(func() {
		pr.Close()
		pw.Close()
	})
	k := NewKeyboard(0)
	k.in = pr
	return k, pr, pw
}

func TestKeyboardServeReleasesOnCancel(t *testing.T) {
	k, pr, pw := pipeKeyboard(t)
	if _, err := pw.Write([]byte{'a'}); err != nil {
		t.Fatalf("write: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	var got []byte
	err := k.serve(ctx, func(b byte) { got = append(got, b) })
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("serve = %v, want deadline exceeded", err)
	}
	want := append(midi.NoteOnMessage(0, 48, 100), midi.NoteOffMessage(0, 48)...)
	if !bytes.Equal(got, want) {
		t.Fatalf("fed % X, want % X", got, want)
	}

	// Nothing is left reading the input once serve has returned.
	if _, err := pw.Write([]byte{'s'}); err != nil {
		t.Fatalf("write: %v", err)
	}
	buf := make([]byte, 1)
	if n, err := pr.Read(buf); err != nil || n != 1 || buf[0] != 's' {
		t.Fatalf("read after serve = %d %q %v, want 's'", n, buf[:n], err)
	}
}

func TestKeyboardServeQuits(t *testing.T) {
	k, _, pw := pipeKeyboard(t)
	if _, err := pw.Write([]byte{'a', 'd', 'q', 'f'}); err != nil {
		t.Fatalf("write: %v", err)
	}
	var got []byte
	err := k.serve(context.Background(), func(b byte) { got = append(got, b) })
	if !errors.Is(err, ErrQuit) {
		t.Fatalf("serve = %v, want ErrQuit", err)
	}
	var want []byte
	want = append(want, midi.NoteOnMessage(0, 48, 100)...)
	want = append(want, midi.NoteOnMessage(0, 52, 100)...)
	want = append(want, midi.NoteOffMessage(0, 48)...)
	want = append(want, midi.NoteOffMessage(0, 52)...)
	if !bytes.Equal(got, want) {
		t.Fatalf("fed % X, want % X", got, want)
	}
}

func TestKeyboardRunNeedsTerminal(t *testing.T) {
	k, _, _ := pipeKeyboard(t)
	if err := k.Run(context.Background(), func(byte) {}); err == nil {
		t.Fatalf("expected error for a non-terminal input")
	}
}
