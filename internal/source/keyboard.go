package source

import (
	"context"
	"errors"
	"fmt"
	"os"

	"golang.org/x/term"

	"github.com/cbegin/sawsynth-go/internal/midi"
)

// pianoRow maps keys to semitone offsets: the home row plays white keys, the
// row above plays black keys.
var pianoRow = map[byte]int{
	'a': 0, 'w': 1, 's': 2, 'e': 3, 'd': 4, 'f': 5, 't': 6,
	'g': 7, 'y': 8, 'h': 9, 'u': 10, 'j': 11, 'k': 12, 'o': 13, 'l': 14,
}

const (
	keyCtrlC = 0x03
	keyEsc   = 0x1B
)

// ErrQuit is returned by Keyboard.Run when the player asks to stop.
var ErrQuit = errors.New("keyboard: quit")

// Keyboard turns a terminal into a note source. A terminal reports key
// presses but not releases, so each key toggles its note.
type Keyboard struct {
	Channel  uint8
	Velocity uint8
	Octave   int // octave of the 'a' key, 4 means C4 (note 48)

	held [128]bool
	in   *os.File
}

func NewKeyboard(channel uint8) *Keyboard {
	return &Keyboard{Channel: channel, Velocity: 100, Octave: 4, in: os.Stdin}
}

// Translate returns the MIDI bytes produced by one key press.
func (k *Keyboard) Translate(key byte) (msg []byte, err error) {
	switch key {
	case 'q', keyCtrlC, keyEsc:
		return k.releaseAll(), ErrQuit
	case ' ':
		return k.releaseAll(), nil
	case 'z':
		if k.Octave > 0 {
			k.Octave--
		}
		return nil, nil
	case 'x':
		if k.Octave < 9 {
			k.Octave++
		}
		return nil, nil
	}
	off, ok := pianoRow[key]
	if !ok {
		return nil, nil
	}
	note := k.Octave*12 + off
	if note < 0 || note > 127 {
		return nil, nil
	}
	if k.held[note] {
		k.held[note] = false
		return midi.NoteOffMessage(k.Channel, uint8(note)), nil
	}
	k.held[note] = true
	return midi.NoteOnMessage(k.Channel, uint8(note), k.Velocity), nil
}

func (k *Keyboard) releaseAll() []byte {
	var out []byte
	for n, on := range k.held {
		if on {
			out = append(out, midi.NoteOffMessage(k.Channel, uint8(n))...)
			k.held[n] = false
		}
	}
	return out
}

// Run puts the terminal in raw mode and feeds note bytes until the player
// quits or ctx is done. Held notes are released and the terminal is restored
// before returning.
func (k *Keyboard) Run(ctx context.Context, feed func(byte)) error {
	fd := int(k.in.Fd())
	if !term.IsTerminal(fd) {
		return errors.New("keyboard: stdin is not a terminal")
	}
	oldState, err := term.MakeRaw(fd)
	if err != nil {
		return fmt.Errorf("keyboard: raw mode: %w", err)
	}
	defer func() { _ = term.Restore(fd, oldState) }()
	return k.serve(ctx, feed)
}

// press translates key and feeds the resulting bytes.
func (k *Keyboard) press(key byte, feed func(byte)) error {
	msg, err := k.Translate(key)
	emit(msg, feed)
	return err
}

func emit(msg []byte, feed func(byte)) {
	for _, b := range msg {
		feed(b)
	}
}
