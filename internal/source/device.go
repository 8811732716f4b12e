package source

import (
	"bufio"
	"context"
	"fmt"
	"os"
)

// Device reads a raw MIDI byte stream from a character device such as an ALSA
// rawmidi node (/dev/snd/midiC1D0) or a serial port already set to 31250 baud.
type Device struct {
	path string
	f    *os.File
}

func OpenDevice(path string) (*Device, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open midi device: %w", err)
	}
	return &Device{path: path, f: f}, nil
}

// Run pumps bytes into feed until the device closes or ctx is done. The
// blocking read is released by closing the device when ctx ends.
func (d *Device) Run(ctx context.Context, feed func(byte)) error {
	stop := context.AfterFunc(ctx, func() { _ = d.f.Close() })
	defer stop()
	err := Pump(ctx, bufio.NewReader(d.f), feed)
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	if err != nil {
		return fmt.Errorf("read %s: %w", d.path, err)
	}
	return nil
}

func (d *Device) Close() error { return d.f.Close() }
