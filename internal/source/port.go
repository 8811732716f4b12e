package source

import (
	"context"
	"fmt"
	"strings"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
)

// Port receives MIDI from an input port of a gomidi driver. Each message is
// handed to feed one byte at a time, so the synth's own parser sees the same
// stream a raw device would deliver.
type Port struct {
	in drivers.In
}

// OpenPort picks the first input of drv whose name contains name, ignoring
// case. An empty name picks the first input.
func OpenPort(drv drivers.Driver, name string) (*Port, error) {
	ins, err := drv.Ins()
	if err != nil {
		return nil, fmt.Errorf("list midi inputs: %w", err)
	}
	var found drivers.In
	for _, in := range ins {
		if name == "" || strings.Contains(strings.ToLower(in.String()), strings.ToLower(name)) {
			found = in
			break
		}
	}
	if found == nil {
		return nil, fmt.Errorf("midi input %q not found", name)
	}
	if err := found.Open(); err != nil {
		return nil, fmt.Errorf("open midi input %s: %w", found, err)
	}
	return &Port{in: found}, nil
}

// PortNames lists the inputs drv offers.
func PortNames(drv drivers.Driver) ([]string, error) {
	ins, err := drv.Ins()
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(ins))
	for _, in := range ins {
		names = append(names, in.String())
	}
	return names, nil
}

func (p *Port) String() string { return p.in.String() }

// Run listens until ctx is done or the driver reports an error.
func (p *Port) Run(ctx context.Context, feed func(byte)) error {
	failed := make(chan error, 1)
	stop, err := midi.ListenTo(p.in, func(msg midi.Message, _ int32) {
		feedMessage(msg, feed)
	}, midi.HandleError(func(listenErr error) {
		select {
		case failed <- listenErr:
		default:
		}
	}))
	if err != nil {
		return fmt.Errorf("listen on %s: %w", p.in, err)
	}
	defer stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-failed:
		return fmt.Errorf("midi input %s: %w", p.in, err)
	}
}

func (p *Port) Close() error { return p.in.Close() }

func feedMessage(msg midi.Message, feed func(byte)) {
	for _, b := range msg.Bytes() {
		feed(b)
	}
}
