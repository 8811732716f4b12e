package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"gitlab.com/gomidi/midi/v2/drivers/rtmididrv"
	"golang.org/x/sync/errgroup"

	"github.com/cbegin/sawsynth-go"
	"github.com/cbegin/sawsynth-go/internal/source"
)

const defaultMelody = "t150 o4 l8 c e g >c< g e c r a >c e a< e c <a r"

func main() {
	var (
		tickRate     = flag.Int("tick-rate", 16000, "oscillator tick rate and output sample rate")
		polyphony    = flag.Int("polyphony", 6, "number of voices (1-16)")
		channel      = flag.Int("channel", 0, "MIDI channel to respond to (0-15)")
		compat       = flag.Bool("compat", false, "only act on the first note after each status byte")
		gateInactive = flag.Bool("gate-inactive", false, "drop released voices from the mix")
		sourceName   = flag.String("source", "keyboard", "note source: keyboard|port|device|stdin|melody")
		portName     = flag.String("port", "", "MIDI input name (substring) for -source port; empty picks the first")
		devicePath   = flag.String("device", "/dev/snd/midiC1D0", "raw MIDI device for -source device")
		melodyInline = flag.String("melody", "", "inline melody for -source melody")
		melodyPath   = flag.String("melody-file", "", "melody file for -source melody")
		loop         = flag.Bool("loop", true, "loop the melody")
		backendName  = flag.String("backend", "ebiten", "output: ebiten|oto|dac|wav")
		outPath      = flag.String("out", "", "DAC device for -backend dac, file for -backend wav")
		seconds      = flag.Float64("seconds", 8, "render length for -backend wav")
	)
	flag.Parse()

	opts := []sawsynth.Option{
		sawsynth.WithTickRate(*tickRate),
		sawsynth.WithPolyphony(*polyphony),
		sawsynth.WithChannel(uint8(*channel)),
		sawsynth.WithGateInactive(*gateInactive),
	}
	if *compat {
		opts = append(opts, sawsynth.WithParserMode(sawsynth.ParserCompat))
	}

	backend := strings.ToLower(strings.TrimSpace(*backendName))
	if backend == "wav" {
		if err := renderWAV(*melodyPath, *melodyInline, *outPath, *seconds, opts); err != nil {
			log.Fatal(err)
		}
		return
	}

	switch backend {
	case "ebiten":
		opts = append(opts, sawsynth.WithBackend(sawsynth.BackendEbiten))
	case "oto":
		opts = append(opts, sawsynth.WithBackend(sawsynth.BackendOto))
	case "dac":
		opts = append(opts, sawsynth.WithBackend(sawsynth.BackendNone))
	default:
		log.Fatalf("invalid -backend %q (expected ebiten|oto|dac|wav)", *backendName)
	}

	syn, err := sawsynth.New(opts...)
	if err != nil {
		log.Fatal(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	g, ctx := errgroup.WithContext(ctx)

	if backend == "dac" {
		if *outPath == "" {
			log.Fatal("-backend dac needs -out")
		}
		dev, err := os.OpenFile(*outPath, os.O_WRONLY, 0)
		if err != nil {
			log.Fatal(err)
		}
		defer dev.Close()
		g.Go(func() error { return syn.RunDAC(ctx, dev) })
	} else {
		if err := syn.Start(); err != nil {
			log.Fatal(err)
		}
		defer func() {
			if err := syn.Stop(); err != nil {
				log.Printf("stop: %v", err)
			}
		}()
	}

	run, err := noteSource(syn, uint8(*channel), *sourceName, *portName, *devicePath, *melodyPath, *melodyInline, *loop)
	if err != nil {
		log.Fatal(err)
	}
	log.Printf("playing: source=%s backend=%s tick-rate=%d voices=%d", *sourceName, backend, syn.TickRate(), *polyphony)
	g.Go(func() error {
		// The source ending ends the session.
		defer stop()
		return run(ctx)
	})

	err = g.Wait()
	syn.AllNotesOff()
	if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, source.ErrQuit) {
		log.Fatal(err)
	}
	st := syn.ParserStats()
	log.Printf("done: %d bytes, %d note-ons, %d note-offs", st.Bytes, st.NoteOns, st.NoteOffs)
}

func noteSource(syn *sawsynth.Synth, channel uint8, name, port, device, melodyPath, melodyInline string, loop bool) (func(context.Context) error, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "keyboard":
		kb := source.NewKeyboard(channel)
		fmt.Fprintln(os.Stderr, "keys: a w s e d f t g y h u j k o l play, z/x octave, space releases, q quits")
		return func(ctx context.Context) error {
			return kb.Run(ctx, syn.Feed)
		}, nil
	case "port":
		drv, err := rtmididrv.New()
		if err != nil {
			return nil, fmt.Errorf("midi driver: %w", err)
		}
		in, err := source.OpenPort(drv, port)
		if err != nil {
			if names, lerr := source.PortNames(drv); lerr == nil {
				log.Printf("available inputs: %s", strings.Join(names, ", "))
			}
			drv.Close()
			return nil, err
		}
		log.Printf("listening on %s", in)
		return func(ctx context.Context) error {
			defer drv.Close()
			defer in.Close()
			return in.Run(ctx, syn.Feed)
		}, nil
	case "device":
		dev, err := source.OpenDevice(device)
		if err != nil {
			return nil, err
		}
		return func(ctx context.Context) error {
			defer dev.Close()
			return dev.Run(ctx, syn.Feed)
		}, nil
	case "stdin":
		return func(ctx context.Context) error {
			return source.Pump(ctx, bufio.NewReader(os.Stdin), syn.Feed)
		}, nil
	case "melody":
		text, err := resolveMelody(melodyPath, melodyInline)
		if err != nil {
			return nil, err
		}
		script, err := syn.CompileMelody(text)
		if err != nil {
			return nil, err
		}
		return func(ctx context.Context) error {
			return syn.PlayMelody(ctx, script, loop)
		}, nil
	default:
		return nil, fmt.Errorf("invalid -source %q (expected keyboard|port|device|stdin|melody)", name)
	}
}

func resolveMelody(path, inline string) (string, error) {
	if strings.TrimSpace(inline) != "" {
		return inline, nil
	}
	if strings.TrimSpace(path) != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return "", err
		}
		return string(data), nil
	}
	return defaultMelody, nil
}

func renderWAV(melodyPath, melodyInline, out string, seconds float64, opts []sawsynth.Option) error {
	if out == "" {
		return errors.New("-backend wav needs -out")
	}
	text, err := resolveMelody(melodyPath, melodyInline)
	if err != nil {
		return err
	}
	samples, rate, err := sawsynth.RenderMelody(text, seconds, opts...)
	if err != nil {
		return err
	}
	if err := os.WriteFile(out, sawsynth.EncodeWAVU8(samples, rate), 0o644); err != nil {
		return err
	}
	log.Printf("wrote %s: %d samples at %d Hz", out, len(samples), rate)
	return nil
}
