package sawsynth

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	intaudio "github.com/cbegin/sawsynth-go/internal/audio"
	intmelody "github.com/cbegin/sawsynth-go/internal/melody"
	intmidi "github.com/cbegin/sawsynth-go/internal/midi"
	intsynth "github.com/cbegin/sawsynth-go/internal/synth"
	intwt "github.com/cbegin/sawsynth-go/internal/wavetable"
)

// Backend selects where rendered samples go when the synth is started.
type Backend string

const (
	BackendEbiten Backend = "ebiten"
	BackendOto    Backend = "oto"
	// BackendNone renders only when Tick is called by the owner.
	BackendNone Backend = "none"
)

type Voice = intsynth.Voice

type ParserMode = intmidi.Mode

const (
	ParserRunningStatus = intmidi.ModeRunningStatus
	ParserCompat        = intmidi.ModeCompat
)

type Option func(*config)

type config struct {
	params    intsynth.Params
	parser    intmidi.Config
	backend   Backend
	pitch     *intsynth.PitchTable
	tables    *intwt.Set
	sampleTap func([]uint8)
}

func defaultConfig() config {
	return config{
		params:  intsynth.DefaultParams(),
		parser:  intmidi.DefaultConfig(),
		backend: BackendEbiten,
	}
}

func WithPolyphony(n int) Option {
	return func(cfg *config) {
		cfg.params.Polyphony = n
	}
}

// WithTickRate sets the oscillator tick rate, which is also the output
// sample rate.
func WithTickRate(hz int) Option {
	return func(cfg *config) {
		cfg.params.TickRate = hz
	}
}

// WithGateInactive removes released voices from the mix. By default they keep
// contributing the sample frozen at their stopped phase.
func WithGateInactive(enabled bool) Option {
	return func(cfg *config) {
		cfg.params.GateInactive = enabled
	}
}

func WithParserMode(mode ParserMode) Option {
	return func(cfg *config) {
		cfg.parser.Mode = mode
	}
}

// WithChannel selects the MIDI channel (0-15) the synth responds to.
func WithChannel(ch uint8) Option {
	return func(cfg *config) {
		cfg.parser.Channel = ch & 0x0F
	}
}

func WithBackend(b Backend) Option {
	return func(cfg *config) {
		cfg.backend = b
	}
}

// WithPitchTable replaces the equal-tempered note-to-step table.
func WithPitchTable(p *intsynth.PitchTable) Option {
	return func(cfg *config) {
		cfg.pitch = p
	}
}

// WithSampleTap installs a callback invoked with each block of rendered
// samples. The callback runs on the audio thread; keep work brief and
// non-blocking.
func WithSampleTap(tap func([]uint8)) Option {
	return func(cfg *config) {
		cfg.sampleTap = tap
	}
}

// Synth wires a MIDI byte stream into the oscillator engine and the engine
// into an audio backend.
type Synth struct {
	mu      sync.Mutex
	cfg     config
	engine  *intsynth.Engine
	feedMu  sync.Mutex
	parser  *intmidi.Parser
	player  *intaudio.Player
	oto     *intaudio.OtoPlayer
	started bool
}

func New(opts ...Option) (*Synth, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.params.TickRate <= 0 {
		return nil, errors.New("tick rate must be positive")
	}
	if cfg.params.Polyphony <= 0 || cfg.params.Polyphony > intsynth.MaxPolyphony {
		return nil, fmt.Errorf("polyphony must be 1-%d", intsynth.MaxPolyphony)
	}
	switch cfg.backend {
	case BackendEbiten, BackendOto, BackendNone:
	default:
		return nil, fmt.Errorf("unknown backend %q", cfg.backend)
	}
	if cfg.tables == nil {
		cfg.tables = intwt.Default()
	}
	engine := intsynth.New(cfg.tables, cfg.pitch, cfg.params)
	return &Synth{
		cfg:    cfg,
		engine: engine,
		parser: intmidi.NewParser(cfg.parser, engine),
	}, nil
}

// TickRate returns the oscillator tick rate in Hz.
func (s *Synth) TickRate() int { return s.cfg.params.TickRate }

// Feed delivers one raw MIDI byte. Safe for concurrent use.
func (s *Synth) Feed(b byte) {
	s.feedMu.Lock()
	s.parser.Feed(b)
	s.feedMu.Unlock()
}

// Write delivers raw MIDI bytes, so a Synth can sit behind any io.Writer.
func (s *Synth) Write(p []byte) (int, error) {
	s.feedMu.Lock()
	defer s.feedMu.Unlock()
	return s.parser.Write(p)
}

func (s *Synth) NoteOn(note uint8)  { s.engine.NoteOn(note) }
func (s *Synth) NoteOff(note uint8) { s.engine.NoteOff(note) }
func (s *Synth) AllNotesOff()       { s.engine.AllNotesOff() }

// Tick renders one sample. Only call it when no backend is running.
func (s *Synth) Tick() uint8 { return s.engine.Tick() }

func (s *Synth) Voices() []Voice       { return s.engine.Voices() }
func (s *Synth) ActiveVoiceCount() int { return s.engine.ActiveVoiceCount() }

func (s *Synth) ParserStats() intmidi.Stats {
	s.feedMu.Lock()
	defer s.feedMu.Unlock()
	return s.parser.Stats()
}

// Start begins rendering through the configured backend.
func (s *Synth) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return nil
	}
	rate := s.cfg.params.TickRate
	switch s.cfg.backend {
	case BackendEbiten:
		pl, err := intaudio.NewPlayer(rate, s.engine, s.cfg.sampleTap)
		if err != nil {
			return fmt.Errorf("ebiten audio: %w", err)
		}
		pl.Play()
		s.player = pl
	case BackendOto:
		op, err := intaudio.NewOtoPlayer(rate, s.cfg.sampleTap)
		if err != nil {
			return fmt.Errorf("oto audio: %w", err)
		}
		op.Attach(s.engine)
		op.Start()
		s.oto = op
	case BackendNone:
	}
	s.started = true
	return nil
}

// Stop silences every voice and closes the backend.
func (s *Synth) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.engine.AllNotesOff()
	var err error
	if s.player != nil {
		err = s.player.Stop()
		s.player = nil
	}
	if s.oto != nil {
		err = errors.Join(err, s.oto.Stop())
		s.oto = nil
	}
	s.started = false
	return err
}

// RunDAC drives the engine from a wall clock at the tick rate and streams DAC
// frames to w until ctx is done. Use with BackendNone.
func (s *Synth) RunDAC(ctx context.Context, w io.Writer) error {
	s.mu.Lock()
	busy := s.player != nil || s.oto != nil
	s.mu.Unlock()
	if busy {
		return errors.New("RunDAC: an audio backend is already rendering")
	}
	dac := intaudio.NewDACWriter(w)
	clock := intaudio.Clock{Rate: s.cfg.params.TickRate, OnBlock: dac.Flush}
	err := clock.Run(ctx, func() { s.engine.Render(dac) })
	if ctx.Err() != nil {
		return dac.Flush()
	}
	return err
}

// PlayMelody feeds a compiled melody into the synth on the wall clock.
func (s *Synth) PlayMelody(ctx context.Context, script intmidi.Script, loop bool) error {
	q := &intmelody.Sequencer{Script: script, TickRate: s.cfg.params.TickRate, Loop: loop}
	return q.Run(ctx, s.Feed)
}

// CompileMelody parses melody text into a byte script for the synth's
// channel and tick rate.
func (s *Synth) CompileMelody(text string) (intmidi.Script, error) {
	return CompileMelody(text, s.cfg.params.TickRate, s.cfg.parser.Channel)
}

// CompileMelody parses melody text into a byte script timed at tickRate.
func CompileMelody(text string, tickRate int, channel uint8) (intmidi.Script, error) {
	m, err := intmelody.Parse(text, intmelody.DefaultConfig())
	if err != nil {
		return intmidi.Script{}, err
	}
	return intmelody.Compile(m, tickRate, channel, 100), nil
}
