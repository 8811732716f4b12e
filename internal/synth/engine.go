package synth

import (
	"math/bits"
	"sync"
	"sync/atomic"

	"github.com/cbegin/sawsynth-go/internal/wavetable"
)

const (
	// MaxPolyphony bounds the size of the voice array.
	MaxPolyphony = 16

	DefaultPolyphony = 6
	DefaultTickRate  = 16000
)

// Params controls the synthesis engine.
type Params struct {
	Polyphony int
	TickRate  int // ticks per second, used to build the default pitch table
	// GateInactive drops released voices from the mix instead of summing the
	// sample frozen at their stopped phase.
	GateInactive bool
}

// DefaultParams returns the reference configuration: six voices at 16 kHz.
func DefaultParams() Params {
	return Params{
		Polyphony: DefaultPolyphony,
		TickRate:  DefaultTickRate,
	}
}

// Voice is the control state of one polyphony slot.
type Voice struct {
	Active     bool
	Note       uint8
	Step       uint16
	TableIndex int
}

// bank is one published snapshot of every voice's control state. Snapshots
// are immutable once stored; writers copy, modify and swap.
type bank [MaxPolyphony]Voice

// SampleSink accepts one rendered sample per tick.
type SampleSink interface {
	WriteSample(v uint8)
}

// Engine is a polyphonic DDS wavetable oscillator bank with a first-free voice
// allocator. Tick must only be called from one goroutine at a time; NoteOn and
// NoteOff may be called from any goroutine and never block Tick.
type Engine struct {
	params Params
	n      int
	shift  uint
	tables *wavetable.Set
	pitch  *PitchTable

	mu  sync.Mutex // serialises writers only
	ctl atomic.Pointer[bank]

	acc [MaxPolyphony]uint16 // owned by the render path
}

// New creates an engine reading from tables. A nil pitch table is built from
// params.TickRate.
func New(tables *wavetable.Set, pitch *PitchTable, params Params) *Engine {
	if params.Polyphony <= 0 {
		params.Polyphony = DefaultPolyphony
	}
	if params.Polyphony > MaxPolyphony {
		params.Polyphony = MaxPolyphony
	}
	if params.TickRate <= 0 {
		params.TickRate = DefaultTickRate
	}
	if tables == nil {
		tables = wavetable.Default()
	}
	if pitch == nil {
		pitch = NewPitchTable(params.TickRate)
	}
	e := &Engine{
		params: params,
		n:      params.Polyphony,
		shift:  uint(bits.Len(uint(params.Polyphony - 1))),
		tables: tables,
		pitch:  pitch,
	}
	e.ctl.Store(new(bank))
	return e
}

// Params returns the effective engine parameters.
func (e *Engine) Params() Params { return e.params }

// NoteOn binds note to the lowest-numbered free voice. When every voice is
// sounding the note is dropped.
func (e *Engine) NoteOn(note uint8) {
	if note > 127 {
		return
	}
	e.update(func(b *bank) bool {
		for k := 0; k < e.n; k++ {
			v := &b[k]
			if v.Active {
				continue
			}
			v.Active = true
			v.Note = note
			v.Step = e.pitch[note]
			return true
		}
		return false
	})
}

// NoteOff releases the lowest-numbered voice sounding note, if any.
func (e *Engine) NoteOff(note uint8) {
	e.update(func(b *bank) bool {
		for k := 0; k < e.n; k++ {
			v := &b[k]
			if v.Active && v.Note == note {
				v.Active = false
				v.Step = 0
				return true
			}
		}
		return false
	})
}

// AllNotesOff releases every voice.
func (e *Engine) AllNotesOff() {
	e.update(func(b *bank) bool {
		changed := false
		for k := 0; k < e.n; k++ {
			if b[k].Active {
				b[k].Active = false
				b[k].Step = 0
				changed = true
			}
		}
		return changed
	})
}

// update applies fn to a private copy of the voice bank and publishes it in
// one atomic store, so Tick sees either every field of the change or none.
func (e *Engine) update(fn func(b *bank) bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	next := *e.ctl.Load()
	if !fn(&next) {
		return
	}
	for k := 0; k < e.n; k++ {
		next[k].TableIndex = wavetable.SelectTable(next[k].Step)
	}
	e.ctl.Store(&next)
}

// Tick advances every oscillator by one step and returns the mixed sample.
func (e *Engine) Tick() uint8 {
	b := e.ctl.Load()
	var sum uint
	for k := 0; k < e.n; k++ {
		v := &b[k]
		e.acc[k] += v.Step
		if e.params.GateInactive && !v.Active {
			continue
		}
		sum += uint(e.tables[v.TableIndex][e.acc[k]>>8])
	}
	return uint8(sum >> e.shift)
}

// Render runs one tick and hands the sample to sink.
func (e *Engine) Render(sink SampleSink) {
	sink.WriteSample(e.Tick())
}

// Process fills dst with consecutive ticks.
func (e *Engine) Process(dst []uint8) {
	for i := range dst {
		dst[i] = e.Tick()
	}
}

// Voices returns a copy of the current control state of every voice.
func (e *Engine) Voices() []Voice {
	b := e.ctl.Load()
	out := make([]Voice, e.n)
	copy(out, b[:e.n])
	return out
}

// ActiveVoiceCount returns the number of sounding voices.
func (e *Engine) ActiveVoiceCount() int {
	b := e.ctl.Load()
	n := 0
	for k := 0; k < e.n; k++ {
		if b[k].Active {
			n++
		}
	}
	return n
}
