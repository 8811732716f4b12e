package synth

import (
	"sync"
	"testing"

	"github.com/cbegin/sawsynth-go/internal/wavetable"
)

func newTestEngine() *Engine {
	return New(wavetable.Default(), nil, DefaultParams())
}

func TestNoteOnFillsSlotsInOrder(t *testing.T) {
	e := newTestEngine()
	for i := 0; i < DefaultPolyphony; i++ {
		e.NoteOn(uint8(60 + i))
	}
	voices := e.Voices()
	for i, v := range voices {
		if !v.Active || v.Note != uint8(60+i) {
			t.Fatalf("voice %d = %+v, want active note %d", i, v, 60+i)
		}
	}
	if got := e.ActiveVoiceCount(); got != DefaultPolyphony {
		t.Fatalf("active voices = %d, want %d", got, DefaultPolyphony)
	}
}

func TestNoteOnDropsWhenSaturated(t *testing.T) {
	e := newTestEngine()
	for i := 0; i < DefaultPolyphony; i++ {
		e.NoteOn(uint8(60 + i))
	}
	before := e.Voices()
	e.NoteOn(90)
	after := e.Voices()
	for i := range before {
		if before[i] != after[i] {
			t.Fatalf("voice %d changed on saturated note-on: %+v -> %+v", i, before[i], after[i])
		}
	}
}

func TestNoteOffReleasesVoice(t *testing.T) {
	e := newTestEngine()
	e.NoteOn(60)
	e.NoteOff(60)
	if got := e.ActiveVoiceCount(); got != 0 {
		t.Fatalf("active voices = %d, want 0", got)
	}
	v := e.Voices()[0]
	if v.Step != 0 || v.TableIndex != 0 {
		t.Fatalf("released voice = %+v, want zero step and table", v)
	}
}

func TestNoteOffWithoutMatchIsNoop(t *testing.T) {
	e := newTestEngine()
	e.NoteOn(64)
	before := e.ctl.Load()
	e.NoteOff(60)
	if e.ctl.Load() != before {
		t.Fatalf("unmatched note-off published a new bank")
	}
}

func TestNoteOffReleasesFirstMatchOnly(t *testing.T) {
	e := newTestEngine()
	e.NoteOn(60)
	e.NoteOn(60)
	e.NoteOff(60)
	voices := e.Voices()
	if voices[0].Active {
		t.Fatalf("voice 0 should be released")
	}
	if !voices[1].Active || voices[1].Note != 60 {
		t.Fatalf("voice 1 = %+v, want still sounding 60", voices[1])
	}
	// The freed slot is reused first.
	e.NoteOn(72)
	if v := e.Voices()[0]; !v.Active || v.Note != 72 {
		t.Fatalf("voice 0 = %+v, want note 72", v)
	}
}

func TestTableIndexTracksStep(t *testing.T) {
	e := newTestEngine()
	for _, n := range []uint8{24, 60, 96, 108} {
		e.NoteOn(n)
	}
	for i, v := range e.Voices() {
		if want := wavetable.SelectTable(v.Step); v.TableIndex != want {
			t.Fatalf("voice %d table = %d, want %d", i, v.TableIndex, want)
		}
	}
}

func TestPitchTable(t *testing.T) {
	p := NewPitchTable(DefaultTickRate)
	if p[69] != 1802 { // 440 * 65536 / 16000 = 1802.24
		t.Fatalf("A4 step = %d, want 1802", p[69])
	}
	if p[81] != 3604 {
		t.Fatalf("A5 step = %d, want 3604", p[81])
	}
	if p[127] != 0 {
		t.Fatalf("note 127 above Nyquist should be silent, got %d", p[127])
	}
	for n := 1; n < 128; n++ {
		if p[n] != 0 && p[n] < p[n-1] {
			t.Fatalf("step for note %d (%d) below note %d (%d)", n, p[n], n-1, p[n-1])
		}
	}
}

func TestTickIsDeterministic(t *testing.T) {
	render := func() []uint8 {
		e := newTestEngine()
		e.NoteOn(48)
		e.NoteOn(55)
		e.NoteOn(64)
		out := make([]uint8, 4096)
		e.Process(out)
		return out
	}
	a, b := render(), render()
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("sample %d differs: %d vs %d", i, a[i], b[i])
		}
	}
}

func TestAccumulatorWraps(t *testing.T) {
	e := newTestEngine()
	e.NoteOn(69)
	// 65536 and 1802 share only a factor of 2, so the period is 32768 ticks.
	start := e.acc[0]
	for i := 0; i < 1<<15; i++ {
		e.Tick()
	}
	if e.acc[0] != start {
		t.Fatalf("accumulator = %d after one period, want %d", e.acc[0], start)
	}

	e2 := New(wavetable.Default(), nil, DefaultParams())
	e2.NoteOn(60)
	e2.update(func(b *bank) bool {
		b[0].Step = 256
		return true
	})
	for i := 0; i < (1<<16)/256; i++ {
		e2.Tick()
	}
	if e2.acc[0] != 0 {
		t.Fatalf("accumulator with step 256 = %d after 256 ticks, want 0", e2.acc[0])
	}
}

func TestMixShift(t *testing.T) {
	cases := []struct {
		polyphony int
		shift     uint
	}{
		{1, 0}, {2, 1}, {4, 2}, {6, 3}, {8, 3}, {16, 4},
	}
	for _, tc := range cases {
		e := New(nil, nil, Params{Polyphony: tc.polyphony})
		if e.shift != tc.shift {
			t.Fatalf("polyphony %d shift = %d, want %d", tc.polyphony, e.shift, tc.shift)
		}
	}
}

func TestSilentVoicesHoldConstantBias(t *testing.T) {
	e := newTestEngine()
	first := e.Tick()
	for i := 0; i < 1000; i++ {
		if got := e.Tick(); got != first {
			t.Fatalf("idle engine output changed: %d -> %d", first, got)
		}
	}
	want := uint8(uint(wavetable.Default()[0][0]) * DefaultPolyphony >> 3)
	if first != want {
		t.Fatalf("idle output = %d, want %d", first, want)
	}
}

func TestGateInactiveSilencesReleasedVoices(t *testing.T) {
	params := DefaultParams()
	params.GateInactive = true
	e := New(nil, nil, params)
	if got := e.Tick(); got != 0 {
		t.Fatalf("gated idle output = %d, want 0", got)
	}
	e.NoteOn(60)
	var nonZero bool
	for i := 0; i < 256; i++ {
		if e.Tick() != 0 {
			nonZero = true
		}
	}
	if !nonZero {
		t.Fatalf("expected signal from active voice")
	}
}

type captureSink struct{ samples []uint8 }

func (c *captureSink) WriteSample(v uint8) { c.samples = append(c.samples, v) }

func TestRenderWritesToSink(t *testing.T) {
	e := newTestEngine()
	e.NoteOn(60)
	sink := &captureSink{}
	for i := 0; i < 10; i++ {
		e.Render(sink)
	}
	if len(sink.samples) != 10 {
		t.Fatalf("sink got %d samples, want 10", len(sink.samples))
	}
}

func TestConcurrentNotesDuringRender(t *testing.T) {
	e := newTestEngine()
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 2000; i++ {
			n := uint8(40 + i%40)
			e.NoteOn(n)
			e.NoteOff(n)
		}
	}()
	buf := make([]uint8, 256)
	for i := 0; i < 200; i++ {
		e.Process(buf)
		for _, v := range e.Voices() {
			if v.TableIndex != wavetable.SelectTable(v.Step) {
				t.Errorf("torn voice state %+v", v)
			}
		}
	}
	wg.Wait()
	if got := e.ActiveVoiceCount(); got != 0 {
		t.Fatalf("active voices = %d, want 0", got)
	}
}

func BenchmarkTick(b *testing.B) {
	e := newTestEngine()
	for i := 0; i < DefaultPolyphony; i++ {
		e.NoteOn(uint8(48 + 5*i))
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		e.Tick()
	}
}
