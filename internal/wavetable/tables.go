package wavetable

import (
	"math"
	"sync"

	"github.com/mjibson/go-dsp/fft"
)

const (
	// TableLen is the number of samples in one cycle of every table.
	TableLen = 256
	// NumTables is the number of band-limited tables in a Set.
	NumTables = 59
	// MaxTable is the index of the table with the fewest harmonics.
	MaxTable = NumTables - 1
)

// peak is the largest magnitude any table reaches before quantisation.
const peak = 0.6

// Set is an ordered collection of band-limited sawtooth tables indexed by
// harmonic count. A Set is never mutated once generated.
type Set [NumTables][TableLen]uint8

var (
	defaultOnce sync.Once
	defaultSet  *Set
)

// Default returns the process-wide Set, generating it on first use.
func Default() *Set {
	defaultOnce.Do(func() {
		defaultSet = Generate()
	})
	return defaultSet
}

// Generate bakes a Set. Table i is a 256-sample ramp with every harmonic above
// i+1 removed, so table 0 is a single sine and higher indices add harmonics.
// All tables share one normalisation so they mix at equal loudness.
func Generate() *Set {
	var raw [NumTables][TableLen]float64
	var maxV, minV float64
	for i := range raw {
		lowpassSaw(&raw[i], i+1)
		for _, s := range raw[i] {
			maxV = math.Max(maxV, s)
			minV = math.Min(minV, s)
		}
	}
	factor := peak / math.Max(maxV, -minV)

	set := new(Set)
	for i := range raw {
		for n, s := range raw[i] {
			set[i][n] = uint8(math.RoundToEven(255 * 0.5 * (s*factor + 1)))
		}
	}
	return set
}

// lowpassSaw fills dst with the ramp -0.5+n/N keeping DFT bins 0..harmonics
// and their mirrors.
func lowpassSaw(dst *[TableLen]float64, harmonics int) {
	ramp := make([]float64, TableLen)
	for n := range ramp {
		ramp[n] = -0.5 + float64(n)/TableLen
	}
	spectrum := fft.FFTReal(ramp)
	for m := harmonics + 1; m < TableLen-harmonics; m++ {
		spectrum[m] = 0
	}
	for n, v := range fft.IFFT(spectrum) {
		dst[n] = real(v)
	}
}

// SelectTable returns the richest table whose harmonics all stay below
// Nyquist for an oscillator advancing by step per tick. A zero step is
// silence and maps to table 0.
func SelectTable(step uint16) int {
	if step == 0 {
		return 0
	}
	table := (1<<15)/int(step) - 1
	if table > MaxTable {
		table = MaxTable
	}
	if table < 0 {
		table = 0
	}
	return table
}
