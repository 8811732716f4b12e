package synth

import "math"

// PitchTable maps a MIDI note number to the phase increment that plays it.
type PitchTable [128]uint16

// NewPitchTable builds an equal-tempered table (A4 = 440 Hz) for an oscillator
// ticked tickRate times per second. Notes at or above Nyquist are left at 0.
func NewPitchTable(tickRate int) *PitchTable {
	var p PitchTable
	if tickRate <= 0 {
		return &p
	}
	for n := range p {
		freq := 440 * math.Pow(2, float64(n-69)/12)
		step := math.Round(freq * 65536 / float64(tickRate))
		if step >= 1<<15 {
			continue
		}
		p[n] = uint16(step)
	}
	return &p
}
