package wavetable

import (
	"math"
	"math/cmplx"
	"testing"

	"github.com/mjibson/go-dsp/fft"
)

func TestSelectTableBoundaries(t *testing.T) {
	cases := []struct {
		step uint16
		want int
	}{
		{0, 0},
		{1, MaxTable},
		{1 << 15, 0},
		{0xFFFF, 0},
		{1 << 14, 1},
		{1072, 29}, // middle C at 16 kHz
	}
	for _, tc := range cases {
		if got := SelectTable(tc.step); got != tc.want {
			t.Fatalf("SelectTable(%d) = %d, want %d", tc.step, got, tc.want)
		}
	}
}

func TestSelectTableMonotonic(t *testing.T) {
	prev := SelectTable(1)
	for step := 2; step <= 0xFFFF; step++ {
		got := SelectTable(uint16(step))
		if got > prev {
			t.Fatalf("SelectTable(%d) = %d rose above %d", step, got, prev)
		}
		if got < 0 || got > MaxTable {
			t.Fatalf("SelectTable(%d) = %d out of range", step, got)
		}
		prev = got
	}
}

func TestSelectTableStaysBelowNyquist(t *testing.T) {
	// Table i carries i+1 harmonics; the highest must not pass half the tick rate.
	for step := 1; step < 1<<15; step++ {
		idx := SelectTable(uint16(step))
		if idx == MaxTable {
			continue
		}
		// frequency in cycles per tick = step / 65536
		top := float64(idx+1) * float64(step) / 65536
		if top > 0.5 {
			t.Fatalf("step %d table %d puts harmonic %d at %.4f cycles/tick", step, idx, idx+1, top)
		}
	}
}

func harmonic(table *[TableLen]uint8, m int) float64 {
	samples := make([]float64, TableLen)
	for n, v := range table {
		samples[n] = float64(v)
	}
	return cmplx.Abs(fft.FFTReal(samples)[m]) / TableLen
}

func TestGenerateIsBandLimited(t *testing.T) {
	set := Generate()
	for _, idx := range []int{0, 3, 20, MaxTable - 5} {
		fundamental := harmonic(&set[idx], 1)
		if fundamental < 10 {
			t.Fatalf("table %d fundamental = %f, want a strong fundamental", idx, fundamental)
		}
		if top := harmonic(&set[idx], idx+1); top < fundamental/float64(2*(idx+1)) {
			t.Fatalf("table %d harmonic %d = %f too weak", idx, idx+1, top)
		}
		above := harmonic(&set[idx], idx+4)
		if above > 0.05*fundamental {
			t.Fatalf("table %d harmonic %d = %f, want band-limited", idx, idx+4, above)
		}
	}
}

func TestGenerateCentersOnMidscale(t *testing.T) {
	set := Generate()
	var peakMax, peakMin uint8 = 0, 255
	for i := range set {
		var sum int
		for _, v := range set[i] {
			sum += int(v)
			if v > peakMax {
				peakMax = v
			}
			if v < peakMin {
				peakMin = v
			}
		}
		mean := float64(sum) / TableLen
		if math.Abs(mean-127.5) > 1.5 {
			t.Fatalf("table %d mean = %f, want ~127.5", i, mean)
		}
	}
	// Normalised to 0.6 of full scale.
	if peakMax > 206 || peakMin < 49 {
		t.Fatalf("peak range [%d, %d] exceeds normalisation", peakMin, peakMax)
	}
}

func TestDefaultIsShared(t *testing.T) {
	if Default() != Default() {
		t.Fatalf("Default returned different sets")
	}
}

func TestLowpassSawKeepsEveryBinAtFullBandwidth(t *testing.T) {
	var dst [TableLen]float64
	lowpassSaw(&dst, TableLen/2)
	for n, got := range dst {
		want := -0.5 + float64(n)/TableLen
		if math.Abs(got-want) > 1e-9 {
			t.Fatalf("sample %d = %f, want %f", n, got, want)
		}
	}
}

func TestLowpassSawSingleHarmonicIsSine(t *testing.T) {
	var dst [TableLen]float64
	lowpassSaw(&dst, 1)
	// Bin 1 of the ramp -0.5+n/N has magnitude 1/(2 sin(pi/N)).
	amp := 2 * (1 / (2 * math.Sin(math.Pi/TableLen))) / TableLen
	for n, got := range dst {
		want := -0.5/TableLen - amp*math.Sin(2*math.Pi*float64(n)/TableLen+math.Pi/TableLen)
		if math.Abs(got-want) > 1e-9 {
			t.Fatalf("sample %d = %f, want %f", n, got, want)
		}
	}
}
