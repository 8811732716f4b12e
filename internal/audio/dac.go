package audio

import (
	"bufio"
	"io"
)

// Control bits of the 16-bit SPI frame of a 12-bit voltage-output DAC
// (MCP4921 family). The 8-bit sample fills the top of the 12-bit code.
const (
	dacIgnore = 15
	dacBuf    = 14
	dacGain1x = 13 // active-low gain select: set means 1x
	dacActive = 12 // active-low shutdown: set means running
	dacShift  = 4
)

// DACFrame encodes one sample as the two SPI bytes the DAC expects, MSB first.
func DACFrame(v uint8) [2]byte {
	data := uint16(1)<<dacActive | uint16(1)<<dacGain1x | uint16(v)<<dacShift
	return [2]byte{byte(data >> 8), byte(data)}
}

// DACWriter is a sample sink that streams DAC frames to w, typically a spidev
// node. Write errors are sticky and reported by Flush and Err.
type DACWriter struct {
	w   *bufio.Writer
	err error
}

func NewDACWriter(w io.Writer) *DACWriter {
	return &DACWriter{w: bufio.NewWriterSize(w, 512)}
}

func (d *DACWriter) WriteSample(v uint8) {
	if d.err != nil {
		return
	}
	f := DACFrame(v)
	_, d.err = d.w.Write(f[:])
}

func (d *DACWriter) Flush() error {
	if d.err != nil {
		return d.err
	}
	d.err = d.w.Flush()
	return d.err
}

func (d *DACWriter) Err() error { return d.err }
