package sawsynth

import (
	"encoding/binary"

	intmidi "github.com/cbegin/sawsynth-go/internal/midi"
)

// RenderScript renders ticks samples while replaying script. Bytes scheduled
// at a tick are delivered before that tick is rendered. The result depends
// only on the script and options.
func RenderScript(script intmidi.Script, ticks int, opts ...Option) ([]uint8, error) {
	opts = append(opts[:len(opts):len(opts)], WithBackend(BackendNone))
	s, err := New(opts...)
	if err != nil {
		return nil, err
	}
	out := make([]uint8, ticks)
	next := 0
	for i := range out {
		for next < len(script.Events) && script.Events[next].Tick <= int64(i) {
			_, _ = s.Write(script.Events[next].Data)
			next++
		}
		out[i] = s.Tick()
	}
	return out, nil
}

// RenderMelody compiles melody text and renders it for seconds.
func RenderMelody(text string, seconds float64, opts ...Option) ([]uint8, int, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	script, err := CompileMelody(text, cfg.params.TickRate, cfg.parser.Channel)
	if err != nil {
		return nil, 0, err
	}
	ticks := int(float64(cfg.params.TickRate) * seconds)
	out, err := RenderScript(script, ticks, opts...)
	return out, cfg.params.TickRate, err
}

// EncodeWAVU8 wraps unsigned 8-bit mono samples in a PCM WAV container.
func EncodeWAVU8(samples []uint8, sampleRate int) []byte {
	dataSize := len(samples)
	chunkSize := 36 + dataSize
	out := make([]byte, 44+dataSize+dataSize%2)
	copy(out[0:], []byte("RIFF"))
	binary.LittleEndian.PutUint32(out[4:], uint32(chunkSize+dataSize%2))
	copy(out[8:], []byte("WAVE"))
	copy(out[12:], []byte("fmt "))
	binary.LittleEndian.PutUint32(out[16:], 16)
	binary.LittleEndian.PutUint16(out[20:], 1)
	binary.LittleEndian.PutUint16(out[22:], 1)
	binary.LittleEndian.PutUint32(out[24:], uint32(sampleRate))
	binary.LittleEndian.PutUint32(out[28:], uint32(sampleRate))
	binary.LittleEndian.PutUint16(out[32:], 1)
	binary.LittleEndian.PutUint16(out[34:], 8)
	copy(out[36:], []byte("data"))
	binary.LittleEndian.PutUint32(out[40:], uint32(dataSize))
	copy(out[44:], samples)
	return out
}
