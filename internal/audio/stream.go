package audio

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"sync"
	"time"

	ebitaudio "github.com/hajimehoshi/ebiten/v2/audio"
)

// TickSource produces one unsigned 8-bit sample per call.
type TickSource interface {
	Tick() uint8
}

// Tap observes every block of rendered samples. It runs on the audio thread.
type Tap func(samples []uint8)

// ToFloat maps an unsigned DAC code onto [-1, 1).
func ToFloat(v uint8) float32 {
	return (float32(v) - 128) / 128
}

// StreamReader renders a TickSource into interleaved float32 stereo frames,
// one tick per frame.
type StreamReader struct {
	mu     sync.Mutex
	source TickSource
	tap    Tap
	buf    []uint8
}

func NewStreamReader(source TickSource, tap Tap) *StreamReader {
	return &StreamReader{source: source, tap: tap}
}

func (r *StreamReader) Read(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	frames := len(p) / 8
	if frames == 0 {
		return 0, nil
	}
	if cap(r.buf) < frames {
		r.buf = make([]uint8, frames)
	}
	r.buf = r.buf[:frames]
	for i := range r.buf {
		r.buf[i] = r.source.Tick()
	}
	for i, v := range r.buf {
		u := math.Float32bits(ToFloat(v))
		binary.LittleEndian.PutUint32(p[i*8:], u)
		binary.LittleEndian.PutUint32(p[i*8+4:], u)
	}
	if r.tap != nil {
		r.tap(r.buf)
	}
	return frames * 8, nil
}

func (r *StreamReader) Close() error { return nil }

// Player plays a TickSource through ebiten's audio context running at the
// tick rate.
type Player struct {
	player *ebitaudio.Player
	reader io.ReadCloser
}

var (
	audioContextOnce sync.Once
	audioContext     *ebitaudio.Context
	audioSampleRate  int
)

func sharedAudioContext(sampleRate int) (*ebitaudio.Context, error) {
	audioContextOnce.Do(func() {
		audioSampleRate = sampleRate
		audioContext = ebitaudio.NewContext(sampleRate)
	})
	if audioSampleRate != sampleRate {
		return nil, fmt.Errorf("audio context already initialized at %d Hz (requested %d Hz)", audioSampleRate, sampleRate)
	}
	return audioContext, nil
}

func NewPlayer(tickRate int, source TickSource, tap Tap) (*Player, error) {
	ctx, err := sharedAudioContext(tickRate)
	if err != nil {
		return nil, err
	}
	reader := NewStreamReader(source, tap)
	pl, err := ctx.NewPlayerF32(reader)
	if err != nil {
		return nil, err
	}
	// Keep the device buffer short; notes land within a few milliseconds.
	pl.SetBufferSize(20 * time.Millisecond)
	return &Player{
		player: pl,
		reader: reader,
	}, nil
}

func (p *Player) Play()  { p.player.Play() }
func (p *Player) Pause() { p.player.Pause() }
func (p *Player) IsPlaying() bool {
	return p.player.IsPlaying()
}

// Position returns the current playback position.
func (p *Player) Position() time.Duration {
	return p.player.Position()
}

func (p *Player) Stop() error {
	p.player.Pause()
	p.player.Close()
	return p.reader.Close()
}
