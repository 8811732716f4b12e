package audio

import (
	"encoding/binary"
	"fmt"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ebitengine/oto/v3"
)

// OtoPlayer plays a TickSource through oto directly as mono float32, one
// tick per sample. The source pointer is atomic so Read never locks.
type OtoPlayer struct {
	ctx     *oto.Context
	player  *oto.Player
	source  atomic.Pointer[TickSource]
	tap     Tap
	buf     []uint8
	started bool
	mu      sync.Mutex // setup and control only
}

// oto allows one context per process; every OtoPlayer shares it.
var (
	otoContextOnce sync.Once
	otoContext     *oto.Context
	otoContextErr  error
	otoSampleRate  int

	newOtoContext = oto.NewContext
)

func sharedOtoContext(sampleRate int) (*oto.Context, error) {
	otoContextOnce.Do(func() {
		otoSampleRate = sampleRate
		ctx, ready, err := newOtoContext(&oto.NewContextOptions{
			SampleRate:   sampleRate,
			ChannelCount: 1,
			Format:       oto.FormatFloat32LE,
			BufferSize:   20 * time.Millisecond,
		})
		if err != nil {
			otoContextErr = err
			return
		}
		<-ready
		otoContext = ctx
	})
	if otoContextErr != nil {
		return nil, otoContextErr
	}
	if otoSampleRate != sampleRate {
		return nil, fmt.Errorf("oto context already initialized at %d Hz (requested %d Hz)", otoSampleRate, sampleRate)
	}
	return otoContext, nil
}

func NewOtoPlayer(tickRate int, tap Tap) (*OtoPlayer, error) {
	ctx, err := sharedOtoContext(tickRate)
	if err != nil {
		return nil, err
	}
	return &OtoPlayer{ctx: ctx, tap: tap}, nil
}

// Attach routes source to the output and creates the underlying player.
func (op *OtoPlayer) Attach(source TickSource) {
	op.mu.Lock()
	defer op.mu.Unlock()
	op.source.Store(&source)
	if op.player == nil {
		op.player = op.ctx.NewPlayer(op)
	}
}

func (op *OtoPlayer) Read(p []byte) (int, error) {
	n := len(p) / 4
	src := op.source.Load()
	if src == nil {
		clear(p)
		return len(p), nil
	}
	if cap(op.buf) < n {
		op.buf = make([]uint8, n)
	}
	op.buf = op.buf[:n]
	for i := range op.buf {
		op.buf[i] = (*src).Tick()
	}
	for i, v := range op.buf {
		binary.LittleEndian.PutUint32(p[i*4:], math.Float32bits(ToFloat(v)))
	}
	if op.tap != nil {
		op.tap(op.buf)
	}
	return n * 4, nil
}

func (op *OtoPlayer) Start() {
	op.mu.Lock()
	defer op.mu.Unlock()
	if !op.started && op.player != nil {
		op.player.Play()
		op.started = true
	}
}

func (op *OtoPlayer) Stop() error {
	op.mu.Lock()
	defer op.mu.Unlock()
	if op.player == nil {
		return nil
	}
	op.player.Pause()
	err := op.player.Close()
	op.player = nil
	op.started = false
	return err
}

func (op *OtoPlayer) IsStarted() bool {
	op.mu.Lock()
	defer op.mu.Unlock()
	return op.started
}
