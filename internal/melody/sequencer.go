package melody

import (
	"context"
	"math"
	"time"

	"github.com/cbegin/sawsynth-go/internal/midi"
)

// Compile converts a melody into a byte script timed in engine ticks.
func Compile(m *Melody, tickRate int, channel uint8, velocity uint8) midi.Script {
	var s midi.Script
	var (
		lastTick   int
		lastSample float64
		perTick    float64
	)
	at := func(tick int) int64 {
		return int64(math.Round(lastSample + float64(tick-lastTick)*perTick))
	}
	for _, ev := range m.Events {
		switch ev.Type {
		case EventTempo:
			lastSample += float64(ev.Tick-lastTick) * perTick
			lastTick = ev.Tick
			perTick = float64(tickRate) * 60 / (float64(ev.BPM) * Resolution / 4)
		case EventNote:
			if ev.Gate <= 0 {
				continue
			}
			note := uint8(ev.Note)
			s.Add(at(ev.Tick), midi.NoteOnMessage(channel, note, velocity))
			s.Add(at(ev.Tick+ev.Gate), midi.NoteOffMessage(channel, note))
		}
	}
	if end := at(m.EndTick); end > s.Length {
		s.Length = end
	}
	s.Sort()
	return s
}

// Sequencer plays a script against the wall clock, standing in for a fixed
// melody timer.
type Sequencer struct {
	Script   midi.Script
	TickRate int
	Loop     bool
}

// Run feeds every scripted byte at its due time until the script ends (or,
// when looping, until ctx is done).
func (q *Sequencer) Run(ctx context.Context, feed func(byte)) error {
	start := time.Now()
	var offset int64
	for {
		for _, ev := range q.Script.Events {
			due := start.Add(ticksToDuration(offset+ev.Tick, q.TickRate))
			if err := sleepUntil(ctx, due); err != nil {
				return err
			}
			for _, b := range ev.Data {
				feed(b)
			}
		}
		if !q.Loop || q.Script.Length <= 0 {
			return sleepUntil(ctx, start.Add(ticksToDuration(offset+q.Script.Length, q.TickRate)))
		}
		offset += q.Script.Length
	}
}

func ticksToDuration(ticks int64, rate int) time.Duration {
	if rate <= 0 {
		return 0
	}
	sec := ticks / int64(rate)
	rem := ticks % int64(rate)
	return time.Duration(sec)*time.Second + time.Duration(rem)*time.Second/time.Duration(rate)
}

func sleepUntil(ctx context.Context, t time.Time) error {
	d := time.Until(t)
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
