package melody

import (
	"fmt"
	"strings"
)

// Resolution is the number of ticks in a whole note.
const Resolution = 1920

var noteOffsets = map[byte]int{
	'c': 0, 'd': 2, 'e': 4, 'f': 5, 'g': 7, 'a': 9, 'b': 11,
}

// EventType distinguishes the events of a parsed melody.
type EventType int

const (
	EventNote EventType = iota + 1
	EventRest
	EventTempo
)

// Event is one step of a melody, positioned in score ticks.
type Event struct {
	Type     EventType
	Tick     int
	Duration int
	Gate     int // sounding ticks of a note, <= Duration
	Note     int
	BPM      int
}

// Melody is a parsed single-voice melody.
type Melody struct {
	Events  []Event
	EndTick int
}

// Config holds parser defaults.
type Config struct {
	DefaultBPM    int
	DefaultLValue int
	DefaultOctave int
	DefaultGate   int // quantize value out of 8
}

func DefaultConfig() Config {
	return Config{
		DefaultBPM:    120,
		DefaultLValue: 4,
		DefaultOctave: 5,
		DefaultGate:   8,
	}
}

type state struct {
	tick       int
	octave     int
	defaultLen int
	gate       int
}

// Parse reads a small MML dialect:
//
//	c d e f g a b   notes, followed by +/# (sharp) or - (flat), a length and dots
//	r               rest
//	n<num>          note by MIDI number
//	o<num> < >      octave set, down, up
//	l<num>          default length
//	t<num>          tempo in BPM
//	q<1-8>          gate time in eighths of the note length
func Parse(input string, cfg Config) (*Melody, error) {
	st := state{
		octave:     cfg.DefaultOctave,
		defaultLen: Resolution / cfg.DefaultLValue,
		gate:       cfg.DefaultGate,
	}
	events := []Event{{Type: EventTempo, BPM: cfg.DefaultBPM}}
	src := strings.ToLower(input)
	i := 0
	for i < len(src) {
		ch := src[i]
		switch {
		case isSpace(ch) || ch == ';':
			i++
		case isNoteName(ch):
			note := st.octave*12 + noteOffsets[ch]
			i++
			for i < len(src) {
				if src[i] == '+' || src[i] == '#' {
					note++
				} else if src[i] == '-' {
					note--
				} else {
					break
				}
				i++
			}
			dur, next, err := parseLength(src, i, st.defaultLen)
			if err != nil {
				return nil, err
			}
			i = next
			if note < 0 || note > 127 {
				return nil, fmt.Errorf("note out of range at %d", i)
			}
			events = append(events, st.note(note, dur))
		case ch == 'n':
			val, next, err := parseNumber(src, i+1)
			if err != nil {
				return nil, fmt.Errorf("note number at %d: %w", i, err)
			}
			if val > 127 {
				return nil, fmt.Errorf("note number %d out of range at %d", val, i)
			}
			events = append(events, st.note(val, st.defaultLen))
			i = next
		case ch == 'r':
			dur, next, err := parseLength(src, i+1, st.defaultLen)
			if err != nil {
				return nil, err
			}
			events = append(events, Event{Type: EventRest, Tick: st.tick, Duration: dur})
			st.tick += dur
			i = next
		case ch == 'o':
			val, next, err := parseNumber(src, i+1)
			if err != nil {
				return nil, fmt.Errorf("octave at %d: %w", i, err)
			}
			if val > 9 {
				return nil, fmt.Errorf("octave out of range at %d", i)
			}
			st.octave = val
			i = next
		case ch == '<':
			if st.octave > 0 {
				st.octave--
			}
			i++
		case ch == '>':
			if st.octave < 9 {
				st.octave++
			}
			i++
		case ch == 'l':
			dur, next, err := parseLength(src, i+1, -1)
			if err != nil || dur < 0 {
				return nil, fmt.Errorf("length at %d", i)
			}
			st.defaultLen = dur
			i = next
		case ch == 't':
			val, next, err := parseNumber(src, i+1)
			if err != nil || val == 0 {
				return nil, fmt.Errorf("tempo at %d", i)
			}
			events = append(events, Event{Type: EventTempo, Tick: st.tick, BPM: val})
			i = next
		case ch == 'q':
			val, next, err := parseNumber(src, i+1)
			if err != nil || val < 1 || val > 8 {
				return nil, fmt.Errorf("gate at %d must be 1-8", i)
			}
			st.gate = val
			i = next
		default:
			return nil, fmt.Errorf("unexpected %q at %d", ch, i)
		}
	}
	return &Melody{Events: events, EndTick: st.tick}, nil
}

func (st *state) note(n, dur int) Event {
	ev := Event{
		Type:     EventNote,
		Tick:     st.tick,
		Duration: dur,
		Gate:     dur * st.gate / 8,
		Note:     n,
	}
	st.tick += dur
	return ev
}

// parseLength reads an optional note length and dots starting at i. With no
// digits the length is def.
func parseLength(src string, i int, def int) (int, int, error) {
	dur := def
	if i < len(src) && isDigit(src[i]) {
		val, next, err := parseNumber(src, i)
		if err != nil {
			return 0, i, err
		}
		if val == 0 || val > Resolution {
			return 0, i, fmt.Errorf("invalid length %d at %d", val, i)
		}
		dur = Resolution / val
		i = next
	}
	add := dur / 2
	for i < len(src) && src[i] == '.' {
		dur += add
		add /= 2
		i++
	}
	return dur, i, nil
}

func parseNumber(src string, i int) (int, int, error) {
	start := i
	val := 0
	for i < len(src) && isDigit(src[i]) {
		val = val*10 + int(src[i]-'0')
		if val > 1<<20 {
			return 0, i, fmt.Errorf("number too large at %d", start)
		}
		i++
	}
	if i == start {
		return 0, i, fmt.Errorf("expected number at %d", start)
	}
	return val, i, nil
}

func isNoteName(ch byte) bool {
	_, ok := noteOffsets[ch]
	return ok
}

func isDigit(ch byte) bool { return ch >= '0' && ch <= '9' }

func isSpace(ch byte) bool {
	return ch == ' ' || ch == '\t' || ch == '\n' || ch == '\r'
}
