package midi

import (
	"sort"

	gomidi "gitlab.com/gomidi/midi/v2"
)

// NoteOnMessage encodes a three-byte Note-On message.
func NoteOnMessage(channel, note, velocity uint8) []byte {
	return gomidi.NoteOn(channel&0x0F, note&0x7F, velocity&0x7F).Bytes()
}

// NoteOffMessage encodes a three-byte Note-Off message with zero velocity.
func NoteOffMessage(channel, note uint8) []byte {
	return gomidi.NoteOff(channel&0x0F, note&0x7F).Bytes()
}

// TimedMessage is a run of raw bytes delivered at a tick offset.
type TimedMessage struct {
	Tick int64
	Data []byte
}

// Script is a timed byte stream spanning Length ticks.
type Script struct {
	Events []TimedMessage
	Length int64
}

// Add appends data at tick, extending Length when needed.
func (s *Script) Add(tick int64, data []byte) {
	s.Events = append(s.Events, TimedMessage{Tick: tick, Data: data})
	if tick > s.Length {
		s.Length = tick
	}
}

// Sort orders events by tick, keeping insertion order for equal ticks.
func (s *Script) Sort() {
	sort.SliceStable(s.Events, func(i, j int) bool {
		return s.Events[i].Tick < s.Events[j].Tick
	})
}
