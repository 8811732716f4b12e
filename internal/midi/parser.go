package midi

import "fmt"

const (
	StatusNoteOff byte = 0x80
	StatusNoteOn  byte = 0x90

	statusBit = 0x80
)

// Handler receives the note events decoded from a byte stream.
type Handler interface {
	NoteOn(note uint8)
	NoteOff(note uint8)
}

// Mode selects how data bytes after the first of a message are treated.
type Mode int

const (
	// ModeRunningStatus resets the data count after each complete two-byte
	// message so repeated notes without a new status byte are honoured.
	// A Note-On is acted on once its velocity arrives; velocity 0 releases
	// the note instead.
	ModeRunningStatus Mode = iota
	// ModeCompat never resets the data count until the next status byte:
	// only the first note after a status byte is acted on.
	ModeCompat
)

func (m Mode) String() string {
	switch m {
	case ModeRunningStatus:
		return "running-status"
	case ModeCompat:
		return "compat"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// Config controls the parser.
type Config struct {
	Channel uint8 // 0-15
	Mode    Mode
}

func DefaultConfig() Config {
	return Config{Channel: 0, Mode: ModeRunningStatus}
}

// State is the parser's position in a message.
type State int

const (
	StateIdle State = iota
	StateNoteOnData
	StateNoteOffData
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateNoteOnData:
		return "note-on-data"
	case StateNoteOffData:
		return "note-off-data"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Stats counts what a Parser has seen.
type Stats struct {
	Bytes    int
	NoteOns  int
	NoteOffs int
	Ignored  int // data bytes dropped while idle or past the note byte
	Resets   int // unrecognised status bytes
}

// Parser decodes Note-On and Note-Off messages for one channel from a raw
// MIDI byte stream. It is not safe for concurrent use.
type Parser struct {
	cfg       Config
	handler   Handler
	noteOn    byte
	noteOff   byte
	status    byte
	dataCount int
	held      uint8
	stats     Stats
}

func NewParser(cfg Config, h Handler) *Parser {
	ch := cfg.Channel & 0x0F
	return &Parser{
		cfg:     cfg,
		handler: h,
		noteOn:  StatusNoteOn | ch,
		noteOff: StatusNoteOff | ch,
	}
}

// Feed consumes one byte.
func (p *Parser) Feed(b byte) {
	p.stats.Bytes++
	if b&statusBit != 0 {
		switch b {
		case p.noteOn, p.noteOff:
			p.status = b
		default:
			p.status = 0
			p.stats.Resets++
		}
		p.dataCount = 0
		return
	}

	switch p.status {
	case p.noteOn:
		switch {
		case p.cfg.Mode == ModeRunningStatus && p.dataCount == 0:
			p.held = b
		case p.cfg.Mode == ModeRunningStatus && b == 0:
			p.handler.NoteOff(p.held)
			p.stats.NoteOffs++
		case p.cfg.Mode == ModeRunningStatus:
			p.handler.NoteOn(p.held)
			p.stats.NoteOns++
		case p.dataCount == 0:
			p.handler.NoteOn(b)
			p.stats.NoteOns++
		default:
			p.stats.Ignored++
		}
	case p.noteOff:
		if p.dataCount == 0 {
			p.handler.NoteOff(b)
			p.stats.NoteOffs++
		} else {
			p.stats.Ignored++
		}
	default:
		p.stats.Ignored++
		return
	}
	p.dataCount++
	if p.cfg.Mode == ModeRunningStatus && p.dataCount == 2 {
		p.dataCount = 0
	}
}

// Write feeds every byte of data. It never fails.
func (p *Parser) Write(data []byte) (int, error) {
	for _, b := range data {
		p.Feed(b)
	}
	return len(data), nil
}

// State reports which message the parser is collecting data for.
func (p *Parser) State() State {
	switch {
	case p.status == 0:
		return StateIdle
	case p.status == p.noteOn:
		return StateNoteOnData
	default:
		return StateNoteOffData
	}
}

// DataCount returns the number of data bytes consumed since the last status byte
// or, in running-status mode, since the last complete message.
func (p *Parser) DataCount() int { return p.dataCount }

// Reset returns the parser to idle.
func (p *Parser) Reset() {
	p.status = 0
	p.dataCount = 0
}

func (p *Parser) Stats() Stats { return p.stats }
