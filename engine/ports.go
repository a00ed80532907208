package engine

// MaxPortEvents is the capacity of a MIDI or control port per cycle.
const MaxPortEvents = 512

type (
	// PortType is the kind of data a port carries.
	PortType int

	// Port is a named endpoint of a client.
	Port interface {
		Name() string
		Type() PortType
		IsInput() bool
	}

	// AudioPort carries one channel of float32 samples. Buffer has the
	// engine buffer size.
	AudioPort struct {
		portBase
		Buffer []float32
	}

	// MIDIEvent is a raw MIDI message at a frame of the engine cycle.
	MIDIEvent struct {
		Time uint32
		Size uint8
		Data [3]byte
	}

	// MIDIPort is a fixed-capacity list of MIDI events for one cycle.
	MIDIPort struct {
		portBase
		events [MaxPortEvents]MIDIEvent
		count  int
	}

	// ControlEventType is the kind of a ControlEvent.
	ControlEventType int

	// ControlEvent is a decoded automation event. Value is normalized to
	// [0, 1] for control changes and is the raw number for bank and program
	// changes.
	ControlEvent struct {
		Type       ControlEventType
		Time       uint32
		Channel    uint8
		Controller uint16
		Value      float64
	}

	// ControlPort is a fixed-capacity list of control events for one cycle.
	ControlPort struct {
		portBase
		events [MaxPortEvents]ControlEvent
		count  int
	}

	portBase struct {
		name    string
		isInput bool
		client  *Client
	}
)

const (
	PortTypeNull PortType = iota
	PortTypeAudio
	PortTypeMIDI
	PortTypeControl
)

const (
	ControlEventNull ControlEventType = iota
	ControlEventControlChange
	ControlEventMIDIBankChange
	ControlEventMIDIProgramChange
	ControlEventAllSoundOff
	ControlEventAllNotesOff
)

func (p *portBase) Name() string  { return p.name }
func (p *portBase) IsInput() bool { return p.isInput }

func (p *AudioPort) Type() PortType   { return PortTypeAudio }
func (p *MIDIPort) Type() PortType    { return PortTypeMIDI }
func (p *ControlPort) Type() PortType { return PortTypeControl }

// EventCount returns the number of events written this cycle.
func (p *MIDIPort) EventCount() int { return p.count }

// Event returns the i-th event, or nil if i is out of range.
func (p *MIDIPort) Event(i int) *MIDIEvent {
	if i < 0 || i >= p.count {
		return nil
	}
	return &p.events[i]
}

// WriteEvent appends an event. Messages longer than three bytes and writes
// to a full port are dropped.
func (p *MIDIPort) WriteEvent(time uint32, data []byte) bool {
	if p.count >= MaxPortEvents || len(data) == 0 || len(data) > 3 {
		return false
	}
	e := &p.events[p.count]
	e.Time = time
	e.Size = uint8(copy(e.Data[:], data))
	for i := int(e.Size); i < len(e.Data); i++ {
		e.Data[i] = 0
	}
	p.count++
	return true
}

// Clear drops every event of the cycle.
func (p *MIDIPort) Clear() { p.count = 0 }

// EventCount returns the number of events written this cycle.
func (p *ControlPort) EventCount() int { return p.count }

// Event returns the i-th event, or nil if i is out of range.
func (p *ControlPort) Event(i int) *ControlEvent {
	if i < 0 || i >= p.count {
		return nil
	}
	return &p.events[i]
}

// WriteEvent appends an event; it returns false when the port is full.
func (p *ControlPort) WriteEvent(typ ControlEventType, time uint32, channel uint8, controller uint16, value float64) bool {
	if p.count >= MaxPortEvents {
		return false
	}
	p.events[p.count] = ControlEvent{Type: typ, Time: time, Channel: channel, Controller: controller, Value: value}
	p.count++
	return true
}

// Clear drops every event of the cycle.
func (p *ControlPort) Clear() { p.count = 0 }

// Silence zeroes the buffer.
func (p *AudioPort) Silence() {
	for i := range p.Buffer {
		p.Buffer[i] = 0
	}
}

func (t PortType) String() string {
	switch t {
	case PortTypeAudio:
		return "audio"
	case PortTypeMIDI:
		return "midi"
	case PortTypeControl:
		return "control"
	}
	return "null"
}
