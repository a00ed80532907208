package inrack

// MIDIEvent is the flat event record exchanged with a native handle.
// PortOffset selects the MIDI port (input port on the way in, output port
// on the way out); Time is the frame within the cycle.
type MIDIEvent struct {
	PortOffset uint32
	Time       uint32
	Size       uint8
	Data       [4]byte
}

// MIDI status bytes (channel in the low nibble).
const (
	MIDIStatusNoteOff              = 0x80
	MIDIStatusNoteOn               = 0x90
	MIDIStatusPolyphonicAftertouch = 0xA0
	MIDIStatusControlChange        = 0xB0
	MIDIStatusProgramChange        = 0xC0
	MIDIStatusAftertouch           = 0xD0
	MIDIStatusPitchWheelControl    = 0xE0
)

// MIDI controller numbers with special meaning to the host.
const (
	MIDIControlBankSelect    = 0x00
	MIDIControlBreath        = 0x02
	MIDIControlChannelVolume = 0x07
	MIDIControlBalance       = 0x08
	MIDIControlAllSoundOff   = 0x78
	MIDIControlResetAll      = 0x79
	MIDIControlAllNotesOff   = 0x7B
)

// MIDIStatus returns the status byte with the channel stripped.
func MIDIStatus(b byte) byte { return b & 0xF0 }

// MIDIChannel returns the channel of a channel voice status byte.
func MIDIChannel(b byte) byte { return b & 0x0F }

// NormalizeNoteOff rewrites a note-on with zero velocity into a note-off on
// the same channel, in place.
func (e *MIDIEvent) NormalizeNoteOff() {
	if MIDIStatus(e.Data[0]) == MIDIStatusNoteOn && e.Data[2] == 0 {
		e.Data[0] -= 0x10
	}
}

// Status returns the status nibble of the event.
func (e *MIDIEvent) Status() byte { return MIDIStatus(e.Data[0]) }

// Channel returns the channel of the event.
func (e *MIDIEvent) Channel() byte { return MIDIChannel(e.Data[0]) }

// Bytes returns the meaningful bytes of the event without copying.
func (e *MIDIEvent) Bytes() []byte {
	n := int(e.Size)
	if n > len(e.Data) {
		n = len(e.Data)
	}
	return e.Data[:n]
}
