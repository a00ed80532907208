package native

import (
	"github.com/inrack/inrack"
	"github.com/inrack/inrack/engine"
)

// MaxMIDIEvents is the number of events accepted from the host per cycle.
// The native event buffer holds twice as many, the second half being room
// for the events the plugin writes back.
const MaxMIDIEvents = 512

type (
	// eventBuffer is the flat native event array, reused every cycle.
	eventBuffer struct {
		events [2 * MaxMIDIEvents]inrack.MIDIEvent
		count  int
	}

	// liveNotes tracks which notes have been started and not stopped, per
	// channel.
	liveNotes [16][128]bool
)

func (b *eventBuffer) clear() { b.count = 0 }

func (b *eventBuffer) append(e inrack.MIDIEvent) bool {
	if b.count >= len(b.events) {
		return false
	}
	b.events[b.count] = e
	b.count++
	return true
}

// prepend2 inserts two events ahead of the buffered ones. The last events
// are dropped when the buffer would overflow.
func (b *eventBuffer) prepend2(first, second inrack.MIDIEvent) {
	n := b.count
	if n > len(b.events)-2 {
		n = len(b.events) - 2
	}
	copy(b.events[2:n+2], b.events[:n])
	b.events[0] = first
	b.events[1] = second
	b.count = n + 2
}

func (l *liveNotes) set(channel, note uint8, on bool) {
	if channel < 16 && note < 128 {
		l[channel][note] = on
	}
}

func (l *liveNotes) reset() {
	*l = liveNotes{}
}

// release calls f for every live note of channel and forgets it.
func (l *liveNotes) release(channel uint8, f func(note uint8)) {
	if channel >= 16 {
		return
	}
	for n := range l[channel] {
		if l[channel][n] {
			l[channel][n] = false
			f(uint8(n))
		}
	}
}

// translateInbound converts a host MIDI port event into a native event for
// the cycle window [framesOffset, framesOffset+frames). Events outside the
// window and statuses a native plugin does not receive are rejected. A
// note-on with zero velocity becomes a note-off.
func translateInbound(ev *engine.MIDIEvent, port int, frames int, framesOffset uint32) (inrack.MIDIEvent, bool) {
	if ev.Time < framesOffset || int(ev.Time-framesOffset) >= frames || ev.Size == 0 {
		return inrack.MIDIEvent{}, false
	}
	status := ev.Data[0]
	if inrack.MIDIStatus(status) == inrack.MIDIStatusNoteOn && ev.Data[2] == 0 {
		status -= 0x10
	}
	out := inrack.MIDIEvent{PortOffset: uint32(port), Time: ev.Time - framesOffset}
	switch inrack.MIDIStatus(status) {
	case inrack.MIDIStatusNoteOff, inrack.MIDIStatusNoteOn, inrack.MIDIStatusPolyphonicAftertouch, inrack.MIDIStatusPitchWheelControl:
		if ev.Size < 3 {
			return inrack.MIDIEvent{}, false
		}
		out.Size = 3
		out.Data = [4]byte{status, ev.Data[1], ev.Data[2]}
	case inrack.MIDIStatusAftertouch:
		if ev.Size < 2 {
			return inrack.MIDIEvent{}, false
		}
		out.Size = 2
		out.Data = [4]byte{status, ev.Data[1]}
	default:
		return inrack.MIDIEvent{}, false
	}
	return out, true
}

// controlChange builds a native control change event at frame 0.
func controlChange(channel int8, controller byte) inrack.MIDIEvent {
	return inrack.MIDIEvent{Size: 3, Data: [4]byte{inrack.MIDIStatusControlChange | byte(channel), controller, 0}}
}

// noteOff builds a native note-off event at frame 0.
func noteOff(channel, note uint8) inrack.MIDIEvent {
	return inrack.MIDIEvent{Size: 3, Data: [4]byte{inrack.MIDIStatusNoteOff | channel, note, 0}}
}
