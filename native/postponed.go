package native

// PostponedEventType is the kind of a PostponedEvent.
type PostponedEventType int

const (
	PostponedNull PostponedEventType = iota
	PostponedParameterChange
	PostponedProgramChange
	PostponedMIDIProgramChange
	PostponedNoteOn
	PostponedNoteOff
)

// PostponedEvent records a change made on the audio thread, to be reported
// to the engine callback and the OSC controller by Idle.
//
// For parameter changes Value1 is the parameter id (or one of the negative
// Parameter* ids) and Value3 the value; for program changes Value1 is the
// program index; for notes Value1 is the channel, Value2 the note and
// Value3 the velocity.
type PostponedEvent struct {
	Type   PostponedEventType
	Value1 int32
	Value2 int32
	Value3 float64
}

// maxPostponedEvents is the capacity of the postponed event queue. Events
// posted to a full queue are dropped.
const maxPostponedEvents = 512

// postpone queues an event without blocking.
func (p *Plugin) postpone(typ PostponedEventType, v1, v2 int32, v3 float64) bool {
	select {
	case p.postponed <- PostponedEvent{Type: typ, Value1: v1, Value2: v2, Value3: v3}:
		return true
	default:
		return false
	}
}
