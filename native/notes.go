package native

import (
	"sync"

	"github.com/inrack/inrack"
)

type (
	// externalNote is a pending note on or off injected from outside the
	// audio thread. A negative channel marks a free slot.
	externalNote struct {
		channel  int8
		note     uint8
		velocity uint8
	}

	noteQueue struct {
		mu    sync.Mutex
		slots [MaxMIDIEvents]externalNote
	}
)

func (q *noteQueue) reset() {
	q.mu.Lock()
	defer q.mu.Unlock()
	for i := range q.slots {
		q.slots[i].channel = -1
	}
}

// push stores a note in the first free slot. It returns false when the
// queue is full.
func (q *noteQueue) push(channel, note, velocity uint8) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	for i := range q.slots {
		if q.slots[i].channel < 0 {
			q.slots[i] = externalNote{channel: int8(channel), note: note, velocity: velocity}
			return true
		}
	}
	return false
}

// pending returns the number of occupied slots.
func (q *noteQueue) pending() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	n := 0
	for i := range q.slots {
		if q.slots[i].channel >= 0 {
			n++
		}
	}
	return n
}

// drain moves queued notes into the event buffer until it holds limit
// events, freeing each slot it consumes. It gives up without waiting when
// another thread holds the queue; the notes are then delivered on a later
// cycle.
func (q *noteQueue) drain(b *eventBuffer, limit int, live *liveNotes) {
	if !q.mu.TryLock() {
		return
	}
	defer q.mu.Unlock()
	for i := range q.slots {
		if b.count >= limit {
			return
		}
		s := &q.slots[i]
		if s.channel < 0 {
			continue
		}
		status := byte(inrack.MIDIStatusNoteOff)
		if s.velocity > 0 {
			status = inrack.MIDIStatusNoteOn
		}
		b.append(inrack.MIDIEvent{Size: 3, Data: [4]byte{status | byte(s.channel), s.note, s.velocity}})
		live.set(uint8(s.channel), s.note, s.velocity > 0)
		s.channel = -1
	}
}
