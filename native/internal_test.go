package native

import (
	"fmt"
	"testing"

	"github.com/inrack/inrack"
)

func TestNewParameter(t *testing.T) {
	var tests = []struct {
		hints      inrack.PortHints
		native     inrack.ParameterRanges
		sampleRate float64
		want       inrack.ParameterRanges
	}{
		{0, inrack.ParameterRanges{Default: 0.5, Min: 0, Max: 1},
			1, inrack.ParameterRanges{Default: 0.5, Min: 0, Max: 1, Step: 0.01, StepSmall: 0.001, StepLarge: 0.1}},
		{0, inrack.ParameterRanges{Default: 3, Min: 0, Max: -1},
			1, inrack.ParameterRanges{Default: 0.1, Min: 0, Max: 0.1}},
		{0, inrack.ParameterRanges{Default: -1, Min: 0, Max: 10},
			1, inrack.ParameterRanges{Default: 0, Min: 0, Max: 10, Step: 0.1, StepSmall: 0.01, StepLarge: 1}},
		{inrack.PortIsBoolean, inrack.ParameterRanges{Default: 1, Min: 0, Max: 1},
			1, inrack.ParameterRanges{Default: 1, Min: 0, Max: 1, Step: 1, StepSmall: 1, StepLarge: 1}},
		{inrack.PortIsInteger, inrack.ParameterRanges{Default: 4, Min: 0, Max: 8},
			1, inrack.ParameterRanges{Default: 4, Min: 0, Max: 8, Step: 1, StepSmall: 1, StepLarge: 10}},
		{inrack.PortUsesSampleRate | inrack.PortIsInteger, inrack.ParameterRanges{Default: 0.5, Min: 0, Max: 1},
			48000, inrack.ParameterRanges{Default: 24000, Min: 0, Max: 48000, Step: 1, StepSmall: 1, StepLarge: 10}},
	}
	for i, tt := range tests {
		t.Run(fmt.Sprintf("newParameter %d", i), func(t *testing.T) {
			port := inrack.Port{Type: inrack.PortTypeParameter, Name: "p", Hints: tt.hints}
			p := newParameter(port, 7, tt.native, tt.sampleRate)
			got := p.Ranges
			if tt.want.Step == 0 {
				got.Step, got.StepSmall, got.StepLarge = 0, 0, 0
			}
			if got != tt.want {
				t.Errorf("ranges = %+v, want %+v", p.Ranges, tt.want)
			}
			if r := p.Ranges; !(r.Min <= r.Default && r.Default <= r.Max && r.Max > r.Min) {
				t.Errorf("ranges %+v are not ordered", r)
			}
			if p.RIndex != 7 || p.MIDICC != -1 || p.Type != ParameterInput {
				t.Errorf("parameter = %+v", p)
			}
		})
	}
}

func TestFromNormalized(t *testing.T) {
	var tests = []struct {
		hints ParameterHints
		x     float64
		want  float64
	}{
		{0, 0.25, -5},
		{0, 1.5, 10},
		{ParameterIsBoolean, 0.49, -10},
		{ParameterIsBoolean, 0.5, 10},
		{ParameterIsInteger, 0.52, 0},
		{ParameterIsInteger, 0.53, 1},
	}
	for i, tt := range tests {
		t.Run(fmt.Sprintf("FromNormalized %d", i), func(t *testing.T) {
			p := Parameter{Hints: tt.hints, Ranges: inrack.ParameterRanges{Min: -10, Max: 10}}
			if got := p.FromNormalized(tt.x); got != tt.want {
				t.Errorf("FromNormalized(%v) = %v, want %v", tt.x, got, tt.want)
			}
		})
	}
}

func TestReconcileProgram(t *testing.T) {
	var tests = []struct {
		oldCount, newCount, current int
		want                        int
		changed                     bool
	}{
		{3, 4, 2, 3, true},
		{3, 4, 3, 3, true},
		{0, 1, -1, 0, true},
		{4, 2, 3, 0, true},
		{4, 0, 3, -1, true},
		{2, 0, -1, -1, false},
		{0, 3, -1, 0, true},
		{3, 3, 1, 1, false},
		{3, 5, 1, 1, false},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%d->%d@%d", tt.oldCount, tt.newCount, tt.current), func(t *testing.T) {
			got, changed := reconcileProgram(tt.oldCount, tt.newCount, tt.current)
			if got != tt.want || changed != tt.changed {
				t.Errorf("reconcileProgram = %d, %v; want %d, %v", got, changed, tt.want, tt.changed)
			}
		})
	}
}

func TestBalanceFromControl(t *testing.T) {
	var tests = []struct {
		value       float64
		left, right float64
	}{
		{0.5, -1, 1},
		{0, -1, -1},
		{0.25, -1, 0},
		{1, 1, 1},
		{0.75, 0, 1},
	}
	for _, tt := range tests {
		left, right := balanceFromControl(tt.value)
		if left != tt.left || right != tt.right {
			t.Errorf("balanceFromControl(%v) = %v, %v; want %v, %v", tt.value, left, right, tt.left, tt.right)
		}
	}
}

func TestPrepend(t *testing.T) {
	var b eventBuffer
	for i := 0; i < len(b.events); i++ {
		b.append(inrack.MIDIEvent{Time: uint32(i)})
	}
	b.prepend2(controlChange(0, inrack.MIDIControlAllSoundOff), controlChange(0, inrack.MIDIControlAllNotesOff))
	if b.count != len(b.events) {
		t.Fatalf("count = %d, want %d", b.count, len(b.events))
	}
	if b.events[0].Data[1] != inrack.MIDIControlAllSoundOff || b.events[1].Data[1] != inrack.MIDIControlAllNotesOff {
		t.Errorf("injected events not in front: %v %v", b.events[0].Data, b.events[1].Data)
	}
	if b.events[2].Time != 0 || b.events[len(b.events)-1].Time != uint32(len(b.events)-3) {
		t.Errorf("buffered events not shifted")
	}
}

func TestNoteQueue(t *testing.T) {
	var q noteQueue
	var b eventBuffer
	var live liveNotes
	q.reset()
	for i := 0; i < MaxMIDIEvents; i++ {
		if !q.push(0, uint8(i%128), 100) {
			t.Fatalf("push %d rejected", i)
		}
	}
	if q.push(0, 1, 1) {
		t.Errorf("push to a full queue accepted")
	}
	q.drain(&b, 10, &live)
	if b.count != 10 || q.pending() != MaxMIDIEvents-10 {
		t.Errorf("drained %d, %d pending", b.count, q.pending())
	}
	if !live[0][9] || live[0][10] {
		t.Errorf("live notes not tracked")
	}
	b.clear()
	q.mu.Lock()
	q.drain(&b, MaxMIDIEvents, &live)
	q.mu.Unlock()
	if b.count != 0 {
		t.Errorf("drain ran while the queue was locked")
	}
	q.drain(&b, MaxMIDIEvents, &live)
	if q.pending() != 0 || b.count != MaxMIDIEvents-10 {
		t.Errorf("after full drain: %d pending, %d events", q.pending(), b.count)
	}
}
