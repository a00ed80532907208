package oto

import (
	"encoding/binary"
	"math"
	"testing"
)

type ramp struct{ calls int }

func (r *ramp) Process(_, out [][]float32, frames int) {
	r.calls++
	for i := 0; i < frames; i++ {
		out[0][i] = float32(i)
		out[1][i] = -float32(i)
	}
}

func TestReaderRead(t *testing.T) {
	proc := &ramp{}
	r := &reader{proc: proc, out: [][]float32{make([]float32, 4), make([]float32, 4)}}
	buf := make([]byte, 10*bytesPerFrame+3)
	n, err := r.Read(buf)
	if err != nil || n != 4*bytesPerFrame {
		t.Fatalf("Read = %d, %v; want one block of 4 frames", n, err)
	}
	for i := 0; i < 4; i++ {
		l := math.Float32frombits(binary.LittleEndian.Uint32(buf[i*bytesPerFrame:]))
		rt := math.Float32frombits(binary.LittleEndian.Uint32(buf[i*bytesPerFrame+4:]))
		if l != float32(i) || rt != -float32(i) {
			t.Errorf("frame %d = %v, %v", i, l, rt)
		}
	}
	r.closed = true
	if n, _ := r.Read(buf); n != 4*bytesPerFrame || proc.calls != 1 || buf[4] != 0 {
		t.Errorf("closed reader: n = %d, calls = %d", n, proc.calls)
	}
}
