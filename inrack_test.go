package inrack_test

import (
	"bytes"
	"testing"

	"github.com/inrack/inrack"
)

func TestRegistry(t *testing.T) {
	var inits, finis int
	d := &inrack.Descriptor{
		Label: "test",
		Init:  func(*inrack.Descriptor) { inits++ },
		Fini:  func(*inrack.Descriptor) { finis++ },
	}
	r := inrack.NewRegistry()
	r.Register(d)
	r.Register(d)
	r.Register(nil)
	if r.Count() != 1 || r.Descriptor(0) != d || r.Descriptor(1) != nil {
		t.Fatalf("registry holds %d descriptors", r.Count())
	}
	if got, ok := r.Lookup("test"); !ok || got != d {
		t.Errorf("Lookup(test) = %v, %v", got, ok)
	}
	if _, ok := r.Lookup("missing"); ok {
		t.Errorf("Lookup(missing) succeeded")
	}
	r.InitializeIfNeeded(d)
	r.InitializeIfNeeded(d)
	if inits != 1 || !r.Initialized(d) {
		t.Errorf("Init ran %d times", inits)
	}
	r.Shutdown()
	if finis != 1 || r.Initialized(d) {
		t.Errorf("Fini ran %d times", finis)
	}
	r.InitializeIfNeeded(d)
	if inits != 2 {
		t.Errorf("Init after Shutdown ran %d times in total, want 2", inits)
	}
}

func TestWav(t *testing.T) {
	buf := []float32{0, 0.5, -1, 2}
	var tests = []struct {
		name  string
		pcm16 bool
		size  int
	}{
		{"pcm16", true, 44 + 2*len(buf)},
		{"float", false, 58 + 4*len(buf)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wav, err := inrack.Wav(buf, inrack.AudioFormat{Channels: 2, SampleRate: 48000}, tt.pcm16)
			if err != nil {
				t.Fatalf("Wav error: %v", err)
			}
			if len(wav) != tt.size || !bytes.HasPrefix(wav, []byte("RIFF")) {
				t.Errorf("wav has %d bytes, want %d", len(wav), tt.size)
			}
		})
	}
	if _, err := inrack.Wav(buf, inrack.AudioFormat{}, false); err == nil {
		t.Errorf("Wav with an empty format succeeded")
	}
	raw, err := inrack.Raw(buf, true)
	if err != nil || len(raw) != 2*len(buf) {
		t.Fatalf("Raw = %d bytes, %v", len(raw), err)
	}
	// clipped to full scale
	if raw[6] != 0xff || raw[7] != 0x7f {
		t.Errorf("last sample = %x %x, want 0x7fff", raw[6], raw[7])
	}
}

func TestInterleave(t *testing.T) {
	got := inrack.Interleave(nil, [][]float32{{1, 2, 3}, {-1, -2, -3}}, 2)
	want := []float32{1, -1, 2, -2}
	if len(got) != len(want) {
		t.Fatalf("Interleave = %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Interleave = %v, want %v", got, want)
		}
	}
}

func TestParameterRanges(t *testing.T) {
	r := inrack.ParameterRanges{Min: -2, Max: 2}
	var tests = []struct {
		v, fixed, norm float64
	}{
		{-3, -2, 0},
		{0, 0, 0.5},
		{1, 1, 0.75},
		{5, 2, 1},
	}
	for _, tt := range tests {
		if got := r.Fix(tt.v); got != tt.fixed {
			t.Errorf("Fix(%v) = %v, want %v", tt.v, got, tt.fixed)
		}
		if got := r.Normalize(tt.v); got != tt.norm {
			t.Errorf("Normalize(%v) = %v, want %v", tt.v, got, tt.norm)
		}
		if got := r.Unnormalize(tt.norm); got != tt.fixed {
			t.Errorf("Unnormalize(%v) = %v, want %v", tt.norm, got, tt.fixed)
		}
	}
}

func TestCounts(t *testing.T) {
	d := &inrack.Descriptor{Ports: []inrack.Port{
		{Type: inrack.PortTypeAudio},
		{Type: inrack.PortTypeAudio, Hints: inrack.PortIsOutput},
		{Type: inrack.PortTypeAudio, Hints: inrack.PortIsOutput},
		{Type: inrack.PortTypeMIDI},
		{Type: inrack.PortTypeParameter},
		{Type: inrack.PortTypeParameter, Hints: inrack.PortIsOutput},
		{Type: inrack.PortTypeNull},
	}}
	ai, ao, mi, mo, params := d.Counts()
	if ai != 1 || ao != 2 || mi != 1 || mo != 0 || params != 2 {
		t.Errorf("Counts = %d %d %d %d %d", ai, ao, mi, mo, params)
	}
}

func TestNormalizeNoteOff(t *testing.T) {
	var tests = []struct {
		in, want [4]byte
	}{
		{[4]byte{0x93, 60, 0}, [4]byte{0x83, 60, 0}},
		{[4]byte{0x93, 60, 1}, [4]byte{0x93, 60, 1}},
		{[4]byte{0xB0, 7, 0}, [4]byte{0xB0, 7, 0}},
	}
	for _, tt := range tests {
		ev := inrack.MIDIEvent{Size: 3, Data: tt.in}
		ev.NormalizeNoteOff()
		if ev.Data != tt.want || ev.Channel() != tt.want[0]&0x0F {
			t.Errorf("NormalizeNoteOff(%x) = %x", tt.in, ev.Data)
		}
	}
}
