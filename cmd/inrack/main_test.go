package main

import (
	"testing"

	"github.com/alecthomas/kong"
	"github.com/inrack/inrack"
)

func TestParseNote(t *testing.T) {
	var tests = []struct {
		note    string
		on, off int
		vel     uint8
		err     bool
	}{
		{"69:0:1", 0, 1000, 100, false},
		{"60:0.5:0.25:64", 500, 750, 64, false},
		{"60:1", 0, 0, 0, true},
		{"128:0:1", 0, 0, 0, true},
		{"60:-1:1", 0, 0, 0, true},
		{"60:0:1:0", 0, 0, 0, true},
		{"C4:0:1", 0, 0, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.note, func(t *testing.T) {
			on, off, err := parseNote(tt.note, 1000)
			if (err != nil) != tt.err {
				t.Fatalf("parseNote error = %v, want error %v", err, tt.err)
			}
			if tt.err {
				return
			}
			var ch, key, vel uint8
			if !on.Msg.GetNoteOn(&ch, &key, &vel) || vel != tt.vel {
				t.Errorf("note on = %v", on.Msg)
			}
			if !off.Msg.GetNoteOff(&ch, &key, &vel) {
				t.Errorf("note off = %v", off.Msg)
			}
			if on.Frame != tt.on || off.Frame != tt.off {
				t.Errorf("frames = %d, %d; want %d, %d", on.Frame, off.Frame, tt.on, tt.off)
			}
		})
	}
}

func TestRunShutsDownRegistry(t *testing.T) {
	var cli CLI
	parser, err := kong.New(&cli)
	if err != nil {
		t.Fatalf("kong.New error: %v", err)
	}
	ctx, err := parser.Parse([]string{"list", "--programs"})
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	if err := run(ctx); err != nil {
		t.Fatalf("run error: %v", err)
	}
	descriptors := inrack.DefaultRegistry.Descriptors()
	if len(descriptors) == 0 {
		t.Fatalf("no plugin types registered")
	}
	for _, d := range descriptors {
		if inrack.DefaultRegistry.Initialized(d) {
			t.Errorf("plugin type %q still initialized after run", d.Label)
		}
	}
}
