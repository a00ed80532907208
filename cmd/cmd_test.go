package cmd_test

import (
	"testing"

	"github.com/inrack/inrack"
	"github.com/inrack/inrack/cmd"
)

func TestInstances(t *testing.T) {
	var finis int
	d := &inrack.Descriptor{Label: "test", Fini: func(*inrack.Descriptor) { finis++ }}
	r := inrack.NewRegistry()
	r.Register(d)
	instances := &cmd.Instances{Registry: r}
	instances.Acquire()
	instances.Acquire()
	r.InitializeIfNeeded(d)
	instances.Release()
	if finis != 0 || !r.Initialized(d) {
		t.Fatalf("registry shut down with a live instance")
	}
	instances.Release()
	if finis != 1 || r.Initialized(d) {
		t.Errorf("Fini ran %d times after the last release, want 1", finis)
	}
	instances.Release()
	if finis != 1 {
		t.Errorf("extra Release ran Fini again")
	}
}
