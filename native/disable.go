package native

import "runtime"

// BeginCycle registers the caller as running an audio cycle on the
// plugin. It returns false when the plugin is disabled; the caller must
// then leave the plugin's ports alone. Every successful BeginCycle must be
// paired with EndCycle. Calls nest.
func (p *Plugin) BeginCycle() bool {
	p.inCycle.Add(1)
	if !p.enabled.Load() {
		p.inCycle.Add(-1)
		return false
	}
	return true
}

// EndCycle ends a cycle started with BeginCycle.
func (p *Plugin) EndCycle() {
	p.inCycle.Add(-1)
}

// IsEnabled reports whether audio cycles may run.
func (p *Plugin) IsEnabled() bool { return p.enabled.Load() }

// suspend gives the calling control thread exclusive use of the handle,
// the ports and the tables, and returns the function undoing it. The
// caller must hold ctrlMu.
//
// Offline, the engine lock is taken. Otherwise the enabled flag is cleared
// and suspend waits for running cycles to finish; the handle is then
// deactivated if it was active, so the next enabled cycle activates it
// again, and the outputs and peak meters read as silence.
func (p *Plugin) suspend() (resume func()) {
	if p.engine.IsOffline() {
		p.engine.Lock()
		return p.engine.Unlock
	}
	wasEnabled := p.enabled.Swap(false)
	for p.inCycle.Load() != 0 {
		runtime.Gosched()
	}
	p.deactivateNative()
	p.activeBefore = false
	for i := range p.audioOut {
		clear(p.audioOut[i].port.Buffer)
	}
	for ch := 0; ch < 2; ch++ {
		p.engine.SetInputPeak(p.id, ch, 0)
		p.engine.SetOutputPeak(p.id, ch, 0)
	}
	return func() {
		if wasEnabled && !p.closed {
			p.enabled.Store(true)
		}
	}
}

// running is checked between the stages of a cycle; a false result ends the
// cycle early.
func (p *Plugin) running() bool {
	return p.enabled.Load() && !p.engine.IsAborting()
}
