// Package engine is the in-memory host engine the plugin instances run in:
// it hands out plugin ids and unique names, owns clients and their ports,
// keeps the peak meters and the transport, and forwards notifications to
// callbacks and an optional OSC controller.
package engine

import (
	"fmt"
	"math"
	"strings"
	"sync"
	"sync/atomic"
	"text/template"

	"github.com/Masterminds/sprig"
	"github.com/golang/glog"
	"github.com/inrack/inrack"
	"github.com/pkg/errors"
)

var (
	ErrEngineClosed   = errors.New("engine is closed")
	ErrTooManyPlugins = errors.New("maximum number of plugins reached")
	ErrTooManyPorts   = errors.New("maximum number of ports reached")
	ErrPortName       = errors.New("invalid port name")
	ErrDuplicatePort  = errors.New("duplicate port name")
	ErrClientClosed   = errors.New("client is closed")
)

type (
	// Engine is shared by every plugin instance of a rack. All methods are
	// safe for concurrent use; the peak, transport and offline accessors do
	// not lock and may be used from the audio thread.
	Engine struct {
		name         string
		opts         Options
		portNameTmpl *template.Template

		offline  atomic.Bool
		aborting atomic.Bool
		// processLock serializes offline rendering against control-thread
		// mutations; the realtime path never takes it.
		processLock sync.Mutex

		peaks []peakMeter

		timeInfo    [2]inrack.TimeInfo
		timeInfoCur atomic.Int32

		mu        sync.Mutex
		closed    bool
		names     map[string]bool
		pluginIDs []bool
		clients   []*Client
		portCount int
		callback  Callback
		osc       *OSCController
	}

	peakMeter struct {
		in  [2]atomic.Uint64
		out [2]atomic.Uint64
	}

	portNameData struct {
		Client string
		Port   string
		Max    int
	}
)

// New creates an engine. Zero option fields take their defaults.
func New(name string, opts Options) (*Engine, error) {
	opts = opts.withDefaults()
	tmpl, err := template.New("portname").Funcs(sprig.TxtFuncMap()).Parse(opts.PortNameTemplate)
	if err != nil {
		return nil, errors.Wrap(err, "invalid port name template")
	}
	e := &Engine{
		name:         name,
		opts:         opts,
		portNameTmpl: tmpl,
		peaks:        make([]peakMeter, opts.MaxPlugins),
		names:        make(map[string]bool),
		pluginIDs:    make([]bool, opts.MaxPlugins),
	}
	if opts.OSCController != "" {
		if err := e.RegisterOSCController(opts.OSCController); err != nil {
			return nil, err
		}
	}
	glog.Infof("engine %q: %v Hz, %d frames, %s", name, opts.SampleRate, opts.BufferSize, opts.ProcessMode)
	return e, nil
}

func (e *Engine) Name() string             { return e.name }
func (e *Engine) Options() Options         { return e.opts }
func (e *Engine) SampleRate() float64      { return e.opts.SampleRate }
func (e *Engine) BufferSize() int          { return e.opts.BufferSize }
func (e *Engine) ProcessMode() ProcessMode { return e.opts.ProcessMode }
func (e *Engine) MaxPortNameSize() int     { return e.opts.MaxPortNameSize }
func (e *Engine) MaxPlugins() int          { return e.opts.MaxPlugins }
func (e *Engine) IsOffline() bool          { return e.offline.Load() }
func (e *Engine) SetOffline(offline bool)  { e.offline.Store(offline) }
func (e *Engine) IsAborting() bool         { return e.aborting.Load() }
func (e *Engine) Abort()                   { e.aborting.Store(true) }

// Lock takes the engine-wide process lock. Offline renderers hold it for
// each cycle; control-thread mutations hold it when the engine is offline.
func (e *Engine) Lock() { e.processLock.Lock() }

// Unlock releases the process lock.
func (e *Engine) Unlock() { e.processLock.Unlock() }

// NewPluginID reserves the lowest free plugin id.
func (e *Engine) NewPluginID() (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return -1, ErrEngineClosed
	}
	for i, used := range e.pluginIDs {
		if !used {
			e.pluginIDs[i] = true
			return i, nil
		}
	}
	return -1, ErrTooManyPlugins
}

// ReleasePluginID frees an id returned by NewPluginID and resets its meters.
func (e *Engine) ReleasePluginID(id int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if id < 0 || id >= len(e.pluginIDs) {
		return
	}
	e.pluginIDs[id] = false
	for ch := 0; ch < 2; ch++ {
		e.peaks[id].in[ch].Store(0)
		e.peaks[id].out[ch].Store(0)
	}
}

// UniqueName returns name, or name with a " (N)" suffix if it is taken, and
// reserves the result. Colons are replaced since they separate client and
// port in port names.
func (e *Engine) UniqueName(name string) string {
	name = strings.ReplaceAll(strings.TrimSpace(name), ":", ".")
	if name == "" {
		name = "(none)"
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	ret := name
	for n := 2; e.names[ret]; n++ {
		ret = fmt.Sprintf("%s (%d)", name, n)
	}
	e.names[ret] = true
	return ret
}

// ReleaseName makes a name returned by UniqueName available again.
func (e *Engine) ReleaseName(name string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.names, name)
}

// AddClient registers a new client.
func (e *Engine) AddClient(name string) (*Client, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil, ErrEngineClosed
	}
	c := &Client{engine: e, name: name}
	e.clients = append(e.clients, c)
	return c, nil
}

// Clients returns a snapshot of the registered clients.
func (e *Engine) Clients() []*Client {
	e.mu.Lock()
	defer e.mu.Unlock()
	ret := make([]*Client, len(e.clients))
	copy(ret, e.clients)
	return ret
}

func (e *Engine) removeClient(c *Client) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for i, x := range e.clients {
		if x == c {
			e.clients = append(e.clients[:i], e.clients[i+1:]...)
			return
		}
	}
}

func (e *Engine) reservePort() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return ErrEngineClosed
	}
	if e.portCount >= e.opts.MaxPorts {
		return ErrTooManyPorts
	}
	e.portCount++
	return nil
}

func (e *Engine) releasePorts(n int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.portCount -= n
	if e.portCount < 0 {
		e.portCount = 0
	}
}

// PortName builds the full name of a plugin port. In multiple-client mode
// the port name is used as is; otherwise the port name template combines
// the client and port names. The result never exceeds MaxPortNameSize-2
// bytes, and the port part alone is cut to half of that.
func (e *Engine) PortName(client, port string) string {
	size := e.opts.MaxPortNameSize - 2
	if e.opts.ProcessMode == ProcessModeMultipleClients {
		return truncate(port, size)
	}
	var b strings.Builder
	data := portNameData{Client: client, Port: truncate(port, size/2), Max: size}
	if err := e.portNameTmpl.Execute(&b, data); err != nil {
		glog.Warningf("port name template failed for %q: %v", port, err)
		return truncate(client+":"+data.Port, size)
	}
	return truncate(b.String(), size)
}

func truncate(s string, n int) string {
	if n < 0 {
		n = 0
	}
	if len(s) <= n {
		return s
	}
	return s[:n]
}

// SetInputPeak publishes the input peak of a plugin channel (0 or 1).
func (e *Engine) SetInputPeak(id, channel int, value float64) {
	if id < 0 || id >= len(e.peaks) || channel < 0 || channel > 1 {
		return
	}
	e.peaks[id].in[channel].Store(math.Float64bits(value))
}

// SetOutputPeak publishes the output peak of a plugin channel (0 or 1).
func (e *Engine) SetOutputPeak(id, channel int, value float64) {
	if id < 0 || id >= len(e.peaks) || channel < 0 || channel > 1 {
		return
	}
	e.peaks[id].out[channel].Store(math.Float64bits(value))
}

// InputPeak returns the last published input peak.
func (e *Engine) InputPeak(id, channel int) float64 {
	if id < 0 || id >= len(e.peaks) || channel < 0 || channel > 1 {
		return 0
	}
	return math.Float64frombits(e.peaks[id].in[channel].Load())
}

// OutputPeak returns the last published output peak.
func (e *Engine) OutputPeak(id, channel int) float64 {
	if id < 0 || id >= len(e.peaks) || channel < 0 || channel > 1 {
		return 0
	}
	return math.Float64frombits(e.peaks[id].out[channel].Load())
}

// SetTimeInfo publishes the transport of the next cycle. It must only be
// called by the thread driving the cycles.
func (e *Engine) SetTimeInfo(ti inrack.TimeInfo) {
	next := 1 - e.timeInfoCur.Load()
	e.timeInfo[next] = ti
	e.timeInfoCur.Store(next)
}

// TimeInfo returns the transport of the current cycle.
func (e *Engine) TimeInfo() *inrack.TimeInfo {
	return &e.timeInfo[e.timeInfoCur.Load()]
}

// Close aborts processing, closes every client and the OSC controller.
func (e *Engine) Close() error {
	e.Abort()
	for _, c := range e.Clients() {
		c.Close()
	}
	e.mu.Lock()
	e.closed = true
	osc := e.osc
	e.osc = nil
	e.mu.Unlock()
	if osc != nil {
		return osc.Close()
	}
	return nil
}
