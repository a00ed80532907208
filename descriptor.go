package inrack

type (
	// PortType tells what a descriptor port carries.
	PortType int

	// PortHints are the descriptor-side flags of a port.
	PortHints uint32

	// PortIndex is the index of a port in Descriptor.Ports. Parameter ports
	// are sparse in this space: audio and MIDI ports share the same
	// numbering.
	PortIndex uint32

	// Category is a coarse classification of a plugin type.
	Category int

	// DescriptorHints are capability flags of a plugin type.
	DescriptorHints uint32

	// ScalePoint is a labelled value of a parameter, e.g. "Saw" = 2.
	ScalePoint struct {
		Label string
		Value float64
	}

	// Port is one entry in the port table of a descriptor.
	Port struct {
		Type        PortType
		Hints       PortHints
		Name        string
		ScalePoints []ScalePoint
	}

	// ParameterRanges is the value range of a parameter port. The step
	// fields are only suggestions from the plugin; the host derives its own.
	ParameterRanges struct {
		Default   float64
		Min       float64
		Max       float64
		Step      float64
		StepSmall float64
		StepLarge float64
	}

	// MIDIProgram is a preset selectable with a bank and program number.
	MIDIProgram struct {
		Bank    uint32
		Program uint32
		Name    string
	}

	// Descriptor is the immutable metadata and callback table of a native
	// plugin type. Descriptors are shared by all instances of the type and
	// outlive them.
	Descriptor struct {
		Category  Category
		Hints     DescriptorHints
		Name      string
		Label     string
		Maker     string
		Copyright string

		Ports        []Port
		MIDIPrograms []MIDIProgram

		// Init and Fini, when set, run once per process: Init before the
		// first instance is created, Fini when the registry shuts down.
		Init func(d *Descriptor)
		Fini func(d *Descriptor)

		// Instantiate creates the per-instance state. It must not return a
		// nil handle without an error.
		Instantiate func(d *Descriptor, host Host) (Handle, error)
	}
)

const (
	PortTypeNull PortType = iota
	PortTypeAudio
	PortTypeMIDI
	PortTypeParameter
)

const (
	PortIsOutput PortHints = 1 << iota
	PortIsEnabled
	PortIsAutomable
	PortIsBoolean
	PortIsInteger
	PortIsLogarithmic
	PortUsesSampleRate
	PortUsesScalePoints
	PortUsesCustomText
)

const (
	CategoryNone Category = iota
	CategorySynth
	CategoryDelay
	CategoryEQ
	CategoryFilter
	CategoryDynamics
	CategoryModulator
	CategoryUtility
	CategoryOther
)

const (
	DescriptorIsSynth DescriptorHints = 1 << iota
	DescriptorHasGUI
	DescriptorUsesSingleThread
)

// DefaultParameterRanges is what a parameter range query starts from, so a
// plugin that leaves fields untouched still reports a usable range.
var DefaultParameterRanges = ParameterRanges{Default: 0, Min: 0, Max: 1, Step: 0.01, StepSmall: 0.0001, StepLarge: 0.1}

var portTypeNames = [...]string{"null", "audio", "midi", "parameter"}

func (t PortType) String() string {
	if t < 0 || int(t) >= len(portTypeNames) {
		return "unknown"
	}
	return portTypeNames[t]
}

var categoryNames = [...]string{"none", "synth", "delay", "eq", "filter", "dynamics", "modulator", "utility", "other"}

func (c Category) String() string {
	if c < 0 || int(c) >= len(categoryNames) {
		return "other"
	}
	return categoryNames[c]
}

// IsOutput reports whether the port is an output.
func (p Port) IsOutput() bool { return p.Hints&PortIsOutput != 0 }

// Fix clamps v into [Min, Max].
func (r ParameterRanges) Fix(v float64) float64 {
	if v < r.Min {
		return r.Min
	}
	if v > r.Max {
		return r.Max
	}
	return v
}

// Normalize maps a value in [Min, Max] to [0, 1]. Values outside the range
// are clamped first.
func (r ParameterRanges) Normalize(v float64) float64 {
	span := r.Max - r.Min
	if span <= 0 {
		return 0
	}
	return (r.Fix(v) - r.Min) / span
}

// Unnormalize maps x in [0, 1] back to [Min, Max].
func (r ParameterRanges) Unnormalize(x float64) float64 {
	if x < 0 {
		x = 0
	} else if x > 1 {
		x = 1
	}
	return r.Min + x*(r.Max-r.Min)
}

// Counts returns the number of audio, MIDI and parameter ports in each
// direction.
func (d *Descriptor) Counts() (audioIns, audioOuts, midiIns, midiOuts, params int) {
	for _, p := range d.Ports {
		switch p.Type {
		case PortTypeAudio:
			if p.IsOutput() {
				audioOuts++
			} else {
				audioIns++
			}
		case PortTypeMIDI:
			if p.IsOutput() {
				midiOuts++
			} else {
				midiIns++
			}
		case PortTypeParameter:
			params++
		}
	}
	return
}
