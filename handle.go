package inrack

type (
	// Handle is the per-instance state created by Descriptor.Instantiate.
	// Parameter accessors are addressed by descriptor port index.
	//
	// Process is called from the audio thread with one buffer per audio
	// port (inputs then outputs, in port table order) and the MIDI events of
	// the cycle, sorted by arrival. A handle may emit events during Process
	// through Host.WriteMIDIEvent.
	Handle interface {
		Process(in, out [][]float32, frames int, events []MIDIEvent)
		ParameterValue(index PortIndex) float64
		SetParameterValue(index PortIndex, value float64)
		ParameterRanges(index PortIndex) ParameterRanges
	}

	// Activator is implemented by handles that need to know when audio
	// processing starts and stops.
	Activator interface {
		Activate()
		Deactivate()
	}

	// Cleaner is implemented by handles that hold resources beyond the
	// garbage collector's reach.
	Cleaner interface {
		Cleanup()
	}

	// ParameterTexter is implemented by handles that can render parameter
	// values for display. An empty string means "no custom text".
	ParameterTexter interface {
		ParameterText(index PortIndex) string
		ParameterUnit(index PortIndex) string
	}

	// CustomDataSetter receives string key/value state from the host. It
	// may be called while Process runs on another thread.
	CustomDataSetter interface {
		SetCustomData(key, value string)
	}

	// MIDIProgramSetter is implemented by handles that expose MIDIPrograms.
	MIDIProgramSetter interface {
		SetMIDIProgram(bank, program uint32)
	}

	// MIDIProgramLister is implemented by handles whose programs change at
	// runtime. It takes precedence over Descriptor.MIDIPrograms.
	MIDIProgramLister interface {
		MIDIPrograms() []MIDIProgram
	}

	// GUI is implemented by handles that own a user interface.
	GUI interface {
		ShowGUI(show bool)
		IdleGUI()
	}

	// GUIUpdater is implemented by handles whose user interface mirrors
	// changes made by the host.
	GUIUpdater interface {
		GUIParameterChanged(index PortIndex, value float64)
		GUIMIDIProgramChanged(bank, program uint32)
		GUICustomDataChanged(key, value string)
		GUINoteOn(channel, note, velocity uint8)
		GUINoteOff(channel, note uint8)
	}

	// Host is the set of callbacks a handle may use. BufferSize, SampleRate
	// and TimeInfo are safe from any thread; WriteMIDIEvent only succeeds
	// while the handle's Process is running.
	Host interface {
		BufferSize() int
		SampleRate() float64
		TimeInfo() *TimeInfo
		WriteMIDIEvent(event *MIDIEvent) bool
	}

	// TimeInfo is the transport state of the current cycle.
	TimeInfo struct {
		Playing bool
		Frame   uint64
		BPM     float64
		Valid   bool
	}

	// CustomDataType is the encoding of a custom data value.
	CustomDataType int
)

const (
	CustomDataInvalid CustomDataType = iota
	CustomDataString
	CustomDataPath
	CustomDataChunk
	CustomDataBinary
)

var customDataTypeNames = [...]string{"invalid", "string", "path", "chunk", "binary"}

func (t CustomDataType) String() string {
	if t < 0 || int(t) >= len(customDataTypeNames) {
		return "invalid"
	}
	return customDataTypeNames[t]
}
