package engine

// ProcessMode is how plugin ports are exposed to the outside world.
type ProcessMode int

const (
	// ProcessModeSingleClient registers every port on one engine client, so
	// port names are prefixed with the plugin name.
	ProcessModeSingleClient ProcessMode = iota
	// ProcessModeMultipleClients gives every plugin its own client; port
	// names are left bare.
	ProcessModeMultipleClients
	// ProcessModeContinuousRack chains plugins in series inside the engine.
	ProcessModeContinuousRack
)

// Options configure an Engine. Zero fields are replaced by DefaultOptions.
type Options struct {
	ProcessMode      ProcessMode `yaml:"processmode"`
	SampleRate       float64     `yaml:"samplerate"`
	BufferSize       int         `yaml:"buffersize"`
	MaxPlugins       int         `yaml:"maxplugins"`
	MaxPorts         int         `yaml:"maxports"`
	MaxPortNameSize  int         `yaml:"maxportnamesize"`
	PortNameTemplate string      `yaml:"portnametemplate"`

	// OSCController is the host:port of a controller to notify about
	// program lists and parameter changes. Empty disables notifications.
	OSCController string `yaml:"osccontroller"`
}

// DefaultOptions returns the options used for zero fields.
func DefaultOptions() Options {
	return Options{
		ProcessMode:      ProcessModeContinuousRack,
		SampleRate:       44100,
		BufferSize:       512,
		MaxPlugins:       99,
		MaxPorts:         4096,
		MaxPortNameSize:  256,
		PortNameTemplate: "{{ .Client }}:{{ .Port }}",
	}
}

func (o Options) withDefaults() Options {
	def := DefaultOptions()
	if o.SampleRate <= 0 {
		o.SampleRate = def.SampleRate
	}
	if o.BufferSize <= 0 {
		o.BufferSize = def.BufferSize
	}
	if o.MaxPlugins <= 0 {
		o.MaxPlugins = def.MaxPlugins
	}
	if o.MaxPorts <= 0 {
		o.MaxPorts = def.MaxPorts
	}
	if o.MaxPortNameSize <= 2 {
		o.MaxPortNameSize = def.MaxPortNameSize
	}
	if o.PortNameTemplate == "" {
		o.PortNameTemplate = def.PortNameTemplate
	}
	return o
}

func (m ProcessMode) String() string {
	switch m {
	case ProcessModeSingleClient:
		return "single-client"
	case ProcessModeMultipleClients:
		return "multiple-clients"
	case ProcessModeContinuousRack:
		return "continuous-rack"
	}
	return "unknown"
}
