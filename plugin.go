package inrack

// Plugin is the host-side view of a plugin instance, independent of the
// plugin format behind it. Parameter ids are dense instance-local indices.
type Plugin interface {
	ID() int
	Name() string
	Label() string
	Maker() string
	Copyright() string
	RealName() string
	Category() Category

	ParameterCount() int
	ParameterName(id int) string
	ParameterText(id int) string
	ParameterUnit(id int) string
	ParameterValue(id int) float64
	ParameterScalePointCount(id int) int
	ParameterScalePointValue(id, scalePoint int) float64
	ParameterScalePointLabel(id, scalePoint int) string
	SetParameterValue(id int, value float64, sendGUI, sendOSC, sendCallback bool)
	SetParameterMIDIChannel(id int, channel uint8)
	SetParameterMIDICC(id int, cc int16)

	MIDIProgramCount() int
	CurrentMIDIProgram() int
	SetMIDIProgram(index int, sendGUI, sendOSC, sendCallback, block bool)

	SetCustomData(typ CustomDataType, key, value string, sendGUI bool)

	SetActive(active, sendOSC, sendCallback bool)
	SetDryWet(value float64, sendOSC, sendCallback bool)
	SetVolume(value float64, sendOSC, sendCallback bool)
	SetBalanceLeft(value float64, sendOSC, sendCallback bool)
	SetBalanceRight(value float64, sendOSC, sendCallback bool)
	SetCtrlInChannel(channel int8)

	ShowGUI(show bool)
	IdleGUI()

	Reload() error
	Idle()
	Close() error
}
