package engine

// CallbackAction identifies a notification sent to the engine callback.
type CallbackAction int

const (
	CallbackDebug CallbackAction = iota
	CallbackPluginAdded
	CallbackPluginRemoved
	CallbackParameterValueChanged
	CallbackProgramChanged
	CallbackMIDIProgramChanged
	CallbackNoteOn
	CallbackNoteOff
	CallbackShowGUI
	CallbackReloadInfo
	CallbackReloadParameters
	CallbackReloadPrograms
	CallbackReloadAll
)

// Callback receives engine notifications on the control thread. The meaning
// of the values depends on the action: for parameter changes value1 is the
// parameter id and value3 the new value, for note events value1 is the
// channel, value2 the note and value3 the velocity.
type Callback func(action CallbackAction, pluginID int, value1, value2 int, value3 float64)

// SetCallback installs the notification callback; nil removes it.
func (e *Engine) SetCallback(cb Callback) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.callback = cb
}

// Notify invokes the callback, if any. It must not be called from the
// audio thread.
func (e *Engine) Notify(action CallbackAction, pluginID int, value1, value2 int, value3 float64) {
	e.mu.Lock()
	cb := e.callback
	e.mu.Unlock()
	if cb != nil {
		cb(action, pluginID, value1, value2, value3)
	}
}

func (a CallbackAction) String() string {
	switch a {
	case CallbackDebug:
		return "debug"
	case CallbackPluginAdded:
		return "plugin-added"
	case CallbackPluginRemoved:
		return "plugin-removed"
	case CallbackParameterValueChanged:
		return "parameter-value-changed"
	case CallbackProgramChanged:
		return "program-changed"
	case CallbackMIDIProgramChanged:
		return "midi-program-changed"
	case CallbackNoteOn:
		return "note-on"
	case CallbackNoteOff:
		return "note-off"
	case CallbackShowGUI:
		return "show-gui"
	case CallbackReloadInfo:
		return "reload-info"
	case CallbackReloadParameters:
		return "reload-parameters"
	case CallbackReloadPrograms:
		return "reload-programs"
	case CallbackReloadAll:
		return "reload-all"
	}
	return "unknown"
}
