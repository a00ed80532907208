package inrack

// AudioProcessor renders frames of planar audio from in into out. in may
// be nil. Implementations run on the audio thread.
type AudioProcessor interface {
	Process(in, out [][]float32, frames int)
}

// AudioPlayer plays the output of an AudioProcessor until closed.
type AudioPlayer interface {
	Close() error
}

// AudioContext is an audio output device.
type AudioContext interface {
	Play(p AudioProcessor) AudioPlayer
}
