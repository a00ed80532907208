// Package oto plays an inrack.AudioProcessor on the default audio device.
package oto

import (
	"sync"

	"github.com/ebitengine/oto/v3"
	"github.com/inrack/inrack"
	"github.com/pkg/errors"
)

const (
	channels       = 2
	bytesPerSample = 4
	bytesPerFrame  = channels * bytesPerSample
)

type (
	Context struct {
		ctx    *oto.Context
		frames int
	}

	// Player pulls audio from a processor whenever the device needs it.
	Player struct {
		player *oto.Player
		reader *reader
	}

	reader struct {
		mu     sync.Mutex
		proc   inrack.AudioProcessor
		out    [][]float32
		closed bool
	}
)

var _ inrack.AudioContext = (*Context)(nil)

// NewContext opens the audio device for stereo float output. frames is the
// size of the processing blocks and a hint for the device buffer.
func NewContext(sampleRate, frames int) (*Context, error) {
	ctx, ready, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   sampleRate,
		ChannelCount: channels,
		Format:       oto.FormatFloat32LE,
	})
	if err != nil {
		return nil, errors.Wrap(err, "cannot create oto context")
	}
	<-ready
	return &Context{ctx: ctx, frames: frames}, nil
}

// Play starts playing the output of p. The player never ends on its own.
func (c *Context) Play(p inrack.AudioProcessor) inrack.AudioPlayer {
	r := &reader{proc: p, out: [][]float32{make([]float32, c.frames), make([]float32, c.frames)}}
	player := c.ctx.NewPlayer(r)
	player.Play()
	return &Player{player: player, reader: r}
}

// Close stops the player. The processor is not called after Close returns.
func (p *Player) Close() error {
	p.reader.mu.Lock()
	p.reader.closed = true
	p.reader.mu.Unlock()
	if err := p.player.Close(); err != nil {
		return errors.Wrap(err, "cannot close oto player")
	}
	return nil
}

// Read renders whole frames into buf, at most one processing block at a
// time.
func (r *reader) Read(buf []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	frames := min(len(buf)/bytesPerFrame, len(r.out[0]))
	if r.closed || frames == 0 {
		clear(buf[:frames*bytesPerFrame])
		return frames * bytesPerFrame, nil
	}
	r.proc.Process(nil, r.out, frames)
	interleaveFloat32LE(buf, r.out, frames)
	return frames * bytesPerFrame, nil
}
