package main

import (
	"context"
	"flag"
	"fmt"
	"net"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/alecthomas/kong"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/golang/glog"
	"github.com/inrack/inrack"
	"github.com/inrack/inrack/cmd"
	"github.com/inrack/inrack/engine"
	"github.com/inrack/inrack/oto"
	"github.com/inrack/inrack/rack"
	"github.com/inrack/inrack/version"
	"github.com/pkg/errors"
	"gitlab.com/gomidi/midi/v2"
	"golang.org/x/sync/errgroup"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

type (
	CLI struct {
		Verbose int         `short:"v" help:"Log verbosity."`
		Version VersionFlag `help:"Print version."`

		List   ListCmd   `cmd:"" help:"List the built-in plugin types."`
		Render RenderCmd `cmd:"" help:"Render a rack offline to a .wav or .raw file."`
		Play   PlayCmd   `cmd:"" help:"Play a rack on the default audio device."`
		MIDI   MIDICmd   `cmd:"" name:"midi" help:"List the MIDI input devices."`
	}

	VersionFlag bool

	ListCmd struct {
		Programs bool `short:"p" help:"Also list the MIDI programs of every type."`
	}

	RenderCmd struct {
		Rack   string        `arg:"" type:"existingfile" help:"Rack file."`
		Output string        `short:"o" type:"path" help:"Output file. Defaults to the rack file name with a .wav extension."`
		Length time.Duration `short:"l" default:"4s" help:"Length of the render."`
		Notes  []string      `short:"n" name:"note" help:"Note to play, as KEY:START:LENGTH[:VELOCITY] with times in seconds. Repeatable."`
		Raw    bool          `short:"r" help:"Write raw samples instead of .wav."`
		PCM    bool          `short:"c" help:"Convert to 16-bit signed PCM."`
	}

	PlayCmd struct {
		Rack       string        `arg:"" type:"existingfile" help:"Rack file."`
		MIDI       string        `short:"m" name:"midi" help:"Listen to the first MIDI input whose name starts with this prefix; * takes the first input."`
		OSC        string        `help:"Serve OSC control messages on this UDP address, e.g. :22752."`
		Controller string        `help:"Send OSC notifications to this host:port."`
		Idle       time.Duration `default:"30ms" help:"Interval of the idle loop reporting changes."`
	}

	MIDICmd struct{}
)

func (v VersionFlag) BeforeApply(app *kong.Kong) error {
	fmt.Fprintln(app.Stdout, version.String())
	app.Exit(0)
	return nil
}

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	errorStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#A40000"))
)

func main() {
	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("inrack"),
		kong.Description("Host for native audio and MIDI plugins."),
		kong.UsageOnError(),
	)
	// glog reads its settings from the standard flag set
	flag.CommandLine.Parse(nil)
	flag.Set("logtostderr", "true")
	flag.Set("v", strconv.Itoa(cli.Verbose))
	defer glog.Flush()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "%s %v\n", errorStyle.Render("Error:"), err)
		glog.Flush()
		os.Exit(1)
	}
}

// run executes the selected command and finalizes the plugin types it
// used. Commands close their racks before returning.
func run(ctx *kong.Context) error {
	defer inrack.DefaultRegistry.Shutdown()
	return ctx.Run()
}

func (c *ListCmd) Run() error {
	title := cases.Title(language.English)
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("LABEL", "NAME", "CATEGORY", "MAKER", "AUDIO", "MIDI", "PARAMS").
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})
	for _, d := range inrack.DefaultRegistry.Descriptors() {
		ai, ao, mi, mo, params := d.Counts()
		t.Row(d.Label, d.Name, title.String(d.Category.String()), d.Maker,
			fmt.Sprintf("%d/%d", ai, ao), fmt.Sprintf("%d/%d", mi, mo), strconv.Itoa(params))
	}
	fmt.Println(t)
	if !c.Programs {
		return nil
	}
	for _, d := range inrack.DefaultRegistry.Descriptors() {
		inrack.DefaultRegistry.InitializeIfNeeded(d)
		if len(d.MIDIPrograms) == 0 {
			continue
		}
		fmt.Println(headerStyle.Render(d.Label))
		for i, p := range d.MIDIPrograms {
			fmt.Printf("  %3d  %d:%-3d %s\n", i, p.Bank, p.Program, p.Name)
		}
	}
	return nil
}

func (c *MIDICmd) Run() error {
	names, err := cmd.MIDIInputs()
	if err != nil {
		return err
	}
	for _, name := range names {
		fmt.Println(name)
	}
	return nil
}

func (c *RenderCmd) Run() error {
	r, err := cmd.NewRack(c.Rack)
	if err != nil {
		return err
	}
	defer r.Close()
	sr := r.SampleRate()
	var events []rack.Event
	for _, s := range c.Notes {
		on, off, err := parseNote(s, sr)
		if err != nil {
			return err
		}
		events = append(events, on, off)
	}
	frames := int(c.Length.Seconds() * sr)
	buf := r.Render(frames, events)

	var data []byte
	ext := ".wav"
	if c.Raw {
		ext = ".raw"
		data, err = inrack.Raw(buf, c.PCM)
	} else {
		data, err = inrack.Wav(buf, inrack.AudioFormat{SampleRate: int(sr), Channels: rack.Channels}, c.PCM)
	}
	if err != nil {
		return errors.Wrap(err, "could not encode audio")
	}
	out := c.Output
	if out == "" {
		out = strings.TrimSuffix(c.Rack, filepath.Ext(c.Rack)) + ext
	}
	if err := os.WriteFile(out, data, 0644); err != nil {
		return errors.Wrapf(err, "could not write file %v", out)
	}
	glog.Infof("rendered %v of audio to %v", c.Length, out)
	return nil
}

// parseNote parses KEY:START:LENGTH[:VELOCITY] into a note on and the
// matching note off on channel 0.
func parseNote(s string, sampleRate float64) (on, off rack.Event, err error) {
	fields := strings.Split(s, ":")
	if len(fields) != 3 && len(fields) != 4 {
		return on, off, errors.Errorf("invalid note %q, want KEY:START:LENGTH[:VELOCITY]", s)
	}
	key, err := strconv.ParseUint(fields[0], 10, 7)
	if err != nil {
		return on, off, errors.Wrapf(err, "invalid key in note %q", s)
	}
	start, err := strconv.ParseFloat(fields[1], 64)
	if err != nil || start < 0 {
		return on, off, errors.Errorf("invalid start in note %q", s)
	}
	length, err := strconv.ParseFloat(fields[2], 64)
	if err != nil || length < 0 {
		return on, off, errors.Errorf("invalid length in note %q", s)
	}
	velocity := uint64(100)
	if len(fields) == 4 {
		if velocity, err = strconv.ParseUint(fields[3], 10, 7); err != nil || velocity == 0 {
			return on, off, errors.Errorf("invalid velocity in note %q", s)
		}
	}
	on = rack.Event{Frame: int(start * sampleRate), Msg: midi.NoteOn(0, uint8(key), uint8(velocity))}
	off = rack.Event{Frame: int((start + length) * sampleRate), Msg: midi.NoteOff(0, uint8(key))}
	return on, off, nil
}

func (c *PlayCmd) Run() error {
	r, err := cmd.NewRack(c.Rack)
	if err != nil {
		return err
	}
	defer r.Close()
	if c.Controller != "" {
		if err := r.Engine().RegisterOSCController(c.Controller); err != nil {
			return err
		}
	}

	audio, err := oto.NewContext(int(r.SampleRate()), r.Engine().BufferSize())
	if err != nil {
		return err
	}
	player := audio.Play(r)
	defer player.Close()

	if c.MIDI != "" {
		in, err := cmd.OpenMIDIInput(strings.TrimSuffix(c.MIDI, "*"), r.SendMIDI)
		if err != nil {
			return err
		}
		defer in.Close()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	g, ctx := errgroup.WithContext(ctx)
	if c.OSC != "" {
		d := engine.NewExactDispatcher()
		if err := r.AddOSCHandlers(d); err != nil {
			return err
		}
		conn, err := net.ListenPacket("udp", c.OSC)
		if err != nil {
			return errors.Wrap(err, "could not listen for OSC")
		}
		glog.Infof("serving OSC on %v", conn.LocalAddr())
		g.Go(func() error { return engine.ServeOSC(ctx, conn, d) })
	}
	g.Go(func() error {
		ticker := time.NewTicker(c.Idle)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
				r.Idle()
			}
		}
	})
	glog.Infof("playing %v, interrupt to stop", c.Rack)
	return g.Wait()
}
