package main

import (
	"bytes"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/vsariola/tahti"
	"github.com/vsariola/tahti/cmd"
	"github.com/vsariola/tahti/config"
	"github.com/vsariola/tahti/oto"
	"github.com/vsariola/tahti/tracker"
	"github.com/vsariola/tahti/version"
)

func main() {
	help := flag.Bool("h", false, "Show help.")
	directory := flag.String("o", "", "Directory where to output all files. The directory and its parents are created if needed. By default, files are placed in the working directory.")
	play := flag.Bool("p", false, "Play the loop (default behaviour when no other output is defined).")
	loops := flag.Int("n", 1, "Number of loop passes to play or render.")
	isSpec := flag.Bool("spec", false, "The input is a SongSpec json, not a song file.")
	wavOut := flag.Bool("w", false, "Bounce the click track of the loop to a .wav file.")
	pcm := flag.Bool("c", false, "Convert audio to 16-bit signed PCM when outputting.")
	midOut := flag.Bool("mid", false, "Export the MIDI clips of the song as .mid files.")
	importMid := flag.String("import", "", "Import the notes of a .mid `file` into the first MIDI track before playing or exporting.")
	midiOut := flag.String("midi", "", "Send the notes of the MIDI tracks to the MIDI output port whose name starts with this prefix, while playing. Use \"*\" for the first port.")
	listMidi := flag.Bool("list-midi", false, "List the MIDI output ports and exit.")
	versionFlag := flag.Bool("v", false, "Print version.")
	flag.Usage = printUsage
	flag.Parse()
	if *versionFlag {
		fmt.Println(version.VersionOrHash)
		os.Exit(0)
	}
	if *help {
		flag.Usage()
		os.Exit(0)
	}
	if *listMidi {
		for _, name := range cmd.MidiOutputs() {
			fmt.Println(name)
		}
		os.Exit(0)
	}
	if !*wavOut && !*midOut {
		*play = true
	}
	cfg := config.Load()
	if cfg.YmlError != nil {
		log.Printf("ignoring the user config: %v", cfg.YmlError)
	}
	if err := cfg.Validate(); err != nil {
		log.Printf("using defaults for invalid song settings: %v", err)
	}
	broker := tracker.NewBroker()
	model := tracker.NewModel(broker, tracker.Services{})
	defer model.Close()
	model.NewSong(cfg.NewSong())
	model.Play().Metronome().SetValue(cfg.Audio.Metronome)
	name := "tahti"
	if flag.NArg() > 0 {
		name = strings.TrimSuffix(filepath.Base(flag.Arg(0)), filepath.Ext(flag.Arg(0)))
		if err := load(model, flag.Arg(0), *isSpec); err != nil {
			log.Fatal(err)
		}
	}
	if *importMid != "" {
		if err := importMidi(model, *importMid); err != nil {
			log.Fatal(err)
		}
	}
	output := func(extension string, contents []byte) error {
		dir := *directory
		if dir != "" {
			if err := os.MkdirAll(dir, os.ModePerm); err != nil {
				return fmt.Errorf("could not create output directory %v: %v", dir, err)
			}
		}
		f := filepath.Join(dir, name+extension)
		if err := os.WriteFile(f, contents, 0644); err != nil {
			return fmt.Errorf("could not write file %v: %v", f, err)
		}
		log.Printf("wrote %v", f)
		return nil
	}
	song := model.Song()
	loopSeconds := float64(song.LoopLength()) * tahti.SecondsPerBar(song.BPM) * float64(max(*loops, 1))
	if *midOut {
		for _, t := range song.Tracks {
			if t.Kind != tahti.MidiTrack || t.Midi == nil {
				continue
			}
			var b bytes.Buffer
			if err := model.ExportMidi(t.ID, &b); err != nil {
				log.Fatalf("could not export track %v: %v", t.Name, err)
			}
			if err := output("-"+fileName(t.Name)+".mid", b.Bytes()); err != nil {
				log.Fatal(err)
			}
		}
	}
	if *wavOut {
		buffer := bounce(song, cfg.Audio.BufferLength, loopSeconds)
		wav, err := buffer.Wav(*pcm)
		if err != nil {
			log.Fatalf("could not generate .wav file: %v", err)
		}
		if err := output(".wav", wav); err != nil {
			log.Fatal(err)
		}
	}
	if *play {
		if err := playLoop(model, broker, song, loopSeconds, *midiOut); err != nil {
			log.Fatal(err)
		}
	}
}

func load(model *tracker.Model, path string, isSpec bool) error {
	if isSpec {
		b, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("could not read file %v: %v", path, err)
		}
		spec, err := tahti.ParseSongSpec(b)
		if err != nil {
			return fmt.Errorf("could not parse song spec %v: %v", path, err)
		}
		model.ApplySongSpec(spec)
		log.Printf("song spec: %v BPM, %v, genre %q", spec.Tempo(), spec.KeySignature(), spec.GenreName())
		return nil
	}
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("could not open file %v: %v", path, err)
	}
	return model.ReadSong(f)
}

// importMidi reads a .mid file into the first MIDI track, adding one if the
// song has none
func importMidi(model *tracker.Model, path string) error {
	trackID := ""
	for _, t := range model.Track().List() {
		if t.Kind == tahti.MidiTrack {
			trackID = t.ID
			break
		}
	}
	if trackID == "" {
		trackID = model.Track().Add(tahti.MidiTrack, "")
	}
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("could not open file %v: %v", path, err)
	}
	defer f.Close()
	if err := model.ImportMidi(trackID, f); err != nil {
		return fmt.Errorf("could not import %v: %v", path, err)
	}
	log.Printf("imported %v", path)
	return nil
}

// bounce renders the loop offline, without an audio device
func bounce(song tahti.Song, bufferLength int, seconds float64) tahti.AudioBuffer {
	broker := tracker.NewBroker()
	player := tracker.NewPlayer(broker, song, nil)
	broker.ToPlayer <- tracker.MetronomeMsg{On: true}
	broker.ToPlayer <- tracker.StartMsg{}
	frames := int(seconds * tahti.SampleRate)
	ret := make(tahti.AudioBuffer, 0, frames)
	buf := make(tahti.AudioBuffer, max(bufferLength, 1))
	for len(ret) < frames {
		buf = buf[:min(cap(buf), frames-len(ret))]
		player.Process(buf)
		ret = append(ret, buf...)
		drain(broker)
	}
	return ret
}

func drain(broker *tracker.Broker) {
	for {
		select {
		case msg := <-broker.ToModel:
			if b, ok := msg.Data.(*tahti.AudioBuffer); ok {
				broker.PutAudioBuffer(b)
			}
		default:
			return
		}
	}
}

func playLoop(model *tracker.Model, broker *tracker.Broker, song tahti.Song, seconds float64, midiPrefix string) error {
	var sink tracker.NoteSink
	if midiPrefix != "" {
		if midiPrefix == "*" {
			midiPrefix = ""
		}
		s, closer, err := cmd.OpenMidiOutput(midiPrefix)
		if err != nil {
			return fmt.Errorf("could not open MIDI output: %v", err)
		}
		defer closer.Close()
		sink = s
	}
	player := tracker.NewPlayer(broker, song, sink)
	var audioContext *oto.OtoContext
	err := player.Transport().Unlock(func() (err error) {
		audioContext, err = oto.NewContext()
		return err
	})
	if err != nil {
		return fmt.Errorf("could not acquire oto AudioContext: %v", err)
	}
	closer := audioContext.Play(func(buf tahti.AudioBuffer) error {
		player.Process(buf)
		return nil
	})
	defer closer.Close()
	model.Play().Start().Do()
	deadline := time.Now().Add(time.Duration(seconds * float64(time.Second)))
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()
	lastBar := -1
	for time.Now().Before(deadline) {
		select {
		case msg := <-broker.ToModel:
			model.ProcessMsg(msg)
			continue
		case <-ticker.C:
		}
		if p := model.Play().Position(); p.Bar != lastBar && model.Play().Running() {
			lastBar = p.Bar
			log.Printf("bar %d (%.0f%% of the loop)", p.Bar, model.Play().LoopProgress()*100)
		}
		model.Alerts().Iterate(func(_ int, a tracker.Alert) bool {
			if a.FadeLevel == 0 && a.Duration > 0 { // not seen yet
				log.Print(a.Message)
			}
			return true
		})
		model.Alerts().Update(100 * time.Millisecond)
	}
	model.Play().Stop().Do()
	return nil
}

func fileName(s string) string {
	return strings.Map(func(r rune) rune {
		if r == '/' || r == '\\' || r == ' ' {
			return '_'
		}
		return r
	}, s)
}

func printUsage() {
	fmt.Fprintf(os.Stderr, "Tahti command line utility for playing song files.\nUsage: %s [flags] [path]\n", os.Args[0])
	flag.PrintDefaults()
}
