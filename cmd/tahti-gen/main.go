package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/vsariola/tahti"
	"github.com/vsariola/tahti/acestep"
	"github.com/vsariola/tahti/config"
	"github.com/vsariola/tahti/library"
	"github.com/vsariola/tahti/oto"
	"github.com/vsariola/tahti/tracker"
	"github.com/vsariola/tahti/version"
)

func main() {
	songPath := flag.String("song", "", "Song file to generate into. By default, a new song is used.")
	outPath := flag.String("o", "", "Write the song to `file` after accepting the result.")
	trackName := flag.String("track", "", "Name of the audio track to generate into. By default, the first audio track.")
	clipReplace := flag.Bool("replace", false, "Replace the existing clip of the track instead of attaching a new one.")
	previewFor := flag.Duration("preview", 0, "Preview the result for this long before accepting it.")
	noAccept := flag.Bool("n", false, "Do not accept the result; only generate (and preview).")
	timeout := flag.Duration("timeout", 10*time.Minute, "Give up waiting for the generation after this long.")
	versionFlag := flag.Bool("v", false, "Print version.")
	flag.Usage = printUsage
	flag.Parse()
	if *versionFlag {
		fmt.Println(version.VersionOrHash)
		os.Exit(0)
	}
	prompt := strings.Join(flag.Args(), " ")
	if strings.TrimSpace(prompt) == "" {
		flag.Usage()
		os.Exit(1)
	}
	cfg := config.Load()
	if cfg.YmlError != nil {
		log.Printf("ignoring the user config: %v", cfg.YmlError)
	}
	if err := cfg.Validate(); err != nil {
		log.Printf("using defaults for invalid song settings: %v", err)
	}
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	client := acestep.NewClient(cfg.ACEStep.URL, cfg.ACEStep.APIKey, cfg.ACEStep.OutputDir, cfg.ACEStep.PollInterval)
	client.InferenceSteps = cfg.ACEStep.InferenceSteps
	client.AudioFormat = cfg.ACEStep.AudioFormat
	healthCtx, healthCancel := context.WithTimeout(ctx, time.Minute)
	defer healthCancel()
	if err := client.WaitForHealthy(healthCtx); err != nil {
		log.Fatalf("ACE-Step not available: %v", err)
	}
	services := tracker.Services{Generator: client}
	if dir, err := cfg.LibraryDir(); err == nil {
		if store, err := library.Open(dir); err == nil {
			services.Library = store
		} else {
			log.Printf("library disabled: %v", err)
		}
	}
	if *previewFor > 0 {
		audioContext, err := oto.NewContext()
		if err != nil {
			log.Fatalf("could not acquire oto AudioContext: %v", err)
		}
		services.Previewer = &oto.Previewer{Context: audioContext}
	}

	broker := tracker.NewBroker()
	model := tracker.NewModel(broker, services)
	defer model.Close()
	model.NewSong(cfg.NewSong())
	if *songPath != "" {
		f, err := os.Open(*songPath)
		if err != nil {
			log.Fatalf("could not open song: %v", err)
		}
		if err := model.ReadSong(f); err != nil {
			log.Fatalf("could not read song: %v", err)
		}
	}
	slot, err := findSlot(model, *trackName, *clipReplace)
	if err != nil {
		log.Fatal(err)
	}
	gen := model.NewGeneration(slot)
	if err := gen.Submit(prompt); err != nil {
		log.Fatal(err)
	}
	log.Printf("generating %.1fs of audio at %v BPM: %q", tracker.TargetDurationMs(model.Play().Tempo())/1000, model.Play().Tempo(), prompt)
	deadline := time.After(*timeout)
	for gen.State() == tracker.Generating {
		select {
		case msg := <-broker.ToModel:
			model.ProcessMsg(msg)
		case <-deadline:
			log.Fatal("generation timed out")
		case <-ctx.Done():
			log.Fatal("interrupted")
		}
	}
	if gen.State() != tracker.Generated {
		log.Fatalf("generation failed: %v", gen.Err())
	}
	log.Printf("generated %v", gen.Ref())
	if *previewFor > 0 {
		if err := gen.StartPreview(); err != nil {
			log.Printf("could not preview: %v", err)
		} else {
			preview(ctx, model, broker, gen, *previewFor)
		}
	}
	if *noAccept {
		gen.Cancel()
		return
	}
	clipID, err := gen.Accept()
	if err != nil {
		log.Fatalf("could not accept: %v", err)
	}
	log.Printf("committed clip %v", clipID)
	if services.Library != nil {
		waitLibrary(model, broker)
	}
	if *outPath != "" {
		f, err := os.Create(*outPath)
		if err != nil {
			log.Fatalf("could not create %v: %v", *outPath, err)
		}
		if err := model.WriteSong(f); err != nil {
			log.Fatalf("could not write song: %v", err)
		}
	}
}

func findSlot(model *tracker.Model, name string, replace bool) (tahti.AudioClipSlot, error) {
	for _, t := range model.Track().List() {
		if t.Kind != tahti.AudioTrack || (name != "" && t.Name != name) {
			continue
		}
		slot := tahti.AudioClipSlot{TrackID: t.ID}
		if t.Audio != nil {
			slot.StartBar = t.Audio.StartBar
			if replace {
				slot.ClipID = t.Audio.ID
			}
		}
		return slot, nil
	}
	if name != "" {
		return tahti.AudioClipSlot{}, fmt.Errorf("no audio track named %q", name)
	}
	return tahti.AudioClipSlot{TrackID: model.Track().Add(tahti.AudioTrack, "")}, nil
}

// preview processes messages while the preview is opened, then lets it play
// for d
func preview(ctx context.Context, model *tracker.Model, broker *tracker.Broker, gen *tracker.Generation, d time.Duration) {
	defer gen.StopPreview()
	var done <-chan time.Time
	for gen.State() == tracker.Previewing {
		if done == nil && gen.PreviewPlaying() {
			done = time.After(d)
		}
		select {
		case msg := <-broker.ToModel:
			model.ProcessMsg(msg)
		case <-done:
			return
		case <-ctx.Done():
			return
		}
	}
	if a, ok := model.Alerts().Last(); ok && a.Name == "Preview" {
		log.Print(a.Message)
	}
}

// waitLibrary processes messages until the save to the library has finished
func waitLibrary(model *tracker.Model, broker *tracker.Broker) {
	for {
		msg, ok := tracker.TimeoutReceive(broker.ToModel, 30*time.Second)
		if !ok {
			log.Print("library save timed out")
			return
		}
		model.ProcessMsg(msg)
		done := false
		model.Alerts().Iterate(func(_ int, a tracker.Alert) bool {
			if a.Name == "LibrarySave" {
				log.Print(a.Message)
				done = true
			}
			return !done
		})
		if done {
			return
		}
	}
}

func printUsage() {
	fmt.Fprintf(os.Stderr, "Tahti command line utility for generating audio clips.\nUsage: %s [flags] prompt...\n", os.Args[0])
	flag.PrintDefaults()
}
