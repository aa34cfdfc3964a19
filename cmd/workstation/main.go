// Command workstation is the desktop-grade voice-AI orchestration process:
// it parses a dataflow manifest, supervises the dataflow process group,
// connects a bridge per recognised mofa widget node, and runs the
// integration worker that serialises every UI command into that graph.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/voxdeck/voxdeck/pkg/audio"
	"github.com/voxdeck/voxdeck/pkg/bridge"
	"github.com/voxdeck/voxdeck/pkg/config"
	"github.com/voxdeck/voxdeck/pkg/dataflow"
	"github.com/voxdeck/voxdeck/pkg/dispatcher"
	"github.com/voxdeck/voxdeck/pkg/integration"
	"github.com/voxdeck/voxdeck/pkg/logging"
	"github.com/voxdeck/voxdeck/pkg/prefs"
	"github.com/voxdeck/voxdeck/pkg/state"
	"github.com/voxdeck/voxdeck/pkg/voice"
)

// ttsSampleRate and ttsBufferSeconds size the real-device audio engine: 32
// kHz is typical for TTS (spec §4.2), 30s of single-speaker buffering is
// ample headroom between the TTS worker and the speaker.
const (
	ttsSampleRate    = 32000
	ttsBufferSeconds = 30.0
)

func main() {
	cfg := config.Load()
	log := logging.New(cfg.LogLevel)

	if cfg.ManifestPath == "" {
		log.Error("DATAFLOW_MANIFEST must point at a dataflow manifest")
		os.Exit(1)
	}

	// Preferences and the voice catalog are independent files read once at
	// startup; loading them concurrently shaves their latency down to
	// whichever read is slower instead of the sum of both.
	var (
		store      prefs.Preferences
		catalog    *voice.Catalog
		catalogErr error
	)
	g := new(errgroup.Group)
	g.Go(func() error {
		store = prefs.LoadPreferences(prefsPath(cfg))
		return nil
	})
	g.Go(func() error {
		catalog, catalogErr = voice.Load(voicePath(cfg))
		if catalogErr != nil {
			log.Warn("voice catalog unavailable, TTS voice resolution will use defaults only", "error", catalogErr)
		}
		return nil
	})
	_ = g.Wait()

	shared := state.New()

	controller, err := dataflow.NewController(cfg.ManifestPath)
	if err != nil {
		log.Error("parse dataflow manifest", "error", err)
		os.Exit(1)
	}
	controller.SetLogger(log)

	envs := map[string]string{}
	for k, v := range cfg.EnvOverrides {
		envs[k] = v
	}
	if resolved, err := voice.ResolveWithLogger(catalog, os.Getenv("VOICE_CHARACTER"), log); err == nil {
		envs["REF_AUDIO"] = resolved.RefAudio
		envs["REF_TEXT"] = resolved.RefText
		if resolved.VitsONNXPath != "" {
			envs["VITS_ONNX_PATH"] = resolved.VitsONNXPath
		}
		if resolved.CodesPath != "" {
			envs["CODES_PATH"] = resolved.CodesPath
		}
		envs["SPEED_FACTOR"] = fmt.Sprintf("%g", resolved.Speed)
	} else {
		log.Warn("voice resolution failed, dataflow will use its own built-in defaults", "error", err)
	}
	controller.SetEnvs(envs)

	var levelMu sync.Mutex
	levels := map[string]float32{}

	player := audio.NewPlayer(ttsSampleRate, ttsBufferSeconds, log)
	defer player.Stop()

	transport := newStandInTransport()
	mic := bridge.NewMicInputBridge("mofa-mic-input", transport)

	factory := newBridgeFactory(transport, shared, player, mic, func(id string, level float32) {
		levelMu.Lock()
		levels[id] = level
		levelMu.Unlock()
	})

	disp := dispatcher.WithSharedState(controller, shared, factory)
	disp.SetLogger(log)

	worker := integration.NewWorker(disp, shared)
	worker.SetLogger(log)
	worker.PromptBridgeIDs = []string{"mofa-prompt-input"}
	worker.MicBridgeID = "mofa-mic-input"

	go worker.Run()
	defer func() {
		worker.Stop()
		<-worker.Done()
	}()

	if len(store.EnabledProviders()) == 0 {
		log.Warn("no providers enabled in preferences, relying on manifest-level env configuration")
	}

	if ok := worker.Send(integration.Command{Kind: integration.CmdStartDataflow, Path: cfg.ManifestPath, EnvVars: envs}); !ok {
		log.Error("failed to enqueue dataflow start")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if dev, err := startAudioDevice(ttsSampleRate, player, mic); err != nil {
		log.Warn("real audio device unavailable, capture/playback will be silent", "error", err)
	} else {
		defer dev.Stop()
	}
	go pumpAudioQueue(ctx, shared.Audio, player)

	pollEventsAndStatus(ctx, worker, shared, log, time.Duration(cfg.PollIntervalSeconds)*time.Second)

	log.Info("shutdown requested, stopping dataflow")
	worker.Send(integration.Command{Kind: integration.CmdStopDataflowWithGrace, GraceSeconds: uint64(dataflow.DefaultGrace.Seconds())})
	// Give the worker a moment to drive the graceful stop before Run exits
	// via the deferred Stop/Done above.
	time.Sleep(500 * time.Millisecond)
}

// pollEventsAndStatus blocks, periodically draining the worker's event
// queue and logging dataflow lifecycle/error events, until ctx is
// cancelled (SIGINT/SIGTERM).
func pollEventsAndStatus(ctx context.Context, worker *integration.Worker, shared *state.SharedState, log *logging.Adapter, interval time.Duration) {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for _, evt := range worker.PollEvents() {
				switch evt.Kind {
				case integration.EvtDataflowStarted:
					log.Info("dataflow started", "id", evt.DataflowID)
				case integration.EvtDataflowStopped:
					log.Info("dataflow stopped")
				case integration.EvtError:
					log.Error("dataflow error", "message", evt.ErrorMessage)
				}
			}
			if entries, dirty := shared.Logs.ReadIfDirty(); dirty {
				for _, e := range entries {
					log.Info("dataflow log", "node", e.SourceNode, "level", e.Level, "message", e.Message)
				}
			}
		}
	}
}

func prefsPath(cfg config.Config) string {
	if cfg.PreferencesPath != "" {
		return cfg.PreferencesPath
	}
	return prefs.PreferencesPath()
}

func voicePath(cfg config.Config) string {
	if cfg.VoicesConfigPath != "" {
		return cfg.VoicesConfigPath
	}
	return voice.ConfigPath()
}

// newBridgeFactory maps each recognised mofa-* node id to its bridge
// implementation. Every bridge here is built against a stand-in Transport:
// this process has no real dora dynamic-node client to drive (see
// pkg/bridge's package doc), so the factory wires the same recording-style
// transport the test suite uses in production code, ready to be swapped for
// a real client without touching callers.
//
// The audio-player and mic-input bridges are special-cased to the player
// and mic instances the caller already wired to the real output/capture
// device (see startAudioDevice), rather than each getting a fresh instance:
// the dataflow graph and the physical device must drive the same object.
func newBridgeFactory(transport bridge.Transport, shared *state.SharedState, player *audio.Player, mic *bridge.MicInputBridge, onLevel func(string, float32)) dispatcher.BridgeFactory {
	return func(spec dataflow.MofaNodeSpec, parsed *dataflow.ParsedDataflow) (bridge.Bridge, bool) {
		switch {
		case spec.ID == "mofa-audio-player":
			clearMute := func() { player.ForceMuteFlag().Store(false) }
			return bridge.NewAudioPlayerBridge(spec.ID, transport, shared, clearMute), true
		case spec.ID == "mofa-prompt-input":
			return bridge.NewPromptInputBridge(spec.ID, transport), true
		case spec.ID == "mofa-system-log":
			return bridge.NewSystemLogBridge(spec.ID, transport, shared, logInputNames(parsed)), true
		case spec.ID == "mofa-mic-input":
			return mic, true
		case spec.ID == "mofa-chat-viewer":
			return bridge.NewChatViewerBridge(spec.ID, transport, shared), true
		case strings.HasPrefix(spec.ID, "mofa-participant-panel"):
			b := bridge.NewParticipantPanelBridge(spec.ID, transport, inputIDs(spec))
			b.OnLevel = onLevel
			return b, true
		default:
			return nil, false
		}
	}
}

// pumpAudioQueue periodically drains the shared audio handoff queue (C3)
// into the player, the same role the teacher's cmd/agent filled by writing
// directly into its playback buffer from the streaming callback. Here the
// producer is the dataflow's audio-player bridge instead of a network
// stream, so a short poll interval stands in for a blocking channel read.
func pumpAudioQueue(ctx context.Context, queue *state.AudioQueue, player *audio.Player) {
	ticker := time.NewTicker(20 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for _, chunk := range queue.Drain() {
				var speaker, utterance string
				if chunk.SpeakerID != nil {
					speaker = *chunk.SpeakerID
				}
				if chunk.UtteranceID != nil {
					utterance = *chunk.UtteranceID
				}
				player.WriteAudio(chunk.Samples, speaker, utterance)
			}
		}
	}
}

func inputIDs(spec dataflow.MofaNodeSpec) []string {
	ids := make([]string, len(spec.Inputs))
	for i, in := range spec.Inputs {
		ids[i] = in.ID
	}
	return ids
}

func logInputNames(parsed *dataflow.ParsedDataflow) []string {
	names := make([]string, 0, len(parsed.LogSources))
	for _, s := range parsed.LogSources {
		names = append(names, s.OutputID)
	}
	return names
}
