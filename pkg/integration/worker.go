package integration

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"time"

	"github.com/voxdeck/voxdeck/pkg/bridge"
	"github.com/voxdeck/voxdeck/pkg/dataflow"
	"github.com/voxdeck/voxdeck/pkg/dispatcher"
	"github.com/voxdeck/voxdeck/pkg/state"
)

const (
	commandChanCap     = 100
	eventChanCap       = 100
	statusPollInterval = 2 * time.Second
	startupGrace       = 10 * time.Second
	loopSleep          = 10 * time.Millisecond
	retryAttempts      = 20
	retryInterval      = 150 * time.Millisecond
)

// Worker is the single background task owning the Dispatcher. It serialises
// every command received over a bounded channel and emits only the three
// control-flow events back to the UI; all other state flows through
// SharedState.
type Worker struct {
	dispatcher *dispatcher.Dispatcher
	shared     *state.SharedState

	// PromptBridgeIDs lists the primary prompt-input bridge id followed by
	// any fallback ids to try if the primary isn't registered.
	PromptBridgeIDs []string
	MicBridgeID     string

	commands chan Command
	events   chan Event
	stop     chan struct{}
	done     chan struct{}

	mu       sync.Mutex
	torndown bool
	asrProcs map[string]*exec.Cmd
	log      Logger
}

// NewWorker constructs a Worker bound to an already-built Dispatcher.
func NewWorker(d *dispatcher.Dispatcher, shared *state.SharedState) *Worker {
	return &Worker{
		dispatcher: d,
		shared:     shared,
		commands:   make(chan Command, commandChanCap),
		events:     make(chan Event, eventChanCap),
		stop:       make(chan struct{}),
		done:       make(chan struct{}),
		asrProcs:   map[string]*exec.Cmd{},
		log:        &NoOpLogger{},
	}
}

// SetLogger replaces the Worker's logger (a NoOpLogger by default).
func (w *Worker) SetLogger(l Logger) {
	if l == nil {
		l = &NoOpLogger{}
	}
	w.log = l
}

func (w *Worker) logger() Logger {
	if w.log == nil {
		return &NoOpLogger{}
	}
	return w.log
}

// Send enqueues a command without blocking. It returns false (rather than an
// error) if the channel is full or the worker is tearing down — callers are
// expected to surface that as a log line, not a hard failure.
func (w *Worker) Send(cmd Command) bool {
	w.mu.Lock()
	torndown := w.torndown
	w.mu.Unlock()
	if torndown {
		return false
	}
	select {
	case w.commands <- cmd:
		return true
	default:
		return false
	}
}

// PollEvents drains and returns every event queued since the last call.
func (w *Worker) PollEvents() []Event {
	var out []Event
	for {
		select {
		case e := <-w.events:
			out = append(out, e)
		default:
			return out
		}
	}
}

// Stop signals the worker to exit; it does not wait for it.
func (w *Worker) Stop() {
	w.mu.Lock()
	if w.torndown {
		w.mu.Unlock()
		return
	}
	w.torndown = true
	w.mu.Unlock()
	close(w.stop)
}

// Done is closed once the worker's main loop has returned.
func (w *Worker) Done() <-chan struct{} { return w.done }

// Run is the worker's main loop. It returns when Stop is called.
func (w *Worker) Run() {
	defer close(w.done)

	var startedAt time.Time
	var running bool
	lastStatusPoll := time.Now()

	for {
		select {
		case <-w.stop:
			return
		default:
		}

		w.drainCommands(&startedAt, &running)

		if running && time.Since(startedAt) > startupGrace && time.Since(lastStatusPoll) > statusPollInterval {
			lastStatusPoll = time.Now()
			w.pollControllerStatus(&running)
		}

		w.propagateStatusErrors()

		time.Sleep(loopSleep)
	}
}

func (w *Worker) drainCommands(startedAt *time.Time, running *bool) {
	for {
		select {
		case cmd := <-w.commands:
			w.handle(cmd, startedAt, running)
		default:
			return
		}
	}
}

func (w *Worker) handle(cmd Command, startedAt *time.Time, running *bool) {
	switch cmd.Kind {
	case CmdStartDataflow:
		id, err := w.dispatcher.Start(cmd.Path)
		if err != nil {
			w.logger().Error("start dataflow failed", "path", cmd.Path, "error", err)
			w.emitError(err.Error())
			return
		}
		w.logger().Info("dataflow started", "id", id)
		*startedAt = time.Now()
		*running = true
		w.emit(Event{Kind: EvtDataflowStarted, DataflowID: id})

	case CmdStopDataflow:
		if err := w.dispatcher.Stop(); err != nil {
			w.emitError(err.Error())
		}
		*running = false
		w.emit(Event{Kind: EvtDataflowStopped})

	case CmdStopDataflowWithGrace:
		if err := w.dispatcher.StopWithGrace(time.Duration(cmd.GraceSeconds) * time.Second); err != nil {
			w.emitError(err.Error())
		}
		*running = false
		w.emit(Event{Kind: EvtDataflowStopped})

	case CmdForceStopDataflow:
		if err := w.dispatcher.ForceStop(); err != nil {
			w.emitError(err.Error())
		}
		*running = false
		w.emit(Event{Kind: EvtDataflowStopped})

	case CmdSendPrompt:
		w.sendToBridge(w.PromptBridgeIDs, "prompt", bridge.Data{Kind: bridge.KindText, Text: cmd.Message})

	case CmdSendControl:
		w.sendToBridge(w.PromptBridgeIDs, "control", bridge.Data{
			Kind:    bridge.KindControl,
			Control: bridge.ControlCommand{Command: cmd.ControlCommand},
		})

	case CmdStartRecording:
		w.sendToBridge([]string{w.MicBridgeID}, "control", bridge.Data{
			Kind:    bridge.KindControl,
			Control: bridge.ControlCommand{Command: "start_recording"},
		})

	case CmdStopRecording:
		w.sendToBridge([]string{w.MicBridgeID}, "control", bridge.Data{
			Kind:    bridge.KindControl,
			Control: bridge.ControlCommand{Command: "stop_recording"},
		})

	case CmdSetAecEnabled:
		w.sendToBridge([]string{w.MicBridgeID}, "control", bridge.Data{
			Kind: bridge.KindControl,
			Control: bridge.ControlCommand{
				Command: "set_aec_enabled",
				Params:  map[string]any{"enabled": cmd.AecEnabled},
			},
		})

	case CmdConnectAsrEngine:
		if err := w.connectAsrEngine(cmd.Engine); err != nil {
			w.emitError(err.Error())
		}

	case CmdDisconnectAsrEngine:
		w.disconnectAsrEngine(cmd.Engine)

	case CmdUpdateBufferStatus:
		w.sendToBridge([]string{"mofa-audio-player"}, "buffer_status", bridge.Data{
			Kind: bridge.KindControl,
			Control: bridge.ControlCommand{
				Command: "update_buffer_status",
				Params:  map[string]any{"fill_percentage": cmd.FillPercentage},
			},
		})
	}
}

// sendToBridge resolves the first candidate id that is registered, then
// retries send up to retryAttempts times, retryInterval apart, to tolerate
// the dataflow's warm-up window.
func (w *Worker) sendToBridge(candidateIDs []string, outputID string, data bridge.Data) bool {
	var b bridge.Bridge
	for _, id := range candidateIDs {
		if id == "" {
			continue
		}
		if found, ok := w.dispatcher.GetBridge(id); ok {
			b = found
			break
		}
	}
	if b == nil {
		w.logger().Warn("dataflow not running", "candidates", candidateIDs)
		w.shared.Logs.Push(state.LogEntry{
			Level:   state.LevelWarning,
			Message: "dataflow not running",
		})
		return false
	}

	for attempt := 0; attempt < retryAttempts; attempt++ {
		if err := b.Send(outputID, data); err == nil {
			return true
		}
		time.Sleep(retryInterval)
	}
	w.logger().Warn("gave up sending to bridge", "node", b.NodeID(), "attempts", retryAttempts)
	w.shared.Logs.Push(state.LogEntry{
		Level:   state.LevelWarning,
		Message: fmt.Sprintf("gave up sending to %s after %d attempts", b.NodeID(), retryAttempts),
	})
	return false
}

func (w *Worker) pollControllerStatus(running *bool) {
	if w.dispatcher.ControllerStatus() != dataflow.StatusRunning {
		*running = false
		w.emit(Event{Kind: EvtDataflowStopped})
	}
}

func (w *Worker) propagateStatusErrors() {
	status, dirty := w.shared.Status.ReadIfDirty()
	if !dirty || status.LastError == "" {
		return
	}
	w.emitError(status.LastError)
}

func (w *Worker) emit(e Event) {
	select {
	case w.events <- e:
	default:
	}
}

func (w *Worker) emitError(msg string) {
	w.emit(Event{Kind: EvtError, ErrorMessage: msg})
}

// connectAsrEngine resolves the named ASR worker binary and spawns it.
func (w *Worker) connectAsrEngine(engine string) error {
	path, err := ResolveAsrBinary(engine)
	if err != nil {
		return err
	}
	cmd := exec.Command(path)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("integration: start asr engine %q: %w", engine, err)
	}
	w.mu.Lock()
	w.asrProcs[engine] = cmd
	w.mu.Unlock()
	return nil
}

// disconnectAsrEngine kills a previously connected ASR worker, if any.
func (w *Worker) disconnectAsrEngine(engine string) {
	w.mu.Lock()
	cmd, ok := w.asrProcs[engine]
	delete(w.asrProcs, engine)
	w.mu.Unlock()
	if !ok || cmd.Process == nil {
		return
	}
	_ = cmd.Process.Kill()
}

// ResolveAsrBinary searches, in order: ${cwd}/node-hub/{binary}/target/{release|debug}/{binary},
// {cwd}/target/{release|debug}/{binary}, the same two patterns applied at
// one and two parent directories up, then PATH.
func ResolveAsrBinary(binary string) (string, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("integration: getwd: %w", err)
	}

	bases := []string{cwd, filepath.Dir(cwd), filepath.Dir(filepath.Dir(cwd))}
	for _, base := range bases {
		for _, candidate := range []string{
			filepath.Join(base, "node-hub", binary, "target", "release", binary),
			filepath.Join(base, "node-hub", binary, "target", "debug", binary),
			filepath.Join(base, "target", "release", binary),
			filepath.Join(base, "target", "debug", binary),
		} {
			if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
				return candidate, nil
			}
		}
	}

	if path, err := exec.LookPath(binary); err == nil {
		return path, nil
	}

	return "", fmt.Errorf("integration: asr engine binary %q not found", binary)
}
