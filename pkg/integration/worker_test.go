package integration

import (
	"errors"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/voxdeck/voxdeck/pkg/bridge"
	"github.com/voxdeck/voxdeck/pkg/dataflow"
	"github.com/voxdeck/voxdeck/pkg/dispatcher"
	"github.com/voxdeck/voxdeck/pkg/state"
)

const manifestOneWidget = `
nodes:
  - id: mofa-prompt-input
    path: dynamic
`

// flakyBridge fails Send a fixed number of times before succeeding, to
// exercise the retry helper.
type flakyBridge struct {
	id          string
	failUntil   int32
	attempts    int32
	connected   bool
	lastSend    bridge.Data
	mu          sync.Mutex
}

func (f *flakyBridge) NodeID() string            { return f.id }
func (f *flakyBridge) State() bridge.BridgeState {
	if f.connected {
		return bridge.Connected
	}
	return bridge.Disconnected
}
func (f *flakyBridge) Connect() error    { f.connected = true; return nil }
func (f *flakyBridge) Disconnect() error { f.connected = false; return nil }
func (f *flakyBridge) IsConnected() bool { return f.connected }
func (f *flakyBridge) Send(outputID string, data bridge.Data) error {
	n := atomic.AddInt32(&f.attempts, 1)
	if n <= f.failUntil {
		return errors.New("not warmed up yet")
	}
	f.mu.Lock()
	f.lastSend = data
	f.mu.Unlock()
	return nil
}
func (f *flakyBridge) Receive(string, bridge.Data) error { return nil }
func (f *flakyBridge) ExpectedInputs() []string           { return nil }
func (f *flakyBridge) ExpectedOutputs() []string          { return []string{"prompt", "control"} }

func writeManifest(t *testing.T, content string) string {
	t.Helper()
	f, err := os.CreateTemp(t.TempDir(), "dataflow-*.yml")
	if err != nil {
		t.Fatalf("create temp manifest: %v", err)
	}
	defer f.Close()
	if _, err := f.WriteString(content); err != nil {
		t.Fatalf("write temp manifest: %v", err)
	}
	return f.Name()
}

func newTestWorker(t *testing.T, fb *flakyBridge) (*Worker, *dispatcher.Dispatcher, string) {
	t.Helper()
	path := writeManifest(t, manifestOneWidget)
	controller, err := dataflow.NewController(path)
	if err != nil {
		t.Fatalf("NewController: %v", err)
	}
	prevBin, prevArgs := "dora", func(manifestPath string, envs map[string]string) []string {
		args := []string{"start", manifestPath}
		for k, v := range envs {
			args = append(args, "--env", k+"="+v)
		}
		return args
	}
	dataflow.SetOrchestrator("sh", func(string, map[string]string) []string {
		return []string{"-c", "sleep 5"}
	})
	t.Cleanup(func() { dataflow.SetOrchestrator(prevBin, prevArgs) })

	shared := state.New()
	d := dispatcher.WithSharedState(controller, shared, func(spec dataflow.MofaNodeSpec, parsed *dataflow.ParsedDataflow) (bridge.Bridge, bool) {
		fb.id = spec.ID
		return fb, true
	})

	w := NewWorker(d, shared)
	w.PromptBridgeIDs = []string{"mofa-prompt-input"}
	return w, d, path
}

func TestWorkerSendPromptRetriesUntilWarmedUp(t *testing.T) {
	fb := &flakyBridge{failUntil: 3}
	w, d, path := newTestWorker(t, fb)
	if _, err := d.Start(path); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer d.ForceStop()

	go w.Run()
	defer w.Stop()

	if !w.Send(Command{Kind: CmdSendPrompt, Message: "hello"}) {
		t.Fatal("expected Send to enqueue successfully")
	}

	deadline := time.Now().Add(2 * time.Second)
	for atomic.LoadInt32(&fb.attempts) <= fb.failUntil && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if atomic.LoadInt32(&fb.attempts) <= fb.failUntil {
		t.Fatalf("expected more than %d attempts, got %d", fb.failUntil, fb.attempts)
	}
	fb.mu.Lock()
	got := fb.lastSend.Text
	fb.mu.Unlock()
	if got != "hello" {
		t.Fatalf("expected eventual send of %q, got %q", "hello", got)
	}
}

func TestWorkerSendFailsClosedAfterStop(t *testing.T) {
	fb := &flakyBridge{}
	w, _, _ := newTestWorker(t, fb)
	w.Stop()
	if w.Send(Command{Kind: CmdSendPrompt, Message: "too late"}) {
		t.Fatal("expected Send to return false once the worker is torn down")
	}
}

func TestWorkerStartDataflowEmitsEvent(t *testing.T) {
	fb := &flakyBridge{}
	w, _, path := newTestWorker(t, fb)
	go w.Run()
	defer w.Stop()

	w.Send(Command{Kind: CmdStartDataflow, Path: path})

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		for _, e := range w.PollEvents() {
			if e.Kind == EvtDataflowStarted {
				return
			}
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("expected a DataflowStarted event")
}
