// Package bridge implements the capability-set bridge layer that connects
// mofa widget nodes to the dataflow graph and the shared UI state.
package bridge

import (
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/voxdeck/voxdeck/pkg/state"
)

// BridgeState is a bridge's position in its connection lifecycle.
type BridgeState int

const (
	Disconnected BridgeState = iota
	Connecting
	Connected
	Disconnecting
	Error
)

func (s BridgeState) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	case Disconnecting:
		return "disconnecting"
	case Error:
		return "error"
	default:
		return "unknown"
	}
}

// DataKind tags which field of a Data value is populated.
type DataKind int

const (
	KindAudio DataKind = iota
	KindText
	KindControl
	KindLog
	KindChat
	KindEmpty
)

// ControlCommand is a named command with optional parameters, sent
// UI-to-dataflow (e.g. start/stop/reset) over a bridge's control output.
type ControlCommand struct {
	Command string
	Params  map[string]any
}

// Data is the unified payload exchanged over a bridge's send/recv path.
type Data struct {
	Kind    DataKind
	Audio   state.Chunk
	Text    string
	Control ControlCommand
	Log     state.LogEntry
	Chat    state.ChatMessage
}

// Transport is the underlying connection to a dynamic dora node. Production
// bridges use a real dora client; tests and the reference cmd/workstation
// wiring use a recording stand-in, since driving an actual dora runtime is
// out of scope for this process.
type Transport interface {
	Connect(nodeID string) error
	Disconnect(nodeID string) error
	Send(nodeID, outputID string, data Data) error
}

// Bridge is the capability set every widget bridge implements: identity,
// connection lifecycle, data exchange, and its input/output contract.
//
// Send carries data from this process out to the named dataflow output.
// Receive is the inbound half: the dataflow event loop calls it when data
// arrives on one of ExpectedInputs, and each concrete bridge decides what
// that means for SharedState (push a chunk, append a log line, ...).
type Bridge interface {
	NodeID() string
	State() BridgeState
	Connect() error
	Disconnect() error
	IsConnected() bool
	Send(outputID string, data Data) error
	Receive(inputID string, data Data) error
	ExpectedInputs() []string
	ExpectedOutputs() []string
}

// base implements the shared state-machine and transport plumbing every
// concrete bridge embeds; it is not itself a Bridge.
type base struct {
	mu        sync.RWMutex
	nodeID    string
	state     BridgeState
	transport Transport
	inputs    []string
	outputs   []string
	log       Logger
}

func newBase(nodeID string, transport Transport, inputs, outputs []string) base {
	return base{nodeID: nodeID, transport: transport, inputs: inputs, outputs: outputs, log: &NoOpLogger{}}
}

// SetLogger replaces the bridge's logger (a NoOpLogger by default). Each
// concrete bridge in widgets.go promotes this from its embedded base.
func (b *base) SetLogger(l Logger) {
	if l == nil {
		l = &NoOpLogger{}
	}
	b.mu.Lock()
	b.log = l
	b.mu.Unlock()
}

func (b *base) logger() Logger {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.log == nil {
		return &NoOpLogger{}
	}
	return b.log
}

func (b *base) NodeID() string { return b.nodeID }

func (b *base) State() BridgeState {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.state
}

func (b *base) IsConnected() bool {
	return b.State() == Connected
}

func (b *base) ExpectedInputs() []string  { return b.inputs }
func (b *base) ExpectedOutputs() []string { return b.outputs }

func (b *base) setState(s BridgeState) {
	b.mu.Lock()
	b.state = s
	b.mu.Unlock()
}

// connect runs the common Disconnected->Connecting->Connected transition,
// registering with status on success and recording Error on failure. Each
// attempt gets its own correlation id so a flaky transport's retries can be
// told apart in the log.
func (b *base) connect(status *state.DoraStatus) error {
	attempt := uuid.NewString()
	b.setState(Connecting)
	b.logger().Debug("bridge connect attempt", "node", b.nodeID, "attempt", attempt)
	if err := b.transport.Connect(b.nodeID); err != nil {
		b.setState(Error)
		b.logger().Error("bridge connect failed", "node", b.nodeID, "attempt", attempt, "error", err)
		return fmt.Errorf("bridge %s: connect: %w", b.nodeID, err)
	}
	b.setState(Connected)
	if status != nil {
		status.AddBridge(b.nodeID)
	}
	return nil
}

// disconnect runs Connected->Disconnecting->Disconnected, deregistering
// from status regardless of transport error (teardown is irreversible).
func (b *base) disconnect(status *state.DoraStatus) error {
	attempt := uuid.NewString()
	b.setState(Disconnecting)
	err := b.transport.Disconnect(b.nodeID)
	b.setState(Disconnected)
	if status != nil {
		status.RemoveBridge(b.nodeID)
	}
	if err != nil {
		b.logger().Warn("bridge disconnect error", "node", b.nodeID, "attempt", attempt, "error", err)
		return fmt.Errorf("bridge %s: disconnect: %w", b.nodeID, err)
	}
	return nil
}

// send enforces the common non-blocking, Connected-only send contract.
func (b *base) send(outputID string, data Data) error {
	if !b.IsConnected() {
		return ErrNotConnected
	}
	if err := b.transport.Send(b.nodeID, outputID, data); err != nil {
		b.logger().Warn("bridge send failed", "node", b.nodeID, "output", outputID, "error", err)
		return err
	}
	return nil
}
