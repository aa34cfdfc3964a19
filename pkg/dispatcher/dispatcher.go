// Package dispatcher owns the dataflow Controller and every mofa bridge
// discovered in a parsed manifest, and sequences their joint lifecycle.
package dispatcher

import (
	"fmt"
	"sort"
	"time"

	"github.com/voxdeck/voxdeck/pkg/bridge"
	"github.com/voxdeck/voxdeck/pkg/dataflow"
	"github.com/voxdeck/voxdeck/pkg/state"
)

// BridgeFactory constructs the Bridge for a discovered mofa node. Returning
// (nil, false) skips widget ids the dispatcher doesn't know how to build.
type BridgeFactory func(spec dataflow.MofaNodeSpec, parsed *dataflow.ParsedDataflow) (bridge.Bridge, bool)

// loggableBridge is satisfied by every concrete widget bridge in
// pkg/bridge (each embeds base, which defines SetLogger); it lets the
// dispatcher hand its own logger down without bridge.Bridge itself
// declaring a logging method.
type loggableBridge interface {
	SetLogger(bridge.Logger)
}

// Dispatcher owns the Controller and the {node_id -> Bridge} map. Ownership
// is one-way: bridges and the dispatcher only ever write into SharedState,
// never reach back into each other.
type Dispatcher struct {
	controller *dataflow.Controller
	shared     *state.SharedState
	factory    BridgeFactory
	parsed     *dataflow.ParsedDataflow

	order   []string
	bridges map[string]bridge.Bridge
	log     Logger
}

// WithSharedState constructs a Dispatcher bound to controller and shared.
func WithSharedState(controller *dataflow.Controller, shared *state.SharedState, factory BridgeFactory) *Dispatcher {
	return &Dispatcher{
		controller: controller,
		shared:     shared,
		factory:    factory,
		bridges:    map[string]bridge.Bridge{},
		log:        &NoOpLogger{},
	}
}

// SetLogger replaces the Dispatcher's logger (a NoOpLogger by default).
func (d *Dispatcher) SetLogger(l Logger) {
	if l == nil {
		l = &NoOpLogger{}
	}
	d.log = l
}

func (d *Dispatcher) logger() Logger {
	if d.log == nil {
		return &NoOpLogger{}
	}
	return d.log
}

// Start starts the controller, parses its manifest for mofa nodes, and
// connects a bridge for each recognised widget in discovery order.
func (d *Dispatcher) Start(manifestPath string) (string, error) {
	parsed, err := dataflow.Parse(manifestPath)
	if err != nil {
		return "", fmt.Errorf("dispatcher: parse manifest: %w", err)
	}
	d.parsed = parsed

	dataflowID, err := d.controller.Start()
	if err != nil {
		return "", err
	}

	for _, spec := range parsed.MofaNodes {
		b, ok := d.factory(spec, parsed)
		if !ok {
			continue
		}
		if lb, ok := b.(loggableBridge); ok {
			lb.SetLogger(d.logger())
		}
		if err := b.Connect(); err != nil {
			d.logger().Error("bridge connect failed", "node", spec.ID, "error", err)
			return dataflowID, fmt.Errorf("dispatcher: connect %s: %w", spec.ID, err)
		}
		d.logger().Info("bridge connected", "node", spec.ID)
		d.bridges[spec.ID] = b
		d.order = append(d.order, spec.ID)
	}

	return dataflowID, nil
}

// Stop disconnects every bridge in reverse discovery order, then stops the
// controller gracefully.
func (d *Dispatcher) Stop() error {
	d.disconnectAll()
	return d.controller.Stop()
}

// StopWithGrace disconnects every bridge in reverse order, then stops the
// controller with a custom grace duration.
func (d *Dispatcher) StopWithGrace(grace time.Duration) error {
	d.disconnectAll()
	return d.controller.StopWithGraceDuration(grace)
}

// ForceStop disconnects every bridge in reverse order, then force-stops the
// controller.
func (d *Dispatcher) ForceStop() error {
	d.disconnectAll()
	return d.controller.ForceStop()
}

func (d *Dispatcher) disconnectAll() {
	for i := len(d.order) - 1; i >= 0; i-- {
		id := d.order[i]
		_ = d.bridges[id].Disconnect()
	}
}

// ControllerStatus forwards to the owned Controller's liveness probe, for
// callers (the integration worker) that need to poll it without reaching
// past the Dispatcher's ownership boundary.
func (d *Dispatcher) ControllerStatus() dataflow.Status {
	return d.controller.GetStatus()
}

// GetBridge is a pure lookup by node id.
func (d *Dispatcher) GetBridge(id string) (bridge.Bridge, bool) {
	b, ok := d.bridges[id]
	return b, ok
}

// BridgeIDs returns the discovered bridge ids sorted by id.
func (d *Dispatcher) BridgeIDs() []string {
	ids := make([]string, len(d.order))
	copy(ids, d.order)
	sort.Strings(ids)
	return ids
}
