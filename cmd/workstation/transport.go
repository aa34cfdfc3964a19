package main

import (
	"sync"

	"github.com/voxdeck/voxdeck/pkg/bridge"
)

// standInTransport is the bridge.Transport this process drives its widgets
// through. There is no real dora dynamic-node client in this module (see
// pkg/bridge's package doc); this records connection state so Dispatcher's
// lifecycle bookkeeping behaves exactly as it would against a live
// transport, and is the one seam a real client would replace.
type standInTransport struct {
	mu        sync.Mutex
	connected map[string]bool
}

func newStandInTransport() *standInTransport {
	return &standInTransport{connected: map[string]bool{}}
}

func (t *standInTransport) Connect(nodeID string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.connected[nodeID] = true
	return nil
}

func (t *standInTransport) Disconnect(nodeID string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.connected, nodeID)
	return nil
}

func (t *standInTransport) Send(nodeID, outputID string, data bridge.Data) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.connected[nodeID] {
		return bridge.ErrNotConnected
	}
	return nil
}
