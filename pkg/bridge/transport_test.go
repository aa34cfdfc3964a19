package bridge

import "sync"

// recordingTransport is a Transport stand-in for tests: it records calls
// and lets a test force connect/send failures.
type recordingTransport struct {
	mu          sync.Mutex
	connected   map[string]bool
	sent        []sentCall
	failConnect bool
	failSend    bool
}

type sentCall struct {
	nodeID, outputID string
	data             Data
}

func newRecordingTransport() *recordingTransport {
	return &recordingTransport{connected: map[string]bool{}}
}

func (t *recordingTransport) Connect(nodeID string) error {
	if t.failConnect {
		return errConnectFailed
	}
	t.mu.Lock()
	t.connected[nodeID] = true
	t.mu.Unlock()
	return nil
}

func (t *recordingTransport) Disconnect(nodeID string) error {
	t.mu.Lock()
	delete(t.connected, nodeID)
	t.mu.Unlock()
	return nil
}

func (t *recordingTransport) Send(nodeID, outputID string, data Data) error {
	if t.failSend {
		return errSendFailed
	}
	t.mu.Lock()
	t.sent = append(t.sent, sentCall{nodeID, outputID, data})
	t.mu.Unlock()
	return nil
}
