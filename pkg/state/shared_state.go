package state

// SharedState is the process-wide coordination object passed by shared
// handle to every bridge, the dispatcher, and the UI poller. Ownership
// flows one way: bridges and the dispatcher only ever write into it, the UI
// only ever reads from it, which avoids the Dispatcher/Controller/UI cycle
// described for the dataflow graph.
type SharedState struct {
	Chat   *ChatState
	Audio  *AudioQueue
	Logs   *DirtyVec[LogEntry]
	Status *DirtyValue[DataflowStatus]
	Dora   *DoraStatus
}

// New constructs a SharedState with the spec's default capacities: 500
// chat messages, 100 queued audio chunks, 1000 log lines.
func New() *SharedState {
	return &SharedState{
		Chat:   NewChatState(0),
		Audio:  NewAudioQueue(0),
		Logs:   NewLogVec(),
		Status: NewDirtyValue[DataflowStatus](),
		Dora:   &DoraStatus{},
	}
}
