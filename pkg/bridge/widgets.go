package bridge

import (
	"fmt"

	"github.com/voxdeck/voxdeck/pkg/state"
)

// AudioPlayerBridge receives TTS audio from the dataflow and pushes it into
// the shared audio handoff queue. Its reset input clears the AudioPlayer's
// force-mute flag once the owner has issued a smart/full reset.
type AudioPlayerBridge struct {
	base
	shared    *state.SharedState
	clearMute func()
}

// NewAudioPlayerBridge constructs the bridge. clearMute is called when a
// "reset" input arrives; it is expected to release the AudioPlayer's
// force-mute flag (see pkg/audio.Player.ForceMuteFlag).
func NewAudioPlayerBridge(nodeID string, transport Transport, shared *state.SharedState, clearMute func()) *AudioPlayerBridge {
	return &AudioPlayerBridge{
		base:      newBase(nodeID, transport, []string{"audio", "reset"}, nil),
		shared:    shared,
		clearMute: clearMute,
	}
}

func (b *AudioPlayerBridge) Connect() error    { return b.connect(b.shared.Dora) }
func (b *AudioPlayerBridge) Disconnect() error { return b.disconnect(b.shared.Dora) }
func (b *AudioPlayerBridge) Send(outputID string, data Data) error {
	return b.send(outputID, data)
}

func (b *AudioPlayerBridge) Receive(inputID string, data Data) error {
	switch inputID {
	case "audio":
		b.shared.Audio.Push(data.Audio)
		return nil
	case "reset":
		if b.clearMute != nil {
			b.clearMute()
		}
		return nil
	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedOutput, inputID)
	}
}

// PromptInputBridge carries UI-originated prompt text and control commands
// out to the dataflow's prompt-input node.
type PromptInputBridge struct {
	base
}

func NewPromptInputBridge(nodeID string, transport Transport) *PromptInputBridge {
	return &PromptInputBridge{base: newBase(nodeID, transport, nil, []string{"prompt", "control"})}
}

func (b *PromptInputBridge) Connect() error    { return b.connect(nil) }
func (b *PromptInputBridge) Disconnect() error { return b.disconnect(nil) }
func (b *PromptInputBridge) Send(outputID string, data Data) error {
	return b.send(outputID, data)
}
func (b *PromptInputBridge) Receive(string, Data) error { return nil }

// SystemLogBridge receives log-shaped inputs derived from the parsed
// manifest's log sources and appends each as a LogEntry to SharedState.
type SystemLogBridge struct {
	base
	shared *state.SharedState
}

func NewSystemLogBridge(nodeID string, transport Transport, shared *state.SharedState, logInputs []string) *SystemLogBridge {
	return &SystemLogBridge{
		base:   newBase(nodeID, transport, logInputs, nil),
		shared: shared,
	}
}

func (b *SystemLogBridge) Connect() error    { return b.connect(b.shared.Dora) }
func (b *SystemLogBridge) Disconnect() error { return b.disconnect(b.shared.Dora) }
func (b *SystemLogBridge) Send(outputID string, data Data) error {
	return b.send(outputID, data)
}

func (b *SystemLogBridge) Receive(inputID string, data Data) error {
	entry := data.Log
	if entry.SourceNode == "" {
		entry.SourceNode = inputID
	}
	b.shared.Logs.Push(entry)
	return nil
}

// MicInputBridge streams microphone audio and start/stop/AEC control
// commands out to the dataflow's mic-input node.
type MicInputBridge struct {
	base
}

func NewMicInputBridge(nodeID string, transport Transport) *MicInputBridge {
	return &MicInputBridge{base: newBase(nodeID, transport, nil, []string{"audio", "control"})}
}

func (b *MicInputBridge) Connect() error    { return b.connect(nil) }
func (b *MicInputBridge) Disconnect() error { return b.disconnect(nil) }
func (b *MicInputBridge) Send(outputID string, data Data) error {
	return b.send(outputID, data)
}
func (b *MicInputBridge) Receive(string, Data) error { return nil }

// ChatViewerBridge receives ChatMessage inputs from the dataflow and
// forwards them into the shared chat state for consolidation.
type ChatViewerBridge struct {
	base
	shared *state.SharedState
}

func NewChatViewerBridge(nodeID string, transport Transport, shared *state.SharedState) *ChatViewerBridge {
	return &ChatViewerBridge{
		base:   newBase(nodeID, transport, []string{"message"}, nil),
		shared: shared,
	}
}

func (b *ChatViewerBridge) Connect() error    { return b.connect(b.shared.Dora) }
func (b *ChatViewerBridge) Disconnect() error { return b.disconnect(b.shared.Dora) }
func (b *ChatViewerBridge) Send(outputID string, data Data) error {
	return b.send(outputID, data)
}

func (b *ChatViewerBridge) Receive(inputID string, data Data) error {
	if inputID != "message" {
		return fmt.Errorf("%w: %s", ErrUnsupportedOutput, inputID)
	}
	b.shared.Chat.Push(data.Chat)
	return nil
}

// ParticipantPanelBridge receives per-participant audio used only for level
// visualisation; it never touches SharedState directly, instead invoking
// OnLevel for whichever component draws the meters.
type ParticipantPanelBridge struct {
	base
	OnLevel func(participantID string, level float32)
}

func NewParticipantPanelBridge(nodeID string, transport Transport, inputs []string) *ParticipantPanelBridge {
	return &ParticipantPanelBridge{base: newBase(nodeID, transport, inputs, nil)}
}

func (b *ParticipantPanelBridge) Connect() error    { return b.connect(nil) }
func (b *ParticipantPanelBridge) Disconnect() error { return b.disconnect(nil) }
func (b *ParticipantPanelBridge) Send(outputID string, data Data) error {
	return b.send(outputID, data)
}

func (b *ParticipantPanelBridge) Receive(inputID string, data Data) error {
	if b.OnLevel == nil {
		return nil
	}
	level := float32(0)
	for _, s := range data.Audio.Samples {
		if s < 0 {
			s = -s
		}
		if s > level {
			level = s
		}
	}
	b.OnLevel(inputID, level)
	return nil
}
