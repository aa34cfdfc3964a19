package main

import (
	"fmt"

	"github.com/gen2brain/malgo"

	"github.com/voxdeck/voxdeck/pkg/audio"
	"github.com/voxdeck/voxdeck/pkg/bridge"
	"github.com/voxdeck/voxdeck/pkg/state"
)

// audioDevice owns the real-device half of C2: a duplex malgo stream whose
// capture side feeds mic's "audio" output and whose playback side pulls
// from player's ring, the same engine setup the teacher's cmd/agent used
// for its single bidirectional stream.
type audioDevice struct {
	mctx   *malgo.AllocatedContext
	device *malgo.Device
}

// startAudioDevice opens the duplex device at sampleRate, mono 16-bit PCM
// (the device callback's native format; see pkg/audio.PCM16ToFloat32 and
// Float32ToPCM16). Capture frames are forwarded to mic as they arrive;
// playback frames are pulled from player.Callback on every tick.
func startAudioDevice(sampleRate int, player *audio.Player, mic *bridge.MicInputBridge) (*audioDevice, error) {
	mctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, fmt.Errorf("init audio context: %w", err)
	}

	deviceConfig := malgo.DefaultDeviceConfig(malgo.Duplex)
	deviceConfig.Capture.Format = malgo.FormatS16
	deviceConfig.Capture.Channels = 1
	deviceConfig.Playback.Format = malgo.FormatS16
	deviceConfig.Playback.Channels = 1
	deviceConfig.SampleRate = uint32(sampleRate)

	// outBuf is reused across callback invocations instead of allocated per
	// call, matching player.Callback's realtime no-allocation contract once
	// the device has settled on a steady frame count.
	var outBuf []float32

	onSamples := func(pOutput, pInput []byte, frameCount uint32) {
		if pInput != nil {
			samples := audio.PCM16ToFloat32(pInput)
			// Best-effort: the mic bridge may not be connected yet (the
			// dataflow hasn't finished starting); the realtime callback
			// must not block or log on that, so the error is dropped.
			_ = mic.Send("audio", bridge.Data{Kind: bridge.KindAudio, Audio: state.Chunk{
				Samples:    samples,
				SampleRate: sampleRate,
				Channels:   1,
			}})
		}
		if pOutput != nil {
			n := len(pOutput) / 2
			if cap(outBuf) < n {
				outBuf = make([]float32, n)
			}
			outBuf = outBuf[:n]
			player.Callback(outBuf)
			for i, s := range outBuf {
				v := int16(clampSample(s) * 32767)
				pOutput[2*i] = byte(v)
				pOutput[2*i+1] = byte(v >> 8)
			}
		}
	}

	device, err := malgo.InitDevice(mctx.Context, deviceConfig, malgo.DeviceCallbacks{Data: onSamples})
	if err != nil {
		mctx.Uninit()
		return nil, fmt.Errorf("init audio device: %w", err)
	}
	if err := device.Start(); err != nil {
		device.Uninit()
		mctx.Uninit()
		return nil, fmt.Errorf("start audio device: %w", err)
	}

	return &audioDevice{mctx: mctx, device: device}, nil
}

// Stop tears down the device and its context. Safe to call once.
func (d *audioDevice) Stop() {
	d.device.Uninit()
	d.mctx.Uninit()
}

// clampSample is pkg/audio.Float32ToPCM16's clamp step, inlined here so the
// playback path can encode directly into pOutput without the extra
// allocation a []byte-returning helper would cost on every callback.
func clampSample(s float32) float32 {
	if s > 1 {
		return 1
	}
	if s < -1 {
		return -1
	}
	return s
}
