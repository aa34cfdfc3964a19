package audio

import (
	"testing"
	"time"
)

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

// TestPlayerBargeIn exercises scenario S1: once playback starts, ForceMute
// must silence the very next callback, and Reset must clear the buffer and
// the mute flag.
func TestPlayerBargeIn(t *testing.T) {
	p := NewPlayer(100, 1, nil) // 100 samples/sec ring
	defer p.Stop()

	samples := make([]float32, 20) // 200ms @ 100Hz, crosses the 100ms threshold
	for i := range samples {
		samples[i] = 0.5
	}
	p.WriteAudio(samples, "bot", "u1")

	waitFor(t, p.IsPlaying)

	out := make([]float32, 5)
	p.Callback(out)
	var nonZero bool
	for _, v := range out {
		if v != 0 {
			nonZero = true
		}
	}
	if !nonZero {
		t.Fatal("expected audible output before barge-in")
	}

	p.ForceMute()

	out2 := make([]float32, 5)
	p.Callback(out2)
	for i, v := range out2 {
		if v != 0 {
			t.Fatalf("index %d: expected silence immediately after ForceMute, got %v", i, v)
		}
	}

	// Stats start zeroed; wait until they reflect the write so that a zero
	// fill below can only come from the completed reset.
	waitFor(t, func() bool { return p.BufferFillPercentage() > 0 })
	p.Reset()
	waitFor(t, func() bool { return p.BufferFillPercentage() == 0 })
	if p.ForceMuteFlag().Load() {
		t.Fatal("expected force_mute cleared after reset completes")
	}
}

func TestPlayerCallbackSilentWhenNotPlaying(t *testing.T) {
	p := NewPlayer(100, 1, nil)
	defer p.Stop()

	out := make([]float32, 4)
	p.Callback(out)
	for _, v := range out {
		if v != 0 {
			t.Fatal("expected silence before any audio is written")
		}
	}
}
