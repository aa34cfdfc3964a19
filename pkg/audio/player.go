package audio

import (
	"sync"
	"sync/atomic"
	"time"
)

// command is the internal message shape accepted by the player's worker
// loop. Only one of the fields is meaningful per command kind.
type command struct {
	kind      commandKind
	samples   []float32
	speaker   string
	utterance string
	grace     time.Duration
}

type commandKind int

const (
	cmdWrite commandKind = iota
	cmdReset
	cmdSmartReset
	cmdPause
	cmdResume
	cmdStop
)

// Stats is a snapshot of playback telemetry safe to poll from the UI
// thread. The worker loop publishes it on each tick under a try-lock,
// skipping that tick's update when the lock is contended; callers read it
// under the same lock. The audio callback does not touch it.
type Stats struct {
	BufferFillPct  float64
	BufferSeconds  float64
	CurrentSpeaker string
	LastWaveform   []float32
}

// Player is the audio output engine: it owns a Ring, an output-stream-facing
// callback, and a worker goroutine that serialises writer-side commands.
// The callback path (Callback) touches only the ring mutex and the atomics
// below; it never blocks on the command channel.
type Player struct {
	ring       *Ring
	sampleRate int

	isPlaying atomic.Bool // relaxed semantics: a stale read costs one frame at most
	forceMute atomic.Bool // acquire/release: visible to the callback by the next sample

	statsMu sync.Mutex
	stats   Stats

	commands chan command
	done     chan struct{}
	logger   Logger
}

// Logger is the minimal structured-logging surface the player needs; it is
// satisfied by pkg/logging's Adapter and by a NoOpLogger.
type Logger interface {
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
}

// NoOpLogger discards everything; used when no logger is supplied.
type NoOpLogger struct{}

func (NoOpLogger) Debug(string, ...interface{}) {}
func (NoOpLogger) Info(string, ...interface{})  {}
func (NoOpLogger) Warn(string, ...interface{})  {}
func (NoOpLogger) Error(string, ...interface{}) {}

// NewPlayer constructs a player backed by a ring sized for seconds of audio
// at sampleRate (30s is typical for single-speaker TTS, 60s for multi-speaker
// mixes) and starts its worker loop.
func NewPlayer(sampleRate int, seconds float64, logger Logger) *Player {
	if logger == nil {
		logger = NoOpLogger{}
	}
	p := &Player{
		ring:       NewRing(sampleRate, seconds),
		sampleRate: sampleRate,
		commands:   make(chan command, 256),
		done:       make(chan struct{}),
		logger:     logger,
	}
	go p.run()
	return p
}

// run is the dedicated worker loop: it drains commands and polls status
// every ~5ms, per the engine's concurrency contract.
func (p *Player) run() {
	ticker := time.NewTicker(5 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case cmd := <-p.commands:
			p.handle(cmd)
			if cmd.kind == cmdStop {
				return
			}
		case <-ticker.C:
			p.publishStats()
		}
	}
}

func (p *Player) handle(cmd command) {
	switch cmd.kind {
	case cmdWrite:
		p.ring.Write(cmd.samples, cmd.speaker, cmd.utterance)
		// Pending audio crossing the 100ms mark prevents an audible
		// micro-underrun right at playback start.
		if p.ring.Available() >= p.sampleRate/10 {
			p.isPlaying.Store(true)
		}
	case cmdReset:
		p.forceMute.Store(true)
		p.ring.Reset()
		p.forceMute.Store(false)
	case cmdSmartReset:
		p.ring.SmartReset(cmd.utterance)
	case cmdPause:
		p.isPlaying.Store(false)
	case cmdResume:
		p.isPlaying.Store(true)
	case cmdStop:
		// nothing further to clean up; run() exits on return.
	}
}

func (p *Player) publishStats() {
	if !p.statsMu.TryLock() {
		// Contended: skip this tick rather than block the worker loop on
		// UI telemetry.
		return
	}
	defer p.statsMu.Unlock()

	capacity := p.ring.Capacity()
	avail := p.ring.Available()
	p.stats = Stats{
		BufferFillPct:  100 * float64(avail) / float64(capacity),
		BufferSeconds:  float64(avail) / float64(p.sampleRate),
		CurrentSpeaker: p.ring.CurrentSpeaker(),
		LastWaveform:   p.ring.Waveform(256),
	}
}

// WriteAudio queues samples tagged with speaker/utterance for playback.
func (p *Player) WriteAudio(samples []float32, speaker, utterance string) {
	select {
	case p.commands <- command{kind: cmdWrite, samples: samples, speaker: speaker, utterance: utterance}:
	default:
		p.logger.Warn("player command queue full, dropping write", "samples", len(samples))
	}
}

// Reset clears playback immediately: force_mute is set before the ring is
// cleared and lifted only once the clear has completed, guaranteeing the
// callback outputs silence for the whole teardown window.
func (p *Player) Reset() {
	p.forceMute.Store(true)
	select {
	case p.commands <- command{kind: cmdReset}:
	default:
		p.logger.Warn("player command queue full, forcing inline reset")
		p.ring.Reset()
		p.forceMute.Store(false)
	}
}

// SmartReset discards queued audio not belonging to utterance.
func (p *Player) SmartReset(utterance string) {
	select {
	case p.commands <- command{kind: cmdSmartReset, utterance: utterance}:
	default:
		p.logger.Warn("player command queue full, dropping smart reset")
	}
}

// Pause stops playback output without clearing the buffer.
func (p *Player) Pause() {
	select {
	case p.commands <- command{kind: cmdPause}:
	default:
	}
}

// Resume resumes playback output.
func (p *Player) Resume() {
	select {
	case p.commands <- command{kind: cmdResume}:
	default:
	}
}

// Stop terminates the worker loop. The player must not be used afterward.
func (p *Player) Stop() {
	select {
	case p.commands <- command{kind: cmdStop}:
	case <-p.done:
	}
}

// ForceMute immediately mutes output; used by external barge-in logic. It
// takes effect on the very next callback invocation.
func (p *Player) ForceMute() {
	p.forceMute.Store(true)
}

// ForceMuteFlag exposes the shared mute flag so callers (e.g. a bridge
// reacting to a "reset" message) can clear it directly once their own
// teardown has completed.
func (p *Player) ForceMuteFlag() *atomic.Bool {
	return &p.forceMute
}

// BufferFillPercentage returns the last published buffer fill percentage.
func (p *Player) BufferFillPercentage() float64 {
	p.statsMu.Lock()
	defer p.statsMu.Unlock()
	return p.stats.BufferFillPct
}

// CurrentSpeaker returns the last published current-speaker tag.
func (p *Player) CurrentSpeaker() string {
	p.statsMu.Lock()
	defer p.statsMu.Unlock()
	return p.stats.CurrentSpeaker
}

// GetWaveformData returns the last published waveform snapshot.
func (p *Player) GetWaveformData() []float32 {
	p.statsMu.Lock()
	defer p.statsMu.Unlock()
	return p.stats.LastWaveform
}

// IsPlaying reports whether the engine currently considers itself playing.
func (p *Player) IsPlaying() bool {
	return p.isPlaying.Load()
}

// Callback is the realtime audio-device callback contract: it must never
// allocate and never block. force_mute is checked first (the barge-in fast
// path, a single atomic load); then is_playing; only then does it touch the
// ring, and only for the length of the copy.
func (p *Player) Callback(out []float32) {
	if p.forceMute.Load() {
		zero(out)
		return
	}
	if !p.isPlaying.Load() {
		zero(out)
		return
	}
	p.ring.Read(out)
}

func zero(out []float32) {
	for i := range out {
		out[i] = 0
	}
}
