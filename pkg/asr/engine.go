// Package asr wraps the per-engine Paraformer/SenseVoice/StepAudio2 ASR
// transcription contract with overlap chunking, validation, and usage
// counters, grounded on node-hub/dora-funasr-mlx, dora-funasr-nano-mlx, and
// dora-step-audio2-mlx's engine.rs/config.rs in original_source/.
package asr

import (
	"strings"
	"sync"
	"time"
)

// EngineID names one of the three supported ASR backends.
type EngineID string

const (
	EngineParaformer EngineID = "paraformer"
	EngineSenseVoice EngineID = "sensevoice"
	EngineStepAudio2 EngineID = "step_audio2"
)

// SupportedLanguages documents the per-engine language contract from §4.9:
// Paraformer is Chinese-only, SenseVoice covers zh/en/ja, StepAudio2 is
// unconstrained multi-lingual. A nil slice means "no fixed set".
var SupportedLanguages = map[EngineID][]string{
	EngineParaformer: {"zh"},
	EngineSenseVoice: {"zh", "en", "ja"},
	EngineStepAudio2: nil,
}

// ChunkConfig is an engine's overlap-chunking window, in seconds.
type ChunkConfig struct {
	ChunkSeconds   float64
	OverlapSeconds float64
}

// defaultChunkConfigs mirrors the example values spec §4.9 gives for
// SenseVoice (L=28, O=1) and StepAudio2 (L=14, O=1). The spec leaves
// Paraformer's window unspecified; it shares StepAudio2's 14s/1s window
// since both are used for short command-style utterances rather than
// SenseVoice's longer-form multi-lingual transcription.
var defaultChunkConfigs = map[EngineID]ChunkConfig{
	EngineParaformer: {ChunkSeconds: 14, OverlapSeconds: 1},
	EngineSenseVoice: {ChunkSeconds: 28, OverlapSeconds: 1},
	EngineStepAudio2: {ChunkSeconds: 14, OverlapSeconds: 1},
}

// Transcriber is the uniform per-engine contract from §4.9: accept any
// sample rate (engines resample internally to 16kHz) and return text plus
// detected language.
type Transcriber interface {
	Transcribe(samples []float32, sampleRate int) (text, language string, err error)
}

// Counters accumulates the per-engine usage metrics named in §4.9.
type Counters struct {
	mu                     sync.Mutex
	segmentsProcessed      int64
	totalAudioSeconds      float64
	totalProcessingSeconds float64
}

func (c *Counters) record(audioSeconds, processingSeconds float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.segmentsProcessed++
	c.totalAudioSeconds += audioSeconds
	c.totalProcessingSeconds += processingSeconds
}

// Snapshot is a point-in-time copy of Counters, safe to read without the lock.
type Snapshot struct {
	SegmentsProcessed      int64
	TotalAudioSeconds      float64
	TotalProcessingSeconds float64
	MeanRealTimeFactor     float64
}

// Snapshot reads the current counters. MeanRealTimeFactor is 0 until at
// least one segment with nonzero audio duration has been processed.
func (c *Counters) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := Snapshot{
		SegmentsProcessed:      c.segmentsProcessed,
		TotalAudioSeconds:      c.totalAudioSeconds,
		TotalProcessingSeconds: c.totalProcessingSeconds,
	}
	if c.totalAudioSeconds > 0 {
		s.MeanRealTimeFactor = c.totalProcessingSeconds / c.totalAudioSeconds
	}
	return s
}

// Result is a wrapper-level transcription outcome across every chunk of one
// Transcribe call.
type Result struct {
	Text     string
	Language string
	Chunks   int
}

// Wrapper adds overlap chunking, duration validation, and counters around a
// raw engine Transcriber.
type Wrapper struct {
	Engine      EngineID
	Transcriber Transcriber
	Chunking    ChunkConfig

	// MinAudioSeconds/MaxAudioSeconds are the validation floor/ceiling from
	// §4.9, defaulted to Paraformer's config.rs values (MIN_AUDIO_DURATION
	// / MAX_AUDIO_DURATION env defaults of 0.5s / 30s) since no engine's
	// original source names different defaults.
	MinAudioSeconds float64
	MaxAudioSeconds float64

	Counters *Counters
	Logger   Logger

	now func() time.Time
}

// NewWrapper builds a Wrapper with engine's default chunk window.
func NewWrapper(engine EngineID, t Transcriber) *Wrapper {
	cfg, ok := defaultChunkConfigs[engine]
	if !ok {
		cfg = ChunkConfig{ChunkSeconds: 14, OverlapSeconds: 1}
	}
	return &Wrapper{
		Engine:          engine,
		Transcriber:     t,
		Chunking:        cfg,
		MinAudioSeconds: 0.5,
		MaxAudioSeconds: 30,
		Counters:        &Counters{},
		Logger:          &NoOpLogger{},
		now:             time.Now,
	}
}

// Transcribe chunks samples per the wrapper's window, transcribes each
// chunk, and merges the results per §4.9's concatenation-with-no-separator
// policy. Audio above MaxAudioSeconds is truncated to the ceiling before
// chunking; audio below MinAudioSeconds is rejected with ErrAudioTooShort.
func (w *Wrapper) Transcribe(samples []float32, sampleRate int) (Result, error) {
	if sampleRate <= 0 {
		sampleRate = 16000
	}
	audioSeconds := float64(len(samples)) / float64(sampleRate)
	if audioSeconds < w.MinAudioSeconds {
		return Result{}, ErrAudioTooShort
	}
	if audioSeconds > w.MaxAudioSeconds {
		samples = samples[:int(w.MaxAudioSeconds*float64(sampleRate))]
	}

	windowLen := int(w.Chunking.ChunkSeconds * float64(sampleRate))
	stride := int((w.Chunking.ChunkSeconds - w.Chunking.OverlapSeconds) * float64(sampleRate))
	minTail := sampleRate // "< 1s" per §4.9
	windows := computeWindows(len(samples), windowLen, stride, minTail)

	var texts []string
	language := ""

	start := w.now()
	for _, win := range windows {
		text, lang, err := w.Transcriber.Transcribe(samples[win.start:win.end], sampleRate)
		if err != nil {
			w.Logger.Warn("asr: chunk transcription failed, skipping", "engine", w.Engine, "error", err)
			continue
		}
		if text == "" {
			continue
		}
		texts = append(texts, text)
		if language == "" && lang != "" && lang != "unknown" {
			language = lang
		}
	}
	processingSeconds := w.now().Sub(start).Seconds()

	if language == "" {
		language = "unknown"
	}
	w.Counters.record(float64(len(samples))/float64(sampleRate), processingSeconds)

	return Result{
		Text:     strings.Join(texts, ""),
		Language: language,
		Chunks:   len(windows),
	}, nil
}
