package asr

import (
	"errors"
	"testing"
	"time"
)

type fakeTranscriber struct {
	calls     int
	texts     []string
	languages []string
	failOn    map[int]bool
}

func (f *fakeTranscriber) Transcribe(samples []float32, sampleRate int) (string, string, error) {
	i := f.calls
	f.calls++
	if f.failOn[i] {
		return "", "", errors.New("engine unavailable")
	}
	text := ""
	if i < len(f.texts) {
		text = f.texts[i]
	}
	lang := ""
	if i < len(f.languages) {
		lang = f.languages[i]
	}
	return text, lang, nil
}

func stepClock(start time.Time, step time.Duration) func() time.Time {
	t := start
	first := true
	return func() time.Time {
		if first {
			first = false
			return t
		}
		t = t.Add(step)
		return t
	}
}

func TestWrapperTranscribeScenarioS5Merge(t *testing.T) {
	ft := &fakeTranscriber{
		texts:     []string{"one", "two", "three", "four", "five"},
		languages: []string{"", "en", "", "", ""},
	}
	w := NewWrapper(EngineStepAudio2, ft)
	w.MaxAudioSeconds = 60 // Scenario S5 feeds a full 60s; the ceiling validation is exercised separately
	w.now = stepClock(time.Unix(0, 0), 2*time.Second)

	samples := make([]float32, 60*16000)
	result, err := w.Transcribe(samples, 16000)
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if result.Chunks != 5 {
		t.Fatalf("expected 5 chunks, got %d", result.Chunks)
	}
	if result.Text != "onetwothreefourfive" {
		t.Fatalf("expected concatenated text with no separator, got %q", result.Text)
	}
	if result.Language != "en" {
		t.Fatalf("expected first non-empty detected language 'en', got %q", result.Language)
	}

	snap := w.Counters.Snapshot()
	if snap.SegmentsProcessed != 1 {
		t.Fatalf("expected 1 segment processed, got %d", snap.SegmentsProcessed)
	}
	wantRTF := 2.0 / 60.0 // now() is sampled once before and once after the chunk loop, a single 2s step apart
	if snap.MeanRealTimeFactor != wantRTF {
		t.Fatalf("expected RTF %v, got %v", wantRTF, snap.MeanRealTimeFactor)
	}
}

func TestWrapperSkipsFailedAndEmptyChunks(t *testing.T) {
	ft := &fakeTranscriber{
		texts:  []string{"a", "", "c"},
		failOn: map[int]bool{1: true},
	}
	w := NewWrapper(EngineSenseVoice, ft)
	w.Chunking = ChunkConfig{ChunkSeconds: 1, OverlapSeconds: 0}
	w.MinAudioSeconds = 0
	w.now = stepClock(time.Unix(0, 0), time.Second)

	samples := make([]float32, 3*16000)
	result, err := w.Transcribe(samples, 16000)
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if result.Text != "ac" {
		t.Fatalf("expected failed/empty chunks skipped, got %q", result.Text)
	}
}

func TestWrapperRejectsAudioBelowFloor(t *testing.T) {
	w := NewWrapper(EngineParaformer, &fakeTranscriber{})
	samples := make([]float32, 100)
	_, err := w.Transcribe(samples, 16000)
	if !errors.Is(err, ErrAudioTooShort) {
		t.Fatalf("expected ErrAudioTooShort, got %v", err)
	}
}

func TestWrapperTruncatesAudioAboveCeiling(t *testing.T) {
	ft := &fakeTranscriber{}
	w := NewWrapper(EngineSenseVoice, ft)
	w.MaxAudioSeconds = 2
	w.Chunking = ChunkConfig{ChunkSeconds: 1, OverlapSeconds: 0}

	samples := make([]float32, 10*16000)
	if _, err := w.Transcribe(samples, 16000); err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	snap := w.Counters.Snapshot()
	if snap.TotalAudioSeconds != 2 {
		t.Fatalf("expected truncation to 2s ceiling, got %v", snap.TotalAudioSeconds)
	}
}

func TestParaformerAdapterForcesChineseLanguage(t *testing.T) {
	a := ParaformerAdapter{Fn: func(samples []float32, sampleRate int) (string, error) {
		return "你好", nil
	}}
	_, lang, err := a.Transcribe(nil, 16000)
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if lang != "zh" {
		t.Fatalf("expected forced zh, got %q", lang)
	}
}

func TestDetectingAdapterAppliesHeuristic(t *testing.T) {
	a := DetectingAdapter{Fn: func(samples []float32, sampleRate int) (string, error) {
		return "hello world", nil
	}}
	_, lang, err := a.Transcribe(nil, 16000)
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if lang != "en" {
		t.Fatalf("expected detected en, got %q", lang)
	}
}
