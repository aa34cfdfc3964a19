package asr

// RawTextFunc is a model call that returns only transcribed text, the shape
// every engine's underlying library call takes before language detection is
// applied (see engines/paraformer.rs, dora-funasr-nano-mlx/src/engine.rs,
// dora-step-audio2-mlx/src/engine.rs).
type RawTextFunc func(samples []float32, sampleRate int) (string, error)

// ParaformerAdapter wraps a Chinese-only RawTextFunc as a Transcriber.
// Paraformer never runs language detection upstream — it only ever
// transcribes Chinese — so the adapter reports "zh" unconditionally rather
// than running DetectLanguage over the output.
type ParaformerAdapter struct {
	Fn RawTextFunc
}

func (a ParaformerAdapter) Transcribe(samples []float32, sampleRate int) (string, string, error) {
	text, err := a.Fn(samples, sampleRate)
	if err != nil {
		return "", "", err
	}
	return text, "zh", nil
}

// DetectingAdapter wraps a multi-lingual RawTextFunc (SenseVoice,
// StepAudio2) as a Transcriber, applying the shared DetectLanguage
// heuristic over the returned text.
type DetectingAdapter struct {
	Fn RawTextFunc
}

func (a DetectingAdapter) Transcribe(samples []float32, sampleRate int) (string, string, error) {
	text, err := a.Fn(samples, sampleRate)
	if err != nil {
		return "", "", err
	}
	return text, DetectLanguage(text), nil
}
