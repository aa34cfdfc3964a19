package voice

import (
	"os"
	"path/filepath"
	"strconv"
)

// Resolved is the fully resolved set of TTS voice parameters for one
// synthesis session, after applying spec §4.11's precedence: explicit env
// var > preset value > built-in default.
type Resolved struct {
	VoiceCharacter string
	RefAudio       string
	RefText        string
	VitsONNXPath   string
	CodesPath      string
	Speed          float64
}

const defaultRefAudio = ".dora/models/primespeech/moyoyo/ref_audios/doubao_ref_mix_new.wav"

// Resolve builds a Resolved voice configuration for voiceCharacter (the
// VOICE_CHARACTER value, possibly empty) against catalog, applying the
// env > preset > default precedence per field — mirroring
// dora-gpt-sovits-mlx/src/config.rs's Config::from_env.
func Resolve(catalog *Catalog, voiceCharacter string) (Resolved, error) {
	return ResolveWithLogger(catalog, voiceCharacter, &NoOpLogger{})
}

// ResolveWithLogger is Resolve, routing the "unknown voice name" case
// through logger as a warning per spec §7's User error class ("invalid
// voice name... logged as warning; no event") instead of resolving silently.
func ResolveWithLogger(catalog *Catalog, voiceCharacter string, logger Logger) (Resolved, error) {
	if logger == nil {
		logger = &NoOpLogger{}
	}

	var preset Preset
	havePreset := false
	if catalog != nil && voiceCharacter != "" {
		if p, ok := catalog.Find(voiceCharacter); ok {
			resolved, err := resolvePresetPaths(catalog, p)
			if err != nil {
				return Resolved{}, err
			}
			preset = resolved
			havePreset = true
		} else {
			logger.Warn("voice not found in catalog, falling back to env/defaults", "voice_character", voiceCharacter)
		}
	}

	r := Resolved{VoiceCharacter: voiceCharacter}

	r.RefAudio = firstNonEmpty(
		os.Getenv("REF_AUDIO"),
		presetField(havePreset, preset.RefAudio),
		defaultRefAudioPath(),
	)
	r.RefText = firstNonEmpty(
		os.Getenv("REF_TEXT"),
		presetField(havePreset, preset.RefText),
	)
	r.VitsONNXPath = firstNonEmpty(
		os.Getenv("VITS_ONNX_PATH"),
		presetField(havePreset, preset.VitsONNX),
	)
	r.CodesPath = firstNonEmpty(
		os.Getenv("CODES_PATH"),
		presetField(havePreset, preset.CodesPath),
	)

	r.Speed = 1.0
	if parsed, ok := parsedEnvFloat("SPEED_FACTOR"); ok {
		r.Speed = parsed
	} else if havePreset && preset.SpeedFactor != nil {
		r.Speed = *preset.SpeedFactor
	}

	return r, nil
}

// resolvePresetPaths resolves a preset's relative asset paths against the
// catalog's models_base_path before precedence is applied.
func resolvePresetPaths(catalog *Catalog, p Preset) (Preset, error) {
	var err error
	if p.RefAudio != "" {
		if p.RefAudio, err = catalog.ResolvePath(p.RefAudio); err != nil {
			return Preset{}, err
		}
	}
	if p.VitsONNX != "" {
		if p.VitsONNX, err = catalog.ResolvePath(p.VitsONNX); err != nil {
			return Preset{}, err
		}
	}
	if p.CodesPath != "" {
		if p.CodesPath, err = catalog.ResolvePath(p.CodesPath); err != nil {
			return Preset{}, err
		}
	}
	return p, nil
}

func presetField(havePreset bool, v string) string {
	if !havePreset {
		return ""
	}
	return v
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func parsedEnvFloat(key string) (float64, bool) {
	v, ok := os.LookupEnv(key)
	if !ok {
		return 0, false
	}
	parsed, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, false
	}
	return parsed, true
}

func defaultRefAudioPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return defaultRefAudio
	}
	return filepath.Join(home, defaultRefAudio)
}
