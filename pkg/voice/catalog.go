// Package voice resolves named voice presets out of a process-wide JSON
// catalog, grounded on dora-gpt-sovits-mlx/src/config.rs's VoicesConfig
// (~/.dora/models/primespeech/voices.json, VOICE_CHARACTER/VOICES_CONFIG
// env vars, case-insensitive name-or-alias lookup, ~-relative path
// resolution against models_base_path).
package voice

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

const defaultVoicesConfigPath = "~/.dora/models/primespeech/voices.json"

// Preset is one named voice entry from the catalog.
type Preset struct {
	RefAudio    string   `json:"ref_audio"`
	RefText     string   `json:"ref_text"`
	VitsONNX    string   `json:"vits_onnx,omitempty"`
	CodesPath   string   `json:"codes_path,omitempty"`
	SpeedFactor *float64 `json:"speed_factor,omitempty"`
	Aliases     []string `json:"aliases,omitempty"`
}

// Catalog is the root voices.json structure.
type Catalog struct {
	DefaultVoice   string            `json:"default_voice"`
	ModelsBasePath string            `json:"models_base_path"`
	Voices         map[string]Preset `json:"voices"`
}

// ConfigPath returns VOICES_CONFIG if set, else the built-in default.
func ConfigPath() string {
	if p, ok := os.LookupEnv("VOICES_CONFIG"); ok && p != "" {
		return p
	}
	return defaultVoicesConfigPath
}

// Load reads and parses a catalog from path (after ~ expansion). Unlike the
// original Rust loader, which returned None on any error, Load reports the
// error so callers at process init can fail loudly per spec §7's
// Configuration error class.
func Load(path string) (*Catalog, error) {
	expanded, err := ExpandHome(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(expanded)
	if err != nil {
		return nil, err
	}
	var c Catalog
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, err
	}
	if c.DefaultVoice == "" {
		c.DefaultVoice = "doubao"
	}
	if c.ModelsBasePath == "" {
		c.ModelsBasePath = "~/.dora/models/primespeech"
	}
	return &c, nil
}

// Find looks up name case-insensitively against both canonical preset names
// and their aliases.
func (c *Catalog) Find(name string) (Preset, bool) {
	lower := strings.ToLower(name)
	for key, preset := range c.Voices {
		if strings.ToLower(key) == lower {
			return preset, true
		}
	}
	for _, preset := range c.Voices {
		for _, alias := range preset.Aliases {
			if strings.ToLower(alias) == lower {
				return preset, true
			}
		}
	}
	return Preset{}, false
}

// ResolvePath resolves a preset-relative path against ModelsBasePath. An
// already-absolute or ~-prefixed path is expanded as-is.
func (c *Catalog) ResolvePath(relative string) (string, error) {
	if relative == "" {
		return "", nil
	}
	if strings.HasPrefix(relative, "/") || strings.HasPrefix(relative, "~") {
		return ExpandHome(relative)
	}
	base, err := ExpandHome(c.ModelsBasePath)
	if err != nil {
		return "", err
	}
	return filepath.Join(base, relative), nil
}

// ExpandHome expands a leading ~ to the user's home directory.
func ExpandHome(path string) (string, error) {
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		if path == "~" {
			return home, nil
		}
		return filepath.Join(home, path[2:]), nil
	}
	return path, nil
}

var (
	once    sync.Once
	loaded  *Catalog
	loadErr error
)

// Process initializes the process-wide catalog exactly once, reading
// ConfigPath(). Subsequent calls return the first call's result — per spec
// §9's "global mutable state" note, the catalog is immutable after load.
func Process() (*Catalog, error) {
	once.Do(func() {
		loaded, loadErr = Load(ConfigPath())
	})
	return loaded, loadErr
}

// resetForTest undoes Process()'s memoization; test-only.
func resetForTest() {
	once = sync.Once{}
	loaded, loadErr = nil, nil
}
