package prefs

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Preferences is the on-disk shape of $HOME/.dora/dashboard/preferences.json
// (spec.md §6). Forward-compatible: fields this version of the binary
// doesn't know about round-trip through Extra instead of being dropped on
// Save.
type Preferences struct {
	Providers           []Provider `json:"providers"`
	DefaultChatProvider *string    `json:"default_chat_provider"`
	DefaultTTSProvider  *string    `json:"default_tts_provider"`
	DefaultASRProvider  *string    `json:"default_asr_provider"`
	AudioInputDevice    *string    `json:"audio_input_device,omitempty"`
	AudioOutputDevice   *string    `json:"audio_output_device,omitempty"`
	DarkMode            bool       `json:"dark_mode,omitempty"`

	// Extra holds any JSON object members not named above, so a newer
	// binary's preferences.json doesn't lose fields when an older binary
	// loads and re-saves it.
	Extra map[string]json.RawMessage `json:"-"`
}

var knownPreferencesFields = map[string]bool{
	"providers":             true,
	"default_chat_provider": true,
	"default_tts_provider":  true,
	"default_asr_provider":  true,
	"audio_input_device":    true,
	"audio_output_device":   true,
	"dark_mode":             true,
}

// UnmarshalJSON decodes the known fields normally and stashes everything
// else in Extra.
func (p *Preferences) UnmarshalJSON(data []byte) error {
	type alias Preferences
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	extra := make(map[string]json.RawMessage)
	for k, v := range raw {
		if !knownPreferencesFields[k] {
			extra[k] = v
		}
	}
	a.Extra = extra
	*p = Preferences(a)
	return nil
}

// MarshalJSON encodes the known fields and merges Extra's members back in.
func (p Preferences) MarshalJSON() ([]byte, error) {
	type alias Preferences
	known, err := json.Marshal(alias(p))
	if err != nil {
		return nil, err
	}
	if len(p.Extra) == 0 {
		return known, nil
	}

	var merged map[string]json.RawMessage
	if err := json.Unmarshal(known, &merged); err != nil {
		return nil, err
	}
	for k, v := range p.Extra {
		if _, ok := merged[k]; !ok {
			merged[k] = v
		}
	}
	return json.Marshal(merged)
}

// PreferencesPath returns $HOME/.dora/dashboard/preferences.json, falling
// back to the current directory if HOME can't be resolved (matching the
// Rust source's dirs::home_dir().unwrap_or_else(|| PathBuf::from("."))).
func PreferencesPath() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		home = "."
	}
	return filepath.Join(home, ".dora", "dashboard", "preferences.json")
}

// LoadPreferences reads preferences from path (PreferencesPath() if empty),
// merging in the built-in supported providers and defaulting to them
// outright if the file doesn't exist or fails to parse — matching the Rust
// source's load(), which never returns an error: a corrupt preferences file
// degrades to defaults rather than blocking startup.
func LoadPreferences(path string) Preferences {
	if path == "" {
		path = PreferencesPath()
	}

	content, err := os.ReadFile(path)
	if err == nil {
		var p Preferences
		if jsonErr := json.Unmarshal(content, &p); jsonErr == nil {
			p.MergeWithSupportedProviders()
			return p
		}
	}

	return Preferences{Providers: SupportedProviders()}
}

// Save writes p to path (PreferencesPath() if empty) as indented JSON,
// creating parent directories as needed.
func (p Preferences) Save(path string) error {
	if path == "" {
		path = PreferencesPath()
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("prefs: create preferences dir: %w", err)
		}
	}
	content, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return fmt.Errorf("prefs: marshal preferences: %w", err)
	}
	if err := os.WriteFile(path, content, 0o644); err != nil {
		return fmt.Errorf("prefs: write preferences: %w", err)
	}
	return nil
}

// MergeWithSupportedProviders adds any built-in provider missing from
// p.Providers, leaving existing entries (including user customizations of
// built-ins) untouched.
func (p *Preferences) MergeWithSupportedProviders() {
	for _, supported := range SupportedProviders() {
		if _, ok := p.GetProvider(supported.ID); !ok {
			p.Providers = append(p.Providers, supported)
		}
	}
}

// GetProvider returns the provider with the given id, if present.
func (p *Preferences) GetProvider(id string) (*Provider, bool) {
	for i := range p.Providers {
		if p.Providers[i].ID == id {
			return &p.Providers[i], true
		}
	}
	return nil, false
}

// UpsertProvider replaces the provider matching prov.ID, or appends it if
// none exists.
func (p *Preferences) UpsertProvider(prov Provider) {
	for i := range p.Providers {
		if p.Providers[i].ID == prov.ID {
			p.Providers[i] = prov
			return
		}
	}
	p.Providers = append(p.Providers, prov)
}

// RemoveProvider deletes the custom provider with the given id. Built-in
// (non-custom) providers cannot be removed.
func (p *Preferences) RemoveProvider(id string) error {
	for i := range p.Providers {
		if p.Providers[i].ID == id {
			if !p.Providers[i].IsCustom {
				return fmt.Errorf("%w: %s", ErrProviderNotCustom, id)
			}
			p.Providers = append(p.Providers[:i], p.Providers[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrProviderNotFound, id)
}

// EnabledProviders returns every provider with Enabled set.
func (p *Preferences) EnabledProviders() []Provider {
	var out []Provider
	for _, prov := range p.Providers {
		if prov.Enabled {
			out = append(out, prov)
		}
	}
	return out
}
