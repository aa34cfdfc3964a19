// Package prefs ports the preferences and provider-catalog data model from
// original_source/apps/mofa-settings/src/data/{preferences,providers}.rs:
// spec.md §6 names the preferences file's shape but leaves it unowned by
// any of C1-C11. This is a pure data/logic layer (no GUI) — the Settings UI
// that would read it is out of scope per §1, but the model behind it is
// not.
package prefs

import "strings"

// ProviderType is the kind of AI provider API a Provider speaks.
type ProviderType string

const (
	ProviderTypeOpenAI       ProviderType = "openai"
	ProviderTypeDeepSeek     ProviderType = "deepseek"
	ProviderTypeAlibabaCloud ProviderType = "alibaba_cloud"
	ProviderTypeNVIDIA       ProviderType = "nvidia"
	ProviderTypeCustom       ProviderType = "custom"
)

// DisplayName returns the human-facing label for t.
func (t ProviderType) DisplayName() string {
	switch t {
	case ProviderTypeOpenAI:
		return "OpenAI"
	case ProviderTypeDeepSeek:
		return "DeepSeek"
	case ProviderTypeAlibabaCloud:
		return "Alibaba Cloud"
	case ProviderTypeNVIDIA:
		return "NVIDIA"
	default:
		return "Custom"
	}
}

// ConnectionStatus is the live connection state of a configured Provider.
// It is deliberately not persisted (see Provider.MarshalJSON-equivalent:
// the json tag on Provider.Status is "-").
type ConnectionStatus struct {
	State        ConnectionState
	ErrorMessage string
}

// ConnectionState is the enum half of ConnectionStatus.
type ConnectionState int

const (
	Disconnected ConnectionState = iota
	Connecting
	Connected
	ConnectionError
)

// DisplayText mirrors the Rust source's display_text(): the error variant
// shows its own message instead of a generic label.
func (s ConnectionStatus) DisplayText() string {
	switch s.State {
	case Connecting:
		return "Connecting..."
	case Connected:
		return "Connected"
	case ConnectionError:
		return s.ErrorMessage
	default:
		return "Disconnected"
	}
}

// IsConnected reports whether s.State is Connected.
func (s ConnectionStatus) IsConnected() bool {
	return s.State == Connected
}

// Provider is one configured AI provider endpoint.
type Provider struct {
	ID       string           `json:"id"`
	Name     string           `json:"name"`
	URL      string           `json:"url"`
	APIKey   *string          `json:"api_key,omitempty"`
	Type     ProviderType     `json:"provider_type"`
	Enabled  bool             `json:"enabled"`
	Models   []string         `json:"models"`
	IsCustom bool             `json:"is_custom"`
	Status   ConnectionStatus `json:"-"`
}

// NewCustomProvider constructs a user-defined Provider with a generated id
// and Disconnected status.
func NewCustomProvider(name, url string, typ ProviderType) Provider {
	return Provider{
		ID:       GenerateID(name),
		Name:     name,
		URL:      url,
		Type:     typ,
		IsCustom: true,
	}
}

// GenerateID lowercases name and replaces every non-alphanumeric rune with
// an underscore, matching Provider::generate_id in the Rust source exactly
// (including runs of punctuation each becoming their own underscore).
func GenerateID(name string) string {
	lower := strings.ToLower(name)
	var b strings.Builder
	b.Grow(len(lower))
	for _, r := range lower {
		if r >= 'a' && r <= 'z' || r >= '0' && r <= '9' {
			b.WriteRune(r)
		} else {
			b.WriteByte('_')
		}
	}
	return b.String()
}

// StatusColor returns the hex color the (out-of-scope) Settings UI would
// use for this provider's status dot, matching the Rust source's palette
// exactly: disabled providers are always gray regardless of connection
// status.
func (p Provider) StatusColor() string {
	if !p.Enabled {
		return "#9ca3af"
	}
	switch p.Status.State {
	case Connected:
		return "#22c55e"
	case Connecting:
		return "#f59e0b"
	case ConnectionError:
		return "#ef4444"
	default:
		return "#6b7280"
	}
}

// SupportedProviders returns the four built-in OpenAI-compatible provider
// entries, in the order the Rust source defines them.
func SupportedProviders() []Provider {
	return []Provider{
		{
			ID:     "openai",
			Name:   "OpenAI",
			URL:    "https://api.openai.com/v1",
			Type:   ProviderTypeOpenAI,
			Models: []string{"gpt-4o", "gpt-4o-mini", "o1-mini"},
		},
		{
			ID:     "deepseek",
			Name:   "DeepSeek",
			URL:    "https://api.deepseek.com/v1",
			Type:   ProviderTypeDeepSeek,
			Models: []string{"deepseek-chat", "deepseek-reasoner"},
		},
		{
			ID:     "alibaba_cloud",
			Name:   "Alibaba Cloud (Qwen)",
			URL:    "https://dashscope.aliyuncs.com/compatible-mode/v1",
			Type:   ProviderTypeAlibabaCloud,
			Models: []string{"qwen-plus", "qwen-turbo", "qwen-max"},
		},
		{
			ID:   "nvidia",
			Name: "NVIDIA",
			URL:  "https://integrate.api.nvidia.com/v1",
			Type: ProviderTypeNVIDIA,
			Models: []string{
				"deepseek-ai/deepseek-r1",
				"deepseek-ai/deepseek-v3.2",
				"moonshotai/kimi-k2-thinking",
				"minimaxai/minimax-m2",
				"meta/llama-3.3-70b-instruct",
			},
		},
	}
}
