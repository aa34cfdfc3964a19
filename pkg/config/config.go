// Package config centralizes process configuration for the voxdeck
// workstation binaries: log level, dataflow manifest path, preferences and
// voices catalog overrides, and the ASR worker binary search roots from
// spec §4.8. Values come from the environment (optionally loaded from a
// .env file via godotenv, matching the teacher's cmd/agent startup) with
// hardcoded fallbacks, never a layered config framework.
package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config is the full set of process-wide settings read once at startup.
type Config struct {
	// LogLevel is one of "debug", "info", "warn", "error".
	LogLevel string

	// ManifestPath is the dataflow YAML manifest to launch (C4/C5).
	ManifestPath string

	// EnvOverrides are extra KEY=VALUE pairs attached to the dataflow
	// process group on top of the manifest's own env section, per spec
	// §4.5's set_envs contract.
	EnvOverrides map[string]string

	// PreferencesPath overrides $HOME/.dora/dashboard/preferences.json.
	PreferencesPath string

	// VoicesConfigPath overrides VOICES_CONFIG / the built-in default.
	VoicesConfigPath string

	// AsrWorkerSearchRoots is loaded from ASR_WORKER_SEARCH_ROOTS. The ASR
	// binary lookup (integration.ResolveAsrBinary) does not consult it.
	AsrWorkerSearchRoots []string

	// DefaultPromptText is loaded from DEFAULT_PROMPT_TEXT; no code in this
	// module reads it to seed a prompt. Left empty by default: spec §9 leaves this
	// literal external to the code rather than a baked-in default, and
	// persistence beyond the preferences file is a Non-goal.
	DefaultPromptText string

	// PollIntervalSeconds sets how often cmd/workstation drains worker
	// events and logs. StartupGraceSeconds is loaded but not applied. The
	// Integration Worker's own startup grace (10s) and status poll interval
	// (2s) are fixed constants in pkg/integration.
	StartupGraceSeconds int
	PollIntervalSeconds int
}

const (
	defaultStartupGraceSeconds = 10
	defaultPollIntervalSeconds = 2
)

// Load reads Config from the environment, first attempting to load a local
// .env file (errors are non-fatal, matching the teacher's cmd/agent: a
// missing .env is normal in production).
func Load() Config {
	_ = godotenv.Load()

	return Config{
		LogLevel:             firstNonEmpty(os.Getenv("LOG_LEVEL"), "info"),
		ManifestPath:         os.Getenv("DATAFLOW_MANIFEST"),
		EnvOverrides:         map[string]string{},
		PreferencesPath:      os.Getenv("PREFERENCES_PATH"),
		VoicesConfigPath:     os.Getenv("VOICES_CONFIG"),
		AsrWorkerSearchRoots: splitNonEmpty(os.Getenv("ASR_WORKER_SEARCH_ROOTS")),
		DefaultPromptText:    os.Getenv("DEFAULT_PROMPT_TEXT"),
		StartupGraceSeconds:  envIntOrDefault("INTEGRATION_STARTUP_GRACE_SECONDS", defaultStartupGraceSeconds),
		PollIntervalSeconds:  envIntOrDefault("INTEGRATION_POLL_INTERVAL_SECONDS", defaultPollIntervalSeconds),
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func splitNonEmpty(csv string) []string {
	if csv == "" {
		return nil
	}
	var out []string
	start := 0
	for i := 0; i <= len(csv); i++ {
		if i == len(csv) || csv[i] == ',' {
			if i > start {
				out = append(out, csv[start:i])
			}
			start = i + 1
		}
	}
	return out
}

func envIntOrDefault(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	parsed, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return parsed
}
