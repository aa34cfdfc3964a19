package dataflow

import (
	"os"
	"testing"
)

const sampleManifest = `
nodes:
  - id: tts
    operator:
      python: ../../node-hub/dora-primespeech
    outputs:
      - audio
      - log

  - id: mofa-audio-player
    path: dynamic
    inputs:
      audio: tts/audio
    outputs:
      - buffer_status

  - id: mofa-system-log
    path: dynamic
    inputs:
      tts_log: tts/log
`

func TestParseMofaNodesAndLogSources(t *testing.T) {
	pd, err := ParseString(sampleManifest, "test.yml")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(pd.MofaNodes) != 2 {
		t.Fatalf("expected 2 mofa nodes, got %d", len(pd.MofaNodes))
	}
	if pd.MofaNodes[0].ID != "mofa-audio-player" || pd.MofaNodes[1].ID != "mofa-system-log" {
		t.Fatalf("unexpected mofa node order: %+v", pd.MofaNodes)
	}

	if len(pd.LogSources) != 2 {
		t.Fatalf("expected 2 log sources, got %+v", pd.LogSources)
	}
	if pd.LogSources[0].NodeID != "tts" || pd.LogSources[0].OutputID != "log" {
		t.Fatalf("unexpected first log source: %+v", pd.LogSources[0])
	}
	if pd.LogSources[1].NodeID != "mofa-audio-player" || pd.LogSources[1].OutputID != "buffer_status" {
		t.Fatalf("unexpected second log source: %+v", pd.LogSources[1])
	}
}

// TestEnvPlaceholderGrammar covers scenario S6.
func TestEnvPlaceholderGrammar(t *testing.T) {
	if _, ok := os.LookupEnv("X"); ok {
		t.Skip("ambient environment already defines X, cannot exercise the unset case")
	}
	if _, ok := os.LookupEnv("Y"); ok {
		t.Skip("ambient environment already defines Y, cannot exercise the unset case")
	}

	manifest := `
nodes:
  - id: n1
    custom:
      source: some/binary
    env:
      FOO: "${X:-bar}"
      KEY: "${Y}"
      API_KEY_OPENAI: "literal-value"
`
	pd, err := ParseString(manifest, "test.yml")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	byKey := map[string]EnvRequirement{}
	for _, r := range pd.EnvRequirements {
		byKey[r.Key] = r
	}

	foo, ok := byKey["FOO"]
	if !ok {
		t.Fatalf("expected FOO requirement, got %+v", pd.EnvRequirements)
	}
	if foo.Required || foo.Default == nil || *foo.Default != "bar" {
		t.Fatalf("expected FOO required=false default=bar, got %+v", foo)
	}

	y, ok := byKey["Y"]
	if !ok {
		t.Fatalf("expected Y requirement (from the KEY field's placeholder), got %+v", pd.EnvRequirements)
	}
	if !y.Required || y.Default != nil {
		t.Fatalf("expected Y required=true default=nil, got %+v", y)
	}

	if _, ok := byKey["KEY"]; ok {
		t.Fatal("did not expect a requirement keyed by the literal manifest field name KEY")
	}

	apiKey, ok := byKey["API_KEY_OPENAI"]
	if !ok || !apiKey.Secret {
		t.Fatalf("expected API_KEY_OPENAI to be flagged secret, got %+v", apiKey)
	}

	missing := pd.GetMissingEnvVars()
	if len(missing) != 1 || missing[0].Key != "Y" {
		t.Fatalf("expected only Y missing, got %+v", missing)
	}
}

func TestParseNodeInputShapes(t *testing.T) {
	manifest := `
nodes:
  - id: src
    custom:
      source: bin
    outputs: [out]
  - id: dst
    custom:
      source: bin
    inputs:
      plain: src/out
      nested:
        source: src/out
        queue_size: 10
`
	pd, err := ParseString(manifest, "test.yml")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	dst, ok := pd.GetNode("dst")
	if !ok {
		t.Fatal("expected dst node")
	}
	if len(dst.Inputs) != 2 {
		t.Fatalf("expected 2 resolved inputs, got %+v", dst.Inputs)
	}
	for _, in := range dst.Inputs {
		if in.Source != "src/out" {
			t.Fatalf("expected both input shapes to resolve to src/out, got %+v", in)
		}
	}
}

func TestParseStringRequiresNodes(t *testing.T) {
	if _, err := ParseString("foo: bar", "test.yml"); err != ErrNoNodes {
		t.Fatalf("expected ErrNoNodes, got %v", err)
	}
}
