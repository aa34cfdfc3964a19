// Package dataflow parses dora-style dataflow YAML manifests and supervises
// the external process group they describe.
package dataflow

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// NodeKind distinguishes how a node's operator is implemented.
type NodeKind int

const (
	KindPython NodeKind = iota
	KindRust
	KindCustom
	KindDynamic
)

func (k NodeKind) String() string {
	switch k {
	case KindPython:
		return "python"
	case KindRust:
		return "rust"
	case KindCustom:
		return "custom"
	case KindDynamic:
		return "dynamic"
	default:
		return "unknown"
	}
}

// InputDef is a node input with its resolved "node_id/output_id" source,
// accepted in either the bare-string or nested-mapping manifest shape.
type InputDef struct {
	ID     string
	Source string
}

// ParsedNode is a single entry from the manifest's nodes sequence.
type ParsedNode struct {
	ID        string
	Kind      NodeKind
	Path      string // operator path/source, empty for Dynamic
	Args      string
	Inputs    []InputDef
	Outputs   []string
	Env       map[string]string
	IsDynamic bool
}

// mofaPrefix is the reserved node-id prefix recognised as a dynamically
// attached widget node.
const mofaPrefix = "mofa-"

// MofaNodeSpec describes a node recognised as one of the fixed mofa widgets.
type MofaNodeSpec struct {
	ID      string
	Inputs  []InputDef
	Outputs []string
}

// EnvRequirement is an aggregated environment-variable need discovered
// across every node's env block.
//
// Key is the map key from the manifest for literal and defaulted
// placeholder values, but for a required placeholder (no default) it is the
// variable name inside the placeholder itself — that is the name
// GetMissingEnvVars actually checks against the process environment, so it
// must track the real variable, not whatever label the manifest author gave
// the field.
type EnvRequirement struct {
	Key      string
	Required bool
	Default  *string
	Secret   bool
	UsedBy   []string
}

// LogSource is an output recognised as feeding the system-log widget.
type LogSource struct {
	NodeID      string
	OutputID    string
	DisplayName string
}

// ParsedDataflow is the result of parsing a manifest: the typed node list,
// mofa widget specs, aggregated env requirements, and derived log sources.
type ParsedDataflow struct {
	Path            string
	Nodes           []ParsedNode
	MofaNodes       []MofaNodeSpec
	EnvRequirements []EnvRequirement
	LogSources      []LogSource
	RawYAML         map[string]any
}

// Parse reads and parses the manifest at path.
func Parse(path string) (*ParsedDataflow, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("dataflow: read %q: %w", path, err)
	}
	return ParseString(string(content), path)
}

// ParseString parses raw YAML content; path is recorded for reference only.
func ParseString(content string, path string) (*ParsedDataflow, error) {
	var raw map[string]any
	if err := yaml.Unmarshal([]byte(content), &raw); err != nil {
		return nil, fmt.Errorf("dataflow: decode yaml: %w", err)
	}

	nodesRaw, _ := raw["nodes"].([]any)
	if nodesRaw == nil {
		return nil, ErrNoNodes
	}

	pd := &ParsedDataflow{Path: path, RawYAML: raw}

	for _, nv := range nodesRaw {
		m, ok := nv.(map[string]any)
		if !ok {
			continue
		}
		node, ok := parseNode(m)
		if !ok {
			continue
		}

		if strings.HasPrefix(node.ID, mofaPrefix) {
			pd.MofaNodes = append(pd.MofaNodes, MofaNodeSpec{
				ID:      node.ID,
				Inputs:  node.Inputs,
				Outputs: node.Outputs,
			})
		}

		for _, out := range node.Outputs {
			if isLogShaped(out) {
				pd.LogSources = append(pd.LogSources, LogSource{
					NodeID:      node.ID,
					OutputID:    out,
					DisplayName: formatDisplayName(node.ID),
				})
			}
		}

		for key, val := range node.Env {
			addEnvRequirement(&pd.EnvRequirements, key, val, node.ID)
		}

		pd.Nodes = append(pd.Nodes, node)
	}

	return pd, nil
}

func isLogShaped(output string) bool {
	return output == "log" || strings.HasSuffix(output, "_log") || strings.HasSuffix(output, "_status")
}

func parseNode(m map[string]any) (ParsedNode, bool) {
	id, _ := m["id"].(string)
	if id == "" {
		return ParsedNode{}, false
	}

	node := ParsedNode{ID: id}

	isDynamic := false
	if p, ok := m["path"].(string); ok && p == "dynamic" {
		isDynamic = true
	}
	node.IsDynamic = isDynamic

	switch {
	case isDynamic:
		node.Kind = KindDynamic
	default:
		if op, ok := m["operator"].(map[string]any); ok {
			if py, ok := op["python"].(string); ok {
				node.Kind = KindPython
				node.Path = py
			} else if rs, ok := op["rust"].(string); ok {
				node.Kind = KindRust
				node.Path = rs
			} else {
				node.Kind = KindDynamic
			}
		} else if custom, ok := m["custom"].(map[string]any); ok {
			node.Kind = KindCustom
			node.Path, _ = custom["source"].(string)
			if args, ok := custom["args"].(string); ok {
				node.Args = args
			}
		} else {
			return ParsedNode{}, false
		}
	}

	if inputs, ok := m["inputs"].(map[string]any); ok {
		for key, v := range inputs {
			var source string
			switch val := v.(type) {
			case string:
				source = val
			case map[string]any:
				source, _ = val["source"].(string)
			}
			if source != "" {
				node.Inputs = append(node.Inputs, InputDef{ID: key, Source: source})
			}
		}
	}

	if outputs, ok := m["outputs"].([]any); ok {
		for _, o := range outputs {
			if s, ok := o.(string); ok {
				node.Outputs = append(node.Outputs, s)
			}
		}
	}

	if env, ok := m["env"].(map[string]any); ok {
		node.Env = make(map[string]string, len(env))
		for key, v := range env {
			switch val := v.(type) {
			case string:
				node.Env[key] = val
			case bool:
				node.Env[key] = fmt.Sprintf("%t", val)
			case int:
				node.Env[key] = fmt.Sprintf("%d", val)
			case float64:
				node.Env[key] = fmt.Sprintf("%g", val)
			}
		}
	}

	return node, true
}

func formatDisplayName(nodeID string) string {
	replaced := strings.NewReplacer("_", " ", "-", " ").Replace(nodeID)
	words := strings.Fields(replaced)
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

var secretMarkers = []string{"API_KEY", "SECRET", "PASSWORD", "TOKEN"}

func isSecretKey(key string) bool {
	upper := strings.ToUpper(key)
	for _, marker := range secretMarkers {
		if strings.Contains(upper, marker) {
			return true
		}
	}
	return false
}

// parsePlaceholder recognises ${VAR}, ${VAR:-default}, $VAR, or a plain
// literal. isPlaceholder is false for literals, in which case varName and
// defaultValue are empty.
func parsePlaceholder(value string) (isPlaceholder bool, varName string, hasDefault bool, defaultValue string) {
	switch {
	case strings.HasPrefix(value, "${") && strings.HasSuffix(value, "}"):
		inner := value[2 : len(value)-1]
		if idx := strings.Index(inner, ":-"); idx >= 0 {
			return true, inner[:idx], true, inner[idx+2:]
		}
		return true, inner, false, ""
	case strings.HasPrefix(value, "$"):
		return true, value[1:], false, ""
	default:
		return false, "", false, ""
	}
}

func addEnvRequirement(reqs *[]EnvRequirement, mapKey, value, nodeID string) {
	isPlaceholder, varName, hasDefault, defaultValue := parsePlaceholder(value)

	key := mapKey
	required := false
	var def *string

	switch {
	case !isPlaceholder:
		literal := value
		def = &literal
	case hasDefault:
		d := defaultValue
		def = &d
	default:
		required = true
		key = varName
	}

	secret := isSecretKey(key)

	for i := range *reqs {
		if (*reqs)[i].Key == key {
			(*reqs)[i].UsedBy = append((*reqs)[i].UsedBy, nodeID)
			return
		}
	}

	*reqs = append(*reqs, EnvRequirement{
		Key:      key,
		Required: required,
		Default:  def,
		Secret:   secret,
		UsedBy:   []string{nodeID},
	})
}

// MofaNodeIDs returns the ids of every recognised mofa widget node.
func (pd *ParsedDataflow) MofaNodeIDs() []string {
	ids := make([]string, len(pd.MofaNodes))
	for i, n := range pd.MofaNodes {
		ids[i] = n.ID
	}
	return ids
}

// GetMofaNode looks up a mofa widget spec by id.
func (pd *ParsedDataflow) GetMofaNode(id string) (MofaNodeSpec, bool) {
	for _, n := range pd.MofaNodes {
		if n.ID == id {
			return n, true
		}
	}
	return MofaNodeSpec{}, false
}

// GetNode looks up a parsed node by id.
func (pd *ParsedDataflow) GetNode(id string) (ParsedNode, bool) {
	for _, n := range pd.Nodes {
		if n.ID == id {
			return n, true
		}
	}
	return ParsedNode{}, false
}

// GetMissingEnvVars returns the required env requirements not currently set
// in the process environment.
func (pd *ParsedDataflow) GetMissingEnvVars() []EnvRequirement {
	var missing []EnvRequirement
	for _, r := range pd.EnvRequirements {
		if !r.Required {
			continue
		}
		if _, ok := os.LookupEnv(r.Key); ok {
			continue
		}
		missing = append(missing, r)
	}
	return missing
}
