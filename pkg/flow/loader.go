package flow

import (
	"errors"
	"fmt"
	"os"

	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"

	"github.com/parleyflow/parley/pkg/domain"
)

// Load parses a flow document (YAML or JSON) and validates its integrity.
// It returns the definition only when it is fully usable; otherwise the
// error is a *domain.IntegrityError listing every violation.
func Load(data []byte) (*domain.FlowDefinition, error) {
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing flow document: %w", err)
	}

	def, err := Decode(raw)
	if err != nil {
		return nil, err
	}
	if err := Validate(def); err != nil {
		return nil, err
	}
	return def, nil
}

// LoadFile reads and loads a flow document from disk.
func LoadFile(path string) (*domain.FlowDefinition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading flow file: %w", err)
	}
	return Load(data)
}

// Decode maps a raw document onto a FlowDefinition. Unknown keys are
// integrity violations: a typoed field silently ignored is a flow that
// misbehaves in production.
func Decode(raw map[string]any) (*domain.FlowDefinition, error) {
	normalizeNodes(raw)

	var def domain.FlowDefinition
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:     "json",
		Result:      &def,
		ErrorUnused: true,
	})
	if err != nil {
		return nil, fmt.Errorf("building flow decoder: %w", err)
	}

	if err := dec.Decode(raw); err != nil {
		ie := &domain.IntegrityError{FlowID: stringField(raw, "id")}
		var merr *mapstructure.Error
		if errors.As(err, &merr) {
			ie.Violations = merr.Errors
		} else {
			ie.Add("decoding flow document: %v", err)
		}
		return nil, ie
	}

	// Nodes are keyed by ID in the document; backfill the field so nodes
	// can be passed around standalone.
	for id, node := range def.Nodes {
		if node.ID == "" {
			node.ID = id
			def.Nodes[id] = node
		}
	}
	return &def, nil
}

// normalizeNodes rewrites older node spellings to their canonical names so
// documents written against earlier engines keep loading: "message" is
// "prompt", "input_field" is "output_variable", and a bare "collect_input"
// boolean marks a collect_input node. The canonical key wins when both are
// present.
func normalizeNodes(raw map[string]any) {
	nodes, _ := raw["nodes"].(map[string]any)
	for _, v := range nodes {
		node, ok := v.(map[string]any)
		if !ok {
			continue
		}
		renameKey(node, "message", "prompt")
		renameKey(node, "input_field", "output_variable")
		if b, ok := node["collect_input"].(bool); ok {
			if b && node["type"] == nil {
				node["type"] = string(domain.NodeCollectInput)
			}
			delete(node, "collect_input")
		}
	}
}

func renameKey(m map[string]any, from, to string) {
	v, ok := m[from]
	if !ok {
		return
	}
	if _, taken := m[to]; !taken {
		m[to] = v
	}
	delete(m, from)
}

func stringField(raw map[string]any, key string) string {
	s, _ := raw[key].(string)
	return s
}
