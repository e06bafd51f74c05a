package catalog

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// RuleKind distinguishes the three shapes a mandatory rule can take.
type RuleKind int

const (
	// RuleNever means the field is optional in every stage. It is the zero value.
	RuleNever RuleKind = iota
	// RuleAlways means the field is required in every stage, known or not.
	RuleAlways
	// RuleStages means the field is required only in the listed stages.
	RuleStages
)

// MandatoryRule is decoded from `true`, `false`, null/absent or a list of
// stage ids. Any other shape decodes as RuleNever with the source text
// kept in Invalid so the validator can report it.
type MandatoryRule struct {
	Kind    RuleKind
	Stages  []Stage
	Invalid string
}

// Always returns a rule that is mandatory in every stage.
func Always() MandatoryRule { return MandatoryRule{Kind: RuleAlways} }

// Never returns a rule that is never mandatory.
func Never() MandatoryRule { return MandatoryRule{Kind: RuleNever} }

// InStages returns a rule that is mandatory for the listed stages only.
func InStages(stages ...Stage) MandatoryRule {
	return MandatoryRule{Kind: RuleStages, Stages: append([]Stage(nil), stages...)}
}

// UnmarshalJSON accepts a boolean, null, or an array of stage ids. It
// never fails: other shapes become an unsupported rule.
func (r *MandatoryRule) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		*r = Never()
		return nil
	}
	switch trimmed[0] {
	case 't', 'f':
		var flag bool
		if err := json.Unmarshal(trimmed, &flag); err == nil {
			*r = fromBool(flag)
			return nil
		}
	case '[':
		var stages []Stage
		if err := json.Unmarshal(trimmed, &stages); err == nil {
			*r = InStages(stages...)
			return nil
		}
	}
	*r = unsupported(string(trimmed))
	return nil
}

// MarshalJSON writes the rule back in its source shape.
func (r MandatoryRule) MarshalJSON() ([]byte, error) {
	switch r.Kind {
	case RuleAlways:
		return []byte("true"), nil
	case RuleStages:
		stages := r.Stages
		if stages == nil {
			stages = []Stage{}
		}
		return json.Marshal(stages)
	default:
		return []byte("false"), nil
	}
}

// UnmarshalYAML accepts the same shapes as UnmarshalJSON and, like it,
// never fails.
func (r *MandatoryRule) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		if node.Tag == "!!null" {
			*r = Never()
			return nil
		}
		if node.Tag == "!!bool" {
			var flag bool
			if err := node.Decode(&flag); err == nil {
				*r = fromBool(flag)
				return nil
			}
		}
	case yaml.SequenceNode:
		var stages []Stage
		if err := node.Decode(&stages); err == nil {
			*r = InStages(stages...)
			return nil
		}
	}
	*r = unsupported(yamlSource(node))
	return nil
}

func yamlSource(node *yaml.Node) string {
	if node.Kind == yaml.ScalarNode {
		return node.Value
	}
	raw, err := yaml.Marshal(node)
	if err != nil {
		return fmt.Sprintf("line %d", node.Line)
	}
	return strings.TrimSpace(string(raw))
}

// MarshalYAML writes the rule back in its source shape.
func (r MandatoryRule) MarshalYAML() (any, error) {
	switch r.Kind {
	case RuleAlways:
		return true, nil
	case RuleStages:
		return r.Stages, nil
	default:
		return false, nil
	}
}

func unsupported(source string) MandatoryRule {
	return MandatoryRule{Kind: RuleNever, Invalid: source}
}

func fromBool(flag bool) MandatoryRule {
	if flag {
		return Always()
	}
	return Never()
}
