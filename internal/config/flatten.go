package config

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// FlattenYAML parses a YAML document into dotted keys:
//
//	nominal:
//	  time: 2015-05-15T12:00Z
//
// becomes {"nominal.time": "2015-05-15T12:00Z"}. Scalars keep their literal
// text, so timestamps and numbers are not reinterpreted. A sequence of
// scalars is joined with commas. An empty document yields an empty map.
func FlattenYAML(data []byte) (map[string]string, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse yaml: %w", err)
	}
	if doc.Kind == 0 || len(doc.Content) == 0 {
		return map[string]string{}, nil
	}
	return FlattenNode(doc.Content[0])
}

// FlattenNode is FlattenYAML for an already decoded mapping node. A nil or
// null node yields an empty map.
func FlattenNode(n *yaml.Node) (map[string]string, error) {
	out := make(map[string]string)
	if n == nil || n.Kind == 0 || (n.Kind == yaml.ScalarNode && n.Tag == "!!null") {
		return out, nil
	}
	if n.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("line %d: expected a mapping", n.Line)
	}
	if err := flatten("", n, out); err != nil {
		return nil, err
	}
	return out, nil
}

func flatten(prefix string, n *yaml.Node, out map[string]string) error {
	switch n.Kind {
	case yaml.MappingNode:
		for i := 0; i+1 < len(n.Content); i += 2 {
			k, v := n.Content[i], n.Content[i+1]
			if k.Kind != yaml.ScalarNode {
				return fmt.Errorf("line %d: mapping keys must be scalars", k.Line)
			}
			key := k.Value
			if prefix != "" {
				key = prefix + "." + key
			}
			if err := flatten(key, v, out); err != nil {
				return err
			}
		}
	case yaml.SequenceNode:
		vals := make([]string, 0, len(n.Content))
		for _, item := range n.Content {
			if item.Kind != yaml.ScalarNode {
				return fmt.Errorf("line %d: %s: only lists of scalars are supported", item.Line, prefix)
			}
			vals = append(vals, item.Value)
		}
		out[prefix] = strings.Join(vals, ",")
	case yaml.AliasNode:
		return flatten(prefix, n.Alias, out)
	case yaml.ScalarNode:
		if n.Tag == "!!null" {
			out[prefix] = ""
			return nil
		}
		out[prefix] = n.Value
	}
	return nil
}
