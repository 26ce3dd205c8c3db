package settings

import (
	"fmt"
	"strconv"

	"gopkg.in/yaml.v3"
)

// MarshalYAML encodes n as a single-key mapping: name -> {props..., children...}.
func (n *Node) MarshalYAML() (interface{}, error) {
	return &yaml.Node{
		Kind:    yaml.MappingNode,
		Content: []*yaml.Node{keyNode(n.Name), n.bodyYAML()},
	}, nil
}

func keyNode(s string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: s}
}

func (n *Node) bodyYAML() *yaml.Node {
	m := &yaml.Node{Kind: yaml.MappingNode}
	for _, p := range n.props {
		v := &yaml.Node{Kind: yaml.ScalarNode}
		switch p.Type {
		case TypeInt:
			v.Tag, v.Value = "!!int", strconv.Itoa(p.Int)
		default:
			v.Tag, v.Value = "!!str", p.Str
		}
		m.Content = append(m.Content, keyNode(p.Name), v)
	}
	for _, c := range n.Children {
		m.Content = append(m.Content, keyNode(c.Name), c.bodyYAML())
	}
	return m
}

func (n *Node) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.MappingNode || len(value.Content) != 2 {
		return fmt.Errorf("%w: line %d: settings node must be a single-key mapping", ErrInvalid, value.Line)
	}
	parsed, err := nodeFromYAML(value.Content[0].Value, value.Content[1])
	if err != nil {
		return err
	}
	*n = *parsed
	return nil
}

func nodeFromYAML(name string, body *yaml.Node) (*Node, error) {
	n, err := NewNode(name)
	if err != nil {
		return nil, err
	}
	if body.Kind == yaml.ScalarNode && body.ShortTag() == "!!null" {
		return n, nil
	}
	if body.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("%w: line %d: %s must be a mapping", ErrInvalid, body.Line, name)
	}
	for i := 0; i+1 < len(body.Content); i += 2 {
		k, v := body.Content[i].Value, body.Content[i+1]
		switch v.Kind {
		case yaml.MappingNode:
			c, err := nodeFromYAML(k, v)
			if err != nil {
				return nil, err
			}
			n.AddChild(c)
		case yaml.ScalarNode:
			if v.ShortTag() == "!!int" {
				// yaml.v3 also reads 0x10, 0o17 and 1_000 as ints
				var x int
				if derr := v.Decode(&x); derr != nil {
					return nil, fmt.Errorf("%w: line %d: %s.%s: %v", ErrInvalid, v.Line, name, k, derr)
				}
				err = n.SetInt(k, x)
			} else {
				err = n.SetString(k, v.Value)
			}
			if err != nil {
				return nil, err
			}
		default:
			return nil, fmt.Errorf("%w: line %d: %s.%s: unsupported value", ErrInvalid, v.Line, name, k)
		}
	}
	return n, nil
}
