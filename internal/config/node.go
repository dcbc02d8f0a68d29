package config

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// NodeConfig describes one component of the tree. Kind selects the
// constructor, Model the body description for engine-backed kinds, and
// Options is decoded into the kind's option struct.
type NodeConfig struct {
	Kind     string         `yaml:"kind"`
	Model    string         `yaml:"model,omitempty"`
	Options  map[string]any `yaml:"options,omitempty"`
	Children Children       `yaml:"children,omitempty"`
}

type NamedNode struct {
	Name string
	Node NodeConfig
}

// Children keeps the order in which a scene file lists them, which is the
// order they are registered, reset and driven in.
type Children []NamedNode

func (c *Children) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: children must be a mapping", value.Line)
	}
	out := make(Children, 0, len(value.Content)/2)
	for i := 0; i+1 < len(value.Content); i += 2 {
		var n NodeConfig
		if err := value.Content[i+1].Decode(&n); err != nil {
			return err
		}
		out = append(out, NamedNode{Name: value.Content[i].Value, Node: n})
	}
	*c = out
	return nil
}

func (c Children) MarshalYAML() (any, error) {
	m := &yaml.Node{Kind: yaml.MappingNode}
	for _, ch := range c {
		var v yaml.Node
		if err := v.Encode(ch.Node); err != nil {
			return nil, err
		}
		m.Content = append(m.Content, &yaml.Node{Kind: yaml.ScalarNode, Value: ch.Name}, &v)
	}
	return m, nil
}

// Child returns the named direct child.
func (n *NodeConfig) Child(name string) (*NodeConfig, bool) {
	for i := range n.Children {
		if n.Children[i].Name == name {
			return &n.Children[i].Node, true
		}
	}
	return nil, false
}

func (n *NodeConfig) validate(path string) error {
	if n.Kind == "" {
		return fmt.Errorf("%w: %s has no kind", ErrInvalid, path)
	}
	seen := make(map[string]bool, len(n.Children))
	for _, ch := range n.Children {
		if ch.Name == "" {
			return fmt.Errorf("%w: %s has an unnamed child", ErrInvalid, path)
		}
		if seen[ch.Name] {
			return fmt.Errorf("%w: %s lists child %q twice", ErrInvalid, path, ch.Name)
		}
		seen[ch.Name] = true
		if err := ch.Node.validate(path + "." + ch.Name); err != nil {
			return err
		}
	}
	return nil
}
