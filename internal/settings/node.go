// Package settings is the configuration tree backends extend with their own
// properties, plus the registry that binds property names to backend logic.
package settings

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNotFound     = errors.New("binding not found")
	ErrExists       = errors.New("binding already registered")
	ErrNoProperty   = errors.New("no such property")
	ErrWrongType    = errors.New("property has wrong type")
	ErrInvalid      = errors.New("invalid property value")
	ErrInvalidName  = errors.New("invalid name")
	ErrInvalidInput = errors.New("invalid binding")
)

// Type is the type of a leaf property.
type Type int

const (
	TypeString Type = iota + 1
	TypeInt
)

func (t Type) String() string {
	switch t {
	case TypeString:
		return "string"
	case TypeInt:
		return "int"
	default:
		return fmt.Sprintf("Type(%d)", int(t))
	}
}

// Prop is one typed leaf of a Node.
type Prop struct {
	Name string
	Type Type
	Str  string
	Int  int
}

// Node is a named configuration node with ordered leaf properties and children.
type Node struct {
	Name     string
	props    []Prop
	Children []*Node
}

func NewNode(name string) (*Node, error) {
	if err := checkName(name); err != nil {
		return nil, err
	}
	return &Node{Name: name}, nil
}

func checkName(name string) error {
	if name == "" || strings.ContainsAny(name, ". \t\r\n") {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return nil
}

func (n *Node) set(p Prop) error {
	if err := checkName(p.Name); err != nil {
		return err
	}
	for i := range n.props {
		if n.props[i].Name == p.Name {
			n.props[i] = p
			return nil
		}
	}
	n.props = append(n.props, p)
	return nil
}

func (n *Node) SetString(name, v string) error {
	return n.set(Prop{Name: name, Type: TypeString, Str: v})
}

func (n *Node) SetInt(name string, v int) error {
	return n.set(Prop{Name: name, Type: TypeInt, Int: v})
}

func (n *Node) lookup(name string, t Type) (Prop, error) {
	for _, p := range n.props {
		if p.Name != name {
			continue
		}
		if p.Type != t {
			return Prop{}, fmt.Errorf("%w: %s.%s is %s, not %s", ErrWrongType, n.Name, name, p.Type, t)
		}
		return p, nil
	}
	return Prop{}, fmt.Errorf("%w: %s.%s", ErrNoProperty, n.Name, name)
}

// String returns the string property name.
func (n *Node) String(name string) (string, error) {
	p, err := n.lookup(name, TypeString)
	return p.Str, err
}

// Int returns the integer property name.
func (n *Node) Int(name string) (int, error) {
	p, err := n.lookup(name, TypeInt)
	return p.Int, err
}

// Props returns a copy of the leaf properties in insertion order.
func (n *Node) Props() []Prop {
	return append([]Prop(nil), n.props...)
}

// Child returns the first child called name, or nil.
func (n *Node) Child(name string) *Node {
	for _, c := range n.Children {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func (n *Node) AddChild(c *Node) {
	n.Children = append(n.Children, c)
}

// Clone returns a deep copy of n.
func (n *Node) Clone() *Node {
	if n == nil {
		return nil
	}
	c := &Node{Name: n.Name, props: n.Props()}
	for _, ch := range n.Children {
		c.Children = append(c.Children, ch.Clone())
	}
	return c
}

// Build creates a node called name and lets fill populate it. If fill fails
// the node is dropped and only the error is returned.
func Build(name string, fill func(*Node) error) (*Node, error) {
	n, err := NewNode(name)
	if err != nil {
		return nil, err
	}
	if err := fill(n); err != nil {
		return nil, fmt.Errorf("build %s: %w", name, err)
	}
	return n, nil
}
