// Package yaml offers a simplified YAML parser abstraction. Documents are
// parsed into a minimal node tree that keeps mapping keys in document order
// and exposes the YAML tags, so callers can distinguish value types without
// committing to a full schema up front.
package yaml

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// New creates a new YAML parser.
func New() Parser {
	return &parser{}
}

// Parser is a YAML parser that parses into a simplified value structure.
type Parser interface {
	// Parse parses the provided document into the simplified node representation.
	Parse(data []byte) (Node, error)
}

// TypeID represents the value structure in accordance with the YAML specification 10.1.1.
// See https://yaml.org/spec/1.2.2/#101-failsafe-schema for details.
type TypeID string

const (
	// TypeIDMap is a generic map in accordance with the YAML specification 10.1.1.1.
	TypeIDMap TypeID = "map"
	// TypeIDSequence is a generic sequence in accordance with YAML specification 10.1.1.2.
	TypeIDSequence TypeID = "seq"
	// TypeIDString is a generic string in accordance with YAML specification 10.1.1.3.
	TypeIDString TypeID = "str"
)

// Node is a simplified representation of a YAML node.
type Node interface {
	Type() TypeID
	// Tag returns a YAML tag if any.
	Tag() string
	// Contents returns the contents as further Node items. For maps, this will contain alternating key and value
	// nodes in document order, while for sequences this will contain as many nodes as there are items. For strings,
	// this will contain no items.
	Contents() []Node
	// Value returns the value in case of a string node.
	Value() string
	// MapKeys returns the keys of a map node in document order. It returns nil for other node types.
	MapKeys() []string
	// MapKey looks up the value node belonging to the specified key of a map node.
	MapKey(key string) (Node, bool)
	// Raw converts the node and its children into untyped Go values: map[string]any for maps, []any for
	// sequences, and string for everything else.
	Raw() any
}

// EmptyNode returns an empty string node. It is a stand-in for optional document parts.
func EmptyNode() Node {
	return &node{
		typeID: TypeIDString,
		tag:    "!!null",
	}
}

type node struct {
	typeID   TypeID
	tag      string
	contents []Node
	value    string
}

func (n node) Type() TypeID {
	return n.typeID
}

func (n node) Tag() string {
	return n.tag
}

func (n node) Contents() []Node {
	return n.contents
}

func (n node) Value() string {
	return n.value
}

func (n node) MapKeys() []string {
	if n.typeID != TypeIDMap {
		return nil
	}
	keys := make([]string, 0, len(n.contents)/2)
	for i := 0; i < len(n.contents)-1; i += 2 {
		keys = append(keys, n.contents[i].Value())
	}
	return keys
}

func (n node) MapKey(key string) (Node, bool) {
	if n.typeID != TypeIDMap {
		return nil, false
	}
	for i := 0; i < len(n.contents)-1; i += 2 {
		if n.contents[i].Value() == key {
			return n.contents[i+1], true
		}
	}
	return nil, false
}

func (n node) Raw() any {
	switch n.typeID {
	case TypeIDMap:
		result := make(map[string]any, len(n.contents)/2)
		for i := 0; i < len(n.contents)-1; i += 2 {
			result[n.contents[i].Value()] = n.contents[i+1].Raw()
		}
		return result
	case TypeIDSequence:
		result := make([]any, len(n.contents))
		for i, item := range n.contents {
			result[i] = item.Raw()
		}
		return result
	default:
		return n.value
	}
}

type parser struct {
}

func (p parser) Parse(data []byte) (Node, error) {
	var n yaml.Node
	if err := yaml.Unmarshal(data, &n); err != nil {
		return nil, err
	}
	if n.Kind == 0 {
		// Empty document.
		return EmptyNode(), nil
	}
	return p.transform(&n)
}

func (p parser) transform(n *yaml.Node) (Node, error) {
	var t TypeID
	switch n.Kind {
	case yaml.MappingNode:
		t = TypeIDMap
	case yaml.SequenceNode:
		t = TypeIDSequence
	case yaml.ScalarNode:
		t = TypeIDString
	case yaml.AliasNode:
		return p.transform(n.Alias)
	case yaml.DocumentNode:
		if len(n.Content) == 0 {
			return EmptyNode(), nil
		}
		return p.transform(n.Content[0])
	default:
		return nil, fmt.Errorf("unsupported node type: %d", n.Kind)
	}

	contents := make([]Node, len(n.Content))
	for i, subNode := range n.Content {
		subContent, err := p.transform(subNode)
		if err != nil {
			return nil, err
		}
		contents[i] = subContent
	}

	return &node{
		t,
		n.Tag,
		contents,
		n.Value,
	}, nil
}
