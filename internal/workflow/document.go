// Package workflow provides the pipeline document model: an order-preserving
// view over a GitHub Actions workflow file, plus the run records fetched from
// a CI provider.
//
// A Document is semi-structured. Accessors read it defensively and treat a
// missing or wrongly shaped key as absent. Mutators return ErrNotMapping (or
// a similar shape error) instead of guessing.
package workflow

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrNotMapping is returned when a node that must be a YAML mapping has some
// other shape.
var ErrNotMapping = errors.New("not a mapping")

// ErrNotSequence is returned when a node that must be a YAML sequence has
// some other shape.
var ErrNotSequence = errors.New("not a sequence")

// Document is a parsed pipeline definition. The zero value is not usable;
// construct one with Parse, Load, or New.
type Document struct {
	root *yaml.Node
}

// New returns an empty document.
func New() *Document {
	return &Document{root: &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}}
}

// Parse decodes YAML (or JSON) into a Document. An empty input yields an
// empty document. A top-level value that is not a mapping is an error.
func Parse(data []byte) (*Document, error) {
	var n yaml.Node
	if err := yaml.Unmarshal(data, &n); err != nil {
		return nil, fmt.Errorf("parsing workflow YAML: %w", err)
	}
	if n.Kind == 0 || len(n.Content) == 0 {
		return New(), nil
	}
	root := n.Content[0]
	if n.Kind != yaml.DocumentNode {
		root = &n
	}
	if root.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("workflow root: %w", ErrNotMapping)
	}
	return &Document{root: root}, nil
}

// Clone returns a deep copy. Mutating the copy never affects the receiver.
func (d *Document) Clone() *Document {
	return &Document{root: cloneNode(d.root, make(map[*yaml.Node]*yaml.Node))}
}

// Bytes serializes the document back to YAML with two-space indentation.
func (d *Document) Bytes() ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(d.root); err != nil {
		return nil, fmt.Errorf("encoding workflow YAML: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("encoding workflow YAML: %w", err)
	}
	return buf.Bytes(), nil
}

// String returns the YAML serialization, or an empty string if encoding fails.
func (d *Document) String() string {
	b, err := d.Bytes()
	if err != nil {
		return ""
	}
	return string(b)
}

// Text returns the lowercased serialization used for substring checks.
// Comments are dropped so that commented-out YAML never matches.
func (d *Document) Text() string {
	c := d.Clone()
	stripComments(c.root, make(map[*yaml.Node]bool))
	return strings.ToLower(c.String())
}

// Has reports whether the top-level mapping contains key.
func (d *Document) Has(key string) bool {
	return lookup(d.root, key) != nil
}

// Equal reports whether two documents serialize identically.
func (d *Document) Equal(other *Document) bool {
	if d == nil || other == nil {
		return d == other
	}
	return d.String() == other.String()
}

// Set replaces (or appends) the top-level key with the YAML encoding of
// value. Struct values keep their field order.
func (d *Document) Set(key string, value any) error {
	n, err := encodeNode(value)
	if err != nil {
		return fmt.Errorf("setting %q: %w", key, err)
	}
	return setKey(d.root, key, n)
}

// SetBefore is like Set, but a newly added key is inserted ahead of the key
// named before when it exists. An existing key is replaced in place.
func (d *Document) SetBefore(key, before string, value any) error {
	n, err := encodeNode(value)
	if err != nil {
		return fmt.Errorf("setting %q: %w", key, err)
	}
	if lookup(d.root, key) != nil {
		return setKey(d.root, key, n)
	}
	for i := 0; i+1 < len(d.root.Content); i += 2 {
		if d.root.Content[i].Value == before {
			k := &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: key}
			content := make([]*yaml.Node, 0, len(d.root.Content)+2)
			content = append(content, d.root.Content[:i]...)
			content = append(content, k, n)
			content = append(content, d.root.Content[i:]...)
			d.root.Content = content
			return nil
		}
	}
	return setKey(d.root, key, n)
}

// Fragment renders value as a standalone YAML snippet.
func Fragment(value any) (string, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(value); err != nil {
		return "", err
	}
	if err := enc.Close(); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func encodeNode(value any) (*yaml.Node, error) {
	var n yaml.Node
	if err := n.Encode(value); err != nil {
		return nil, err
	}
	return &n, nil
}

// resolve follows alias nodes to their anchor.
func resolve(n *yaml.Node) *yaml.Node {
	for n != nil && n.Kind == yaml.AliasNode {
		n = n.Alias
	}
	return n
}

// lookup returns the value node for key in mapping m, or nil.
func lookup(m *yaml.Node, key string) *yaml.Node {
	m = resolve(m)
	if m == nil || m.Kind != yaml.MappingNode {
		return nil
	}
	for i := 0; i+1 < len(m.Content); i += 2 {
		if m.Content[i].Value == key {
			return m.Content[i+1]
		}
	}
	return nil
}

func setKey(m *yaml.Node, key string, value *yaml.Node) error {
	m = resolve(m)
	if m == nil || m.Kind != yaml.MappingNode {
		return ErrNotMapping
	}
	for i := 0; i+1 < len(m.Content); i += 2 {
		if m.Content[i].Value == key {
			m.Content[i+1] = value
			return nil
		}
	}
	k := &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: key}
	m.Content = append(m.Content, k, value)
	return nil
}

// scalar returns the string value of a scalar node, or "".
func scalar(n *yaml.Node) string {
	n = resolve(n)
	if n == nil || n.Kind != yaml.ScalarNode {
		return ""
	}
	return n.Value
}

func stripComments(n *yaml.Node, seen map[*yaml.Node]bool) {
	if n == nil || seen[n] {
		return
	}
	seen[n] = true
	n.HeadComment, n.LineComment, n.FootComment = "", "", ""
	stripComments(n.Alias, seen)
	for _, child := range n.Content {
		stripComments(child, seen)
	}
}

func cloneNode(n *yaml.Node, seen map[*yaml.Node]*yaml.Node) *yaml.Node {
	if n == nil {
		return nil
	}
	if c, ok := seen[n]; ok {
		return c
	}
	c := *n
	seen[n] = &c
	if n.Alias != nil {
		c.Alias = cloneNode(n.Alias, seen)
	}
	if n.Content != nil {
		c.Content = make([]*yaml.Node, len(n.Content))
		for i, child := range n.Content {
			c.Content[i] = cloneNode(child, seen)
		}
	}
	return &c
}
