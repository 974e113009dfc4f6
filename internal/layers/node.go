// Package layers builds layout layers from class names and attributes.
package layers

import (
	"fmt"
	"strconv"
	"strings"
)

// Attribute types.
const (
	AttrInt    = 1
	AttrString = 2
)

// Node describes one layer to build.
type Node struct {
	Name       string      // Layer name (optional)
	Class      string      // Layer class (e.g., "SpaceToDepth")
	Attributes []Attribute // Layer attributes
	Outbound   []string    // Names of the layers consuming the output
}

// Attribute is a named layer attribute.
type Attribute struct {
	Name string // Attribute name
	Type int32  // AttrInt or AttrString
	I    int64  // INT value
	S    string // STRING value
}

// IntAttr returns an integer attribute.
func IntAttr(name string, v int64) Attribute {
	return Attribute{Name: name, Type: AttrInt, I: v}
}

// StringAttr returns a string attribute.
func StringAttr(name, v string) Attribute {
	return Attribute{Name: name, Type: AttrString, S: v}
}

// lookup returns the first attribute named by any of names.
func (n *Node) lookup(names ...string) (Attribute, bool) {
	for _, name := range names {
		for i := range n.Attributes {
			if n.Attributes[i].Name == name {
				return n.Attributes[i], true
			}
		}
	}
	return Attribute{}, false
}

// GetAttrInt returns an integer attribute or default value.
func GetAttrInt(node *Node, name string, defaultVal int64) int64 {
	if a, ok := node.lookup(name); ok {
		return a.I
	}
	return defaultVal
}

// GetAttrString returns a string attribute or default value.
func GetAttrString(node *Node, name, defaultVal string) string {
	if a, ok := node.lookup(name); ok {
		return a.S
	}
	return defaultVal
}

// ParseAttributes parses "key=value" pairs separated by commas.
// Values that parse as integers become AttrInt, the rest AttrString.
//
// Example:
//
//	attrs, err := layers.ParseAttributes("block_size=2,mode=DCR")
func ParseAttributes(s string) ([]Attribute, error) {
	var attrs []Attribute
	for _, field := range strings.Split(s, ",") {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}
		key, value, ok := strings.Cut(field, "=")
		key, value = strings.TrimSpace(key), strings.TrimSpace(value)
		if !ok || key == "" {
			return nil, fmt.Errorf("attribute %q: want key=value", field)
		}
		if i, err := strconv.ParseInt(value, 10, 64); err == nil {
			attrs = append(attrs, IntAttr(key, i))
		} else {
			attrs = append(attrs, StringAttr(key, value))
		}
	}
	return attrs, nil
}
