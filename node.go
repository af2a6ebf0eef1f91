package md2html

import (
	"errors"
	"fmt"
	"strings"
)

// ---- Render tree ----

// Attr is a single HTML attribute. Attributes are kept in a slice so they
// serialize in the order they were added.
type Attr struct {
	Key   string
	Value string
}

// Node is the generic render tree. A leaf carries a Value (possibly empty), a
// container carries Children. Use Leaf and Container to build nodes; a zero
// Node is neither and fails to render.
type Node struct {
	Tag      string
	Value    string
	Children []*Node
	Attrs    []Attr
	leaf     bool
}

// Leaf returns a value-bearing node. An empty tag produces raw text.
func Leaf(tag, value string, attrs ...Attr) *Node {
	return &Node{Tag: tag, Value: value, Attrs: attrs, leaf: true}
}

// Container returns a node wrapping children under tag.
func Container(tag string, children ...*Node) *Node {
	return &Node{Tag: tag, Children: children}
}

// IsLeaf reports whether n was built as a leaf.
func (n *Node) IsLeaf() bool { return n != nil && n.leaf }

// Attr returns the value of the named attribute.
func (n *Node) Attr(key string) (string, bool) {
	for _, a := range n.Attrs {
		if a.Key == key {
			return a.Value, true
		}
	}
	return "", false
}

// Text returns the concatenated leaf values below n.
func (n *Node) Text() string {
	if n == nil {
		return ""
	}
	if n.leaf {
		return n.Value
	}
	var b strings.Builder
	for _, c := range n.Children {
		b.WriteString(c.Text())
	}
	return b.String()
}

// ErrStructure is wrapped by every StructuralError.
var ErrStructure = errors.New("md2html: malformed render tree")

// StructuralError reports a node that cannot be serialized.
type StructuralError struct {
	Tag    string
	Reason string
}

func (e *StructuralError) Error() string {
	if e.Tag == "" {
		return fmt.Sprintf("md2html: %s", e.Reason)
	}
	return fmt.Sprintf("md2html: <%s>: %s", e.Tag, e.Reason)
}

func (e *StructuralError) Unwrap() error { return ErrStructure }

// HTML serializes n depth-first.
func (n *Node) HTML() (string, error) {
	var b strings.Builder
	if err := n.writeHTML(&b); err != nil {
		return "", err
	}
	return b.String(), nil
}

func (n *Node) writeHTML(b *strings.Builder) error {
	if n == nil {
		return &StructuralError{Reason: "nil node"}
	}
	if n.leaf {
		switch n.Tag {
		case "":
			b.WriteString(n.Value)
		case "a":
			b.WriteString("<a")
			writeAttrs(b, n.Attrs)
			b.WriteString(">")
			b.WriteString(n.Value)
			b.WriteString("</a>")
		case "img":
			b.WriteString("<img")
			writeAttrs(b, n.Attrs)
			b.WriteString(">")
		default:
			b.WriteString("<" + n.Tag + ">")
			b.WriteString(n.Value)
			b.WriteString("</" + n.Tag + ">")
		}
		return nil
	}
	if n.Children == nil {
		return &StructuralError{Tag: n.Tag, Reason: "node has neither value nor children"}
	}
	if n.Tag == "" {
		return &StructuralError{Reason: "container without tag"}
	}
	if len(n.Children) == 0 {
		return &StructuralError{Tag: n.Tag, Reason: "container without children"}
	}
	b.WriteString("<" + n.Tag + ">")
	for _, c := range n.Children {
		if err := c.writeHTML(b); err != nil {
			return err
		}
	}
	b.WriteString("</" + n.Tag + ">")
	return nil
}

func writeAttrs(b *strings.Builder, attrs []Attr) {
	for _, a := range attrs {
		b.WriteString(" ")
		b.WriteString(a.Key)
		b.WriteString(`="`)
		b.WriteString(a.Value)
		b.WriteString(`"`)
	}
}
