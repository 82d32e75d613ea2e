// Package defxml parses RimWorld definition XML into an order-preserving
// node tree and derives dotted translation key paths from it.
//
// A definitions document looks like:
//
//	<Defs>
//	    <ThingDef>
//	        <defName>Knife_Steel</defName>
//	        <label>steel knife</label>
//	        <tools>
//	            <li>
//	                <label>blade</label>
//	            </li>
//	        </tools>
//	    </ThingDef>
//	</Defs>
//
// Each translatable field is identified by a dotted key rooted at the
// definition's own name, e.g. "Knife_Steel.label" or
// "Knife_Steel.tools.0.label". The key doubles as the element name in the
// generated LanguageData file.
package defxml

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"strings"
)

// Node is a single XML element with its children in document order.
// Text holds the character data preceding the first child element,
// untrimmed (the ElementTree convention the derivation rules assume).
type Node struct {
	Tag      string
	Text     string
	Children []*Node
}

// UnmarshalXML builds the subtree rooted at start, preserving child order
// and dropping comments and processing instructions.
func (n *Node) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	n.Tag = start.Name.Local
	for {
		tok, err := d.Token()
		if err != nil {
			return err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			child := &Node{}
			if err := child.UnmarshalXML(d, t); err != nil {
				return err
			}
			n.Children = append(n.Children, child)
		case xml.CharData:
			if len(n.Children) == 0 {
				n.Text += string(t)
			}
		case xml.EndElement:
			return nil
		}
	}
}

// Parse decodes a definitions document and returns its root node.
func Parse(data []byte) (*Node, error) {
	return decode(xml.NewDecoder(bytes.NewReader(data)))
}

// ParseFile reads and parses a definitions document.
func ParseFile(path string) (*Node, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	defer f.Close()

	root, err := decode(xml.NewDecoder(f))
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return root, nil
}

func decode(d *xml.Decoder) (*Node, error) {
	for {
		tok, err := d.Token()
		if err == io.EOF {
			return nil, fmt.Errorf("document has no root element")
		}
		if err != nil {
			return nil, err
		}
		if start, ok := tok.(xml.StartElement); ok {
			root := &Node{}
			if err := root.UnmarshalXML(d, start); err != nil {
				return nil, err
			}
			return root, nil
		}
	}
}

// Child returns the first child with the given tag, or nil.
func (n *Node) Child(tag string) *Node {
	for _, c := range n.Children {
		if c.Tag == tag {
			return c
		}
	}
	return nil
}

// IsLeaf reports whether the node has no child elements.
func (n *Node) IsLeaf() bool { return len(n.Children) == 0 }

// TrimmedText returns the node's text with surrounding whitespace removed.
func (n *Node) TrimmedText() string { return strings.TrimSpace(n.Text) }
