package bgg

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Node is one parsed XML element. Children are grouped by element name in document
// order, so an element that occurs once is still a slice of one.
type Node struct {
	Name     string
	attrs    map[string]string
	text     string
	children map[string][]*Node
}

// Document is a parsed BGG response together with the raw body it was parsed from.
type Document struct {
	Root *Node
	Raw  []byte
}

// Attr returns the named attribute, or "" when the node or attribute is absent.
func (n *Node) Attr(name string) string {
	if n == nil {
		return ""
	}
	return n.attrs[name]
}

// Text returns the trimmed character data directly inside the element.
func (n *Node) Text() string {
	if n == nil {
		return ""
	}
	return n.text
}

// All returns every child element with the given name.
func (n *Node) All(name string) []*Node {
	if n == nil {
		return nil
	}
	return n.children[name]
}

// First returns the first child element with the given name, or nil.
func (n *Node) First(name string) *Node {
	all := n.All(name)
	if len(all) == 0 {
		return nil
	}
	return all[0]
}

// Path descends through the first occurrence of each name in turn.
func (n *Node) Path(names ...string) *Node {
	cur := n
	for _, name := range names {
		cur = cur.First(name)
	}
	return cur
}

// Parse decodes an XML body into a Node tree rooted at the document element.
func Parse(data []byte) (*Document, error) {
	dec := xml.NewDecoder(bytes.NewReader(data))
	var (
		root  *Node
		stack []*Node
		texts []*strings.Builder
	)
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parse xml: %w", err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			n := &Node{
				Name:     t.Name.Local,
				attrs:    make(map[string]string, len(t.Attr)),
				children: make(map[string][]*Node),
			}
			for _, a := range t.Attr {
				n.attrs[a.Name.Local] = a.Value
			}
			if len(stack) > 0 {
				parent := stack[len(stack)-1]
				parent.children[n.Name] = append(parent.children[n.Name], n)
			} else if root == nil {
				root = n
			}
			stack = append(stack, n)
			texts = append(texts, &strings.Builder{})
		case xml.CharData:
			if len(texts) > 0 {
				texts[len(texts)-1].Write(t)
			}
		case xml.EndElement:
			n := stack[len(stack)-1]
			n.text = strings.TrimSpace(texts[len(texts)-1].String())
			stack = stack[:len(stack)-1]
			texts = texts[:len(texts)-1]
		}
	}
	if root == nil {
		return nil, errors.New("parse xml: empty document")
	}
	return &Document{Root: root, Raw: data}, nil
}

// QueueMessage reports whether BGG answered with its "request accepted, try again later"
// message instead of data, and returns the message text.
func QueueMessage(doc *Document) (string, bool) {
	if doc == nil || doc.Root == nil {
		return "", false
	}
	if doc.Root.Name == "message" {
		return doc.Root.Text(), true
	}
	if doc.Root.Name == "items" {
		if msg := doc.Root.First("message"); msg != nil {
			return msg.Text(), true
		}
	}
	return "", false
}
