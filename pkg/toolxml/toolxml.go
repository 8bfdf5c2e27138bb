// Package toolxml loads tool-definition XML documents and provides the
// shared predicates the linters use to classify them.
package toolxml

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/beevik/etree"
)

// LintToolTypes lists the tool types the linter knows how to check.
// Tools declaring any other type are skipped entirely.
var LintToolTypes = []string{"default", "data_source", "manage_data"}

// Document is a parsed tool-definition XML tree. It is read-only for the
// duration of a lint pass; linters may query it in any order.
type Document struct {
	tree *etree.Document

	// Path is the file the document was loaded from, if any.
	Path string
}

// Load parses a tool-definition document from r.
func Load(r io.Reader) (*Document, error) {
	tree := etree.NewDocument()
	if _, err := tree.ReadFrom(r); err != nil {
		return nil, fmt.Errorf("parse tool XML: %w", err)
	}
	if tree.Root() == nil {
		return nil, fmt.Errorf("parse tool XML: document has no root element")
	}
	return &Document{tree: tree}, nil
}

// LoadFile reads and parses a tool-definition XML file.
func LoadFile(path string) (*Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open tool XML: %w", err)
	}
	defer f.Close()
	doc, err := Load(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	doc.Path = path
	return doc, nil
}

// Root returns the document's root element.
func (d *Document) Root() *etree.Element {
	return d.tree.Root()
}

// Find returns the first element matching the path, relative to the root.
func (d *Document) Find(path string) *etree.Element {
	return d.tree.Root().FindElement(path)
}

// FindAll returns all elements matching the path, relative to the root.
func (d *Document) FindAll(path string) []*etree.Element {
	return d.tree.Root().FindElements(path)
}

// ToolType returns the declared tool type, defaulting to "default" when
// the root carries no tool_type attribute.
func ToolType(d *Document) string {
	return d.Root().SelectAttrValue("tool_type", "default")
}

// IsDatasource reports whether the tool is a data-source tool. Data-source
// tools are exempt from the "must have tests" expectation.
func IsDatasource(d *Document) bool {
	return ToolType(d) == "data_source"
}

// IsLintable reports whether the tool's declared type is in the lintable
// allow-list.
func IsLintable(d *Document) bool {
	tt := ToolType(d)
	for _, t := range LintToolTypes {
		if tt == t {
			return true
		}
	}
	return false
}

// AsBool coerces a boolean-ish attribute string ("true"/"yes"/"on"/"1" and
// friends) to a bool. Anything else, including the empty string of a missing
// attribute, is false.
func AsBool(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "yes", "on", "y", "t", "1":
		return true
	}
	return false
}
