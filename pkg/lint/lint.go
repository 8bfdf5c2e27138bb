// Package lint provides the linting framework: severity levels, the message
// sink linters report into, the Linter interface, and the runner.
package lint

import (
	"encoding/json"
	"fmt"

	"github.com/beevik/etree"

	"github.com/ormasoftchile/toollint/pkg/toolxml"
)

// Level is the severity of a lint message.
type Level int

const (
	// LevelValid is a positive confirmation (e.g. "2 test(s) found.").
	LevelValid Level = iota
	// LevelInfo is an expected or benign absence, reported for awareness.
	LevelInfo
	// LevelWarn marks something likely wrong or fragile that should be reviewed.
	LevelWarn
	// LevelError marks something definitely wrong that should block acceptance.
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelValid:
		return "valid"
	case LevelInfo:
		return "info"
	case LevelWarn:
		return "warn"
	case LevelError:
		return "error"
	}
	return fmt.Sprintf("level(%d)", int(l))
}

// MarshalJSON renders the level as its name.
func (l Level) MarshalJSON() ([]byte, error) {
	return json.Marshal(l.String())
}

// ParseLevel parses a level name. "all" is accepted as an alias for valid so
// report thresholds can be expressed naturally on the command line.
func ParseLevel(s string) (Level, error) {
	switch s {
	case "all", "valid":
		return LevelValid, nil
	case "info":
		return LevelInfo, nil
	case "warn", "warning":
		return LevelWarn, nil
	case "error":
		return LevelError, nil
	}
	return LevelValid, fmt.Errorf("unknown lint level %q (use all, info, warn, or error)", s)
}

// Message is a single finding emitted by a linter.
type Message struct {
	Level  Level
	Linter string
	Text   string

	// Node anchors the finding to the offending element, if any.
	Node *etree.Element
}

// XPath returns the anchor element's path within the document, or "" when
// the message has no anchor.
func (m *Message) XPath() string {
	if m.Node == nil {
		return ""
	}
	return m.Node.GetPath()
}

// MarshalJSON renders the message with the anchor's xpath inlined.
func (m Message) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Level   Level  `json:"level"`
		Linter  string `json:"linter"`
		Message string `json:"message"`
		XPath   string `json:"xpath,omitempty"`
	}{m.Level, m.Linter, m.Text, m.XPath()})
}

// Linter is a single, self-contained check. Lint inspects the document and
// reports zero or more messages into the context; it never fails. Linters
// share no state and may run in any order.
type Linter interface {
	Name() string
	Lint(doc *toolxml.Document, ctx *Context)
}

// Context accumulates lint messages across linter invocations. It is the
// only mutable state a lint pass touches.
type Context struct {
	Messages []Message

	// Skip holds linter names to leave out of the pass.
	Skip map[string]bool

	current string
}

// NewContext returns an empty lint context.
func NewContext() *Context {
	return &Context{}
}

// Lint runs each linter against the document, honoring the skip list.
// Linters are invoked in the given order, but none may depend on it.
func (c *Context) Lint(doc *toolxml.Document, linters ...Linter) {
	for _, l := range linters {
		if c.Skip[l.Name()] {
			continue
		}
		c.current = l.Name()
		l.Lint(doc, c)
	}
	c.current = ""
}

func (c *Context) record(level Level, node *etree.Element, format string, args ...any) {
	c.Messages = append(c.Messages, Message{
		Level:  level,
		Linter: c.current,
		Text:   fmt.Sprintf(format, args...),
		Node:   node,
	})
}

// Valid records a positive confirmation anchored at node (which may be nil).
func (c *Context) Valid(node *etree.Element, format string, args ...any) {
	c.record(LevelValid, node, format, args...)
}

// Info records an informational message anchored at node (which may be nil).
func (c *Context) Info(node *etree.Element, format string, args ...any) {
	c.record(LevelInfo, node, format, args...)
}

// Warn records a warning anchored at node (which may be nil).
func (c *Context) Warn(node *etree.Element, format string, args ...any) {
	c.record(LevelWarn, node, format, args...)
}

// Error records an error anchored at node (which may be nil).
func (c *Context) Error(node *etree.Element, format string, args ...any) {
	c.record(LevelError, node, format, args...)
}

// FoundErrors reports whether any error-level message was recorded.
func (c *Context) FoundErrors() bool {
	return c.countAtLeast(LevelError) > 0
}

// FoundWarns reports whether any warn-level or worse message was recorded.
func (c *Context) FoundWarns() bool {
	return c.countAtLeast(LevelWarn) > 0
}

func (c *Context) countAtLeast(min Level) int {
	n := 0
	for _, m := range c.Messages {
		if m.Level >= min {
			n++
		}
	}
	return n
}
