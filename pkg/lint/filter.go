package lint

import (
	"fmt"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

// Filter selects messages with a compiled expr-lang predicate. Expressions
// see three variables per finding: level, linter, and message, all strings.
// Example: `level == "error" && linter startsWith "TestsOutput"`.
type Filter struct {
	program *vm.Program
}

func filterEnv(m *Message) map[string]string {
	return map[string]string{
		"level":   m.Level.String(),
		"linter":  m.Linter,
		"message": m.Text,
	}
}

// CompileFilter compiles a finding-filter expression.
func CompileFilter(expression string) (*Filter, error) {
	program, err := expr.Compile(expression, expr.Env(filterEnv(&Message{})), expr.AsBool())
	if err != nil {
		return nil, fmt.Errorf("compile filter %q: %w", expression, err)
	}
	return &Filter{program: program}, nil
}

// Match evaluates the filter against one message.
func (f *Filter) Match(m *Message) (bool, error) {
	out, err := expr.Run(f.program, filterEnv(m))
	if err != nil {
		return false, fmt.Errorf("eval filter: %w", err)
	}
	b, ok := out.(bool)
	if !ok {
		return false, fmt.Errorf("filter did not return bool (got %T)", out)
	}
	return b, nil
}

// Apply keeps only the context's messages matched by the filter.
func (f *Filter) Apply(c *Context) error {
	kept := c.Messages[:0]
	for i := range c.Messages {
		ok, err := f.Match(&c.Messages[i])
		if err != nil {
			return err
		}
		if ok {
			kept = append(kept, c.Messages[i])
		}
	}
	c.Messages = kept
	return nil
}
