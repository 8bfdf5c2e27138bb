package linters

import (
	"sort"

	"github.com/beevik/etree"

	"github.com/ormasoftchile/toollint/pkg/lint"
	"github.com/ormasoftchile/toollint/pkg/toolxml"
)

// Attributes that make a test case verifiable on their own.
var testExpectationAttrs = []string{"expect_failure", "expect_exit_code", "expect_num_outputs"}

// Top-level assertion blocks a test case may carry directly.
var topLevelAsserts = []string{"assert_stdout", "assert_stderr", "assert_command"}

// All blocks whose nested content is assertion elements.
var assertionBlocks = map[string]bool{
	"assert_contents": true,
	"assert_stdout":   true,
	"assert_stderr":   true,
	"assert_command":  true,
}

// testCases returns the test-case elements in document order plus the
// element that findings about the tests section as a whole anchor to
// (the tests element, or the document root when there is none).
func testCases(doc *toolxml.Document) ([]*etree.Element, *etree.Element) {
	tests := doc.FindAll("./tests/test")
	anchor := doc.Find("./tests")
	if anchor == nil {
		anchor = doc.Root()
	}
	return tests, anchor
}

// collectOutputNames maps each declared output name to its declaring element
// (a child of the outputs block, data or collection). Only a single outputs
// block is indexed: with zero or several blocks the map stays empty and
// every lookup reads as unknown. Children without a name are skipped; a
// missing name is reported elsewhere, not here.
func collectOutputNames(doc *toolxml.Document) map[string]*etree.Element {
	index := map[string]*etree.Element{}
	outputs := doc.FindAll("./outputs")
	if len(outputs) != 1 {
		return index
	}
	for _, output := range outputs[0].ChildElements() {
		name := output.SelectAttrValue("name", "")
		if name == "" {
			continue
		}
		index[name] = output
	}
	return index
}

// sortedNames returns the index keys sorted for deterministic messages.
func sortedNames(index map[string]*etree.Element) []string {
	names := make([]string, 0, len(index))
	for name := range index {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// hasAnyAttr reports whether e carries at least one of the named attributes.
func hasAnyAttr(e *etree.Element, names ...string) bool {
	for _, n := range names {
		if e.SelectAttr(n) != nil {
			return true
		}
	}
	return false
}

// expectsFailure reports whether the test case declares expect_failure.
func expectsFailure(test *etree.Element) bool {
	return toolxml.AsBool(test.SelectAttrValue("expect_failure", ""))
}

// hasOutputExpectation reports whether the test case declares an output or
// output_collection child.
func hasOutputExpectation(test *etree.Element) bool {
	return test.FindElement("./output") != nil || test.FindElement("./output_collection") != nil
}

// outputExpectations returns the test case's output children followed by its
// output_collection children.
func outputExpectations(test *etree.Element) []*etree.Element {
	return append(test.FindElements("./output"), test.FindElements("./output_collection")...)
}

// forEachDescendant calls fn for every element strictly below e, in
// document order.
func forEachDescendant(e *etree.Element, fn func(*etree.Element)) {
	for _, child := range e.ChildElements() {
		fn(child)
		forEachDescendant(child, fn)
	}
}

// walkAssertionContents calls fn for every element nested inside an
// assertion block found anywhere under the test case. The blocks themselves
// are not visited, only their contents.
func walkAssertionContents(test *etree.Element, fn func(*etree.Element)) {
	var walk func(e *etree.Element, inside bool)
	walk = func(e *etree.Element, inside bool) {
		for _, child := range e.ChildElements() {
			if inside {
				fn(child)
			}
			walk(child, inside || assertionBlocks[child.Tag])
		}
	}
	walk(test, false)
}

// checkAndCountValid returns how many test cases carry at least one
// verifiable expectation: an expect_* attribute, a top-level assertion
// block, or an output expectation. A test that expects failure but still
// declares outputs or expect_num_outputs is counted as invalid without a
// warning here; the contradiction is flagged by its own linters. With a
// non-nil ctx, every invalid test gets a warning anchored at the test case.
func checkAndCountValid(tests []*etree.Element, ctx *lint.Context) int {
	numValid := 0
	for i, test := range tests {
		idx := i + 1
		valid := hasAnyAttr(test, testExpectationAttrs...)
		for _, ta := range topLevelAsserts {
			if test.FindElement("./"+ta) != nil {
				valid = true
			}
		}
		foundOutputTest := hasOutputExpectation(test)
		if expectsFailure(test) {
			if foundOutputTest || test.SelectAttr("expect_num_outputs") != nil {
				continue
			}
		}
		valid = valid || foundOutputTest
		if !valid {
			if ctx != nil {
				ctx.Warn(test, "Test %d: No outputs or expectations defined for tests, this test is likely invalid.", idx)
			}
		} else {
			numValid++
		}
	}
	return numValid
}
