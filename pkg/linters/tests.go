// Package linters holds the tests-section linters: independent checks that
// each scan one tool-definition document and report findings into a shared
// lint context. Adding a linter means adding a type here and registering it
// in All; no dispatcher changes.
package linters

import (
	"slices"
	"strings"

	"github.com/beevik/etree"

	"github.com/ormasoftchile/toollint/pkg/lint"
	"github.com/ormasoftchile/toollint/pkg/toolxml"
)

// All returns the tests linters in catalogue order. The order only affects
// report layout; no linter depends on another's findings.
func All() []lint.Linter {
	return []lint.Linter{
		TestsMissing{},
		TestsMissingDatasource{},
		TestsAssertsMultiple{},
		TestsAssertsHasNQuant{},
		TestsAssertsHasSizeQuant{},
		TestsExpectNumOutputs{},
		TestsParamInInputs{},
		TestsOutputName{},
		TestsOutputDefined{},
		TestsOutputCorresponding{},
		TestsOutputCollectionCorresponding{},
		TestsOutputCompareAttrib{},
		TestsOutputCheckDiscovered{},
		TestsOutputCollectionCheckDiscovered{},
		TestsOutputCollectionCheckDiscoveredNested{},
		TestsOutputFailing{},
		TestsExpectNumOutputsFailing{},
		TestsHasExpectations{},
		TestsNoValid{},
		TestsValid{},
	}
}

// TestsMissing warns when a tool that is not a data source defines no test
// cases.
type TestsMissing struct{}

func (TestsMissing) Name() string { return "TestsMissing" }

func (TestsMissing) Lint(doc *toolxml.Document, ctx *lint.Context) {
	tests, anchor := testCases(doc)
	if len(tests) == 0 && !toolxml.IsDatasource(doc) {
		ctx.Warn(anchor, "No tests found, most tools should define test cases.")
	}
}

// TestsMissingDatasource notes the absence of tests on data-source tools,
// where that is expected.
type TestsMissingDatasource struct{}

func (TestsMissingDatasource) Name() string { return "TestsMissingDatasource" }

func (TestsMissingDatasource) Lint(doc *toolxml.Document, ctx *lint.Context) {
	tests, anchor := testCases(doc)
	if len(tests) == 0 && toolxml.IsDatasource(doc) {
		ctx.Info(anchor, "No tests found, that should be OK for data_sources.")
	}
}

// TestsAssertsMultiple flags test cases repeating a top-level assertion
// block; only the first of each kind is considered at run time.
type TestsAssertsMultiple struct{}

func (TestsAssertsMultiple) Name() string { return "TestsAssertsMultiple" }

func (TestsAssertsMultiple) Lint(doc *toolxml.Document, ctx *lint.Context) {
	tests, _ := testCases(doc)
	for i, test := range tests {
		// TODO also check assert_contents once repeats are meaningful there
		for _, ta := range topLevelAsserts {
			if len(test.FindElements("./"+ta)) > 1 {
				ctx.Error(test, "Test %d: More than one %s found. Only the first is considered.", i+1, ta)
			}
		}
	}
}

// TestsAssertsHasNQuant requires a quantifier on has_n_lines/has_n_columns
// assertions.
type TestsAssertsHasNQuant struct{}

func (TestsAssertsHasNQuant) Name() string { return "TestsAssertsHasNQuant" }

func (TestsAssertsHasNQuant) Lint(doc *toolxml.Document, ctx *lint.Context) {
	tests, _ := testCases(doc)
	for i, test := range tests {
		idx := i + 1
		walkAssertionContents(test, func(a *etree.Element) {
			if a.Tag != "has_n_lines" && a.Tag != "has_n_columns" {
				return
			}
			if !hasAnyAttr(a, "n", "min", "max") {
				ctx.Error(a, "Test %d: '%s' needs to specify 'n', 'min', or 'max'", idx, a.Tag)
			}
		})
	}
}

// TestsAssertsHasSizeQuant requires a size bound on has_size assertions.
type TestsAssertsHasSizeQuant struct{}

func (TestsAssertsHasSizeQuant) Name() string { return "TestsAssertsHasSizeQuant" }

func (TestsAssertsHasSizeQuant) Lint(doc *toolxml.Document, ctx *lint.Context) {
	tests, _ := testCases(doc)
	for i, test := range tests {
		idx := i + 1
		walkAssertionContents(test, func(a *etree.Element) {
			if a.Tag != "has_size" {
				return
			}
			if !hasAnyAttr(a, "value", "min", "max") {
				ctx.Error(a, "Test %d: '%s' needs to specify 'value', 'min', or 'max'", idx, a.Tag)
			}
		})
	}
}

// TestsExpectNumOutputs wants expect_num_outputs on tests of tools whose
// outputs carry filters, since filters make the output count input-dependent.
type TestsExpectNumOutputs struct{}

func (TestsExpectNumOutputs) Name() string { return "TestsExpectNumOutputs" }

func (TestsExpectNumOutputs) Lint(doc *toolxml.Document, ctx *lint.Context) {
	tests, _ := testCases(doc)
	filter := doc.Find("./outputs//filter")
	for i, test := range tests {
		// tests expecting failure can't have test outputs, so they're exempt
		if filter == nil || test.SelectAttr("expect_num_outputs") != nil || expectsFailure(test) {
			continue
		}
		ctx.Warn(test, "Test %d: should specify 'expect_num_outputs' if outputs have filters", i+1)
	}
}

// TestsParamInInputs checks that every test param names a declared input
// param, either by name or by argument (with or without dashes).
type TestsParamInInputs struct{}

func (TestsParamInInputs) Name() string { return "TestsParamInInputs" }

func (TestsParamInInputs) Lint(doc *toolxml.Document, ctx *lint.Context) {
	tests, _ := testCases(doc)
	inputParams := doc.FindAll(".//inputs//param")
	for i, test := range tests {
		for _, param := range test.FindElements("./param") {
			name := param.SelectAttrValue("name", "")
			if name == "" {
				continue
			}
			// nested params are addressed as section|...|name
			parts := strings.Split(name, "|")
			name = parts[len(parts)-1]
			found := false
			for _, in := range inputParams {
				if inputParamMatches(in, name) {
					found = true
					break
				}
			}
			if !found {
				ctx.Error(param, "Test %d: Test param %s not found in the inputs", i+1, name)
			}
		}
	}
}

func inputParamMatches(in *etree.Element, name string) bool {
	if in.SelectAttrValue("name", "") == name {
		return true
	}
	argument := in.SelectAttrValue("argument", "")
	if argument == "" {
		return false
	}
	if argument == name || argument == "-"+name || argument == "--"+name {
		return true
	}
	if strings.Contains(name, "_") {
		dashed := strings.ReplaceAll(name, "_", "-")
		if argument == "-"+dashed || argument == "--"+dashed {
			return true
		}
	}
	return false
}

// TestsOutputName flags test output tags without a name. The schema layer is
// lax here for output (unlike output_collection), so the check lives in the
// linter.
type TestsOutputName struct{}

func (TestsOutputName) Name() string { return "TestsOutputName" }

func (TestsOutputName) Lint(doc *toolxml.Document, ctx *lint.Context) {
	tests, _ := testCases(doc)
	for i, test := range tests {
		for _, output := range test.FindElements("./output") {
			if output.SelectAttrValue("name", "") == "" {
				ctx.Error(output, "Test %d: Found %s tag without a name defined.", i+1, output.Tag)
			}
		}
	}
}

// TestsOutputDefined checks that every named test output references a
// declared output.
type TestsOutputDefined struct{}

func (TestsOutputDefined) Name() string { return "TestsOutputDefined" }

func (TestsOutputDefined) Lint(doc *toolxml.Document, ctx *lint.Context) {
	index := collectOutputNames(doc)
	tests, _ := testCases(doc)
	for i, test := range tests {
		for _, output := range outputExpectations(test) {
			name := output.SelectAttrValue("name", "")
			if name == "" {
				continue
			}
			if _, ok := index[name]; !ok {
				ctx.Error(output, "Test %d: Found %s tag with unknown name [%s], valid names %v",
					i+1, output.Tag, name, sortedNames(index))
			}
		}
	}
}

// TestsOutputCorresponding checks that a test output references a data
// output declaration, not a collection.
type TestsOutputCorresponding struct{}

func (TestsOutputCorresponding) Name() string { return "TestsOutputCorresponding" }

func (TestsOutputCorresponding) Lint(doc *toolxml.Document, ctx *lint.Context) {
	index := collectOutputNames(doc)
	tests, _ := testCases(doc)
	for i, test := range tests {
		for _, output := range outputExpectations(test) {
			name := output.SelectAttrValue("name", "")
			if name == "" {
				continue
			}
			declared, ok := index[name]
			if !ok {
				continue
			}
			if output.Tag == "output" && declared.Tag != "data" {
				ctx.Error(output, "Test %d: test output %s does not correspond to a 'data' output, but a '%s'",
					i+1, name, declared.Tag)
			}
		}
	}
}

// TestsOutputCollectionCorresponding checks that a test output_collection
// references a collection declaration.
type TestsOutputCollectionCorresponding struct{}

func (TestsOutputCollectionCorresponding) Name() string {
	return "TestsOutputCollectionCorresponding"
}

func (TestsOutputCollectionCorresponding) Lint(doc *toolxml.Document, ctx *lint.Context) {
	index := collectOutputNames(doc)
	tests, _ := testCases(doc)
	for i, test := range tests {
		for _, output := range outputExpectations(test) {
			name := output.SelectAttrValue("name", "")
			if name == "" {
				continue
			}
			declared, ok := index[name]
			if !ok {
				continue
			}
			if output.Tag == "output_collection" && declared.Tag != "collection" {
				ctx.Error(output, "Test %d: test collection output '%s' does not correspond to a 'output_collection' output, but a '%s'",
					i+1, name, declared.Tag)
			}
		}
	}
}

// compareCompatibility maps comparison-tuning attributes to the compare
// modes they are meaningful for. The default compare mode is diff.
var compareCompatibility = []struct {
	attrib  string
	compare []string
}{
	{"sort", []string{"diff", "re_match", "re_match_multiline"}},
	{"lines_diff", []string{"diff", "re_match", "contains"}},
	{"decompress", []string{"diff"}},
	{"delta", []string{"sim_size"}},
	{"delta_frac", []string{"sim_size"}},
}

// TestsOutputCompareAttrib flags comparison-tuning attributes that are
// incompatible with the node's compare mode, one finding per offending
// attribute.
type TestsOutputCompareAttrib struct{}

func (TestsOutputCompareAttrib) Name() string { return "TestsOutputCompareAttrib" }

func (TestsOutputCompareAttrib) Lint(doc *toolxml.Document, ctx *lint.Context) {
	tests, _ := testCases(doc)
	for i, test := range tests {
		idx := i + 1
		forEachDescendant(test, func(output *etree.Element) {
			switch output.Tag {
			case "output", "element", "discovered_dataset":
			default:
				return
			}
			compare := output.SelectAttrValue("compare", "diff")
			for _, entry := range compareCompatibility {
				if output.SelectAttr(entry.attrib) != nil && !slices.Contains(entry.compare, compare) {
					ctx.Error(output, `Test %d: Attribute %s is incompatible with compare="%s".`,
						idx, entry.attrib, compare)
				}
			}
		})
	}
}

// TestsOutputCheckDiscovered requires tests of outputs with discovered
// datasets to pin down what gets discovered, via a count or listed
// discovered_dataset children.
type TestsOutputCheckDiscovered struct{}

func (TestsOutputCheckDiscovered) Name() string { return "TestsOutputCheckDiscovered" }

func (TestsOutputCheckDiscovered) Lint(doc *toolxml.Document, ctx *lint.Context) {
	index := collectOutputNames(doc)
	tests, _ := testCases(doc)
	for i, test := range tests {
		for _, output := range test.FindElements("./output") {
			name := output.SelectAttrValue("name", "")
			if name == "" {
				continue
			}
			declared, ok := index[name]
			if !ok {
				continue
			}
			if declared.FindElement(".//discover_datasets") == nil {
				continue
			}
			if output.SelectAttr("count") == nil && output.FindElement("./discovered_dataset") == nil {
				ctx.Error(output, "Test %d: test output '%s' must have a 'count' attribute and/or 'discovered_dataset' children",
					i+1, name)
			}
		}
	}
}

// TestsOutputCollectionCheckDiscovered is the collection counterpart of
// TestsOutputCheckDiscovered, with element children instead of
// discovered_dataset.
type TestsOutputCollectionCheckDiscovered struct{}

func (TestsOutputCollectionCheckDiscovered) Name() string {
	return "TestsOutputCollectionCheckDiscovered"
}

func (TestsOutputCollectionCheckDiscovered) Lint(doc *toolxml.Document, ctx *lint.Context) {
	index := collectOutputNames(doc)
	tests, _ := testCases(doc)
	for i, test := range tests {
		for _, output := range test.FindElements("./output_collection") {
			name := output.SelectAttrValue("name", "")
			if name == "" {
				continue
			}
			declared, ok := index[name]
			if !ok {
				continue
			}
			if declared.FindElement(".//discover_datasets") == nil {
				continue
			}
			if output.SelectAttr("count") == nil && output.FindElement("./element") == nil {
				ctx.Error(output, "Test %d: test collection '%s' must have a 'count' attribute or 'element' children",
					i+1, name)
			}
		}
	}
}

// TestsOutputCollectionCheckDiscoveredNested extends the discovered check to
// nested collection types (list:list, list:paired), which need nested
// element tags or an element with a count.
type TestsOutputCollectionCheckDiscoveredNested struct{}

func (TestsOutputCollectionCheckDiscoveredNested) Name() string {
	return "TestsOutputCollectionCheckDiscoveredNested"
}

func (TestsOutputCollectionCheckDiscoveredNested) Lint(doc *toolxml.Document, ctx *lint.Context) {
	index := collectOutputNames(doc)
	tests, _ := testCases(doc)
	for i, test := range tests {
		for _, output := range test.FindElements("./output_collection") {
			name := output.SelectAttrValue("name", "")
			if name == "" {
				continue
			}
			declared, ok := index[name]
			if !ok {
				continue
			}
			if declared.FindElement(".//discover_datasets") == nil {
				continue
			}
			ctype := declared.SelectAttrValue("type", "")
			if ctype != "list:list" && ctype != "list:paired" {
				continue
			}
			nested := output.FindElement("./element/element")
			withCount := output.FindElement("./element[@count]")
			if nested == nil && withCount == nil {
				ctx.Error(output, "Test %d: test collection '%s' must contain nested 'element' tags and/or element children with a 'count' attribute",
					i+1, name)
			}
		}
	}
}

// TestsOutputFailing flags output expectations on tests that expect the tool
// to fail; a failing run produces no outputs to check.
type TestsOutputFailing struct{}

func (TestsOutputFailing) Name() string { return "TestsOutputFailing" }

func (TestsOutputFailing) Lint(doc *toolxml.Document, ctx *lint.Context) {
	tests, _ := testCases(doc)
	for i, test := range tests {
		if !expectsFailure(test) {
			continue
		}
		if hasOutputExpectation(test) {
			ctx.Error(test, "Test %d: Cannot specify outputs in a test expecting failure.", i+1)
		}
	}
}

// TestsExpectNumOutputsFailing flags expect_num_outputs on tests expecting
// failure, unless TestsOutputFailing already fires for declared outputs.
type TestsExpectNumOutputsFailing struct{}

func (TestsExpectNumOutputsFailing) Name() string { return "TestsExpectNumOutputsFailing" }

func (TestsExpectNumOutputsFailing) Lint(doc *toolxml.Document, ctx *lint.Context) {
	tests, _ := testCases(doc)
	for i, test := range tests {
		if !expectsFailure(test) {
			continue
		}
		if hasOutputExpectation(test) {
			continue
		}
		if test.SelectAttr("expect_num_outputs") != nil {
			ctx.Error(test, "Test %d: Cannot make assumptions on the number of outputs in a test expecting failure.", i+1)
		}
	}
}

// TestsHasExpectations warns on each test case without any verifiable
// expectation.
type TestsHasExpectations struct{}

func (TestsHasExpectations) Name() string { return "TestsHasExpectations" }

func (TestsHasExpectations) Lint(doc *toolxml.Document, ctx *lint.Context) {
	tests, _ := testCases(doc)
	checkAndCountValid(tests, ctx)
}

// TestsNoValid confirms the number of valid tests when there are any (or
// when the tool is a data source and the expectation is relaxed).
type TestsNoValid struct{}

func (TestsNoValid) Name() string { return "TestsNoValid" }

func (TestsNoValid) Lint(doc *toolxml.Document, ctx *lint.Context) {
	tests, anchor := testCases(doc)
	if len(tests) == 0 {
		return
	}
	numValid := checkAndCountValid(tests, nil)
	if numValid > 0 || toolxml.IsDatasource(doc) {
		ctx.Valid(anchor, "%d test(s) found.", numValid)
	}
}

// TestsValid warns when tests exist but none is valid. It computes the same
// count as TestsNoValid; the two are complementary.
type TestsValid struct{}

func (TestsValid) Name() string { return "TestsValid" }

func (TestsValid) Lint(doc *toolxml.Document, ctx *lint.Context) {
	tests, anchor := testCases(doc)
	if len(tests) == 0 {
		return
	}
	numValid := checkAndCountValid(tests, nil)
	if numValid == 0 && !toolxml.IsDatasource(doc) {
		ctx.Warn(anchor, "No valid test(s) found.")
	}
}
