package linters

import (
	"fmt"
	"sort"
	"strings"
	"testing"

	"github.com/ormasoftchile/toollint/pkg/lint"
	"github.com/ormasoftchile/toollint/pkg/toolxml"
)

// fixture fills a one-verb fixture template with test-case content.
func fixture(tmpl, inner string) string {
	return fmt.Sprintf(tmpl, inner)
}

func loadTool(t *testing.T, xml string) *toolxml.Document {
	t.Helper()
	doc, err := toolxml.Load(strings.NewReader(xml))
	if err != nil {
		t.Fatalf("parse fixture: %v", err)
	}
	return doc
}

// runLinter runs a single linter over an XML fixture and returns its messages.
func runLinter(t *testing.T, l lint.Linter, xml string) []lint.Message {
	t.Helper()
	ctx := lint.NewContext()
	ctx.Lint(loadTool(t, xml), l)
	return ctx.Messages
}

func expectMessages(t *testing.T, msgs []lint.Message, count int) {
	t.Helper()
	if len(msgs) != count {
		texts := make([]string, len(msgs))
		for i, m := range msgs {
			texts[i] = m.Text
		}
		t.Fatalf("expected %d message(s), got %d: %v", count, len(msgs), texts)
	}
}

func expectContains(t *testing.T, msgs []lint.Message, substr string) {
	t.Helper()
	for _, m := range msgs {
		if strings.Contains(m.Text, substr) {
			return
		}
	}
	t.Errorf("no message contains %q, got: %v", substr, msgs)
}

// TestMissingFiresOnlyForNonDatasource checks TestsMissing and
// TestsMissingDatasource are complementary on a tool without tests.
func TestMissingFiresOnlyForNonDatasource(t *testing.T) {
	plain := `<tool id="t"><tests/></tool>`
	datasource := `<tool id="t" tool_type="data_source"><tests/></tool>`

	msgs := runLinter(t, TestsMissing{}, plain)
	expectMessages(t, msgs, 1)
	if msgs[0].Level != lint.LevelWarn {
		t.Errorf("expected warn, got %s", msgs[0].Level)
	}
	expectContains(t, msgs, "No tests found, most tools should define test cases.")
	expectMessages(t, runLinter(t, TestsMissingDatasource{}, plain), 0)

	msgs = runLinter(t, TestsMissingDatasource{}, datasource)
	expectMessages(t, msgs, 1)
	if msgs[0].Level != lint.LevelInfo {
		t.Errorf("expected info, got %s", msgs[0].Level)
	}
	expectMessages(t, runLinter(t, TestsMissing{}, datasource), 0)
}

// TestMissingAnchorsAtRootWithoutTestsSection checks the fallback anchor.
func TestMissingAnchorsAtRootWithoutTestsSection(t *testing.T) {
	msgs := runLinter(t, TestsMissing{}, `<tool id="t"><inputs/></tool>`)
	expectMessages(t, msgs, 1)
	if msgs[0].Node == nil || msgs[0].Node.Tag != "tool" {
		t.Errorf("expected anchor at document root, got %v", msgs[0].Node)
	}
}

func TestMissingSilentWhenTestsExist(t *testing.T) {
	xml := `<tool id="t"><tests><test expect_exit_code="0"/></tests></tool>`
	expectMessages(t, runLinter(t, TestsMissing{}, xml), 0)
	expectMessages(t, runLinter(t, TestsMissingDatasource{}, xml), 0)
}

// TestAssertsMultipleCountsPerTag checks one error per repeated assertion tag.
func TestAssertsMultipleCountsPerTag(t *testing.T) {
	xml := `<tool id="t"><tests><test>
		<assert_stdout/><assert_stdout/>
		<assert_stderr/><assert_stderr/>
		<assert_command/>
	</test></tests></tool>`
	msgs := runLinter(t, TestsAssertsMultiple{}, xml)
	expectMessages(t, msgs, 2)
	expectContains(t, msgs, "Test 1: More than one assert_stdout found. Only the first is considered.")
	expectContains(t, msgs, "Test 1: More than one assert_stderr found.")
}

func TestAssertsMultipleSilentForSingles(t *testing.T) {
	xml := `<tool id="t"><tests><test><assert_stdout/><assert_stderr/><assert_command/></test></tests></tool>`
	expectMessages(t, runLinter(t, TestsAssertsMultiple{}, xml), 0)
}

// TestAssertsHasNQuant checks the quantifier requirement on line/column
// counting assertions nested at any depth.
func TestAssertsHasNQuant(t *testing.T) {
	missing := `<tool id="t"><tests><test>
		<output name="o">
			<assert_contents><has_n_lines/></assert_contents>
		</output>
		<assert_stdout><has_n_columns/></assert_stdout>
	</test></tests></tool>`
	msgs := runLinter(t, TestsAssertsHasNQuant{}, missing)
	expectMessages(t, msgs, 2)
	expectContains(t, msgs, "Test 1: 'has_n_lines' needs to specify 'n', 'min', or 'max'")
	expectContains(t, msgs, "Test 1: 'has_n_columns' needs to specify 'n', 'min', or 'max'")

	quantified := `<tool id="t"><tests><test>
		<assert_stdout><has_n_lines min="1"/></assert_stdout>
	</test></tests></tool>`
	expectMessages(t, runLinter(t, TestsAssertsHasNQuant{}, quantified), 0)
}

func TestAssertsHasNQuantIgnoresNodesOutsideAssertions(t *testing.T) {
	// has_n_lines outside an assertion block is not an assertion
	xml := `<tool id="t"><tests><test><output name="o"><has_n_lines/></output></test></tests></tool>`
	expectMessages(t, runLinter(t, TestsAssertsHasNQuant{}, xml), 0)
}

func TestAssertsHasSizeQuant(t *testing.T) {
	missing := `<tool id="t"><tests><test>
		<assert_stderr><has_size/></assert_stderr>
	</test></tests></tool>`
	msgs := runLinter(t, TestsAssertsHasSizeQuant{}, missing)
	expectMessages(t, msgs, 1)
	expectContains(t, msgs, "Test 1: 'has_size' needs to specify 'value', 'min', or 'max'")

	sized := `<tool id="t"><tests><test>
		<assert_stderr><has_size value="100"/></assert_stderr>
	</test></tests></tool>`
	expectMessages(t, runLinter(t, TestsAssertsHasSizeQuant{}, sized), 0)
}

// TestExpectNumOutputsWithFilters checks the expect_num_outputs advice only
// fires when outputs carry filters and the test doesn't expect failure.
func TestExpectNumOutputsWithFilters(t *testing.T) {
	filtered := `<tool id="t">
		<outputs><data name="o"><filter>cond</filter></data></outputs>
		<tests>
			<test><output name="o"/></test>
			<test expect_num_outputs="1"><output name="o"/></test>
			<test expect_failure="true"/>
		</tests>
	</tool>`
	msgs := runLinter(t, TestsExpectNumOutputs{}, filtered)
	expectMessages(t, msgs, 1)
	expectContains(t, msgs, "Test 1: should specify 'expect_num_outputs' if outputs have filters")

	unfiltered := `<tool id="t">
		<outputs><data name="o"/></outputs>
		<tests><test><output name="o"/></test></tests>
	</tool>`
	expectMessages(t, runLinter(t, TestsExpectNumOutputs{}, unfiltered), 0)
}

// TestParamInInputs checks name and argument matching, including nested
// param paths and underscore/hyphen conversion.
func TestParamInInputs(t *testing.T) {
	xml := `<tool id="t">
		<inputs>
			<param name="input"/>
			<conditional name="cond"><param name="inner"/></conditional>
			<param argument="--gc-content"/>
		</inputs>
		<tests><test>
			<param name="input" value="x"/>
			<param name="cond|inner" value="y"/>
			<param name="gc_content" value="true"/>
			<param name="missing" value="z"/>
		</test></tests>
	</tool>`
	msgs := runLinter(t, TestsParamInInputs{}, xml)
	expectMessages(t, msgs, 1)
	expectContains(t, msgs, "Test 1: Test param missing not found in the inputs")
}

func TestParamInInputsSkipsNamelessParams(t *testing.T) {
	xml := `<tool id="t"><inputs/><tests><test><param value="x"/></test></tests></tool>`
	expectMessages(t, runLinter(t, TestsParamInInputs{}, xml), 0)
}

func TestOutputNameRequired(t *testing.T) {
	xml := `<tool id="t"><tests><test><output value="x"/><output_collection/></test></tests></tool>`
	msgs := runLinter(t, TestsOutputName{}, xml)
	// output_collection names are enforced by the schema layer, not here
	expectMessages(t, msgs, 1)
	expectContains(t, msgs, "Test 1: Found output tag without a name defined.")
}

func TestOutputDefinedUnknownName(t *testing.T) {
	xml := `<tool id="t">
		<outputs><data name="stats"/><collection name="parts"/></outputs>
		<tests><test>
			<output name="stats"/>
			<output name="bogus"/>
		</test></tests>
	</tool>`
	msgs := runLinter(t, TestsOutputDefined{}, xml)
	expectMessages(t, msgs, 1)
	expectContains(t, msgs, "Test 1: Found output tag with unknown name [bogus], valid names [parts stats]")
}

// TestOutputDefinedUnindexableOutputs checks that duplicate outputs blocks
// make every name read as unknown rather than crashing.
func TestOutputDefinedUnindexableOutputs(t *testing.T) {
	xml := `<tool id="t">
		<outputs><data name="stats"/></outputs>
		<outputs><data name="other"/></outputs>
		<tests><test><output name="stats"/></test></tests>
	</tool>`
	msgs := runLinter(t, TestsOutputDefined{}, xml)
	expectMessages(t, msgs, 1)
	expectContains(t, msgs, "unknown name [stats]")
}

// TestUnknownNameShortCircuits checks the cross-reference symmetry: rules
// that resolve declarations stay silent for names TestsOutputDefined flags.
func TestUnknownNameShortCircuits(t *testing.T) {
	xml := `<tool id="t">
		<outputs><data name="stats"/></outputs>
		<tests><test><output name="bogus"/></test></tests>
	</tool>`
	expectMessages(t, runLinter(t, TestsOutputDefined{}, xml), 1)
	expectMessages(t, runLinter(t, TestsOutputCorresponding{}, xml), 0)
	expectMessages(t, runLinter(t, TestsOutputCheckDiscovered{}, xml), 0)
}

func TestOutputCorresponding(t *testing.T) {
	xml := `<tool id="t">
		<outputs><data name="stats"/><collection name="parts"/></outputs>
		<tests><test>
			<output name="parts"/>
			<output_collection name="stats"/>
		</test></tests>
	</tool>`
	msgs := runLinter(t, TestsOutputCorresponding{}, xml)
	expectMessages(t, msgs, 1)
	expectContains(t, msgs, "Test 1: test output parts does not correspond to a 'data' output, but a 'collection'")

	msgs = runLinter(t, TestsOutputCollectionCorresponding{}, xml)
	expectMessages(t, msgs, 1)
	expectContains(t, msgs, "Test 1: test collection output 'stats' does not correspond to a 'output_collection' output, but a 'data'")
}

func TestOutputCorrespondingSilentWhenMatched(t *testing.T) {
	xml := `<tool id="t">
		<outputs><data name="stats"/><collection name="parts"/></outputs>
		<tests><test>
			<output name="stats"/>
			<output_collection name="parts"/>
		</test></tests>
	</tool>`
	expectMessages(t, runLinter(t, TestsOutputCorresponding{}, xml), 0)
	expectMessages(t, runLinter(t, TestsOutputCollectionCorresponding{}, xml), 0)
}

// TestOutputCompareAttrib covers the compatibility table: one finding per
// offending attribute per node.
func TestOutputCompareAttrib(t *testing.T) {
	ok := `<tool id="t"><tests><test><output name="o" compare="diff" sort="true"/></test></tests></tool>`
	expectMessages(t, runLinter(t, TestsOutputCompareAttrib{}, ok), 0)

	bad := `<tool id="t"><tests><test><output name="o" compare="sim_size" sort="true"/></test></tests></tool>`
	msgs := runLinter(t, TestsOutputCompareAttrib{}, bad)
	expectMessages(t, msgs, 1)
	expectContains(t, msgs, `Test 1: Attribute sort is incompatible with compare="sim_size".`)

	twoBad := `<tool id="t"><tests><test><output name="o" compare="sim_size" sort="true" lines_diff="2"/></test></tests></tool>`
	expectMessages(t, runLinter(t, TestsOutputCompareAttrib{}, twoBad), 2)
}

func TestOutputCompareAttribNestedElements(t *testing.T) {
	// delta requires sim_size; default compare is diff
	xml := `<tool id="t"><tests><test>
		<output_collection name="c"><element name="e" delta="100"/></output_collection>
	</test></tests></tool>`
	msgs := runLinter(t, TestsOutputCompareAttrib{}, xml)
	expectMessages(t, msgs, 1)
	expectContains(t, msgs, `Attribute delta is incompatible with compare="diff".`)
}

func TestOutputCheckDiscovered(t *testing.T) {
	tmpl := `<tool id="t">
		<outputs><data name="hits"><discover_datasets pattern="__name__"/></data></outputs>
		<tests><test>%s</test></tests>
	</tool>`
	unchecked := fixture(tmpl, `<output name="hits"/>`)
	msgs := runLinter(t, TestsOutputCheckDiscovered{}, unchecked)
	expectMessages(t, msgs, 1)
	expectContains(t, msgs, "Test 1: test output 'hits' must have a 'count' attribute and/or 'discovered_dataset' children")

	expectMessages(t, runLinter(t, TestsOutputCheckDiscovered{}, fixture(tmpl, `<output name="hits" count="2"/>`)), 0)
	expectMessages(t, runLinter(t, TestsOutputCheckDiscovered{}, fixture(tmpl, `<output name="hits"><discovered_dataset designation="a"/></output>`)), 0)
}

func TestOutputCollectionCheckDiscovered(t *testing.T) {
	tmpl := `<tool id="t">
		<outputs><collection name="parts" type="list"><discover_datasets pattern="__name__"/></collection></outputs>
		<tests><test>%s</test></tests>
	</tool>`
	msgs := runLinter(t, TestsOutputCollectionCheckDiscovered{}, fixture(tmpl, `<output_collection name="parts"/>`))
	expectMessages(t, msgs, 1)
	expectContains(t, msgs, "Test 1: test collection 'parts' must have a 'count' attribute or 'element' children")

	expectMessages(t, runLinter(t, TestsOutputCollectionCheckDiscovered{}, fixture(tmpl, `<output_collection name="parts" count="3"/>`)), 0)
	expectMessages(t, runLinter(t, TestsOutputCollectionCheckDiscovered{}, fixture(tmpl, `<output_collection name="parts"><element name="a"/></output_collection>`)), 0)
}

// TestOutputCollectionCheckDiscoveredNested covers nested collection types.
func TestOutputCollectionCheckDiscoveredNested(t *testing.T) {
	tmpl := `<tool id="t">
		<outputs><collection name="c" type="list:list"><discover_datasets pattern="__name__"/></collection></outputs>
		<tests><test>%s</test></tests>
	</tool>`
	flat := fixture(tmpl, `<output_collection name="c"><element name="a"/></output_collection>`)
	msgs := runLinter(t, TestsOutputCollectionCheckDiscoveredNested{}, flat)
	expectMessages(t, msgs, 1)
	expectContains(t, msgs, "Test 1: test collection 'c' must contain nested 'element' tags and/or element children with a 'count' attribute")

	nested := fixture(tmpl, `<output_collection name="c"><element name="a"><element name="b"/></element></output_collection>`)
	expectMessages(t, runLinter(t, TestsOutputCollectionCheckDiscoveredNested{}, nested), 0)

	counted := fixture(tmpl, `<output_collection name="c"><element name="a" count="2"/></output_collection>`)
	expectMessages(t, runLinter(t, TestsOutputCollectionCheckDiscoveredNested{}, counted), 0)
}

func TestOutputCollectionCheckDiscoveredNestedIgnoresFlatTypes(t *testing.T) {
	xml := `<tool id="t">
		<outputs><collection name="c" type="list"><discover_datasets pattern="__name__"/></collection></outputs>
		<tests><test><output_collection name="c"><element name="a"/></output_collection></test></tests>
	</tool>`
	expectMessages(t, runLinter(t, TestsOutputCollectionCheckDiscoveredNested{}, xml), 0)
}

// TestFailingExclusions covers the expect_failure contradiction rules.
func TestFailingExclusions(t *testing.T) {
	withOutput := `<tool id="t"><tests><test expect_failure="true"><output name="out1"/></test></tests></tool>`
	msgs := runLinter(t, TestsOutputFailing{}, withOutput)
	expectMessages(t, msgs, 1)
	expectContains(t, msgs, "Test 1: Cannot specify outputs in a test expecting failure.")
	expectMessages(t, runLinter(t, TestsExpectNumOutputsFailing{}, withOutput), 0)

	withNum := `<tool id="t"><tests><test expect_failure="true" expect_num_outputs="2"/></tests></tool>`
	msgs = runLinter(t, TestsExpectNumOutputsFailing{}, withNum)
	expectMessages(t, msgs, 1)
	expectContains(t, msgs, "Test 1: Cannot make assumptions on the number of outputs in a test expecting failure.")
	expectMessages(t, runLinter(t, TestsOutputFailing{}, withNum), 0)
}

// TestHasExpectationsWarnsPerInvalidTest checks the per-test warning and
// that failing-with-outputs tests are excluded, not double-reported.
func TestHasExpectationsWarnsPerInvalidTest(t *testing.T) {
	xml := `<tool id="t"><tests>
		<test><param name="p" value="1"/></test>
		<test expect_exit_code="0"/>
		<test expect_failure="true"><output name="o"/></test>
	</tests></tool>`
	msgs := runLinter(t, TestsHasExpectations{}, xml)
	expectMessages(t, msgs, 1)
	expectContains(t, msgs, "Test 1: No outputs or expectations defined for tests, this test is likely invalid.")
}

// TestValidAndNoValidAgree checks the two counting rules stay complementary.
func TestValidAndNoValidAgree(t *testing.T) {
	valid := `<tool id="t"><tests>
		<test expect_exit_code="0"/>
		<test><param name="p" value="1"/></test>
	</tests></tool>`
	msgs := runLinter(t, TestsNoValid{}, valid)
	expectMessages(t, msgs, 1)
	if msgs[0].Level != lint.LevelValid {
		t.Errorf("expected valid level, got %s", msgs[0].Level)
	}
	expectContains(t, msgs, "1 test(s) found.")
	expectMessages(t, runLinter(t, TestsValid{}, valid), 0)

	invalid := `<tool id="t"><tests><test/></tests></tool>`
	expectMessages(t, runLinter(t, TestsNoValid{}, invalid), 0)
	msgs = runLinter(t, TestsValid{}, invalid)
	expectMessages(t, msgs, 1)
	expectContains(t, msgs, "No valid test(s) found.")
}

func TestValidAndNoValidDatasourceRelaxation(t *testing.T) {
	xml := `<tool id="t" tool_type="data_source"><tests><test/></tests></tool>`
	msgs := runLinter(t, TestsNoValid{}, xml)
	expectMessages(t, msgs, 1)
	expectContains(t, msgs, "0 test(s) found.")
	expectMessages(t, runLinter(t, TestsValid{}, xml), 0)
}

func TestValidAndNoValidSilentWithoutTests(t *testing.T) {
	xml := `<tool id="t"><tests/></tool>`
	expectMessages(t, runLinter(t, TestsNoValid{}, xml), 0)
	expectMessages(t, runLinter(t, TestsValid{}, xml), 0)
}

// TestFullRunIsIdempotent checks two passes over the same document yield the
// same findings regardless of order.
func TestFullRunIsIdempotent(t *testing.T) {
	xml := `<tool id="t">
		<inputs><param name="input"/></inputs>
		<outputs><data name="stats"/><collection name="parts"><discover_datasets pattern="__name__"/></collection></outputs>
		<tests>
			<test expect_failure="true"><output name="stats"/></test>
			<test>
				<param name="bogus" value="1"/>
				<output name="missing"/>
				<output_collection name="parts"/>
				<assert_stdout><has_n_lines/></assert_stdout>
				<assert_stdout/>
			</test>
		</tests>
	</tool>`
	doc := loadTool(t, xml)

	run := func(reverse bool) []string {
		all := All()
		if reverse {
			for i, j := 0, len(all)-1; i < j; i, j = i+1, j-1 {
				all[i], all[j] = all[j], all[i]
			}
		}
		ctx := lint.NewContext()
		ctx.Lint(doc, all...)
		out := make([]string, len(ctx.Messages))
		for i, m := range ctx.Messages {
			out[i] = m.Level.String() + "|" + m.Linter + "|" + m.Text
		}
		sort.Strings(out)
		return out
	}

	first := run(false)
	second := run(true)
	if len(first) == 0 {
		t.Fatal("expected findings from the fixture")
	}
	if len(first) != len(second) {
		t.Fatalf("pass sizes differ: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Errorf("finding %d differs: %q vs %q", i, first[i], second[i])
		}
	}
}

// TestPerTestRulesNoOpWithoutTests checks every per-test rule stays silent
// on a document with no tests section.
func TestPerTestRulesNoOpWithoutTests(t *testing.T) {
	xml := `<tool id="t"><inputs/><outputs><data name="o"/></outputs></tool>`
	doc := loadTool(t, xml)
	ctx := lint.NewContext()
	ctx.Skip = map[string]bool{"TestsMissing": true, "TestsMissingDatasource": true}
	ctx.Lint(doc, All()...)
	expectMessages(t, ctx.Messages, 0)
}
