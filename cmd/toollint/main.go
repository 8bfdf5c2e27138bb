// Package main provides the toollint binary: a linter for the tests section
// of tool-definition XML files.
package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ormasoftchile/toollint/pkg/lint"
	"github.com/ormasoftchile/toollint/pkg/linters"
	"github.com/ormasoftchile/toollint/pkg/profile"
	"github.com/ormasoftchile/toollint/pkg/toolxml"
)

// Version is set at build time via ldflags.
var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:           "toollint",
	Short:         "Lint test declarations in tool-definition XML files",
	Long:          "toollint — a rule-based linter that checks the <tests> section of tool-definition XML documents for missing assertions, dangling output references, and other inconsistencies, without running anything.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// --- lint ---

var (
	lintProfile   string
	lintLevel     string
	lintFailLevel string
	lintSkip      []string
	lintSelect    string
	lintJSON      bool
)

var lintCmd = &cobra.Command{
	Use:   "lint [tool.xml ...]",
	Short: "Lint one or more tool XML files",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runLint,
}

func runLint(cmd *cobra.Command, args []string) error {
	p, err := resolveProfile(cmd)
	if err != nil {
		return err
	}

	min, err := p.ReportLevel()
	if err != nil {
		return err
	}
	failAt, err := p.FailAt()
	if err != nil {
		return err
	}
	var filter *lint.Filter
	if p.Select != "" {
		filter, err = lint.CompileFilter(p.Select)
		if err != nil {
			return err
		}
	}
	skip := p.SkipSet()

	type fileReport struct {
		Path     string         `json:"path"`
		Error    string         `json:"error,omitempty"`
		Findings []lint.Message `json:"findings"`
	}
	var reports []fileReport

	failed := 0
	for _, path := range args {
		doc, err := toolxml.LoadFile(path)
		if err != nil {
			failed++
			if lintJSON {
				reports = append(reports, fileReport{Path: path, Error: err.Error(), Findings: []lint.Message{}})
			} else {
				fmt.Fprintf(os.Stderr, "✗ %s: %v\n", path, err)
			}
			continue
		}
		if !toolxml.IsLintable(doc) {
			if !lintJSON {
				fmt.Fprintf(os.Stderr, "• %s: tool type %q is not linted, skipping\n", path, toolxml.ToolType(doc))
			}
			continue
		}

		ctx := lint.NewContext()
		ctx.Skip = skip
		ctx.Lint(doc, linters.All()...)
		if filter != nil {
			if err := filter.Apply(ctx); err != nil {
				return err
			}
		}

		if ctx.Messages == nil {
			ctx.Messages = []lint.Message{}
		}
		if lintJSON {
			shown := fileReport{Path: path, Findings: []lint.Message{}}
			for _, m := range ctx.Messages {
				if m.Level >= min {
					shown.Findings = append(shown.Findings, m)
				}
			}
			reports = append(reports, shown)
		} else {
			fmt.Printf("%s:\n", path)
			ctx.Report(os.Stdout, min)
		}

		if failsAt(ctx, failAt) {
			failed++
		}
	}

	if lintJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(reports); err != nil {
			return err
		}
	}

	if failed > 0 {
		return fmt.Errorf("lint failed for %d of %d file(s)", failed, len(args))
	}
	return nil
}

func failsAt(ctx *lint.Context, failAt lint.Level) bool {
	if failAt >= lint.LevelError {
		return ctx.FoundErrors()
	}
	return ctx.FoundWarns()
}

// resolveProfile loads the profile file when given and layers CLI flag
// overrides on top.
func resolveProfile(cmd *cobra.Command) (*profile.Profile, error) {
	p := profile.Default()
	if lintProfile != "" {
		loaded, errs := profile.ValidateFile(lintProfile)
		fatal := false
		for _, e := range errs {
			fmt.Fprintf(os.Stderr, "  ⚠ %s\n", e.Error())
			if e.Severity == "error" {
				fatal = true
			}
		}
		if fatal {
			return nil, fmt.Errorf("invalid profile %s", lintProfile)
		}
		p = loaded
	}
	if cmd.Flags().Changed("level") {
		p.Level = lintLevel
	}
	if cmd.Flags().Changed("fail-level") {
		p.FailLevel = lintFailLevel
	}
	if cmd.Flags().Changed("skip") {
		p.Skip = lintSkip
	}
	if cmd.Flags().Changed("select") {
		p.Select = lintSelect
	}
	return p, nil
}

// --- schema ---

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Print the JSON Schema for profile files",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := profile.GenerateJSONSchema()
		if err != nil {
			return err
		}
		fmt.Println(string(data))
		return nil
	},
}

// --- version ---

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("toollint %s (%s)\n", version, commit)
	},
}

func init() {
	lintCmd.Flags().StringVar(&lintProfile, "profile", "", "path to a .toollint.yaml profile")
	lintCmd.Flags().StringVar(&lintLevel, "level", "warn", "minimum severity to report (all, info, warn, error)")
	lintCmd.Flags().StringVar(&lintFailLevel, "fail-level", "error", "severity that makes the run fail (warn, error)")
	lintCmd.Flags().StringSliceVar(&lintSkip, "skip", nil, "linter names to skip")
	lintCmd.Flags().StringVar(&lintSelect, "select", "", "expr filter over findings, e.g. 'level == \"error\"'")
	lintCmd.Flags().BoolVar(&lintJSON, "json", false, "emit findings as JSON")

	rootCmd.AddCommand(lintCmd)
	rootCmd.AddCommand(schemaCmd)
	rootCmd.AddCommand(versionCmd)
}
