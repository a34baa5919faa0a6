// Package main provides a CLI tool for converting alarm exports to
// aggregated rule JSON.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/mervekesknn/db-protection-insight/internal/pipeline"
	"github.com/mervekesknn/db-protection-insight/internal/trend"
)

var version = "dev"

func main() {
	var (
		showVersion bool
		inPath      string
		outPath     string
		summary     bool
		top         int
	)

	flag.BoolVar(&showVersion, "version", false, "Show version and exit")
	flag.StringVar(&inPath, "in", "", "Input export file (CSV/TSV), defaults to stdin")
	flag.StringVar(&outPath, "out", "", "Output JSON file, defaults to stdout")
	flag.BoolVar(&summary, "summary", false, "Print a trend summary to stderr")
	flag.IntVar(&top, "top", 10, "Number of rules in the summary")
	flag.Parse()

	if showVersion {
		fmt.Printf("alarmscope-import %s\n", version)
		os.Exit(0)
	}

	os.Exit(run(inPath, outPath, summary, top))
}

func run(inPath, outPath string, summary bool, top int) int {
	var data []byte
	var err error

	if inPath == "" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(inPath)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading input: %v\n", err)
		return 1
	}

	rules := pipeline.Build(string(data))
	if len(rules) == 0 {
		fmt.Fprintf(os.Stderr, "Error: no alarm rows found in input\n")
		return 1
	}

	out, err := json.MarshalIndent(rules, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error encoding output: %v\n", err)
		return 1
	}
	out = append(out, '\n')

	if outPath == "" {
		os.Stdout.Write(out)
	} else {
		if err := os.WriteFile(outPath, out, 0o644); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing output: %v\n", err)
			return 1
		}
	}

	if summary {
		printSummary(rules, top)
	}

	return 0
}

func printSummary(rules []*pipeline.RuleAggregate, top int) {
	report := trend.Analyze(rules)

	totalTriggers := 0
	for _, r := range rules {
		totalTriggers += r.TriggerCount
	}

	fmt.Fprintf(os.Stderr, "\n%d rules, %d users, %d triggers\n",
		len(report.Rules), len(report.Users), totalTriggers)
	if report.Unindexed > 0 {
		fmt.Fprintf(os.Stderr, "%d triggers had unparseable dates\n", report.Unindexed)
	}

	fmt.Fprintf(os.Stderr, "\nTop rules:\n")
	for _, rs := range report.TopRules(top, "") {
		fmt.Fprintf(os.Stderr, "  %-50s %-8s triggers=%-5d users=%d\n",
			rs.RuleName, rs.Severity, rs.TriggerCount, rs.AffectedUsersCount)
	}
}
