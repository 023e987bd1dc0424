package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/declanmoore/examcache"
	"github.com/declanmoore/examcache/diagnostics"
	"github.com/spf13/cobra"
)

var reportCmd = &cobra.Command{
	Use:   "report [exam-code]",
	Short: "Print the detection diagnostics report for an exam code",
	Args:  cobra.ExactArgs(1),
	RunE:  runReport,
}

func init() {
	rootCmd.AddCommand(reportCmd)
}

func runReport(cmd *cobra.Command, args []string) error {
	examCode := args[0]

	cfg, err := examcache.LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	path := filepath.Join(cfg.CacheRoot, examCode, "_metadata", "detection_diagnostics.json")
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}

	var report diagnostics.Report
	if err := json.Unmarshal(data, &report); err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}

	fmt.Printf("%s: %d issues across %d source PDFs (generated %s)\n",
		examCode, report.TotalIssues, len(report.SourcePDFs), report.GeneratedAt)

	types := make([]string, 0, len(report.SummaryByType))
	for t := range report.SummaryByType {
		types = append(types, t)
	}
	sort.Strings(types)
	for _, t := range types {
		fmt.Printf("  %s: %d\n", t, report.SummaryByType[t])
	}
	return nil
}
