package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

var batchCmd = &cobra.Command{
	Use:   "batch [input-dir]",
	Short: "Extract every question paper under a directory",
	Long: `batch walks input-dir for question-paper PDFs (filenames containing
"_qp_") and extracts each one, reporting progress as it goes. Mark
schemes are located automatically next to their question paper.`,
	Args: cobra.ExactArgs(1),
	RunE: runBatch,
}

func init() {
	batchCmd.Flags().Int("concurrency", 4, "Number of PDFs to extract in parallel")
	batchCmd.Flags().Bool("fail-fast", false, "Stop scheduling new PDFs after the first whole-PDF failure")
	rootCmd.AddCommand(batchCmd)
}

func findQuestionPapers(dir string) ([]string, error) {
	var out []string
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		if strings.Contains(filepath.Base(path), "_qp_") && strings.EqualFold(filepath.Ext(path), ".pdf") {
			out = append(out, path)
		}
		return nil
	})
	sort.Strings(out)
	return out, err
}

func runBatch(cmd *cobra.Command, args []string) error {
	inputDir := args[0]
	concurrency := mustGetInt(cmd, "concurrency")
	failFast := mustGetBool(cmd, "fail-fast")

	qpPaths, err := findQuestionPapers(inputDir)
	if err != nil {
		return fmt.Errorf("scanning %s: %w", inputDir, err)
	}
	if len(qpPaths) == 0 {
		fmt.Println("no question papers found")
		return nil
	}

	// runID is printed at the start and in the final tally, so the
	// output of one invocation can be told apart from another's.
	runID := uuid.New().String()
	fmt.Printf("batch run %s: %d question papers\n", runID, len(qpPaths))

	p, _, err := loadPipeline()
	if err != nil {
		return err
	}
	defer p.Close()

	bar := progressbar.NewOptions(len(qpPaths),
		progressbar.OptionSetDescription("extracting"),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("pdfs"),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetPredictTime(true),
		progressbar.OptionFullWidth(),
	)

	examCodes := make(map[string]bool)
	var examCodesMu sync.Mutex
	var failedMu sync.Mutex
	var failed []string

	sem := make(chan struct{}, concurrency)
	var wg sync.WaitGroup
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	for _, qpPath := range qpPaths {
		if ctx.Err() != nil {
			break
		}
		wg.Add(1)
		sem <- struct{}{}
		go func(qpPath string) {
			defer func() { <-sem; wg.Done(); bar.Add(1) }()

			result := p.ExtractPDF(ctx, qpPath)
			if result.Err != nil {
				failedMu.Lock()
				failed = append(failed, fmt.Sprintf("%s: %v", qpPath, result.Err))
				failedMu.Unlock()
				if failFast {
					cancel()
				}
				return
			}
			examCodesMu.Lock()
			examCodes[result.ExamCode] = true
			examCodesMu.Unlock()
		}(qpPath)
	}
	wg.Wait()
	fmt.Println()

	for code := range examCodes {
		if err := p.WriteDiagnosticsReport(code); err != nil {
			fmt.Fprintf(os.Stderr, "writing diagnostics report for %s: %v\n", code, err)
		}
	}

	if len(failed) > 0 {
		fmt.Printf("%d failures:\n", len(failed))
		for _, f := range failed {
			fmt.Printf("  %s\n", f)
		}
	}
	fmt.Printf("run %s done: %d/%d question papers processed\n", runID, len(qpPaths)-len(failed), len(qpPaths))
	return nil
}
