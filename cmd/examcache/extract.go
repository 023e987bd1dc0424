package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var extractCmd = &cobra.Command{
	Use:   "extract [question-paper.pdf]",
	Short: "Extract one question-paper PDF into the cache",
	Args:  cobra.ExactArgs(1),
	RunE:  runExtract,
}

func init() {
	rootCmd.AddCommand(extractCmd)
}

func runExtract(cmd *cobra.Command, args []string) error {
	qpPath := args[0]

	p, _, err := loadPipeline()
	if err != nil {
		return err
	}
	defer p.Close()

	result := p.ExtractPDF(context.Background(), qpPath)
	if result.Err != nil {
		return fmt.Errorf("extracting %s: %w", qpPath, result.Err)
	}

	ok, failed := 0, 0
	for _, q := range result.Questions {
		if q.Err != nil {
			failed++
			fmt.Printf("  question %s: %v\n", q.QuestionID, q.Err)
			continue
		}
		ok++
		fmt.Printf("  %s -> %s\n", q.QuestionID, q.Question.RelativePath())
	}
	fmt.Printf("%s: %d questions extracted, %d failed\n", result.ExamCode, ok, failed)

	if err := p.WriteDiagnosticsReport(result.ExamCode); err != nil {
		return fmt.Errorf("writing diagnostics report: %w", err)
	}
	return nil
}
