package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search extracted question text via the FTS side-index",
	Long: `search runs a keyword query over the search index built during
extraction (search_index.enabled must be set in config). Results are
ranked by relevance and point back into the cache by relative path.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().String("exam-code", "", "Restrict results to one exam code")
	searchCmd.Flags().Int("limit", 20, "Maximum number of results")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	query := strings.Join(args, " ")
	examCode := mustGetString(cmd, "exam-code")
	limit := mustGetInt(cmd, "limit")

	p, _, err := loadPipeline()
	if err != nil {
		return err
	}
	defer p.Close()

	results, err := p.Search(context.Background(), query, examCode, limit)
	if err != nil {
		return err
	}
	if len(results) == 0 {
		fmt.Println("no matches")
		return nil
	}
	for _, r := range results {
		fmt.Printf("  %-30s %-12s %s\n", r.QuestionID, r.Topic, r.RelativePath)
	}
	fmt.Printf("%d match(es)\n", len(results))
	return nil
}
