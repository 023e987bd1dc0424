// Command examcache extracts per-question composite images and
// metadata from exam question-paper PDFs into a content-addressable
// cache. It wraps the examcache.Pipeline facade with a cobra CLI: one
// root command, one file per verb, shared persistent flags.
package main

import (
	"fmt"
	"os"

	"github.com/declanmoore/examcache"
	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "examcache",
	Short: "Extract exam question papers into a content-addressable question cache",
	Long: `examcache turns a folder of exam-board question-paper PDFs into a
cache of per-question composite images, region metadata, and catalog
records, binding each question to its mark scheme where one is found.`,
}

func main() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to a TOML config file")
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadPipeline builds a Pipeline from the --config flag (or defaults),
// the one piece of setup every verb needs before it can do anything.
func loadPipeline() (*examcache.Pipeline, examcache.Config, error) {
	cfg, err := examcache.LoadConfig(configPath)
	if err != nil {
		return nil, examcache.Config{}, fmt.Errorf("loading config: %w", err)
	}
	p, err := examcache.New(cfg)
	if err != nil {
		return nil, examcache.Config{}, err
	}
	return p, cfg, nil
}
