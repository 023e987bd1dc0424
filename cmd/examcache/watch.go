package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/declanmoore/examcache"
	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch a drop folder and extract question papers as they arrive",
	Long: `watch follows config.Watch.InputDir for new or changed question-paper
PDFs and extracts each one automatically, debouncing rapid write bursts
the way an editor's autosave can produce, and falling back to polling
on filesystems where fsnotify doesn't fire (network mounts).`,
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	p, cfg, err := loadPipeline()
	if err != nil {
		return err
	}
	defer p.Close()

	if cfg.Watch.InputDir == "" {
		return fmt.Errorf("watch.input_dir is not configured")
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer w.Close()

	if err := watchRecursive(w, cfg.Watch.InputDir); err != nil {
		return fmt.Errorf("watching %s: %w", cfg.Watch.InputDir, err)
	}
	fmt.Printf("watching %s\n", cfg.Watch.InputDir)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		fmt.Println("\nshutting down...")
		cancel()
	}()

	var wg sync.WaitGroup
	db := newDebouncer(500*time.Millisecond, func(path string) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			extractWatched(ctx, p, path)
		}()
	})
	defer db.stop()

	go pollLoop(ctx, cfg.Watch.InputDir, cfg.Watch.PollDuration(), db.trigger)

	eventLoop(ctx, w, db)

	fmt.Println("waiting for in-flight extractions...")
	wg.Wait()
	fmt.Println("shutdown complete")
	return nil
}

func extractWatched(ctx context.Context, p *examcache.Pipeline, path string) {
	if !isQuestionPaper(path) {
		return
	}
	fmt.Printf("extracting %s\n", path)
	result := p.ExtractPDF(ctx, path)
	if result.Err != nil {
		fmt.Fprintf(os.Stderr, "extracting %s: %v\n", path, result.Err)
		return
	}
	if err := p.WriteDiagnosticsReport(result.ExamCode); err != nil {
		fmt.Fprintf(os.Stderr, "writing diagnostics report for %s: %v\n", result.ExamCode, err)
	}
	fmt.Printf("%s: %d questions\n", path, len(result.Questions))
}

func isQuestionPaper(path string) bool {
	return strings.Contains(filepath.Base(path), "_qp_") && strings.EqualFold(filepath.Ext(path), ".pdf")
}

func watchRecursive(w *fsnotify.Watcher, dir string) error {
	return filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			return w.Add(path)
		}
		return nil
	})
}

func eventLoop(ctx context.Context, w *fsnotify.Watcher, db *debouncer) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-w.Events:
			if !ok {
				return
			}
			if ev.Has(fsnotify.Create) {
				if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
					watchRecursive(w, ev.Name)
					continue
				}
			}
			if ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) {
				db.trigger(ev.Name)
			}
		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			fmt.Fprintf(os.Stderr, "watcher error: %v\n", err)
		}
	}
}

// pollLoop walks dir at a fixed interval, firing onChanged for any
// question paper not seen on an earlier pass or whose mtime changed
// since then — a fallback for network/virtual filesystems where
// fsnotify doesn't fire. The first pass, one interval after start,
// fires for every question paper already in dir.
func pollLoop(ctx context.Context, dir string, interval time.Duration, onChanged func(path string)) {
	mtimes := make(map[string]time.Time)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
			if err != nil || d.IsDir() || !isQuestionPaper(path) {
				return nil
			}
			info, err := d.Info()
			if err != nil {
				return nil
			}
			mt := info.ModTime()
			if prev, ok := mtimes[path]; !ok || !mt.Equal(prev) {
				mtimes[path] = mt
				onChanged(path)
			}
			return nil
		})
	}
}

// debouncer coalesces rapid event bursts into a single callback per file.
type debouncer struct {
	mu     sync.Mutex
	timers map[string]*time.Timer
	delay  time.Duration
	onFire func(path string)
}

func newDebouncer(delay time.Duration, onFire func(path string)) *debouncer {
	return &debouncer{timers: make(map[string]*time.Timer), delay: delay, onFire: onFire}
}

func (d *debouncer) trigger(path string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if t, ok := d.timers[path]; ok {
		t.Reset(d.delay)
		return
	}
	d.timers[path] = time.AfterFunc(d.delay, func() {
		d.mu.Lock()
		delete(d.timers, path)
		d.mu.Unlock()
		d.onFire(path)
	})
}

func (d *debouncer) stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	for path, t := range d.timers {
		t.Stop()
		delete(d.timers, path)
	}
}
