package writer

import (
	"image"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

func TestAtomicWriteFileCreatesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sub", "regions.json")
	if err := AtomicWriteFile(path, []byte(`{"ok":true}`)); err != nil {
		t.Fatalf("AtomicWriteFile: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(data) != `{"ok":true}` {
		t.Errorf("contents = %q", data)
	}
	entries, _ := os.ReadDir(filepath.Join(dir, "sub"))
	for _, e := range entries {
		if filepath.Ext(e.Name()) == ".tmp" || len(e.Name()) > 0 && e.Name()[0] == '.' && e.Name() != "regions.json" {
			t.Errorf("leftover temp file: %s", e.Name())
		}
	}
}

func TestAtomicWritePNGEncodesAndWrites(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "composite.png")
	img := image.NewGray(image.Rect(0, 0, 4, 4))
	if err := AtomicWritePNG(path, img); err != nil {
		t.Fatalf("AtomicWritePNG: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("Stat: %v", err)
	}
}

func TestAppendJSONLLockedConcurrentWriters(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "questions.jsonl")

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			line := []byte(`{"id":"q"}`)
			if err := AppendJSONLLocked(path, line, 5*time.Second); err != nil {
				t.Errorf("AppendJSONLLocked: %v", err)
			}
		}(i)
	}
	wg.Wait()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	lines := 0
	for _, b := range data {
		if b == '\n' {
			lines++
		}
	}
	if lines != 20 {
		t.Errorf("expected 20 appended lines, got %d", lines)
	}
}

func TestLockedReadModifyWriteMergesConcurrentWriters(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "timing.json")

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			err := LockedReadModifyWrite(path, 5*time.Second, func(existing []byte) ([]byte, error) {
				count := 0
				if len(existing) > 0 {
					for _, c := range existing {
						if c == 'x' {
							count++
						}
					}
				}
				out := make([]byte, count+1)
				for i := range out {
					out[i] = 'x'
				}
				return out, nil
			})
			if err != nil {
				t.Errorf("LockedReadModifyWrite: %v", err)
			}
		}(i)
	}
	wg.Wait()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if len(data) != 10 {
		t.Errorf("expected 10 merged increments, got %d bytes", len(data))
	}
}

func TestImageQueueFlushWaitsForSubmittedJobs(t *testing.T) {
	dir := t.TempDir()
	q := NewImageQueue(2)
	defer q.Close()

	for i := 0; i < 8; i++ {
		path := filepath.Join(dir, "img", string(rune('a'+i))+".png")
		q.Submit(path, image.NewGray(image.Rect(0, 0, 2, 2)))
	}
	q.Flush()

	entries, err := os.ReadDir(filepath.Join(dir, "img"))
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if len(entries) != 8 {
		t.Errorf("expected all 8 images on disk after Flush, got %d", len(entries))
	}
}

func TestImageQueueWritesAllJobs(t *testing.T) {
	dir := t.TempDir()
	q := NewImageQueue(2)
	for i := 0; i < 5; i++ {
		path := filepath.Join(dir, "img", string(rune('a'+i))+".png")
		q.Submit(path, image.NewGray(image.Rect(0, 0, 2, 2)))
	}
	if errs := q.Close(); len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	entries, err := os.ReadDir(filepath.Join(dir, "img"))
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if len(entries) != 5 {
		t.Errorf("expected 5 images written, got %d", len(entries))
	}
}
