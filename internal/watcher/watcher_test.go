package watcher

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

func TestMatches(t *testing.T) {
	w, err := New(Config{Dir: t.TempDir(), Patterns: []string{"**/*.xlsx", "lab/*.csv"}}, nil)
	if err != nil {
		t.Fatal(err)
	}
	tests := []struct {
		rel  string
		want bool
	}{
		{"boring.xlsx", true},
		{"site/a/boring.xlsx", true},
		{"lab/results.csv", true},
		{"results.csv", false},
		{"lab/deep/results.csv", false},
		{".~lock.xlsx", false},
		{"notes.txt", false},
	}
	for _, tt := range tests {
		if got := w.Matches(tt.rel); got != tt.want {
			t.Errorf("Matches(%q) = %v, want %v", tt.rel, got, tt.want)
		}
	}
}

func TestNewRejectsBadPattern(t *testing.T) {
	if _, err := New(Config{Dir: t.TempDir(), Patterns: []string{"[a-"}}, nil); err == nil {
		t.Fatal("expected invalid pattern error")
	}
}

func TestScan(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"a.csv", "sub/b.csv", "c.txt"} {
		path := filepath.Join(dir, name)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	var got []string
	w, err := New(Config{Dir: dir, Patterns: []string{"**/*.csv", "*.csv"}}, func(_ context.Context, path string) error {
		got = append(got, filepath.Base(path))
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if err := w.Scan(context.Background()); err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected each csv once, got %v", got)
	}
}

func TestRunImportsSettledFiles(t *testing.T) {
	dir := t.TempDir()
	imported := make(chan string, 4)
	var mu sync.Mutex
	calls := map[string]int{}
	w, err := New(Config{Dir: dir, Patterns: []string{"**/*.csv"}, Debounce: 100 * time.Millisecond},
		func(_ context.Context, path string) error {
			mu.Lock()
			calls[path]++
			mu.Unlock()
			imported <- path
			return nil
		})
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()
	time.Sleep(100 * time.Millisecond)

	target := filepath.Join(dir, "lab.csv")
	f, err := os.Create(target)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 3; i++ {
		f.WriteString("row\n")
		time.Sleep(10 * time.Millisecond)
	}
	f.Close()
	if err := os.WriteFile(filepath.Join(dir, "ignore.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	select {
	case path := <-imported:
		if path != target {
			t.Fatalf("imported %s, want %s", path, target)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("file was not imported")
	}
	time.Sleep(300 * time.Millisecond)

	cancel()
	if err := <-done; err != nil {
		t.Fatalf("Run: %v", err)
	}
	mu.Lock()
	defer mu.Unlock()
	if calls[target] != 1 {
		t.Fatalf("burst of writes imported %d times, want 1", calls[target])
	}
	if len(calls) != 1 {
		t.Fatalf("unexpected imports %v", calls)
	}
}
