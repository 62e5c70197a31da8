package tempaudio

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"go.uber.org/zap/zaptest"

	"github.com/satriahrh/voxchat/domain"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(filepath.Join(t.TempDir(), "temp_audio"), zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	return store
}

func countFiles(t *testing.T, dir string) int {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("Failed to read dir: %v", err)
	}
	return len(entries)
}

func TestMaterializeAndRelease(t *testing.T) {
	store := newTestStore(t)
	data := []byte("RIFF\x00\x00\x00\x00WAVEfmt ")

	path, err := store.Materialize(data)
	if err != nil {
		t.Fatalf("Materialize failed: %v", err)
	}

	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read back file: %v", err)
	}
	if string(got) != string(data) {
		t.Errorf("File content mismatch")
	}
	if filepath.Dir(path) != store.Dir() {
		t.Errorf("Expected file under %s, got %s", store.Dir(), path)
	}

	store.Release(path)
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("Expected file to be removed, stat err: %v", err)
	}
}

func TestMaterializeEmptyUpload(t *testing.T) {
	store := newTestStore(t)

	_, err := store.Materialize(nil)
	if err == nil {
		t.Fatal("Expected error for empty upload")
	}
	if domain.KindOf(err) != domain.KindValidation {
		t.Errorf("Expected validation error, got %s", domain.KindOf(err))
	}
	if err.Error() != ErrEmptyUpload {
		t.Errorf("Expected %q, got %q", ErrEmptyUpload, err.Error())
	}
	if n := countFiles(t, store.Dir()); n != 0 {
		t.Errorf("Expected no files, found %d", n)
	}
}

func TestReleaseIsIdempotent(t *testing.T) {
	store := newTestStore(t)

	first, err := store.Materialize([]byte("one"))
	if err != nil {
		t.Fatalf("Materialize failed: %v", err)
	}
	second, err := store.Materialize([]byte("two"))
	if err != nil {
		t.Fatalf("Materialize failed: %v", err)
	}
	if first == second {
		t.Fatal("Expected unique paths")
	}

	store.Release(first)
	store.Release(first)
	store.Release("")

	if _, err := os.Stat(second); err != nil {
		t.Errorf("Releasing one file must not affect another: %v", err)
	}
	store.Release(second)
}

func TestWithReleasesOnEveryPath(t *testing.T) {
	store := newTestStore(t)

	var seen string
	err := store.With([]byte("audio"), func(path string) error {
		seen = path
		return errors.New("transcription exploded")
	})
	if err == nil || err.Error() != "transcription exploded" {
		t.Errorf("Expected fn error to propagate, got %v", err)
	}
	if _, statErr := os.Stat(seen); !os.IsNotExist(statErr) {
		t.Error("Expected file removed after fn error")
	}

	func() {
		defer func() {
			if recover() == nil {
				t.Error("Expected panic to propagate")
			}
		}()
		_ = store.With([]byte("audio"), func(path string) error {
			seen = path
			panic("boom")
		})
	}()
	if _, statErr := os.Stat(seen); !os.IsNotExist(statErr) {
		t.Error("Expected file removed after panic")
	}

	if n := countFiles(t, store.Dir()); n != 0 {
		t.Errorf("Expected empty directory, found %d files", n)
	}
}

func TestConcurrentMaterializeUniqueNames(t *testing.T) {
	store := newTestStore(t)

	const n = 32
	paths := make([]string, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			p, err := store.Materialize([]byte("x"))
			if err != nil {
				t.Errorf("Materialize failed: %v", err)
				return
			}
			paths[i] = p
		}(i)
	}
	wg.Wait()

	seen := make(map[string]bool)
	for _, p := range paths {
		if seen[p] {
			t.Errorf("Duplicate path %s", p)
		}
		seen[p] = true
	}
	if got := countFiles(t, store.Dir()); got != n {
		t.Errorf("Expected %d files, got %d", n, got)
	}
}

func TestIsWAV(t *testing.T) {
	if !isWAV([]byte("RIFF\x24\x00\x00\x00WAVEfmt ")) {
		t.Error("Expected RIFF/WAVE header to be detected")
	}
	if isWAV([]byte("OggS")) {
		t.Error("Expected non-WAV data to be rejected")
	}
}
