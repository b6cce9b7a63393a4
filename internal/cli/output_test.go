package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"
)

func TestWriteJSONIndents(t *testing.T) {
	var buf bytes.Buffer
	if err := writeJSON(&buf, map[string]int{"suits": 2}); err != nil {
		t.Fatalf("writeJSON() error = %v", err)
	}
	if got := buf.String(); got != "{\n  \"suits\": 2\n}\n" {
		t.Errorf("writeJSON() = %q", got)
	}
}

func TestWriteArtifact(t *testing.T) {
	path := filepath.Join(t.TempDir(), "suits.json")

	if err := writeArtifact(path, []string{"a", "b"}); err != nil {
		t.Fatalf("writeArtifact() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read artifact: %v", err)
	}
	var got []string
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("Artifact is not valid JSON: %v", err)
	}
	if len(got) != 2 || got[0] != "a" {
		t.Errorf("Artifact = %v", got)
	}

	if _, err := os.Stat(path + ".lock"); !os.IsNotExist(err) {
		t.Error("Lock file was not removed after write")
	}
}

func TestWriteArtifactRefusesWhenLocked(t *testing.T) {
	path := filepath.Join(t.TempDir(), "suits.json")

	lockFile, err := acquireFileLock(path)
	if err != nil {
		t.Fatalf("Failed to acquire lock: %v", err)
	}
	defer releaseFileLock(lockFile)

	err = writeArtifact(path, "x")
	if err == nil {
		t.Fatal("Expected writeArtifact to fail while locked")
	}
	if !strings.Contains(err.Error(), "lock") {
		t.Errorf("Unexpected error: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("Artifact was written despite the lock")
	}
}

func TestAcquireFileLock(t *testing.T) {
	testFile := filepath.Join(t.TempDir(), "test-lock.json")

	lockFile, err := acquireFileLock(testFile)
	if err != nil {
		t.Fatalf("Failed to acquire lock: %v", err)
	}
	defer releaseFileLock(lockFile)

	if _, err := os.Stat(testFile + ".lock"); os.IsNotExist(err) {
		t.Error("Lock file was not created")
	}

	// Try to acquire lock again (should fail)
	if _, err := acquireFileLock(testFile); err == nil {
		t.Error("Expected lock acquisition to fail, but it succeeded")
	}
}

func TestReleaseFileLock(t *testing.T) {
	testFile := filepath.Join(t.TempDir(), "test-lock.json")

	lockFile, err := acquireFileLock(testFile)
	if err != nil {
		t.Fatalf("Failed to acquire lock: %v", err)
	}
	lockPath := lockFile.Name()

	if err := releaseFileLock(lockFile); err != nil {
		t.Errorf("Failed to release lock: %v", err)
	}
	if _, err := os.Stat(lockPath); !os.IsNotExist(err) {
		t.Error("Lock file was not removed after release")
	}

	lockFile2, err := acquireFileLock(testFile)
	if err != nil {
		t.Errorf("Failed to re-acquire lock after release: %v", err)
	}
	defer releaseFileLock(lockFile2)

	if err := releaseFileLock(nil); err != nil {
		t.Errorf("releaseFileLock(nil) = %v", err)
	}
}

func TestConcurrentFileLocking(t *testing.T) {
	testFile := filepath.Join(t.TempDir(), "test-concurrent.json")

	var wg sync.WaitGroup
	successCount := 0
	mu := sync.Mutex{}

	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			lockFile, err := acquireFileLock(testFile)
			if err != nil {
				return
			}
			mu.Lock()
			successCount++
			mu.Unlock()

			time.Sleep(10 * time.Millisecond)
			releaseFileLock(lockFile)
		}()
	}
	wg.Wait()

	if successCount == 0 {
		t.Error("No goroutine acquired lock")
	}
}
