package scanner

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

// writePoolFile drops a file with the Debian archive magic into dir
func writePoolFile(t *testing.T, dir, name string) {
	t.Helper()
	data := append(append([]byte(nil), debMagic...), []byte("-binary payload")...)
	if err := os.WriteFile(filepath.Join(dir, name), data, 0644); err != nil {
		t.Fatalf("Failed to write %s: %v", name, err)
	}
}

func TestScanSkipsNonPackages(t *testing.T) {
	tmpDir, err := os.MkdirTemp("", "debrepo-test-")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(tmpDir)

	writePoolFile(t, tmpDir, "tool_1.0_amd64.deb")
	os.WriteFile(filepath.Join(tmpDir, "tool_1.0_amd64.deb.asc"), []byte("sig"), 0644)
	os.WriteFile(filepath.Join(tmpDir, "README"), []byte("not a package"), 0644)
	os.MkdirAll(filepath.Join(tmpDir, "subdir"), 0755)
	writePoolFile(t, filepath.Join(tmpDir, "subdir"), "nested_1.0_amd64.deb")

	artifacts, err := NewPoolScanner().Scan(context.Background(), tmpDir)
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}

	if len(artifacts) != 1 {
		t.Fatalf("got %d artifacts, want 1: %+v", len(artifacts), artifacts)
	}
	if artifacts[0].Name != "tool_1.0_amd64.deb" {
		t.Errorf("Name = %q", artifacts[0].Name)
	}
	if artifacts[0].Size == 0 {
		t.Error("Size should be filled in")
	}
}

func TestScanOrdersByName(t *testing.T) {
	tmpDir, err := os.MkdirTemp("", "debrepo-test-")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(tmpDir)

	for _, name := range []string{"zlib_1.3_amd64.deb", "acl_2.3_amd64.deb", "mutt_2.2_amd64.deb"} {
		writePoolFile(t, tmpDir, name)
	}

	artifacts, err := NewPoolScanner().Scan(context.Background(), tmpDir)
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}

	want := []string{"acl_2.3_amd64.deb", "mutt_2.2_amd64.deb", "zlib_1.3_amd64.deb"}
	if len(artifacts) != len(want) {
		t.Fatalf("got %d artifacts, want %d", len(artifacts), len(want))
	}
	for i, name := range want {
		if artifacts[i].Name != name {
			t.Errorf("artifacts[%d] = %q, want %q", i, artifacts[i].Name, name)
		}
	}
}

func TestScanMissingDir(t *testing.T) {
	_, err := NewPoolScanner().Scan(context.Background(), "/does/not/exist")
	if err == nil {
		t.Fatal("Scan should fail on a missing directory")
	}
}

func TestScanHonorsContext(t *testing.T) {
	tmpDir, err := os.MkdirTemp("", "debrepo-test-")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(tmpDir)
	writePoolFile(t, tmpDir, "tool_1.0_amd64.deb")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := NewPoolScanner().Scan(ctx, tmpDir); err == nil {
		t.Fatal("Scan should fail once the context is cancelled")
	}
}

func TestIsDebArtifact(t *testing.T) {
	tmpDir, err := os.MkdirTemp("", "debrepo-test-")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(tmpDir)

	tests := []struct {
		name    string
		content string
		want    bool
	}{
		{"real.deb", string(debMagic) + "-binary", true},
		{"renamed.bin", string(debMagic) + "-binary", true},
		{"text.deb", "plain text", true}, // extension fallback
		{"notes.txt", "plain text", false},
		{"empty.deb", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(tmpDir, tt.name)
			if err := os.WriteFile(path, []byte(tt.content), 0644); err != nil {
				t.Fatalf("Failed to write file: %v", err)
			}
			got, err := IsDebArtifact(path)
			if err != nil {
				t.Fatalf("IsDebArtifact failed: %v", err)
			}
			if got != tt.want {
				t.Errorf("IsDebArtifact(%s) = %v, want %v", tt.name, got, tt.want)
			}
		})
	}
}
