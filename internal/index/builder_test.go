package index

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/debrepo/debrepo/internal/config"
	"github.com/debrepo/debrepo/internal/models"
	"github.com/debrepo/debrepo/internal/scanner"
	"github.com/debrepo/debrepo/internal/utils"
)

// fakeExtractor serves canned metadata keyed by artifact file name
type fakeExtractor struct {
	packages map[string]models.Package
}

func (f *fakeExtractor) Extract(ctx context.Context, path string) (*models.Package, error) {
	pkg, ok := f.packages[filepath.Base(path)]
	if !ok {
		return nil, fmt.Errorf("unexpected artifact %s", path)
	}
	clone := pkg
	return &clone, nil
}

func testPackage(name, version, arch string) models.Package {
	return models.Package{
		Name:         name,
		Version:      version,
		Architecture: arch,
		Size:         1234,
		MD5Sum:       "0123",
		SHA1Sum:      "4567",
		SHA256Sum:    "89ab",
	}
}

func testConfig(t *testing.T, dir string, arches ...string) *config.Config {
	t.Helper()
	cfg := config.New()
	cfg.Dir = dir
	cfg.Architectures = arches
	if err := cfg.Check(); err != nil {
		t.Fatalf("Check failed: %v", err)
	}
	return cfg
}

func artifactsFor(names ...string) []scanner.Artifact {
	var artifacts []scanner.Artifact
	for _, name := range names {
		artifacts = append(artifacts, scanner.Artifact{Path: filepath.Join("pool", name), Name: name})
	}
	return artifacts
}

func TestArtifactPaths(t *testing.T) {
	cfg := testConfig(t, "/srv/repo", "amd64")
	cfg.Components = []string{"main", "contrib"}

	got := ArtifactPaths(cfg)
	want := []string{
		"main/binary-amd64/Packages",
		"main/binary-amd64/Packages.gz",
		"main/binary-amd64/Packages.bz2",
		"main/binary-all/Packages",
		"main/binary-all/Packages.gz",
		"main/binary-all/Packages.bz2",
		"contrib/binary-amd64/Packages",
		"contrib/binary-amd64/Packages.gz",
		"contrib/binary-amd64/Packages.bz2",
		"contrib/binary-all/Packages",
		"contrib/binary-all/Packages.gz",
		"contrib/binary-all/Packages.bz2",
	}
	if len(got) != len(want) {
		t.Fatalf("got %d paths, want %d: %v", len(got), len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("paths[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestArtifactPathsWithoutBzip2(t *testing.T) {
	cfg := testConfig(t, "/srv/repo", "amd64")
	cfg.Bzip2 = false

	for _, p := range ArtifactPaths(cfg) {
		if strings.HasSuffix(p, ".bz2") {
			t.Errorf("bz2 disabled but %q emitted", p)
		}
	}
}

func TestBuildSplitsArchitectures(t *testing.T) {
	tmpDir, err := os.MkdirTemp("", "debrepo-test-")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(tmpDir)

	cfg := testConfig(t, tmpDir, "amd64", "arm64")
	ex := &fakeExtractor{packages: map[string]models.Package{
		"tool_1.0_amd64.deb":  testPackage("tool", "1.0", "amd64"),
		"tool_1.0_arm64.deb":  testPackage("tool", "1.0", "arm64"),
		"scripts_2.0_all.deb": testPackage("scripts", "2.0", "all"),
	}}

	packages, err := NewBuilder(cfg, ex).Build(context.Background(),
		artifactsFor("tool_1.0_amd64.deb", "tool_1.0_arm64.deb", "scripts_2.0_all.deb"))
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if len(packages) != 3 {
		t.Fatalf("got %d packages, want 3", len(packages))
	}

	readIndex := func(arch string) string {
		t.Helper()
		data, err := os.ReadFile(filepath.Join(cfg.DistsDir(), "main", "binary-"+arch, "Packages"))
		if err != nil {
			t.Fatalf("Failed to read binary-%s index: %v", arch, err)
		}
		return string(data)
	}

	// The default architecture carries the arch-independent package too
	amd64 := readIndex("amd64")
	if !strings.Contains(amd64, "Package: tool") || !strings.Contains(amd64, "Package: scripts") {
		t.Errorf("binary-amd64 should list tool and scripts:\n%s", amd64)
	}

	// Other concrete architectures do not
	arm64 := readIndex("arm64")
	if !strings.Contains(arm64, "Package: tool") {
		t.Errorf("binary-arm64 should list tool:\n%s", arm64)
	}
	if strings.Contains(arm64, "Package: scripts") {
		t.Errorf("binary-arm64 must not list the arch-independent package:\n%s", arm64)
	}

	// binary-all holds exactly the arch-independent packages
	all := readIndex("all")
	if strings.Contains(all, "Package: tool") || !strings.Contains(all, "Package: scripts") {
		t.Errorf("binary-all should list only scripts:\n%s", all)
	}

	// Every advertised index file exists on disk
	for _, rel := range ArtifactPaths(cfg) {
		path := filepath.Join(cfg.DistsDir(), filepath.FromSlash(rel))
		if _, err := os.Stat(path); err != nil {
			t.Errorf("missing index file %s: %v", rel, err)
		}
	}
}

func TestBuildEmitsEmptyAllIndex(t *testing.T) {
	tmpDir, err := os.MkdirTemp("", "debrepo-test-")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(tmpDir)

	cfg := testConfig(t, tmpDir, "amd64")
	ex := &fakeExtractor{packages: map[string]models.Package{
		"tool_1.0_amd64.deb": testPackage("tool", "1.0", "amd64"),
	}}

	if _, err := NewBuilder(cfg, ex).Build(context.Background(), artifactsFor("tool_1.0_amd64.deb")); err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(cfg.DistsDir(), "main", "binary-all", "Packages"))
	if err != nil {
		t.Fatalf("binary-all must exist even when empty: %v", err)
	}
	if len(data) != 0 {
		t.Errorf("empty architecture index should have no stanzas, got %q", data)
	}
}

func TestBuildDeterministic(t *testing.T) {
	tmpDir, err := os.MkdirTemp("", "debrepo-test-")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(tmpDir)

	cfg := testConfig(t, tmpDir, "amd64")
	ex := &fakeExtractor{packages: map[string]models.Package{
		"b_1.0_amd64.deb": testPackage("b", "1.0", "amd64"),
		"a_1.0_amd64.deb": testPackage("a", "1.0", "amd64"),
		"c_2.0_all.deb":   testPackage("c", "2.0", "all"),
	}}
	builder := NewBuilder(cfg, ex)

	if _, err := builder.Build(context.Background(),
		artifactsFor("a_1.0_amd64.deb", "b_1.0_amd64.deb", "c_2.0_all.deb")); err != nil {
		t.Fatalf("first Build failed: %v", err)
	}
	indexPath := filepath.Join(cfg.DistsDir(), "main", "binary-amd64", "Packages")
	first, err := os.ReadFile(indexPath)
	if err != nil {
		t.Fatalf("Failed to read index: %v", err)
	}

	// Second run sees the pool in a different order
	if _, err := builder.Build(context.Background(),
		artifactsFor("c_2.0_all.deb", "b_1.0_amd64.deb", "a_1.0_amd64.deb")); err != nil {
		t.Fatalf("second Build failed: %v", err)
	}
	second, err := os.ReadFile(indexPath)
	if err != nil {
		t.Fatalf("Failed to read index: %v", err)
	}

	if !bytes.Equal(first, second) {
		t.Errorf("index bytes depend on pool enumeration order:\n%s\nvs\n%s", first, second)
	}
}

func TestBuildRejectsUndeclaredArchitecture(t *testing.T) {
	tmpDir, err := os.MkdirTemp("", "debrepo-test-")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(tmpDir)

	cfg := testConfig(t, tmpDir, "amd64")
	ex := &fakeExtractor{packages: map[string]models.Package{
		"tool_1.0_mips.deb": testPackage("tool", "1.0", "mips"),
	}}

	_, err = NewBuilder(cfg, ex).Build(context.Background(), artifactsFor("tool_1.0_mips.deb"))
	if err == nil {
		t.Fatal("Build should reject an undeclared architecture")
	}
	if !models.IsKind(err, models.ErrMetadataExtract) {
		t.Errorf("error kind = %v, want metadata extraction", err)
	}
	if !strings.Contains(err.Error(), "tool_1.0_mips.deb") {
		t.Errorf("error %q does not name the artifact", err)
	}
}

func TestCompressedIndexesRoundTrip(t *testing.T) {
	tmpDir, err := os.MkdirTemp("", "debrepo-test-")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(tmpDir)

	cfg := testConfig(t, tmpDir, "amd64")
	ex := &fakeExtractor{packages: map[string]models.Package{
		"tool_1.0_amd64.deb": testPackage("tool", "1.0", "amd64"),
	}}
	if _, err := NewBuilder(cfg, ex).Build(context.Background(), artifactsFor("tool_1.0_amd64.deb")); err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	dir := filepath.Join(cfg.DistsDir(), "main", "binary-amd64")
	plain, err := os.ReadFile(filepath.Join(dir, "Packages"))
	if err != nil {
		t.Fatalf("Failed to read Packages: %v", err)
	}

	gzData, err := os.ReadFile(filepath.Join(dir, "Packages.gz"))
	if err != nil {
		t.Fatalf("Failed to read Packages.gz: %v", err)
	}
	unGz, err := utils.GzipDecompress(gzData)
	if err != nil {
		t.Fatalf("Failed to decompress Packages.gz: %v", err)
	}
	if !bytes.Equal(unGz, plain) {
		t.Error("Packages.gz does not decompress to Packages")
	}

	bz2Data, err := os.ReadFile(filepath.Join(dir, "Packages.bz2"))
	if err != nil {
		t.Fatalf("Failed to read Packages.bz2: %v", err)
	}
	unBz2, err := utils.Bzip2Decompress(bz2Data)
	if err != nil {
		t.Fatalf("Failed to decompress Packages.bz2: %v", err)
	}
	if !bytes.Equal(unBz2, plain) {
		t.Error("Packages.bz2 does not decompress to Packages")
	}
}
