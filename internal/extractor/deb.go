package extractor

import (
	"archive/tar"
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/blakesmith/ar"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/ulikunitz/xz"

	"github.com/debrepo/debrepo/internal/models"
	"github.com/debrepo/debrepo/internal/utils"
)

// DebExtractor implements Extractor for .deb packages
type DebExtractor struct{}

// NewDebExtractor creates a new .deb metadata extractor
func NewDebExtractor() *DebExtractor {
	return &DebExtractor{}
}

// Extract parses a .deb file and returns its metadata
func (e *DebExtractor) Extract(ctx context.Context, path string) (*models.Package, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Calculate checksums
	checksums, err := utils.CalculateChecksums(path)
	if err != nil {
		return nil, fmt.Errorf("failed to calculate checksums: %w", err)
	}

	// Extract control file from the .deb
	control, err := extractControl(path)
	if err != nil {
		return nil, fmt.Errorf("failed to extract control: %w", err)
	}

	// Parse control file
	pkg, err := parseControl(control)
	if err != nil {
		return nil, fmt.Errorf("failed to parse control: %w", err)
	}

	if pkg.Name == "" {
		return nil, fmt.Errorf("control file has no Package field")
	}
	if pkg.Version == "" {
		return nil, fmt.Errorf("package %s has no Version field", pkg.Name)
	}
	if pkg.Architecture == "" {
		return nil, fmt.Errorf("package %s has no Architecture field", pkg.Name)
	}

	pkg.Size = checksums.Size
	pkg.MD5Sum = checksums.MD5
	pkg.SHA1Sum = checksums.SHA1
	pkg.SHA256Sum = checksums.SHA256

	return pkg, nil
}

// extractControl extracts the control file from a .deb package. The outer
// container is an ar archive holding debian-binary, control.tar* and
// data.tar*.
func extractControl(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	arReader := ar.NewReader(f)
	for {
		header, err := arReader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read ar header: %w", err)
		}

		// ar member names may carry a trailing slash
		name := strings.TrimSuffix(strings.TrimSpace(header.Name), "/")
		if !strings.HasPrefix(name, "control.tar") {
			continue
		}

		data := make([]byte, header.Size)
		if _, err := io.ReadFull(arReader, data); err != nil {
			return nil, err
		}

		return extractControlFromTar(data, name)
	}

	return nil, fmt.Errorf("control.tar not found in package")
}

// extractControlFromTar extracts the control file from control.tar*
func extractControlFromTar(data []byte, filename string) ([]byte, error) {
	var tarReader *tar.Reader

	// Decompress based on extension
	if strings.HasSuffix(filename, ".gz") {
		gr, err := gzip.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, err
		}
		defer gr.Close()
		tarReader = tar.NewReader(gr)
	} else if strings.HasSuffix(filename, ".xz") {
		xr, err := xz.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, err
		}
		tarReader = tar.NewReader(xr)
	} else if strings.HasSuffix(filename, ".zst") {
		zr, err := zstd.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, err
		}
		defer zr.Close()
		tarReader = tar.NewReader(zr)
	} else {
		tarReader = tar.NewReader(bytes.NewReader(data))
	}

	// Find and read control file
	for {
		header, err := tarReader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}

		if header.Name == "./control" || header.Name == "control" {
			return io.ReadAll(tarReader)
		}
	}

	return nil, fmt.Errorf("control file not found in control.tar")
}

// parseControl parses the Debian control file format
func parseControl(data []byte) (*models.Package, error) {
	pkg := &models.Package{
		Fields: make(map[string]string),
	}

	scanner := bufio.NewScanner(bytes.NewReader(data))
	var currentKey string
	var currentValue strings.Builder

	for scanner.Scan() {
		line := scanner.Text()

		// Handle continuation lines (start with space or tab)
		if len(line) > 0 && (line[0] == ' ' || line[0] == '\t') {
			currentValue.WriteString("\n")
			currentValue.WriteString(" " + strings.TrimSpace(line))
			continue
		}

		// Save previous key-value pair
		if currentKey != "" {
			setField(pkg, currentKey, currentValue.String())
		}
		currentKey = ""

		// Parse new key-value pair
		if strings.Contains(line, ":") {
			parts := strings.SplitN(line, ":", 2)
			currentKey = strings.TrimSpace(parts[0])
			currentValue.Reset()
			currentValue.WriteString(strings.TrimSpace(parts[1]))
		}
	}

	// Save last key-value pair
	if currentKey != "" {
		setField(pkg, currentKey, currentValue.String())
	}

	return pkg, scanner.Err()
}

// setField sets a field in the Package based on the control file key
func setField(pkg *models.Package, key, value string) {
	switch key {
	case "Package":
		pkg.Name = value
	case "Version":
		pkg.Version = value
	case "Architecture":
		pkg.Architecture = value
	case "Maintainer":
		pkg.Maintainer = value
	case "Section":
		pkg.Section = value
	case "Priority":
		pkg.Priority = value
	case "Homepage":
		pkg.Homepage = value
	case "Description":
		pkg.Description = value
	case "Depends":
		for _, dep := range strings.Split(value, ",") {
			dep = strings.TrimSpace(dep)
			if dep != "" {
				pkg.Depends = append(pkg.Depends, dep)
			}
		}
	default:
		pkg.Fields[key] = value
	}
}
