package index

import (
	"bytes"
	"fmt"
	"sort"
	"strings"

	version "github.com/knqyf263/go-deb-version"

	"github.com/debrepo/debrepo/internal/models"
)

// SortPackages orders packages by name, then Debian version, then pool
// path. The order is a property of the index itself and never depends on
// how the pool was enumerated.
func SortPackages(packages []models.Package) {
	sort.SliceStable(packages, func(i, j int) bool {
		return lessPackage(&packages[i], &packages[j])
	})
}

func lessPackage(a, b *models.Package) bool {
	if a.Name != b.Name {
		return a.Name < b.Name
	}
	if a.Version != b.Version {
		va, errA := version.NewVersion(a.Version)
		vb, errB := version.NewVersion(b.Version)
		if errA == nil && errB == nil && !va.Equal(vb) {
			return va.LessThan(vb)
		}
		// Unparsable versions still need a stable order
		return a.Version < b.Version
	}
	return a.Filename < b.Filename
}

// PackageIdentity is the name:version:architecture triple that identifies
// a package within an index
func PackageIdentity(pkg *models.Package) string {
	return fmt.Sprintf("%s:%s:%s", pkg.Name, pkg.Version, pkg.Architecture)
}

// DuplicateIdentities returns the identities that more than one pool file
// claims, in sorted order. Duplicates make an index ambiguous: the
// resolver picks one stanza and silently shadows the rest.
func DuplicateIdentities(packages []models.Package) []string {
	seen := make(map[string]int)
	for i := range packages {
		seen[PackageIdentity(&packages[i])]++
	}

	var duplicates []string
	for identity, count := range seen {
		if count > 1 {
			duplicates = append(duplicates, identity)
		}
	}
	sort.Strings(duplicates)
	return duplicates
}

// RenderPackages serializes an index for one architecture. Stanzas are
// separated by a single blank line; field order is fixed so repeated runs
// produce identical bytes.
func RenderPackages(packages []models.Package) []byte {
	SortPackages(packages)

	var buf bytes.Buffer
	for i := range packages {
		renderStanza(&buf, &packages[i])
		buf.WriteString("\n")
	}

	return buf.Bytes()
}

func renderStanza(buf *bytes.Buffer, pkg *models.Package) {
	fmt.Fprintf(buf, "Package: %s\n", pkg.Name)
	fmt.Fprintf(buf, "Version: %s\n", pkg.Version)
	fmt.Fprintf(buf, "Architecture: %s\n", pkg.Architecture)

	if pkg.Maintainer != "" {
		fmt.Fprintf(buf, "Maintainer: %s\n", pkg.Maintainer)
	}
	if len(pkg.Depends) > 0 {
		fmt.Fprintf(buf, "Depends: %s\n", strings.Join(pkg.Depends, ", "))
	}
	if pkg.Section != "" {
		fmt.Fprintf(buf, "Section: %s\n", pkg.Section)
	}
	if pkg.Priority != "" {
		fmt.Fprintf(buf, "Priority: %s\n", pkg.Priority)
	}
	if pkg.Homepage != "" {
		fmt.Fprintf(buf, "Homepage: %s\n", pkg.Homepage)
	}

	// Remaining control fields, in sorted order
	keys := make([]string, 0, len(pkg.Fields))
	for key := range pkg.Fields {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		fmt.Fprintf(buf, "%s: %s\n", key, pkg.Fields[key])
	}

	if pkg.Description != "" {
		fmt.Fprintf(buf, "Description: %s\n", pkg.Description)
	}

	fmt.Fprintf(buf, "Filename: %s\n", pkg.Filename)
	fmt.Fprintf(buf, "Size: %d\n", pkg.Size)
	fmt.Fprintf(buf, "MD5sum: %s\n", pkg.MD5Sum)
	fmt.Fprintf(buf, "SHA1: %s\n", pkg.SHA1Sum)
	fmt.Fprintf(buf, "SHA256: %s\n", pkg.SHA256Sum)
}
