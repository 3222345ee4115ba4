// scraper/archive.go
package scraper

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"path"
	"strings"
)

// ExtractCSVFromZip pulls one CSV member out of a monthly archive bundle.
// It prefers the member whose base name matches wantName exactly; when no
// member matches (bundles occasionally rename members mid-month) it falls
// back to the first .csv entry.
func ExtractCSVFromZip(zipBytes []byte, wantName string) ([]byte, error) {
	reader, err := zip.NewReader(bytes.NewReader(zipBytes), int64(len(zipBytes)))
	if err != nil {
		return nil, fmt.Errorf("failed to open zip archive: %w", err)
	}

	var firstCSV *zip.File
	for _, f := range reader.File {
		base := path.Base(f.Name)
		if base == wantName {
			return readZipMember(f)
		}
		if firstCSV == nil && strings.HasSuffix(strings.ToLower(base), ".csv") {
			firstCSV = f
		}
	}

	if firstCSV != nil {
		return readZipMember(firstCSV)
	}
	return nil, fmt.Errorf("no csv member found in archive (wanted %s)", wantName)
}

func readZipMember(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open archive member %s: %w", f.Name, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("failed to read archive member %s: %w", f.Name, err)
	}
	return data, nil
}
