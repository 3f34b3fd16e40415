package batch

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/veridoc-io/veridoc/internal/classify"
)

// Entry is one row of a batch manifest: a document file plus the claim
// it should be verified against.
type Entry struct {
	File        string
	Kind        classify.Kind
	Name        string
	RollNumber  string
	Skill       string
	Description string
}

// ReadManifest parses a CSV manifest. The first row is a header naming the
// columns; file, kind and name are required, roll_no, skill and description
// are optional. Column order does not matter.
func ReadManifest(r io.Reader) ([]Entry, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("manifest is empty")
	}
	if err != nil {
		return nil, fmt.Errorf("read manifest header: %w", err)
	}

	columns := make(map[string]int, len(header))
	for i, name := range header {
		columns[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, required := range []string{"file", "kind", "name"} {
		if _, ok := columns[required]; !ok {
			return nil, fmt.Errorf("manifest header missing required column %q", required)
		}
	}

	field := func(record []string, name string) string {
		idx, ok := columns[name]
		if !ok || idx >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[idx])
	}

	var entries []Entry
	for row := 2; ; row++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("manifest row %d: %w", row, err)
		}

		file := field(record, "file")
		if file == "" {
			return nil, fmt.Errorf("manifest row %d: file is required", row)
		}

		kind, err := classify.ParseKind(field(record, "kind"))
		if err != nil {
			return nil, fmt.Errorf("manifest row %d: %w", row, err)
		}

		name := field(record, "name")
		if name == "" {
			return nil, fmt.Errorf("manifest row %d: name is required", row)
		}

		entries = append(entries, Entry{
			File:        file,
			Kind:        kind,
			Name:        name,
			RollNumber:  field(record, "roll_no"),
			Skill:       field(record, "skill"),
			Description: field(record, "description"),
		})
	}

	if len(entries) == 0 {
		return nil, fmt.Errorf("manifest has no entries")
	}

	return entries, nil
}

// LoadManifest reads a manifest from a file. File paths inside the manifest
// are used as written, so relative paths resolve against the working
// directory, not the manifest location.
func LoadManifest(path string) ([]Entry, error) {
	f, err := os.Open(path) //nolint:gosec // G304: manifest path comes from the CLI user
	if err != nil {
		return nil, fmt.Errorf("open manifest: %w", err)
	}
	defer func() { _ = f.Close() }()

	entries, err := ReadManifest(f)
	if err != nil {
		return nil, fmt.Errorf("parse manifest %s: %w", path, err)
	}
	return entries, nil
}
