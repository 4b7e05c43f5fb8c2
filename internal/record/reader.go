package record

import (
	"bufio"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// MaxLineCapacity is the maximum buffer size for reading JSONL lines
// (1MB per line). Abstract-heavy records stay well under this.
const MaxLineCapacity = 1024 * 1024

// File is one adapter output file found on disk.
type File struct {
	Path   string
	Source string
}

// DiscoverFiles finds adapter output files under dataDir. The expected
// layout is data/<source>/*.jsonl or *.jsonl.gz; results are sorted by
// path so downstream processing order is deterministic.
func DiscoverFiles(dataDir string) ([]File, error) {
	entries, err := os.ReadDir(dataDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading data directory: %w", err)
	}

	var files []File
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		source := entry.Name()
		matches, err := filepath.Glob(filepath.Join(dataDir, source, "*.jsonl*"))
		if err != nil {
			return nil, fmt.Errorf("globbing %s: %w", source, err)
		}
		for _, m := range matches {
			if strings.HasSuffix(m, ".jsonl") || strings.HasSuffix(m, ".jsonl.gz") {
				files = append(files, File{Path: m, Source: source})
			}
		}
	}

	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })
	return files, nil
}

// ReadFile parses every line of an adapter output file. Per-line parse
// failures are accumulated, never fatal: one malformed record must not
// sink the rest of the file.
func ReadFile(f File) ([]Raw, []error) {
	fh, err := os.Open(f.Path)
	if err != nil {
		return nil, []error{fmt.Errorf("opening %s: %w", f.Path, err)}
	}
	defer fh.Close()

	var r io.Reader = fh
	if strings.HasSuffix(f.Path, ".gz") {
		gz, err := gzip.NewReader(fh)
		if err != nil {
			return nil, []error{fmt.Errorf("opening gzip %s: %w", f.Path, err)}
		}
		defer gz.Close()
		r = gz
	}

	return ReadAll(r, f.Source)
}

// ReadAll parses JSONL records from r, one source-native entry per line.
func ReadAll(r io.Reader, source string) ([]Raw, []error) {
	var (
		records []Raw
		errs    []error
	)

	scanner := bufio.NewScanner(r)
	buf := make([]byte, MaxLineCapacity)
	scanner.Buffer(buf, MaxLineCapacity)

	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		raw, err := Parse(source, line)
		if err != nil {
			errs = append(errs, fmt.Errorf("line %d: %w", lineNum, err))
			continue
		}
		records = append(records, raw)
	}

	if err := scanner.Err(); err != nil {
		errs = append(errs, fmt.Errorf("reading input: %w", err))
	}

	return records, errs
}
