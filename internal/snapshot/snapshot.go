// Package snapshot persists the catalog as JSONL files under the
// repository's .anthology directory. The JSONL files are the source of
// truth; the SQLite query index is derived from them and rebuilt
// whenever their content hash changes.
package snapshot

import (
	"bufio"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/mlanthology/anthology/internal/catalog"
)

const (
	PapersFile  = "papers.jsonl"
	AuthorsFile = "authors.jsonl"

	// MaxLineCapacity bounds one JSONL line (1MB). Abstracts are the
	// largest field and stay well under this.
	MaxLineCapacity = 1024 * 1024
)

// Snapshot is one persisted catalog state.
type Snapshot struct {
	Papers  []*catalog.Paper
	Authors []*catalog.Author
}

// PapersPath returns the papers file path under dir.
func PapersPath(dir string) string { return filepath.Join(dir, PapersFile) }

// AuthorsPath returns the authors file path under dir.
func AuthorsPath(dir string) string { return filepath.Join(dir, AuthorsFile) }

// Load reads the snapshot under dir. A missing directory or missing
// files yield an empty snapshot: the first run of a fresh repository
// starts from nothing.
func Load(dir string) (*Snapshot, error) {
	s := &Snapshot{}
	if err := readJSONL(PapersPath(dir), func(line []byte, n int) error {
		var p catalog.Paper
		if err := json.Unmarshal(line, &p); err != nil {
			return fmt.Errorf("parsing paper on line %d: %w", n, err)
		}
		s.Papers = append(s.Papers, &p)
		return nil
	}); err != nil {
		return nil, err
	}
	if err := readJSONL(AuthorsPath(dir), func(line []byte, n int) error {
		var a catalog.Author
		if err := json.Unmarshal(line, &a); err != nil {
			return fmt.Errorf("parsing author on line %d: %w", n, err)
		}
		s.Authors = append(s.Authors, &a)
		return nil
	}); err != nil {
		return nil, err
	}
	return s, nil
}

// Write persists the catalog under dir, one entity per line, sorted by
// key and slug so snapshots diff cleanly under version control. Both
// files are written atomically via temp file and rename.
func Write(dir string, c *catalog.Catalog) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating snapshot dir: %w", err)
	}

	papers := make([]any, 0, len(c.Papers))
	for _, key := range c.PaperKeys() {
		papers = append(papers, c.Papers[key])
	}
	if err := writeJSONL(PapersPath(dir), papers); err != nil {
		return fmt.Errorf("writing papers: %w", err)
	}

	authors := make([]any, 0, len(c.Authors))
	for _, slug := range c.AuthorSlugs() {
		authors = append(authors, c.Authors[slug])
	}
	if err := writeJSONL(AuthorsPath(dir), authors); err != nil {
		return fmt.Errorf("writing authors: %w", err)
	}
	return nil
}

// Hash computes a combined SHA256 over both snapshot files, used to
// detect when the derived SQLite index is stale. Missing files hash as
// empty content.
func Hash(dir string) (string, error) {
	h := sha256.New()
	for _, path := range []string{PapersPath(dir), AuthorsPath(dir)} {
		f, err := os.Open(path)
		if os.IsNotExist(err) {
			continue
		}
		if err != nil {
			return "", fmt.Errorf("opening %s: %w", path, err)
		}
		_, err = io.Copy(h, f)
		f.Close()
		if err != nil {
			return "", fmt.Errorf("hashing %s: %w", path, err)
		}
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

func readJSONL(path string, fn func(line []byte, n int) error) error {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	buf := make([]byte, MaxLineCapacity)
	scanner.Buffer(buf, MaxLineCapacity)

	n := 0
	for scanner.Scan() {
		n++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		if err := fn(line, n); err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}
	return nil
}

func writeJSONL(path string, records []any) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".tmp-*.jsonl")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmp.Name()

	success := false
	defer func() {
		if !success {
			os.Remove(tmpPath)
		}
	}()

	w := bufio.NewWriter(tmp)
	enc := json.NewEncoder(w)
	for i, r := range records {
		if err := enc.Encode(r); err != nil {
			tmp.Close()
			return fmt.Errorf("encoding record %d: %w", i, err)
		}
	}
	if err := w.Flush(); err != nil {
		tmp.Close()
		return fmt.Errorf("flushing temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("syncing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("renaming temp file: %w", err)
	}
	success = true
	return nil
}
