// Package storage maintains the derived SQLite index over the JSONL
// snapshot. The index exists purely for queries: it is rebuilt from
// scratch whenever the snapshot's content hash no longer matches the
// one recorded at the last rebuild, and can always be deleted safely.
package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/mlanthology/anthology/internal/catalog"
	"github.com/mlanthology/anthology/internal/snapshot"
	_ "modernc.org/sqlite"
)

// DB wraps the SQLite index.
type DB struct {
	db *sql.DB
}

const selectPaperFields = `key, title, norm_title, pub_year, venue, venue_name,
	abstract, doi, arxiv_id, openreview_id,
	pdf_url, venue_url, code_url,
	authors_json, sources_json, flags_json`

// Open opens or creates the index at path.
func Open(path string) (*DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// SQLite doesn't support concurrent writes
	db.SetMaxOpenConns(1)

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return &DB{db: db}, nil
}

// Close closes the database connection.
func (d *DB) Close() error {
	return d.db.Close()
}

func createSchema(db *sql.DB) error {
	schema := `
		CREATE TABLE IF NOT EXISTS papers (
			key TEXT PRIMARY KEY,
			title TEXT NOT NULL,
			norm_title TEXT NOT NULL,
			pub_year INTEGER NOT NULL,
			venue TEXT NOT NULL,
			venue_name TEXT,
			abstract TEXT,
			doi TEXT,
			arxiv_id TEXT,
			openreview_id TEXT,
			pdf_url TEXT,
			venue_url TEXT,
			code_url TEXT,
			authors_json TEXT NOT NULL,
			sources_json TEXT NOT NULL,
			flags_json TEXT
		);

		CREATE INDEX IF NOT EXISTS idx_papers_doi ON papers(doi) WHERE doi IS NOT NULL AND doi != '';
		CREATE INDEX IF NOT EXISTS idx_papers_venue_year ON papers(venue, pub_year);

		CREATE TABLE IF NOT EXISTS authors (
			slug TEXT PRIMARY KEY,
			given TEXT,
			family TEXT NOT NULL,
			variants_json TEXT,
			papers_json TEXT
		);

		CREATE VIRTUAL TABLE IF NOT EXISTS papers_fts USING fts5(
			key,
			title,
			abstract,
			authors_text,
			pub_year
		);

		-- Snapshot hash recorded at the last rebuild, for staleness checks.
		CREATE TABLE IF NOT EXISTS meta (
			k TEXT PRIMARY KEY,
			v TEXT NOT NULL
		);
	`
	_, err := db.Exec(schema)
	return err
}

// Stale reports whether the index no longer reflects the snapshot
// under dir. A fresh index with no recorded hash is always stale.
func (d *DB) Stale(dir string) (bool, error) {
	current, err := snapshot.Hash(dir)
	if err != nil {
		return false, err
	}
	var recorded string
	err = d.db.QueryRow(`SELECT v FROM meta WHERE k = 'snapshot_hash'`).Scan(&recorded)
	if err == sql.ErrNoRows {
		return true, nil
	}
	if err != nil {
		return false, err
	}
	return recorded != current, nil
}

// Rebuild clears the index and repopulates it from the snapshot under
// dir, recording the snapshot hash it was built from. Returns the
// number of papers indexed.
func (d *DB) Rebuild(dir string) (int, error) {
	s, err := snapshot.Load(dir)
	if err != nil {
		return 0, fmt.Errorf("loading snapshot: %w", err)
	}
	hash, err := snapshot.Hash(dir)
	if err != nil {
		return 0, fmt.Errorf("hashing snapshot: %w", err)
	}

	tx, err := d.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("starting rebuild: %w", err)
	}
	defer tx.Rollback()

	for _, table := range []string{"papers", "authors", "papers_fts"} {
		if _, err := tx.Exec("DELETE FROM " + table); err != nil {
			return 0, fmt.Errorf("clearing %s: %w", table, err)
		}
	}

	paperStmt, err := tx.Prepare(`
		INSERT INTO papers (` + selectPaperFields + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return 0, fmt.Errorf("preparing paper insert: %w", err)
	}
	defer paperStmt.Close()

	ftsStmt, err := tx.Prepare(`
		INSERT INTO papers_fts (key, title, abstract, authors_text, pub_year)
		VALUES (?, ?, ?, ?, ?)
	`)
	if err != nil {
		return 0, fmt.Errorf("preparing fts insert: %w", err)
	}
	defer ftsStmt.Close()

	for _, p := range s.Papers {
		authorsJSON, err := json.Marshal(p.Authors)
		if err != nil {
			return 0, fmt.Errorf("marshaling authors for %s: %w", p.Key, err)
		}
		sourcesJSON, err := json.Marshal(p.Sources)
		if err != nil {
			return 0, fmt.Errorf("marshaling sources for %s: %w", p.Key, err)
		}
		var flagsJSON []byte
		if len(p.Flags) > 0 {
			flagsJSON, err = json.Marshal(p.Flags)
			if err != nil {
				return 0, fmt.Errorf("marshaling flags for %s: %w", p.Key, err)
			}
		}

		_, err = paperStmt.Exec(
			p.Key, p.Title, p.NormTitle, p.Year, p.Venue, nullable(p.VenueName),
			nullable(p.Abstract), nullable(p.DOI), nullable(p.ArXivID), nullable(p.OpenReviewID),
			nullable(p.PDFURL), nullable(p.VenueURL), nullable(p.CodeURL),
			string(authorsJSON), string(sourcesJSON), nullable(string(flagsJSON)),
		)
		if err != nil {
			return 0, fmt.Errorf("inserting paper %s: %w", p.Key, err)
		}

		_, err = ftsStmt.Exec(p.Key, p.Title, p.Abstract, authorsText(p.Authors), strconv.Itoa(p.Year))
		if err != nil {
			return 0, fmt.Errorf("indexing paper %s: %w", p.Key, err)
		}
	}

	authorStmt, err := tx.Prepare(`
		INSERT INTO authors (slug, given, family, variants_json, papers_json)
		VALUES (?, ?, ?, ?, ?)
	`)
	if err != nil {
		return 0, fmt.Errorf("preparing author insert: %w", err)
	}
	defer authorStmt.Close()

	for _, a := range s.Authors {
		variantsJSON, err := json.Marshal(a.Variants)
		if err != nil {
			return 0, fmt.Errorf("marshaling variants for %s: %w", a.Slug, err)
		}
		papersJSON, err := json.Marshal(a.Papers)
		if err != nil {
			return 0, fmt.Errorf("marshaling papers for %s: %w", a.Slug, err)
		}
		if _, err := authorStmt.Exec(a.Slug, nullable(a.Given), a.Family, string(variantsJSON), string(papersJSON)); err != nil {
			return 0, fmt.Errorf("inserting author %s: %w", a.Slug, err)
		}
	}

	if _, err := tx.Exec(`INSERT OR REPLACE INTO meta (k, v) VALUES ('snapshot_hash', ?)`, hash); err != nil {
		return 0, fmt.Errorf("recording snapshot hash: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing rebuild: %w", err)
	}
	return len(s.Papers), nil
}

func authorsText(credits []catalog.Credit) string {
	var names []string
	for _, c := range credits {
		names = append(names, c.Display())
	}
	return strings.Join(names, ", ")
}

// GetByKey retrieves one paper by citation key, or nil when absent.
func (d *DB) GetByKey(key string) (*catalog.Paper, error) {
	row := d.db.QueryRow(`SELECT `+selectPaperFields+` FROM papers WHERE key = ?`, key)
	return scanPaper(row)
}

// GetByDOI retrieves one paper by DOI, or nil when absent.
func (d *DB) GetByDOI(doi string) (*catalog.Paper, error) {
	row := d.db.QueryRow(`SELECT `+selectPaperFields+` FROM papers WHERE doi = ?`, doi)
	return scanPaper(row)
}

// GetAuthor retrieves one author by slug, or nil when absent.
func (d *DB) GetAuthor(slug string) (*catalog.Author, error) {
	var a catalog.Author
	var given, variantsJSON, papersJSON sql.NullString
	err := d.db.QueryRow(`
		SELECT slug, given, family, variants_json, papers_json
		FROM authors WHERE slug = ?
	`, slug).Scan(&a.Slug, &given, &a.Family, &variantsJSON, &papersJSON)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	a.Given = given.String
	if variantsJSON.Valid {
		if err := json.Unmarshal([]byte(variantsJSON.String), &a.Variants); err != nil {
			return nil, fmt.Errorf("parsing variants for %s: %w", slug, err)
		}
	}
	if papersJSON.Valid {
		if err := json.Unmarshal([]byte(papersJSON.String), &a.Papers); err != nil {
			return nil, fmt.Errorf("parsing papers for %s: %w", slug, err)
		}
	}
	return &a, nil
}

// ListFilters narrows List results. All set fields must match.
type ListFilters struct {
	Venue   string // exact venue slug
	Year    int    // exact publication year
	Author  string // FTS prefix match over credited names
	Keyword string // FTS over title and abstract
}

// List returns papers matching the filters, ordered by key.
func (d *DB) List(filters ListFilters, limit int) ([]catalog.Paper, error) {
	var ftsTerms []string
	var args []interface{}

	if filters.Keyword != "" {
		ftsTerms = append(ftsTerms, prepareFTSQuery(filters.Keyword))
	}
	if filters.Author != "" {
		ftsTerms = append(ftsTerms, "authors_text:"+prepareAuthorQuery(filters.Author))
	}

	var query string
	if len(ftsTerms) > 0 {
		query = `SELECT ` + selectPaperFields + `
			FROM papers
			WHERE key IN (SELECT key FROM papers_fts WHERE papers_fts MATCH ?)`
		args = append(args, strings.Join(ftsTerms, " AND "))
	} else {
		query = `SELECT ` + selectPaperFields + ` FROM papers WHERE 1=1`
	}

	if filters.Venue != "" {
		query += " AND venue = ?"
		args = append(args, filters.Venue)
	}
	if filters.Year != 0 {
		query += " AND pub_year = ?"
		args = append(args, filters.Year)
	}

	query += " ORDER BY key"
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := d.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing papers: %w", err)
	}
	defer rows.Close()

	return scanPapers(rows)
}

// Counts returns the number of indexed papers and authors.
func (d *DB) Counts() (papers, authors int, err error) {
	if err = d.db.QueryRow("SELECT COUNT(*) FROM papers").Scan(&papers); err != nil {
		return 0, 0, err
	}
	if err = d.db.QueryRow("SELECT COUNT(*) FROM authors").Scan(&authors); err != nil {
		return 0, 0, err
	}
	return papers, authors, nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanPaper(s scanner) (*catalog.Paper, error) {
	var p catalog.Paper
	var venueName, abstract, doi, arxivID, openreviewID sql.NullString
	var pdfURL, venueURL, codeURL sql.NullString
	var authorsJSON, sourcesJSON, flagsJSON sql.NullString

	err := s.Scan(
		&p.Key, &p.Title, &p.NormTitle, &p.Year, &p.Venue, &venueName,
		&abstract, &doi, &arxivID, &openreviewID,
		&pdfURL, &venueURL, &codeURL,
		&authorsJSON, &sourcesJSON, &flagsJSON,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	p.VenueName = venueName.String
	p.Abstract = abstract.String
	p.DOI = doi.String
	p.ArXivID = arxivID.String
	p.OpenReviewID = openreviewID.String
	p.PDFURL = pdfURL.String
	p.VenueURL = venueURL.String
	p.CodeURL = codeURL.String

	if authorsJSON.Valid {
		if err := json.Unmarshal([]byte(authorsJSON.String), &p.Authors); err != nil {
			return nil, fmt.Errorf("parsing authors JSON for %s: %w", p.Key, err)
		}
	}
	if sourcesJSON.Valid {
		if err := json.Unmarshal([]byte(sourcesJSON.String), &p.Sources); err != nil {
			return nil, fmt.Errorf("parsing sources JSON for %s: %w", p.Key, err)
		}
	}
	if flagsJSON.Valid && flagsJSON.String != "" {
		if err := json.Unmarshal([]byte(flagsJSON.String), &p.Flags); err != nil {
			return nil, fmt.Errorf("parsing flags JSON for %s: %w", p.Key, err)
		}
	}
	return &p, nil
}

func scanPapers(rows *sql.Rows) ([]catalog.Paper, error) {
	var papers []catalog.Paper
	for rows.Next() {
		p, err := scanPaper(rows)
		if err != nil {
			return nil, err
		}
		if p != nil {
			papers = append(papers, *p)
		}
	}
	return papers, rows.Err()
}

func nullable(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

// prepareFTSQuery escapes special characters for FTS5 queries.
func prepareFTSQuery(query string) string {
	query = strings.TrimSpace(query)
	if query == "" {
		return query
	}
	if strings.ContainsAny(query, "\"*+-:(){}[]^~") {
		query = strings.ReplaceAll(query, "\"", "\"\"")
		return "\"" + query + "\""
	}
	return query
}

// prepareAuthorQuery prepares an author name for FTS5 prefix matching,
// so "Tim" matches "Timothy".
func prepareAuthorQuery(author string) string {
	author = strings.TrimSpace(author)
	if author == "" {
		return author
	}
	var terms []string
	for _, part := range strings.Fields(author) {
		escaped := strings.ReplaceAll(part, "\"", "\"\"")
		terms = append(terms, "\""+escaped+"\"*")
	}
	return "(" + strings.Join(terms, " OR ") + ")"
}
