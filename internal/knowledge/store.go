// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package knowledge persists paper records grouped by topic. Papers and
// topics are nodes; paper_topics rows are the membership edges between
// them.
package knowledge

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/research-assistant/internal/logger"
	"github.com/pdiddy/research-assistant/pkg/types"
)

const dbFile = "research.db"

// ErrPaperNotFound is returned when no paper has the requested ID.
var ErrPaperNotFound = errors.New("paper not found")

// YearRange is an inclusive publication-year filter. A nil bound is open.
type YearRange struct {
	From *int
	To   *int
}

// Store manages the paper database.
type Store struct {
	db  *sql.DB
	log logger.Logger
}

// Open opens or creates the SQLite database at cfg.DataDir/research.db and
// creates the schema if it does not exist.
func Open(cfg types.StoreConfig, log logger.Logger) (*Store, error) {
	dir := cfg.DataDir
	if dir == "" {
		dir = "data"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dir, dbFile)
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if log == nil {
		log = logger.NewNop()
	}
	s := &Store{db: db, log: log}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS papers (
			paper_id TEXT PRIMARY KEY,
			title TEXT NOT NULL DEFAULT '',
			authors TEXT NOT NULL DEFAULT '[]',
			abstract TEXT NOT NULL DEFAULT '',
			published_date TEXT NOT NULL DEFAULT '',
			year INTEGER,
			url TEXT NOT NULL DEFAULT '',
			content TEXT,
			sections TEXT,
			figures_tables TEXT,
			updated_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_papers_year ON papers(year)`,
		`CREATE TABLE IF NOT EXISTS topics (
			name TEXT PRIMARY KEY
		)`,
		`CREATE TABLE IF NOT EXISTS paper_topics (
			paper_id TEXT NOT NULL REFERENCES papers(paper_id) ON DELETE CASCADE,
			topic TEXT NOT NULL REFERENCES topics(name) ON DELETE CASCADE,
			PRIMARY KEY (paper_id, topic)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_paper_topics_topic ON paper_topics(topic)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// StorePaper creates or updates paper and links it to topic. Scalar fields
// take the incoming values. Content, sections and figure/table references
// are replaced only when the incoming paper carries content. The year is
// derived from PublishedDate when a date is present.
func (s *Store) StorePaper(ctx context.Context, paper *types.Paper, topic string) error {
	if paper == nil || strings.TrimSpace(paper.PaperID) == "" {
		return fmt.Errorf("paper has no paper_id")
	}

	year := paper.Year
	if paper.PublishedDate != "" {
		year = types.DeriveYear(paper.PublishedDate)
	}

	authorsJSON, err := json.Marshal(nonNil(paper.Authors))
	if err != nil {
		return fmt.Errorf("marshaling authors: %w", err)
	}
	var sectionsJSON, figuresJSON sql.NullString
	if paper.HasContent() {
		if sectionsJSON, err = nullJSON(paper.Sections); err != nil {
			return fmt.Errorf("marshaling sections: %w", err)
		}
		if figuresJSON, err = nullJSON(paper.FiguresTables); err != nil {
			return fmt.Errorf("marshaling figures: %w", err)
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO papers (paper_id, title, authors, abstract, published_date, year, url,
			content, sections, figures_tables, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(paper_id) DO UPDATE SET
			title=excluded.title, authors=excluded.authors, abstract=excluded.abstract,
			published_date=excluded.published_date, year=excluded.year, url=excluded.url,
			content=COALESCE(excluded.content, papers.content),
			sections=CASE WHEN excluded.content IS NULL THEN papers.sections ELSE excluded.sections END,
			figures_tables=CASE WHEN excluded.content IS NULL THEN papers.figures_tables ELSE excluded.figures_tables END,
			updated_at=excluded.updated_at`,
		paper.PaperID, paper.Title, string(authorsJSON), paper.Abstract, paper.PublishedDate,
		nullInt(year), paper.URL, nullString(paper.Content), sectionsJSON, figuresJSON,
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("upserting paper %s: %w", paper.PaperID, err)
	}

	if topic = strings.TrimSpace(topic); topic != "" {
		if _, err := tx.ExecContext(ctx, `INSERT OR IGNORE INTO topics (name) VALUES (?)`, topic); err != nil {
			return fmt.Errorf("creating topic %q: %w", topic, err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO paper_topics (paper_id, topic) VALUES (?, ?)`, paper.PaperID, topic,
		); err != nil {
			return fmt.Errorf("linking paper %s to %q: %w", paper.PaperID, topic, err)
		}
	}

	return tx.Commit()
}

// StorePapers stores each paper under topic and returns how many were
// stored. Individual failures are logged and skipped.
func (s *Store) StorePapers(ctx context.Context, papers []*types.Paper, topic string) int {
	stored := 0
	for _, p := range papers {
		if err := s.StorePaper(ctx, p, topic); err != nil {
			s.log.Warn("storing paper failed", "paper_id", p.PaperID, "title", p.Title, "error", err)
			continue
		}
		stored++
	}
	s.log.Info("papers stored", "topic", topic, "stored", stored, "total", len(papers))
	return stored
}

const paperColumns = `p.paper_id, p.title, p.authors, p.abstract, p.published_date, p.year, p.url,
	p.content, p.sections, p.figures_tables`

// PapersByTopic returns the papers linked to topic, newest first and then
// by title. Papers without a year sort last and never match a bounded
// range.
func (s *Store) PapersByTopic(ctx context.Context, topic string, years YearRange) ([]*types.Paper, error) {
	var qb strings.Builder
	args := []any{topic}

	qb.WriteString(`SELECT ` + paperColumns + `
		FROM papers p JOIN paper_topics pt ON pt.paper_id = p.paper_id
		WHERE pt.topic = ?`)
	if years.From != nil {
		qb.WriteString(` AND p.year >= ?`)
		args = append(args, *years.From)
	}
	if years.To != nil {
		qb.WriteString(` AND p.year <= ?`)
		args = append(args, *years.To)
	}
	qb.WriteString(` ORDER BY COALESCE(p.year, 0) DESC, p.title ASC`)

	return s.queryPapers(ctx, qb.String(), args...)
}

// PapersLastNYears returns topic papers published in or after the current
// year minus n.
func (s *Store) PapersLastNYears(ctx context.Context, topic string, n int) ([]*types.Paper, error) {
	from := time.Now().Year() - n
	return s.PapersByTopic(ctx, topic, YearRange{From: &from})
}

// PaperByID returns one paper with its topics.
func (s *Store) PaperByID(ctx context.Context, paperID string) (*types.Paper, error) {
	papers, err := s.queryPapers(ctx,
		`SELECT `+paperColumns+` FROM papers p WHERE p.paper_id = ?`, paperID)
	if err != nil {
		return nil, err
	}
	if len(papers) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrPaperNotFound, paperID)
	}
	return papers[0], nil
}

// PapersByIDs returns the papers with the given IDs in the order asked,
// skipping unknown IDs.
func (s *Store) PapersByIDs(ctx context.Context, ids []string) ([]*types.Paper, error) {
	var papers []*types.Paper
	for _, id := range ids {
		p, err := s.PaperByID(ctx, id)
		if errors.Is(err, ErrPaperNotFound) {
			s.log.Warn("paper not found", "paper_id", id)
			continue
		}
		if err != nil {
			return nil, err
		}
		papers = append(papers, p)
	}
	return papers, nil
}

// Topics returns all topic names in alphabetical order.
func (s *Store) Topics(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name FROM topics ORDER BY name ASC`)
	if err != nil {
		return nil, fmt.Errorf("querying topics: %w", err)
	}
	defer rows.Close()

	topics := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scanning topic: %w", err)
		}
		topics = append(topics, name)
	}
	return topics, rows.Err()
}

// ClearTopic deletes every paper linked to topic together with all of
// that paper's topic links. The topic itself is kept. It returns the
// number of papers deleted.
func (s *Store) ClearTopic(ctx context.Context, topic string) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	rows, err := tx.QueryContext(ctx, `SELECT paper_id FROM paper_topics WHERE topic = ?`, topic)
	if err != nil {
		return 0, fmt.Errorf("querying topic papers: %w", err)
	}
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return 0, fmt.Errorf("scanning paper id: %w", err)
		}
		ids = append(ids, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, fmt.Errorf("iterating topic papers: %w", err)
	}

	for _, id := range ids {
		if _, err := tx.ExecContext(ctx, `DELETE FROM paper_topics WHERE paper_id = ?`, id); err != nil {
			return 0, fmt.Errorf("deleting links of %s: %w", id, err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM papers WHERE paper_id = ?`, id); err != nil {
			return 0, fmt.Errorf("deleting paper %s: %w", id, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing: %w", err)
	}
	return len(ids), nil
}

func (s *Store) queryPapers(ctx context.Context, query string, args ...any) ([]*types.Paper, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying papers: %w", err)
	}
	defer rows.Close()

	papers := []*types.Paper{}
	for rows.Next() {
		p, err := scanPaper(rows)
		if err != nil {
			return nil, err
		}
		papers = append(papers, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating papers: %w", err)
	}

	for _, p := range papers {
		if p.Topics, err = s.topicsOf(ctx, p.PaperID); err != nil {
			return nil, err
		}
	}
	return papers, nil
}

func (s *Store) topicsOf(ctx context.Context, paperID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT topic FROM paper_topics WHERE paper_id = ? ORDER BY topic`, paperID)
	if err != nil {
		return nil, fmt.Errorf("querying topics of %s: %w", paperID, err)
	}
	defer rows.Close()

	var topics []string
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, fmt.Errorf("scanning topic: %w", err)
		}
		topics = append(topics, t)
	}
	return topics, rows.Err()
}

func scanPaper(rows *sql.Rows) (*types.Paper, error) {
	var (
		p                          types.Paper
		authors                    string
		year                       sql.NullInt64
		content, sections, figures sql.NullString
	)
	if err := rows.Scan(&p.PaperID, &p.Title, &authors, &p.Abstract, &p.PublishedDate,
		&year, &p.URL, &content, &sections, &figures); err != nil {
		return nil, fmt.Errorf("scanning paper: %w", err)
	}

	if err := json.Unmarshal([]byte(authors), &p.Authors); err != nil {
		return nil, fmt.Errorf("decoding authors of %s: %w", p.PaperID, err)
	}
	if year.Valid {
		p.Year = types.IntPtr(int(year.Int64))
	}
	if content.Valid {
		p.Content = &content.String
	}
	if sections.Valid {
		if err := json.Unmarshal([]byte(sections.String), &p.Sections); err != nil {
			return nil, fmt.Errorf("decoding sections of %s: %w", p.PaperID, err)
		}
	}
	if figures.Valid {
		if err := json.Unmarshal([]byte(figures.String), &p.FiguresTables); err != nil {
			return nil, fmt.Errorf("decoding figures of %s: %w", p.PaperID, err)
		}
	}
	return &p, nil
}

func nullJSON(v any) (sql.NullString, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return sql.NullString{}, err
	}
	if string(data) == "null" {
		return sql.NullString{}, nil
	}
	return sql.NullString{String: string(data), Valid: true}, nil
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func nullInt(v *int) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
