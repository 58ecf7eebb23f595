// Package store persists collector documents, cleaned records, correlation
// results, and settings in a local SQLite database.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	_ "github.com/mattn/go-sqlite3" // sqlite3 driver
	"github.com/shadowhorn/shadowhorn/profile"
)

const schema = `
CREATE TABLE IF NOT EXISTS raw_documents (
	identifier   TEXT NOT NULL,
	platform     TEXT NOT NULL,
	collected_at TIMESTAMP NOT NULL,
	data         TEXT NOT NULL,
	PRIMARY KEY (identifier, platform)
);

CREATE TABLE IF NOT EXISTS cleaned_records (
	identifier TEXT NOT NULL,
	platform   TEXT NOT NULL,
	cleaned_at TIMESTAMP NOT NULL,
	backend    TEXT NOT NULL,
	data       TEXT NOT NULL,
	PRIMARY KEY (identifier, platform)
);

CREATE TABLE IF NOT EXISTS correlations (
	identifier   TEXT NOT NULL,
	mode         TEXT NOT NULL,
	prompt       TEXT NOT NULL DEFAULT '',
	collected_at TIMESTAMP NOT NULL,
	result       TEXT NOT NULL,
	PRIMARY KEY (identifier, mode)
);

CREATE TABLE IF NOT EXISTS settings (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
);
`

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// Store is a SQLite-backed document store.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

// Open opens (creating if needed) the database at path and applies the
// schema. WAL mode keeps concurrent readers from blocking the writer.
func Open(path string, opts ...Option) (*Store, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("open database %s: %w", path, err)
	}
	// sqlite allows one writer at a time; a single connection avoids
	// SQLITE_BUSY churn under concurrent collection.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close() //nolint:errcheck // already failing
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	s := &Store{db: db, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// SaveRawDocument upserts one collector document, replacing any prior
// document for the same (identifier, platform) pair.
func (s *Store) SaveRawDocument(ctx context.Context, doc profile.RawDocument) error {
	data, err := json.Marshal(doc.Data)
	if err != nil {
		return fmt.Errorf("encode raw document: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO raw_documents (identifier, platform, collected_at, data)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (identifier, platform) DO UPDATE SET
			collected_at = excluded.collected_at,
			data = excluded.data`,
		doc.Identifier, doc.Platform, doc.CollectedAt.UTC(), string(data))
	if err != nil {
		return fmt.Errorf("save raw document %s/%s: %w", doc.Identifier, doc.Platform, err)
	}
	return nil
}

// RawDocuments returns every stored collector document for an identifier.
func (s *Store) RawDocuments(ctx context.Context, identifier string) ([]profile.RawDocument, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT identifier, platform, collected_at, data
		FROM raw_documents WHERE identifier = ? ORDER BY platform`,
		identifier)
	if err != nil {
		return nil, fmt.Errorf("query raw documents for %s: %w", identifier, err)
	}
	defer rows.Close() //nolint:errcheck // read-only rows

	var docs []profile.RawDocument
	for rows.Next() {
		var doc profile.RawDocument
		var data string
		if err := rows.Scan(&doc.Identifier, &doc.Platform, &doc.CollectedAt, &data); err != nil {
			return nil, fmt.Errorf("scan raw document: %w", err)
		}
		if err := json.Unmarshal([]byte(data), &doc.Data); err != nil {
			s.logger.WarnContext(ctx, "skipping corrupt raw document",
				"identifier", doc.Identifier, "platform", doc.Platform, "error", err)
			continue
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

// RawDocument returns one stored document or profile.ErrNotFound.
func (s *Store) RawDocument(ctx context.Context, identifier, platform string) (profile.RawDocument, error) {
	var doc profile.RawDocument
	var data string
	err := s.db.QueryRowContext(ctx, `
		SELECT identifier, platform, collected_at, data
		FROM raw_documents WHERE identifier = ? AND platform = ?`,
		identifier, platform).Scan(&doc.Identifier, &doc.Platform, &doc.CollectedAt, &data)
	if errors.Is(err, sql.ErrNoRows) {
		return doc, fmt.Errorf("%w: raw document %s/%s", profile.ErrNotFound, identifier, platform)
	}
	if err != nil {
		return doc, fmt.Errorf("load raw document %s/%s: %w", identifier, platform, err)
	}
	if err := json.Unmarshal([]byte(data), &doc.Data); err != nil {
		return doc, fmt.Errorf("decode raw document %s/%s: %w", identifier, platform, err)
	}
	return doc, nil
}

// SaveCleanedRecord upserts one cleaned record.
func (s *Store) SaveCleanedRecord(ctx context.Context, rec profile.CleanedRecord) error {
	data, err := json.Marshal(rec.Data)
	if err != nil {
		return fmt.Errorf("encode cleaned record: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO cleaned_records (identifier, platform, cleaned_at, backend, data)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (identifier, platform) DO UPDATE SET
			cleaned_at = excluded.cleaned_at,
			backend = excluded.backend,
			data = excluded.data`,
		rec.Identifier, rec.Platform, rec.CleanedAt.UTC(), rec.Backend, string(data))
	if err != nil {
		return fmt.Errorf("save cleaned record %s/%s: %w", rec.Identifier, rec.Platform, err)
	}
	return nil
}

// CleanedRecords returns every cleaned record for an identifier.
func (s *Store) CleanedRecords(ctx context.Context, identifier string) ([]profile.CleanedRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT identifier, platform, cleaned_at, backend, data
		FROM cleaned_records WHERE identifier = ? ORDER BY platform`,
		identifier)
	if err != nil {
		return nil, fmt.Errorf("query cleaned records for %s: %w", identifier, err)
	}
	defer rows.Close() //nolint:errcheck // read-only rows

	var recs []profile.CleanedRecord
	for rows.Next() {
		var rec profile.CleanedRecord
		var data string
		if err := rows.Scan(&rec.Identifier, &rec.Platform, &rec.CleanedAt, &rec.Backend, &data); err != nil {
			return nil, fmt.Errorf("scan cleaned record: %w", err)
		}
		if err := json.Unmarshal([]byte(data), &rec.Data); err != nil {
			s.logger.WarnContext(ctx, "skipping corrupt cleaned record",
				"identifier", rec.Identifier, "platform", rec.Platform, "error", err)
			continue
		}
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}

// SaveCorrelation upserts the correlation result for (identifier, mode).
func (s *Store) SaveCorrelation(ctx context.Context, doc profile.CorrelationDocument) error {
	result, err := json.Marshal(doc.Result)
	if err != nil {
		return fmt.Errorf("encode correlation result: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO correlations (identifier, mode, prompt, collected_at, result)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (identifier, mode) DO UPDATE SET
			prompt = excluded.prompt,
			collected_at = excluded.collected_at,
			result = excluded.result`,
		doc.Identifier, doc.Mode, doc.Prompt, doc.CollectedAt.UTC(), string(result))
	if err != nil {
		return fmt.Errorf("save correlation %s/%s: %w", doc.Identifier, doc.Mode, err)
	}
	return nil
}

// Correlation returns the stored result for (identifier, mode) or
// profile.ErrNotFound.
func (s *Store) Correlation(ctx context.Context, identifier, mode string) (profile.CorrelationDocument, error) {
	var doc profile.CorrelationDocument
	var result string
	err := s.db.QueryRowContext(ctx, `
		SELECT identifier, mode, prompt, collected_at, result
		FROM correlations WHERE identifier = ? AND mode = ?`,
		identifier, mode).Scan(&doc.Identifier, &doc.Mode, &doc.Prompt, &doc.CollectedAt, &result)
	if errors.Is(err, sql.ErrNoRows) {
		return doc, fmt.Errorf("%w: correlation %s/%s", profile.ErrNotFound, identifier, mode)
	}
	if err != nil {
		return doc, fmt.Errorf("load correlation %s/%s: %w", identifier, mode, err)
	}
	if err := json.Unmarshal([]byte(result), &doc.Result); err != nil {
		return doc, fmt.Errorf("decode correlation %s/%s: %w", identifier, mode, err)
	}
	return doc, nil
}

// LatestCorrelation returns the most recently stored correlation for an
// identifier across modes, or profile.ErrNotFound.
func (s *Store) LatestCorrelation(ctx context.Context, identifier string) (profile.CorrelationDocument, error) {
	var doc profile.CorrelationDocument
	var result string
	err := s.db.QueryRowContext(ctx, `
		SELECT identifier, mode, prompt, collected_at, result
		FROM correlations WHERE identifier = ?
		ORDER BY collected_at DESC LIMIT 1`,
		identifier).Scan(&doc.Identifier, &doc.Mode, &doc.Prompt, &doc.CollectedAt, &result)
	if errors.Is(err, sql.ErrNoRows) {
		return doc, fmt.Errorf("%w: correlation for %s", profile.ErrNotFound, identifier)
	}
	if err != nil {
		return doc, fmt.Errorf("load latest correlation for %s: %w", identifier, err)
	}
	if err := json.Unmarshal([]byte(result), &doc.Result); err != nil {
		return doc, fmt.Errorf("decode correlation for %s: %w", identifier, err)
	}
	return doc, nil
}

// Identifiers lists every identifier with stored raw documents.
func (s *Store) Identifiers(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT DISTINCT identifier FROM raw_documents ORDER BY identifier`)
	if err != nil {
		return nil, fmt.Errorf("list identifiers: %w", err)
	}
	defer rows.Close() //nolint:errcheck // read-only rows

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan identifier: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// DeleteIdentifier removes every document tied to an identifier.
func (s *Store) DeleteIdentifier(ctx context.Context, identifier string) error {
	for _, table := range []string{"raw_documents", "cleaned_records", "correlations"} {
		if _, err := s.db.ExecContext(ctx,
			"DELETE FROM "+table+" WHERE identifier = ?", identifier); err != nil {
			return fmt.Errorf("delete %s for %s: %w", table, identifier, err)
		}
	}
	return nil
}

// Setting returns a stored setting value or profile.ErrNotFound.
func (s *Store) Setting(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx,
		"SELECT value FROM settings WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("%w: setting %s", profile.ErrNotFound, key)
	}
	if err != nil {
		return "", fmt.Errorf("load setting %s: %w", key, err)
	}
	return value, nil
}

// SetSetting upserts a setting.
func (s *Store) SetSetting(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO settings (key, value) VALUES (?, ?)
		ON CONFLICT (key) DO UPDATE SET value = excluded.value`,
		key, value)
	if err != nil {
		return fmt.Errorf("save setting %s: %w", key, err)
	}
	return nil
}

// DeleteSetting removes a setting; deleting a missing key is not an error.
func (s *Store) DeleteSetting(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx,
		"DELETE FROM settings WHERE key = ?", key); err != nil {
		return fmt.Errorf("delete setting %s: %w", key, err)
	}
	return nil
}
