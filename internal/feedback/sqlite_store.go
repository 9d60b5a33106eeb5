// Copyright 2025 Email Triage Project
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package feedback

import (
	"database/sql"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/your-org/email-triage/internal/classifier"
)

const feedbackSchema = `
CREATE TABLE IF NOT EXISTS feedback (
	id            TEXT PRIMARY KEY,
	timestamp     TEXT NOT NULL,
	original_text TEXT NOT NULL,
	predicted     TEXT NOT NULL,
	is_correct    INTEGER NOT NULL,
	correction    TEXT
);
`

// SQLiteStore persists feedback records in a SQLite database.
type SQLiteStore struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewSQLiteStore opens (creating if needed) the database at path and ensures
// the schema exists.
func NewSQLiteStore(path string, logger *zap.Logger) (*SQLiteStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, &PersistenceError{Op: "init", Err: err}
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, &PersistenceError{Op: "init", Err: err}
	}
	// sqlite handles one writer at a time
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(feedbackSchema); err != nil {
		db.Close()
		return nil, &PersistenceError{Op: "init", Err: err}
	}

	return &SQLiteStore{db: db, logger: logger}, nil
}

// Append inserts the record.
func (s *SQLiteStore) Append(rec Record) error {
	if err := rec.Validate(); err != nil {
		return err
	}

	var correction sql.NullString
	if rec.Correction != nil {
		correction = sql.NullString{String: string(*rec.Correction), Valid: true}
	}

	_, err := s.db.Exec(
		`INSERT INTO feedback (id, timestamp, original_text, predicted, is_correct, correction)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		rec.ID,
		rec.Timestamp.UTC().Format(time.RFC3339Nano),
		rec.OriginalText,
		string(rec.Predicted),
		rec.IsCorrect,
		correction,
	)
	if err != nil {
		return &PersistenceError{Op: "append", Err: err}
	}

	s.logger.Debug("Feedback recorded",
		zap.String("id", rec.ID),
		zap.Bool("is_correct", rec.IsCorrect))
	return nil
}

// ReadAll returns every record in append order. rowid is the insertion
// order; the timestamp string is not reliable for ordering because
// RFC3339Nano drops trailing fractional zeros.
func (s *SQLiteStore) ReadAll() ([]Record, error) {
	return s.query(
		`SELECT id, timestamp, original_text, predicted, is_correct, correction
		 FROM feedback ORDER BY rowid ASC`)
}

// Recent returns up to limit records, newest first.
func (s *SQLiteStore) Recent(limit int) ([]Record, error) {
	if limit <= 0 {
		return []Record{}, nil
	}
	return s.query(
		`SELECT id, timestamp, original_text, predicted, is_correct, correction
		 FROM feedback ORDER BY rowid DESC LIMIT ?`, limit)
}

func (s *SQLiteStore) query(stmt string, args ...any) ([]Record, error) {
	rows, err := s.db.Query(stmt, args...)
	if err != nil {
		return nil, &PersistenceError{Op: "read", Err: err}
	}
	defer rows.Close()

	records := []Record{}
	for rows.Next() {
		var (
			rec        Record
			ts         string
			correction sql.NullString
		)
		if err := rows.Scan(&rec.ID, &ts, &rec.OriginalText, &rec.Predicted, &rec.IsCorrect, &correction); err != nil {
			return nil, &PersistenceError{Op: "read", Err: err}
		}
		if parsed, err := time.Parse(time.RFC3339Nano, ts); err == nil {
			rec.Timestamp = parsed
		}
		if correction.Valid {
			cat := classifier.Category(correction.String)
			rec.Correction = &cat
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, &PersistenceError{Op: "read", Err: err}
	}
	return records, nil
}

// Close closes the database handle.
func (s *SQLiteStore) Close() error { return s.db.Close() }

var _ Store = (*SQLiteStore)(nil)
