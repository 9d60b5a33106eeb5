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

// Package feedback records user verdicts on classification results in an
// append-only store. Two backends are provided: a JSON-lines file and SQLite.
package feedback

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/your-org/email-triage/internal/classifier"
	"github.com/your-org/email-triage/internal/textproc"
)

// MaxTextLength caps the stored excerpt of the original email.
const MaxTextLength = 500

// ErrInvalidRecord is returned when a feedback record violates the
// correction invariant.
var ErrInvalidRecord = errors.New("invalid feedback record")

// PersistenceError wraps a backend failure while appending or reading.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("feedback %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// Record is one user verdict on a classification result.
//
// When IsCorrect is false, Correction must carry the category the user says
// is right, and it must differ from Predicted. When IsCorrect is true,
// Correction must be absent.
type Record struct {
	ID           string               `json:"id"`
	Timestamp    time.Time            `json:"timestamp"`
	OriginalText string               `json:"original_text"`
	Predicted    classifier.Category  `json:"predicted"`
	IsCorrect    bool                 `json:"is_correct"`
	Correction   *classifier.Category `json:"correction,omitempty"`
}

// NewRecord builds a validated record, assigning an ID and timestamp and
// truncating the original text to MaxTextLength.
func NewRecord(text string, predicted classifier.Category, isCorrect bool, correction *classifier.Category) (Record, error) {
	rec := Record{
		ID:           uuid.NewString(),
		Timestamp:    time.Now().UTC(),
		OriginalText: truncateExcerpt(text),
		Predicted:    predicted,
		IsCorrect:    isCorrect,
		Correction:   correction,
	}
	if err := rec.Validate(); err != nil {
		return Record{}, err
	}
	return rec, nil
}

// truncateExcerpt bounds the stored excerpt to MaxTextLength runes, ellipsis
// included. Text within the limit is stored verbatim.
func truncateExcerpt(text string) string {
	if len([]rune(text)) <= MaxTextLength {
		return text
	}
	return textproc.Truncate(text, MaxTextLength-3)
}

// Validate enforces the correction invariant and category validity.
func (r Record) Validate() error {
	if !r.Predicted.Valid() {
		return fmt.Errorf("%w: unknown predicted category %q", ErrInvalidRecord, r.Predicted)
	}
	if r.IsCorrect {
		if r.Correction != nil {
			return fmt.Errorf("%w: correction given for a correct prediction", ErrInvalidRecord)
		}
		return nil
	}
	if r.Correction == nil {
		return fmt.Errorf("%w: incorrect prediction requires a correction", ErrInvalidRecord)
	}
	if !r.Correction.Valid() {
		return fmt.Errorf("%w: unknown correction category %q", ErrInvalidRecord, *r.Correction)
	}
	if *r.Correction == r.Predicted {
		return fmt.Errorf("%w: correction must differ from the prediction", ErrInvalidRecord)
	}
	return nil
}

// Open selects a backend by storage type: "sqlite" opens dbPath, anything
// else falls back to the JSON-lines file at filePath.
func Open(storageType, filePath, dbPath string, logger *zap.Logger) (Store, error) {
	if storageType == "sqlite" {
		return NewSQLiteStore(dbPath, logger)
	}
	return NewFileStore(filePath, logger)
}

// Store is an append-only feedback log.
type Store interface {
	// Append persists a record. The record must already validate.
	Append(rec Record) error
	// ReadAll returns every record in append order. A store that has never
	// been written returns an empty slice, not an error.
	ReadAll() ([]Record, error)
	// Recent returns up to limit records, newest first.
	Recent(limit int) ([]Record, error)
	// Close releases backend resources.
	Close() error
}
