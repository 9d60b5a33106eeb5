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
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"
)

// FileStore appends feedback records to a JSON-lines file, one record per
// line. Appends are serialized with a mutex so concurrent writers never
// interleave partial lines.
type FileStore struct {
	mu     sync.RWMutex
	path   string
	logger *zap.Logger
}

// NewFileStore creates the parent directory if needed. The log file itself
// is created lazily on first append.
func NewFileStore(path string, logger *zap.Logger) (*FileStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, &PersistenceError{Op: "init", Err: err}
		}
	}
	return &FileStore{path: path, logger: logger}, nil
}

// Append writes the record as a single JSON line.
func (s *FileStore) Append(rec Record) error {
	if err := rec.Validate(); err != nil {
		return err
	}

	line, err := json.Marshal(rec)
	if err != nil {
		return &PersistenceError{Op: "append", Err: err}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.OpenFile(s.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return &PersistenceError{Op: "append", Err: err}
	}
	defer f.Close()

	if _, err := f.Write(append(line, '\n')); err != nil {
		return &PersistenceError{Op: "append", Err: err}
	}

	s.logger.Debug("Feedback recorded",
		zap.String("id", rec.ID),
		zap.Bool("is_correct", rec.IsCorrect))
	return nil
}

// ReadAll returns every record in append order. A missing or empty file
// yields an empty slice. Corrupt lines are skipped with a warning so one bad
// write cannot poison the whole history.
func (s *FileStore) ReadAll() ([]Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	f, err := os.Open(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return []Record{}, nil
		}
		return nil, &PersistenceError{Op: "read", Err: err}
	}
	defer f.Close()

	records := []Record{}
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var rec Record
		if err := json.Unmarshal(line, &rec); err != nil {
			s.logger.Warn("Skipping malformed feedback line", zap.Error(err))
			continue
		}
		records = append(records, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, &PersistenceError{Op: "read", Err: err}
	}
	return records, nil
}

// Recent returns up to limit records, newest first.
func (s *FileStore) Recent(limit int) ([]Record, error) {
	if limit <= 0 {
		return []Record{}, nil
	}
	all, err := s.ReadAll()
	if err != nil {
		return nil, err
	}
	out := make([]Record, 0, limit)
	for i := len(all) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, all[i])
	}
	return out, nil
}

// Close is a no-op; the file is opened per append.
func (s *FileStore) Close() error { return nil }

var _ Store = (*FileStore)(nil)
