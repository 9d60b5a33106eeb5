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

// Package extract turns uploaded email files into plain text. It validates
// extension and size before touching the content, then dispatches on the
// extension: .txt files are decoded as UTF-8, .pdf files go through a PDF
// text extractor.
package extract

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
)

var (
	// ErrUnsupportedType is returned for extensions outside the allow list.
	ErrUnsupportedType = errors.New("unsupported file type")
	// ErrFileTooLarge is returned when the upload exceeds the size limit.
	ErrFileTooLarge = errors.New("file exceeds size limit")
	// ErrExtractionFailed is returned when a supported file yields no text.
	ErrExtractionFailed = errors.New("could not extract text from file")
)

// Extractor validates and extracts uploaded email files.
type Extractor struct {
	maxFileSize int64
	allowed     map[string]bool
}

// New builds an extractor. Extensions are matched case-insensitively and
// must include the leading dot (".txt", ".pdf").
func New(maxFileSize int64, allowedExtensions []string) *Extractor {
	allowed := make(map[string]bool, len(allowedExtensions))
	for _, ext := range allowedExtensions {
		allowed[strings.ToLower(ext)] = true
	}
	return &Extractor{maxFileSize: maxFileSize, allowed: allowed}
}

// Validate checks the filename extension and declared size without reading
// the content.
func (e *Extractor) Validate(filename string, size int64) error {
	ext := strings.ToLower(filepath.Ext(filename))
	if !e.allowed[ext] {
		return fmt.Errorf("%w: %q", ErrUnsupportedType, ext)
	}
	if size > e.maxFileSize {
		return fmt.Errorf("%w: %d bytes (limit %d)", ErrFileTooLarge, size, e.maxFileSize)
	}
	return nil
}

// Extract reads the upload and returns its plain text. The reader is
// consumed fully; reads beyond the size limit fail even if the declared
// size lied.
func (e *Extractor) Extract(filename string, r io.Reader, size int64) (string, error) {
	if err := e.Validate(filename, size); err != nil {
		return "", err
	}

	data, err := io.ReadAll(io.LimitReader(r, e.maxFileSize+1))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrExtractionFailed, err)
	}
	if int64(len(data)) > e.maxFileSize {
		return "", fmt.Errorf("%w: content larger than declared", ErrFileTooLarge)
	}

	var text string
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".pdf":
		text, err = extractPDF(data)
	default:
		text, err = extractText(data)
	}
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("%w: file contains no text", ErrExtractionFailed)
	}
	return text, nil
}

func extractText(data []byte) (string, error) {
	if !utf8.Valid(data) {
		return "", fmt.Errorf("%w: file is not valid UTF-8", ErrExtractionFailed)
	}
	return string(data), nil
}

func extractPDF(data []byte) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrExtractionFailed, err)
	}

	plain, err := reader.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrExtractionFailed, err)
	}

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(plain); err != nil {
		return "", fmt.Errorf("%w: %v", ErrExtractionFailed, err)
	}
	return buf.String(), nil
}
