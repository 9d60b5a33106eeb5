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

package extract

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

func newTestExtractor() *Extractor {
	return New(2*1024*1024, []string{".txt", ".pdf"})
}

func TestValidate(t *testing.T) {
	e := newTestExtractor()

	tests := []struct {
		name     string
		filename string
		size     int64
		wantErr  error
	}{
		{"txt allowed", "email.txt", 100, nil},
		{"pdf allowed", "email.pdf", 100, nil},
		{"extension case insensitive", "EMAIL.TXT", 100, nil},
		{"docx rejected", "email.docx", 100, ErrUnsupportedType},
		{"no extension rejected", "email", 100, ErrUnsupportedType},
		{"oversized rejected", "email.txt", 3 * 1024 * 1024, ErrFileTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := e.Validate(tt.filename, tt.size)
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("Validate: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestExtractText(t *testing.T) {
	e := newTestExtractor()
	content := "Bom dia,\n\nPreciso do status do protocolo 12345.\n\nObrigado."

	got, err := e.Extract("email.txt", strings.NewReader(content), int64(len(content)))
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if got != content {
		t.Errorf("Extract = %q, want %q", got, content)
	}
}

func TestExtractRejectsInvalidUTF8(t *testing.T) {
	e := newTestExtractor()
	data := []byte{0xff, 0xfe, 0x41}

	_, err := e.Extract("email.txt", bytes.NewReader(data), int64(len(data)))
	if !errors.Is(err, ErrExtractionFailed) {
		t.Errorf("expected ErrExtractionFailed, got %v", err)
	}
}

func TestExtractRejectsEmptyFile(t *testing.T) {
	e := newTestExtractor()

	tests := []struct {
		name    string
		content string
	}{
		{"empty", ""},
		{"whitespace only", "   \n\t  "},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.Extract("email.txt", strings.NewReader(tt.content), int64(len(tt.content)))
			if !errors.Is(err, ErrExtractionFailed) {
				t.Errorf("expected ErrExtractionFailed, got %v", err)
			}
		})
	}
}

func TestExtractRejectsUndeclaredOversize(t *testing.T) {
	e := New(16, []string{".txt"})
	content := strings.Repeat("a", 64)

	// Declared size lies; the reader still exceeds the limit.
	_, err := e.Extract("email.txt", strings.NewReader(content), 8)
	if !errors.Is(err, ErrFileTooLarge) {
		t.Errorf("expected ErrFileTooLarge, got %v", err)
	}
}

func TestExtractRejectsCorruptPDF(t *testing.T) {
	e := newTestExtractor()
	data := []byte("this is not a pdf at all")

	_, err := e.Extract("email.pdf", bytes.NewReader(data), int64(len(data)))
	if !errors.Is(err, ErrExtractionFailed) {
		t.Errorf("expected ErrExtractionFailed, got %v", err)
	}
}
