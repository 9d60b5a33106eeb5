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

package main

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/your-org/email-triage/internal/config"
)

// newTestRouter builds the full service without an API key: classification
// runs on rules, replies on templates.
func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dir := t.TempDir()
	cfg := &config.Config{
		AI: config.AIConfig{
			BaseURL:             "https://api.deepseek.com/v1",
			Model:               "deepseek-chat",
			TimeoutSeconds:      1,
			ClassifyPromptLimit: 1000,
			GeneratePromptLimit: 500,
			ClassifyMaxTokens:   10,
			GenerateMaxTokens:   300,
		},
		Server: config.ServerConfig{Port: "0", MaxTextLength: 10000},
		Upload: config.UploadConfig{
			MaxFileSize:       2 * 1024 * 1024,
			AllowedExtensions: []string{".txt", ".pdf"},
		},
		Feedback: config.FeedbackConfig{
			StorageType: "file",
			FilePath:    filepath.Join(dir, "feedback.jsonl"),
			RecentLimit: 10,
		},
		Model: config.ModelConfig{ArtifactDir: dir},
	}

	server, err := newTriageServer(cfg, zaptest.NewLogger(t))
	require.NoError(t, err)
	t.Cleanup(func() { _ = server.store.Close() })

	return server.setupRouter()
}

func doJSON(t *testing.T, router *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestProcessWithText(t *testing.T) {
	router := newTestRouter(t)

	w := doJSON(t, router, http.MethodPost, "/process", gin.H{
		"text": "Preciso do status do chamado #1234, enviei o comprovante",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp ProcessResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))

	assert.True(t, resp.Success)
	assert.Equal(t, "Productive", resp.Category)
	assert.Equal(t, "rule-based", resp.Method)
	assert.InDelta(t, 0.90, resp.Confidence, 1e-9)
	assert.NotEmpty(t, resp.Response, "a suggested reply is always returned")
	assert.Contains(t, resp.Response, "#1234", "reply should reference the protocol")
	assert.NotEmpty(t, resp.ContentPreview)
}

func TestProcessUnproductive(t *testing.T) {
	router := newTestRouter(t)

	w := doJSON(t, router, http.MethodPost, "/process", gin.H{
		"text": "Feliz aniversário! Tudo de bom",
	})
	require.Equal(t, http.StatusOK, w.Code)

	var resp ProcessResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))

	assert.Equal(t, "Unproductive", resp.Category)
	assert.InDelta(t, 0.75, resp.Confidence, 1e-9)
	assert.NotEmpty(t, resp.Response)
}

func TestProcessRejectsEmptyText(t *testing.T) {
	router := newTestRouter(t)

	for _, text := range []string{"", "   ", "!!! ???"} {
		w := doJSON(t, router, http.MethodPost, "/process", gin.H{"text": text})
		assert.Equal(t, http.StatusBadRequest, w.Code, "text %q", text)
	}
}

func TestProcessWithUploadedFile(t *testing.T) {
	router := newTestRouter(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "email.txt")
	require.NoError(t, err)
	_, err = fw.Write([]byte("Solicito a renovação do contrato, segue anexo."))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/process", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp ProcessResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "Productive", resp.Category)
}

func TestProcessRejectsUnsupportedFile(t *testing.T) {
	router := newTestRouter(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "email.docx")
	require.NoError(t, err)
	_, err = fw.Write([]byte("conteúdo"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/process", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnsupportedMediaType, w.Code)
}

func TestFeedbackRoundTrip(t *testing.T) {
	router := newTestRouter(t)

	w := doJSON(t, router, http.MethodPost, "/feedback", FeedbackRequest{
		OriginalText: "Preciso de suporte",
		Predicted:    "Productive",
		FeedbackType: "correct",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = doJSON(t, router, http.MethodPost, "/feedback", FeedbackRequest{
		OriginalText: "Feliz natal",
		Predicted:    "Productive",
		FeedbackType: "incorrect",
		Correction:   "Unproductive",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = doJSON(t, router, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var snap struct {
		Total           int      `json:"total_feedback"`
		AccuracyPercent *float64 `json:"accuracy_percent"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &snap))
	assert.Equal(t, 2, snap.Total)
	require.NotNil(t, snap.AccuracyPercent)
	assert.Equal(t, 50.0, *snap.AccuracyPercent)

	w = doJSON(t, router, http.MethodGet, "/feedback/recent?limit=1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Feliz natal", "newest record first")
}

func TestFeedbackRejectsInvariantViolations(t *testing.T) {
	router := newTestRouter(t)

	tests := []struct {
		name string
		req  FeedbackRequest
	}{
		{
			name: "incorrect without correction",
			req: FeedbackRequest{
				OriginalText: "texto",
				Predicted:    "Productive",
				FeedbackType: "incorrect",
			},
		},
		{
			name: "incorrect with same correction",
			req: FeedbackRequest{
				OriginalText: "texto",
				Predicted:    "Productive",
				FeedbackType: "incorrect",
				Correction:   "Productive",
			},
		},
		{
			name: "unknown feedback type",
			req: FeedbackRequest{
				OriginalText: "texto",
				Predicted:    "Productive",
				FeedbackType: "maybe",
			},
		},
		{
			name: "unknown category",
			req: FeedbackRequest{
				OriginalText: "texto",
				Predicted:    "Spam",
				FeedbackType: "correct",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doJSON(t, router, http.MethodPost, "/feedback", tt.req)
			assert.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
		})
	}
}

func TestMetricsEmptyStore(t *testing.T) {
	router := newTestRouter(t)

	w := doJSON(t, router, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"accuracy_percent":null`)
}

func TestHealthEndpoint(t *testing.T) {
	router := newTestRouter(t)

	w := doJSON(t, router, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Status  string `json:"status"`
		Service string `json:"service"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "healthy", resp.Status)
	assert.Equal(t, "email-triage", resp.Service)
}

func TestRequestIDPropagation(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-ID", "req-abc")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, "req-abc", w.Header().Get("X-Request-ID"))
}

func TestIndexListsEndpoints(t *testing.T) {
	router := newTestRouter(t)

	w := doJSON(t, router, http.MethodGet, "/", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.Contains(w.Body.String(), "/process"))
}

func TestPreviewOf(t *testing.T) {
	short := "texto curto"
	assert.Equal(t, short, previewOf(short))

	long := strings.Repeat("a", 500)
	preview := previewOf(long)
	assert.Len(t, []rune(preview), PreviewLength+3)
	assert.True(t, strings.HasSuffix(preview, "..."))
}
