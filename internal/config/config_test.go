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

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err, "a missing config file must fall back to defaults")

	assert.Equal(t, "https://api.deepseek.com/v1", cfg.AI.BaseURL)
	assert.Equal(t, "deepseek-chat", cfg.AI.Model)
	assert.Equal(t, 30, cfg.AI.TimeoutSeconds)
	assert.Equal(t, 1000, cfg.AI.ClassifyPromptLimit)
	assert.Equal(t, 500, cfg.AI.GeneratePromptLimit)
	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, 10000, cfg.Server.MaxTextLength)
	assert.Equal(t, int64(2*1024*1024), cfg.Upload.MaxFileSize)
	assert.Equal(t, []string{".txt", ".pdf"}, cfg.Upload.AllowedExtensions)
	assert.Equal(t, "file", cfg.Feedback.StorageType)
	assert.Equal(t, 10, cfg.Feedback.RecentLimit)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
ai:
  model: "gpt-4o-mini"
  timeout_seconds: 10
server:
  port: "9090"
feedback:
  storage_type: "sqlite"
  db_path: "./test.db"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "gpt-4o-mini", cfg.AI.Model)
	assert.Equal(t, 10, cfg.AI.TimeoutSeconds)
	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, "sqlite", cfg.Feedback.StorageType)
	// values the file omits keep their defaults
	assert.Equal(t, 10000, cfg.Server.MaxTextLength)
}

func TestEnvironmentOverrides(t *testing.T) {
	t.Setenv("PORT", "7070")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "7070", cfg.Server.Port)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestDeepSeekKeyWinsOverOpenAI(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-openai")
	t.Setenv("DEEPSEEK_API_KEY", "sk-deepseek")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "sk-deepseek", cfg.AI.APIKey)
}

func TestMissingAPIKeyIsAllowed(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("DEEPSEEK_API_KEY", "")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Empty(t, cfg.AI.APIKey)
}

func TestValidationRejectsBadValues(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
ai:
  timeout_seconds: -1
feedback:
  storage_type: "redis"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "timeout_seconds")
	assert.Contains(t, err.Error(), "storage type")
}

func TestTimeoutDuration(t *testing.T) {
	cfg := AIConfig{TimeoutSeconds: 45}
	assert.Equal(t, 45*time.Second, cfg.Timeout())
}

func TestMaskSensitiveValues(t *testing.T) {
	cfg := &Config{AI: AIConfig{APIKey: "sk-1234567890abcdef"}}
	masked := cfg.MaskSensitiveValues()

	assert.Equal(t, "sk-12345"+strings.Repeat("*", 11), masked.AI.APIKey)
	assert.Equal(t, "sk-1234567890abcdef", cfg.AI.APIKey, "original must stay untouched")
}
