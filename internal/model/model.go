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

// Package model loads an optional pre-trained linear classifier from JSON
// artifacts. When no artifact is present the triage pipeline simply skips
// this stage, so deployments without a trained model lose nothing.
package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/your-org/email-triage/internal/classifier"
	"github.com/your-org/email-triage/internal/textproc"
)

// ArtifactName is the file the loader looks for inside the artifact
// directory.
const ArtifactName = "model.json"

// ErrNoPrediction is returned when the artifact covers none of the tokens in
// the input, leaving the model with no signal.
var ErrNoPrediction = errors.New("model has no signal for input")

// artifact is the on-disk format: per-label token weights plus a bias. It is
// the linear part of a bag-of-words classifier exported after training.
type artifact struct {
	Version int                           `json:"version"`
	Labels  map[string]map[string]float64 `json:"labels"`
	Bias    map[string]float64            `json:"bias"`
}

// Model scores normalized tokens against per-label weight tables.
type Model struct {
	weights map[classifier.Category]map[string]float64
	bias    map[classifier.Category]float64
	logger  *zap.Logger
}

// Load reads the artifact from dir. A missing artifact is not an error: it
// returns (nil, nil) and the caller treats the model as absent. A present
// but unreadable artifact is an error, since a deployment that ships one
// expects it to be used.
func Load(dir string, logger *zap.Logger) (*Model, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	path := filepath.Join(dir, ArtifactName)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			logger.Info("No model artifact found, local model disabled",
				zap.String("path", path))
			return nil, nil
		}
		return nil, fmt.Errorf("reading model artifact: %w", err)
	}

	var art artifact
	if err := json.Unmarshal(data, &art); err != nil {
		return nil, fmt.Errorf("parsing model artifact: %w", err)
	}

	m := &Model{
		weights: make(map[classifier.Category]map[string]float64, len(art.Labels)),
		bias:    make(map[classifier.Category]float64, len(art.Bias)),
		logger:  logger,
	}
	for label, table := range art.Labels {
		cat, ok := classifier.ParseCategory(label)
		if !ok {
			return nil, fmt.Errorf("model artifact: unknown label %q", label)
		}
		m.weights[cat] = table
	}
	for label, b := range art.Bias {
		cat, ok := classifier.ParseCategory(label)
		if !ok {
			return nil, fmt.Errorf("model artifact: unknown label %q", label)
		}
		m.bias[cat] = b
	}
	if len(m.weights) < 2 {
		return nil, fmt.Errorf("model artifact: expected weights for both categories, got %d", len(m.weights))
	}

	logger.Info("Model artifact loaded",
		zap.String("path", path),
		zap.Int("version", art.Version))
	return m, nil
}

// Predict scores the text and returns the winning category with a sigmoid
// confidence over the score margin. Returns ErrNoPrediction when no token in
// the input appears in any weight table.
func (m *Model) Predict(text string) (classifier.Category, float64, error) {
	tokens := strings.Fields(textproc.RemoveStopwords(textproc.Normalize(text)))

	scores := map[classifier.Category]float64{}
	covered := false
	for cat, table := range m.weights {
		score := m.bias[cat]
		for _, tok := range tokens {
			if w, ok := table[tok]; ok {
				score += w
				covered = true
			}
		}
		scores[cat] = score
	}
	if !covered {
		return "", 0, ErrNoPrediction
	}

	pScore := scores[classifier.Productive]
	uScore := scores[classifier.Unproductive]

	winner := classifier.Productive
	margin := pScore - uScore
	if uScore > pScore {
		winner = classifier.Unproductive
		margin = uScore - pScore
	}

	confidence := 1 / (1 + math.Exp(-margin))
	return winner, confidence, nil
}
