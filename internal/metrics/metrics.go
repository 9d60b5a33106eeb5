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

// Package metrics aggregates the feedback log into classification quality
// figures, computed on demand from the full history.
package metrics

import (
	"math"

	"github.com/your-org/email-triage/internal/classifier"
	"github.com/your-org/email-triage/internal/feedback"
)

// Snapshot is the aggregate over all recorded feedback. AccuracyPercent is
// nil when no feedback exists, so JSON output reads null rather than a
// misleading zero.
type Snapshot struct {
	Total           int                         `json:"total_feedback"`
	CorrectCount    int                         `json:"correct"`
	IncorrectCount  int                         `json:"incorrect"`
	AccuracyPercent *float64                    `json:"accuracy_percent"`
	Distribution    map[classifier.Category]int `json:"category_distribution"`
}

// Aggregator computes snapshots from a feedback store.
type Aggregator struct {
	store feedback.Store
}

// New returns an aggregator reading from store.
func New(store feedback.Store) *Aggregator {
	return &Aggregator{store: store}
}

// Snapshot reads the whole feedback history and aggregates it.
func (a *Aggregator) Snapshot() (Snapshot, error) {
	records, err := a.store.ReadAll()
	if err != nil {
		return Snapshot{}, err
	}
	return Aggregate(records), nil
}

// Aggregate computes the snapshot for a record set. The distribution counts
// the predicted category of every record regardless of verdict.
func Aggregate(records []feedback.Record) Snapshot {
	snap := Snapshot{
		Distribution: map[classifier.Category]int{
			classifier.Productive:   0,
			classifier.Unproductive: 0,
		},
	}

	for _, rec := range records {
		snap.Total++
		if rec.IsCorrect {
			snap.CorrectCount++
		} else {
			snap.IncorrectCount++
		}
		snap.Distribution[rec.Predicted]++
	}

	if snap.Total > 0 {
		acc := round2(float64(snap.CorrectCount) / float64(snap.Total) * 100)
		snap.AccuracyPercent = &acc
	}
	return snap
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
