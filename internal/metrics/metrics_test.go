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

package metrics

import (
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap/zaptest"

	"github.com/your-org/email-triage/internal/classifier"
	"github.com/your-org/email-triage/internal/feedback"
)

func record(t *testing.T, predicted classifier.Category, isCorrect bool) feedback.Record {
	t.Helper()
	var correction *classifier.Category
	if !isCorrect {
		other := classifier.Unproductive
		if predicted == classifier.Unproductive {
			other = classifier.Productive
		}
		correction = &other
	}
	rec, err := feedback.NewRecord("texto", predicted, isCorrect, correction)
	if err != nil {
		t.Fatalf("NewRecord: %v", err)
	}
	return rec
}

func TestAggregateEmpty(t *testing.T) {
	snap := Aggregate(nil)

	if snap.Total != 0 || snap.CorrectCount != 0 || snap.IncorrectCount != 0 {
		t.Errorf("unexpected counts: %+v", snap)
	}
	if snap.AccuracyPercent != nil {
		t.Errorf("accuracy = %v, want nil for empty history", *snap.AccuracyPercent)
	}
	if snap.Distribution[classifier.Productive] != 0 || snap.Distribution[classifier.Unproductive] != 0 {
		t.Errorf("distribution not zeroed: %v", snap.Distribution)
	}
}

func TestAggregateAccuracy(t *testing.T) {
	tests := []struct {
		name         string
		correct      int
		incorrect    int
		wantAccuracy float64
	}{
		{"half right", 1, 1, 50.0},
		{"all right", 3, 0, 100.0},
		{"two thirds", 2, 1, 66.67},
		{"none right", 0, 4, 0.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var records []feedback.Record
			for i := 0; i < tt.correct; i++ {
				records = append(records, record(t, classifier.Productive, true))
			}
			for i := 0; i < tt.incorrect; i++ {
				records = append(records, record(t, classifier.Unproductive, false))
			}

			snap := Aggregate(records)
			if snap.Total != tt.correct+tt.incorrect {
				t.Errorf("total = %d, want %d", snap.Total, tt.correct+tt.incorrect)
			}
			if snap.AccuracyPercent == nil {
				t.Fatal("accuracy is nil for non-empty history")
			}
			if *snap.AccuracyPercent != tt.wantAccuracy {
				t.Errorf("accuracy = %v, want %v", *snap.AccuracyPercent, tt.wantAccuracy)
			}
		})
	}
}

func TestAggregateDistribution(t *testing.T) {
	records := []feedback.Record{
		record(t, classifier.Productive, true),
		record(t, classifier.Productive, false),
		record(t, classifier.Unproductive, true),
	}

	snap := Aggregate(records)
	if snap.Distribution[classifier.Productive] != 2 {
		t.Errorf("productive count = %d, want 2", snap.Distribution[classifier.Productive])
	}
	if snap.Distribution[classifier.Unproductive] != 1 {
		t.Errorf("unproductive count = %d, want 1", snap.Distribution[classifier.Unproductive])
	}
}

func TestSnapshotNullAccuracyJSON(t *testing.T) {
	out, err := json.Marshal(Aggregate(nil))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !strings.Contains(string(out), `"accuracy_percent":null`) {
		t.Errorf("expected null accuracy in %s", out)
	}
}

func TestSnapshotReadsFromStore(t *testing.T) {
	store, err := feedback.NewFileStore(filepath.Join(t.TempDir(), "feedback.jsonl"), zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	if err := store.Append(record(t, classifier.Productive, true)); err != nil {
		t.Fatalf("Append: %v", err)
	}

	snap, err := New(store).Snapshot()
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if snap.Total != 1 || snap.CorrectCount != 1 {
		t.Errorf("unexpected snapshot: %+v", snap)
	}
}
