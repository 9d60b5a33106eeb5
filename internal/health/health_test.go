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

package health

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap/zaptest"
)

func staticChecker(status string) Checker {
	return CheckerFunc(func(ctx context.Context) CheckResult {
		return CheckResult{Status: status}
	})
}

func TestManagerAllHealthy(t *testing.T) {
	m := NewManager("email-triage", "test", zaptest.NewLogger(t))
	m.AddChecker("store", staticChecker(StatusHealthy))
	m.AddChecker("remote", staticChecker(StatusHealthy))

	resp := m.Check(context.Background())
	if resp.Status != StatusHealthy {
		t.Errorf("status = %v, want healthy", resp.Status)
	}
	if resp.Service != "email-triage" {
		t.Errorf("service = %v", resp.Service)
	}
	if len(resp.Dependencies) != 2 {
		t.Errorf("got %d dependencies, want 2", len(resp.Dependencies))
	}
}

func TestManagerDegradedDependency(t *testing.T) {
	m := NewManager("email-triage", "test", zaptest.NewLogger(t))
	m.AddChecker("store", staticChecker(StatusHealthy))
	m.AddChecker("remote", staticChecker(StatusDegraded))

	resp := m.Check(context.Background())
	if resp.Status != StatusDegraded {
		t.Errorf("status = %v, want degraded", resp.Status)
	}
}

func TestManagerUnhealthyWinsOverDegraded(t *testing.T) {
	m := NewManager("email-triage", "test", zaptest.NewLogger(t))
	m.AddChecker("store", staticChecker(StatusUnhealthy))
	m.AddChecker("remote", staticChecker(StatusDegraded))

	resp := m.Check(context.Background())
	if resp.Status != StatusUnhealthy {
		t.Errorf("status = %v, want unhealthy", resp.Status)
	}
}

func TestManagerNoCheckers(t *testing.T) {
	m := NewManager("email-triage", "test", zaptest.NewLogger(t))

	resp := m.Check(context.Background())
	if resp.Status != StatusHealthy {
		t.Errorf("status = %v, want healthy with no checkers", resp.Status)
	}
}

func TestStoreChecker(t *testing.T) {
	ok := StoreChecker(func(ctx context.Context) error { return nil })
	if got := ok.Check(context.Background()); got.Status != StatusHealthy {
		t.Errorf("status = %v, want healthy", got.Status)
	}

	failing := StoreChecker(func(ctx context.Context) error { return errors.New("disk gone") })
	if got := failing.Check(context.Background()); got.Status != StatusUnhealthy {
		t.Errorf("status = %v, want unhealthy", got.Status)
	}
}

func TestRemoteCheckerOnlyDegrades(t *testing.T) {
	failing := RemoteChecker(func(ctx context.Context) error { return errors.New("timeout") })
	got := failing.Check(context.Background())
	if got.Status != StatusDegraded {
		t.Errorf("status = %v, want degraded: the rule fallback keeps the service usable", got.Status)
	}
}
