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

// Package health reports service liveness and the state of its dependencies.
package health

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"go.uber.org/zap"
)

const (
	StatusHealthy   = "healthy"
	StatusUnhealthy = "unhealthy"
	StatusDegraded  = "degraded"

	// DefaultTimeout bounds a full health check pass.
	DefaultTimeout = 5 * time.Second
)

// CheckResult is the outcome of a single dependency check.
type CheckResult struct {
	Status    string        `json:"status"`
	Latency   time.Duration `json:"latency"`
	Error     string        `json:"error,omitempty"`
	Timestamp time.Time     `json:"timestamp"`
}

// Response is the complete health check payload.
type Response struct {
	Status       string                 `json:"status"`
	Service      string                 `json:"service"`
	Version      string                 `json:"version"`
	Uptime       string                 `json:"uptime"`
	Dependencies map[string]CheckResult `json:"dependencies"`
	Metadata     map[string]interface{} `json:"metadata"`
	Timestamp    time.Time              `json:"timestamp"`
}

// Checker probes one dependency.
type Checker interface {
	Check(ctx context.Context) CheckResult
}

// CheckerFunc adapts a function to the Checker interface.
type CheckerFunc func(ctx context.Context) CheckResult

func (f CheckerFunc) Check(ctx context.Context) CheckResult { return f(ctx) }

// Manager runs the registered checkers and folds their results into an
// overall status. Degraded dependencies keep the service serving; only an
// unhealthy one marks the whole service unhealthy.
type Manager struct {
	serviceName string
	version     string
	startTime   time.Time
	checkers    map[string]Checker
	timeout     time.Duration
	logger      *zap.Logger
}

// NewManager creates a manager for the named service.
func NewManager(serviceName, version string, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		serviceName: serviceName,
		version:     version,
		startTime:   time.Now(),
		checkers:    make(map[string]Checker),
		timeout:     DefaultTimeout,
		logger:      logger,
	}
}

// AddChecker registers a named dependency check.
func (m *Manager) AddChecker(name string, checker Checker) {
	m.checkers[name] = checker
}

// AddCheckerFunc registers a named dependency check function.
func (m *Manager) AddCheckerFunc(name string, fn func(ctx context.Context) CheckResult) {
	m.checkers[name] = CheckerFunc(fn)
}

// Check runs every registered checker and assembles the response.
func (m *Manager) Check(ctx context.Context) Response {
	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	dependencies := make(map[string]CheckResult, len(m.checkers))
	overall := StatusHealthy

	for name, checker := range m.checkers {
		start := time.Now()
		result := checker.Check(ctx)
		result.Latency = time.Since(start)
		result.Timestamp = time.Now()
		dependencies[name] = result

		switch result.Status {
		case StatusUnhealthy:
			overall = StatusUnhealthy
		case StatusDegraded:
			if overall != StatusUnhealthy {
				overall = StatusDegraded
			}
		}
	}

	return Response{
		Status:       overall,
		Service:      m.serviceName,
		Version:      m.version,
		Uptime:       time.Since(m.startTime).Round(time.Second).String(),
		Dependencies: dependencies,
		Metadata: map[string]interface{}{
			"go_version": runtime.Version(),
			"goroutines": runtime.NumGoroutine(),
		},
		Timestamp: time.Now(),
	}
}

// StoreChecker probes the feedback store by reading from it. A store that
// cannot be read makes the service unhealthy.
func StoreChecker(ping func(ctx context.Context) error) Checker {
	return CheckerFunc(func(ctx context.Context) CheckResult {
		if err := ping(ctx); err != nil {
			return CheckResult{
				Status: StatusUnhealthy,
				Error:  fmt.Sprintf("feedback store unavailable: %v", err),
			}
		}
		return CheckResult{Status: StatusHealthy}
	})
}

// RemoteChecker probes the remote completion service. Failure only degrades
// the service: the rule-based fallback keeps triage working without it.
func RemoteChecker(ping func(ctx context.Context) error) Checker {
	return CheckerFunc(func(ctx context.Context) CheckResult {
		if err := ping(ctx); err != nil {
			return CheckResult{
				Status: StatusDegraded,
				Error:  fmt.Sprintf("remote completion unreachable: %v", err),
			}
		}
		return CheckResult{Status: StatusHealthy}
	})
}
