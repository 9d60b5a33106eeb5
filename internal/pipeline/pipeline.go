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

// Package pipeline orchestrates the staged email classification: an
// optional local statistical model, then the remote completion service, then
// the deterministic rule-based fallback. Once input validation passes the
// pipeline never fails: every remote-service failure is absorbed, never
// propagated.
package pipeline

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/your-org/email-triage/internal/classifier"
	"github.com/your-org/email-triage/internal/completion"
	"github.com/your-org/email-triage/internal/textproc"
)

// RemoteConfidence is the fixed confidence assigned to remote results. The
// remote model's own calibration is not exposed, so a constant placeholder
// stands in for it.
const RemoteConfidence = 0.85

// ErrInvalidInput is returned for text that is empty after normalization or
// exceeds the configured length bound. Nothing is processed for such input.
var ErrInvalidInput = errors.New("invalid input: email text is empty or too long")

// RemoteClassifier is the remote completion adapter consulted first
type RemoteClassifier interface {
	ClassifyEmail(ctx context.Context, text string) (classifier.Category, error)
}

// ModelClassifier is the optional pre-trained model strategy. Absence of the
// model artifact is a valid runtime state, represented by a nil value.
type ModelClassifier interface {
	Predict(text string) (classifier.Category, float64, error)
}

// Config holds pipeline settings
type Config struct {
	// RemoteTimeout bounds each remote call; a timeout is treated the same
	// as any other transport failure.
	RemoteTimeout time.Duration
	// MaxTextLength is the upper bound on input length after trimming
	MaxTextLength int
}

// Pipeline classifies email text. Safe for concurrent use: it holds no
// per-request state.
type Pipeline struct {
	config  Config
	remote  RemoteClassifier
	model   ModelClassifier
	rules   *classifier.RuleClassifier
	breaker *gobreaker.CircuitBreaker
	logger  *zap.Logger
}

// New creates a classification pipeline. model may be nil.
func New(config Config, remote RemoteClassifier, model ModelClassifier, logger *zap.Logger) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.RemoteTimeout <= 0 {
		config.RemoteTimeout = 30 * time.Second
	}
	if config.MaxTextLength <= 0 {
		config.MaxTextLength = 10000
	}

	return &Pipeline{
		config:  config,
		remote:  remote,
		model:   model,
		rules:   classifier.NewRuleClassifier(),
		breaker: newRemoteBreaker(logger),
		logger:  logger,
	}
}

// newRemoteBreaker builds the circuit breaker guarding remote calls. An
// ambiguous label still counts as a successful call: the service answered,
// it just answered badly.
func newRemoteBreaker(logger *zap.Logger) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "remote-completion",
		MaxRequests: 3,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.ConsecutiveFailures > 5 ||
				(counts.Requests >= 10 && failureRatio >= 0.6)
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, completion.ErrAmbiguous)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("Circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	})
}

// Classify validates the input and runs the strategies in order: model (if
// loaded), remote, rules. Only validation can fail; the rule-based stage
// always terminates with a result.
func (p *Pipeline) Classify(ctx context.Context, text string) (classifier.Result, error) {
	trimmed := strings.TrimSpace(text)
	if len([]rune(trimmed)) > p.config.MaxTextLength {
		return classifier.Result{}, ErrInvalidInput
	}
	if textproc.Normalize(trimmed) == "" {
		return classifier.Result{}, ErrInvalidInput
	}

	if p.model != nil {
		if result, ok := p.classifyByModel(trimmed); ok {
			return result, nil
		}
	}

	if p.remote != nil {
		if category, ok := p.classifyRemote(ctx, trimmed); ok {
			return classifier.Result{
				Category:   category,
				Confidence: RemoteConfidence,
				Method:     classifier.MethodRemote,
			}, nil
		}
	}

	category, confidence := p.rules.Classify(trimmed)
	p.logger.Info("Classified by rules",
		zap.String("category", string(category)),
		zap.Float64("confidence", confidence))

	return classifier.Result{
		Category:   category,
		Confidence: confidence,
		Method:     classifier.MethodRuleBased,
	}, nil
}

// classifyByModel consults the optional statistical model. Any model error
// falls through to the remote stage.
func (p *Pipeline) classifyByModel(text string) (classifier.Result, bool) {
	category, confidence, err := p.model.Predict(text)
	if err != nil {
		p.logger.Warn("Model prediction failed, falling through", zap.Error(err))
		return classifier.Result{}, false
	}

	p.logger.Info("Classified by model",
		zap.String("category", string(category)),
		zap.Float64("confidence", confidence))

	return classifier.Result{
		Category:   category,
		Confidence: confidence,
		Method:     classifier.MethodModel,
	}, true
}

// classifyRemote issues one remote call through the circuit breaker. All
// failures, including an open breaker and unusable labels, report not-ok.
func (p *Pipeline) classifyRemote(ctx context.Context, text string) (classifier.Category, bool) {
	result, err := p.breaker.Execute(func() (interface{}, error) {
		callCtx, cancel := context.WithTimeout(ctx, p.config.RemoteTimeout)
		defer cancel()
		return p.remote.ClassifyEmail(callCtx, text)
	})
	if err != nil {
		p.logger.Warn("Remote classification unusable, falling back to rules",
			zap.Error(err))
		return "", false
	}

	category, ok := result.(classifier.Category)
	if !ok || !category.Valid() {
		return "", false
	}
	return category, true
}
