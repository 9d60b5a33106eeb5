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

// Package responder produces a suggested reply for a classified email:
// one remote generation attempt, then a deterministic template selected by
// category. Generate always returns a non-empty string.
package responder

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/your-org/email-triage/internal/classifier"
	"github.com/your-org/email-triage/internal/textproc"
)

// Fallback reply templates, one per category. The productive template has
// protocol-aware and attachment-aware refinements.
const (
	replyWithProtocol = "Recebemos sua mensagem. Localizei o protocolo %s. " +
		"Vamos analisar e retornaremos em breve. Se possível, confirme se os " +
		"anexos foram enviados."

	replyWithAttachment = "Obrigado pelo envio. Não localizei um protocolo: " +
		"poderia confirmar o número do chamado ou reenviar o anexo? Assim " +
		"conseguimos avançar na análise."

	replyProductive = "Obrigado pelo contato. Para que possamos analisar, " +
		"poderia informar o número do protocolo/ticket e anexar documentos " +
		"se houver?"

	replyUnproductive = "Obrigado pela mensagem! Registramos o seu contato. " +
		"Se precisar de algo mais, estamos à disposição."
)

// RemoteGenerator is the remote free-text generation call
type RemoteGenerator interface {
	GenerateReply(ctx context.Context, category classifier.Category, text string) (string, error)
}

// Responder generates suggested replies. Safe for concurrent use.
type Responder struct {
	remote  RemoteGenerator
	timeout time.Duration
	logger  *zap.Logger
}

// New creates a responder. remote may be nil, in which case every reply
// comes from the templates.
func New(remote RemoteGenerator, timeout time.Duration, logger *zap.Logger) *Responder {
	if logger == nil {
		logger = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Responder{
		remote:  remote,
		timeout: timeout,
		logger:  logger,
	}
}

// Generate attempts exactly one remote generation call and falls back to the
// category template on any failure. Never returns an empty string.
func (r *Responder) Generate(ctx context.Context, category classifier.Category, text string) string {
	if r.remote != nil {
		callCtx, cancel := context.WithTimeout(ctx, r.timeout)
		defer cancel()

		reply, err := r.remote.GenerateReply(callCtx, category, text)
		if err == nil && strings.TrimSpace(reply) != "" {
			return reply
		}
		if err != nil {
			r.logger.Warn("Remote reply generation failed, using template",
				zap.Error(err))
		}
	}

	return r.Fallback(category, text)
}

// Fallback selects the deterministic template for the category. For
// productive email it scans the raw text for a protocol reference and, short
// of that, for an attachment mention, so the acknowledgment can be specific.
func (r *Responder) Fallback(category classifier.Category, text string) string {
	if category != classifier.Productive {
		return replyUnproductive
	}

	if protocol := DetectProtocol(text); protocol != "" {
		return fmt.Sprintf(replyWithProtocol, protocol)
	}

	if strings.Contains(textproc.Normalize(text), "anex") {
		return replyWithAttachment
	}

	return replyProductive
}
