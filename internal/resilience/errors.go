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

// Package resilience maps domain errors onto the HTTP error contract shared
// by every endpoint.
package resilience

import (
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/your-org/email-triage/internal/completion"
	"github.com/your-org/email-triage/internal/extract"
	"github.com/your-org/email-triage/internal/feedback"
	"github.com/your-org/email-triage/internal/pipeline"
)

// ErrorResponse is the standard error payload across all endpoints.
type ErrorResponse struct {
	Error     string    `json:"error"`
	Code      string    `json:"code,omitempty"`
	RequestID string    `json:"request_id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// ErrorCode identifies the failure class independently of the HTTP status.
type ErrorCode string

const (
	ErrorCodeBadRequest         ErrorCode = "BAD_REQUEST"
	ErrorCodeUnsupportedFile    ErrorCode = "UNSUPPORTED_FILE"
	ErrorCodeFileTooLarge       ErrorCode = "FILE_TOO_LARGE"
	ErrorCodeExtractionFailed   ErrorCode = "EXTRACTION_FAILED"
	ErrorCodeInternalError      ErrorCode = "INTERNAL_ERROR"
	ErrorCodeServiceUnavailable ErrorCode = "SERVICE_UNAVAILABLE"
	ErrorCodeStorageFailure     ErrorCode = "STORAGE_FAILURE"
)

// ServiceError carries the HTTP mapping alongside the underlying cause.
type ServiceError struct {
	Message    string
	Code       ErrorCode
	StatusCode int
	Internal   error
}

func (e *ServiceError) Error() string { return e.Message }

func (e *ServiceError) Unwrap() error { return e.Internal }

// ToErrorResponse renders the error for the wire.
func (e *ServiceError) ToErrorResponse(requestID string) ErrorResponse {
	return ErrorResponse{
		Error:     e.Message,
		Code:      string(e.Code),
		RequestID: requestID,
		Timestamp: time.Now(),
	}
}

// NewServiceError builds a ServiceError with an explicit mapping.
func NewServiceError(message string, code ErrorCode, statusCode int, internal error) *ServiceError {
	return &ServiceError{
		Message:    message,
		Code:       code,
		StatusCode: statusCode,
		Internal:   internal,
	}
}

// NewBadRequestError builds a 400 error.
func NewBadRequestError(message string, internal error) *ServiceError {
	return NewServiceError(message, ErrorCodeBadRequest, http.StatusBadRequest, internal)
}

// NewInternalError builds a 500 error.
func NewInternalError(message string, internal error) *ServiceError {
	return NewServiceError(message, ErrorCodeInternalError, http.StatusInternalServerError, internal)
}

// ErrorHandler translates domain errors into ServiceErrors and logs them.
type ErrorHandler struct {
	logger *zap.Logger
}

// NewErrorHandler creates a handler with the given logger.
func NewErrorHandler(logger *zap.Logger) *ErrorHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ErrorHandler{logger: logger}
}

// WrapError classifies err by its domain sentinel and returns the matching
// ServiceError. Unknown errors become internal errors.
func (eh *ErrorHandler) WrapError(err error, operation string) *ServiceError {
	if err == nil {
		return nil
	}

	var serviceErr *ServiceError
	if errors.As(err, &serviceErr) {
		return serviceErr
	}

	wrapped := categorize(err, operation)

	eh.logger.Error("Operation failed",
		zap.String("operation", operation),
		zap.Error(err),
		zap.String("error_code", string(wrapped.Code)))
	return wrapped
}

func categorize(err error, operation string) *ServiceError {
	var persistErr *feedback.PersistenceError

	switch {
	case errors.Is(err, pipeline.ErrInvalidInput):
		return NewServiceError(
			"O texto do email é inválido ou excede o tamanho permitido.",
			ErrorCodeBadRequest, http.StatusBadRequest, err)
	case errors.Is(err, feedback.ErrInvalidRecord):
		return NewServiceError(
			"O feedback enviado é inconsistente. Verifique os campos e tente novamente.",
			ErrorCodeBadRequest, http.StatusBadRequest, err)
	case errors.Is(err, extract.ErrUnsupportedType):
		return NewServiceError(
			"Formato de arquivo não suportado. Envie .txt ou .pdf.",
			ErrorCodeUnsupportedFile, http.StatusUnsupportedMediaType, err)
	case errors.Is(err, extract.ErrFileTooLarge):
		return NewServiceError(
			"O arquivo excede o tamanho máximo permitido.",
			ErrorCodeFileTooLarge, http.StatusRequestEntityTooLarge, err)
	case errors.Is(err, extract.ErrExtractionFailed):
		return NewServiceError(
			"Não foi possível extrair texto do arquivo enviado.",
			ErrorCodeExtractionFailed, http.StatusUnprocessableEntity, err)
	case errors.Is(err, completion.ErrUnavailable):
		return NewServiceError(
			"O serviço de análise está temporariamente indisponível. Tente novamente em alguns minutos.",
			ErrorCodeServiceUnavailable, http.StatusServiceUnavailable, err)
	case errors.As(err, &persistErr):
		return NewServiceError(
			"Não foi possível registrar o feedback. Tente novamente.",
			ErrorCodeStorageFailure, http.StatusInternalServerError, err)
	default:
		return NewInternalError(
			"Ocorreu um erro ao "+operation+". Tente novamente.", err)
	}
}
