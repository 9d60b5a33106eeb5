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

// Package main provides the email triage HTTP service: classification,
// suggested replies, feedback capture and quality metrics.
package main

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/your-org/email-triage/internal/classifier"
	"github.com/your-org/email-triage/internal/completion"
	"github.com/your-org/email-triage/internal/config"
	"github.com/your-org/email-triage/internal/extract"
	"github.com/your-org/email-triage/internal/feedback"
	"github.com/your-org/email-triage/internal/health"
	"github.com/your-org/email-triage/internal/metrics"
	"github.com/your-org/email-triage/internal/model"
	"github.com/your-org/email-triage/internal/pipeline"
	"github.com/your-org/email-triage/internal/resilience"
	"github.com/your-org/email-triage/internal/responder"
)

const (
	// ServiceVersion is reported by the health endpoint
	ServiceVersion = "1.0.0"
	// PreviewLength bounds the content preview echoed back by /process
	PreviewLength = 200
)

// ProcessResponse is the payload returned by POST /process
type ProcessResponse struct {
	Success        bool    `json:"success"`
	Category       string  `json:"category"`
	Response       string  `json:"response"`
	Confidence     float64 `json:"confidence"`
	Method         string  `json:"method"`
	ContentPreview string  `json:"content_preview"`
}

// FeedbackRequest is the payload accepted by POST /feedback
type FeedbackRequest struct {
	OriginalText string `json:"original_text" binding:"required"`
	Predicted    string `json:"predicted" binding:"required"`
	FeedbackType string `json:"feedback_type" binding:"required"`
	Correction   string `json:"correction"`
}

// TriageServer wires the triage components behind the HTTP surface
type TriageServer struct {
	config        *config.Config
	logger        *zap.Logger
	pipeline      *pipeline.Pipeline
	responder     *responder.Responder
	extractor     *extract.Extractor
	store         feedback.Store
	aggregator    *metrics.Aggregator
	healthManager *health.Manager
	errorHandler  *resilience.ErrorHandler
}

func main() {
	// .env is optional; real deployments set environment variables directly
	_ = godotenv.Load()

	cfg, err := config.Load("./configs/config.yaml")
	if err != nil {
		fallback, _ := zap.NewProduction()
		fallback.Fatal("Failed to load configuration", zap.Error(err))
	}

	logger, err := buildLogger(cfg.Logging)
	if err != nil {
		fallback, _ := zap.NewProduction()
		fallback.Fatal("Failed to initialize logger", zap.Error(err))
	}
	defer func() { _ = logger.Sync() }()

	server, err := newTriageServer(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize service", zap.Error(err))
	}
	defer func() { _ = server.store.Close() }()

	router := server.setupRouter()

	logger.Info("Email triage service listening",
		zap.String("port", cfg.Server.Port),
		zap.String("completion_model", cfg.AI.Model))
	if err := router.Run(":" + cfg.Server.Port); err != nil {
		logger.Fatal("Server failed", zap.Error(err))
	}
}

func newTriageServer(cfg *config.Config, logger *zap.Logger) (*TriageServer, error) {
	// Remote completion is optional: without an API key the service runs on
	// the rule-based classifier and reply templates alone.
	var remoteClient *completion.Client
	if cfg.AI.APIKey != "" {
		var err error
		remoteClient, err = completion.NewClient(completion.Config{
			APIKey:              cfg.AI.APIKey,
			BaseURL:             cfg.AI.BaseURL,
			Model:               cfg.AI.Model,
			ClassifyPromptLimit: cfg.AI.ClassifyPromptLimit,
			GeneratePromptLimit: cfg.AI.GeneratePromptLimit,
			ClassifyTemperature: float32(cfg.AI.ClassifyTemperature),
			GenerateTemperature: float32(cfg.AI.GenerateTemperature),
			ClassifyMaxTokens:   cfg.AI.ClassifyMaxTokens,
			GenerateMaxTokens:   cfg.AI.GenerateMaxTokens,
		}, logger)
		if err != nil {
			return nil, err
		}
	} else {
		logger.Warn("No API key configured, remote completion disabled")
	}

	localModel, err := model.Load(cfg.Model.ArtifactDir, logger)
	if err != nil {
		return nil, err
	}

	store, err := feedback.Open(cfg.Feedback.StorageType, cfg.Feedback.FilePath, cfg.Feedback.DBPath, logger)
	if err != nil {
		return nil, err
	}

	pipelineConfig := pipeline.Config{
		RemoteTimeout: cfg.AI.Timeout(),
		MaxTextLength: cfg.Server.MaxTextLength,
	}

	// interface values must stay nil when the concrete pointer is nil
	var remoteClassifier pipeline.RemoteClassifier
	var remoteGenerator responder.RemoteGenerator
	if remoteClient != nil {
		remoteClassifier = remoteClient
		remoteGenerator = remoteClient
	}
	var modelClassifier pipeline.ModelClassifier
	if localModel != nil {
		modelClassifier = localModel
	}

	healthManager := health.NewManager("email-triage", ServiceVersion, logger)
	healthManager.AddChecker("feedback_store", health.StoreChecker(func(ctx context.Context) error {
		_, err := store.Recent(1)
		return err
	}))
	if remoteClient != nil {
		healthManager.AddChecker("remote_completion", health.RemoteChecker(remoteClient.Ping))
	}

	return &TriageServer{
		config:        cfg,
		logger:        logger,
		pipeline:      pipeline.New(pipelineConfig, remoteClassifier, modelClassifier, logger),
		responder:     responder.New(remoteGenerator, cfg.AI.Timeout(), logger),
		extractor:     extract.New(cfg.Upload.MaxFileSize, cfg.Upload.AllowedExtensions),
		store:         store,
		aggregator:    metrics.New(store),
		healthManager: healthManager,
		errorHandler:  resilience.NewErrorHandler(logger),
	}, nil
}

func (s *TriageServer) setupRouter() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestIDMiddleware())

	router.GET("/", s.handleIndex)
	router.POST("/process", s.handleProcess)
	router.POST("/feedback", s.handleFeedback)
	router.GET("/feedback/recent", s.handleRecentFeedback)
	router.GET("/metrics", s.handleMetrics)
	router.GET("/health", s.handleHealth)

	return router
}

// requestIDMiddleware attaches a request ID, honoring one sent by the client
func requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Set("request_id", requestID)
		c.Header("X-Request-ID", requestID)
		c.Next()
	}
}

func (s *TriageServer) handleIndex(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"service": "email-triage",
		"version": ServiceVersion,
		"endpoints": []string{
			"POST /process",
			"POST /feedback",
			"GET /feedback/recent",
			"GET /metrics",
			"GET /health",
		},
	})
}

// handleProcess classifies the submitted email and returns a suggested
// reply. The email arrives either as a "text" form field / JSON field, or as
// an uploaded .txt or .pdf file under "file".
func (s *TriageServer) handleProcess(c *gin.Context) {
	text, err := s.resolveText(c)
	if err != nil {
		s.writeError(c, err, "processar o email")
		return
	}

	result, err := s.pipeline.Classify(c.Request.Context(), text)
	if err != nil {
		s.writeError(c, err, "classificar o email")
		return
	}

	reply := s.responder.Generate(c.Request.Context(), result.Category, text)

	s.logger.Info("Email processed",
		zap.String("request_id", c.GetString("request_id")),
		zap.String("category", string(result.Category)),
		zap.String("method", result.Method),
		zap.Float64("confidence", result.Confidence))

	c.JSON(http.StatusOK, ProcessResponse{
		Success:        true,
		Category:       string(result.Category),
		Response:       reply,
		Confidence:     result.Confidence,
		Method:         result.Method,
		ContentPreview: previewOf(text),
	})
}

// resolveText pulls the email text from the request: uploaded file first,
// then the text field.
func (s *TriageServer) resolveText(c *gin.Context) (string, error) {
	contentType := c.ContentType()

	if strings.HasPrefix(contentType, "multipart/form-data") {
		if fileHeader, err := c.FormFile("file"); err == nil {
			f, err := fileHeader.Open()
			if err != nil {
				return "", resilience.NewBadRequestError("Não foi possível ler o arquivo enviado.", err)
			}
			defer func() { _ = f.Close() }()
			return s.extractor.Extract(fileHeader.Filename, f, fileHeader.Size)
		}
		if text := strings.TrimSpace(c.PostForm("text")); text != "" {
			return text, nil
		}
		return "", resilience.NewBadRequestError("Envie um arquivo ou o campo 'text'.", nil)
	}

	var body struct {
		Text string `json:"text"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		return "", resilience.NewBadRequestError("Corpo da requisição inválido.", err)
	}
	if strings.TrimSpace(body.Text) == "" {
		return "", resilience.NewBadRequestError("O campo 'text' é obrigatório.", nil)
	}
	return body.Text, nil
}

func (s *TriageServer) handleFeedback(c *gin.Context) {
	var req FeedbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.writeError(c, resilience.NewBadRequestError("Corpo da requisição inválido.", err), "registrar feedback")
		return
	}

	predicted, ok := classifier.ParseCategory(req.Predicted)
	if !ok {
		s.writeError(c, resilience.NewBadRequestError("Categoria prevista desconhecida.", nil), "registrar feedback")
		return
	}

	var isCorrect bool
	switch strings.ToLower(req.FeedbackType) {
	case "correct":
		isCorrect = true
	case "incorrect":
		isCorrect = false
	default:
		s.writeError(c, resilience.NewBadRequestError("feedback_type deve ser 'correct' ou 'incorrect'.", nil), "registrar feedback")
		return
	}

	var correction *classifier.Category
	if req.Correction != "" {
		cat, ok := classifier.ParseCategory(req.Correction)
		if !ok {
			s.writeError(c, resilience.NewBadRequestError("Categoria de correção desconhecida.", nil), "registrar feedback")
			return
		}
		correction = &cat
	}

	rec, err := feedback.NewRecord(req.OriginalText, predicted, isCorrect, correction)
	if err != nil {
		s.writeError(c, err, "registrar feedback")
		return
	}
	if err := s.store.Append(rec); err != nil {
		s.writeError(c, err, "registrar feedback")
		return
	}

	c.JSON(http.StatusCreated, gin.H{"success": true, "id": rec.ID})
}

func (s *TriageServer) handleRecentFeedback(c *gin.Context) {
	limit := s.config.Feedback.RecentLimit
	if raw := c.Query("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 && parsed <= 100 {
			limit = parsed
		}
	}

	records, err := s.store.Recent(limit)
	if err != nil {
		s.writeError(c, err, "consultar feedback")
		return
	}
	c.JSON(http.StatusOK, gin.H{"feedback": records, "count": len(records)})
}

func (s *TriageServer) handleMetrics(c *gin.Context) {
	snapshot, err := s.aggregator.Snapshot()
	if err != nil {
		s.writeError(c, err, "calcular métricas")
		return
	}
	c.JSON(http.StatusOK, snapshot)
}

func (s *TriageServer) handleHealth(c *gin.Context) {
	result := s.healthManager.Check(c.Request.Context())

	statusCode := http.StatusOK
	if result.Status == health.StatusUnhealthy {
		statusCode = http.StatusServiceUnavailable
	}
	c.JSON(statusCode, result)
}

func (s *TriageServer) writeError(c *gin.Context, err error, operation string) {
	serviceErr := s.errorHandler.WrapError(err, operation)
	c.JSON(serviceErr.StatusCode, serviceErr.ToErrorResponse(c.GetString("request_id")))
}

func previewOf(text string) string {
	preview := strings.TrimSpace(text)
	if len([]rune(preview)) <= PreviewLength {
		return preview
	}
	return string([]rune(preview)[:PreviewLength]) + "..."
}

// buildLogger constructs the zap logger from the logging section
func buildLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		level = zapcore.InfoLevel
	}

	zapConfig := zap.NewProductionConfig()
	if cfg.Format == "console" {
		zapConfig = zap.NewDevelopmentConfig()
	}
	zapConfig.Level = zap.NewAtomicLevelAt(level)
	if cfg.Output != "" {
		zapConfig.OutputPaths = []string{cfg.Output}
	}

	return zapConfig.Build()
}
