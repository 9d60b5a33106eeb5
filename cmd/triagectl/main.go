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

// Package main provides triagectl, a command line companion to the email
// triage service for classifying emails, generating replies and inspecting
// feedback metrics without the HTTP server.
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/your-org/email-triage/internal/completion"
	"github.com/your-org/email-triage/internal/config"
	"github.com/your-org/email-triage/internal/extract"
	"github.com/your-org/email-triage/internal/feedback"
	"github.com/your-org/email-triage/internal/metrics"
	"github.com/your-org/email-triage/internal/model"
	"github.com/your-org/email-triage/internal/pipeline"
	"github.com/your-org/email-triage/internal/responder"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:           "triagectl",
		Short:         "Email triage toolbox",
		Long:          "Classify emails, generate suggested replies and inspect feedback metrics from the command line.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "./configs/config.yaml", "path to configuration file")

	root.AddCommand(
		newClassifyCommand(&configPath),
		newReplyCommand(&configPath),
		newMetricsCommand(&configPath),
	)
	return root
}

func newClassifyCommand(configPath *string) *cobra.Command {
	var filePath string
	var offline bool

	cmd := &cobra.Command{
		Use:   "classify [text]",
		Short: "Classify an email as Productive or Unproductive",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadEnvironment(*configPath)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			text, err := resolveInput(cfg, args, filePath)
			if err != nil {
				return err
			}

			p, err := buildPipeline(cfg, logger, offline)
			if err != nil {
				return err
			}

			result, err := p.Classify(cmd.Context(), text)
			if err != nil {
				return err
			}
			return printJSON(result)
		},
	}
	cmd.Flags().StringVarP(&filePath, "file", "f", "", "read the email from a .txt or .pdf file")
	cmd.Flags().BoolVar(&offline, "offline", false, "skip the remote completion service")
	return cmd
}

func newReplyCommand(configPath *string) *cobra.Command {
	var filePath string
	var offline bool

	cmd := &cobra.Command{
		Use:   "reply [text]",
		Short: "Classify an email and generate a suggested reply",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadEnvironment(*configPath)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			text, err := resolveInput(cfg, args, filePath)
			if err != nil {
				return err
			}

			p, err := buildPipeline(cfg, logger, offline)
			if err != nil {
				return err
			}

			result, err := p.Classify(cmd.Context(), text)
			if err != nil {
				return err
			}

			r := responder.New(remoteGenerator(cfg, logger, offline), cfg.AI.Timeout(), logger)
			reply := r.Generate(cmd.Context(), result.Category, text)

			return printJSON(map[string]interface{}{
				"category":   result.Category,
				"confidence": result.Confidence,
				"method":     result.Method,
				"response":   reply,
			})
		},
	}
	cmd.Flags().StringVarP(&filePath, "file", "f", "", "read the email from a .txt or .pdf file")
	cmd.Flags().BoolVar(&offline, "offline", false, "skip the remote completion service")
	return cmd
}

func newMetricsCommand(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "metrics",
		Short: "Show classification quality metrics from recorded feedback",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadEnvironment(*configPath)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			store, err := feedback.Open(cfg.Feedback.StorageType, cfg.Feedback.FilePath, cfg.Feedback.DBPath, logger)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			snapshot, err := metrics.New(store).Snapshot()
			if err != nil {
				return err
			}
			return printJSON(snapshot)
		},
	}
}

func loadEnvironment(configPath string) (*config.Config, *zap.Logger, error) {
	_ = godotenv.Load()

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}

	// CLI output goes to stdout; zap's production config already logs to
	// stderr, keeping the JSON results clean.
	logger, err := zap.NewProduction()
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger, nil
}

func resolveInput(cfg *config.Config, args []string, filePath string) (string, error) {
	if filePath != "" {
		f, err := os.Open(filePath)
		if err != nil {
			return "", err
		}
		defer func() { _ = f.Close() }()

		info, err := f.Stat()
		if err != nil {
			return "", err
		}
		extractor := extract.New(cfg.Upload.MaxFileSize, cfg.Upload.AllowedExtensions)
		return extractor.Extract(filePath, f, info.Size())
	}
	if len(args) == 1 && strings.TrimSpace(args[0]) != "" {
		return args[0], nil
	}
	return "", fmt.Errorf("provide the email text as an argument or use --file")
}

func buildPipeline(cfg *config.Config, logger *zap.Logger, offline bool) (*pipeline.Pipeline, error) {
	localModel, err := model.Load(cfg.Model.ArtifactDir, logger)
	if err != nil {
		return nil, err
	}

	var remote pipeline.RemoteClassifier
	if client := remoteClient(cfg, logger, offline); client != nil {
		remote = client
	}
	var modelClassifier pipeline.ModelClassifier
	if localModel != nil {
		modelClassifier = localModel
	}

	return pipeline.New(pipeline.Config{
		RemoteTimeout: cfg.AI.Timeout(),
		MaxTextLength: cfg.Server.MaxTextLength,
	}, remote, modelClassifier, logger), nil
}

func remoteClient(cfg *config.Config, logger *zap.Logger, offline bool) *completion.Client {
	if offline || cfg.AI.APIKey == "" {
		return nil
	}
	client, err := completion.NewClient(completion.Config{
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
		logger.Warn("Remote completion disabled", zap.Error(err))
		return nil
	}
	return client
}

func remoteGenerator(cfg *config.Config, logger *zap.Logger, offline bool) responder.RemoteGenerator {
	if client := remoteClient(cfg, logger, offline); client != nil {
		return client
	}
	return nil
}

func printJSON(v interface{}) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}
