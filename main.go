package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	qhttp "cropclock/http"
	"cropclock/llm"
	"cropclock/logging"
	"cropclock/ml"
	"cropclock/monitoring"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"gopkg.in/yaml.v2"
)

const apiKeyEnv = "CROPCLOCK_LLM_API_KEY"

type Config struct {
	HTTP qhttp.ServerConfig `yaml:"http"`
	Log  logging.Config     `yaml:"log"`
	LLM  llm.ClientConfig   `yaml:"llm"`
	ML   struct {
		EncodersPath string                  `yaml:"encoders_path"`
		Models       map[ml.Task]ml.ModelSpec `yaml:"models"`
		Watch        bool                    `yaml:"watch"`
	} `yaml:"ml"`
}

func main() {
	configPath := flag.String("config", "config.yaml", "path to the YAML config file")
	flag.Parse()

	// 1. Load config
	config, err := loadConfig(resolveConfigPath(*configPath))
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger := logging.New(config.Log)
	defer logger.Sync()

	// 2. Load encoders and models; the server starts even if some are missing
	encoders, models := loadArtifacts(config, logger)

	// 3. Chat relay
	relay := llm.NewRelay(nil)
	if client, err := llm.NewOpenAIClient(config.LLM); err != nil {
		logger.Warn("chat relay disabled", zap.Error(err))
	} else {
		relay = llm.NewRelay(client)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if config.ML.Watch {
		if err := ml.WatchArtifacts(ctx, artifactPaths(config), logger); err != nil {
			logger.Warn("artifact watcher not started", zap.Error(err))
		}
	}

	// 4. Start HTTP server
	server := qhttp.NewServer(config.HTTP, qhttp.NewHandlers(qhttp.Dependencies{
		Encoders: encoders,
		Models:   models,
		Relay:    relay,
		Metrics:  monitoring.NewMetrics(),
		Logger:   logger,
	}))
	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	// 5. Handle graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		if err != nil {
			logger.Fatal("HTTP server failed", zap.Error(err))
		}
	case <-quit:
		logger.Info("shutting down")
		if err := server.Stop(); err != nil {
			logger.Error("server forced to shutdown", zap.Error(err))
		}
	}
	logger.Info("exiting")
}

func loadArtifacts(config *Config, logger *zap.Logger) (*ml.EncoderRegistry, *ml.Registry) {
	encoders, err := ml.LoadEncoders(config.ML.EncodersPath)
	if err != nil {
		logger.Error("encoders not loaded", zap.String("path", config.ML.EncodersPath), zap.Error(err))
	}
	models, err := ml.LoadRegistry(config.ML.Models, logger)
	for _, e := range multierr.Errors(err) {
		logger.Error("model not loaded", zap.Error(e))
	}
	return encoders, models
}

func artifactPaths(config *Config) []string {
	paths := []string{config.ML.EncodersPath}
	for _, spec := range config.ML.Models {
		if spec.Path != "" {
			paths = append(paths, spec.Path)
		}
	}
	return paths
}

// resolveConfigPath looks one directory up when run from a subdirectory.
func resolveConfigPath(path string) string {
	if _, err := os.Stat(path); os.IsNotExist(err) && !filepath.IsAbs(path) {
		parent := filepath.Join("..", path)
		if _, err := os.Stat(parent); err == nil {
			return parent
		}
	}
	return path
}

func loadConfig(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	config := &Config{HTTP: qhttp.DefaultServerConfig()}
	if err := yaml.NewDecoder(file).Decode(config); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	if key := os.Getenv(apiKeyEnv); key != "" {
		config.LLM.APIKey = key
	}

	// Artifact paths are relative to the config file
	base := filepath.Dir(path)
	config.ML.EncodersPath = relativeTo(base, config.ML.EncodersPath)
	for task, spec := range config.ML.Models {
		spec.Path = relativeTo(base, spec.Path)
		config.ML.Models[task] = spec
	}
	return config, nil
}

func relativeTo(base, path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(base, path)
}
