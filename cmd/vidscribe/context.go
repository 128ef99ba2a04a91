package main

import (
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"vidscribe/internal/api"
	"vidscribe/internal/config"
	"vidscribe/internal/history"
	"vidscribe/internal/logging"
	"vidscribe/internal/pipeline"
	"vidscribe/internal/services"
)

// transcriberFactory builds the pipeline a command runs. Tests replace it
// with a stub.
type transcriberFactory func(cfg *config.Config, logger *slog.Logger, recorder pipeline.Recorder) api.Transcriber

type commandContext struct {
	configFlag    string
	logLevelFlag  string
	logFormatFlag string

	configOnce sync.Once
	config     *config.Config
	configErr  error

	newTranscriber transcriberFactory
}

func newCommandContext() *commandContext {
	return &commandContext{newTranscriber: defaultTranscriber}
}

func defaultTranscriber(cfg *config.Config, logger *slog.Logger, recorder pipeline.Recorder) api.Transcriber {
	opts := []pipeline.Option{pipeline.WithLogger(logger)}
	if recorder != nil {
		opts = append(opts, pipeline.WithRecorder(recorder))
	}
	return pipeline.New(cfg, opts...)
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		cfg, _, _, err := config.Load(strings.TrimSpace(c.configFlag))
		if err != nil {
			c.configErr = services.Wrap(services.ErrConfiguration, "config", "load", "", err)
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = services.Wrap(services.ErrConfiguration, "config", "directories", "", err)
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

// logger builds the command logger. Logs go to stderr (plus the log file
// when log_dir is set) so stdout stays reserved for transcript output.
func (c *commandContext) logger(cfg *config.Config, stderr io.Writer) (*slog.Logger, error) {
	level := cfg.Logging.Level
	if v := strings.TrimSpace(c.logLevelFlag); v != "" {
		level = v
	}
	format := cfg.Logging.Format
	if v := strings.TrimSpace(c.logFormatFlag); v != "" {
		format = v
	}
	opts := logging.Options{Level: level, Format: format}
	if cfg.Paths.LogDir == "" {
		opts.Writer = stderr
	} else {
		opts.OutputPaths = []string{"stderr", filepath.Join(cfg.Paths.LogDir, "vidscribe.log")}
	}
	logger, err := logging.New(opts)
	if err != nil {
		return nil, fmt.Errorf("setup logging: %w", err)
	}
	return logger, nil
}

// openHistory returns the run ledger, or nil when history is disabled.
func (c *commandContext) openHistory(cfg *config.Config) (*history.Store, error) {
	if !cfg.History.Enabled {
		return nil, nil
	}
	store, err := history.Open(cfg)
	if err != nil {
		return nil, fmt.Errorf("open history: %w", err)
	}
	return store, nil
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}
