package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"vidscribe/internal/config"
	"vidscribe/internal/deps"
	"vidscribe/internal/logging"
	"vidscribe/internal/pipeline"
	"vidscribe/internal/preflight"
	"vidscribe/internal/reference"
	"vidscribe/internal/services"
	"vidscribe/internal/transcript"
)

type transcribeOutput struct {
	Reference  *reference.VideoReference `json:"reference,omitempty"`
	Transcript transcript.Result         `json:"transcript"`
	SRT        string                    `json:"srt"`
	Artifacts  pipeline.Artifacts        `json:"artifacts"`
}

func newTranscribeCommand(ctx *commandContext) *cobra.Command {
	var engineFlag string
	var languageFlag string
	var maxChunk float64
	var outputDir string
	var jsonOutput bool
	var skipChecks bool

	cmd := &cobra.Command{
		Use:   "transcribe <video-url>",
		Short: "Transcribe a video to text and SRT subtitles",
		Long: "Download the audio of a video, split it into chunks, recognize each chunk and\n" +
			"write <id>.txt and <id>.srt to the output directory. The plain-text transcript\n" +
			"is also printed to stdout.",
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) != 1 {
				return fmt.Errorf("provide exactly one video URL. Example: vidscribe transcribe https://youtu.be/dQw4w9WgXcQ")
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			profile := strings.ToLower(strings.TrimSpace(engineFlag))
			if profile == "" {
				profile = cfg.Engine.Profile
			}
			if err := cfg.ValidateEngineCredentials(profile); err != nil {
				return services.Wrap(services.ErrConfiguration, "configure", "engine", "", err)
			}
			if !skipChecks {
				if err := checkReady(cmd, cfg, profile); err != nil {
					return err
				}
			}

			logger, err := ctx.logger(cfg, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			store, err := ctx.openHistory(cfg)
			if err != nil {
				logging.WarnWithContext(logger, "history unavailable", "history_open_failed",
					logging.Error(err),
					logging.String(logging.FieldImpact, "run not recorded in history"),
				)
			}
			var recorder pipeline.Recorder
			if store != nil {
				defer store.Close()
				recorder = store
			}

			progress := newProgressPrinter(cmd.ErrOrStderr(), logger)
			transcriber := ctx.newTranscriber(cfg, logger, recorder)
			result, err := transcriber.Transcribe(cmd.Context(), args[0], pipeline.Options{
				EngineProfile:    profile,
				LanguageHint:     languageFlag,
				MaxChunkDuration: maxChunk,
				Progress:         progress.update,
			})
			progress.finish()
			if err != nil {
				return err
			}

			out := transcribeOutput{Transcript: result, SRT: pipeline.RenderSubtitle(result)}
			name := "transcript"
			if ref, err := reference.Normalize(args[0]); err == nil {
				out.Reference = &ref
				name = ref.CanonicalID
			}

			dir := strings.TrimSpace(outputDir)
			if dir == "" {
				dir = cfg.Paths.OutputDir
			} else if dir, err = config.ExpandPath(dir); err != nil {
				return fmt.Errorf("resolve output directory: %w", err)
			}
			artifacts, err := pipeline.WriteArtifacts(dir, name, result)
			if err != nil {
				return err
			}
			out.Artifacts = artifacts

			if jsonOutput {
				return writeJSON(cmd, out)
			}
			stderr := cmd.ErrOrStderr()
			for _, warning := range result.Warnings {
				fmt.Fprintf(stderr, "warning: %s\n", warning)
			}
			fmt.Fprint(cmd.OutOrStdout(), pipeline.RenderText(result))
			fmt.Fprintf(stderr, "Wrote %s and %s (%d chunks, language %s, %s)\n",
				artifacts.TextPath, artifacts.SubtitlePath, result.ChunkCount,
				result.DetectedLanguage, result.ProcessingDuration.Round(100*time.Millisecond))
			return nil
		},
	}

	cmd.Flags().StringVarP(&engineFlag, "engine", "e", "", "Engine profile: local (WhisperX) or remote (hosted API)")
	cmd.Flags().StringVarP(&languageFlag, "language", "l", "", "Language hint (code or name, or auto)")
	cmd.Flags().Float64Var(&maxChunk, "max-chunk", 0, "Maximum chunk length in seconds (default from config)")
	cmd.Flags().StringVarP(&outputDir, "output", "o", "", "Directory for the .txt and .srt files (default from config)")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print the transcript, SRT and artifact paths as JSON")
	cmd.Flags().BoolVar(&skipChecks, "skip-checks", false, "Skip dependency and directory checks")
	return cmd
}

// checkReady fails fast when a required binary or directory is unusable.
func checkReady(cmd *cobra.Command, cfg *config.Config, profile string) error {
	var problems []string
	for _, status := range preflight.MissingRequired(deps.CheckBinaries(preflight.Requirements(cfg, profile))) {
		problems = append(problems, fmt.Sprintf("%s: %s", status.Name, status.Detail))
	}
	for _, result := range preflight.Failed(preflight.RunAll(cmd.Context(), cfg, preflight.Options{Profile: profile})) {
		problems = append(problems, fmt.Sprintf("%s: %s", result.Name, result.Detail))
	}
	if len(problems) == 0 {
		return nil
	}
	return services.Wrap(services.ErrConfiguration, "preflight", "", strings.Join(problems, "; ")+" (run 'vidscribe status' for details)", nil)
}
