package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"vidscribe/internal/api"
	"vidscribe/internal/logging"
	"vidscribe/internal/pipeline"
	"vidscribe/internal/preflight"
)

func newServeCommand(ctx *commandContext) *cobra.Command {
	var bind string
	var origins []string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the transcription API over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if v := strings.TrimSpace(bind); v != "" {
				cfg.Paths.APIBind = v
			}
			logger, err := ctx.logger(cfg, cmd.ErrOrStderr())
			if err != nil {
				return err
			}

			for _, result := range preflight.Failed(preflight.RunAll(cmd.Context(), cfg, preflight.Options{})) {
				logging.WarnWithContext(logger, "preflight check failed", "preflight_failed",
					logging.String("check", result.Name),
					logging.String("detail", result.Detail),
					logging.String(logging.FieldImpact, "requests using this component will fail"),
				)
			}
			if cfg.Paths.APIToken == "" {
				logging.WarnWithContext(logger, "api token not set; requests are unauthenticated", "api_auth_disabled",
					logging.String(logging.FieldErrorHint, "set paths.api_token or VIDSCRIBE_API_TOKEN"),
					logging.String(logging.FieldImpact, "anyone who can reach the bind address can run transcriptions"),
				)
			}

			store, err := ctx.openHistory(cfg)
			if err != nil {
				logging.WarnWithContext(logger, "history unavailable", "history_open_failed",
					logging.Error(err),
					logging.String(logging.FieldImpact, "runs not recorded in history"),
				)
			}
			var recorder pipeline.Recorder
			if store != nil {
				defer store.Close()
				recorder = store
			}

			server, err := api.NewServer(cfg, ctx.newTranscriber(cfg, logger, recorder),
				api.WithLogger(logger),
				api.WithAllowedOrigins(origins...),
			)
			if err != nil {
				return fmt.Errorf("create api server: %w", err)
			}
			return server.Serve(cmd.Context())
		},
	}

	cmd.Flags().StringVar(&bind, "bind", "", "Listen address (default from config paths.api_bind)")
	cmd.Flags().StringSliceVar(&origins, "cors-origin", nil, "Allowed CORS origin (repeatable, default *)")
	return cmd
}
