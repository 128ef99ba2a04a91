package main

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"vidscribe/internal/history"
)

type historyRunView struct {
	ID               string     `json:"id"`
	Reference        string     `json:"reference"`
	CanonicalID      string     `json:"canonical_id,omitempty"`
	Engine           string     `json:"engine"`
	Status           string     `json:"status"`
	ChunkCount       int        `json:"chunk_count"`
	WarningCount     int        `json:"warning_count"`
	AudioSeconds     float64    `json:"audio_seconds"`
	ElapsedSeconds   float64    `json:"elapsed_seconds"`
	DetectedLanguage string     `json:"detected_language,omitempty"`
	Error            string     `json:"error,omitempty"`
	StartedAt        time.Time  `json:"started_at"`
	FinishedAt       *time.Time `json:"finished_at,omitempty"`
}

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "Inspect the run ledger",
	}
	historyCmd.AddCommand(newHistoryListCommand(ctx))
	historyCmd.AddCommand(newHistoryClearCommand(ctx))
	historyCmd.AddCommand(newHistoryRepairCommand(ctx))
	return historyCmd
}

func newHistoryListCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent transcription runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withHistory(ctx, func(store *history.Store) error {
				runs, err := store.List(cmd.Context(), limit)
				if err != nil {
					return err
				}
				views := make([]historyRunView, 0, len(runs))
				for _, run := range runs {
					views = append(views, newHistoryRunView(run))
				}
				if jsonOutput {
					return writeJSON(cmd, views)
				}
				out := cmd.OutOrStdout()
				if len(views) == 0 {
					fmt.Fprintln(out, "No runs recorded")
					return nil
				}
				fmt.Fprintln(out, renderHistoryTable(views))
				return nil
			})
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of runs to show (0 for all)")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print runs as JSON")
	return cmd
}

func newHistoryClearCommand(ctx *commandContext) *cobra.Command {
	var olderThan time.Duration

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete recorded runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			if olderThan < 0 {
				return errors.New("--older-than must not be negative")
			}
			return withHistory(ctx, func(store *history.Store) error {
				var cutoff time.Time
				if olderThan > 0 {
					cutoff = time.Now().Add(-olderThan)
				}
				removed, err := store.Clear(cmd.Context(), cutoff)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %d run(s)\n", removed)
				return nil
			})
		},
	}
	cmd.Flags().DurationVar(&olderThan, "older-than", 0, "Only remove runs started before this age (e.g. 720h)")
	return cmd
}

func newHistoryRepairCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "repair",
		Short: "Mark runs left running by a crashed process as failed",
		Long: "Mark runs left in the running state as failed. Only use this when no\n" +
			"vidscribe process (including serve) is running against the same state directory.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withHistory(ctx, func(store *history.Store) error {
				updated, err := store.MarkInterrupted(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Marked %d run(s) as interrupted\n", updated)
				return nil
			})
		},
	}
}

func withHistory(ctx *commandContext, fn func(*history.Store) error) error {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return err
	}
	if !cfg.History.Enabled {
		return errors.New("history is disabled (set history.enabled = true in the config)")
	}
	store, err := history.Open(cfg)
	if err != nil {
		if errors.Is(err, history.ErrSchemaMismatch) {
			return fmt.Errorf("%w; delete %s to reset the ledger", err, cfg.HistoryPath())
		}
		return fmt.Errorf("open history: %w", err)
	}
	defer store.Close()
	return fn(store)
}

func newHistoryRunView(run *history.Run) historyRunView {
	return historyRunView{
		ID:               run.ID,
		Reference:        run.Reference,
		CanonicalID:      run.CanonicalID,
		Engine:           run.Engine,
		Status:           string(run.Status),
		ChunkCount:       run.ChunkCount,
		WarningCount:     run.WarningCount,
		AudioSeconds:     run.AudioSeconds,
		ElapsedSeconds:   run.ElapsedSeconds,
		DetectedLanguage: run.DetectedLanguage,
		Error:            run.ErrorMessage,
		StartedAt:        run.StartedAt,
		FinishedAt:       run.FinishedAt,
	}
}

func renderHistoryTable(views []historyRunView) string {
	rows := make([][]string, 0, len(views))
	for _, v := range views {
		video := v.CanonicalID
		if video == "" {
			video = v.Reference
		}
		detail := v.Error
		if detail == "" && v.WarningCount > 0 {
			detail = fmt.Sprintf("%d warning(s)", v.WarningCount)
		}
		rows = append(rows, []string{
			v.StartedAt.Local().Format("2006-01-02 15:04"),
			video,
			v.Engine,
			v.Status,
			strconv.Itoa(v.ChunkCount),
			formatSeconds(v.AudioSeconds),
			formatSeconds(v.ElapsedSeconds),
			detail,
		})
	}
	return renderTable([]column{
		{Header: "Started"},
		{Header: "Video", MaxWidth: 40},
		{Header: "Engine"},
		{Header: "Status"},
		{Header: "Chunks", Align: alignRight},
		{Header: "Audio", Align: alignRight},
		{Header: "Elapsed", Align: alignRight},
		{Header: "Detail", MaxWidth: 48},
	}, rows)
}

func formatSeconds(seconds float64) string {
	if seconds <= 0 {
		return "-"
	}
	return (time.Duration(seconds * float64(time.Second))).Round(time.Second).String()
}
