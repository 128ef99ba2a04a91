package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"vidscribe/internal/config"
	"vidscribe/internal/deps"
	"vidscribe/internal/language"
	"vidscribe/internal/preflight"
)

type statusReport struct {
	ConfigPath   string             `json:"config_path,omitempty"`
	Engine       string             `json:"engine"`
	Language     string             `json:"language"`
	Dependencies []dependencyView   `json:"dependencies"`
	Checks       []preflight.Result `json:"checks"`
}

type dependencyView struct {
	Name      string `json:"name"`
	Command   string `json:"command"`
	Path      string `json:"path,omitempty"`
	Version   string `json:"version,omitempty"`
	Optional  bool   `json:"optional"`
	Available bool   `json:"available"`
	Detail    string `json:"detail,omitempty"`
}

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var network bool
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Check external dependencies, directories and engine readiness",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			report := buildStatusReport(cmd, cfg, network)
			if jsonOutput {
				if err := writeJSON(cmd, report); err != nil {
					return err
				}
			} else {
				printStatusReport(cmd, report)
			}
			if !reportHealthy(report) {
				return errors.New("one or more required checks failed")
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&network, "network", false, "Also contact the remote engine to verify the API key")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print the report as JSON")
	return cmd
}

func buildStatusReport(cmd *cobra.Command, cfg *config.Config, network bool) statusReport {
	report := statusReport{
		ConfigPath: strings.TrimSpace(configPathHint(cmd)),
		Engine:     cfg.Engine.Profile,
		Language:   language.DisplayName(cfg.Engine.Language),
	}
	for _, s := range preflight.CheckSystemDeps(cmd.Context(), cfg) {
		report.Dependencies = append(report.Dependencies, newDependencyView(s))
	}
	report.Checks = preflight.RunAll(cmd.Context(), cfg, preflight.Options{Network: network})
	return report
}

func configPathHint(cmd *cobra.Command) string {
	flag := cmd.Flags().Lookup("config")
	if flag != nil && flag.Value.String() != "" {
		return flag.Value.String()
	}
	path, err := config.DefaultConfigPath()
	if err != nil {
		return ""
	}
	return path
}

func newDependencyView(s deps.Status) dependencyView {
	return dependencyView{
		Name:      s.Name,
		Command:   s.Command,
		Path:      s.Path,
		Version:   s.Version,
		Optional:  s.Optional,
		Available: s.Available,
		Detail:    s.Detail,
	}
}

func reportHealthy(report statusReport) bool {
	for _, d := range report.Dependencies {
		if !d.Available && !d.Optional {
			return false
		}
	}
	return len(preflight.Failed(report.Checks)) == 0
}

// checkState is the outcome shown next to a status line.
type checkState int

const (
	stateInfo checkState = iota
	statePassed
	stateFailed
)

var checkStateStyles = map[checkState]struct {
	tag   string
	color text.Colors
}{
	stateInfo:   {tag: "", color: text.Colors{text.FgHiBlack}},
	statePassed: {tag: "ok", color: text.Colors{text.FgGreen}},
	stateFailed: {tag: "FAIL", color: text.Colors{text.FgRed, text.Bold}},
}

const statusLabelWidth = 20

func statusLine(label string, state checkState, detail string, colorize bool) string {
	style := checkStateStyles[state]
	tag := fmt.Sprintf("%-4s", style.tag)
	if colorize && style.tag != "" {
		tag = style.color.Sprint(tag)
	}
	return strings.TrimRight(fmt.Sprintf("  %-*s %s %s", statusLabelWidth, label, tag, detail), " ")
}

func sectionTitle(title string, colorize bool) string {
	if colorize {
		return text.Colors{text.Bold}.Sprint(title)
	}
	return title
}

func printStatusReport(cmd *cobra.Command, report statusReport) {
	out := cmd.OutOrStdout()
	colorize := isTerminal(out)

	lines := []string{sectionTitle("vidscribe", colorize)}
	if report.ConfigPath != "" {
		lines = append(lines, statusLine("config", stateInfo, report.ConfigPath, colorize))
	}
	lines = append(lines,
		statusLine("engine", stateInfo, report.Engine, colorize),
		statusLine("language", stateInfo, report.Language, colorize),
		"",
		sectionTitle("External tools", colorize),
	)
	fmt.Fprintln(out, strings.Join(lines, "\n"))

	rows := make([][]string, 0, len(report.Dependencies))
	for _, d := range report.Dependencies {
		state := "available"
		if !d.Available {
			state = "missing"
			if d.Optional {
				state = "missing (optional)"
			}
		}
		location := d.Path
		if location == "" {
			location = d.Command
		}
		rows = append(rows, []string{d.Name, location, d.Version, state, d.Detail})
	}
	fmt.Fprintln(out, renderTable([]column{
		{Header: "Name"},
		{Header: "Command", MaxWidth: 40},
		{Header: "Version", MaxWidth: 32},
		{Header: "Status"},
		{Header: "Detail", MaxWidth: 40},
	}, rows))

	lines = []string{"", sectionTitle("Readiness", colorize)}
	for _, check := range report.Checks {
		state := statePassed
		if !check.Passed {
			state = stateFailed
		}
		lines = append(lines, statusLine(check.Name, state, check.Detail, colorize))
	}
	fmt.Fprintln(out, strings.Join(lines, "\n"))
}

// writeJSON prints v as indented JSON on the command's stdout.
func writeJSON(cmd *cobra.Command, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode json: %w", err)
	}
	_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s\n", data)
	return err
}
