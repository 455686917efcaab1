package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kottz/cgex/internal/config"
	"github.com/kottz/cgex/internal/deps"
	"github.com/kottz/cgex/internal/environment"
	"github.com/kottz/cgex/internal/logging"
	"github.com/kottz/cgex/internal/preflight"
	"github.com/kottz/cgex/internal/stage"
)

func newCheckCommand(ctx *commandContext) *cobra.Command {
	var replay bool

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Report directory access and required external programs",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)

			configLine := ctx.configPath
			if !ctx.configSeen {
				configLine += " (not found, defaults in use)"
			}
			fmt.Fprintln(out, renderStatusLine("Config", statusInfo, configLine, colorize))

			results := preflight.RunAll(cfg, replay)
			ok := writeCheckReport(out, cfg, results, replay, colorize)
			if !ok {
				return errors.New("check failed")
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&replay, "replay", false, "Only check what a replay run needs")
	return cmd
}

func writeCheckReport(out io.Writer, cfg *config.Config, results []preflight.Result, replay, colorize bool) bool {
	ok := true
	for _, line := range renderSectionHeader("Directories", colorize) {
		fmt.Fprintln(out, line)
	}
	for _, r := range results {
		kind := statusOK
		if !r.Passed {
			kind = statusError
			ok = false
		}
		fmt.Fprintln(out, renderStatusLine(r.Name, kind, r.Detail, colorize))
	}
	if replay {
		return ok
	}

	statuses := preflight.CheckSystemDeps(cfg)
	for _, line := range renderSectionHeader("Programs", colorize) {
		fmt.Fprintln(out, line)
	}
	for _, line := range dependencyLines(statuses, colorize) {
		fmt.Fprintln(out, line)
	}
	if len(deps.Missing(statuses)) > 0 {
		ok = false
	}

	supervisor := environment.NewSupervisor(environment.SettingsFromConfig(cfg), logging.NewNop())
	health := stage.CheckAll(context.Background(), supervisor)
	for _, line := range renderSectionHeader("Readiness", colorize) {
		fmt.Fprintln(out, line)
	}
	for _, h := range health {
		kind, detail := statusOK, "Ready"
		if !h.Ready {
			kind, detail = statusError, h.Detail
		}
		fmt.Fprintln(out, renderStatusLine(h.Name, kind, detail, colorize))
	}
	return ok && stage.AllReady(health)
}

func dependencyLines(statuses []deps.Status, colorize bool) []string {
	lines := make([]string, 0, len(statuses)+1)
	missing := make([]string, 0)
	for _, dep := range statuses {
		if dep.Available {
			message := "Ready"
			if dep.Path != "" {
				message = fmt.Sprintf("Ready (%s)", dep.Path)
			}
			lines = append(lines, renderStatusLine(dep.Name, statusOK, message, colorize))
			continue
		}

		detail := strings.TrimSpace(dep.Detail)
		if detail == "" {
			detail = "not available"
		}
		kind := statusError
		if dep.Optional {
			kind = statusWarn
		} else {
			missing = append(missing, dep.Name)
		}
		lines = append(lines, renderStatusLine(dep.Name, kind, detail, colorize))
	}
	if len(missing) > 0 {
		lines = append(lines, renderStatusLine("Missing programs", statusError, strings.Join(missing, ", "), colorize))
	}
	return lines
}
