package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"aaxconv/internal/deps"
	"aaxconv/internal/notifications"
	"aaxconv/internal/preflight"
)

func newCheckCommand(ctx *commandContext) *cobra.Command {
	var notify bool

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Check external tools, directories and the metadata service",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			if ctx.configSeen {
				fmt.Fprintf(out, "Config: %s\n", ctx.configPath)
			} else {
				fmt.Fprintf(out, "Config: %s (not found, using defaults)\n", ctx.configPath)
			}
			fmt.Fprintf(out, "Container: %s  Quality: %s  Workers: %d\n\n",
				cfg.Container(), cfg.Quality(), cfg.Encoding.Workers)

			statuses := preflight.CheckSystemDeps(cfg)
			rows := make([][]string, 0, len(statuses))
			for _, status := range statuses {
				rows = append(rows, []string{
					status.Name,
					binaryState(status),
					yesNo(!status.Optional),
					firstNonEmpty(status.Path, status.Command),
					firstNonEmpty(status.Detail, status.Description),
				})
			}
			fmt.Fprintln(out, renderTable(
				"Tools",
				[]string{"Tool", "Status", "Required", "Path", "Detail"},
				rows,
				nil,
			))

			results := preflight.RunAll(cmd.Context(), cfg)
			rows = rows[:0]
			failed := len(deps.Missing(statuses)) > 0
			for _, result := range results {
				state := "ok"
				if !result.Passed {
					state = "failed"
					failed = true
				}
				rows = append(rows, []string{result.Name, state, result.Detail})
			}
			fmt.Fprintln(out, renderTable("Environment", []string{"Check", "Status", "Detail"}, rows, nil))

			if notify {
				if err := notifications.NewService(cfg).TestNotification(cmd.Context()); err != nil {
					fmt.Fprintf(out, "Notification: failed (%v)\n", err)
					failed = true
				} else if cfg.Notifications.NtfyTopic == "" {
					fmt.Fprintln(out, "Notification: skipped (no ntfy_topic configured)")
				} else {
					fmt.Fprintln(out, "Notification: sent")
				}
			}

			if failed {
				return exitCodeError{code: 1}
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&notify, "notify", false, "Send a test notification")
	return cmd
}

func binaryState(status deps.Status) string {
	switch {
	case status.Available:
		return "ok"
	case status.Optional:
		return "absent"
	default:
		return "missing"
	}
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if value != "" {
			return value
		}
	}
	return ""
}
