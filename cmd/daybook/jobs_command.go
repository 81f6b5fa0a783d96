package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

func newJobsCommand(ctx *commandContext) *cobra.Command {
	jobsCmd := &cobra.Command{
		Use:   "jobs",
		Short: "Inspect and submit transcription jobs",
	}
	jobsCmd.AddCommand(newJobsListCommand(ctx))
	jobsCmd.AddCommand(newJobsShowCommand(ctx))
	jobsCmd.AddCommand(newJobsAddCommand(ctx))
	return jobsCmd
}

func newJobsListCommand(ctx *commandContext) *cobra.Command {
	var token string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List jobs for a correlation token",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}
			snapshots, err := client.JobsByToken(cmd.Context(), token)
			if err != nil {
				return err
			}
			if len(snapshots) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No jobs for that token.")
				return nil
			}

			rows := make([][]string, 0, len(snapshots))
			for _, snap := range snapshots {
				rows = append(rows, []string{
					strconv.FormatInt(snap.JobID, 10),
					snap.StageID,
					snap.Status,
					strconv.Itoa(snap.Progress) + "%",
					formatDuration(snap.DurationMS),
				})
			}
			headers := []string{"ID", "Stage", "Status", "Progress", "Audio"}
			aligns := []columnAlignment{alignRight, alignLeft, alignLeft, alignRight, alignRight}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(headers, rows, aligns))
			return nil
		},
	}
	cmd.Flags().StringVar(&token, "token", "", "Correlation token to look up")
	_ = cmd.MarkFlagRequired("token")
	return cmd
}

func newJobsShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show one job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid job id %q", args[0])
			}
			client, err := ctx.client()
			if err != nil {
				return err
			}
			snap, err := client.JobByID(cmd.Context(), id)
			if err != nil {
				return err
			}

			rows := [][]string{
				{"ID", strconv.FormatInt(snap.JobID, 10)},
				{"Stage", snap.StageID},
				{"Status", snap.Status},
				{"Progress", strconv.Itoa(snap.Progress) + "%"},
				{"Audio", formatDuration(snap.DurationMS)},
				{"Created", snap.CreatedAt.Local().Format("2006-01-02 15:04:05")},
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Field", "Value"}, rows, nil))
			return nil
		},
	}
}

func newJobsAddCommand(ctx *commandContext) *cobra.Command {
	var (
		responseRef string
		locator     string
		stageID     string
		token       string
		durationMS  int64
	)
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Submit an audio answer for transcription",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}
			var result struct {
				Queued   bool  `json:"queued"`
				JobID    int64 `json:"jobId"`
				Priority int   `json:"priority"`
			}
			err = client.post(cmd.Context(), "/api/jobs", map[string]any{
				"responseRef":      responseRef,
				"audioLocator":     locator,
				"stageId":          stageID,
				"correlationToken": token,
				"durationMs":       durationMS,
			}, &result)
			if err != nil {
				return err
			}
			if !result.Queued {
				fmt.Fprintln(cmd.OutOrStdout(), "Job was not queued (queue disabled or submission rejected).")
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Queued job %d with priority %d.\n", result.JobID, result.Priority)
			return nil
		},
	}
	cmd.Flags().StringVar(&responseRef, "response", "", "Response record reference")
	cmd.Flags().StringVar(&locator, "audio", "", "Audio locator URL")
	cmd.Flags().StringVar(&stageID, "stage", "", "Stage identifier")
	cmd.Flags().StringVar(&token, "token", "", "Correlation token")
	cmd.Flags().Int64Var(&durationMS, "duration-ms", 0, "Audio duration in milliseconds")
	_ = cmd.MarkFlagRequired("response")
	_ = cmd.MarkFlagRequired("audio")
	return cmd
}

func formatDuration(durationMS int64) string {
	if durationMS <= 0 {
		return "-"
	}
	seconds := durationMS / 1000
	if seconds < 60 {
		return fmt.Sprintf("%ds", seconds)
	}
	return fmt.Sprintf("%dm%02ds", seconds/60, seconds%60)
}
