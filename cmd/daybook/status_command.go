package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show daemon and queue status",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}
			status, err := client.Status(cmd.Context())
			if err != nil {
				return err
			}

			running := "stopped"
			if status.Running {
				running = "running"
			}
			workerState := "disabled"
			if status.WorkerEnabled {
				workerState = "enabled"
			}

			rows := [][]string{
				{"Daemon", running},
				{"Worker", workerState},
				{"Consumer", status.Consumer},
				{"Database", status.DatabasePath},
				{"Lock file", status.LockFilePath},
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Field", "Value"}, rows, nil))

			queueRows := [][]string{
				{"Pending", strconv.Itoa(status.Queue.Pending)},
				{"Active", strconv.Itoa(status.Queue.Active)},
				{"Completed", strconv.Itoa(status.Queue.Completed)},
				{"Failed", strconv.Itoa(status.Queue.Failed)},
				{"Total", strconv.Itoa(status.Queue.Total)},
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Queue", "Count"}, queueRows, []columnAlignment{alignLeft, alignRight}))
			return nil
		},
	}
}

func newHealthCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check that the daemon is reachable",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}
			if err := client.Health(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Daemon is healthy.")
			return nil
		},
	}
}
