package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newViewsCommand(ctx *commandContext) *cobra.Command {
	viewsCmd := &cobra.Command{
		Use:   "views",
		Short: "Inspect materialized journal views",
	}
	viewsCmd.AddCommand(newCompassCommand(ctx))
	viewsCmd.AddCommand(newWinsCommand(ctx))
	return viewsCmd
}

func newCompassCommand(ctx *commandContext) *cobra.Command {
	var (
		userID string
		date   string
		limit  int
	)
	cmd := &cobra.Command{
		Use:   "compass",
		Short: "Show daily check-in documents",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}

			if date != "" {
				view, err := client.CompassByDate(cmd.Context(), userID, date)
				if err != nil {
					return err
				}
				rows := [][]string{
					{"Date", view.ViewDate},
					{"Mood", view.Mood},
					{"Energy", view.Energy},
					{"Main priority", view.MainPriority},
					{"Priority note", view.PriorityNote},
					{"Completion", view.Completion},
					{"Blocker", view.Blocker},
					{"Improvement", view.ImprovementNote},
					{"Reflection", view.ReflectionRef},
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Field", "Value"}, rows, nil))
				return nil
			}

			list, err := client.CompassViews(cmd.Context(), userID, limit)
			if err != nil {
				return err
			}
			if len(list) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No compass views for that user.")
				return nil
			}
			rows := make([][]string, 0, len(list))
			for _, view := range list {
				rows = append(rows, []string{view.ViewDate, view.Mood, view.Energy, view.MainPriority})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Date", "Mood", "Energy", "Main priority"}, rows, nil))
			return nil
		},
	}
	cmd.Flags().StringVar(&userID, "user", "", "User identifier")
	cmd.Flags().StringVar(&date, "date", "", "Specific date (YYYY-MM-DD)")
	cmd.Flags().IntVar(&limit, "limit", 14, "Number of days to list")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}

func newWinsCommand(ctx *commandContext) *cobra.Command {
	var (
		userID string
		limit  int
	)
	cmd := &cobra.Command{
		Use:   "wins",
		Short: "Show daily wins documents",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}
			list, err := client.WinsViews(cmd.Context(), userID, limit)
			if err != nil {
				return err
			}
			if len(list) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No wins recorded for that user.")
				return nil
			}
			rows := make([][]string, 0, len(list))
			for _, view := range list {
				rows = append(rows, []string{view.ViewDate, view.TitleRef, view.DescriptionRef})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Date", "Title event", "Description event"}, rows, nil))
			return nil
		},
	}
	cmd.Flags().StringVar(&userID, "user", "", "User identifier")
	cmd.Flags().IntVar(&limit, "limit", 14, "Number of days to list")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}
