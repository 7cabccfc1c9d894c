package main

import (
	"context"
	"strings"

	"github.com/spf13/cobra"

	"talecraft/internal/store"
)

func searchCmd() *cobra.Command {
	var projectID string
	cmd := &cobra.Command{
		Use:   "search <text>",
		Short: "Search entities by name and field text",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireProject(projectID); err != nil {
				return err
			}
			return runSearch(cmd, projectID, strings.Join(args, " "))
		},
	}
	cmd.Flags().StringVar(&projectID, "project", "", "Project id")
	return cmd
}

func runSearch(cmd *cobra.Command, projectID, query string) error {
	ctx := context.Background()

	env, err := setup(ctx)
	if err != nil {
		return err
	}
	defer env.close(ctx)

	project, err := store.LoadProject(ctx, env.db, projectID)
	if err != nil {
		return err
	}
	results, err := project.Truth.Entities.Search(query)
	if err != nil {
		return err
	}
	if len(results) == 0 {
		cmd.Println("No matches found.")
		return nil
	}
	for _, r := range results {
		cmd.Printf("%s (%s) %s  matched on %s\n", r.ID, r.EntityType, r.Name, r.Field)
	}
	return nil
}
