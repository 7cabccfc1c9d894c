package main

import (
	"context"

	"github.com/spf13/cobra"

	"talecraft/internal/ingest"
	"talecraft/internal/store"
)

func importCmd() *cobra.Command {
	var projectID string
	cmd := &cobra.Command{
		Use:   "import <dir>",
		Short: "Import entity markdown files into the truth store",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireProject(projectID); err != nil {
				return err
			}
			return runImport(cmd, projectID, args[0])
		},
	}
	cmd.Flags().StringVar(&projectID, "project", "", "Project id")
	return cmd
}

func runImport(cmd *cobra.Command, projectID, dir string) error {
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
	result, err := ingest.Run(dir, project.Truth)
	if err != nil {
		return err
	}
	if err := store.SaveProject(ctx, env.db, project); err != nil {
		return err
	}

	cmd.Printf("added %d, updated %d, skipped %d\n",
		result.EntitiesAdded, result.EntitiesUpdated, result.FilesSkipped)
	for _, e := range result.Errors {
		cmd.Printf("warning: %s\n", e)
	}
	return nil
}
