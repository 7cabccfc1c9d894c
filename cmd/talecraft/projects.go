package main

import (
	"context"

	"github.com/spf13/cobra"
)

func projectsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "projects",
		Short: "Manage saved projects",
	}
	cmd.AddCommand(projectsListCmd())
	cmd.AddCommand(projectsDeleteCmd())
	return cmd
}

func projectsListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List saved projects",
		RunE:  runProjectsList,
	}
	return cmd
}

func runProjectsList(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	env, err := setup(ctx)
	if err != nil {
		return err
	}
	defer env.close(ctx)

	infos, err := env.db.ListProjects(ctx)
	if err != nil {
		return err
	}
	if len(infos) == 0 {
		cmd.Println("no projects saved")
		return nil
	}
	for _, info := range infos {
		cmd.Printf("%s  %s  (updated %s)\n", info.ID, info.Title, info.UpdatedAt.Format("2006-01-02 15:04"))
	}
	return nil
}

func projectsDeleteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete <project-id>",
		Short: "Delete a saved project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runProjectsDelete(cmd, args[0])
		},
	}
	return cmd
}

func runProjectsDelete(cmd *cobra.Command, projectID string) error {
	ctx := context.Background()

	env, err := setup(ctx)
	if err != nil {
		return err
	}
	defer env.close(ctx)

	if err := env.db.DeleteProject(ctx, projectID); err != nil {
		return err
	}
	cmd.Printf("deleted %s\n", projectID)
	return nil
}
