package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"talecraft/internal/store"
	"talecraft/internal/validate"
)

func checkCmd() *cobra.Command {
	var projectID string
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Report consistency issues in a project",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireProject(projectID); err != nil {
				return err
			}
			return runCheck(cmd, projectID)
		},
	}
	cmd.Flags().StringVar(&projectID, "project", "", "Project id")
	return cmd
}

func runCheck(cmd *cobra.Command, projectID string) error {
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
	report, err := validate.Run(project.Truth)
	if err != nil {
		return err
	}
	if len(report.Issues) == 0 {
		cmd.Println("no issues found")
		return nil
	}
	for _, issue := range report.Issues {
		cmd.Printf("%s [%s] %s\n", issue.Severity, issue.Code, issue.Message)
	}
	if report.HasErrors() {
		return fmt.Errorf("%d issues found", len(report.Issues))
	}
	return nil
}
