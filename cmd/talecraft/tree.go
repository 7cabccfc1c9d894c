package main

import (
	"context"
	"strings"

	"github.com/spf13/cobra"

	"talecraft/internal/store"
	"talecraft/internal/truth"
)

func treeCmd() *cobra.Command {
	var projectID string
	cmd := &cobra.Command{
		Use:   "tree",
		Short: "Show the question tree",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireProject(projectID); err != nil {
				return err
			}
			return runTree(cmd, projectID)
		},
	}
	cmd.Flags().StringVar(&projectID, "project", "", "Project id")
	return cmd
}

func runTree(cmd *cobra.Command, projectID string) error {
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
	summary, err := project.Truth.Tree.Summarize()
	if err != nil {
		return err
	}
	printSummary(cmd, summary, 0)
	return nil
}

func printSummary(cmd *cobra.Command, s truth.Summary, depth int) {
	marker := " "
	switch s.Status {
	case truth.StatusPartiallyAnswered:
		marker = "~"
	case truth.StatusAnswered:
		marker = "x"
	}
	cmd.Printf("%s[%s] %s  (%s)\n", strings.Repeat("  ", depth), marker, s.Question, s.ID)
	for _, child := range s.Children {
		printSummary(cmd, child, depth+1)
	}
}
