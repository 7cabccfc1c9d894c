package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"talecraft/internal/store"
	"talecraft/internal/truth"
)

func nextCmd() *cobra.Command {
	var projectID string
	cmd := &cobra.Command{
		Use:   "next",
		Short: "Show the next pending question",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireProject(projectID); err != nil {
				return err
			}
			return runNext(cmd, projectID)
		},
	}
	cmd.Flags().StringVar(&projectID, "project", "", "Project id")
	return cmd
}

func runNext(cmd *cobra.Command, projectID string) error {
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
	next := project.Truth.Tree.NextPending()
	if next == nil {
		cmd.Println("no pending questions")
		return nil
	}
	cmd.Printf("[%s] (%s) %s\n", next.ID, next.EntityHint, next.Question)
	return nil
}

func questionsCmd() *cobra.Command {
	var projectID string
	var status string
	cmd := &cobra.Command{
		Use:   "questions",
		Short: "List questions by status",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireProject(projectID); err != nil {
				return err
			}
			return runQuestions(cmd, projectID, status)
		},
	}
	cmd.Flags().StringVar(&projectID, "project", "", "Project id")
	cmd.Flags().StringVar(&status, "status", truth.StatusPending, "Status to list: pending, partially_answered, or answered")
	return cmd
}

func runQuestions(cmd *cobra.Command, projectID, status string) error {
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

	var nodes []*truth.QuestionNode
	switch status {
	case truth.StatusPending:
		nodes = project.Truth.Tree.Pending()
	case truth.StatusPartiallyAnswered:
		nodes = project.Truth.Tree.PartiallyAnswered()
	case truth.StatusAnswered:
		nodes = project.Truth.Tree.Answered()
	default:
		return fmt.Errorf("unknown status: %s", status)
	}

	if len(nodes) == 0 {
		cmd.Printf("no %s questions\n", status)
		return nil
	}
	for _, n := range nodes {
		cmd.Printf("[%s] (%s) %s\n", n.ID, n.EntityHint, n.Question)
		if n.Answer != "" {
			cmd.Printf("    answer: %s\n", n.Answer)
		}
	}
	return nil
}

func clearCmd() *cobra.Command {
	var projectID string
	cmd := &cobra.Command{
		Use:   "clear <question-id>",
		Short: "Clear an answer and retract what was derived from it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireProject(projectID); err != nil {
				return err
			}
			return runClear(cmd, projectID, args[0])
		},
	}
	cmd.Flags().StringVar(&projectID, "project", "", "Project id")
	return cmd
}

func runClear(cmd *cobra.Command, projectID, nodeID string) error {
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
	if err := env.orch.ClearAnswer(project.Truth, nodeID); err != nil {
		return err
	}
	if err := store.SaveProject(ctx, env.db, project); err != nil {
		return err
	}
	cmd.Printf("question %s reset to pending\n", nodeID)
	return nil
}
