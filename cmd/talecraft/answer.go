package main

import (
	"context"
	"strings"

	"github.com/spf13/cobra"

	"talecraft/internal/store"
	"talecraft/internal/worldbuild"
)

func answerCmd() *cobra.Command {
	var projectID string
	var nodeID string
	cmd := &cobra.Command{
		Use:   "answer <text>",
		Short: "Answer a question and run a reconciliation cycle",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireProject(projectID); err != nil {
				return err
			}
			return runAnswer(cmd, projectID, nodeID, strings.Join(args, " "))
		},
	}
	cmd.Flags().StringVar(&projectID, "project", "", "Project id")
	cmd.Flags().StringVar(&nodeID, "question", "", "Question node id; defaults to the next pending question")
	return cmd
}

func runAnswer(cmd *cobra.Command, projectID, nodeID, answer string) error {
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
	if nodeID == "" {
		next := project.Truth.Tree.NextPending()
		if next == nil {
			cmd.Println("no pending questions; pass --question to re-answer one")
			return nil
		}
		nodeID = next.ID
	}

	delta, err := env.orch.AnswerQuestion(ctx, project.Truth, nodeID, answer)
	if err != nil {
		return err
	}
	if err := store.SaveProject(ctx, env.db, project); err != nil {
		return err
	}

	printDelta(cmd, delta)
	if next := project.Truth.Tree.NextPending(); next != nil {
		cmd.Printf("next question [%s]: %s\n", next.ID, next.Question)
	}
	return nil
}

func printDelta(cmd *cobra.Command, delta *worldbuild.Delta) {
	if delta.Degraded {
		cmd.Printf("degraded cycle: %s\n", delta.Warning)
	}
	for _, id := range delta.TouchedEntities {
		cmd.Printf("entity touched: %s\n", id)
	}
	for _, update := range delta.UpdatedNodes {
		cmd.Printf("question %s: %s -> %s\n", update.NodeID, update.OldStatus, update.NewStatus)
	}
	for _, q := range delta.NewQuestions {
		cmd.Printf("new question [%s] (%s): %s\n", q.ID, q.EntityHint, q.Question)
	}
}
