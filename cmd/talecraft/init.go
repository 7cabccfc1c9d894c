package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"talecraft/internal/config"
	"talecraft/internal/store"
	"talecraft/internal/truth"
)

func initCmd() *cobra.Command {
	var title string
	var description string
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create a new project and its question tree",
		RunE: func(cmd *cobra.Command, args []string) error {
			if title == "" {
				return fmt.Errorf("--title is required")
			}
			return runInit(cmd, title, description)
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "Project title")
	cmd.Flags().StringVar(&description, "description", "", "What the story is about; seeds the root answer")
	return cmd
}

func runInit(cmd *cobra.Command, title, description string) error {
	ctx := context.Background()

	if _, err := os.Stat(configFile); os.IsNotExist(err) {
		if err := config.WriteDefault(configFile, title); err != nil {
			return err
		}
		cmd.Printf("wrote %s\n", configFile)
	}

	env, err := setup(ctx)
	if err != nil {
		return err
	}
	defer env.close(ctx)

	project, err := truth.NewProject(title, description)
	if err != nil {
		return err
	}
	delta, err := env.orch.Initialize(ctx, project.Truth, description)
	if err != nil {
		return err
	}
	if err := store.SaveProject(ctx, env.db, project); err != nil {
		return err
	}

	cmd.Printf("created project %s\n", project.ID)
	printDelta(cmd, delta)
	if next := project.Truth.Tree.NextPending(); next != nil {
		cmd.Printf("next question [%s]: %s\n", next.ID, next.Question)
	}
	return nil
}
