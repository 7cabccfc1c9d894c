package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"talecraft/internal/store"
	"talecraft/internal/truth"
)

func entityCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "entity",
		Short: "Inspect and manage truth entities",
	}
	cmd.AddCommand(entityListCmd())
	cmd.AddCommand(entityGetCmd())
	cmd.AddCommand(entityAddCmd())
	cmd.AddCommand(entitySetCmd())
	cmd.AddCommand(entityDeleteCmd())
	return cmd
}

func entityListCmd() *cobra.Command {
	var projectID string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List entities in insertion order",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireProject(projectID); err != nil {
				return err
			}
			return runEntityList(cmd, projectID)
		},
	}
	cmd.Flags().StringVar(&projectID, "project", "", "Project id")
	return cmd
}

func runEntityList(cmd *cobra.Command, projectID string) error {
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
	entities := project.Truth.Entities.All()
	if len(entities) == 0 {
		cmd.Println("no entities yet")
		return nil
	}
	for _, e := range entities {
		cmd.Printf("%s (%s) %s\n", e.EntityID(), e.EntityType(), e.DisplayName())
	}
	return nil
}

func entityGetCmd() *cobra.Command {
	var projectID string
	cmd := &cobra.Command{
		Use:   "get <entity-id>",
		Short: "Show one entity as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireProject(projectID); err != nil {
				return err
			}
			return runEntityGet(cmd, projectID, args[0])
		},
	}
	cmd.Flags().StringVar(&projectID, "project", "", "Project id")
	return cmd
}

func runEntityGet(cmd *cobra.Command, projectID, entityID string) error {
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
	entity, err := project.Truth.Entities.Get(entityID)
	if err != nil {
		return err
	}
	out, err := json.MarshalIndent(entity, "", "  ")
	if err != nil {
		return err
	}
	cmd.Println(string(out))
	return nil
}

func entityAddCmd() *cobra.Command {
	var projectID, entityType, description string
	var traits []string
	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Add an entity by hand",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireProject(projectID); err != nil {
				return err
			}
			return runEntityAdd(cmd, projectID, entityType, args[0], description, traits)
		},
	}
	cmd.Flags().StringVar(&projectID, "project", "", "Project id")
	cmd.Flags().StringVar(&entityType, "type", truth.TypeCharacter, "Entity type (character, plot_event, setting)")
	cmd.Flags().StringVar(&description, "description", "", "Initial description")
	cmd.Flags().StringSliceVar(&traits, "trait", nil, "Character trait (repeatable)")
	return cmd
}

func runEntityAdd(cmd *cobra.Command, projectID, entityType, name, description string, traits []string) error {
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

	var entity truth.Entity
	switch entityType {
	case truth.TypeCharacter:
		entity = &truth.Character{Name: name, Description: description, Traits: traits}
	case truth.TypePlotEvent:
		entity = &truth.PlotEvent{Title: name, Description: description}
	case truth.TypeSetting:
		entity = &truth.Setting{Name: name, Description: description}
	default:
		return fmt.Errorf("unknown entity type %q", entityType)
	}

	id, err := project.Truth.Entities.Add(entity)
	if err != nil {
		return err
	}
	if err := store.SaveProject(ctx, env.db, project); err != nil {
		return err
	}
	cmd.Printf("added %s (%s) %s\n", id, entityType, name)
	return nil
}

func entitySetCmd() *cobra.Command {
	var projectID, description string
	var traits []string
	cmd := &cobra.Command{
		Use:   "set <entity-id>",
		Short: "Merge fields into an existing entity",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireProject(projectID); err != nil {
				return err
			}
			if description == "" && len(traits) == 0 {
				return fmt.Errorf("nothing to set: pass --description or --trait")
			}
			return runEntitySet(cmd, projectID, args[0], description, traits)
		},
	}
	cmd.Flags().StringVar(&projectID, "project", "", "Project id")
	cmd.Flags().StringVar(&description, "description", "", "Description text to merge")
	cmd.Flags().StringSliceVar(&traits, "trait", nil, "Character trait to merge (repeatable)")
	return cmd
}

func runEntitySet(cmd *cobra.Command, projectID, entityID, description string, traits []string) error {
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
	existing, err := project.Truth.Entities.Get(entityID)
	if err != nil {
		return err
	}

	// Patch type must match the stored record for Update to merge it.
	var patch truth.Entity
	switch existing.EntityType() {
	case truth.TypeCharacter:
		patch = &truth.Character{Name: existing.DisplayName(), Description: description, Traits: traits}
	case truth.TypePlotEvent:
		patch = &truth.PlotEvent{Title: existing.DisplayName(), Description: description}
	case truth.TypeSetting:
		patch = &truth.Setting{Name: existing.DisplayName(), Description: description}
	}

	if err := project.Truth.Entities.Update(entityID, patch); err != nil {
		return err
	}
	if err := store.SaveProject(ctx, env.db, project); err != nil {
		return err
	}
	cmd.Printf("updated %s\n", entityID)
	return nil
}

func entityDeleteCmd() *cobra.Command {
	var projectID string
	cmd := &cobra.Command{
		Use:   "delete <entity-id>",
		Short: "Delete an entity and every reference to it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireProject(projectID); err != nil {
				return err
			}
			return runEntityDelete(cmd, projectID, args[0])
		},
	}
	cmd.Flags().StringVar(&projectID, "project", "", "Project id")
	return cmd
}

func runEntityDelete(cmd *cobra.Command, projectID, entityID string) error {
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
	if err := project.Truth.DeleteEntity(entityID); err != nil {
		return err
	}
	if err := store.SaveProject(ctx, env.db, project); err != nil {
		return err
	}
	cmd.Printf("deleted %s\n", entityID)
	return nil
}
