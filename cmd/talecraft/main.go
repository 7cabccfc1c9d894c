package main

import (
	"os"

	"github.com/spf13/cobra"
)

func main() {
	root := &cobra.Command{
		Use:   "talecraft",
		Short: "Adaptive question-and-answer world building for writers",
	}
	root.Version = version
	root.SetVersionTemplate("{{.Version}}\n")
	root.AddCommand(initCmd())
	root.AddCommand(answerCmd())
	root.AddCommand(nextCmd())
	root.AddCommand(questionsCmd())
	root.AddCommand(clearCmd())
	root.AddCommand(treeCmd())
	root.AddCommand(entityCmd())
	root.AddCommand(searchCmd())
	root.AddCommand(projectsCmd())
	root.AddCommand(importCmd())
	root.AddCommand(checkCmd())
	root.AddCommand(serveCmd())
	root.AddCommand(versionCmd())
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}
