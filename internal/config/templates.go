package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Templates configures the rule-based question generator used when the
// oracle is unavailable, and the root question asked at project
// inception. A project can override the defaults with a templates.yaml.
type Templates struct {
	Version      int                 `yaml:"version"`
	RootQuestion string              `yaml:"root_question"`
	Fallback     map[string][]string `yaml:"fallback"`
}

// DefaultTemplates are the built-in fallback questions per entity-type
// hint.
func DefaultTemplates() *Templates {
	return &Templates{
		Version:      1,
		RootQuestion: "What is your story about?",
		Fallback: map[string][]string{
			"character": {
				"What is the main character's name and background?",
				"What motivates the main character?",
				"What are the main character's key traits and personality?",
			},
			"plot_event": {
				"What is the central conflict or challenge?",
				"What are the major plot points or turning events?",
				"How does the story begin?",
			},
			"setting": {
				"Where does the story take place?",
				"What is unique about this world or setting?",
				"What are the key locations in your story?",
			},
			"general": {
				"What themes does your story explore?",
				"Who is the intended audience?",
			},
		},
	}
}

func LoadTemplates(path string) (*Templates, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("loading templates: %w", err)
	}

	var tpl Templates
	if err := yaml.Unmarshal(data, &tpl); err != nil {
		return nil, fmt.Errorf("loading templates: %w", err)
	}

	if err := validateTemplates(&tpl); err != nil {
		return nil, fmt.Errorf("loading templates: %w", err)
	}

	return &tpl, nil
}

func validateTemplates(t *Templates) error {
	if t.Version != 1 {
		return fmt.Errorf("unsupported version: %d", t.Version)
	}
	if strings.TrimSpace(t.RootQuestion) == "" {
		t.RootQuestion = DefaultTemplates().RootQuestion
	}
	if len(t.Fallback) == 0 {
		return fmt.Errorf("at least one fallback block is required")
	}
	for hint, questions := range t.Fallback {
		switch hint {
		case "character", "plot_event", "setting", "general":
		default:
			return fmt.Errorf("unknown entity hint: %s", hint)
		}
		if len(questions) == 0 {
			return fmt.Errorf("fallback block %s is empty", hint)
		}
		for i, q := range questions {
			if strings.TrimSpace(q) == "" {
				return fmt.Errorf("fallback block %s question %d is empty", hint, i)
			}
		}
	}
	return nil
}

// QuestionsFor returns the fallback questions for the given hint,
// falling back to the general block for unknown hints.
func (t *Templates) QuestionsFor(hint string) []string {
	if qs, ok := t.Fallback[hint]; ok {
		return qs
	}
	return t.Fallback["general"]
}
