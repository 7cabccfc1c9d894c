// Package parser reads entity files: markdown documents with a YAML
// frontmatter block describing a character, plot event, or setting, and
// a body used as the description. The import command feeds these to the
// knowledge base for writers who author entities by hand.
package parser

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"talecraft/internal/truth"
)

type Document struct {
	Frontmatter map[string]any
	Name        string
	EntityType  string
	Body        string
	SourceFile  string
}

var (
	ErrNoFrontmatter = errors.New("no frontmatter found")
	ErrInvalidYAML   = errors.New("invalid YAML in frontmatter")
	ErrMissingName   = errors.New("frontmatter missing required 'name' field")
	ErrUnknownType   = errors.New("frontmatter 'type' must be character, plot_event, or setting")
)

func ParseFile(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	doc, err := Parse(data)
	if err != nil {
		return nil, err
	}
	doc.SourceFile = path
	return doc, nil
}

func Parse(content []byte) (*Document, error) {
	trimmed := bytes.TrimLeft(content, "\uFEFF\n\r\t ")
	if !bytes.HasPrefix(trimmed, []byte("---\n")) {
		return nil, ErrNoFrontmatter
	}

	rest := trimmed[len("---\n"):]
	end := bytes.Index(rest, []byte("---\n"))
	if end == -1 {
		return nil, ErrNoFrontmatter
	}

	yamlBytes := rest[:end]
	body := strings.TrimSpace(string(rest[end+len("---\n"):]))

	var frontmatter map[string]any
	if err := yaml.Unmarshal(yamlBytes, &frontmatter); err != nil {
		return nil, ErrInvalidYAML
	}

	name, ok := frontmatter["name"].(string)
	if !ok || strings.TrimSpace(name) == "" {
		return nil, ErrMissingName
	}

	entityType, _ := frontmatter["type"].(string)
	switch entityType {
	case truth.TypeCharacter, truth.TypePlotEvent, truth.TypeSetting:
	default:
		return nil, ErrUnknownType
	}

	return &Document{
		Frontmatter: frontmatter,
		Name:        name,
		EntityType:  entityType,
		Body:        body,
	}, nil
}

// Entity converts the parsed document into a typed record. The body
// becomes the description; the remaining fields come from frontmatter.
func (d *Document) Entity() (truth.Entity, error) {
	switch d.EntityType {
	case truth.TypeCharacter:
		traits, err := stringList(d.Frontmatter["traits"], "traits")
		if err != nil {
			return nil, err
		}
		motivations, err := stringList(d.Frontmatter["motivations"], "motivations")
		if err != nil {
			return nil, err
		}
		c := &truth.Character{
			Name:        d.Name,
			Description: d.Body,
			Traits:      traits,
			Motivations: motivations,
		}
		c.Role, _ = d.Frontmatter["role"].(string)
		c.Backstory, _ = d.Frontmatter["backstory"].(string)
		c.PhysicalDescription, _ = d.Frontmatter["physical_description"].(string)
		return c, nil
	case truth.TypePlotEvent:
		e := &truth.PlotEvent{
			Title:       d.Name,
			Description: d.Body,
		}
		e.Timestamp, _ = d.Frontmatter["timestamp"].(string)
		e.Significance, _ = d.Frontmatter["significance"].(string)
		if order, ok := d.Frontmatter["order"].(int); ok {
			e.Order = order
		}
		return e, nil
	case truth.TypeSetting:
		rules, err := stringList(d.Frontmatter["rules"], "rules")
		if err != nil {
			return nil, err
		}
		s := &truth.Setting{
			Name:        d.Name,
			Description: d.Body,
			Rules:       rules,
		}
		s.Kind, _ = d.Frontmatter["kind"].(string)
		return s, nil
	}
	return nil, ErrUnknownType
}

func stringList(value any, field string) ([]string, error) {
	if value == nil {
		return nil, nil
	}
	switch v := value.(type) {
	case string:
		if strings.TrimSpace(v) == "" {
			return nil, nil
		}
		return []string{v}, nil
	case []any:
		items := make([]string, 0, len(v))
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("%s must be strings", field)
			}
			if strings.TrimSpace(s) == "" {
				continue
			}
			items = append(items, s)
		}
		if len(items) == 0 {
			return nil, nil
		}
		return items, nil
	default:
		return nil, fmt.Errorf("%s must be string or list of strings", field)
	}
}
