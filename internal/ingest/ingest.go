// Package ingest imports hand-authored entity files from a directory
// into a project's knowledge base.
package ingest

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"talecraft/internal/parser"
	"talecraft/internal/truth"
)

type Result struct {
	EntitiesAdded   int
	EntitiesUpdated int
	FilesSkipped    int
	Errors          []error
}

// Run walks dir for .md files and files each parsed entity into the
// knowledge base. An entity whose name already exists (same type) is
// merged rather than duplicated. Individual file failures are collected
// and do not abort the run.
func Run(dir string, kb *truth.TruthKnowledgeBase) (*Result, error) {
	result := &Result{}

	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(strings.ToLower(path), ".md") {
			return nil
		}

		doc, err := parser.ParseFile(path)
		if err != nil {
			result.FilesSkipped++
			result.Errors = append(result.Errors, fmt.Errorf("%s: %w", path, err))
			return nil
		}

		entity, err := doc.Entity()
		if err != nil {
			result.FilesSkipped++
			result.Errors = append(result.Errors, fmt.Errorf("%s: %w", path, err))
			return nil
		}

		if existing, ok := kb.Entities.FindByName(doc.Name); ok && existing.EntityType() == doc.EntityType {
			if err := kb.Entities.Update(existing.EntityID(), entity); err != nil {
				result.Errors = append(result.Errors, fmt.Errorf("%s: %w", path, err))
				return nil
			}
			result.EntitiesUpdated++
			return nil
		}

		if _, err := kb.Entities.Add(entity); err != nil {
			result.Errors = append(result.Errors, fmt.Errorf("%s: %w", path, err))
			return nil
		}
		result.EntitiesAdded++
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking %s: %w", dir, err)
	}

	if result.EntitiesAdded+result.EntitiesUpdated > 0 {
		kb.Touch()
	}
	return result, nil
}
