package ingest

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"talecraft/internal/truth"
)

func writeFixture(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}
}

func TestRun(t *testing.T) {
	t.Run("imports a directory", func(t *testing.T) {
		dir := t.TempDir()
		writeFixture(t, dir, "elena.md", "---\nname: Elena\ntype: character\nrole: protagonist\n---\n\nA thief.\n")
		writeFixture(t, dir, "venice.md", "---\nname: Venice\ntype: setting\nkind: city\n---\n")
		writeFixture(t, dir, "notes.txt", "not an entity file")

		sub := filepath.Join(dir, "events")
		if err := os.Mkdir(sub, 0o755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
		writeFixture(t, sub, "heist.md", "---\nname: The heist\ntype: plot_event\n---\n")

		kb := truth.NewTruthKnowledgeBase()
		result, err := Run(dir, kb)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if result.EntitiesAdded != 3 || result.EntitiesUpdated != 0 {
			t.Fatalf("unexpected result: %+v", result)
		}
		if len(result.Errors) != 0 {
			t.Fatalf("unexpected errors: %v", result.Errors)
		}
		if kb.Entities.Len() != 3 {
			t.Fatalf("expected 3 entities, got %d", kb.Entities.Len())
		}
		if _, ok := kb.Entities.FindByName("Elena"); !ok {
			t.Fatalf("Elena not imported")
		}
	})

	t.Run("merges by name on re-import", func(t *testing.T) {
		dir := t.TempDir()
		writeFixture(t, dir, "elena.md", "---\nname: Elena\ntype: character\n---\n\nA thief.\n")

		kb := truth.NewTruthKnowledgeBase()
		if _, err := Run(dir, kb); err != nil {
			t.Fatalf("first run: %v", err)
		}
		writeFixture(t, dir, "elena2.md", "---\nname: elena\ntype: character\nrole: protagonist\n---\n\nShe fears heights.\n")
		result, err := Run(dir, kb)
		if err != nil {
			t.Fatalf("second run: %v", err)
		}
		if result.EntitiesUpdated != 2 || result.EntitiesAdded != 0 {
			t.Fatalf("unexpected result: %+v", result)
		}
		if kb.Entities.Len() != 1 {
			t.Fatalf("duplicate created")
		}
		e, _ := kb.Entities.FindByName("Elena")
		c := e.(*truth.Character)
		if c.Role != "protagonist" || !strings.Contains(c.Description, "She fears heights.") {
			t.Fatalf("not merged: %+v", c)
		}
	})

	t.Run("bad files are skipped, not fatal", func(t *testing.T) {
		dir := t.TempDir()
		writeFixture(t, dir, "good.md", "---\nname: Venice\ntype: setting\n---\n")
		writeFixture(t, dir, "bad.md", "no frontmatter here")
		writeFixture(t, dir, "worse.md", "---\ntype: character\n---\n")

		kb := truth.NewTruthKnowledgeBase()
		result, err := Run(dir, kb)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if result.EntitiesAdded != 1 || result.FilesSkipped != 2 {
			t.Fatalf("unexpected result: %+v", result)
		}
		if len(result.Errors) != 2 {
			t.Fatalf("expected 2 collected errors, got %v", result.Errors)
		}
	})

	t.Run("missing directory", func(t *testing.T) {
		kb := truth.NewTruthKnowledgeBase()
		if _, err := Run(filepath.Join(t.TempDir(), "absent"), kb); err == nil {
			t.Fatalf("expected error")
		}
	})
}
