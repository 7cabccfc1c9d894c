package truth

import (
	"errors"
	"testing"
)

func TestInitTree(t *testing.T) {
	t.Run("seeds an answered root", func(t *testing.T) {
		kb := NewTruthKnowledgeBase()
		root, err := kb.InitTree("What is your story about?", "A heist in Venice.")
		if err != nil {
			t.Fatalf("initializing: %v", err)
		}
		if kb.Tree.RootID != root.ID {
			t.Fatalf("root id mismatch")
		}
		if root.Status != StatusAnswered || root.Answer == "" {
			t.Fatalf("expected answered root, got %+v", root)
		}
	})

	t.Run("without an answer the root stays pending", func(t *testing.T) {
		kb := NewTruthKnowledgeBase()
		root, err := kb.InitTree("What is your story about?", "")
		if err != nil {
			t.Fatalf("initializing: %v", err)
		}
		if root.Status != StatusPending {
			t.Fatalf("expected pending root, got %s", root.Status)
		}
	})

	t.Run("double init rejected", func(t *testing.T) {
		kb := NewTruthKnowledgeBase()
		if _, err := kb.InitTree("Q?", ""); err != nil {
			t.Fatalf("initializing: %v", err)
		}
		if _, err := kb.InitTree("Q?", ""); !errors.Is(err, ErrInvariantViolation) {
			t.Fatalf("expected ErrInvariantViolation, got %v", err)
		}
	})
}

func TestDeleteEntityCascades(t *testing.T) {
	kb := NewTruthKnowledgeBase()
	root, err := kb.InitTree("What is your story about?", "A heist.")
	if err != nil {
		t.Fatalf("initializing: %v", err)
	}

	finn, err := kb.Entities.Add(&Character{Name: "Finn"})
	if err != nil {
		t.Fatalf("adding: %v", err)
	}
	elena, err := kb.Entities.Add(&Character{Name: "Elena", Relationships: map[string]string{finn: "brother"}})
	if err != nil {
		t.Fatalf("adding: %v", err)
	}
	if err := kb.Tree.UpdateStatus(root.ID, StatusAnswered,
		EntityLink{EntityID: finn, SourceID: root.ID},
		EntityLink{EntityID: elena, SourceID: root.ID}); err != nil {
		t.Fatalf("linking: %v", err)
	}

	if err := kb.DeleteEntity(finn); err != nil {
		t.Fatalf("deleting: %v", err)
	}

	if kb.Entities.Has(finn) {
		t.Fatalf("entity still present")
	}
	node := kb.Tree.Nodes[root.ID]
	for _, l := range node.RelatedEntities {
		if l.EntityID == finn {
			t.Fatalf("tree link not retracted")
		}
	}
	if err := kb.Validate(); err != nil {
		t.Fatalf("expected consistent aggregate, got %v", err)
	}
}

func TestKnowledgeBaseValidate(t *testing.T) {
	t.Run("dangling relationship", func(t *testing.T) {
		kb := NewTruthKnowledgeBase()
		if _, err := kb.Entities.Add(&Character{Name: "Elena", Relationships: map[string]string{"char_missing": "rival"}}); err != nil {
			t.Fatalf("adding: %v", err)
		}
		if err := kb.Validate(); !errors.Is(err, ErrInvariantViolation) {
			t.Fatalf("expected ErrInvariantViolation, got %v", err)
		}
	})

	t.Run("dangling event involvement", func(t *testing.T) {
		kb := NewTruthKnowledgeBase()
		if _, err := kb.Entities.Add(&PlotEvent{Title: "The heist", CharactersInvolved: []string{"char_missing"}}); err != nil {
			t.Fatalf("adding: %v", err)
		}
		if err := kb.Validate(); !errors.Is(err, ErrInvariantViolation) {
			t.Fatalf("expected ErrInvariantViolation, got %v", err)
		}
	})

	t.Run("dangling tree link", func(t *testing.T) {
		kb := NewTruthKnowledgeBase()
		root, err := kb.InitTree("Q?", "")
		if err != nil {
			t.Fatalf("initializing: %v", err)
		}
		if err := kb.Tree.UpdateStatus(root.ID, StatusPartiallyAnswered, EntityLink{EntityID: "char_missing"}); err != nil {
			t.Fatalf("linking: %v", err)
		}
		if err := kb.Validate(); !errors.Is(err, ErrInvariantViolation) {
			t.Fatalf("expected ErrInvariantViolation, got %v", err)
		}
	})
}
