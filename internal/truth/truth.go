package truth

import (
	"fmt"
	"time"
)

// TruthKnowledgeBase is the single source of truth for one project: the
// entity collections plus the question tree. Callers mutate it only
// through its methods (and the methods of the members it owns), so the
// cross-references between tree and store cannot drift.
type TruthKnowledgeBase struct {
	Entities *EntityStore  `json:"entities"`
	Tree     *QuestionTree `json:"question_tree,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func NewTruthKnowledgeBase() *TruthKnowledgeBase {
	now := time.Now()
	return &TruthKnowledgeBase{
		Entities:  NewEntityStore(),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func (kb *TruthKnowledgeBase) Touch() {
	kb.UpdatedAt = time.Now()
}

// InitTree creates the question tree with its single root question,
// already answered with the writer's initial story description.
func (kb *TruthKnowledgeBase) InitTree(rootQuestion, initialAnswer string) (*QuestionNode, error) {
	if kb.Tree != nil {
		return nil, fmt.Errorf("initializing tree: tree already exists: %w", ErrInvariantViolation)
	}
	root := NewQuestionNode(rootQuestion, TypePlotEvent)
	kb.Tree = NewQuestionTree(root)
	if initialAnswer != "" {
		if err := kb.Tree.SetAnswer(root.ID, initialAnswer); err != nil {
			return nil, err
		}
	}
	kb.Touch()
	return root, nil
}

// DeleteEntity removes the record and cascades: relationship fields in
// every remaining entity and related-entity links in every question
// node are stripped. Afterwards the id appears nowhere in the Truth.
func (kb *TruthKnowledgeBase) DeleteEntity(id string) error {
	if err := kb.Entities.Delete(id); err != nil {
		return err
	}
	if kb.Tree != nil {
		kb.Tree.RemoveEntityLinks(id)
	}
	kb.Touch()
	return nil
}

// Validate checks the whole aggregate: tree connectivity plus no
// dangling entity reference anywhere. Run before every snapshot save.
func (kb *TruthKnowledgeBase) Validate() error {
	if kb.Entities == nil {
		return fmt.Errorf("validating truth: entity store missing: %w", ErrInvariantViolation)
	}

	for _, c := range kb.Entities.Characters {
		for otherID := range c.Relationships {
			if !kb.Entities.Has(otherID) {
				return fmt.Errorf("character %s relationship references missing %s: %w",
					c.ID, otherID, ErrInvariantViolation)
			}
		}
	}
	for _, e := range kb.Entities.PlotEvents {
		for _, charID := range e.CharactersInvolved {
			if !kb.Entities.Has(charID) {
				return fmt.Errorf("event %s involves missing %s: %w", e.ID, charID, ErrInvariantViolation)
			}
		}
		if e.LocationID != "" && !kb.Entities.Has(e.LocationID) {
			return fmt.Errorf("event %s located at missing %s: %w", e.ID, e.LocationID, ErrInvariantViolation)
		}
	}
	for _, s := range kb.Entities.Settings {
		for _, id := range append(append([]string{}, s.RelatedCharacters...), s.RelatedEvents...) {
			if !kb.Entities.Has(id) {
				return fmt.Errorf("setting %s references missing %s: %w", s.ID, id, ErrInvariantViolation)
			}
		}
	}

	if kb.Tree != nil {
		if err := kb.Tree.Validate(); err != nil {
			return err
		}
		for _, n := range kb.Tree.Nodes {
			for _, l := range n.RelatedEntities {
				if !kb.Entities.Has(l.EntityID) {
					return fmt.Errorf("question %s references missing entity %s: %w",
						n.ID, l.EntityID, ErrInvariantViolation)
				}
			}
		}
	}
	return nil
}
