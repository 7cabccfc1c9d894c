package worldbuild

import (
	"fmt"

	"go.uber.org/zap"

	"talecraft/internal/oracle"
	"talecraft/internal/truth"
)

// reconcile files extracted candidates into the entity store: update
// when the candidate maps onto an existing record, add otherwise.
// Returns the ids it touched, in candidate order.
func (o *Orchestrator) reconcile(kb *truth.TruthKnowledgeBase, node *truth.QuestionNode, candidates []oracle.Candidate) ([]string, error) {
	var touched []string
	filed := make(map[string]oracle.Candidate)
	for _, c := range candidates {
		id, err := o.fileCandidate(kb, c)
		if err != nil {
			// A single bad candidate does not abort the cycle.
			o.log.Warn("dropping candidate",
				zap.String("name", c.Name),
				zap.Error(err))
			continue
		}
		touched = append(touched, id)
		filed[id] = c
	}

	// Second pass: involvement lists name characters that may only now
	// exist, so resolve them after every candidate is filed.
	for id, c := range filed {
		if c.EntityType != truth.TypePlotEvent || len(c.Involved) == 0 {
			continue
		}
		var charIDs []string
		for _, name := range c.Involved {
			if e, ok := kb.Entities.FindByName(name); ok && e.EntityType() == truth.TypeCharacter {
				charIDs = append(charIDs, e.EntityID())
			}
		}
		if len(charIDs) > 0 {
			patch := &truth.PlotEvent{Title: c.Name, CharactersInvolved: charIDs}
			if err := kb.Entities.Update(id, patch); err != nil {
				return touched, fmt.Errorf("linking involved characters: %w", err)
			}
		}
	}

	if len(touched) > 0 {
		var links []truth.EntityLink
		for _, id := range touched {
			links = append(links, truth.EntityLink{EntityID: id, SourceID: node.ID})
		}
		if err := kb.Tree.UpdateStatus(node.ID, truth.StatusAnswered, links...); err != nil {
			return touched, err
		}
	}
	return touched, nil
}

func (o *Orchestrator) fileCandidate(kb *truth.TruthKnowledgeBase, c oracle.Candidate) (string, error) {
	if err := c.Validate(); err != nil {
		return "", err
	}

	entity := candidateToEntity(c)

	// Prefer the oracle's id mapping, then a name match, then add new.
	targetID := c.ExistingID
	if targetID != "" && !kb.Entities.Has(targetID) {
		targetID = ""
	}
	if targetID == "" {
		if existing, ok := kb.Entities.FindByName(c.Name); ok && existing.EntityType() == c.EntityType {
			targetID = existing.EntityID()
		}
	}

	if targetID != "" {
		if err := kb.Entities.Update(targetID, entity); err != nil {
			return "", fmt.Errorf("filing candidate %q: %w", c.Name, err)
		}
		return targetID, nil
	}

	id, err := kb.Entities.Add(entity)
	if err != nil {
		return "", fmt.Errorf("filing candidate %q: %w", c.Name, err)
	}
	return id, nil
}

func candidateToEntity(c oracle.Candidate) truth.Entity {
	switch c.EntityType {
	case truth.TypeCharacter:
		return &truth.Character{
			Name:        c.Name,
			Description: c.Description,
			Traits:      c.Traits,
			Motivations: c.Motivations,
			Role:        c.Role,
		}
	case truth.TypePlotEvent:
		return &truth.PlotEvent{
			Title:       c.Name,
			Description: c.Description,
			Timestamp:   c.Timestamp,
		}
	default:
		return &truth.Setting{
			Name:        c.Name,
			Kind:        c.Kind,
			Description: c.Description,
			Rules:       c.Rules,
		}
	}
}
